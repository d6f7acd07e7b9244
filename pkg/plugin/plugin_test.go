package plugin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
	"github.com/aquasecurity/cloudaudit/pkg/cache"
	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"github.com/aquasecurity/cloudaudit/pkg/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	describeTrails = plugin.API{Service: "cloudtrail", Operation: "describeTrails"}
	listBuckets    = plugin.API{Service: "s3", Operation: "listBuckets"}
	registry       = plugin.NewRegistry(describeTrails, listBuckets)
)

func metadata(id string) plugin.Metadata {
	return plugin.Metadata{
		ID:       id,
		Title:    "CloudTrail Enabled",
		Category: "CloudTrail",
		APIs:     []plugin.API{describeTrails},
	}
}

func TestRegistry_Resolve(t *testing.T) {
	testCases := []struct {
		name          string
		ref           string
		expectedAPI   plugin.API
		expectedError string
	}{
		{
			name:        "Should resolve service case-insensitively",
			ref:         "CloudTrail:describeTrails",
			expectedAPI: describeTrails,
		},
		{
			name:        "Should resolve canonical reference",
			ref:         "s3:listBuckets",
			expectedAPI: listBuckets,
		},
		{
			name:          "Should reject unknown operation",
			ref:           "S3:listObjects",
			expectedError: "invalid plugin metadata: unknown API S3:listObjects",
		},
		{
			name:          "Should reject malformed reference",
			ref:           "S3",
			expectedError: `invalid plugin metadata: malformed API reference "S3"`,
		},
		{
			name:          "Should reject extra separators",
			ref:           "S3:get:Acl",
			expectedError: `invalid plugin metadata: malformed API reference "S3:get:Acl"`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api, err := registry.Resolve(tc.ref)
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
				assert.True(t, errors.Is(err, plugin.ErrInvalidMetadata))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedAPI, api)
		})
	}
}

func TestRegistry_Merge(t *testing.T) {
	other := plugin.NewRegistry(plugin.API{Service: "vaults", Operation: "list"})
	merged := registry.Merge(other)
	assert.Equal(t, 3, merged.Len())
	assert.Equal(t, 2, registry.Len())
	assert.Equal(t, []plugin.API{
		describeTrails,
		listBuckets,
		{Service: "vaults", Operation: "list"},
	}, merged.APIs())
	assert.False(t, merged.Has(plugin.API{Service: "S3", Operation: "listBuckets"}))
}

func TestMetadata_Validate(t *testing.T) {
	testCases := []struct {
		name          string
		metadata      func() plugin.Metadata
		expectedError string
	}{
		{
			name:     "Should accept complete metadata",
			metadata: func() plugin.Metadata { return metadata("aws/cloudtrail/enabled") },
		},
		{
			name: "Should reject blank id",
			metadata: func() plugin.Metadata {
				return metadata(" ")
			},
			expectedError: "invalid plugin metadata: id must not be blank",
		},
		{
			name: "Should reject blank title",
			metadata: func() plugin.Metadata {
				md := metadata("x")
				md.Title = ""
				return md
			},
			expectedError: "invalid plugin metadata: x: title must not be blank",
		},
		{
			name: "Should reject missing APIs",
			metadata: func() plugin.Metadata {
				md := metadata("x")
				md.APIs = nil
				return md
			},
			expectedError: "invalid plugin metadata: x: no APIs declared",
		},
		{
			name: "Should reject duplicate APIs",
			metadata: func() plugin.Metadata {
				md := metadata("x")
				md.APIs = []plugin.API{describeTrails, describeTrails}
				return md
			},
			expectedError: "invalid plugin metadata: x: duplicate API cloudtrail:describeTrails",
		},
		{
			name: "Should reject unregistered APIs",
			metadata: func() plugin.Metadata {
				md := metadata("x")
				md.APIs = []plugin.API{{Service: "ec2", Operation: "describeInstances"}}
				return md
			},
			expectedError: "invalid plugin metadata: x: unknown API ec2:describeInstances",
		},
		{
			name: "Should reject blank compliance clause",
			metadata: func() plugin.Metadata {
				md := metadata("x")
				md.Compliance = map[string]string{"cis1": ""}
				return md
			},
			expectedError: "invalid plugin metadata: x: blank compliance reference",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.metadata().Validate(registry)
			if tc.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.expectedError)
		})
	}
}

func TestMustAPIs(t *testing.T) {
	assert.Equal(t, []plugin.API{describeTrails, listBuckets}, plugin.MustAPIs(registry, "CloudTrail:describeTrails", "S3:listBuckets"))
	assert.Panics(t, func() {
		plugin.MustAPIs(registry, "CloudTrail:lookupEvents")
	})
}

func TestCatalog(t *testing.T) {
	noop := func(context.Context, plugin.Env) error { return nil }
	s3Plugin := metadata("aws/s3/bucketAllUsersAcl")
	s3Plugin.Category = "S3"
	s3Plugin.APIs = []plugin.API{listBuckets}

	catalog, err := plugin.NewCatalog(registry,
		plugin.New(metadata("aws/cloudtrail/enabled"), noop),
		plugin.New(s3Plugin, noop),
		plugin.New(metadata("aws/cloudtrail/bucketPrivate"), noop),
	)
	require.NoError(t, err)
	require.Equal(t, 3, catalog.Len())

	t.Run("Should order plugins by id", func(t *testing.T) {
		var ids []string
		for _, p := range catalog.Plugins() {
			ids = append(ids, p.Metadata().ID)
		}
		assert.Equal(t, []string{"aws/cloudtrail/bucketPrivate", "aws/cloudtrail/enabled", "aws/s3/bucketAllUsersAcl"}, ids)
	})

	t.Run("Should select by id and category", func(t *testing.T) {
		selected, err := catalog.Select(nil, []string{"S3"})
		require.NoError(t, err)
		require.Len(t, selected, 1)
		assert.Equal(t, "aws/s3/bucketAllUsersAcl", selected[0].Metadata().ID)

		selected, err = catalog.Select([]string{"aws/cloudtrail/enabled", "aws/s3/bucketAllUsersAcl"}, []string{"CloudTrail"})
		require.NoError(t, err)
		require.Len(t, selected, 1)
		assert.Equal(t, "aws/cloudtrail/enabled", selected[0].Metadata().ID)

		_, err = catalog.Select([]string{"aws/ec2/openSSH"}, nil)
		assert.EqualError(t, err, "plugin not found: aws/ec2/openSSH")
	})

	t.Run("Should get plugin by id", func(t *testing.T) {
		p, ok := catalog.Get("aws/cloudtrail/enabled")
		require.True(t, ok)
		assert.Equal(t, "CloudTrail Enabled", p.Metadata().Title)
		_, ok = catalog.Get("nope")
		assert.False(t, ok)
	})

	t.Run("Should reject duplicate ids", func(t *testing.T) {
		_, err := plugin.NewCatalog(registry,
			plugin.New(metadata("aws/cloudtrail/enabled"), noop),
			plugin.New(metadata("aws/cloudtrail/enabled"), noop),
		)
		assert.EqualError(t, err, "invalid plugin metadata: duplicate plugin id aws/cloudtrail/enabled")
	})

	t.Run("Should reject invalid metadata at load time", func(t *testing.T) {
		md := metadata("aws/cloudtrail/enabled")
		md.APIs = []plugin.API{{Service: "cloudtrail", Operation: "lookupEvents"}}
		_, err := plugin.NewCatalog(registry, plugin.New(md, noop))
		assert.True(t, errors.Is(err, plugin.ErrInvalidMetadata))
	})
}

func TestDependency_Resolve(t *testing.T) {
	dependency := plugin.Dependency{API: describeTrails, Description: "CloudTrail trails"}
	snapshot := cache.NewBuilder().
		Succeeded(describeTrails.Key("us-east-1"), []map[string]string{{"Name": "main"}}).
		Succeeded(describeTrails.Key("us-west-2"), []interface{}{}).
		Errored(describeTrails.Key("eu-west-1"), "ThrottlingException").
		MustBuild()

	testCases := []struct {
		name            string
		scope           string
		expectedProceed bool
		expectedFinding *v1alpha1.Finding
	}{
		{
			name:            "Should proceed with items",
			scope:           "us-east-1",
			expectedProceed: true,
		},
		{
			name:  "Should report empty listing",
			scope: "us-west-2",
			expectedFinding: &v1alpha1.Finding{
				Severity: v1alpha1.SeverityOK, Message: "No CloudTrail trails found", Region: "us-west-2",
			},
		},
		{
			name:  "Should report failed listing",
			scope: "eu-west-1",
			expectedFinding: &v1alpha1.Finding{
				Severity: v1alpha1.SeverityUnknown, Message: "Unable to query for CloudTrail trails: ThrottlingException", Region: "eu-west-1",
			},
		},
		{
			name:  "Should report scope without data",
			scope: "ap-south-1",
			expectedFinding: &v1alpha1.Finding{
				Severity: v1alpha1.SeverityOK, Message: "No data to check for CloudTrail trails", Region: "ap-south-1",
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := plugin.Env{Cache: cache.NewAccessor(snapshot), Results: result.NewSink()}
			_, proceed := dependency.Resolve(env, tc.scope)
			assert.Equal(t, tc.expectedProceed, proceed)
			if tc.expectedFinding == nil {
				assert.Equal(t, 0, env.Results.Len())
				return
			}
			assert.Equal(t, []v1alpha1.Finding{*tc.expectedFinding}, env.Results.Findings())
		})
	}
}

func TestRequired(t *testing.T) {
	snapshot := cache.NewBuilder().
		Errored(listBuckets.Key("us-east-1"), "AccessDenied").
		MustBuild()
	env := plugin.Env{Cache: cache.NewAccessor(snapshot), Results: result.NewSink()}

	_, ok := plugin.Required(env, listBuckets.Key("us-east-1"), "S3 buckets", "", "")
	assert.False(t, ok)
	_, ok = plugin.Required(env, listBuckets.ResourceKey("us-east-1", "bucketA"), "bucket ACL", "us-east-1", "arn:aws:s3:::bucketA")
	assert.False(t, ok)

	assert.Equal(t, []v1alpha1.Finding{
		{Severity: v1alpha1.SeverityUnknown, Message: "Unable to query for S3 buckets: AccessDenied"},
		{Severity: v1alpha1.SeverityUnknown, Message: "Unable to query for bucket ACL: No data returned", Region: "us-east-1", Resource: "arn:aws:s3:::bucketA"},
	}, env.Results.Findings())
}
