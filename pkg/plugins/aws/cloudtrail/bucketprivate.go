package cloudtrail

import (
	"context"
	"fmt"
	"strings"

	"github.com/aquasecurity/cloudaudit/pkg/fanout"
	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/aws"
	"github.com/aquasecurity/cloudaudit/pkg/regions"
	"github.com/aquasecurity/cloudaudit/pkg/resourceid"
	"k8s.io/utils/ptr"
)

const BucketPrivateID = "aws/cloudtrail/cloudtrailBucketPrivate"

var trails = plugin.Dependency{
	API:          aws.DescribeTrails,
	Description:  "CloudTrail policy",
	EmptyMessage: "No S3 buckets to check",
}

// BucketPrivate reports CloudTrail log buckets that grant access to all
// users.
func BucketPrivate() plugin.Plugin {
	return plugin.New(plugin.Metadata{
		ID:                BucketPrivateID,
		Title:             "CloudTrail Bucket Private",
		Category:          "CloudTrail",
		Domain:            "Compliance",
		Description:       "Ensures CloudTrail logging bucket is not publicly accessible",
		MoreInfo:          "CloudTrail buckets contain large amounts of sensitive account data and should only be accessible by logged in users.",
		RecommendedAction: "Set the S3 bucket access policy for all CloudTrail buckets to only allow known users to access its files.",
		Link:              "http://docs.aws.amazon.com/AmazonS3/latest/dev/example-bucket-policies.html",
		APIs:              plugin.MustAPIs(aws.APIs(), "CloudTrail:describeTrails", "S3:getBucketAcl", "S3:listBuckets"),
		Compliance: map[string]string{
			"cis1": "2.3 Ensure the S3 bucket used to store CloudTrail logs is not publicly accessible",
		},
	}, runBucketPrivate)
}

func runBucketPrivate(ctx context.Context, env plugin.Env) error {
	defaultRegion := regions.DefaultRegion(env.Settings)
	partition := regions.Partition(env.Settings)

	listing, ok := plugin.Required(env, aws.ListBuckets.Key(defaultRegion), "S3 buckets", "", "")
	if !ok {
		return nil
	}
	var buckets []aws.Bucket
	if err := listing.Decode(&buckets); err != nil {
		env.Results.Unknown(fmt.Sprintf("Unable to query for S3 buckets: %v", err), "", "")
		return nil
	}

	return fanout.Each(ctx, env.Fanout, regions.AWS(env.Settings).For("cloudtrail"), func(ctx context.Context, region string) error {
		o, ok := trails.Resolve(env, region)
		if !ok {
			return nil
		}
		var regionTrails []aws.Trail
		if err := o.Decode(&regionTrails); err != nil {
			env.Results.Unknown(fmt.Sprintf("Unable to query for CloudTrail policy: %v", err), region, "")
			return nil
		}

		homed := homedTrails(regionTrails, region)
		if len(homed) == 0 {
			env.Results.OK("No CloudTrail buckets homed in this region to check", region, "")
			return nil
		}

		return fanout.Each(ctx, env.Fanout, homed, func(ctx context.Context, trail aws.Trail) error {
			bucket := ptr.Deref(trail.S3BucketName, "")
			arn, err := resourceid.S3Bucket(partition, bucket)
			if err != nil {
				env.Results.Unknown(fmt.Sprintf("Unable to identify S3 bucket %q: %v", bucket, err), region, "")
				return nil
			}
			resource := arn.String()

			if !aws.HasBucket(buckets, bucket) {
				env.Results.Fail("Unable to locate S3 bucket, it may have been deleted", region, resource)
				return nil
			}

			aclOutcome, ok := plugin.Required(env, aws.GetBucketACL.ResourceKey(defaultRegion, bucket),
				"bucket policy for bucket: "+bucket, region, resource)
			if !ok {
				return nil
			}
			var acl aws.BucketACL
			if err := aclOutcome.Decode(&acl); err != nil {
				env.Results.Unknown(fmt.Sprintf("Unable to query for bucket policy for bucket: %s: %v", bucket, err), region, resource)
				return nil
			}

			if permissions := acl.GroupPermissions(aws.GroupAllUsers); len(permissions) > 0 {
				env.Results.Fail(fmt.Sprintf("Bucket: %s allows global access to: %s", bucket, strings.Join(permissions, ", ")), region, resource)
				return nil
			}
			env.Results.OK(fmt.Sprintf("Bucket: %s does not allow public access", bucket), region, resource)
			return nil
		})
	})
}

// homedTrails returns the trails of region that deliver to a customer bucket
// and are managed from region. Multi-region trails are listed in every
// region but evaluated only in their home region.
func homedTrails(trails []aws.Trail, region string) []aws.Trail {
	var homed []aws.Trail
	for _, trail := range trails {
		bucket := ptr.Deref(trail.S3BucketName, "")
		if bucket == "" || bucket == aws.ManagedEventsBucket {
			continue
		}
		if home := ptr.Deref(trail.HomeRegion, ""); home != "" && strings.ToLower(home) != region {
			continue
		}
		homed = append(homed, trail)
	}
	return homed
}
