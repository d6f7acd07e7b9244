package s3

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

const BucketAllUsersACLID = "aws/s3/bucketAllUsersAcl"

var buckets = plugin.Dependency{
	API:          aws.ListBuckets,
	Description:  "S3 buckets",
	EmptyMessage: "No S3 buckets to check",
}

func BucketAllUsersACL() plugin.Plugin {
	return plugin.New(plugin.Metadata{
		ID:                BucketAllUsersACLID,
		Title:             "S3 Bucket All Users ACL",
		Category:          "S3",
		Domain:            "Storage",
		Description:       "Ensures S3 buckets do not allow global write, delete, or read ACL permissions",
		MoreInfo:          "S3 buckets can be configured to allow anyone, regardless of whether they are an AWS user or not, to write objects to a bucket or delete objects. This option should not be configured unless there is a strong business requirement.",
		RecommendedAction: "Disable global all users policies on all S3 buckets and ensure both the bucket ACL is configured with least privileges.",
		Link:              "http://docs.aws.amazon.com/AmazonS3/latest/UG/EditingBucketPermissions.html",
		APIs:              plugin.MustAPIs(aws.APIs(), "S3:listBuckets", "S3:getBucketAcl"),
	}, runBucketAllUsersACL)
}

func runBucketAllUsersACL(ctx context.Context, env plugin.Env) error {
	region := regions.DefaultRegion(env.Settings)
	partition := regions.Partition(env.Settings)

	listing, ok := buckets.Resolve(env, region)
	if !ok {
		return nil
	}
	var list []aws.Bucket
	if err := listing.Decode(&list); err != nil {
		env.Results.Unknown(fmt.Sprintf("Unable to query for S3 buckets: %v", err), region, "")
		return nil
	}

	return fanout.Each(ctx, env.Fanout, list, func(ctx context.Context, bucket aws.Bucket) error {
		name := ptr.Deref(bucket.Name, "")
		arn, err := resourceid.S3Bucket(partition, name)
		if err != nil {
			env.Results.Unknown(fmt.Sprintf("Unable to identify S3 bucket %q: %v", name, err), region, "")
			return nil
		}
		resource := arn.String()

		o, ok := plugin.Required(env, aws.GetBucketACL.ResourceKey(region, name), "bucket ACL for bucket: "+name, region, resource)
		if !ok {
			return nil
		}
		var acl aws.BucketACL
		if err := o.Decode(&acl); err != nil {
			env.Results.Unknown(fmt.Sprintf("Unable to query for bucket ACL for bucket: %s: %v", name, err), region, resource)
			return nil
		}

		if permissions := acl.GroupPermissions(aws.GroupAllUsers, aws.GroupAuthenticatedUsers); len(permissions) > 0 {
			env.Results.Fail(fmt.Sprintf("Bucket: %s allows global access to: %s", name, strings.Join(permissions, ", ")), region, resource)
			return nil
		}
		env.Results.OK(fmt.Sprintf("Bucket: %s does not allow public access", name), region, resource)
		return nil
	})
}
