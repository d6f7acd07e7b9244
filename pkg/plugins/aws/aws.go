// Package aws holds the AWS API registry, the payload types recorded for
// those APIs and helpers shared by the AWS checks.
package aws

import (
	"strings"

	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"k8s.io/utils/ptr"
)

var (
	DescribeTrails = plugin.API{Service: "cloudtrail", Operation: "describeTrails"}
	ListBuckets    = plugin.API{Service: "s3", Operation: "listBuckets"}
	GetBucketACL   = plugin.API{Service: "s3", Operation: "getBucketAcl"}
)

// APIs returns the registry of AWS calls checks may depend on.
func APIs() plugin.Registry {
	return plugin.NewRegistry(DescribeTrails, ListBuckets, GetBucketACL)
}

// ManagedEventsBucket receives the trail of the scanner's own event
// collection and is never reported on.
const ManagedEventsBucket = "cloudsploit-engine-trails"

// Grantee group URIs of the predefined S3 groups.
const (
	GroupAllUsers           = "http://acs.amazonaws.com/groups/global/AllUsers"
	GroupAuthenticatedUsers = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
)

// Trail is one element of a describeTrails payload.
type Trail struct {
	Name         *string `json:"Name,omitempty"`
	TrailARN     *string `json:"TrailARN,omitempty"`
	S3BucketName *string `json:"S3BucketName,omitempty"`
	HomeRegion   *string `json:"HomeRegion,omitempty"`
}

// Bucket is one element of a listBuckets payload.
type Bucket struct {
	Name *string `json:"Name,omitempty"`
}

// HasBucket returns true if buckets contains a bucket called name.
func HasBucket(buckets []Bucket, name string) bool {
	for _, b := range buckets {
		if ptr.Deref(b.Name, "") == name {
			return true
		}
	}
	return false
}

type Grantee struct {
	Type *string `json:"Type,omitempty"`
	URI  *string `json:"URI,omitempty"`
	ID   *string `json:"ID,omitempty"`
}

type Grant struct {
	Grantee    *Grantee `json:"Grantee,omitempty"`
	Permission *string  `json:"Permission,omitempty"`
}

// BucketACL is the getBucketAcl payload of one bucket.
type BucketACL struct {
	Grants []Grant `json:"Grants"`
}

// GroupPermissions returns the permissions granted to any of the given
// predefined groups, in grant order. Groups match on the last path element
// of the grantee URI, so both the http and https forms are recognised.
func (acl BucketACL) GroupPermissions(groups ...string) []string {
	var permissions []string
	for _, grant := range acl.Grants {
		if grant.Grantee == nil || ptr.Deref(grant.Grantee.Type, "") != "Group" {
			continue
		}
		uri := ptr.Deref(grant.Grantee.URI, "")
		for _, group := range groups {
			if uri != "" && groupName(uri) == groupName(group) {
				permissions = append(permissions, ptr.Deref(grant.Permission, "UNKNOWN"))
				break
			}
		}
	}
	return permissions
}

func groupName(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}
