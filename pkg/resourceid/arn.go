// Package resourceid builds and parses the identifiers reported as the
// resource of a finding. Constructors validate their input against the
// provider's identifier grammar and return an error rather than a string
// that only looks right.
package resourceid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Partitions known to the ARN grammar.
const (
	PartitionAWS         = "aws"
	PartitionAWSChina    = "aws-cn"
	PartitionAWSGovCloud = "aws-us-gov"
)

var (
	knownPartitions = sets.New(PartitionAWS, PartitionAWSChina, PartitionAWSGovCloud)

	servicePattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	regionPattern   = regexp.MustCompile(`^[a-z]{2}(-gov|-iso[a-z]*)?-[a-z]+-\d+$`)
	accountPattern  = regexp.MustCompile(`^\d{12}$`)
	bucketPattern   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{1,253}[a-zA-Z0-9]$`)
	ipAddressBucket = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)
)

// ErrMalformed is wrapped by every validation error of this package.
var ErrMalformed = errors.New("malformed resource identifier")

// ARN is a validated Amazon Resource Name.
type ARN struct {
	Partition string
	Service   string
	Region    string
	AccountID string
	Resource  string
}

// NewARN validates the components and returns the ARN they form. Region and
// account may be blank for global resources such as S3 buckets.
func NewARN(partition, service, region, accountID, resource string) (ARN, error) {
	if !knownPartitions.Has(partition) {
		return ARN{}, fmt.Errorf("%w: unknown partition %q", ErrMalformed, partition)
	}
	if !servicePattern.MatchString(service) {
		return ARN{}, fmt.Errorf("%w: invalid service %q", ErrMalformed, service)
	}
	if region != "" && !regionPattern.MatchString(region) {
		return ARN{}, fmt.Errorf("%w: invalid region %q", ErrMalformed, region)
	}
	if accountID != "" && !accountPattern.MatchString(accountID) {
		return ARN{}, fmt.Errorf("%w: invalid account ID %q", ErrMalformed, accountID)
	}
	if strings.TrimSpace(resource) == "" {
		return ARN{}, fmt.Errorf("%w: resource must not be blank", ErrMalformed)
	}
	return ARN{
		Partition: partition,
		Service:   service,
		Region:    region,
		AccountID: accountID,
		Resource:  resource,
	}, nil
}

// S3Bucket returns the ARN of an S3 bucket after checking the bucket naming
// rules, including the relaxed rules of buckets created before March 2018.
func S3Bucket(partition, bucket string) (ARN, error) {
	if !bucketPattern.MatchString(bucket) || strings.Contains(bucket, "..") || ipAddressBucket.MatchString(bucket) {
		return ARN{}, fmt.Errorf("%w: invalid bucket name %q", ErrMalformed, bucket)
	}
	return NewARN(partition, "s3", "", "", bucket)
}

// ParseARN is the inverse of ARN.String.
func ParseARN(s string) (ARN, error) {
	parts := strings.SplitN(s, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" {
		return ARN{}, fmt.Errorf("%w: %q is not an ARN", ErrMalformed, s)
	}
	return NewARN(parts[1], parts[2], parts[3], parts[4], parts[5])
}

func (a ARN) String() string {
	return strings.Join([]string{"arn", a.Partition, a.Service, a.Region, a.AccountID, a.Resource}, ":")
}
