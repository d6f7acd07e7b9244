// Package regions lists the scopes each service is collected in.
package regions

import (
	"github.com/aquasecurity/cloudaudit/pkg/config"
	"github.com/aquasecurity/cloudaudit/pkg/resourceid"
	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	DefaultAWSRegion         = "us-east-1"
	DefaultAWSGovCloudRegion = "us-gov-west-1"
	// Global is the scope of account-wide services that have no location.
	Global = "global"
)

var (
	awsCommercial = []string{
		"us-east-1", "us-east-2", "us-west-1", "us-west-2",
		"ca-central-1", "sa-east-1",
		"eu-north-1", "eu-west-1", "eu-west-2", "eu-west-3", "eu-central-1",
		"ap-northeast-1", "ap-northeast-2", "ap-northeast-3",
		"ap-southeast-1", "ap-southeast-2", "ap-south-1",
	}
	awsGovCloud = []string{"us-gov-west-1", "us-gov-east-1"}

	azureCommercial = []string{
		"eastus", "eastus2", "westus", "westus2", "centralus", "northcentralus",
		"southcentralus", "westcentralus", "canadacentral", "canadaeast",
		"brazilsouth", "northeurope", "westeurope", "uksouth", "ukwest",
		"francecentral", "germanywestcentral", "switzerlandnorth", "norwayeast",
		"eastasia", "southeastasia", "japaneast", "japanwest", "koreacentral",
		"australiaeast", "australiasoutheast", "centralindia", "southindia",
	}
	azureGovCloud = []string{"usgovvirginia", "usgovtexas", "usgovarizona", "usdodeast", "usdodcentral"}
)

// Scopes resolves the scopes a service is evaluated in.
type Scopes struct {
	all       []string
	global    string
	globals   sets.Set[string]
	allowList sets.Set[string]
}

// For returns the scopes of service, in a stable order, narrowed by the
// configured allow-list. Global services have exactly one scope that the
// allow-list does not filter.
func (s Scopes) For(service string) []string {
	if s.globals.Has(service) {
		return []string{s.global}
	}
	if s.allowList.Len() == 0 {
		return append([]string{}, s.all...)
	}
	var scopes []string
	for _, scope := range s.all {
		if s.allowList.Has(scope) {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

// AWS returns the AWS region lists selected by settings.
func AWS(settings config.Settings) Scopes {
	all := awsCommercial
	if settings.GovCloud {
		all = awsGovCloud
	}
	return Scopes{
		all:    all,
		global: DefaultRegion(settings),
		// S3 and IAM are listed once from the default region.
		globals:   sets.New("s3", "iam"),
		allowList: settings.RegionAllowList(),
	}
}

// Azure returns the Azure location lists selected by settings.
func Azure(settings config.Settings) Scopes {
	all := azureCommercial
	if settings.GovCloud {
		all = azureGovCloud
	}
	return Scopes{
		all:       all,
		global:    Global,
		globals:   sets.New("activityLogAlerts", "policyAssignments"),
		allowList: settings.LocationAllowList(),
	}
}

// DefaultRegion is the AWS region global services are collected in.
func DefaultRegion(settings config.Settings) string {
	if settings.GovCloud {
		return DefaultAWSGovCloudRegion
	}
	return DefaultAWSRegion
}

// Partition returns the ARN partition matching settings.
func Partition(settings config.Settings) string {
	if settings.GovCloud {
		return resourceid.PartitionAWSGovCloud
	}
	return resourceid.PartitionAWS
}
