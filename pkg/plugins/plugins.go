// Package plugins assembles the catalog of all built-in checks.
package plugins

import (
	"context"

	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/aws"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/aws/cloudtrail"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/aws/s3"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/azure"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/azure/keyvaults"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/azure/networksecuritygroups"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/azure/storageaccounts"
)

// Registry returns the APIs of all supported providers.
func Registry() plugin.Registry {
	return aws.APIs().Merge(azure.APIs())
}

// NewCatalog returns the validated catalog of built-in checks.
func NewCatalog(ctx context.Context) (*plugin.Catalog, error) {
	storageAccountsHTTPS, err := storageaccounts.StorageAccountsHTTPS(ctx)
	if err != nil {
		return nil, err
	}
	return plugin.NewCatalog(Registry(),
		cloudtrail.BucketPrivate(),
		s3.BucketAllUsersACL(),
		networksecuritygroups.OpenMySQL(),
		networksecuritygroups.OpenSSH(),
		keyvaults.CheckSecretsExpiry(),
		storageAccountsHTTPS,
	)
}
