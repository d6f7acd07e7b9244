// Package azure holds the Azure API registry, payload types and the helpers
// shared by the Azure checks.
package azure

import (
	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"github.com/aquasecurity/cloudaudit/pkg/resourceid"
)

var (
	ListNetworkSecurityGroups = plugin.API{Service: "networkSecurityGroups", Operation: "listAll"}
	ListVaults                = plugin.API{Service: "vaults", Operation: "list"}
	GetSecrets                = plugin.API{Service: "vaults", Operation: "getSecrets"}
	ListStorageAccounts       = plugin.API{Service: "storageAccounts", Operation: "list"}
)

// APIs returns the registry of Azure calls checks may depend on.
func APIs() plugin.Registry {
	return plugin.NewRegistry(ListNetworkSecurityGroups, ListVaults, GetSecrets, ListStorageAccounts)
}

// Resource is the envelope shared by Azure resource payloads.
type Resource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// DisplayName returns the name of the resource, falling back to the last
// segment of its resource ID when the payload carries no name.
func (r Resource) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if id, err := resourceid.ParseAzureID(r.ID); err == nil {
		return id.Name()
	}
	return r.ID
}
