package networksecuritygroups

import (
	"context"
	"fmt"

	"github.com/aquasecurity/cloudaudit/pkg/fanout"
	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/azure"
	"github.com/aquasecurity/cloudaudit/pkg/regions"
)

const (
	OpenMySQLID = "azure/networksecuritygroups/openMySQL"
	OpenSSHID   = "azure/networksecuritygroups/openSSH"
)

var securityGroups = plugin.Dependency{
	API:          azure.ListNetworkSecurityGroups,
	Description:  "Network Security Groups",
	EmptyMessage: "No security groups present",
}

func OpenMySQL() plugin.Plugin {
	return openPorts(plugin.Metadata{
		ID:                OpenMySQLID,
		Title:             "Open MySQL",
		Category:          "Network Security Groups",
		Domain:            "Network Access Control",
		Description:       "Determine if TCP port 4333 or 3306 for MySQL is open to the public",
		MoreInfo:          "While some ports such as HTTP and HTTPS are required to be open to the public to function properly, more sensitive services such as MySQL should be restricted to known IP addresses.",
		RecommendedAction: "Restrict TCP ports 4333 and 3306 to known IP addresses",
		Link:              "https://docs.microsoft.com/en-us/azure/virtual-network/manage-network-security-group",
		APIs:              plugin.MustAPIs(azure.APIs(), "networkSecurityGroups:listAll"),
	}, azure.Ports{"TCP": {3306, 4333}}, "MySQL")
}

func OpenSSH() plugin.Plugin {
	return openPorts(plugin.Metadata{
		ID:                OpenSSHID,
		Title:             "Open SSH",
		Category:          "Network Security Groups",
		Domain:            "Network Access Control",
		Description:       "Determine if TCP port 22 for SSH is open to the public",
		MoreInfo:          "While some ports such as HTTP and HTTPS are required to be open to the public to function properly, more sensitive services such as SSH should be restricted to known IP addresses.",
		RecommendedAction: "Restrict TCP port 22 to known IP addresses",
		Link:              "https://docs.microsoft.com/en-us/azure/virtual-network/manage-network-security-group",
		APIs:              plugin.MustAPIs(azure.APIs(), "networkSecurityGroups:listAll"),
		Compliance: map[string]string{
			"cis1": "6.2 Ensure that SSH access is restricted from the internet",
		},
	}, azure.Ports{"TCP": {22}}, "SSH")
}

func openPorts(md plugin.Metadata, ports azure.Ports, service string) plugin.Plugin {
	return plugin.New(md, func(ctx context.Context, env plugin.Env) error {
		locations := regions.Azure(env.Settings).For(securityGroups.API.Service)
		return fanout.Each(ctx, env.Fanout, locations, func(ctx context.Context, location string) error {
			o, ok := securityGroups.Resolve(env, location)
			if !ok {
				return nil
			}
			var groups []azure.NetworkSecurityGroup
			if err := o.Decode(&groups); err != nil {
				env.Results.Unknown(fmt.Sprintf("Unable to query for Network Security Groups: %v", err), location, "")
				return nil
			}
			azure.FindOpenPorts(env.Results, groups, ports, service, location)
			return nil
		})
	})
}
