package networksecuritygroups_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
	"github.com/aquasecurity/cloudaudit/pkg/cache"
	"github.com/aquasecurity/cloudaudit/pkg/config"
	"github.com/aquasecurity/cloudaudit/pkg/engine"
	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/azure"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/azure/networksecuritygroups"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groups = `
networkSecurityGroups:
  listAll:
    eastus:
      data:
        - id: /subscriptions/s/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/db-nsg
          name: db-nsg
          location: eastus
          properties:
            securityRules:
              - name: allow-mysql
                properties:
                  access: Allow
                  direction: Inbound
                  protocol: Tcp
                  sourceAddressPrefix: "*"
                  destinationPortRange: "3306"
              - name: allow-range
                properties:
                  access: Allow
                  direction: Inbound
                  protocol: "*"
                  sourceAddressPrefixes: ["10.0.0.0/8", "Internet"]
                  destinationPortRanges: ["4000-4400"]
        - id: /subscriptions/s/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/web-nsg
          name: web-nsg
          location: eastus
          properties:
            securityRules:
              - name: allow-https
                properties:
                  access: Allow
                  direction: Inbound
                  protocol: Tcp
                  sourceAddressPrefix: "*"
                  destinationPortRange: "443"
              - name: deny-ssh
                properties:
                  access: Deny
                  direction: Inbound
                  protocol: Tcp
                  sourceAddressPrefix: "*"
                  destinationPortRange: "22"
              - name: ssh-from-office
                properties:
                  access: Allow
                  direction: Inbound
                  protocol: Tcp
                  sourceAddressPrefix: 203.0.113.0/24
                  destinationPortRange: "22"
    westus:
      data: []
    northeurope:
      err: AuthorizationFailed
`

func run(t *testing.T, p plugin.Plugin) []v1alpha1.Finding {
	t.Helper()
	snapshot, err := cache.Decode(strings.NewReader(groups))
	require.NoError(t, err)
	settings := config.Default()
	settings.Locations = []string{"eastus", "westus", "northeurope", "uksouth"}
	res, err := engine.NewDriver(azure.APIs()).Run(context.Background(), p, snapshot, settings)
	require.NoError(t, err)
	return res.Findings
}

func TestOpenMySQL(t *testing.T) {
	findings := run(t, networksecuritygroups.OpenMySQL())
	assert.ElementsMatch(t, []v1alpha1.Finding{
		{
			Severity: v1alpha1.SeverityFail,
			Message:  "Security group db-nsg has MySQL open to the public on TCP:3306 (rule allow-mysql), TCP:4333 (rule allow-range)",
			Region:   "eastus",
			Resource: "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/db-nsg",
		},
		{
			Severity: v1alpha1.SeverityOK,
			Message:  "Security group web-nsg does not have MySQL open to the public",
			Region:   "eastus",
			Resource: "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/web-nsg",
		},
		{Severity: v1alpha1.SeverityOK, Message: "No security groups present", Region: "westus"},
		{Severity: v1alpha1.SeverityUnknown, Message: "Unable to query for Network Security Groups: AuthorizationFailed", Region: "northeurope"},
		{Severity: v1alpha1.SeverityOK, Message: "No data to check for Network Security Groups", Region: "uksouth"},
	}, findings)
}

func TestOpenSSH(t *testing.T) {
	findings := run(t, networksecuritygroups.OpenSSH())
	assert.ElementsMatch(t, []v1alpha1.Finding{
		{
			Severity: v1alpha1.SeverityOK,
			Message:  "Security group db-nsg does not have SSH open to the public",
			Region:   "eastus",
			Resource: "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/db-nsg",
		},
		{
			Severity: v1alpha1.SeverityOK,
			Message:  "Security group web-nsg does not have SSH open to the public",
			Region:   "eastus",
			Resource: "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/web-nsg",
		},
		{Severity: v1alpha1.SeverityOK, Message: "No security groups present", Region: "westus"},
		{Severity: v1alpha1.SeverityUnknown, Message: "Unable to query for Network Security Groups: AuthorizationFailed", Region: "northeurope"},
		{Severity: v1alpha1.SeverityOK, Message: "No data to check for Network Security Groups", Region: "uksouth"},
	}, findings)
}
