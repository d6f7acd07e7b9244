package azure

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
	"github.com/aquasecurity/cloudaudit/pkg/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortRangeCovers(t *testing.T) {
	testCases := []struct {
		portRange string
		port      int
		covers    bool
	}{
		{portRange: "*", port: 22, covers: true},
		{portRange: "22", port: 22, covers: true},
		{portRange: "21", port: 22, covers: false},
		{portRange: "20-23", port: 22, covers: true},
		{portRange: " 20 - 22 ", port: 22, covers: true},
		{portRange: "23-30", port: 22, covers: false},
		{portRange: "ssh", port: 22, covers: false},
		{portRange: "", port: 22, covers: false},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%q covers %d", tc.portRange, tc.port), func(t *testing.T) {
			assert.Equal(t, tc.covers, portRangeCovers(tc.portRange, tc.port))
		})
	}
}

func TestResource_DisplayName(t *testing.T) {
	t.Run("Should prefer name", func(t *testing.T) {
		assert.Equal(t, "web-nsg", Resource{ID: "/subscriptions/abc/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/other", Name: "web-nsg"}.DisplayName())
	})
	t.Run("Should fall back to resource ID name", func(t *testing.T) {
		assert.Equal(t, "web-nsg", Resource{ID: "/subscriptions/abc/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/web-nsg"}.DisplayName())
	})
	t.Run("Should fall back to malformed ID", func(t *testing.T) {
		assert.Equal(t, "web-nsg", Resource{ID: "web-nsg"}.DisplayName())
	})
}

func TestFindOpenPorts(t *testing.T) {
	var groups []NetworkSecurityGroup
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id": "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/open",
		 "properties": {"securityRules": [{"name": "any-ssh", "properties": {
			"access": "Allow", "direction": "Inbound", "protocol": "Tcp",
			"sourceAddressPrefix": "0.0.0.0/0", "destinationPortRange": "20-25"}}]}},
		{"id": "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/closed",
		 "properties": {"securityRules": [{"name": "office-ssh", "properties": {
			"access": "Allow", "direction": "Inbound", "protocol": "Tcp",
			"sourceAddressPrefix": "203.0.113.0/24", "destinationPortRange": "22"}}]}},
		{"id": "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/empty"}
	]`), &groups))

	t.Run("Should report every security group", func(t *testing.T) {
		sink := result.NewSink()
		FindOpenPorts(sink, groups, Ports{"TCP": {22}}, "SSH", "eastus")
		assert.Equal(t, []v1alpha1.Finding{
			{Severity: v1alpha1.SeverityFail, Message: "Security group open has SSH open to the public on TCP:22 (rule any-ssh)", Region: "eastus", Resource: groups[0].ID},
			{Severity: v1alpha1.SeverityOK, Message: "Security group closed does not have SSH open to the public", Region: "eastus", Resource: groups[1].ID},
			{Severity: v1alpha1.SeverityOK, Message: "Security group empty does not have SSH open to the public", Region: "eastus", Resource: groups[2].ID},
		}, sink.Findings())
	})

	t.Run("Should report location without security groups", func(t *testing.T) {
		sink := result.NewSink()
		FindOpenPorts(sink, nil, Ports{"TCP": {22}}, "SSH", "westus")
		assert.Equal(t, []v1alpha1.Finding{
			{Severity: v1alpha1.SeverityOK, Message: "No public open ports found for SSH", Region: "westus"},
		}, sink.Findings())
	})
}
