package keyvaults_test

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
	"github.com/aquasecurity/cloudaudit/pkg/cache"
	"github.com/aquasecurity/cloudaudit/pkg/config"
	"github.com/aquasecurity/cloudaudit/pkg/engine"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/azure"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/azure/keyvaults"
	"github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const vaultID = "/subscriptions/abcdef123-ebf6-437f-a3b0-28fc0d22117e/resourceGroups/Default-ActivityLogAlerts/providers/Microsoft.KeyVault/vaults/testvault"

const secretID = "https://testvault.vault.azure.net/secrets/mysecret"

var testVault = map[string]interface{}{
	"id":       vaultID,
	"name":     "testvault",
	"type":     "Microsoft.KeyVault/vaults",
	"location": "eastus",
	"sku":      map[string]interface{}{"family": "A", "name": "Standard"},
}

func secrets(attributes map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		vaultID: map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{
					"id":         secretID,
					"attributes": attributes,
				},
			},
		},
	}
}

func newSnapshot(listErr interface{}, list []interface{}, getSecrets map[string]interface{}) *cache.Snapshot {
	document := map[string]interface{}{
		"vaults": map[string]interface{}{
			"list": map[string]interface{}{
				"eastus": map[string]interface{}{"err": listErr, "data": list},
			},
			"getSecrets": map[string]interface{}{
				"eastus": getSecrets,
			},
		},
	}
	raw, err := json.Marshal(document)
	Expect(err).ToNot(HaveOccurred())
	snapshot, err := cache.Decode(bytes.NewReader(raw))
	Expect(err).ToNot(HaveOccurred())
	return snapshot
}

func run(snapshot *cache.Snapshot) []v1alpha1.Finding {
	settings := config.Default()
	settings.Locations = []string{"eastus"}
	res, err := engine.NewDriver(azure.APIs()).Run(context.Background(), keyvaults.CheckSecretsExpiry(), snapshot, settings)
	Expect(err).ToNot(HaveOccurred())
	return res.Findings
}

var _ = ginkgo.Describe("checkSecretsExpiry", func() {

	ginkgo.Context("run", func() {

		ginkgo.It("should give passing result if no key vaults found", func() {
			findings := run(newSnapshot(nil, []interface{}{}, map[string]interface{}{}))
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(v1alpha1.SeverityOK))
			Expect(findings[0].Message).To(ContainSubstring("No Key Vaults found"))
			Expect(findings[0].Region).To(Equal("eastus"))
		})

		ginkgo.It("should give failing result if expiration is not set on secrets", func() {
			findings := run(newSnapshot(nil, []interface{}{testVault}, secrets(map[string]interface{}{
				"enabled": true,
				"expiry":  nil,
				"created": 1572289869,
			})))
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(v1alpha1.SeverityFail))
			Expect(findings[0].Message).To(ContainSubstring("Expiry date is not set for the secret"))
			Expect(findings[0].Region).To(Equal("eastus"))
			Expect(findings[0].Resource).To(Equal(secretID))
		})

		ginkgo.It("should give passing result if expiration is set on secrets", func() {
			findings := run(newSnapshot(nil, []interface{}{testVault}, secrets(map[string]interface{}{
				"enabled": true,
				"expiry":  "2022-12-10T21:08:47.684Z",
			})))
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(v1alpha1.SeverityOK))
			Expect(findings[0].Message).To(ContainSubstring("Expiry date is set for the secret"))
			Expect(findings[0].Region).To(Equal("eastus"))
		})

		ginkgo.It("should give passing result if secret is disabled", func() {
			findings := run(newSnapshot(nil, []interface{}{testVault}, secrets(map[string]interface{}{
				"enabled": false,
				"expiry":  1635448252,
			})))
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].Severity).To(Equal(v1alpha1.SeverityOK))
			Expect(findings[0].Message).To(ContainSubstring("The secret is disabled"))
			Expect(findings[0].Region).To(Equal("eastus"))
		})

		ginkgo.It("should give unknown result if key vaults cannot be listed", func() {
			findings := run(newSnapshot("AuthorizationFailed", nil, map[string]interface{}{}))
			Expect(findings).To(Equal([]v1alpha1.Finding{{
				Severity: v1alpha1.SeverityUnknown,
				Message:  "Unable to query for Key Vaults: AuthorizationFailed",
				Region:   "eastus",
			}}))
		})

		ginkgo.It("should give unknown result if secrets were not collected", func() {
			findings := run(newSnapshot(nil, []interface{}{testVault}, map[string]interface{}{}))
			Expect(findings).To(Equal([]v1alpha1.Finding{{
				Severity: v1alpha1.SeverityUnknown,
				Message:  "Unable to query for Key Vault secrets: No data returned",
				Region:   "eastus",
				Resource: vaultID,
			}}))
		})

		ginkgo.It("should give passing result if vault has no secrets", func() {
			findings := run(newSnapshot(nil, []interface{}{testVault}, map[string]interface{}{
				vaultID: map[string]interface{}{"data": []interface{}{}},
			}))
			Expect(findings).To(Equal([]v1alpha1.Finding{{
				Severity: v1alpha1.SeverityOK,
				Message:  "No secrets found",
				Region:   "eastus",
				Resource: vaultID,
			}}))
		})

		ginkgo.It("should give unknown result if vault has no id", func() {
			unnamed := map[string]interface{}{"id": "", "name": "testvault", "location": "eastus"}
			findings := run(newSnapshot(nil, []interface{}{unnamed}, map[string]interface{}{
				"data": []interface{}{
					map[string]interface{}{"id": secretID, "attributes": map[string]interface{}{"enabled": true}},
				},
			}))
			Expect(findings).To(Equal([]v1alpha1.Finding{{
				Severity: v1alpha1.SeverityUnknown,
				Message:  "Unable to identify Key Vault",
				Region:   "eastus",
			}}))
		})
	})
})
