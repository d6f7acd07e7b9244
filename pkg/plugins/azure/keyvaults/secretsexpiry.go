package keyvaults

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aquasecurity/cloudaudit/pkg/fanout"
	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/azure"
	"github.com/aquasecurity/cloudaudit/pkg/regions"
	"k8s.io/utils/ptr"
)

const CheckSecretsExpiryID = "azure/keyvaults/checkSecretsExpiry"

var vaults = plugin.Dependency{
	API:         azure.ListVaults,
	Description: "Key Vaults",
}

type Secret struct {
	ID         string `json:"id"`
	Attributes struct {
		Enabled *bool `json:"enabled,omitempty"`
		// Expiry is written either as an RFC 3339 string or as Unix time.
		Expiry json.RawMessage `json:"expiry,omitempty"`
		// Exp is the Unix time field of the Key Vault REST API.
		Exp *int64 `json:"exp,omitempty"`
	} `json:"attributes"`
}

func (s Secret) disabled() bool {
	return !ptr.Deref(s.Attributes.Enabled, true)
}

func (s Secret) hasExpiry() bool {
	if ptr.Deref(s.Attributes.Exp, 0) != 0 {
		return true
	}
	switch string(bytes.TrimSpace(s.Attributes.Expiry)) {
	case "", "null", `""`, "0":
		return false
	}
	return true
}

func CheckSecretsExpiry() plugin.Plugin {
	return plugin.New(plugin.Metadata{
		ID:                CheckSecretsExpiryID,
		Title:             "Secrets Expiry",
		Category:          "Key Vaults",
		Domain:            "Application Integration",
		Description:       "Ensures that all secrets in Azure Key Vault have an expiry time set.",
		MoreInfo:          "Setting an expiry time on all secrets forces secret rotation and removes unused and forgotten secrets from being used.",
		RecommendedAction: "Ensure each secret has an expiry time set.",
		Link:              "https://docs.microsoft.com/en-us/azure/key-vault/about-keys-secrets-and-certificates",
		APIs:              plugin.MustAPIs(azure.APIs(), "vaults:list", "vaults:getSecrets"),
		Compliance: map[string]string{
			"cis1": "8.2 Ensure that the expiration date is set on all Secrets",
		},
	}, runCheckSecretsExpiry)
}

func runCheckSecretsExpiry(ctx context.Context, env plugin.Env) error {
	return fanout.Each(ctx, env.Fanout, regions.Azure(env.Settings).For(vaults.API.Service), func(ctx context.Context, location string) error {
		o, ok := vaults.Resolve(env, location)
		if !ok {
			return nil
		}
		var list []azure.Resource
		if err := o.Decode(&list); err != nil {
			env.Results.Unknown(fmt.Sprintf("Unable to query for Key Vaults: %v", err), location, "")
			return nil
		}

		return fanout.Each(ctx, env.Fanout, list, func(ctx context.Context, vault azure.Resource) error {
			// Secrets are keyed by vault ID; a blank ID would read the location entry.
			if strings.TrimSpace(vault.ID) == "" {
				env.Results.Unknown("Unable to identify Key Vault", location, "")
				return nil
			}
			secretsOutcome, ok := plugin.Required(env, azure.GetSecrets.ResourceKey(location, vault.ID), "Key Vault secrets", location, vault.ID)
			if !ok {
				return nil
			}
			var secrets []Secret
			if err := secretsOutcome.Decode(&secrets); err != nil {
				env.Results.Unknown(fmt.Sprintf("Unable to query for Key Vault secrets: %v", err), location, vault.ID)
				return nil
			}
			if len(secrets) == 0 {
				env.Results.OK("No secrets found", location, vault.ID)
				return nil
			}
			for _, secret := range secrets {
				switch {
				case secret.disabled():
					env.Results.OK("The secret is disabled", location, secret.ID)
				case secret.hasExpiry():
					env.Results.OK("Expiry date is set for the secret", location, secret.ID)
				default:
					env.Results.Fail("Expiry date is not set for the secret", location, secret.ID)
				}
			}
			return nil
		})
	})
}
