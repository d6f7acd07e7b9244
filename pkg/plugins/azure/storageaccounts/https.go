package storageaccounts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aquasecurity/cloudaudit/pkg/fanout"
	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"github.com/aquasecurity/cloudaudit/pkg/plugins/azure"
	"github.com/aquasecurity/cloudaudit/pkg/policy"
	"github.com/aquasecurity/cloudaudit/pkg/regions"
)

const StorageAccountsHTTPSID = "azure/storageaccounts/storageAccountsHttps"

//go:embed https.rego
var httpsPolicy string

var accounts = plugin.Dependency{
	API:          azure.ListStorageAccounts,
	Description:  "Storage Accounts",
	EmptyMessage: "No storage accounts found",
}

// StorageAccountsHTTPS evaluates every storage account against the embedded
// Rego policy.
func StorageAccountsHTTPS(ctx context.Context) (plugin.Plugin, error) {
	p, err := policy.Compile(ctx, "https.rego", httpsPolicy, nil)
	if err != nil {
		return nil, err
	}
	md := p.Metadata()
	return plugin.New(plugin.Metadata{
		ID:                StorageAccountsHTTPSID,
		Title:             md.Title,
		Category:          "Storage Accounts",
		Domain:            "Storage",
		Description:       md.Description,
		MoreInfo:          "Storage Accounts can contain sensitive information and should only be accessed over HTTPS. Enabling the HTTPS-only flag ensures that Azure does not allow HTTP traffic to Storage Accounts.",
		RecommendedAction: "Enable the HTTPS-only option for all Storage Accounts.",
		Link:              "https://docs.microsoft.com/en-us/azure/governance/policy/samples/ensure-https-storage-account",
		APIs:              plugin.MustAPIs(azure.APIs(), "storageAccounts:list"),
		Compliance: map[string]string{
			"cis1": "3.1 Ensure that 'Secure transfer required' is set to 'Enabled'",
		},
	}, func(ctx context.Context, env plugin.Env) error {
		return run(ctx, env, p)
	}), nil
}

func run(ctx context.Context, env plugin.Env, p *policy.Policy) error {
	return fanout.Each(ctx, env.Fanout, regions.Azure(env.Settings).For(accounts.API.Service), func(ctx context.Context, location string) error {
		o, ok := accounts.Resolve(env, location)
		if !ok {
			return nil
		}
		var list []json.RawMessage
		if err := o.Decode(&list); err != nil {
			env.Results.Unknown(fmt.Sprintf("Unable to query for Storage Accounts: %v", err), location, "")
			return nil
		}

		return fanout.Each(ctx, env.Fanout, list, func(ctx context.Context, raw json.RawMessage) error {
			var account azure.Resource
			var input map[string]interface{}
			if err := json.Unmarshal(raw, &account); err != nil {
				env.Results.Unknown(fmt.Sprintf("Unable to decode Storage Account: %v", err), location, "")
				return nil
			}
			if err := json.Unmarshal(raw, &input); err != nil || input == nil {
				env.Results.Unknown("Unable to decode Storage Account: expected an object", location, account.ID)
				return nil
			}
			res, err := p.Eval(ctx, input)
			if err != nil {
				return err
			}
			if res.Passed() {
				env.Results.OK("Storage Account is configured to accept HTTPS traffic only", location, account.ID)
				return nil
			}
			env.Results.Add(res.Severity, strings.Join(res.Messages, "; "), location, account.ID)
			return nil
		})
	})
}
