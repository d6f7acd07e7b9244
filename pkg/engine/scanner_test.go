package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
	"github.com/aquasecurity/cloudaudit/pkg/config"
	"github.com/aquasecurity/cloudaudit/pkg/engine"
	"github.com/aquasecurity/cloudaudit/pkg/ext"
	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestScanner_Scan(t *testing.T) {
	failing := metadata("azure/keyvaults/failing")
	failing.Category = "Failing"
	failing.Compliance = map[string]string{"cis1": "8.1"}

	catalog, err := plugin.NewCatalog(registry,
		plugin.New(metadata("azure/keyvaults/present"), vaultsPresent),
		plugin.New(failing, func(ctx context.Context, env plugin.Env) error {
			env.Results.Fail("always", "", "")
			panic("after finding")
		}),
	)
	require.NoError(t, err)

	frozen := time.Date(2022, time.January, 2, 3, 4, 5, 0, time.UTC)
	scanner := engine.NewScanner(catalog, engine.NewDriver(registry),
		engine.WithClock(ext.NewFixedClock(frozen)),
		engine.WithIDGenerator(ext.NewSequentialIDGenerator()),
		engine.WithScannerInfo(v1alpha1.Scanner{Name: "cloudaudit", Vendor: "Aqua Security", Version: "dev"}),
	)

	t.Run("Should run the whole catalog", func(t *testing.T) {
		report, err := scanner.Scan(context.Background(), snapshot(), config.Default(), engine.Filter{})
		require.NoError(t, err)

		assert.Equal(t, metav1.TypeMeta{Kind: "CloudAuditReport", APIVersion: "v1alpha1"}, report.TypeMeta)
		assert.Equal(t, "00000000-0000-0000-0000-000000000001", report.ID)
		assert.Equal(t, metav1.NewTime(frozen), report.UpdateTimestamp)
		assert.Equal(t, "dev", report.Scanner.Version)
		require.Len(t, report.Checks, 2)

		failed := report.Checks[0]
		assert.Equal(t, "azure/keyvaults/failing", failed.ID)
		assert.Equal(t, map[string]string{"cis1": "8.1"}, failed.Compliance)
		assert.Equal(t, "running check azure/keyvaults/failing: task panicked: after finding", failed.Error)
		assert.Len(t, failed.Findings, 1)

		present := report.Checks[1]
		assert.Equal(t, "azure/keyvaults/present", present.ID)
		assert.Empty(t, present.Error)
		assert.Len(t, present.Findings, 4)
		assert.Equal(t, []v1alpha1.SourceRef{
			{Service: "vaults", Operation: "list", Region: "eastus"},
			{Service: "vaults", Operation: "list", Region: "northeurope"},
			{Service: "vaults", Operation: "list", Region: "westus"},
		}, present.Source)

		assert.Equal(t, v1alpha1.CloudAuditSummary{OKCount: 3, FailCount: 1, UnknownCount: 1}, report.Summary)
	})

	t.Run("Should filter by category", func(t *testing.T) {
		report, err := scanner.Scan(context.Background(), snapshot(), config.Default(), engine.Filter{Categories: []string{"Key Vaults"}})
		require.NoError(t, err)
		require.Len(t, report.Checks, 1)
		assert.Equal(t, "azure/keyvaults/present", report.Checks[0].ID)
	})

	t.Run("Should return error for unknown check", func(t *testing.T) {
		_, err := scanner.Scan(context.Background(), snapshot(), config.Default(), engine.Filter{IDs: []string{"aws/iam/rootMfa"}})
		assert.EqualError(t, err, "plugin not found: aws/iam/rootMfa")
	})
}
