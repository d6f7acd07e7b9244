package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
	"github.com/aquasecurity/cloudaudit/pkg/cache"
	"github.com/aquasecurity/cloudaudit/pkg/config"
	"github.com/aquasecurity/cloudaudit/pkg/engine"
	"github.com/aquasecurity/cloudaudit/pkg/plugins"
	"github.com/aquasecurity/cloudaudit/pkg/report"
	"github.com/spf13/cobra"
)

// ErrThresholdExceeded is returned by the scan command when a finding is at
// least as severe as the --fail-on threshold.
var ErrThresholdExceeded = errors.New("findings exceed severity threshold")

type scanOptions struct {
	snapshot    string
	settings    string
	plugins     []string
	categories  []string
	output      string
	failOn      string
	govCloud    bool
	timeout     time.Duration
	concurrency int
}

func NewScanCmd(buildInfo BuildInfo, outWriter io.Writer) *cobra.Command {
	var opts scanOptions
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run compliance checks against a snapshot of cloud API responses",
		Long: `Run compliance checks against a snapshot of cloud API responses.

The snapshot is either a JSON or YAML document, nested by service, operation
and region, or a bbolt file created with "cloudaudit snapshot convert".`,
		Example: `  # Run all checks and print a JSON report
  cloudaudit scan --snapshot collection.json

  # Run the CloudTrail checks against GovCloud and exit non-zero on failures
  cloudaudit scan --snapshot collection.db --category CloudTrail --govcloud --fail-on FAIL`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load(opts.settings)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("govcloud") {
				settings.GovCloud = opts.govCloud
			}
			if flags.Changed("timeout") {
				settings.Timeout = opts.timeout
			}
			if flags.Changed("concurrency") {
				settings.Concurrency = opts.concurrency
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			format, err := report.ParseFormat(opts.output)
			if err != nil {
				return err
			}
			var threshold *v1alpha1.Severity
			if opts.failOn != "" {
				severity, err := v1alpha1.StringToSeverity(opts.failOn)
				if err != nil {
					return fmt.Errorf("invalid --fail-on value: %w", err)
				}
				threshold = &severity
			}

			snapshot, err := cache.Load(opts.snapshot)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			catalog, err := plugins.NewCatalog(ctx)
			if err != nil {
				return err
			}
			log := logger()
			driver := engine.NewDriver(catalog.Registry(), engine.WithLogger(log))
			scanner := engine.NewScanner(catalog, driver,
				engine.WithScannerLogger(log),
				engine.WithScannerInfo(v1alpha1.Scanner{
					Name:    "cloudaudit",
					Vendor:  "Aqua Security",
					Version: buildInfo.Version,
				}),
			)

			log.V(3).Info("Scanning snapshot", "path", opts.snapshot, "entries", snapshot.Len())
			cloudAuditReport, err := scanner.Scan(ctx, snapshot, settings, engine.Filter{
				IDs:        opts.plugins,
				Categories: opts.categories,
			})
			if err != nil {
				return err
			}

			reporter, err := report.New(format, cloudAuditReport)
			if err != nil {
				return err
			}
			if err := reporter.Generate(outWriter); err != nil {
				return err
			}

			if threshold != nil {
				if worst, ok := report.MaxSeverity(cloudAuditReport); ok && worst >= *threshold {
					return fmt.Errorf("%w: %s", ErrThresholdExceeded, worst)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "Path to the snapshot of collected API responses")
	cmd.Flags().StringVar(&opts.settings, "settings", "", "Path to a YAML settings file")
	cmd.Flags().StringArrayVar(&opts.plugins, "plugin", nil, "ID of a check to run, may be repeated (default all)")
	cmd.Flags().StringArrayVar(&opts.categories, "category", nil, "Category of checks to run, may be repeated (default all)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", string(report.FormatJSON), "Output format, one of json|yaml")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", "", "Exit with an error if a finding is at least this severe, one of OK|WARN|FAIL|UNKNOWN")
	cmd.Flags().BoolVar(&opts.govCloud, "govcloud", false, "Evaluate government cloud regions and locations")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Maximum time a single check may run (default no limit)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", config.DefaultConcurrency, "Maximum number of concurrent branches per fan-out layer")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}
