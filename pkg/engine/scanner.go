package engine

import (
	"context"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
	"github.com/aquasecurity/cloudaudit/pkg/cache"
	"github.com/aquasecurity/cloudaudit/pkg/config"
	"github.com/aquasecurity/cloudaudit/pkg/ext"
	"github.com/aquasecurity/cloudaudit/pkg/fanout"
	"github.com/aquasecurity/cloudaudit/pkg/plugin"
	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Scanner runs a catalog of checks against one snapshot and assembles the
// report.
type Scanner struct {
	catalog     *plugin.Catalog
	driver      *Driver
	clock       ext.Clock
	idGenerator ext.IDGenerator
	log         logr.Logger
	info        v1alpha1.Scanner
}

type ScannerOption func(*Scanner)

func WithClock(clock ext.Clock) ScannerOption {
	return func(s *Scanner) {
		s.clock = clock
	}
}

func WithIDGenerator(idGenerator ext.IDGenerator) ScannerOption {
	return func(s *Scanner) {
		s.idGenerator = idGenerator
	}
}

func WithScannerLogger(log logr.Logger) ScannerOption {
	return func(s *Scanner) {
		s.log = log
	}
}

// WithScannerInfo sets the scanner name, vendor and version stamped on reports.
func WithScannerInfo(info v1alpha1.Scanner) ScannerOption {
	return func(s *Scanner) {
		s.info = info
	}
}

func NewScanner(catalog *plugin.Catalog, driver *Driver, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		catalog:     catalog,
		driver:      driver,
		clock:       ext.NewSystemClock(),
		idGenerator: ext.NewUUIDGenerator(),
		log:         logr.Discard(),
		info: v1alpha1.Scanner{
			Name:   "cloudaudit",
			Vendor: "Aqua Security",
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Filter narrows a scan down to checks with the given IDs in the given
// categories. The zero value selects the whole catalog.
type Filter struct {
	IDs        []string
	Categories []string
}

// Scan runs the selected checks in parallel, each with its own result sink,
// and returns the report once all of them finished. Checks that fail at
// engine level are recorded in CheckResult.Error and do not stop the scan.
func (s *Scanner) Scan(ctx context.Context, snapshot *cache.Snapshot, settings config.Settings, filter Filter) (v1alpha1.CloudAuditReport, error) {
	plugins, err := s.catalog.Select(filter.IDs, filter.Categories)
	if err != nil {
		return v1alpha1.CloudAuditReport{}, err
	}

	checks := make([]v1alpha1.CheckResult, len(plugins))
	indexes := make([]int, len(plugins))
	for i := range indexes {
		indexes[i] = i
	}

	coordinator := fanout.New(s.driver.concurrencyFor(settings), fanout.WithLogger(s.log))
	err = fanout.Each(ctx, coordinator, indexes, func(ctx context.Context, i int) error {
		p := plugins[i]
		res, err := s.driver.Run(ctx, p, snapshot, settings)
		check := checkResult(p.Metadata(), res)
		if err != nil {
			s.log.Error(err, "Check failed", "check", check.ID)
			check.Error = err.Error()
		}
		checks[i] = check
		return nil
	})
	if err != nil {
		return v1alpha1.CloudAuditReport{}, err
	}

	var summary v1alpha1.CloudAuditSummary
	for _, check := range checks {
		summary = summary.Add(v1alpha1.CloudAuditSummaryFromFindings(check.Findings))
	}

	return v1alpha1.CloudAuditReport{
		TypeMeta: metav1.TypeMeta{
			Kind:       v1alpha1.CloudAuditReportKind,
			APIVersion: v1alpha1.CloudAuditReportVersion,
		},
		ID:              s.idGenerator.GenerateID(),
		UpdateTimestamp: metav1.NewTime(s.clock.Now()),
		Scanner:         s.info,
		Summary:         summary,
		Checks:          checks,
	}, nil
}

func checkResult(md plugin.Metadata, res Result) v1alpha1.CheckResult {
	check := v1alpha1.CheckResult{
		ID:                md.ID,
		Title:             md.Title,
		Category:          md.Category,
		Description:       md.Description,
		MoreInfo:          md.MoreInfo,
		RecommendedAction: md.RecommendedAction,
		Link:              md.Link,
		Compliance:        md.Compliance,
		Findings:          res.Findings,
	}
	if check.Findings == nil {
		check.Findings = []v1alpha1.Finding{}
	}
	for _, k := range res.Source {
		check.Source = append(check.Source, v1alpha1.SourceRef{
			Service:   k.Service,
			Operation: k.Operation,
			Region:    k.Scope,
			Resource:  k.Resource,
		})
	}
	return check
}
