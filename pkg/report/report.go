package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
	"sigs.k8s.io/yaml"
)

type Reporter interface {
	Generate(writer io.Writer) error
}

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unrecognized output format: %s", s)
}

// New returns a Reporter writing report in the given format. The findings of
// every check are written in SortFindings order; report itself is not
// modified.
func New(format Format, report v1alpha1.CloudAuditReport) (Reporter, error) {
	switch format {
	case FormatJSON:
		return &jsonReporter{report: report}, nil
	case FormatYAML:
		return &yamlReporter{report: report}, nil
	}
	return nil, fmt.Errorf("unrecognized output format: %s", format)
}

type jsonReporter struct {
	report v1alpha1.CloudAuditReport
}

func (r *jsonReporter) Generate(writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(sorted(r.report))
}

type yamlReporter struct {
	report v1alpha1.CloudAuditReport
}

func (r *yamlReporter) Generate(writer io.Writer) error {
	out, err := yaml.Marshal(sorted(r.report))
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}
	_, err = writer.Write(out)
	return err
}

func sorted(report v1alpha1.CloudAuditReport) v1alpha1.CloudAuditReport {
	checks := make([]v1alpha1.CheckResult, len(report.Checks))
	for i, check := range report.Checks {
		check.Findings = append([]v1alpha1.Finding{}, check.Findings...)
		SortFindings(check.Findings)
		checks[i] = check
	}
	report.Checks = checks
	return report
}

// MaxSeverity returns the most severe finding in report, and false if the
// report has no findings.
func MaxSeverity(report v1alpha1.CloudAuditReport) (v1alpha1.Severity, bool) {
	var (
		max   v1alpha1.Severity
		found bool
	)
	for _, check := range report.Checks {
		for _, f := range check.Findings {
			if !found || f.Severity > max {
				max = f.Severity
				found = true
			}
		}
	}
	return max, found
}
