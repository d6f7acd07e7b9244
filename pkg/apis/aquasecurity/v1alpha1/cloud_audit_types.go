package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	CloudAuditReportKind    = "CloudAuditReport"
	CloudAuditReportVersion = "v1alpha1"
)

// Finding is a single outcome reported by a check. Findings are never
// modified once they have been appended to a result sink.
type Finding struct {
	Severity Severity `json:"status"`
	Message  string   `json:"message"`
	// Region is empty for account-wide findings.
	Region   string `json:"region,omitempty"`
	Resource string `json:"resource,omitempty"`
}

// SourceRef identifies one snapshot entry consulted while evaluating a check.
type SourceRef struct {
	Service   string `json:"service"`
	Operation string `json:"operation"`
	Region    string `json:"region"`
	Resource  string `json:"resource,omitempty"`
}

type CloudAuditSummary struct {
	OKCount      int `json:"okCount"`
	WarnCount    int `json:"warnCount"`
	FailCount    int `json:"failCount"`
	UnknownCount int `json:"unknownCount"`
}

// Add returns a new summary that includes the given summary's counts.
func (s CloudAuditSummary) Add(other CloudAuditSummary) CloudAuditSummary {
	return CloudAuditSummary{
		OKCount:      s.OKCount + other.OKCount,
		WarnCount:    s.WarnCount + other.WarnCount,
		FailCount:    s.FailCount + other.FailCount,
		UnknownCount: s.UnknownCount + other.UnknownCount,
	}
}

// CloudAuditSummaryFromFindings counts findings per severity.
func CloudAuditSummaryFromFindings(findings []Finding) CloudAuditSummary {
	var summary CloudAuditSummary
	for _, f := range findings {
		switch f.Severity {
		case SeverityOK:
			summary.OKCount++
		case SeverityWarn:
			summary.WarnCount++
		case SeverityFail:
			summary.FailCount++
		case SeverityUnknown:
			summary.UnknownCount++
		}
	}
	return summary
}

// CheckResult holds the findings of one check together with the metadata
// needed to report on them.
type CheckResult struct {
	ID                string            `json:"checkID"`
	Title             string            `json:"title"`
	Category          string            `json:"category"`
	Description       string            `json:"description,omitempty"`
	MoreInfo          string            `json:"moreInfo,omitempty"`
	RecommendedAction string            `json:"recommendedAction,omitempty"`
	Link              string            `json:"link,omitempty"`
	Compliance        map[string]string `json:"compliance,omitempty"`
	Findings          []Finding         `json:"findings"`
	Source            []SourceRef       `json:"source,omitempty"`
	// Error is set when the check failed at engine level. Findings may still
	// be partially populated in that case.
	Error string `json:"error,omitempty"`
}

// CloudAuditReport is the result of running a catalog of checks against
// one snapshot.
type CloudAuditReport struct {
	metav1.TypeMeta `json:",inline"`

	ID              string            `json:"id"`
	UpdateTimestamp metav1.Time       `json:"updateTimestamp"`
	Scanner         Scanner           `json:"scanner"`
	Summary         CloudAuditSummary `json:"summary"`
	Checks          []CheckResult     `json:"checks"`
}
