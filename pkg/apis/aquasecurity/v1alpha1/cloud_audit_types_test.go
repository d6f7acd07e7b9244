package v1alpha1_test

import (
	"testing"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
	"github.com/stretchr/testify/assert"
)

func TestCloudAuditSummaryFromFindings(t *testing.T) {
	findings := []v1alpha1.Finding{
		{Severity: v1alpha1.SeverityOK},
		{Severity: v1alpha1.SeverityFail},
		{Severity: v1alpha1.SeverityOK},
		{Severity: v1alpha1.SeverityUnknown},
		{Severity: v1alpha1.SeverityWarn},
		{Severity: v1alpha1.SeverityFail},
		{Severity: v1alpha1.SeverityOK},
	}
	summary := v1alpha1.CloudAuditSummaryFromFindings(findings)
	assert.Equal(t, v1alpha1.CloudAuditSummary{
		OKCount:      3,
		WarnCount:    1,
		FailCount:    2,
		UnknownCount: 1,
	}, summary)

	assert.Equal(t, v1alpha1.CloudAuditSummary{
		OKCount:      6,
		WarnCount:    2,
		FailCount:    4,
		UnknownCount: 2,
	}, summary.Add(summary))
}
