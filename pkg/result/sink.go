package result

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aquasecurity/cloudaudit/pkg/apis/aquasecurity/v1alpha1"
)

// ErrInvalidSeverity is reported by Sink.Err when a finding with a severity
// outside the defined enum was submitted.
var ErrInvalidSeverity = errors.New("invalid severity")

// Sink collects the findings of one check evaluation. Appends are atomic and
// may come from any number of goroutines; findings keep the order in which
// they were appended.
type Sink struct {
	mu       sync.Mutex
	findings []v1alpha1.Finding
	err      error
}

func NewSink() *Sink {
	return &Sink{}
}

// Add appends a finding. Region and resource may be blank.
func (s *Sink) Add(severity v1alpha1.Severity, message, region, resource string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !severity.Valid() {
		if s.err == nil {
			s.err = fmt.Errorf("%w: %d for finding %q", ErrInvalidSeverity, int(severity), message)
		}
		return
	}
	s.findings = append(s.findings, v1alpha1.Finding{
		Severity: severity,
		Message:  message,
		Region:   region,
		Resource: resource,
	})
}

func (s *Sink) OK(message, region, resource string) {
	s.Add(v1alpha1.SeverityOK, message, region, resource)
}

func (s *Sink) Warn(message, region, resource string) {
	s.Add(v1alpha1.SeverityWarn, message, region, resource)
}

func (s *Sink) Fail(message, region, resource string) {
	s.Add(v1alpha1.SeverityFail, message, region, resource)
}

func (s *Sink) Unknown(message, region, resource string) {
	s.Add(v1alpha1.SeverityUnknown, message, region, resource)
}

// Findings returns a copy of the findings appended so far.
func (s *Sink) Findings() []v1alpha1.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]v1alpha1.Finding{}, s.findings...)
}

func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.findings)
}

// Err returns the first rejected append, if any.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
