package v1alpha1

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity of a finding. Values are ordered: a higher value always ranks
// above a lower one when findings are sorted for reporting.
//
// SeverityUnknown means the check could not be evaluated for the scope or
// resource. It says nothing about compliance.
// +enum
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarn
	SeverityFail
	SeverityUnknown
)

var severityNames = map[Severity]string{
	SeverityOK:      "OK",
	SeverityWarn:    "WARN",
	SeverityFail:    "FAIL",
	SeverityUnknown: "UNKNOWN",
}

// Severities returns all valid severities in ascending order.
func Severities() []Severity {
	return []Severity{SeverityOK, SeverityWarn, SeverityFail, SeverityUnknown}
}

// Valid returns true if s is one of the four defined severities.
func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// StringToSeverity parses a severity name (case-insensitive) or its numeric
// result code (0 through 3).
func StringToSeverity(name string) (Severity, error) {
	value := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range severityNames {
		if n == value {
			return s, nil
		}
	}
	switch value {
	case "PASS":
		return SeverityOK, nil
	case "WARNING":
		return SeverityWarn, nil
	}
	if code, err := strconv.Atoi(value); err == nil {
		if s := Severity(code); s.Valid() {
			return s, nil
		}
	}
	return SeverityUnknown, fmt.Errorf("unrecognized name literal: %s", name)
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity: %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := StringToSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Scanner describes the scanner that generated a security assessment report.
type Scanner struct {
	// Name the name of the scanner.
	Name string `json:"name"`

	// Vendor the name of the vendor providing the scanner.
	Vendor string `json:"vendor"`

	// Version the version of the scanner.
	Version string `json:"version"`
}
