package types

import (
	"fmt"
	"strings"
)

// Endpoint represents a described API operation with its parameters and test data
type Endpoint struct {
	Method     string
	Path       string
	Parameters []Parameter
	TestData   EndpointTestData
}

// EndpointTestData represents the concrete request data for one endpoint
type EndpointTestData struct {
	PathParams  map[string]interface{} `json:"path_params,omitempty"`
	QueryParams map[string]interface{} `json:"query_params,omitempty"`
	Body        interface{}            `json:"body,omitempty"`
	Headers     map[string]string      `json:"headers,omitempty"`
}

// TestDataTemplate is the on-disk request template keyed by "METHOD /path"
type TestDataTemplate struct {
	Source    string                      `json:"source,omitempty"`
	BaseURL   string                      `json:"base_url,omitempty"`
	Endpoints map[string]EndpointTestData `json:"endpoints"`
}

// Parameter represents a described API parameter
type Parameter struct {
	Name       string
	In         string
	Required   bool
	Candidates []string
}

// SkipError marks a check whose optional capability is not offered by the
// service under test.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skipf builds a SkipError with a formatted reason.
func Skipf(format string, args ...interface{}) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// KnownDefectError marks a documented, reproducible failure of the service
// under test. It is reported as an expected failure.
type KnownDefectError struct {
	Reason string
	Repro  string
}

func (e *KnownDefectError) Error() string {
	if e.Repro == "" {
		return "known defect: " + e.Reason
	}
	return fmt.Sprintf("known defect: %s (repro: %s)", e.Reason, e.Repro)
}

// KnownDefect builds a KnownDefectError.
func KnownDefect(reason, repro string) error {
	return &KnownDefectError{Reason: reason, Repro: repro}
}

// DiscoveryError is a fatal discovery failure: no further check can be
// meaningfully attempted.
type DiscoveryError struct {
	Op       string
	Attempts []string
	Err      error
}

func (e *DiscoveryError) Error() string {
	msg := e.Op
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Attempts) > 0 {
		msg += "\n - " + strings.Join(e.Attempts, "\n - ")
	}
	return msg
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
