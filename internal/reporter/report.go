package reporter

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"qa-harness/internal/executor"
)

// Report represents the check execution report
type Report struct {
	Timestamp time.Time              `json:"timestamp"`
	Total     int                    `json:"total"`
	Passed    int                    `json:"passed"`
	Failed    int                    `json:"failed"`
	Skipped   int                    `json:"skipped"`
	XFailed   int                    `json:"xfailed"`
	Errored   int                    `json:"errored"`
	Duration  time.Duration          `json:"duration"`
	Results   []executor.CheckResult `json:"results"`
}

// Reporter handles the generation of check reports
type Reporter struct {
	config ReportingConfig
	now    func() time.Time
}

// ReportingConfig holds the configuration for reporting
type ReportingConfig struct {
	Format    []string
	OutputDir string
	// Detailed keeps passing checks in the written report
	Detailed bool
}

// NewReporter creates a new instance of Reporter
func NewReporter(config ReportingConfig) *Reporter {
	return &Reporter{
		config: config,
		now:    time.Now,
	}
}

// Summarize counts results per outcome
func Summarize(results []executor.CheckResult, duration time.Duration) Report {
	report := Report{
		Total:    len(results),
		Duration: duration,
		Results:  results,
	}
	for _, result := range results {
		switch result.Outcome {
		case executor.Pass:
			report.Passed++
		case executor.Fail:
			report.Failed++
		case executor.Skip:
			report.Skipped++
		case executor.XFail:
			report.XFailed++
		case executor.Error:
			report.Errored++
		}
	}
	return report
}

// OK reports whether the run had neither failures nor errors
func (r Report) OK() bool {
	return r.Failed == 0 && r.Errored == 0
}

// GenerateReport writes the report in every configured format and returns
// the written paths
func (r *Reporter) GenerateReport(report Report) ([]string, error) {
	report.Timestamp = r.now()
	if !r.config.Detailed {
		report.Results = withoutPasses(report.Results)
	}

	if err := os.MkdirAll(r.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	var paths []string
	for _, format := range r.config.Format {
		var (
			path string
			err  error
		)
		switch format {
		case "json":
			path, err = r.generateJSONReport(report)
		case "junit":
			path, err = r.generateJUnitReport(report)
		default:
			return paths, fmt.Errorf("unknown report format %q", format)
		}
		if err != nil {
			return paths, fmt.Errorf("failed to generate %s report: %w", format, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (r *Reporter) reportPath(report Report, ext string) string {
	return filepath.Join(r.config.OutputDir, fmt.Sprintf("report_%s.%s", report.Timestamp.Format("20060102_150405"), ext))
}

// generateJSONReport generates a JSON format report
func (r *Reporter) generateJSONReport(report Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	path := r.reportPath(report, "json")
	return path, os.WriteFile(path, data, 0644)
}

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Errors   int          `xml:"errors,attr"`
	Skipped  int          `xml:"skipped,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Errors   int         `xml:"errors,attr"`
	Skipped  int         `xml:"skipped,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitMessage `xml:"failure,omitempty"`
	Error     *junitMessage `xml:"error,omitempty"`
	Skipped   *junitMessage `xml:"skipped,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// generateJUnitReport writes JUnit XML; expected failures are reported as
// skipped cases carrying their repro hint
func (r *Reporter) generateJUnitReport(report Report) (string, error) {
	doc := junitSuites{
		Tests:    report.Total,
		Failures: report.Failed,
		Errors:   report.Errored,
		Skipped:  report.Skipped + report.XFailed,
		Time:     seconds(report.Duration),
	}

	index := make(map[string]int)
	for _, res := range report.Results {
		i, ok := index[res.Suite]
		if !ok {
			i = len(doc.Suites)
			index[res.Suite] = i
			doc.Suites = append(doc.Suites, junitSuite{Name: res.Suite})
		}
		suite := &doc.Suites[i]
		suite.Tests++

		tc := junitCase{Name: res.Name, Classname: res.Suite, Time: seconds(res.Duration)}
		switch res.Outcome {
		case executor.Fail:
			suite.Failures++
			tc.Failure = &junitMessage{Message: res.Message, Body: res.Message}
		case executor.Error:
			suite.Errors++
			tc.Error = &junitMessage{Message: res.Message, Body: res.Message}
		case executor.Skip:
			suite.Skipped++
			tc.Skipped = &junitMessage{Message: res.Message}
		case executor.XFail:
			suite.Skipped++
			tc.Skipped = &junitMessage{Message: "expected failure: " + res.Message, Body: res.Repro}
		}
		suite.Cases = append(suite.Cases, tc)
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	path := r.reportPath(report, "xml")
	return path, os.WriteFile(path, append([]byte(xml.Header), data...), 0644)
}

func withoutPasses(results []executor.CheckResult) []executor.CheckResult {
	out := make([]executor.CheckResult, 0, len(results))
	for _, res := range results {
		if res.Outcome != executor.Pass {
			out = append(out, res)
		}
	}
	return out
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
