package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/webmproject/presubmit/internal/model"
)

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one gate run.
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Time      float64         `xml:"time,attr"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one check.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure carries the error diagnostics of a failing check.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError marks a check that could not run.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}

// ConvertToJUnit maps each check result of v onto a test case.
func ConvertToJUnit(v *model.Verdict) *JUnitTestSuites {
	suite := JUnitTestSuite{
		Name:  "presubmit." + v.Gate.String(),
		Tests: len(v.Results),
	}
	for _, r := range v.Results {
		secs := r.Duration.Seconds()
		suite.Time += secs

		tc := JUnitTestCase{
			Name:      r.Check,
			Classname: suite.Name,
			Time:      secs,
		}
		switch {
		case r.Err != nil:
			tc.Error = &JUnitError{Message: r.Err.Error(), Type: "InfrastructureError"}
			suite.Errors++
		case r.Failed():
			tc.Failure = &JUnitFailure{
				Message: plural(countSeverity(r.Diagnostics, model.SeverityError), "error"),
				Type:    "PresubmitFailure",
				Body:    diagnosticLines(r.Diagnostics, model.SeverityError),
			}
			suite.Failures++
		}
		tc.SystemOut = diagnosticLines(r.Diagnostics, model.SeverityWarning)
		suite.TestCases = append(suite.TestCases, tc)
	}

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		Time:       suite.Time,
		TestSuites: []JUnitTestSuite{suite},
	}
}

// JUnit writes v as JUnit XML.
func JUnit(w io.Writer, v *model.Verdict) error {
	data, err := xml.MarshalIndent(ConvertToJUnit(v), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

func countSeverity(diags []model.Diagnostic, s model.Severity) int {
	n := 0
	for _, d := range diags {
		if d.Severity == s {
			n++
		}
	}
	return n
}

func diagnosticLines(diags []model.Diagnostic, s model.Severity) string {
	var b strings.Builder
	for _, d := range diags {
		if d.Severity == s {
			b.WriteString(d.String())
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
