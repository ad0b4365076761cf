// Package model defines the core data types shared across presubmit.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Severity of a diagnostic. Only errors fail a gate.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Gate is a named checkpoint at which a battery must pass.
type Gate int

const (
	GateUpload Gate = iota
	GateCommit
)

func (g Gate) String() string {
	switch g {
	case GateUpload:
		return "upload"
	case GateCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// ParseGate accepts "upload", "commit" and their "on-" prefixed forms.
func ParseGate(s string) (Gate, error) {
	switch strings.TrimPrefix(strings.ToLower(s), "on-") {
	case "upload":
		return GateUpload, nil
	case "commit":
		return GateCommit, nil
	}
	return 0, fmt.Errorf("unknown gate %q", s)
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Check    string // name of the check that produced it
	Severity Severity
	Message  string
	File     string // empty for change-level diagnostics
	Line     int    // line in the new file, 0 if file-level
}

func (d Diagnostic) String() string {
	loc := d.File
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s", d.Check, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Check, loc, d.Message)
}

// CheckResult is what one check contributed to a verdict.
type CheckResult struct {
	Check       string
	Diagnostics []Diagnostic
	// Err is set when the check could not run at all. Diagnostics then
	// holds the single synthesized error in place of anything it emitted.
	Err      error
	Duration time.Duration
}

// Failed reports whether the check produced any error diagnostic.
func (r CheckResult) Failed() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Verdict aggregates every diagnostic from one battery run.
type Verdict struct {
	Gate        Gate
	Passed      bool
	Diagnostics []Diagnostic
	Results     []CheckResult
}

// NewVerdict concatenates results in order and derives Passed.
func NewVerdict(gate Gate, results []CheckResult) *Verdict {
	v := &Verdict{Gate: gate, Passed: true, Results: results}
	for _, r := range results {
		v.Diagnostics = append(v.Diagnostics, r.Diagnostics...)
	}
	for _, d := range v.Diagnostics {
		if d.Severity == SeverityError {
			v.Passed = false
			break
		}
	}
	return v
}

// Errors returns the error-severity diagnostics in order.
func (v *Verdict) Errors() []Diagnostic {
	return v.bySeverity(SeverityError)
}

// Warnings returns the warning-severity diagnostics in order.
func (v *Verdict) Warnings() []Diagnostic {
	return v.bySeverity(SeverityWarning)
}

func (v *Verdict) bySeverity(s Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range v.Diagnostics {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// ByFile groups diagnostics by file, preserving order within each file.
// Change-level diagnostics are keyed by the empty string.
func (v *Verdict) ByFile() map[string][]Diagnostic {
	m := make(map[string][]Diagnostic)
	for _, d := range v.Diagnostics {
		m[d.File] = append(m[d.File], d)
	}
	return m
}

// Summary returns a one-line summary of the verdict.
func (v *Verdict) Summary() string {
	status := "PASS"
	if !v.Passed {
		status = "FAIL"
	}
	if len(v.Diagnostics) == 0 {
		return fmt.Sprintf("%s: no issues found", status)
	}
	nErr, nWarn := len(v.Errors()), len(v.Warnings())
	var parts []string
	if nErr > 0 {
		parts = append(parts, plural(nErr, "error"))
	}
	if nWarn > 0 {
		parts = append(parts, plural(nWarn, "warning"))
	}
	return fmt.Sprintf("%s: %s", status, strings.Join(parts, ", "))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
