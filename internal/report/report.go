// Package report renders verdicts for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/webmproject/presubmit/internal/model"
)

// Format names accepted by Write.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatJUnit    = "junit"
)

// Formats lists every supported output format.
var Formats = []string{FormatText, FormatJSON, FormatMarkdown, FormatJUnit}

// Options tune rendering.
type Options struct {
	Color bool // text format only
}

// Write renders v in the named format.
func Write(w io.Writer, format string, v *model.Verdict, opts Options) error {
	switch format {
	case FormatText, "":
		return Text(w, v, opts.Color)
	case FormatJSON:
		return JSON(w, v)
	case FormatMarkdown:
		return Markdown(w, v)
	case FormatJUnit:
		return JUnit(w, v)
	}
	return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// JSONDiagnostic is the wire form of a diagnostic.
type JSONDiagnostic struct {
	Check    string `json:"check"`
	Severity string `json:"severity"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

// JSONCheck is the wire form of a check result.
type JSONCheck struct {
	Name       string  `json:"name"`
	Passed     bool    `json:"passed"`
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"duration_ms"`
}

// JSONVerdict is the wire form of a verdict, shared with the HTTP API.
type JSONVerdict struct {
	Gate        string           `json:"gate"`
	Passed      bool             `json:"passed"`
	Summary     string           `json:"summary"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
	Checks      []JSONCheck      `json:"checks"`
	Diagnostics []JSONDiagnostic `json:"diagnostics"`
}

// NewJSONDiagnostic converts a diagnostic to its wire form.
func NewJSONDiagnostic(d model.Diagnostic) JSONDiagnostic {
	return JSONDiagnostic{
		Check:    d.Check,
		Severity: d.Severity.String(),
		File:     d.File,
		Line:     d.Line,
		Message:  d.Message,
	}
}

// NewJSONCheck converts a check result to its wire form.
func NewJSONCheck(r model.CheckResult) JSONCheck {
	c := JSONCheck{
		Name:       r.Check,
		Passed:     !r.Failed(),
		DurationMs: float64(r.Duration.Microseconds()) / 1000,
	}
	if r.Err != nil {
		c.Error = r.Err.Error()
	}
	return c
}

// NewJSONVerdict converts a verdict to its wire form.
func NewJSONVerdict(v *model.Verdict) JSONVerdict {
	out := JSONVerdict{
		Gate:        v.Gate.String(),
		Passed:      v.Passed,
		Summary:     v.Summary(),
		Errors:      len(v.Errors()),
		Warnings:    len(v.Warnings()),
		Checks:      []JSONCheck{},
		Diagnostics: []JSONDiagnostic{},
	}
	for _, r := range v.Results {
		out.Checks = append(out.Checks, NewJSONCheck(r))
	}
	for _, d := range v.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, NewJSONDiagnostic(d))
	}
	return out
}

// JSON writes the verdict as indented JSON.
func JSON(w io.Writer, v *model.Verdict) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewJSONVerdict(v))
}

// Markdown writes a table suitable for a review comment.
func Markdown(w io.Writer, v *model.Verdict) error {
	var b strings.Builder
	fmt.Fprintf(&b, "## Presubmit (%s)\n\n", v.Gate)
	fmt.Fprintf(&b, "**%s**\n\n", v.Summary())

	if len(v.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("| Severity | Check | Location | Message |\n")
	b.WriteString("|----------|-------|----------|---------|\n")
	for _, d := range v.Diagnostics {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			d.Severity, d.Check, location(d), strings.ReplaceAll(d.Message, "|", `\|`))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func location(d model.Diagnostic) string {
	switch {
	case d.File == "":
		return ""
	case d.Line > 0:
		return fmt.Sprintf("`%s:%d`", d.File, d.Line)
	default:
		return fmt.Sprintf("`%s`", d.File)
	}
}
