// Package checks defines the Check capability and the built-in presubmit checks.
package checks

import (
	"context"

	"github.com/webmproject/presubmit/internal/classify"
	"github.com/webmproject/presubmit/internal/diff"
	"github.com/webmproject/presubmit/internal/model"
)

// Built-in check identifiers, in the order the default batteries run them.
const (
	NameEOL        = "eol"
	NameTabs       = "tabs"
	NameWhitespace = "whitespace"
	NameLongLines  = "long_lines"
	NameFormat     = "format"
	NameLint       = "lint"
)

// Check evaluates one aspect of a change.
//
// Content violations are returned as diagnostics. A non-nil error means the
// check could not run at all (missing tool, unreadable file), in which case
// any diagnostics returned alongside it are ignored.
type Check interface {
	Name() string
	Evaluate(ctx context.Context, in *Input) ([]model.Diagnostic, error)
}

// Input is the read-only view of a change handed to every check.
type Input struct {
	Change *diff.ChangeSet
	// Sources selects native-source files for checks that only apply to them.
	Sources classify.Rule
}

// lineFunc inspects one added line and returns a message, or "" if clean.
type lineFunc func(path string, line diff.Line) string

// eachAddedLine runs fn over the added lines of every text file the rule
// selects and turns non-empty messages into diagnostics.
func eachAddedLine(check string, sev model.Severity, rule classify.Rule, cs *diff.ChangeSet, fn lineFunc) []model.Diagnostic {
	var out []model.Diagnostic
	for _, f := range rule.Filter(cs.Files) {
		if f.IsBinary {
			continue
		}
		path := f.Path()
		for _, line := range f.Added() {
			if msg := fn(path, line); msg != "" {
				out = append(out, model.Diagnostic{
					Check:    check,
					Severity: sev,
					Message:  msg,
					File:     path,
					Line:     line.Number,
				})
			}
		}
	}
	return out
}
