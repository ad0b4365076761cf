package checks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/webmproject/presubmit/internal/classify"
	"github.com/webmproject/presubmit/internal/diff"
	"github.com/webmproject/presubmit/internal/model"
)

// EOL rejects carriage returns and files that do not end in exactly one newline.
type EOL struct{}

func (EOL) Name() string { return NameEOL }

func (c EOL) Evaluate(ctx context.Context, in *Input) ([]model.Diagnostic, error) {
	var out []model.Diagnostic
	for _, f := range classify.All.Filter(in.Change.Files) {
		if f.IsBinary {
			continue
		}
		hasCR, badEOF, err := scanEOL(f)
		if err != nil {
			return nil, err
		}
		path := f.Path()
		if hasCR {
			out = append(out, model.Diagnostic{
				Check:    NameEOL,
				Severity: model.SeverityError,
				Message:  "Found a CR character in this file",
				File:     path,
			})
		}
		if badEOF {
			out = append(out, model.Diagnostic{
				Check:    NameEOL,
				Severity: model.SeverityError,
				Message:  "File should end in one (and only one) newline character",
				File:     path,
			})
		}
	}
	return out, nil
}

// scanEOL inspects the full content when available and the added lines otherwise.
func scanEOL(f *diff.File) (hasCR, badEOF bool, err error) {
	data, err := f.Content()
	switch {
	case err == nil:
		s := string(data)
		hasCR = strings.Contains(s, "\r")
		badEOF = s != "" && (!strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\n\n"))
		return hasCR, badEOF, nil
	case errors.Is(err, diff.ErrNoContent):
		for _, line := range f.Added() {
			if strings.Contains(line.Text, "\r") {
				hasCR = true
			}
			if line.NoEOL {
				badEOF = true
			}
		}
		return hasCR, badEOF, nil
	default:
		return false, false, err
	}
}

var tabsRule = classify.Rule{
	Include: classify.All.Include,
	Exclude: []classify.Pattern{classify.MustCompile(classify.Makefiles)},
}

// Tabs rejects tab characters outside makefiles.
type Tabs struct{}

func (Tabs) Name() string { return NameTabs }

func (Tabs) Evaluate(ctx context.Context, in *Input) ([]model.Diagnostic, error) {
	return eachAddedLine(NameTabs, model.SeverityError, tabsRule, in.Change,
		func(_ string, line diff.Line) string {
			if strings.Contains(line.Text, "\t") {
				return "Found a tab character"
			}
			return ""
		}), nil
}

// Whitespace rejects trailing spaces and tabs.
type Whitespace struct{}

func (Whitespace) Name() string { return NameWhitespace }

func (Whitespace) Evaluate(ctx context.Context, in *Input) ([]model.Diagnostic, error) {
	return eachAddedLine(NameWhitespace, model.SeverityError, classify.All, in.Change,
		func(_ string, line diff.Line) string {
			text := strings.TrimSuffix(line.Text, "\r")
			if text != strings.TrimRight(text, " \t") {
				return "Found line ending with white spaces"
			}
			return ""
		}), nil
}

// Lines starting with these directives may run long.
var cppLongLineExceptions = []string{"#define", "#endif", "#if", "#include", "#pragma"}

var urlMarkers = []string{"file://", "http://", "https://"}

// LongLines rejects lines wider than Max display columns. Directives and
// URLs may run long, as may lines up to half again over Max that hold an
// identifier of at least two thirds of Max, which cannot be wrapped.
type LongLines struct {
	Max int
}

func (LongLines) Name() string { return NameLongLines }

func (c LongLines) Evaluate(ctx context.Context, in *Input) ([]model.Diagnostic, error) {
	if c.Max <= 0 {
		return nil, nil
	}
	hardLimit := c.Max * 3 / 2
	longSymbol := regexp.MustCompile(fmt.Sprintf(`[A-Za-z][A-Za-z_0-9]{%d,}`, c.Max*2/3))

	return eachAddedLine(NameLongLines, model.SeverityError, classify.All, in.Change,
		func(_ string, line diff.Line) string {
			text := strings.TrimSuffix(line.Text, "\r")
			if directiveLine(text) {
				return ""
			}
			width := runewidth.StringWidth(text)
			if width <= c.Max || hasURL(text) {
				return ""
			}
			if width <= hardLimit && longSymbol.MatchString(text) {
				return ""
			}
			return fmt.Sprintf("Line is %d columns, longer than the limit of %d", width, c.Max)
		}), nil
}

func directiveLine(text string) bool {
	trimmed := strings.TrimLeft(text, " \t")
	for _, p := range cppLongLineExceptions {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

func hasURL(text string) bool {
	for _, u := range urlMarkers {
		if strings.Contains(text, u) {
			return true
		}
	}
	return false
}
