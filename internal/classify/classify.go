// Package classify selects the files of a change set that a check applies to.
//
// Patterns are regular expressions matched against the whole slash-separated
// path, case-sensitively. They use the regexp2 engine, so expressions written
// for Python's re module (lookahead, lookbehind, backreferences) keep working.
package classify

import (
	"fmt"

	"github.com/dlclark/regexp2"

	"github.com/webmproject/presubmit/internal/diff"
)

// NativeSources matches C and C++ sources and headers.
const NativeSources = `.*\.(c|cc|[hc]pp|h)$`

// Makefiles matches make input, where tab characters are meaningful.
const Makefiles = `(.*/)?(GNUmakefile|[Mm]akefile|.*\.mk)`

// ThirdParty matches vendored code, which no check applies to by default.
const ThirdParty = `(.*/)?third_party/.*`

// Pattern is a compiled full-path pattern.
type Pattern struct {
	expr string
	re   *regexp2.Regexp
}

// Compile anchors expr at both ends of the path and compiles it.
func Compile(expr string) (Pattern, error) {
	re, err := regexp2.Compile(`\A(?:`+expr+`)\z`, regexp2.None)
	if err != nil {
		return Pattern{}, fmt.Errorf("compiling pattern %q: %w", expr, err)
	}
	return Pattern{expr: expr, re: re}, nil
}

// MustCompile is like Compile but panics on error. For package-level patterns.
func MustCompile(expr string) Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// CompileAll compiles every expression, stopping at the first error.
func CompileAll(exprs []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(exprs))
	for _, e := range exprs {
		p, err := Compile(e)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Match reports whether the whole path matches.
func (p Pattern) Match(path string) bool {
	if p.re == nil {
		return false
	}
	ok, err := p.re.MatchString(path)
	// regexp2 only errors on a match timeout, which we never set.
	return err == nil && ok
}

func (p Pattern) String() string { return p.expr }

// Rule is an inclusion rule: a path is selected when it matches at least one
// Include pattern and no Exclude pattern.
type Rule struct {
	Include []Pattern
	Exclude []Pattern
}

// NewRule compiles include and exclude expressions into a Rule.
func NewRule(include, exclude []string) (Rule, error) {
	inc, err := CompileAll(include)
	if err != nil {
		return Rule{}, err
	}
	exc, err := CompileAll(exclude)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Include: inc, Exclude: exc}, nil
}

// Match applies the rule to a single path.
func (r Rule) Match(path string) bool {
	if !anyMatch(r.Include, path) {
		return false
	}
	return !anyMatch(r.Exclude, path)
}

// Filter returns the non-deleted files accepted by the rule, in input order.
// The input slice is not modified.
func (r Rule) Filter(files []*diff.File) []*diff.File {
	var out []*diff.File
	for _, f := range files {
		if f.IsDeleted {
			continue
		}
		if r.Match(f.Path()) {
			out = append(out, f)
		}
	}
	return out
}

// Paths filters bare paths with the same semantics as Filter.
func (r Rule) Paths(paths []string) []string {
	var out []string
	for _, p := range paths {
		if r.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

func anyMatch(patterns []Pattern, path string) bool {
	for _, p := range patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}

// All matches every path.
var All = Rule{Include: []Pattern{MustCompile(`.*`)}}
