// Package battery assembles the ordered list of checks run at each gate.
package battery

import (
	"fmt"
	"sort"

	"github.com/webmproject/presubmit/internal/checks"
	"github.com/webmproject/presubmit/internal/model"
)

// Common is run at every gate, in this order.
var Common = []string{
	checks.NameEOL,
	checks.NameTabs,
	checks.NameWhitespace,
	checks.NameLongLines,
	checks.NameFormat,
}

// Lint restricts cpplint to native sources.
var Lint = []string{checks.NameLint}

// Spec holds one ordered list of check names per gate. The two lists are
// independent values so that gates can diverge by editing data.
type Spec struct {
	Upload []string
	Commit []string
}

// DefaultSpec returns common + lint for both gates, each list freshly built.
func DefaultSpec() Spec {
	return Spec{
		Upload: concat(Common, Lint),
		Commit: concat(Common, Lint),
	}
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Names returns the list for gate.
func (s Spec) Names(gate model.Gate) ([]string, error) {
	switch gate {
	case model.GateUpload:
		return s.Upload, nil
	case model.GateCommit:
		return s.Commit, nil
	}
	return nil, fmt.Errorf("no battery for gate %s", gate)
}

// Factory builds a check.
type Factory func() checks.Check

// Registry maps check names to factories.
type Registry map[string]Factory

// Known returns the registered names, sorted.
func (r Registry) Known() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate reports the first name in spec with no factory.
func (r Registry) Validate(spec Spec) error {
	for _, gate := range []model.Gate{model.GateUpload, model.GateCommit} {
		names, _ := spec.Names(gate)
		for _, n := range names {
			if _, ok := r[n]; !ok {
				return fmt.Errorf("%s battery: unknown check %q (known: %v)", gate, n, r.Known())
			}
		}
	}
	return nil
}

// Build constructs a fresh battery for gate. Every call creates new check
// values, so batteries built for different gates share nothing.
func Build(gate model.Gate, spec Spec, reg Registry) ([]checks.Check, error) {
	names, err := spec.Names(gate)
	if err != nil {
		return nil, err
	}
	out := make([]checks.Check, 0, len(names))
	for _, n := range names {
		f, ok := reg[n]
		if !ok {
			return nil, fmt.Errorf("%s battery: unknown check %q", gate, n)
		}
		out = append(out, f())
	}
	return out, nil
}
