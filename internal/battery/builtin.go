package battery

import (
	"github.com/webmproject/presubmit/internal/checks"
	"github.com/webmproject/presubmit/internal/tool"
)

// Options are the knobs the built-in checks read.
type Options struct {
	MaxLineLength int
	ClangFormat   bool
	PythonFormat  bool

	ClangFormatBin string
	YapfBin        string
	CpplintBin     string
	LintFilters    []string

	Runner tool.Runner
}

// Builtin returns a registry of the six built-in checks configured from o.
func Builtin(o Options) Registry {
	return Registry{
		checks.NameEOL:        func() checks.Check { return checks.EOL{} },
		checks.NameTabs:       func() checks.Check { return checks.Tabs{} },
		checks.NameWhitespace: func() checks.Check { return checks.Whitespace{} },
		checks.NameLongLines: func() checks.Check {
			return checks.LongLines{Max: o.MaxLineLength}
		},
		checks.NameFormat: func() checks.Check {
			return checks.Format{
				Runner:         o.Runner,
				ClangFormat:    o.ClangFormat,
				Python:         o.PythonFormat,
				ClangFormatBin: o.ClangFormatBin,
				YapfBin:        o.YapfBin,
			}
		},
		checks.NameLint: func() checks.Check {
			return checks.Lint{
				Runner:     o.Runner,
				Bin:        o.CpplintBin,
				Filters:    append([]string(nil), o.LintFilters...),
				LineLength: o.MaxLineLength,
			}
		},
	}
}
