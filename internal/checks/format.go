package checks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/webmproject/presubmit/internal/classify"
	"github.com/webmproject/presubmit/internal/diff"
	"github.com/webmproject/presubmit/internal/model"
	"github.com/webmproject/presubmit/internal/tool"
)

// Format compares every changed C/C++ and Python file with the output of its
// canonical formatter. For modified files the formatter is limited to the
// added line ranges, so untouched code is never reformatted.
type Format struct {
	Runner      tool.Runner
	ClangFormat bool // check native sources with clang-format
	Python      bool // check Python scripts with yapf

	ClangFormatBin string
	YapfBin        string
}

func (Format) Name() string { return NameFormat }

func (c Format) Evaluate(ctx context.Context, in *Input) ([]model.Diagnostic, error) {
	var out []model.Diagnostic
	for _, f := range classify.All.Filter(in.Change.Files) {
		if f.IsBinary {
			continue
		}

		var ranges []lineRange
		if !f.IsNew {
			if ranges = addedRanges(f.Added()); len(ranges) == 0 {
				continue
			}
		}

		var bin string
		var args []string
		switch languageOf(f.Path()) {
		case langNative:
			if !c.ClangFormat {
				continue
			}
			bin = c.ClangFormatBin
			args = []string{"--style=file", "--assume-filename=" + f.Path()}
			for _, r := range ranges {
				args = append(args, fmt.Sprintf("--lines=%d:%d", r.start, r.end))
			}
		case langPython:
			if !c.Python {
				continue
			}
			bin = c.YapfBin
			for _, r := range ranges {
				args = append(args, "--lines", fmt.Sprintf("%d-%d", r.start, r.end))
			}
		default:
			continue
		}

		data, err := f.Content()
		if errors.Is(err, diff.ErrNoContent) {
			// Nothing to format against, e.g. a bare patch.
			continue
		}
		if err != nil {
			return nil, err
		}

		res, err := c.Runner.Run(ctx, bin, args, data)
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, fmt.Errorf("%s exited with status %d on %s: %s",
				bin, res.ExitCode, f.Path(), strings.TrimSpace(string(res.Stderr)))
		}

		if bytes.Equal(data, res.Stdout) {
			continue
		}
		out = append(out, model.Diagnostic{
			Check:    NameFormat,
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("File is not formatted; run `%s`", fixCommand(bin, f.Path())),
			File:     f.Path(),
			Line:     firstDifference(data, res.Stdout),
		})
	}
	return out, nil
}

// lineRange is an inclusive 1-based range of new-file lines.
type lineRange struct{ start, end int }

// addedRanges merges consecutive added lines into ranges.
func addedRanges(lines []diff.Line) []lineRange {
	var out []lineRange
	for _, l := range lines {
		if n := len(out); n > 0 && out[n-1].end+1 == l.Number {
			out[n-1].end = l.Number
			continue
		}
		out = append(out, lineRange{l.Number, l.Number})
	}
	return out
}

func fixCommand(bin, path string) string {
	if strings.Contains(bin, "clang-format") {
		return fmt.Sprintf("%s -i --style=file %s", bin, path)
	}
	return fmt.Sprintf("%s -i %s", bin, path)
}

// firstDifference returns the 1-based line at which two texts first differ.
func firstDifference(a, b []byte) int {
	al := strings.SplitAfter(string(a), "\n")
	bl := strings.SplitAfter(string(b), "\n")
	for i := 0; i < len(al) && i < len(bl); i++ {
		if al[i] != bl[i] {
			return i + 1
		}
	}
	return min(len(al), len(bl)) + 1
}
