package checks

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/webmproject/presubmit/internal/diff"
	"github.com/webmproject/presubmit/internal/model"
	"github.com/webmproject/presubmit/internal/tool"
)

// cpplint reports `file:line:  message  [category] [confidence]`.
var cpplintLine = regexp.MustCompile(`^(.*?):(\d+):\s+(.*?)\s+\[([^\]]+)\]\s+\[(\d)\]\s*$`)

// Lint runs cpplint over the native sources of a change. Each file's
// post-change content is written under a scratch tree at its repository path,
// so cpplint sees the real extension (header rules) and guard names derived
// from the path, whether the content came from the index, the worktree or a patch.
type Lint struct {
	Runner     tool.Runner
	Bin        string
	Filters    []string
	LineLength int
}

func (Lint) Name() string { return NameLint }

func (c Lint) Evaluate(ctx context.Context, in *Input) ([]model.Diagnostic, error) {
	files := in.Sources.Filter(in.Change.Files)
	if len(files) == 0 {
		return nil, nil
	}

	scratch, err := os.MkdirTemp("", "presubmit-lint-")
	if err != nil {
		return nil, fmt.Errorf("creating lint scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	args := []string{"--quiet", "--repository=" + scratch}
	if len(c.Filters) > 0 {
		args = append(args, "--filter="+strings.Join(c.Filters, ","))
	}
	if c.LineLength > 0 {
		args = append(args, "--linelength="+strconv.Itoa(c.LineLength))
	}

	var out []model.Diagnostic
	for _, f := range files {
		if f.IsBinary {
			continue
		}
		data, err := f.Content()
		if errors.Is(err, diff.ErrNoContent) {
			continue
		}
		if err != nil {
			return nil, err
		}

		path, err := stage(scratch, f.Path(), data)
		if err != nil {
			return nil, err
		}
		res, err := c.Runner.Run(ctx, c.Bin, append(args[:len(args):len(args)], path), nil)
		if err != nil {
			return nil, err
		}

		diags := parseCpplint(f.Path(), res.Stderr)
		if res.ExitCode != 0 && len(diags) == 0 {
			return nil, fmt.Errorf("%s exited with status %d on %s: %s",
				c.Bin, res.ExitCode, f.Path(), strings.TrimSpace(string(res.Stderr)))
		}
		out = append(out, diags...)
	}
	return out, nil
}

// stage writes data to rel under root and returns the file's path.
func stage(root, rel string, data []byte) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("refusing to lint %q: path leaves the repository", rel)
	}
	path := filepath.Join(root, local)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("staging %s: %w", rel, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("staging %s: %w", rel, err)
	}
	return path, nil
}

// parseCpplint turns cpplint output into diagnostics attributed to path,
// whatever file name cpplint printed.
// Lines that do not look like findings are ignored.
func parseCpplint(path string, output []byte) []model.Diagnostic {
	var out []model.Diagnostic
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		m := cpplintLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		line, _ := strconv.Atoi(m[2])
		out = append(out, model.Diagnostic{
			Check:    NameLint,
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("%s [%s] [%s]", m[3], m[4], m[5]),
			File:     path,
			Line:     line,
		})
	}
	return out
}
