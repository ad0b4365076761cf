package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/webmproject/presubmit/internal/battery"
	"github.com/webmproject/presubmit/internal/config"
	"github.com/webmproject/presubmit/internal/diff"
	"github.com/webmproject/presubmit/internal/model"
	"github.com/webmproject/presubmit/internal/presubmit"
	"github.com/webmproject/presubmit/internal/report"
	"github.com/webmproject/presubmit/internal/tool"
)

// ErrFailed is returned when a gate's verdict is FAIL. The report has
// already been written, so callers only need the exit status.
var ErrFailed = errors.New("presubmit failed")

var onUploadCmd = &cobra.Command{
	Use:   "on-upload",
	Short: "Run the upload gate",
	Long: `Run the upload battery against the working tree, a revision range or a patch.

Examples:
  presubmit on-upload                       # working tree vs HEAD
  presubmit on-upload --base origin/main    # everything not yet on main
  git diff | presubmit on-upload --patch -  # any unified diff`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGate(cmd, model.GateUpload)
	},
}

var onCommitCmd = &cobra.Command{
	Use:   "on-commit",
	Short: "Run the commit gate",
	Long: `Run the commit battery against the staged changes, as a pre-commit hook
sees them. With --patch, the patch is checked instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGate(cmd, model.GateCommit)
	},
}

func init() {
	for _, c := range []*cobra.Command{onUploadCmd, onCommitCmd} {
		c.Flags().String("patch", "", "read a unified diff from FILE, or stdin with -")
		c.Flags().String("base", "", "revision to compare against (default HEAD)")
		c.Flags().StringP("format", "f", report.FormatText, "output format: text, json, markdown, junit")
		c.Flags().String("config", "", "path to a .presubmit.yaml file")
		c.Flags().Int("max-line-length", 0, "override the configured line length limit")
		c.Flags().Bool("no-clang-format", false, "skip clang-format conformance")
		c.Flags().Bool("no-python-format", false, "skip Python format conformance")
	}
}

func runGate(cmd *cobra.Command, gate model.Gate) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	repoDir, repoErr := diff.RepoRoot(ctx, ".")
	if repoErr != nil {
		repoDir = ""
	}

	cfgPath, _ := flags.GetString("config")
	cfg, err := loadConfig(ctx, cfgPath, repoDir)
	if err != nil {
		return err
	}
	if flags.Changed("max-line-length") {
		cfg.MaxLineLength, _ = flags.GetInt("max-line-length")
	}
	if off, _ := flags.GetBool("no-clang-format"); off {
		cfg.Format.ClangFormat = new(bool)
	}
	if off, _ := flags.GetBool("no-python-format"); off {
		cfg.Format.Python = new(bool)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	src, closeSrc, err := gateSource(cmd, gate, repoDir, repoErr)
	if err != nil {
		return err
	}
	defer closeSrc()

	rule, err := cfg.SourceRule()
	if err != nil {
		return err
	}
	skip, err := cfg.SkipPatterns()
	if err != nil {
		return err
	}
	runner := &presubmit.Runner{
		Spec:     cfg.Spec(),
		Registry: battery.Builtin(cfg.BatteryOptions(&tool.ExecRunner{Dir: repoDir, Timeout: cfg.Tools.Timeout})),
		Sources:  rule,
		Skip:     skip,
		WarnOnly: cfg.WarnOnly,
	}

	v, err := runner.Run(ctx, gate, src)
	if err != nil {
		return err
	}

	format, _ := flags.GetString("format")
	out := cmd.OutOrStdout()
	if err := report.Write(out, format, v, report.Options{Color: isTerminal(out)}); err != nil {
		return err
	}
	if !v.Passed {
		return ErrFailed
	}
	return nil
}

// gateSource picks the change source: an explicit patch, otherwise git.
// The returned func releases any opened file.
func gateSource(cmd *cobra.Command, gate model.Gate, repoDir string, repoErr error) (diff.Source, func(), error) {
	patch, _ := cmd.Flags().GetString("patch")
	base, _ := cmd.Flags().GetString("base")
	noop := func() {}

	switch patch {
	case "":
		if repoErr != nil {
			return nil, noop, fmt.Errorf("not in a git repository (or git not installed): %w", repoErr)
		}
		return &diff.GitSource{RepoDir: repoDir, Base: base, Staged: gate == model.GateCommit}, noop, nil
	case "-":
		return &diff.PatchSource{Reader: cmd.InOrStdin(), RepoDir: repoDir}, noop, nil
	}

	f, err := os.Open(patch)
	if err != nil {
		return nil, noop, fmt.Errorf("opening patch: %w", err)
	}
	return &diff.PatchSource{Reader: f, RepoDir: repoDir}, func() { f.Close() }, nil
}

// loadConfig reads an explicit file, or looks for .presubmit.yaml from dir
// upwards. An empty dir means the current directory.
func loadConfig(ctx context.Context, path, dir string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if dir == "" {
		dir = "."
		if root, err := diff.RepoRoot(ctx, dir); err == nil {
			dir = root
		}
	}
	return config.Load(dir)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
