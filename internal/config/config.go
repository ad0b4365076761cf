// Package config provides the presubmit configuration and the loader for
// .presubmit.yaml files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/webmproject/presubmit/internal/battery"
	"github.com/webmproject/presubmit/internal/classify"
	"github.com/webmproject/presubmit/internal/tool"
)

// FileName is looked up from the repository root upwards.
const FileName = ".presubmit.yaml"

// Default values. New() references them and no other code should duplicate them.
const (
	DefaultMaxLineLength  = 80
	DefaultClangFormatBin = "clang-format"
	DefaultYapfBin        = "yapf"
	DefaultCpplintBin     = "cpplint"
)

// SourcesConfig selects the native-source files the lint battery applies to.
type SourcesConfig struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// FormatConfig toggles format-conformance checking per language family.
type FormatConfig struct {
	ClangFormat *bool `yaml:"clang_format,omitempty"`
	Python      *bool `yaml:"python,omitempty"`
}

// ToolsConfig names external tool binaries.
type ToolsConfig struct {
	ClangFormat string        `yaml:"clang_format,omitempty"`
	Yapf        string        `yaml:"yapf,omitempty"`
	Cpplint     string        `yaml:"cpplint,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// LintConfig holds cpplint settings.
type LintConfig struct {
	Filters []string `yaml:"filters,omitempty"`
}

// BatteriesConfig lists the checks of each gate in run order.
type BatteriesConfig struct {
	Upload []string `yaml:"upload,omitempty"`
	Commit []string `yaml:"commit,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Sources       SourcesConfig   `yaml:"sources,omitempty"`
	Skip          []string        `yaml:"skip,omitempty"`
	MaxLineLength int             `yaml:"max_line_length,omitempty"`
	Format        FormatConfig    `yaml:"format,omitempty"`
	Tools         ToolsConfig     `yaml:"tools,omitempty"`
	Lint          LintConfig      `yaml:"lint,omitempty"`
	Batteries     BatteriesConfig `yaml:"batteries,omitempty"`
	WarnOnly      []string        `yaml:"warn_only,omitempty"`
}

// New returns a Config with all compiled-in defaults populated.
func New() *Config {
	spec := battery.DefaultSpec()
	return &Config{
		Sources: SourcesConfig{
			Include: []string{classify.NativeSources},
		},
		Skip:          []string{classify.ThirdParty},
		MaxLineLength: DefaultMaxLineLength,
		Format: FormatConfig{
			ClangFormat: boolPtr(true),
			Python:      boolPtr(true),
		},
		Tools: ToolsConfig{
			ClangFormat: DefaultClangFormatBin,
			Yapf:        DefaultYapfBin,
			Cpplint:     DefaultCpplintBin,
		},
		Batteries: BatteriesConfig{
			Upload: spec.Upload,
			Commit: spec.Commit,
		},
	}
}

// Load finds .presubmit.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
func Load(startDir string) (*Config, error) {
	data, path, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}
	return parse(data, path)
}

// LoadFile reads an explicit config file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return parse(data, path)
}

func parse(data []byte, path string) (*Config, error) {
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg := New()
	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for FileName.
func findConfigFile(dir string) ([]byte, string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, "", os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	if len(src.Sources.Include) > 0 {
		dst.Sources.Include = src.Sources.Include
	}
	if len(src.Sources.Exclude) > 0 {
		dst.Sources.Exclude = src.Sources.Exclude
	}
	// An explicit empty list turns skipping off.
	if src.Skip != nil {
		dst.Skip = src.Skip
	}
	if src.MaxLineLength != 0 {
		dst.MaxLineLength = src.MaxLineLength
	}

	if src.Format.ClangFormat != nil {
		dst.Format.ClangFormat = src.Format.ClangFormat
	}
	if src.Format.Python != nil {
		dst.Format.Python = src.Format.Python
	}

	if src.Tools.ClangFormat != "" {
		dst.Tools.ClangFormat = src.Tools.ClangFormat
	}
	if src.Tools.Yapf != "" {
		dst.Tools.Yapf = src.Tools.Yapf
	}
	if src.Tools.Cpplint != "" {
		dst.Tools.Cpplint = src.Tools.Cpplint
	}
	if src.Tools.Timeout != 0 {
		dst.Tools.Timeout = src.Tools.Timeout
	}

	if len(src.Lint.Filters) > 0 {
		dst.Lint.Filters = src.Lint.Filters
	}

	if len(src.Batteries.Upload) > 0 {
		dst.Batteries.Upload = src.Batteries.Upload
	}
	if len(src.Batteries.Commit) > 0 {
		dst.Batteries.Commit = src.Batteries.Commit
	}

	if len(src.WarnOnly) > 0 {
		dst.WarnOnly = src.WarnOnly
	}
}

// Validate checks values that cannot be caught by unmarshaling.
func (c *Config) Validate() error {
	if c.MaxLineLength < 0 {
		return fmt.Errorf("max_line_length must not be negative, got %d", c.MaxLineLength)
	}
	if c.Tools.Timeout < 0 {
		return fmt.Errorf("tools.timeout must not be negative, got %s", c.Tools.Timeout)
	}
	if _, err := c.SourceRule(); err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	if _, err := c.SkipPatterns(); err != nil {
		return fmt.Errorf("skip: %w", err)
	}
	reg := battery.Builtin(c.BatteryOptions(nil))
	if err := reg.Validate(c.Spec()); err != nil {
		return fmt.Errorf("batteries: %w", err)
	}
	for _, n := range c.WarnOnly {
		if _, ok := reg[n]; !ok {
			return fmt.Errorf("warn_only: unknown check %q", n)
		}
	}
	return nil
}

// SourceRule compiles the native-source inclusion rule.
func (c *Config) SourceRule() (classify.Rule, error) {
	return classify.NewRule(c.Sources.Include, c.Sources.Exclude)
}

// SkipPatterns compiles the patterns of files removed from every check.
func (c *Config) SkipPatterns() ([]classify.Pattern, error) {
	return classify.CompileAll(c.Skip)
}

// Spec returns independent copies of the two battery lists.
func (c *Config) Spec() battery.Spec {
	return battery.Spec{
		Upload: append([]string(nil), c.Batteries.Upload...),
		Commit: append([]string(nil), c.Batteries.Commit...),
	}
}

// BatteryOptions maps the config onto the built-in check knobs.
func (c *Config) BatteryOptions(runner tool.Runner) battery.Options {
	return battery.Options{
		MaxLineLength:  c.MaxLineLength,
		ClangFormat:    deref(c.Format.ClangFormat),
		PythonFormat:   deref(c.Format.Python),
		ClangFormatBin: c.Tools.ClangFormat,
		YapfBin:        c.Tools.Yapf,
		CpplintBin:     c.Tools.Cpplint,
		LintFilters:    c.Lint.Filters,
		Runner:         runner,
	}
}

func boolPtr(b bool) *bool { return &b }

func deref(b *bool) bool { return b != nil && *b }
