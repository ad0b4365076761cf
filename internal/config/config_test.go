package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, 80, cfg.MaxLineLength)
	assert.Equal(t, []string{`.*\.(c|cc|[hc]pp|h)$`}, cfg.Sources.Include)
	assert.Empty(t, cfg.Sources.Exclude)
	assert.True(t, *cfg.Format.ClangFormat)
	assert.True(t, *cfg.Format.Python)
	assert.Equal(t, "cpplint", cfg.Tools.Cpplint)
	assert.Equal(t, []string{`(.*/)?third_party/.*`}, cfg.Skip)
	assert.Equal(t, []string{"eol", "tabs", "whitespace", "long_lines", "format", "lint"}, cfg.Batteries.Upload)
	assert.Equal(t, cfg.Batteries.Upload, cfg.Batteries.Commit)
	require.NoError(t, cfg.Validate())
}

func TestLoadNoFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestLoadWalksUpAndMerges(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "mkvparser", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(`
max_line_length: 100
sources:
  exclude: ['third_party/.*']
format:
  python: false
tools:
  cpplint: /opt/cpplint.py
  timeout: 30s
lint:
  filters: ['-build/include', '-readability/casting']
batteries:
  commit: [eol, tabs, whitespace, long_lines, format, lint, tabs]
warn_only: [long_lines]
`), 0o644))

	cfg, err := Load(sub)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 100, cfg.MaxLineLength)
	assert.Equal(t, []string{`.*\.(c|cc|[hc]pp|h)$`}, cfg.Sources.Include, "unset fields keep defaults")
	assert.Equal(t, []string{"third_party/.*"}, cfg.Sources.Exclude)
	assert.True(t, *cfg.Format.ClangFormat)
	assert.False(t, *cfg.Format.Python)
	assert.Equal(t, "/opt/cpplint.py", cfg.Tools.Cpplint)
	assert.Equal(t, "clang-format", cfg.Tools.ClangFormat)
	assert.Equal(t, 30*time.Second, cfg.Tools.Timeout)
	assert.Len(t, cfg.Batteries.Commit, 7)
	assert.Len(t, cfg.Batteries.Upload, 6)
	assert.Equal(t, []string{"long_lines"}, cfg.WarnOnly)

	opts := cfg.BatteryOptions(nil)
	assert.Equal(t, 100, opts.MaxLineLength)
	assert.True(t, opts.ClangFormat)
	assert.False(t, opts.PythonFormat)
	assert.Equal(t, []string{"-build/include", "-readability/casting"}, opts.LintFilters)

	rule, err := cfg.SourceRule()
	require.NoError(t, err)
	assert.True(t, rule.Match("mkvparser/mkvparser.cc"))
	assert.False(t, rule.Match("third_party/googletest/gtest.cc"))
}

func TestSkip(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	skip, err := cfg.SkipPatterns()
	require.NoError(t, err)
	require.Len(t, skip, 1)
	assert.True(t, skip[0].Match("third_party/libwebm/mkvmuxer.cc"))
	assert.True(t, skip[0].Match("webm_parser/third_party/x.h"))
	assert.False(t, skip[0].Match("mkvparser/third_party.cc"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("skip: []\n"), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.Skip, "an empty list turns skipping off")

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("skip: ['gen/.*']\n"), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen/.*"}, cfg.Skip)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("max_line_length: [oops"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(p, []byte("max_line_length: 120\n"), 0o644))

	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.MaxLineLength)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"negative length", func(c *Config) { c.MaxLineLength = -1 }, "max_line_length"},
		{"negative timeout", func(c *Config) { c.Tools.Timeout = -time.Second }, "tools.timeout"},
		{"bad pattern", func(c *Config) { c.Sources.Include = []string{"("} }, "sources"},
		{"bad skip", func(c *Config) { c.Skip = []string{"["} }, "skip"},
		{"unknown check", func(c *Config) { c.Batteries.Commit = []string{"spelling"} }, `unknown check "spelling"`},
		{"unknown warn_only", func(c *Config) { c.WarnOnly = []string{"nope"} }, "warn_only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSpecReturnsCopies(t *testing.T) {
	cfg := New()
	spec := cfg.Spec()
	spec.Upload[0] = "changed"
	assert.Equal(t, "eol", cfg.Batteries.Upload[0])
	assert.Equal(t, "eol", spec.Commit[0])
}
