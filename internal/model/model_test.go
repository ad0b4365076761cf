package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		sev  Severity
		want string
	}{
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{Severity(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.sev.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.sev, got, tt.want)
		}
	}
}

func TestParseGate(t *testing.T) {
	for in, want := range map[string]Gate{
		"upload":    GateUpload,
		"on-upload": GateUpload,
		"commit":    GateCommit,
		"ON-COMMIT": GateCommit,
	} {
		got, err := ParseGate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseGate("push")
	require.Error(t, err)
}

func TestNewVerdictEmptyPasses(t *testing.T) {
	v := NewVerdict(GateUpload, []CheckResult{{Check: "tabs"}, {Check: "eol"}})
	assert.True(t, v.Passed)
	assert.Empty(t, v.Diagnostics)
	assert.Equal(t, "PASS: no issues found", v.Summary())
}

func TestNewVerdictWarningsDoNotFail(t *testing.T) {
	v := NewVerdict(GateCommit, []CheckResult{{
		Check: "long_lines",
		Diagnostics: []Diagnostic{
			{Check: "long_lines", Severity: SeverityWarning, Message: "a"},
			{Check: "long_lines", Severity: SeverityWarning, Message: "b"},
		},
	}})
	assert.True(t, v.Passed)
	assert.Len(t, v.Warnings(), 2)
	assert.Equal(t, "PASS: 2 warnings", v.Summary())
}

func TestNewVerdictSingleErrorFails(t *testing.T) {
	results := []CheckResult{
		{Check: "a", Diagnostics: []Diagnostic{{Check: "a", Severity: SeverityWarning, Message: "w1"}}},
		{Check: "b", Diagnostics: []Diagnostic{{Check: "b", Severity: SeverityError, Message: "e1"}}},
		{Check: "c", Diagnostics: []Diagnostic{
			{Check: "c", Severity: SeverityWarning, Message: "w2"},
			{Check: "c", Severity: SeverityWarning, Message: "w3"},
		}},
	}
	v := NewVerdict(GateUpload, results)
	require.False(t, v.Passed)
	assert.True(t, results[1].Failed())
	assert.False(t, results[0].Failed())

	var msgs []string
	for _, d := range v.Diagnostics {
		msgs = append(msgs, d.Message)
	}
	assert.Equal(t, []string{"w1", "e1", "w2", "w3"}, msgs)
	assert.Equal(t, "FAIL: 1 error, 3 warnings", v.Summary())
}

func TestDiagnosticString(t *testing.T) {
	assert.Equal(t, "[tabs] foo.cc:3: Found a tab character",
		Diagnostic{Check: "tabs", File: "foo.cc", Line: 3, Message: "Found a tab character"}.String())
	assert.Equal(t, "[eol] foo.cc: missing newline",
		Diagnostic{Check: "eol", File: "foo.cc", Message: "missing newline"}.String())
	assert.Equal(t, "[lint] failed",
		Diagnostic{Check: "lint", Message: "failed"}.String())
}
