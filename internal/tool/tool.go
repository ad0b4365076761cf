// Package tool runs the external formatters and linters checks depend on.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrNotFound means the tool binary is not installed or not on PATH.
var ErrNotFound = errors.New("tool not found")

// Result is the captured outcome of a tool invocation that started.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner invokes a tool. A non-zero exit status is not an error; err is
// reserved for failing to start or being interrupted.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin []byte) (*Result, error)
}

// ExecRunner runs tools with os/exec.
type ExecRunner struct {
	Dir string
	// Timeout bounds each invocation. Zero means no limit.
	Timeout time.Duration
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, stdin []byte) (*Result, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = r.Dir
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return nil, fmt.Errorf("running %s: %w", name, err)
	}
	return res, nil
}
