// Package presubmit runs a gate's check battery against a change and folds
// the results into a single verdict.
package presubmit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/webmproject/presubmit/internal/battery"
	"github.com/webmproject/presubmit/internal/checks"
	"github.com/webmproject/presubmit/internal/classify"
	"github.com/webmproject/presubmit/internal/diff"
	"github.com/webmproject/presubmit/internal/model"
)

// Sink receives each check's result as soon as it completes.
type Sink interface {
	CheckDone(result model.CheckResult)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(model.CheckResult)

func (f SinkFunc) CheckDone(r model.CheckResult) { f(r) }

// CheckError records why a check could not run.
type CheckError struct {
	Check string
	Err   error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %q failed to run: %v", e.Check, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

// Runner composes batteries and runs them.
type Runner struct {
	Spec     battery.Spec
	Registry battery.Registry
	// Sources selects the native-source files handed to checks.
	Sources classify.Rule
	// Skip removes matching files from the change before any check sees it.
	Skip []classify.Pattern
	// WarnOnly names checks whose diagnostics are downgraded to warnings.
	WarnOnly []string
	Sink     Sink
	Logger   *slog.Logger
}

// OnUpload runs the upload battery.
func (r *Runner) OnUpload(ctx context.Context, src diff.Source) (*model.Verdict, error) {
	return r.Run(ctx, model.GateUpload, src)
}

// OnCommit runs the commit battery.
func (r *Runner) OnCommit(ctx context.Context, src diff.Source) (*model.Verdict, error) {
	return r.Run(ctx, model.GateCommit, src)
}

// Run enumerates the change and runs every check of gate's battery in order.
// The only error returned is a failure to obtain the change set or to build
// the battery; check failures become diagnostics.
func (r *Runner) Run(ctx context.Context, gate model.Gate, src diff.Source) (*model.Verdict, error) {
	cs, err := src.ChangeSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerating change: %w", err)
	}

	bat, err := battery.Build(gate, r.Spec, r.Registry)
	if err != nil {
		return nil, err
	}

	log := r.logger().With("gate", gate.String())
	cs, skipped := skip(cs, r.Skip)
	log.Debug("running battery", "checks", len(bat), "files", len(cs.Files), "skipped", skipped)

	in := &checks.Input{Change: cs, Sources: r.Sources}
	warnOnly := make(map[string]bool, len(r.WarnOnly))
	for _, n := range r.WarnOnly {
		warnOnly[n] = true
	}

	results := make([]model.CheckResult, 0, len(bat))
	for _, c := range bat {
		res := r.runCheck(ctx, c, in, log)
		if warnOnly[res.Check] && res.Err == nil {
			downgrade(res.Diagnostics)
		}
		results = append(results, res)
		if r.Sink != nil {
			r.Sink.CheckDone(res)
		}
	}

	v := model.NewVerdict(gate, results)
	log.Debug("battery finished", "passed", v.Passed, "diagnostics", len(v.Diagnostics))
	return v, nil
}

func (r *Runner) runCheck(ctx context.Context, c checks.Check, in *checks.Input, log *slog.Logger) (res model.CheckResult) {
	name := c.Name()
	start := time.Now()
	res.Check = name

	defer func() {
		if p := recover(); p != nil {
			res.Diagnostics = nil
			res.Err = &CheckError{Check: name, Err: fmt.Errorf("panic: %v", p)}
		}
		if res.Err != nil {
			log.Warn("check could not run", "check", name, "err", res.Err)
			res.Diagnostics = []model.Diagnostic{{
				Check:    name,
				Severity: model.SeverityError,
				Message:  res.Err.Error(),
			}}
		}
		res.Duration = time.Since(start)
		log.Debug("check done", "check", name, "diagnostics", len(res.Diagnostics), "duration", res.Duration)
	}()

	diags, err := c.Evaluate(ctx, in)
	if err != nil {
		res.Err = &CheckError{Check: name, Err: err}
		return res
	}
	res.Diagnostics = append([]model.Diagnostic(nil), diags...)
	for i := range res.Diagnostics {
		if res.Diagnostics[i].Check == "" {
			res.Diagnostics[i].Check = name
		}
	}
	return res
}

// skip returns cs without the files matching any pattern, and how many were
// dropped. cs itself is left alone.
func skip(cs *diff.ChangeSet, patterns []classify.Pattern) (*diff.ChangeSet, int) {
	if len(patterns) == 0 {
		return cs, 0
	}
	kept := make([]*diff.File, 0, len(cs.Files))
	for _, f := range cs.Files {
		if !Skipped(f.Path(), patterns) {
			kept = append(kept, f)
		}
	}
	return &diff.ChangeSet{Files: kept, Raw: cs.Raw}, len(cs.Files) - len(kept)
}

// Skipped reports whether path matches one of the skip patterns.
func Skipped(path string, patterns []classify.Pattern) bool {
	for _, p := range patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}

func downgrade(diags []model.Diagnostic) {
	for i := range diags {
		diags[i].Severity = model.SeverityWarning
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
