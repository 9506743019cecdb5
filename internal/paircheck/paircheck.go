// Package paircheck runs two candidate programs concurrently against the
// same input and verifies that their outputs are equivalent after
// normalization.
package paircheck

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/refrun/refrun/internal/backend"
	"github.com/refrun/refrun/internal/pipeline"
)

// Result is the verdict of one pair check. Equal is computed from the
// normalized outputs; Diff is populated only on mismatch between two
// successful runs.
type Result struct {
	Output1 string
	Output2 string
	Equal   bool
	Diff    []Segment

	Leg1 *pipeline.Outcome
	Leg2 *pipeline.Outcome
}

// Runner is the slice of the pipeline the orchestrator needs. It exists so
// tests can substitute a stub execution.
type Runner interface {
	CompileAndRun(ctx context.Context, req pipeline.ExecutionRequest) (*pipeline.Outcome, error)
}

// Orchestrator issues two pipeline calls concurrently and feeds both
// results into the comparison step.
type Orchestrator struct {
	Pipeline Runner
	Logger   *zap.Logger
}

// RunPair executes both sources against base's input and limits. The two
// legs are causally independent: each gets a private copy of its source in
// its own temporary directory, and nothing is compared until both have
// finished. The first infrastructure error from either leg aborts the pair;
// resource violations do not, they are part of the comparison.
func (o *Orchestrator) RunPair(ctx context.Context, sourceA, sourceB string, base pipeline.ExecutionRequest) (*Result, error) {
	dirA, pathA, err := stageSource(sourceA)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dirA)

	dirB, pathB, err := stageSource(sourceB)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dirB)

	reqA := base
	reqA.SourcePath = pathA

	reqB := base
	reqB.SourcePath = pathB

	var (
		wg         sync.WaitGroup
		out1, out2 *pipeline.Outcome
		err1, err2 error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		out1, err1 = o.Pipeline.CompileAndRun(ctx, reqA)
	}()

	go func() {
		defer wg.Done()
		out2, err2 = o.Pipeline.CompileAndRun(ctx, reqB)
	}()

	wg.Wait()

	if err1 != nil {
		return nil, fmt.Errorf("first program: %w", err1)
	}

	if err2 != nil {
		return nil, fmt.Errorf("second program: %w", err2)
	}

	res := &Result{
		Leg1:    out1,
		Leg2:    out2,
		Output1: displayOutcome(out1),
		Output2: displayOutcome(out2),
	}

	// Equality is only meaningful between two clean runs; any verdict other
	// than AC on either side is a mismatch by definition.
	if out1.Verdict() == backend.VerdictAC && out2.Verdict() == backend.VerdictAC {
		norm1 := Normalize(out1.Result.Stdout)
		norm2 := Normalize(out2.Result.Stdout)

		res.Equal = norm1 == norm2
		if !res.Equal {
			res.Diff = LineDiff(norm1, norm2)
		}
	}

	if o.Logger != nil {
		o.Logger.Info("pair check finished",
			zap.String("verdict_1", string(out1.Verdict())),
			zap.String("verdict_2", string(out2.Verdict())),
			zap.Bool("equal", res.Equal))
	}

	return res, nil
}

func displayOutcome(o *pipeline.Outcome) string {
	if o.CompileFailed {
		return "Compilation error:\n" + o.Result.Stderr
	}

	return backend.DisplayString(o.Result)
}

// stageSource copies a source file into a fresh private directory so the
// two legs never share a filesystem mount point.
func stageSource(source string) (dir, staged string, err error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve %s: %w", source, err)
	}

	dir, err = os.MkdirTemp("", "refrun-pair-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	staged = filepath.Join(dir, filepath.Base(abs))
	if err := copyFile(abs, staged); err != nil {
		os.RemoveAll(dir)
		return "", "", fmt.Errorf("failed to stage %s: %w", source, err)
	}

	return dir, staged, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.Chmod(dst, info.Mode())
}
