// Package backend defines the execution contract shared by the native
// process backend and the docker container backend, plus the verdict
// taxonomy derived from a finished execution.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Mount points used inside containers. The pipeline builds container-side
// command paths against these when the docker backend is selected.
const (
	ContainerSrcDir  = "/src"
	ContainerWorkDir = "/work"
)

// DefaultOutputLimit caps captured stdout/stderr per stream.
const DefaultOutputLimit = 1 << 20 // 1 MiB

// Request describes a single compile or run invocation.
type Request struct {
	// Command is the program to execute. For the process backend this is a
	// host path or a name resolvable on PATH; for the docker backend it is
	// the in-container name.
	Command string
	Args    []string

	// Dir is the host working directory. The docker backend mounts it
	// writable at ContainerWorkDir.
	Dir string

	// SourceDir, when set, is mounted read-only at ContainerSrcDir by the
	// docker backend. The process backend ignores it.
	SourceDir string

	// Image selects the container image. Ignored by the process backend.
	Image string

	Input string

	TimeLimit     time.Duration
	MemoryLimitMB int

	// OutputLimit bounds captured bytes per stream. Zero means
	// DefaultOutputLimit.
	OutputLimit int64
}

// Validate checks the constraints shared by both backends.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Command) == "" {
		return fmt.Errorf("empty command")
	}

	if r.TimeLimit <= 0 {
		return fmt.Errorf("time limit must be positive, got %s", r.TimeLimit)
	}

	if r.MemoryLimitMB <= 0 {
		return fmt.Errorf("memory limit must be positive, got %d", r.MemoryLimitMB)
	}

	return nil
}

func (r *Request) outputLimit() int64 {
	if r.OutputLimit > 0 {
		return r.OutputLimit
	}

	return DefaultOutputLimit
}

// Result captures the outcome of one invocation. Resource violations are
// data, not errors: a Run call only returns a non-nil error when the backend
// itself failed (spawn failure, daemon unreachable).
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int

	TimedOut        bool
	MemoryExceeded  bool
	SpaceExceeded   bool
	OutputTruncated bool

	Duration time.Duration
}

// Backend is the pluggable execution strategy. Implementations must
// terminate the child on context cancellation and on limit violations, and
// must not leave processes or containers behind after Run returns.
type Backend interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Verdict is the caller-facing classification of a Result.
type Verdict string

const (
	VerdictAC           Verdict = "AC"
	VerdictCompileError Verdict = "COMPILE_ERROR"
	VerdictTLE          Verdict = "TLE"
	VerdictMLE          Verdict = "MLE"
	VerdictRE           Verdict = "RE"
	VerdictSystemError  Verdict = "SYSTEM_ERROR"
)

// VerdictOf maps a run result to a verdict. Timeout dominates memory, which
// dominates exit-code interpretation.
func VerdictOf(r *Result) Verdict {
	switch {
	case r == nil:
		return VerdictSystemError
	case r.TimedOut:
		return VerdictTLE
	case r.MemoryExceeded:
		return VerdictMLE
	case r.ExitCode != 0:
		return VerdictRE
	default:
		return VerdictAC
	}
}

// DisplayString renders a result for side-by-side presentation. Priority:
// timeout, memory, disk, stderr, stdout.
func DisplayString(r *Result) string {
	switch {
	case r == nil:
		return "(no result)"
	case r.TimedOut:
		return "Time limit exceeded"
	case r.MemoryExceeded:
		return "Memory limit exceeded"
	case r.SpaceExceeded:
		return "Output size limit exceeded"
	case r.ExitCode != 0 && r.Stderr != "":
		return fmt.Sprintf("Runtime error (%s):\n%s", DescribeExit(r.ExitCode), r.Stderr)
	case r.ExitCode != 0:
		return fmt.Sprintf("Runtime error (%s)", DescribeExit(r.ExitCode))
	default:
		return r.Stdout
	}
}
