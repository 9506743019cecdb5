// Package pipeline sequences compile-then-run (or run only, for interpreted
// languages) over a pluggable backend, unifying the process and container
// strategies behind one request/result contract.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/refrun/refrun/internal/backend"
	"github.com/refrun/refrun/internal/registry"
)

// ExecutionRequest is one caller-supplied unit of work. Constructed per
// call and never mutated by the engine.
type ExecutionRequest struct {
	SourcePath string
	Language   string

	// Compiler pins a specific toolchain. Nil means the registry's
	// recommendation.
	Compiler *registry.CompilerDescriptor

	Input         string
	TimeLimit     time.Duration
	MemoryLimitMB int

	// Optimization is the level digit/letter, e.g. "2" for -O2.
	Optimization string

	// Standard is the language standard, e.g. "c++17". Empty leaves the
	// toolchain default.
	Standard string

	// ExtraFlags are pre-validated additional compiler flags.
	ExtraFlags []string

	OutputLimit int64
}

// Validate checks request constraints before any work is attempted.
func (r *ExecutionRequest) Validate() error {
	if r.SourcePath == "" {
		return fmt.Errorf("no source file given")
	}

	if r.TimeLimit <= 0 {
		return fmt.Errorf("time limit must be positive")
	}

	if r.MemoryLimitMB <= 0 {
		return fmt.Errorf("memory limit must be positive")
	}

	lang, err := Lookup(r.Language)
	if err != nil {
		return err
	}

	return lang.AcceptsFile(r.SourcePath)
}

// Outcome couples the raw run result with how the pipeline got there.
type Outcome struct {
	Result *backend.Result

	// CompileFailed marks a short-circuited request: Result carries the
	// compiler diagnostics in Stderr and no run was attempted.
	CompileFailed bool

	// Compiler is the toolchain used, nil for interpreted languages and
	// container runs.
	Compiler *registry.CompilerDescriptor

	// Standard is the standard actually passed to the toolchain after
	// downgrade resolution.
	Standard string
}

// Verdict classifies the outcome for display.
func (o *Outcome) Verdict() backend.Verdict {
	if o.CompileFailed {
		return backend.VerdictCompileError
	}

	return backend.VerdictOf(o.Result)
}

// Pipeline executes requests against an injected registry and backend.
type Pipeline struct {
	Registry *registry.Registry
	Backend  backend.Backend

	// Containerized selects the container path layout: source mounted
	// read-only, artifacts in the writable work mount.
	Containerized bool

	Logger *zap.Logger
}

// CompileAndRun performs the full sequence for one request. Resource
// violations and compile failures come back inside the Outcome; only
// infrastructure failures return an error. The scratch directory is removed
// unconditionally.
func (p *Pipeline) CompileAndRun(ctx context.Context, req ExecutionRequest) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lang, err := Lookup(req.Language)
	if err != nil {
		return nil, err
	}

	absSource, err := filepath.Abs(req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source path: %w", err)
	}

	if _, err := os.Stat(absSource); err != nil {
		return nil, fmt.Errorf("source file not readable: %w", err)
	}

	workDir, err := os.MkdirTemp("", "refrun-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	if !lang.Compiled {
		return p.runInterpreted(ctx, req, lang, absSource, workDir)
	}

	return p.compileThenRun(ctx, req, lang, absSource, workDir)
}

func (p *Pipeline) compileThenRun(ctx context.Context, req ExecutionRequest, lang Language, absSource, workDir string) (*Outcome, error) {
	var (
		desc     *registry.CompilerDescriptor
		standard = req.Standard

		compilerCmd string
		sourceArg   string
		binary      string // path passed to the compiler and the run step
	)

	if p.Containerized {
		compilerCmd = lang.CompilerNames[0]
		sourceArg = ContainerPath(absSource)
		binary = backend.ContainerWorkDir + "/prog"
	} else {
		var err error
		desc, err = p.selectCompiler(ctx, lang)
		if err != nil {
			return nil, err
		}

		resolved, downgraded := ResolveStandard(desc, req.Standard)
		if downgraded && p.Logger != nil {
			p.Logger.Info("language standard downgraded for toolchain",
				zap.String("requested", req.Standard),
				zap.String("using", resolved),
				zap.String("compiler", desc.Path))
		}

		standard = resolved
		compilerCmd = desc.Path
		sourceArg = absSource
		binary = filepath.Join(workDir, binaryName())
	}

	family := registry.FamilyGCC
	if desc != nil {
		family = desc.Family
	}

	compileReq := backend.Request{
		Command:       compilerCmd,
		Args:          BuildCompileArgs(family, req.Optimization, standard, binary, sourceArg, req.ExtraFlags),
		Dir:           workDir,
		SourceDir:     filepath.Dir(absSource),
		Image:         lang.Image,
		TimeLimit:     req.TimeLimit,
		MemoryLimitMB: req.MemoryLimitMB,
		OutputLimit:   req.OutputLimit,
	}

	compileRes, err := p.Backend.Run(ctx, compileReq)
	if err != nil {
		return nil, fmt.Errorf("compile step failed to start: %w", err)
	}

	if compileRes.ExitCode != 0 {
		return &Outcome{
			Result: &backend.Result{
				Stdout:   "",
				Stderr:   strings.TrimRight(compileRes.Stderr+compileRes.Stdout, "\n"),
				ExitCode: compileRes.ExitCode,
			},
			CompileFailed: true,
			Compiler:      desc,
			Standard:      standard,
		}, nil
	}

	if !p.Containerized && runtime.GOOS != "windows" {
		if err := os.Chmod(binary, 0o755); err != nil {
			return nil, fmt.Errorf("failed to mark binary executable: %w", err)
		}
	}

	runRes, err := p.Backend.Run(ctx, backend.Request{
		Command:       binary,
		Dir:           workDir,
		SourceDir:     filepath.Dir(absSource),
		Image:         lang.Image,
		Input:         req.Input,
		TimeLimit:     req.TimeLimit,
		MemoryLimitMB: req.MemoryLimitMB,
		OutputLimit:   req.OutputLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("run step failed to start: %w", err)
	}

	return &Outcome{Result: runRes, Compiler: desc, Standard: standard}, nil
}

func (p *Pipeline) runInterpreted(ctx context.Context, req ExecutionRequest, lang Language, absSource, workDir string) (*Outcome, error) {
	var interpreter, sourceArg string

	if p.Containerized {
		interpreter = lang.Interpreters[0]
		sourceArg = ContainerPath(absSource)
	} else {
		found, err := findInterpreter(lang)
		if err != nil {
			return nil, err
		}

		interpreter = found
		sourceArg = absSource
	}

	res, err := p.Backend.Run(ctx, backend.Request{
		Command:       interpreter,
		Args:          []string{sourceArg},
		Dir:           workDir,
		SourceDir:     filepath.Dir(absSource),
		Image:         lang.Image,
		Input:         req.Input,
		TimeLimit:     req.TimeLimit,
		MemoryLimitMB: req.MemoryLimitMB,
		OutputLimit:   req.OutputLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("interpreter failed to start: %w", err)
	}

	return &Outcome{Result: res}, nil
}

// selectCompiler returns the pinned descriptor or the registry's
// recommendation for the language.
func (p *Pipeline) selectCompiler(ctx context.Context, lang Language) (*registry.CompilerDescriptor, error) {
	det, err := p.Registry.Detect(ctx, false)
	if err != nil {
		return nil, err
	}

	suitable := p.Registry.FilterSuitable(lang.Name)
	if len(suitable) == 0 {
		return nil, fmt.Errorf("no %s compiler found; %s", lang.Name, strings.Join(det.Suggestions, "; "))
	}

	return &suitable[0], nil
}

// BuildCompileArgs assembles the toolchain invocation in the fixed order:
// optimization flag, language standard, output path, source path, then any
// extra flags.
func BuildCompileArgs(family registry.Family, optimization, standard, output, source string, extra []string) []string {
	var args []string

	if family == registry.FamilyMSVC {
		args = append(args, msvcOptFlag(optimization))

		if standard != "" {
			args = append(args, "/std:"+standard)
		}

		args = append(args, "/Fe:"+output, source)
	} else {
		if optimization == "" {
			optimization = "2"
		}

		args = append(args, "-O"+optimization)

		if standard != "" {
			args = append(args, "-std="+standard)
		}

		args = append(args, "-o", output, source)
	}

	return append(args, extra...)
}

func msvcOptFlag(level string) string {
	switch level {
	case "0":
		return "/Od"
	case "1":
		return "/O1"
	case "s":
		return "/O1"
	default:
		return "/O2"
	}
}

// ContainerPath maps a host source path to its in-container location under
// the read-only source mount.
func ContainerPath(hostSource string) string {
	return backend.ContainerSrcDir + "/" + filepath.Base(hostSource)
}

func binaryName() string {
	if runtime.GOOS == "windows" {
		return "prog.exe"
	}

	return "prog"
}

func findInterpreter(lang Language) (string, error) {
	for _, name := range lang.Interpreters {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no %s interpreter found on PATH (tried %v)", lang.Name, lang.Interpreters)
}
