package backend

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// daemonReadyInterval and daemonReadyCeiling bound the retry loop after
	// attempting to start a stopped docker daemon.
	daemonReadyInterval = 2 * time.Second
	daemonReadyCeiling  = 3 * time.Minute

	// killGrace is the slack granted beyond the request's time limit before
	// the container is killed by name from the host side.
	killGrace = 2 * time.Second
)

// DockerBackend runs each request in a uniquely named, auto-removed
// container with no network, a read-only root filesystem, and explicit
// memory/CPU/PID ceilings.
type DockerBackend struct {
	Logger     *zap.Logger
	Classifier Classifier

	// DockerBin overrides the docker binary name, mainly for tests.
	DockerBin string

	daemonOnce sync.Once
	daemonErr  error

	imageMu sync.Mutex
	images  map[string]bool
}

// NewDockerBackend constructs a docker backend with the default classifier.
func NewDockerBackend(logger *zap.Logger) *DockerBackend {
	return &DockerBackend{
		Logger:     logger,
		Classifier: NewPatternClassifier(),
		images:     make(map[string]bool),
	}
}

func (b *DockerBackend) docker() string {
	if b.DockerBin != "" {
		return b.DockerBin
	}

	return "docker"
}

// buildRunArgs assembles the docker run argument vector. The flag order is
// fixed: resource limits, the read-only source mount, the writable work
// mount, the image, then the command handed to bash.
func buildRunArgs(name string, req Request, shellCmd string) []string {
	args := []string{
		"run",
		"--rm",
		"-i",
		"--name", name,
		"--network=none",
		"--read-only",
		fmt.Sprintf("--memory=%dm", req.MemoryLimitMB),
		fmt.Sprintf("--memory-swap=%dm", req.MemoryLimitMB),
		"--cpus=1.0",
		"--pids-limit=64",
	}

	if req.SourceDir != "" {
		args = append(args, "-v", fmt.Sprintf("%s:%s:ro", req.SourceDir, ContainerSrcDir))
	}

	args = append(args,
		"-v", fmt.Sprintf("%s:%s", req.Dir, ContainerWorkDir),
		req.Image,
		"bash", "-c", shellCmd,
	)

	return args
}

// Run executes the request inside a fresh container. The container is killed
// by name from the host if it outlives the time limit plus grace.
func (b *DockerBackend) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Image == "" {
		return nil, fmt.Errorf("no container image selected")
	}

	if err := b.ensureDaemon(ctx); err != nil {
		return nil, err
	}

	if err := b.ensureImage(ctx, req.Image); err != nil {
		return nil, err
	}

	shellCmd, err := ShellCommand(req.Command, req.Args)
	if err != nil {
		return nil, fmt.Errorf("refusing to build container command: %w", err)
	}

	name := "refrun-" + uuid.NewString()
	cmd := exec.Command(b.docker(), buildRunArgs(name, req, shellCmd)...)
	cmd.Stdin = strings.NewReader(req.Input)

	stdout := &limitedBuffer{max: req.outputLimit()}
	stderr := &limitedBuffer{max: req.outputLimit()}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start docker: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(req.TimeLimit + killGrace)
	defer timer.Stop()

	res := &Result{}
	var waitErr error

	select {
	case waitErr = <-done:
	case <-timer.C:
		res.TimedOut = true
		b.killContainer(name)
		waitErr = <-done
	case <-ctx.Done():
		res.TimedOut = true
		b.killContainer(name)
		waitErr = <-done
	}

	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.OutputTruncated = stdout.Truncated() || stderr.Truncated()
	res.ExitCode = cmd.ProcessState.ExitCode()

	classifier := b.Classifier
	if classifier == nil {
		classifier = NewPatternClassifier()
	}

	// docker kill delivers SIGKILL, which also surfaces as 137; the timeout
	// flag takes precedence over the memory reading of that code.
	if !res.TimedOut && classifier.MemoryKilled(res.ExitCode, res.Stderr) {
		res.MemoryExceeded = true
	}

	if classifier.SpaceExhausted(res.ExitCode, res.Stderr) {
		res.SpaceExceeded = true
	}

	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("wait for docker run: %w", waitErr)
		}
	}

	// 125/126/127 are docker's own failure codes, not the program's.
	if res.ExitCode == 125 && !res.TimedOut {
		return nil, fmt.Errorf("docker failed to run container: %s", strings.TrimSpace(res.Stderr))
	}

	if b.Logger != nil {
		b.Logger.Debug("container finished",
			zap.String("name", name),
			zap.String("image", req.Image),
			zap.Int("exit_code", res.ExitCode),
			zap.Bool("timed_out", res.TimedOut),
			zap.Bool("memory_exceeded", res.MemoryExceeded),
			zap.Duration("duration", res.Duration))
	}

	return res, nil
}

func (b *DockerBackend) killContainer(name string) {
	if err := exec.Command(b.docker(), "kill", name).Run(); err != nil && b.Logger != nil {
		b.Logger.Warn("failed to kill container", zap.String("name", name), zap.Error(err))
	}
}

// ensureDaemon verifies the docker daemon is reachable, attempting a
// platform-specific start and a bounded readiness poll when it is not.
func (b *DockerBackend) ensureDaemon(ctx context.Context) error {
	b.daemonOnce.Do(func() {
		if b.pingDaemon(ctx) == nil {
			return
		}

		if err := b.startDaemon(ctx); err != nil {
			b.daemonErr = fmt.Errorf("docker daemon is not running and could not be started: %w", err)
			return
		}

		deadline := time.Now().Add(daemonReadyCeiling)
		for time.Now().Before(deadline) {
			if b.pingDaemon(ctx) == nil {
				return
			}

			select {
			case <-ctx.Done():
				b.daemonErr = ctx.Err()
				return
			case <-time.After(daemonReadyInterval):
			}
		}

		b.daemonErr = fmt.Errorf("docker daemon did not become ready within %s", daemonReadyCeiling)
	})

	return b.daemonErr
}

func (b *DockerBackend) pingDaemon(ctx context.Context) error {
	return exec.CommandContext(ctx, b.docker(), "info").Run()
}

func (b *DockerBackend) startDaemon(ctx context.Context) error {
	switch runtime.GOOS {
	case "linux":
		return exec.CommandContext(ctx, "systemctl", "start", "docker").Run()
	case "darwin":
		return exec.CommandContext(ctx, "open", "-a", "Docker").Run()
	default:
		return fmt.Errorf("start Docker Desktop manually and retry")
	}
}

// ensureImage pulls the image on first use. Results are memoized per backend
// instance.
func (b *DockerBackend) ensureImage(ctx context.Context, image string) error {
	b.imageMu.Lock()
	defer b.imageMu.Unlock()

	if b.images == nil {
		b.images = make(map[string]bool)
	}

	if b.images[image] {
		return nil
	}

	if err := exec.CommandContext(ctx, b.docker(), "image", "inspect", image).Run(); err != nil {
		if b.Logger != nil {
			b.Logger.Info("pulling container image", zap.String("image", image))
		}

		if err := exec.CommandContext(ctx, b.docker(), "pull", image).Run(); err != nil {
			return fmt.Errorf("failed to pull image %s: %w", image, err)
		}
	}

	b.images[image] = true
	return nil
}
