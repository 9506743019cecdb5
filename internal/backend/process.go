package backend

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often resident memory is sampled when no
// kernel-level ceiling is available. Sampling means brief spikes between
// ticks can be missed; the interval is a tunable, not a hidden constant.
const DefaultPollInterval = 150 * time.Millisecond

// ProcessBackend runs the target as a native child process. The wall-clock
// timeout is enforced by a host-side timer. Memory is enforced with a
// shell-level ulimit where a POSIX shell is available, and by polling
// resident memory otherwise.
type ProcessBackend struct {
	Logger     *zap.Logger
	Classifier Classifier

	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration

	// DisableShellLimit forces the polling path even where a shell ceiling
	// would be available. Used by tests and by callers running binaries that
	// map large virtual ranges without touching them.
	DisableShellLimit bool
}

// NewProcessBackend constructs a process backend with the default heuristic
// classifier.
func NewProcessBackend(logger *zap.Logger) *ProcessBackend {
	return &ProcessBackend{
		Logger:     logger,
		Classifier: NewPatternClassifier(),
	}
}

func (b *ProcessBackend) pollInterval() time.Duration {
	if b.PollInterval > 0 {
		return b.PollInterval
	}

	return DefaultPollInterval
}

// limitedBuffer captures at most max bytes and records whether anything was
// dropped.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	room := l.max - int64(l.buf.Len())
	if room <= 0 {
		l.truncated = true
		return len(p), nil
	}

	if int64(len(p)) > room {
		l.truncated = true
		l.buf.Write(p[:room])
		return len(p), nil
	}

	l.buf.Write(p)
	return len(p), nil
}

func (l *limitedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func (l *limitedBuffer) Truncated() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.truncated
}

// Run executes the request and blocks until the child exits or is killed by
// the timeout timer or the memory watchdog, whichever resolves first.
func (b *ProcessBackend) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	shellLimit := !b.DisableShellLimit && canShellLimit()

	var cmd *exec.Cmd
	if shellLimit {
		// exec replaces the shell so the wait status reflects the child
		// directly. "$0"/"$@" keep the argument vector intact without any
		// quoting of user-controlled values.
		script := fmt.Sprintf(`ulimit -v %d 2>/dev/null; exec "$0" "$@"`, int64(req.MemoryLimitMB)*1024)
		args := append([]string{"-c", script, req.Command}, req.Args...)
		cmd = exec.Command("bash", args...)
	} else {
		cmd = exec.Command(req.Command, req.Args...)
	}

	cmd.Dir = req.Dir
	cmd.Stdin = strings.NewReader(req.Input)

	stdout := &limitedBuffer{max: req.outputLimit()}
	stderr := &limitedBuffer{max: req.outputLimit()}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", req.Command, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	memKill := make(chan struct{}, 1)
	pollStop := make(chan struct{})
	defer close(pollStop)

	if !shellLimit {
		go b.watchMemory(cmd.Process.Pid, req.MemoryLimitMB, memKill, pollStop)
	}

	timer := time.NewTimer(req.TimeLimit)
	defer timer.Stop()

	res := &Result{}
	var waitErr error

	select {
	case waitErr = <-done:
	case <-timer.C:
		res.TimedOut = true
		_ = cmd.Process.Kill()
		waitErr = <-done
	case <-memKill:
		res.MemoryExceeded = true
		_ = cmd.Process.Kill()
		waitErr = <-done
	case <-ctx.Done():
		res.TimedOut = true
		_ = cmd.Process.Kill()
		waitErr = <-done
	}

	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.OutputTruncated = stdout.Truncated() || stderr.Truncated()

	res.ExitCode = cmd.ProcessState.ExitCode()
	if sig, ok := exitSignal(cmd.ProcessState); ok {
		res.ExitCode = 128 + int(sig)

		// A SIGKILL we did not send means something outside the program
		// terminated it; absent a timeout that is attributed to memory.
		if !res.TimedOut && !res.MemoryExceeded && int(sig) == 9 {
			res.MemoryExceeded = true
		}
	}

	classifier := b.Classifier
	if classifier == nil {
		classifier = NewPatternClassifier()
	}

	if !res.TimedOut && !res.MemoryExceeded && res.ExitCode != 0 &&
		classifier.MemoryKilled(res.ExitCode, res.Stderr) {
		res.MemoryExceeded = true
	}

	if classifier.SpaceExhausted(res.ExitCode, res.Stderr) {
		res.SpaceExceeded = true
	}

	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("wait for %s: %w", req.Command, waitErr)
		}
	}

	if b.Logger != nil {
		b.Logger.Debug("process finished",
			zap.String("command", req.Command),
			zap.Int("exit_code", res.ExitCode),
			zap.Bool("timed_out", res.TimedOut),
			zap.Bool("memory_exceeded", res.MemoryExceeded),
			zap.Duration("duration", res.Duration))
	}

	return res, nil
}

// watchMemory samples resident memory until the process exits or crosses the
// limit. Sampling errors are ignored: a vanished pid means the child already
// exited.
func (b *ProcessBackend) watchMemory(pid, limitMB int, kill chan<- struct{}, stop <-chan struct{}) {
	ticker := time.NewTicker(b.pollInterval())
	defer ticker.Stop()

	limitKB := int64(limitMB) * 1024

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rssKB, err := residentMemoryKB(pid)
			if err != nil {
				continue
			}

			if rssKB > limitKB {
				select {
				case kill <- struct{}{}:
				default:
				}
				return
			}
		}
	}
}
