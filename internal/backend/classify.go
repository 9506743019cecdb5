package backend

import "strings"

// Classifier decides, from the observable evidence of a finished child,
// which resource violation (if any) to report. String matching on stderr is
// a best-effort heuristic; swapping in a platform-specific implementation
// (cgroup stats, job objects) must not touch the pipeline contract.
type Classifier interface {
	// MemoryKilled reports whether the child appears to have been killed for
	// exceeding its memory budget.
	MemoryKilled(exitCode int, stderr string) bool

	// SpaceExhausted reports whether the child appears to have hit a disk or
	// output-space limit.
	SpaceExhausted(exitCode int, stderr string) bool
}

// patternClassifier is the default heuristic classifier: docker's OOM kill
// surfaces as exit 137 (128+SIGKILL), and allocator or kernel diagnostics
// mention "out of memory"; disk exhaustion surfaces as ENOSPC text.
type patternClassifier struct{}

// NewPatternClassifier returns the stderr/exit-code matching classifier.
func NewPatternClassifier() Classifier {
	return patternClassifier{}
}

var oomPatterns = []string{
	"out of memory",
	"oom-kill",
	"cannot allocate memory",
	"std::bad_alloc",
	"memoryerror",
}

var spacePatterns = []string{
	"no space left on device",
	"disk quota exceeded",
	"file too large",
}

func (patternClassifier) MemoryKilled(exitCode int, stderr string) bool {
	if exitCode == 137 {
		return true
	}

	s := strings.ToLower(stderr)
	for _, p := range oomPatterns {
		if strings.Contains(s, p) {
			return true
		}
	}

	return false
}

func (patternClassifier) SpaceExhausted(_ int, stderr string) bool {
	s := strings.ToLower(stderr)
	for _, p := range spacePatterns {
		if strings.Contains(s, p) {
			return true
		}
	}

	return false
}
