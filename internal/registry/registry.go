package registry

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Registry coordinates detection: in-process cache, persisted cache, scan.
// It is an explicitly constructed service, injected into the pipeline and
// commands rather than shared as a process-wide singleton.
type Registry struct {
	mu     sync.Mutex
	mem    *DetectionResult
	store  *Store // nil when persistence is disabled
	logger *zap.Logger

	// probe and collect are seams for tests; production uses Probe and the
	// registry's own candidate collection.
	probe   func(ctx context.Context, path string, bonus int) (CompilerDescriptor, error)
	collect func(ctx context.Context) ([]candidate, error)
}

// New constructs a registry. store may be nil to disable the persisted
// cache (detection then runs once per process).
func New(store *Store, logger *zap.Logger) *Registry {
	r := &Registry{
		store:  store,
		logger: logger,
		probe:  Probe,
	}
	r.collect = r.collectCandidates

	return r
}

// Detect returns the current detection result, consulting the in-process
// cache, then the persisted cache, then performing a scan. force bypasses
// both caches. Callers always receive a private copy.
func (r *Registry) Detect(ctx context.Context, force bool) (*DetectionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !force {
		if r.mem != nil {
			return r.mem.Clone(), nil
		}

		if r.store != nil {
			cached, err := r.store.Load()
			if err == nil && cached != nil {
				r.mem = cached
				return r.mem.Clone(), nil
			}

			if err != nil && r.logger != nil {
				r.logger.Warn("detection cache unreadable, rescanning", zap.Error(err))
			}
		}
	}

	res := r.scan(ctx)

	// A failed collection is never cached: the next call retries instead of
	// serving the failure for a whole TTL.
	if !res.Success {
		return res.Clone(), nil
	}

	r.mem = res

	if r.store != nil {
		if err := r.store.Save(res); err != nil && r.logger != nil {
			r.logger.Warn("failed to persist detection result", zap.Error(err))
		}
	}

	return r.mem.Clone(), nil
}

// scan probes every candidate and assembles a result. Candidates that fail
// to execute or whose banner cannot be parsed are dropped silently; only a
// failure of the collection step itself aborts detection, and that surfaces
// as an unsuccessful result with actionable suggestions.
func (r *Registry) scan(ctx context.Context) *DetectionResult {
	candidates, err := r.collect(ctx)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("compiler scan failed", zap.Error(err))
		}

		return &DetectionResult{
			Success:     false,
			Suggestions: installSuggestions(),
		}
	}

	var compilers []CompilerDescriptor
	for _, c := range candidates {
		desc, err := r.probe(ctx, c.path, c.bonus)
		if err != nil {
			if r.logger != nil {
				r.logger.Debug("dropping candidate", zap.String("path", c.path), zap.Error(err))
			}

			continue
		}

		compilers = append(compilers, desc)
	}

	var suggestions []string
	if len(compilers) == 0 {
		suggestions = installSuggestions()
	}

	res := finalize(compilers, suggestions)

	if r.logger != nil {
		r.logger.Info("compiler scan complete", zap.Int("compilers", len(compilers)))
	}

	return res
}

// ClearCache drops both the in-process and the persisted cache.
func (r *Registry) ClearCache() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mem = nil

	if r.store != nil {
		if err := r.store.Clear(); err != nil {
			return fmt.Errorf("failed to clear detection cache: %w", err)
		}
	}

	return nil
}

// FilterSuitable returns copies of the cached descriptors able to compile
// the given language. Detect must have been called first; an empty slice is
// returned otherwise.
func (r *Registry) FilterSuitable(language string) []CompilerDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mem == nil {
		return nil
	}

	var out []CompilerDescriptor
	for _, c := range r.mem.Clone().Compilers {
		if suitableFor(c.Family, language) {
			out = append(out, c)
		}
	}

	return out
}

func suitableFor(family Family, language string) bool {
	switch language {
	case "c", "cpp":
		return family == FamilyGCC || family == FamilyClang ||
			family == FamilyAppleClang || family == FamilyMSVC
	default:
		return false
	}
}

func installSuggestions() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"Install the Xcode command line tools: xcode-select --install",
			"Or install GCC via Homebrew: brew install gcc",
		}
	case "windows":
		return []string{
			"Install MinGW-w64 (https://www.mingw-w64.org) and add its bin directory to PATH",
			"Or install Visual Studio with the 'Desktop development with C++' workload",
			"Run 'refrun install' to attempt an automatic installation",
		}
	default:
		return []string{
			"Install GCC with your package manager, e.g. sudo apt install build-essential",
			"Or install Clang: sudo apt install clang",
		}
	}
}
