// Package engine wires the execution services together. Commands construct
// one Engine per invocation and pass its services by reference; nothing in
// the engine is a process-wide singleton, so cache state is resettable per
// test case.
package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/refrun/refrun/internal/backend"
	"github.com/refrun/refrun/internal/config"
	"github.com/refrun/refrun/internal/installer"
	"github.com/refrun/refrun/internal/paircheck"
	"github.com/refrun/refrun/internal/pipeline"
	"github.com/refrun/refrun/internal/registry"
)

// Engine owns the constructed services for one command invocation.
type Engine struct {
	Config    *config.Config
	Logger    *zap.Logger
	Registry  *registry.Registry
	Pipeline  *pipeline.Pipeline
	Checker   *paircheck.Orchestrator
	Installer *installer.Installer

	store *registry.Store
}

// New builds the engine from configuration. The backend strategy is
// selected once here, not per call site.
func New(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	var store *registry.Store

	if !cfg.NoCache {
		s, err := registry.NewStore(cfg.CacheDir)
		if err != nil {
			// A broken cache never blocks execution; detection just runs
			// uncached.
			logger.Warn("detection cache unavailable", zap.Error(err))
		} else {
			store = s
		}
	}

	reg := registry.New(store, logger)

	var be backend.Backend
	switch cfg.Backend {
	case "docker":
		be = backend.NewDockerBackend(logger)
	default:
		pb := backend.NewProcessBackend(logger)
		if cfg.PollIntervalMS > 0 {
			pb.PollInterval = time.Duration(cfg.PollIntervalMS) * time.Millisecond
		}

		be = pb
	}

	pl := &pipeline.Pipeline{
		Registry:      reg,
		Backend:       be,
		Containerized: cfg.Backend == "docker",
		Logger:        logger,
	}

	return &Engine{
		Config:    cfg,
		Logger:    logger,
		Registry:  reg,
		Pipeline:  pl,
		Checker:   &paircheck.Orchestrator{Pipeline: pl, Logger: logger},
		Installer: installer.New(logger),
		store:     store,
	}, nil
}

// Close releases the persisted cache handle.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}

	return nil
}

// NewRequest assembles an ExecutionRequest for a source file from the
// loaded configuration.
func (e *Engine) NewRequest(sourcePath string) (pipeline.ExecutionRequest, error) {
	lang, err := pipeline.ForFile(sourcePath)
	if err != nil {
		return pipeline.ExecutionRequest{}, err
	}

	input, err := e.Config.ResolveInput()
	if err != nil {
		return pipeline.ExecutionRequest{}, err
	}

	extra, err := backend.ParseExtraFlags(e.Config.ExtraFlags)
	if err != nil {
		return pipeline.ExecutionRequest{}, fmt.Errorf("invalid extra flags: %w", err)
	}

	return pipeline.ExecutionRequest{
		SourcePath:    sourcePath,
		Language:      lang.Name,
		Input:         input,
		TimeLimit:     e.Config.TimeLimit(),
		MemoryLimitMB: e.Config.MemoryLimitMB,
		Optimization:  e.Config.Optimization,
		Standard:      e.Config.Standard,
		ExtraFlags:    extra,
		OutputLimit:   int64(e.Config.OutputLimitKB) * 1024,
	}, nil
}
