package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultBackend          = "process"
	DefaultTimeLimitSeconds = 5
	DefaultMemoryLimitMB    = 256
	DefaultOptimization     = "2"
	DefaultOutputLimitKB    = 1024
	DefaultPollIntervalMS   = 150
)

// Holds the configuration options for refrun
type Config struct {
	// Execution backend: "process" or "docker"
	Backend string

	// Wall-clock limit in seconds
	TimeLimitSeconds int

	// Resident memory ceiling in megabytes
	MemoryLimitMB int

	// Optimization level digit/letter passed to the toolchain (e.g. "2")
	Optimization string

	// Language standard (e.g. "c++17"); empty keeps the toolchain default
	Standard string

	// Program stdin, inline or from a file (file wins when both are set)
	Input     string
	InputFile string

	// Additional compiler flags, tokenized and allow-list validated
	ExtraFlags string

	// Memory sampling interval for the polling path, in milliseconds
	PollIntervalMS int

	// Captured output ceiling per stream, in kilobytes
	OutputLimitKB int

	// Detection cache directory; empty uses the user cache dir
	CacheDir string

	// Disable the persisted detection cache
	NoCache bool

	// Enable verbose (debug) logging
	Verbose bool

	// Log format: "console" or "json"
	LogFormat string
}

func Load() (*Config, error) {
	cfg := &Config{
		Backend:          viper.GetString("backend"),
		TimeLimitSeconds: viper.GetInt("time_limit"),
		MemoryLimitMB:    viper.GetInt("memory_limit"),
		Optimization:     viper.GetString("optimization"),
		Standard:         viper.GetString("standard"),
		Input:            viper.GetString("input"),
		InputFile:        viper.GetString("input_file"),
		ExtraFlags:       viper.GetString("extra_flags"),
		PollIntervalMS:   viper.GetInt("poll_interval_ms"),
		OutputLimitKB:    viper.GetInt("output_limit_kb"),
		CacheDir:         viper.GetString("cache_dir"),
		NoCache:          viper.GetBool("no_cache"),
		Verbose:          viper.GetBool("verbose"),
		LogFormat:        viper.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Backend != "process" && c.Backend != "docker" {
		return fmt.Errorf("invalid backend %q (want process or docker)", c.Backend)
	}

	if c.TimeLimitSeconds <= 0 {
		return fmt.Errorf("time limit must be positive, got %d", c.TimeLimitSeconds)
	}

	if c.MemoryLimitMB <= 0 {
		return fmt.Errorf("memory limit must be positive, got %d", c.MemoryLimitMB)
	}

	if c.InputFile != "" {
		abs, err := filepath.Abs(c.InputFile)
		if err != nil {
			return fmt.Errorf("invalid input file path: %v", err)
		}

		c.InputFile = abs
	}

	if c.CacheDir != "" {
		abs, err := filepath.Abs(c.CacheDir)
		if err != nil {
			return fmt.Errorf("invalid cache directory path: %v", err)
		}

		c.CacheDir = abs
	}

	return nil
}

// TimeLimit returns the wall-clock limit as a duration.
func (c *Config) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitSeconds) * time.Second
}

// ResolveInput returns the program stdin, reading the input file when one
// is configured.
func (c *Config) ResolveInput() (string, error) {
	if c.InputFile == "" {
		return c.Input, nil
	}

	data, err := os.ReadFile(c.InputFile)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}

	return string(data), nil
}
