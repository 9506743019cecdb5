package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configExtensions lists the accepted config file formats in probe order.
var configExtensions = []string{"yml", "yaml", "json", "toml"}

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForCommand loads configuration for an engine command: defaults, then
// the global config file, then a local config found near the first source
// argument, then command flags.
func (l *Loader) LoadForCommand(cmd *cobra.Command, args []string) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(args)
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("backend", DefaultBackend)
	viper.SetDefault("time_limit", DefaultTimeLimitSeconds)
	viper.SetDefault("memory_limit", DefaultMemoryLimitMB)
	viper.SetDefault("optimization", DefaultOptimization)
	viper.SetDefault("output_limit_kb", DefaultOutputLimitKB)
	viper.SetDefault("poll_interval_ms", DefaultPollIntervalMS)
	viper.SetDefault("log_format", "console")
}

// loadGlobalConfig loads global configuration from the user config dir
func (l *Loader) loadGlobalConfig() {
	base, err := os.UserConfigDir()
	if err != nil {
		return
	}

	globalDir := filepath.Join(base, "refrun")

	for _, ext := range configExtensions {
		globalPath := filepath.Join(globalDir, "config."+ext)

		if _, err := os.Stat(globalPath); err == nil {
			viper.SetConfigFile(globalPath)

			if err := viper.ReadInConfig(); err == nil {
				break
			}
		}
	}
}

// loadLocalConfig loads local configuration from the project directory
func (l *Loader) loadLocalConfig(args []string) {
	if len(args) == 0 {
		return
	}

	absFirstFile, err := filepath.Abs(args[0])
	if err != nil {
		return // silently ignore, config.Load() will handle validation
	}

	if localPath := localConfigPath(filepath.Dir(absFirstFile)); localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.ReadInConfig()
	}
}

// localConfigPath walks from dir toward the filesystem root and returns the
// nearest .refrun.<ext> file, preferring the extension order above within a
// directory.
func localConfigPath(dir string) string {
	for prev := ""; dir != prev; prev, dir = dir, filepath.Dir(dir) {
		for _, ext := range configExtensions {
			path := filepath.Join(dir, ".refrun."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	return ""
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("backend", cmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("time_limit", cmd.Flags().Lookup("time-limit"))
	_ = viper.BindPFlag("memory_limit", cmd.Flags().Lookup("memory-limit"))
	_ = viper.BindPFlag("optimization", cmd.Flags().Lookup("opt"))
	_ = viper.BindPFlag("standard", cmd.Flags().Lookup("std"))
	_ = viper.BindPFlag("input", cmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("input_file", cmd.Flags().Lookup("input-file"))
	_ = viper.BindPFlag("extra_flags", cmd.Flags().Lookup("extra-flags"))
	_ = viper.BindPFlag("no_cache", cmd.Flags().Lookup("no-cache"))
	_ = viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
	_ = viper.BindPFlag("log_format", cmd.Flags().Lookup("log-format"))
}
