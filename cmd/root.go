package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/refrun/refrun/internal/config"
	"github.com/refrun/refrun/internal/engine"
	"github.com/refrun/refrun/internal/logging"
	"github.com/refrun/refrun/internal/version"
)

var rootCmd = &cobra.Command{
	Use:          "refrun",
	Short:        "Compile, run, and cross-check C/C++ programs under resource limits",
	Long:         `refrun compiles and executes small C/C++ (or script) programs against supplied input under strict time, memory, and output-size limits, and can run two programs side by side to verify their outputs match.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().StringP("backend", "b", "", "Execution backend: process or docker")
	rootCmd.PersistentFlags().IntP("time-limit", "t", 0, "Wall-clock limit in seconds")
	rootCmd.PersistentFlags().IntP("memory-limit", "m", 0, "Memory limit in megabytes")
	rootCmd.PersistentFlags().String("opt", "", "Optimization level (0, 1, 2, 3, s)")
	rootCmd.PersistentFlags().String("std", "", "Language standard (e.g. c++17)")
	rootCmd.PersistentFlags().StringP("input", "i", "", "Program stdin")
	rootCmd.PersistentFlags().String("input-file", "", "Read program stdin from a file")
	rootCmd.PersistentFlags().String("extra-flags", "", "Additional compiler flags")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable the compiler detection cache")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console or json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(cacheCmd)
}

// newEngine loads configuration and constructs the engine for a command.
func newEngine(cmd *cobra.Command, args []string) (*engine.Engine, error) {
	cfg, err := config.NewLoader().LoadForCommand(cmd, args)
	if err != nil {
		return nil, err
	}

	level := "info"
	if cfg.Verbose {
		level = "debug"
	}

	logger, err := logging.New(logging.Config{Level: level, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}

	return engine.New(cfg, logger)
}
