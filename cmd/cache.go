package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refrun/refrun/internal/config"
	"github.com/refrun/refrun/internal/registry"
)

var cacheCmd = &cobra.Command{
	Use:          "cache",
	Short:        "Manage the compiler detection cache",
	SilenceUsage: true,
}

var cacheClearCmd = &cobra.Command{
	Use:          "clear",
	Short:        "Remove the cached detection result",
	Args:         cobra.NoArgs,
	RunE:         runCacheClear,
	SilenceUsage: true,
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show detection cache statistics",
	Args:         cobra.NoArgs,
	RunE:         runCacheStats,
	SilenceUsage: true,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd, args)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Registry.ClearCache(); err != nil {
		return err
	}

	fmt.Println("Detection cache cleared.")
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForCommand(cmd, args)
	if err != nil {
		return err
	}

	store, err := registry.NewStore(cfg.CacheDir)
	if err != nil {
		return err
	}
	defer store.Close()

	count, size, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Entries: %d\nSize on disk: %d bytes\nTTL: %s\n", count, size, registry.CacheTTL)
	return nil
}
