package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"run", "pair", "detect", "install", "cache"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestPersistentFlags(t *testing.T) {
	for _, want := range []string{
		"backend", "time-limit", "memory-limit", "opt", "std",
		"input", "input-file", "extra-flags", "no-cache", "verbose", "log-format",
	} {
		require.NotNil(t, rootCmd.PersistentFlags().Lookup(want), "missing flag %s", want)
	}

	assert.Equal(t, "b", rootCmd.PersistentFlags().Lookup("backend").Shorthand)
	assert.Equal(t, "t", rootCmd.PersistentFlags().Lookup("time-limit").Shorthand)
}
