package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectUsesMemoryCache(t *testing.T) {
	r := New(nil, nil)
	r.mem = sampleResult()

	res, err := r.Detect(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, res.Compilers, 1)

	// The caller gets a private copy.
	res.Compilers[0].Path = "/mutated"
	assert.Equal(t, "/usr/bin/g++", r.mem.Compilers[0].Path)
}

func TestDetectLoadsPersistedResult(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(sampleResult()))

	r := New(store, nil)

	res, err := r.Detect(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, res.Compilers, 1)
	assert.Equal(t, "/usr/bin/g++", res.Compilers[0].Path)

	// A second call is served from memory.
	again, err := r.Detect(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, res.Compilers, again.Compilers)
}

func TestDetectForceRescans(t *testing.T) {
	// One fake candidate on PATH keeps the scan away from the broad
	// filesystem walk.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gcc"), []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir)

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(sampleResult()))

	r := New(store, nil)
	r.mem = sampleResult()

	probed := 0
	r.probe = func(_ context.Context, path string, bonus int) (CompilerDescriptor, error) {
		probed++

		return CompilerDescriptor{
			Path:          path,
			Family:        FamilyClang,
			Version:       "17.0.6",
			MajorVersion:  17,
			PriorityScore: Score(FamilyClang, 17, bonus),
		}, nil
	}

	res, err := r.Detect(context.Background(), true)
	require.NoError(t, err)

	// Both cache layers were bypassed and replaced wholesale.
	assert.Positive(t, probed)
	require.NotEmpty(t, res.Compilers)
	assert.Equal(t, FamilyClang, res.Compilers[0].Family)
	assert.Equal(t, FamilyClang, r.mem.Compilers[0].Family)

	persisted, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, FamilyClang, persisted.Compilers[0].Family)
}

func TestDetectFailedScanIsNotCached(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	r := New(store, nil)
	r.collect = func(context.Context) ([]candidate, error) {
		return nil, fmt.Errorf("scan root unreadable")
	}

	res, err := r.Detect(context.Background(), true)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Suggestions)

	// Neither cache layer adopts the failure, so the next call retries.
	assert.Nil(t, r.mem)

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, persisted)

	r.collect = func(context.Context) ([]candidate, error) {
		return nil, nil
	}

	res, err = r.Detect(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestClearCacheDropsBothLayers(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(sampleResult()))

	r := New(store, nil)
	r.mem = sampleResult()

	require.NoError(t, r.ClearCache())

	assert.Nil(t, r.mem)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFilterSuitable(t *testing.T) {
	r := New(nil, nil)
	r.mem = finalize([]CompilerDescriptor{
		{Path: "/usr/bin/g++", Family: FamilyGCC, PriorityScore: 400},
		{Path: "/usr/bin/clang++", Family: FamilyClang, PriorityScore: 300},
	}, nil)

	suitable := r.FilterSuitable("cpp")
	assert.Len(t, suitable, 2)

	assert.Empty(t, r.FilterSuitable("python"))

	empty := New(nil, nil)
	assert.Empty(t, empty.FilterSuitable("cpp"))
}

func TestInstallSuggestionsNotEmpty(t *testing.T) {
	assert.NotEmpty(t, installSuggestions())
}
