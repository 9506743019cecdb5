package paircheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refrun/refrun/internal/backend"
	"github.com/refrun/refrun/internal/pipeline"
)

// stubRunner returns canned outcomes keyed by the staged source content.
type stubRunner struct {
	outcomes map[string]*pipeline.Outcome
	errs     map[string]error
}

func (s *stubRunner) CompileAndRun(_ context.Context, req pipeline.ExecutionRequest) (*pipeline.Outcome, error) {
	data, err := os.ReadFile(req.SourcePath)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(string(data))
	if e, ok := s.errs[key]; ok {
		return nil, e
	}

	return s.outcomes[key], nil
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func baseRequest() pipeline.ExecutionRequest {
	return pipeline.ExecutionRequest{
		Language:      "cpp",
		TimeLimit:     time.Second,
		MemoryLimitMB: 64,
	}
}

func TestRunPairEqualOutputs(t *testing.T) {
	runner := &stubRunner{outcomes: map[string]*pipeline.Outcome{
		"A": {Result: &backend.Result{Stdout: "42\n"}},
		"B": {Result: &backend.Result{Stdout: "42\r\n"}},
	}}

	o := &Orchestrator{Pipeline: runner}

	res, err := o.RunPair(context.Background(),
		writeSource(t, "a.cpp", "A"), writeSource(t, "b.cpp", "B"), baseRequest())
	require.NoError(t, err)

	assert.True(t, res.Equal)
	assert.Empty(t, res.Diff)
	assert.Equal(t, "42\n", res.Output1)
}

func TestRunPairDifferentOutputs(t *testing.T) {
	runner := &stubRunner{outcomes: map[string]*pipeline.Outcome{
		"A": {Result: &backend.Result{Stdout: "1\n2\n3\n"}},
		"B": {Result: &backend.Result{Stdout: "1\nX\n3\n"}},
	}}

	o := &Orchestrator{Pipeline: runner}

	res, err := o.RunPair(context.Background(),
		writeSource(t, "a.cpp", "A"), writeSource(t, "b.cpp", "B"), baseRequest())
	require.NoError(t, err)

	assert.False(t, res.Equal)
	require.NotEmpty(t, res.Diff)

	// Diff round-trip: each side is reconstructible from its segments.
	assert.Equal(t, "1\n2\n3", reconstruct(res.Diff, SegmentRemoved))
	assert.Equal(t, "1\nX\n3", reconstruct(res.Diff, SegmentAdded))
}

func TestRunPairResourceViolationIsNotEqual(t *testing.T) {
	runner := &stubRunner{outcomes: map[string]*pipeline.Outcome{
		"A": {Result: &backend.Result{Stdout: "42\n"}},
		"B": {Result: &backend.Result{TimedOut: true, ExitCode: 137}},
	}}

	o := &Orchestrator{Pipeline: runner}

	res, err := o.RunPair(context.Background(),
		writeSource(t, "a.cpp", "A"), writeSource(t, "b.cpp", "B"), baseRequest())
	require.NoError(t, err)

	assert.False(t, res.Equal)
	assert.Empty(t, res.Diff)
	assert.Equal(t, "Time limit exceeded", res.Output2)
}

func TestRunPairCompileErrorDisplay(t *testing.T) {
	runner := &stubRunner{outcomes: map[string]*pipeline.Outcome{
		"A": {Result: &backend.Result{Stdout: "42\n"}},
		"B": {
			Result:        &backend.Result{Stderr: "b.cpp:1: error: expected ';'", ExitCode: 1},
			CompileFailed: true,
		},
	}}

	o := &Orchestrator{Pipeline: runner}

	res, err := o.RunPair(context.Background(),
		writeSource(t, "a.cpp", "A"), writeSource(t, "b.cpp", "B"), baseRequest())
	require.NoError(t, err)

	assert.False(t, res.Equal)
	assert.Contains(t, res.Output2, "Compilation error")
	assert.Contains(t, res.Output2, "expected ';'")
}

func TestRunPairInfrastructureErrorAborts(t *testing.T) {
	infraErr := errors.New("docker daemon unreachable")

	runner := &stubRunner{
		outcomes: map[string]*pipeline.Outcome{
			"A": {Result: &backend.Result{Stdout: "42\n"}},
		},
		errs: map[string]error{"B": infraErr},
	}

	o := &Orchestrator{Pipeline: runner}

	_, err := o.RunPair(context.Background(),
		writeSource(t, "a.cpp", "A"), writeSource(t, "b.cpp", "B"), baseRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, infraErr)
}

func TestStageSourceIsolation(t *testing.T) {
	src := writeSource(t, "a.cpp", "int main() {}")

	dirA, stagedA, err := stageSource(src)
	require.NoError(t, err)
	defer os.RemoveAll(dirA)

	dirB, stagedB, err := stageSource(src)
	require.NoError(t, err)
	defer os.RemoveAll(dirB)

	assert.NotEqual(t, dirA, dirB)
	assert.Equal(t, filepath.Base(src), filepath.Base(stagedA))

	dataA, err := os.ReadFile(stagedA)
	require.NoError(t, err)
	dataB, err := os.ReadFile(stagedB)
	require.NoError(t, err)
	assert.Equal(t, dataA, dataB)
}
