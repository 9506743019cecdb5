package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func sampleResult() *DetectionResult {
	return finalize([]CompilerDescriptor{{
		Path:               "/usr/bin/g++",
		Family:             FamilyGCC,
		Version:            "13.2.0",
		MajorVersion:       13,
		SupportedStandards: []string{"c++17", "c++20"},
		Is64Bit:            true,
		PriorityScore:      Score(FamilyGCC, 13, BonusPath),
	}}, nil)
}

// putRecord writes a raw record straight into the bucket, bypassing Save, so
// tests can construct stale or mismatched entries.
func putRecord(t *testing.T, s *Store, rec record) {
	t.Helper()

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(recordKey), data)
	})
	require.NoError(t, err)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(sampleResult()))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.True(t, loaded.Success)
	require.Len(t, loaded.Compilers, 1)
	assert.Equal(t, "/usr/bin/g++", loaded.Compilers[0].Path)
	require.NotNil(t, loaded.Recommended)
	assert.Equal(t, "/usr/bin/g++", loaded.Recommended.Path)
}

func TestStoreLoadMissOnEmpty(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStoreLoadMissOnExpired(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	putRecord(t, s, record{
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().Add(-CacheTTL - time.Minute),
		Result:        *sampleResult(),
	})

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStoreLoadMissOnSchemaMismatch(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	putRecord(t, s, record{
		SchemaVersion: SchemaVersion + 1,
		Timestamp:     time.Now(),
		Result:        *sampleResult(),
	})

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStoreLoadMissOnCorruptRecord(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(recordKey), []byte("{not json"))
	})
	require.NoError(t, err)

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStoreClear(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(sampleResult()))
	require.NoError(t, s.Clear())

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStoreStats(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	count, size, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Positive(t, size)

	require.NoError(t, s.Save(sampleResult()))

	count, _, err = s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
