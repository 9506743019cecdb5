package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// DefaultCacheDir is the default cache directory name under the user
	// cache root.
	DefaultCacheDir = "refrun"

	// SchemaVersion tags persisted records. A mismatch invalidates the
	// record unconditionally.
	SchemaVersion = 1

	// CacheTTL is how long a persisted detection stays valid.
	CacheTTL = 24 * time.Hour

	bucketName = "detections"
	recordKey  = "host"
)

// record is the persisted envelope around a DetectionResult. It is written
// wholesale on every save; there are no partial updates.
type record struct {
	SchemaVersion int             `json:"schema_version"`
	Timestamp     time.Time       `json:"timestamp"`
	Result        DetectionResult `json:"result"`
}

// Store persists detection results in a BoltDB file, one record per host.
type Store struct {
	db   *bbolt.DB
	root string
}

// NewStore opens (creating if needed) the cache database. If cacheDir is
// empty the user cache directory is used.
func NewStore(cacheDir string) (*Store, error) {
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate user cache directory: %w", err)
		}

		cacheDir = filepath.Join(base, DefaultCacheDir)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(cacheDir, "detect.db")
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &Store{db: db, root: cacheDir}, nil
}

// Close closes the cache database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// Load returns the persisted detection if it is present, carries the
// current schema version, and is younger than the TTL. A stale or
// mismatched record is treated as a miss, never partially adopted.
func (s *Store) Load() (*DetectionResult, error) {
	var rec record
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(recordKey))
		if data == nil {
			return nil
		}

		if err := json.Unmarshal(data, &rec); err != nil {
			return nil // corrupt record, treat as miss
		}

		found = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !found || rec.SchemaVersion != SchemaVersion {
		return nil, nil
	}

	if time.Since(rec.Timestamp) > CacheTTL {
		return nil, nil
	}

	return rec.Result.Clone(), nil
}

// Save replaces the persisted record atomically within a single
// transaction.
func (s *Store) Save(res *DetectionResult) error {
	rec := record{
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now(),
		Result:        *res.Clone(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode detection record: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(recordKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store detection record: %w", err)
	}

	return nil
}

// Clear removes the persisted record.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(recordKey))
	})
}

// Stats returns the record count and the size of the database file.
func (s *Store) Stats() (int, int64, error) {
	var count int

	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	info, err := os.Stat(filepath.Join(s.root, "detect.db"))
	if err != nil {
		return count, 0, nil
	}

	return count, info.Size(), nil
}
