// Package history is a supplemental audit trail of install attempts,
// recorded in an embedded bbolt database keyed by run UUID. It is not
// consulted by any install decision; it exists purely so operators can
// inspect what a past transaction actually did.
//
// Grounded on go-synth's builddb.DB (builddb/db.go): bucket-per-concern
// layout, JSON-serialized records, and the DatabaseError wrapping idiom
// (builddb/errors.go).
package history

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names.
const (
	bucketRuns     = "runs"
	bucketPackages = "packages"
)

// DatabaseError wraps a bbolt operation failure with the bucket it touched.
type DatabaseError struct {
	Op     string
	Bucket string
	Err    error
}

func (e *DatabaseError) Error() string {
	if e.Bucket != "" {
		return fmt.Sprintf("history %s [bucket: %s]: %v", e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// Run is one install-transaction invocation.
type Run struct {
	UUID      string    `json:"uuid"`
	Requested []string  `json:"requested"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// PackageOutcome is the recorded result for one package within a run.
type PackageOutcome struct {
	RunUUID string    `json:"run_uuid"`
	Name    string    `json:"name"`
	Status  string    `json:"status"` // installed | already_installed | ignored | missing | failed
	Time    time.Time `json:"time"`
}

// Store wraps a bbolt database for install-history recording.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the history database at path, initializing its
// buckets if necessary.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, &DatabaseError{Op: "open", Err: err}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketRuns)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: bucketRuns, Err: err}
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketPackages)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: bucketPackages, Err: err}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun records the start of a transaction.
func (s *Store) SaveRun(run Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		if b == nil {
			return &DatabaseError{Op: "get bucket", Bucket: bucketRuns, Err: bolt.ErrBucketNotFound}
		}
		return b.Put([]byte(run.UUID), data)
	})
}

// GetRun retrieves a previously saved run by UUID.
func (s *Store) GetRun(uuid string) (*Run, error) {
	var run Run
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		if b == nil {
			return &DatabaseError{Op: "get bucket", Bucket: bucketRuns, Err: bolt.ErrBucketNotFound}
		}
		data := b.Get([]byte(uuid))
		if data == nil {
			return fmt.Errorf("history: run %q not found", uuid)
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RecordOutcome appends one package's final status for a run. Keys are
// "<run_uuid>/<name>" so a run's package outcomes sort together.
func (s *Store) RecordOutcome(outcome PackageOutcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	key := outcome.RunUUID + "/" + outcome.Name
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPackages))
		if b == nil {
			return &DatabaseError{Op: "get bucket", Bucket: bucketPackages, Err: bolt.ErrBucketNotFound}
		}
		return b.Put([]byte(key), data)
	})
}

// OutcomesForRun returns every package outcome recorded under runUUID.
func (s *Store) OutcomesForRun(runUUID string) ([]PackageOutcome, error) {
	prefix := []byte(runUUID + "/")
	var out []PackageOutcome

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPackages))
		if b == nil {
			return &DatabaseError{Op: "get bucket", Bucket: bucketPackages, Err: bolt.ErrBucketNotFound}
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var outcome PackageOutcome
			if err := json.Unmarshal(v, &outcome); err != nil {
				return err
			}
			out = append(out, outcome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
