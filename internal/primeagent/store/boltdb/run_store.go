package boltdb

import (
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/prime-system/prime-agent/pkg/utils/json"
)

// RunRecord is the audit-store projection of a finished or in-flight
// command run: no event payloads, just the run's summary fields.
type RunRecord struct {
	RunID       string     `json:"run_id"`
	CommandName string     `json:"command_name"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CostUSD     *float64   `json:"cost_usd,omitempty"`
	DurationMs  *int64     `json:"duration_ms,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RunStore is a BoltDB-backed, append/overwrite audit log of command runs.
type RunStore struct {
	db *bolt.DB
}

func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.Bolt()}
}

// Put upserts a run record, keyed by run ID.
func (s *RunStore) Put(rec RunRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal run record: %w", err)
		}
		return b.Put([]byte(rec.RunID), data)
	})
}

func (s *RunStore) Get(runID string) (RunRecord, bool, error) {
	var rec RunRecord
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data := b.Get([]byte(runID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("get run record %q: %w", runID, err)
	}
	return rec, found, nil
}

// CountActive returns the number of recorded runs with no completion time.
// No server endpoint calls it; the monitoring endpoint counts active runs
// from the in-memory Command Run Manager.
func (s *RunStore) CountActive() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		return b.ForEach(func(_, v []byte) error {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal run record: %w", err)
			}
			if rec.CompletedAt == nil {
				count++
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("count active runs: %w", err)
	}
	return count, nil
}
