package boltdb

import (
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/push"
	"github.com/prime-system/prime-agent/pkg/utils/json"
)

// maxDeliveryHistory bounds the per-device delivery history kept in the
// audit store, per the delivery-bookkeeping supplement: last 20 attempts,
// oldest dropped first.
const maxDeliveryHistory = 20

// PushStore is a BoltDB-backed, purely observational record of push
// delivery attempts. It implements push.AuditSink; it never gates delivery,
// and no server endpoint reads History.
type PushStore struct {
	db *bolt.DB
}

func NewPushStore(db *DB) *PushStore {
	return &PushStore{db: db.Bolt()}
}

// RecordDelivery appends attempt to installationID's history, trimming to
// the most recent maxDeliveryHistory entries.
func (s *PushStore) RecordDelivery(installationID string, attempt push.DeliveryAttempt) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPushDeliveries)
		key := []byte(installationID)

		var history []push.DeliveryAttempt
		if data := b.Get(key); data != nil {
			if err := json.Unmarshal(data, &history); err != nil {
				return fmt.Errorf("unmarshal delivery history for %q: %w", installationID, err)
			}
		}

		history = append(history, attempt)
		if len(history) > maxDeliveryHistory {
			history = history[len(history)-maxDeliveryHistory:]
		}

		data, err := json.Marshal(history)
		if err != nil {
			return fmt.Errorf("marshal delivery history for %q: %w", installationID, err)
		}
		return b.Put(key, data)
	})
}

// History returns the recorded delivery attempts for installationID,
// oldest first.
func (s *PushStore) History(installationID string) ([]push.DeliveryAttempt, error) {
	var history []push.DeliveryAttempt
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPushDeliveries)
		data := b.Get([]byte(installationID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &history)
	})
	if err != nil {
		return nil, fmt.Errorf("get delivery history for %q: %w", installationID, err)
	}
	return history, nil
}
