// Package storage persists branch observation logs with BoltDB. Events are
// the per-observation records (outcome plus the prediction made for it) that
// the table keeps in memory; persisting them allows offline analysis and
// replaying a recorded run as a trace. Trained predictor weights are never
// stored.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	eventsBucket = "events" // per-observation records, key "tag_seq"
	runsBucket   = "runs"   // run summaries, key run start time
)

// BranchEvent is one observed branch with the prediction made for it.
type BranchEvent struct {
	Seq       uint64    `json:"seq"`
	Tag       string    `json:"tag"`
	Outcome   bool      `json:"outcome"`
	Predicted bool      `json:"predicted"`
	Ts        time.Time `json:"ts"`
}

// RunSummary records the headline numbers of one completed simulation run.
type RunSummary struct {
	StartedAt    time.Time          `json:"startedAt"`
	FinishedAt   time.Time          `json:"finishedAt"`
	Variant      string             `json:"variant"`
	HistoryLen   int                `json:"historyLen"`
	Observations uint64             `json:"observations"`
	Accuracy     map[string]float64 `json:"accuracy"`
}

// Store wraps a BoltDB database holding events and run summaries.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the database under dataPath and ensures the
// buckets exist.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "branch-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(eventsBucket)); err != nil {
			return fmt.Errorf("create events bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func eventKey(tag string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s_%016d", tag, seq))
}

// StoreEvent writes one event keyed by tag and sequence number.
func (s *Store) StoreEvent(ev BranchEvent) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(eventsBucket))

		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		return b.Put(eventKey(ev.Tag, ev.Seq), data)
	})
}

// StoreEvents writes a batch of events in one transaction.
func (s *Store) StoreEvents(evs []BranchEvent) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(eventsBucket))
		for _, ev := range evs {
			data, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			if err := b.Put(eventKey(ev.Tag, ev.Seq), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetEvents returns tag's events with from <= seq <= to, in sequence order.
func (s *Store) GetEvents(tag string, from, to uint64) ([]BranchEvent, error) {
	var events []BranchEvent

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(eventsBucket)).Cursor()

		startKey := eventKey(tag, from)
		endKey := eventKey(tag, to)

		for k, v := c.Seek(startKey); k != nil && string(k) <= string(endKey); k, v = c.Next() {
			var ev BranchEvent
			if err := json.Unmarshal(v, &ev); err != nil {
				continue // skip malformed records
			}
			if ev.Tag != tag {
				continue
			}
			events = append(events, ev)
		}
		return nil
	})

	return events, err
}

// AllEvents returns every stored event in key order.
func (s *Store) AllEvents() ([]BranchEvent, error) {
	var events []BranchEvent

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(eventsBucket)).ForEach(func(_, v []byte) error {
			var ev BranchEvent
			if err := json.Unmarshal(v, &ev); err != nil {
				return nil
			}
			events = append(events, ev)
			return nil
		})
	})

	return events, err
}

// StoreRun writes one run summary keyed by its start time.
func (s *Store) StoreRun(run RunSummary) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		key := fmt.Sprintf("%d", run.StartedAt.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// GetRuns returns all stored run summaries in start order.
func (s *Store) GetRuns() ([]RunSummary, error) {
	var runs []RunSummary

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(_, v []byte) error {
			var run RunSummary
			if err := json.Unmarshal(v, &run); err != nil {
				return nil
			}
			runs = append(runs, run)
			return nil
		})
	})

	return runs, err
}
