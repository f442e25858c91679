// Package history keeps completed runs so they can be listed and reopened.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ppiankov/chorus/internal/cache"
	"github.com/ppiankov/chorus/internal/model"
)

// DefaultLimit is the number of runs kept in the index
const DefaultLimit = 50

// ErrNotFound is returned when a run id is not stored
var ErrNotFound = errors.New("run not found")

const indexKey = "runs:index"

// Store persists RunRecords in a cache backend.
// The index holds run ids newest first and is capped at the limit.
type Store struct {
	backend cache.Cache
	ttl     time.Duration
	limit   int
	mu      sync.Mutex
}

// NewStore creates a store over backend. A non-positive limit selects DefaultLimit.
func NewStore(backend cache.Cache, ttl time.Duration, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{backend: backend, ttl: ttl, limit: limit}
}

func runKey(id string) string {
	return "run:" + id
}

// Save stores record and puts it at the head of the index.
// Runs pushed out of the index are deleted.
func (s *Store) Save(record model.RunRecord) error {
	if record.ID == "" {
		return errors.New("run record has no id")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Set(runKey(record.ID), data, s.ttl); err != nil {
		return fmt.Errorf("store run: %w", err)
	}

	ids := []string{record.ID}
	for _, id := range s.index() {
		if id != record.ID {
			ids = append(ids, id)
		}
	}

	if len(ids) > s.limit {
		for _, evicted := range ids[s.limit:] {
			_ = s.backend.Delete(runKey(evicted))
		}
		ids = ids[:s.limit]
	}

	return s.writeIndex(ids)
}

// Get returns the run stored under id
func (s *Store) Get(id string) (*model.RunRecord, error) {
	data, found := s.backend.Get(runKey(id))
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var record model.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &record, nil
}

// List returns stored runs newest first. A non-empty fingerprint keeps only
// runs with the same canonical request. Expired or unreadable runs are skipped.
func (s *Store) List(fingerprint string) []model.RunRecord {
	s.mu.Lock()
	ids := s.index()
	s.mu.Unlock()

	records := []model.RunRecord{}
	for _, id := range ids {
		record, err := s.Get(id)
		if err != nil {
			continue
		}
		if fingerprint != "" && record.Fingerprint != fingerprint {
			continue
		}
		records = append(records, *record)
	}
	return records
}

// Delete removes a run and its index entry
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(runKey(id)); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}

	var ids []string
	for _, existing := range s.index() {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	return s.writeIndex(ids)
}

func (s *Store) index() []string {
	data, found := s.backend.Get(indexKey)
	if !found {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil
	}
	return ids
}

func (s *Store) writeIndex(ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	// The index outlives individual runs; expired runs are skipped on read
	if err := s.backend.Set(indexKey, data, -1); err != nil {
		return fmt.Errorf("store index: %w", err)
	}
	return nil
}
