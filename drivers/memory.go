package drivers

import (
	"context"
	"sync"

	"github.com/creastat/sessionstate"
)

// MemoryStore implements sessionstate.DocumentStore using an in-memory map.
// Conditional updates run under a single mutex, giving the same
// single-document compare-and-set semantics as a real store within one
// process. Intended for tests and embedding.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*sessionstate.SessionRecord
}

// NewMemoryStore creates a new in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*sessionstate.SessionRecord),
	}
}

func memoryKey(app, id string) string {
	return app + ":" + id
}

// FindOne implements sessionstate.DocumentStore.
// Returns nil if no record matches the filter (not an error).
func (s *MemoryStore) FindOne(ctx context.Context, f sessionstate.RecordFilter) (*sessionstate.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[memoryKey(f.ApplicationName, f.ID)]
	if !exists || !f.Matches(rec) {
		return nil, nil
	}
	return rec.Clone(), nil
}

// UpdateOne implements sessionstate.DocumentStore.
func (s *MemoryStore) UpdateOne(ctx context.Context, f sessionstate.RecordFilter, u sessionstate.RecordUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[memoryKey(f.ApplicationName, f.ID)]
	if !exists || !f.Matches(rec) {
		return 0, nil
	}
	u.Apply(rec)
	return 1, nil
}

// DeleteOne implements sessionstate.DocumentStore.
func (s *MemoryStore) DeleteOne(ctx context.Context, f sessionstate.RecordFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(f.ApplicationName, f.ID)
	rec, exists := s.records[key]
	if !exists || !f.Matches(rec) {
		return 0, nil
	}
	delete(s.records, key)
	return 1, nil
}

// Upsert implements sessionstate.DocumentStore.
func (s *MemoryStore) Upsert(ctx context.Context, f sessionstate.RecordFilter, rec *sessionstate.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[memoryKey(f.ApplicationName, f.ID)] = rec.Clone()
	return nil
}

// EnsureExpiryIndex implements sessionstate.DocumentStore. The memory store
// has no background sweep; expired records are removed only by the
// protocol's lazy deletes.
func (s *MemoryStore) EnsureExpiryIndex(ctx context.Context) error {
	return nil
}

// Close implements sessionstate.DocumentStore.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	return nil
}
