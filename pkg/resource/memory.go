package resource

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a Store for tests and single-process runs.
type MemoryStore struct {
	records map[string]Record
	now     func() time.Time
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

func (s *MemoryStore) Create(_ context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return Record{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidInput, rec.ID)
	}
	now := s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *MemoryStore) Update(_ context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.records[rec.ID]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}
	rec.CreatedAt = old.CreatedAt
	rec.UpdatedAt = s.now()
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *MemoryStore) ListUploads(_ context.Context, after string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.records {
		if rec.Uploaded() && rec.ID > after {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b Record) int { return strings.Compare(a.ID, b.ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
