package store

import (
	"context"
	"sort"
	"sync"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
)

// InMemory is an append-only history store for tests and database-less runs.
type InMemory struct {
	mu      sync.RWMutex
	entries []models.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, entries []models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

// List returns matching entries newest first.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]models.Entry, error) {
	filter.Normalize()
	s.mu.RLock()
	matched := make([]models.Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		if filter.Matches(s.entries[i]) {
			matched = append(matched, s.entries[i])
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ChangedAt.After(matched[j].ChangedAt)
	})
	if filter.Offset >= len(matched) {
		return []models.Entry{}, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}
