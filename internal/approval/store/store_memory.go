package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/approval/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
)

type InMemory struct {
	mu        sync.RWMutex
	approvals map[id.ApprovalID]models.Approval
	sequences map[int]int
}

func NewInMemory() *InMemory {
	return &InMemory{
		approvals: make(map[id.ApprovalID]models.Approval),
		sequences: make(map[int]int),
	}
}

func clone(a models.Approval) *models.Approval {
	a.Items = append([]models.ApprovalItem(nil), a.Items...)
	return &a
}

// NextReference allocates the next reference number for year.
func (s *InMemory) NextReference(_ context.Context, year int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[year]++
	return models.FormatReference(year, s.sequences[year]), nil
}

// Create stores a at version 1.
func (s *InMemory) Create(_ context.Context, a *models.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.approvals[a.ID]; ok {
		return fmt.Errorf("approval %s: %w", a.ID, sentinel.ErrAlreadyUsed)
	}
	for _, existing := range s.approvals {
		if existing.ReferenceNo == a.ReferenceNo {
			return fmt.Errorf("approval reference %s: %w", a.ReferenceNo, sentinel.ErrAlreadyUsed)
		}
	}
	a.Version = 1
	s.approvals[a.ID] = *clone(*a)
	return nil
}

// Update replaces the approval and its items when a.Version matches the
// stored version, then bumps a.Version.
func (s *InMemory) Update(_ context.Context, a *models.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.approvals[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != a.Version {
		return fmt.Errorf("approval %s version %d: %w", a.ID, a.Version, sentinel.ErrConflict)
	}
	a.Version++
	s.approvals[a.ID] = *clone(*a)
	return nil
}

func (s *InMemory) Delete(_ context.Context, approvalID id.ApprovalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.approvals[approvalID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.approvals, approvalID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, approvalID id.ApprovalID) (*models.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.approvals[approvalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

// List returns matching approvals, newest first.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Approval, 0)
	for _, a := range s.approvals {
		if filter.Matches(&a) {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ReferenceNo > out[j].ReferenceNo
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
