package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	vendors map[id.VendorID]models.Vendor
}

func NewInMemory() *InMemory {
	return &InMemory{vendors: make(map[id.VendorID]models.Vendor)}
}

func clone(v models.Vendor) *models.Vendor {
	v.Specialties = append([]string(nil), v.Specialties...)
	return &v
}

// nameTakenLocked reports whether another vendor already uses name.
func (s *InMemory) nameTakenLocked(name string, self id.VendorID) bool {
	for vid, v := range s.vendors {
		if vid != self && strings.EqualFold(v.Name, name) {
			return true
		}
	}
	return false
}

func (s *InMemory) Create(_ context.Context, v *models.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vendors[v.ID]; ok || s.nameTakenLocked(v.Name, v.ID) {
		return fmt.Errorf("vendor %q: %w", v.Name, sentinel.ErrAlreadyUsed)
	}
	s.vendors[v.ID] = *clone(*v)
	return nil
}

func (s *InMemory) Update(_ context.Context, v *models.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vendors[v.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.nameTakenLocked(v.Name, v.ID) {
		return fmt.Errorf("vendor %q: %w", v.Name, sentinel.ErrAlreadyUsed)
	}
	s.vendors[v.ID] = *clone(*v)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, vendorID id.VendorID) (*models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(v), nil
}

// List returns matching vendors ordered by name.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Vendor, 0, len(s.vendors))
	for _, v := range s.vendors {
		if filter.Matches(&v) {
			out = append(out, clone(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
