package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
)

func vendor(name string, specialties ...string) *models.Vendor {
	now := time.Now()
	return &models.Vendor{ID: id.NewVendorID(), Name: name, Specialties: specialties, Status: models.StatusActive, CreatedAt: now, UpdatedAt: now}
}

func TestInMemoryListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	require.NoError(t, s.Create(ctx, vendor("zeta electric", "lighting")))
	require.NoError(t, s.Create(ctx, vendor("Alpha Pools", "plaster")))
	off := vendor("Mid Decks", "decking")
	off.Status = models.StatusInactive
	require.NoError(t, s.Create(ctx, off))

	all, err := s.List(ctx, models.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Alpha Pools", all[0].Name)
	assert.Equal(t, "zeta electric", all[2].Name)

	got, err := s.List(ctx, models.Filter{Query: "LIGHT"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "zeta electric", got[0].Name)

	got, err = s.List(ctx, models.Filter{Status: models.StatusInactive})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, off.ID, got[0].ID)
}

func TestInMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	v := vendor("Alpha Pools", "plaster")
	require.NoError(t, s.Create(ctx, v))

	got, err := s.FindByID(ctx, v.ID)
	require.NoError(t, err)
	got.Specialties[0] = "changed"

	again, err := s.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "plaster", again.Specialties[0])

	err = s.Update(ctx, vendor("ghost"))
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}
