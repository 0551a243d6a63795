package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/approval/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
)

func TestNextReferenceIsPerYear(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	for _, want := range []string{"OA-2025-0001", "OA-2025-0002"} {
		ref, err := s.NextReference(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, want, ref)
	}
	ref, err := s.NextReference(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, "OA-2026-0001", ref)
}

func TestUpdateIsVersionGuarded(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	a := &models.Approval{ID: id.NewApprovalID(), ReferenceNo: "OA-2025-0001", Stage: models.StageDraft, CreatedAt: time.Now()}
	require.NoError(t, s.Create(ctx, a))
	assert.Equal(t, 1, a.Version)

	first, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	second, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)

	first.Notes = "first writer"
	require.NoError(t, s.Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Notes = "second writer"
	err = s.Update(ctx, second)
	assert.True(t, errors.Is(err, sentinel.ErrConflict))

	got, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "first writer", got.Notes)

	assert.True(t, errors.Is(s.Update(ctx, &models.Approval{ID: id.NewApprovalID()}), sentinel.ErrNotFound))
}

func TestListFiltersNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	vendor := id.NewVendorID()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range []id.VendorID{vendor, id.NewVendorID(), vendor} {
		require.NoError(t, s.Create(ctx, &models.Approval{
			ID:          id.NewApprovalID(),
			ReferenceNo: models.FormatReference(2025, i+1),
			VendorID:    v,
			Stage:       models.StageDraft,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}
	got, err := s.List(ctx, models.Filter{VendorID: vendor})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "OA-2025-0003", got[0].ReferenceNo)
	assert.Equal(t, "OA-2025-0001", got[1].ReferenceNo)

	got, err = s.List(ctx, models.Filter{Stage: models.StageApproved})
	require.NoError(t, err)
	assert.Empty(t, got)
}
