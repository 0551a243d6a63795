package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/store"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

func ptr[T any](v T) *T { return &v }

func TestCreateVendorNormalizesAndEnforcesUniqueName(t *testing.T) {
	ctx := context.Background()
	svc := New(store.NewInMemory(), nil)

	v, err := svc.Create(ctx, &models.CreateVendorRequest{
		Name:        "  Blue Tile Co ",
		Email:       "Sales@BlueTile.example",
		Specialties: []string{"tile", " Tile ", "", "coping"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Blue Tile Co", v.Name)
	assert.Equal(t, "sales@bluetile.example", v.Email)
	assert.Equal(t, []string{"tile", "coping"}, v.Specialties)
	assert.Equal(t, models.StatusActive, v.Status)

	_, err = svc.Create(ctx, &models.CreateVendorRequest{Name: "BLUE TILE CO"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = svc.Create(ctx, &models.CreateVendorRequest{Name: "  "})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.Create(ctx, &models.CreateVendorRequest{Name: "Other", Email: "not-an-email"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestUpdateVendor(t *testing.T) {
	ctx := context.Background()
	svc := New(store.NewInMemory(), nil)
	a, err := svc.Create(ctx, &models.CreateVendorRequest{Name: "Aqua Plaster"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &models.CreateVendorRequest{Name: "Deck Masters"})
	require.NoError(t, err)

	inactive := models.StatusInactive
	updated, err := svc.Update(ctx, a.ID, &models.UpdateVendorRequest{Status: &inactive, Phone: ptr(" 555-0101 ")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, updated.Status)
	assert.Equal(t, "555-0101", updated.Phone)
	assert.True(t, dErrors.HasCode(updated.CanReceiveApprovals(), dErrors.CodeConflict))

	_, err = svc.Update(ctx, a.ID, &models.UpdateVendorRequest{Name: ptr("deck masters")})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = svc.Update(ctx, id.NewVendorID(), &models.UpdateVendorRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	active, err := svc.List(ctx, models.Filter{Status: models.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Deck Masters", active[0].Name)

	_, err = svc.List(ctx, models.Filter{Status: "archived"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
