//go:build integration

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/approval/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore

	customer id.CustomerID
	order    id.OrderID
	vendor   id.VendorID
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
}

// SetupTest seeds the rows an approval references.
func (s *PostgresStoreSuite) SetupTest() {
	s.pg.Truncate(s.T(), "approval_sequences", "order_approvals", "orders", "customers", "vendors")
	ctx := context.Background()
	now := time.Now().UTC()
	s.customer, s.order, s.vendor = id.NewCustomerID(), id.NewOrderID(), id.NewVendorID()

	_, err := s.pg.DB.ExecContext(ctx,
		`INSERT INTO customers (id, name, created_at, updated_at) VALUES ($1, 'Jane Doe', $2, $2)`, s.customer, now)
	s.Require().NoError(err)
	_, err = s.pg.DB.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, order_no, created_at, updated_at) VALUES ($1, $2, '10452', $3, $3)`,
		s.order, s.customer, now)
	s.Require().NoError(err)
	_, err = s.pg.DB.ExecContext(ctx,
		`INSERT INTO vendors (id, name, created_at, updated_at) VALUES ($1, 'Pump Pros', $2, $2)`, s.vendor, now)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newApproval(ref string) *models.Approval {
	a := &models.Approval{
		ID:          id.NewApprovalID(),
		ReferenceNo: ref,
		OrderID:     s.order,
		CustomerID:  s.customer,
		VendorID:    s.vendor,
		Stage:       models.StageDraft,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	a.Items = []models.ApprovalItem{{
		ID:             id.NewApprovalItemID(),
		ApprovalID:     a.ID,
		ProductService: "Variable speed pump",
		MainCategory:   "EQUIPMENT",
		Qty:            decimal.NewFromInt(1),
		Rate:           decimal.RequireFromString("1850.00"),
		OriginalAmount: decimal.RequireFromString("1850.00"),
	}}
	return a
}

func (s *PostgresStoreSuite) TestNextReferenceIsPerYear() {
	ctx := context.Background()
	for _, want := range []string{"OA-2025-0001", "OA-2025-0002"} {
		ref, err := s.store.NextReference(ctx, 2025)
		s.Require().NoError(err)
		s.Equal(want, ref)
	}
	ref, err := s.store.NextReference(ctx, 2026)
	s.Require().NoError(err)
	s.Equal("OA-2026-0001", ref)
}

func (s *PostgresStoreSuite) TestItemsRoundTripAndVersionGuard() {
	ctx := context.Background()
	a := s.newApproval("OA-2025-0001")
	s.Require().NoError(s.store.Create(ctx, a))

	first, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	s.Require().Len(first.Items, 1)
	s.True(first.Items[0].OriginalAmount.Equal(decimal.RequireFromString("1850")))
	s.False(first.Items[0].NegotiatedVendorAmount.Valid)
	s.True(first.Items[0].OrderItemID.IsNil())

	second, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)

	first.Stage = models.StageNegotiating
	first.Items[0].NegotiatedVendorAmount = decimal.NewNullDecimal(decimal.RequireFromString("1700.50"))
	s.Require().NoError(s.store.Update(ctx, first))
	s.Equal(2, first.Version)

	second.Notes = "stale"
	s.True(errors.Is(s.store.Update(ctx, second), sentinel.ErrConflict))

	got, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.StageNegotiating, got.Stage)
	s.Empty(got.Notes)
	s.Equal("1700.50", got.Items[0].NegotiatedVendorAmount.Decimal.StringFixed(2))
}

func (s *PostgresStoreSuite) TestDuplicateReferenceAndDelete() {
	ctx := context.Background()
	a := s.newApproval("OA-2025-0007")
	s.Require().NoError(s.store.Create(ctx, a))
	s.True(errors.Is(s.store.Create(ctx, s.newApproval("OA-2025-0007")), sentinel.ErrAlreadyUsed))

	orphan := s.newApproval("OA-2025-0008")
	orphan.VendorID = id.NewVendorID()
	s.True(errors.Is(s.store.Create(ctx, orphan), sentinel.ErrNotFound))

	listed, err := s.store.List(ctx, models.Filter{VendorID: s.vendor})
	s.Require().NoError(err)
	s.Len(listed, 1)

	s.Require().NoError(s.store.Delete(ctx, a.ID))
	s.True(errors.Is(s.store.Delete(ctx, a.ID), sentinel.ErrNotFound))
	_, err = s.store.FindByID(ctx, a.ID)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
