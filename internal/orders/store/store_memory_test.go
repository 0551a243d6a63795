package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
)

func TestInMemoryCustomers(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryCustomers()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	older := &models.Customer{ID: id.NewCustomerID(), Name: "Jane Doe", Email: "jane@example.com", Status: models.CustomerActive, CreatedAt: now}
	newer := &models.Customer{ID: id.NewCustomerID(), Name: "jane doe", Email: "JANE@example.com", Status: models.CustomerActive, CreatedAt: now.Add(time.Hour)}
	gone := &models.Customer{ID: id.NewCustomerID(), Name: "Alan Brook", DBXCustomerID: "C-77", Status: models.CustomerDeleted, CreatedAt: now}
	for _, c := range []*models.Customer{older, newer, gone} {
		require.NoError(t, s.Create(ctx, c))
	}
	require.ErrorIs(t, s.Create(ctx, older), sentinel.ErrAlreadyUsed)

	t.Run("returns copies", func(t *testing.T) {
		got, err := s.FindByID(ctx, older.ID)
		require.NoError(t, err)
		got.Name = "changed"
		again, err := s.FindByID(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", again.Name)
	})

	t.Run("name and email match is case-insensitive and prefers the oldest", func(t *testing.T) {
		got, err := s.FindByNameEmail(ctx, "JANE DOE", "jane@EXAMPLE.com")
		require.NoError(t, err)
		assert.Equal(t, older.ID, got.ID)
	})

	t.Run("dbx lookup ignores empty ids", func(t *testing.T) {
		_, err := s.FindByDBXID(ctx, "")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
		got, err := s.FindByDBXID(ctx, "C-77")
		require.NoError(t, err)
		assert.Equal(t, gone.ID, got.ID)
	})

	t.Run("default listing hides deleted customers", func(t *testing.T) {
		list, err := s.List(ctx, models.CustomerFilter{})
		require.NoError(t, err)
		assert.Len(t, list, 2)

		deleted, err := s.List(ctx, models.CustomerFilter{Status: models.CustomerDeleted})
		require.NoError(t, err)
		require.Len(t, deleted, 1)
		assert.Equal(t, gone.ID, deleted[0].ID)

		all, err := s.List(ctx, models.CustomerFilter{All: true, Query: "alan"})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("update and delete unknown", func(t *testing.T) {
		require.ErrorIs(t, s.Update(ctx, &models.Customer{ID: id.NewCustomerID()}), sentinel.ErrNotFound)
		require.ErrorIs(t, s.Delete(ctx, id.NewCustomerID()), sentinel.ErrNotFound)
	})
}

func TestInMemoryOrdersUniqueOrderNo(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryOrders()
	customerID := id.NewCustomerID()
	first := &models.Order{ID: id.NewOrderID(), CustomerID: customerID, OrderNo: "10452"}
	require.NoError(t, s.Create(ctx, first))

	dup := &models.Order{ID: id.NewOrderID(), CustomerID: customerID, OrderNo: "10452"}
	require.ErrorIs(t, s.Create(ctx, dup), sentinel.ErrAlreadyUsed)

	second := &models.Order{ID: id.NewOrderID(), CustomerID: customerID, OrderNo: "10453"}
	require.NoError(t, s.Create(ctx, second))
	second.OrderNo = "10452"
	require.ErrorIs(t, s.Update(ctx, second), sentinel.ErrAlreadyUsed)

	got, err := s.FindByOrderNo(ctx, "10452")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	list, err := s.ListByCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestInMemoryItemsOrderedByRow(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryItems()
	orderID := id.NewOrderID()
	items := []*models.OrderItem{
		{ID: id.NewOrderItemID(), OrderID: orderID, RowIndex: 2, Amount: decimal.NewFromInt(3)},
		{ID: id.NewOrderItemID(), OrderID: orderID, RowIndex: 0, Amount: decimal.NewFromInt(1)},
		{ID: id.NewOrderItemID(), OrderID: orderID, RowIndex: 1, Amount: decimal.NewFromInt(2)},
		{ID: id.NewOrderItemID(), OrderID: id.NewOrderID(), RowIndex: 0},
	}
	require.NoError(t, s.CreateMany(ctx, items))

	got, err := s.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, it := range got {
		assert.Equal(t, i, it.RowIndex)
	}

	require.NoError(t, s.DeleteByOrder(ctx, orderID))
	got, err = s.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Empty(t, got)
	_, err = s.FindByID(ctx, items[3].ID)
	require.NoError(t, err)
}

func TestInMemoryInvoicesUniquePerOrder(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryInvoices()
	orderID := id.NewOrderID()
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	undated := &models.Invoice{ID: id.NewInvoiceID(), OrderID: orderID, InvoiceNumber: "INV-2"}
	dated := &models.Invoice{ID: id.NewInvoiceID(), OrderID: orderID, InvoiceNumber: "INV-1", InvoiceDate: &day}
	require.NoError(t, s.Create(ctx, undated))
	require.NoError(t, s.Create(ctx, dated))
	require.ErrorIs(t, s.Create(ctx, &models.Invoice{ID: id.NewInvoiceID(), OrderID: orderID, InvoiceNumber: "INV-1"}), sentinel.ErrAlreadyUsed)
	require.NoError(t, s.Create(ctx, &models.Invoice{ID: id.NewInvoiceID(), OrderID: id.NewOrderID(), InvoiceNumber: "INV-1"}))

	list, err := s.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "INV-1", list[0].InvoiceNumber)
	assert.Equal(t, "INV-2", list[1].InvoiceNumber)
}
