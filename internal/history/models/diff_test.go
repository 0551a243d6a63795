package models

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
)

func TestDiff(t *testing.T) {
	t.Run("equal after normalisation yields nothing", func(t *testing.T) {
		old := []Field{
			Money("amount", decimal.RequireFromString("100")),
			Decimal("qty", decimal.RequireFromString("2.50")),
			Text("product_service", " Pebble Tec "),
		}
		new := []Field{
			Money("amount", decimal.RequireFromString("100.00")),
			Decimal("qty", decimal.RequireFromString("2.5")),
			Text("product_service", "Pebble Tec"),
		}
		assert.Empty(t, Diff(old, new))
	})

	t.Run("reports changed, added and removed fields in order", func(t *testing.T) {
		due := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
		old := []Field{
			Text("name", "Jane Doe"),
			Text("phone", "555-0100"),
			Date("due", nil),
		}
		new := []Field{
			Text("name", "Jane Smith"),
			Date("due", &due),
			Bool("delivered", true),
		}

		want := []FieldChange{
			{Field: "name", Old: "Jane Doe", New: "Jane Smith"},
			{Field: "phone", Old: "555-0100", New: ""},
			{Field: "due", Old: "", New: "2025-03-14"},
			{Field: "delivered", Old: "", New: "true"},
		}
		if d := cmp.Diff(want, Diff(old, new)); d != "" {
			t.Fatalf("diff mismatch (-want +got):\n%s", d)
		}
	})

	t.Run("null money is empty", func(t *testing.T) {
		got := Diff(
			[]Field{NullMoney("negotiated", decimal.NullDecimal{})},
			[]Field{NullMoney("negotiated", decimal.NewNullDecimal(decimal.NewFromInt(950)))},
		)
		want := []FieldChange{{Field: "negotiated", Old: "", New: "950.00"}}
		if d := cmp.Diff(want, got); d != "" {
			t.Fatalf("diff mismatch (-want +got):\n%s", d)
		}
	})
}

func TestExpand(t *testing.T) {
	orderID := id.NewOrderID()
	base := Entry{ChangeType: ChangeCellEdit, OrderID: orderID, RowIndex: Row(3)}
	entries := Expand(base, []FieldChange{
		{Field: "qty", Old: "1", New: "2"},
		{Field: "rate", Old: "10.00", New: "12.00"},
	})

	if assert.Len(t, entries, 2) {
		assert.Equal(t, "qty", entries[0].FieldName)
		assert.Equal(t, "12.00", entries[1].NewValue)
		assert.Equal(t, orderID, entries[1].OrderID)
		assert.Equal(t, 3, *entries[1].RowIndex)
	}
	assert.Nil(t, Expand(base, nil))
}

func TestFilter(t *testing.T) {
	orderID := id.NewOrderID()
	now := time.Now()
	e := Entry{ChangeType: ChangeRowAdd, OrderID: orderID, ChangedAt: now}

	assert.True(t, Filter{}.Matches(e))
	assert.True(t, Filter{OrderID: orderID, ChangeTypes: []ChangeType{ChangeRowDelete, ChangeRowAdd}}.Matches(e))
	assert.False(t, Filter{OrderID: id.NewOrderID()}.Matches(e))
	assert.False(t, Filter{ChangeTypes: []ChangeType{ChangeCellEdit}}.Matches(e))
	assert.False(t, Filter{Since: now.Add(time.Minute)}.Matches(e))

	f := Filter{Limit: 10_000, Offset: -4}
	f.Normalize()
	assert.Equal(t, MaxLimit, f.Limit)
	assert.Zero(t, f.Offset)
}

func TestSummarize(t *testing.T) {
	got := Summarize([]Field{Text("product_service", "Coping"), Text("sub_category", ""), Money("amount", decimal.NewFromInt(40))})
	assert.Equal(t, "product_service=Coping; amount=40.00", got)
}
