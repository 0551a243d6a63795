package models

import (
	"github.com/shopspring/decimal"

	cmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
)

// ItemType reuses the contract's row classification.
type ItemType = cmodels.ItemType

var hundred = decimal.NewFromInt(100)

// OrderItem is one spreadsheet row of an order.
type OrderItem struct {
	ID                       id.OrderItemID  `json:"id"`
	OrderID                  id.OrderID      `json:"order_id"`
	RowIndex                 int             `json:"row_index"`
	Type                     ItemType        `json:"type"`
	ProductService           string          `json:"product_service"`
	Qty                      decimal.Decimal `json:"qty"`
	Rate                     decimal.Decimal `json:"rate"`
	Amount                   decimal.Decimal `json:"amount"`
	MainCategory             string          `json:"main_category"`
	SubCategory              string          `json:"sub_category"`
	ProgressOverallPct       decimal.Decimal `json:"progress_overall_pct"`
	CompletedAmount          decimal.Decimal `json:"completed_amount"`
	PreviouslyInvoicedPct    decimal.Decimal `json:"previously_invoiced_pct"`
	PreviouslyInvoicedAmount decimal.Decimal `json:"previously_invoiced_amount"`
	NewProgressPct           decimal.Decimal `json:"new_progress_pct"`
	ThisBill                 decimal.Decimal `json:"this_bill"`
	IsAddendumHeader         bool            `json:"is_addendum_header"`
	AddendumNumber           string          `json:"addendum_number"`
	AddendumURLID            string          `json:"addendum_url_id"`
}

// IsHeader reports whether the row is a category or addendum header.
func (it *OrderItem) IsHeader() bool {
	return it.IsAddendumHeader || it.Type.IsHeader()
}

// Recalculate derives the billing columns. Header rows carry no money.
func (it *OrderItem) Recalculate() {
	if it.IsHeader() {
		it.Qty = decimal.Zero
		it.Rate = decimal.Zero
		it.Amount = decimal.Zero
		it.ProgressOverallPct = decimal.Zero
		it.CompletedAmount = decimal.Zero
		it.PreviouslyInvoicedPct = decimal.Zero
		it.PreviouslyInvoicedAmount = decimal.Zero
		it.NewProgressPct = decimal.Zero
		it.ThisBill = decimal.Zero
		return
	}
	it.Rate = it.Rate.Round(2)
	it.Amount = it.Amount.Round(2)
	it.ProgressOverallPct = it.ProgressOverallPct.Round(2)
	it.PreviouslyInvoicedPct = it.PreviouslyInvoicedPct.Round(2)
	it.PreviouslyInvoicedAmount = it.PreviouslyInvoicedAmount.Round(2)
	it.CompletedAmount = it.Amount.Mul(it.ProgressOverallPct).Div(hundred).Round(2)
	it.NewProgressPct = it.ProgressOverallPct.Sub(it.PreviouslyInvoicedPct)
	it.ThisBill = it.CompletedAmount.Sub(it.PreviouslyInvoicedAmount)
}

// HistoryFields lists the editable columns compared for cell_edit and
// row_update entries. Derived columns are not logged.
func (it *OrderItem) HistoryFields() []hmodels.Field {
	return []hmodels.Field{
		hmodels.Text("type", string(it.Type)),
		hmodels.Text("product_service", it.ProductService),
		hmodels.Decimal("qty", it.Qty),
		hmodels.Money("rate", it.Rate),
		hmodels.Money("amount", it.Amount),
		hmodels.Text("main_category", it.MainCategory),
		hmodels.Text("sub_category", it.SubCategory),
		hmodels.Decimal("progress_overall_pct", it.ProgressOverallPct),
		hmodels.Decimal("previously_invoiced_pct", it.PreviouslyInvoicedPct),
		hmodels.Money("previously_invoiced_amount", it.PreviouslyInvoicedAmount),
		hmodels.Bool("is_addendum_header", it.IsAddendumHeader),
		hmodels.Text("addendum_number", it.AddendumNumber),
		hmodels.Text("addendum_url_id", it.AddendumURLID),
	}
}

// FromContractItem converts a parsed contract row into an order row.
func FromContractItem(orderID id.OrderID, row int, ci cmodels.Item) *OrderItem {
	it := &OrderItem{
		ID:               id.NewOrderItemID(),
		OrderID:          orderID,
		RowIndex:         row,
		Type:             ci.Type,
		ProductService:   ci.ProductService,
		Qty:              ci.Qty,
		Rate:             ci.Rate,
		Amount:           ci.Amount,
		MainCategory:     ci.MainCategory,
		SubCategory:      ci.SubCategory,
		IsAddendumHeader: ci.IsAddendumHeader,
		AddendumNumber:   ci.AddendumNumber,
		AddendumURLID:    ci.AddendumURLID,
	}
	it.Recalculate()
	return it
}

// Resequence assigns row indexes 0..n-1 in slice order.
func Resequence(items []*OrderItem) {
	for i, it := range items {
		it.RowIndex = i
	}
}
