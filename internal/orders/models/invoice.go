package models

import (
	"time"

	"github.com/shopspring/decimal"

	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
)

type Invoice struct {
	ID                id.InvoiceID    `json:"id"`
	OrderID           id.OrderID      `json:"order_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	InvoiceDate       *time.Time      `json:"invoice_date,omitempty"`
	InvoiceAmount     decimal.Decimal `json:"invoice_amount"`
	PaymentsReceived  decimal.Decimal `json:"payments_received"`
	ExcludeFromTotals bool            `json:"exclude_from_totals"`
	OpenBalance       decimal.Decimal `json:"open_balance"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Recalculate derives OpenBalance.
func (inv *Invoice) Recalculate() {
	inv.InvoiceAmount = inv.InvoiceAmount.Round(2)
	inv.PaymentsReceived = inv.PaymentsReceived.Round(2)
	inv.OpenBalance = inv.InvoiceAmount.Sub(inv.PaymentsReceived)
}

func (inv *Invoice) HistoryFields() []hmodels.Field {
	return []hmodels.Field{
		hmodels.Text("invoice_number", inv.InvoiceNumber),
		hmodels.Date("invoice_date", inv.InvoiceDate),
		hmodels.Money("invoice_amount", inv.InvoiceAmount),
		hmodels.Money("payments_received", inv.PaymentsReceived),
		hmodels.Bool("exclude_from_totals", inv.ExcludeFromTotals),
	}
}
