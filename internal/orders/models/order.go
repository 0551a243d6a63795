package models

import (
	"time"

	"github.com/shopspring/decimal"

	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
)

type OrderStatus string

const (
	OrderPendingUpdates OrderStatus = "pending_updates"
	OrderCompleted      OrderStatus = "completed"
)

func (s OrderStatus) IsValid() bool {
	return s == OrderPendingUpdates || s == OrderCompleted
}

// Stage is the construction stage of the job.
type Stage string

const (
	StageWaitingForPermit Stage = "waiting_for_permit"
	StageActive           Stage = "active"
	StageCompleted        Stage = "completed"
)

func (s Stage) IsValid() bool {
	switch s {
	case StageWaitingForPermit, StageActive, StageCompleted:
		return true
	}
	return false
}

type Order struct {
	ID                  id.OrderID      `json:"id"`
	CustomerID          id.CustomerID   `json:"customer_id"`
	OrderNo             string          `json:"order_no"`
	OrderDate           *time.Time      `json:"order_date,omitempty"`
	OrderPO             string          `json:"order_po"`
	OrderDueDate        *time.Time      `json:"order_due_date,omitempty"`
	OrderType           string          `json:"order_type"`
	OrderDelivered      bool            `json:"order_delivered"`
	QuoteExpirationDate *time.Time      `json:"quote_expiration_date,omitempty"`
	GrandTotal          decimal.Decimal `json:"grand_total"`
	ProgressPayments    decimal.Decimal `json:"progress_payments"`
	BalanceDue          decimal.Decimal `json:"balance_due"`
	SalesRep            string          `json:"sales_rep"`
	Status              OrderStatus     `json:"status"`
	Stage               Stage           `json:"stage"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Recalculate derives BalanceDue from the grand total and progress payments.
func (o *Order) Recalculate() {
	o.GrandTotal = o.GrandTotal.Round(2)
	o.ProgressPayments = o.ProgressPayments.Round(2)
	o.BalanceDue = o.GrandTotal.Sub(o.ProgressPayments)
}

// HistoryFields lists the fields compared for order_edit entries.
func (o *Order) HistoryFields() []hmodels.Field {
	return []hmodels.Field{
		hmodels.Text("order_no", o.OrderNo),
		hmodels.Date("order_date", o.OrderDate),
		hmodels.Text("order_po", o.OrderPO),
		hmodels.Date("order_due_date", o.OrderDueDate),
		hmodels.Text("order_type", o.OrderType),
		hmodels.Bool("order_delivered", o.OrderDelivered),
		hmodels.Date("quote_expiration_date", o.QuoteExpirationDate),
		hmodels.Money("grand_total", o.GrandTotal),
		hmodels.Money("progress_payments", o.ProgressPayments),
		hmodels.Money("balance_due", o.BalanceDue),
		hmodels.Text("sales_rep", o.SalesRep),
		hmodels.Text("status", string(o.Status)),
	}
}

// OrderDetail is an order with its customer and items.
type OrderDetail struct {
	Order    *Order       `json:"order"`
	Customer *Customer    `json:"customer"`
	Items    []*OrderItem `json:"items"`
}

// Summary totals an order's items and invoices.
type Summary struct {
	OrderID                 id.OrderID      `json:"order_id"`
	GrandTotal              decimal.Decimal `json:"grand_total"`
	ProgressPayments        decimal.Decimal `json:"progress_payments"`
	BalanceDue              decimal.Decimal `json:"balance_due"`
	ItemTotal               decimal.Decimal `json:"item_total"`
	CompletedTotal          decimal.Decimal `json:"completed_total"`
	PreviouslyInvoicedTotal decimal.Decimal `json:"previously_invoiced_total"`
	ThisBillTotal           decimal.Decimal `json:"this_bill_total"`
	InvoicedTotal           decimal.Decimal `json:"invoiced_total"`
	PaymentsReceived        decimal.Decimal `json:"payments_received"`
	OpenBalance             decimal.Decimal `json:"open_balance"`
}

// Summarize totals items and invoices. Header rows and invoices excluded
// from totals do not count.
func Summarize(o *Order, items []*OrderItem, invoices []*Invoice) Summary {
	s := Summary{
		OrderID:          o.ID,
		GrandTotal:       o.GrandTotal,
		ProgressPayments: o.ProgressPayments,
		BalanceDue:       o.BalanceDue,
	}
	for _, it := range items {
		if it.IsHeader() {
			continue
		}
		s.ItemTotal = s.ItemTotal.Add(it.Amount)
		s.CompletedTotal = s.CompletedTotal.Add(it.CompletedAmount)
		s.PreviouslyInvoicedTotal = s.PreviouslyInvoicedTotal.Add(it.PreviouslyInvoicedAmount)
		s.ThisBillTotal = s.ThisBillTotal.Add(it.ThisBill)
	}
	for _, inv := range invoices {
		if inv.ExcludeFromTotals {
			continue
		}
		s.InvoicedTotal = s.InvoicedTotal.Add(inv.InvoiceAmount)
		s.PaymentsReceived = s.PaymentsReceived.Add(inv.PaymentsReceived)
	}
	s.OpenBalance = s.InvoicedTotal.Sub(s.PaymentsReceived)
	return s
}
