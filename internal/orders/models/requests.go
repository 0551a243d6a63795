package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
)

// UpdateCustomerRequest patches a customer; nil fields are left unchanged.
type UpdateCustomerRequest struct {
	DBXCustomerID *string `json:"dbx_customer_id" validate:"omitnil,max=64"`
	Name          *string `json:"name" validate:"omitnil,min=1,max=200"`
	Email         *string `json:"email" validate:"omitnil,max=254"`
	Phone         *string `json:"phone" validate:"omitnil,max=64"`
	StreetAddress *string `json:"street_address" validate:"omitnil,max=300"`
	City          *string `json:"city" validate:"omitnil,max=120"`
	State         *string `json:"state" validate:"omitnil,max=64"`
	Zip           *string `json:"zip" validate:"omitnil,max=20"`
}

// Normalize trims every provided field and lowercases the email.
func (r *UpdateCustomerRequest) Normalize() {
	for _, p := range []*string{r.DBXCustomerID, r.Name, r.Email, r.Phone, r.StreetAddress, r.City, r.State, r.Zip} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if r.Email != nil {
		*r.Email = strings.ToLower(*r.Email)
	}
}

// Apply copies provided fields onto c.
func (r *UpdateCustomerRequest) Apply(c *Customer) {
	set(&c.DBXCustomerID, r.DBXCustomerID)
	set(&c.Name, r.Name)
	set(&c.Email, r.Email)
	set(&c.Phone, r.Phone)
	set(&c.StreetAddress, r.StreetAddress)
	set(&c.City, r.City)
	set(&c.State, r.State)
	set(&c.Zip, r.Zip)
}

// UpdateOrderRequest patches order header fields. Dates use YYYY-MM-DD; an
// empty string clears a date.
type UpdateOrderRequest struct {
	OrderNo             *string          `json:"order_no" validate:"omitnil,min=1,max=64"`
	OrderDate           *string          `json:"order_date" validate:"omitnil,max=10"`
	OrderPO             *string          `json:"order_po" validate:"omitnil,max=64"`
	OrderDueDate        *string          `json:"order_due_date" validate:"omitnil,max=10"`
	OrderType           *string          `json:"order_type" validate:"omitnil,max=120"`
	OrderDelivered      *bool            `json:"order_delivered"`
	QuoteExpirationDate *string          `json:"quote_expiration_date" validate:"omitnil,max=10"`
	GrandTotal          *decimal.Decimal `json:"grand_total" validate:"omitnil,gte=0"`
	ProgressPayments    *decimal.Decimal `json:"progress_payments" validate:"omitnil,gte=0"`
	SalesRep            *string          `json:"sales_rep" validate:"omitnil,max=120"`
	Status              *OrderStatus     `json:"status" validate:"omitnil,oneof=pending_updates completed"`
}

// Apply copies provided fields onto o. Date parse failures are returned as is.
func (r *UpdateOrderRequest) Apply(o *Order) error {
	set(&o.OrderNo, trimmed(r.OrderNo))
	set(&o.OrderPO, trimmed(r.OrderPO))
	set(&o.OrderType, trimmed(r.OrderType))
	set(&o.SalesRep, trimmed(r.SalesRep))
	if r.OrderDelivered != nil {
		o.OrderDelivered = *r.OrderDelivered
	}
	if r.GrandTotal != nil {
		o.GrandTotal = *r.GrandTotal
	}
	if r.ProgressPayments != nil {
		o.ProgressPayments = *r.ProgressPayments
	}
	if r.Status != nil {
		o.Status = *r.Status
	}
	for _, d := range []struct {
		src  *string
		dst  **time.Time
		name string
	}{
		{r.OrderDate, &o.OrderDate, "order_date"},
		{r.OrderDueDate, &o.OrderDueDate, "order_due_date"},
		{r.QuoteExpirationDate, &o.QuoteExpirationDate, "quote_expiration_date"},
	} {
		if d.src == nil {
			continue
		}
		t, err := ParseDay(d.name, *d.src)
		if err != nil {
			return err
		}
		*d.dst = t
	}
	return nil
}

// StageRequest moves an order to a construction stage.
type StageRequest struct {
	Stage Stage `json:"stage" validate:"required,oneof=waiting_for_permit active completed"`
}

// ItemInput is one spreadsheet row as submitted by the client. ID is empty
// for new rows.
type ItemInput struct {
	ID                       string          `json:"id,omitempty"`
	Type                     ItemType        `json:"type" validate:"required,oneof=maincategory subcategory item"`
	ProductService           string          `json:"product_service" validate:"max=500"`
	Qty                      decimal.Decimal `json:"qty"`
	Rate                     decimal.Decimal `json:"rate"`
	Amount                   decimal.Decimal `json:"amount"`
	MainCategory             string          `json:"main_category" validate:"max=200"`
	SubCategory              string          `json:"sub_category" validate:"max=200"`
	ProgressOverallPct       decimal.Decimal `json:"progress_overall_pct" validate:"gte=0,lte=100"`
	PreviouslyInvoicedPct    decimal.Decimal `json:"previously_invoiced_pct" validate:"gte=0,lte=100"`
	PreviouslyInvoicedAmount decimal.Decimal `json:"previously_invoiced_amount"`
	IsAddendumHeader         bool            `json:"is_addendum_header"`
	AddendumNumber           string          `json:"addendum_number" validate:"max=32"`
	AddendumURLID            string          `json:"addendum_url_id" validate:"max=64"`
}

// ToItem builds an order row from the input.
func (in ItemInput) ToItem(itemID id.OrderItemID, orderID id.OrderID) *OrderItem {
	it := &OrderItem{
		ID:                       itemID,
		OrderID:                  orderID,
		Type:                     in.Type,
		ProductService:           strings.TrimSpace(in.ProductService),
		Qty:                      in.Qty,
		Rate:                     in.Rate,
		Amount:                   in.Amount,
		MainCategory:             strings.TrimSpace(in.MainCategory),
		SubCategory:              strings.TrimSpace(in.SubCategory),
		ProgressOverallPct:       in.ProgressOverallPct,
		PreviouslyInvoicedPct:    in.PreviouslyInvoicedPct,
		PreviouslyInvoicedAmount: in.PreviouslyInvoicedAmount,
		IsAddendumHeader:         in.IsAddendumHeader,
		AddendumNumber:           strings.TrimSpace(in.AddendumNumber),
		AddendumURLID:            strings.TrimSpace(in.AddendumURLID),
	}
	it.Recalculate()
	return it
}

// ReplaceItemsRequest is a full spreadsheet save.
type ReplaceItemsRequest struct {
	Items []ItemInput `json:"items" validate:"dive"`
}

// AddItemRequest inserts one row at Position (appended when nil or past the end).
type AddItemRequest struct {
	Item     ItemInput `json:"item"`
	Position *int      `json:"position" validate:"omitnil,gte=0"`
}

// UpdateItemRequest patches cells of one row.
type UpdateItemRequest struct {
	Type                     *ItemType        `json:"type" validate:"omitnil,oneof=maincategory subcategory item"`
	ProductService           *string          `json:"product_service" validate:"omitnil,max=500"`
	Qty                      *decimal.Decimal `json:"qty"`
	Rate                     *decimal.Decimal `json:"rate"`
	Amount                   *decimal.Decimal `json:"amount"`
	MainCategory             *string          `json:"main_category" validate:"omitnil,max=200"`
	SubCategory              *string          `json:"sub_category" validate:"omitnil,max=200"`
	ProgressOverallPct       *decimal.Decimal `json:"progress_overall_pct" validate:"omitnil,gte=0,lte=100"`
	PreviouslyInvoicedPct    *decimal.Decimal `json:"previously_invoiced_pct" validate:"omitnil,gte=0,lte=100"`
	PreviouslyInvoicedAmount *decimal.Decimal `json:"previously_invoiced_amount"`
	AddendumNumber           *string          `json:"addendum_number" validate:"omitnil,max=32"`
	AddendumURLID            *string          `json:"addendum_url_id" validate:"omitnil,max=64"`
}

// Apply copies provided cells onto it and recalculates derived columns.
func (r *UpdateItemRequest) Apply(it *OrderItem) {
	if r.Type != nil {
		it.Type = *r.Type
	}
	set(&it.ProductService, trimmed(r.ProductService))
	setDecimal(&it.Qty, r.Qty)
	setDecimal(&it.Rate, r.Rate)
	setDecimal(&it.Amount, r.Amount)
	set(&it.MainCategory, trimmed(r.MainCategory))
	set(&it.SubCategory, trimmed(r.SubCategory))
	setDecimal(&it.ProgressOverallPct, r.ProgressOverallPct)
	setDecimal(&it.PreviouslyInvoicedPct, r.PreviouslyInvoicedPct)
	setDecimal(&it.PreviouslyInvoicedAmount, r.PreviouslyInvoicedAmount)
	set(&it.AddendumNumber, trimmed(r.AddendumNumber))
	set(&it.AddendumURLID, trimmed(r.AddendumURLID))
	it.Recalculate()
}

// InvoiceRequest creates an invoice or, with nil fields left unchanged, patches one.
type InvoiceRequest struct {
	InvoiceNumber     *string          `json:"invoice_number" validate:"omitnil,min=1,max=64"`
	InvoiceDate       *string          `json:"invoice_date" validate:"omitnil,max=10"`
	InvoiceAmount     *decimal.Decimal `json:"invoice_amount"`
	PaymentsReceived  *decimal.Decimal `json:"payments_received" validate:"omitnil,gte=0"`
	ExcludeFromTotals *bool            `json:"exclude_from_totals"`
}

// Apply copies provided fields onto inv.
func (r *InvoiceRequest) Apply(inv *Invoice) error {
	set(&inv.InvoiceNumber, trimmed(r.InvoiceNumber))
	setDecimal(&inv.InvoiceAmount, r.InvoiceAmount)
	setDecimal(&inv.PaymentsReceived, r.PaymentsReceived)
	if r.ExcludeFromTotals != nil {
		inv.ExcludeFromTotals = *r.ExcludeFromTotals
	}
	if r.InvoiceDate != nil {
		t, err := ParseDay("invoice_date", *r.InvoiceDate)
		if err != nil {
			return err
		}
		inv.InvoiceDate = t
	}
	inv.Recalculate()
	return nil
}

// ImportOptions controls ImportContract.
type ImportOptions struct {
	Overwrite bool
}

func set(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDecimal(dst *decimal.Decimal, src *decimal.Decimal) {
	if src != nil {
		*dst = *src
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
