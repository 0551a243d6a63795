// Package models holds the parsed form of a signed contract email.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType classifies a line of the contract's item table.
type ItemType string

const (
	ItemMainCategory ItemType = "maincategory"
	ItemSubCategory  ItemType = "subcategory"
	ItemLine         ItemType = "item"
)

// IsValid reports whether t is a known item type.
func (t ItemType) IsValid() bool {
	switch t {
	case ItemMainCategory, ItemSubCategory, ItemLine:
		return true
	}
	return false
}

// IsHeader reports whether rows of this type are category headers without money fields.
func (t ItemType) IsHeader() bool {
	return t == ItemMainCategory || t == ItemSubCategory
}

// Contract is a parsed signed contract: one customer, one order, its line items.
type Contract struct {
	Customer      Customer       `json:"customer"`
	Order         Order          `json:"order"`
	Items         []Item         `json:"items"`
	AddendumLinks []AddendumLink `json:"addendum_links,omitempty"`
	Source        Source         `json:"source"`
}

// Customer as stated on the contract.
type Customer struct {
	DBXCustomerID string `json:"dbx_customer_id,omitempty"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	StreetAddress string `json:"street_address,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	Zip           string `json:"zip,omitempty"`
}

// Order header fields as stated on the contract.
type Order struct {
	OrderNo             string          `json:"order_no"`
	OrderDate           *time.Time      `json:"order_date,omitempty"`
	OrderPO             string          `json:"order_po,omitempty"`
	OrderDueDate        *time.Time      `json:"order_due_date,omitempty"`
	OrderType           string          `json:"order_type,omitempty"`
	OrderDelivered      bool            `json:"order_delivered"`
	QuoteExpirationDate *time.Time      `json:"quote_expiration_date,omitempty"`
	GrandTotal          decimal.Decimal `json:"grand_total"`
	ProgressPayments    decimal.Decimal `json:"progress_payments"`
	BalanceDue          decimal.Decimal `json:"balance_due"`
	SalesRep            string          `json:"sales_rep,omitempty"`
}

// Item is one row of the contract's item table, including category header rows.
type Item struct {
	Type             ItemType        `json:"type"`
	ProductService   string          `json:"product_service"`
	Qty              decimal.Decimal `json:"qty"`
	Rate             decimal.Decimal `json:"rate"`
	Amount           decimal.Decimal `json:"amount"`
	MainCategory     string          `json:"main_category,omitempty"`
	SubCategory      string          `json:"sub_category,omitempty"`
	AddendumNumber   string          `json:"addendum_number,omitempty"`
	AddendumURLID    string          `json:"addendum_url_id,omitempty"`
	IsAddendumHeader bool            `json:"is_addendum_header,omitempty"`
}

// AddendumLink points at a supplementary item page referenced by the contract.
type AddendumLink struct {
	URL   string `json:"url"`
	URLID string `json:"url_id,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Key identifies the link for de-duplication.
func (l AddendumLink) Key() string {
	if l.URLID != "" {
		return l.URLID
	}
	return l.URL
}

// Source describes the email the contract came from.
type Source struct {
	Subject   string     `json:"subject,omitempty"`
	From      string     `json:"from,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	MessageID string     `json:"message_id,omitempty"`
	Format    string     `json:"format"`
}

// ItemTotal sums the amounts of line items, ignoring header rows.
func (c *Contract) ItemTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		if it.Type == ItemLine {
			total = total.Add(it.Amount)
		}
	}
	return total
}

// LineItemCount counts rows of type item.
func (c *Contract) LineItemCount() int {
	n := 0
	for _, it := range c.Items {
		if it.Type == ItemLine {
			n++
		}
	}
	return n
}
