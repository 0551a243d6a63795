package models

import (
	"github.com/shopspring/decimal"

	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
)

type CreateRequest struct {
	OrderID  id.OrderID       `json:"order_id"`
	VendorID id.VendorID      `json:"vendor_id"`
	ItemIDs  []id.OrderItemID `json:"item_ids" validate:"max=500"`
	Notes    string           `json:"notes" validate:"max=4000"`
}

type ItemsRequest struct {
	ItemIDs []id.OrderItemID `json:"item_ids" validate:"min=1,max=500"`
}

// NegotiatedAmountRequest sets or, with a null amount, clears an item's
// negotiated vendor amount.
type NegotiatedAmountRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"omitnil,gte=0"`
}

type NotesRequest struct {
	Notes string `json:"notes" validate:"max=4000"`
}

// UniqueItemIDs returns ids with duplicates removed, keeping first occurrence.
func UniqueItemIDs(ids []id.OrderItemID) []id.OrderItemID {
	seen := make(map[id.OrderItemID]bool, len(ids))
	out := make([]id.OrderItemID, 0, len(ids))
	for _, itemID := range ids {
		if seen[itemID] {
			continue
		}
		seen[itemID] = true
		out = append(out, itemID)
	}
	return out
}
