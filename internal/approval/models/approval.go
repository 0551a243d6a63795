package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	omodels "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

// Stage is the negotiation stage of an approval.
//
// Transitions:
//
//	draft ──send──▶ negotiating ──both sign-offs──▶ approved
//	  ▲                  │
//	  └─────return───────┘
//
// Approved is terminal and read-only.
type Stage string

const (
	StageDraft       Stage = "draft"
	StageNegotiating Stage = "negotiating"
	StageApproved    Stage = "approved"
)

func (s Stage) IsValid() bool {
	return s == StageDraft || s == StageNegotiating || s == StageApproved
}

// Party is one side of the dual sign-off.
type Party string

const (
	PartyPM     Party = "pm"
	PartyVendor Party = "vendor"
)

// Approval is a vendor negotiation over a selection of an order's items.
//
// Invariants:
//   - Sign-offs only exist in negotiating or approved.
//   - Approved implies both sign-offs and never changes again.
//   - Items are snapshots; only NegotiatedVendorAmount changes after selection.
type Approval struct {
	ID               id.ApprovalID  `json:"id"`
	ReferenceNo      string         `json:"reference_no"`
	OrderID          id.OrderID     `json:"order_id"`
	CustomerID       id.CustomerID  `json:"customer_id"`
	VendorID         id.VendorID    `json:"vendor_id"`
	Stage            Stage          `json:"stage"`
	PMApproved       bool           `json:"pm_approved"`
	PMApprovedBy     id.UserID      `json:"pm_approved_by,omitzero"`
	PMApprovedAt     *time.Time     `json:"pm_approved_at,omitempty"`
	VendorApproved   bool           `json:"vendor_approved"`
	VendorApprovedBy id.UserID      `json:"vendor_approved_by,omitzero"`
	VendorApprovedAt *time.Time     `json:"vendor_approved_at,omitempty"`
	Notes            string         `json:"notes"`
	CreatedBy        id.UserID      `json:"created_by,omitzero"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	SentAt           *time.Time     `json:"sent_at,omitempty"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty"`
	Version          int            `json:"version"`
	Items            []ApprovalItem `json:"items"`
}

// ApprovalItem is a snapshot of an order item taken when it was selected.
// OrderItemID is nil once the source row has been deleted from the order.
type ApprovalItem struct {
	ID                     id.ApprovalItemID   `json:"id"`
	ApprovalID             id.ApprovalID       `json:"approval_id"`
	OrderItemID            id.OrderItemID      `json:"order_item_id,omitzero"`
	Position               int                 `json:"position"`
	ProductService         string              `json:"product_service"`
	MainCategory           string              `json:"main_category"`
	SubCategory            string              `json:"sub_category"`
	Qty                    decimal.Decimal     `json:"qty"`
	Rate                   decimal.Decimal     `json:"rate"`
	OriginalAmount         decimal.Decimal     `json:"original_amount"`
	NegotiatedVendorAmount decimal.NullDecimal `json:"negotiated_vendor_amount"`
}

// EffectiveAmount is the negotiated amount when set, else the original.
func (it *ApprovalItem) EffectiveAmount() decimal.Decimal {
	if it.NegotiatedVendorAmount.Valid {
		return it.NegotiatedVendorAmount.Decimal
	}
	return it.OriginalAmount
}

// HistoryFields lists the snapshot fields rendered into change history.
func (it *ApprovalItem) HistoryFields() []hmodels.Field {
	return []hmodels.Field{
		hmodels.Text("product_service", it.ProductService),
		hmodels.Text("main_category", it.MainCategory),
		hmodels.Decimal("qty", it.Qty),
		hmodels.Money("rate", it.Rate),
		hmodels.Money("original_amount", it.OriginalAmount),
		hmodels.NullMoney("negotiated_vendor_amount", it.NegotiatedVendorAmount),
	}
}

// Snapshot copies the priced fields of an order item.
func Snapshot(approvalID id.ApprovalID, position int, it *omodels.OrderItem) ApprovalItem {
	return ApprovalItem{
		ID:             id.NewApprovalItemID(),
		ApprovalID:     approvalID,
		OrderItemID:    it.ID,
		Position:       position,
		ProductService: it.ProductService,
		MainCategory:   it.MainCategory,
		SubCategory:    it.SubCategory,
		Qty:            it.Qty,
		Rate:           it.Rate,
		OriginalAmount: it.Amount,
	}
}

// FormatReference renders the per-year reference number, e.g. OA-2025-0007.
func FormatReference(year, seq int) string {
	return fmt.Sprintf("OA-%d-%04d", year, seq)
}

type Totals struct {
	Original   decimal.Decimal `json:"original_total"`
	Negotiated decimal.Decimal `json:"negotiated_total"`
	Delta      decimal.Decimal `json:"delta"`
}

// Totals sums original and effective amounts. Delta is negotiated minus original.
func (a *Approval) Totals() Totals {
	t := Totals{Original: decimal.Zero, Negotiated: decimal.Zero}
	for i := range a.Items {
		t.Original = t.Original.Add(a.Items[i].OriginalAmount)
		t.Negotiated = t.Negotiated.Add(a.Items[i].EffectiveAmount())
	}
	t.Delta = t.Negotiated.Sub(t.Original)
	return t
}

func (a *Approval) HasOrderItem(itemID id.OrderItemID) bool {
	for i := range a.Items {
		if a.Items[i].OrderItemID == itemID {
			return true
		}
	}
	return false
}

func (a *Approval) FindItem(itemID id.ApprovalItemID) (*ApprovalItem, bool) {
	for i := range a.Items {
		if a.Items[i].ID == itemID {
			return &a.Items[i], true
		}
	}
	return nil, false
}

func (a *Approval) SignedBy(p Party) bool {
	if p == PartyPM {
		return a.PMApproved
	}
	return a.VendorApproved
}

var errReadOnly = dErrors.New(dErrors.CodeConflict, "approval is read-only")

func stageError(action string, want Stage) error {
	return dErrors.New(dErrors.CodeConflict, action+" requires stage "+string(want))
}

// CanEdit allows item and notes changes in draft and negotiating.
func (a *Approval) CanEdit() error {
	if a.Stage == StageApproved {
		return errReadOnly
	}
	return nil
}

func (a *Approval) CanSetNegotiatedAmount() error {
	if a.Stage == StageApproved {
		return errReadOnly
	}
	if a.Stage != StageNegotiating {
		return stageError("setting negotiated amounts", StageNegotiating)
	}
	return nil
}

func (a *Approval) CanSend() error {
	if a.Stage == StageApproved {
		return errReadOnly
	}
	if a.Stage != StageDraft {
		return stageError("sending to the vendor", StageDraft)
	}
	if len(a.Items) == 0 {
		return dErrors.New(dErrors.CodeValidation, "approval has no items")
	}
	return nil
}

func (a *Approval) ApplySend(now time.Time) {
	a.Stage = StageNegotiating
	a.SentAt = &now
	a.ClearSignOffs()
	a.UpdatedAt = now
}

func (a *Approval) CanReturnToDraft() error {
	if a.Stage == StageApproved {
		return errReadOnly
	}
	if a.Stage != StageNegotiating {
		return stageError("returning to draft", StageNegotiating)
	}
	return nil
}

// ApplyReturnToDraft moves back to draft and returns the sign-offs it cleared.
func (a *Approval) ApplyReturnToDraft(now time.Time) []Party {
	a.Stage = StageDraft
	a.UpdatedAt = now
	return a.ClearSignOffs()
}

func (a *Approval) CanSign(p Party) error {
	if a.Stage == StageApproved {
		return errReadOnly
	}
	if a.Stage != StageNegotiating {
		return stageError("sign-off", StageNegotiating)
	}
	if a.SignedBy(p) {
		return dErrors.New(dErrors.CodeConflict, string(p)+" has already approved")
	}
	return nil
}

// ApplySign records p's sign-off and reports whether the approval is now
// fully approved.
func (a *Approval) ApplySign(p Party, by id.UserID, now time.Time) bool {
	switch p {
	case PartyPM:
		a.PMApproved, a.PMApprovedBy, a.PMApprovedAt = true, by, &now
	case PartyVendor:
		a.VendorApproved, a.VendorApprovedBy, a.VendorApprovedAt = true, by, &now
	}
	a.UpdatedAt = now
	if a.PMApproved && a.VendorApproved {
		a.Stage = StageApproved
		a.ApprovedAt = &now
		return true
	}
	return false
}

func (a *Approval) CanWithdraw(p Party) error {
	if a.Stage == StageApproved {
		return errReadOnly
	}
	if a.Stage != StageNegotiating {
		return stageError("withdrawing a sign-off", StageNegotiating)
	}
	if !a.SignedBy(p) {
		return dErrors.New(dErrors.CodeConflict, string(p)+" has not approved")
	}
	return nil
}

func (a *Approval) ApplyWithdraw(p Party, now time.Time) {
	switch p {
	case PartyPM:
		a.PMApproved, a.PMApprovedBy, a.PMApprovedAt = false, id.UserID{}, nil
	case PartyVendor:
		a.VendorApproved, a.VendorApprovedBy, a.VendorApprovedAt = false, id.UserID{}, nil
	}
	a.UpdatedAt = now
}

func (a *Approval) CanDelete() error {
	if a.Stage == StageApproved {
		return errReadOnly
	}
	if a.Stage != StageDraft {
		return stageError("deleting an approval", StageDraft)
	}
	return nil
}

// ClearSignOffs removes both sign-offs and returns the parties that had signed.
func (a *Approval) ClearSignOffs() []Party {
	var cleared []Party
	if a.PMApproved {
		cleared = append(cleared, PartyPM)
	}
	if a.VendorApproved {
		cleared = append(cleared, PartyVendor)
	}
	a.PMApproved, a.PMApprovedBy, a.PMApprovedAt = false, id.UserID{}, nil
	a.VendorApproved, a.VendorApprovedBy, a.VendorApprovedAt = false, id.UserID{}, nil
	return cleared
}

// AppendItems adds snapshots, skipping order items already selected.
// It returns the snapshots actually added.
func (a *Approval) AppendItems(items []*omodels.OrderItem) []ApprovalItem {
	var added []ApprovalItem
	for _, it := range items {
		if a.HasOrderItem(it.ID) {
			continue
		}
		snap := Snapshot(a.ID, len(a.Items), it)
		a.Items = append(a.Items, snap)
		added = append(added, snap)
	}
	return added
}

// RemoveItem drops an item and renumbers positions.
func (a *Approval) RemoveItem(itemID id.ApprovalItemID) (ApprovalItem, bool) {
	for i := range a.Items {
		if a.Items[i].ID != itemID {
			continue
		}
		removed := a.Items[i]
		a.Items = append(a.Items[:i], a.Items[i+1:]...)
		for j := range a.Items {
			a.Items[j].Position = j
		}
		return removed, true
	}
	return ApprovalItem{}, false
}

// Filter narrows approval listings. Zero values match everything.
type Filter struct {
	OrderID  id.OrderID
	VendorID id.VendorID
	Stage    Stage
}

func (f Filter) Matches(a *Approval) bool {
	if !f.OrderID.IsNil() && a.OrderID != f.OrderID {
		return false
	}
	if !f.VendorID.IsNil() && a.VendorID != f.VendorID {
		return false
	}
	return f.Stage == "" || a.Stage == f.Stage
}

// Detail is an approval with its computed totals.
type Detail struct {
	*Approval
	Totals Totals `json:"totals"`
}

func NewDetail(a *Approval) *Detail {
	return &Detail{Approval: a, Totals: a.Totals()}
}
