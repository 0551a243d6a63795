package models

import (
	"time"

	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
)

// ChangeType classifies a change-history entry.
type ChangeType string

const (
	ChangeCellEdit           ChangeType = "cell_edit"
	ChangeRowAdd             ChangeType = "row_add"
	ChangeRowDelete          ChangeType = "row_delete"
	ChangeRowUpdate          ChangeType = "row_update"
	ChangeCustomerEdit       ChangeType = "customer_edit"
	ChangeOrderEdit          ChangeType = "order_edit"
	ChangeContractAdd        ChangeType = "contract_add"
	ChangeCustomerDelete     ChangeType = "customer_delete"
	ChangeCustomerRestore    ChangeType = "customer_restore"
	ChangeStageUpdate        ChangeType = "stage_update"
	ChangeInvoiceAdd         ChangeType = "invoice_add"
	ChangeInvoiceUpdate      ChangeType = "invoice_update"
	ChangeInvoiceDelete      ChangeType = "invoice_delete"
	ChangeApprovalCreated    ChangeType = "approval_created"
	ChangeApprovalStage      ChangeType = "approval_stage"
	ChangeApprovalSign       ChangeType = "approval_sign"
	ChangeApprovalItemUpdate ChangeType = "approval_item_update"
)

var validChangeTypes = map[ChangeType]bool{
	ChangeCellEdit: true, ChangeRowAdd: true, ChangeRowDelete: true, ChangeRowUpdate: true,
	ChangeCustomerEdit: true, ChangeOrderEdit: true, ChangeContractAdd: true,
	ChangeCustomerDelete: true, ChangeCustomerRestore: true, ChangeStageUpdate: true,
	ChangeInvoiceAdd: true, ChangeInvoiceUpdate: true, ChangeInvoiceDelete: true,
	ChangeApprovalCreated: true, ChangeApprovalStage: true, ChangeApprovalSign: true,
	ChangeApprovalItemUpdate: true,
}

// IsValid reports whether t is a known change type.
func (t ChangeType) IsValid() bool {
	return validChangeTypes[t]
}

// Entry is one immutable row of the change history.
//
// A mutation produces one entry per changed field; structural changes
// (row added, customer deleted) produce a single entry with an empty FieldName.
type Entry struct {
	ID            id.ChangeID    `json:"id"`
	ChangeType    ChangeType     `json:"change_type"`
	FieldName     string         `json:"field_name,omitempty"`
	OldValue      string         `json:"old_value"`
	NewValue      string         `json:"new_value"`
	RowIndex      *int           `json:"row_index,omitempty"`
	CustomerID    id.CustomerID  `json:"customer_id,omitzero"`
	OrderID       id.OrderID     `json:"order_id,omitzero"`
	OrderItemID   id.OrderItemID `json:"order_item_id,omitzero"`
	ApprovalID    id.ApprovalID  `json:"approval_id,omitzero"`
	ChangedBy     id.UserID      `json:"changed_by,omitzero"`
	ChangedByName string         `json:"changed_by_name,omitempty"`
	Client        string         `json:"client,omitempty"`
	ChangedAt     time.Time      `json:"changed_at"`
}

// Row returns a pointer to a copy of i for use as Entry.RowIndex.
func Row(i int) *int {
	return &i
}

// Filter narrows history queries. Zero values match everything.
type Filter struct {
	CustomerID  id.CustomerID
	OrderID     id.OrderID
	ApprovalID  id.ApprovalID
	ChangeTypes []ChangeType
	Since       time.Time
	Limit       int
	Offset      int
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Normalize clamps paging values.
func (f *Filter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Matches reports whether e satisfies every set criterion of f.
func (f Filter) Matches(e Entry) bool {
	if !f.CustomerID.IsNil() && e.CustomerID != f.CustomerID {
		return false
	}
	if !f.OrderID.IsNil() && e.OrderID != f.OrderID {
		return false
	}
	if !f.ApprovalID.IsNil() && e.ApprovalID != f.ApprovalID {
		return false
	}
	if !f.Since.IsZero() && e.ChangedAt.Before(f.Since) {
		return false
	}
	if len(f.ChangeTypes) == 0 {
		return true
	}
	for _, t := range f.ChangeTypes {
		if e.ChangeType == t {
			return true
		}
	}
	return false
}
