// Package domain holds typed identifiers shared across modules.
//
// Each ID is a distinct uuid.UUID type so a CustomerID can never be passed where
// an OrderID is expected. Construct IDs from external input with the Parse
// functions; they reject empty, malformed and nil UUIDs.
package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"

	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

func scanUUID(dst *uuid.UUID, src any) error {
	if src == nil {
		*dst = uuid.Nil
		return nil
	}
	if err := dst.Scan(src); err != nil {
		return fmt.Errorf("scan id: %w", err)
	}
	return nil
}

// CustomerID identifies a customer.
type CustomerID uuid.UUID

// NewCustomerID returns a fresh random CustomerID.
func NewCustomerID() CustomerID { return CustomerID(uuid.New()) }

// ParseCustomerID parses a CustomerID from external input.
func ParseCustomerID(s string) (CustomerID, error) {
	u, err := parseUUID("customer id", s)
	return CustomerID(u), err
}

func (id CustomerID) String() string { return uuid.UUID(id).String() }
func (id CustomerID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id CustomerID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *CustomerID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id CustomerID) Value() (driver.Value, error) {
	if id.IsNil() {
		return nil, nil
	}
	return uuid.UUID(id).String(), nil
}

func (id *CustomerID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }

// OrderID identifies an order.
type OrderID uuid.UUID

// NewOrderID returns a fresh random OrderID.
func NewOrderID() OrderID { return OrderID(uuid.New()) }

// ParseOrderID parses an OrderID from external input.
func ParseOrderID(s string) (OrderID, error) {
	u, err := parseUUID("order id", s)
	return OrderID(u), err
}

func (id OrderID) String() string { return uuid.UUID(id).String() }
func (id OrderID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id OrderID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *OrderID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id OrderID) Value() (driver.Value, error) {
	if id.IsNil() {
		return nil, nil
	}
	return uuid.UUID(id).String(), nil
}

func (id *OrderID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }

// OrderItemID identifies an order item.
type OrderItemID uuid.UUID

// NewOrderItemID returns a fresh random OrderItemID.
func NewOrderItemID() OrderItemID { return OrderItemID(uuid.New()) }

// ParseOrderItemID parses an OrderItemID from external input.
func ParseOrderItemID(s string) (OrderItemID, error) {
	u, err := parseUUID("order item id", s)
	return OrderItemID(u), err
}

func (id OrderItemID) String() string { return uuid.UUID(id).String() }
func (id OrderItemID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id OrderItemID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *OrderItemID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id OrderItemID) Value() (driver.Value, error) {
	if id.IsNil() {
		return nil, nil
	}
	return uuid.UUID(id).String(), nil
}

func (id *OrderItemID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }

// InvoiceID identifies an invoice.
type InvoiceID uuid.UUID

// NewInvoiceID returns a fresh random InvoiceID.
func NewInvoiceID() InvoiceID { return InvoiceID(uuid.New()) }

// ParseInvoiceID parses an InvoiceID from external input.
func ParseInvoiceID(s string) (InvoiceID, error) {
	u, err := parseUUID("invoice id", s)
	return InvoiceID(u), err
}

func (id InvoiceID) String() string { return uuid.UUID(id).String() }
func (id InvoiceID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id InvoiceID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *InvoiceID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id InvoiceID) Value() (driver.Value, error) {
	if id.IsNil() {
		return nil, nil
	}
	return uuid.UUID(id).String(), nil
}

func (id *InvoiceID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }

// ApprovalID identifies an approval.
type ApprovalID uuid.UUID

// NewApprovalID returns a fresh random ApprovalID.
func NewApprovalID() ApprovalID { return ApprovalID(uuid.New()) }

// ParseApprovalID parses an ApprovalID from external input.
func ParseApprovalID(s string) (ApprovalID, error) {
	u, err := parseUUID("approval id", s)
	return ApprovalID(u), err
}

func (id ApprovalID) String() string { return uuid.UUID(id).String() }
func (id ApprovalID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ApprovalID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ApprovalID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id ApprovalID) Value() (driver.Value, error) {
	if id.IsNil() {
		return nil, nil
	}
	return uuid.UUID(id).String(), nil
}

func (id *ApprovalID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }

// ApprovalItemID identifies an approval item.
type ApprovalItemID uuid.UUID

// NewApprovalItemID returns a fresh random ApprovalItemID.
func NewApprovalItemID() ApprovalItemID { return ApprovalItemID(uuid.New()) }

// ParseApprovalItemID parses an ApprovalItemID from external input.
func ParseApprovalItemID(s string) (ApprovalItemID, error) {
	u, err := parseUUID("approval item id", s)
	return ApprovalItemID(u), err
}

func (id ApprovalItemID) String() string { return uuid.UUID(id).String() }
func (id ApprovalItemID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ApprovalItemID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ApprovalItemID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id ApprovalItemID) Value() (driver.Value, error) {
	if id.IsNil() {
		return nil, nil
	}
	return uuid.UUID(id).String(), nil
}

func (id *ApprovalItemID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }

// VendorID identifies a vendor.
type VendorID uuid.UUID

// NewVendorID returns a fresh random VendorID.
func NewVendorID() VendorID { return VendorID(uuid.New()) }

// ParseVendorID parses a VendorID from external input.
func ParseVendorID(s string) (VendorID, error) {
	u, err := parseUUID("vendor id", s)
	return VendorID(u), err
}

func (id VendorID) String() string { return uuid.UUID(id).String() }
func (id VendorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id VendorID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *VendorID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id VendorID) Value() (driver.Value, error) {
	if id.IsNil() {
		return nil, nil
	}
	return uuid.UUID(id).String(), nil
}

func (id *VendorID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }

// UserID identifies a user.
type UserID uuid.UUID

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// ParseUserID parses a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user id", s)
	return UserID(u), err
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id UserID) Value() (driver.Value, error) {
	if id.IsNil() {
		return nil, nil
	}
	return uuid.UUID(id).String(), nil
}

func (id *UserID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }

// ChangeID identifies a change.
type ChangeID uuid.UUID

// NewChangeID returns a fresh random ChangeID.
func NewChangeID() ChangeID { return ChangeID(uuid.New()) }

// ParseChangeID parses a ChangeID from external input.
func ParseChangeID(s string) (ChangeID, error) {
	u, err := parseUUID("change id", s)
	return ChangeID(u), err
}

func (id ChangeID) String() string { return uuid.UUID(id).String() }
func (id ChangeID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ChangeID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ChangeID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id ChangeID) Value() (driver.Value, error) {
	if id.IsNil() {
		return nil, nil
	}
	return uuid.UUID(id).String(), nil
}

func (id *ChangeID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }
