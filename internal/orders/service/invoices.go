package service

import (
	"context"
	"errors"
	"strings"

	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/validation"
)

func invoiceStoreError(err error, inv *models.Invoice) error {
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return dErrors.New(dErrors.CodeConflict, "invoice "+inv.InvoiceNumber+" already exists for this order")
	}
	return storeError(err, "invoice not found", "failed to save invoice")
}

func (s *Service) loadInvoice(ctx context.Context, orderID id.OrderID, invoiceID id.InvoiceID) (*models.Invoice, error) {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, storeError(err, "invoice not found", "failed to load invoice")
	}
	if inv.OrderID != orderID {
		return nil, dErrors.New(dErrors.CodeNotFound, "invoice not found")
	}
	return inv, nil
}

func (s *Service) ListInvoices(ctx context.Context, orderID id.OrderID) ([]*models.Invoice, error) {
	if _, err := s.loadOrder(ctx, orderID); err != nil {
		return nil, err
	}
	invoices, err := s.invoices.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list invoices")
	}
	return invoices, nil
}

// CreateInvoice adds an invoice. Invoice numbers are unique per order.
func (s *Service) CreateInvoice(ctx context.Context, orderID id.OrderID, req *models.InvoiceRequest) (*models.Invoice, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.InvoiceNumber == nil || strings.TrimSpace(*req.InvoiceNumber) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "invoice_number is required")
	}
	var created *models.Invoice
	err := s.mutate(ctx, "create_invoice", func(ctx context.Context) error {
		o, _, err := s.loadEditableOrder(ctx, orderID)
		if err != nil {
			return err
		}
		t := now(ctx)
		inv := &models.Invoice{ID: id.NewInvoiceID(), OrderID: orderID, CreatedAt: t, UpdatedAt: t}
		if err := req.Apply(inv); err != nil {
			return err
		}
		if err := s.invoices.Create(ctx, inv); err != nil {
			return invoiceStoreError(err, inv)
		}
		created = inv
		e := orderEntry(hmodels.ChangeInvoiceAdd, o)
		e.FieldName = "invoice_number"
		e.NewValue = hmodels.Summarize(inv.HistoryFields())
		return s.record(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateInvoice patches an invoice and records one invoice_update entry per
// changed field.
func (s *Service) UpdateInvoice(ctx context.Context, orderID id.OrderID, invoiceID id.InvoiceID, req *models.InvoiceRequest) (*models.Invoice, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var updated *models.Invoice
	err := s.mutate(ctx, "update_invoice", func(ctx context.Context) error {
		o, _, err := s.loadEditableOrder(ctx, orderID)
		if err != nil {
			return err
		}
		inv, err := s.loadInvoice(ctx, orderID, invoiceID)
		if err != nil {
			return err
		}
		before := inv.HistoryFields()
		if err := req.Apply(inv); err != nil {
			return err
		}
		if inv.InvoiceNumber == "" {
			return dErrors.New(dErrors.CodeValidation, "invoice_number is required")
		}
		updated = inv
		changes := hmodels.Diff(before, inv.HistoryFields())
		if len(changes) == 0 {
			return nil
		}
		inv.UpdatedAt = now(ctx)
		if err := s.invoices.Update(ctx, inv); err != nil {
			return invoiceStoreError(err, inv)
		}
		return s.record(ctx, hmodels.Expand(orderEntry(hmodels.ChangeInvoiceUpdate, o), changes)...)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) DeleteInvoice(ctx context.Context, orderID id.OrderID, invoiceID id.InvoiceID) error {
	return s.mutate(ctx, "delete_invoice", func(ctx context.Context) error {
		o, _, err := s.loadEditableOrder(ctx, orderID)
		if err != nil {
			return err
		}
		inv, err := s.loadInvoice(ctx, orderID, invoiceID)
		if err != nil {
			return err
		}
		if err := s.invoices.Delete(ctx, invoiceID); err != nil {
			return storeError(err, "invoice not found", "failed to delete invoice")
		}
		e := orderEntry(hmodels.ChangeInvoiceDelete, o)
		e.FieldName = "invoice_number"
		e.OldValue = hmodels.Summarize(inv.HistoryFields())
		return s.record(ctx, e)
	})
}
