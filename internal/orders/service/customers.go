package service

import (
	"context"

	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/validation"
)

// ListCustomers returns customers matching filter. Soft-deleted customers are
// only listed when asked for by status or with All.
func (s *Service) ListCustomers(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, error) {
	switch filter.Status {
	case "", models.CustomerActive, models.CustomerDeleted:
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "status must be active or deleted")
	}
	customers, err := s.customers.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list customers")
	}
	return customers, nil
}

func (s *Service) GetCustomer(ctx context.Context, customerID id.CustomerID) (*models.Customer, error) {
	return s.loadCustomer(ctx, customerID)
}

// UpdateCustomer applies req and records one customer_edit entry per changed
// field. A request that changes nothing writes nothing.
func (s *Service) UpdateCustomer(ctx context.Context, customerID id.CustomerID, req *models.UpdateCustomerRequest) (*models.Customer, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	req.Normalize()
	if req.Email != nil && *req.Email != "" {
		if err := validation.Var("email", *req.Email, "email"); err != nil {
			return nil, err
		}
	}

	var updated *models.Customer
	err := s.mutate(ctx, "update_customer", func(ctx context.Context) error {
		c, err := s.loadCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if c.IsDeleted() {
			return dErrors.New(dErrors.CodeConflict, "customer is deleted; restore it before editing")
		}
		before := c.HistoryFields()
		req.Apply(c)
		if c.Name == "" {
			return dErrors.New(dErrors.CodeValidation, "name is required")
		}
		changes := hmodels.Diff(before, c.HistoryFields())
		updated = c
		if len(changes) == 0 {
			return nil
		}
		c.UpdatedAt = now(ctx)
		if err := s.customers.Update(ctx, c); err != nil {
			return storeError(err, "customer not found", "failed to update customer")
		}
		return s.record(ctx, hmodels.Expand(hmodels.Entry{
			ChangeType: hmodels.ChangeCustomerEdit,
			CustomerID: c.ID,
		}, changes)...)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCustomer soft-deletes the customer. Its orders stay in place but
// cannot be edited until the customer is restored.
func (s *Service) DeleteCustomer(ctx context.Context, customerID id.CustomerID) (*models.Customer, error) {
	return s.setCustomerStatus(ctx, customerID, models.CustomerDeleted)
}

// RestoreCustomer reverses a soft delete.
func (s *Service) RestoreCustomer(ctx context.Context, customerID id.CustomerID) (*models.Customer, error) {
	return s.setCustomerStatus(ctx, customerID, models.CustomerActive)
}

func (s *Service) setCustomerStatus(ctx context.Context, customerID id.CustomerID, status models.CustomerStatus) (*models.Customer, error) {
	operation, changeType := "delete_customer", hmodels.ChangeCustomerDelete
	if status == models.CustomerActive {
		operation, changeType = "restore_customer", hmodels.ChangeCustomerRestore
	}

	var updated *models.Customer
	err := s.mutate(ctx, operation, func(ctx context.Context) error {
		c, err := s.loadCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if c.Status == status {
			return dErrors.New(dErrors.CodeConflict, "customer is already "+string(status))
		}
		old := c.Status
		t := now(ctx)
		c.Status = status
		c.UpdatedAt = t
		if status == models.CustomerDeleted {
			c.DeletedAt = &t
		} else {
			c.DeletedAt = nil
		}
		if err := s.customers.Update(ctx, c); err != nil {
			return storeError(err, "customer not found", "failed to update customer status")
		}
		updated = c
		return s.record(ctx, hmodels.Entry{
			ChangeType: changeType,
			FieldName:  "status",
			OldValue:   string(old),
			NewValue:   string(status),
			CustomerID: c.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, operation, "customer_id", customerID.String())
	return updated, nil
}

// PurgeCustomer permanently removes a soft-deleted customer with its orders,
// rows and invoices. Change-history entries are kept.
func (s *Service) PurgeCustomer(ctx context.Context, customerID id.CustomerID) error {
	var purgedOrders int
	err := s.mutate(ctx, "purge_customer", func(ctx context.Context) error {
		c, err := s.loadCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if !c.IsDeleted() {
			return dErrors.New(dErrors.CodeConflict, "customer must be deleted before it can be purged")
		}
		orders, err := s.orders.ListByCustomer(ctx, customerID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list customer orders")
		}
		for _, o := range orders {
			if err := s.deleteOrder(ctx, o.ID); err != nil {
				return err
			}
		}
		purgedOrders = len(orders)
		if err := s.customers.Delete(ctx, customerID); err != nil {
			return storeError(err, "customer not found", "failed to delete customer")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncrementPurged()
	}
	s.logAudit(ctx, "purge_customer", "customer_id", customerID.String(), "orders", purgedOrders)
	return nil
}

func (s *Service) deleteOrder(ctx context.Context, orderID id.OrderID) error {
	if err := s.items.DeleteByOrder(ctx, orderID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete order items")
	}
	if err := s.invoices.DeleteByOrder(ctx, orderID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete invoices")
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return storeError(err, "order not found", "failed to delete order")
	}
	return nil
}
