package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/parser"
	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/validation"
)

// Import modes reported in metrics and history.
const (
	ImportCreated     = "created"
	ImportOverwritten = "overwritten"
)

// ImportContract stores a parsed contract. The customer is matched by DBX id,
// then by name and email; fields the contract states overwrite stored ones.
// An existing order number is a conflict unless opts.Overwrite is set, in which
// case the order header is updated and its rows are replaced.
func (s *Service) ImportContract(ctx context.Context, c *cmodels.Contract, opts models.ImportOptions) (*models.OrderDetail, error) {
	if c == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "contract is required")
	}
	if err := parser.Validate(c); err != nil {
		return nil, err
	}

	var (
		detail *models.OrderDetail
		mode   string
	)
	err := s.mutate(ctx, "import_contract", func(ctx context.Context) error {
		// Every check that can reject the import runs before the first write:
		// the in-memory runner cannot undo a customer update.
		order, err := s.orders.FindByOrderNo(ctx, strings.TrimSpace(c.Order.OrderNo))
		switch {
		case err == nil && !opts.Overwrite:
			return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("order %s already exists", order.OrderNo))
		case err == nil:
			mode = ImportOverwritten
		case isNotFound(err):
			mode = ImportCreated
			order = nil
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up order")
		}

		customer, err := s.upsertCustomer(ctx, c.Customer)
		if err != nil {
			return err
		}

		if order != nil {
			if err := s.overwriteOrder(ctx, order, customer, c); err != nil {
				return err
			}
		} else {
			order = newOrder(ctx, customer.ID, c.Order)
			if err := s.orders.Create(ctx, order); err != nil {
				return storeError(err, "order not found", "failed to create order")
			}
		}

		items := make([]*models.OrderItem, len(c.Items))
		for i, ci := range c.Items {
			items[i] = models.FromContractItem(order.ID, i, ci)
		}
		if err := s.items.CreateMany(ctx, items); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create order items")
		}

		detail = &models.OrderDetail{Order: order, Customer: customer, Items: items}
		return s.record(ctx, hmodels.Entry{
			ChangeType: hmodels.ChangeContractAdd,
			FieldName:  "order_no",
			NewValue:   fmt.Sprintf("%s (%s, %d rows)", order.OrderNo, mode, len(items)),
			CustomerID: customer.ID,
			OrderID:    order.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementImported(mode)
	}
	s.logAudit(ctx, "contract_imported",
		"order_id", detail.Order.ID.String(),
		"order_no", detail.Order.OrderNo,
		"customer_id", detail.Customer.ID.String(),
		"mode", mode,
		"rows", len(detail.Items),
	)
	return detail, nil
}

func (s *Service) upsertCustomer(ctx context.Context, cc cmodels.Customer) (*models.Customer, error) {
	existing, err := s.customers.FindByDBXID(ctx, strings.TrimSpace(cc.DBXCustomerID))
	if isNotFound(err) {
		existing, err = s.customers.FindByNameEmail(ctx, strings.TrimSpace(cc.Name), strings.TrimSpace(cc.Email))
	}
	if err != nil && !isNotFound(err) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up customer")
	}

	t := now(ctx)
	if existing == nil {
		customer := &models.Customer{
			ID:        id.NewCustomerID(),
			Status:    models.CustomerActive,
			CreatedAt: t,
			UpdatedAt: t,
		}
		contractCustomerPatch(cc).Apply(customer)
		if err := s.customers.Create(ctx, customer); err != nil {
			return nil, storeError(err, "customer not found", "failed to create customer")
		}
		return customer, nil
	}

	if existing.IsDeleted() {
		return nil, dErrors.New(dErrors.CodeConflict, "customer "+existing.Name+" is deleted; restore it before importing")
	}
	before := existing.HistoryFields()
	contractCustomerPatch(cc).Apply(existing)
	changes := hmodels.Diff(before, existing.HistoryFields())
	if len(changes) == 0 {
		return existing, nil
	}
	existing.UpdatedAt = t
	if err := s.customers.Update(ctx, existing); err != nil {
		return nil, storeError(err, "customer not found", "failed to update customer")
	}
	if err := s.record(ctx, hmodels.Expand(hmodels.Entry{
		ChangeType: hmodels.ChangeCustomerEdit,
		CustomerID: existing.ID,
	}, changes)...); err != nil {
		return nil, err
	}
	return existing, nil
}

// contractCustomerPatch turns the fields a contract states into a patch; blank
// contract fields leave stored values alone.
func contractCustomerPatch(cc cmodels.Customer) *models.UpdateCustomerRequest {
	opt := func(v string) *string {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		return &v
	}
	req := &models.UpdateCustomerRequest{
		DBXCustomerID: opt(cc.DBXCustomerID),
		Name:          opt(cc.Name),
		Email:         opt(cc.Email),
		Phone:         opt(cc.Phone),
		StreetAddress: opt(cc.StreetAddress),
		City:          opt(cc.City),
		State:         opt(cc.State),
		Zip:           opt(cc.Zip),
	}
	req.Normalize()
	return req
}

func newOrder(ctx context.Context, customerID id.CustomerID, co cmodels.Order) *models.Order {
	t := now(ctx)
	o := &models.Order{
		ID:         id.NewOrderID(),
		CustomerID: customerID,
		Status:     models.OrderPendingUpdates,
		Stage:      models.StageWaitingForPermit,
		CreatedAt:  t,
		UpdatedAt:  t,
	}
	applyContractOrder(o, co)
	return o
}

func applyContractOrder(o *models.Order, co cmodels.Order) {
	o.OrderNo = strings.TrimSpace(co.OrderNo)
	o.OrderDate = co.OrderDate
	o.OrderPO = co.OrderPO
	o.OrderDueDate = co.OrderDueDate
	o.OrderType = co.OrderType
	o.OrderDelivered = co.OrderDelivered
	o.QuoteExpirationDate = co.QuoteExpirationDate
	o.GrandTotal = co.GrandTotal
	o.ProgressPayments = co.ProgressPayments
	o.SalesRep = co.SalesRep
	o.Recalculate()
}

func (s *Service) overwriteOrder(ctx context.Context, o *models.Order, customer *models.Customer, c *cmodels.Contract) error {
	before := o.HistoryFields()
	o.CustomerID = customer.ID
	applyContractOrder(o, c.Order)
	o.UpdatedAt = now(ctx)
	if err := s.orders.Update(ctx, o); err != nil {
		return storeError(err, "order not found", "failed to update order")
	}
	if err := s.items.DeleteByOrder(ctx, o.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace order items")
	}
	return s.record(ctx, hmodels.Expand(orderEntry(hmodels.ChangeOrderEdit, o), hmodels.Diff(before, o.HistoryFields()))...)
}

// GetOrder returns the order with its customer and rows.
func (s *Service) GetOrder(ctx context.Context, orderID id.OrderID) (*models.OrderDetail, error) {
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	c, err := s.loadCustomer(ctx, o.CustomerID)
	if err != nil {
		return nil, err
	}
	items, err := s.listItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &models.OrderDetail{Order: o, Customer: c, Items: items}, nil
}

func (s *Service) ListOrdersByCustomer(ctx context.Context, customerID id.CustomerID) ([]*models.Order, error) {
	if _, err := s.loadCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	orders, err := s.orders.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list orders")
	}
	return orders, nil
}

// UpdateOrder patches header fields and records one order_edit entry per
// changed field, including a recalculated balance due.
func (s *Service) UpdateOrder(ctx context.Context, orderID id.OrderID, req *models.UpdateOrderRequest) (*models.Order, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var updated *models.Order
	err := s.mutate(ctx, "update_order", func(ctx context.Context) error {
		o, _, err := s.loadEditableOrder(ctx, orderID)
		if err != nil {
			return err
		}
		before := o.HistoryFields()
		if err := req.Apply(o); err != nil {
			return err
		}
		if o.OrderNo == "" {
			return dErrors.New(dErrors.CodeValidation, "order_no is required")
		}
		o.Recalculate()
		updated = o
		return s.saveOrder(ctx, o, hmodels.ChangeOrderEdit, before)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStage moves the order to another construction stage.
func (s *Service) UpdateStage(ctx context.Context, orderID id.OrderID, req *models.StageRequest) (*models.Order, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var updated *models.Order
	err := s.mutate(ctx, "update_stage", func(ctx context.Context) error {
		o, _, err := s.loadEditableOrder(ctx, orderID)
		if err != nil {
			return err
		}
		before := []hmodels.Field{hmodels.Text("stage", string(o.Stage))}
		o.Stage = req.Stage
		updated = o
		return s.saveOrderFields(ctx, o, hmodels.ChangeStageUpdate, before, []hmodels.Field{hmodels.Text("stage", string(o.Stage))})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetStatus marks the order pending updates or completed.
func (s *Service) SetStatus(ctx context.Context, orderID id.OrderID, status models.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "status must be one of: pending_updates, completed")
	}
	return s.UpdateOrder(ctx, orderID, &models.UpdateOrderRequest{Status: &status})
}

func (s *Service) saveOrder(ctx context.Context, o *models.Order, changeType hmodels.ChangeType, before []hmodels.Field) error {
	return s.saveOrderFields(ctx, o, changeType, before, o.HistoryFields())
}

func (s *Service) saveOrderFields(ctx context.Context, o *models.Order, changeType hmodels.ChangeType, before, after []hmodels.Field) error {
	changes := hmodels.Diff(before, after)
	if len(changes) == 0 {
		return nil
	}
	o.UpdatedAt = now(ctx)
	if err := s.orders.Update(ctx, o); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.New(dErrors.CodeConflict, "order number "+o.OrderNo+" is already in use")
		}
		return storeError(err, "order not found", "failed to update order")
	}
	return s.record(ctx, hmodels.Expand(orderEntry(changeType, o), changes)...)
}

// Summary totals the order's rows and invoices.
func (s *Service) Summary(ctx context.Context, orderID id.OrderID) (*models.Summary, error) {
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.listItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load invoices")
	}
	summary := models.Summarize(o, items, invoices)
	return &summary, nil
}
