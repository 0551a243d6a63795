// Package service owns customers, orders, order rows and invoices. Every
// mutation runs in one transaction together with its change-history entries.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/metrics"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	txcontext "github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/tx"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

var tracer = otel.Tracer("contracts/orders")

type CustomerStore interface {
	Create(ctx context.Context, c *models.Customer) error
	Update(ctx context.Context, c *models.Customer) error
	Delete(ctx context.Context, customerID id.CustomerID) error
	FindByID(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
	FindByDBXID(ctx context.Context, dbxID string) (*models.Customer, error)
	FindByNameEmail(ctx context.Context, name, email string) (*models.Customer, error)
	List(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, error)
}

type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	Update(ctx context.Context, o *models.Order) error
	Delete(ctx context.Context, orderID id.OrderID) error
	FindByID(ctx context.Context, orderID id.OrderID) (*models.Order, error)
	FindByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID id.CustomerID) ([]*models.Order, error)
}

type ItemStore interface {
	ListByOrder(ctx context.Context, orderID id.OrderID) ([]*models.OrderItem, error)
	FindByID(ctx context.Context, itemID id.OrderItemID) (*models.OrderItem, error)
	CreateMany(ctx context.Context, items []*models.OrderItem) error
	Update(ctx context.Context, it *models.OrderItem) error
	Delete(ctx context.Context, itemID id.OrderItemID) error
	DeleteByOrder(ctx context.Context, orderID id.OrderID) error
}

type InvoiceStore interface {
	ListByOrder(ctx context.Context, orderID id.OrderID) ([]*models.Invoice, error)
	FindByID(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error)
	Create(ctx context.Context, inv *models.Invoice) error
	Update(ctx context.Context, inv *models.Invoice) error
	Delete(ctx context.Context, invoiceID id.InvoiceID) error
	DeleteByOrder(ctx context.Context, orderID id.OrderID) error
}

// HistoryRecorder appends change-history entries in the caller's transaction.
type HistoryRecorder interface {
	Record(ctx context.Context, entries ...hmodels.Entry) error
}

// Stores groups the persistence ports of the service.
type Stores struct {
	Customers CustomerStore
	Orders    OrderStore
	Items     ItemStore
	Invoices  InvoiceStore
}

type Service struct {
	customers CustomerStore
	orders    OrderStore
	items     ItemStore
	invoices  InvoiceStore
	tx        txcontext.Runner
	history   HistoryRecorder
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(stores Stores, tx txcontext.Runner, history HistoryRecorder, opts ...Option) *Service {
	s := &Service{
		customers: stores.Customers,
		orders:    stores.Orders,
		items:     stores.Items,
		invoices:  stores.Invoices,
		tx:        tx,
		history:   history,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutate runs fn in a transaction inside a span. Errors that are not already
// domain errors surface as internal errors.
func (s *Service) mutate(ctx context.Context, operation string, fn func(ctx context.Context) error) (err error) {
	ctx, span := tracer.Start(ctx, "orders."+operation)
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, dErrors.MessageOf(err))
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveMutation(operation, start, err)
		}
	}()

	err = s.tx.RunInTx(ctx, fn)
	var de *dErrors.Error
	if err != nil && !errors.As(err, &de) {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+operation)
	}
	return err
}

func (s *Service) record(ctx context.Context, entries ...hmodels.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.history.Record(ctx, entries...)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		args = append(args, "user_id", userID.String())
	}
	s.logger.InfoContext(ctx, event, args...)
}

func now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC()
}

func isNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}

// storeError maps store sentinels onto domain errors.
func storeError(err error, notFound, failure string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrAlreadyUsed), errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, failure)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, failure)
}

func (s *Service) loadCustomer(ctx context.Context, customerID id.CustomerID) (*models.Customer, error) {
	c, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, storeError(err, "customer not found", "failed to load customer")
	}
	return c, nil
}

func (s *Service) loadOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeError(err, "order not found", "failed to load order")
	}
	return o, nil
}

// loadEditableOrder returns the order and its customer, refusing orders of
// soft-deleted customers.
func (s *Service) loadEditableOrder(ctx context.Context, orderID id.OrderID) (*models.Order, *models.Customer, error) {
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.loadCustomer(ctx, o.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	if c.IsDeleted() {
		return nil, nil, dErrors.New(dErrors.CodeConflict, "customer is deleted; restore it to edit its orders")
	}
	return o, c, nil
}

func (s *Service) listItems(ctx context.Context, orderID id.OrderID) ([]*models.OrderItem, error) {
	items, err := s.items.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order items")
	}
	return items, nil
}

func orderEntry(t hmodels.ChangeType, o *models.Order) hmodels.Entry {
	return hmodels.Entry{ChangeType: t, CustomerID: o.CustomerID, OrderID: o.ID}
}
