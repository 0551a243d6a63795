package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
)

// In-memory stores back database-less runs and service tests. Every read
// returns a copy so callers cannot mutate stored state.

type InMemoryCustomers struct {
	mu        sync.RWMutex
	customers map[id.CustomerID]models.Customer
}

func NewInMemoryCustomers() *InMemoryCustomers {
	return &InMemoryCustomers{customers: make(map[id.CustomerID]models.Customer)}
}

func (s *InMemoryCustomers) Create(_ context.Context, c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[c.ID]; ok {
		return fmt.Errorf("customer %s: %w", c.ID, sentinel.ErrAlreadyUsed)
	}
	s.customers[c.ID] = *c
	return nil
}

func (s *InMemoryCustomers) Update(_ context.Context, c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.customers[c.ID] = *c
	return nil
}

func (s *InMemoryCustomers) Delete(_ context.Context, customerID id.CustomerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[customerID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.customers, customerID)
	return nil
}

func (s *InMemoryCustomers) FindByID(_ context.Context, customerID id.CustomerID) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryCustomers) FindByDBXID(_ context.Context, dbxID string) (*models.Customer, error) {
	if dbxID == "" {
		return nil, sentinel.ErrNotFound
	}
	return s.findFirst(func(c models.Customer) bool { return c.DBXCustomerID == dbxID })
}

func (s *InMemoryCustomers) FindByNameEmail(_ context.Context, name, email string) (*models.Customer, error) {
	return s.findFirst(func(c models.Customer) bool {
		return strings.EqualFold(c.Name, name) && strings.EqualFold(c.Email, email)
	})
}

// findFirst returns the oldest matching customer so lookups are stable.
func (s *InMemoryCustomers) findFirst(match func(models.Customer) bool) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.Customer
	for _, c := range s.customers {
		if !match(c) {
			continue
		}
		if found == nil || c.CreatedAt.Before(found.CreatedAt) {
			cc := c
			found = &cc
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found, nil
}

// List returns matching customers ordered by name.
func (s *InMemoryCustomers) List(_ context.Context, filter models.CustomerFilter) ([]*models.Customer, error) {
	s.mu.RLock()
	out := make([]*models.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if !filter.All && c.Status != statusOrActive(filter.Status) {
			continue
		}
		if !c.Matches(filter.Query) {
			continue
		}
		cc := c
		out = append(out, &cc)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func statusOrActive(s models.CustomerStatus) models.CustomerStatus {
	if s == "" {
		return models.CustomerActive
	}
	return s
}

type InMemoryOrders struct {
	mu     sync.RWMutex
	orders map[id.OrderID]models.Order
}

func NewInMemoryOrders() *InMemoryOrders {
	return &InMemoryOrders{orders: make(map[id.OrderID]models.Order)}
}

func (s *InMemoryOrders) Create(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("order %s: %w", o.ID, sentinel.ErrAlreadyUsed)
	}
	if s.orderNoTaken(o.OrderNo, o.ID) {
		return fmt.Errorf("order number %s: %w", o.OrderNo, sentinel.ErrAlreadyUsed)
	}
	s.orders[o.ID] = *o
	return nil
}

func (s *InMemoryOrders) Update(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.orderNoTaken(o.OrderNo, o.ID) {
		return fmt.Errorf("order number %s: %w", o.OrderNo, sentinel.ErrAlreadyUsed)
	}
	s.orders[o.ID] = *o
	return nil
}

func (s *InMemoryOrders) orderNoTaken(orderNo string, except id.OrderID) bool {
	for _, o := range s.orders {
		if o.ID != except && o.OrderNo == orderNo {
			return true
		}
	}
	return false
}

func (s *InMemoryOrders) Delete(_ context.Context, orderID id.OrderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.orders, orderID)
	return nil
}

func (s *InMemoryOrders) FindByID(_ context.Context, orderID id.OrderID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &o, nil
}

func (s *InMemoryOrders) FindByOrderNo(_ context.Context, orderNo string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.OrderNo == orderNo {
			oc := o
			return &oc, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListByCustomer returns the customer's orders newest first.
func (s *InMemoryOrders) ListByCustomer(_ context.Context, customerID id.CustomerID) ([]*models.Order, error) {
	s.mu.RLock()
	out := make([]*models.Order, 0)
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			oc := o
			out = append(out, &oc)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type InMemoryItems struct {
	mu    sync.RWMutex
	items map[id.OrderItemID]models.OrderItem
}

func NewInMemoryItems() *InMemoryItems {
	return &InMemoryItems{items: make(map[id.OrderItemID]models.OrderItem)}
}

// ListByOrder returns the order's rows by row index.
func (s *InMemoryItems) ListByOrder(_ context.Context, orderID id.OrderID) ([]*models.OrderItem, error) {
	s.mu.RLock()
	out := make([]*models.OrderItem, 0)
	for _, it := range s.items {
		if it.OrderID == orderID {
			ic := it
			out = append(out, &ic)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].RowIndex < out[j].RowIndex })
	return out, nil
}

func (s *InMemoryItems) FindByID(_ context.Context, itemID id.OrderItemID) (*models.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &it, nil
}

func (s *InMemoryItems) CreateMany(_ context.Context, items []*models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if _, ok := s.items[it.ID]; ok {
			return fmt.Errorf("order item %s: %w", it.ID, sentinel.ErrAlreadyUsed)
		}
	}
	for _, it := range items {
		s.items[it.ID] = *it
	}
	return nil
}

func (s *InMemoryItems) Update(_ context.Context, it *models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.items[it.ID] = *it
	return nil
}

func (s *InMemoryItems) Delete(_ context.Context, itemID id.OrderItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[itemID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.items, itemID)
	return nil
}

func (s *InMemoryItems) DeleteByOrder(_ context.Context, orderID id.OrderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, it := range s.items {
		if it.OrderID == orderID {
			delete(s.items, k)
		}
	}
	return nil
}

type InMemoryInvoices struct {
	mu       sync.RWMutex
	invoices map[id.InvoiceID]models.Invoice
}

func NewInMemoryInvoices() *InMemoryInvoices {
	return &InMemoryInvoices{invoices: make(map[id.InvoiceID]models.Invoice)}
}

// ListByOrder returns the order's invoices by invoice date, undated last.
func (s *InMemoryInvoices) ListByOrder(_ context.Context, orderID id.OrderID) ([]*models.Invoice, error) {
	s.mu.RLock()
	out := make([]*models.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.OrderID == orderID {
			ic := inv
			out = append(out, &ic)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].InvoiceDate, out[j].InvoiceDate
		switch {
		case a == nil && b == nil:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryInvoices) FindByID(_ context.Context, invoiceID id.InvoiceID) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &inv, nil
}

func (s *InMemoryInvoices) Create(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; ok || s.numberTaken(inv) {
		return fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, sentinel.ErrAlreadyUsed)
	}
	s.invoices[inv.ID] = *inv
	return nil
}

func (s *InMemoryInvoices) Update(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.numberTaken(inv) {
		return fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, sentinel.ErrAlreadyUsed)
	}
	s.invoices[inv.ID] = *inv
	return nil
}

func (s *InMemoryInvoices) numberTaken(inv *models.Invoice) bool {
	for _, other := range s.invoices {
		if other.ID != inv.ID && other.OrderID == inv.OrderID && other.InvoiceNumber == inv.InvoiceNumber {
			return true
		}
	}
	return false
}

func (s *InMemoryInvoices) Delete(_ context.Context, invoiceID id.InvoiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[invoiceID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.invoices, invoiceID)
	return nil
}

func (s *InMemoryInvoices) DeleteByOrder(_ context.Context, orderID id.OrderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, inv := range s.invoices {
		if inv.OrderID == orderID {
			delete(s.invoices, k)
		}
	}
	return nil
}
