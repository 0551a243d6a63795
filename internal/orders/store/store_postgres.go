package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/database"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	txcontext "github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/tx"
)

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type pg struct {
	db *sql.DB
}

func (p pg) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return p.db
}

// exec runs a single-row mutation and maps driver errors onto sentinels.
func (p pg) exec(ctx context.Context, what, query string, args ...any) error {
	res, err := p.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%s: %w", what, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

// PostgresCustomers persists customers.
type PostgresCustomers struct{ pg }

func NewPostgresCustomers(db *sql.DB) *PostgresCustomers {
	return &PostgresCustomers{pg{db: db}}
}

const customerColumns = `id, dbx_customer_id, name, email, phone, street_address, city, state, zip,
	status, deleted_at, created_at, updated_at`

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.DBXCustomerID, &c.Name, &c.Email, &c.Phone, &c.StreetAddress,
		&c.City, &c.State, &c.Zip, &c.Status, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresCustomers) Create(ctx context.Context, c *models.Customer) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO customers (`+customerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.DBXCustomerID, c.Name, c.Email, c.Phone, c.StreetAddress, c.City, c.State, c.Zip,
		c.Status, c.DeletedAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("insert customer: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (s *PostgresCustomers) Update(ctx context.Context, c *models.Customer) error {
	return s.exec(ctx, "update customer",
		`UPDATE customers SET dbx_customer_id = $2, name = $3, email = $4, phone = $5, street_address = $6,
			city = $7, state = $8, zip = $9, status = $10, deleted_at = $11, updated_at = $12
		WHERE id = $1`,
		c.ID, c.DBXCustomerID, c.Name, c.Email, c.Phone, c.StreetAddress, c.City, c.State, c.Zip,
		c.Status, c.DeletedAt, c.UpdatedAt)
}

// Delete removes the customer; orders, items and invoices cascade.
func (s *PostgresCustomers) Delete(ctx context.Context, customerID id.CustomerID) error {
	return s.exec(ctx, "delete customer", `DELETE FROM customers WHERE id = $1`, customerID)
}

func (s *PostgresCustomers) FindByID(ctx context.Context, customerID id.CustomerID) (*models.Customer, error) {
	c, err := scanCustomer(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, customerID))
	if err != nil {
		return nil, notFound(err, "find customer")
	}
	return c, nil
}

func (s *PostgresCustomers) FindByDBXID(ctx context.Context, dbxID string) (*models.Customer, error) {
	if dbxID == "" {
		return nil, sentinel.ErrNotFound
	}
	c, err := scanCustomer(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE dbx_customer_id = $1 ORDER BY created_at LIMIT 1`, dbxID))
	if err != nil {
		return nil, notFound(err, "find customer by dbx id")
	}
	return c, nil
}

func (s *PostgresCustomers) FindByNameEmail(ctx context.Context, name, email string) (*models.Customer, error) {
	c, err := scanCustomer(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers
		WHERE LOWER(name) = LOWER($1) AND LOWER(email) = LOWER($2)
		ORDER BY created_at LIMIT 1`, name, email))
	if err != nil {
		return nil, notFound(err, "find customer by name and email")
	}
	return c, nil
}

// List returns matching customers ordered by name.
func (s *PostgresCustomers) List(ctx context.Context, filter models.CustomerFilter) ([]*models.Customer, error) {
	var (
		where []string
		args  []any
	)
	if !filter.All {
		args = append(args, statusOrActive(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(q))+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(LOWER(name) LIKE $%[1]d OR LOWER(email) LIKE $%[1]d OR LOWER(dbx_customer_id) LIKE $%[1]d OR LOWER(city) LIKE $%[1]d)", n))
	}
	query := `SELECT ` + customerColumns + ` FROM customers`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY LOWER(name), created_at"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// PostgresOrders persists orders.
type PostgresOrders struct{ pg }

func NewPostgresOrders(db *sql.DB) *PostgresOrders {
	return &PostgresOrders{pg{db: db}}
}

const orderColumns = `id, customer_id, order_no, order_date, order_po, order_due_date, order_type,
	order_delivered, quote_expiration_date, grand_total, progress_payments, balance_due, sales_rep,
	status, stage, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderNo, &o.OrderDate, &o.OrderPO, &o.OrderDueDate, &o.OrderType,
		&o.OrderDelivered, &o.QuoteExpirationDate, &o.GrandTotal, &o.ProgressPayments, &o.BalanceDue, &o.SalesRep,
		&o.Status, &o.Stage, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresOrders) Create(ctx context.Context, o *models.Order) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		o.ID, o.CustomerID, o.OrderNo, o.OrderDate, o.OrderPO, o.OrderDueDate, o.OrderType,
		o.OrderDelivered, o.QuoteExpirationDate, o.GrandTotal, o.ProgressPayments, o.BalanceDue, o.SalesRep,
		o.Status, o.Stage, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("insert order %s: %w", o.OrderNo, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PostgresOrders) Update(ctx context.Context, o *models.Order) error {
	return s.exec(ctx, "update order",
		`UPDATE orders SET customer_id = $2, order_no = $3, order_date = $4, order_po = $5, order_due_date = $6,
			order_type = $7, order_delivered = $8, quote_expiration_date = $9, grand_total = $10,
			progress_payments = $11, balance_due = $12, sales_rep = $13, status = $14, stage = $15, updated_at = $16
		WHERE id = $1`,
		o.ID, o.CustomerID, o.OrderNo, o.OrderDate, o.OrderPO, o.OrderDueDate,
		o.OrderType, o.OrderDelivered, o.QuoteExpirationDate, o.GrandTotal,
		o.ProgressPayments, o.BalanceDue, o.SalesRep, o.Status, o.Stage, o.UpdatedAt)
}

func (s *PostgresOrders) Delete(ctx context.Context, orderID id.OrderID) error {
	return s.exec(ctx, "delete order", `DELETE FROM orders WHERE id = $1`, orderID)
}

func (s *PostgresOrders) FindByID(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	o, err := scanOrder(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		return nil, notFound(err, "find order")
	}
	return o, nil
}

func (s *PostgresOrders) FindByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	o, err := scanOrder(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_no = $1`, orderNo))
	if err != nil {
		return nil, notFound(err, "find order by number")
	}
	return o, nil
}

// ListByCustomer returns the customer's orders newest first.
func (s *PostgresOrders) ListByCustomer(ctx context.Context, customerID id.CustomerID) ([]*models.Order, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

// PostgresItems persists order rows.
type PostgresItems struct{ pg }

func NewPostgresItems(db *sql.DB) *PostgresItems {
	return &PostgresItems{pg{db: db}}
}

const itemColumns = `id, order_id, row_index, item_type, product_service, qty, rate, amount,
	main_category, sub_category, progress_overall_pct, completed_amount, previously_invoiced_pct,
	previously_invoiced_amount, new_progress_pct, this_bill, is_addendum_header, addendum_number, addendum_url_id`

const itemColumnCount = 19

// itemChunk keeps multi-row inserts under the bind parameter limit.
const itemChunk = 500

func itemArgs(it *models.OrderItem) []any {
	return []any{
		it.ID, it.OrderID, it.RowIndex, string(it.Type), it.ProductService, it.Qty, it.Rate, it.Amount,
		it.MainCategory, it.SubCategory, it.ProgressOverallPct, it.CompletedAmount, it.PreviouslyInvoicedPct,
		it.PreviouslyInvoicedAmount, it.NewProgressPct, it.ThisBill, it.IsAddendumHeader, it.AddendumNumber, it.AddendumURLID,
	}
}

func scanItem(row rowScanner) (*models.OrderItem, error) {
	var (
		it       models.OrderItem
		itemType string
	)
	err := row.Scan(&it.ID, &it.OrderID, &it.RowIndex, &itemType, &it.ProductService, &it.Qty, &it.Rate, &it.Amount,
		&it.MainCategory, &it.SubCategory, &it.ProgressOverallPct, &it.CompletedAmount, &it.PreviouslyInvoicedPct,
		&it.PreviouslyInvoicedAmount, &it.NewProgressPct, &it.ThisBill, &it.IsAddendumHeader, &it.AddendumNumber, &it.AddendumURLID)
	if err != nil {
		return nil, err
	}
	it.Type = models.ItemType(itemType)
	return &it, nil
}

// ListByOrder returns the order's rows by row index.
func (s *PostgresItems) ListByOrder(ctx context.Context, orderID id.OrderID) ([]*models.OrderItem, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY row_index, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	out := make([]*models.OrderItem, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return out, nil
}

func (s *PostgresItems) FindByID(ctx context.Context, itemID id.OrderItemID) (*models.OrderItem, error) {
	it, err := scanItem(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE id = $1`, itemID))
	if err != nil {
		return nil, notFound(err, "find order item")
	}
	return it, nil
}

// CreateMany inserts rows with multi-row INSERTs.
func (s *PostgresItems) CreateMany(ctx context.Context, items []*models.OrderItem) error {
	for start := 0; start < len(items); start += itemChunk {
		end := min(start+itemChunk, len(items))
		if err := s.insertBatch(ctx, items[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresItems) insertBatch(ctx context.Context, items []*models.OrderItem) error {
	var b strings.Builder
	b.WriteString("INSERT INTO order_items (" + itemColumns + ") VALUES ")
	args := make([]any, 0, len(items)*itemColumnCount)
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 1; c <= itemColumnCount; c++ {
			if c > 1 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*itemColumnCount+c)
		}
		b.WriteByte(')')
		args = append(args, itemArgs(it)...)
	}
	if _, err := s.execer(ctx).ExecContext(ctx, b.String(), args...); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("insert order items: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

func (s *PostgresItems) Update(ctx context.Context, it *models.OrderItem) error {
	return s.exec(ctx, "update order item",
		`UPDATE order_items SET order_id = $2, row_index = $3, item_type = $4, product_service = $5, qty = $6,
			rate = $7, amount = $8, main_category = $9, sub_category = $10, progress_overall_pct = $11,
			completed_amount = $12, previously_invoiced_pct = $13, previously_invoiced_amount = $14,
			new_progress_pct = $15, this_bill = $16, is_addendum_header = $17, addendum_number = $18,
			addendum_url_id = $19
		WHERE id = $1`, itemArgs(it)...)
}

func (s *PostgresItems) Delete(ctx context.Context, itemID id.OrderItemID) error {
	return s.exec(ctx, "delete order item", `DELETE FROM order_items WHERE id = $1`, itemID)
}

func (s *PostgresItems) DeleteByOrder(ctx context.Context, orderID id.OrderID) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	return nil
}

// PostgresInvoices persists invoices.
type PostgresInvoices struct{ pg }

func NewPostgresInvoices(db *sql.DB) *PostgresInvoices {
	return &PostgresInvoices{pg{db: db}}
}

const invoiceColumns = `id, order_id, invoice_number, invoice_date, invoice_amount, payments_received,
	exclude_from_totals, created_at, updated_at`

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.OrderID, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.InvoiceAmount,
		&inv.PaymentsReceived, &inv.ExcludeFromTotals, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.Recalculate()
	return &inv, nil
}

// ListByOrder returns the order's invoices by invoice date, undated last.
func (s *PostgresInvoices) ListByOrder(ctx context.Context, orderID id.OrderID) ([]*models.Invoice, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1
		ORDER BY invoice_date NULLS LAST, created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return out, nil
}

func (s *PostgresInvoices) FindByID(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error) {
	inv, err := scanInvoice(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, invoiceID))
	if err != nil {
		return nil, notFound(err, "find invoice")
	}
	return inv, nil
}

func (s *PostgresInvoices) Create(ctx context.Context, inv *models.Invoice) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO invoices (`+invoiceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.OrderID, inv.InvoiceNumber, inv.InvoiceDate, inv.InvoiceAmount, inv.PaymentsReceived,
		inv.ExcludeFromTotals, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("insert invoice %s: %w", inv.InvoiceNumber, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (s *PostgresInvoices) Update(ctx context.Context, inv *models.Invoice) error {
	return s.exec(ctx, "update invoice",
		`UPDATE invoices SET invoice_number = $2, invoice_date = $3, invoice_amount = $4, payments_received = $5,
			exclude_from_totals = $6, updated_at = $7
		WHERE id = $1`,
		inv.ID, inv.InvoiceNumber, inv.InvoiceDate, inv.InvoiceAmount, inv.PaymentsReceived,
		inv.ExcludeFromTotals, inv.UpdatedAt)
}

func (s *PostgresInvoices) Delete(ctx context.Context, invoiceID id.InvoiceID) error {
	return s.exec(ctx, "delete invoice", `DELETE FROM invoices WHERE id = $1`, invoiceID)
}

func (s *PostgresInvoices) DeleteByOrder(ctx context.Context, orderID id.OrderID) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM invoices WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete invoices: %w", err)
	}
	return nil
}
