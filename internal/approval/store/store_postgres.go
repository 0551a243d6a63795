package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/approval/models"
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

// PostgresStore persists approvals and their item snapshots. Writes touch
// two tables and must run inside a transaction from the service's runner.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const approvalColumns = `id, reference_no, order_id, customer_id, vendor_id, stage,
	pm_approved, pm_approved_by, pm_approved_at, vendor_approved, vendor_approved_by, vendor_approved_at,
	notes, created_by, created_at, updated_at, sent_at, approved_at, version`

const itemColumns = `id, approval_id, order_item_id, position, product_service, main_category,
	sub_category, qty, rate, original_amount, negotiated_vendor_amount`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApproval(row rowScanner) (*models.Approval, error) {
	var a models.Approval
	err := row.Scan(&a.ID, &a.ReferenceNo, &a.OrderID, &a.CustomerID, &a.VendorID, &a.Stage,
		&a.PMApproved, &a.PMApprovedBy, &a.PMApprovedAt, &a.VendorApproved, &a.VendorApprovedBy, &a.VendorApprovedAt,
		&a.Notes, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt, &a.SentAt, &a.ApprovedAt, &a.Version)
	if err != nil {
		return nil, err
	}
	a.Items = []models.ApprovalItem{}
	return &a, nil
}

func scanItem(row rowScanner) (models.ApprovalItem, error) {
	var it models.ApprovalItem
	err := row.Scan(&it.ID, &it.ApprovalID, &it.OrderItemID, &it.Position, &it.ProductService, &it.MainCategory,
		&it.SubCategory, &it.Qty, &it.Rate, &it.OriginalAmount, &it.NegotiatedVendorAmount)
	return it, err
}

// NextReference increments the per-year counter in approval_sequences. The
// row lock is held until the surrounding transaction ends, so numbers are
// gap-free for committed approvals.
func (s *PostgresStore) NextReference(ctx context.Context, year int) (string, error) {
	var seq int
	err := s.execer(ctx).QueryRowContext(ctx,
		`INSERT INTO approval_sequences (year, last_value) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = approval_sequences.last_value + 1
		RETURNING last_value`, year).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next approval reference: %w", err)
	}
	return models.FormatReference(year, seq), nil
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Approval) error {
	a.Version = 1
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO order_approvals (`+approvalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		a.ID, a.ReferenceNo, a.OrderID, a.CustomerID, a.VendorID, a.Stage,
		a.PMApproved, a.PMApprovedBy, a.PMApprovedAt, a.VendorApproved, a.VendorApprovedBy, a.VendorApprovedAt,
		a.Notes, a.CreatedBy, a.CreatedAt, a.UpdatedAt, a.SentAt, a.ApprovedAt, a.Version)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("insert approval: %w", sentinel.ErrAlreadyUsed)
		}
		if database.IsForeignKeyViolation(err) {
			// The order or vendor was removed after the service checked it.
			return fmt.Errorf("insert approval: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("insert approval: %w", err)
	}
	return s.insertItems(ctx, a.Items)
}

// Update writes a guarded by its version. A stale version yields
// sentinel.ErrConflict; a missing row yields sentinel.ErrNotFound.
func (s *PostgresStore) Update(ctx context.Context, a *models.Approval) error {
	ex := s.execer(ctx)
	res, err := ex.ExecContext(ctx,
		`UPDATE order_approvals SET stage = $3, pm_approved = $4, pm_approved_by = $5, pm_approved_at = $6,
			vendor_approved = $7, vendor_approved_by = $8, vendor_approved_at = $9, notes = $10,
			updated_at = $11, sent_at = $12, approved_at = $13, version = version + 1
		WHERE id = $1 AND version = $2`,
		a.ID, a.Version, a.Stage, a.PMApproved, a.PMApprovedBy, a.PMApprovedAt,
		a.VendorApproved, a.VendorApprovedBy, a.VendorApprovedAt, a.Notes,
		a.UpdatedAt, a.SentAt, a.ApprovedAt)
	if err != nil {
		return fmt.Errorf("update approval: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update approval: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := ex.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM order_approvals WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check approval: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("approval %s version %d: %w", a.ID, a.Version, sentinel.ErrConflict)
	}
	a.Version++

	if _, err := ex.ExecContext(ctx, `DELETE FROM order_approval_items WHERE approval_id = $1`, a.ID); err != nil {
		return fmt.Errorf("clear approval items: %w", err)
	}
	return s.insertItems(ctx, a.Items)
}

func (s *PostgresStore) insertItems(ctx context.Context, items []models.ApprovalItem) error {
	if len(items) == 0 {
		return nil
	}
	const cols = 11
	var sb strings.Builder
	sb.WriteString(`INSERT INTO order_approval_items (` + itemColumns + `) VALUES `)
	args := make([]any, 0, len(items)*cols)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := 0; c < cols; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*cols+c+1)
		}
		sb.WriteString(")")
		args = append(args, it.ID, it.ApprovalID, it.OrderItemID, it.Position, it.ProductService, it.MainCategory,
			it.SubCategory, it.Qty, it.Rate, it.OriginalAmount, it.NegotiatedVendorAmount)
	}
	if _, err := s.execer(ctx).ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert approval items: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, approvalID id.ApprovalID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM order_approvals WHERE id = $1`, approvalID)
	if err != nil {
		return fmt.Errorf("delete approval: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete approval: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, approvalID id.ApprovalID) (*models.Approval, error) {
	a, err := scanApproval(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+approvalColumns+` FROM order_approvals WHERE id = $1`, approvalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find approval: %w", err)
	}
	if err := s.attachItems(ctx, []*models.Approval{a}); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]*models.Approval, error) {
	var (
		where []string
		args  []any
	)
	if !filter.OrderID.IsNil() {
		args = append(args, filter.OrderID)
		where = append(where, fmt.Sprintf("order_id = $%d", len(args)))
	}
	if !filter.VendorID.IsNil() {
		args = append(args, filter.VendorID)
		where = append(where, fmt.Sprintf("vendor_id = $%d", len(args)))
	}
	if filter.Stage != "" {
		args = append(args, filter.Stage)
		where = append(where, fmt.Sprintf("stage = $%d", len(args)))
	}
	query := `SELECT ` + approvalColumns + ` FROM order_approvals`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, reference_no DESC"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Approval, 0)
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approvals: %w", err)
	}
	if err := s.attachItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachItems loads the items of every approval in one query.
func (s *PostgresStore) attachItems(ctx context.Context, approvals []*models.Approval) error {
	if len(approvals) == 0 {
		return nil
	}
	byID := make(map[id.ApprovalID]*models.Approval, len(approvals))
	ids := make([]string, 0, len(approvals))
	for _, a := range approvals {
		byID[a.ID] = a
		ids = append(ids, a.ID.String())
	}
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_approval_items
		WHERE approval_id = ANY($1::uuid[]) ORDER BY approval_id, position`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list approval items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return fmt.Errorf("scan approval item: %w", err)
		}
		if a, ok := byID[it.ApprovalID]; ok {
			a.Items = append(a.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate approval items: %w", err)
	}
	return nil
}
