package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	txcontext "github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/tx"
)

// PostgresStore persists change history. It never updates or deletes rows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const insertColumns = `id, change_type, field_name, old_value, new_value, row_index,
	customer_id, order_id, order_item_id, approval_id, changed_by, changed_by_name, client, changed_at`

// appendChunk bounds the statement below PostgreSQL's bind parameter limit.
const appendChunk = 1000

// Append inserts entries with multi-row INSERTs inside the caller's transaction.
func (s *PostgresStore) Append(ctx context.Context, entries []models.Entry) error {
	for start := 0; start < len(entries); start += appendChunk {
		end := min(start+appendChunk, len(entries))
		if err := s.appendBatch(ctx, entries[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) appendBatch(ctx context.Context, entries []models.Entry) error {
	const cols = 14
	var b strings.Builder
	b.WriteString("INSERT INTO change_history (" + insertColumns + ") VALUES ")
	args := make([]any, 0, len(entries)*cols)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 1; c <= cols; c++ {
			if c > 1 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*cols+c)
		}
		b.WriteByte(')')
		args = append(args,
			e.ID, string(e.ChangeType), e.FieldName, e.OldValue, e.NewValue, nullInt(e.RowIndex),
			e.CustomerID, e.OrderID, e.OrderItemID, e.ApprovalID, e.ChangedBy, e.ChangedByName, e.Client, e.ChangedAt,
		)
	}
	if _, err := s.execer(ctx).ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert change history: %w", err)
	}
	return nil
}

// List returns matching entries newest first.
func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]models.Entry, error) {
	filter.Normalize()
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !filter.CustomerID.IsNil() {
		add("customer_id = $%d", filter.CustomerID)
	}
	if !filter.OrderID.IsNil() {
		add("order_id = $%d", filter.OrderID)
	}
	if !filter.ApprovalID.IsNil() {
		add("approval_id = $%d", filter.ApprovalID)
	}
	if len(filter.ChangeTypes) > 0 {
		types := make([]string, len(filter.ChangeTypes))
		for i, t := range filter.ChangeTypes {
			types[i] = string(t)
		}
		add("change_type = ANY($%d::text[])", pq.Array(types))
	}
	if !filter.Since.IsZero() {
		add("changed_at >= $%d", filter.Since)
	}

	query := "SELECT " + insertColumns + " FROM change_history"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY changed_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query change history: %w", err)
	}
	defer rows.Close()

	entries := make([]models.Entry, 0)
	for rows.Next() {
		var (
			e          models.Entry
			changeType string
			rowIndex   sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &changeType, &e.FieldName, &e.OldValue, &e.NewValue, &rowIndex,
			&e.CustomerID, &e.OrderID, &e.OrderItemID, &e.ApprovalID, &e.ChangedBy, &e.ChangedByName, &e.Client, &e.ChangedAt,
		); err != nil {
			return nil, fmt.Errorf("scan change history: %w", err)
		}
		e.ChangeType = models.ChangeType(changeType)
		if rowIndex.Valid {
			e.RowIndex = models.Row(int(rowIndex.Int64))
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change history: %w", err)
	}
	return entries, nil
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
