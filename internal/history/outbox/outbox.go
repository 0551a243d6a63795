// Package outbox implements the transactional outbox that feeds change-history
// entries to Kafka. Entries are enqueued in the same transaction as the
// mutation that produced them; Worker publishes and marks them afterwards.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	txcontext "github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/tx"
)

// Message is an unpublished outbox row.
type Message struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// PostgresOutbox stores outbox rows in the outbox table.
type PostgresOutbox struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (o *PostgresOutbox) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return o.db
}

// Enqueue writes one outbox row per entry. Aggregate is the order when known,
// so a Kafka partition keeps an order's changes in sequence.
func (o *PostgresOutbox) Enqueue(ctx context.Context, entries []models.Entry) error {
	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal outbox payload: %w", err)
		}
		aggregateType, aggregateID := aggregateOf(e)
		_, err = o.execer(ctx).ExecContext(ctx, `
			INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), aggregateType, aggregateID, string(e.ChangeType), payload, e.ChangedAt,
		)
		if err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}
	return nil
}

func aggregateOf(e models.Entry) (string, string) {
	switch {
	case !e.OrderID.IsNil():
		return "order", e.OrderID.String()
	case !e.CustomerID.IsNil():
		return "customer", e.CustomerID.String()
	case !e.ApprovalID.IsNil():
		return "approval", e.ApprovalID.String()
	default:
		return "change", e.ID.String()
	}
}

// ClaimBatch locks up to limit unpublished rows for the duration of txCtx's
// transaction. Concurrent workers skip rows another worker holds.
func (o *PostgresOutbox) ClaimBatch(ctx context.Context, limit int) ([]Message, error) {
	rows, err := o.execer(ctx).QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox batch: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.AggregateID, &m.EventType, &m.Payload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return msgs, nil
}

// MarkPublished stamps rows as published.
func (o *PostgresOutbox) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := o.execer(ctx).ExecContext(ctx,
		`UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`, at, pq.Array(strs))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
