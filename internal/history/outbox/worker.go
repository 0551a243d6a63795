package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	txcontext "github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/tx"
)

// Publisher delivers outbox messages to the change feed.
type Publisher interface {
	Publish(ctx context.Context, msgs []Message) error
}

// Store is the subset of PostgresOutbox the worker needs.
type Store interface {
	ClaimBatch(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Worker polls the outbox and publishes claimed batches. A batch is claimed,
// published and marked inside one transaction, so a failed publish leaves
// the rows for the next poll.
type Worker struct {
	store     Store
	publisher Publisher
	tx        txcontext.Runner
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewWorker(store Store, publisher Publisher, tx txcontext.Runner, logger *slog.Logger, interval time.Duration, batchSize int) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Worker{
		store:     store,
		publisher: publisher,
		tx:        tx,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until ctx is cancelled. Full batches are drained without waiting.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		n, err := w.PublishOnce(ctx)
		if err != nil && ctx.Err() == nil {
			w.logger.WarnContext(ctx, "outbox publish failed", "error", err)
		}
		if err == nil && n == w.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PublishOnce publishes a single batch and returns how many rows it covered.
func (w *Worker) PublishOnce(ctx context.Context) (int, error) {
	published := 0
	err := w.tx.RunInTx(ctx, func(txCtx context.Context) error {
		msgs, err := w.store.ClaimBatch(txCtx, w.batchSize)
		if err != nil || len(msgs) == 0 {
			return err
		}
		if err := w.publisher.Publish(txCtx, msgs); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}
		if err := w.store.MarkPublished(txCtx, ids, time.Now().UTC()); err != nil {
			return err
		}
		published = len(msgs)
		return nil
	})
	return published, err
}
