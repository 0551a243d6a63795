// Package service records and queries the change history.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mssola/useragent"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/history/metrics"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

// Store persists history entries. It is append-only.
type Store interface {
	Append(ctx context.Context, entries []models.Entry) error
	List(ctx context.Context, filter models.Filter) ([]models.Entry, error)
}

// Outbox receives a copy of every entry in the same transaction.
type Outbox interface {
	Enqueue(ctx context.Context, entries []models.Entry) error
}

// Recorder stamps and appends history entries. Record must be called with the
// mutation's transaction context so entries commit or roll back with it.
type Recorder struct {
	store   Store
	outbox  Outbox
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Recorder)

func WithOutbox(o Outbox) Option {
	return func(r *Recorder) {
		r.outbox = o
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

func New(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record stamps entries with the request actor, client and time, then appends
// them. An empty batch is a no-op.
func (r *Recorder) Record(ctx context.Context, entries ...models.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	start := time.Now()
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx).UTC()
	client := ClientSummary(requestcontext.UserAgent(ctx))

	stamped := make([]models.Entry, len(entries))
	for i, e := range entries {
		if !e.ChangeType.IsValid() {
			return dErrors.New(dErrors.CodeInvariantViolation, "unknown change type "+string(e.ChangeType))
		}
		if e.ID.IsNil() {
			e.ID = id.NewChangeID()
		}
		if e.ChangedAt.IsZero() {
			e.ChangedAt = now
		}
		if e.ChangedBy.IsNil() {
			e.ChangedBy = actor.UserID
			e.ChangedByName = actor.Name
		}
		if e.Client == "" {
			e.Client = client
		}
		stamped[i] = e
	}

	if err := r.store.Append(ctx, stamped); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record change history")
	}
	if r.outbox != nil {
		if err := r.outbox.Enqueue(ctx, stamped); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to enqueue change events")
		}
	}

	if r.metrics != nil {
		r.metrics.ObserveRecord(start)
		for _, e := range stamped {
			r.metrics.IncrementRecorded(string(e.ChangeType))
		}
	}
	if r.logger != nil {
		r.logger.DebugContext(ctx, "change history recorded",
			"count", len(stamped),
			"change_type", string(stamped[0].ChangeType),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return nil
}

// List returns entries matching filter, newest first.
func (r *Recorder) List(ctx context.Context, filter models.Filter) ([]models.Entry, error) {
	filter.Normalize()
	for _, t := range filter.ChangeTypes {
		if !t.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "unknown change type: "+string(t))
		}
	}
	entries, err := r.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list change history")
	}
	return entries, nil
}

// ClientSummary condenses a User-Agent header into "Browser Version (OS)".
// Non-browser agents such as the CLI keep their product token.
func ClientSummary(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	if parsed.Bot() {
		return "bot"
	}
	name, version := parsed.Browser()
	if name == "" {
		return ua
	}
	summary := name
	if version != "" {
		summary += " " + majorVersion(version)
	}
	if os := parsed.OS(); os != "" {
		summary += " (" + os + ")"
	}
	return summary
}

func majorVersion(v string) string {
	if i := strings.IndexByte(v, '.'); i > 0 {
		return v[:i]
	}
	return v
}
