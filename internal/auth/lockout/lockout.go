// Package lockout throttles sign-in attempts per username.
package lockout

import (
	"context"
	"log/slog"
	"time"

	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

// Record counts failures inside the current window.
type Record struct {
	Failures    int        `json:"failures"`
	WindowStart time.Time  `json:"window_start"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

func (r *Record) LockedAt(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

// Store persists records by key. Get returns nil, nil for unknown keys.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Put(ctx context.Context, key string, r *Record, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Config struct {
	MaxFailures  int
	Window       time.Duration
	LockDuration time.Duration
}

func DefaultConfig() Config {
	return Config{MaxFailures: 5, Window: 15 * time.Minute, LockDuration: 15 * time.Minute}
}

var errLocked = dErrors.New(dErrors.CodeTooManyRequests, "too many failed sign-in attempts, try again later")

// Guard locks a username for LockDuration after MaxFailures failed
// attempts inside Window.
type Guard struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

type Option func(*Guard)

func WithConfig(cfg Config) Option {
	return func(g *Guard) {
		if cfg.MaxFailures > 0 {
			g.cfg.MaxFailures = cfg.MaxFailures
		}
		if cfg.Window > 0 {
			g.cfg.Window = cfg.Window
		}
		if cfg.LockDuration > 0 {
			g.cfg.LockDuration = cfg.LockDuration
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func New(store Store, opts ...Option) *Guard {
	g := &Guard{store: store, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func key(username string) string {
	return "login:" + username
}

// Check fails with too_many_requests while username is locked.
func (g *Guard) Check(ctx context.Context, username string) error {
	rec, err := g.store.Get(ctx, key(username))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read sign-in lockout")
	}
	if rec != nil && rec.LockedAt(requestcontext.Now(ctx)) {
		return errLocked
	}
	return nil
}

// RecordFailure counts a failed attempt and locks the username once the
// window's budget is spent.
func (g *Guard) RecordFailure(ctx context.Context, username string) error {
	k := key(username)
	rec, err := g.store.Get(ctx, k)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read sign-in lockout")
	}
	now := requestcontext.Now(ctx).UTC()
	if rec == nil || now.Sub(rec.WindowStart) >= g.cfg.Window || (rec.LockedUntil != nil && !rec.LockedAt(now)) {
		rec = &Record{WindowStart: now}
	}
	rec.Failures++
	if rec.Failures >= g.cfg.MaxFailures && rec.LockedUntil == nil {
		until := now.Add(g.cfg.LockDuration)
		rec.LockedUntil = &until
		if g.logger != nil {
			g.logger.WarnContext(ctx, "sign_in_locked",
				"log_type", "audit",
				"username", username,
				"failures", rec.Failures,
				"locked_until", until,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
	if err := g.store.Put(ctx, k, rec, max(g.cfg.Window, g.cfg.LockDuration)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record sign-in failure")
	}
	return nil
}

// Clear forgets failures after a successful sign-in.
func (g *Guard) Clear(ctx context.Context, username string) error {
	if err := g.store.Delete(ctx, key(username)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear sign-in lockout")
	}
	return nil
}
