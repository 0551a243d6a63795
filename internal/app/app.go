// Package app assembles stores and services from configuration. Both the
// server and contractctl build on it so they share one wiring.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/addendum"
	addendummetrics "github.com/blastheart1/signed-contract-parser-sub003/internal/addendum/metrics"
	approvalmetrics "github.com/blastheart1/signed-contract-parser-sub003/internal/approval/metrics"
	approvalservice "github.com/blastheart1/signed-contract-parser-sub003/internal/approval/service"
	approvalstore "github.com/blastheart1/signed-contract-parser-sub003/internal/approval/store"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/lockout"
	authservice "github.com/blastheart1/signed-contract-parser-sub003/internal/auth/service"
	authstore "github.com/blastheart1/signed-contract-parser-sub003/internal/auth/store"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/auth/token"
	contractmetrics "github.com/blastheart1/signed-contract-parser-sub003/internal/contract/metrics"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/parser"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/export"
	historymetrics "github.com/blastheart1/signed-contract-parser-sub003/internal/history/metrics"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/history/outbox"
	historyservice "github.com/blastheart1/signed-contract-parser-sub003/internal/history/service"
	historystore "github.com/blastheart1/signed-contract-parser-sub003/internal/history/store"
	ordersmetrics "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/metrics"
	ordersservice "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/service"
	ordersstore "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/store"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/config"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/database"
	redisclient "github.com/blastheart1/signed-contract-parser-sub003/internal/platform/redis"
	vendorsservice "github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/service"
	vendorsstore "github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/store"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/circuit"
	txcontext "github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/tx"
)

// Metrics groups the module metrics registered by New.
type Metrics struct {
	Contract  *contractmetrics.Metrics
	Addendum  *addendummetrics.Metrics
	History   *historymetrics.Metrics
	Orders    *ordersmetrics.Metrics
	Approvals *approvalmetrics.Metrics
}

// App holds the assembled services. DB, Redis and Outbox are nil in memory mode.
type App struct {
	Config  config.Server
	Logger  *slog.Logger
	Metrics Metrics

	DB     *sql.DB
	Redis  *redisclient.Client
	Outbox *outbox.PostgresOutbox
	Tx     txcontext.Runner

	Parser    *parser.Parser
	Addenda   *addendum.Fetcher
	History   *historyservice.Recorder
	Orders    *ordersservice.Service
	Vendors   *vendorsservice.Service
	Approvals *approvalservice.Service
	Auth      *authservice.Service
	Exporter  *export.Workbook
}

type stores struct {
	orders    ordersservice.Stores
	history   historyservice.Store
	vendors   vendorsservice.Store
	approvals approvalservice.Store
	users     authservice.UserStore
}

// New connects to the configured backends. With no DATABASE_URL every store
// is in memory and nothing survives a restart.
func New(ctx context.Context, cfg config.Server, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	a.Metrics = Metrics{
		Contract:  contractmetrics.New(reg),
		Addendum:  addendummetrics.New(reg),
		History:   historymetrics.New(reg),
		Orders:    ordersmetrics.New(reg),
		Approvals: approvalmetrics.New(reg),
	}

	var s stores
	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL, database.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.Tx = txcontext.NewSQLRunner(db)
		a.Outbox = outbox.NewPostgres(db)
		s = postgresStores(db)
	} else {
		logger.WarnContext(ctx, "DATABASE_URL not set; using in-memory stores")
		a.Tx = txcontext.NewMemoryRunner()
		s = memoryStores()
	}

	redis, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.Redis = redis

	a.Parser = parser.New(
		parser.WithAddendumHosts(cfg.Addendum.Hosts),
		parser.WithLogger(logger),
		parser.WithMetrics(a.Metrics.Contract),
	)
	a.Addenda = addendum.NewFetcher(a.pageFetcher(), addendum.WithLogger(logger), addendum.WithConcurrency(cfg.Addendum.Concurrency))

	historyOpts := []historyservice.Option{historyservice.WithLogger(logger), historyservice.WithMetrics(a.Metrics.History)}
	if a.Outbox != nil {
		historyOpts = append(historyOpts, historyservice.WithOutbox(a.Outbox))
	}
	a.History = historyservice.New(s.history, historyOpts...)

	a.Orders = ordersservice.New(s.orders, a.Tx, a.History,
		ordersservice.WithLogger(logger), ordersservice.WithMetrics(a.Metrics.Orders))
	a.Vendors = vendorsservice.New(s.vendors, logger)
	a.Approvals = approvalservice.New(approvalservice.Deps{
		Approvals: s.approvals,
		Orders:    s.orders.Orders,
		Items:     s.orders.Items,
		Vendors:   s.vendors,
	}, a.Tx, a.History, approvalservice.WithLogger(logger), approvalservice.WithMetrics(a.Metrics.Approvals))
	a.Auth = authservice.New(s.users, token.New(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer),
		authservice.WithLogger(logger),
		authservice.WithSessionTTL(cfg.Auth.SessionTTL),
		authservice.WithVendors(s.vendors),
		authservice.WithLockout(lockout.New(a.lockoutStore(),
			lockout.WithLogger(logger),
			lockout.WithConfig(lockout.Config{
				MaxFailures:  cfg.Auth.MaxLoginFailures,
				Window:       cfg.Auth.LockoutDuration,
				LockDuration: cfg.Auth.LockoutDuration,
			}),
		)),
	)
	a.Exporter = export.New(export.Options{TemplatePath: cfg.ExcelTemplatePath})
	return a, nil
}

func (a *App) pageFetcher() addendum.PageFetcher {
	httpPages := addendum.NewHTTPPageFetcher(a.Config.Addendum.Hosts, a.Config.Addendum.Timeout, a.Config.Addendum.MaxBodyBytes, a.Metrics.Addendum)
	var cache addendum.Cache = addendum.NewMemoryCache()
	if a.Redis != nil {
		cache = addendum.NewRedisCache(a.Redis.Client)
	}
	return addendum.NewCachingFetcher(httpPages, cache, a.Config.Addendum.CacheTTL, a.Logger, a.Metrics.Addendum)
}

// lockoutStore shares sign-in lockouts through Redis when configured and
// keeps them in process while Redis is unreachable.
func (a *App) lockoutStore() lockout.Store {
	if a.Redis == nil {
		return lockout.NewMemoryStore()
	}
	return lockout.NewFallbackStore(
		lockout.NewRedisStore(a.Redis.Client),
		lockout.NewMemoryStore(),
		circuit.New("login-lockout"),
		a.Logger,
	)
}

func postgresStores(db *sql.DB) stores {
	return stores{
		orders: ordersservice.Stores{
			Customers: ordersstore.NewPostgresCustomers(db),
			Orders:    ordersstore.NewPostgresOrders(db),
			Items:     ordersstore.NewPostgresItems(db),
			Invoices:  ordersstore.NewPostgresInvoices(db),
		},
		history:   historystore.NewPostgres(db),
		vendors:   vendorsstore.NewPostgres(db),
		approvals: approvalstore.NewPostgres(db),
		users:     authstore.NewPostgres(db),
	}
}

func memoryStores() stores {
	return stores{
		orders: ordersservice.Stores{
			Customers: ordersstore.NewInMemoryCustomers(),
			Orders:    ordersstore.NewInMemoryOrders(),
			Items:     ordersstore.NewInMemoryItems(),
			Invoices:  ordersstore.NewInMemoryInvoices(),
		},
		history:   historystore.NewInMemory(),
		vendors:   vendorsstore.NewInMemory(),
		approvals: approvalstore.NewInMemory(),
		users:     authstore.NewInMemory(),
	}
}

// RequireDatabase fails for commands that make no sense without Postgres.
func (a *App) RequireDatabase() error {
	if a.DB == nil {
		return errors.New("DATABASE_URL is required for this command")
	}
	return nil
}

// Health pings the configured backends.
func (a *App) Health(ctx context.Context) error {
	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
