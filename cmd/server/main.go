package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/app"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/history/outbox"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/config"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/database"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/httpserver"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/kafka"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/logger"
	httptransport "github.com/blastheart1/signed-contract-parser-sub003/internal/transport/http"
)

const shutdownTimeout = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	a, err := app.New(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.DB != nil {
		applied, err := database.Migrate(ctx, a.DB, log)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "migrations applied", "count", len(applied))
	}

	created, generated, err := a.Auth.Bootstrap(ctx, cfg.Auth.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created && generated != "" {
		// Printed once so the operator can log in and rotate it.
		fmt.Fprintf(os.Stderr, "created admin user %q with password %s\n", "admin", generated)
	}

	router := httptransport.NewRouter(httptransport.DepsFromApp(a, prometheus.DefaultRegisterer, prometheus.DefaultGatherer))
	srv := httpserver.New(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting signed-contracts server", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 && a.Outbox != nil {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ChangeTopic, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, 1, 1); err != nil {
			log.WarnContext(ctx, "could not ensure change topic", "topic", cfg.Kafka.ChangeTopic, "error", err)
		}
		worker := outbox.NewWorker(a.Outbox, producer, a.Tx, log, cfg.Kafka.PollInterval, cfg.Kafka.BatchSize)
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else if len(cfg.Kafka.Brokers) > 0 {
		log.WarnContext(ctx, "KAFKA_BROKERS set without DATABASE_URL; change feed disabled")
	}

	return g.Wait()
}
