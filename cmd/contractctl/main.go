package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/app"
	authmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/auth/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/config"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/logger"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

// systemActor is recorded in the change history for CLI writes.
var systemActor = requestcontext.ActorInfo{Name: "contractctl", Role: string(authmodels.RoleAdmin)}

type cli struct {
	cfg      config.Server
	logLevel string
	stderr   io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	c := &cli{stderr: stderr}
	root := &cobra.Command{
		Use:   "contractctl",
		Short: "Parse, import and export signed contracts",
		Long: `contractctl works with signed contract emails outside the HTTP server.

Commands that write data need DATABASE_URL; parse runs without one.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			c.cfg = config.FromEnv()
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(
		c.parseCmd(),
		c.importCmd(),
		c.exportCmd(),
		c.migrateCmd(),
	)
	return root
}

func (c *cli) logger() *slog.Logger {
	return logger.NewWithWriter(c.stderr, c.cfg.Environment, c.logLevel)
}

// open assembles the application with a private metrics registry.
func (c *cli) open(ctx context.Context, needDB bool) (*app.App, error) {
	a, err := app.New(ctx, c.cfg, c.logger(), prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}
	if needDB {
		if err := a.RequireDatabase(); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
