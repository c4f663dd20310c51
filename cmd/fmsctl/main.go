// Command fmsctl runs operational tasks against the FMS database outside the API:
// reference-data seeding, billing snapshots, exchange-rate sync and token issuing.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/straye-as/fms-api/internal/cache"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/database"
	"github.com/straye-as/fms-api/internal/logger"
	"github.com/straye-as/fms-api/internal/messaging"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "fmsctl",
	Short:         "Operational commands for the FMS API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "fmsctl: %v\n", err)
		os.Exit(1)
	}
}

// app is the wiring shared by every command
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *gorm.DB
	publisher messaging.Publisher
	services  *service.Services
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	cfg, err = config.LoadWithSecrets(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, err
	}
	publisher, err := messaging.New(&cfg.Messaging, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging: %w", err)
	}

	return &app{
		cfg:       cfg,
		logger:    log,
		db:        db,
		publisher: publisher,
		services:  service.NewServices(db, cfg, cache.New(&cfg.Redis, log), publisher, nil, log),
	}, nil
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("failed to close publisher", zap.Error(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}

// withApp wraps a command body with app setup and teardown
func withApp(run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(ctx, a, args)
	}
}
