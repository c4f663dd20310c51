package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/fms-api/internal/auth"
	"github.com/straye-as/fms-api/internal/cache"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/database"
	"github.com/straye-as/fms-api/internal/datawarehouse"
	"github.com/straye-as/fms-api/internal/http/handler"
	"github.com/straye-as/fms-api/internal/http/middleware"
	"github.com/straye-as/fms-api/internal/http/router"
	"github.com/straye-as/fms-api/internal/jobs"
	"github.com/straye-as/fms-api/internal/logger"
	"github.com/straye-as/fms-api/internal/messaging"
	"github.com/straye-as/fms-api/internal/service"
	"github.com/straye-as/fms-api/internal/storage"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// In staging/production secrets come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	fileStorage, err := storage.New(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	publisher, err := messaging.New(&cfg.Messaging, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer publisher.Close()
	log.Info("Messaging initialized", zap.String("driver", cfg.Messaging.Driver))

	rateCache := cache.New(&cfg.Redis, log)

	// The warehouse only feeds exchange rates; the app runs without it
	var dwClient *datawarehouse.Client
	if cfg.DataWarehouse.Enabled {
		dwClient, err = datawarehouse.NewClient(&cfg.DataWarehouse, log)
		if err != nil {
			log.Warn("Data warehouse connection failed, continuing without it", zap.Error(err))
			dwClient = nil
		} else if dwClient != nil {
			log.Info("Data warehouse connected",
				zap.Int("max_open_conns", cfg.DataWarehouse.MaxOpenConns),
				zap.Int("query_timeout_seconds", cfg.DataWarehouse.QueryTimeout),
			)
		}
	} else {
		log.Info("Data warehouse not configured, skipping")
	}

	svc := service.NewServices(db, cfg, rateCache, publisher, fileStorage, log)

	// Middleware
	tokens := auth.NewTokenManager(&cfg.Auth)
	authMiddleware := auth.NewMiddleware(&cfg.Auth, tokens, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	health := handler.NewHealthHandler(db, log)
	if p, ok := rateCache.(interface{ Ping(context.Context) error }); ok {
		health.AddCheck("redis", p.Ping)
	}
	if dwClient != nil {
		health.AddCheck("datawarehouse", func(ctx context.Context) error {
			if st := dwClient.HealthCheck(ctx); st.Error != "" {
				return fmt.Errorf("%s", st.Error)
			}
			return nil
		})
	}

	rt := router.NewRouter(cfg, log, authMiddleware, rateLimiter, router.Handlers{
		Auth:        handler.NewAuthHandler(svc.Parties, tokens, log),
		Attachments: handler.NewAttachmentHandler(svc.Attachments, cfg.Storage.MaxUploadSizeMB, log),
		Reference:   handler.NewReferenceHandler(svc.References, log),
		Parties:     handler.NewPartyHandler(svc.Parties, log),
		Scheduling:  handler.NewSchedulingHandler(svc.Scheduling, log),
		Orders:      handler.NewOrderHandler(svc.Orders, log),
		Shipments:   handler.NewShipmentHandler(svc.Shipments, svc.Tracking, svc.Warnings, log),
		Bookings:    handler.NewBookingHandler(svc.Bookings, log),
		Documents:   handler.NewDocumentHandler(svc.Documents, log),
		Customs:     handler.NewCustomsHandler(svc.Customs, log),
		Notices:     handler.NewNoticeHandler(svc.Notices, log),
		Transport:   handler.NewTransportHandler(svc.Transport, log),
		Billing:     handler.NewBillingHandler(svc.Billing, log),
		Health:      health,
	})

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		deps := jobs.Deps{Billing: svc.Billing, Notices: svc.Notices}
		if dwClient != nil {
			deps.Rates = dwClient
			deps.Importer = svc.References
		}
		if err := jobs.Register(scheduler, &cfg.Jobs, deps, log); err != nil {
			return fmt.Errorf("failed to register jobs: %w", err)
		}
		scheduler.Start()
		log.Info("Scheduler started", zap.Strings("jobs", scheduler.JobNames()))
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if dwClient != nil {
			if err := dwClient.Close(); err != nil {
				log.Warn("Error closing data warehouse connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
