// Package testutil holds shared fixtures for package tests: a migrated sqlite
// database, the wired service graph and a baseline set of reference data.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/straye-as/fms-api/internal/cache"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/database"
	"github.com/straye-as/fms-api/internal/messaging"
	"github.com/straye-as/fms-api/internal/service"
	"github.com/straye-as/fms-api/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a file-backed sqlite database in the test's temp dir and
// migrates every model. Write transactions take the database lock up front so
// concurrent tests serialise instead of failing with SQLITE_BUSY.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fms.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate&_foreign_keys=off", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err, "failed to open sqlite test database")
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// TestConfig returns the configuration the service tests run with. Invoices are
// raised in KRW without tax so amounts stay easy to check by hand.
func TestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "fms-api-test", Environment: "test"},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret-with-at-least-32-characters",
			Issuer:    "fms-api-test",
			TokenTTL:  60,
			APIKey:    "test-api-key",
		},
		Storage: config.StorageConfig{Mode: "local", MaxUploadSizeMB: 1},
		Billing: config.BillingConfig{
			LocalCurrency:          "KRW",
			DefaultTaxRate:         0,
			DefaultPaymentTermDays: 30,
			VolumeWeightFactor:     167,
		},
	}
}

// RecordingPublisher keeps every published message for assertions
type RecordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
	Err    error
}

// Publish records the message. Values that are not envelopes are wrapped.
func (p *RecordingPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	event, ok := value.(messaging.Event)
	if !ok {
		event = messaging.NewEvent("", key, value)
	}
	p.events = append(p.events, event)
	return nil
}

// Close is a no-op
func (p *RecordingPublisher) Close() error { return nil }

// Events returns the recorded messages of one type, or all when eventType is empty
func (p *RecordingPublisher) Events(eventType string) []messaging.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []messaging.Event
	for _, e := range p.events {
		if eventType == "" || e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Env is a fully wired service graph over a fresh database
type Env struct {
	DB        *gorm.DB
	Config    *config.Config
	Publisher *RecordingPublisher
	Rates     *cache.MemoryRateCache
	Store     *storage.LocalStorage
	Services  *service.Services
	Logger    *zap.Logger
}

// NewEnv builds the service graph with reference data already loaded. Options
// adjust TestConfig before the services are wired.
func NewEnv(t *testing.T, opts ...func(*config.Config)) *Env {
	t.Helper()
	db := SetupTestDB(t)
	cfg := TestConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	log := zap.NewNop()

	store, err := storage.NewLocalStorage(t.TempDir(), log)
	require.NoError(t, err)

	env := &Env{
		DB:        db,
		Config:    cfg,
		Publisher: &RecordingPublisher{},
		Rates:     cache.NewMemoryRateCache(),
		Store:     store,
		Logger:    log,
	}
	env.Services = service.NewServices(db, cfg, env.Rates, env.Publisher, store, log)
	SeedReferenceData(t, env.Services)
	return env
}
