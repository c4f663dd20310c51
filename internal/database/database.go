package database

import (
	"context"
	"fmt"
	"time"

	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := cfg.ConnectionString()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Stats is the connection pool snapshot reported by the health endpoint
type Stats struct {
	OpenConnections int   `json:"openConnections"`
	InUse           int   `json:"inUse"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"waitCount"`
}

// HealthCheck pings the database
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// HealthCheckWithStats pings the database and returns pool statistics
func HealthCheckWithStats(ctx context.Context, db *gorm.DB) (*Stats, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}
	s := sqlDB.Stats()
	return &Stats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		WaitCount:       s.WaitCount,
	}, nil
}

// Models lists every persisted type in dependency order
func Models() []interface{} {
	return []interface{}{
		&domain.NumberSequence{},
		&domain.Country{},
		&domain.Currency{},
		&domain.ExchangeRate{},
		&domain.Port{},
		&domain.CommonCode{},
		&domain.HSCode{},
		&domain.Customer{},
		&domain.Carrier{},
		&domain.Partner{},
		&domain.Trucker{},
		&domain.CustomsBroker{},
		&domain.User{},
		&domain.OceanSchedule{},
		&domain.OceanSpace{},
		&domain.SpaceAllocation{},
		&domain.AirSchedule{},
		&domain.MAWBStock{},
		&domain.MAWBSerial{},
		&domain.CustomerOrder{},
		&domain.OrderCargoLine{},
		&domain.Shipment{},
		&domain.TrackingEvent{},
		&domain.OceanBooking{},
		&domain.BookingContainer{},
		&domain.AirBooking{},
		&domain.MasterBL{},
		&domain.HouseBL{},
		&domain.MasterAWB{},
		&domain.HouseAWB{},
		&domain.HouseCargoLine{},
		&domain.Container{},
		&domain.Irregularity{},
		&domain.CustomsDeclaration{},
		&domain.DeclarationItem{},
		&domain.Inspection{},
		&domain.EDILog{},
		&domain.PreAlertSetting{},
		&domain.PreAlert{},
		&domain.ArrivalNotice{},
		&domain.TransportOrder{},
		&domain.Demurrage{},
		&domain.Tariff{},
		&domain.Charge{},
		&domain.Invoice{},
		&domain.InvoiceDetail{},
		&domain.Payment{},
		&domain.PaymentDetail{},
		&domain.ExchangeGainLoss{},
		&domain.CreditCheck{},
		&domain.AgingSnapshot{},
		&domain.ProfitAnalysis{},
		&domain.ReconciliationWarning{},
		&domain.Attachment{},
	}
}

// AutoMigrate runs automatic migrations (for development and tests only)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
