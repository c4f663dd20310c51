// Package datawarehouse reads the corporate daily exchange rates from the
// MS SQL Server data warehouse. The connection is optional and read-only.
package datawarehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // MS SQL Server driver
	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/config"
	"go.uber.org/zap"
)

const (
	defaultMaxRetries         = 3
	defaultInitialBackoff     = 1 * time.Second
	defaultMaxBackoff         = 10 * time.Second
	defaultBackoffFactor      = 2.0
	defaultHealthCheckTimeout = 5 * time.Second
)

// Client reads daily rates from the warehouse
type Client struct {
	db           *sql.DB
	rateTable    string
	logger       *zap.Logger
	queryTimeout time.Duration
}

// Rate is one warehouse quote: one Base unit buys Rate Target units on Date
type Rate struct {
	Base     string
	Target   string
	Date     time.Time
	RateType string
	Rate     decimal.Decimal
}

// HealthStatus represents the health check result for the data warehouse connection
type HealthStatus struct {
	Status     string        `json:"status"`
	Latency    time.Duration `json:"latency_ms"`
	Error      string        `json:"error,omitempty"`
	MaxOpen    int           `json:"max_open_connections"`
	Open       int           `json:"open_connections"`
	InUse      int           `json:"in_use"`
	Idle       int           `json:"idle"`
	WaitCount  int64         `json:"wait_count"`
	WaitTimeMs int64         `json:"wait_time_ms"`
}

// NewClient connects with retries. It returns nil, nil when the warehouse is
// disabled or its credentials are missing.
func NewClient(cfg *config.DataWarehouseConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("rate warehouse disabled")
		return nil, nil
	}
	if cfg.URL == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("rate warehouse enabled without credentials, skipping",
			zap.Bool("url_present", cfg.URL != ""),
			zap.Bool("user_present", cfg.User != ""),
			zap.Bool("password_present", cfg.Password != ""),
		)
		return nil, nil
	}

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	backoff := defaultInitialBackoff
	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		var db *sql.DB
		db, err = open(connStr, cfg)
		if err == nil {
			logger.Info("rate warehouse connected",
				zap.Int("attempt", attempt),
				zap.String("rate_table", cfg.RateTable))
			return &Client{
				db:           db,
				rateTable:    cfg.RateTable,
				logger:       logger,
				queryTimeout: cfg.QueryTimeoutDuration(),
			}, nil
		}
		logger.Warn("rate warehouse connection failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", defaultMaxRetries),
			zap.Error(err))
		if attempt < defaultMaxRetries {
			time.Sleep(backoff)
			backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
		}
	}
	return nil, fmt.Errorf("failed to connect to rate warehouse after %d attempts: %w", defaultMaxRetries, err)
}

// open opens a pool and pings it once
func open(connStr string, cfg *config.DataWarehouseConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	ctx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// buildConnectionString turns host[:port][/database] into a sqlserver:// URL
func buildConnectionString(cfg *config.DataWarehouseConfig) (string, error) {
	hostPort, database, _ := strings.Cut(cfg.URL, "/")
	host, port, ok := strings.Cut(hostPort, ":")
	if !ok || port == "" {
		port = "1433"
	}
	if host == "" {
		return "", fmt.Errorf("missing host in %q", cfg.URL)
	}

	query := url.Values{}
	query.Add("encrypt", "true")
	query.Add("TrustServerCertificate", "false")
	query.Add("connection timeout", "30")
	if database != "" {
		query.Add("database", database)
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     host + ":" + port,
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}

// Close closes the pool. A nil client is a no-op.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close rate warehouse connection: %w", err)
	}
	c.logger.Info("rate warehouse connection closed")
	return nil
}

// HealthCheck pings the warehouse and reports pool statistics
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if c == nil || c.db == nil {
		return &HealthStatus{Status: "disabled"}
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	start := time.Now()
	err := c.db.PingContext(ctx)
	stats := c.db.Stats()
	status := &HealthStatus{
		Status:     "healthy",
		Latency:    time.Since(start),
		MaxOpen:    stats.MaxOpenConnections,
		Open:       stats.OpenConnections,
		InUse:      stats.InUse,
		Idle:       stats.Idle,
		WaitCount:  stats.WaitCount,
		WaitTimeMs: stats.WaitDuration.Milliseconds(),
	}
	if err != nil {
		c.logger.Warn("rate warehouse health check failed", zap.Error(err))
		status.Status = "unhealthy"
		status.Error = err.Error()
	}
	return status
}

// DailyRates returns every quote published for day
func (c *Client) DailyRates(ctx context.Context, day time.Time) ([]Rate, error) {
	if !c.IsEnabled() {
		return nil, fmt.Errorf("data warehouse client not initialized")
	}
	if !validTableName(c.rateTable) {
		return nil, fmt.Errorf("invalid rate table %q", c.rateTable)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	query := fmt.Sprintf(
		"SELECT base_currency, target_currency, rate_date, rate_type, rate FROM %s WHERE rate_date = @p1",
		c.rateTable)
	start := time.Now()
	rows, err := c.db.QueryContext(ctx, query, day.Format("2006-01-02"))
	if err != nil {
		c.logger.Error("Data warehouse rate query failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, fmt.Errorf("rate query failed: %w", err)
	}
	defer rows.Close()

	var rates []Rate
	for rows.Next() {
		var r Rate
		var rateType sql.NullString
		if err := rows.Scan(&r.Base, &r.Target, &r.Date, &rateType, &r.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		r.Base = strings.ToUpper(strings.TrimSpace(r.Base))
		r.Target = strings.ToUpper(strings.TrimSpace(r.Target))
		r.RateType = strings.ToUpper(strings.TrimSpace(rateType.String))
		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rates: %w", err)
	}

	c.logger.Debug("Data warehouse rates read",
		zap.Time("day", day),
		zap.Int("rows", len(rates)),
		zap.Duration("duration", time.Since(start)),
	)
	return rates, nil
}

// IsEnabled returns true if the client is initialized and ready for queries.
func (c *Client) IsEnabled() bool {
	return c != nil && c.db != nil
}

// validTableName accepts schema-qualified identifiers like dbo.fx_daily_rates
func validTableName(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return false
			}
		}
	}
	return true
}
