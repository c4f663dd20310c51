package jobs

import (
	"context"
	"time"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

// Job names
const (
	AgingJobName    = "aging_snapshot"
	ProfitJobName   = "profit_snapshot"
	PreAlertJobName = "prealert_dispatch"
	RateSyncJobName = "rate_sync"
)

// Snapshotter writes the daily billing reports
type Snapshotter interface {
	SnapshotAging(ctx context.Context, side domain.BillingSide, asOf time.Time) ([]domain.AgingSnapshot, error)
	SnapshotAllProfit(ctx context.Context, asOf time.Time) (int, error)
}

// PreAlertDispatcher sends pre-alerts whose time has come
type PreAlertDispatcher interface {
	DispatchDuePreAlerts(ctx context.Context, now time.Time, limit int) (*service.DispatchResult, error)
}

// runner carries what every job needs to run once under a deadline
type runner struct {
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

func newRunner(logger *zap.Logger, timeout time.Duration) runner {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return runner{logger: logger, timeout: timeout, now: func() time.Time { return time.Now().UTC() }}
}

func (r runner) deadline() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// AgingJob snapshots AR and AP aging for today
type AgingJob struct {
	runner
	billing Snapshotter
}

// NewAgingJob creates a new AgingJob
func NewAgingJob(billing Snapshotter, logger *zap.Logger, timeout time.Duration) *AgingJob {
	return &AgingJob{runner: newRunner(logger, timeout), billing: billing}
}

// Run writes both sides. A failure on one side does not stop the other.
func (j *AgingJob) Run() {
	ctx, cancel := j.deadline()
	defer cancel()

	asOf := j.now()
	for _, side := range []domain.BillingSide{domain.SideAR, domain.SideAP} {
		rows, err := j.billing.SnapshotAging(ctx, side, asOf)
		if err != nil {
			j.logger.Error("aging snapshot failed", zap.String("side", string(side)), zap.Error(err))
			continue
		}
		j.logger.Info("aging snapshot job completed",
			zap.String("side", string(side)),
			zap.Int("customers", len(rows)))
	}
}

// ProfitJob snapshots profit for every live shipment
type ProfitJob struct {
	runner
	billing Snapshotter
}

// NewProfitJob creates a new ProfitJob
func NewProfitJob(billing Snapshotter, logger *zap.Logger, timeout time.Duration) *ProfitJob {
	return &ProfitJob{runner: newRunner(logger, timeout), billing: billing}
}

// Run executes one profit pass
func (j *ProfitJob) Run() {
	ctx, cancel := j.deadline()
	defer cancel()

	start := time.Now()
	written, err := j.billing.SnapshotAllProfit(ctx, j.now())
	if err != nil {
		j.logger.Error("profit snapshot job failed",
			zap.Int("written", written),
			zap.Error(err))
		return
	}
	j.logger.Info("profit snapshot job completed",
		zap.Int("shipments", written),
		zap.Duration("duration", time.Since(start)))
}

// PreAlertJob dispatches due pre-alerts in batches
type PreAlertJob struct {
	runner
	notices   PreAlertDispatcher
	batchSize int
}

// NewPreAlertJob creates a new PreAlertJob
func NewPreAlertJob(notices PreAlertDispatcher, batchSize int, logger *zap.Logger, timeout time.Duration) *PreAlertJob {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PreAlertJob{runner: newRunner(logger, timeout), notices: notices, batchSize: batchSize}
}

// Run dispatches one batch
func (j *PreAlertJob) Run() {
	ctx, cancel := j.deadline()
	defer cancel()

	res, err := j.notices.DispatchDuePreAlerts(ctx, j.now(), j.batchSize)
	if err != nil {
		j.logger.Error("pre-alert dispatch failed", zap.Error(err))
		return
	}
	if res.Sent+res.Retry+res.Failed > 0 {
		j.logger.Info("pre-alert dispatch completed",
			zap.Int("sent", res.Sent),
			zap.Int("retry", res.Retry),
			zap.Int("failed", res.Failed))
	}
}
