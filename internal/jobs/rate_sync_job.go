package jobs

import (
	"context"
	"time"

	"github.com/straye-as/fms-api/internal/datawarehouse"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

// rateSource tags rows written by the sync
const rateSource = "DATAWAREHOUSE"

// RateFeed returns the quotes published for one day
type RateFeed interface {
	DailyRates(ctx context.Context, day time.Time) ([]datawarehouse.Rate, error)
}

// RateImporter stores external rates
type RateImporter interface {
	ImportRates(ctx context.Context, rates []domain.ExchangeRate, source string) (*service.RateImportResult, error)
}

// RateSyncJob copies the day's warehouse rates into the exchange-rate table
type RateSyncJob struct {
	runner
	feed     RateFeed
	importer RateImporter
}

// NewRateSyncJob creates a new RateSyncJob
func NewRateSyncJob(feed RateFeed, importer RateImporter, logger *zap.Logger, timeout time.Duration) *RateSyncJob {
	return &RateSyncJob{runner: newRunner(logger, timeout), feed: feed, importer: importer}
}

// Run syncs today's rates
func (j *RateSyncJob) Run() {
	ctx, cancel := j.deadline()
	defer cancel()
	if _, err := j.Sync(ctx, j.now()); err != nil {
		j.logger.Error("rate sync job failed", zap.Error(err))
	}
}

// Sync imports the rates published for day
func (j *RateSyncJob) Sync(ctx context.Context, day time.Time) (*service.RateImportResult, error) {
	start := time.Now()
	quotes, err := j.feed.DailyRates(ctx, day)
	if err != nil {
		return nil, err
	}

	rates := make([]domain.ExchangeRate, 0, len(quotes))
	for _, q := range quotes {
		rateType := q.RateType
		if rateType == "" {
			rateType = domain.RateTypeMid
		}
		rates = append(rates, domain.ExchangeRate{
			BaseCurrency:   q.Base,
			TargetCurrency: q.Target,
			RateDate:       q.Date,
			RateType:       rateType,
			Rate:           q.Rate,
		})
	}

	res, err := j.importer.ImportRates(ctx, rates, rateSource)
	if err != nil {
		return res, err
	}
	j.logger.Info("rate sync completed",
		zap.Time("day", day),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("rejected", res.Rejected),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}
