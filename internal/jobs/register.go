package jobs

import (
	"fmt"

	"github.com/straye-as/fms-api/internal/config"
	"go.uber.org/zap"
)

// Deps holds what the jobs run against. A nil Rates disables the rate sync.
type Deps struct {
	Billing  Snapshotter
	Notices  PreAlertDispatcher
	Rates    RateFeed
	Importer RateImporter
}

// Register adds every job with a non-empty cron expression to the scheduler
func Register(s *Scheduler, cfg *config.JobsConfig, deps Deps, logger *zap.Logger) error {
	timeout := cfg.TimeoutDuration()
	type entry struct {
		name string
		expr string
		run  func()
	}
	entries := []entry{
		{AgingJobName, cfg.AgingCron, NewAgingJob(deps.Billing, logger, timeout).Run},
		{ProfitJobName, cfg.ProfitCron, NewProfitJob(deps.Billing, logger, timeout).Run},
		{PreAlertJobName, cfg.PreAlertCron, NewPreAlertJob(deps.Notices, cfg.PreAlertBatchSize, logger, timeout).Run},
	}
	if deps.Rates != nil && deps.Importer != nil {
		entries = append(entries, entry{RateSyncJobName, cfg.RateSyncCron, NewRateSyncJob(deps.Rates, deps.Importer, logger, timeout).Run})
	}

	for _, e := range entries {
		if e.expr == "" {
			logger.Info("job disabled", zap.String("job_name", e.name))
			continue
		}
		if err := s.AddJob(e.name, e.expr, e.run); err != nil {
			return fmt.Errorf("register %s: %w", e.name, err)
		}
	}
	return nil
}
