package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/straye-as/fms-api/internal/datawarehouse"
	"github.com/straye-as/fms-api/internal/jobs"
	"go.uber.org/zap"
)

var rateSyncDate string

var rateSyncCmd = &cobra.Command{
	Use:   "rate-sync",
	Short: "Import one day of exchange rates from the data warehouse",
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		day, err := parseAsOf(rateSyncDate)
		if err != nil {
			return err
		}
		dw, err := datawarehouse.NewClient(&a.cfg.DataWarehouse, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to data warehouse: %w", err)
		}
		if dw == nil {
			return errors.New("data warehouse is disabled")
		}
		defer func() {
			if err := dw.Close(); err != nil {
				a.logger.Warn("failed to close data warehouse", zap.Error(err))
			}
		}()

		job := jobs.NewRateSyncJob(dw, a.services.References, a.logger, a.cfg.Jobs.TimeoutDuration())
		res, err := job.Sync(ctx, day)
		if err != nil {
			return err
		}
		fmt.Printf("rates %s: created=%d updated=%d unchanged=%d rejected=%d\n",
			day.Format(time.DateOnly), res.Created, res.Updated, res.Unchanged, res.Rejected)
		return nil
	}),
}

func init() {
	rateSyncCmd.Flags().StringVar(&rateSyncDate, "date", "", "rate date (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(rateSyncCmd)
}
