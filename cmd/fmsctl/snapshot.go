package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/straye-as/fms-api/internal/domain"
)

var snapshotDate string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Take billing snapshots",
}

var snapshotAgingCmd = &cobra.Command{
	Use:   "aging [AR|AP]",
	Short: "Record the receivables or payables aging as of a date",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		asOf, err := parseAsOf(snapshotDate)
		if err != nil {
			return err
		}
		sides := []domain.BillingSide{domain.SideAR, domain.SideAP}
		if len(args) == 1 {
			side := domain.BillingSide(args[0])
			if !side.Valid() {
				return fmt.Errorf("unknown side %q", args[0])
			}
			sides = []domain.BillingSide{side}
		}
		for _, side := range sides {
			rows, err := a.services.Billing.SnapshotAging(ctx, side, asOf)
			if err != nil {
				return fmt.Errorf("aging %s: %w", side, err)
			}
			fmt.Printf("%s aging %s: %d rows\n", side, asOf.Format(time.DateOnly), len(rows))
		}
		return nil
	}),
}

var snapshotProfitCmd = &cobra.Command{
	Use:   "profit",
	Short: "Record profit analysis for every open shipment",
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		asOf, err := parseAsOf(snapshotDate)
		if err != nil {
			return err
		}
		n, err := a.services.Billing.SnapshotAllProfit(ctx, asOf)
		if err != nil {
			return err
		}
		fmt.Printf("profit snapshots %s: %d shipments\n", asOf.Format(time.DateOnly), n)
		return nil
	}),
}

func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapshotDate, "date", "", "as-of date (YYYY-MM-DD, default today)")
	snapshotCmd.AddCommand(snapshotAgingCmd, snapshotProfitCmd)
	rootCmd.AddCommand(snapshotCmd)
}
