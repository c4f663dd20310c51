package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/datawarehouse"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFeed struct {
	rates []datawarehouse.Rate
	err   error
	day   time.Time
}

func (f *fakeFeed) DailyRates(ctx context.Context, day time.Time) ([]datawarehouse.Rate, error) {
	f.day = day
	return f.rates, f.err
}

type fakeImporter struct {
	got    []domain.ExchangeRate
	source string
}

func (f *fakeImporter) ImportRates(ctx context.Context, rates []domain.ExchangeRate, source string) (*service.RateImportResult, error) {
	f.got = rates
	f.source = source
	return &service.RateImportResult{Created: len(rates)}, nil
}

type fakeBilling struct {
	sides  []domain.BillingSide
	profit int
}

func (f *fakeBilling) SnapshotAging(ctx context.Context, side domain.BillingSide, asOf time.Time) ([]domain.AgingSnapshot, error) {
	f.sides = append(f.sides, side)
	if side == domain.SideAR {
		return nil, errors.New("boom")
	}
	return []domain.AgingSnapshot{{Side: side}}, nil
}

func (f *fakeBilling) SnapshotAllProfit(ctx context.Context, asOf time.Time) (int, error) {
	f.profit++
	return 3, nil
}

type fakeDispatcher struct{ limit int }

func (f *fakeDispatcher) DispatchDuePreAlerts(ctx context.Context, now time.Time, limit int) (*service.DispatchResult, error) {
	f.limit = limit
	return &service.DispatchResult{Sent: 1}, nil
}

func TestRateSyncJob_Sync(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	feed := &fakeFeed{rates: []datawarehouse.Rate{
		{Base: "USD", Target: "KRW", Date: day, Rate: decimal.RequireFromString("1350.25")},
		{Base: "EUR", Target: "KRW", Date: day, RateType: domain.RateTypeSell, Rate: decimal.RequireFromString("1480")},
	}}
	importer := &fakeImporter{}
	job := NewRateSyncJob(feed, importer, zap.NewNop(), time.Minute)

	res, err := job.Sync(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, day, feed.day)
	assert.Equal(t, rateSource, importer.source)
	require.Len(t, importer.got, 2)
	assert.Equal(t, domain.RateTypeMid, importer.got[0].RateType)
	assert.Equal(t, domain.RateTypeSell, importer.got[1].RateType)
	assert.True(t, importer.got[0].Rate.Equal(decimal.RequireFromString("1350.25")))
}

func TestRateSyncJob_FeedError(t *testing.T) {
	importer := &fakeImporter{}
	job := NewRateSyncJob(&fakeFeed{err: errors.New("offline")}, importer, zap.NewNop(), time.Minute)

	_, err := job.Sync(context.Background(), time.Now())
	assert.Error(t, err)
	assert.Nil(t, importer.got)
}

func TestAgingJob_ContinuesAfterFailedSide(t *testing.T) {
	billing := &fakeBilling{}
	NewAgingJob(billing, zap.NewNop(), time.Minute).Run()
	assert.Equal(t, []domain.BillingSide{domain.SideAR, domain.SideAP}, billing.sides)
}

func TestPreAlertJob_DefaultBatch(t *testing.T) {
	d := &fakeDispatcher{}
	NewPreAlertJob(d, 0, zap.NewNop(), time.Minute).Run()
	assert.Equal(t, 100, d.limit)
}

func TestRegister(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	cfg := &config.JobsConfig{
		AgingCron:    "0 30 0 * * *",
		ProfitCron:   "",
		PreAlertCron: "0 */5 * * * *",
		RateSyncCron: "0 0 7 * * *",
	}
	err := Register(s, cfg, Deps{Billing: &fakeBilling{}, Notices: &fakeDispatcher{}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{AgingJobName, PreAlertJobName}, s.JobNames())

	err = s.AddJob(AgingJobName, "@hourly", func() {})
	assert.Error(t, err)
	require.NoError(t, s.RemoveJob(AgingJobName))
	assert.Error(t, s.RemoveJob(AgingJobName))
}

func TestRegister_BadExpression(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	cfg := &config.JobsConfig{AgingCron: "not a cron"}
	err := Register(s, cfg, Deps{Billing: &fakeBilling{}, Notices: &fakeDispatcher{}}, zap.NewNop())
	assert.Error(t, err)
}

func TestScheduler_NextRun(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	require.NoError(t, s.AddJob(PreAlertJobName, "0 */5 * * * *", func() {}))

	_, ok := s.NextRun("missing")
	assert.False(t, ok)

	s.Start()
	defer s.Stop()
	next, ok := s.NextRun(PreAlertJobName)
	require.True(t, ok)
	assert.True(t, next.After(time.Now().Add(-time.Second)))
	assert.Zero(t, next.Minute()%5)
}
