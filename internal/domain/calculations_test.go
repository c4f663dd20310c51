package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// =============================================================================
// Money
// =============================================================================

func TestMoney_Convert(t *testing.T) {
	usd := domain.NewMoney(dec("2800"), "USD")

	krw := usd.Convert(dec("1350"), "KRW", 0)
	assert.True(t, krw.Value.Equal(dec("3780000")), "got %s", krw.Value)
	assert.Equal(t, "KRW", krw.Currency)

	same := domain.NewMoney(dec("10.005"), "USD").Convert(dec("99"), "USD", 2)
	assert.True(t, same.Value.Equal(dec("10.01")), "same currency only rounds, got %s", same.Value)
}

func TestMoney_Add(t *testing.T) {
	sum, err := domain.NewMoney(dec("1.50"), "USD").Add(domain.NewMoney(dec("2.25"), "USD"))
	require.NoError(t, err)
	assert.True(t, sum.Value.Equal(dec("3.75")))

	_, err = domain.NewMoney(dec("1"), "USD").Add(domain.NewMoney(dec("1"), "KRW"))
	assert.Error(t, err)
}

func TestPercentOf(t *testing.T) {
	assert.True(t, domain.PercentOf(dec("1000"), dec("10"), 0).Equal(dec("100")))
	assert.True(t, domain.PercentOf(dec("33.33"), dec("8"), 2).Equal(dec("2.67")))
	assert.True(t, domain.PercentOf(dec("500"), decimal.Zero, 2).IsZero())
}

// =============================================================================
// Capacity
// =============================================================================

func TestOceanSpace_ReserveAndRelease(t *testing.T) {
	space := &domain.OceanSpace{ScheduleID: uuid.New(), ContainerType: "40HC", TotalQty: 10, AvailableQty: 10}

	require.NoError(t, space.Reserve(2))
	assert.Equal(t, 2, space.BookedQty)
	assert.Equal(t, 8, space.AvailableQty)

	err := space.Reserve(9)
	var capErr *domain.CapacityExhaustedError
	require.True(t, errors.As(err, &capErr))
	assert.True(t, capErr.Available.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, 2, space.BookedQty, "failed reserve must not mutate")

	space.Release(5)
	assert.Equal(t, 0, space.BookedQty, "release never goes below zero")
	assert.Equal(t, 10, space.AvailableQty)

	assert.True(t, errors.Is(space.Reserve(0), domain.ErrValidation))
}

func TestAirSchedule_ReserveAndRelease(t *testing.T) {
	flight := &domain.AirSchedule{MaxWeightKg: dec("1000"), AvailableWeightKg: dec("1000")}

	require.NoError(t, flight.Reserve(dec("600")))
	assert.True(t, flight.AvailableWeightKg.Equal(dec("400")))

	err := flight.Reserve(dec("400.5"))
	assert.True(t, errors.Is(err, domain.ErrCapacityExhausted))
	assert.True(t, flight.BookedWeightKg.Equal(dec("600")))

	flight.Release(dec("600"))
	assert.True(t, flight.BookedWeightKg.IsZero())
	assert.True(t, flight.AvailableWeightKg.Equal(dec("1000")))
}

func TestSpaceAllocation_RemainingQty(t *testing.T) {
	a := &domain.SpaceAllocation{AllocatedQty: 5, UsedQty: 3}
	assert.Equal(t, 2, a.RemainingQty())
}

func TestChargeableWeight(t *testing.T) {
	factor := decimal.NewFromInt(167)
	assert.True(t, domain.ChargeableWeight(dec("500"), dec("2"), factor).Equal(dec("500")))
	assert.True(t, domain.ChargeableWeight(dec("100"), dec("2"), factor).Equal(dec("334")))
}

// =============================================================================
// Bookings
// =============================================================================

func TestOceanBooking_ReconcileContainers(t *testing.T) {
	tests := []struct {
		name    string
		booking domain.OceanBooking
		wantErr bool
	}{
		{
			name: "header matches lines",
			booking: domain.OceanBooking{
				Qty40HC:    2,
				QtyReefer:  3,
				Containers: []domain.BookingContainer{{ContainerType: "40HC", Qty: 2}, {ContainerType: "20RF", Qty: 1}, {ContainerType: "40RF", Qty: 2}},
			},
		},
		{
			name:    "header differs from lines",
			booking: domain.OceanBooking{Qty40HC: 1, Containers: []domain.BookingContainer{{ContainerType: "40HC", Qty: 2}}},
			wantErr: true,
		},
		{
			name:    "unknown type",
			booking: domain.OceanBooking{Containers: []domain.BookingContainer{{ContainerType: "99ZZ", Qty: 1}}},
			wantErr: true,
		},
		{
			name:    "no lines",
			booking: domain.OceanBooking{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.booking.ReconcileContainers()
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestOceanBooking_FillHeaderFromContainers(t *testing.T) {
	b := domain.OceanBooking{Containers: []domain.BookingContainer{
		{ContainerType: "20GP", Qty: 1},
		{ContainerType: "40HC", Qty: 2},
		{ContainerType: "40HC", Qty: 1},
	}}
	b.FillHeaderFromContainers()

	assert.Equal(t, 1, b.Qty20GP)
	assert.Equal(t, 3, b.Qty40HC)
	assert.Zero(t, b.Qty40GP)
	assert.NoError(t, b.ReconcileContainers())
}

// =============================================================================
// MAWB numbers
// =============================================================================

func TestMAWBNumber(t *testing.T) {
	no := domain.MAWBNumber("180", 1234567)
	assert.Equal(t, "180-12345675", no)
	assert.True(t, domain.ValidMAWBNumber(no))

	assert.False(t, domain.ValidMAWBNumber("180-12345670"), "wrong check digit")
	assert.False(t, domain.ValidMAWBNumber("18012345675"), "missing dash")
	assert.False(t, domain.ValidMAWBNumber("180-1234567"), "too short")
}

// =============================================================================
// Billing
// =============================================================================

func TestAgingBucket(t *testing.T) {
	asOf := day(2024, time.June, 30)
	tests := []struct {
		due      time.Time
		expected string
	}{
		{day(2024, time.July, 15), domain.BucketCurrent},
		{day(2024, time.June, 30), domain.BucketCurrent},
		{day(2024, time.June, 29), domain.Bucket1To30},
		{day(2024, time.May, 31), domain.Bucket1To30},
		{day(2024, time.May, 30), domain.Bucket31To60},
		{day(2024, time.April, 1), domain.Bucket61To90},
		{day(2024, time.January, 1), domain.BucketOver90},
	}

	for _, tt := range tests {
		t.Run(tt.due.Format(time.DateOnly), func(t *testing.T) {
			assert.Equal(t, tt.expected, domain.AgingBucket(tt.due, asOf))
		})
	}
}

func TestAgingSnapshot_Add(t *testing.T) {
	var snap domain.AgingSnapshot
	snap.Add(domain.BucketCurrent, dec("100"))
	snap.Add(domain.Bucket31To60, dec("50"))
	snap.Add(domain.BucketOver90, dec("25"))

	assert.True(t, snap.Current.Equal(dec("100")))
	assert.True(t, snap.Days31To60.Equal(dec("50")))
	assert.True(t, snap.Over90.Equal(dec("25")))
	assert.True(t, snap.Total.Equal(dec("175")))
}

func TestTariff_Rate(t *testing.T) {
	minAmt, maxAmt := dec("50"), dec("1000")
	perKg := domain.Tariff{Unit: domain.UnitPerKg, UnitPrice: domain.NewMoney(dec("2.5"), "USD"), MinAmount: &minAmt, MaxAmount: &maxAmt}

	assert.True(t, perKg.Rate(dec("100")).Equal(dec("250")))
	assert.True(t, perKg.Rate(dec("10")).Equal(dec("50")), "clamped to minimum")
	assert.True(t, perKg.Rate(dec("1000")).Equal(dec("1000")), "clamped to maximum")

	perBL := domain.Tariff{Unit: domain.UnitPerBL, UnitPrice: domain.NewMoney(dec("75"), "USD")}
	assert.True(t, perBL.Rate(dec("3")).Equal(dec("75")), "per-BL ignores quantity")
}

func TestProfitAnalysis_ComputeProfit(t *testing.T) {
	p := domain.ProfitAnalysis{Revenue: dec("1000"), Cost: dec("750")}
	p.ComputeProfit()
	assert.True(t, p.Profit.Equal(dec("250")))
	assert.True(t, p.MarginPct.Equal(dec("25")))

	empty := domain.ProfitAnalysis{Revenue: decimal.Zero, Cost: dec("10")}
	empty.ComputeProfit()
	assert.True(t, empty.Profit.Equal(dec("-10")))
	assert.True(t, empty.MarginPct.IsZero())
}

func TestDeclarationItem_ComputeTax(t *testing.T) {
	item := domain.DeclarationItem{Amount: dec("1000000"), DutyRate: dec("8"), VATRate: dec("10")}
	item.ComputeTax(0)
	assert.True(t, item.DutyAmount.Equal(dec("80000")))
	assert.True(t, item.VATAmount.Equal(dec("100000")))
}

// =============================================================================
// Demurrage and cargo totals
// =============================================================================

func TestDemurrageDays(t *testing.T) {
	tests := []struct {
		name string
		start, end     time.Time
		free           int
		wantTotal      int
		wantChargeable int
	}{
		{"same day counts once", day(2024, 3, 1), day(2024, 3, 1), 0, 1, 1},
		{"inside free time", day(2024, 3, 1), day(2024, 3, 5), 7, 5, 0},
		{"beyond free time", day(2024, 3, 1), day(2024, 3, 10), 7, 10, 3},
		{"end before start", day(2024, 3, 10), day(2024, 3, 1), 0, 0, 0},
		{"time of day ignored", day(2024, 3, 1).Add(23 * time.Hour), day(2024, 3, 2).Add(time.Hour), 0, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, chargeable := domain.DemurrageDays(tt.start, tt.end, tt.free)
			assert.Equal(t, tt.wantTotal, total)
			assert.Equal(t, tt.wantChargeable, chargeable)
		})
	}
}

func TestDemurrageAmount(t *testing.T) {
	amount := domain.DemurrageAmount(3, domain.NewMoney(dec("85.50"), "USD"), 2)
	assert.True(t, amount.Value.Equal(dec("256.5")))
	assert.Equal(t, "USD", amount.Currency)
}

func TestHouseLineTotals(t *testing.T) {
	totals := domain.HouseLineTotals([]domain.HouseCargoLine{
		{PackageQty: 10, GrossWeightKg: dec("100.5"), VolumeCBM: dec("1.2")},
		{PackageQty: 5, GrossWeightKg: dec("50"), VolumeCBM: dec("0.8")},
	})
	assert.Equal(t, 15, totals.PackageQty)
	assert.True(t, totals.GrossWeightKg.Equal(dec("150.5")))
	assert.True(t, totals.VolumeCBM.Equal(dec("2")))
}

// =============================================================================
// Actor and shipment validation
// =============================================================================

func TestActorFromContext(t *testing.T) {
	assert.Equal(t, domain.SystemActor, domain.ActorFromContext(context.Background()))
	ctx := domain.WithActor(context.Background(), "kim")
	assert.Equal(t, "kim", domain.ActorFromContext(ctx))
}

func TestShipment_Validate(t *testing.T) {
	etd := day(2024, 5, 10)
	eta := day(2024, 5, 1)
	valid := domain.Shipment{TransportMode: domain.TransportModeSea, TradeType: domain.TradeTypeImport, CustomerCode: "ACME"}
	assert.NoError(t, valid.Validate())

	badMode := valid
	badMode.TransportMode = "RAIL"
	assert.True(t, errors.Is(badMode.Validate(), domain.ErrValidation))

	backwards := valid
	backwards.ETD, backwards.ETA = &etd, &eta
	var vErr *domain.ValidationError
	require.True(t, errors.As(backwards.Validate(), &vErr))
	assert.Equal(t, "eta", vErr.Field)

	negative := valid
	negative.GrossWeightKg = dec("-1")
	assert.Error(t, negative.Validate())
}
