package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spaceOf(t *testing.T, env *testutil.Env, scheduleID uuid.UUID, containerType string) domain.OceanSpace {
	t.Helper()
	schedule, err := env.Services.Scheduling.GetOceanSchedule(context.Background(), scheduleID)
	require.NoError(t, err)
	for _, sp := range schedule.Spaces {
		if sp.ContainerType == containerType {
			return sp
		}
	}
	t.Fatalf("no %s space on schedule %s", containerType, scheduleID)
	return domain.OceanSpace{}
}

func createCashShipment(t *testing.T, env *testutil.Env) *domain.Shipment {
	t.Helper()
	shipment, err := env.Services.Shipments.CreateShipment(context.Background(), &domain.ShipmentRequest{
		TransportMode:  domain.TransportModeSea,
		TradeType:      domain.TradeTypeExport,
		CustomerCode:   testutil.CashCustomer,
		CarrierCode:    testutil.SeaCarrierCode,
		OriginPortCode: testutil.OriginPort,
		DestPortCode:   testutil.DestPort,
		PackageQty:     10,
		GrossWeightKg:  testutil.Dec("1000"),
		VolumeCBM:      testutil.Dec("20"),
	})
	require.NoError(t, err)
	return shipment
}

// ============================================================================
// Ocean booking capacity
// ============================================================================

func TestConfirmOceanBooking_ReservesSpaceAndBooksShipment(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	voyage := testutil.CreateVoyage(t, env.Services, "40HC", 10)

	booking, err := testutil.BookContainers(t, env.Services, shipment.ID, voyage.ID, "40HC", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, 2, booking.Qty40HC)
	assert.NotNil(t, booking.ConfirmedAt)

	space := spaceOf(t, env, voyage.ID, "40HC")
	assert.Equal(t, 2, space.BookedQty)
	assert.Equal(t, 8, space.AvailableQty)

	updated, err := env.Services.Shipments.Get(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusBooked, updated.Status)

	history, err := env.Services.Shipments.History(ctx, shipment.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, "BKD", history[0].EventCode, "newest event is the booking")

	events := env.Publisher.Events("shipment.status")
	require.NotEmpty(t, events)
}

func TestConfirmOceanBooking_RejectsOverbookingWithoutPartialApply(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	voyage := testutil.CreateVoyage(t, env.Services, "40HC", 10)

	for i := 0; i < 5; i++ {
		_, err := testutil.BookContainers(t, env.Services, shipment.ID, voyage.ID, "40HC", 2)
		require.NoError(t, err, "booking %d", i+1)
	}

	var rejected *domain.OceanBooking
	for i := 0; i < 5; i++ {
		booking, err := env.Services.Bookings.RequestOceanBooking(ctx, &domain.OceanBookingRequest{
			ShipmentID: shipment.ID,
			ScheduleID: voyage.ID,
			Containers: []domain.BookingContainerRequest{{ContainerType: "40HC", Qty: 2}},
		})
		require.NoError(t, err)
		_, err = env.Services.Bookings.ConfirmOceanBooking(ctx, booking.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrCapacityExhausted), "got %v", err)
		rejected = booking
	}

	space := spaceOf(t, env, voyage.ID, "40HC")
	assert.Equal(t, 10, space.BookedQty)
	assert.Equal(t, 0, space.AvailableQty)

	stored, err := env.Services.Bookings.GetOceanBooking(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusRequested, stored.Status, "rejected booking stays requested")
}

func TestConfirmOceanBooking_UnknownSpaceIsExhausted(t *testing.T) {
	env := testutil.NewEnv(t)
	shipment := testutil.CreateSeaShipment(t, env.Services)
	voyage := testutil.CreateVoyage(t, env.Services, "40HC", 10)

	_, err := testutil.BookContainers(t, env.Services, shipment.ID, voyage.ID, "20GP", 1)
	var capErr *domain.CapacityExhaustedError
	require.True(t, errors.As(err, &capErr))
	assert.True(t, capErr.Available.IsZero())
}

func TestConfirmOceanBooking_ConcurrentRequestsNeverOversell(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	voyage := testutil.CreateVoyage(t, env.Services, "40HC", 10)

	const attempts = 8
	ids := make([]uuid.UUID, 0, attempts)
	for i := 0; i < attempts; i++ {
		shipment := testutil.CreateSeaShipment(t, env.Services)
		booking, err := env.Services.Bookings.RequestOceanBooking(ctx, &domain.OceanBookingRequest{
			ShipmentID: shipment.ID,
			ScheduleID: voyage.ID,
			Containers: []domain.BookingContainerRequest{{ContainerType: "40HC", Qty: 2}},
		})
		require.NoError(t, err)
		ids = append(ids, booking.ID)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	confirmed, exhausted := 0, 0
	var unexpected []error
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := env.Services.Bookings.ConfirmOceanBooking(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				confirmed++
			case errors.Is(err, domain.ErrCapacityExhausted):
				exhausted++
			default:
				unexpected = append(unexpected, err)
			}
		}(id)
	}
	wg.Wait()

	require.Empty(t, unexpected)
	assert.Equal(t, 5, confirmed)
	assert.Equal(t, 3, exhausted)

	space := spaceOf(t, env, voyage.ID, "40HC")
	assert.Equal(t, 10, space.BookedQty)
	assert.Equal(t, 0, space.AvailableQty)
}

func TestAllocatedSpace_IsHeldForItsCustomer(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	voyage := testutil.CreateVoyage(t, env.Services, "40HC", 10)
	space := spaceOf(t, env, voyage.ID, "40HC")

	_, err := env.Services.Scheduling.AllocateSpace(ctx, &domain.AllocateSpaceRequest{
		SpaceID:      space.ID,
		CustomerCode: testutil.CustomerCode,
		AllocatedQty: 4,
	})
	require.NoError(t, err)

	cash := createCashShipment(t, env)
	_, err = testutil.BookContainers(t, env.Services, cash.ID, voyage.ID, "40HC", 7)
	assert.True(t, errors.Is(err, domain.ErrCapacityExhausted), "only 6 containers are unallocated")
	_, err = testutil.BookContainers(t, env.Services, cash.ID, voyage.ID, "40HC", 6)
	require.NoError(t, err)

	acme := testutil.CreateSeaShipment(t, env.Services)
	_, err = testutil.BookContainers(t, env.Services, acme.ID, voyage.ID, "40HC", 4)
	require.NoError(t, err)

	allocations, err := env.Services.Scheduling.ListAllocations(ctx, space.ID)
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, 4, allocations[0].UsedQty)
	assert.Equal(t, 0, allocations[0].RemainingQty())

	_, err = env.Services.Scheduling.AllocateSpace(ctx, &domain.AllocateSpaceRequest{
		SpaceID:      space.ID,
		CustomerCode: testutil.CustomerCode,
		AllocatedQty: 3,
	})
	assert.True(t, errors.Is(err, domain.ErrCapacityExhausted), "allocation cannot shrink below usage")
}

// ============================================================================
// Cancellation
// ============================================================================

func TestCancelOceanBooking_ReleasesSpace(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	voyage := testutil.CreateVoyage(t, env.Services, "40HC", 10)

	booking, err := testutil.BookContainers(t, env.Services, shipment.ID, voyage.ID, "40HC", 3)
	require.NoError(t, err)

	_, err = env.Services.Bookings.CancelOceanBooking(ctx, booking.ID, "")
	assert.True(t, errors.Is(err, domain.ErrValidation), "reason is required")

	cancelled, err := env.Services.Bookings.CancelOceanBooking(ctx, booking.ID, "customer withdrew")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)

	space := spaceOf(t, env, voyage.ID, "40HC")
	assert.Equal(t, 0, space.BookedQty)
	assert.Equal(t, 10, space.AvailableQty)

	_, err = env.Services.Bookings.ConfirmOceanBooking(ctx, booking.ID)
	assert.True(t, errors.Is(err, domain.ErrStateTransition))
}

func TestCancelShipment_ReleasesConfirmedBookings(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	voyage := testutil.CreateVoyage(t, env.Services, "40HC", 10)

	booking, err := testutil.BookContainers(t, env.Services, shipment.ID, voyage.ID, "40HC", 4)
	require.NoError(t, err)

	cancelled, err := env.Services.Shipments.Cancel(ctx, shipment.ID, "order lost")
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusCancelled, cancelled.Status)

	stored, err := env.Services.Bookings.GetOceanBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, stored.Status)

	space := spaceOf(t, env, voyage.ID, "40HC")
	assert.Equal(t, 10, space.AvailableQty)

	_, err = env.Services.Bookings.RequestOceanBooking(ctx, &domain.OceanBookingRequest{
		ShipmentID: shipment.ID,
		ScheduleID: voyage.ID,
		Containers: []domain.BookingContainerRequest{{ContainerType: "40HC", Qty: 1}},
	})
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "cancelled shipments take no bookings")
}

// ============================================================================
// Air bookings
// ============================================================================

func TestAirBooking_CommitsChargeableWeight(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateAirShipment(t, env.Services)

	etd := testutil.Date(2030, 1, 10)
	flight, err := env.Services.Scheduling.CreateAirSchedule(ctx, &domain.CreateAirScheduleRequest{
		CarrierCode: testutil.AirCarrierCode,
		FlightNo:    "KE081",
		FlightDate:  etd,
		OriginCode:  testutil.OriginAirport,
		DestCode:    testutil.DestAirport,
		ETD:         etd,
		ETA:         etd.Add(14 * time.Hour),
		MaxWeightKg: testutil.Dec("1000"),
	})
	require.NoError(t, err)

	booking, err := env.Services.Bookings.RequestAirBooking(ctx, &domain.AirBookingRequest{
		ShipmentID:    shipment.ID,
		ScheduleID:    flight.ID,
		PackageQty:    10,
		GrossWeightKg: testutil.Dec("500"),
		VolumeCBM:     testutil.Dec("4"),
	})
	require.NoError(t, err)
	assert.True(t, booking.ChargeableWeightKg.Equal(testutil.Dec("668")), "4 cbm × 167 beats 500 kg")

	_, err = env.Services.Bookings.ConfirmAirBooking(ctx, booking.ID)
	require.NoError(t, err)

	stored, err := env.Services.Scheduling.GetAirSchedule(ctx, flight.ID)
	require.NoError(t, err)
	assert.True(t, stored.AvailableWeightKg.Equal(testutil.Dec("332")))

	second, err := env.Services.Bookings.RequestAirBooking(ctx, &domain.AirBookingRequest{
		ShipmentID:    shipment.ID,
		ScheduleID:    flight.ID,
		PackageQty:    1,
		GrossWeightKg: testutil.Dec("400"),
	})
	require.NoError(t, err)
	_, err = env.Services.Bookings.ConfirmAirBooking(ctx, second.ID)
	assert.True(t, errors.Is(err, domain.ErrCapacityExhausted))
}
