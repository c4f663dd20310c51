package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"github.com/straye-as/fms-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Transport orders
// ============================================================================

func TestTransportOrder_Lifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	order, err := env.Services.Transport.CreateTransportOrder(ctx, &domain.TransportOrderRequest{
		ShipmentID:      shipment.ID,
		TruckerCode:     "trk01",
		PickupAddress:   "Busan New Port Terminal 3",
		DeliveryAddress: "Gimhae Logistics Center",
		Freight:         domain.NewMoney(testutil.Dec("300000"), "krw"),
	})
	require.NoError(t, err)
	assert.Equal(t, testutil.TruckerCode, order.TruckerCode)
	assert.Equal(t, "KRW", order.Freight.Currency)
	assert.True(t, service.ValidNumber(domain.PrefixTransportOrder, order.OrderNo))
	assert.Equal(t, domain.TransportStatusRequested, order.Status)

	_, err = env.Services.Transport.Deliver(ctx, order.ID)
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "must be dispatched first")

	dispatched, err := env.Services.Transport.Dispatch(ctx, order.ID)
	require.NoError(t, err)
	assert.NotNil(t, dispatched.DispatchedAt)

	delivered, err := env.Services.Transport.Deliver(ctx, order.ID)
	require.NoError(t, err)
	assert.NotNil(t, delivered.DeliveredAt)

	_, err = env.Services.Transport.Cancel(ctx, order.ID, "wrong address")
	assert.True(t, errors.Is(err, domain.ErrStateTransition))

	orders, err := env.Services.Transport.ListByShipment(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestTransportOrder_Rejections(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	base := func() domain.TransportOrderRequest {
		return domain.TransportOrderRequest{
			ShipmentID:      shipment.ID,
			TruckerCode:     testutil.TruckerCode,
			PickupAddress:   "A",
			DeliveryAddress: "B",
			Freight:         domain.NewMoney(testutil.Dec("1000"), "KRW"),
		}
	}

	tests := []struct {
		name   string
		mutate func(r *domain.TransportOrderRequest)
		target error
	}{
		{"unknown trucker", func(r *domain.TransportOrderRequest) { r.TruckerCode = "NOBODY" }, domain.ErrReferentialIntegrity},
		{"unknown currency", func(r *domain.TransportOrderRequest) { r.Freight.Currency = "XXX" }, domain.ErrReferentialIntegrity},
		{"negative freight", func(r *domain.TransportOrderRequest) { r.Freight.Value = testutil.Dec("-1") }, domain.ErrValidation},
		{"missing pickup", func(r *domain.TransportOrderRequest) { r.PickupAddress = "" }, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(&req)
			_, err := env.Services.Transport.CreateTransportOrder(ctx, &req)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	t.Run("cancel needs a reason", func(t *testing.T) {
		req := base()
		order, err := env.Services.Transport.CreateTransportOrder(ctx, &req)
		require.NoError(t, err)
		_, err = env.Services.Transport.Cancel(ctx, order.ID, "")
		assert.True(t, errors.Is(err, domain.ErrValidation))

		cancelled, err := env.Services.Transport.Cancel(ctx, order.ID, "customer picks up")
		require.NoError(t, err)
		assert.Equal(t, "customer picks up", cancelled.CancelReason)
	})
}

// ============================================================================
// Demurrage
// ============================================================================

func TestCalculateDemurrage(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	start := testutil.Date(2030, time.March, 1)

	record, err := env.Services.Transport.CalculateDemurrage(ctx, &domain.DemurrageRequest{
		ShipmentID:  shipment.ID,
		ContainerNo: "msku1234567",
		StartDate:   &start,
		EndDate:     testutil.Date(2030, time.March, 10),
		FreeDays:    7,
		DailyRate:   domain.NewMoney(testutil.Dec("100"), "USD"),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, record.TotalDays)
	assert.Equal(t, 3, record.ChargeableDays)
	assert.True(t, record.Amount.Value.Equal(testutil.Dec("300")))
	assert.Equal(t, "USD", record.Amount.Currency)
	assert.Equal(t, "MSKU1234567", record.ContainerNo)

	records, err := env.Services.Transport.ListDemurrage(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCalculateDemurrage_Rejections(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	start := testutil.Date(2030, time.March, 10)

	_, err := env.Services.Transport.CalculateDemurrage(ctx, &domain.DemurrageRequest{
		ShipmentID:  shipment.ID,
		ContainerNo: "MSKU1234567",
		EndDate:     testutil.Date(2030, time.March, 20),
		DailyRate:   domain.NewMoney(testutil.Dec("100"), "USD"),
	})
	assert.True(t, errors.Is(err, domain.ErrValidation), "no start date before arrival")

	_, err = env.Services.Transport.CalculateDemurrage(ctx, &domain.DemurrageRequest{
		ShipmentID:  shipment.ID,
		ContainerNo: "MSKU1234567",
		StartDate:   &start,
		EndDate:     testutil.Date(2030, time.March, 1),
		DailyRate:   domain.NewMoney(testutil.Dec("100"), "USD"),
	})
	assert.True(t, errors.Is(err, domain.ErrValidation), "end before start")
}
