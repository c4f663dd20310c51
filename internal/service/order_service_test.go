package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"github.com/straye-as/fms-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderRequest(customer string, freight string) *domain.CreateOrderRequest {
	return &domain.CreateOrderRequest{
		CustomerCode:     customer,
		TransportMode:    domain.TransportModeSea,
		TradeType:        domain.TradeTypeExport,
		Incoterm:         "fob",
		OriginPortCode:   testutil.OriginPort,
		DestPortCode:     testutil.DestPort,
		EstimatedFreight: domain.NewMoney(testutil.Dec(freight), "KRW"),
		Lines: []domain.OrderLineRequest{
			{Description: "Laptops", HSCode: testutil.HSCodeMachinery, PackageQty: 40, GrossWeightKg: testutil.Dec("800"), VolumeCBM: testutil.Dec("6")},
			{Description: "Monitors", PackageQty: 20, GrossWeightKg: testutil.Dec("400"), VolumeCBM: testutil.Dec("4")},
		},
	}
}

// ============================================================================
// Order intake
// ============================================================================

func TestCreateOrder_FillsHeaderFromLines(t *testing.T) {
	env := testutil.NewEnv(t)

	order, warnings, err := env.Services.Orders.CreateOrder(context.Background(), orderRequest(testutil.CustomerCode, "5000000"))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, domain.OrderStatusReceived, order.Status)
	assert.Equal(t, "FOB", order.Incoterm)
	assert.Equal(t, 60, order.PackageQty)
	assert.True(t, order.GrossWeightKg.Equal(testutil.Dec("1200")))
	assert.True(t, order.VolumeCBM.Equal(testutil.Dec("10")))
	assert.True(t, service.ValidNumber(domain.PrefixOrder, order.OrderNo), order.OrderNo)
}

func TestCreateOrder_MismatchedHeaderWarns(t *testing.T) {
	env := testutil.NewEnv(t)
	req := orderRequest(testutil.CustomerCode, "0")
	req.PackageQty = 61
	req.GrossWeightKg = testutil.Dec("1300")
	req.VolumeCBM = testutil.Dec("10")

	order, warnings, err := env.Services.Orders.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, warnings, 2)
	assert.Equal(t, 61, order.PackageQty, "the header is kept as given")
}

func TestCreateOrder_RejectsUnknownReferences(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *domain.CreateOrderRequest)
		field  string
	}{
		{"customer", func(r *domain.CreateOrderRequest) { r.CustomerCode = "GHOST" }, "customerCode"},
		{"origin port", func(r *domain.CreateOrderRequest) { r.OriginPortCode = "ZZZZZ" }, "originPortCode"},
		{"incoterm", func(r *domain.CreateOrderRequest) { r.Incoterm = "XYZ" }, "incoterm"},
		{"line hs code", func(r *domain.CreateOrderRequest) { r.Lines[1].HSCode = "000000" }, "lines[1].hsCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := orderRequest(testutil.CustomerCode, "0")
			tt.mutate(req)
			_, _, err := env.Services.Orders.CreateOrder(ctx, req)
			var refErr *domain.ReferentialIntegrityError
			require.True(t, errors.As(err, &refErr), "got %v", err)
			assert.Equal(t, tt.field, refErr.Field)
		})
	}
}

// ============================================================================
// Confirmation and credit
// ============================================================================

func TestConfirmOrder_CreatesDraftShipment(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	order, _, err := env.Services.Orders.CreateOrder(ctx, orderRequest(testutil.CustomerCode, "5000000"))
	require.NoError(t, err)

	result, err := env.Services.Orders.ConfirmOrder(ctx, order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, result.Order.Status)
	assert.Equal(t, domain.CreditApproved, result.CreditCheck.Result)
	require.NotNil(t, result.Order.ShipmentID)

	shipment, err := env.Services.Shipments.Get(ctx, *result.Order.ShipmentID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusDraft, shipment.Status)
	assert.Equal(t, 60, shipment.PackageQty)
	require.NotNil(t, shipment.OrderID)
	assert.Equal(t, order.ID, *shipment.OrderID)

	_, err = env.Services.Orders.ConfirmOrder(ctx, order.ID, nil)
	assert.True(t, errors.Is(err, domain.ErrStateTransition))

	_, err = env.Services.Orders.CancelOrder(ctx, order.ID, "changed mind")
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "confirmed orders are not cancellable")
}

func TestConfirmOrder_CreditRejectionAndOverride(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	order, _, err := env.Services.Orders.CreateOrder(ctx, orderRequest(testutil.CashCustomer, "1000000"))
	require.NoError(t, err)

	_, err = env.Services.Orders.ConfirmOrder(ctx, order.ID, &domain.ConfirmOrderRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrCreditRejected))
	assert.True(t, errors.Is(err, domain.ErrCapacityExhausted))

	stored, err := env.Services.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReceived, stored.Status)
	assert.Nil(t, stored.ShipmentID)

	checks, err := env.Services.Billing.ListCreditChecks(ctx, testutil.CashCustomer, 10)
	require.NoError(t, err)
	require.Len(t, checks, 1, "the rejection is recorded")
	assert.Equal(t, domain.CreditRejected, checks[0].Result)

	actx := domain.WithActor(ctx, "finance.lee")
	result, err := env.Services.Orders.ConfirmOrder(actx, order.ID, &domain.ConfirmOrderRequest{OverrideReason: "prepaid by wire"})
	require.NoError(t, err)
	assert.Equal(t, domain.CreditOverridden, result.CreditCheck.Result)
	assert.Equal(t, "finance.lee", result.CreditCheck.OverrideBy)
	assert.Equal(t, "finance.lee", result.Order.CreditOverrideBy)
}

func TestConfirmOrder_ConfirmedOrdersConsumeCredit(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	first, _, err := env.Services.Orders.CreateOrder(ctx, orderRequest(testutil.CustomerCode, "60000000"))
	require.NoError(t, err)
	second, _, err := env.Services.Orders.CreateOrder(ctx, orderRequest(testutil.CustomerCode, "50000000"))
	require.NoError(t, err)

	confirmed, err := env.Services.Orders.ConfirmOrder(ctx, first.ID, nil)
	require.NoError(t, err)

	_, err = env.Services.Orders.ConfirmOrder(ctx, second.ID, nil)
	assert.True(t, errors.Is(err, service.ErrCreditRejected), "60M in flight leaves 40M for a 50M order")

	_, err = env.Services.Shipments.Cancel(ctx, confirmed.Shipment.ID, "customer withdrew")
	require.NoError(t, err)

	_, err = env.Services.Orders.ConfirmOrder(ctx, second.ID, nil)
	require.NoError(t, err, "a cancelled shipment no longer holds credit")
}

func TestConfirmOrder_UnknownOrder(t *testing.T) {
	env := testutil.NewEnv(t)
	_, err := env.Services.Orders.ConfirmOrder(context.Background(), uuid.New(), nil)
	assert.True(t, errors.Is(err, service.ErrNotFound))
}
