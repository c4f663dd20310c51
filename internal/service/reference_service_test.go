package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"github.com/straye-as/fms-api/internal/service"
	"github.com/straye-as/fms-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Idempotent upserts
// ============================================================================

func TestUpsertPort_Idempotent(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	port := func(name string) *domain.Port {
		return &domain.Port{Code: "krinc", Name: name, CountryCode: "kr", PortType: domain.PortTypeSea}
	}

	result, err := env.Services.References.UpsertPort(ctx, port("Incheon"))
	require.NoError(t, err)
	assert.Equal(t, repository.UpsertCreated, result)

	result, err = env.Services.References.UpsertPort(ctx, port("Incheon"))
	require.NoError(t, err)
	assert.Equal(t, repository.UpsertUnchanged, result)

	result, err = env.Services.References.UpsertPort(ctx, port("Incheon New Port"))
	require.NoError(t, err)
	assert.Equal(t, repository.UpsertUpdated, result)

	stored, err := env.Services.References.GetPort(ctx, "KRINC")
	require.NoError(t, err)
	assert.Equal(t, "Incheon New Port", stored.Name)

	_, err = env.Services.References.UpsertPort(ctx, &domain.Port{Code: "ZZABC", Name: "Nowhere", CountryCode: "ZZ", PortType: domain.PortTypeSea})
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity))
}

func TestDeactivatePort_BlocksNewReferences(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	require.NoError(t, env.Services.References.DeactivatePort(ctx, testutil.DestPort))

	_, err := env.Services.Shipments.CreateShipment(ctx, &domain.ShipmentRequest{
		TransportMode: domain.TransportModeSea,
		TradeType:     domain.TradeTypeExport,
		CustomerCode:  testutil.CustomerCode,
		DestPortCode:  testutil.DestPort,
	})
	var refErr *domain.ReferentialIntegrityError
	require.True(t, errors.As(err, &refErr), "got %v", err)
	assert.Equal(t, "destPortCode", refErr.Field)

	active, err := env.Services.References.ListPorts(ctx, domain.PortTypeSea, true)
	require.NoError(t, err)
	for _, p := range active {
		assert.NotEqual(t, testutil.DestPort, p.Code)
	}

	err = env.Services.References.DeactivatePort(ctx, "NOPRT")
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestUpsertCustomer_CreditLimitNeedsCurrency(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	_, err := env.Services.Parties.UpsertCustomer(ctx, &domain.Customer{
		Code:         "NEWCO",
		Name:         "New Co",
		CustomerType: domain.CustomerTypeShipper,
		CreditLimit:  testutil.Dec("1000"),
	})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	result, err := env.Services.Parties.UpsertCustomer(ctx, &domain.Customer{
		Code:           "newco",
		Name:           "New Co",
		CustomerType:   domain.CustomerTypeShipper,
		CreditLimit:    testutil.Dec("1000"),
		CreditCurrency: "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, repository.UpsertCreated, result)

	customer, err := env.Services.Parties.GetCustomerByCode(ctx, "NEWCO")
	require.NoError(t, err)
	assert.Equal(t, "USD", customer.CreditCurrency)
}

// ============================================================================
// Exchange rates
// ============================================================================

func TestLookupExchangeRate_FallsBackToInverse(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	day := testutil.Date(2030, time.March, 1)

	_, err := env.Services.References.SetExchangeRate(ctx, &domain.ExchangeRate{
		BaseCurrency: "USD", TargetCurrency: "KRW", RateDate: day, Rate: testutil.Dec("1250"),
	})
	require.NoError(t, err)

	direct, err := env.Services.References.LookupExchangeRate(ctx, "usd", "krw", day.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.True(t, direct.Equal(testutil.Dec("1250")), "latest rate on or before the date")

	inverse, err := env.Services.References.LookupExchangeRate(ctx, "KRW", "USD", day)
	require.NoError(t, err)
	assert.True(t, inverse.Equal(testutil.Dec("0.0008")), "got %s", inverse)

	_, err = env.Services.References.LookupExchangeRate(ctx, "USD", "KRW", day.AddDate(0, 0, -1))
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity), "no rate before the first quote")

	same, err := env.Services.References.LookupExchangeRate(ctx, "KRW", "KRW", day)
	require.NoError(t, err)
	assert.True(t, same.Equal(testutil.Dec("1")))
}

func TestImportRates_SkipsInvalidRows(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	day := testutil.Date(2030, time.March, 2)

	batch := []domain.ExchangeRate{
		{BaseCurrency: "USD", TargetCurrency: "KRW", RateDate: day, Rate: testutil.Dec("1340")},
		{BaseCurrency: "USD", TargetCurrency: "USD", RateDate: day, Rate: testutil.Dec("1")},
		{BaseCurrency: "XXX", TargetCurrency: "KRW", RateDate: day, Rate: testutil.Dec("5")},
		{BaseCurrency: "USD", TargetCurrency: "KRW", RateDate: day.AddDate(0, 0, 1), Rate: testutil.Dec("-3")},
	}

	res, err := env.Services.References.ImportRates(ctx, batch, "test-feed")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 3, res.Rejected)

	res, err = env.Services.References.ImportRates(ctx, batch[:1], "test-feed")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)

	rates, err := env.Services.References.ListExchangeRates(ctx, "USD", "KRW", 10)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "test-feed", rates[0].Source)
}
