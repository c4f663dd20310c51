package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// invoicedFreight posts 2800 USD of ocean freight at 1350 KRW/USD and invoices it
func invoicedFreight(t *testing.T, env *testutil.Env) (*domain.Charge, *domain.Invoice) {
	t.Helper()
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	charge, err := env.Services.Billing.PostCharge(ctx, &domain.PostChargeRequest{
		ShipmentID:   shipment.ID,
		Side:         domain.SideAR,
		ChargeCode:   testutil.ChargeOceanFrt,
		CustomerCode: testutil.CustomerCode,
		Quantity:     decimal.NewFromInt(1),
		UnitPrice:    testutil.Dec("2800"),
		Currency:     "USD",
		ExchangeRate: testutil.DecPtr("1350"),
	})
	require.NoError(t, err)

	invoice, err := env.Services.Billing.IssueInvoice(ctx, &domain.IssueInvoiceRequest{
		CustomerCode: testutil.CustomerCode,
		Side:         domain.SideAR,
		ChargeIDs:    []uuid.UUID{charge.ID},
	})
	require.NoError(t, err)
	return charge, invoice
}

// ============================================================================
// Charges
// ============================================================================

func TestPostCharge_FreezesLocalAmount(t *testing.T) {
	env := testutil.NewEnv(t)
	charge, _ := invoicedFreight(t, env)

	assert.True(t, charge.Amount.Value.Equal(testutil.Dec("2800")))
	assert.Equal(t, "USD", charge.Amount.Currency)
	assert.True(t, charge.LocalAmount.Value.Equal(testutil.Dec("3780000")))
	assert.Equal(t, "KRW", charge.LocalAmount.Currency)
	assert.True(t, charge.TaxAmount.IsZero(), "configured default tax rate is zero")
}

func TestPostCharge_ReferenceChecks(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	base := domain.PostChargeRequest{
		ShipmentID:   shipment.ID,
		Side:         domain.SideAR,
		ChargeCode:   testutil.ChargeHandling,
		CustomerCode: testutil.CustomerCode,
		Quantity:     decimal.NewFromInt(2),
		UnitPrice:    testutil.Dec("150000"),
		Currency:     "KRW",
	}

	tests := []struct {
		name   string
		mutate func(r *domain.PostChargeRequest)
		target error
	}{
		{"unknown charge code", func(r *domain.PostChargeRequest) { r.ChargeCode = "ZZZ" }, domain.ErrReferentialIntegrity},
		{"unknown customer", func(r *domain.PostChargeRequest) { r.CustomerCode = "NOBODY" }, domain.ErrReferentialIntegrity},
		{"carrier is not an AR customer", func(r *domain.PostChargeRequest) { r.CustomerCode = testutil.SeaCarrierCode }, domain.ErrReferentialIntegrity},
		{"unknown currency", func(r *domain.PostChargeRequest) { r.Currency = "XXX" }, domain.ErrReferentialIntegrity},
		{"zero quantity", func(r *domain.PostChargeRequest) { r.Quantity = decimal.Zero }, domain.ErrValidation},
		{"tax above 100", func(r *domain.PostChargeRequest) { r.TaxRate = testutil.DecPtr("101") }, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, err := env.Services.Billing.PostCharge(ctx, &req)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	apReq := base
	apReq.Side = domain.SideAP
	apReq.CustomerCode = testutil.TruckerCode
	charge, err := env.Services.Billing.PostCharge(ctx, &apReq)
	require.NoError(t, err, "any party may bill us")
	assert.True(t, charge.LocalAmount.Value.Equal(testutil.Dec("300000")))
	assert.True(t, charge.ExchangeRate.Equal(decimal.NewFromInt(1)))
}

func TestPostCharge_LooksUpMissingRate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)
	day := testutil.Date(2024, time.March, 4)

	req := &domain.PostChargeRequest{
		ShipmentID:   shipment.ID,
		Side:         domain.SideAR,
		ChargeCode:   testutil.ChargeOceanFrt,
		CustomerCode: testutil.CustomerCode,
		Quantity:     decimal.NewFromInt(1),
		UnitPrice:    testutil.Dec("100"),
		Currency:     "USD",
		RateDate:     &day,
	}
	_, err := env.Services.Billing.PostCharge(ctx, req)
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity), "no rate on file: %v", err)

	_, err = env.Services.References.SetExchangeRate(ctx, &domain.ExchangeRate{
		BaseCurrency:   "USD",
		TargetCurrency: "KRW",
		RateDate:       testutil.Date(2024, time.March, 1),
		RateType:       domain.RateTypeMid,
		Rate:           testutil.Dec("1333.5"),
	})
	require.NoError(t, err)

	charge, err := env.Services.Billing.PostCharge(ctx, req)
	require.NoError(t, err)
	assert.True(t, charge.LocalAmount.Value.Equal(testutil.Dec("133350")))
}

// ============================================================================
// Invoices and payments
// ============================================================================

func TestIssueInvoice_TotalsAndTerms(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	charge, invoice := invoicedFreight(t, env)

	assert.Equal(t, domain.InvoiceStatusIssued, invoice.Status)
	assert.True(t, invoice.TotalAmount.Equal(testutil.Dec("3780000")))
	assert.True(t, invoice.Balance.Equal(invoice.TotalAmount))
	require.NotNil(t, invoice.DueDate)
	assert.Equal(t, invoice.IssueDate.AddDate(0, 0, 30), *invoice.DueDate)

	_, err := env.Services.Billing.IssueInvoice(ctx, &domain.IssueInvoiceRequest{
		CustomerCode: testutil.CustomerCode,
		Side:         domain.SideAR,
		ChargeIDs:    []uuid.UUID{charge.ID},
	})
	assert.True(t, errors.Is(err, domain.ErrStateTransition), "a charge is invoiced once")
}

func TestApplyPayment_RejectsMoreThanBalance(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	_, invoice := invoicedFreight(t, env)
	paidOn := testutil.Date(2024, time.April, 1)

	_, err := env.Services.Billing.ApplyPayment(ctx, &domain.ApplyPaymentRequest{
		Side:         domain.SideAR,
		CustomerCode: testutil.CustomerCode,
		PaymentDate:  paidOn,
		Amount:       domain.NewMoney(testutil.Dec("2900"), "USD"),
		ExchangeRate: testutil.DecPtr("1350"),
		Applications: []domain.PaymentApplication{{InvoiceID: invoice.ID, Amount: testutil.Dec("2900")}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)

	unchanged, err := env.Services.Billing.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, unchanged.Balance.Equal(testutil.Dec("3780000")))
	assert.Equal(t, domain.InvoiceStatusIssued, unchanged.Status)

	payment, err := env.Services.Billing.ApplyPayment(ctx, &domain.ApplyPaymentRequest{
		Side:         domain.SideAR,
		CustomerCode: testutil.CustomerCode,
		PaymentDate:  paidOn,
		Amount:       domain.NewMoney(testutil.Dec("3780000"), "KRW"),
		Applications: []domain.PaymentApplication{{InvoiceID: invoice.ID, Amount: testutil.Dec("3780000")}},
	})
	require.NoError(t, err)
	require.Len(t, payment.Details, 1)
	assert.True(t, payment.Details[0].AppliedAmount.Equal(testutil.Dec("3780000")))

	paid, err := env.Services.Billing.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, paid.Balance.IsZero())
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)

	_, err = env.Services.Billing.CancelInvoice(ctx, invoice.ID, "duplicate")
	assert.True(t, errors.Is(err, domain.ErrStateTransition))
}

func TestApplyPayment_SettlesUnderDefaultTaxRate(t *testing.T) {
	env := testutil.NewEnv(t, func(cfg *config.Config) { cfg.Billing.DefaultTaxRate = 10 })
	ctx := context.Background()
	charge, invoice := invoicedFreight(t, env)

	assert.True(t, charge.TaxRate.IsZero(), "foreign-currency freight is zero-rated")
	assert.True(t, invoice.TotalAmount.Equal(testutil.Dec("3780000")), "got %s", invoice.TotalAmount)

	handling, err := env.Services.Billing.PostCharge(ctx, &domain.PostChargeRequest{
		ShipmentID:   charge.ShipmentID,
		Side:         domain.SideAR,
		ChargeCode:   testutil.ChargeHandling,
		CustomerCode: testutil.CustomerCode,
		Quantity:     decimal.NewFromInt(1),
		UnitPrice:    testutil.Dec("300000"),
		Currency:     "KRW",
	})
	require.NoError(t, err)
	assert.True(t, handling.TaxRate.Equal(decimal.NewFromInt(10)))
	assert.True(t, handling.TaxAmount.Equal(testutil.Dec("30000")), "got %s", handling.TaxAmount)

	_, err = env.Services.Billing.ApplyPayment(ctx, &domain.ApplyPaymentRequest{
		Side:         domain.SideAR,
		CustomerCode: testutil.CustomerCode,
		PaymentDate:  testutil.Date(2024, time.April, 1),
		Amount:       domain.NewMoney(testutil.Dec("3780000"), "KRW"),
		Applications: []domain.PaymentApplication{{InvoiceID: invoice.ID, Amount: testutil.Dec("3780000")}},
	})
	require.NoError(t, err)

	paid, err := env.Services.Billing.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, paid.Balance.IsZero())
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
}

func TestApplyPayment_PartialThenForeignWithGain(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	_, invoice := invoicedFreight(t, env)
	paidOn := testutil.Date(2024, time.April, 1)

	_, err := env.Services.Billing.ApplyPayment(ctx, &domain.ApplyPaymentRequest{
		Side:         domain.SideAR,
		CustomerCode: testutil.CustomerCode,
		PaymentDate:  paidOn,
		Amount:       domain.NewMoney(testutil.Dec("1000"), "USD"),
		ExchangeRate: testutil.DecPtr("1400"),
		Applications: []domain.PaymentApplication{{InvoiceID: invoice.ID, Amount: testutil.Dec("1000")}},
	})
	require.NoError(t, err)

	partial, err := env.Services.Billing.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPartiallyPaid, partial.Status)
	assert.True(t, partial.Balance.Equal(testutil.Dec("2430000")), "credited at the invoiced 1350, got %s", partial.Balance)

	payment, err := env.Services.Billing.ApplyPayment(ctx, &domain.ApplyPaymentRequest{
		Side:         domain.SideAR,
		CustomerCode: testutil.CustomerCode,
		PaymentDate:  paidOn,
		Amount:       domain.NewMoney(testutil.Dec("1800"), "USD"),
		ExchangeRate: testutil.DecPtr("1300"),
		Applications: []domain.PaymentApplication{{InvoiceID: invoice.ID, Amount: testutil.Dec("1800")}},
	})
	require.NoError(t, err)

	paid, err := env.Services.Billing.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, paid.Balance.IsZero())
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)

	gains, err := env.Services.Billing.ListGainLoss(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, gains, 1)
	assert.True(t, gains[0].GainLossAmount.Equal(testutil.Dec("-90000")), "1800 × (1300 - 1350), got %s", gains[0].GainLossAmount)
}

func TestApplyPayment_ApplicationsMayNotExceedPayment(t *testing.T) {
	env := testutil.NewEnv(t)
	_, invoice := invoicedFreight(t, env)

	_, err := env.Services.Billing.ApplyPayment(context.Background(), &domain.ApplyPaymentRequest{
		Side:         domain.SideAR,
		CustomerCode: testutil.CustomerCode,
		PaymentDate:  testutil.Date(2024, time.April, 1),
		Amount:       domain.NewMoney(testutil.Dec("100"), "KRW"),
		Applications: []domain.PaymentApplication{{InvoiceID: invoice.ID, Amount: testutil.Dec("200")}},
	})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

// ============================================================================
// Credit and reporting
// ============================================================================

func TestCheckCredit(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	invoicedFreight(t, env)

	check, err := env.Services.Billing.CheckCredit(ctx, &domain.CreditCheckRequest{
		CustomerCode:    testutil.CustomerCode,
		RequestedAmount: testutil.Dec("90000000"),
	})
	require.NoError(t, err)
	assert.True(t, check.CurrentAR.Equal(testutil.Dec("3780000")))
	assert.True(t, check.AvailableCredit.Equal(testutil.Dec("96220000")))
	assert.Equal(t, domain.CreditApproved, check.Result)

	check, err = env.Services.Billing.CheckCredit(ctx, &domain.CreditCheckRequest{
		CustomerCode:    testutil.CustomerCode,
		RequestedAmount: testutil.Dec("96220001"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CreditRejected, check.Result)

	cash, err := env.Services.Billing.CheckCredit(ctx, &domain.CreditCheckRequest{
		CustomerCode:    testutil.CashCustomer,
		RequestedAmount: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CreditRejected, cash.Result, "no limit means cash only")

	history, err := env.Services.Billing.ListCreditChecks(ctx, testutil.CustomerCode, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSnapshotAgingAndProfit(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	charge, invoice := invoicedFreight(t, env)

	asOf := invoice.DueDate.AddDate(0, 0, 45)
	rows, err := env.Services.Billing.SnapshotAging(ctx, domain.SideAR, asOf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, testutil.CustomerCode, rows[0].CustomerCode)
	assert.True(t, rows[0].Days31To60.Equal(testutil.Dec("3780000")))
	assert.True(t, rows[0].Total.Equal(testutil.Dec("3780000")))

	_, err = env.Services.Billing.PostCharge(ctx, &domain.PostChargeRequest{
		ShipmentID:   charge.ShipmentID,
		Side:         domain.SideAP,
		ChargeCode:   testutil.ChargeOceanFrt,
		CustomerCode: testutil.SeaCarrierCode,
		Quantity:     decimal.NewFromInt(1),
		UnitPrice:    testutil.Dec("2000"),
		Currency:     "USD",
		ExchangeRate: testutil.DecPtr("1350"),
	})
	require.NoError(t, err)

	profit, err := env.Services.Billing.SnapshotProfit(ctx, charge.ShipmentID, asOf)
	require.NoError(t, err)
	assert.True(t, profit.Revenue.Equal(testutil.Dec("3780000")))
	assert.True(t, profit.Cost.Equal(testutil.Dec("2700000")))
	assert.True(t, profit.Profit.Equal(testutil.Dec("1080000")))
	assert.True(t, profit.MarginPct.Equal(testutil.Dec("28.57")))

	_, err = env.Services.Billing.SnapshotAging(ctx, "XX", asOf)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
