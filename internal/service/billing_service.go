package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BillingService posts charges, raises invoices, applies payments and produces the
// credit, aging and profit figures. All invoice amounts are in the local currency;
// a charge's local amount is frozen at the rate it was posted with.
type BillingService struct {
	db           *gorm.DB
	billingRepo  *repository.BillingRepository
	shipmentRepo *repository.ShipmentRepository
	bookingRepo  *repository.BookingRepository
	orderRepo    *repository.OrderRepository
	partyRepo    *repository.PartyRepository
	refRepo      *repository.ReferenceRepository
	reportRepo   *repository.ReportRepository
	references   *ReferenceService
	numbers      *NumberSequenceService
	cfg          config.BillingConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewBillingService creates a new BillingService
func NewBillingService(
	db *gorm.DB,
	billingRepo *repository.BillingRepository,
	shipmentRepo *repository.ShipmentRepository,
	bookingRepo *repository.BookingRepository,
	orderRepo *repository.OrderRepository,
	partyRepo *repository.PartyRepository,
	refRepo *repository.ReferenceRepository,
	reportRepo *repository.ReportRepository,
	references *ReferenceService,
	numbers *NumberSequenceService,
	cfg config.BillingConfig,
	logger *zap.Logger,
) *BillingService {
	if cfg.LocalCurrency == "" {
		cfg.LocalCurrency = "KRW"
	}
	return &BillingService{
		db:           db,
		billingRepo:  billingRepo,
		shipmentRepo: shipmentRepo,
		bookingRepo:  bookingRepo,
		orderRepo:    orderRepo,
		partyRepo:    partyRepo,
		refRepo:      refRepo,
		reportRepo:   reportRepo,
		references:   references,
		numbers:      numbers,
		cfg:          cfg,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// LocalCurrency returns the functional currency invoices are raised in
func (s *BillingService) LocalCurrency() string {
	return s.cfg.LocalCurrency
}

// chargeInput is a charge ready to be priced. Amount overrides Quantity × UnitPrice
// when a tariff clamp applies.
type chargeInput struct {
	ShipmentID   uuid.UUID
	Side         domain.BillingSide
	ChargeCode   string
	CustomerCode string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Amount       *decimal.Decimal
	Currency     string
	ExchangeRate *decimal.Decimal
	RateDate     time.Time
	TaxRate      *decimal.Decimal
}

// CreateTariff registers a sell or buy price
func (s *BillingService) CreateTariff(ctx context.Context, t *domain.Tariff) error {
	t.ChargeCode = normalizeCode(t.ChargeCode)
	t.UnitPrice.Currency = normalizeCode(t.UnitPrice.Currency)
	t.ValidFrom = dateOnly(t.ValidFrom)
	if !t.Side.Valid() {
		return domain.NewValidationError("Tariff", "side", "must be AR or AP")
	}
	if !t.TransportMode.Valid() {
		return domain.NewValidationError("Tariff", "transportMode", "must be SEA or AIR")
	}
	switch t.Unit {
	case domain.UnitPerContainer, domain.UnitPerKg, domain.UnitPerCBM, domain.UnitPerBL, domain.UnitFlat:
	default:
		return domain.NewValidationError("Tariff", "unit", "unknown tariff unit "+string(t.Unit))
	}
	if t.UnitPrice.IsNegative() {
		return domain.NewValidationError("Tariff", "unitPrice", "must not be negative")
	}
	if t.ValidTo != nil && t.ValidTo.Before(t.ValidFrom) {
		return domain.NewValidationError("Tariff", "validTo", "must not precede validFrom")
	}
	if err := checkRefs(ctx, s.refRepo, "Tariff",
		currencyRef("unitPrice.currency", t.UnitPrice.Currency),
		customerRef("customerCode", t.CustomerCode),
		carrierRef("carrierCode", t.CarrierCode),
		portRef("polCode", t.POLCode),
		portRef("podCode", t.PODCode),
	); err != nil {
		return err
	}
	if err := checkCommonCode(ctx, s.refRepo, "Tariff", "chargeCode", domain.CodeGroupChargeCode, t.ChargeCode); err != nil {
		return err
	}
	return s.billingRepo.CreateTariff(ctx, t)
}

// PostCharge records a billable line. The local amount is converted once, here, at the
// given rate or the MID rate of RateDate.
func (s *BillingService) PostCharge(ctx context.Context, req *domain.PostChargeRequest) (*domain.Charge, error) {
	if err := validateStruct("Charge", req); err != nil {
		return nil, err
	}
	in := chargeInput{
		ShipmentID:   req.ShipmentID,
		Side:         req.Side,
		ChargeCode:   req.ChargeCode,
		CustomerCode: req.CustomerCode,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		Currency:     req.Currency,
		ExchangeRate: req.ExchangeRate,
		RateDate:     s.now(),
		TaxRate:      req.TaxRate,
	}
	if req.RateDate != nil {
		in.RateDate = *req.RateDate
	}

	var charge *domain.Charge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		charge, err = s.postChargeInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return charge, nil
}

func (s *BillingService) postChargeInTx(ctx context.Context, tx *gorm.DB, in chargeInput) (*domain.Charge, error) {
	in.ChargeCode = normalizeCode(in.ChargeCode)
	in.CustomerCode = normalizeCode(in.CustomerCode)
	in.Currency = normalizeCode(in.Currency)
	if !in.Quantity.IsPositive() {
		return nil, domain.NewValidationError("Charge", "quantity", "must be positive")
	}
	if in.UnitPrice.IsNegative() {
		return nil, domain.NewValidationError("Charge", "unitPrice", "must not be negative")
	}
	if in.ExchangeRate != nil && !in.ExchangeRate.IsPositive() {
		return nil, domain.NewValidationError("Charge", "exchangeRate", "must be positive")
	}

	if _, err := s.shipmentRepo.WithTx(tx).GetByID(ctx, in.ShipmentID); err != nil {
		return nil, notFound(err, "shipment")
	}
	refs := s.refRepo.WithTx(tx)
	if err := checkCommonCode(ctx, refs, "Charge", "chargeCode", domain.CodeGroupChargeCode, in.ChargeCode); err != nil {
		return nil, err
	}
	if err := checkRefs(ctx, refs, "Charge", currencyRef("currency", in.Currency)); err != nil {
		return nil, err
	}
	if err := s.checkBillingParty(ctx, refs, in.Side, in.CustomerCode); err != nil {
		return nil, err
	}

	local := s.cfg.LocalCurrency
	places := currencyPlaces(ctx, refs, in.Currency)
	localPlaces := currencyPlaces(ctx, refs, local)
	amount := in.Quantity.Mul(in.UnitPrice).Round(places)
	if in.Amount != nil {
		amount = in.Amount.Round(places)
	}

	rateDate := dateOnly(in.RateDate)
	rate := decimal.NewFromInt(1)
	switch {
	case in.Currency == local:
	case in.ExchangeRate != nil:
		rate = *in.ExchangeRate
	default:
		var err error
		rate, err = s.references.lookupRateTx(ctx, tx, in.Currency, local, rateDate)
		if err != nil {
			return nil, err
		}
	}

	// the default rate covers domestic, local-currency lines only; foreign-currency
	// freight is zero-rated unless the caller gives a rate
	taxRate := decimal.Zero
	if in.Currency == local {
		taxRate = decimal.NewFromFloat(s.cfg.DefaultTaxRate)
	}
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, domain.NewValidationError("Charge", "taxRate", "must be between 0 and 100")
	}

	charge := &domain.Charge{
		ShipmentID:   in.ShipmentID,
		Side:         in.Side,
		ChargeCode:   in.ChargeCode,
		CustomerCode: in.CustomerCode,
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		Amount:       domain.NewMoney(amount, in.Currency),
		ExchangeRate: rate,
		RateDate:     rateDate,
		TaxRate:      taxRate,
		Status:       domain.ChargeStatusPending,
	}
	charge.LocalAmount = charge.Amount.Convert(rate, local, localPlaces)
	charge.TaxAmount = domain.PercentOf(charge.LocalAmount.Value, taxRate, localPlaces)

	if err := s.billingRepo.WithTx(tx).CreateCharge(ctx, charge); err != nil {
		return nil, fmt.Errorf("failed to create charge: %w", err)
	}
	s.logger.Info("charge posted",
		zap.String("shipment_id", charge.ShipmentID.String()),
		zap.String("side", string(charge.Side)),
		zap.String("charge_code", charge.ChargeCode),
		zap.String("amount", charge.Amount.String()),
		zap.String("local_amount", charge.LocalAmount.String()))
	return charge, nil
}

// checkBillingParty requires a customer for AR. AP lines may be owed to any party
// master that sends us bills.
func (s *BillingService) checkBillingParty(ctx context.Context, refs *repository.ReferenceRepository, side domain.BillingSide, code string) error {
	if side == domain.SideAR {
		return checkRefs(ctx, refs, "Charge", customerRef("customerCode", code))
	}
	for _, model := range []interface{}{&domain.Carrier{}, &domain.Trucker{}, &domain.Partner{}, &domain.CustomsBroker{}, &domain.Customer{}} {
		ok, err := refs.CodeExists(ctx, model, code)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return domain.NewReferenceError("Charge", "customerCode", code)
}

// RateCharge prices a charge from the most specific tariff on the shipment's lane
func (s *BillingService) RateCharge(ctx context.Context, req *domain.RateChargeRequest) (*domain.Charge, error) {
	if err := validateStruct("Charge", req); err != nil {
		return nil, err
	}

	var charge *domain.Charge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shipment, err := s.shipmentRepo.WithTx(tx).GetByID(ctx, req.ShipmentID)
		if err != nil {
			return notFound(err, "shipment")
		}
		asOf := dateOnly(s.now())
		query := repository.TariffQuery{
			Side:          req.Side,
			ChargeCode:    normalizeCode(req.ChargeCode),
			TransportMode: shipment.TransportMode,
			CarrierCode:   shipment.CarrierCode,
			POLCode:       shipment.OriginPortCode,
			PODCode:       shipment.DestPortCode,
			ContainerType: normalizeCode(req.ContainerType),
			AsOf:          asOf,
		}
		if req.Side == domain.SideAR {
			query.CustomerCode = normalizeCode(req.CustomerCode)
		}
		tariff, err := s.billingRepo.WithTx(tx).FindTariff(ctx, query)
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.NewReferenceError("Tariff", "chargeCode", query.ChargeCode)
			}
			return err
		}

		qty := decimal.NewFromInt(1)
		if req.Quantity != nil {
			qty = *req.Quantity
		} else {
			qty, err = s.tariffQuantity(ctx, tx, shipment, tariff.Unit, query.ContainerType)
			if err != nil {
				return err
			}
		}
		if !qty.IsPositive() {
			return domain.NewValidationError("Charge", "quantity",
				fmt.Sprintf("shipment has no %s quantity to rate", tariff.Unit))
		}
		amount := tariff.Rate(qty)

		charge, err = s.postChargeInTx(ctx, tx, chargeInput{
			ShipmentID:   shipment.ID,
			Side:         req.Side,
			ChargeCode:   tariff.ChargeCode,
			CustomerCode: req.CustomerCode,
			Quantity:     qty,
			UnitPrice:    tariff.UnitPrice.Value,
			Amount:       &amount,
			Currency:     tariff.UnitPrice.Currency,
			RateDate:     asOf,
			TaxRate:      req.TaxRate,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return charge, nil
}

// tariffQuantity derives the billable quantity of a shipment for a tariff unit
func (s *BillingService) tariffQuantity(ctx context.Context, tx *gorm.DB, shipment *domain.Shipment, unit domain.TariffUnit, containerType string) (decimal.Decimal, error) {
	switch unit {
	case domain.UnitPerKg:
		if shipment.TransportMode == domain.TransportModeAir {
			air, err := s.bookingRepo.WithTx(tx).ListAirByShipment(ctx, shipment.ID)
			if err != nil {
				return decimal.Zero, err
			}
			total := decimal.Zero
			for _, b := range air {
				if b.Status == domain.BookingStatusConfirmed {
					total = total.Add(b.ChargeableWeightKg)
				}
			}
			if total.IsPositive() {
				return total, nil
			}
		}
		return shipment.GrossWeightKg, nil
	case domain.UnitPerCBM:
		return shipment.VolumeCBM, nil
	case domain.UnitPerContainer:
		ocean, err := s.bookingRepo.WithTx(tx).ListOceanByShipment(ctx, shipment.ID)
		if err != nil {
			return decimal.Zero, err
		}
		count := 0
		for _, b := range ocean {
			if b.Status != domain.BookingStatusConfirmed {
				continue
			}
			for _, c := range b.Containers {
				if containerType == "" || c.ContainerType == containerType {
					count += c.Qty
				}
			}
		}
		return decimal.NewFromInt(int64(count)), nil
	default:
		return decimal.NewFromInt(1), nil
	}
}

// IssueInvoice bills pending charges of one party and side. The invoice is ISSUED
// immediately and its due date follows the customer's payment term.
func (s *BillingService) IssueInvoice(ctx context.Context, req *domain.IssueInvoiceRequest) (*domain.Invoice, error) {
	if err := validateStruct("Invoice", req); err != nil {
		return nil, err
	}
	customerCode := normalizeCode(req.CustomerCode)
	ids := uniqueIDs(req.ChargeIDs)
	issueDate := dateOnly(s.now())
	if req.IssueDate != nil {
		issueDate = dateOnly(*req.IssueDate)
	}

	var invoice *domain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.billingRepo.WithTx(tx)
		charges, err := repo.LockPendingCharges(ctx, ids)
		if err != nil {
			return err
		}
		if len(charges) != len(ids) {
			return s.missingCharge(ctx, repo, ids, charges)
		}

		local := s.cfg.LocalCurrency
		supply, tax := decimal.Zero, decimal.Zero
		details := make([]domain.InvoiceDetail, 0, len(charges))
		for _, c := range charges {
			if c.Side != req.Side {
				return domain.NewValidationError("Invoice", "chargeIds", fmt.Sprintf("charge %s is on side %s", c.ID, c.Side))
			}
			if c.CustomerCode != customerCode {
				return domain.NewValidationError("Invoice", "chargeIds", fmt.Sprintf("charge %s belongs to %s", c.ID, c.CustomerCode))
			}
			supply = supply.Add(c.LocalAmount.Value)
			tax = tax.Add(c.TaxAmount)
			details = append(details, domain.InvoiceDetail{
				ChargeID:    c.ID,
				LocalAmount: c.LocalAmount.Value,
				TaxAmount:   c.TaxAmount,
			})
		}

		terms := s.cfg.DefaultPaymentTermDays
		if req.Side == domain.SideAR {
			customer, err := s.partyRepo.WithTx(tx).GetCustomerByCode(ctx, customerCode)
			if err != nil {
				if repository.IsNotFound(err) {
					return domain.NewReferenceError("Invoice", "customerCode", customerCode)
				}
				return err
			}
			terms = customer.PaymentTermDays
		}
		due := issueDate.AddDate(0, 0, terms)

		number, err := s.numbers.Next(ctx, tx, domain.PrefixInvoice)
		if err != nil {
			return err
		}
		total := supply.Add(tax)
		invoice = &domain.Invoice{
			InvoiceNo:    number,
			Side:         req.Side,
			CustomerCode: customerCode,
			Currency:     local,
			IssueDate:    &issueDate,
			DueDate:      &due,
			SupplyAmount: supply,
			TaxAmount:    tax,
			TotalAmount:  total,
			PaidAmount:   decimal.Zero,
			Balance:      total,
			Status:       domain.InvoiceStatusIssued,
			Details:      details,
		}
		if err := repo.CreateInvoice(ctx, invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		return repo.MarkChargesInvoiced(ctx, ids, invoice.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice issued",
		zap.String("invoice_no", invoice.InvoiceNo),
		zap.String("customer_code", invoice.CustomerCode),
		zap.String("total", invoice.TotalAmount.String()),
		zap.Int("charges", len(ids)))
	return invoice, nil
}

// missingCharge explains why a requested charge was not lockable as pending
func (s *BillingService) missingCharge(ctx context.Context, repo *repository.BillingRepository, ids []uuid.UUID, locked []domain.Charge) error {
	found := make(map[uuid.UUID]bool, len(locked))
	for _, c := range locked {
		found[c.ID] = true
	}
	for _, id := range ids {
		if found[id] {
			continue
		}
		c, err := repo.GetCharge(ctx, id)
		if err != nil {
			return notFound(err, "charge")
		}
		return domain.NewTransitionError("Charge", id, c.Status, domain.ChargeStatusInvoiced, "charge is already invoiced")
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// CancelInvoice voids an unpaid invoice and returns its charges to PENDING
func (s *BillingService) CancelInvoice(ctx context.Context, id uuid.UUID, reason string) (*domain.Invoice, error) {
	if reason == "" {
		return nil, domain.NewValidationError("Invoice", "cancelReason", "required")
	}
	var invoice *domain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.billingRepo.WithTx(tx)
		var err error
		invoice, err = repo.LockInvoice(ctx, id)
		if err != nil {
			return notFound(err, "invoice")
		}
		if !invoice.Status.CanTransitionTo(domain.InvoiceStatusCancelled) {
			return domain.NewTransitionError("Invoice", id, invoice.Status, domain.InvoiceStatusCancelled, "")
		}
		applied, err := repo.ListPaymentDetails(ctx, id)
		if err != nil {
			return err
		}
		if len(applied) > 0 || invoice.PaidAmount.IsPositive() {
			return domain.NewTransitionError("Invoice", id, invoice.Status, domain.InvoiceStatusCancelled, "payments have been applied")
		}
		if err := repo.ReleaseCharges(ctx, id); err != nil {
			return err
		}
		invoice.Status = domain.InvoiceStatusCancelled
		invoice.CancelReason = reason
		return repo.SaveInvoice(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice cancelled", zap.String("invoice_no", invoice.InvoiceNo), zap.String("reason", reason))
	return invoice, nil
}

// ApplyPayment records a payment and applies it to invoices in one transaction. A foreign
// payment settles at its own rate; each invoice is credited at the rate its charges were
// posted at and the difference is booked as exchange gain or loss. An application larger
// than the invoice balance rejects the whole payment.
func (s *BillingService) ApplyPayment(ctx context.Context, req *domain.ApplyPaymentRequest) (*domain.Payment, error) {
	if err := validateStruct("Payment", req); err != nil {
		return nil, err
	}
	currency := normalizeCode(req.Amount.Currency)
	customerCode := normalizeCode(req.CustomerCode)
	if !req.Amount.Value.IsPositive() {
		return nil, domain.NewValidationError("Payment", "amount", "must be positive")
	}
	if req.ExchangeRate != nil && !req.ExchangeRate.IsPositive() {
		return nil, domain.NewValidationError("Payment", "exchangeRate", "must be positive")
	}
	sum := decimal.Zero
	for _, app := range req.Applications {
		if !app.Amount.IsPositive() {
			return nil, domain.NewValidationError("PaymentDetail", "amount", "must be positive")
		}
		sum = sum.Add(app.Amount)
	}
	if sum.GreaterThan(req.Amount.Value) {
		return nil, domain.NewValidationError("Payment", "applications",
			fmt.Sprintf("applications total %s exceeds payment amount %s", sum, req.Amount.Value))
	}

	var payment *domain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refs := s.refRepo.WithTx(tx)
		if err := checkRefs(ctx, refs, "Payment", currencyRef("amount.currency", currency)); err != nil {
			return err
		}
		local := s.cfg.LocalCurrency
		localPlaces := currencyPlaces(ctx, refs, local)
		paymentDate := dateOnly(req.PaymentDate)

		settlement := decimal.NewFromInt(1)
		switch {
		case currency == local:
		case req.ExchangeRate != nil:
			settlement = *req.ExchangeRate
		default:
			var err error
			settlement, err = s.references.lookupRateTx(ctx, tx, currency, local, paymentDate)
			if err != nil {
				return err
			}
		}

		number, err := s.numbers.Next(ctx, tx, domain.PrefixPayment)
		if err != nil {
			return err
		}
		repo := s.billingRepo.WithTx(tx)
		payment = &domain.Payment{
			PaymentNo:    number,
			Side:         req.Side,
			CustomerCode: customerCode,
			PaymentDate:  paymentDate,
			Amount:       domain.NewMoney(req.Amount.Value, currency),
			ExchangeRate: settlement,
			LocalAmount:  req.Amount.Value.Mul(settlement).Round(localPlaces),
			Method:       req.Method,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		for _, app := range req.Applications {
			detail, err := s.applyToInvoice(ctx, tx, payment, app, localPlaces)
			if err != nil {
				return err
			}
			payment.Details = append(payment.Details, *detail)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment applied",
		zap.String("payment_no", payment.PaymentNo),
		zap.String("customer_code", payment.CustomerCode),
		zap.String("amount", payment.Amount.String()),
		zap.Int("applications", len(payment.Details)))
	return payment, nil
}

func (s *BillingService) applyToInvoice(ctx context.Context, tx *gorm.DB, payment *domain.Payment, app domain.PaymentApplication, localPlaces int32) (*domain.PaymentDetail, error) {
	repo := s.billingRepo.WithTx(tx)
	invoice, err := repo.LockInvoice(ctx, app.InvoiceID)
	if err != nil {
		return nil, notFound(err, "invoice")
	}
	if invoice.Side != payment.Side || invoice.CustomerCode != payment.CustomerCode {
		return nil, domain.NewValidationError("PaymentDetail", "invoiceId",
			fmt.Sprintf("invoice %s is not a %s invoice of %s", invoice.InvoiceNo, payment.Side, payment.CustomerCode))
	}
	if !invoice.Status.IsOpen() {
		return nil, domain.NewTransitionError("Invoice", invoice.ID, invoice.Status, domain.InvoiceStatusPaid, "invoice is not open")
	}

	invoiceRate, err := s.invoiceRate(ctx, repo, invoice, payment)
	if err != nil {
		return nil, err
	}
	applied := app.Amount.Mul(invoiceRate).Round(localPlaces)
	if applied.GreaterThan(invoice.Balance) {
		return nil, domain.NewValidationError("PaymentDetail", "amount",
			fmt.Sprintf("applied %s %s exceeds balance %s of invoice %s", applied, invoice.Currency, invoice.Balance, invoice.InvoiceNo))
	}

	invoice.PaidAmount = invoice.PaidAmount.Add(applied)
	invoice.Balance = invoice.TotalAmount.Sub(invoice.PaidAmount)
	invoice.Status = domain.InvoiceStatusPartiallyPaid
	if invoice.Balance.IsZero() {
		invoice.Status = domain.InvoiceStatusPaid
	}
	if err := repo.SaveInvoice(ctx, invoice); err != nil {
		return nil, err
	}

	detail := &domain.PaymentDetail{
		PaymentID:      payment.ID,
		InvoiceID:      invoice.ID,
		OriginalAmount: app.Amount,
		AppliedAmount:  applied,
	}
	if err := repo.CreatePaymentDetail(ctx, detail); err != nil {
		return nil, err
	}

	if payment.Amount.Currency != invoice.Currency {
		gain := app.Amount.Mul(payment.ExchangeRate.Sub(invoiceRate)).Round(localPlaces)
		if !gain.IsZero() {
			if err := repo.CreateGainLoss(ctx, &domain.ExchangeGainLoss{
				PaymentID:      payment.ID,
				InvoiceID:      invoice.ID,
				Currency:       payment.Amount.Currency,
				ForeignAmount:  app.Amount,
				InvoiceRate:    invoiceRate,
				SettlementRate: payment.ExchangeRate,
				GainLossAmount: gain,
			}); err != nil {
				return nil, err
			}
			s.logger.Info("exchange gain/loss recorded",
				zap.String("invoice_no", invoice.InvoiceNo),
				zap.String("currency", payment.Amount.Currency),
				zap.String("amount", gain.String()))
		}
	}
	return detail, nil
}

// invoiceRate is the local value of one unit of the payment currency as invoiced: the
// weighted rate of the invoice's charges in that currency. Without such charges the
// settlement rate applies and no gain or loss arises.
func (s *BillingService) invoiceRate(ctx context.Context, repo *repository.BillingRepository, invoice *domain.Invoice, payment *domain.Payment) (decimal.Decimal, error) {
	if payment.Amount.Currency == invoice.Currency {
		return decimal.NewFromInt(1), nil
	}
	charges, err := repo.ChargesByInvoice(ctx, invoice.ID)
	if err != nil {
		return decimal.Zero, err
	}
	foreign, local := decimal.Zero, decimal.Zero
	for _, c := range charges {
		if c.Amount.Currency != payment.Amount.Currency {
			continue
		}
		foreign = foreign.Add(c.Amount.Value)
		local = local.Add(c.LocalAmount.Value)
	}
	if foreign.IsZero() {
		return payment.ExchangeRate, nil
	}
	return local.DivRound(foreign, 6), nil
}

// CheckCredit evaluates and records a customer's credit position for a requested amount
func (s *BillingService) CheckCredit(ctx context.Context, req *domain.CreditCheckRequest) (*domain.CreditCheck, error) {
	if err := validateStruct("CreditCheck", req); err != nil {
		return nil, err
	}
	if req.RequestedAmount.IsNegative() {
		return nil, domain.NewValidationError("CreditCheck", "requestedAmount", "must not be negative")
	}
	check, err := s.evaluateCredit(ctx, s.db.WithContext(ctx), normalizeCode(req.CustomerCode), nil, req.RequestedAmount)
	if err != nil {
		return nil, err
	}
	if err := s.reportRepo.CreateCreditCheck(ctx, check); err != nil {
		return nil, fmt.Errorf("failed to record credit check: %w", err)
	}
	return check, nil
}

// evaluateCredit computes AVAILABLE = LIMIT - open AR - pending orders in the local
// currency. A zero limit marks a cash customer and always rejects.
func (s *BillingService) evaluateCredit(ctx context.Context, tx *gorm.DB, customerCode string, orderID *uuid.UUID, requested decimal.Decimal) (*domain.CreditCheck, error) {
	customer, err := s.partyRepo.WithTx(tx).GetCustomerByCode(ctx, customerCode)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NewReferenceError("CreditCheck", "customerCode", customerCode)
		}
		return nil, err
	}
	local := s.cfg.LocalCurrency
	localPlaces := currencyPlaces(ctx, s.refRepo.WithTx(tx), local)

	limit := customer.CreditLimit
	if customer.CreditCurrency != "" && customer.CreditCurrency != local && limit.IsPositive() {
		rate, err := s.references.lookupRateTx(ctx, tx, customer.CreditCurrency, local, s.now())
		if err != nil {
			return nil, err
		}
		limit = limit.Mul(rate).Round(localPlaces)
	}

	ar, err := s.billingRepo.WithTx(tx).OpenBalance(ctx, customerCode)
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.WithTx(tx).PendingForCredit(ctx, customerCode)
	if err != nil {
		return nil, err
	}
	pending := decimal.Zero
	for _, o := range orders {
		if orderID != nil && o.ID == *orderID {
			continue
		}
		pending = pending.Add(o.EstimatedFreightLocal)
	}

	check := &domain.CreditCheck{
		CustomerCode:    customerCode,
		OrderID:         orderID,
		CheckedAt:       s.now(),
		Currency:        local,
		CreditLimit:     limit,
		CurrentAR:       ar,
		PendingOrders:   pending,
		RequestedAmount: requested,
		AvailableCredit: limit.Sub(ar).Sub(pending),
		Result:          domain.CreditApproved,
	}
	if limit.IsZero() || requested.GreaterThan(check.AvailableCredit) {
		check.Result = domain.CreditRejected
	}
	s.logger.Info("credit evaluated",
		zap.String("customer_code", customerCode),
		zap.String("available", check.AvailableCredit.String()),
		zap.String("requested", requested.String()),
		zap.String("result", string(check.Result)))
	return check, nil
}

// SnapshotAging writes one aging row per party with open invoices on the side. The
// rows are append-only; rerunning for the same date adds a new set.
func (s *BillingService) SnapshotAging(ctx context.Context, side domain.BillingSide, asOf time.Time) ([]domain.AgingSnapshot, error) {
	if !side.Valid() {
		return nil, domain.NewValidationError("AgingSnapshot", "side", "must be AR or AP")
	}
	invoices, err := s.billingRepo.OpenInvoices(ctx, side, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load open invoices: %w", err)
	}

	day := dateOnly(asOf)
	byCustomer := make(map[string]*domain.AgingSnapshot)
	for _, inv := range invoices {
		row, ok := byCustomer[inv.CustomerCode]
		if !ok {
			row = &domain.AgingSnapshot{
				SnapshotDate: day,
				Side:         side,
				CustomerCode: inv.CustomerCode,
				Currency:     inv.Currency,
				Current:      decimal.Zero,
				Days1To30:    decimal.Zero,
				Days31To60:   decimal.Zero,
				Days61To90:   decimal.Zero,
				Over90:       decimal.Zero,
				Total:        decimal.Zero,
			}
			byCustomer[inv.CustomerCode] = row
		}
		due := day
		switch {
		case inv.DueDate != nil:
			due = *inv.DueDate
		case inv.IssueDate != nil:
			due = *inv.IssueDate
		}
		row.Add(domain.AgingBucket(due, day), inv.Balance)
	}

	rows := make([]domain.AgingSnapshot, 0, len(byCustomer))
	for _, row := range byCustomer {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CustomerCode < rows[j].CustomerCode })
	if err := s.reportRepo.CreateAgingSnapshots(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to write aging snapshot: %w", err)
	}

	s.logger.Info("aging snapshot written",
		zap.String("side", string(side)),
		zap.Time("as_of", day),
		zap.Int("customers", len(rows)))
	return rows, nil
}

// SnapshotProfit appends a profit row for one shipment: revenue is its AR charges and
// cost its AP charges, both at their frozen local amounts
func (s *BillingService) SnapshotProfit(ctx context.Context, shipmentID uuid.UUID, asOf time.Time) (*domain.ProfitAnalysis, error) {
	if _, err := s.shipmentRepo.GetByID(ctx, shipmentID); err != nil {
		return nil, notFound(err, "shipment")
	}
	charges, err := s.billingRepo.ListCharges(ctx, shipmentID, "")
	if err != nil {
		return nil, err
	}
	p := &domain.ProfitAnalysis{
		ShipmentID:   shipmentID,
		SnapshotDate: dateOnly(asOf),
		Currency:     s.cfg.LocalCurrency,
		Revenue:      decimal.Zero,
		Cost:         decimal.Zero,
	}
	for _, c := range charges {
		switch c.Side {
		case domain.SideAR:
			p.Revenue = p.Revenue.Add(c.LocalAmount.Value)
		case domain.SideAP:
			p.Cost = p.Cost.Add(c.LocalAmount.Value)
		}
	}
	p.ComputeProfit()
	if err := s.reportRepo.CreateProfit(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to write profit snapshot: %w", err)
	}
	return p, nil
}

// SnapshotAllProfit runs SnapshotProfit for every live shipment and returns how many
// rows were written. A failing shipment is logged and skipped.
func (s *BillingService) SnapshotAllProfit(ctx context.Context, asOf time.Time) (int, error) {
	ids, err := s.shipmentRepo.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list shipments: %w", err)
	}
	written := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if _, err := s.SnapshotProfit(ctx, id, asOf); err != nil {
			s.logger.Warn("profit snapshot failed", zap.String("shipment_id", id.String()), zap.Error(err))
			continue
		}
		written++
	}
	return written, nil
}

// GetInvoice returns an invoice with its details
func (s *BillingService) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.billingRepo.GetInvoice(ctx, id)
	if err != nil {
		return nil, notFound(err, "invoice")
	}
	return inv, nil
}

// ListInvoices returns a page of invoices
func (s *BillingService) ListInvoices(ctx context.Context, customerCode string, side domain.BillingSide, page, pageSize int) (*domain.PaginatedResponse, error) {
	invoices, total, err := s.billingRepo.ListInvoices(ctx, normalizeCode(customerCode), side, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	page, pageSize, _ = repository.Page(page, pageSize)
	return domain.NewPaginatedResponse(invoices, total, page, pageSize), nil
}

// ListCharges returns a shipment's charges
func (s *BillingService) ListCharges(ctx context.Context, shipmentID uuid.UUID, side domain.BillingSide) ([]domain.Charge, error) {
	return s.billingRepo.ListCharges(ctx, shipmentID, side)
}

// GetPayment returns a payment with its applications
func (s *BillingService) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := s.billingRepo.GetPayment(ctx, id)
	if err != nil {
		return nil, notFound(err, "payment")
	}
	return p, nil
}

// ListGainLoss returns the exchange differences booked by a payment
func (s *BillingService) ListGainLoss(ctx context.Context, paymentID uuid.UUID) ([]domain.ExchangeGainLoss, error) {
	return s.billingRepo.ListGainLoss(ctx, paymentID)
}

// ListAging returns the aging rows written for a side and date
func (s *BillingService) ListAging(ctx context.Context, side domain.BillingSide, date time.Time) ([]domain.AgingSnapshot, error) {
	return s.reportRepo.ListAging(ctx, side, dateOnly(date))
}

// LatestProfit returns the newest profit row of a shipment
func (s *BillingService) LatestProfit(ctx context.Context, shipmentID uuid.UUID) (*domain.ProfitAnalysis, error) {
	p, err := s.reportRepo.LatestProfit(ctx, shipmentID)
	if err != nil {
		return nil, notFound(err, "profit analysis")
	}
	return p, nil
}

// ListCreditChecks returns a customer's recent credit checks
func (s *BillingService) ListCreditChecks(ctx context.Context, customerCode string, limit int) ([]domain.CreditCheck, error) {
	return s.reportRepo.ListCreditChecks(ctx, normalizeCode(customerCode), limit)
}
