package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// TariffQuery identifies the lane a charge is priced on
type TariffQuery struct {
	Side          domain.BillingSide
	ChargeCode    string
	TransportMode domain.TransportMode
	CustomerCode  string
	CarrierCode   string
	POLCode       string
	PODCode       string
	ContainerType string
	AsOf          time.Time
}

// BillingRepository handles tariffs, charges, invoices, payments and exchange gain/loss
type BillingRepository struct {
	db *gorm.DB
}

// NewBillingRepository creates a new billing repository
func NewBillingRepository(db *gorm.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *BillingRepository) WithTx(tx *gorm.DB) *BillingRepository {
	return &BillingRepository{db: tx}
}

// CreateTariff inserts a tariff
func (r *BillingRepository) CreateTariff(ctx context.Context, t *domain.Tariff) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// FindTariff returns the most specific tariff valid on q.AsOf. A tariff column left
// blank matches any value; a filled column must equal the query.
func (r *BillingRepository) FindTariff(ctx context.Context, q TariffQuery) (*domain.Tariff, error) {
	var candidates []domain.Tariff
	err := r.db.WithContext(ctx).
		Where("side = ? AND charge_code = ? AND transport_mode = ?", q.Side, q.ChargeCode, q.TransportMode).
		Where("valid_from <= ? AND (valid_to IS NULL OR valid_to >= ?)", q.AsOf, q.AsOf).
		Where("customer_code = '' OR customer_code IS NULL OR customer_code = ?", q.CustomerCode).
		Where("carrier_code = '' OR carrier_code IS NULL OR carrier_code = ?", q.CarrierCode).
		Where("pol_code = '' OR pol_code IS NULL OR pol_code = ?", q.POLCode).
		Where("pod_code = '' OR pod_code IS NULL OR pod_code = ?", q.PODCode).
		Where("container_type = '' OR container_type IS NULL OR container_type = ?", q.ContainerType).
		Order("valid_from DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	best, bestScore := 0, -1
	for i, t := range candidates {
		score := 0
		for _, filled := range []string{t.CustomerCode, t.CarrierCode, t.POLCode, t.PODCode, t.ContainerType} {
			if filled != "" {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return &candidates[best], nil
}

// CreateCharge inserts a charge
func (r *BillingRepository) CreateCharge(ctx context.Context, c *domain.Charge) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// GetCharge retrieves a charge
func (r *BillingRepository) GetCharge(ctx context.Context, id uuid.UUID) (*domain.Charge, error) {
	var c domain.Charge
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCharges returns a shipment's charges, optionally for one side
func (r *BillingRepository) ListCharges(ctx context.Context, shipmentID uuid.UUID, side domain.BillingSide) ([]domain.Charge, error) {
	query := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID)
	if side != "" {
		query = query.Where("side = ?", side)
	}
	var charges []domain.Charge
	err := query.Order("created_at ASC").Find(&charges).Error
	return charges, err
}

// LockPendingCharges locks the given charges that are still uninvoiced
func (r *BillingRepository) LockPendingCharges(ctx context.Context, ids []uuid.UUID) ([]domain.Charge, error) {
	var charges []domain.Charge
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id IN ? AND status = ?", ids, domain.ChargeStatusPending).
		Order("created_at ASC").
		Find(&charges).Error
	return charges, err
}

// MarkChargesInvoiced links charges to an invoice
func (r *BillingRepository) MarkChargesInvoiced(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Charge{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     domain.ChargeStatusInvoiced,
			"invoice_id": invoiceID,
			"updated_at": time.Now(),
		}).Error
}

// ReleaseCharges returns an invoice's charges to PENDING
func (r *BillingRepository) ReleaseCharges(ctx context.Context, invoiceID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Charge{}).
		Where("invoice_id = ?", invoiceID).
		Updates(map[string]interface{}{
			"status":     domain.ChargeStatusPending,
			"invoice_id": nil,
			"updated_at": time.Now(),
		}).Error
}

// ChargesByInvoice returns the charges billed on an invoice
func (r *BillingRepository) ChargesByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.Charge, error) {
	var charges []domain.Charge
	err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Find(&charges).Error
	return charges, err
}

// CreateInvoice inserts an invoice with its details
func (r *BillingRepository) CreateInvoice(ctx context.Context, inv *domain.Invoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

// GetInvoice retrieves an invoice with its details
func (r *BillingRepository) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := r.db.WithContext(ctx).Preload("Details").Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// LockInvoice retrieves an invoice header under a row lock
func (r *BillingRepository) LockInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// SaveInvoice saves an invoice header
func (r *BillingRepository) SaveInvoice(ctx context.Context, inv *domain.Invoice) error {
	return r.db.WithContext(ctx).Omit("Details").Save(inv).Error
}

// ListInvoices returns a customer's invoices on a side, newest first
func (r *BillingRepository) ListInvoices(ctx context.Context, customerCode string, side domain.BillingSide, page, pageSize int) ([]domain.Invoice, int64, error) {
	_, pageSize, offset := Page(page, pageSize)

	query := r.db.WithContext(ctx).Model(&domain.Invoice{})
	if customerCode != "" {
		query = query.Where("customer_code = ?", customerCode)
	}
	if side != "" {
		query = query.Where("side = ?", side)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var invoices []domain.Invoice
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&invoices).Error
	return invoices, total, err
}

// OpenInvoices returns the issued, not fully paid invoices on a side; an empty
// customer code returns every customer's
func (r *BillingRepository) OpenInvoices(ctx context.Context, side domain.BillingSide, customerCode string) ([]domain.Invoice, error) {
	query := r.db.WithContext(ctx).
		Where("side = ? AND status IN ?", side, []domain.InvoiceStatus{domain.InvoiceStatusIssued, domain.InvoiceStatusPartiallyPaid})
	if customerCode != "" {
		query = query.Where("customer_code = ?", customerCode)
	}
	var invoices []domain.Invoice
	err := query.Order("customer_code ASC, due_date ASC").Find(&invoices).Error
	return invoices, err
}

// OpenBalance sums the balances of a customer's open AR invoices
func (r *BillingRepository) OpenBalance(ctx context.Context, customerCode string) (decimal.Decimal, error) {
	invoices, err := r.OpenInvoices(ctx, domain.SideAR, customerCode)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.Balance)
	}
	return total, nil
}

// CreatePayment inserts a payment header
func (r *BillingRepository) CreatePayment(ctx context.Context, p *domain.Payment) error {
	return r.db.WithContext(ctx).Omit("Details").Create(p).Error
}

// CreatePaymentDetail inserts a payment application
func (r *BillingRepository) CreatePaymentDetail(ctx context.Context, d *domain.PaymentDetail) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// GetPayment retrieves a payment with its applications
func (r *BillingRepository) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Preload("Details").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPaymentDetails returns the payment applications against an invoice
func (r *BillingRepository) ListPaymentDetails(ctx context.Context, invoiceID uuid.UUID) ([]domain.PaymentDetail, error) {
	var details []domain.PaymentDetail
	err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("created_at ASC").Find(&details).Error
	return details, err
}

// CreateGainLoss records an exchange gain or loss
func (r *BillingRepository) CreateGainLoss(ctx context.Context, g *domain.ExchangeGainLoss) error {
	return r.db.WithContext(ctx).Create(g).Error
}

// ListGainLoss returns the gain/loss entries of a payment
func (r *BillingRepository) ListGainLoss(ctx context.Context, paymentID uuid.UUID) ([]domain.ExchangeGainLoss, error) {
	var list []domain.ExchangeGainLoss
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Find(&list).Error
	return list, err
}
