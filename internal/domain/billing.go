package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingSide separates receivables from payables
type BillingSide string

const (
	SideAR BillingSide = "AR"
	SideAP BillingSide = "AP"
)

// Valid reports AR or AP
func (s BillingSide) Valid() bool {
	return s == SideAR || s == SideAP
}

// TariffUnit is what a tariff price is quoted per
type TariffUnit string

const (
	UnitPerContainer TariffUnit = "PER_CNTR"
	UnitPerKg        TariffUnit = "PER_KG"
	UnitPerCBM       TariffUnit = "PER_CBM"
	UnitPerBL        TariffUnit = "PER_BL"
	UnitFlat         TariffUnit = "FLAT"
)

// Tariff is a sell or buy price for a charge code on a lane
type Tariff struct {
	BaseModel
	Side          BillingSide      `gorm:"type:varchar(2);not null;index:idx_tariff_lookup" json:"side"`
	ChargeCode    string           `gorm:"type:varchar(10);not null;index:idx_tariff_lookup" json:"chargeCode"`
	TransportMode TransportMode    `gorm:"type:varchar(3);not null;index:idx_tariff_lookup" json:"transportMode"`
	CustomerCode  string           `gorm:"type:varchar(20)" json:"customerCode,omitempty"`
	CarrierCode   string           `gorm:"type:varchar(20)" json:"carrierCode,omitempty"`
	POLCode       string           `gorm:"column:pol_code;type:varchar(5)" json:"polCode,omitempty"`
	PODCode       string           `gorm:"column:pod_code;type:varchar(5)" json:"podCode,omitempty"`
	ContainerType string           `gorm:"type:varchar(4)" json:"containerType,omitempty"`
	Unit          TariffUnit       `gorm:"type:varchar(10);not null" json:"unit"`
	UnitPrice     Money            `gorm:"embedded;embeddedPrefix:unit_price_" json:"unitPrice"`
	MinAmount     *decimal.Decimal `gorm:"type:decimal(18,4)" json:"minAmount,omitempty"`
	MaxAmount     *decimal.Decimal `gorm:"type:decimal(18,4)" json:"maxAmount,omitempty"`
	ValidFrom     time.Time        `gorm:"type:date;not null" json:"validFrom"`
	ValidTo       *time.Time       `gorm:"type:date" json:"validTo,omitempty"`
}

// Rate prices qty units, clamped to the min and max amounts.
func (t *Tariff) Rate(qty decimal.Decimal) decimal.Decimal {
	amount := t.UnitPrice.Value
	if t.Unit != UnitFlat && t.Unit != UnitPerBL {
		amount = amount.Mul(qty)
	}
	if t.MinAmount != nil && amount.LessThan(*t.MinAmount) {
		amount = *t.MinAmount
	}
	if t.MaxAmount != nil && amount.GreaterThan(*t.MaxAmount) {
		amount = *t.MaxAmount
	}
	return amount
}

// ChargeStatus
type ChargeStatus string

const (
	ChargeStatusPending  ChargeStatus = "PENDING"
	ChargeStatusInvoiced ChargeStatus = "INVOICED"
)

// Charge is one billable line against a shipment. LocalAmount is Amount × ExchangeRate
// frozen at posting; it is never re-derived from later rates.
type Charge struct {
	BaseModel
	ShipmentID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"shipmentId"`
	Side         BillingSide     `gorm:"type:varchar(2);not null" json:"side"`
	ChargeCode   string          `gorm:"type:varchar(10);not null" json:"chargeCode"`
	CustomerCode string          `gorm:"type:varchar(20);not null;index" json:"customerCode"`
	Quantity     decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unitPrice"`
	Amount       Money           `gorm:"embedded;embeddedPrefix:amount_" json:"amount"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"exchangeRate"`
	RateDate     time.Time       `gorm:"type:date;not null" json:"rateDate"`
	LocalAmount  Money           `gorm:"embedded;embeddedPrefix:local_" json:"localAmount"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(7,3);not null;default:0" json:"taxRate"`
	TaxAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"taxAmount"`
	Status       ChargeStatus    `gorm:"type:varchar(10);not null;index" json:"status"`
	InvoiceID    *uuid.UUID      `gorm:"type:uuid;index" json:"invoiceId,omitempty"`
}

// Invoice aggregates charges for one customer. Amounts are in Currency, the local currency.
// Balance == TotalAmount - PaidAmount.
type Invoice struct {
	BaseModel
	InvoiceNo    string          `gorm:"type:varchar(20);not null;uniqueIndex" json:"invoiceNo"`
	Side         BillingSide     `gorm:"type:varchar(2);not null;index" json:"side"`
	CustomerCode string          `gorm:"type:varchar(20);not null;index" json:"customerCode"`
	Currency     string          `gorm:"type:char(3);not null" json:"currency"`
	IssueDate    *time.Time      `gorm:"type:date" json:"issueDate,omitempty"`
	DueDate      *time.Time      `gorm:"type:date" json:"dueDate,omitempty"`
	SupplyAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"supplyAmount"`
	TaxAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"taxAmount"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"totalAmount"`
	PaidAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"paidAmount"`
	Balance      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"balance"`
	Status       InvoiceStatus   `gorm:"type:varchar(15);not null;index" json:"status"`
	CancelReason string          `gorm:"type:varchar(500)" json:"cancelReason,omitempty"`
	Details      []InvoiceDetail `gorm:"foreignKey:InvoiceID" json:"details,omitempty"`
}

// InvoiceDetail links a charge to an invoice at its local amount
type InvoiceDetail struct {
	BaseModel
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoiceId"`
	ChargeID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"chargeId"`
	LocalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"localAmount"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"taxAmount"`
}

// Payment is money received (AR) or paid (AP). ExchangeRate converts the payment
// currency to local at settlement.
type Payment struct {
	BaseModel
	PaymentNo    string          `gorm:"type:varchar(20);not null;uniqueIndex" json:"paymentNo"`
	Side         BillingSide     `gorm:"type:varchar(2);not null" json:"side"`
	CustomerCode string          `gorm:"type:varchar(20);not null;index" json:"customerCode"`
	PaymentDate  time.Time       `gorm:"type:date;not null" json:"paymentDate"`
	Amount       Money           `gorm:"embedded;embeddedPrefix:amount_" json:"amount"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"exchangeRate"`
	LocalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"localAmount"`
	Method       string          `gorm:"type:varchar(20)" json:"method,omitempty"`
	Details      []PaymentDetail `gorm:"foreignKey:PaymentID" json:"details,omitempty"`
}

// PaymentDetail applies part of a payment to one invoice.
// AppliedAmount is in the invoice currency; OriginalAmount is in the payment currency.
type PaymentDetail struct {
	BaseModel
	PaymentID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"paymentId"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoiceId"`
	OriginalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"originalAmount"`
	AppliedAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"appliedAmount"`
}

// ExchangeGainLoss records the local-currency difference between the rate a foreign
// amount was invoiced at and the rate it settled at.
type ExchangeGainLoss struct {
	BaseModel
	PaymentID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"paymentId"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoiceId"`
	Currency       string          `gorm:"type:char(3);not null" json:"currency"`
	ForeignAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"foreignAmount"`
	InvoiceRate    decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"invoiceRate"`
	SettlementRate decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"settlementRate"`
	GainLossAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"gainLossAmount"`
}

// TableName keeps the table name singular-noun friendly
func (ExchangeGainLoss) TableName() string {
	return "exchange_gain_losses"
}

// CreditResult
type CreditResult string

const (
	CreditApproved   CreditResult = "APPROVED"
	CreditRejected   CreditResult = "REJECTED"
	CreditOverridden CreditResult = "OVERRIDDEN"
)

// CreditCheck is a point-in-time credit evaluation.
// AvailableCredit = CreditLimit - CurrentAR - PendingOrders.
type CreditCheck struct {
	BaseModel
	CustomerCode    string          `gorm:"type:varchar(20);not null;index" json:"customerCode"`
	OrderID         *uuid.UUID      `gorm:"type:uuid;index" json:"orderId,omitempty"`
	CheckedAt       time.Time       `gorm:"not null" json:"checkedAt"`
	Currency        string          `gorm:"type:char(3);not null" json:"currency"`
	CreditLimit     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"creditLimit"`
	CurrentAR       decimal.Decimal `gorm:"column:current_ar;type:decimal(18,4);not null" json:"currentAr"`
	PendingOrders   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"pendingOrders"`
	RequestedAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"requestedAmount"`
	AvailableCredit decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"availableCredit"`
	Result          CreditResult    `gorm:"type:varchar(10);not null" json:"result"`
	OverrideBy      string          `gorm:"type:varchar(100)" json:"overrideBy,omitempty"`
	OverrideReason  string          `gorm:"type:varchar(500)" json:"overrideReason,omitempty"`
}

// Aging buckets
const (
	BucketCurrent = "CURRENT"
	Bucket1To30   = "1-30"
	Bucket31To60  = "31-60"
	Bucket61To90  = "61-90"
	BucketOver90  = "90+"
)

// AgingBucket classifies how many days past due a date is relative to asOf.
func AgingBucket(due, asOf time.Time) string {
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	a := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	days := int(a.Sub(d).Hours() / 24)
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// AgingSnapshot is an append-only AR or AP aging row per customer and date.
type AgingSnapshot struct {
	BaseModel
	SnapshotDate time.Time       `gorm:"type:date;not null;index" json:"snapshotDate"`
	Side         BillingSide     `gorm:"type:varchar(2);not null" json:"side"`
	CustomerCode string          `gorm:"type:varchar(20);not null;index" json:"customerCode"`
	Currency     string          `gorm:"type:char(3);not null" json:"currency"`
	Current      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"current"`
	Days1To30    decimal.Decimal `gorm:"column:days_1_30;type:decimal(18,4);not null;default:0" json:"days1To30"`
	Days31To60   decimal.Decimal `gorm:"column:days_31_60;type:decimal(18,4);not null;default:0" json:"days31To60"`
	Days61To90   decimal.Decimal `gorm:"column:days_61_90;type:decimal(18,4);not null;default:0" json:"days61To90"`
	Over90       decimal.Decimal `gorm:"column:over_90;type:decimal(18,4);not null;default:0" json:"over90"`
	Total        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total"`
}

// Add puts an amount in the named bucket and the total
func (a *AgingSnapshot) Add(bucket string, amount decimal.Decimal) {
	switch bucket {
	case BucketCurrent:
		a.Current = a.Current.Add(amount)
	case Bucket1To30:
		a.Days1To30 = a.Days1To30.Add(amount)
	case Bucket31To60:
		a.Days31To60 = a.Days31To60.Add(amount)
	case Bucket61To90:
		a.Days61To90 = a.Days61To90.Add(amount)
	default:
		a.Over90 = a.Over90.Add(amount)
	}
	a.Total = a.Total.Add(amount)
}

// ProfitAnalysis is an append-only per-shipment profit snapshot in local currency.
type ProfitAnalysis struct {
	BaseModel
	ShipmentID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"shipmentId"`
	SnapshotDate time.Time       `gorm:"type:date;not null;index" json:"snapshotDate"`
	Currency     string          `gorm:"type:char(3);not null" json:"currency"`
	Revenue      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"revenue"`
	Cost         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"cost"`
	Profit       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"profit"`
	MarginPct    decimal.Decimal `gorm:"type:decimal(7,2);not null" json:"marginPct"`
}

// ComputeProfit fills profit and margin from revenue and cost. Margin is zero with no revenue.
func (p *ProfitAnalysis) ComputeProfit() {
	p.Profit = p.Revenue.Sub(p.Cost)
	if p.Revenue.IsZero() {
		p.MarginPct = decimal.Zero
		return
	}
	p.MarginPct = p.Profit.Div(p.Revenue).Mul(decimal.NewFromInt(100)).Round(2)
}
