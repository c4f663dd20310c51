package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomsDeclaration is one customs filing for a shipment.
// Tax amounts are in the declaration's local currency.
type CustomsDeclaration struct {
	BaseModel
	DeclarationNo  string            `gorm:"type:varchar(20);not null;uniqueIndex" json:"declarationNo"`
	ShipmentID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"shipmentId"`
	TradeType      TradeType         `gorm:"type:varchar(6);not null" json:"tradeType"`
	BrokerCode     string            `gorm:"type:varchar(20)" json:"brokerCode,omitempty"`
	Currency       string            `gorm:"type:char(3);not null" json:"currency"`
	DeclaredAmount decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"declaredAmount"`
	DutyAmount     decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"dutyAmount"`
	VATAmount      decimal.Decimal   `gorm:"column:vat_amount;type:decimal(18,4);not null;default:0" json:"vatAmount"`
	TotalTax       decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"totalTax"`
	Status         CustomsStatus     `gorm:"type:varchar(12);not null;index" json:"status"`
	SubmittedAt    *time.Time        `json:"submittedAt,omitempty"`
	ClearedAt      *time.Time        `json:"clearedAt,omitempty"`
	ReleasedAt     *time.Time        `json:"releasedAt,omitempty"`
	RejectReason   string            `gorm:"type:varchar(500)" json:"rejectReason,omitempty"`
	Items          []DeclarationItem `gorm:"foreignKey:DeclarationID" json:"items,omitempty"`
}

// DeclarationItem is one tariff line of a declaration.
// DutyAmount = Amount × DutyRate/100 and VATAmount = Amount × VATRate/100.
type DeclarationItem struct {
	BaseModel
	DeclarationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"declarationId"`
	LineNo        int             `gorm:"not null" json:"lineNo"`
	HSCode        string          `gorm:"column:hs_code;type:varchar(12);not null" json:"hsCode"`
	Description   string          `gorm:"type:varchar(255)" json:"description,omitempty"`
	Quantity      decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"quantity"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	DutyRate      decimal.Decimal `gorm:"type:decimal(7,3);not null;default:0" json:"dutyRate"`
	VATRate       decimal.Decimal `gorm:"column:vat_rate;type:decimal(7,3);not null;default:0" json:"vatRate"`
	DutyAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"dutyAmount"`
	VATAmount     decimal.Decimal `gorm:"column:vat_amount;type:decimal(18,4);not null;default:0" json:"vatAmount"`
}

// ComputeTax fills the duty and VAT amounts of the item
func (i *DeclarationItem) ComputeTax(places int32) {
	i.DutyAmount = PercentOf(i.Amount, i.DutyRate, places)
	i.VATAmount = PercentOf(i.Amount, i.VATRate, places)
}

// Inspection results
const (
	InspectionPending = "PENDING"
	InspectionPass    = "PASS"
	InspectionFail    = "FAIL"
)

// Inspection is a physical or document check ordered by customs
type Inspection struct {
	BaseModel
	DeclarationID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"declarationId"`
	InspectionType string     `gorm:"type:varchar(20);not null" json:"inspectionType"`
	Result         string     `gorm:"type:varchar(10);not null" json:"result"`
	InspectedAt    *time.Time `json:"inspectedAt,omitempty"`
	Remarks        string     `gorm:"type:varchar(1000)" json:"remarks,omitempty"`
}

// EDI directions and statuses
const (
	EDIDirectionOut = "OUT"
	EDIDirectionIn  = "IN"

	EDIStatusSent   = "SENT"
	EDIStatusFailed = "FAILED"
	EDIStatusAck    = "ACK"
)

// EDILog is an append-only record of every message exchanged with customs or partners.
type EDILog struct {
	BaseModel
	RefType      string    `gorm:"type:varchar(30);not null;index:idx_edi_log_ref" json:"refType"`
	RefID        uuid.UUID `gorm:"type:uuid;not null;index:idx_edi_log_ref" json:"refId"`
	MessageType  string    `gorm:"type:varchar(30);not null" json:"messageType"`
	Direction    string    `gorm:"type:varchar(3);not null" json:"direction"`
	Status       string    `gorm:"type:varchar(10);not null" json:"status"`
	Payload      string    `gorm:"type:text" json:"payload,omitempty"`
	ErrorMessage string    `gorm:"type:varchar(1000)" json:"errorMessage,omitempty"`
}

// TableName keeps the acronym readable
func (EDILog) TableName() string {
	return "edi_logs"
}
