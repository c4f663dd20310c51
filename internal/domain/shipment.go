package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransportMode
type TransportMode string

const (
	TransportModeSea TransportMode = "SEA"
	TransportModeAir TransportMode = "AIR"
)

// Valid reports whether the mode is one of SEA or AIR
func (m TransportMode) Valid() bool {
	return m == TransportModeSea || m == TransportModeAir
}

// TradeType is the direction of trade relative to our office
type TradeType string

const (
	TradeTypeExport TradeType = "EXPORT"
	TradeTypeImport TradeType = "IMPORT"
)

// Valid reports whether the trade type is EXPORT or IMPORT
func (t TradeType) Valid() bool {
	return t == TradeTypeExport || t == TradeTypeImport
}

// Shipment is the aggregate root for one movement of cargo. Every booking, document,
// container, customs filing, charge and tracking event hangs off a shipment.
// Status caches the StatusCD of the most recent TrackingEvent.
type Shipment struct {
	BaseModel
	ShipmentNo     string          `gorm:"type:varchar(20);not null;uniqueIndex" json:"shipmentNo"`
	TransportMode  TransportMode   `gorm:"type:varchar(3);not null;index" json:"transportMode"`
	TradeType      TradeType       `gorm:"type:varchar(6);not null" json:"tradeType"`
	Incoterm       string          `gorm:"type:varchar(3)" json:"incoterm,omitempty"`
	CustomerCode   string          `gorm:"type:varchar(20);not null;index" json:"customerCode"`
	ShipperCode    string          `gorm:"type:varchar(20)" json:"shipperCode,omitempty"`
	ConsigneeCode  string          `gorm:"type:varchar(20)" json:"consigneeCode,omitempty"`
	NotifyCode     string          `gorm:"type:varchar(20)" json:"notifyCode,omitempty"`
	CarrierCode    string          `gorm:"type:varchar(20)" json:"carrierCode,omitempty"`
	PartnerCode    string          `gorm:"type:varchar(20)" json:"partnerCode,omitempty"`
	OriginCountry  string          `gorm:"type:char(2)" json:"originCountry,omitempty"`
	OriginPortCode string          `gorm:"type:varchar(5)" json:"originPortCode,omitempty"`
	DestCountry    string          `gorm:"type:char(2)" json:"destCountry,omitempty"`
	DestPortCode   string          `gorm:"type:varchar(5)" json:"destPortCode,omitempty"`
	ETD            *time.Time      `json:"etd,omitempty"`
	ETA            *time.Time      `json:"eta,omitempty"`
	ATD            *time.Time      `json:"atd,omitempty"`
	ATA            *time.Time      `json:"ata,omitempty"`
	PackageQty     int             `gorm:"not null;default:0" json:"packageQty"`
	GrossWeightKg  decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"grossWeightKg"`
	VolumeCBM      decimal.Decimal `gorm:"column:volume_cbm;type:decimal(12,3);not null;default:0" json:"volumeCbm"`
	DeclaredValue  Money           `gorm:"embedded;embeddedPrefix:declared_" json:"declaredValue"`
	Status         ShipmentStatus  `gorm:"type:varchar(10);not null;index" json:"status"`
	CancelReason   string          `gorm:"type:varchar(500)" json:"cancelReason,omitempty"`
	OrderID        *uuid.UUID      `gorm:"type:uuid;index" json:"orderId,omitempty"`
}

// Validate checks the header invariants: one valid transport mode, a trade direction,
// non-negative measurements and ETA not before ETD.
func (s *Shipment) Validate() error {
	if !s.TransportMode.Valid() {
		return NewValidationError("Shipment", "transportMode", "must be SEA or AIR")
	}
	if !s.TradeType.Valid() {
		return NewValidationError("Shipment", "tradeType", "must be EXPORT or IMPORT")
	}
	if s.CustomerCode == "" {
		return NewValidationError("Shipment", "customerCode", "required")
	}
	if s.PackageQty < 0 {
		return NewValidationError("Shipment", "packageQty", "must not be negative")
	}
	if s.GrossWeightKg.IsNegative() {
		return NewValidationError("Shipment", "grossWeightKg", "must not be negative")
	}
	if s.VolumeCBM.IsNegative() {
		return NewValidationError("Shipment", "volumeCbm", "must not be negative")
	}
	if s.DeclaredValue.IsNegative() {
		return NewValidationError("Shipment", "declaredValue", "must not be negative")
	}
	if s.ETD != nil && s.ETA != nil && s.ETA.Before(*s.ETD) {
		return NewValidationError("Shipment", "eta", "must not be before etd")
	}
	return nil
}

// ChargeableWeight is the greater of gross weight and volume weight (CBM × factor).
func ChargeableWeight(gross, cbm, factor decimal.Decimal) decimal.Decimal {
	volumeWeight := cbm.Mul(factor)
	if volumeWeight.GreaterThan(gross) {
		return volumeWeight.Round(3)
	}
	return gross.Round(3)
}

// DefaultVolumeWeightFactor is kilograms per cubic metre for air cargo (1:6000 cm³/kg).
var DefaultVolumeWeightFactor = decimal.NewFromInt(167)
