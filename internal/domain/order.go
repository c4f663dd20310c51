package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerOrder is a shipper's request that becomes a Shipment once confirmed.
type CustomerOrder struct {
	BaseModel
	OrderNo               string           `gorm:"type:varchar(20);not null;uniqueIndex" json:"orderNo"`
	CustomerCode          string           `gorm:"type:varchar(20);not null;index" json:"customerCode"`
	TransportMode         TransportMode    `gorm:"type:varchar(3);not null" json:"transportMode"`
	TradeType             TradeType        `gorm:"type:varchar(6);not null" json:"tradeType"`
	Incoterm              string           `gorm:"type:varchar(3)" json:"incoterm,omitempty"`
	ShipperCode           string           `gorm:"type:varchar(20)" json:"shipperCode,omitempty"`
	ConsigneeCode         string           `gorm:"type:varchar(20)" json:"consigneeCode,omitempty"`
	OriginPortCode        string           `gorm:"type:varchar(5)" json:"originPortCode,omitempty"`
	DestPortCode          string           `gorm:"type:varchar(5)" json:"destPortCode,omitempty"`
	RequestedETD          *time.Time       `json:"requestedEtd,omitempty"`
	PackageQty            int              `gorm:"not null;default:0" json:"packageQty"`
	GrossWeightKg         decimal.Decimal  `gorm:"type:decimal(12,3);not null;default:0" json:"grossWeightKg"`
	VolumeCBM             decimal.Decimal  `gorm:"column:volume_cbm;type:decimal(12,3);not null;default:0" json:"volumeCbm"`
	DeclaredValue         Money            `gorm:"embedded;embeddedPrefix:declared_" json:"declaredValue"`
	EstimatedFreight      Money            `gorm:"embedded;embeddedPrefix:est_freight_" json:"estimatedFreight"`
	EstimatedFreightLocal decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"estimatedFreightLocal"`
	Status                OrderStatus      `gorm:"type:varchar(10);not null;index" json:"status"`
	ShipmentID            *uuid.UUID       `gorm:"type:uuid;index" json:"shipmentId,omitempty"`
	CancelReason          string           `gorm:"type:varchar(500)" json:"cancelReason,omitempty"`
	CreditOverrideBy      string           `gorm:"type:varchar(100)" json:"creditOverrideBy,omitempty"`
	CreditOverrideReason  string           `gorm:"type:varchar(500)" json:"creditOverrideReason,omitempty"`
	Lines                 []OrderCargoLine `gorm:"foreignKey:OrderID" json:"lines,omitempty"`
}

// OrderCargoLine is one commodity line of an order
type OrderCargoLine struct {
	BaseModel
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"orderId"`
	LineNo        int             `gorm:"not null" json:"lineNo"`
	Description   string          `gorm:"type:varchar(255);not null" json:"description"`
	HSCode        string          `gorm:"column:hs_code;type:varchar(12)" json:"hsCode,omitempty"`
	PackageQty    int             `gorm:"not null" json:"packageQty"`
	PackageType   string          `gorm:"type:varchar(10)" json:"packageType,omitempty"`
	GrossWeightKg decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal `gorm:"column:volume_cbm;type:decimal(12,3);not null;default:0" json:"volumeCbm"`
	Value         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"value"`
}

// CargoTotals sums package count, weight and volume
type CargoTotals struct {
	PackageQty    int
	GrossWeightKg decimal.Decimal
	VolumeCBM     decimal.Decimal
}

// OrderLineTotals sums the cargo lines of an order
func OrderLineTotals(lines []OrderCargoLine) CargoTotals {
	t := CargoTotals{GrossWeightKg: decimal.Zero, VolumeCBM: decimal.Zero}
	for _, l := range lines {
		t.PackageQty += l.PackageQty
		t.GrossWeightKg = t.GrossWeightKg.Add(l.GrossWeightKg)
		t.VolumeCBM = t.VolumeCBM.Add(l.VolumeCBM)
	}
	return t
}
