package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document types used when a row refers to "some transport document"
const (
	DocTypeMBL  = "MBL"
	DocTypeHBL  = "HBL"
	DocTypeMAWB = "MAWB"
	DocTypeHAWB = "HAWB"
)

// DocumentTimestamps records when each lifecycle step happened
type DocumentTimestamps struct {
	IssuedAt      *time.Time `json:"issuedAt,omitempty"`
	SurrenderedAt *time.Time `json:"surrenderedAt,omitempty"`
	ReleasedAt    *time.Time `json:"releasedAt,omitempty"`
}

// MasterBL is the carrier-issued bill of lading for a sea shipment.
type MasterBL struct {
	BaseModel
	MBLNo         string          `gorm:"column:mbl_no;type:varchar(30);not null;uniqueIndex" json:"mblNo"`
	ShipmentID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"shipmentId"`
	BookingID     *uuid.UUID      `gorm:"type:uuid" json:"bookingId,omitempty"`
	CarrierCode   string          `gorm:"type:varchar(20);not null" json:"carrierCode"`
	VesselName    string          `gorm:"type:varchar(100)" json:"vesselName,omitempty"`
	VoyageNo      string          `gorm:"type:varchar(20)" json:"voyageNo,omitempty"`
	POLCode       string          `gorm:"column:pol_code;type:varchar(5)" json:"polCode,omitempty"`
	PODCode       string          `gorm:"column:pod_code;type:varchar(5)" json:"podCode,omitempty"`
	PackageQty    int             `gorm:"not null;default:0" json:"packageQty"`
	GrossWeightKg decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal `gorm:"column:volume_cbm;type:decimal(12,3);not null;default:0" json:"volumeCbm"`
	Status        DocumentStatus  `gorm:"type:varchar(12);not null;index" json:"status"`
	DocumentTimestamps
}

// HouseBL is our own bill of lading to a customer. MBLID is set when the house
// rides on a consolidation master; a nil MBLID is a direct document.
type HouseBL struct {
	BaseModel
	HBLNo         string           `gorm:"column:hbl_no;type:varchar(30);not null;uniqueIndex" json:"hblNo"`
	ShipmentID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"shipmentId"`
	MBLID         *uuid.UUID       `gorm:"column:mbl_id;type:uuid;index" json:"mblId,omitempty"`
	ShipperCode   string           `gorm:"type:varchar(20)" json:"shipperCode,omitempty"`
	ConsigneeCode string           `gorm:"type:varchar(20)" json:"consigneeCode,omitempty"`
	PackageQty    int              `gorm:"not null;default:0" json:"packageQty"`
	GrossWeightKg decimal.Decimal  `gorm:"type:decimal(12,3);not null;default:0" json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal  `gorm:"column:volume_cbm;type:decimal(12,3);not null;default:0" json:"volumeCbm"`
	Status        DocumentStatus   `gorm:"type:varchar(12);not null;index" json:"status"`
	Lines         []HouseCargoLine `gorm:"-" json:"lines,omitempty"`
	DocumentTimestamps
}

// IsDirect reports a house document that is not consolidated under a master
func (h *HouseBL) IsDirect() bool {
	return h.MBLID == nil
}

// MasterAWB is the airline waybill. Its number is drawn from a MAWB stock serial.
type MasterAWB struct {
	BaseModel
	MAWBNo             *string         `gorm:"column:mawb_no;type:varchar(12);uniqueIndex" json:"mawbNo,omitempty"`
	ShipmentID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"shipmentId"`
	BookingID          *uuid.UUID      `gorm:"type:uuid" json:"bookingId,omitempty"`
	SerialID           *uuid.UUID      `gorm:"type:uuid" json:"serialId,omitempty"`
	CarrierCode        string          `gorm:"type:varchar(20);not null" json:"carrierCode"`
	FlightNo           string          `gorm:"type:varchar(10)" json:"flightNo,omitempty"`
	OriginCode         string          `gorm:"type:varchar(5)" json:"originCode,omitempty"`
	DestCode           string          `gorm:"type:varchar(5)" json:"destCode,omitempty"`
	PackageQty         int             `gorm:"not null;default:0" json:"packageQty"`
	GrossWeightKg      decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"grossWeightKg"`
	ChargeableWeightKg decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"chargeableWeightKg"`
	Status             DocumentStatus  `gorm:"type:varchar(12);not null;index" json:"status"`
	DocumentTimestamps
}

// HouseAWB is our own air waybill to a customer
type HouseAWB struct {
	BaseModel
	HAWBNo             string           `gorm:"column:hawb_no;type:varchar(30);not null;uniqueIndex" json:"hawbNo"`
	ShipmentID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"shipmentId"`
	MAWBID             *uuid.UUID       `gorm:"column:mawb_id;type:uuid;index" json:"mawbId,omitempty"`
	ShipperCode        string           `gorm:"type:varchar(20)" json:"shipperCode,omitempty"`
	ConsigneeCode      string           `gorm:"type:varchar(20)" json:"consigneeCode,omitempty"`
	PackageQty         int              `gorm:"not null;default:0" json:"packageQty"`
	GrossWeightKg      decimal.Decimal  `gorm:"type:decimal(12,3);not null;default:0" json:"grossWeightKg"`
	ChargeableWeightKg decimal.Decimal  `gorm:"type:decimal(12,3);not null;default:0" json:"chargeableWeightKg"`
	Status             DocumentStatus   `gorm:"type:varchar(12);not null;index" json:"status"`
	Lines              []HouseCargoLine `gorm:"-" json:"lines,omitempty"`
	DocumentTimestamps
}

// IsDirect reports a house waybill that is not consolidated under a master
func (h *HouseAWB) IsDirect() bool {
	return h.MAWBID == nil
}

// HouseCargoLine is a commodity line on an HBL or HAWB
type HouseCargoLine struct {
	BaseModel
	DocType       string          `gorm:"type:varchar(4);not null;index:idx_house_cargo_doc" json:"docType"`
	DocID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_house_cargo_doc" json:"docId"`
	LineNo        int             `gorm:"not null" json:"lineNo"`
	ContainerNo   string          `gorm:"type:varchar(11);index" json:"containerNo,omitempty"`
	Description   string          `gorm:"type:varchar(255);not null" json:"description"`
	HSCode        string          `gorm:"column:hs_code;type:varchar(12)" json:"hsCode,omitempty"`
	PackageQty    int             `gorm:"not null" json:"packageQty"`
	GrossWeightKg decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal `gorm:"column:volume_cbm;type:decimal(12,3);not null;default:0" json:"volumeCbm"`
}

// HouseLineTotals sums house cargo lines
func HouseLineTotals(lines []HouseCargoLine) CargoTotals {
	t := CargoTotals{GrossWeightKg: decimal.Zero, VolumeCBM: decimal.Zero}
	for _, l := range lines {
		t.PackageQty += l.PackageQty
		t.GrossWeightKg = t.GrossWeightKg.Add(l.GrossWeightKg)
		t.VolumeCBM = t.VolumeCBM.Add(l.VolumeCBM)
	}
	return t
}

// Container is a physical box carried under a master bill of lading.
// GrossWeightKg is expected to equal TareWeightKg + CargoWeightKg.
type Container struct {
	BaseModel
	MBLID         uuid.UUID        `gorm:"column:mbl_id;type:uuid;not null;index" json:"mblId"`
	ShipmentID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"shipmentId"`
	ContainerNo   string           `gorm:"type:varchar(11);not null;index" json:"containerNo"`
	ContainerType string           `gorm:"type:varchar(4);not null" json:"containerType"`
	SealNo1       string           `gorm:"type:varchar(20)" json:"sealNo1,omitempty"`
	SealNo2       string           `gorm:"type:varchar(20)" json:"sealNo2,omitempty"`
	PackageQty    int              `gorm:"not null;default:0" json:"packageQty"`
	TareWeightKg  decimal.Decimal  `gorm:"type:decimal(12,3);not null;default:0" json:"tareWeightKg"`
	CargoWeightKg decimal.Decimal  `gorm:"type:decimal(12,3);not null;default:0" json:"cargoWeightKg"`
	GrossWeightKg decimal.Decimal  `gorm:"type:decimal(12,3);not null;default:0" json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal  `gorm:"column:volume_cbm;type:decimal(12,3);not null;default:0" json:"volumeCbm"`
	IsDangerous   bool             `gorm:"not null;default:false" json:"isDangerous"`
	UNNumber      string           `gorm:"column:un_number;type:varchar(4)" json:"unNumber,omitempty"`
	IMOClass      string           `gorm:"column:imo_class;type:varchar(5)" json:"imoClass,omitempty"`
	IsReefer      bool             `gorm:"not null;default:false" json:"isReefer"`
	TemperatureC  *decimal.Decimal `gorm:"type:decimal(5,1)" json:"temperatureC,omitempty"`
}

// IrregularityStatus
type IrregularityStatus string

const (
	IrregularityOpen     IrregularityStatus = "OPEN"
	IrregularityResolved IrregularityStatus = "RESOLVED"
)

// Irregularity records a discrepancy between documented and received cargo.
type Irregularity struct {
	BaseModel
	ShipmentID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"shipmentId"`
	DocType            string             `gorm:"type:varchar(4)" json:"docType,omitempty"`
	DocID              *uuid.UUID         `gorm:"type:uuid" json:"docId,omitempty"`
	Kind               string             `gorm:"type:varchar(10);not null" json:"kind"`
	ReportedPackageQty int                `gorm:"not null;default:0" json:"reportedPackageQty"`
	ActualPackageQty   int                `gorm:"not null;default:0" json:"actualPackageQty"`
	ReportedWeightKg   decimal.Decimal    `gorm:"type:decimal(12,3);not null;default:0" json:"reportedWeightKg"`
	ActualWeightKg     decimal.Decimal    `gorm:"type:decimal(12,3);not null;default:0" json:"actualWeightKg"`
	Description        string             `gorm:"type:varchar(1000)" json:"description,omitempty"`
	Status             IrregularityStatus `gorm:"type:varchar(10);not null" json:"status"`
	Resolution         string             `gorm:"type:varchar(1000)" json:"resolution,omitempty"`
	ResolvedAt         *time.Time         `json:"resolvedAt,omitempty"`
}

// Irregularity kinds
const (
	IrregularityShort  = "SHORT"
	IrregularityOver   = "OVER"
	IrregularityDamage = "DAMAGE"
)
