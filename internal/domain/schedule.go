package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OceanSchedule is one carrier voyage leg between two ports.
type OceanSchedule struct {
	BaseModel
	CarrierCode string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_ocean_schedule_key" json:"carrierCode"`
	VesselName  string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_ocean_schedule_key" json:"vesselName"`
	VoyageNo    string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_ocean_schedule_key" json:"voyageNo"`
	POLCode     string         `gorm:"column:pol_code;type:varchar(5);not null;uniqueIndex:idx_ocean_schedule_key" json:"polCode"`
	PODCode     string         `gorm:"column:pod_code;type:varchar(5);not null" json:"podCode"`
	ETD         time.Time      `gorm:"not null;index" json:"etd"`
	ETA         time.Time      `gorm:"not null" json:"eta"`
	CargoCutoff *time.Time     `json:"cargoCutoff,omitempty"`
	DocCutoff   *time.Time     `json:"docCutoff,omitempty"`
	Status      ScheduleStatus `gorm:"type:varchar(15);not null;default:'SCHEDULED'" json:"status"`
	Spaces      []OceanSpace   `gorm:"foreignKey:ScheduleID" json:"spaces,omitempty"`
}

// OceanSpace is the container slot inventory for one container type on a schedule.
// BookedQty + AvailableQty == TotalQty at all times.
type OceanSpace struct {
	BaseModel
	ScheduleID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ocean_space_key" json:"scheduleId"`
	ContainerType string    `gorm:"type:varchar(4);not null;uniqueIndex:idx_ocean_space_key" json:"containerType"`
	TotalQty      int       `gorm:"not null" json:"totalQty"`
	BookedQty     int       `gorm:"not null;default:0" json:"bookedQty"`
	AvailableQty  int       `gorm:"not null" json:"availableQty"`
}

// Reserve books qty units or reports exhaustion without mutating.
func (s *OceanSpace) Reserve(qty int) error {
	if qty <= 0 {
		return NewValidationError("OceanSpace", "qty", "must be positive")
	}
	if qty > s.AvailableQty {
		return &CapacityExhaustedError{
			Resource:   "ocean_space:" + s.ContainerType,
			ResourceID: s.ScheduleID,
			Requested:  decimal.NewFromInt(int64(qty)),
			Available:  decimal.NewFromInt(int64(s.AvailableQty)),
		}
	}
	s.BookedQty += qty
	s.AvailableQty = s.TotalQty - s.BookedQty
	return nil
}

// Release returns qty units, never below zero booked.
func (s *OceanSpace) Release(qty int) {
	s.BookedQty -= qty
	if s.BookedQty < 0 {
		s.BookedQty = 0
	}
	s.AvailableQty = s.TotalQty - s.BookedQty
}

// SpaceAllocation reserves part of a space block for one customer.
// UsedQty <= AllocatedQty <= OceanSpace.TotalQty.
type SpaceAllocation struct {
	BaseModel
	SpaceID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_space_allocation_key" json:"spaceId"`
	CustomerCode string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_space_allocation_key" json:"customerCode"`
	AllocatedQty int       `gorm:"not null" json:"allocatedQty"`
	UsedQty      int       `gorm:"not null;default:0" json:"usedQty"`
}

// RemainingQty is allocated space not yet used
func (a *SpaceAllocation) RemainingQty() int {
	return a.AllocatedQty - a.UsedQty
}

// AirSchedule is one flight leg with a weight capacity.
type AirSchedule struct {
	BaseModel
	CarrierCode       string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_air_schedule_key" json:"carrierCode"`
	FlightNo          string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_air_schedule_key" json:"flightNo"`
	FlightDate        time.Time       `gorm:"type:date;not null;uniqueIndex:idx_air_schedule_key" json:"flightDate"`
	OriginCode        string          `gorm:"type:varchar(5);not null" json:"originCode"`
	DestCode          string          `gorm:"type:varchar(5);not null" json:"destCode"`
	ETD               time.Time       `gorm:"not null" json:"etd"`
	ETA               time.Time       `gorm:"not null" json:"eta"`
	MaxWeightKg       decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"maxWeightKg"`
	BookedWeightKg    decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"bookedWeightKg"`
	AvailableWeightKg decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"availableWeightKg"`
	Status            ScheduleStatus  `gorm:"type:varchar(15);not null;default:'SCHEDULED'" json:"status"`
}

// Reserve commits weight or reports exhaustion without mutating.
func (s *AirSchedule) Reserve(weight decimal.Decimal) error {
	if !weight.IsPositive() {
		return NewValidationError("AirSchedule", "weight", "must be positive")
	}
	if weight.GreaterThan(s.AvailableWeightKg) {
		return &CapacityExhaustedError{
			Resource:   "air_weight",
			ResourceID: s.ID,
			Requested:  weight,
			Available:  s.AvailableWeightKg,
		}
	}
	s.BookedWeightKg = s.BookedWeightKg.Add(weight)
	s.AvailableWeightKg = s.MaxWeightKg.Sub(s.BookedWeightKg)
	return nil
}

// Release returns committed weight
func (s *AirSchedule) Release(weight decimal.Decimal) {
	s.BookedWeightKg = s.BookedWeightKg.Sub(weight)
	if s.BookedWeightKg.IsNegative() {
		s.BookedWeightKg = decimal.Zero
	}
	s.AvailableWeightKg = s.MaxWeightKg.Sub(s.BookedWeightKg)
}

// MAWBStock is a block of pre-issued airline waybill numbers.
type MAWBStock struct {
	BaseModel
	CarrierCode   string       `gorm:"type:varchar(20);not null;index" json:"carrierCode"`
	AirlinePrefix string       `gorm:"type:char(3);not null" json:"airlinePrefix"`
	StartSerial   int          `gorm:"not null" json:"startSerial"`
	TotalQty      int          `gorm:"not null" json:"totalQty"`
	ReceivedAt    time.Time    `gorm:"not null" json:"receivedAt"`
	Serials       []MAWBSerial `gorm:"foreignKey:StockID" json:"serials,omitempty"`
}

// MAWBSerialStatus
type MAWBSerialStatus string

const (
	MAWBSerialAvailable MAWBSerialStatus = "AVAILABLE"
	MAWBSerialUsed      MAWBSerialStatus = "USED"
)

// MAWBSerial is one waybill number inside a stock block
type MAWBSerial struct {
	BaseModel
	StockID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"stockId"`
	Seq        int              `gorm:"not null" json:"seq"`
	MAWBNo     string           `gorm:"column:mawb_no;type:varchar(12);not null;uniqueIndex" json:"mawbNo"`
	Status     MAWBSerialStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	ShipmentID *uuid.UUID       `gorm:"type:uuid" json:"shipmentId,omitempty"`
	UsedAt     *time.Time       `json:"usedAt,omitempty"`
}

// MAWBNumber formats an airline prefix and 7-digit serial as PPP-SSSSSSSC
// where C is the serial modulo 7.
func MAWBNumber(prefix string, serial int) string {
	return fmt.Sprintf("%s-%07d%d", prefix, serial, serial%7)
}

// ValidMAWBNumber checks the layout and check digit
func ValidMAWBNumber(no string) bool {
	var prefix string
	var serial, check int
	if len(no) != 12 || no[3] != '-' {
		return false
	}
	if _, err := fmt.Sscanf(no[:3], "%3s", &prefix); err != nil {
		return false
	}
	if _, err := fmt.Sscanf(no[4:11], "%7d", &serial); err != nil {
		return false
	}
	if _, err := fmt.Sscanf(no[11:], "%1d", &check); err != nil {
		return false
	}
	return serial%7 == check
}

// MAWBStockSummary counts serials by status for one block
type MAWBStockSummary struct {
	StockID      uuid.UUID `json:"stockId"`
	TotalQty     int       `json:"totalQty"`
	AvailableQty int       `json:"availableQty"`
	UsedQty      int       `json:"usedQty"`
}
