package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransportOrder is an inland trucking leg for a shipment
type TransportOrder struct {
	BaseModel
	OrderNo         string          `gorm:"type:varchar(20);not null;uniqueIndex" json:"orderNo"`
	ShipmentID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"shipmentId"`
	TruckerCode     string          `gorm:"type:varchar(20);not null" json:"truckerCode"`
	ContainerNo     string          `gorm:"type:varchar(11)" json:"containerNo,omitempty"`
	PickupAddress   string          `gorm:"type:varchar(500);not null" json:"pickupAddress"`
	DeliveryAddress string          `gorm:"type:varchar(500);not null" json:"deliveryAddress"`
	PickupAt        *time.Time      `json:"pickupAt,omitempty"`
	DispatchedAt    *time.Time      `json:"dispatchedAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	Freight         Money           `gorm:"embedded;embeddedPrefix:freight_" json:"freight"`
	Status          TransportStatus `gorm:"type:varchar(10);not null;index" json:"status"`
	CancelReason    string          `gorm:"type:varchar(500)" json:"cancelReason,omitempty"`
}

// Demurrage is a calculated container detention charge basis
type Demurrage struct {
	BaseModel
	ShipmentID     uuid.UUID `gorm:"type:uuid;not null;index" json:"shipmentId"`
	ContainerNo    string    `gorm:"type:varchar(11);not null" json:"containerNo"`
	StartDate      time.Time `gorm:"type:date;not null" json:"startDate"`
	EndDate        time.Time `gorm:"type:date;not null" json:"endDate"`
	FreeDays       int       `gorm:"not null" json:"freeDays"`
	TotalDays      int       `gorm:"not null" json:"totalDays"`
	ChargeableDays int       `gorm:"not null" json:"chargeableDays"`
	DailyRate      Money     `gorm:"embedded;embeddedPrefix:daily_rate_" json:"dailyRate"`
	Amount         Money     `gorm:"embedded;embeddedPrefix:amount_" json:"amount"`
}

// DemurrageDays returns the inclusive day count between start and end and the chargeable
// days beyond the free time.
func DemurrageDays(start, end time.Time, freeDays int) (total, chargeable int) {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if e.Before(s) {
		return 0, 0
	}
	total = int(e.Sub(s).Hours()/24) + 1
	chargeable = total - freeDays
	if chargeable < 0 {
		chargeable = 0
	}
	return total, chargeable
}

// DemurrageAmount is chargeable days × daily rate
func DemurrageAmount(chargeableDays int, dailyRate Money, places int32) Money {
	return Money{
		Value:    dailyRate.Value.Mul(decimal.NewFromInt(int64(chargeableDays))).Round(places),
		Currency: dailyRate.Currency,
	}
}
