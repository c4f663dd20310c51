package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OceanBooking reserves container slots on one ocean schedule for one shipment.
// The per-group header quantities must equal the sum of the container lines.
type OceanBooking struct {
	BaseModel
	BookingNo        string             `gorm:"type:varchar(20);not null;uniqueIndex" json:"bookingNo"`
	ShipmentID       uuid.UUID          `gorm:"type:uuid;not null;index" json:"shipmentId"`
	ScheduleID       uuid.UUID          `gorm:"type:uuid;not null;index" json:"scheduleId"`
	CustomerCode     string             `gorm:"type:varchar(20);not null" json:"customerCode"`
	CarrierBookingNo string             `gorm:"type:varchar(30)" json:"carrierBookingNo,omitempty"`
	Qty20GP          int                `gorm:"column:qty_20gp;not null;default:0" json:"qty20gp"`
	Qty40GP          int                `gorm:"column:qty_40gp;not null;default:0" json:"qty40gp"`
	Qty40HC          int                `gorm:"column:qty_40hc;not null;default:0" json:"qty40hc"`
	Qty45HC          int                `gorm:"column:qty_45hc;not null;default:0" json:"qty45hc"`
	QtyReefer        int                `gorm:"not null;default:0" json:"qtyReefer"`
	QtyOpenTop       int                `gorm:"not null;default:0" json:"qtyOpenTop"`
	QtyFlatRack      int                `gorm:"not null;default:0" json:"qtyFlatRack"`
	Status           BookingStatus      `gorm:"type:varchar(10);not null;index" json:"status"`
	ConfirmedAt      *time.Time         `json:"confirmedAt,omitempty"`
	CancelledAt      *time.Time         `json:"cancelledAt,omitempty"`
	CancelReason     string             `gorm:"type:varchar(500)" json:"cancelReason,omitempty"`
	Containers       []BookingContainer `gorm:"foreignKey:BookingID" json:"containers,omitempty"`
}

// BookingContainer is the quantity of one ISO container type on a booking
type BookingContainer struct {
	BaseModel
	BookingID     uuid.UUID `gorm:"type:uuid;not null;index" json:"bookingId"`
	ContainerType string    `gorm:"type:varchar(4);not null" json:"containerType"`
	Qty           int       `gorm:"not null" json:"qty"`
}

// Container type groups used by the booking header columns.
const (
	GroupGP20     = "20GP"
	GroupGP40     = "40GP"
	GroupHC40     = "40HC"
	GroupHC45     = "45HC"
	GroupReefer   = "REEFER"
	GroupOpenTop  = "OPEN_TOP"
	GroupFlatRack = "FLAT_RACK"
)

var containerGroups = map[string]string{
	"20GP": GroupGP20,
	"40GP": GroupGP40,
	"40HC": GroupHC40,
	"45HC": GroupHC45,
	"20RF": GroupReefer,
	"40RF": GroupReefer,
	"20OT": GroupOpenTop,
	"40OT": GroupOpenTop,
	"20FR": GroupFlatRack,
	"40FR": GroupFlatRack,
}

// ContainerGroup maps an ISO container type to its booking header group.
func ContainerGroup(containerType string) (string, bool) {
	g, ok := containerGroups[containerType]
	return g, ok
}

// HeaderQuantities returns the header column values keyed by group
func (b *OceanBooking) HeaderQuantities() map[string]int {
	return map[string]int{
		GroupGP20:     b.Qty20GP,
		GroupGP40:     b.Qty40GP,
		GroupHC40:     b.Qty40HC,
		GroupHC45:     b.Qty45HC,
		GroupReefer:   b.QtyReefer,
		GroupOpenTop:  b.QtyOpenTop,
		GroupFlatRack: b.QtyFlatRack,
	}
}

// ReconcileContainers checks every container line has a known type and a positive
// quantity, and that the header group columns equal the line sums.
func (b *OceanBooking) ReconcileContainers() error {
	if len(b.Containers) == 0 {
		return NewValidationError("OceanBooking", "containers", "at least one container line required")
	}
	sums := make(map[string]int)
	for _, c := range b.Containers {
		group, ok := ContainerGroup(c.ContainerType)
		if !ok {
			return NewValidationError("OceanBooking", "containers.containerType", fmt.Sprintf("unknown container type %q", c.ContainerType))
		}
		if c.Qty <= 0 {
			return NewValidationError("OceanBooking", "containers.qty", "must be positive")
		}
		sums[group] += c.Qty
	}
	for group, qty := range b.HeaderQuantities() {
		if sums[group] != qty {
			return NewValidationError("OceanBooking", "qty"+group,
				fmt.Sprintf("header quantity %d does not match container lines %d", qty, sums[group]))
		}
	}
	return nil
}

// FillHeaderFromContainers sets the header group columns from the container lines
func (b *OceanBooking) FillHeaderFromContainers() {
	sums := make(map[string]int)
	for _, c := range b.Containers {
		if group, ok := ContainerGroup(c.ContainerType); ok {
			sums[group] += c.Qty
		}
	}
	b.Qty20GP = sums[GroupGP20]
	b.Qty40GP = sums[GroupGP40]
	b.Qty40HC = sums[GroupHC40]
	b.Qty45HC = sums[GroupHC45]
	b.QtyReefer = sums[GroupReefer]
	b.QtyOpenTop = sums[GroupOpenTop]
	b.QtyFlatRack = sums[GroupFlatRack]
}

// AirBooking reserves weight on one flight for one shipment.
type AirBooking struct {
	BaseModel
	BookingNo          string          `gorm:"type:varchar(20);not null;uniqueIndex" json:"bookingNo"`
	ShipmentID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"shipmentId"`
	ScheduleID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"scheduleId"`
	CustomerCode       string          `gorm:"type:varchar(20);not null" json:"customerCode"`
	PackageQty         int             `gorm:"not null" json:"packageQty"`
	GrossWeightKg      decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"grossWeightKg"`
	VolumeCBM          decimal.Decimal `gorm:"column:volume_cbm;type:decimal(12,3);not null;default:0" json:"volumeCbm"`
	ChargeableWeightKg decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"chargeableWeightKg"`
	Status             BookingStatus   `gorm:"type:varchar(10);not null;index" json:"status"`
	ConfirmedAt        *time.Time      `json:"confirmedAt,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	CancelReason       string          `gorm:"type:varchar(500)" json:"cancelReason,omitempty"`
}
