package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Milestone event codes that do not move the shipment status.
const (
	EventGateIn     = "GIN"
	EventLoaded     = "LOD"
	EventDischarged = "DIS"
	EventGateOut    = "GOT"
	EventException  = "EXC"
)

// TrackingEvent is an append-only entry in a shipment's history.
// StatusCD is the shipment status in force once the event applied; Seq orders
// events with equal EventAt.
type TrackingEvent struct {
	BaseModel
	ShipmentID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_tracking_event_seq" json:"shipmentId"`
	Seq          int            `gorm:"not null;uniqueIndex:idx_tracking_event_seq" json:"seq"`
	EventCode    string         `gorm:"type:varchar(5);not null" json:"eventCode"`
	StatusCD     ShipmentStatus `gorm:"column:status_cd;type:varchar(10);not null" json:"statusCd"`
	EventAt      time.Time      `gorm:"not null;index" json:"eventAt"`
	LocationCode string         `gorm:"type:varchar(5)" json:"locationCode,omitempty"`
	Description  string         `gorm:"type:varchar(500)" json:"description,omitempty"`
	DocType      string         `gorm:"type:varchar(4)" json:"docType,omitempty"`
	DocID        *uuid.UUID     `gorm:"type:uuid" json:"docId,omitempty"`
	ContainerNo  string         `gorm:"type:varchar(11)" json:"containerNo,omitempty"`
}

// BeforeUpdate rejects any update: tracking history is never rewritten.
func (e *TrackingEvent) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutable
}

// BeforeDelete rejects soft or hard deletes for the same reason.
func (e *TrackingEvent) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutable
}
