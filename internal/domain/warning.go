package domain

import (
	"github.com/google/uuid"
)

// Reconciliation rules
const (
	RuleContainerGrossWeight = "CONTAINER_GROSS_WEIGHT"
	RuleOrderLineTotals      = "ORDER_LINE_TOTALS"
	RuleHouseLineTotals      = "HOUSE_LINE_TOTALS"
	RuleIrregularity         = "IRREGULARITY"
)

// ReconciliationWarning is a persisted soft mismatch. It never blocks the write that
// caused it and stays queryable afterwards.
type ReconciliationWarning struct {
	BaseModel
	EntityType string     `gorm:"type:varchar(30);not null;index:idx_warning_entity" json:"entityType"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_warning_entity" json:"entityId"`
	ShipmentID *uuid.UUID `gorm:"type:uuid;index" json:"shipmentId,omitempty"`
	Rule       string     `gorm:"type:varchar(30);not null" json:"rule"`
	Expected   string     `gorm:"type:varchar(100)" json:"expected,omitempty"`
	Actual     string     `gorm:"type:varchar(100)" json:"actual,omitempty"`
	Message    string     `gorm:"type:varchar(500);not null" json:"message"`
}
