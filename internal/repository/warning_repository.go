package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// WarningRepository stores reconciliation warnings
type WarningRepository struct {
	db *gorm.DB
}

// NewWarningRepository creates a new warning repository
func NewWarningRepository(db *gorm.DB) *WarningRepository {
	return &WarningRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *WarningRepository) WithTx(tx *gorm.DB) *WarningRepository {
	return &WarningRepository{db: tx}
}

// Create inserts warnings; an empty slice is a no-op
func (r *WarningRepository) Create(ctx context.Context, warnings []domain.ReconciliationWarning) error {
	if len(warnings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&warnings).Error
}

// ListByEntity returns the warnings raised against one entity
func (r *WarningRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.ReconciliationWarning, error) {
	var list []domain.ReconciliationWarning
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// ListByShipment returns every warning tied to a shipment
func (r *WarningRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.ReconciliationWarning, error) {
	var list []domain.ReconciliationWarning
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// ListByRule returns warnings of a rule, newest first
func (r *WarningRepository) ListByRule(ctx context.Context, rule string, limit int) ([]domain.ReconciliationWarning, error) {
	_, limit, _ = Page(1, limit)
	var list []domain.ReconciliationWarning
	err := r.db.WithContext(ctx).
		Where("rule = ?", rule).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
