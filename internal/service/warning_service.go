package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WarningService records and reports reconciliation warnings
type WarningService struct {
	repo   *repository.WarningRepository
	logger *zap.Logger
}

// NewWarningService creates a new WarningService
func NewWarningService(repo *repository.WarningRepository, logger *zap.Logger) *WarningService {
	return &WarningService{repo: repo, logger: logger}
}

// Record persists warnings in the caller's transaction and logs each one
func (s *WarningService) Record(ctx context.Context, tx *gorm.DB, warnings []domain.ReconciliationWarning) error {
	if len(warnings) == 0 {
		return nil
	}
	if err := s.repo.WithTx(tx).Create(ctx, warnings); err != nil {
		return fmt.Errorf("failed to record reconciliation warnings: %w", err)
	}
	for _, w := range warnings {
		s.logger.Warn("reconciliation warning",
			zap.String("rule", w.Rule),
			zap.String("entity_type", w.EntityType),
			zap.String("entity_id", w.EntityID.String()),
			zap.String("expected", w.Expected),
			zap.String("actual", w.Actual))
	}
	return nil
}

// ListByEntity returns the warnings raised against one entity
func (s *WarningService) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.ReconciliationWarning, error) {
	return s.repo.ListByEntity(ctx, entityType, entityID)
}

// ListByShipment returns every warning tied to a shipment
func (s *WarningService) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.ReconciliationWarning, error) {
	return s.repo.ListByShipment(ctx, shipmentID)
}

// ListByRule returns the newest warnings of one rule
func (s *WarningService) ListByRule(ctx context.Context, rule string, limit int) ([]domain.ReconciliationWarning, error) {
	return s.repo.ListByRule(ctx, rule, limit)
}

// newWarning builds a warning row
func newWarning(entityType string, entityID uuid.UUID, shipmentID *uuid.UUID, rule, expected, actual, message string) domain.ReconciliationWarning {
	return domain.ReconciliationWarning{
		EntityType: entityType,
		EntityID:   entityID,
		ShipmentID: shipmentID,
		Rule:       rule,
		Expected:   expected,
		Actual:     actual,
		Message:    message,
	}
}

// cargoTotalsWarnings compares header aggregates with their line totals
func cargoTotalsWarnings(entityType string, entityID uuid.UUID, shipmentID *uuid.UUID, rule string, header, lines domain.CargoTotals) []domain.ReconciliationWarning {
	var out []domain.ReconciliationWarning
	if header.PackageQty != lines.PackageQty {
		out = append(out, newWarning(entityType, entityID, shipmentID, rule,
			fmt.Sprint(lines.PackageQty), fmt.Sprint(header.PackageQty),
			"header package count differs from cargo lines"))
	}
	if !header.GrossWeightKg.Equal(lines.GrossWeightKg) {
		out = append(out, newWarning(entityType, entityID, shipmentID, rule,
			lines.GrossWeightKg.String(), header.GrossWeightKg.String(),
			"header gross weight differs from cargo lines"))
	}
	if !header.VolumeCBM.Equal(lines.VolumeCBM) {
		out = append(out, newWarning(entityType, entityID, shipmentID, rule,
			lines.VolumeCBM.String(), header.VolumeCBM.String(),
			"header volume differs from cargo lines"))
	}
	return out
}
