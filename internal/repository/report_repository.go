package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// ReportRepository stores append-only credit checks, aging and profit snapshots
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *ReportRepository) WithTx(tx *gorm.DB) *ReportRepository {
	return &ReportRepository{db: tx}
}

// CreateCreditCheck records a credit evaluation
func (r *ReportRepository) CreateCreditCheck(ctx context.Context, c *domain.CreditCheck) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// ListCreditChecks returns a customer's credit checks, newest first
func (r *ReportRepository) ListCreditChecks(ctx context.Context, customerCode string, limit int) ([]domain.CreditCheck, error) {
	_, limit, _ = Page(1, limit)
	var list []domain.CreditCheck
	err := r.db.WithContext(ctx).
		Where("customer_code = ?", customerCode).
		Order("checked_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// CreateAgingSnapshots appends aging rows
func (r *ReportRepository) CreateAgingSnapshots(ctx context.Context, rows []domain.AgingSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ListAging returns the aging rows of a side on a snapshot date
func (r *ReportRepository) ListAging(ctx context.Context, side domain.BillingSide, date time.Time) ([]domain.AgingSnapshot, error) {
	var list []domain.AgingSnapshot
	err := r.db.WithContext(ctx).
		Where("side = ? AND snapshot_date = ?", side, date).
		Order("customer_code ASC").
		Find(&list).Error
	return list, err
}

// CreateProfit appends a profit snapshot
func (r *ReportRepository) CreateProfit(ctx context.Context, p *domain.ProfitAnalysis) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// LatestProfit returns the newest profit snapshot of a shipment
func (r *ReportRepository) LatestProfit(ctx context.Context, shipmentID uuid.UUID) (*domain.ProfitAnalysis, error) {
	var p domain.ProfitAnalysis
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("snapshot_date DESC, created_at DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfit returns every profit snapshot of a shipment, oldest first
func (r *ReportRepository) ListProfit(ctx context.Context, shipmentID uuid.UUID) ([]domain.ProfitAnalysis, error) {
	var list []domain.ProfitAnalysis
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("snapshot_date ASC, created_at ASC").
		Find(&list).Error
	return list, err
}
