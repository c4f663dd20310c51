package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// CustomsRepository handles declarations, their items, inspections and EDI logs
type CustomsRepository struct {
	db *gorm.DB
}

// NewCustomsRepository creates a new customs repository
func NewCustomsRepository(db *gorm.DB) *CustomsRepository {
	return &CustomsRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *CustomsRepository) WithTx(tx *gorm.DB) *CustomsRepository {
	return &CustomsRepository{db: tx}
}

// Create inserts a declaration header
func (r *CustomsRepository) Create(ctx context.Context, d *domain.CustomsDeclaration) error {
	return r.db.WithContext(ctx).Omit("Items").Create(d).Error
}

// GetByID retrieves a declaration with its items
func (r *CustomsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomsDeclaration, error) {
	var d domain.CustomsDeclaration
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Lock retrieves a declaration under a row lock, with its items
func (r *CustomsRepository) Lock(ctx context.Context, id uuid.UUID) (*domain.CustomsDeclaration, error) {
	var d domain.CustomsDeclaration
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("declaration_id = ?", id).Order("line_no ASC").Find(&d.Items).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// Save saves the declaration header
func (r *CustomsRepository) Save(ctx context.Context, d *domain.CustomsDeclaration) error {
	return r.db.WithContext(ctx).Omit("Items").Save(d).Error
}

// ListByShipment returns a shipment's declarations
func (r *CustomsRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.CustomsDeclaration, error) {
	var list []domain.CustomsDeclaration
	err := r.db.WithContext(ctx).Preload("Items").
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// HasCleared reports whether the shipment has a declaration of the trade type in CLEARED or RELEASED
func (r *CustomsRepository) HasCleared(ctx context.Context, shipmentID uuid.UUID, tradeType domain.TradeType) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.CustomsDeclaration{}).
		Where("shipment_id = ? AND trade_type = ? AND status IN ?", shipmentID, tradeType,
			[]domain.CustomsStatus{domain.CustomsStatusCleared, domain.CustomsStatusReleased}).
		Count(&n).Error
	return n > 0, err
}

// CreateItem inserts a declaration item
func (r *CustomsRepository) CreateItem(ctx context.Context, item *domain.DeclarationItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// CreateInspection inserts an inspection record
func (r *CustomsRepository) CreateInspection(ctx context.Context, i *domain.Inspection) error {
	return r.db.WithContext(ctx).Create(i).Error
}

// LockLatestInspection retrieves the newest inspection of a declaration under a row lock
func (r *CustomsRepository) LockLatestInspection(ctx context.Context, declarationID uuid.UUID) (*domain.Inspection, error) {
	var i domain.Inspection
	err := forUpdate(r.db.WithContext(ctx)).
		Where("declaration_id = ?", declarationID).
		Order("created_at DESC").
		First(&i).Error
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// SaveInspection saves an inspection record
func (r *CustomsRepository) SaveInspection(ctx context.Context, i *domain.Inspection) error {
	return r.db.WithContext(ctx).Save(i).Error
}

// ListInspections returns the inspections of a declaration
func (r *CustomsRepository) ListInspections(ctx context.Context, declarationID uuid.UUID) ([]domain.Inspection, error) {
	var list []domain.Inspection
	err := r.db.WithContext(ctx).Where("declaration_id = ?", declarationID).Order("created_at ASC").Find(&list).Error
	return list, err
}

// AppendEDILog records an EDI message
func (r *CustomsRepository) AppendEDILog(ctx context.Context, l *domain.EDILog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// ListEDILogs returns the EDI messages of an entity, oldest first
func (r *CustomsRepository) ListEDILogs(ctx context.Context, refType string, refID uuid.UUID) ([]domain.EDILog, error) {
	var logs []domain.EDILog
	err := r.db.WithContext(ctx).
		Where("ref_type = ? AND ref_id = ?", refType, refID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
