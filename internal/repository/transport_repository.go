package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// TransportRepository handles inland transport orders and demurrage records
type TransportRepository struct {
	db *gorm.DB
}

// NewTransportRepository creates a new transport repository
func NewTransportRepository(db *gorm.DB) *TransportRepository {
	return &TransportRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *TransportRepository) WithTx(tx *gorm.DB) *TransportRepository {
	return &TransportRepository{db: tx}
}

// Create inserts a transport order
func (r *TransportRepository) Create(ctx context.Context, o *domain.TransportOrder) error {
	return r.db.WithContext(ctx).Create(o).Error
}

// Lock retrieves a transport order under a row lock
func (r *TransportRepository) Lock(ctx context.Context, id uuid.UUID) (*domain.TransportOrder, error) {
	var o domain.TransportOrder
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// Save saves a transport order
func (r *TransportRepository) Save(ctx context.Context, o *domain.TransportOrder) error {
	return r.db.WithContext(ctx).Save(o).Error
}

// ListByShipment returns a shipment's transport orders
func (r *TransportRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.TransportOrder, error) {
	var orders []domain.TransportOrder
	err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Order("created_at ASC").Find(&orders).Error
	return orders, err
}

// CreateDemurrage inserts a demurrage calculation
func (r *TransportRepository) CreateDemurrage(ctx context.Context, d *domain.Demurrage) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// ListDemurrage returns a shipment's demurrage calculations
func (r *TransportRepository) ListDemurrage(ctx context.Context, shipmentID uuid.UUID) ([]domain.Demurrage, error) {
	var list []domain.Demurrage
	err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Order("container_no ASC").Find(&list).Error
	return list, err
}
