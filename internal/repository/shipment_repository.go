package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// ShipmentFilters defines filter options for shipment listing
type ShipmentFilters struct {
	Search        string
	CustomerCode  string
	TransportMode *domain.TransportMode
	TradeType     *domain.TradeType
	Status        *domain.ShipmentStatus
	ETDFrom       *time.Time
	ETDTo         *time.Time
}

// shipmentSortableFields maps API field names to database column names
var shipmentSortableFields = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"shipmentNo": "shipment_no",
	"etd":        "etd",
	"eta":        "eta",
	"status":     "status",
}

// ShipmentRepository handles shipment data access operations
type ShipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository creates a new shipment repository instance
func NewShipmentRepository(db *gorm.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *ShipmentRepository) WithTx(tx *gorm.DB) *ShipmentRepository {
	return &ShipmentRepository{db: tx}
}

// Create inserts a shipment
func (r *ShipmentRepository) Create(ctx context.Context, shipment *domain.Shipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

// GetByID retrieves a shipment by its ID
func (r *ShipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	var shipment domain.Shipment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// GetByNumber retrieves a shipment by shipment number
func (r *ShipmentRepository) GetByNumber(ctx context.Context, shipmentNo string) (*domain.Shipment, error) {
	var shipment domain.Shipment
	if err := r.db.WithContext(ctx).Where("shipment_no = ?", shipmentNo).First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// Lock retrieves a shipment under a row lock. Every status change goes through here
// so concurrent transitions on one shipment serialize.
func (r *ShipmentRepository) Lock(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	var shipment domain.Shipment
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// Update saves every column of the shipment
func (r *ShipmentRepository) Update(ctx context.Context, shipment *domain.Shipment) error {
	return r.db.WithContext(ctx).Save(shipment).Error
}

// UpdateFields saves selected columns
func (r *ShipmentRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.Shipment{BaseModel: domain.BaseModel{ID: id}}).Updates(fields).Error
}

// SoftDelete flags the shipment deleted; the row and its history stay
func (r *ShipmentRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Shipment{}, "id = ?", id).Error
}

// ListWithSortConfig returns a paginated, filtered shipment list
func (r *ShipmentRepository) ListWithSortConfig(ctx context.Context, page, pageSize int, filters *ShipmentFilters, sort SortConfig) ([]domain.Shipment, int64, error) {
	var shipments []domain.Shipment
	var total int64

	_, pageSize, offset := Page(page, pageSize)
	query := r.db.WithContext(ctx).Model(&domain.Shipment{})

	if filters != nil {
		if filters.Search != "" {
			pattern := "%" + strings.ToLower(filters.Search) + "%"
			query = query.Where("LOWER(shipment_no) LIKE ?", pattern)
		}
		if filters.CustomerCode != "" {
			query = query.Where("customer_code = ?", filters.CustomerCode)
		}
		if filters.TransportMode != nil {
			query = query.Where("transport_mode = ?", *filters.TransportMode)
		}
		if filters.TradeType != nil {
			query = query.Where("trade_type = ?", *filters.TradeType)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.ETDFrom != nil {
			query = query.Where("etd >= ?", *filters.ETDFrom)
		}
		if filters.ETDTo != nil {
			query = query.Where("etd <= ?", *filters.ETDTo)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderClause := BuildOrderClause(sort, shipmentSortableFields, "updated_at")
	err := query.Offset(offset).Limit(pageSize).Order(orderClause).Find(&shipments).Error
	return shipments, total, err
}

// ListByStatuses returns shipments in any of the statuses
func (r *ShipmentRepository) ListByStatuses(ctx context.Context, statuses []domain.ShipmentStatus) ([]domain.Shipment, error) {
	var shipments []domain.Shipment
	err := r.db.WithContext(ctx).Where("status IN ?", statuses).Order("created_at ASC").Find(&shipments).Error
	return shipments, err
}

// ListIDs returns the IDs of every live shipment
func (r *ShipmentRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&domain.Shipment{}).Order("created_at ASC").Pluck("id", &ids).Error
	return ids, err
}
