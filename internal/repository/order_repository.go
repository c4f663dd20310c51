package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// OrderRepository handles customer orders and their cargo lines
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Create inserts an order with its cargo lines
func (r *OrderRepository) Create(ctx context.Context, order *domain.CustomerOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID retrieves an order with its cargo lines
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomerOrder, error) {
	var order domain.CustomerOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Lock retrieves an order header under a row lock
func (r *OrderRepository) Lock(ctx context.Context, id uuid.UUID) (*domain.CustomerOrder, error) {
	var order domain.CustomerOrder
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Update saves the order header without touching its lines
func (r *OrderRepository) Update(ctx context.Context, order *domain.CustomerOrder) error {
	return r.db.WithContext(ctx).Omit("Lines").Save(order).Error
}

// List returns a paginated order list for a customer, or all customers when empty
func (r *OrderRepository) List(ctx context.Context, customerCode string, status *domain.OrderStatus, page, pageSize int) ([]domain.CustomerOrder, int64, error) {
	var orders []domain.CustomerOrder
	var total int64

	_, pageSize, offset := Page(page, pageSize)
	query := r.db.WithContext(ctx).Model(&domain.CustomerOrder{})
	if customerCode != "" {
		query = query.Where("customer_code = ?", customerCode)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&orders).Error
	return orders, total, err
}

// PendingForCredit returns confirmed orders of a customer whose shipment has not yet
// been delivered, cancelled or invoiced. Their estimated freight counts against credit.
func (r *OrderRepository) PendingForCredit(ctx context.Context, customerCode string) ([]domain.CustomerOrder, error) {
	var orders []domain.CustomerOrder
	invoiced := r.db.Model(&domain.Charge{}).
		Select("shipment_id").
		Where("side = ? AND status = ?", domain.SideAR, domain.ChargeStatusInvoiced)
	err := r.db.WithContext(ctx).
		Joins("JOIN shipments ON shipments.id = customer_orders.shipment_id AND shipments.deleted_at IS NULL").
		Where("customer_orders.customer_code = ? AND customer_orders.status = ?", customerCode, domain.OrderStatusConfirmed).
		Where("shipments.status NOT IN ?", []domain.ShipmentStatus{domain.ShipmentStatusDelivered, domain.ShipmentStatusCancelled}).
		Where("shipments.id NOT IN (?)", invoiced).
		Find(&orders).Error
	return orders, err
}
