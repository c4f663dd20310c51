package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// BookingRepository handles ocean and air bookings
type BookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *BookingRepository) WithTx(tx *gorm.DB) *BookingRepository {
	return &BookingRepository{db: tx}
}

// CreateOcean inserts an ocean booking with its container lines
func (r *BookingRepository) CreateOcean(ctx context.Context, b *domain.OceanBooking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

// GetOcean retrieves an ocean booking with its container lines
func (r *BookingRepository) GetOcean(ctx context.Context, id uuid.UUID) (*domain.OceanBooking, error) {
	var b domain.OceanBooking
	err := r.db.WithContext(ctx).Preload("Containers").Where("id = ?", id).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LockOcean retrieves an ocean booking under a row lock, with its container lines
func (r *BookingRepository) LockOcean(ctx context.Context, id uuid.UUID) (*domain.OceanBooking, error) {
	var b domain.OceanBooking
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("booking_id = ?", b.ID).Find(&b.Containers).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveOcean saves the ocean booking header
func (r *BookingRepository) SaveOcean(ctx context.Context, b *domain.OceanBooking) error {
	return r.db.WithContext(ctx).Omit("Containers").Save(b).Error
}

// ListOceanByShipment returns a shipment's ocean bookings
func (r *BookingRepository) ListOceanByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.OceanBooking, error) {
	var bookings []domain.OceanBooking
	err := r.db.WithContext(ctx).Preload("Containers").
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Find(&bookings).Error
	return bookings, err
}

// ListOceanBySchedule returns the bookings against a schedule in a status
func (r *BookingRepository) ListOceanBySchedule(ctx context.Context, scheduleID uuid.UUID, status domain.BookingStatus) ([]domain.OceanBooking, error) {
	var bookings []domain.OceanBooking
	err := r.db.WithContext(ctx).Preload("Containers").
		Where("schedule_id = ? AND status = ?", scheduleID, status).
		Find(&bookings).Error
	return bookings, err
}

// CreateAir inserts an air booking
func (r *BookingRepository) CreateAir(ctx context.Context, b *domain.AirBooking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

// GetAir retrieves an air booking
func (r *BookingRepository) GetAir(ctx context.Context, id uuid.UUID) (*domain.AirBooking, error) {
	var b domain.AirBooking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// LockAir retrieves an air booking under a row lock
func (r *BookingRepository) LockAir(ctx context.Context, id uuid.UUID) (*domain.AirBooking, error) {
	var b domain.AirBooking
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveAir saves the air booking
func (r *BookingRepository) SaveAir(ctx context.Context, b *domain.AirBooking) error {
	return r.db.WithContext(ctx).Save(b).Error
}

// ListAirByShipment returns a shipment's air bookings
func (r *BookingRepository) ListAirByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.AirBooking, error) {
	var bookings []domain.AirBooking
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Find(&bookings).Error
	return bookings, err
}

// HasActiveBooking reports whether the shipment has a REQUESTED or CONFIRMED booking of either mode
func (r *BookingRepository) HasActiveBooking(ctx context.Context, shipmentID uuid.UUID) (bool, error) {
	active := []domain.BookingStatus{domain.BookingStatusRequested, domain.BookingStatusConfirmed}
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.OceanBooking{}).
		Where("shipment_id = ? AND status IN ?", shipmentID, active).
		Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	err := r.db.WithContext(ctx).Model(&domain.AirBooking{}).
		Where("shipment_id = ? AND status IN ?", shipmentID, active).
		Count(&n).Error
	return n > 0, err
}

// HasConfirmedBooking reports whether the shipment has a CONFIRMED booking of either mode
func (r *BookingRepository) HasConfirmedBooking(ctx context.Context, shipmentID uuid.UUID) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.OceanBooking{}).
		Where("shipment_id = ? AND status = ?", shipmentID, domain.BookingStatusConfirmed).
		Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	err := r.db.WithContext(ctx).Model(&domain.AirBooking{}).
		Where("shipment_id = ? AND status = ?", shipmentID, domain.BookingStatusConfirmed).
		Count(&n).Error
	return n > 0, err
}
