package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// TrackingEventRepository appends to and reads shipment histories. It has no update
// or delete methods.
type TrackingEventRepository struct {
	db *gorm.DB
}

// NewTrackingEventRepository creates a new tracking event repository
func NewTrackingEventRepository(db *gorm.DB) *TrackingEventRepository {
	return &TrackingEventRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *TrackingEventRepository) WithTx(tx *gorm.DB) *TrackingEventRepository {
	return &TrackingEventRepository{db: tx}
}

// Append records an event with the next per-shipment sequence. Call it inside the
// transaction that holds the shipment row lock.
func (r *TrackingEventRepository) Append(ctx context.Context, event *domain.TrackingEvent) error {
	var maxSeq int
	err := r.db.WithContext(ctx).Model(&domain.TrackingEvent{}).
		Where("shipment_id = ?", event.ShipmentID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return err
	}
	event.Seq = maxSeq + 1
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByShipment returns a shipment's events newest first
func (r *TrackingEventRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.TrackingEvent, error) {
	var events []domain.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("event_at DESC, seq DESC").
		Find(&events).Error
	return events, err
}

// Latest returns the most recent event of a shipment by event time
func (r *TrackingEventRepository) Latest(ctx context.Context, shipmentID uuid.UUID) (*domain.TrackingEvent, error) {
	var event domain.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("event_at DESC, seq DESC").
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListByCode returns events with a code inside a time window
func (r *TrackingEventRepository) ListByCode(ctx context.Context, code string, from, to time.Time) ([]domain.TrackingEvent, error) {
	var events []domain.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("event_code = ? AND event_at >= ? AND event_at <= ?", code, from, to).
		Order("event_at DESC").
		Find(&events).Error
	return events, err
}
