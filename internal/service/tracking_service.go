package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TrackingService records milestone events that do not move a shipment's status.
// Status events are written by ShipmentService.Transition only.
type TrackingService struct {
	db           *gorm.DB
	eventRepo    *repository.TrackingEventRepository
	shipmentRepo *repository.ShipmentRepository
	shipments    *ShipmentService
	documents    *DocumentService
	logger       *zap.Logger
	now          func() time.Time
}

// NewTrackingService creates a new TrackingService
func NewTrackingService(
	db *gorm.DB,
	eventRepo *repository.TrackingEventRepository,
	shipmentRepo *repository.ShipmentRepository,
	shipments *ShipmentService,
	documents *DocumentService,
	logger *zap.Logger,
) *TrackingService {
	return &TrackingService{
		db:           db,
		eventRepo:    eventRepo,
		shipmentRepo: shipmentRepo,
		shipments:    shipments,
		documents:    documents,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RecordEvent appends a milestone to the shipment's history. The event carries the
// current status so the latest event always agrees with the shipment row.
func (s *TrackingService) RecordEvent(ctx context.Context, shipmentID uuid.UUID, req *domain.RecordEventRequest) (*domain.TrackingEvent, error) {
	if err := validateStruct("TrackingEvent", req); err != nil {
		return nil, err
	}
	if (req.DocType == "") != (req.DocID == nil) {
		return nil, domain.NewValidationError("TrackingEvent", "docId", "docType and docId go together")
	}
	at, err := eventTime("TrackingEvent", req.EventAt, s.now())
	if err != nil {
		return nil, err
	}

	event := &domain.TrackingEvent{
		ShipmentID:   shipmentID,
		EventCode:    req.EventCode,
		EventAt:      at,
		LocationCode: normalizeCode(req.LocationCode),
		Description:  req.Description,
		DocType:      req.DocType,
		DocID:        req.DocID,
		ContainerNo:  normalizeCode(req.ContainerNo),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shipment, err := s.shipmentRepo.WithTx(tx).Lock(ctx, shipmentID)
		if err != nil {
			return notFound(err, "shipment")
		}
		if shipment.Status == domain.ShipmentStatusCancelled {
			return domain.NewTransitionError("Shipment", shipmentID, shipment.Status, shipment.Status,
				"cancelled shipments take no further events")
		}
		if err := s.shipments.checkEventOrder(ctx, tx, shipmentID, at); err != nil {
			return err
		}
		if err := checkRefs(ctx, s.shipments.refRepo.WithTx(tx), "TrackingEvent",
			portRef("locationCode", event.LocationCode)); err != nil {
			return err
		}
		if event.DocID != nil {
			if err := s.documents.checkDocument(ctx, tx, "TrackingEvent", shipmentID, event.DocType, *event.DocID); err != nil {
				return err
			}
		}

		event.StatusCD = shipment.Status
		if err := s.eventRepo.WithTx(tx).Append(ctx, event); err != nil {
			return fmt.Errorf("failed to append tracking event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tracking event recorded",
		zap.String("shipment_id", shipmentID.String()),
		zap.String("event_code", event.EventCode),
		zap.Int("seq", event.Seq))
	return event, nil
}

// ListEvents returns a shipment's history, newest first
func (s *TrackingService) ListEvents(ctx context.Context, shipmentID uuid.UUID) ([]domain.TrackingEvent, error) {
	return s.shipments.History(ctx, shipmentID)
}

// ListByCode returns events with one code inside a time window
func (s *TrackingService) ListByCode(ctx context.Context, code string, from, to time.Time) ([]domain.TrackingEvent, error) {
	return s.eventRepo.ListByCode(ctx, normalizeCode(code), from, to)
}
