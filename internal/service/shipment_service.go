package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/messaging"
	"github.com/straye-as/fms-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ShipmentStatusChanged is published after a status change commits
type ShipmentStatusChanged struct {
	ShipmentID uuid.UUID             `json:"shipmentId"`
	ShipmentNo string                `json:"shipmentNo"`
	From       domain.ShipmentStatus `json:"from,omitempty"`
	To         domain.ShipmentStatus `json:"to"`
	EventCode  string                `json:"eventCode"`
	EventAt    time.Time             `json:"eventAt"`
}

// ShipmentService owns the shipment aggregate and its status machine. Every status
// change locks the shipment row, checks the guard for the target status and appends
// the tracking event in the same transaction.
type ShipmentService struct {
	db           *gorm.DB
	shipmentRepo *repository.ShipmentRepository
	eventRepo    *repository.TrackingEventRepository
	bookingRepo  *repository.BookingRepository
	documentRepo *repository.DocumentRepository
	customsRepo  *repository.CustomsRepository
	refRepo      *repository.ReferenceRepository
	numbers      *NumberSequenceService
	scheduling   *SchedulingService
	notices      *NoticeService
	publisher    messaging.Publisher
	logger       *zap.Logger
	now          func() time.Time
}

// NewShipmentService creates a new ShipmentService. notices may be nil, in which case
// no pre-alerts are scheduled.
func NewShipmentService(
	db *gorm.DB,
	shipmentRepo *repository.ShipmentRepository,
	eventRepo *repository.TrackingEventRepository,
	bookingRepo *repository.BookingRepository,
	documentRepo *repository.DocumentRepository,
	customsRepo *repository.CustomsRepository,
	refRepo *repository.ReferenceRepository,
	numbers *NumberSequenceService,
	scheduling *SchedulingService,
	notices *NoticeService,
	publisher messaging.Publisher,
	logger *zap.Logger,
) *ShipmentService {
	return &ShipmentService{
		db:           db,
		shipmentRepo: shipmentRepo,
		eventRepo:    eventRepo,
		bookingRepo:  bookingRepo,
		documentRepo: documentRepo,
		customsRepo:  customsRepo,
		refRepo:      refRepo,
		numbers:      numbers,
		scheduling:   scheduling,
		notices:      notices,
		publisher:    publisher,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateShipment opens a DRAFT shipment and writes its creation event
func (s *ShipmentService) CreateShipment(ctx context.Context, req *domain.ShipmentRequest) (*domain.Shipment, error) {
	if err := validateStruct("Shipment", req); err != nil {
		return nil, err
	}
	shipment := &domain.Shipment{}
	applyShipmentRequest(shipment, req)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.createInTx(ctx, tx, shipment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shipment created",
		zap.String("shipment_id", shipment.ID.String()),
		zap.String("shipment_no", shipment.ShipmentNo),
		zap.String("transport_mode", string(shipment.TransportMode)))
	s.publishStatus(ctx, shipment, "", domain.ShipmentStatusDraft.EventCode(), shipment.CreatedAt)
	return shipment, nil
}

// createInTx validates, numbers and inserts a DRAFT shipment inside the caller's transaction
func (s *ShipmentService) createInTx(ctx context.Context, tx *gorm.DB, shipment *domain.Shipment) error {
	if err := shipment.Validate(); err != nil {
		return err
	}
	if err := s.checkShipmentRefs(ctx, tx, shipment); err != nil {
		return err
	}

	number, err := s.numbers.Next(ctx, tx, domain.PrefixShipment)
	if err != nil {
		return err
	}
	now := s.now()
	shipment.ShipmentNo = number
	shipment.Status = domain.ShipmentStatusDraft
	shipment.CreatedAt = now

	if err := s.shipmentRepo.WithTx(tx).Create(ctx, shipment); err != nil {
		return fmt.Errorf("failed to create shipment: %w", err)
	}
	event := &domain.TrackingEvent{
		ShipmentID:   shipment.ID,
		EventCode:    domain.ShipmentStatusDraft.EventCode(),
		StatusCD:     domain.ShipmentStatusDraft,
		EventAt:      now,
		LocationCode: shipment.OriginPortCode,
		Description:  "shipment created",
	}
	if err := s.eventRepo.WithTx(tx).Append(ctx, event); err != nil {
		return fmt.Errorf("failed to append creation event: %w", err)
	}
	return s.schedulePreAlerts(ctx, tx, shipment)
}

func (s *ShipmentService) checkShipmentRefs(ctx context.Context, tx *gorm.DB, shipment *domain.Shipment) error {
	refs := s.refRepo.WithTx(tx)
	if err := checkRefs(ctx, refs, "Shipment",
		customerRef("customerCode", shipment.CustomerCode),
		customerRef("shipperCode", shipment.ShipperCode),
		customerRef("consigneeCode", shipment.ConsigneeCode),
		customerRef("notifyCode", shipment.NotifyCode),
		carrierRef("carrierCode", shipment.CarrierCode),
		partnerRef("partnerCode", shipment.PartnerCode),
		countryRef("originCountry", shipment.OriginCountry),
		portRef("originPortCode", shipment.OriginPortCode),
		countryRef("destCountry", shipment.DestCountry),
		portRef("destPortCode", shipment.DestPortCode),
		currencyRef("declaredValue.currency", shipment.DeclaredValue.Currency),
	); err != nil {
		return err
	}
	return checkCommonCode(ctx, refs, "Shipment", "incoterm", domain.CodeGroupIncoterms, shipment.Incoterm)
}

func (s *ShipmentService) schedulePreAlerts(ctx context.Context, tx *gorm.DB, shipment *domain.Shipment) error {
	if s.notices == nil {
		return nil
	}
	return s.notices.ScheduleShipmentPreAlerts(ctx, tx, shipment)
}

func applyShipmentRequest(shipment *domain.Shipment, req *domain.ShipmentRequest) {
	shipment.TransportMode = req.TransportMode
	shipment.TradeType = req.TradeType
	shipment.Incoterm = normalizeCode(req.Incoterm)
	shipment.CustomerCode = normalizeCode(req.CustomerCode)
	shipment.ShipperCode = normalizeCode(req.ShipperCode)
	shipment.ConsigneeCode = normalizeCode(req.ConsigneeCode)
	shipment.NotifyCode = normalizeCode(req.NotifyCode)
	shipment.CarrierCode = normalizeCode(req.CarrierCode)
	shipment.PartnerCode = normalizeCode(req.PartnerCode)
	shipment.OriginCountry = normalizeCode(req.OriginCountry)
	shipment.OriginPortCode = normalizeCode(req.OriginPortCode)
	shipment.DestCountry = normalizeCode(req.DestCountry)
	shipment.DestPortCode = normalizeCode(req.DestPortCode)
	shipment.ETD = req.ETD
	shipment.ETA = req.ETA
	shipment.PackageQty = req.PackageQty
	shipment.GrossWeightKg = req.GrossWeightKg
	shipment.VolumeCBM = req.VolumeCBM
	shipment.DeclaredValue = domain.NewMoney(req.DeclaredValue.Value, normalizeCode(req.DeclaredValue.Currency))
}

// UpdateDraft rewrites the header of a DRAFT shipment. Later statuses are read-only
// except through transitions.
func (s *ShipmentService) UpdateDraft(ctx context.Context, id uuid.UUID, req *domain.ShipmentRequest) (*domain.Shipment, error) {
	if err := validateStruct("Shipment", req); err != nil {
		return nil, err
	}
	var shipment *domain.Shipment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.shipmentRepo.WithTx(tx)
		var err error
		shipment, err = repo.Lock(ctx, id)
		if err != nil {
			return notFound(err, "shipment")
		}
		if shipment.Status != domain.ShipmentStatusDraft {
			return domain.NewTransitionError("Shipment", id, shipment.Status, shipment.Status, "only draft shipments can be edited")
		}
		applyShipmentRequest(shipment, req)
		if err := shipment.Validate(); err != nil {
			return err
		}
		if err := s.checkShipmentRefs(ctx, tx, shipment); err != nil {
			return err
		}
		if err := repo.Update(ctx, shipment); err != nil {
			return fmt.Errorf("failed to update shipment: %w", err)
		}
		return s.schedulePreAlerts(ctx, tx, shipment)
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// Transition moves a shipment to the requested status. CANCELLED is routed through Cancel
// so the reason and booking release apply.
func (s *ShipmentService) Transition(ctx context.Context, id uuid.UUID, req *domain.TransitionRequest) (*domain.Shipment, error) {
	if err := validateStruct("Transition", req); err != nil {
		return nil, err
	}
	to, ok := domain.ParseShipmentStatus(req.Status)
	if !ok {
		return nil, domain.NewValidationError("Transition", "status", "unknown shipment status "+req.Status)
	}
	if to == domain.ShipmentStatusCancelled {
		return s.Cancel(ctx, id, req.Reason)
	}
	at, err := eventTime("Transition", req.EventAt, s.now())
	if err != nil {
		return nil, err
	}

	var shipment *domain.Shipment
	var from domain.ShipmentStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		shipment, from, err = s.transitionInTx(ctx, tx, id, to, at, req.LocationCode, req.Description)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shipment status changed",
		zap.String("shipment_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	s.publishStatus(ctx, shipment, from, to.EventCode(), at)
	return shipment, nil
}

// transitionInTx applies one guarded status change under the shipment row lock and
// returns the shipment with the status it left
func (s *ShipmentService) transitionInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, to domain.ShipmentStatus, at time.Time, location, description string) (*domain.Shipment, domain.ShipmentStatus, error) {
	repo := s.shipmentRepo.WithTx(tx)
	shipment, err := repo.Lock(ctx, id)
	if err != nil {
		return nil, "", notFound(err, "shipment")
	}
	from := shipment.Status
	if !from.CanTransitionTo(to) {
		return nil, from, domain.NewTransitionError("Shipment", id, from, to, "")
	}
	if err := s.checkEventOrder(ctx, tx, id, at); err != nil {
		return nil, from, err
	}
	if err := s.checkGuard(ctx, tx, shipment, to); err != nil {
		return nil, from, err
	}

	shipment.Status = to
	switch to {
	case domain.ShipmentStatusDeparted:
		shipment.ATD = &at
	case domain.ShipmentStatusArrived:
		shipment.ATA = &at
	}
	if err := repo.Update(ctx, shipment); err != nil {
		return nil, from, fmt.Errorf("failed to update shipment status: %w", err)
	}

	if location == "" {
		location = shipment.OriginPortCode
		if shipment.Status.Rank() >= domain.ShipmentStatusArrived.Rank() {
			location = shipment.DestPortCode
		}
	}
	event := &domain.TrackingEvent{
		ShipmentID:   id,
		EventCode:    to.EventCode(),
		StatusCD:     to,
		EventAt:      at,
		LocationCode: location,
		Description:  description,
	}
	if err := s.eventRepo.WithTx(tx).Append(ctx, event); err != nil {
		return nil, from, fmt.Errorf("failed to append tracking event: %w", err)
	}
	if to == domain.ShipmentStatusDeparted {
		if err := s.schedulePreAlerts(ctx, tx, shipment); err != nil {
			return nil, from, err
		}
	}
	return shipment, from, nil
}

// maxEventClockSkew bounds how far ahead of the server clock a caller may date an event
const maxEventClockSkew = 5 * time.Minute

// eventTime resolves a caller-supplied event time, defaulting to now. Future-dated
// events are rejected because later system-stamped events could not follow them.
func eventTime(entity string, requested *time.Time, now time.Time) (time.Time, error) {
	if requested == nil {
		return now, nil
	}
	at := requested.UTC()
	if at.After(now.Add(maxEventClockSkew)) {
		return time.Time{}, domain.NewValidationError(entity, "eventAt", "must not be in the future")
	}
	return at, nil
}

// checkEventOrder rejects an event dated before the shipment's latest event so the
// cached status always matches the newest history entry
func (s *ShipmentService) checkEventOrder(ctx context.Context, tx *gorm.DB, shipmentID uuid.UUID, at time.Time) error {
	latest, err := s.eventRepo.WithTx(tx).Latest(ctx, shipmentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}
	if at.Before(latest.EventAt) {
		return domain.NewValidationError("TrackingEvent", "eventAt",
			fmt.Sprintf("must not precede the latest event at %s", latest.EventAt.Format(time.RFC3339)))
	}
	return nil
}

// checkGuard enforces the precondition of each forward status
func (s *ShipmentService) checkGuard(ctx context.Context, tx *gorm.DB, shipment *domain.Shipment, to domain.ShipmentStatus) error {
	switch to {
	case domain.ShipmentStatusBooked:
		ok, err := s.bookingRepo.WithTx(tx).HasConfirmedBooking(ctx, shipment.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewTransitionError("Shipment", shipment.ID, shipment.Status, to, "no confirmed booking")
		}
	case domain.ShipmentStatusDeparted:
		n, err := s.documentRepo.WithTx(tx).CountIssuedMasters(ctx, shipment.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NewTransitionError("Shipment", shipment.ID, shipment.Status, to, "no issued master document")
		}
	case domain.ShipmentStatusCleared:
		return s.checkCustomsCleared(ctx, tx, shipment)
	}
	return nil
}

// checkCustomsCleared requires a cleared import declaration for imports. Exports only
// need one when an export declaration was filed.
func (s *ShipmentService) checkCustomsCleared(ctx context.Context, tx *gorm.DB, shipment *domain.Shipment) error {
	customs := s.customsRepo.WithTx(tx)
	if shipment.TradeType == domain.TradeTypeExport {
		declarations, err := customs.ListByShipment(ctx, shipment.ID)
		if err != nil {
			return err
		}
		filed := false
		for _, d := range declarations {
			if d.TradeType == domain.TradeTypeExport {
				filed = true
				break
			}
		}
		if !filed {
			return nil
		}
	}
	ok, err := customs.HasCleared(ctx, shipment.ID, shipment.TradeType)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewTransitionError("Shipment", shipment.ID, shipment.Status, domain.ShipmentStatusCleared,
			"no cleared "+string(shipment.TradeType)+" declaration")
	}
	return nil
}

// Cancel cancels a shipment before departure. Active bookings are cancelled with it and
// confirmed capacity goes back to the schedule.
func (s *ShipmentService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*domain.Shipment, error) {
	if reason == "" {
		return nil, domain.NewValidationError("Shipment", "cancelReason", "required")
	}
	var shipment *domain.Shipment
	var from domain.ShipmentStatus
	at := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.shipmentRepo.WithTx(tx)
		var err error
		shipment, err = repo.Lock(ctx, id)
		if err != nil {
			return notFound(err, "shipment")
		}
		from = shipment.Status
		if !from.CanTransitionTo(domain.ShipmentStatusCancelled) {
			return domain.NewTransitionError("Shipment", id, from, domain.ShipmentStatusCancelled, "cargo has already departed")
		}
		if err := s.checkEventOrder(ctx, tx, id, at); err != nil {
			return err
		}
		if err := s.cancelBookings(ctx, tx, id, reason, at); err != nil {
			return err
		}

		shipment.Status = domain.ShipmentStatusCancelled
		shipment.CancelReason = reason
		if err := repo.Update(ctx, shipment); err != nil {
			return fmt.Errorf("failed to cancel shipment: %w", err)
		}
		return s.eventRepo.WithTx(tx).Append(ctx, &domain.TrackingEvent{
			ShipmentID:  id,
			EventCode:   domain.ShipmentStatusCancelled.EventCode(),
			StatusCD:    domain.ShipmentStatusCancelled,
			EventAt:     at,
			Description: reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shipment cancelled",
		zap.String("shipment_id", id.String()),
		zap.String("from", string(from)),
		zap.String("reason", reason))
	s.publishStatus(ctx, shipment, from, domain.ShipmentStatusCancelled.EventCode(), at)
	return shipment, nil
}

func (s *ShipmentService) cancelBookings(ctx context.Context, tx *gorm.DB, shipmentID uuid.UUID, reason string, at time.Time) error {
	bookings := s.bookingRepo.WithTx(tx)

	ocean, err := bookings.ListOceanByShipment(ctx, shipmentID)
	if err != nil {
		return err
	}
	for _, b := range ocean {
		if b.Status == domain.BookingStatusCancelled {
			continue
		}
		locked, err := bookings.LockOcean(ctx, b.ID)
		if err != nil {
			return err
		}
		if locked.Status == domain.BookingStatusConfirmed {
			if err := s.scheduling.ReleaseOceanBooking(ctx, tx, locked); err != nil {
				return err
			}
		}
		locked.Status = domain.BookingStatusCancelled
		locked.CancelledAt = &at
		locked.CancelReason = reason
		if err := bookings.SaveOcean(ctx, locked); err != nil {
			return err
		}
	}

	air, err := bookings.ListAirByShipment(ctx, shipmentID)
	if err != nil {
		return err
	}
	for _, b := range air {
		if b.Status == domain.BookingStatusCancelled {
			continue
		}
		locked, err := bookings.LockAir(ctx, b.ID)
		if err != nil {
			return err
		}
		if locked.Status == domain.BookingStatusConfirmed {
			if err := s.scheduling.ReleaseAirBooking(ctx, tx, locked); err != nil {
				return err
			}
		}
		locked.Status = domain.BookingStatusCancelled
		locked.CancelledAt = &at
		locked.CancelReason = reason
		if err := bookings.SaveAir(ctx, locked); err != nil {
			return err
		}
	}
	return nil
}

func (s *ShipmentService) publishStatus(ctx context.Context, shipment *domain.Shipment, from domain.ShipmentStatus, eventCode string, at time.Time) {
	_ = publishEvent(ctx, s.publisher, s.logger, messaging.EventShipmentStatus, shipment.ShipmentNo, ShipmentStatusChanged{
		ShipmentID: shipment.ID,
		ShipmentNo: shipment.ShipmentNo,
		From:       from,
		To:         shipment.Status,
		EventCode:  eventCode,
		EventAt:    at,
	})
}

// Get returns a shipment by id
func (s *ShipmentService) Get(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "shipment")
	}
	return shipment, nil
}

// GetByNumber returns a shipment by its SHP number
func (s *ShipmentService) GetByNumber(ctx context.Context, shipmentNo string) (*domain.Shipment, error) {
	shipment, err := s.shipmentRepo.GetByNumber(ctx, shipmentNo)
	if err != nil {
		return nil, notFound(err, "shipment")
	}
	return shipment, nil
}

// History returns the shipment's tracking events, newest first
func (s *ShipmentService) History(ctx context.Context, id uuid.UUID) ([]domain.TrackingEvent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByShipment(ctx, id)
}

// List returns a filtered page of shipments
func (s *ShipmentService) List(ctx context.Context, page, pageSize int, filters *repository.ShipmentFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	shipments, total, err := s.shipmentRepo.ListWithSortConfig(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}
	page, pageSize, _ = repository.Page(page, pageSize)
	return domain.NewPaginatedResponse(shipments, total, page, pageSize), nil
}

// Delete soft-deletes a DRAFT or CANCELLED shipment. Its history rows stay.
func (s *ShipmentService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.shipmentRepo.WithTx(tx)
		shipment, err := repo.Lock(ctx, id)
		if err != nil {
			return notFound(err, "shipment")
		}
		if shipment.Status != domain.ShipmentStatusDraft && shipment.Status != domain.ShipmentStatusCancelled {
			return domain.NewTransitionError("Shipment", id, shipment.Status, shipment.Status, "only draft or cancelled shipments can be deleted")
		}
		return repo.SoftDelete(ctx, id)
	})
}
