package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BookingService manages ocean and air bookings. Capacity is taken from the schedule only
// when a booking is confirmed, and given back when a confirmed booking is cancelled.
type BookingService struct {
	db           *gorm.DB
	bookingRepo  *repository.BookingRepository
	shipmentRepo *repository.ShipmentRepository
	scheduleRepo *repository.ScheduleRepository
	scheduling   *SchedulingService
	shipments    *ShipmentService
	numbers      *NumberSequenceService
	volumeFactor decimal.Decimal
	logger       *zap.Logger
	now          func() time.Time
}

// NewBookingService creates a new BookingService. A zero volumeWeightFactor uses the
// IATA default of 167 kg per CBM.
func NewBookingService(
	db *gorm.DB,
	bookingRepo *repository.BookingRepository,
	shipmentRepo *repository.ShipmentRepository,
	scheduleRepo *repository.ScheduleRepository,
	scheduling *SchedulingService,
	shipments *ShipmentService,
	numbers *NumberSequenceService,
	volumeWeightFactor int,
	logger *zap.Logger,
) *BookingService {
	factor := domain.DefaultVolumeWeightFactor
	if volumeWeightFactor > 0 {
		factor = decimal.NewFromInt(int64(volumeWeightFactor))
	}
	return &BookingService{
		db:           db,
		bookingRepo:  bookingRepo,
		shipmentRepo: shipmentRepo,
		scheduleRepo: scheduleRepo,
		scheduling:   scheduling,
		shipments:    shipments,
		numbers:      numbers,
		volumeFactor: factor,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// bookableShipment loads a shipment that can still take bookings in the given mode
func (s *BookingService) bookableShipment(ctx context.Context, tx *gorm.DB, id uuid.UUID, mode domain.TransportMode) (*domain.Shipment, error) {
	shipment, err := s.shipmentRepo.WithTx(tx).Lock(ctx, id)
	if err != nil {
		return nil, notFound(err, "shipment")
	}
	if shipment.TransportMode != mode {
		return nil, domain.NewValidationError("Booking", "shipmentId",
			fmt.Sprintf("shipment is %s, booking is %s", shipment.TransportMode, mode))
	}
	if shipment.Status != domain.ShipmentStatusDraft && shipment.Status != domain.ShipmentStatusBooked {
		return nil, domain.NewTransitionError("Shipment", id, shipment.Status, domain.ShipmentStatusBooked,
			"bookings are only taken before departure")
	}
	return shipment, nil
}

// RequestOceanBooking records a booking request against a voyage. Header quantities left
// at zero are filled from the container lines; otherwise they must match them.
func (s *BookingService) RequestOceanBooking(ctx context.Context, req *domain.OceanBookingRequest) (*domain.OceanBooking, error) {
	if err := validateStruct("OceanBooking", req); err != nil {
		return nil, err
	}
	booking := &domain.OceanBooking{
		ShipmentID:       req.ShipmentID,
		ScheduleID:       req.ScheduleID,
		CarrierBookingNo: req.CarrierBookingNo,
		Qty20GP:          req.Qty20GP,
		Qty40GP:          req.Qty40GP,
		Qty40HC:          req.Qty40HC,
		Qty45HC:          req.Qty45HC,
		QtyReefer:        req.QtyReefer,
		QtyOpenTop:       req.QtyOpenTop,
		QtyFlatRack:      req.QtyFlatRack,
	}
	for _, c := range req.Containers {
		booking.Containers = append(booking.Containers, domain.BookingContainer{
			ContainerType: normalizeCode(c.ContainerType),
			Qty:           c.Qty,
		})
	}
	headerEmpty := true
	for _, qty := range booking.HeaderQuantities() {
		if qty != 0 {
			headerEmpty = false
			break
		}
	}
	if headerEmpty {
		booking.FillHeaderFromContainers()
	}
	if err := booking.ReconcileContainers(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shipment, err := s.bookableShipment(ctx, tx, req.ShipmentID, domain.TransportModeSea)
		if err != nil {
			return err
		}
		schedule, err := s.scheduleRepo.WithTx(tx).GetOceanSchedule(ctx, req.ScheduleID)
		if err != nil {
			return notFound(err, "ocean schedule")
		}
		if schedule.Status != domain.ScheduleStatusScheduled {
			return domain.NewTransitionError("OceanSchedule", schedule.ID, schedule.Status, schedule.Status,
				"voyage no longer takes bookings")
		}

		number, err := s.numbers.Next(ctx, tx, domain.PrefixOceanBooking)
		if err != nil {
			return err
		}
		booking.BookingNo = number
		booking.CustomerCode = shipment.CustomerCode
		booking.Status = domain.BookingStatusRequested
		if err := s.bookingRepo.WithTx(tx).CreateOcean(ctx, booking); err != nil {
			return fmt.Errorf("failed to create ocean booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ocean booking requested",
		zap.String("booking_no", booking.BookingNo),
		zap.String("shipment_id", booking.ShipmentID.String()),
		zap.String("schedule_id", booking.ScheduleID.String()))
	return booking, nil
}

// ConfirmOceanBooking reserves the booking's containers on the voyage and marks it
// CONFIRMED. A DRAFT shipment moves to BOOKED in the same transaction.
func (s *BookingService) ConfirmOceanBooking(ctx context.Context, id uuid.UUID) (*domain.OceanBooking, error) {
	current, err := s.bookingRepo.GetOcean(ctx, id)
	if err != nil {
		return nil, notFound(err, "ocean booking")
	}

	var booking *domain.OceanBooking
	var shipment *domain.Shipment
	var moved bool
	at := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		shipment, err = s.bookableShipment(ctx, tx, current.ShipmentID, domain.TransportModeSea)
		if err != nil {
			return err
		}
		repo := s.bookingRepo.WithTx(tx)
		booking, err = repo.LockOcean(ctx, id)
		if err != nil {
			return notFound(err, "ocean booking")
		}
		if !booking.Status.CanTransitionTo(domain.BookingStatusConfirmed) {
			return domain.NewTransitionError("OceanBooking", id, booking.Status, domain.BookingStatusConfirmed, "")
		}
		if err := s.scheduling.ReserveOceanBooking(ctx, tx, booking); err != nil {
			return err
		}
		booking.Status = domain.BookingStatusConfirmed
		booking.ConfirmedAt = &at
		if err := repo.SaveOcean(ctx, booking); err != nil {
			return fmt.Errorf("failed to confirm ocean booking: %w", err)
		}
		moved, err = s.markShipmentBooked(ctx, tx, shipment, booking.BookingNo, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	if moved {
		s.shipments.publishStatus(ctx, shipment, domain.ShipmentStatusDraft, domain.ShipmentStatusBooked.EventCode(), at)
	}

	s.logger.Info("ocean booking confirmed",
		zap.String("booking_no", booking.BookingNo),
		zap.String("shipment_id", booking.ShipmentID.String()))
	return booking, nil
}

// markShipmentBooked moves a DRAFT shipment to BOOKED after its first confirmation
func (s *BookingService) markShipmentBooked(ctx context.Context, tx *gorm.DB, shipment *domain.Shipment, bookingNo string, at time.Time) (bool, error) {
	if shipment.Status != domain.ShipmentStatusDraft {
		return false, nil
	}
	updated, _, err := s.shipments.transitionInTx(ctx, tx, shipment.ID, domain.ShipmentStatusBooked, at, "",
		"booking "+bookingNo+" confirmed")
	if err != nil {
		return false, err
	}
	*shipment = *updated
	return true, nil
}

// CancelOceanBooking cancels a booking and returns confirmed space to the voyage
func (s *BookingService) CancelOceanBooking(ctx context.Context, id uuid.UUID, reason string) (*domain.OceanBooking, error) {
	if reason == "" {
		return nil, domain.NewValidationError("OceanBooking", "cancelReason", "required")
	}
	var booking *domain.OceanBooking
	at := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.bookingRepo.WithTx(tx)
		var err error
		booking, err = repo.LockOcean(ctx, id)
		if err != nil {
			return notFound(err, "ocean booking")
		}
		if !booking.Status.CanTransitionTo(domain.BookingStatusCancelled) {
			return domain.NewTransitionError("OceanBooking", id, booking.Status, domain.BookingStatusCancelled, "")
		}
		if booking.Status == domain.BookingStatusConfirmed {
			if err := s.scheduling.ReleaseOceanBooking(ctx, tx, booking); err != nil {
				return err
			}
		}
		booking.Status = domain.BookingStatusCancelled
		booking.CancelledAt = &at
		booking.CancelReason = reason
		return repo.SaveOcean(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ocean booking cancelled",
		zap.String("booking_no", booking.BookingNo),
		zap.String("reason", reason))
	return booking, nil
}

// RequestAirBooking records a booking request on a flight. The chargeable weight is the
// greater of gross and volume weight.
func (s *BookingService) RequestAirBooking(ctx context.Context, req *domain.AirBookingRequest) (*domain.AirBooking, error) {
	if err := validateStruct("AirBooking", req); err != nil {
		return nil, err
	}
	if !req.GrossWeightKg.IsPositive() {
		return nil, domain.NewValidationError("AirBooking", "grossWeightKg", "must be positive")
	}
	if req.VolumeCBM.IsNegative() {
		return nil, domain.NewValidationError("AirBooking", "volumeCbm", "must not be negative")
	}
	booking := &domain.AirBooking{
		ShipmentID:         req.ShipmentID,
		ScheduleID:         req.ScheduleID,
		PackageQty:         req.PackageQty,
		GrossWeightKg:      req.GrossWeightKg,
		VolumeCBM:          req.VolumeCBM,
		ChargeableWeightKg: domain.ChargeableWeight(req.GrossWeightKg, req.VolumeCBM, s.volumeFactor),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shipment, err := s.bookableShipment(ctx, tx, req.ShipmentID, domain.TransportModeAir)
		if err != nil {
			return err
		}
		schedule, err := s.scheduleRepo.WithTx(tx).GetAirSchedule(ctx, req.ScheduleID)
		if err != nil {
			return notFound(err, "air schedule")
		}
		if schedule.Status != domain.ScheduleStatusScheduled {
			return domain.NewTransitionError("AirSchedule", schedule.ID, schedule.Status, schedule.Status,
				"flight no longer takes bookings")
		}

		number, err := s.numbers.Next(ctx, tx, domain.PrefixAirBooking)
		if err != nil {
			return err
		}
		booking.BookingNo = number
		booking.CustomerCode = shipment.CustomerCode
		booking.Status = domain.BookingStatusRequested
		return s.bookingRepo.WithTx(tx).CreateAir(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("air booking requested",
		zap.String("booking_no", booking.BookingNo),
		zap.String("chargeable_weight_kg", booking.ChargeableWeightKg.String()))
	return booking, nil
}

// ConfirmAirBooking commits the chargeable weight on the flight and marks the booking CONFIRMED
func (s *BookingService) ConfirmAirBooking(ctx context.Context, id uuid.UUID) (*domain.AirBooking, error) {
	current, err := s.bookingRepo.GetAir(ctx, id)
	if err != nil {
		return nil, notFound(err, "air booking")
	}

	var booking *domain.AirBooking
	var shipment *domain.Shipment
	var moved bool
	at := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		shipment, err = s.bookableShipment(ctx, tx, current.ShipmentID, domain.TransportModeAir)
		if err != nil {
			return err
		}
		repo := s.bookingRepo.WithTx(tx)
		booking, err = repo.LockAir(ctx, id)
		if err != nil {
			return notFound(err, "air booking")
		}
		if !booking.Status.CanTransitionTo(domain.BookingStatusConfirmed) {
			return domain.NewTransitionError("AirBooking", id, booking.Status, domain.BookingStatusConfirmed, "")
		}
		if err := s.scheduling.ReserveAirBooking(ctx, tx, booking); err != nil {
			return err
		}
		booking.Status = domain.BookingStatusConfirmed
		booking.ConfirmedAt = &at
		if err := repo.SaveAir(ctx, booking); err != nil {
			return fmt.Errorf("failed to confirm air booking: %w", err)
		}
		moved, err = s.markShipmentBooked(ctx, tx, shipment, booking.BookingNo, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	if moved {
		s.shipments.publishStatus(ctx, shipment, domain.ShipmentStatusDraft, domain.ShipmentStatusBooked.EventCode(), at)
	}

	s.logger.Info("air booking confirmed", zap.String("booking_no", booking.BookingNo))
	return booking, nil
}

// CancelAirBooking cancels a booking and returns confirmed weight to the flight
func (s *BookingService) CancelAirBooking(ctx context.Context, id uuid.UUID, reason string) (*domain.AirBooking, error) {
	if reason == "" {
		return nil, domain.NewValidationError("AirBooking", "cancelReason", "required")
	}
	var booking *domain.AirBooking
	at := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.bookingRepo.WithTx(tx)
		var err error
		booking, err = repo.LockAir(ctx, id)
		if err != nil {
			return notFound(err, "air booking")
		}
		if !booking.Status.CanTransitionTo(domain.BookingStatusCancelled) {
			return domain.NewTransitionError("AirBooking", id, booking.Status, domain.BookingStatusCancelled, "")
		}
		if booking.Status == domain.BookingStatusConfirmed {
			if err := s.scheduling.ReleaseAirBooking(ctx, tx, booking); err != nil {
				return err
			}
		}
		booking.Status = domain.BookingStatusCancelled
		booking.CancelledAt = &at
		booking.CancelReason = reason
		return repo.SaveAir(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("air booking cancelled",
		zap.String("booking_no", booking.BookingNo),
		zap.String("reason", reason))
	return booking, nil
}

// GetOceanBooking returns an ocean booking with its container lines
func (s *BookingService) GetOceanBooking(ctx context.Context, id uuid.UUID) (*domain.OceanBooking, error) {
	b, err := s.bookingRepo.GetOcean(ctx, id)
	if err != nil {
		return nil, notFound(err, "ocean booking")
	}
	return b, nil
}

// GetAirBooking returns an air booking
func (s *BookingService) GetAirBooking(ctx context.Context, id uuid.UUID) (*domain.AirBooking, error) {
	b, err := s.bookingRepo.GetAir(ctx, id)
	if err != nil {
		return nil, notFound(err, "air booking")
	}
	return b, nil
}

// ListOceanByShipment returns a shipment's ocean bookings
func (s *BookingService) ListOceanByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.OceanBooking, error) {
	return s.bookingRepo.ListOceanByShipment(ctx, shipmentID)
}

// ListAirByShipment returns a shipment's air bookings
func (s *BookingService) ListAirByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.AirBooking, error) {
	return s.bookingRepo.ListAirByShipment(ctx, shipmentID)
}
