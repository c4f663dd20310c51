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

// SchedulingService owns voyage and flight capacity: ocean space per container type,
// customer allocations, air weight and MAWB number stock. Every capacity mutation runs
// under a row lock on the counter it changes.
type SchedulingService struct {
	db           *gorm.DB
	scheduleRepo *repository.ScheduleRepository
	mawbRepo     *repository.MAWBStockRepository
	partyRepo    *repository.PartyRepository
	refRepo      *repository.ReferenceRepository
	logger       *zap.Logger
}

// NewSchedulingService creates a new SchedulingService
func NewSchedulingService(
	db *gorm.DB,
	scheduleRepo *repository.ScheduleRepository,
	mawbRepo *repository.MAWBStockRepository,
	partyRepo *repository.PartyRepository,
	refRepo *repository.ReferenceRepository,
	logger *zap.Logger,
) *SchedulingService {
	return &SchedulingService{
		db:           db,
		scheduleRepo: scheduleRepo,
		mawbRepo:     mawbRepo,
		partyRepo:    partyRepo,
		refRepo:      refRepo,
		logger:       logger,
	}
}

// CreateOceanSchedule registers a voyage leg with its initial space blocks
func (s *SchedulingService) CreateOceanSchedule(ctx context.Context, req *domain.CreateOceanScheduleRequest) (*domain.OceanSchedule, error) {
	if err := validateStruct("OceanSchedule", req); err != nil {
		return nil, err
	}
	if req.ETA.Before(req.ETD) {
		return nil, domain.NewValidationError("OceanSchedule", "eta", "must not be before etd")
	}
	schedule := &domain.OceanSchedule{
		CarrierCode: normalizeCode(req.CarrierCode),
		VesselName:  req.VesselName,
		VoyageNo:    req.VoyageNo,
		POLCode:     normalizeCode(req.POLCode),
		PODCode:     normalizeCode(req.PODCode),
		ETD:         req.ETD,
		ETA:         req.ETA,
		CargoCutoff: req.CargoCutoff,
		DocCutoff:   req.DocCutoff,
		Status:      domain.ScheduleStatusScheduled,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkRefs(ctx, s.refRepo.WithTx(tx), "OceanSchedule",
			carrierRef("carrierCode", schedule.CarrierCode),
			portRef("polCode", schedule.POLCode),
			portRef("podCode", schedule.PODCode),
		); err != nil {
			return err
		}
		repo := s.scheduleRepo.WithTx(tx)
		if err := repo.CreateOceanSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("failed to create ocean schedule: %w", err)
		}
		seen := make(map[string]bool)
		for _, sp := range req.Spaces {
			containerType := normalizeCode(sp.ContainerType)
			if seen[containerType] {
				return domain.NewValidationError("OceanSchedule", "spaces.containerType", "duplicate container type "+containerType)
			}
			seen[containerType] = true
			space, err := newOceanSpace(schedule.ID, containerType, sp.TotalQty)
			if err != nil {
				return err
			}
			if err := repo.CreateSpace(ctx, space); err != nil {
				return fmt.Errorf("failed to create ocean space: %w", err)
			}
			schedule.Spaces = append(schedule.Spaces, *space)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ocean schedule created",
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("vessel", schedule.VesselName),
		zap.String("voyage", schedule.VoyageNo))
	return schedule, nil
}

func newOceanSpace(scheduleID uuid.UUID, containerType string, total int) (*domain.OceanSpace, error) {
	if _, ok := domain.ContainerGroup(containerType); !ok {
		return nil, domain.NewValidationError("OceanSpace", "containerType", fmt.Sprintf("unknown container type %q", containerType))
	}
	if total <= 0 {
		return nil, domain.NewValidationError("OceanSpace", "totalQty", "must be positive")
	}
	return &domain.OceanSpace{
		ScheduleID:    scheduleID,
		ContainerType: containerType,
		TotalQty:      total,
		AvailableQty:  total,
	}, nil
}

// AddOceanSpace adds a container-type space block to a scheduled voyage
func (s *SchedulingService) AddOceanSpace(ctx context.Context, scheduleID uuid.UUID, req *domain.OceanSpaceRequest) (*domain.OceanSpace, error) {
	if err := validateStruct("OceanSpace", req); err != nil {
		return nil, err
	}
	space, err := newOceanSpace(scheduleID, normalizeCode(req.ContainerType), req.TotalQty)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.scheduleRepo.WithTx(tx)
		schedule, err := repo.LockOceanSchedule(ctx, scheduleID)
		if err != nil {
			return notFound(err, "ocean schedule")
		}
		if schedule.Status != domain.ScheduleStatusScheduled {
			return domain.NewTransitionError("OceanSchedule", schedule.ID, schedule.Status, schedule.Status, "space can only be added to a scheduled voyage")
		}
		if _, err := repo.LockSpace(ctx, scheduleID, space.ContainerType); err == nil {
			return fmt.Errorf("%w: space for %s already exists", ErrConflict, space.ContainerType)
		} else if !repository.IsNotFound(err) {
			return err
		}
		return repo.CreateSpace(ctx, space)
	})
	if err != nil {
		return nil, err
	}
	return space, nil
}

// AllocateSpace sets a customer's share of a space block. The sum of allocations never
// exceeds the block total, and an allocation never shrinks below what the customer already used.
func (s *SchedulingService) AllocateSpace(ctx context.Context, req *domain.AllocateSpaceRequest) (*domain.SpaceAllocation, error) {
	if err := validateStruct("SpaceAllocation", req); err != nil {
		return nil, err
	}
	allocation := &domain.SpaceAllocation{
		SpaceID:      req.SpaceID,
		CustomerCode: normalizeCode(req.CustomerCode),
		AllocatedQty: req.AllocatedQty,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkRefs(ctx, s.refRepo.WithTx(tx), "SpaceAllocation", customerRef("customerCode", allocation.CustomerCode)); err != nil {
			return err
		}
		repo := s.scheduleRepo.WithTx(tx)
		space, err := repo.LockSpaceByID(ctx, req.SpaceID)
		if err != nil {
			return notFound(err, "ocean space")
		}
		existing, err := repo.ListAllocations(ctx, space.ID)
		if err != nil {
			return err
		}
		others := 0
		for _, a := range existing {
			if a.CustomerCode == allocation.CustomerCode {
				if req.AllocatedQty < a.UsedQty {
					return &domain.CapacityExhaustedError{
						Resource:   "space_allocation",
						ResourceID: a.ID,
						Requested:  decimal.NewFromInt(int64(req.AllocatedQty)),
						Available:  decimal.NewFromInt(int64(a.UsedQty)),
					}
				}
				continue
			}
			others += a.AllocatedQty
		}
		if others+req.AllocatedQty > space.TotalQty {
			return &domain.CapacityExhaustedError{
				Resource:   "ocean_space:" + space.ContainerType,
				ResourceID: space.ScheduleID,
				Requested:  decimal.NewFromInt(int64(req.AllocatedQty)),
				Available:  decimal.NewFromInt(int64(space.TotalQty - others)),
			}
		}
		if _, err := repo.UpsertAllocation(ctx, allocation); err != nil {
			return fmt.Errorf("failed to store allocation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("space allocated",
		zap.String("space_id", allocation.SpaceID.String()),
		zap.String("customer_code", allocation.CustomerCode),
		zap.Int("allocated_qty", allocation.AllocatedQty))
	return allocation, nil
}

// CreateAirSchedule registers a flight leg with its full weight available
func (s *SchedulingService) CreateAirSchedule(ctx context.Context, req *domain.CreateAirScheduleRequest) (*domain.AirSchedule, error) {
	if err := validateStruct("AirSchedule", req); err != nil {
		return nil, err
	}
	if !req.MaxWeightKg.IsPositive() {
		return nil, domain.NewValidationError("AirSchedule", "maxWeightKg", "must be positive")
	}
	if req.ETA.Before(req.ETD) {
		return nil, domain.NewValidationError("AirSchedule", "eta", "must not be before etd")
	}
	schedule := &domain.AirSchedule{
		CarrierCode:       normalizeCode(req.CarrierCode),
		FlightNo:          normalizeCode(req.FlightNo),
		FlightDate:        dateOnly(req.FlightDate),
		OriginCode:        normalizeCode(req.OriginCode),
		DestCode:          normalizeCode(req.DestCode),
		ETD:               req.ETD,
		ETA:               req.ETA,
		MaxWeightKg:       req.MaxWeightKg,
		BookedWeightKg:    decimal.Zero,
		AvailableWeightKg: req.MaxWeightKg,
		Status:            domain.ScheduleStatusScheduled,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkRefs(ctx, s.refRepo.WithTx(tx), "AirSchedule",
			carrierRef("carrierCode", schedule.CarrierCode),
			portRef("originCode", schedule.OriginCode),
			portRef("destCode", schedule.DestCode),
		); err != nil {
			return err
		}
		return s.scheduleRepo.WithTx(tx).CreateAirSchedule(ctx, schedule)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("air schedule created",
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("flight_no", schedule.FlightNo))
	return schedule, nil
}

// RegisterMAWBStock records a block of airline waybill numbers received from a carrier.
// The airline prefix defaults to the carrier's IATA prefix.
func (s *SchedulingService) RegisterMAWBStock(ctx context.Context, req *domain.RegisterMAWBStockRequest) (*domain.MAWBStock, error) {
	if err := validateStruct("MAWBStock", req); err != nil {
		return nil, err
	}
	if req.StartSerial+req.TotalQty-1 > 9999999 {
		return nil, domain.NewValidationError("MAWBStock", "totalQty", "serial range exceeds seven digits")
	}
	carrierCode := normalizeCode(req.CarrierCode)
	carrier, err := s.partyRepo.GetCarrierByCode(ctx, carrierCode)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NewReferenceError("MAWBStock", "carrierCode", carrierCode)
		}
		return nil, err
	}
	prefix := req.AirlinePrefix
	if prefix == "" {
		prefix = carrier.IATAPrefix
	}
	if prefix == "" {
		return nil, domain.NewValidationError("MAWBStock", "airlinePrefix", "required when the carrier has no IATA prefix")
	}
	receivedAt := time.Now().UTC()
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}

	stock := &domain.MAWBStock{
		CarrierCode:   carrierCode,
		AirlinePrefix: prefix,
		StartSerial:   req.StartSerial,
		TotalQty:      req.TotalQty,
		ReceivedAt:    receivedAt,
	}
	numbers := make([]string, req.TotalQty)
	for i := range numbers {
		numbers[i] = domain.MAWBNumber(prefix, req.StartSerial+i)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.mawbRepo.WithTx(tx)
		dupes, err := repo.ExistingNumbers(ctx, numbers)
		if err != nil {
			return err
		}
		if len(dupes) > 0 {
			return fmt.Errorf("%w: MAWB number %s already registered", ErrConflict, dupes[0])
		}
		if err := repo.CreateStock(ctx, stock); err != nil {
			return fmt.Errorf("failed to create MAWB stock: %w", err)
		}
		serials := make([]domain.MAWBSerial, len(numbers))
		for i, no := range numbers {
			serials[i] = domain.MAWBSerial{
				StockID: stock.ID,
				Seq:     i + 1,
				MAWBNo:  no,
				Status:  domain.MAWBSerialAvailable,
			}
		}
		return repo.CreateSerials(ctx, serials)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("MAWB stock registered",
		zap.String("stock_id", stock.ID.String()),
		zap.String("carrier_code", carrierCode),
		zap.String("first", numbers[0]),
		zap.Int("qty", req.TotalQty))
	return stock, nil
}

// AllocateMAWB takes the oldest available serial of the carrier inside the caller's
// transaction. No serial left is a CapacityExhaustedError; a serial can never be used twice.
func (s *SchedulingService) AllocateMAWB(ctx context.Context, tx *gorm.DB, carrierCode string, shipmentID uuid.UUID) (*domain.MAWBSerial, error) {
	repo := s.mawbRepo.WithTx(tx)
	exhausted := &domain.CapacityExhaustedError{
		Resource:   "mawb_stock:" + carrierCode,
		ResourceID: uuid.Nil,
		Requested:  decimal.NewFromInt(1),
		Available:  decimal.Zero,
	}
	serial, err := repo.LockNextAvailable(ctx, carrierCode)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, exhausted
		}
		return nil, fmt.Errorf("failed to lock MAWB serial: %w", err)
	}
	ok, err := repo.MarkUsed(ctx, serial, shipmentID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark MAWB serial used: %w", err)
	}
	if !ok {
		return nil, exhausted
	}
	s.logger.Info("MAWB number allocated",
		zap.String("mawb_no", serial.MAWBNo),
		zap.String("shipment_id", shipmentID.String()))
	return serial, nil
}

// StockSummary counts a stock block's serials by status
func (s *SchedulingService) StockSummary(ctx context.Context, stockID uuid.UUID) (*domain.MAWBStockSummary, error) {
	summary, err := s.mawbRepo.Summary(ctx, stockID)
	if err != nil {
		return nil, notFound(err, "MAWB stock")
	}
	return summary, nil
}

// ListStocks returns the stock blocks of a carrier
func (s *SchedulingService) ListStocks(ctx context.Context, carrierCode string) ([]domain.MAWBStock, error) {
	return s.mawbRepo.ListStocks(ctx, normalizeCode(carrierCode))
}

// ReserveOceanBooking draws every container line of b from the schedule's space blocks.
// A customer holding an allocation consumes it; a customer without one may only take
// space that no allocation has reserved.
func (s *SchedulingService) ReserveOceanBooking(ctx context.Context, tx *gorm.DB, b *domain.OceanBooking) error {
	repo := s.scheduleRepo.WithTx(tx)
	schedule, err := repo.LockOceanSchedule(ctx, b.ScheduleID)
	if err != nil {
		return notFound(err, "ocean schedule")
	}
	if schedule.Status != domain.ScheduleStatusScheduled {
		return domain.NewTransitionError("OceanBooking", b.ID, b.Status, domain.BookingStatusConfirmed,
			"schedule is "+string(schedule.Status))
	}

	for _, line := range b.Containers {
		space, err := repo.LockSpace(ctx, b.ScheduleID, line.ContainerType)
		if err != nil {
			if repository.IsNotFound(err) {
				return &domain.CapacityExhaustedError{
					Resource:   "ocean_space:" + line.ContainerType,
					ResourceID: b.ScheduleID,
					Requested:  decimal.NewFromInt(int64(line.Qty)),
					Available:  decimal.Zero,
				}
			}
			return err
		}

		allocation, err := repo.LockAllocation(ctx, space.ID, b.CustomerCode)
		switch {
		case err == nil:
			if line.Qty > allocation.RemainingQty() {
				return &domain.CapacityExhaustedError{
					Resource:   "space_allocation",
					ResourceID: allocation.ID,
					Requested:  decimal.NewFromInt(int64(line.Qty)),
					Available:  decimal.NewFromInt(int64(allocation.RemainingQty())),
				}
			}
			allocation.UsedQty += line.Qty
			if err := repo.SaveAllocationUsage(ctx, allocation); err != nil {
				return err
			}
		case repository.IsNotFound(err):
			free, err := s.unallocatedQty(ctx, repo, space)
			if err != nil {
				return err
			}
			if line.Qty > free {
				return &domain.CapacityExhaustedError{
					Resource:   "ocean_space:" + space.ContainerType,
					ResourceID: space.ScheduleID,
					Requested:  decimal.NewFromInt(int64(line.Qty)),
					Available:  decimal.NewFromInt(int64(free)),
				}
			}
		default:
			return err
		}

		if err := space.Reserve(line.Qty); err != nil {
			return err
		}
		if err := repo.SaveSpaceCounts(ctx, space); err != nil {
			return err
		}
	}
	return nil
}

// unallocatedQty is the available space not held back by any customer's allocation
func (s *SchedulingService) unallocatedQty(ctx context.Context, repo *repository.ScheduleRepository, space *domain.OceanSpace) (int, error) {
	allocations, err := repo.ListAllocations(ctx, space.ID)
	if err != nil {
		return 0, err
	}
	held := 0
	for _, a := range allocations {
		held += a.RemainingQty()
	}
	free := space.AvailableQty - held
	if free < 0 {
		free = 0
	}
	return free, nil
}

// ReleaseOceanBooking returns the container lines of a confirmed booking to the schedule
func (s *SchedulingService) ReleaseOceanBooking(ctx context.Context, tx *gorm.DB, b *domain.OceanBooking) error {
	repo := s.scheduleRepo.WithTx(tx)
	for _, line := range b.Containers {
		space, err := repo.LockSpace(ctx, b.ScheduleID, line.ContainerType)
		if err != nil {
			return notFound(err, "ocean space")
		}
		space.Release(line.Qty)
		if err := repo.SaveSpaceCounts(ctx, space); err != nil {
			return err
		}

		allocation, err := repo.LockAllocation(ctx, space.ID, b.CustomerCode)
		if err != nil {
			if repository.IsNotFound(err) {
				continue
			}
			return err
		}
		allocation.UsedQty -= line.Qty
		if allocation.UsedQty < 0 {
			allocation.UsedQty = 0
		}
		if err := repo.SaveAllocationUsage(ctx, allocation); err != nil {
			return err
		}
	}
	return nil
}

// ReserveAirBooking commits the booking's chargeable weight on its flight
func (s *SchedulingService) ReserveAirBooking(ctx context.Context, tx *gorm.DB, b *domain.AirBooking) error {
	repo := s.scheduleRepo.WithTx(tx)
	schedule, err := repo.LockAirSchedule(ctx, b.ScheduleID)
	if err != nil {
		return notFound(err, "air schedule")
	}
	if schedule.Status != domain.ScheduleStatusScheduled {
		return domain.NewTransitionError("AirBooking", b.ID, b.Status, domain.BookingStatusConfirmed,
			"flight is "+string(schedule.Status))
	}
	if err := schedule.Reserve(b.ChargeableWeightKg); err != nil {
		return err
	}
	return repo.SaveAirWeights(ctx, schedule)
}

// ReleaseAirBooking returns the booking's chargeable weight to its flight
func (s *SchedulingService) ReleaseAirBooking(ctx context.Context, tx *gorm.DB, b *domain.AirBooking) error {
	repo := s.scheduleRepo.WithTx(tx)
	schedule, err := repo.LockAirSchedule(ctx, b.ScheduleID)
	if err != nil {
		return notFound(err, "air schedule")
	}
	schedule.Release(b.ChargeableWeightKg)
	return repo.SaveAirWeights(ctx, schedule)
}

// UpdateOceanScheduleStatus moves a voyage through SCHEDULED, DEPARTED and ARRIVED, or cancels it
func (s *SchedulingService) UpdateOceanScheduleStatus(ctx context.Context, id uuid.UUID, to domain.ScheduleStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.scheduleRepo.WithTx(tx)
		schedule, err := repo.LockOceanSchedule(ctx, id)
		if err != nil {
			return notFound(err, "ocean schedule")
		}
		if !schedule.Status.CanTransitionTo(to) {
			return domain.NewTransitionError("OceanSchedule", id, schedule.Status, to, "")
		}
		return repo.UpdateOceanScheduleStatus(ctx, id, to)
	})
}

// UpdateAirScheduleStatus moves a flight through its lifecycle
func (s *SchedulingService) UpdateAirScheduleStatus(ctx context.Context, id uuid.UUID, to domain.ScheduleStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.scheduleRepo.WithTx(tx)
		schedule, err := repo.LockAirSchedule(ctx, id)
		if err != nil {
			return notFound(err, "air schedule")
		}
		if !schedule.Status.CanTransitionTo(to) {
			return domain.NewTransitionError("AirSchedule", id, schedule.Status, to, "")
		}
		return repo.UpdateAirScheduleStatus(ctx, id, to)
	})
}

// GetOceanSchedule returns a voyage with its space blocks
func (s *SchedulingService) GetOceanSchedule(ctx context.Context, id uuid.UUID) (*domain.OceanSchedule, error) {
	schedule, err := s.scheduleRepo.GetOceanSchedule(ctx, id)
	if err != nil {
		return nil, notFound(err, "ocean schedule")
	}
	return schedule, nil
}

// GetAirSchedule returns a flight leg
func (s *SchedulingService) GetAirSchedule(ctx context.Context, id uuid.UUID) (*domain.AirSchedule, error) {
	schedule, err := s.scheduleRepo.GetAirSchedule(ctx, id)
	if err != nil {
		return nil, notFound(err, "air schedule")
	}
	return schedule, nil
}

// SearchOceanSchedules lists voyages matching the filters
func (s *SchedulingService) SearchOceanSchedules(ctx context.Context, f repository.ScheduleFilters) ([]domain.OceanSchedule, error) {
	f.CarrierCode = normalizeCode(f.CarrierCode)
	f.POLCode = normalizeCode(f.POLCode)
	f.PODCode = normalizeCode(f.PODCode)
	return s.scheduleRepo.SearchOceanSchedules(ctx, f)
}

// SearchAirSchedules lists flights between two airports in a date window
func (s *SchedulingService) SearchAirSchedules(ctx context.Context, origin, dest string, from, to time.Time) ([]domain.AirSchedule, error) {
	return s.scheduleRepo.SearchAirSchedules(ctx, normalizeCode(origin), normalizeCode(dest), dateOnly(from), dateOnly(to))
}

// ListAllocations returns the customer allocations of a space block
func (s *SchedulingService) ListAllocations(ctx context.Context, spaceID uuid.UUID) ([]domain.SpaceAllocation, error) {
	return s.scheduleRepo.ListAllocations(ctx, spaceID)
}
