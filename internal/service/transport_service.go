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

// TransportService manages inland trucking orders and container demurrage
type TransportService struct {
	db            *gorm.DB
	transportRepo *repository.TransportRepository
	shipmentRepo  *repository.ShipmentRepository
	refRepo       *repository.ReferenceRepository
	numbers       *NumberSequenceService
	logger        *zap.Logger
	now           func() time.Time
}

// NewTransportService creates a new TransportService
func NewTransportService(
	db *gorm.DB,
	transportRepo *repository.TransportRepository,
	shipmentRepo *repository.ShipmentRepository,
	refRepo *repository.ReferenceRepository,
	numbers *NumberSequenceService,
	logger *zap.Logger,
) *TransportService {
	return &TransportService{
		db:            db,
		transportRepo: transportRepo,
		shipmentRepo:  shipmentRepo,
		refRepo:       refRepo,
		numbers:       numbers,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateTransportOrder books a trucker for a leg of the shipment
func (s *TransportService) CreateTransportOrder(ctx context.Context, req *domain.TransportOrderRequest) (*domain.TransportOrder, error) {
	if err := validateStruct("TransportOrder", req); err != nil {
		return nil, err
	}
	if req.Freight.IsNegative() {
		return nil, domain.NewValidationError("TransportOrder", "freight", "must not be negative")
	}

	order := &domain.TransportOrder{
		ShipmentID:      req.ShipmentID,
		TruckerCode:     normalizeCode(req.TruckerCode),
		ContainerNo:     normalizeCode(req.ContainerNo),
		PickupAddress:   req.PickupAddress,
		DeliveryAddress: req.DeliveryAddress,
		PickupAt:        req.PickupAt,
		Freight:         domain.NewMoney(req.Freight.Value, normalizeCode(req.Freight.Currency)),
		Status:          domain.TransportStatusRequested,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shipment, err := s.shipmentRepo.WithTx(tx).GetByID(ctx, order.ShipmentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.NewReferenceError("TransportOrder", "shipmentId", order.ShipmentID.String())
			}
			return fmt.Errorf("failed to load shipment: %w", err)
		}
		if shipment.Status == domain.ShipmentStatusCancelled {
			return domain.NewTransitionError("Shipment", shipment.ID, shipment.Status, shipment.Status,
				"cancelled shipments take no transport orders")
		}
		if err := checkRefs(ctx, s.refRepo.WithTx(tx), "TransportOrder",
			truckerRef("truckerCode", order.TruckerCode),
			currencyRef("freight.currency", order.Freight.Currency),
		); err != nil {
			return err
		}

		number, err := s.numbers.Next(ctx, tx, domain.PrefixTransportOrder)
		if err != nil {
			return err
		}
		order.OrderNo = number
		if err := s.transportRepo.WithTx(tx).Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create transport order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transport order created",
		zap.String("order_no", order.OrderNo),
		zap.String("trucker_code", order.TruckerCode))
	return order, nil
}

func (s *TransportService) move(ctx context.Context, id uuid.UUID, to domain.TransportStatus, apply func(o *domain.TransportOrder)) (*domain.TransportOrder, error) {
	var order *domain.TransportOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.transportRepo.WithTx(tx)
		locked, err := repo.Lock(ctx, id)
		if err != nil {
			return notFound(err, "transport order")
		}
		if !locked.Status.CanTransitionTo(to) {
			return domain.NewTransitionError("TransportOrder", id, locked.Status, to, "")
		}
		locked.Status = to
		apply(locked)
		if err := repo.Save(ctx, locked); err != nil {
			return fmt.Errorf("failed to update transport order: %w", err)
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transport order status changed",
		zap.String("order_no", order.OrderNo),
		zap.String("status", string(to)))
	return order, nil
}

// Dispatch marks a REQUESTED order as on the road
func (s *TransportService) Dispatch(ctx context.Context, id uuid.UUID) (*domain.TransportOrder, error) {
	return s.move(ctx, id, domain.TransportStatusDispatched, func(o *domain.TransportOrder) {
		at := s.now()
		o.DispatchedAt = &at
	})
}

// Deliver completes a DISPATCHED order
func (s *TransportService) Deliver(ctx context.Context, id uuid.UUID) (*domain.TransportOrder, error) {
	return s.move(ctx, id, domain.TransportStatusDelivered, func(o *domain.TransportOrder) {
		at := s.now()
		o.DeliveredAt = &at
	})
}

// Cancel cancels an order that has not been delivered
func (s *TransportService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*domain.TransportOrder, error) {
	if reason == "" {
		return nil, domain.NewValidationError("TransportOrder", "reason", "required")
	}
	return s.move(ctx, id, domain.TransportStatusCancelled, func(o *domain.TransportOrder) {
		o.CancelReason = reason
	})
}

// ListByShipment returns a shipment's transport orders
func (s *TransportService) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.TransportOrder, error) {
	return s.transportRepo.ListByShipment(ctx, shipmentID)
}

// CalculateDemurrage records the detention basis for one container. Days are counted
// inclusively from the start date, which defaults to the shipment's arrival.
func (s *TransportService) CalculateDemurrage(ctx context.Context, req *domain.DemurrageRequest) (*domain.Demurrage, error) {
	if err := validateStruct("Demurrage", req); err != nil {
		return nil, err
	}
	if req.DailyRate.IsNegative() {
		return nil, domain.NewValidationError("Demurrage", "dailyRate", "must not be negative")
	}
	rate := domain.NewMoney(req.DailyRate.Value, normalizeCode(req.DailyRate.Currency))

	var record *domain.Demurrage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shipment, err := s.shipmentRepo.WithTx(tx).GetByID(ctx, req.ShipmentID)
		if err != nil {
			return notFound(err, "shipment")
		}
		start := req.StartDate
		if start == nil {
			start = shipment.ATA
		}
		if start == nil {
			return domain.NewValidationError("Demurrage", "startDate", "required until the shipment has arrived")
		}
		if req.EndDate.Before(dateOnly(*start)) {
			return domain.NewValidationError("Demurrage", "endDate", "must not be before the start date")
		}
		refs := s.refRepo.WithTx(tx)
		if err := checkRefs(ctx, refs, "Demurrage", currencyRef("dailyRate.currency", rate.Currency)); err != nil {
			return err
		}

		total, chargeable := domain.DemurrageDays(*start, req.EndDate, req.FreeDays)
		record = &domain.Demurrage{
			ShipmentID:     shipment.ID,
			ContainerNo:    normalizeCode(req.ContainerNo),
			StartDate:      dateOnly(*start),
			EndDate:        dateOnly(req.EndDate),
			FreeDays:       req.FreeDays,
			TotalDays:      total,
			ChargeableDays: chargeable,
			DailyRate:      rate,
			Amount:         domain.DemurrageAmount(chargeable, rate, currencyPlaces(ctx, refs, rate.Currency)),
		}
		if err := s.transportRepo.WithTx(tx).CreateDemurrage(ctx, record); err != nil {
			return fmt.Errorf("failed to record demurrage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("demurrage calculated",
		zap.String("container_no", record.ContainerNo),
		zap.Int("chargeable_days", record.ChargeableDays),
		zap.String("amount", record.Amount.Value.String()))
	return record, nil
}

// ListDemurrage returns a shipment's demurrage records
func (s *TransportService) ListDemurrage(ctx context.Context, shipmentID uuid.UUID) ([]domain.Demurrage, error) {
	return s.transportRepo.ListDemurrage(ctx, shipmentID)
}
