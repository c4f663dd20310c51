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

// OrderConfirmation is the outcome of a successful order confirmation
type OrderConfirmation struct {
	Order       *domain.CustomerOrder `json:"order"`
	Shipment    *domain.Shipment      `json:"shipment"`
	CreditCheck *domain.CreditCheck   `json:"creditCheck"`
}

// OrderService takes customer orders and turns confirmed ones into shipments
type OrderService struct {
	db         *gorm.DB
	orderRepo  *repository.OrderRepository
	refRepo    *repository.ReferenceRepository
	reportRepo *repository.ReportRepository
	shipments  *ShipmentService
	billing    *BillingService
	references *ReferenceService
	warnings   *WarningService
	numbers    *NumberSequenceService
	logger     *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	db *gorm.DB,
	orderRepo *repository.OrderRepository,
	refRepo *repository.ReferenceRepository,
	reportRepo *repository.ReportRepository,
	shipments *ShipmentService,
	billing *BillingService,
	references *ReferenceService,
	warnings *WarningService,
	numbers *NumberSequenceService,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		db:         db,
		orderRepo:  orderRepo,
		refRepo:    refRepo,
		reportRepo: reportRepo,
		shipments:  shipments,
		billing:    billing,
		references: references,
		warnings:   warnings,
		numbers:    numbers,
		logger:     logger,
	}
}

// CreateOrder records a RECEIVED order. A header with no cargo figures is filled from
// its lines; a header that disagrees with its lines is kept and raises warnings.
func (s *OrderService) CreateOrder(ctx context.Context, req *domain.CreateOrderRequest) (*domain.CustomerOrder, []domain.ReconciliationWarning, error) {
	if err := validateStruct("CustomerOrder", req); err != nil {
		return nil, nil, err
	}
	if req.GrossWeightKg.IsNegative() || req.VolumeCBM.IsNegative() {
		return nil, nil, domain.NewValidationError("CustomerOrder", "grossWeightKg", "cargo figures must not be negative")
	}
	if req.EstimatedFreight.IsNegative() {
		return nil, nil, domain.NewValidationError("CustomerOrder", "estimatedFreight", "must not be negative")
	}

	order := &domain.CustomerOrder{
		CustomerCode:     normalizeCode(req.CustomerCode),
		TransportMode:    req.TransportMode,
		TradeType:        req.TradeType,
		Incoterm:         normalizeCode(req.Incoterm),
		ShipperCode:      normalizeCode(req.ShipperCode),
		ConsigneeCode:    normalizeCode(req.ConsigneeCode),
		OriginPortCode:   normalizeCode(req.OriginPortCode),
		DestPortCode:     normalizeCode(req.DestPortCode),
		RequestedETD:     req.RequestedETD,
		PackageQty:       req.PackageQty,
		GrossWeightKg:    req.GrossWeightKg,
		VolumeCBM:        req.VolumeCBM,
		DeclaredValue:    domain.NewMoney(req.DeclaredValue.Value, normalizeCode(req.DeclaredValue.Currency)),
		EstimatedFreight: domain.NewMoney(req.EstimatedFreight.Value, normalizeCode(req.EstimatedFreight.Currency)),
	}
	for i, l := range req.Lines {
		if l.GrossWeightKg.IsNegative() || l.VolumeCBM.IsNegative() || l.Value.IsNegative() {
			return nil, nil, domain.NewValidationError("OrderCargoLine", fmt.Sprintf("lines[%d]", i), "figures must not be negative")
		}
		order.Lines = append(order.Lines, domain.OrderCargoLine{
			LineNo:        i + 1,
			Description:   l.Description,
			HSCode:        l.HSCode,
			PackageQty:    l.PackageQty,
			PackageType:   normalizeCode(l.PackageType),
			GrossWeightKg: l.GrossWeightKg,
			VolumeCBM:     l.VolumeCBM,
			Value:         l.Value,
		})
	}

	header := domain.CargoTotals{PackageQty: order.PackageQty, GrossWeightKg: order.GrossWeightKg, VolumeCBM: order.VolumeCBM}
	lineTotals := domain.OrderLineTotals(order.Lines)
	filled := false
	if len(order.Lines) > 0 && header.PackageQty == 0 && header.GrossWeightKg.IsZero() && header.VolumeCBM.IsZero() {
		order.PackageQty = lineTotals.PackageQty
		order.GrossWeightKg = lineTotals.GrossWeightKg
		order.VolumeCBM = lineTotals.VolumeCBM
		filled = true
	}

	var warnings []domain.ReconciliationWarning
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkOrderRefs(ctx, tx, order); err != nil {
			return err
		}
		local, err := s.estimateLocalFreight(ctx, tx, order.EstimatedFreight)
		if err != nil {
			return err
		}
		order.EstimatedFreightLocal = local

		number, err := s.numbers.Next(ctx, tx, domain.PrefixOrder)
		if err != nil {
			return err
		}
		order.OrderNo = number
		order.Status = domain.OrderStatusReceived
		if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if len(order.Lines) > 0 && !filled {
			warnings = cargoTotalsWarnings("CustomerOrder", order.ID, nil, domain.RuleOrderLineTotals, header, lineTotals)
		}
		return s.warnings.Record(ctx, tx, warnings)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("order received",
		zap.String("order_no", order.OrderNo),
		zap.String("customer_code", order.CustomerCode),
		zap.Int("lines", len(order.Lines)),
		zap.Int("warnings", len(warnings)))
	return order, warnings, nil
}

func (s *OrderService) checkOrderRefs(ctx context.Context, tx *gorm.DB, order *domain.CustomerOrder) error {
	refs := s.refRepo.WithTx(tx)
	if err := checkRefs(ctx, refs, "CustomerOrder",
		customerRef("customerCode", order.CustomerCode),
		customerRef("shipperCode", order.ShipperCode),
		customerRef("consigneeCode", order.ConsigneeCode),
		portRef("originPortCode", order.OriginPortCode),
		portRef("destPortCode", order.DestPortCode),
		currencyRef("declaredValue.currency", order.DeclaredValue.Currency),
		currencyRef("estimatedFreight.currency", order.EstimatedFreight.Currency),
	); err != nil {
		return err
	}
	if err := checkCommonCode(ctx, refs, "CustomerOrder", "incoterm", domain.CodeGroupIncoterms, order.Incoterm); err != nil {
		return err
	}
	for i, l := range order.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if err := checkRefs(ctx, refs, "OrderCargoLine", hsCodeRef(field+".hsCode", l.HSCode)); err != nil {
			return err
		}
		if err := checkCommonCode(ctx, refs, "OrderCargoLine", field+".packageType", domain.CodeGroupPackageType, l.PackageType); err != nil {
			return err
		}
	}
	return nil
}

// estimateLocalFreight converts the quoted freight to the local currency at today's rate
func (s *OrderService) estimateLocalFreight(ctx context.Context, tx *gorm.DB, freight domain.Money) (decimal.Decimal, error) {
	if freight.IsZero() {
		return decimal.Zero, nil
	}
	if freight.Currency == "" {
		return decimal.Zero, domain.NewValidationError("CustomerOrder", "estimatedFreight.currency", "required")
	}
	local := s.billing.LocalCurrency()
	rate, err := s.references.lookupRateTx(ctx, tx, freight.Currency, local, time.Now().UTC())
	if err != nil {
		return decimal.Zero, err
	}
	places := currencyPlaces(ctx, s.refRepo.WithTx(tx), local)
	return freight.Convert(rate, local, places).Value, nil
}

// ConfirmOrder runs the credit check and, if it passes or is overridden, creates the
// order's DRAFT shipment. A rejected check is still recorded, and the order stays RECEIVED.
func (s *OrderService) ConfirmOrder(ctx context.Context, id uuid.UUID, req *domain.ConfirmOrderRequest) (*OrderConfirmation, error) {
	if req == nil {
		req = &domain.ConfirmOrderRequest{}
	}
	if err := validateStruct("ConfirmOrder", req); err != nil {
		return nil, err
	}

	result := &OrderConfirmation{}
	var rejected *domain.CreditCheck
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.Lock(ctx, id)
		if err != nil {
			return notFound(err, "order")
		}
		if !order.Status.CanTransitionTo(domain.OrderStatusConfirmed) {
			return domain.NewTransitionError("CustomerOrder", id, order.Status, domain.OrderStatusConfirmed, "")
		}

		check, err := s.billing.evaluateCredit(ctx, tx, order.CustomerCode, &order.ID, order.EstimatedFreightLocal)
		if err != nil {
			return err
		}
		if check.Result == domain.CreditRejected {
			if req.OverrideReason == "" {
				rejected = check
				return fmt.Errorf("%w: %w", ErrCreditRejected, &domain.CapacityExhaustedError{
					Resource:   "credit:" + order.CustomerCode,
					ResourceID: order.ID,
					Requested:  check.RequestedAmount,
					Available:  check.AvailableCredit,
				})
			}
			check.Result = domain.CreditOverridden
			check.OverrideBy = domain.ActorFromContext(ctx)
			check.OverrideReason = req.OverrideReason
			order.CreditOverrideBy = check.OverrideBy
			order.CreditOverrideReason = check.OverrideReason
		}
		if err := s.reportRepo.WithTx(tx).CreateCreditCheck(ctx, check); err != nil {
			return fmt.Errorf("failed to record credit check: %w", err)
		}

		shipment := shipmentFromOrder(order)
		if err := s.shipments.createInTx(ctx, tx, shipment); err != nil {
			return err
		}
		order.ShipmentID = &shipment.ID
		order.Status = domain.OrderStatusConfirmed
		if err := repo.Update(ctx, order); err != nil {
			return fmt.Errorf("failed to confirm order: %w", err)
		}

		result.Order = order
		result.Shipment = shipment
		result.CreditCheck = check
		return nil
	})
	if err != nil {
		if rejected != nil {
			if recErr := s.reportRepo.CreateCreditCheck(ctx, rejected); recErr != nil {
				s.logger.Error("failed to record rejected credit check",
					zap.String("order_id", id.String()),
					zap.Error(recErr))
			}
			s.logger.Warn("order blocked by credit check",
				zap.String("order_id", id.String()),
				zap.String("customer_code", rejected.CustomerCode),
				zap.String("available", rejected.AvailableCredit.String()),
				zap.String("requested", rejected.RequestedAmount.String()))
		}
		return nil, err
	}

	s.logger.Info("order confirmed",
		zap.String("order_no", result.Order.OrderNo),
		zap.String("shipment_no", result.Shipment.ShipmentNo),
		zap.String("credit_result", string(result.CreditCheck.Result)))
	s.shipments.publishStatus(ctx, result.Shipment, "", domain.ShipmentStatusDraft.EventCode(), result.Shipment.CreatedAt)
	return result, nil
}

func shipmentFromOrder(order *domain.CustomerOrder) *domain.Shipment {
	orderID := order.ID
	return &domain.Shipment{
		TransportMode:  order.TransportMode,
		TradeType:      order.TradeType,
		Incoterm:       order.Incoterm,
		CustomerCode:   order.CustomerCode,
		ShipperCode:    order.ShipperCode,
		ConsigneeCode:  order.ConsigneeCode,
		OriginPortCode: order.OriginPortCode,
		DestPortCode:   order.DestPortCode,
		ETD:            order.RequestedETD,
		PackageQty:     order.PackageQty,
		GrossWeightKg:  order.GrossWeightKg,
		VolumeCBM:      order.VolumeCBM,
		DeclaredValue:  order.DeclaredValue,
		OrderID:        &orderID,
	}
}

// CancelOrder cancels an order that has not been confirmed
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID, reason string) (*domain.CustomerOrder, error) {
	if reason == "" {
		return nil, domain.NewValidationError("CustomerOrder", "cancelReason", "required")
	}
	var order *domain.CustomerOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		var err error
		order, err = repo.Lock(ctx, id)
		if err != nil {
			return notFound(err, "order")
		}
		if !order.Status.CanTransitionTo(domain.OrderStatusCancelled) {
			return domain.NewTransitionError("CustomerOrder", id, order.Status, domain.OrderStatusCancelled, "")
		}
		order.Status = domain.OrderStatusCancelled
		order.CancelReason = reason
		return repo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled", zap.String("order_no", order.OrderNo), zap.String("reason", reason))
	return order, nil
}

// GetOrder returns an order with its cargo lines
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.CustomerOrder, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "order")
	}
	return order, nil
}

// ListOrders returns a page of orders
func (s *OrderService) ListOrders(ctx context.Context, customerCode string, status *domain.OrderStatus, page, pageSize int) (*domain.PaginatedResponse, error) {
	orders, total, err := s.orderRepo.List(ctx, normalizeCode(customerCode), status, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	page, pageSize, _ = repository.Page(page, pageSize)
	return domain.NewPaginatedResponse(orders, total, page, pageSize), nil
}
