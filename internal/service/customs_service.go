package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/messaging"
	"github.com/straye-as/fms-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ediRefDeclaration   = "CustomsDeclaration"
	ediMessageSubmit    = "CUSDEC"
	ediMessageResponse  = "CUSRES"
	outcomeCleared      = "CLEARED"
	outcomeInspection   = "INSPECTION"
	outcomeRejected     = "REJECTED"
	defaultInspectionCd = "DOCUMENT"
)

// DeclarationSubmitted is the payload handed to the customs gateway
type DeclarationSubmitted struct {
	DeclarationID uuid.UUID                `json:"declarationId"`
	DeclarationNo string                   `json:"declarationNo"`
	ShipmentID    uuid.UUID                `json:"shipmentId"`
	TradeType     domain.TradeType         `json:"tradeType"`
	BrokerCode    string                   `json:"brokerCode,omitempty"`
	Currency      string                   `json:"currency"`
	TotalTax      decimal.Decimal          `json:"totalTax"`
	Items         []domain.DeclarationItem `json:"items"`
}

// CustomsService manages customs declarations and their clearance lifecycle
type CustomsService struct {
	db           *gorm.DB
	customsRepo  *repository.CustomsRepository
	shipmentRepo *repository.ShipmentRepository
	refRepo      *repository.ReferenceRepository
	billing      *BillingService
	numbers      *NumberSequenceService
	publisher    messaging.Publisher
	logger       *zap.Logger
	now          func() time.Time
}

// NewCustomsService creates a new CustomsService
func NewCustomsService(
	db *gorm.DB,
	customsRepo *repository.CustomsRepository,
	shipmentRepo *repository.ShipmentRepository,
	refRepo *repository.ReferenceRepository,
	billing *BillingService,
	numbers *NumberSequenceService,
	publisher messaging.Publisher,
	logger *zap.Logger,
) *CustomsService {
	return &CustomsService{
		db:           db,
		customsRepo:  customsRepo,
		shipmentRepo: shipmentRepo,
		refRepo:      refRepo,
		billing:      billing,
		numbers:      numbers,
		publisher:    publisher,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// declarable reports whether the shipment is far enough along for a declaration.
// Imports are declared after arrival, exports once booked.
func declarable(shipment *domain.Shipment, tradeType domain.TradeType) bool {
	if shipment.Status == domain.ShipmentStatusCancelled {
		return false
	}
	if tradeType == domain.TradeTypeImport {
		return shipment.Status.Rank() >= domain.ShipmentStatusArrived.Rank()
	}
	return shipment.Status.Rank() >= domain.ShipmentStatusBooked.Rank()
}

// CreateDeclaration opens a DRAFT declaration for a shipment
func (s *CustomsService) CreateDeclaration(ctx context.Context, req *domain.CreateDeclarationRequest) (*domain.CustomsDeclaration, error) {
	if err := validateStruct("CustomsDeclaration", req); err != nil {
		return nil, err
	}
	currency := normalizeCode(req.Currency)
	if currency == "" {
		currency = s.billing.LocalCurrency()
	}

	decl := &domain.CustomsDeclaration{
		ShipmentID:     req.ShipmentID,
		TradeType:      req.TradeType,
		BrokerCode:     normalizeCode(req.BrokerCode),
		Currency:       currency,
		DeclaredAmount: decimal.Zero,
		DutyAmount:     decimal.Zero,
		VATAmount:      decimal.Zero,
		TotalTax:       decimal.Zero,
		Status:         domain.CustomsStatusDraft,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shipment, err := s.shipmentRepo.WithTx(tx).Lock(ctx, decl.ShipmentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.NewReferenceError("CustomsDeclaration", "shipmentId", decl.ShipmentID.String())
			}
			return fmt.Errorf("failed to load shipment: %w", err)
		}
		if !declarable(shipment, decl.TradeType) {
			return domain.NewTransitionError("Shipment", shipment.ID, shipment.Status, shipment.Status,
				"shipment is not ready for an "+string(decl.TradeType)+" declaration")
		}
		if err := checkRefs(ctx, s.refRepo.WithTx(tx), "CustomsDeclaration",
			brokerRef("brokerCode", decl.BrokerCode),
			currencyRef("currency", decl.Currency),
		); err != nil {
			return err
		}

		number, err := s.numbers.Next(ctx, tx, domain.PrefixDeclaration)
		if err != nil {
			return err
		}
		decl.DeclarationNo = number
		if err := s.customsRepo.WithTx(tx).Create(ctx, decl); err != nil {
			return fmt.Errorf("failed to create declaration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("customs declaration created",
		zap.String("declaration_no", decl.DeclarationNo),
		zap.String("trade_type", string(decl.TradeType)))
	return decl, nil
}

// AddItem appends a tariff line to a DRAFT declaration. Rates left out come from the
// HS code; the header totals are recomputed from all items.
func (s *CustomsService) AddItem(ctx context.Context, declarationID uuid.UUID, req *domain.DeclarationItemRequest) (*domain.CustomsDeclaration, error) {
	if err := validateStruct("DeclarationItem", req); err != nil {
		return nil, err
	}
	if req.Amount.IsNegative() || req.Quantity.IsNegative() {
		return nil, domain.NewValidationError("DeclarationItem", "amount", "must not be negative")
	}
	for field, rate := range map[string]*decimal.Decimal{"dutyRate": req.DutyRate, "vatRate": req.VATRate} {
		if rate != nil && (rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100))) {
			return nil, domain.NewValidationError("DeclarationItem", field, "must be between 0 and 100")
		}
	}

	var decl *domain.CustomsDeclaration
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.customsRepo.WithTx(tx)
		locked, err := repo.Lock(ctx, declarationID)
		if err != nil {
			return notFound(err, "customs declaration")
		}
		if locked.Status != domain.CustomsStatusDraft {
			return domain.NewTransitionError("CustomsDeclaration", locked.ID, locked.Status, locked.Status,
				"items can only be added to a draft")
		}

		refs := s.refRepo.WithTx(tx)
		hs, err := refs.GetHSCode(ctx, normalizeCode(req.HSCode))
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.NewReferenceError("DeclarationItem", "hsCode", req.HSCode)
			}
			return fmt.Errorf("failed to load HS code: %w", err)
		}

		item := &domain.DeclarationItem{
			DeclarationID: locked.ID,
			LineNo:        len(locked.Items) + 1,
			HSCode:        hs.Code,
			Description:   req.Description,
			Quantity:      req.Quantity,
			Amount:        req.Amount,
			DutyRate:      hs.DutyRate,
			VATRate:       hs.VATRate,
		}
		if item.Description == "" {
			item.Description = hs.Description
		}
		if req.DutyRate != nil {
			item.DutyRate = *req.DutyRate
		}
		if req.VATRate != nil {
			item.VATRate = *req.VATRate
		}
		item.ComputeTax(currencyPlaces(ctx, refs, locked.Currency))
		if err := repo.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("failed to add declaration item: %w", err)
		}

		locked.Items = append(locked.Items, *item)
		sumDeclaration(locked)
		if err := repo.Save(ctx, locked); err != nil {
			return fmt.Errorf("failed to update declaration totals: %w", err)
		}
		decl = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decl, nil
}

// sumDeclaration recomputes the header totals from the items
func sumDeclaration(d *domain.CustomsDeclaration) {
	d.DeclaredAmount, d.DutyAmount, d.VATAmount = decimal.Zero, decimal.Zero, decimal.Zero
	for _, item := range d.Items {
		d.DeclaredAmount = d.DeclaredAmount.Add(item.Amount)
		d.DutyAmount = d.DutyAmount.Add(item.DutyAmount)
		d.VATAmount = d.VATAmount.Add(item.VATAmount)
	}
	d.TotalTax = d.DutyAmount.Add(d.VATAmount)
}

// Submit files a DRAFT declaration with customs. The submission goes to the gateway
// after commit and its outcome is appended to the EDI log either way.
func (s *CustomsService) Submit(ctx context.Context, id uuid.UUID) (*domain.CustomsDeclaration, error) {
	var decl *domain.CustomsDeclaration
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.customsRepo.WithTx(tx)
		locked, err := repo.Lock(ctx, id)
		if err != nil {
			return notFound(err, "customs declaration")
		}
		if !locked.Status.CanTransitionTo(domain.CustomsStatusSubmitted) {
			return domain.NewTransitionError("CustomsDeclaration", id, locked.Status, domain.CustomsStatusSubmitted, "")
		}
		if len(locked.Items) == 0 {
			return domain.NewValidationError("CustomsDeclaration", "items", "at least one item is required")
		}
		at := s.now()
		locked.Status = domain.CustomsStatusSubmitted
		locked.SubmittedAt = &at
		locked.RejectReason = ""
		if err := repo.Save(ctx, locked); err != nil {
			return fmt.Errorf("failed to submit declaration: %w", err)
		}
		decl = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload := DeclarationSubmitted{
		DeclarationID: decl.ID,
		DeclarationNo: decl.DeclarationNo,
		ShipmentID:    decl.ShipmentID,
		TradeType:     decl.TradeType,
		BrokerCode:    decl.BrokerCode,
		Currency:      decl.Currency,
		TotalTax:      decl.TotalTax,
		Items:         decl.Items,
	}
	entry := &domain.EDILog{
		RefType:     ediRefDeclaration,
		RefID:       decl.ID,
		MessageType: ediMessageSubmit,
		Direction:   domain.EDIDirectionOut,
		Status:      domain.EDIStatusSent,
	}
	if body, err := json.Marshal(payload); err == nil {
		entry.Payload = string(body)
	}
	if err := publishEvent(ctx, s.publisher, s.logger, messaging.EventCustomsSubmitted, decl.DeclarationNo, payload); err != nil {
		entry.Status = domain.EDIStatusFailed
		entry.ErrorMessage = err.Error()
	}
	if err := s.customsRepo.AppendEDILog(ctx, entry); err != nil {
		s.logger.Error("failed to append EDI log",
			zap.String("declaration_no", decl.DeclarationNo),
			zap.Error(err))
	}

	s.logger.Info("customs declaration submitted",
		zap.String("declaration_no", decl.DeclarationNo),
		zap.String("edi_status", entry.Status))
	return decl, nil
}

// move runs a guarded status change on a locked declaration
func (s *CustomsService) move(ctx context.Context, id uuid.UUID, to domain.CustomsStatus, apply func(tx *gorm.DB, d *domain.CustomsDeclaration) error) (*domain.CustomsDeclaration, error) {
	var decl *domain.CustomsDeclaration
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.customsRepo.WithTx(tx)
		locked, err := repo.Lock(ctx, id)
		if err != nil {
			return notFound(err, "customs declaration")
		}
		if !locked.Status.CanTransitionTo(to) {
			return domain.NewTransitionError("CustomsDeclaration", id, locked.Status, to, "")
		}
		if apply != nil {
			if err := apply(tx, locked); err != nil {
				return err
			}
		}
		locked.Status = to
		if err := repo.Save(ctx, locked); err != nil {
			return fmt.Errorf("failed to update declaration: %w", err)
		}
		decl = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("customs declaration status changed",
		zap.String("declaration_no", decl.DeclarationNo),
		zap.String("status", string(to)))
	return decl, nil
}

// StartInspection moves a SUBMITTED declaration to INSPECTION and opens a PENDING inspection
func (s *CustomsService) StartInspection(ctx context.Context, id uuid.UUID, req *domain.InspectionRequest) (*domain.CustomsDeclaration, error) {
	if err := validateStruct("Inspection", req); err != nil {
		return nil, err
	}
	return s.move(ctx, id, domain.CustomsStatusInspection, func(tx *gorm.DB, d *domain.CustomsDeclaration) error {
		inspection := &domain.Inspection{
			DeclarationID:  d.ID,
			InspectionType: normalizeCode(req.InspectionType),
			Result:         domain.InspectionPending,
			Remarks:        req.Remarks,
		}
		if err := s.customsRepo.WithTx(tx).CreateInspection(ctx, inspection); err != nil {
			return fmt.Errorf("failed to open inspection: %w", err)
		}
		return nil
	})
}

// RecordInspection records the result of the pending inspection. A FAIL rejects the
// declaration; a PASS leaves it in INSPECTION until Clear.
func (s *CustomsService) RecordInspection(ctx context.Context, id uuid.UUID, req *domain.InspectionResultRequest) (*domain.Inspection, error) {
	if err := validateStruct("Inspection", req); err != nil {
		return nil, err
	}
	var inspection *domain.Inspection
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.customsRepo.WithTx(tx)
		decl, err := repo.Lock(ctx, id)
		if err != nil {
			return notFound(err, "customs declaration")
		}
		if decl.Status != domain.CustomsStatusInspection {
			return domain.NewTransitionError("CustomsDeclaration", id, decl.Status, domain.CustomsStatusInspection,
				"no inspection in progress")
		}
		latest, err := repo.LockLatestInspection(ctx, id)
		if err != nil {
			return notFound(err, "inspection")
		}
		if latest.Result != domain.InspectionPending {
			return domain.NewValidationError("Inspection", "result", "inspection already has a result")
		}

		at := s.now()
		latest.Result = req.Result
		latest.InspectedAt = &at
		if req.Remarks != "" {
			latest.Remarks = req.Remarks
		}
		if err := repo.SaveInspection(ctx, latest); err != nil {
			return fmt.Errorf("failed to record inspection: %w", err)
		}
		if req.Result == domain.InspectionFail {
			decl.Status = domain.CustomsStatusRejected
			decl.RejectReason = "inspection failed"
			if latest.Remarks != "" {
				decl.RejectReason += ": " + latest.Remarks
			}
			if err := repo.Save(ctx, decl); err != nil {
				return fmt.Errorf("failed to reject declaration: %w", err)
			}
		}
		inspection = latest
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inspection, nil
}

// Clear clears a SUBMITTED declaration, or an INSPECTION one whose latest inspection passed
func (s *CustomsService) Clear(ctx context.Context, id uuid.UUID) (*domain.CustomsDeclaration, error) {
	return s.move(ctx, id, domain.CustomsStatusCleared, func(tx *gorm.DB, d *domain.CustomsDeclaration) error {
		if d.Status == domain.CustomsStatusInspection {
			latest, err := s.customsRepo.WithTx(tx).LockLatestInspection(ctx, d.ID)
			if err != nil || latest.Result != domain.InspectionPass {
				return domain.NewTransitionError("CustomsDeclaration", d.ID, d.Status, domain.CustomsStatusCleared,
					"inspection has not passed")
			}
		}
		at := s.now()
		d.ClearedAt = &at
		return nil
	})
}

// Release releases a CLEARED declaration
func (s *CustomsService) Release(ctx context.Context, id uuid.UUID) (*domain.CustomsDeclaration, error) {
	return s.move(ctx, id, domain.CustomsStatusReleased, func(_ *gorm.DB, d *domain.CustomsDeclaration) error {
		at := s.now()
		d.ReleasedAt = &at
		return nil
	})
}

// Reject rejects a SUBMITTED or INSPECTION declaration
func (s *CustomsService) Reject(ctx context.Context, id uuid.UUID, reason string) (*domain.CustomsDeclaration, error) {
	if reason == "" {
		return nil, domain.NewValidationError("CustomsDeclaration", "reason", "required")
	}
	return s.move(ctx, id, domain.CustomsStatusRejected, func(_ *gorm.DB, d *domain.CustomsDeclaration) error {
		d.RejectReason = reason
		return nil
	})
}

// Reopen returns a REJECTED declaration to DRAFT for correction
func (s *CustomsService) Reopen(ctx context.Context, id uuid.UUID) (*domain.CustomsDeclaration, error) {
	return s.move(ctx, id, domain.CustomsStatusDraft, func(_ *gorm.DB, d *domain.CustomsDeclaration) error {
		d.SubmittedAt = nil
		return nil
	})
}

// RecordGatewayResponse logs an inbound customs reply and applies its outcome
func (s *CustomsService) RecordGatewayResponse(ctx context.Context, id uuid.UUID, req *domain.CustomsResponseRequest) (*domain.CustomsDeclaration, error) {
	if err := validateStruct("CustomsResponse", req); err != nil {
		return nil, err
	}
	if _, err := s.customsRepo.GetByID(ctx, id); err != nil {
		return nil, notFound(err, "customs declaration")
	}

	var decl *domain.CustomsDeclaration
	var err error
	switch req.Outcome {
	case outcomeCleared:
		decl, err = s.Clear(ctx, id)
	case outcomeInspection:
		kind := req.InspectionType
		if kind == "" {
			kind = defaultInspectionCd
		}
		decl, err = s.StartInspection(ctx, id, &domain.InspectionRequest{InspectionType: kind, Remarks: req.Message})
	case outcomeRejected:
		reason := req.Message
		if reason == "" {
			reason = "rejected by customs"
		}
		decl, err = s.Reject(ctx, id, reason)
	}

	entry := &domain.EDILog{
		RefType:     ediRefDeclaration,
		RefID:       id,
		MessageType: ediMessageResponse,
		Direction:   domain.EDIDirectionIn,
		Status:      domain.EDIStatusAck,
		Payload:     req.Payload,
	}
	if err != nil {
		entry.Status = domain.EDIStatusFailed
		entry.ErrorMessage = err.Error()
	}
	if logErr := s.customsRepo.AppendEDILog(ctx, entry); logErr != nil {
		s.logger.Error("failed to append EDI log", zap.String("declaration_id", id.String()), zap.Error(logErr))
	}
	if err != nil {
		return nil, err
	}
	return decl, nil
}

// Get returns a declaration with its items
func (s *CustomsService) Get(ctx context.Context, id uuid.UUID) (*domain.CustomsDeclaration, error) {
	decl, err := s.customsRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "customs declaration")
	}
	return decl, nil
}

// ListByShipment returns a shipment's declarations
func (s *CustomsService) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.CustomsDeclaration, error) {
	return s.customsRepo.ListByShipment(ctx, shipmentID)
}

// ListInspections returns the inspections of a declaration
func (s *CustomsService) ListInspections(ctx context.Context, id uuid.UUID) ([]domain.Inspection, error) {
	return s.customsRepo.ListInspections(ctx, id)
}

// ListEDILogs returns the EDI messages exchanged for a declaration
func (s *CustomsService) ListEDILogs(ctx context.Context, id uuid.UUID) ([]domain.EDILog, error) {
	return s.customsRepo.ListEDILogs(ctx, ediRefDeclaration, id)
}
