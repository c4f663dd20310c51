package service

import (
	"context"
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

// DocumentIssued is the payload published when a transport document is issued
type DocumentIssued struct {
	DocType    string    `json:"docType"`
	DocID      uuid.UUID `json:"docId"`
	DocNo      string    `json:"docNo"`
	ShipmentID uuid.UUID `json:"shipmentId"`
	IssuedAt   time.Time `json:"issuedAt"`
}

// DocumentService manages bills of lading, air waybills, containers and cargo irregularities
type DocumentService struct {
	db           *gorm.DB
	documentRepo *repository.DocumentRepository
	shipmentRepo *repository.ShipmentRepository
	bookingRepo  *repository.BookingRepository
	refRepo      *repository.ReferenceRepository
	scheduling   *SchedulingService
	notices      *NoticeService
	warnings     *WarningService
	numbers      *NumberSequenceService
	publisher    messaging.Publisher
	volumeFactor decimal.Decimal
	logger       *zap.Logger
	now          func() time.Time
}

// NewDocumentService creates a new DocumentService. notices may be nil.
func NewDocumentService(
	db *gorm.DB,
	documentRepo *repository.DocumentRepository,
	shipmentRepo *repository.ShipmentRepository,
	bookingRepo *repository.BookingRepository,
	refRepo *repository.ReferenceRepository,
	scheduling *SchedulingService,
	notices *NoticeService,
	warnings *WarningService,
	numbers *NumberSequenceService,
	publisher messaging.Publisher,
	volumeWeightFactor int,
	logger *zap.Logger,
) *DocumentService {
	factor := domain.DefaultVolumeWeightFactor
	if volumeWeightFactor > 0 {
		factor = decimal.NewFromInt(int64(volumeWeightFactor))
	}
	return &DocumentService{
		db:           db,
		documentRepo: documentRepo,
		shipmentRepo: shipmentRepo,
		bookingRepo:  bookingRepo,
		refRepo:      refRepo,
		scheduling:   scheduling,
		notices:      notices,
		warnings:     warnings,
		numbers:      numbers,
		publisher:    publisher,
		volumeFactor: factor,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// documentShipment locks the owning shipment. The shipment row is always locked
// before any document row so that document and status changes serialise.
func (s *DocumentService) documentShipment(ctx context.Context, tx *gorm.DB, id uuid.UUID, mode domain.TransportMode, entity string) (*domain.Shipment, error) {
	shipment, err := s.shipmentRepo.WithTx(tx).Lock(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NewReferenceError(entity, "shipmentId", id.String())
		}
		return nil, fmt.Errorf("failed to load shipment: %w", err)
	}
	if shipment.TransportMode != mode {
		return nil, domain.NewValidationError(entity, "shipmentId",
			fmt.Sprintf("shipment is %s, document needs %s", shipment.TransportMode, mode))
	}
	if shipment.Status == domain.ShipmentStatusCancelled {
		return nil, domain.NewTransitionError("Shipment", id, shipment.Status, shipment.Status,
			"documents cannot be added to a cancelled shipment")
	}
	return shipment, nil
}

func checkNonNegative(entity string, qty int, figures ...decimal.Decimal) error {
	if qty < 0 {
		return domain.NewValidationError(entity, "packageQty", "must not be negative")
	}
	for _, f := range figures {
		if f.IsNegative() {
			return domain.NewValidationError(entity, "grossWeightKg", "cargo figures must not be negative")
		}
	}
	return nil
}

// houseLines builds cargo lines from the request and checks their HS codes
func (s *DocumentService) houseLines(ctx context.Context, tx *gorm.DB, docType string, reqs []domain.CargoLineRequest) ([]domain.HouseCargoLine, error) {
	refs := s.refRepo.WithTx(tx)
	lines := make([]domain.HouseCargoLine, 0, len(reqs))
	for i, l := range reqs {
		field := fmt.Sprintf("lines[%d]", i)
		if l.GrossWeightKg.IsNegative() || l.VolumeCBM.IsNegative() {
			return nil, domain.NewValidationError("HouseCargoLine", field, "figures must not be negative")
		}
		hs := normalizeCode(l.HSCode)
		if err := checkRefs(ctx, refs, "HouseCargoLine", hsCodeRef(field+".hsCode", hs)); err != nil {
			return nil, err
		}
		lines = append(lines, domain.HouseCargoLine{
			DocType:       docType,
			LineNo:        i + 1,
			ContainerNo:   normalizeCode(l.ContainerNo),
			Description:   l.Description,
			HSCode:        hs,
			PackageQty:    l.PackageQty,
			GrossWeightKg: l.GrossWeightKg,
			VolumeCBM:     l.VolumeCBM,
		})
	}
	return lines, nil
}

// fillHouseHeader copies the line totals into a header that carries no cargo figures
func fillHouseHeader(header *domain.CargoTotals, lines []domain.HouseCargoLine) bool {
	if len(lines) == 0 || header.PackageQty != 0 || !header.GrossWeightKg.IsZero() || !header.VolumeCBM.IsZero() {
		return false
	}
	*header = domain.HouseLineTotals(lines)
	return true
}

func (s *DocumentService) saveLines(ctx context.Context, tx *gorm.DB, docID uuid.UUID, lines []domain.HouseCargoLine) error {
	for i := range lines {
		lines[i].DocID = docID
	}
	if err := s.documentRepo.WithTx(tx).CreateCargoLines(ctx, lines); err != nil {
		return fmt.Errorf("failed to create cargo lines: %w", err)
	}
	return nil
}

// afterIssue schedules BL_ISSUE pre-alerts inside the issuing transaction
func (s *DocumentService) afterIssue(ctx context.Context, tx *gorm.DB, shipmentID uuid.UUID) error {
	if s.notices == nil {
		return nil
	}
	shipment, err := s.shipmentRepo.WithTx(tx).GetByID(ctx, shipmentID)
	if err != nil {
		return fmt.Errorf("failed to load shipment: %w", err)
	}
	return s.notices.ScheduleShipmentPreAlerts(ctx, tx, shipment)
}

func (s *DocumentService) publishIssued(ctx context.Context, docType string, id uuid.UUID, docNo string, shipmentID uuid.UUID, at time.Time) {
	_ = publishEvent(ctx, s.publisher, s.logger, messaging.EventDocumentIssued, docNo, DocumentIssued{
		DocType:    docType,
		DocID:      id,
		DocNo:      docNo,
		ShipmentID: shipmentID,
		IssuedAt:   at,
	})
}

// stamp records the lifecycle timestamp for the target status
func stamp(ts *domain.DocumentTimestamps, to domain.DocumentStatus, at time.Time) {
	switch to {
	case domain.DocumentStatusIssued:
		ts.IssuedAt = &at
	case domain.DocumentStatusSurrendered:
		ts.SurrenderedAt = &at
	case domain.DocumentStatusReleased:
		ts.ReleasedAt = &at
	}
}

// ============================================================================
// Bills of lading
// ============================================================================

// CreateMasterBL records a DRAFT master bill of lading for a sea shipment
func (s *DocumentService) CreateMasterBL(ctx context.Context, req *domain.CreateMasterBLRequest) (*domain.MasterBL, error) {
	if err := validateStruct("MasterBL", req); err != nil {
		return nil, err
	}
	if err := checkNonNegative("MasterBL", req.PackageQty, req.GrossWeightKg, req.VolumeCBM); err != nil {
		return nil, err
	}

	mbl := &domain.MasterBL{
		MBLNo:         normalizeCode(req.MBLNo),
		ShipmentID:    req.ShipmentID,
		BookingID:     req.BookingID,
		CarrierCode:   normalizeCode(req.CarrierCode),
		VesselName:    req.VesselName,
		VoyageNo:      req.VoyageNo,
		POLCode:       normalizeCode(req.POLCode),
		PODCode:       normalizeCode(req.PODCode),
		PackageQty:    req.PackageQty,
		GrossWeightKg: req.GrossWeightKg,
		VolumeCBM:     req.VolumeCBM,
		Status:        domain.DocumentStatusDraft,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.documentShipment(ctx, tx, mbl.ShipmentID, domain.TransportModeSea, "MasterBL"); err != nil {
			return err
		}
		if mbl.BookingID != nil {
			booking, err := s.bookingRepo.WithTx(tx).GetOcean(ctx, *mbl.BookingID)
			if err != nil || booking.ShipmentID != mbl.ShipmentID {
				return domain.NewReferenceError("MasterBL", "bookingId", mbl.BookingID.String())
			}
		}
		if err := checkRefs(ctx, s.refRepo.WithTx(tx), "MasterBL",
			carrierRef("carrierCode", mbl.CarrierCode),
			portRef("polCode", mbl.POLCode),
			portRef("podCode", mbl.PODCode),
		); err != nil {
			return err
		}
		if err := s.documentRepo.WithTx(tx).CreateMasterBL(ctx, mbl); err != nil {
			return fmt.Errorf("failed to create master BL: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("master BL created",
		zap.String("mbl_no", mbl.MBLNo),
		zap.String("shipment_id", mbl.ShipmentID.String()))
	return mbl, nil
}

// IssueMasterBL moves a DRAFT master BL to ISSUED
func (s *DocumentService) IssueMasterBL(ctx context.Context, id uuid.UUID) (*domain.MasterBL, error) {
	return s.moveMasterBL(ctx, id, domain.DocumentStatusIssued)
}

// SurrenderMasterBL surrenders an ISSUED master BL. SURRENDERED is terminal.
func (s *DocumentService) SurrenderMasterBL(ctx context.Context, id uuid.UUID) (*domain.MasterBL, error) {
	return s.moveMasterBL(ctx, id, domain.DocumentStatusSurrendered)
}

// ReleaseMasterBL releases an ISSUED master BL
func (s *DocumentService) ReleaseMasterBL(ctx context.Context, id uuid.UUID) (*domain.MasterBL, error) {
	return s.moveMasterBL(ctx, id, domain.DocumentStatusReleased)
}

func (s *DocumentService) moveMasterBL(ctx context.Context, id uuid.UUID, to domain.DocumentStatus) (*domain.MasterBL, error) {
	current, err := s.documentRepo.GetMasterBL(ctx, id)
	if err != nil {
		return nil, notFound(err, "master BL")
	}

	at := s.now()
	var mbl *domain.MasterBL
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.shipmentRepo.WithTx(tx).Lock(ctx, current.ShipmentID); err != nil {
			return fmt.Errorf("failed to lock shipment: %w", err)
		}
		repo := s.documentRepo.WithTx(tx)
		locked, err := repo.LockMasterBL(ctx, id)
		if err != nil {
			return notFound(err, "master BL")
		}
		if !locked.Status.CanTransitionTo(to) {
			return domain.NewTransitionError("MasterBL", id, locked.Status, to, "")
		}
		locked.Status = to
		stamp(&locked.DocumentTimestamps, to, at)
		if err := repo.SaveMasterBL(ctx, locked); err != nil {
			return fmt.Errorf("failed to update master BL: %w", err)
		}
		mbl = locked
		if to == domain.DocumentStatusIssued {
			return s.afterIssue(ctx, tx, locked.ShipmentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("master BL status changed",
		zap.String("mbl_no", mbl.MBLNo),
		zap.String("status", string(to)))
	if to == domain.DocumentStatusIssued {
		s.publishIssued(ctx, domain.DocTypeMBL, mbl.ID, mbl.MBLNo, mbl.ShipmentID, at)
	}
	return mbl, nil
}

// CreateHouseBL records a DRAFT house BL. The number is generated when not given.
// A consolidated house must belong to its master's shipment, and the houses under
// one master may not together exceed the master's cargo totals.
func (s *DocumentService) CreateHouseBL(ctx context.Context, req *domain.CreateHouseBLRequest) (*domain.HouseBL, []domain.ReconciliationWarning, error) {
	if err := validateStruct("HouseBL", req); err != nil {
		return nil, nil, err
	}
	if err := checkNonNegative("HouseBL", req.PackageQty, req.GrossWeightKg, req.VolumeCBM); err != nil {
		return nil, nil, err
	}

	hbl := &domain.HouseBL{
		HBLNo:         normalizeCode(req.HBLNo),
		ShipmentID:    req.ShipmentID,
		MBLID:         req.MBLID,
		ShipperCode:   normalizeCode(req.ShipperCode),
		ConsigneeCode: normalizeCode(req.ConsigneeCode),
		PackageQty:    req.PackageQty,
		GrossWeightKg: req.GrossWeightKg,
		VolumeCBM:     req.VolumeCBM,
		Status:        domain.DocumentStatusDraft,
	}

	var warnings []domain.ReconciliationWarning
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.documentShipment(ctx, tx, hbl.ShipmentID, domain.TransportModeSea, "HouseBL"); err != nil {
			return err
		}
		repo := s.documentRepo.WithTx(tx)

		var master *domain.MasterBL
		if hbl.MBLID != nil {
			m, err := repo.LockMasterBL(ctx, *hbl.MBLID)
			if err != nil || m.ShipmentID != hbl.ShipmentID {
				return domain.NewReferenceError("HouseBL", "mblId", hbl.MBLID.String())
			}
			master = m
		}
		if err := checkRefs(ctx, s.refRepo.WithTx(tx), "HouseBL",
			customerRef("shipperCode", hbl.ShipperCode),
			customerRef("consigneeCode", hbl.ConsigneeCode),
		); err != nil {
			return err
		}
		lines, err := s.houseLines(ctx, tx, domain.DocTypeHBL, req.Lines)
		if err != nil {
			return err
		}

		header := domain.CargoTotals{PackageQty: hbl.PackageQty, GrossWeightKg: hbl.GrossWeightKg, VolumeCBM: hbl.VolumeCBM}
		filled := fillHouseHeader(&header, lines)
		hbl.PackageQty, hbl.GrossWeightKg, hbl.VolumeCBM = header.PackageQty, header.GrossWeightKg, header.VolumeCBM

		if master != nil {
			siblings, err := repo.ListHouseBLsByMaster(ctx, master.ID)
			if err != nil {
				return fmt.Errorf("failed to list house BLs: %w", err)
			}
			sum := header
			for _, h := range siblings {
				sum.PackageQty += h.PackageQty
				sum.GrossWeightKg = sum.GrossWeightKg.Add(h.GrossWeightKg)
				sum.VolumeCBM = sum.VolumeCBM.Add(h.VolumeCBM)
			}
			limit := domain.CargoTotals{PackageQty: master.PackageQty, GrossWeightKg: master.GrossWeightKg, VolumeCBM: master.VolumeCBM}
			if err := checkWithinMaster("HouseBL", sum, limit); err != nil {
				return err
			}
		}

		if hbl.HBLNo == "" {
			number, err := s.numbers.Next(ctx, tx, domain.PrefixHouseBL)
			if err != nil {
				return err
			}
			hbl.HBLNo = number
		}
		if err := repo.CreateHouseBL(ctx, hbl); err != nil {
			return fmt.Errorf("failed to create house BL: %w", err)
		}
		if err := s.saveLines(ctx, tx, hbl.ID, lines); err != nil {
			return err
		}
		hbl.Lines = lines

		if len(lines) > 0 && !filled {
			warnings = cargoTotalsWarnings("HouseBL", hbl.ID, &hbl.ShipmentID, domain.RuleHouseLineTotals, header, domain.HouseLineTotals(lines))
		}
		return s.warnings.Record(ctx, tx, warnings)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("house BL created",
		zap.String("hbl_no", hbl.HBLNo),
		zap.Bool("direct", hbl.IsDirect()),
		zap.Int("warnings", len(warnings)))
	return hbl, warnings, nil
}

// checkWithinMaster rejects consolidated house totals above the master's
func checkWithinMaster(entity string, houses, master domain.CargoTotals) error {
	if houses.PackageQty > master.PackageQty {
		return domain.NewValidationError(entity, "packageQty",
			fmt.Sprintf("house total %d exceeds master %d", houses.PackageQty, master.PackageQty))
	}
	if houses.GrossWeightKg.GreaterThan(master.GrossWeightKg) {
		return domain.NewValidationError(entity, "grossWeightKg",
			fmt.Sprintf("house total %s exceeds master %s", houses.GrossWeightKg, master.GrossWeightKg))
	}
	if houses.VolumeCBM.GreaterThan(master.VolumeCBM) {
		return domain.NewValidationError(entity, "volumeCbm",
			fmt.Sprintf("house total %s exceeds master %s", houses.VolumeCBM, master.VolumeCBM))
	}
	return nil
}

// IssueHouseBL moves a DRAFT house BL to ISSUED
func (s *DocumentService) IssueHouseBL(ctx context.Context, id uuid.UUID) (*domain.HouseBL, error) {
	return s.moveHouseBL(ctx, id, domain.DocumentStatusIssued)
}

// SurrenderHouseBL surrenders an ISSUED house BL
func (s *DocumentService) SurrenderHouseBL(ctx context.Context, id uuid.UUID) (*domain.HouseBL, error) {
	return s.moveHouseBL(ctx, id, domain.DocumentStatusSurrendered)
}

// ReleaseHouseBL releases an ISSUED house BL
func (s *DocumentService) ReleaseHouseBL(ctx context.Context, id uuid.UUID) (*domain.HouseBL, error) {
	return s.moveHouseBL(ctx, id, domain.DocumentStatusReleased)
}

func (s *DocumentService) moveHouseBL(ctx context.Context, id uuid.UUID, to domain.DocumentStatus) (*domain.HouseBL, error) {
	current, err := s.documentRepo.GetHouseBL(ctx, id)
	if err != nil {
		return nil, notFound(err, "house BL")
	}

	at := s.now()
	var hbl *domain.HouseBL
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.shipmentRepo.WithTx(tx).Lock(ctx, current.ShipmentID); err != nil {
			return fmt.Errorf("failed to lock shipment: %w", err)
		}
		repo := s.documentRepo.WithTx(tx)
		locked, err := repo.LockHouseBL(ctx, id)
		if err != nil {
			return notFound(err, "house BL")
		}
		if !locked.Status.CanTransitionTo(to) {
			return domain.NewTransitionError("HouseBL", id, locked.Status, to, "")
		}
		locked.Status = to
		stamp(&locked.DocumentTimestamps, to, at)
		if err := repo.SaveHouseBL(ctx, locked); err != nil {
			return fmt.Errorf("failed to update house BL: %w", err)
		}
		locked.Lines = current.Lines
		hbl = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("house BL status changed",
		zap.String("hbl_no", hbl.HBLNo),
		zap.String("status", string(to)))
	if to == domain.DocumentStatusIssued {
		s.publishIssued(ctx, domain.DocTypeHBL, hbl.ID, hbl.HBLNo, hbl.ShipmentID, at)
	}
	return hbl, nil
}

// GetMasterBL returns a master BL
func (s *DocumentService) GetMasterBL(ctx context.Context, id uuid.UUID) (*domain.MasterBL, error) {
	mbl, err := s.documentRepo.GetMasterBL(ctx, id)
	if err != nil {
		return nil, notFound(err, "master BL")
	}
	return mbl, nil
}

// ListMasterBLs returns a shipment's master BLs
func (s *DocumentService) ListMasterBLs(ctx context.Context, shipmentID uuid.UUID) ([]domain.MasterBL, error) {
	return s.documentRepo.ListMasterBLs(ctx, shipmentID)
}

// GetHouseBL returns a house BL with its cargo lines
func (s *DocumentService) GetHouseBL(ctx context.Context, id uuid.UUID) (*domain.HouseBL, error) {
	hbl, err := s.documentRepo.GetHouseBL(ctx, id)
	if err != nil {
		return nil, notFound(err, "house BL")
	}
	return hbl, nil
}

// ListHouseBLs returns the house BLs under a master. The master does not hold its
// houses; they are found by their back reference.
func (s *DocumentService) ListHouseBLs(ctx context.Context, mblID uuid.UUID) ([]domain.HouseBL, error) {
	return s.documentRepo.ListHouseBLsByMaster(ctx, mblID)
}

// ListShipmentHouseBLs returns every house BL of a shipment, direct or consolidated
func (s *DocumentService) ListShipmentHouseBLs(ctx context.Context, shipmentID uuid.UUID) ([]domain.HouseBL, error) {
	return s.documentRepo.ListHouseBLsByShipment(ctx, shipmentID)
}

// ============================================================================
// Containers
// ============================================================================

// AddContainer attaches a container to a master BL. Cargo weight is the sum of the
// house lines stuffed in the container; a gross weight that is not tare plus cargo is
// kept and raises a warning, and a missing gross weight is computed.
func (s *DocumentService) AddContainer(ctx context.Context, req *domain.AddContainerRequest) (*domain.Container, []domain.ReconciliationWarning, error) {
	if err := validateStruct("Container", req); err != nil {
		return nil, nil, err
	}
	if err := checkNonNegative("Container", req.PackageQty, req.TareWeightKg, req.GrossWeightKg, req.VolumeCBM); err != nil {
		return nil, nil, err
	}
	containerType := normalizeCode(req.ContainerType)
	if _, ok := domain.ContainerGroup(containerType); !ok {
		return nil, nil, domain.NewValidationError("Container", "containerType", "unknown container type "+containerType)
	}
	if req.IsDangerous && req.UNNumber == "" {
		return nil, nil, domain.NewValidationError("Container", "unNumber", "required for dangerous goods")
	}
	if req.IsReefer && req.TemperatureC == nil {
		return nil, nil, domain.NewValidationError("Container", "temperatureC", "required for reefer containers")
	}

	current, err := s.documentRepo.GetMasterBL(ctx, req.MBLID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, domain.NewReferenceError("Container", "mblId", req.MBLID.String())
		}
		return nil, nil, fmt.Errorf("failed to load master BL: %w", err)
	}

	container := &domain.Container{
		MBLID:         req.MBLID,
		ShipmentID:    current.ShipmentID,
		ContainerNo:   normalizeCode(req.ContainerNo),
		ContainerType: containerType,
		SealNo1:       req.SealNo1,
		SealNo2:       req.SealNo2,
		PackageQty:    req.PackageQty,
		TareWeightKg:  req.TareWeightKg,
		GrossWeightKg: req.GrossWeightKg,
		VolumeCBM:     req.VolumeCBM,
		IsDangerous:   req.IsDangerous,
		UNNumber:      req.UNNumber,
		IMOClass:      req.IMOClass,
		IsReefer:      req.IsReefer,
		TemperatureC:  req.TemperatureC,
	}

	var warnings []domain.ReconciliationWarning
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.shipmentRepo.WithTx(tx).Lock(ctx, current.ShipmentID); err != nil {
			return fmt.Errorf("failed to lock shipment: %w", err)
		}
		repo := s.documentRepo.WithTx(tx)
		mbl, err := repo.LockMasterBL(ctx, req.MBLID)
		if err != nil {
			return notFound(err, "master BL")
		}
		if mbl.Status == domain.DocumentStatusSurrendered || mbl.Status == domain.DocumentStatusReleased {
			return domain.NewTransitionError("MasterBL", mbl.ID, mbl.Status, mbl.Status,
				"containers cannot be added to a closed bill of lading")
		}

		lines, err := repo.HouseLinesInContainer(ctx, mbl.ShipmentID, container.ContainerNo)
		if err != nil {
			return fmt.Errorf("failed to sum container cargo: %w", err)
		}
		container.CargoWeightKg = domain.HouseLineTotals(lines).GrossWeightKg
		expected := container.TareWeightKg.Add(container.CargoWeightKg)
		mismatch := false
		if container.GrossWeightKg.IsZero() {
			container.GrossWeightKg = expected
		} else if !container.GrossWeightKg.Equal(expected) {
			mismatch = true
		}

		if err := repo.CreateContainer(ctx, container); err != nil {
			return fmt.Errorf("failed to create container: %w", err)
		}
		if mismatch {
			warnings = append(warnings, newWarning("Container", container.ID, &container.ShipmentID,
				domain.RuleContainerGrossWeight, expected.String(), container.GrossWeightKg.String(),
				"gross weight is not tare plus declared cargo"))
		}
		return s.warnings.Record(ctx, tx, warnings)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("container added",
		zap.String("container_no", container.ContainerNo),
		zap.String("mbl_id", container.MBLID.String()),
		zap.Int("warnings", len(warnings)))
	return container, warnings, nil
}

// ListContainers returns the containers under a master BL
func (s *DocumentService) ListContainers(ctx context.Context, mblID uuid.UUID) ([]domain.Container, error) {
	return s.documentRepo.ListContainers(ctx, mblID)
}

// ============================================================================
// Air waybills
// ============================================================================

// CreateMasterAWB records a DRAFT master air waybill. Its number is taken from the
// carrier's MAWB stock on issue.
func (s *DocumentService) CreateMasterAWB(ctx context.Context, req *domain.CreateMasterAWBRequest) (*domain.MasterAWB, error) {
	if err := validateStruct("MasterAWB", req); err != nil {
		return nil, err
	}
	if err := checkNonNegative("MasterAWB", req.PackageQty, req.GrossWeightKg, req.VolumeCBM); err != nil {
		return nil, err
	}

	mawb := &domain.MasterAWB{
		ShipmentID:         req.ShipmentID,
		BookingID:          req.BookingID,
		CarrierCode:        normalizeCode(req.CarrierCode),
		FlightNo:           normalizeCode(req.FlightNo),
		OriginCode:         normalizeCode(req.OriginCode),
		DestCode:           normalizeCode(req.DestCode),
		PackageQty:         req.PackageQty,
		GrossWeightKg:      req.GrossWeightKg,
		ChargeableWeightKg: domain.ChargeableWeight(req.GrossWeightKg, req.VolumeCBM, s.volumeFactor),
		Status:             domain.DocumentStatusDraft,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.documentShipment(ctx, tx, mawb.ShipmentID, domain.TransportModeAir, "MasterAWB"); err != nil {
			return err
		}
		if mawb.BookingID != nil {
			booking, err := s.bookingRepo.WithTx(tx).GetAir(ctx, *mawb.BookingID)
			if err != nil || booking.ShipmentID != mawb.ShipmentID {
				return domain.NewReferenceError("MasterAWB", "bookingId", mawb.BookingID.String())
			}
		}
		if err := checkRefs(ctx, s.refRepo.WithTx(tx), "MasterAWB",
			carrierRef("carrierCode", mawb.CarrierCode),
			portRef("originCode", mawb.OriginCode),
			portRef("destCode", mawb.DestCode),
		); err != nil {
			return err
		}
		if err := s.documentRepo.WithTx(tx).CreateMasterAWB(ctx, mawb); err != nil {
			return fmt.Errorf("failed to create master AWB: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("master AWB created",
		zap.String("id", mawb.ID.String()),
		zap.String("carrier_code", mawb.CarrierCode))
	return mawb, nil
}

// IssueMasterAWB issues a DRAFT master AWB, consuming one serial from the carrier's
// stock in the same transaction. An empty stock fails with CapacityExhaustedError.
func (s *DocumentService) IssueMasterAWB(ctx context.Context, id uuid.UUID) (*domain.MasterAWB, error) {
	current, err := s.documentRepo.GetMasterAWB(ctx, id)
	if err != nil {
		return nil, notFound(err, "master AWB")
	}

	at := s.now()
	var mawb *domain.MasterAWB
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.shipmentRepo.WithTx(tx).Lock(ctx, current.ShipmentID); err != nil {
			return fmt.Errorf("failed to lock shipment: %w", err)
		}
		repo := s.documentRepo.WithTx(tx)
		locked, err := repo.LockMasterAWB(ctx, id)
		if err != nil {
			return notFound(err, "master AWB")
		}
		if !locked.Status.WaybillCanTransitionTo(domain.DocumentStatusIssued) {
			return domain.NewTransitionError("MasterAWB", id, locked.Status, domain.DocumentStatusIssued, "")
		}

		serial, err := s.scheduling.AllocateMAWB(ctx, tx, locked.CarrierCode, locked.ShipmentID)
		if err != nil {
			return err
		}
		number := serial.MAWBNo
		locked.MAWBNo = &number
		locked.SerialID = &serial.ID
		locked.Status = domain.DocumentStatusIssued
		stamp(&locked.DocumentTimestamps, domain.DocumentStatusIssued, at)
		if err := repo.SaveMasterAWB(ctx, locked); err != nil {
			return fmt.Errorf("failed to issue master AWB: %w", err)
		}
		mawb = locked
		return s.afterIssue(ctx, tx, locked.ShipmentID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("master AWB issued",
		zap.String("mawb_no", *mawb.MAWBNo),
		zap.String("shipment_id", mawb.ShipmentID.String()))
	s.publishIssued(ctx, domain.DocTypeMAWB, mawb.ID, *mawb.MAWBNo, mawb.ShipmentID, at)
	return mawb, nil
}

// ReleaseMasterAWB releases an ISSUED master AWB
func (s *DocumentService) ReleaseMasterAWB(ctx context.Context, id uuid.UUID) (*domain.MasterAWB, error) {
	current, err := s.documentRepo.GetMasterAWB(ctx, id)
	if err != nil {
		return nil, notFound(err, "master AWB")
	}
	var mawb *domain.MasterAWB
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.shipmentRepo.WithTx(tx).Lock(ctx, current.ShipmentID); err != nil {
			return fmt.Errorf("failed to lock shipment: %w", err)
		}
		repo := s.documentRepo.WithTx(tx)
		locked, err := repo.LockMasterAWB(ctx, id)
		if err != nil {
			return notFound(err, "master AWB")
		}
		if !locked.Status.WaybillCanTransitionTo(domain.DocumentStatusReleased) {
			return domain.NewTransitionError("MasterAWB", id, locked.Status, domain.DocumentStatusReleased, "")
		}
		locked.Status = domain.DocumentStatusReleased
		stamp(&locked.DocumentTimestamps, domain.DocumentStatusReleased, s.now())
		if err := repo.SaveMasterAWB(ctx, locked); err != nil {
			return fmt.Errorf("failed to release master AWB: %w", err)
		}
		mawb = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mawb, nil
}

// CreateHouseAWB records a DRAFT house AWB, numbered from the HAWB sequence when no
// number is given. Consolidated houses may not exceed their master's package count
// or gross weight.
func (s *DocumentService) CreateHouseAWB(ctx context.Context, req *domain.CreateHouseAWBRequest) (*domain.HouseAWB, []domain.ReconciliationWarning, error) {
	if err := validateStruct("HouseAWB", req); err != nil {
		return nil, nil, err
	}
	if err := checkNonNegative("HouseAWB", req.PackageQty, req.GrossWeightKg, req.VolumeCBM); err != nil {
		return nil, nil, err
	}

	hawb := &domain.HouseAWB{
		HAWBNo:        normalizeCode(req.HAWBNo),
		ShipmentID:    req.ShipmentID,
		MAWBID:        req.MAWBID,
		ShipperCode:   normalizeCode(req.ShipperCode),
		ConsigneeCode: normalizeCode(req.ConsigneeCode),
		Status:        domain.DocumentStatusDraft,
	}

	var warnings []domain.ReconciliationWarning
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.documentShipment(ctx, tx, hawb.ShipmentID, domain.TransportModeAir, "HouseAWB"); err != nil {
			return err
		}
		repo := s.documentRepo.WithTx(tx)

		var master *domain.MasterAWB
		if hawb.MAWBID != nil {
			m, err := repo.LockMasterAWB(ctx, *hawb.MAWBID)
			if err != nil || m.ShipmentID != hawb.ShipmentID {
				return domain.NewReferenceError("HouseAWB", "mawbId", hawb.MAWBID.String())
			}
			master = m
		}
		if err := checkRefs(ctx, s.refRepo.WithTx(tx), "HouseAWB",
			customerRef("shipperCode", hawb.ShipperCode),
			customerRef("consigneeCode", hawb.ConsigneeCode),
		); err != nil {
			return err
		}
		lines, err := s.houseLines(ctx, tx, domain.DocTypeHAWB, req.Lines)
		if err != nil {
			return err
		}

		header := domain.CargoTotals{PackageQty: req.PackageQty, GrossWeightKg: req.GrossWeightKg, VolumeCBM: req.VolumeCBM}
		filled := fillHouseHeader(&header, lines)
		hawb.PackageQty = header.PackageQty
		hawb.GrossWeightKg = header.GrossWeightKg
		hawb.ChargeableWeightKg = domain.ChargeableWeight(header.GrossWeightKg, header.VolumeCBM, s.volumeFactor)

		if master != nil {
			siblings, err := repo.ListHouseAWBsByMaster(ctx, master.ID)
			if err != nil {
				return fmt.Errorf("failed to list house AWBs: %w", err)
			}
			sum := domain.CargoTotals{PackageQty: hawb.PackageQty, GrossWeightKg: hawb.GrossWeightKg, VolumeCBM: decimal.Zero}
			for _, h := range siblings {
				sum.PackageQty += h.PackageQty
				sum.GrossWeightKg = sum.GrossWeightKg.Add(h.GrossWeightKg)
			}
			limit := domain.CargoTotals{PackageQty: master.PackageQty, GrossWeightKg: master.GrossWeightKg, VolumeCBM: decimal.Zero}
			if err := checkWithinMaster("HouseAWB", sum, limit); err != nil {
				return err
			}
		}

		if hawb.HAWBNo == "" {
			number, err := s.numbers.Next(ctx, tx, domain.PrefixHouseAWB)
			if err != nil {
				return err
			}
			hawb.HAWBNo = number
		}
		if err := repo.CreateHouseAWB(ctx, hawb); err != nil {
			return fmt.Errorf("failed to create house AWB: %w", err)
		}
		if err := s.saveLines(ctx, tx, hawb.ID, lines); err != nil {
			return err
		}
		hawb.Lines = lines

		if len(lines) > 0 && !filled {
			warnings = cargoTotalsWarnings("HouseAWB", hawb.ID, &hawb.ShipmentID, domain.RuleHouseLineTotals, header, domain.HouseLineTotals(lines))
		}
		return s.warnings.Record(ctx, tx, warnings)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("house AWB created",
		zap.String("hawb_no", hawb.HAWBNo),
		zap.Bool("direct", hawb.IsDirect()),
		zap.Int("warnings", len(warnings)))
	return hawb, warnings, nil
}

// IssueHouseAWB moves a DRAFT house AWB to ISSUED
func (s *DocumentService) IssueHouseAWB(ctx context.Context, id uuid.UUID) (*domain.HouseAWB, error) {
	return s.moveHouseAWB(ctx, id, domain.DocumentStatusIssued)
}

// ReleaseHouseAWB releases an ISSUED house AWB
func (s *DocumentService) ReleaseHouseAWB(ctx context.Context, id uuid.UUID) (*domain.HouseAWB, error) {
	return s.moveHouseAWB(ctx, id, domain.DocumentStatusReleased)
}

func (s *DocumentService) moveHouseAWB(ctx context.Context, id uuid.UUID, to domain.DocumentStatus) (*domain.HouseAWB, error) {
	current, err := s.documentRepo.GetHouseAWB(ctx, id)
	if err != nil {
		return nil, notFound(err, "house AWB")
	}

	at := s.now()
	var hawb *domain.HouseAWB
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.shipmentRepo.WithTx(tx).Lock(ctx, current.ShipmentID); err != nil {
			return fmt.Errorf("failed to lock shipment: %w", err)
		}
		repo := s.documentRepo.WithTx(tx)
		locked, err := repo.LockHouseAWB(ctx, id)
		if err != nil {
			return notFound(err, "house AWB")
		}
		if !locked.Status.WaybillCanTransitionTo(to) {
			return domain.NewTransitionError("HouseAWB", id, locked.Status, to, "")
		}
		locked.Status = to
		stamp(&locked.DocumentTimestamps, to, at)
		if err := repo.SaveHouseAWB(ctx, locked); err != nil {
			return fmt.Errorf("failed to update house AWB: %w", err)
		}
		locked.Lines = current.Lines
		hawb = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if to == domain.DocumentStatusIssued {
		s.publishIssued(ctx, domain.DocTypeHAWB, hawb.ID, hawb.HAWBNo, hawb.ShipmentID, at)
	}
	return hawb, nil
}

// GetMasterAWB returns a master AWB
func (s *DocumentService) GetMasterAWB(ctx context.Context, id uuid.UUID) (*domain.MasterAWB, error) {
	mawb, err := s.documentRepo.GetMasterAWB(ctx, id)
	if err != nil {
		return nil, notFound(err, "master AWB")
	}
	return mawb, nil
}

// ListMasterAWBs returns a shipment's master AWBs
func (s *DocumentService) ListMasterAWBs(ctx context.Context, shipmentID uuid.UUID) ([]domain.MasterAWB, error) {
	return s.documentRepo.ListMasterAWBs(ctx, shipmentID)
}

// GetHouseAWB returns a house AWB with its cargo lines
func (s *DocumentService) GetHouseAWB(ctx context.Context, id uuid.UUID) (*domain.HouseAWB, error) {
	hawb, err := s.documentRepo.GetHouseAWB(ctx, id)
	if err != nil {
		return nil, notFound(err, "house AWB")
	}
	return hawb, nil
}

// ListHouseAWBs returns the house AWBs under a master
func (s *DocumentService) ListHouseAWBs(ctx context.Context, mawbID uuid.UUID) ([]domain.HouseAWB, error) {
	return s.documentRepo.ListHouseAWBsByMaster(ctx, mawbID)
}

// ============================================================================
// Irregularities
// ============================================================================

// ReportIrregularity records a cargo discrepancy and a matching warning
func (s *DocumentService) ReportIrregularity(ctx context.Context, req *domain.ReportIrregularityRequest) (*domain.Irregularity, []domain.ReconciliationWarning, error) {
	if err := validateStruct("Irregularity", req); err != nil {
		return nil, nil, err
	}
	if req.ReportedWeightKg.IsNegative() || req.ActualWeightKg.IsNegative() {
		return nil, nil, domain.NewValidationError("Irregularity", "actualWeightKg", "must not be negative")
	}
	if (req.DocType == "") != (req.DocID == nil) {
		return nil, nil, domain.NewValidationError("Irregularity", "docId", "docType and docId go together")
	}

	irr := &domain.Irregularity{
		ShipmentID:         req.ShipmentID,
		DocType:            req.DocType,
		DocID:              req.DocID,
		Kind:               req.Kind,
		ReportedPackageQty: req.ReportedPackageQty,
		ActualPackageQty:   req.ActualPackageQty,
		ReportedWeightKg:   req.ReportedWeightKg,
		ActualWeightKg:     req.ActualWeightKg,
		Description:        req.Description,
		Status:             domain.IrregularityOpen,
	}

	var warnings []domain.ReconciliationWarning
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.shipmentRepo.WithTx(tx).GetByID(ctx, irr.ShipmentID); err != nil {
			if repository.IsNotFound(err) {
				return domain.NewReferenceError("Irregularity", "shipmentId", irr.ShipmentID.String())
			}
			return fmt.Errorf("failed to load shipment: %w", err)
		}
		if irr.DocID != nil {
			if err := s.checkDocument(ctx, tx, "Irregularity", irr.ShipmentID, irr.DocType, *irr.DocID); err != nil {
				return err
			}
		}
		if err := s.documentRepo.WithTx(tx).CreateIrregularity(ctx, irr); err != nil {
			return fmt.Errorf("failed to create irregularity: %w", err)
		}

		warnings = append(warnings, newWarning("Irregularity", irr.ID, &irr.ShipmentID, domain.RuleIrregularity,
			fmt.Sprintf("%d pkgs / %s kg", irr.ReportedPackageQty, irr.ReportedWeightKg),
			fmt.Sprintf("%d pkgs / %s kg", irr.ActualPackageQty, irr.ActualWeightKg),
			irr.Kind+" cargo reported"))
		return s.warnings.Record(ctx, tx, warnings)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("irregularity reported",
		zap.String("shipment_id", irr.ShipmentID.String()),
		zap.String("kind", irr.Kind))
	return irr, warnings, nil
}

// checkDocument verifies that a referenced document exists on the shipment
func (s *DocumentService) checkDocument(ctx context.Context, tx *gorm.DB, entity string, shipmentID uuid.UUID, docType string, id uuid.UUID) error {
	repo := s.documentRepo.WithTx(tx)
	var owner uuid.UUID
	var err error
	switch docType {
	case domain.DocTypeMBL:
		var d *domain.MasterBL
		if d, err = repo.GetMasterBL(ctx, id); err == nil {
			owner = d.ShipmentID
		}
	case domain.DocTypeHBL:
		var d *domain.HouseBL
		if d, err = repo.GetHouseBL(ctx, id); err == nil {
			owner = d.ShipmentID
		}
	case domain.DocTypeMAWB:
		var d *domain.MasterAWB
		if d, err = repo.GetMasterAWB(ctx, id); err == nil {
			owner = d.ShipmentID
		}
	case domain.DocTypeHAWB:
		var d *domain.HouseAWB
		if d, err = repo.GetHouseAWB(ctx, id); err == nil {
			owner = d.ShipmentID
		}
	default:
		return domain.NewValidationError(entity, "docType", "unknown document type "+docType)
	}
	if err != nil && !repository.IsNotFound(err) {
		return fmt.Errorf("failed to load document: %w", err)
	}
	if err != nil || owner != shipmentID {
		return domain.NewReferenceError(entity, "docId", id.String())
	}
	return nil
}

// ResolveIrregularity closes an open irregularity with a resolution note
func (s *DocumentService) ResolveIrregularity(ctx context.Context, id uuid.UUID, resolution string) (*domain.Irregularity, error) {
	if resolution == "" {
		return nil, domain.NewValidationError("Irregularity", "resolution", "required")
	}
	var irr *domain.Irregularity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.documentRepo.WithTx(tx)
		locked, err := repo.LockIrregularity(ctx, id)
		if err != nil {
			return notFound(err, "irregularity")
		}
		if locked.Status != domain.IrregularityOpen {
			return domain.NewTransitionError("Irregularity", id, locked.Status, domain.IrregularityResolved, "already resolved")
		}
		at := s.now()
		locked.Status = domain.IrregularityResolved
		locked.Resolution = resolution
		locked.ResolvedAt = &at
		if err := repo.SaveIrregularity(ctx, locked); err != nil {
			return fmt.Errorf("failed to resolve irregularity: %w", err)
		}
		irr = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return irr, nil
}

// ListIrregularities returns a shipment's irregularities
func (s *DocumentService) ListIrregularities(ctx context.Context, shipmentID uuid.UUID) ([]domain.Irregularity, error) {
	return s.documentRepo.ListIrregularities(ctx, shipmentID)
}
