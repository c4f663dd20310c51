package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// DocumentRepository handles bills of lading, air waybills, containers,
// house cargo lines and irregularity reports
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *DocumentRepository) WithTx(tx *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

// CreateMasterBL inserts a master bill of lading
func (r *DocumentRepository) CreateMasterBL(ctx context.Context, m *domain.MasterBL) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// GetMasterBL retrieves a master bill of lading
func (r *DocumentRepository) GetMasterBL(ctx context.Context, id uuid.UUID) (*domain.MasterBL, error) {
	var m domain.MasterBL
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// LockMasterBL retrieves a master bill of lading under a row lock
func (r *DocumentRepository) LockMasterBL(ctx context.Context, id uuid.UUID) (*domain.MasterBL, error) {
	var m domain.MasterBL
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveMasterBL saves a master bill of lading
func (r *DocumentRepository) SaveMasterBL(ctx context.Context, m *domain.MasterBL) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// ListMasterBLs returns a shipment's master bills of lading
func (r *DocumentRepository) ListMasterBLs(ctx context.Context, shipmentID uuid.UUID) ([]domain.MasterBL, error) {
	var list []domain.MasterBL
	err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Order("created_at ASC").Find(&list).Error
	return list, err
}

// CountIssuedMasters counts MBLs and MAWBs of a shipment that are ISSUED or later
func (r *DocumentRepository) CountIssuedMasters(ctx context.Context, shipmentID uuid.UUID) (int64, error) {
	issued := []domain.DocumentStatus{domain.DocumentStatusIssued, domain.DocumentStatusSurrendered, domain.DocumentStatusReleased}
	var mbl, mawb int64
	if err := r.db.WithContext(ctx).Model(&domain.MasterBL{}).
		Where("shipment_id = ? AND status IN ?", shipmentID, issued).
		Count(&mbl).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&domain.MasterAWB{}).
		Where("shipment_id = ? AND status IN ?", shipmentID, issued).
		Count(&mawb).Error; err != nil {
		return 0, err
	}
	return mbl + mawb, nil
}

// CreateHouseBL inserts a house bill of lading
func (r *DocumentRepository) CreateHouseBL(ctx context.Context, h *domain.HouseBL) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// GetHouseBL retrieves a house bill of lading with its cargo lines
func (r *DocumentRepository) GetHouseBL(ctx context.Context, id uuid.UUID) (*domain.HouseBL, error) {
	var h domain.HouseBL
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&h).Error; err != nil {
		return nil, err
	}
	lines, err := r.ListCargoLines(ctx, domain.DocTypeHBL, h.ID)
	if err != nil {
		return nil, err
	}
	h.Lines = lines
	return &h, nil
}

// LockHouseBL retrieves a house bill of lading under a row lock
func (r *DocumentRepository) LockHouseBL(ctx context.Context, id uuid.UUID) (*domain.HouseBL, error) {
	var h domain.HouseBL
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

// SaveHouseBL saves a house bill of lading header
func (r *DocumentRepository) SaveHouseBL(ctx context.Context, h *domain.HouseBL) error {
	return r.db.WithContext(ctx).Save(h).Error
}

// ListHouseBLsByMaster returns the houses consolidated under a master
func (r *DocumentRepository) ListHouseBLsByMaster(ctx context.Context, mblID uuid.UUID) ([]domain.HouseBL, error) {
	var list []domain.HouseBL
	err := r.db.WithContext(ctx).Where("mbl_id = ?", mblID).Order("hbl_no ASC").Find(&list).Error
	return list, err
}

// ListHouseBLsByShipment returns the houses of a shipment
func (r *DocumentRepository) ListHouseBLsByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.HouseBL, error) {
	var list []domain.HouseBL
	err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Order("hbl_no ASC").Find(&list).Error
	return list, err
}

// CreateMasterAWB inserts a master air waybill
func (r *DocumentRepository) CreateMasterAWB(ctx context.Context, m *domain.MasterAWB) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// GetMasterAWB retrieves a master air waybill
func (r *DocumentRepository) GetMasterAWB(ctx context.Context, id uuid.UUID) (*domain.MasterAWB, error) {
	var m domain.MasterAWB
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// LockMasterAWB retrieves a master air waybill under a row lock
func (r *DocumentRepository) LockMasterAWB(ctx context.Context, id uuid.UUID) (*domain.MasterAWB, error) {
	var m domain.MasterAWB
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveMasterAWB saves a master air waybill
func (r *DocumentRepository) SaveMasterAWB(ctx context.Context, m *domain.MasterAWB) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// ListMasterAWBs returns a shipment's master air waybills
func (r *DocumentRepository) ListMasterAWBs(ctx context.Context, shipmentID uuid.UUID) ([]domain.MasterAWB, error) {
	var list []domain.MasterAWB
	err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Order("created_at ASC").Find(&list).Error
	return list, err
}

// GetHouseAWB retrieves a house air waybill with its cargo lines
func (r *DocumentRepository) GetHouseAWB(ctx context.Context, id uuid.UUID) (*domain.HouseAWB, error) {
	var h domain.HouseAWB
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&h).Error; err != nil {
		return nil, err
	}
	lines, err := r.ListCargoLines(ctx, domain.DocTypeHAWB, h.ID)
	if err != nil {
		return nil, err
	}
	h.Lines = lines
	return &h, nil
}

// CreateHouseAWB inserts a house air waybill
func (r *DocumentRepository) CreateHouseAWB(ctx context.Context, h *domain.HouseAWB) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// LockHouseAWB retrieves a house air waybill under a row lock
func (r *DocumentRepository) LockHouseAWB(ctx context.Context, id uuid.UUID) (*domain.HouseAWB, error) {
	var h domain.HouseAWB
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

// SaveHouseAWB saves a house air waybill header
func (r *DocumentRepository) SaveHouseAWB(ctx context.Context, h *domain.HouseAWB) error {
	return r.db.WithContext(ctx).Save(h).Error
}

// ListHouseAWBsByMaster returns the house waybills consolidated under a master
func (r *DocumentRepository) ListHouseAWBsByMaster(ctx context.Context, mawbID uuid.UUID) ([]domain.HouseAWB, error) {
	var list []domain.HouseAWB
	err := r.db.WithContext(ctx).Where("mawb_id = ?", mawbID).Order("hawb_no ASC").Find(&list).Error
	return list, err
}

// CreateCargoLines inserts house cargo lines
func (r *DocumentRepository) CreateCargoLines(ctx context.Context, lines []domain.HouseCargoLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

// ListCargoLines returns the cargo lines of one house document
func (r *DocumentRepository) ListCargoLines(ctx context.Context, docType string, docID uuid.UUID) ([]domain.HouseCargoLine, error) {
	var lines []domain.HouseCargoLine
	err := r.db.WithContext(ctx).
		Where("doc_type = ? AND doc_id = ?", docType, docID).
		Order("line_no ASC").
		Find(&lines).Error
	return lines, err
}

// HouseLinesInContainer returns the HBL cargo lines of a shipment stuffed in a container
func (r *DocumentRepository) HouseLinesInContainer(ctx context.Context, shipmentID uuid.UUID, containerNo string) ([]domain.HouseCargoLine, error) {
	var lines []domain.HouseCargoLine
	err := r.db.WithContext(ctx).
		Joins("JOIN house_bls ON house_bls.id = house_cargo_lines.doc_id AND house_bls.deleted_at IS NULL").
		Where("house_cargo_lines.doc_type = ? AND house_bls.shipment_id = ? AND house_cargo_lines.container_no = ?",
			domain.DocTypeHBL, shipmentID, containerNo).
		Find(&lines).Error
	return lines, err
}

// CreateContainer inserts a container under a master bill of lading
func (r *DocumentRepository) CreateContainer(ctx context.Context, c *domain.Container) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// ListContainers returns the containers of a master bill of lading
func (r *DocumentRepository) ListContainers(ctx context.Context, mblID uuid.UUID) ([]domain.Container, error) {
	var list []domain.Container
	err := r.db.WithContext(ctx).Where("mbl_id = ?", mblID).Order("container_no ASC").Find(&list).Error
	return list, err
}

// CreateIrregularity inserts an irregularity report
func (r *DocumentRepository) CreateIrregularity(ctx context.Context, i *domain.Irregularity) error {
	return r.db.WithContext(ctx).Create(i).Error
}

// LockIrregularity retrieves an irregularity under a row lock
func (r *DocumentRepository) LockIrregularity(ctx context.Context, id uuid.UUID) (*domain.Irregularity, error) {
	var i domain.Irregularity
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&i).Error; err != nil {
		return nil, err
	}
	return &i, nil
}

// SaveIrregularity saves an irregularity
func (r *DocumentRepository) SaveIrregularity(ctx context.Context, i *domain.Irregularity) error {
	return r.db.WithContext(ctx).Save(i).Error
}

// ListIrregularities returns the irregularities of a shipment
func (r *DocumentRepository) ListIrregularities(ctx context.Context, shipmentID uuid.UUID) ([]domain.Irregularity, error) {
	var list []domain.Irregularity
	err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Order("created_at DESC").Find(&list).Error
	return list, err
}
