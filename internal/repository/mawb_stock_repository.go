package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// MAWBStockRepository handles MAWB number stock blocks and their serials
type MAWBStockRepository struct {
	db *gorm.DB
}

// NewMAWBStockRepository creates a new MAWB stock repository
func NewMAWBStockRepository(db *gorm.DB) *MAWBStockRepository {
	return &MAWBStockRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *MAWBStockRepository) WithTx(tx *gorm.DB) *MAWBStockRepository {
	return &MAWBStockRepository{db: tx}
}

// CreateStock inserts a stock block header
func (r *MAWBStockRepository) CreateStock(ctx context.Context, stock *domain.MAWBStock) error {
	return r.db.WithContext(ctx).Omit("Serials").Create(stock).Error
}

// CreateSerials inserts the serials of a stock block in batches
func (r *MAWBStockRepository) CreateSerials(ctx context.Context, serials []domain.MAWBSerial) error {
	if len(serials) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&serials, 200).Error
}

// ExistingNumbers returns which of the MAWB numbers are already registered
func (r *MAWBStockRepository) ExistingNumbers(ctx context.Context, numbers []string) ([]string, error) {
	var found []string
	err := r.db.WithContext(ctx).Model(&domain.MAWBSerial{}).
		Where("mawb_no IN ?", numbers).
		Pluck("mawb_no", &found).Error
	return found, err
}

// GetStock retrieves a stock block without serials
func (r *MAWBStockRepository) GetStock(ctx context.Context, id uuid.UUID) (*domain.MAWBStock, error) {
	var stock domain.MAWBStock
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&stock).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

// ListStocks returns the stock blocks of a carrier, oldest first
func (r *MAWBStockRepository) ListStocks(ctx context.Context, carrierCode string) ([]domain.MAWBStock, error) {
	var stocks []domain.MAWBStock
	err := r.db.WithContext(ctx).
		Where("carrier_code = ?", carrierCode).
		Order("received_at ASC, start_serial ASC").
		Find(&stocks).Error
	return stocks, err
}

// LockNextAvailable locks the lowest AVAILABLE serial of the carrier's stock.
// Returns gorm.ErrRecordNotFound when every serial is used.
func (r *MAWBStockRepository) LockNextAvailable(ctx context.Context, carrierCode string) (*domain.MAWBSerial, error) {
	var serial domain.MAWBSerial
	err := forUpdate(r.db.WithContext(ctx)).
		Joins("JOIN mawb_stocks ON mawb_stocks.id = mawb_serials.stock_id AND mawb_stocks.deleted_at IS NULL").
		Where("mawb_stocks.carrier_code = ? AND mawb_serials.status = ?", carrierCode, domain.MAWBSerialAvailable).
		Order("mawb_stocks.received_at ASC, mawb_serials.seq ASC").
		First(&serial).Error
	if err != nil {
		return nil, err
	}
	return &serial, nil
}

// LockSerialByNumber locks a specific serial by MAWB number
func (r *MAWBStockRepository) LockSerialByNumber(ctx context.Context, mawbNo string) (*domain.MAWBSerial, error) {
	var serial domain.MAWBSerial
	if err := forUpdate(r.db.WithContext(ctx)).Where("mawb_no = ?", mawbNo).First(&serial).Error; err != nil {
		return nil, err
	}
	return &serial, nil
}

// MarkUsed flips an AVAILABLE serial to USED. The status guard in the WHERE clause
// makes a second allocation of the same serial affect no rows.
func (r *MAWBStockRepository) MarkUsed(ctx context.Context, serial *domain.MAWBSerial, shipmentID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(serial).
		Where("status = ?", domain.MAWBSerialAvailable).
		Updates(map[string]interface{}{
			"status":      domain.MAWBSerialUsed,
			"shipment_id": shipmentID,
			"used_at":     at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	serial.Status = domain.MAWBSerialUsed
	serial.ShipmentID = &shipmentID
	serial.UsedAt = &at
	return true, nil
}

// Summary counts serials by status for a stock block
func (r *MAWBStockRepository) Summary(ctx context.Context, stockID uuid.UUID) (*domain.MAWBStockSummary, error) {
	stock, err := r.GetStock(ctx, stockID)
	if err != nil {
		return nil, err
	}

	type row struct {
		Status domain.MAWBSerialStatus
		Count  int
	}
	var rows []row
	err = r.db.WithContext(ctx).Model(&domain.MAWBSerial{}).
		Select("status, COUNT(*) AS count").
		Where("stock_id = ?", stockID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &domain.MAWBStockSummary{StockID: stockID, TotalQty: stock.TotalQty}
	for _, c := range rows {
		switch c.Status {
		case domain.MAWBSerialAvailable:
			summary.AvailableQty = c.Count
		case domain.MAWBSerialUsed:
			summary.UsedQty = c.Count
		}
	}
	return summary, nil
}

// DuplicateUsedNumbers returns MAWB numbers marked USED more than once
func (r *MAWBStockRepository) DuplicateUsedNumbers(ctx context.Context) ([]string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).Model(&domain.MAWBSerial{}).
		Select("mawb_no").
		Where("status = ?", domain.MAWBSerialUsed).
		Group("mawb_no").
		Having("COUNT(*) > 1").
		Pluck("mawb_no", &numbers).Error
	return numbers, err
}
