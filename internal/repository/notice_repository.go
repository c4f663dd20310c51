package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NoticeRepository handles pre-alert settings, pre-alerts and arrival notices
type NoticeRepository struct {
	db *gorm.DB
}

// NewNoticeRepository creates a new notice repository
func NewNoticeRepository(db *gorm.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *NoticeRepository) WithTx(tx *gorm.DB) *NoticeRepository {
	return &NoticeRepository{db: tx}
}

// CreateSetting inserts a pre-alert setting
func (r *NoticeRepository) CreateSetting(ctx context.Context, s *domain.PreAlertSetting) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// ActiveSettings returns the active settings of a customer applying to a transport mode
func (r *NoticeRepository) ActiveSettings(ctx context.Context, customerCode string, mode domain.TransportMode) ([]domain.PreAlertSetting, error) {
	var settings []domain.PreAlertSetting
	err := r.db.WithContext(ctx).
		Where("customer_code = ? AND is_active = ?", customerCode, true).
		Where("transport_mode = ? OR transport_mode = '' OR transport_mode IS NULL", mode).
		Find(&settings).Error
	return settings, err
}

// UpsertPreAlert schedules a pre-alert, moving the due time of a still pending one.
// Alerts already sent or failed keep their state.
func (r *NoticeRepository) UpsertPreAlert(ctx context.Context, a *domain.PreAlert) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "shipment_id"}, {Name: "setting_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"due_at":     a.DueAt,
				"updated_at": time.Now(),
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Eq{Column: clause.Column{Table: "pre_alerts", Name: "send_status_cd"}, Value: domain.SendStatusPending},
			}},
		}).
		Create(a).Error
}

// ListPreAlerts returns the pre-alerts of a shipment
func (r *NoticeRepository) ListPreAlerts(ctx context.Context, shipmentID uuid.UUID) ([]domain.PreAlert, error) {
	var alerts []domain.PreAlert
	err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Order("due_at ASC").Find(&alerts).Error
	return alerts, err
}

// LockDuePreAlerts locks up to limit pending alerts due by now
func (r *NoticeRepository) LockDuePreAlerts(ctx context.Context, now time.Time, limit int) ([]domain.PreAlert, error) {
	var alerts []domain.PreAlert
	err := forUpdate(r.db.WithContext(ctx)).
		Where("send_status_cd = ? AND due_at <= ?", domain.SendStatusPending, now).
		Order("due_at ASC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}

// SavePreAlert saves a pre-alert
func (r *NoticeRepository) SavePreAlert(ctx context.Context, a *domain.PreAlert) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// CreateArrivalNotice inserts an arrival notice
func (r *NoticeRepository) CreateArrivalNotice(ctx context.Context, n *domain.ArrivalNotice) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// SaveArrivalNotice saves an arrival notice
func (r *NoticeRepository) SaveArrivalNotice(ctx context.Context, n *domain.ArrivalNotice) error {
	return r.db.WithContext(ctx).Save(n).Error
}

// ListArrivalNotices returns a shipment's arrival notices
func (r *NoticeRepository) ListArrivalNotices(ctx context.Context, shipmentID uuid.UUID) ([]domain.ArrivalNotice, error) {
	var notices []domain.ArrivalNotice
	err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Order("created_at ASC").Find(&notices).Error
	return notices, err
}
