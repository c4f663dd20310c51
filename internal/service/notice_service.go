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

const defaultMaxAttempts = 3

// PreAlertDue is the payload for the notification gateway when a pre-alert falls due
type PreAlertDue struct {
	PreAlertID uuid.UUID              `json:"preAlertId"`
	ShipmentID uuid.UUID              `json:"shipmentId"`
	Trigger    domain.PreAlertTrigger `json:"trigger"`
	Recipients string                 `json:"recipients"`
	DueAt      time.Time              `json:"dueAt"`
	Attempt    int                    `json:"attempt"`
}

// ArrivalNoticeIssued is the payload for an arrival notice
type ArrivalNoticeIssued struct {
	NoticeID     uuid.UUID  `json:"noticeId"`
	NoticeNo     string     `json:"noticeNo"`
	ShipmentID   uuid.UUID  `json:"shipmentId"`
	HBLID        *uuid.UUID `json:"hblId,omitempty"`
	ArrivalDate  time.Time  `json:"arrivalDate"`
	LastFreeDate time.Time  `json:"lastFreeDate"`
}

// DispatchResult counts the outcome of one dispatch run
type DispatchResult struct {
	Sent   int `json:"sent"`
	Retry  int `json:"retry"`
	Failed int `json:"failed"`
}

// NoticeService schedules and dispatches pre-alerts and issues arrival notices.
// Delivery is handed to the messaging gateway; the outcome is kept in SendStatus.
type NoticeService struct {
	db           *gorm.DB
	noticeRepo   *repository.NoticeRepository
	shipmentRepo *repository.ShipmentRepository
	documentRepo *repository.DocumentRepository
	refRepo      *repository.ReferenceRepository
	numbers      *NumberSequenceService
	publisher    messaging.Publisher
	logger       *zap.Logger
	now          func() time.Time
}

// NewNoticeService creates a new NoticeService
func NewNoticeService(
	db *gorm.DB,
	noticeRepo *repository.NoticeRepository,
	shipmentRepo *repository.ShipmentRepository,
	documentRepo *repository.DocumentRepository,
	refRepo *repository.ReferenceRepository,
	numbers *NumberSequenceService,
	publisher messaging.Publisher,
	logger *zap.Logger,
) *NoticeService {
	return &NoticeService{
		db:           db,
		noticeRepo:   noticeRepo,
		shipmentRepo: shipmentRepo,
		documentRepo: documentRepo,
		refRepo:      refRepo,
		numbers:      numbers,
		publisher:    publisher,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateSetting registers a customer's pre-alert rule
func (s *NoticeService) CreateSetting(ctx context.Context, req *domain.PreAlertSettingRequest) (*domain.PreAlertSetting, error) {
	if err := validateStruct("PreAlertSetting", req); err != nil {
		return nil, err
	}
	setting := &domain.PreAlertSetting{
		CustomerCode:  normalizeCode(req.CustomerCode),
		TransportMode: req.TransportMode,
		Trigger:       req.Trigger,
		OffsetDays:    req.OffsetDays,
		Recipients:    req.Recipients,
		MaxAttempts:   req.MaxAttempts,
		IsActive:      true,
	}
	if setting.MaxAttempts == 0 {
		setting.MaxAttempts = defaultMaxAttempts
	}
	if err := checkRefs(ctx, s.refRepo, "PreAlertSetting", customerRef("customerCode", setting.CustomerCode)); err != nil {
		return nil, err
	}
	if err := s.noticeRepo.CreateSetting(ctx, setting); err != nil {
		return nil, fmt.Errorf("failed to create pre-alert setting: %w", err)
	}
	return setting, nil
}

// ScheduleShipmentPreAlerts creates or moves the pending pre-alerts of a shipment from
// its current dates. Settings whose trigger date is not known yet are skipped and
// picked up on a later call. Runs inside the caller's transaction.
func (s *NoticeService) ScheduleShipmentPreAlerts(ctx context.Context, tx *gorm.DB, shipment *domain.Shipment) error {
	if shipment.Status == domain.ShipmentStatusCancelled {
		return nil
	}
	repo := s.noticeRepo.WithTx(tx)
	settings, err := repo.ActiveSettings(ctx, shipment.CustomerCode, shipment.TransportMode)
	if err != nil {
		return fmt.Errorf("failed to load pre-alert settings: %w", err)
	}
	if len(settings) == 0 {
		return nil
	}

	var issued *time.Time
	scheduled := 0
	for _, setting := range settings {
		var base *time.Time
		switch setting.Trigger {
		case domain.TriggerETD:
			base = shipment.ETD
		case domain.TriggerATD:
			base = shipment.ATD
		case domain.TriggerETA:
			base = shipment.ETA
		case domain.TriggerBLIssue:
			if issued == nil {
				if issued, err = s.firstIssue(ctx, tx, shipment.ID); err != nil {
					return err
				}
			}
			base = issued
		}
		if base == nil {
			continue
		}

		alert := &domain.PreAlert{
			ShipmentID:  shipment.ID,
			SettingID:   setting.ID,
			Trigger:     setting.Trigger,
			Recipients:  setting.Recipients,
			DueAt:       base.AddDate(0, 0, setting.OffsetDays),
			SendStatus:  domain.SendStatusPending,
			MaxAttempts: setting.MaxAttempts,
		}
		if err := repo.UpsertPreAlert(ctx, alert); err != nil {
			return fmt.Errorf("failed to schedule pre-alert: %w", err)
		}
		scheduled++
	}

	if scheduled > 0 {
		s.logger.Debug("pre-alerts scheduled",
			zap.String("shipment_no", shipment.ShipmentNo),
			zap.Int("count", scheduled))
	}
	return nil
}

// firstIssue returns the earliest issue time of the shipment's master documents
func (s *NoticeService) firstIssue(ctx context.Context, tx *gorm.DB, shipmentID uuid.UUID) (*time.Time, error) {
	docs := s.documentRepo.WithTx(tx)
	var first *time.Time
	keep := func(t *time.Time) {
		if t != nil && (first == nil || t.Before(*first)) {
			first = t
		}
	}
	mbls, err := docs.ListMasterBLs(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list master BLs: %w", err)
	}
	for _, m := range mbls {
		keep(m.IssuedAt)
	}
	mawbs, err := docs.ListMasterAWBs(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list master AWBs: %w", err)
	}
	for _, m := range mawbs {
		keep(m.IssuedAt)
	}
	return first, nil
}

// DispatchDuePreAlerts hands up to limit due alerts to the gateway. Alerts stay locked
// while they are published, so concurrent dispatchers never send the same alert twice
// in one round; a crash after publishing may resend it on the next run.
func (s *NoticeService) DispatchDuePreAlerts(ctx context.Context, now time.Time, limit int) (*DispatchResult, error) {
	if limit <= 0 {
		limit = 100
	}
	result := &DispatchResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.noticeRepo.WithTx(tx)
		alerts, err := repo.LockDuePreAlerts(ctx, now, limit)
		if err != nil {
			return fmt.Errorf("failed to lock due pre-alerts: %w", err)
		}
		for i := range alerts {
			alert := &alerts[i]
			alert.Attempts++
			perr := publishEvent(ctx, s.publisher, s.logger, messaging.EventPreAlertDue, alert.ShipmentID.String(), PreAlertDue{
				PreAlertID: alert.ID,
				ShipmentID: alert.ShipmentID,
				Trigger:    alert.Trigger,
				Recipients: alert.Recipients,
				DueAt:      alert.DueAt,
				Attempt:    alert.Attempts,
			})
			switch {
			case perr == nil:
				sentAt := now
				alert.SendStatus = domain.SendStatusSent
				alert.SentAt = &sentAt
				alert.LastError = ""
				result.Sent++
			case alert.Attempts >= alert.MaxAttempts:
				alert.SendStatus = domain.SendStatusFailed
				alert.LastError = perr.Error()
				result.Failed++
			default:
				alert.LastError = perr.Error()
				result.Retry++
			}
			if err := repo.SavePreAlert(ctx, alert); err != nil {
				return fmt.Errorf("failed to update pre-alert: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Sent+result.Retry+result.Failed > 0 {
		s.logger.Info("pre-alerts dispatched",
			zap.Int("sent", result.Sent),
			zap.Int("retry", result.Retry),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

// ListPreAlerts returns a shipment's pre-alerts
func (s *NoticeService) ListPreAlerts(ctx context.Context, shipmentID uuid.UUID) ([]domain.PreAlert, error) {
	return s.noticeRepo.ListPreAlerts(ctx, shipmentID)
}

// IssueArrivalNotice notifies the consignee of an arrived shipment. The last free day
// is the arrival date plus the free time minus one.
func (s *NoticeService) IssueArrivalNotice(ctx context.Context, req *domain.ArrivalNoticeRequest) (*domain.ArrivalNotice, error) {
	if err := validateStruct("ArrivalNotice", req); err != nil {
		return nil, err
	}

	notice := &domain.ArrivalNotice{
		ShipmentID:   req.ShipmentID,
		HBLID:        req.HBLID,
		FreeTimeDays: req.FreeTimeDays,
		SendStatus:   domain.SendStatusPending,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shipment, err := s.shipmentRepo.WithTx(tx).Lock(ctx, req.ShipmentID)
		if err != nil {
			return notFound(err, "shipment")
		}
		if shipment.Status.Rank() < domain.ShipmentStatusArrived.Rank() || shipment.ATA == nil {
			return domain.NewTransitionError("Shipment", shipment.ID, shipment.Status, shipment.Status,
				"arrival notices need an arrived shipment")
		}
		if notice.HBLID != nil {
			hbl, err := s.documentRepo.WithTx(tx).GetHouseBL(ctx, *notice.HBLID)
			if err != nil || hbl.ShipmentID != shipment.ID {
				return domain.NewReferenceError("ArrivalNotice", "hblId", notice.HBLID.String())
			}
		}

		notice.ArrivalDate = *shipment.ATA
		notice.LastFreeDate = dateOnly(*shipment.ATA).AddDate(0, 0, notice.FreeTimeDays-1)
		number, err := s.numbers.Next(ctx, tx, domain.PrefixArrivalNotice)
		if err != nil {
			return err
		}
		notice.NoticeNo = number
		if err := s.noticeRepo.WithTx(tx).CreateArrivalNotice(ctx, notice); err != nil {
			return fmt.Errorf("failed to create arrival notice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	perr := publishEvent(ctx, s.publisher, s.logger, messaging.EventArrivalNotice, notice.NoticeNo, ArrivalNoticeIssued{
		NoticeID:     notice.ID,
		NoticeNo:     notice.NoticeNo,
		ShipmentID:   notice.ShipmentID,
		HBLID:        notice.HBLID,
		ArrivalDate:  notice.ArrivalDate,
		LastFreeDate: notice.LastFreeDate,
	})
	if perr == nil {
		at := s.now()
		notice.SendStatus = domain.SendStatusSent
		notice.NotifiedAt = &at
	} else {
		notice.SendStatus = domain.SendStatusFailed
	}
	if err := s.noticeRepo.SaveArrivalNotice(ctx, notice); err != nil {
		s.logger.Error("failed to record arrival notice delivery",
			zap.String("notice_no", notice.NoticeNo),
			zap.Error(err))
	}

	s.logger.Info("arrival notice issued",
		zap.String("notice_no", notice.NoticeNo),
		zap.String("send_status", string(notice.SendStatus)))
	return notice, nil
}

// ListArrivalNotices returns a shipment's arrival notices
func (s *NoticeService) ListArrivalNotices(ctx context.Context, shipmentID uuid.UUID) ([]domain.ArrivalNotice, error) {
	return s.noticeRepo.ListArrivalNotices(ctx, shipmentID)
}
