package service

import (
	"github.com/straye-as/fms-api/internal/cache"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/messaging"
	"github.com/straye-as/fms-api/internal/repository"
	"github.com/straye-as/fms-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services is the wired service graph shared by the API server and the CLI
type Services struct {
	References  *ReferenceService
	Parties     *PartyService
	Numbers     *NumberSequenceService
	Warnings    *WarningService
	Scheduling  *SchedulingService
	Notices     *NoticeService
	Shipments   *ShipmentService
	Billing     *BillingService
	Orders      *OrderService
	Bookings    *BookingService
	Documents   *DocumentService
	Tracking    *TrackingService
	Customs     *CustomsService
	Transport   *TransportService
	Attachments *AttachmentService
}

// NewServices builds every repository and service over one database handle.
// store may be nil for callers that never touch attachments.
func NewServices(
	db *gorm.DB,
	cfg *config.Config,
	rateCache cache.RateCache,
	publisher messaging.Publisher,
	store storage.Storage,
	logger *zap.Logger,
) *Services {
	attachmentRepo := repository.NewAttachmentRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	customsRepo := repository.NewCustomsRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	mawbRepo := repository.NewMAWBStockRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	numberRepo := repository.NewNumberSequenceRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	partyRepo := repository.NewPartyRepository(db)
	refRepo := repository.NewReferenceRepository(db)
	reportRepo := repository.NewReportRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db)
	eventRepo := repository.NewTrackingEventRepository(db)
	transportRepo := repository.NewTransportRepository(db)
	warningRepo := repository.NewWarningRepository(db)

	s := &Services{}
	s.References = NewReferenceService(refRepo, rateCache, logger)
	s.Parties = NewPartyService(partyRepo, refRepo, logger)
	s.Numbers = NewNumberSequenceService(numberRepo, logger)
	s.Warnings = NewWarningService(warningRepo, logger)
	s.Scheduling = NewSchedulingService(db, scheduleRepo, mawbRepo, partyRepo, refRepo, logger)
	s.Notices = NewNoticeService(db, noticeRepo, shipmentRepo, documentRepo, refRepo, s.Numbers, publisher, logger)
	s.Shipments = NewShipmentService(db, shipmentRepo, eventRepo, bookingRepo, documentRepo, customsRepo, refRepo,
		s.Numbers, s.Scheduling, s.Notices, publisher, logger)
	s.Billing = NewBillingService(db, billingRepo, shipmentRepo, bookingRepo, orderRepo, partyRepo, refRepo, reportRepo,
		s.References, s.Numbers, cfg.Billing, logger)
	s.Orders = NewOrderService(db, orderRepo, refRepo, reportRepo, s.Shipments, s.Billing, s.References, s.Warnings, s.Numbers, logger)
	s.Bookings = NewBookingService(db, bookingRepo, shipmentRepo, scheduleRepo, s.Scheduling, s.Shipments, s.Numbers,
		cfg.Billing.VolumeWeightFactor, logger)
	s.Documents = NewDocumentService(db, documentRepo, shipmentRepo, bookingRepo, refRepo, s.Scheduling, s.Notices,
		s.Warnings, s.Numbers, publisher, cfg.Billing.VolumeWeightFactor, logger)
	s.Tracking = NewTrackingService(db, eventRepo, shipmentRepo, s.Shipments, s.Documents, logger)
	s.Customs = NewCustomsService(db, customsRepo, shipmentRepo, refRepo, s.Billing, s.Numbers, publisher, logger)
	s.Transport = NewTransportService(db, transportRepo, shipmentRepo, refRepo, s.Numbers, logger)
	if store != nil {
		s.Attachments = NewAttachmentService(attachmentRepo, store, cfg.Storage.MaxUploadSizeMB*1024*1024, logger)
	}
	return s
}
