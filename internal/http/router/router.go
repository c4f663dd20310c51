package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/straye-as/fms-api/internal/auth"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/http/handler"
	"github.com/straye-as/fms-api/internal/http/middleware"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted under /api/v1
type Handlers struct {
	Auth        *handler.AuthHandler
	Attachments *handler.AttachmentHandler
	Reference   *handler.ReferenceHandler
	Parties     *handler.PartyHandler
	Scheduling  *handler.SchedulingHandler
	Orders      *handler.OrderHandler
	Shipments   *handler.ShipmentHandler
	Bookings    *handler.BookingHandler
	Documents   *handler.DocumentHandler
	Customs     *handler.CustomsHandler
	Notices     *handler.NoticeHandler
	Transport   *handler.TransportHandler
	Billing     *handler.BillingHandler
	Health      *handler.HealthHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	h              Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		h:              handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recoverer(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	if rt.cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(time.Duration(rt.cfg.Server.RequestTimeout) * time.Second))
	}

	// Probes
	r.Get("/health", rt.h.Health.Live)
	r.Get("/health/db", rt.h.Health.Database)
	r.Get("/health/ready", rt.h.Health.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.Limit)
		r.Use(rt.authMiddleware.RequireWrite)

		r.Get("/auth/me", rt.h.Auth.Me)
		r.With(rt.authMiddleware.RequireRole(auth.RoleAdmin)).Post("/auth/tokens", rt.h.Auth.IssueToken)

		r.Route("/reference", func(r chi.Router) {
			r.Get("/countries", rt.h.Reference.ListCountries)
			r.Get("/currencies", rt.h.Reference.ListCurrencies)
			r.Get("/ports", rt.h.Reference.ListPorts)
			r.Get("/ports/{code}", rt.h.Reference.GetPort)
			r.Get("/common-codes/{group}", rt.h.Reference.ListCommonCodes)
			r.Get("/exchange-rates", rt.h.Reference.ListExchangeRates)
			r.Get("/exchange-rates/lookup", rt.h.Reference.LookupExchangeRate)

			// Master data maintenance
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireRole(auth.RoleAdmin))
				r.Put("/countries", rt.h.Reference.UpsertCountry)
				r.Put("/currencies", rt.h.Reference.UpsertCurrency)
				r.Put("/ports", rt.h.Reference.UpsertPort)
				r.Post("/ports/{code}/deactivate", rt.h.Reference.DeactivatePort)
				r.Put("/common-codes", rt.h.Reference.UpsertCommonCode)
				r.Put("/hs-codes", rt.h.Reference.UpsertHSCode)
			})
			r.With(rt.authMiddleware.RequireRole(auth.RoleAccounting)).
				Put("/exchange-rates", rt.h.Reference.SetExchangeRate)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", rt.h.Parties.ListCustomers)
			r.Put("/", rt.h.Parties.UpsertCustomer)
			r.Get("/{code}", rt.h.Parties.GetCustomer)
			r.Post("/{code}/deactivate", rt.h.Parties.DeactivateCustomer)
		})
		r.Route("/carriers", func(r chi.Router) {
			r.Get("/", rt.h.Parties.ListCarriers)
			r.Put("/", rt.h.Parties.UpsertCarrier)
			r.Get("/{code}", rt.h.Parties.GetCarrier)
			r.Post("/{code}/deactivate", rt.h.Parties.DeactivateCarrier)
		})
		r.Put("/partners", rt.h.Parties.UpsertPartner)
		r.Get("/partners/{code}", rt.h.Parties.GetPartner)
		r.Put("/truckers", rt.h.Parties.UpsertTrucker)
		r.Put("/customs-brokers", rt.h.Parties.UpsertBroker)
		r.With(rt.authMiddleware.RequireRole(auth.RoleAdmin)).Put("/users", rt.h.Parties.UpsertUser)

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/ocean", rt.h.Scheduling.SearchOceanSchedules)
			r.Post("/ocean", rt.h.Scheduling.CreateOceanSchedule)
			r.Put("/ocean/allocations", rt.h.Scheduling.AllocateSpace)
			r.Get("/ocean/spaces/{spaceId}/allocations", rt.h.Scheduling.ListAllocations)
			r.Get("/ocean/{id}", rt.h.Scheduling.GetOceanSchedule)
			r.Post("/ocean/{id}/spaces", rt.h.Scheduling.AddOceanSpace)
			r.Put("/ocean/{id}/status", rt.h.Scheduling.UpdateOceanScheduleStatus)
			r.Get("/air", rt.h.Scheduling.SearchAirSchedules)
			r.Post("/air", rt.h.Scheduling.CreateAirSchedule)
			r.Get("/air/{id}", rt.h.Scheduling.GetAirSchedule)
			r.Put("/air/{id}/status", rt.h.Scheduling.UpdateAirScheduleStatus)
		})
		r.Route("/mawb-stocks", func(r chi.Router) {
			r.Get("/", rt.h.Scheduling.ListStocks)
			r.Post("/", rt.h.Scheduling.RegisterMAWBStock)
			r.Get("/{id}/summary", rt.h.Scheduling.StockSummary)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", rt.h.Orders.List)
			r.Post("/", rt.h.Orders.Create)
			r.Get("/{id}", rt.h.Orders.Get)
			r.Post("/{id}/confirm", rt.h.Orders.Confirm)
			r.Post("/{id}/cancel", rt.h.Orders.Cancel)
		})

		r.Route("/shipments", func(r chi.Router) {
			r.Get("/", rt.h.Shipments.List)
			r.Post("/", rt.h.Shipments.Create)
			r.Get("/by-number/{shipmentNo}", rt.h.Shipments.GetByNumber)
			r.Get("/{id}", rt.h.Shipments.Get)
			r.Put("/{id}", rt.h.Shipments.UpdateDraft)
			r.Delete("/{id}", rt.h.Shipments.Delete)
			r.Post("/{id}/transitions", rt.h.Shipments.Transition)
			r.Post("/{id}/cancel", rt.h.Shipments.Cancel)
			r.Get("/{id}/events", rt.h.Shipments.History)
			r.Post("/{id}/events", rt.h.Shipments.RecordEvent)
			r.Get("/{id}/warnings", rt.h.Shipments.Warnings)
			r.Get("/{id}/bookings", rt.h.Bookings.ListByShipment)
			r.Get("/{id}/documents", rt.h.Documents.ListByShipment)
			r.Get("/{id}/declarations", rt.h.Customs.ListByShipment)
			r.Get("/{id}/pre-alerts", rt.h.Notices.ListPreAlerts)
			r.Get("/{id}/arrival-notices", rt.h.Notices.ListArrivalNotices)
			r.Get("/{id}/transport-orders", rt.h.Transport.ListByShipment)
			r.Get("/{id}/demurrage", rt.h.Transport.ListDemurrage)
			r.Get("/{id}/charges", rt.h.Billing.ListCharges)
			r.Get("/{id}/profit", rt.h.Billing.Profit)
			r.With(rt.authMiddleware.RequireRole(auth.RoleAccounting)).Post("/{id}/profit", rt.h.Billing.SnapshotProfit)
		})
		r.Get("/tracking-events", rt.h.Shipments.EventsByCode)
		r.Get("/warnings", rt.h.Shipments.WarningsByRule)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/ocean", rt.h.Bookings.RequestOcean)
			r.Get("/ocean/{id}", rt.h.Bookings.GetOcean)
			r.Post("/ocean/{id}/confirm", rt.h.Bookings.ConfirmOcean)
			r.Post("/ocean/{id}/cancel", rt.h.Bookings.CancelOcean)
			r.Post("/air", rt.h.Bookings.RequestAir)
			r.Get("/air/{id}", rt.h.Bookings.GetAir)
			r.Post("/air/{id}/confirm", rt.h.Bookings.ConfirmAir)
			r.Post("/air/{id}/cancel", rt.h.Bookings.CancelAir)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/master-bls", rt.h.Documents.CreateMasterBL)
			r.Get("/master-bls/{id}", rt.h.Documents.GetMasterBL)
			r.Post("/master-bls/{id}/issue", rt.h.Documents.IssueMasterBL)
			r.Post("/master-bls/{id}/surrender", rt.h.Documents.SurrenderMasterBL)
			r.Post("/master-bls/{id}/release", rt.h.Documents.ReleaseMasterBL)
			r.Get("/master-bls/{id}/house-bls", rt.h.Documents.ListHouseBLsByMaster)
			r.Get("/master-bls/{id}/containers", rt.h.Documents.ListContainers)
			r.Post("/house-bls", rt.h.Documents.CreateHouseBL)
			r.Get("/house-bls/{id}", rt.h.Documents.GetHouseBL)
			r.Post("/house-bls/{id}/issue", rt.h.Documents.IssueHouseBL)
			r.Post("/house-bls/{id}/surrender", rt.h.Documents.SurrenderHouseBL)
			r.Post("/house-bls/{id}/release", rt.h.Documents.ReleaseHouseBL)
			r.Post("/containers", rt.h.Documents.AddContainer)
			r.Post("/master-awbs", rt.h.Documents.CreateMasterAWB)
			r.Get("/master-awbs/{id}", rt.h.Documents.GetMasterAWB)
			r.Post("/master-awbs/{id}/issue", rt.h.Documents.IssueMasterAWB)
			r.Post("/master-awbs/{id}/release", rt.h.Documents.ReleaseMasterAWB)
			r.Get("/master-awbs/{id}/house-awbs", rt.h.Documents.ListHouseAWBsByMaster)
			r.Post("/house-awbs", rt.h.Documents.CreateHouseAWB)
			r.Get("/house-awbs/{id}", rt.h.Documents.GetHouseAWB)
			r.Post("/house-awbs/{id}/issue", rt.h.Documents.IssueHouseAWB)
			r.Post("/house-awbs/{id}/release", rt.h.Documents.ReleaseHouseAWB)
		})
		r.Post("/irregularities", rt.h.Documents.ReportIrregularity)
		r.Post("/irregularities/{id}/resolve", rt.h.Documents.ResolveIrregularity)

		r.Route("/customs/declarations", func(r chi.Router) {
			r.Post("/", rt.h.Customs.Create)
			r.Get("/{id}", rt.h.Customs.Get)
			r.Post("/{id}/items", rt.h.Customs.AddItem)
			r.Post("/{id}/submit", rt.h.Customs.Submit)
			r.Post("/{id}/inspection", rt.h.Customs.StartInspection)
			r.Post("/{id}/inspection/result", rt.h.Customs.RecordInspection)
			r.Get("/{id}/inspections", rt.h.Customs.ListInspections)
			r.Post("/{id}/clear", rt.h.Customs.Clear)
			r.Post("/{id}/release", rt.h.Customs.Release)
			r.Post("/{id}/reject", rt.h.Customs.Reject)
			r.Post("/{id}/reopen", rt.h.Customs.Reopen)
			r.Post("/{id}/responses", rt.h.Customs.GatewayResponse)
			r.Get("/{id}/edi-logs", rt.h.Customs.ListEDILogs)
		})

		r.Route("/notices", func(r chi.Router) {
			r.Post("/pre-alert-settings", rt.h.Notices.CreateSetting)
			r.Post("/arrival", rt.h.Notices.IssueArrivalNotice)
		})

		r.Route("/transport", func(r chi.Router) {
			r.Post("/orders", rt.h.Transport.CreateOrder)
			r.Post("/orders/{id}/dispatch", rt.h.Transport.Dispatch)
			r.Post("/orders/{id}/deliver", rt.h.Transport.Deliver)
			r.Post("/orders/{id}/cancel", rt.h.Transport.Cancel)
			r.Post("/demurrage", rt.h.Transport.CalculateDemurrage)
		})

		r.Route("/billing", func(r chi.Router) {
			r.Get("/invoices", rt.h.Billing.ListInvoices)
			r.Get("/invoices/{id}", rt.h.Billing.GetInvoice)
			r.Get("/payments/{id}", rt.h.Billing.GetPayment)
			r.Get("/payments/{id}/gain-loss", rt.h.Billing.ListGainLoss)
			r.Get("/credit-checks", rt.h.Billing.ListCreditChecks)
			r.Get("/aging", rt.h.Billing.Aging)

			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireRole(auth.RoleAccounting))
				r.Post("/tariffs", rt.h.Billing.CreateTariff)
				r.Post("/charges", rt.h.Billing.PostCharge)
				r.Post("/charges/rated", rt.h.Billing.RateCharge)
				r.Post("/invoices", rt.h.Billing.IssueInvoice)
				r.Post("/invoices/{id}/cancel", rt.h.Billing.CancelInvoice)
				r.Post("/payments", rt.h.Billing.ApplyPayment)
				r.Post("/credit-checks", rt.h.Billing.CheckCredit)
				r.Post("/aging", rt.h.Billing.SnapshotAging)
			})
		})

		r.Route("/attachments", func(r chi.Router) {
			r.Post("/owners/{refType}/{refId}", rt.h.Attachments.Upload)
			r.Get("/owners/{refType}/{refId}", rt.h.Attachments.List)
			r.Get("/{id}/content", rt.h.Attachments.Download)
			r.Delete("/{id}", rt.h.Attachments.Delete)
		})
	})

	return r
}
