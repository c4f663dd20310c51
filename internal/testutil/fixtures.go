package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"github.com/stretchr/testify/require"
)

// Codes loaded by SeedReferenceData
const (
	CustomerCode    = "ACME"
	CashCustomer    = "CASHCO"
	SeaCarrierCode  = "MAEU"
	AirCarrierCode  = "KEAIR"
	PartnerCode     = "AGENTUS"
	TruckerCode     = "TRK01"
	BrokerCode      = "BRK01"
	OriginPort      = "KRPUS"
	DestPort        = "USLAX"
	OriginAirport   = "KRICN"
	DestAirport     = "USJFK"
	HSCodeMachinery = "847130"
	ChargeOceanFrt  = "OFR"
	ChargeHandling  = "THC"
)

// SeedReferenceData loads the masters every scenario needs
func SeedReferenceData(t *testing.T, svc *service.Services) {
	t.Helper()
	ctx := context.Background()
	refs := svc.References
	parties := svc.Parties

	for _, c := range []domain.Country{{Code: "KR", Name: "Korea"}, {Code: "US", Name: "United States"}} {
		c := c
		_, err := refs.UpsertCountry(ctx, &c)
		require.NoError(t, err)
	}
	for _, c := range []domain.Currency{
		{Code: "KRW", Name: "Korean Won", DecimalPlaces: 0},
		{Code: "USD", Name: "US Dollar", DecimalPlaces: 2},
	} {
		c := c
		_, err := refs.UpsertCurrency(ctx, &c)
		require.NoError(t, err)
	}
	for _, p := range []domain.Port{
		{Code: OriginPort, Name: "Busan", CountryCode: "KR", PortType: domain.PortTypeSea},
		{Code: DestPort, Name: "Los Angeles", CountryCode: "US", PortType: domain.PortTypeSea},
		{Code: OriginAirport, Name: "Incheon", CountryCode: "KR", PortType: domain.PortTypeAir},
		{Code: DestAirport, Name: "New York JFK", CountryCode: "US", PortType: domain.PortTypeAir},
	} {
		p := p
		_, err := refs.UpsertPort(ctx, &p)
		require.NoError(t, err)
	}
	for _, c := range []domain.CommonCode{
		{GroupCode: domain.CodeGroupIncoterms, Code: "FOB", Name: "Free On Board"},
		{GroupCode: domain.CodeGroupChargeCode, Code: ChargeOceanFrt, Name: "Ocean Freight"},
		{GroupCode: domain.CodeGroupChargeCode, Code: ChargeHandling, Name: "Terminal Handling"},
	} {
		c := c
		_, err := refs.UpsertCommonCode(ctx, &c)
		require.NoError(t, err)
	}
	_, err := refs.UpsertHSCode(ctx, &domain.HSCode{
		Code:        HSCodeMachinery,
		Description: "Portable computers",
		DutyRate:    decimal.NewFromInt(8),
		VATRate:     decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	_, err = parties.UpsertCustomer(ctx, &domain.Customer{
		Code:            CustomerCode,
		Name:            "Acme Trading",
		CustomerType:    domain.CustomerTypeBoth,
		CountryCode:     "KR",
		CreditLimit:     decimal.NewFromInt(100_000_000),
		CreditCurrency:  "KRW",
		PaymentTermDays: 30,
	})
	require.NoError(t, err)
	_, err = parties.UpsertCustomer(ctx, &domain.Customer{
		Code:         CashCustomer,
		Name:         "Cash Only Ltd",
		CustomerType: domain.CustomerTypeShipper,
		CountryCode:  "KR",
	})
	require.NoError(t, err)
	_, err = parties.UpsertCarrier(ctx, &domain.Carrier{Code: SeaCarrierCode, Name: "Maersk", CarrierType: "SEA", SCAC: "MAEU"})
	require.NoError(t, err)
	_, err = parties.UpsertCarrier(ctx, &domain.Carrier{Code: AirCarrierCode, Name: "Korean Air", CarrierType: "AIR", IATAPrefix: "180"})
	require.NoError(t, err)
	_, err = parties.UpsertPartner(ctx, &domain.Partner{Code: PartnerCode, Name: "US Agent", CountryCode: "US"})
	require.NoError(t, err)
	_, err = parties.UpsertTrucker(ctx, &domain.Trucker{Code: TruckerCode, Name: "Fast Trucks"})
	require.NoError(t, err)
	_, err = parties.UpsertBroker(ctx, &domain.CustomsBroker{Code: BrokerCode, Name: "Clear Customs"})
	require.NoError(t, err)
}

// Date returns midnight UTC of the given day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecPtr parses a decimal literal and returns its address
func DecPtr(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}

// CreateSeaShipment opens a DRAFT sea export shipment for the seeded customer
func CreateSeaShipment(t *testing.T, svc *service.Services) *domain.Shipment {
	t.Helper()
	shipment, err := svc.Shipments.CreateShipment(context.Background(), &domain.ShipmentRequest{
		TransportMode:  domain.TransportModeSea,
		TradeType:      domain.TradeTypeExport,
		Incoterm:       "FOB",
		CustomerCode:   CustomerCode,
		ShipperCode:    CustomerCode,
		CarrierCode:    SeaCarrierCode,
		OriginCountry:  "KR",
		OriginPortCode: OriginPort,
		DestCountry:    "US",
		DestPortCode:   DestPort,
		PackageQty:     100,
		GrossWeightKg:  Dec("12000"),
		VolumeCBM:      Dec("60"),
		DeclaredValue:  domain.NewMoney(Dec("50000"), "USD"),
	})
	require.NoError(t, err)
	return shipment
}

// CreateAirShipment opens a DRAFT air export shipment for the seeded customer
func CreateAirShipment(t *testing.T, svc *service.Services) *domain.Shipment {
	t.Helper()
	shipment, err := svc.Shipments.CreateShipment(context.Background(), &domain.ShipmentRequest{
		TransportMode:  domain.TransportModeAir,
		TradeType:      domain.TradeTypeExport,
		CustomerCode:   CustomerCode,
		CarrierCode:    AirCarrierCode,
		OriginPortCode: OriginAirport,
		DestPortCode:   DestAirport,
		PackageQty:     10,
		GrossWeightKg:  Dec("500"),
		VolumeCBM:      Dec("2"),
	})
	require.NoError(t, err)
	return shipment
}

// CreateVoyage registers a voyage with one space block
func CreateVoyage(t *testing.T, svc *service.Services, containerType string, total int) *domain.OceanSchedule {
	t.Helper()
	etd := time.Now().UTC().AddDate(0, 0, 7).Truncate(time.Hour)
	schedule, err := svc.Scheduling.CreateOceanSchedule(context.Background(), &domain.CreateOceanScheduleRequest{
		CarrierCode: SeaCarrierCode,
		VesselName:  "MAERSK ESSEN",
		VoyageNo:    "123E",
		POLCode:     OriginPort,
		PODCode:     DestPort,
		ETD:         etd,
		ETA:         etd.AddDate(0, 0, 14),
		Spaces:      []domain.OceanSpaceRequest{{ContainerType: containerType, TotalQty: total}},
	})
	require.NoError(t, err)
	return schedule
}

// BookContainers requests and confirms an ocean booking for qty containers
func BookContainers(t *testing.T, svc *service.Services, shipmentID, scheduleID uuid.UUID, containerType string, qty int) (*domain.OceanBooking, error) {
	t.Helper()
	ctx := context.Background()
	booking, err := svc.Bookings.RequestOceanBooking(ctx, &domain.OceanBookingRequest{
		ShipmentID: shipmentID,
		ScheduleID: scheduleID,
		Containers: []domain.BookingContainerRequest{{ContainerType: containerType, Qty: qty}},
	})
	require.NoError(t, err)
	return svc.Bookings.ConfirmOceanBooking(ctx, booking.ID)
}
