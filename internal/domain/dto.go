package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pagination
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// NewPaginatedResponse wraps a page of results with its totals
func NewPaginatedResponse(data interface{}, total int64, page, pageSize int) *PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Scheduling

type CreateOceanScheduleRequest struct {
	CarrierCode string              `json:"carrierCode" validate:"required,max=20"`
	VesselName  string              `json:"vesselName" validate:"required,max=100"`
	VoyageNo    string              `json:"voyageNo" validate:"required,max=20"`
	POLCode     string              `json:"polCode" validate:"required,max=5"`
	PODCode     string              `json:"podCode" validate:"required,max=5"`
	ETD         time.Time           `json:"etd" validate:"required"`
	ETA         time.Time           `json:"eta" validate:"required"`
	CargoCutoff *time.Time          `json:"cargoCutoff,omitempty"`
	DocCutoff   *time.Time          `json:"docCutoff,omitempty"`
	Spaces      []OceanSpaceRequest `json:"spaces,omitempty" validate:"dive"`
}

type OceanSpaceRequest struct {
	ContainerType string `json:"containerType" validate:"required,max=4"`
	TotalQty      int    `json:"totalQty" validate:"gt=0"`
}

type AllocateSpaceRequest struct {
	SpaceID      uuid.UUID `json:"spaceId" validate:"required"`
	CustomerCode string    `json:"customerCode" validate:"required,max=20"`
	AllocatedQty int       `json:"allocatedQty" validate:"gte=0"`
}

type CreateAirScheduleRequest struct {
	CarrierCode string          `json:"carrierCode" validate:"required,max=20"`
	FlightNo    string          `json:"flightNo" validate:"required,max=10"`
	FlightDate  time.Time       `json:"flightDate" validate:"required"`
	OriginCode  string          `json:"originCode" validate:"required,max=5"`
	DestCode    string          `json:"destCode" validate:"required,max=5"`
	ETD         time.Time       `json:"etd" validate:"required"`
	ETA         time.Time       `json:"eta" validate:"required"`
	MaxWeightKg decimal.Decimal `json:"maxWeightKg"`
}

type RegisterMAWBStockRequest struct {
	CarrierCode   string     `json:"carrierCode" validate:"required,max=20"`
	AirlinePrefix string     `json:"airlinePrefix,omitempty" validate:"omitempty,len=3,numeric"`
	StartSerial   int        `json:"startSerial" validate:"gte=0,lte=9999999"`
	TotalQty      int        `json:"totalQty" validate:"gt=0,lte=10000"`
	ReceivedAt    *time.Time `json:"receivedAt,omitempty"`
}

// Shipments and orders

type ShipmentRequest struct {
	TransportMode  TransportMode   `json:"transportMode" validate:"required,oneof=SEA AIR"`
	TradeType      TradeType       `json:"tradeType" validate:"required,oneof=EXPORT IMPORT"`
	Incoterm       string          `json:"incoterm,omitempty" validate:"omitempty,len=3"`
	CustomerCode   string          `json:"customerCode" validate:"required,max=20"`
	ShipperCode    string          `json:"shipperCode,omitempty" validate:"max=20"`
	ConsigneeCode  string          `json:"consigneeCode,omitempty" validate:"max=20"`
	NotifyCode     string          `json:"notifyCode,omitempty" validate:"max=20"`
	CarrierCode    string          `json:"carrierCode,omitempty" validate:"max=20"`
	PartnerCode    string          `json:"partnerCode,omitempty" validate:"max=20"`
	OriginCountry  string          `json:"originCountry,omitempty" validate:"omitempty,len=2"`
	OriginPortCode string          `json:"originPortCode,omitempty" validate:"max=5"`
	DestCountry    string          `json:"destCountry,omitempty" validate:"omitempty,len=2"`
	DestPortCode   string          `json:"destPortCode,omitempty" validate:"max=5"`
	ETD            *time.Time      `json:"etd,omitempty"`
	ETA            *time.Time      `json:"eta,omitempty"`
	PackageQty     int             `json:"packageQty" validate:"gte=0"`
	GrossWeightKg  decimal.Decimal `json:"grossWeightKg"`
	VolumeCBM      decimal.Decimal `json:"volumeCbm"`
	DeclaredValue  Money           `json:"declaredValue"`
}

// TransitionRequest moves a shipment to a new status. Status accepts the aliases
// CONFIRMED and SHIPPED. EventAt defaults to now.
type TransitionRequest struct {
	Status       string     `json:"status" validate:"required"`
	EventAt      *time.Time `json:"eventAt,omitempty"`
	LocationCode string     `json:"locationCode,omitempty" validate:"max=5"`
	Description  string     `json:"description,omitempty" validate:"max=500"`
	Reason       string     `json:"reason,omitempty" validate:"max=500"`
}

type RecordEventRequest struct {
	EventCode    string     `json:"eventCode" validate:"required,oneof=GIN LOD DIS GOT EXC"`
	EventAt      *time.Time `json:"eventAt,omitempty"`
	LocationCode string     `json:"locationCode,omitempty" validate:"max=5"`
	Description  string     `json:"description,omitempty" validate:"max=500"`
	DocType      string     `json:"docType,omitempty" validate:"omitempty,oneof=MBL HBL MAWB HAWB"`
	DocID        *uuid.UUID `json:"docId,omitempty"`
	ContainerNo  string     `json:"containerNo,omitempty" validate:"max=11"`
}

type CreateOrderRequest struct {
	CustomerCode     string             `json:"customerCode" validate:"required,max=20"`
	TransportMode    TransportMode      `json:"transportMode" validate:"required,oneof=SEA AIR"`
	TradeType        TradeType          `json:"tradeType" validate:"required,oneof=EXPORT IMPORT"`
	Incoterm         string             `json:"incoterm,omitempty" validate:"omitempty,len=3"`
	ShipperCode      string             `json:"shipperCode,omitempty" validate:"max=20"`
	ConsigneeCode    string             `json:"consigneeCode,omitempty" validate:"max=20"`
	OriginPortCode   string             `json:"originPortCode,omitempty" validate:"max=5"`
	DestPortCode     string             `json:"destPortCode,omitempty" validate:"max=5"`
	RequestedETD     *time.Time         `json:"requestedEtd,omitempty"`
	PackageQty       int                `json:"packageQty" validate:"gte=0"`
	GrossWeightKg    decimal.Decimal    `json:"grossWeightKg"`
	VolumeCBM        decimal.Decimal    `json:"volumeCbm"`
	DeclaredValue    Money              `json:"declaredValue"`
	EstimatedFreight Money              `json:"estimatedFreight"`
	Lines            []OrderLineRequest `json:"lines,omitempty" validate:"dive"`
}

type OrderLineRequest struct {
	Description   string          `json:"description" validate:"required,max=255"`
	HSCode        string          `json:"hsCode,omitempty" validate:"max=12"`
	PackageQty    int             `json:"packageQty" validate:"gt=0"`
	PackageType   string          `json:"packageType,omitempty" validate:"max=10"`
	GrossWeightKg decimal.Decimal `json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal `json:"volumeCbm"`
	Value         decimal.Decimal `json:"value"`
}

// ConfirmOrderRequest carries an optional credit override reason. The override is
// recorded against the acting user only when the credit check rejects.
type ConfirmOrderRequest struct {
	OverrideReason string `json:"overrideReason,omitempty" validate:"max=500"`
}

// Bookings

type OceanBookingRequest struct {
	ShipmentID       uuid.UUID                 `json:"shipmentId" validate:"required"`
	ScheduleID       uuid.UUID                 `json:"scheduleId" validate:"required"`
	CarrierBookingNo string                    `json:"carrierBookingNo,omitempty" validate:"max=30"`
	Qty20GP          int                       `json:"qty20gp" validate:"gte=0"`
	Qty40GP          int                       `json:"qty40gp" validate:"gte=0"`
	Qty40HC          int                       `json:"qty40hc" validate:"gte=0"`
	Qty45HC          int                       `json:"qty45hc" validate:"gte=0"`
	QtyReefer        int                       `json:"qtyReefer" validate:"gte=0"`
	QtyOpenTop       int                       `json:"qtyOpenTop" validate:"gte=0"`
	QtyFlatRack      int                       `json:"qtyFlatRack" validate:"gte=0"`
	Containers       []BookingContainerRequest `json:"containers" validate:"required,min=1,dive"`
}

type BookingContainerRequest struct {
	ContainerType string `json:"containerType" validate:"required,max=4"`
	Qty           int    `json:"qty" validate:"gt=0"`
}

type AirBookingRequest struct {
	ShipmentID    uuid.UUID       `json:"shipmentId" validate:"required"`
	ScheduleID    uuid.UUID       `json:"scheduleId" validate:"required"`
	PackageQty    int             `json:"packageQty" validate:"gt=0"`
	GrossWeightKg decimal.Decimal `json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal `json:"volumeCbm"`
}

// Documents

type CreateMasterBLRequest struct {
	ShipmentID    uuid.UUID       `json:"shipmentId" validate:"required"`
	BookingID     *uuid.UUID      `json:"bookingId,omitempty"`
	MBLNo         string          `json:"mblNo" validate:"required,max=30"`
	CarrierCode   string          `json:"carrierCode" validate:"required,max=20"`
	VesselName    string          `json:"vesselName,omitempty" validate:"max=100"`
	VoyageNo      string          `json:"voyageNo,omitempty" validate:"max=20"`
	POLCode       string          `json:"polCode,omitempty" validate:"max=5"`
	PODCode       string          `json:"podCode,omitempty" validate:"max=5"`
	PackageQty    int             `json:"packageQty" validate:"gte=0"`
	GrossWeightKg decimal.Decimal `json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal `json:"volumeCbm"`
}

type CreateHouseBLRequest struct {
	ShipmentID    uuid.UUID          `json:"shipmentId" validate:"required"`
	MBLID         *uuid.UUID         `json:"mblId,omitempty"`
	HBLNo         string             `json:"hblNo,omitempty" validate:"max=30"`
	ShipperCode   string             `json:"shipperCode,omitempty" validate:"max=20"`
	ConsigneeCode string             `json:"consigneeCode,omitempty" validate:"max=20"`
	PackageQty    int                `json:"packageQty" validate:"gte=0"`
	GrossWeightKg decimal.Decimal    `json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal    `json:"volumeCbm"`
	Lines         []CargoLineRequest `json:"lines,omitempty" validate:"dive"`
}

type CargoLineRequest struct {
	ContainerNo   string          `json:"containerNo,omitempty" validate:"max=11"`
	Description   string          `json:"description" validate:"required,max=255"`
	HSCode        string          `json:"hsCode,omitempty" validate:"max=12"`
	PackageQty    int             `json:"packageQty" validate:"gt=0"`
	GrossWeightKg decimal.Decimal `json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal `json:"volumeCbm"`
}

type AddContainerRequest struct {
	MBLID         uuid.UUID        `json:"mblId" validate:"required"`
	ContainerNo   string           `json:"containerNo" validate:"required,len=11"`
	ContainerType string           `json:"containerType" validate:"required,max=4"`
	SealNo1       string           `json:"sealNo1,omitempty" validate:"max=20"`
	SealNo2       string           `json:"sealNo2,omitempty" validate:"max=20"`
	PackageQty    int              `json:"packageQty" validate:"gte=0"`
	TareWeightKg  decimal.Decimal  `json:"tareWeightKg"`
	GrossWeightKg decimal.Decimal  `json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal  `json:"volumeCbm"`
	IsDangerous   bool             `json:"isDangerous"`
	UNNumber      string           `json:"unNumber,omitempty" validate:"omitempty,len=4,numeric"`
	IMOClass      string           `json:"imoClass,omitempty" validate:"max=5"`
	IsReefer      bool             `json:"isReefer"`
	TemperatureC  *decimal.Decimal `json:"temperatureC,omitempty"`
}

type CreateMasterAWBRequest struct {
	ShipmentID    uuid.UUID       `json:"shipmentId" validate:"required"`
	BookingID     *uuid.UUID      `json:"bookingId,omitempty"`
	CarrierCode   string          `json:"carrierCode" validate:"required,max=20"`
	FlightNo      string          `json:"flightNo,omitempty" validate:"max=10"`
	OriginCode    string          `json:"originCode,omitempty" validate:"max=5"`
	DestCode      string          `json:"destCode,omitempty" validate:"max=5"`
	PackageQty    int             `json:"packageQty" validate:"gte=0"`
	GrossWeightKg decimal.Decimal `json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal `json:"volumeCbm"`
}

type CreateHouseAWBRequest struct {
	ShipmentID    uuid.UUID          `json:"shipmentId" validate:"required"`
	MAWBID        *uuid.UUID         `json:"mawbId,omitempty"`
	HAWBNo        string             `json:"hawbNo,omitempty" validate:"max=30"`
	ShipperCode   string             `json:"shipperCode,omitempty" validate:"max=20"`
	ConsigneeCode string             `json:"consigneeCode,omitempty" validate:"max=20"`
	PackageQty    int                `json:"packageQty" validate:"gte=0"`
	GrossWeightKg decimal.Decimal    `json:"grossWeightKg"`
	VolumeCBM     decimal.Decimal    `json:"volumeCbm"`
	Lines         []CargoLineRequest `json:"lines,omitempty" validate:"dive"`
}

type ReportIrregularityRequest struct {
	ShipmentID         uuid.UUID       `json:"shipmentId" validate:"required"`
	DocType            string          `json:"docType,omitempty" validate:"omitempty,oneof=MBL HBL MAWB HAWB"`
	DocID              *uuid.UUID      `json:"docId,omitempty"`
	Kind               string          `json:"kind" validate:"required,oneof=SHORT OVER DAMAGE"`
	ReportedPackageQty int             `json:"reportedPackageQty" validate:"gte=0"`
	ActualPackageQty   int             `json:"actualPackageQty" validate:"gte=0"`
	ReportedWeightKg   decimal.Decimal `json:"reportedWeightKg"`
	ActualWeightKg     decimal.Decimal `json:"actualWeightKg"`
	Description        string          `json:"description,omitempty" validate:"max=1000"`
}

// Customs

type CreateDeclarationRequest struct {
	ShipmentID uuid.UUID `json:"shipmentId" validate:"required"`
	TradeType  TradeType `json:"tradeType" validate:"required,oneof=EXPORT IMPORT"`
	BrokerCode string    `json:"brokerCode,omitempty" validate:"max=20"`
	Currency   string    `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// DeclarationItemRequest adds a tariff line. Nil rates default to the HS code's rates.
type DeclarationItemRequest struct {
	HSCode      string           `json:"hsCode" validate:"required,max=12"`
	Description string           `json:"description,omitempty" validate:"max=255"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Amount      decimal.Decimal  `json:"amount"`
	DutyRate    *decimal.Decimal `json:"dutyRate,omitempty"`
	VATRate     *decimal.Decimal `json:"vatRate,omitempty"`
}

// InspectionRequest opens a customs inspection
type InspectionRequest struct {
	InspectionType string `json:"inspectionType" validate:"required,max=20"`
	Remarks        string `json:"remarks,omitempty" validate:"max=1000"`
}

type InspectionResultRequest struct {
	Result  string `json:"result" validate:"required,oneof=PASS FAIL"`
	Remarks string `json:"remarks,omitempty" validate:"max=1000"`
}

// CustomsResponseRequest is a customs gateway reply to a submitted declaration
type CustomsResponseRequest struct {
	Outcome        string `json:"outcome" validate:"required,oneof=CLEARED INSPECTION REJECTED"`
	InspectionType string `json:"inspectionType,omitempty" validate:"max=20"`
	Message        string `json:"message,omitempty" validate:"max=1000"`
	Payload        string `json:"payload,omitempty"`
}

// Notices and transport

type PreAlertSettingRequest struct {
	CustomerCode  string          `json:"customerCode" validate:"required,max=20"`
	TransportMode TransportMode   `json:"transportMode,omitempty" validate:"omitempty,oneof=SEA AIR"`
	Trigger       PreAlertTrigger `json:"trigger" validate:"required,oneof=ETD ATD ETA BL_ISSUE"`
	OffsetDays    int             `json:"offsetDays" validate:"gte=-30,lte=30"`
	Recipients    string          `json:"recipients" validate:"required,max=1000"`
	MaxAttempts   int             `json:"maxAttempts" validate:"gte=0,lte=10"`
}

type ArrivalNoticeRequest struct {
	ShipmentID   uuid.UUID  `json:"shipmentId" validate:"required"`
	HBLID        *uuid.UUID `json:"hblId,omitempty"`
	FreeTimeDays int        `json:"freeTimeDays" validate:"gte=0,lte=60"`
}

type TransportOrderRequest struct {
	ShipmentID      uuid.UUID  `json:"shipmentId" validate:"required"`
	TruckerCode     string     `json:"truckerCode" validate:"required,max=20"`
	ContainerNo     string     `json:"containerNo,omitempty" validate:"max=11"`
	PickupAddress   string     `json:"pickupAddress" validate:"required,max=500"`
	DeliveryAddress string     `json:"deliveryAddress" validate:"required,max=500"`
	PickupAt        *time.Time `json:"pickupAt,omitempty"`
	Freight         Money      `json:"freight"`
}

// DemurrageRequest computes detention for one container. StartDate defaults to the shipment ATA.
type DemurrageRequest struct {
	ShipmentID  uuid.UUID  `json:"shipmentId" validate:"required"`
	ContainerNo string     `json:"containerNo" validate:"required,max=11"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     time.Time  `json:"endDate" validate:"required"`
	FreeDays    int        `json:"freeDays" validate:"gte=0"`
	DailyRate   Money      `json:"dailyRate"`
}

// Billing

// PostChargeRequest posts a billable line. A nil ExchangeRate is looked up for RateDate;
// a nil TaxRate uses the configured default for local-currency lines and zero otherwise.
type PostChargeRequest struct {
	ShipmentID   uuid.UUID        `json:"shipmentId" validate:"required"`
	Side         BillingSide      `json:"side" validate:"required,oneof=AR AP"`
	ChargeCode   string           `json:"chargeCode" validate:"required,max=10"`
	CustomerCode string           `json:"customerCode" validate:"required,max=20"`
	Quantity     decimal.Decimal  `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unitPrice"`
	Currency     string           `json:"currency" validate:"required,len=3"`
	ExchangeRate *decimal.Decimal `json:"exchangeRate,omitempty"`
	RateDate     *time.Time       `json:"rateDate,omitempty"`
	TaxRate      *decimal.Decimal `json:"taxRate,omitempty"`
}

// RateChargeRequest prices a charge from the tariff table. A nil Quantity is derived
// from the shipment by tariff unit.
type RateChargeRequest struct {
	ShipmentID    uuid.UUID        `json:"shipmentId" validate:"required"`
	Side          BillingSide      `json:"side" validate:"required,oneof=AR AP"`
	ChargeCode    string           `json:"chargeCode" validate:"required,max=10"`
	CustomerCode  string           `json:"customerCode" validate:"required,max=20"`
	ContainerType string           `json:"containerType,omitempty" validate:"max=4"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	TaxRate       *decimal.Decimal `json:"taxRate,omitempty"`
}

type IssueInvoiceRequest struct {
	CustomerCode string      `json:"customerCode" validate:"required,max=20"`
	Side         BillingSide `json:"side" validate:"required,oneof=AR AP"`
	ChargeIDs    []uuid.UUID `json:"chargeIds" validate:"required,min=1"`
	IssueDate    *time.Time  `json:"issueDate,omitempty"`
}

// ApplyPaymentRequest records a payment and applies it to open invoices. Application
// amounts are in the payment currency.
type ApplyPaymentRequest struct {
	Side         BillingSide          `json:"side" validate:"required,oneof=AR AP"`
	CustomerCode string               `json:"customerCode" validate:"required,max=20"`
	PaymentDate  time.Time            `json:"paymentDate" validate:"required"`
	Amount       Money                `json:"amount"`
	ExchangeRate *decimal.Decimal     `json:"exchangeRate,omitempty"`
	Method       string               `json:"method,omitempty" validate:"max=20"`
	Applications []PaymentApplication `json:"applications" validate:"required,min=1,dive"`
}

type PaymentApplication struct {
	InvoiceID uuid.UUID       `json:"invoiceId" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

type CreditCheckRequest struct {
	CustomerCode    string          `json:"customerCode" validate:"required,max=20"`
	RequestedAmount decimal.Decimal `json:"requestedAmount"`
}
