package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Country is an ISO 3166 alpha-2 country
type Country struct {
	BaseModel
	Code     string `gorm:"type:char(2);not null;uniqueIndex" json:"code" validate:"required,len=2"`
	Name     string `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	IsActive bool   `gorm:"not null;default:true" json:"isActive"`
}

// Currency is an ISO 4217 currency with its minor-unit precision.
type Currency struct {
	BaseModel
	Code          string `gorm:"type:char(3);not null;uniqueIndex" json:"code" validate:"required,len=3"`
	Name          string `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	Symbol        string `gorm:"type:varchar(5)" json:"symbol,omitempty"`
	DecimalPlaces int32  `gorm:"not null" json:"decimalPlaces" validate:"gte=0,lte=4"`
	IsActive      bool   `gorm:"not null;default:true" json:"isActive"`
}

// DefaultDecimalPlaces is used when a currency is not registered
const DefaultDecimalPlaces int32 = 2

// Rate types
const (
	RateTypeMid  = "MID"
	RateTypeBuy  = "BUY"
	RateTypeSell = "SELL"
)

// ExchangeRate quotes how many TargetCurrency units one BaseCurrency unit buys on RateDate.
type ExchangeRate struct {
	BaseModel
	BaseCurrency   string          `gorm:"type:char(3);not null;uniqueIndex:idx_exchange_rate_key" json:"baseCurrency" validate:"required,len=3"`
	TargetCurrency string          `gorm:"type:char(3);not null;uniqueIndex:idx_exchange_rate_key" json:"targetCurrency" validate:"required,len=3"`
	RateDate       time.Time       `gorm:"type:date;not null;uniqueIndex:idx_exchange_rate_key" json:"rateDate"`
	RateType       string          `gorm:"type:varchar(10);not null;default:'MID';uniqueIndex:idx_exchange_rate_key" json:"rateType"`
	Rate           decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"rate"`
	Source         string          `gorm:"type:varchar(30)" json:"source,omitempty"`
}

// PortType
const (
	PortTypeSea = "SEA"
	PortTypeAir = "AIR"
)

// Port is a seaport or airport keyed by UN/LOCODE (sea) or IATA code (air).
type Port struct {
	BaseModel
	Code        string `gorm:"type:varchar(5);not null;uniqueIndex" json:"code" validate:"required,min=3,max=5"`
	Name        string `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	CountryCode string `gorm:"type:char(2);not null;index" json:"countryCode" validate:"required,len=2"`
	PortType    string `gorm:"type:varchar(3);not null" json:"portType" validate:"required,oneof=SEA AIR"`
	IsActive    bool   `gorm:"not null;default:true" json:"isActive"`
}

// Common code groups
const (
	CodeGroupIncoterms     = "INCOTERMS"
	CodeGroupContainerType = "CNTR_TYPE"
	CodeGroupPackageType   = "PKG_TYPE"
	CodeGroupChargeCode    = "CHARGE_CD"
	CodeGroupEventCode     = "EVENT_CD"
)

// CommonCode is a generic lookup value within a code group
type CommonCode struct {
	BaseModel
	GroupCode string `gorm:"type:varchar(20);not null;uniqueIndex:idx_common_code_key" json:"groupCode" validate:"required,max=20"`
	Code      string `gorm:"type:varchar(20);not null;uniqueIndex:idx_common_code_key" json:"code" validate:"required,max=20"`
	Name      string `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	SortOrder int    `gorm:"not null;default:0" json:"sortOrder"`
	IsActive  bool   `gorm:"not null;default:true" json:"isActive"`
}

// HSCode is a Harmonized System tariff line with its import duty and VAT rates (percent).
type HSCode struct {
	BaseModel
	Code        string          `gorm:"type:varchar(12);not null;uniqueIndex" json:"code" validate:"required,min=4,max=12"`
	Description string          `gorm:"type:varchar(255);not null" json:"description" validate:"required,max=255"`
	DutyRate    decimal.Decimal `gorm:"type:decimal(7,3);not null;default:0" json:"dutyRate"`
	VATRate     decimal.Decimal `gorm:"type:decimal(7,3);not null;default:0" json:"vatRate"`
	IsActive    bool            `gorm:"not null;default:true" json:"isActive"`
}

// TableName keeps the table name readable
func (HSCode) TableName() string {
	return "hs_codes"
}
