package domain

import (
	"github.com/shopspring/decimal"
)

// CustomerType
type CustomerType string

const (
	CustomerTypeShipper   CustomerType = "SHIPPER"
	CustomerTypeConsignee CustomerType = "CONSIGNEE"
	CustomerTypeBoth      CustomerType = "BOTH"
)

// Customer is a shipper or consignee we bill. A zero CreditLimit marks a cash customer.
type Customer struct {
	BaseModel
	Code            string          `gorm:"type:varchar(20);not null;uniqueIndex" json:"code" validate:"required,max=20"`
	Name            string          `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	CustomerType    CustomerType    `gorm:"type:varchar(10);not null" json:"customerType" validate:"required,oneof=SHIPPER CONSIGNEE BOTH"`
	CountryCode     string          `gorm:"type:char(2)" json:"countryCode,omitempty" validate:"omitempty,len=2"`
	TaxID           string          `gorm:"type:varchar(30)" json:"taxId,omitempty"`
	Email           string          `gorm:"type:varchar(255)" json:"email,omitempty" validate:"omitempty,email"`
	Phone           string          `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Address         string          `gorm:"type:varchar(500)" json:"address,omitempty"`
	CreditLimit     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"creditLimit"`
	CreditCurrency  string          `gorm:"type:char(3)" json:"creditCurrency,omitempty" validate:"omitempty,len=3"`
	PaymentTermDays int             `gorm:"not null" json:"paymentTermDays" validate:"gte=0,lte=365"`
	IsActive        bool            `gorm:"not null;default:true" json:"isActive"`
}

// Carrier is a shipping line or airline
type Carrier struct {
	BaseModel
	Code        string `gorm:"type:varchar(20);not null;uniqueIndex" json:"code" validate:"required,max=20"`
	Name        string `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	CarrierType string `gorm:"type:varchar(3);not null" json:"carrierType" validate:"required,oneof=SEA AIR"`
	SCAC        string `gorm:"type:varchar(4)" json:"scac,omitempty" validate:"omitempty,max=4"`
	IATAPrefix  string `gorm:"type:char(3)" json:"iataPrefix,omitempty" validate:"omitempty,len=3,numeric"`
	CountryCode string `gorm:"type:char(2)" json:"countryCode,omitempty" validate:"omitempty,len=2"`
	IsActive    bool   `gorm:"not null;default:true" json:"isActive"`
}

// Partner is an overseas agent handling the other end of a shipment
type Partner struct {
	BaseModel
	Code        string `gorm:"type:varchar(20);not null;uniqueIndex" json:"code" validate:"required,max=20"`
	Name        string `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	CountryCode string `gorm:"type:char(2)" json:"countryCode,omitempty" validate:"omitempty,len=2"`
	Email       string `gorm:"type:varchar(255)" json:"email,omitempty" validate:"omitempty,email"`
	IsActive    bool   `gorm:"not null;default:true" json:"isActive"`
}

// Trucker is an inland haulier
type Trucker struct {
	BaseModel
	Code     string `gorm:"type:varchar(20);not null;uniqueIndex" json:"code" validate:"required,max=20"`
	Name     string `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	Phone    string `gorm:"type:varchar(30)" json:"phone,omitempty"`
	IsActive bool   `gorm:"not null;default:true" json:"isActive"`
}

// CustomsBroker files declarations on our behalf
type CustomsBroker struct {
	BaseModel
	Code      string `gorm:"type:varchar(20);not null;uniqueIndex" json:"code" validate:"required,max=20"`
	Name      string `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	LicenseNo string `gorm:"type:varchar(30)" json:"licenseNo,omitempty"`
	IsActive  bool   `gorm:"not null;default:true" json:"isActive"`
}

// User is an operator account. Authentication happens upstream; the row carries display data and role.
type User struct {
	BaseModel
	Username string `gorm:"type:varchar(50);not null;uniqueIndex" json:"username" validate:"required,max=50"`
	Name     string `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	Email    string `gorm:"type:varchar(255)" json:"email,omitempty" validate:"omitempty,email"`
	Role     string `gorm:"type:varchar(20);not null;default:'OPERATOR'" json:"role" validate:"omitempty,oneof=ADMIN OPERATOR ACCOUNTING VIEWER"`
	IsActive bool   `gorm:"not null;default:true" json:"isActive"`
}
