package domain

import (
	"time"

	"github.com/google/uuid"
)

// PreAlertTrigger is the shipment date a pre-alert is scheduled from
type PreAlertTrigger string

const (
	TriggerETD     PreAlertTrigger = "ETD"
	TriggerATD     PreAlertTrigger = "ATD"
	TriggerETA     PreAlertTrigger = "ETA"
	TriggerBLIssue PreAlertTrigger = "BL_ISSUE"
)

// PreAlertSetting tells us to alert a customer's partner OffsetDays after (or before, if negative) the trigger date.
type PreAlertSetting struct {
	BaseModel
	CustomerCode  string          `gorm:"type:varchar(20);not null;index" json:"customerCode"`
	TransportMode TransportMode   `gorm:"type:varchar(3)" json:"transportMode,omitempty"`
	Trigger       PreAlertTrigger `gorm:"type:varchar(10);not null" json:"trigger"`
	OffsetDays    int             `gorm:"not null;default:0" json:"offsetDays"`
	Recipients    string          `gorm:"type:varchar(1000);not null" json:"recipients"`
	MaxAttempts   int             `gorm:"not null;default:3" json:"maxAttempts"`
	IsActive      bool            `gorm:"not null;default:true" json:"isActive"`
}

// SendStatus is the delivery state of an outbound notice
type SendStatus string

const (
	SendStatusPending SendStatus = "PENDING"
	SendStatusSent    SendStatus = "SENT"
	SendStatusFailed  SendStatus = "FAILED"
)

// PreAlert is one scheduled notice for one shipment
type PreAlert struct {
	BaseModel
	ShipmentID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_pre_alert_key" json:"shipmentId"`
	SettingID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_pre_alert_key" json:"settingId"`
	Trigger     PreAlertTrigger `gorm:"type:varchar(10);not null" json:"trigger"`
	Recipients  string          `gorm:"type:varchar(1000);not null" json:"recipients"`
	DueAt       time.Time       `gorm:"not null;index" json:"dueAt"`
	SendStatus  SendStatus      `gorm:"column:send_status_cd;type:varchar(10);not null;index" json:"sendStatus"`
	Attempts    int             `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts int             `gorm:"not null;default:3" json:"maxAttempts"`
	LastError   string          `gorm:"type:varchar(1000)" json:"lastError,omitempty"`
	SentAt      *time.Time      `json:"sentAt,omitempty"`
}

// ArrivalNotice tells the consignee cargo has arrived and when free storage time ends.
type ArrivalNotice struct {
	BaseModel
	NoticeNo     string     `gorm:"type:varchar(20);not null;uniqueIndex" json:"noticeNo"`
	ShipmentID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"shipmentId"`
	HBLID        *uuid.UUID `gorm:"column:hbl_id;type:uuid" json:"hblId,omitempty"`
	ArrivalDate  time.Time  `gorm:"not null" json:"arrivalDate"`
	FreeTimeDays int        `gorm:"not null;default:0" json:"freeTimeDays"`
	LastFreeDate time.Time  `gorm:"type:date;not null" json:"lastFreeDate"`
	SendStatus   SendStatus `gorm:"column:send_status_cd;type:varchar(10);not null" json:"sendStatus"`
	NotifiedAt   *time.Time `json:"notifiedAt,omitempty"`
}
