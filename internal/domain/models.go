package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel carries the identity and audit columns shared by every table.
// Rows are never hard-deleted; DeletedAt is the soft-delete flag.
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
	CreatedBy string         `gorm:"type:varchar(100)" json:"createdBy,omitempty"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	UpdatedBy string         `gorm:"type:varchar(100)" json:"updatedBy,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the primary key and stamps the acting user.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	actor := ActorFromContext(tx.Statement.Context)
	if m.CreatedBy == "" {
		m.CreatedBy = actor
	}
	if m.UpdatedBy == "" {
		m.UpdatedBy = actor
	}
	return nil
}

// BeforeUpdate stamps the acting user on every update path (Save, Updates, Update).
func (m *BaseModel) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_by", ActorFromContext(tx.Statement.Context))
	return nil
}

type actorKey struct{}

// SystemActor is recorded when no user is attached to the context (jobs, seeders).
const SystemActor = "system"

// WithActor attaches the acting user name used for audit columns.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the acting user, or SystemActor.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return SystemActor
	}
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return SystemActor
}

// NumberSequence stores the last issued sequence per document prefix and year.
type NumberSequence struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Prefix       string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_number_sequence_prefix_year"`
	Year         int       `gorm:"not null;uniqueIndex:idx_number_sequence_prefix_year"`
	LastSequence int       `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Number prefixes
const (
	PrefixShipment       = "SHP"
	PrefixOrder          = "ORD"
	PrefixOceanBooking   = "BKG"
	PrefixAirBooking     = "ABK"
	PrefixHouseBL        = "HBL"
	PrefixHouseAWB       = "HAWB"
	PrefixDeclaration    = "DEC"
	PrefixInvoice        = "INV"
	PrefixPayment        = "PAY"
	PrefixTransportOrder = "TRN"
	PrefixArrivalNotice  = "ARN"
)

// Attachment references a stored file by owning entity type and id.
// The storage backend owns the bytes; this row owns the reference.
type Attachment struct {
	BaseModel
	RefType     string    `gorm:"type:varchar(30);not null;index:idx_attachment_ref" json:"refType"`
	RefID       uuid.UUID `gorm:"type:uuid;not null;index:idx_attachment_ref" json:"refId"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"fileName"`
	ContentType string    `gorm:"type:varchar(100)" json:"contentType"`
	SizeBytes   int64     `gorm:"not null" json:"sizeBytes"`
	StoragePath string    `gorm:"type:varchar(500);not null" json:"-"`
}
