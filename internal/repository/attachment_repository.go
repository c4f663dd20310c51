package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *domain.Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AttachmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	var a domain.Attachment
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByRef returns all attachments of an entity, newest first
func (r *AttachmentRepository) ListByRef(ctx context.Context, refType string, refID uuid.UUID) ([]domain.Attachment, error) {
	var list []domain.Attachment
	err := r.db.WithContext(ctx).
		Where("ref_type = ? AND ref_id = ?", refType, refID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// CountByRef returns the number of attachments of an entity
func (r *AttachmentRepository) CountByRef(ctx context.Context, refType string, refID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Attachment{}).
		Where("ref_type = ? AND ref_id = ?", refType, refID).
		Count(&count).Error
	return count, err
}

// OwnerExists reports whether a row of model's table has the given id
func (r *AttachmentRepository) OwnerExists(ctx context.Context, model any, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *AttachmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Attachment{}, "id = ?", id).Error
}
