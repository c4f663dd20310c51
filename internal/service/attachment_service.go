package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"github.com/straye-as/fms-api/internal/storage"
	"go.uber.org/zap"
)

// attachmentOwners maps the ref types files can hang off to their tables
var attachmentOwners = map[string]any{
	"shipment":      &domain.Shipment{},
	"order":         &domain.CustomerOrder{},
	"ocean-booking": &domain.OceanBooking{},
	"air-booking":   &domain.AirBooking{},
	"master-bl":     &domain.MasterBL{},
	"house-bl":      &domain.HouseBL{},
	"master-awb":    &domain.MasterAWB{},
	"house-awb":     &domain.HouseAWB{},
	"declaration":   &domain.CustomsDeclaration{},
	"invoice":       &domain.Invoice{},
	"irregularity":  &domain.Irregularity{},
}

// AttachmentService stores files against FMS entities
type AttachmentService struct {
	attachmentRepo *repository.AttachmentRepository
	storage        storage.Storage
	maxBytes       int64
	logger         *zap.Logger
}

// NewAttachmentService creates a new AttachmentService. maxBytes <= 0 disables the size limit.
func NewAttachmentService(
	attachmentRepo *repository.AttachmentRepository,
	store storage.Storage,
	maxBytes int64,
	logger *zap.Logger,
) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		storage:        store,
		maxBytes:       maxBytes,
		logger:         logger,
	}
}

func (s *AttachmentService) checkOwner(ctx context.Context, refType string, refID uuid.UUID) error {
	model, ok := attachmentOwners[refType]
	if !ok {
		return domain.NewValidationError("Attachment", "refType", "unknown")
	}
	exists, err := s.attachmentRepo.OwnerExists(ctx, model, refID)
	if err != nil {
		return fmt.Errorf("failed to check attachment owner: %w", err)
	}
	if !exists {
		return domain.NewReferenceError("Attachment", "refId", refID.String())
	}
	return nil
}

// Upload stores data and records it against (refType, refID)
func (s *AttachmentService) Upload(ctx context.Context, refType string, refID uuid.UUID, filename, contentType string, data io.Reader) (*domain.Attachment, error) {
	refType = strings.ToLower(strings.TrimSpace(refType))
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, domain.NewValidationError("Attachment", "fileName", "required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.checkOwner(ctx, refType, refID); err != nil {
		return nil, err
	}

	if s.maxBytes > 0 {
		data = io.LimitReader(data, s.maxBytes+1)
	}
	key, size, err := s.storage.Put(ctx, refType+"/"+refID.String(), filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		s.cleanup(ctx, key)
		return nil, domain.NewValidationError("Attachment", "file", fmt.Sprintf("max %d bytes", s.maxBytes))
	}

	attachment := &domain.Attachment{
		RefType:     refType,
		RefID:       refID,
		FileName:    filename,
		ContentType: contentType,
		SizeBytes:   size,
		StoragePath: key,
	}
	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		s.cleanup(ctx, key)
		return nil, fmt.Errorf("failed to create attachment record: %w", err)
	}

	s.logger.Info("attachment uploaded",
		zap.String("ref_type", refType),
		zap.String("ref_id", refID.String()),
		zap.String("file_name", filename),
		zap.Int64("size", size))
	return attachment, nil
}

func (s *AttachmentService) cleanup(ctx context.Context, key string) {
	if err := s.storage.Remove(ctx, key); err != nil {
		s.logger.Warn("failed to remove orphaned object", zap.String("key", key), zap.Error(err))
	}
}

// Get returns attachment metadata
func (s *AttachmentService) Get(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	a, err := s.attachmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "attachment")
	}
	return a, nil
}

// Download returns the attachment and a reader over its bytes. The caller closes the reader.
func (s *AttachmentService) Download(ctx context.Context, id uuid.UUID) (*domain.Attachment, io.ReadCloser, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.storage.Open(ctx, a.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, fmt.Errorf("%w: attachment content", ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return a, body, nil
}

// List returns the attachments of one entity, newest first
func (s *AttachmentService) List(ctx context.Context, refType string, refID uuid.UUID) ([]domain.Attachment, error) {
	refType = strings.ToLower(strings.TrimSpace(refType))
	if _, ok := attachmentOwners[refType]; !ok {
		return nil, domain.NewValidationError("Attachment", "refType", "unknown")
	}
	return s.attachmentRepo.ListByRef(ctx, refType, refID)
}

// Delete removes the record, then the stored bytes
func (s *AttachmentService) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.attachmentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete attachment record: %w", err)
	}
	s.cleanup(ctx, a.StoragePath)

	s.logger.Info("attachment deleted",
		zap.String("id", id.String()),
		zap.String("ref_type", a.RefType))
	return nil
}
