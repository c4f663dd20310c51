package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/straye-as/fms-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NumberSequenceService issues human-readable document numbers.
//
// Format: {PREFIX}-{YEAR}-{SEQUENCE}
// Example: SHP-2025-001, INV-2025-042
//
// Every prefix has its own counter per calendar year.
type NumberSequenceService struct {
	repo   *repository.NumberSequenceRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(repo *repository.NumberSequenceRepository, logger *zap.Logger) *NumberSequenceService {
	return &NumberSequenceService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Next returns the next number for prefix. Pass the surrounding transaction so the
// number is only consumed if the document that carries it commits.
func (s *NumberSequenceService) Next(ctx context.Context, tx *gorm.DB, prefix string) (string, error) {
	year := s.now().Year()

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	seq, err := repo.Next(ctx, prefix, year)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("prefix", prefix),
			zap.Int("year", year),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate %s number: %w", prefix, err)
	}

	number := FormatNumber(prefix, year, seq)
	s.logger.Debug("generated number",
		zap.String("number", number),
		zap.Int("sequence", seq))
	return number, nil
}

// Current returns the last issued sequence of prefix for year, or 0
func (s *NumberSequenceService) Current(ctx context.Context, prefix string, year int) (int, error) {
	return s.repo.Current(ctx, prefix, year)
}

// FormatNumber renders PREFIX-YYYY-NNN, zero-padded to three digits
func FormatNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, seq)
}

// ValidNumber checks that number looks like PREFIX-YYYY-NNN for the given prefix
func ValidNumber(prefix, number string) bool {
	rest, ok := strings.CutPrefix(number, prefix+"-")
	if !ok {
		return false
	}
	var year, seq int
	n, err := fmt.Sscanf(rest, "%4d-%d", &year, &seq)
	return err == nil && n == 2 && seq > 0
}
