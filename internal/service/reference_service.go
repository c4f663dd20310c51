package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/cache"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReferenceService maintains countries, currencies, ports, common codes, HS codes
// and exchange rates. Upserts are keyed by business code and idempotent.
type ReferenceService struct {
	repo      *repository.ReferenceRepository
	rateCache cache.RateCache
	logger    *zap.Logger
}

// NewReferenceService creates a new ReferenceService
func NewReferenceService(repo *repository.ReferenceRepository, rateCache cache.RateCache, logger *zap.Logger) *ReferenceService {
	if rateCache == nil {
		rateCache = cache.NoopRateCache{}
	}
	return &ReferenceService{repo: repo, rateCache: rateCache, logger: logger}
}

// UpsertCountry creates or updates a country by code
func (s *ReferenceService) UpsertCountry(ctx context.Context, c *domain.Country) (repository.UpsertResult, error) {
	c.Code = normalizeCode(c.Code)
	if err := validateStruct("Country", c); err != nil {
		return "", err
	}
	// is_active is only written on insert; deactivation survives re-imports
	c.IsActive = true
	result, err := s.repo.UpsertCountry(ctx, c)
	if err != nil {
		return "", fmt.Errorf("failed to upsert country: %w", err)
	}
	s.logger.Debug("country upserted", zap.String("code", c.Code), zap.String("result", string(result)))
	return result, nil
}

// UpsertCurrency creates or updates a currency by code
func (s *ReferenceService) UpsertCurrency(ctx context.Context, c *domain.Currency) (repository.UpsertResult, error) {
	c.Code = normalizeCode(c.Code)
	if err := validateStruct("Currency", c); err != nil {
		return "", err
	}
	c.IsActive = true
	result, err := s.repo.UpsertCurrency(ctx, c)
	if err != nil {
		return "", fmt.Errorf("failed to upsert currency: %w", err)
	}
	s.logger.Debug("currency upserted", zap.String("code", c.Code), zap.String("result", string(result)))
	return result, nil
}

// UpsertPort creates or updates a port by code. The country must exist.
func (s *ReferenceService) UpsertPort(ctx context.Context, p *domain.Port) (repository.UpsertResult, error) {
	p.Code = normalizeCode(p.Code)
	p.CountryCode = normalizeCode(p.CountryCode)
	if err := validateStruct("Port", p); err != nil {
		return "", err
	}
	if err := checkRefs(ctx, s.repo, "Port", countryRef("countryCode", p.CountryCode)); err != nil {
		return "", err
	}
	p.IsActive = true
	result, err := s.repo.UpsertPort(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to upsert port: %w", err)
	}
	s.logger.Debug("port upserted", zap.String("code", p.Code), zap.String("result", string(result)))
	return result, nil
}

// UpsertCommonCode creates or updates a code inside a group
func (s *ReferenceService) UpsertCommonCode(ctx context.Context, c *domain.CommonCode) (repository.UpsertResult, error) {
	c.GroupCode = normalizeCode(c.GroupCode)
	c.Code = normalizeCode(c.Code)
	if err := validateStruct("CommonCode", c); err != nil {
		return "", err
	}
	c.IsActive = true
	result, err := s.repo.UpsertCommonCode(ctx, c)
	if err != nil {
		return "", fmt.Errorf("failed to upsert common code: %w", err)
	}
	return result, nil
}

// UpsertHSCode creates or updates a tariff line. Rates are percentages in [0, 100].
func (s *ReferenceService) UpsertHSCode(ctx context.Context, h *domain.HSCode) (repository.UpsertResult, error) {
	if err := validateStruct("HSCode", h); err != nil {
		return "", err
	}
	hundred := decimal.NewFromInt(100)
	if h.DutyRate.IsNegative() || h.DutyRate.GreaterThan(hundred) {
		return "", domain.NewValidationError("HSCode", "dutyRate", "must be between 0 and 100")
	}
	if h.VATRate.IsNegative() || h.VATRate.GreaterThan(hundred) {
		return "", domain.NewValidationError("HSCode", "vatRate", "must be between 0 and 100")
	}
	h.IsActive = true
	result, err := s.repo.UpsertHSCode(ctx, h)
	if err != nil {
		return "", fmt.Errorf("failed to upsert hs code: %w", err)
	}
	return result, nil
}

// SetExchangeRate stores a daily rate. Both currencies must be registered.
func (s *ReferenceService) SetExchangeRate(ctx context.Context, rate *domain.ExchangeRate) (repository.UpsertResult, error) {
	rate.BaseCurrency = normalizeCode(rate.BaseCurrency)
	rate.TargetCurrency = normalizeCode(rate.TargetCurrency)
	if rate.RateType == "" {
		rate.RateType = domain.RateTypeMid
	}
	if err := validateStruct("ExchangeRate", rate); err != nil {
		return "", err
	}
	if rate.BaseCurrency == rate.TargetCurrency {
		return "", domain.NewValidationError("ExchangeRate", "targetCurrency", "must differ from base currency")
	}
	if !rate.Rate.IsPositive() {
		return "", domain.NewValidationError("ExchangeRate", "rate", "must be positive")
	}
	if rate.RateDate.IsZero() {
		return "", domain.NewValidationError("ExchangeRate", "rateDate", "required")
	}
	if err := checkRefs(ctx, s.repo, "ExchangeRate",
		currencyRef("baseCurrency", rate.BaseCurrency),
		currencyRef("targetCurrency", rate.TargetCurrency),
	); err != nil {
		return "", err
	}
	rate.RateDate = dateOnly(rate.RateDate)

	result, err := s.repo.UpsertExchangeRate(ctx, rate)
	if err != nil {
		return "", fmt.Errorf("failed to store exchange rate: %w", err)
	}
	if result != repository.UpsertUnchanged {
		s.rateCache.Invalidate(ctx, cache.RateKey(rate.BaseCurrency, rate.TargetCurrency, rate.RateDate, rate.RateType))
		s.logger.Info("exchange rate stored",
			zap.String("base", rate.BaseCurrency),
			zap.String("target", rate.TargetCurrency),
			zap.Time("rate_date", rate.RateDate),
			zap.String("rate", rate.Rate.String()),
			zap.String("result", string(result)))
	}
	return result, nil
}

// LookupExchangeRate returns how many target units one base unit buys on date, using
// the latest MID rate on or before date. A missing direct rate falls back to the
// inverse of the opposite pair.
func (s *ReferenceService) LookupExchangeRate(ctx context.Context, base, target string, date time.Time) (decimal.Decimal, error) {
	return s.lookupRate(ctx, s.repo, base, target, date)
}

// lookupRateTx is LookupExchangeRate reading through the caller's transaction
func (s *ReferenceService) lookupRateTx(ctx context.Context, tx *gorm.DB, base, target string, date time.Time) (decimal.Decimal, error) {
	return s.lookupRate(ctx, s.repo.WithTx(tx), base, target, date)
}

func (s *ReferenceService) lookupRate(ctx context.Context, repo *repository.ReferenceRepository, base, target string, date time.Time) (decimal.Decimal, error) {
	base, target = normalizeCode(base), normalizeCode(target)
	if base == target {
		return decimal.NewFromInt(1), nil
	}
	day := dateOnly(date)
	key := cache.RateKey(base, target, day, domain.RateTypeMid)
	if rate, ok := s.rateCache.Get(ctx, key); ok {
		return rate, nil
	}

	rate, err := findRate(ctx, repo, base, target, day)
	if err != nil {
		return decimal.Zero, err
	}
	s.rateCache.Set(ctx, key, rate)
	return rate, nil
}

// findRate tries the direct MID quote and falls back to the inverse of the opposite quote
func findRate(ctx context.Context, repo *repository.ReferenceRepository, base, target string, day time.Time) (decimal.Decimal, error) {
	direct, err := repo.FindExchangeRate(ctx, base, target, domain.RateTypeMid, day)
	if err == nil {
		return direct.Rate, nil
	}
	if !repository.IsNotFound(err) {
		return decimal.Zero, fmt.Errorf("failed to look up exchange rate: %w", err)
	}

	inverse, err := repo.FindExchangeRate(ctx, target, base, domain.RateTypeMid, day)
	if err == nil && inverse.Rate.IsPositive() {
		return decimal.NewFromInt(1).DivRound(inverse.Rate, 6), nil
	}
	if err != nil && !repository.IsNotFound(err) {
		return decimal.Zero, fmt.Errorf("failed to look up exchange rate: %w", err)
	}
	return decimal.Zero, domain.NewReferenceError("ExchangeRate", "pair", base+"/"+target)
}

// CurrencyPlaces returns the minor-unit places of a currency, or the default when unknown
func (s *ReferenceService) CurrencyPlaces(ctx context.Context, code string) int32 {
	return currencyPlaces(ctx, s.repo, code)
}

func currencyPlaces(ctx context.Context, repo *repository.ReferenceRepository, code string) int32 {
	c, err := repo.GetCurrency(ctx, normalizeCode(code))
	if err != nil {
		return domain.DefaultDecimalPlaces
	}
	return c.DecimalPlaces
}

// DeactivatePort flags a port inactive so new references to it fail
func (s *ReferenceService) DeactivatePort(ctx context.Context, code string) error {
	ok, err := s.repo.SetActive(ctx, &domain.Port{}, normalizeCode(code), false)
	if err != nil {
		return fmt.Errorf("failed to deactivate port: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: port %s", ErrNotFound, code)
	}
	s.logger.Info("port deactivated", zap.String("code", code))
	return nil
}

// GetPort returns a port by code
func (s *ReferenceService) GetPort(ctx context.Context, code string) (*domain.Port, error) {
	p, err := s.repo.GetPort(ctx, normalizeCode(code))
	if err != nil {
		return nil, notFound(err, "port")
	}
	return p, nil
}

// ListCountries returns every country
func (s *ReferenceService) ListCountries(ctx context.Context) ([]domain.Country, error) {
	return s.repo.ListCountries(ctx)
}

// ListCurrencies returns every currency
func (s *ReferenceService) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	return s.repo.ListCurrencies(ctx)
}

// ListPorts returns ports of a type, or all types when empty
func (s *ReferenceService) ListPorts(ctx context.Context, portType string, activeOnly bool) ([]domain.Port, error) {
	return s.repo.ListPorts(ctx, normalizeCode(portType), activeOnly)
}

// ListCommonCodes returns the codes of one group
func (s *ReferenceService) ListCommonCodes(ctx context.Context, group string) ([]domain.CommonCode, error) {
	return s.repo.ListCommonCodes(ctx, normalizeCode(group))
}

// ListExchangeRates returns the recent rates of a pair
func (s *ReferenceService) ListExchangeRates(ctx context.Context, base, target string, limit int) ([]domain.ExchangeRate, error) {
	_, limit, _ = repository.Page(1, limit)
	return s.repo.ListExchangeRates(ctx, normalizeCode(base), normalizeCode(target), limit)
}

// RateImportResult counts what ImportRates did
type RateImportResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Rejected  int `json:"rejected"`
}

// ImportRates stores a batch of externally sourced rates. Rows that fail validation
// are counted and logged, the rest of the batch still goes in.
func (s *ReferenceService) ImportRates(ctx context.Context, rates []domain.ExchangeRate, source string) (*RateImportResult, error) {
	res := &RateImportResult{}
	for i := range rates {
		rate := rates[i]
		rate.Source = source
		result, err := s.SetExchangeRate(ctx, &rate)
		if err != nil {
			var ve *domain.ValidationError
			var re *domain.ReferentialIntegrityError
			if errors.As(err, &ve) || errors.As(err, &re) {
				res.Rejected++
				s.logger.Warn("exchange rate rejected",
					zap.String("base", rate.BaseCurrency),
					zap.String("target", rate.TargetCurrency),
					zap.Error(err))
				continue
			}
			return res, err
		}
		switch result {
		case repository.UpsertCreated:
			res.Created++
		case repository.UpsertUpdated:
			res.Updated++
		default:
			res.Unchanged++
		}
	}
	return res, nil
}
