package repository

import (
	"context"
	"time"

	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// ReferenceRepository handles countries, currencies, exchange rates, ports,
// common codes and HS codes. Every table is keyed by a business code.
type ReferenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository creates a new reference data repository
func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *ReferenceRepository) WithTx(tx *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: tx}
}

// UpsertCountry inserts or updates a country by code
func (r *ReferenceRepository) UpsertCountry(ctx context.Context, c *domain.Country) (UpsertResult, error) {
	return upsertByKey(ctx, r.db, c, map[string]interface{}{"code": c.Code}, []string{"name"},
		func(a, b *domain.Country) bool { return a.Name == b.Name })
}

// UpsertCurrency inserts or updates a currency by code
func (r *ReferenceRepository) UpsertCurrency(ctx context.Context, c *domain.Currency) (UpsertResult, error) {
	return upsertByKey(ctx, r.db, c, map[string]interface{}{"code": c.Code}, []string{"name", "symbol", "decimal_places"},
		func(a, b *domain.Currency) bool {
			return a.Name == b.Name && a.Symbol == b.Symbol && a.DecimalPlaces == b.DecimalPlaces
		})
}

// UpsertPort inserts or updates a port by code
func (r *ReferenceRepository) UpsertPort(ctx context.Context, p *domain.Port) (UpsertResult, error) {
	return upsertByKey(ctx, r.db, p, map[string]interface{}{"code": p.Code}, []string{"name", "country_code", "port_type"},
		func(a, b *domain.Port) bool {
			return a.Name == b.Name && a.CountryCode == b.CountryCode && a.PortType == b.PortType
		})
}

// UpsertCommonCode inserts or updates a lookup value by group and code
func (r *ReferenceRepository) UpsertCommonCode(ctx context.Context, c *domain.CommonCode) (UpsertResult, error) {
	key := map[string]interface{}{"group_code": c.GroupCode, "code": c.Code}
	return upsertByKey(ctx, r.db, c, key, []string{"name", "sort_order"},
		func(a, b *domain.CommonCode) bool { return a.Name == b.Name && a.SortOrder == b.SortOrder })
}

// UpsertHSCode inserts or updates a tariff line by code
func (r *ReferenceRepository) UpsertHSCode(ctx context.Context, h *domain.HSCode) (UpsertResult, error) {
	return upsertByKey(ctx, r.db, h, map[string]interface{}{"code": h.Code}, []string{"description", "duty_rate", "vat_rate"},
		func(a, b *domain.HSCode) bool {
			return a.Description == b.Description && a.DutyRate.Equal(b.DutyRate) && a.VATRate.Equal(b.VATRate)
		})
}

// UpsertExchangeRate stores the rate for base/target/date/type
func (r *ReferenceRepository) UpsertExchangeRate(ctx context.Context, rate *domain.ExchangeRate) (UpsertResult, error) {
	key := map[string]interface{}{
		"base_currency":   rate.BaseCurrency,
		"target_currency": rate.TargetCurrency,
		"rate_date":       rate.RateDate,
		"rate_type":       rate.RateType,
	}
	return upsertByKey(ctx, r.db, rate, key, []string{"rate", "source"},
		func(a, b *domain.ExchangeRate) bool { return a.Rate.Equal(b.Rate) && a.Source == b.Source })
}

// FindExchangeRate returns the latest rate dated on or before asOf
func (r *ReferenceRepository) FindExchangeRate(ctx context.Context, base, target, rateType string, asOf time.Time) (*domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	err := r.db.WithContext(ctx).
		Where("base_currency = ? AND target_currency = ? AND rate_type = ? AND rate_date <= ?", base, target, rateType, asOf).
		Order("rate_date DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// ListExchangeRates returns rates for a pair, newest first
func (r *ReferenceRepository) ListExchangeRates(ctx context.Context, base, target string, limit int) ([]domain.ExchangeRate, error) {
	var rates []domain.ExchangeRate
	err := r.db.WithContext(ctx).
		Where("base_currency = ? AND target_currency = ?", base, target).
		Order("rate_date DESC").
		Limit(limit).
		Find(&rates).Error
	return rates, err
}

// GetCountry retrieves a country by code
func (r *ReferenceRepository) GetCountry(ctx context.Context, code string) (*domain.Country, error) {
	var c domain.Country
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCurrency retrieves a currency by code
func (r *ReferenceRepository) GetCurrency(ctx context.Context, code string) (*domain.Currency, error) {
	var c domain.Currency
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetPort retrieves a port by code
func (r *ReferenceRepository) GetPort(ctx context.Context, code string) (*domain.Port, error) {
	var p domain.Port
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetHSCode retrieves a tariff line by code
func (r *ReferenceRepository) GetHSCode(ctx context.Context, code string) (*domain.HSCode, error) {
	var h domain.HSCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

// ListCountries returns all countries ordered by code
func (r *ReferenceRepository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	var countries []domain.Country
	err := r.db.WithContext(ctx).Order("code ASC").Find(&countries).Error
	return countries, err
}

// ListCurrencies returns all currencies ordered by code
func (r *ReferenceRepository) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	var currencies []domain.Currency
	err := r.db.WithContext(ctx).Order("code ASC").Find(&currencies).Error
	return currencies, err
}

// ListPorts returns ports, optionally of one type
func (r *ReferenceRepository) ListPorts(ctx context.Context, portType string, activeOnly bool) ([]domain.Port, error) {
	var ports []domain.Port
	query := r.db.WithContext(ctx)
	if portType != "" {
		query = query.Where("port_type = ?", portType)
	}
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("code ASC").Find(&ports).Error
	return ports, err
}

// ListCommonCodes returns the active values of a code group in display order
func (r *ReferenceRepository) ListCommonCodes(ctx context.Context, group string) ([]domain.CommonCode, error) {
	var codes []domain.CommonCode
	err := r.db.WithContext(ctx).
		Where("group_code = ? AND is_active = ?", group, true).
		Order("sort_order ASC, code ASC").
		Find(&codes).Error
	return codes, err
}

// CommonCodeExists reports whether group/code is an active lookup value
func (r *ReferenceRepository) CommonCodeExists(ctx context.Context, group, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.CommonCode{}).
		Where("group_code = ? AND code = ? AND is_active = ?", group, code, true).
		Count(&n).Error
	return n > 0, err
}

// SetActive flips the active flag of a coded master row. model must be a pointer
// to one of the code-keyed reference or party types.
func (r *ReferenceRepository) SetActive(ctx context.Context, model interface{}, code string, active bool) (bool, error) {
	result := r.db.WithContext(ctx).Model(model).
		Where("code = ?", code).
		Update("is_active", active)
	return result.RowsAffected > 0, result.Error
}

// CodeExists reports whether an active row of model has the code
func (r *ReferenceRepository) CodeExists(ctx context.Context, model interface{}, code string) (bool, error) {
	return activeCodeExists(ctx, r.db, model, code)
}
