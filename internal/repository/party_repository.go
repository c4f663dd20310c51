package repository

import (
	"context"
	"strings"

	"github.com/straye-as/fms-api/internal/domain"
	"gorm.io/gorm"
)

// PartyFilters defines filter options for party master listings
type PartyFilters struct {
	Search     string
	ActiveOnly bool
}

// PartyRepository handles customers, carriers, partners, truckers, customs brokers and users
type PartyRepository struct {
	db *gorm.DB
}

// NewPartyRepository creates a new party master repository
func NewPartyRepository(db *gorm.DB) *PartyRepository {
	return &PartyRepository{db: db}
}

// WithTx returns a copy bound to the transaction
func (r *PartyRepository) WithTx(tx *gorm.DB) *PartyRepository {
	return &PartyRepository{db: tx}
}

// UpsertCustomer inserts or updates a customer by code
func (r *PartyRepository) UpsertCustomer(ctx context.Context, c *domain.Customer) (UpsertResult, error) {
	cols := []string{"name", "customer_type", "country_code", "tax_id", "email", "phone", "address",
		"credit_limit", "credit_currency", "payment_term_days"}
	return upsertByKey(ctx, r.db, c, map[string]interface{}{"code": c.Code}, cols,
		func(a, b *domain.Customer) bool {
			return a.Name == b.Name && a.CustomerType == b.CustomerType && a.CountryCode == b.CountryCode &&
				a.TaxID == b.TaxID && a.Email == b.Email && a.Phone == b.Phone && a.Address == b.Address &&
				a.CreditLimit.Equal(b.CreditLimit) && a.CreditCurrency == b.CreditCurrency &&
				a.PaymentTermDays == b.PaymentTermDays
		})
}

// UpsertCarrier inserts or updates a carrier by code
func (r *PartyRepository) UpsertCarrier(ctx context.Context, c *domain.Carrier) (UpsertResult, error) {
	cols := []string{"name", "carrier_type", "scac", "iata_prefix", "country_code"}
	return upsertByKey(ctx, r.db, c, map[string]interface{}{"code": c.Code}, cols,
		func(a, b *domain.Carrier) bool {
			return a.Name == b.Name && a.CarrierType == b.CarrierType && a.SCAC == b.SCAC &&
				a.IATAPrefix == b.IATAPrefix && a.CountryCode == b.CountryCode
		})
}

// UpsertPartner inserts or updates an overseas partner by code
func (r *PartyRepository) UpsertPartner(ctx context.Context, p *domain.Partner) (UpsertResult, error) {
	return upsertByKey(ctx, r.db, p, map[string]interface{}{"code": p.Code}, []string{"name", "country_code", "email"},
		func(a, b *domain.Partner) bool {
			return a.Name == b.Name && a.CountryCode == b.CountryCode && a.Email == b.Email
		})
}

// UpsertTrucker inserts or updates a trucker by code
func (r *PartyRepository) UpsertTrucker(ctx context.Context, t *domain.Trucker) (UpsertResult, error) {
	return upsertByKey(ctx, r.db, t, map[string]interface{}{"code": t.Code}, []string{"name", "phone"},
		func(a, b *domain.Trucker) bool { return a.Name == b.Name && a.Phone == b.Phone })
}

// UpsertBroker inserts or updates a customs broker by code
func (r *PartyRepository) UpsertBroker(ctx context.Context, b *domain.CustomsBroker) (UpsertResult, error) {
	return upsertByKey(ctx, r.db, b, map[string]interface{}{"code": b.Code}, []string{"name", "license_no"},
		func(x, y *domain.CustomsBroker) bool { return x.Name == y.Name && x.LicenseNo == y.LicenseNo })
}

// UpsertUser inserts or updates an operator account by username
func (r *PartyRepository) UpsertUser(ctx context.Context, u *domain.User) (UpsertResult, error) {
	return upsertByKey(ctx, r.db, u, map[string]interface{}{"username": u.Username}, []string{"name", "email", "role"},
		func(a, b *domain.User) bool { return a.Name == b.Name && a.Email == b.Email && a.Role == b.Role })
}

// GetCustomerByCode retrieves a customer by business code
func (r *PartyRepository) GetCustomerByCode(ctx context.Context, code string) (*domain.Customer, error) {
	var c domain.Customer
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCarrierByCode retrieves a carrier by business code
func (r *PartyRepository) GetCarrierByCode(ctx context.Context, code string) (*domain.Carrier, error) {
	var c domain.Carrier
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetPartnerByCode retrieves a partner by business code
func (r *PartyRepository) GetPartnerByCode(ctx context.Context, code string) (*domain.Partner, error) {
	var p domain.Partner
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetUserByUsername retrieves an operator account
func (r *PartyRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListCustomers returns a paginated customer list
func (r *PartyRepository) ListCustomers(ctx context.Context, page, pageSize int, filters *PartyFilters) ([]domain.Customer, int64, error) {
	var customers []domain.Customer
	var total int64

	_, pageSize, offset := Page(page, pageSize)
	query := r.db.WithContext(ctx).Model(&domain.Customer{})
	if filters != nil {
		if filters.Search != "" {
			pattern := "%" + strings.ToLower(filters.Search) + "%"
			query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", pattern, pattern)
		}
		if filters.ActiveOnly {
			query = query.Where("is_active = ?", true)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Offset(offset).Limit(pageSize).Order("code ASC").Find(&customers).Error
	return customers, total, err
}

// ListCarriers returns carriers, optionally of one type
func (r *PartyRepository) ListCarriers(ctx context.Context, carrierType string) ([]domain.Carrier, error) {
	var carriers []domain.Carrier
	query := r.db.WithContext(ctx)
	if carrierType != "" {
		query = query.Where("carrier_type = ?", carrierType)
	}
	err := query.Order("code ASC").Find(&carriers).Error
	return carriers, err
}
