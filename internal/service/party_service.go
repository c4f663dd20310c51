package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"go.uber.org/zap"
)

// PartyService maintains customers, carriers, partners, truckers and customs brokers
type PartyService struct {
	repo    *repository.PartyRepository
	refRepo *repository.ReferenceRepository
	logger  *zap.Logger
}

// NewPartyService creates a new PartyService
func NewPartyService(repo *repository.PartyRepository, refRepo *repository.ReferenceRepository, logger *zap.Logger) *PartyService {
	return &PartyService{repo: repo, refRepo: refRepo, logger: logger}
}

// UpsertCustomer creates or updates a customer by code. A credit limit needs a currency.
func (s *PartyService) UpsertCustomer(ctx context.Context, c *domain.Customer) (repository.UpsertResult, error) {
	c.Code = normalizeCode(c.Code)
	c.CountryCode = normalizeCode(c.CountryCode)
	c.CreditCurrency = normalizeCode(c.CreditCurrency)
	if err := validateStruct("Customer", c); err != nil {
		return "", err
	}
	if c.CreditLimit.IsNegative() {
		return "", domain.NewValidationError("Customer", "creditLimit", "must not be negative")
	}
	if c.CreditLimit.IsPositive() && c.CreditCurrency == "" {
		return "", domain.NewValidationError("Customer", "creditCurrency", "required with a credit limit")
	}
	if err := checkRefs(ctx, s.refRepo, "Customer",
		countryRef("countryCode", c.CountryCode),
		currencyRef("creditCurrency", c.CreditCurrency),
	); err != nil {
		return "", err
	}
	c.IsActive = true

	result, err := s.repo.UpsertCustomer(ctx, c)
	if err != nil {
		return "", fmt.Errorf("failed to upsert customer: %w", err)
	}
	s.logger.Info("customer upserted", zap.String("code", c.Code), zap.String("result", string(result)))
	return result, nil
}

// UpsertCarrier creates or updates a shipping line or airline by code
func (s *PartyService) UpsertCarrier(ctx context.Context, c *domain.Carrier) (repository.UpsertResult, error) {
	c.Code = normalizeCode(c.Code)
	c.CountryCode = normalizeCode(c.CountryCode)
	c.SCAC = normalizeCode(c.SCAC)
	if err := validateStruct("Carrier", c); err != nil {
		return "", err
	}
	if err := checkRefs(ctx, s.refRepo, "Carrier", countryRef("countryCode", c.CountryCode)); err != nil {
		return "", err
	}
	c.IsActive = true

	result, err := s.repo.UpsertCarrier(ctx, c)
	if err != nil {
		return "", fmt.Errorf("failed to upsert carrier: %w", err)
	}
	s.logger.Info("carrier upserted", zap.String("code", c.Code), zap.String("result", string(result)))
	return result, nil
}

// UpsertPartner creates or updates an overseas agent by code
func (s *PartyService) UpsertPartner(ctx context.Context, p *domain.Partner) (repository.UpsertResult, error) {
	p.Code = normalizeCode(p.Code)
	p.CountryCode = normalizeCode(p.CountryCode)
	if err := validateStruct("Partner", p); err != nil {
		return "", err
	}
	if err := checkRefs(ctx, s.refRepo, "Partner", countryRef("countryCode", p.CountryCode)); err != nil {
		return "", err
	}
	p.IsActive = true

	result, err := s.repo.UpsertPartner(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to upsert partner: %w", err)
	}
	return result, nil
}

// UpsertTrucker creates or updates an inland haulier by code
func (s *PartyService) UpsertTrucker(ctx context.Context, t *domain.Trucker) (repository.UpsertResult, error) {
	t.Code = normalizeCode(t.Code)
	if err := validateStruct("Trucker", t); err != nil {
		return "", err
	}
	t.IsActive = true

	result, err := s.repo.UpsertTrucker(ctx, t)
	if err != nil {
		return "", fmt.Errorf("failed to upsert trucker: %w", err)
	}
	return result, nil
}

// UpsertBroker creates or updates a customs broker by code
func (s *PartyService) UpsertBroker(ctx context.Context, b *domain.CustomsBroker) (repository.UpsertResult, error) {
	b.Code = normalizeCode(b.Code)
	if err := validateStruct("CustomsBroker", b); err != nil {
		return "", err
	}
	b.IsActive = true

	result, err := s.repo.UpsertBroker(ctx, b)
	if err != nil {
		return "", fmt.Errorf("failed to upsert customs broker: %w", err)
	}
	return result, nil
}

// UpsertUser creates or updates an operator account by username
func (s *PartyService) UpsertUser(ctx context.Context, u *domain.User) (repository.UpsertResult, error) {
	if u.Role == "" {
		u.Role = "OPERATOR"
	}
	if err := validateStruct("User", u); err != nil {
		return "", err
	}
	u.IsActive = true

	result, err := s.repo.UpsertUser(ctx, u)
	if err != nil {
		return "", fmt.Errorf("failed to upsert user: %w", err)
	}
	return result, nil
}

// GetCustomerByCode returns a customer by business code
func (s *PartyService) GetCustomerByCode(ctx context.Context, code string) (*domain.Customer, error) {
	c, err := s.repo.GetCustomerByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, notFound(err, "customer")
	}
	return c, nil
}

// GetCarrierByCode returns a carrier by business code
func (s *PartyService) GetCarrierByCode(ctx context.Context, code string) (*domain.Carrier, error) {
	c, err := s.repo.GetCarrierByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, notFound(err, "carrier")
	}
	return c, nil
}

// GetPartnerByCode returns a partner by business code
func (s *PartyService) GetPartnerByCode(ctx context.Context, code string) (*domain.Partner, error) {
	p, err := s.repo.GetPartnerByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, notFound(err, "partner")
	}
	return p, nil
}

// GetActiveUser returns an operator account that may sign in
func (s *PartyService) GetActiveUser(ctx context.Context, username string) (*domain.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, notFound(err, "user")
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: user %s is inactive", ErrPermissionDenied, u.Username)
	}
	return u, nil
}

// DeactivateCustomer blocks new references to the customer. History keeps the code.
func (s *PartyService) DeactivateCustomer(ctx context.Context, code string) error {
	return s.deactivate(ctx, &domain.Customer{}, "customer", code)
}

// DeactivateCarrier blocks new references to the carrier
func (s *PartyService) DeactivateCarrier(ctx context.Context, code string) error {
	return s.deactivate(ctx, &domain.Carrier{}, "carrier", code)
}

func (s *PartyService) deactivate(ctx context.Context, model interface{}, entity, code string) error {
	code = normalizeCode(code)
	ok, err := s.refRepo.SetActive(ctx, model, code, false)
	if err != nil {
		return fmt.Errorf("failed to deactivate %s: %w", entity, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrNotFound, entity, code)
	}
	s.logger.Info("party deactivated", zap.String("entity", entity), zap.String("code", code))
	return nil
}

// ListCustomers returns a page of customers
func (s *PartyService) ListCustomers(ctx context.Context, page, pageSize int, filters *repository.PartyFilters) (*domain.PaginatedResponse, error) {
	customers, total, err := s.repo.ListCustomers(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	page, pageSize, _ = repository.Page(page, pageSize)
	return domain.NewPaginatedResponse(customers, total, page, pageSize), nil
}

// ListCarriers returns carriers of a type, or all when empty
func (s *PartyService) ListCarriers(ctx context.Context, carrierType string) ([]domain.Carrier, error) {
	return s.repo.ListCarriers(ctx, normalizeCode(carrierType))
}
