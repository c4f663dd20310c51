package service

import (
	"context"
	"fmt"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
)

// codeRef names one business-code reference held by an entity
type codeRef struct {
	field string
	code  string
	model interface{}
}

func customerRef(field, code string) codeRef { return codeRef{field, code, &domain.Customer{}} }
func carrierRef(field, code string) codeRef  { return codeRef{field, code, &domain.Carrier{}} }
func portRef(field, code string) codeRef     { return codeRef{field, code, &domain.Port{}} }
func countryRef(field, code string) codeRef  { return codeRef{field, code, &domain.Country{}} }
func currencyRef(field, code string) codeRef { return codeRef{field, code, &domain.Currency{}} }
func partnerRef(field, code string) codeRef  { return codeRef{field, code, &domain.Partner{}} }
func truckerRef(field, code string) codeRef  { return codeRef{field, code, &domain.Trucker{}} }
func brokerRef(field, code string) codeRef   { return codeRef{field, code, &domain.CustomsBroker{}} }
func hsCodeRef(field, code string) codeRef   { return codeRef{field, code, &domain.HSCode{}} }

// checkRefs fails with a ReferentialIntegrityError on the first non-empty code that has
// no active master row. Empty codes are optional references and are skipped.
func checkRefs(ctx context.Context, repo *repository.ReferenceRepository, entity string, refs ...codeRef) error {
	for _, ref := range refs {
		if ref.code == "" {
			continue
		}
		ok, err := repo.CodeExists(ctx, ref.model, ref.code)
		if err != nil {
			return fmt.Errorf("failed to check %s.%s: %w", entity, ref.field, err)
		}
		if !ok {
			return domain.NewReferenceError(entity, ref.field, ref.code)
		}
	}
	return nil
}

// checkCommonCode fails with a ReferentialIntegrityError when code is not an active member of group
func checkCommonCode(ctx context.Context, repo *repository.ReferenceRepository, entity, field, group, code string) error {
	if code == "" {
		return nil
	}
	ok, err := repo.CommonCodeExists(ctx, group, code)
	if err != nil {
		return fmt.Errorf("failed to check %s.%s: %w", entity, field, err)
	}
	if !ok {
		return domain.NewReferenceError(entity, field, code)
	}
	return nil
}
