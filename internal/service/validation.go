package service

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/straye-as/fms-api/internal/domain"
)

var validate = validator.New()

// validateStruct runs the struct's validate tags and reports the first failure as a
// domain ValidationError naming the field and rule
func validateStruct(entity string, v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.NewValidationError(entity, lowerFirst(fe.Field()), domain.GetValidationMessage(fe.Tag()))
	}
	return domain.NewValidationError(entity, "", err.Error())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// dateOnly truncates to midnight UTC
func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// normalizeCode trims and upper-cases a business code
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
