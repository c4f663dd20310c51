package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationFieldError maps a field name to its validation error message
type ValidationFieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationMessages provides human-readable validation error messages
// These map validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required":   "This field is required",
	"email":      "Must be a valid email address",
	"max":        "Exceeds maximum length",
	"min":        "Below minimum length",
	"gte":        "Must be greater than or equal to minimum value",
	"gt":         "Must be greater than minimum value",
	"lte":        "Must be less than or equal to maximum value",
	"lt":         "Must be less than maximum value",
	"uuid":       "Must be a valid UUID",
	"url":        "Must be a valid URL",
	"oneof":      "Must be one of the allowed values",
	"alphanum":   "Must contain only alphanumeric characters",
	"numeric":    "Must be a numeric value",
	"alpha":      "Must contain only alphabetic characters",
	"len":        "Must be exactly the specified length",
	"eq":         "Must equal the specified value",
	"ne":         "Must not equal the specified value",
	"contains":   "Must contain the specified value",
	"excludes":   "Must not contain the specified value",
	"startswith": "Must start with the specified value",
	"endswith":   "Must end with the specified value",
	"iso4217":    "Must be a valid ISO 4217 currency code",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeConflict     = "conflict"
	ErrorTypeReference    = "referential_integrity"
	ErrorTypeCapacity     = "capacity_exhausted"
	ErrorTypeTransition   = "invalid_state_transition"
	ErrorTypeCredit       = "credit_rejected"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeInternal     = "internal_error"
)

// Sentinels for the error taxonomy; every concrete error below matches one via errors.Is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrReferentialIntegrity = errors.New("referential integrity violation")
	ErrCapacityExhausted    = errors.New("capacity exhausted")
	ErrStateTransition      = errors.New("invalid state transition")
	ErrImmutable            = errors.New("record is append-only")
)

// ValidationError is a malformed or missing field, rejected before any write.
type ValidationError struct {
	Entity string
	Field  string
	Rule   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s.%s: %s", e.Entity, e.Field, e.Rule)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError
func NewValidationError(entity, field, rule string) *ValidationError {
	return &ValidationError{Entity: entity, Field: field, Rule: rule}
}

// ReferentialIntegrityError is a reference to a business key or id that does not exist.
type ReferentialIntegrityError struct {
	Entity string
	Field  string
	Value  string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("referential integrity: %s.%s references unknown %q", e.Entity, e.Field, e.Value)
}

func (e *ReferentialIntegrityError) Is(target error) bool { return target == ErrReferentialIntegrity }

// NewReferenceError builds a ReferentialIntegrityError
func NewReferenceError(entity, field, value string) *ReferentialIntegrityError {
	return &ReferentialIntegrityError{Entity: entity, Field: field, Value: value}
}

// CapacityExhaustedError reports insufficient space, weight, serials or credit.
// The caller may retry once capacity changes.
type CapacityExhaustedError struct {
	Resource   string
	ResourceID uuid.UUID
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *CapacityExhaustedError) Error() string {
	return fmt.Sprintf("capacity exhausted: %s %s requested %s, available %s",
		e.Resource, e.ResourceID, e.Requested.String(), e.Available.String())
}

func (e *CapacityExhaustedError) Is(target error) bool { return target == ErrCapacityExhausted }

// StateTransitionError is an operation not allowed from the entity's current status.
// The entity is left unchanged.
type StateTransitionError struct {
	Entity string
	ID     uuid.UUID
	From   string
	To     string
	Reason string
}

func (e *StateTransitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid transition for %s %s: %s -> %s", e.Entity, e.ID, e.From, e.To)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *StateTransitionError) Is(target error) bool { return target == ErrStateTransition }
