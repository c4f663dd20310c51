package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

var validate = validator.New()

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// withWarnings wraps a result that may carry reconciliation warnings
type withWarnings struct {
	Data     interface{}                    `json:"data"`
	Warnings []domain.ReconciliationWarning `json:"warnings"`
}

func respondWithWarnings(w http.ResponseWriter, status int, data interface{}, warnings []domain.ReconciliationWarning) {
	if warnings == nil {
		warnings = []domain.ReconciliationWarning{}
	}
	respondJSON(w, status, withWarnings{Data: data, Warnings: warnings})
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}
	respondProblem(w, http.StatusBadRequest, domain.ErrorTypeValidation, "One or more fields failed validation", fields)
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func respondProblem(w http.ResponseWriter, status int, errType, detail string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   errType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Errors: fields,
	})
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondProblem(w, status, errorType(status), message, nil)
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	default:
		return domain.ErrorTypeInternal
	}
}

// respondError maps a service error onto its status code. Unknown errors are logged as 500.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error, msg string) {
	var (
		ve *domain.ValidationError
		re *domain.ReferentialIntegrityError
		ce *domain.CapacityExhaustedError
		te *domain.StateTransitionError
	)
	switch {
	case errors.As(err, &ve):
		respondProblem(w, http.StatusBadRequest, domain.ErrorTypeValidation, err.Error(),
			map[string]string{ve.Field: ve.Rule})
	case errors.Is(err, service.ErrInvalidInput):
		respondProblem(w, http.StatusBadRequest, domain.ErrorTypeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		respondProblem(w, http.StatusNotFound, domain.ErrorTypeNotFound, err.Error(), nil)
	case errors.As(err, &re):
		respondProblem(w, http.StatusUnprocessableEntity, domain.ErrorTypeReference, err.Error(),
			map[string]string{re.Field: re.Value})
	case errors.Is(err, service.ErrCreditRejected):
		respondProblem(w, http.StatusPaymentRequired, domain.ErrorTypeCredit, err.Error(), nil)
	case errors.As(err, &ce):
		respondProblem(w, http.StatusConflict, domain.ErrorTypeCapacity, err.Error(), nil)
	case errors.As(err, &te):
		respondProblem(w, http.StatusConflict, domain.ErrorTypeTransition, err.Error(), nil)
	case errors.Is(err, service.ErrConflict), errors.Is(err, domain.ErrImmutable):
		respondProblem(w, http.StatusConflict, domain.ErrorTypeConflict, err.Error(), nil)
	case errors.Is(err, service.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		respondWithError(w, http.StatusForbidden, err.Error())
	default:
		logger.Error(msg, zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, msg)
	}
}

// decodeJSON reads a JSON body into v and runs struct validation. It writes the
// error response itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := validate.Struct(v); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return true
		}
		respondValidationError(w, err)
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.ContentLength == 0 {
		return true
	}
	return decodeJSON(w, r, v)
}

// pathID parses the named URL parameter as a UUID
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: must be a valid UUID", name))
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional UUID query parameter
func queryID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: must be a valid UUID", name))
		return nil, false
	}
	return &id, true
}

// queryDate parses an optional YYYY-MM-DD or RFC 3339 query parameter
func queryDate(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: expected YYYY-MM-DD", name))
	return nil, false
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func pageParams(r *http.Request) (int, int) {
	return queryInt(r, "page", 1), queryInt(r, "pageSize", 20)
}

// reasonRequest is the body of cancel and reject actions
type reasonRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// upsertResponse reports whether an upsert created, updated or left the row
type upsertResponse struct {
	Result string      `json:"result"`
	Data   interface{} `json:"data"`
}

func respondUpsert(w http.ResponseWriter, result repository.UpsertResult, data interface{}) {
	status := http.StatusOK
	if result == repository.UpsertCreated {
		status = http.StatusCreated
	}
	respondJSON(w, status, upsertResponse{Result: string(result), Data: data})
}

// idAction runs a body-less action on the entity named by the {id} path parameter
func idAction[T any](w http.ResponseWriter, r *http.Request, logger *zap.Logger, msg string, fn func(context.Context, uuid.UUID) (T, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := fn(r.Context(), id)
	if err != nil {
		respondError(w, logger, err, msg)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
