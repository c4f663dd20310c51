package service

import (
	"errors"
	"fmt"

	"github.com/straye-as/fms-api/internal/repository"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCreditRejected is returned when a credit check blocks an order and no override was given
	ErrCreditRejected = errors.New("credit check rejected")
)

// notFound wraps a repository miss as ErrNotFound and passes other errors through
func notFound(err error, entity string) error {
	if repository.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	}
	return err
}
