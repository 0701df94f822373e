package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for missing or malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupportedMediaType is returned when an upload is not an accepted image type.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrPayloadTooLarge is returned when an upload exceeds the size limit.
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	// ErrTooManyRequests is returned when a caller exceeds a rate limit.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrStorageFailure wraps durable-store and blob-store errors.
	ErrStorageFailure = errors.New("storage failure")
	// ErrDeliveryFailure wraps notification and code-delivery errors.
	ErrDeliveryFailure = errors.New("delivery failure")
)

// FieldError names the input field that failed validation
type FieldError struct {
	Field  string // Offending field
	Reason string // Human readable reason
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidArgument
func (e *FieldError) Unwrap() error {
	return ErrInvalidArgument
}

// InvalidField builds a FieldError for field
func InvalidField(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
