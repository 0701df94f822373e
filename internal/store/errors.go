package store

import (
	"errors"
	"fmt"
	"strings"

	"art_market/internal/domain"

	"gorm.io/gorm"
)

// isUniqueViolation reports whether err comes from a unique index. Drivers
// without error translation are matched on their message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

// translate maps a gorm error to the domain taxonomy
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", what, domain.ErrAlreadyExists)
	default:
		return fmt.Errorf("%s: %w: %v", what, domain.ErrStorageFailure, err)
	}
}
