// Package blob stores uploaded images and hands back stable references.
package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store persists image bytes and returns a reference usable as a listing image URL.
type Store interface {
	Put(ctx context.Context, ext, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
}

// NewKey builds a unique, date-partitioned object key ending in ext.
func NewKey(ext string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}
