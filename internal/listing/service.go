// Package listing implements the upload-and-notify pipeline and the
// read, update and delete operations on listings.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"art_market/internal/blob"
	"art_market/internal/domain"
	"art_market/internal/events"
	"art_market/internal/imaging"
	"art_market/internal/store"

	"github.com/sirupsen/logrus"
)

// Page size bounds for List.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// notifyTimeout bounds one best-effort publish.
const notifyTimeout = 5 * time.Second

// Repository is the listing persistence the service needs.
type Repository interface {
	Create(ctx context.Context, l *domain.Listing) error
	ExistsByTitle(ctx context.Context, title string, excludeID uint) (bool, error)
	Get(ctx context.Context, id uint) (*domain.Listing, error)
	List(ctx context.Context, f store.ListingFilter) ([]domain.Listing, int64, error)
	Update(ctx context.Context, l *domain.Listing) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID   uint
	Role string
}

// IsAdmin reports whether the caller holds the administrator role.
func (c Caller) IsAdmin() bool { return c.Role == domain.RoleAdmin }

// Patch is a partial listing update; nil fields are left unchanged.
type Patch struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Status      *string  `json:"status"`
	Dimensions  *string  `json:"dimensions"`
	Material    *string  `json:"material"`
}

// Service runs the listing operations.
type Service struct {
	repo     Repository
	blobs    blob.Store
	notifier events.Publisher
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewService wires the pipeline stages.
func NewService(repo Repository, blobs blob.Store, notifier events.Publisher) *Service {
	return &Service{repo: repo, blobs: blobs, notifier: notifier, now: time.Now}
}

// Create validates the upload, guards the title, stores the image, writes the
// record and announces it. The owner is always the caller.
func (s *Service) Create(ctx context.Context, caller Caller, u Upload) (*domain.Listing, error) {
	draft, err := Validate(u)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByTitle(ctx, draft.Title, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("artwork with this title already exists: %w", domain.ErrAlreadyExists)
	}

	img, err := imaging.Normalize(draft.Image.Data)
	if err != nil {
		if errors.Is(err, imaging.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %v", domain.ErrPayloadTooLarge, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedMediaType, err)
	}
	ref, err := s.blobs.Put(ctx, img.Ext, img.MIME, img.Data)
	if err != nil {
		return nil, fmt.Errorf("storing image: %w: %v", domain.ErrStorageFailure, err)
	}

	l := &domain.Listing{
		Title:       draft.Title,
		Description: orDefault(draft.Description, domain.DefaultDescription),
		ImageURL:    ref,
		OwnerID:     caller.ID,
		Price:       draft.Price,
		Status:      domain.StatusAvailable,
		Dimensions:  orDefault(draft.Dimensions, domain.DefaultUnspecified),
		Material:    orDefault(draft.Material, domain.DefaultUnspecified),
	}
	// Committed once Create returns, even if the client has gone away.
	writeCtx := context.WithoutCancel(ctx)
	if err := s.repo.Create(writeCtx, l); err != nil {
		s.discardBlob(writeCtx, ref)
		logrus.WithFields(logrus.Fields{
			"owner_id": caller.ID,
			"title":    l.Title,
			"error":    err.Error(),
		}).Error("Listing upload failed")
		return nil, err
	}

	if full, err := s.repo.Get(writeCtx, l.ID); err == nil {
		l = full
	}
	logrus.WithFields(logrus.Fields{
		"listing_id": l.ID,
		"owner_id":   l.OwnerID,
		"title":      l.Title,
		"image_url":  l.ImageURL,
	}).Info("Listing created")

	s.notify(events.ListingCreated, *l)
	return l, nil
}

// Get returns one listing.
func (s *Service) Get(ctx context.Context, id uint) (*domain.Listing, error) {
	return s.repo.Get(ctx, id)
}

// Count returns the number of stored listings.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// List returns listings newest first. Page and size are clamped to sane bounds.
func (s *Service) List(ctx context.Context, f store.ListingFilter) ([]domain.Listing, int64, error) {
	if f.Status != "" && !domain.ValidStatus(f.Status) {
		return nil, 0, domain.InvalidField("status", "status must be available or sold")
	}
	f = NormalizeFilter(f)
	return s.repo.List(ctx, f)
}

// NormalizeFilter applies the default page and bounds the page size.
func NormalizeFilter(f store.ListingFilter) store.ListingFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > MaxPageSize {
		f.PageSize = DefaultPageSize
	}
	return f
}

// Authorize permits the action when the caller owns the listing or is an admin.
func Authorize(caller Caller, l *domain.Listing) error {
	if caller.IsAdmin() || l.OwnedBy(caller.ID) {
		return nil
	}
	return fmt.Errorf("unauthorized to modify this artwork: %w", domain.ErrForbidden)
}

// Update applies patch to the listing after the existence and ownership checks.
func (s *Service) Update(ctx context.Context, caller Caller, id uint, p Patch) (*domain.Listing, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(caller, l); err != nil {
		return nil, err
	}

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, domain.InvalidField("title", "title is required")
		}
		if err := CheckLength("title", title); err != nil {
			return nil, err
		}
		if title != l.Title {
			exists, err := s.repo.ExistsByTitle(ctx, title, l.ID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, fmt.Errorf("artwork with this title already exists: %w", domain.ErrAlreadyExists)
			}
		}
		l.Title = title
	}
	if p.Price != nil {
		if err := CheckPrice(*p.Price); err != nil {
			return nil, err
		}
		l.Price = *p.Price
	}
	if p.Status != nil {
		if !domain.ValidStatus(*p.Status) {
			return nil, domain.InvalidField("status", "status must be available or sold")
		}
		l.Status = *p.Status
	}
	if p.Description != nil {
		l.Description = orDefault(strings.TrimSpace(*p.Description), domain.DefaultDescription)
	}
	if p.Dimensions != nil {
		l.Dimensions = orDefault(strings.TrimSpace(*p.Dimensions), domain.DefaultUnspecified)
		if err := CheckLength("dimensions", l.Dimensions); err != nil {
			return nil, err
		}
	}
	if p.Material != nil {
		l.Material = orDefault(strings.TrimSpace(*p.Material), domain.DefaultUnspecified)
		if err := CheckLength("material", l.Material); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(context.WithoutCancel(ctx), l); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"listing_id": l.ID,
		"caller_id":  caller.ID,
		"status":     l.Status,
	}).Info("Listing updated")
	return l, nil
}

// Delete removes the listing and its image when the caller may do so.
func (s *Service) Delete(ctx context.Context, caller Caller, id uint) error {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := Authorize(caller, l); err != nil {
		return err
	}

	writeCtx := context.WithoutCancel(ctx)
	if err := s.repo.Delete(writeCtx, id); err != nil {
		return err
	}
	s.discardBlob(writeCtx, l.ImageURL)
	logrus.WithFields(logrus.Fields{
		"listing_id": id,
		"caller_id":  caller.ID,
		"role":       caller.Role,
	}).Info("Listing deleted")

	s.notify(events.ListingDeleted, *l)
	return nil
}

// Wait blocks until in-flight notifications finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// notify publishes in the background; failures are logged and never reach the caller.
func (s *Service) notify(eventType string, l domain.Listing) {
	if s.notifier == nil {
		return
	}
	ev := events.Event{Type: eventType, Listing: l.View(), OccurredAt: s.now().UTC()}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Publish(ctx, ev); err != nil {
			logrus.WithFields(logrus.Fields{
				"listing_id": ev.Listing.ID,
				"event":      ev.Type,
				"error":      fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err).Error(),
			}).Warn("Listing notification failed")
		}
	}()
}

func (s *Service) discardBlob(ctx context.Context, ref string) {
	if err := s.blobs.Delete(ctx, ref); err != nil {
		logrus.WithFields(logrus.Fields{
			"image_url": ref,
			"error":     err.Error(),
		}).Warn("Failed to remove image")
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
