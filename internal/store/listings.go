package store

import (
	"context"

	"art_market/internal/domain"

	"gorm.io/gorm"
)

// ListingFilter narrows and paginates listing queries
type ListingFilter struct {
	Status   string // Optional status filter
	Page     int    // 1-based page
	PageSize int    // Page size
}

// ListingStore persists listings with GORM
type ListingStore struct {
	db *gorm.DB
}

// NewListingStore creates a listing repository
func NewListingStore(db *gorm.DB) *ListingStore {
	return &ListingStore{db: db}
}

// Create inserts a new listing. A title collision on the unique index is
// reported as domain.ErrAlreadyExists.
func (s *ListingStore) Create(ctx context.Context, l *domain.Listing) error {
	return translate(s.db.WithContext(ctx).Omit("Owner").Create(l).Error, "creating listing")
}

// ExistsByTitle reports whether another listing already uses title.
// excludeID skips the listing being updated; pass 0 on create.
func (s *ListingStore) ExistsByTitle(ctx context.Context, title string, excludeID uint) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&domain.Listing{}).Where("title = ?", title)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, translate(err, "checking title")
	}
	return count > 0, nil
}

// Get loads a listing with its owner
func (s *ListingStore) Get(ctx context.Context, id uint) (*domain.Listing, error) {
	var l domain.Listing
	if err := s.db.WithContext(ctx).Preload("Owner").First(&l, id).Error; err != nil {
		return nil, translate(err, "getting listing")
	}
	return &l, nil
}

// List returns one page of listings, newest first, and the total match count
func (s *ListingStore) List(ctx context.Context, f ListingFilter) ([]domain.Listing, int64, error) {
	query := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&domain.Listing{})
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		return q
	}
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, translate(err, "counting listings")
	}
	listings := []domain.Listing{}
	err := query().Preload("Owner").
		Order("created_at desc").Order("id desc").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&listings).Error
	if err != nil {
		return nil, 0, translate(err, "listing listings")
	}
	return listings, total, nil
}

// Update saves the mutable fields of an existing listing
func (s *ListingStore) Update(ctx context.Context, l *domain.Listing) error {
	err := s.db.WithContext(ctx).Model(l).
		Select("Title", "Description", "Price", "Status", "Dimensions", "Material").
		Updates(l).Error
	return translate(err, "updating listing")
}

// Delete removes a listing by id
func (s *ListingStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&domain.Listing{}, id)
	if res.Error != nil {
		return translate(res.Error, "deleting listing")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "deleting listing")
	}
	return nil
}

// Count returns the number of stored listings
func (s *ListingStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Listing{}).Count(&count).Error
	return count, translate(err, "counting listings")
}
