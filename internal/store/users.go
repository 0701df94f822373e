package store

import (
	"context"

	"art_market/internal/domain"

	"gorm.io/gorm"
)

// UserStore persists user accounts with GORM
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a user repository
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a user; a taken email is domain.ErrAlreadyExists
func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error, "creating user")
}

// GetByID loads a user by primary key
func (s *UserStore) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err, "getting user")
	}
	return &u, nil
}

// GetByEmail loads a user by normalized email
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err, "getting user")
	}
	return &u, nil
}

// EmailTaken reports whether an account already uses email
func (s *UserStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, translate(err, "checking email")
	}
	return count > 0, nil
}

// UpdateProfile saves username, mobile and profile picture
func (s *UserStore) UpdateProfile(ctx context.Context, u *domain.User) error {
	err := s.db.WithContext(ctx).Model(u).
		Select("Username", "Mobile", "ProfilePic").
		Updates(u).Error
	return translate(err, "updating profile")
}

// UpdatePassword replaces the stored password hash
func (s *UserStore) UpdatePassword(ctx context.Context, id uint, hash string) error {
	res := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return translate(res.Error, "updating password")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "updating password")
	}
	return nil
}

// List returns one page of users and the total count
func (s *UserStore) List(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "counting users")
	}
	users := []domain.User{}
	err := s.db.WithContext(ctx).Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error
	if err != nil {
		return nil, 0, translate(err, "listing users")
	}
	return users, total, nil
}
