// Package auth handles accounts: signup, login, profile edits and password
// reset with one-time codes.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"art_market/internal/domain"
	"art_market/internal/mailer"
	"art_market/internal/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// UserRepository is the account persistence the service needs.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

// CodeStore keeps one-time codes.
type CodeStore interface {
	Put(ctx context.Context, code domain.OneTimeCode) error
	Get(ctx context.Context, contact string) (*domain.OneTimeCode, error)
	Delete(ctx context.Context, contact string) error
	// RecordAttempt counts a guess against contact's code and returns the total
	RecordAttempt(ctx context.Context, contact string, ttl time.Duration) (int64, error)
	// RecordIssue counts a code issued to contact within window and returns the total
	RecordIssue(ctx context.Context, contact string, window time.Duration) (int64, error)
}

// SignupInput is the data needed to register.
type SignupInput struct {
	Username string
	Mobile   string
	Email    string
	Password string
}

// ProfilePatch is a partial profile edit; nil fields are left unchanged.
type ProfilePatch struct {
	Username   *string `json:"username"`
	Mobile     *string `json:"mobile"`
	ProfilePic *string `json:"profile_pic"`
}

// Service implements the account operations.
type Service struct {
	users     UserRepository
	codes     CodeStore
	sender    mailer.Sender
	jwtSecret string

	Now      func() time.Time // Clock used for code issue and expiry
	HashCost int              // Bcrypt cost
}

// NewService creates the account service.
func NewService(users UserRepository, codes CodeStore, sender mailer.Sender, jwtSecret string) *Service {
	return &Service{
		users:     users,
		codes:     codes,
		sender:    sender,
		jwtSecret: jwtSecret,
		Now:       time.Now,
		HashCost:  bcrypt.DefaultCost,
	}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup validates the input and creates a regular user account.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	mobile := strings.TrimSpace(in.Mobile)
	email := NormalizeEmail(in.Email)
	if username == "" || mobile == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: all fields are required", domain.ErrInvalidArgument)
	}
	if !emailPattern.MatchString(email) {
		return nil, domain.InvalidField("email", "invalid email format")
	}
	if !mobilePattern.MatchString(mobile) {
		return nil, domain.InvalidField("mobile", "invalid mobile number format")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	taken, err := s.users.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("email already in use: %w", domain.ErrAlreadyExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u := &domain.User{
		Username:   username,
		Mobile:     mobile,
		Email:      email,
		Password:   string(hash),
		Role:       domain.RoleUser,
		ProfilePic: domain.DefaultProfilePic,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("email already in use: %w", domain.ErrAlreadyExists)
		}
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": u.ID,
		"email":   u.Email,
	}).Info("User registered")
	return u, nil
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidArgument)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthenticated)
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthenticated)
	}
	token, err := utils.GenerateJWT(u.ID, u.Role, s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("generating token: %w", err)
	}
	return token, u, nil
}

// Profile loads the caller's account.
func (s *Service) Profile(ctx context.Context, userID uint) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile edits username, mobile and profile picture.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, p ProfilePatch) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.Username != nil {
		name := strings.TrimSpace(*p.Username)
		if name == "" {
			return nil, domain.InvalidField("username", "username is required")
		}
		u.Username = name
	}
	if p.Mobile != nil {
		mobile := strings.TrimSpace(*p.Mobile)
		if !mobilePattern.MatchString(mobile) {
			return nil, domain.InvalidField("mobile", "invalid mobile number format")
		}
		u.Mobile = mobile
	}
	if p.ProfilePic != nil {
		u.ProfilePic = strings.TrimSpace(*p.ProfilePic)
		if u.ProfilePic == "" {
			u.ProfilePic = domain.DefaultProfilePic
		}
	}
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RequestPasswordReset issues and delivers a fresh code when the account
// exists. Unknown addresses succeed silently and receive nothing.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return domain.InvalidField("email", "invalid email format")
	}
	// Counted before the lookup so unknown addresses are limited the same way
	issued, err := s.codes.RecordIssue(ctx, email, domain.OTPIssueWindow)
	if err != nil {
		return err
	}
	if issued > domain.OTPIssueLimit {
		logrus.WithField("email", email).Warn("Reset code issue limit reached")
		return fmt.Errorf("too many reset requests, try again later: %w", domain.ErrTooManyRequests)
	}
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	digits, err := randomDigits(domain.OTPLength)
	if err != nil {
		return fmt.Errorf("generating code: %w", err)
	}
	now := s.Now()
	code := domain.OneTimeCode{Contact: email, Code: digits, CreatedAt: now, ExpiresAt: now.Add(domain.OTPTTL)}
	if err := s.codes.Put(ctx, code); err != nil {
		return err
	}
	if err := s.sender.Send(ctx, email, digits); err != nil {
		logrus.WithFields(logrus.Fields{
			"email": email,
			"error": err.Error(),
		}).Error("Reset code delivery failed")
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err)
	}
	logrus.WithField("email", email).Info("Reset code issued")
	return nil
}

// ResetPassword consumes a valid code and replaces the password. A code is
// discarded once it has been guessed more than OTPMaxAttempts times.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return fmt.Errorf("%w: email and code are required", domain.ErrInvalidArgument)
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	stored, err := s.codes.Get(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthenticated)
		}
		return err
	}
	if stored.Expired(s.Now()) {
		_ = s.codes.Delete(ctx, email)
		return fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthenticated)
	}
	attempts, err := s.codes.RecordAttempt(ctx, email, stored.ExpiresAt.Sub(s.Now()))
	if err != nil {
		return err
	}
	if attempts > domain.OTPMaxAttempts {
		_ = s.codes.Delete(ctx, email)
		logrus.WithField("email", email).Warn("Reset code discarded after too many attempts")
		return fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthenticated)
	}
	if subtle.ConstantTimeCompare([]byte(stored.Code), []byte(code)) != 1 {
		return fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthenticated)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.HashCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return err
	}
	if err := s.codes.Delete(ctx, email); err != nil {
		logrus.WithFields(logrus.Fields{
			"email": email,
			"error": err.Error(),
		}).Warn("Failed to consume reset code")
	}
	logrus.WithField("user_id", u.ID).Info("Password reset")
	return nil
}

func checkPassword(p string) error {
	if len(p) < domain.MinPasswordLength {
		return domain.InvalidField("password", fmt.Sprintf("password must be at least %d characters", domain.MinPasswordLength))
	}
	return nil
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
