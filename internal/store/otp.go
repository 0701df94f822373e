package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"art_market/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	otpKeyPrefix      = "auth:otp:"
	attemptsKeyPrefix = "auth:otp:attempts:"
	issuedKeyPrefix   = "auth:otp:issued:"
)

// OTPStore keeps one-time codes in Redis. The key TTL only reclaims space;
// callers decide validity from OneTimeCode.ExpiresAt.
type OTPStore struct {
	client *redis.Client
}

// NewOTPStore creates a Redis one-time-code store
func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

// Put stores code for its contact, replacing any earlier code
func (s *OTPStore) Put(ctx context.Context, code domain.OneTimeCode) error {
	raw, err := json.Marshal(code)
	if err != nil {
		return err
	}
	ttl := code.ExpiresAt.Sub(code.CreatedAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	// A fresh code starts with a clean attempt counter
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, otpKeyPrefix+code.Contact, raw, ttl)
		p.Del(ctx, attemptsKeyPrefix+code.Contact)
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing code: %w: %v", domain.ErrStorageFailure, err)
	}
	return nil
}

// RecordAttempt counts one verification attempt against the current code for
// contact and returns the running total. The counter lives for ttl.
func (s *OTPStore) RecordAttempt(ctx context.Context, contact string, ttl time.Duration) (int64, error) {
	return s.incr(ctx, attemptsKeyPrefix+contact, ttl)
}

// RecordIssue counts one code issued to contact within window and returns the total.
func (s *OTPStore) RecordIssue(ctx context.Context, contact string, window time.Duration) (int64, error) {
	return s.incr(ctx, issuedKeyPrefix+contact, window)
}

func (s *OTPStore) incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w: %v", key, domain.ErrStorageFailure, err)
	}
	if n == 1 {
		// The window starts at the first count
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("expiring %s: %w: %v", key, domain.ErrStorageFailure, err)
		}
	}
	return n, nil
}

// Get returns the current code for contact or domain.ErrNotFound
func (s *OTPStore) Get(ctx context.Context, contact string) (*domain.OneTimeCode, error) {
	raw, err := s.client.Get(ctx, otpKeyPrefix+contact).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("code for %s: %w", contact, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("loading code: %w: %v", domain.ErrStorageFailure, err)
	}
	var out domain.OneTimeCode
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding code: %w: %v", domain.ErrStorageFailure, err)
	}
	return &out, nil
}

// Delete consumes the code for contact along with its attempt counter
func (s *OTPStore) Delete(ctx context.Context, contact string) error {
	if err := s.client.Del(ctx, otpKeyPrefix+contact, attemptsKeyPrefix+contact).Err(); err != nil {
		return fmt.Errorf("deleting code: %w: %v", domain.ErrStorageFailure, err)
	}
	return nil
}
