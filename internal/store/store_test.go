package store

import (
	"context"
	"testing"
	"time"

	"art_market/internal/db"
	"art_market/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, users *UserStore, email string) *domain.User {
	t.Helper()
	u := &domain.User{Username: "artist", Mobile: "0123456789", Email: email, Password: "hash", Role: domain.RoleUser}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestListingStoreTitleUnique(t *testing.T) {
	database := db.NewTestDB(t)
	users := NewUserStore(database)
	listings := NewListingStore(database)
	ctx := context.Background()
	owner := newUser(t, users, "a@example.com")

	first := &domain.Listing{Title: "Sunset", ImageURL: "/uploads/a.jpg", OwnerID: owner.ID, Price: 120, Status: domain.StatusAvailable}
	require.NoError(t, listings.Create(ctx, first))
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	dup := &domain.Listing{Title: "Sunset", ImageURL: "/uploads/b.jpg", OwnerID: owner.ID, Price: 5, Status: domain.StatusAvailable}
	err := listings.Create(ctx, dup)
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	count, err := listings.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	exists, err := listings.ExistsByTitle(ctx, "Sunset", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = listings.ExistsByTitle(ctx, "Sunset", first.ID)
	require.NoError(t, err)
	assert.False(t, exists, "own title is not a duplicate")
}

func TestListingStoreGetListDelete(t *testing.T) {
	database := db.NewTestDB(t)
	users := NewUserStore(database)
	listings := NewListingStore(database)
	ctx := context.Background()
	owner := newUser(t, users, "b@example.com")

	base := time.Now().Add(-time.Hour)
	for i, title := range []string{"One", "Two", "Three"} {
		l := &domain.Listing{Title: title, ImageURL: "/x", OwnerID: owner.ID, Price: 1, Status: domain.StatusAvailable,
			CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, listings.Create(ctx, l))
	}

	page, total, err := listings.List(ctx, ListingFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "Three", page[0].Title, "newest first")
	assert.Equal(t, "Two", page[1].Title)
	require.NotNil(t, page[0].Owner)
	assert.Equal(t, owner.Email, page[0].Owner.Email)

	got, err := listings.Get(ctx, page[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Two", got.Title)

	got.Status = domain.StatusSold
	require.NoError(t, listings.Update(ctx, got))
	sold, total, err := listings.List(ctx, ListingFilter{Status: domain.StatusSold, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, got.ID, sold[0].ID)

	require.NoError(t, listings.Delete(ctx, got.ID))
	_, err = listings.Get(ctx, got.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, listings.Delete(ctx, got.ID), domain.ErrNotFound)
}

func TestUserStore(t *testing.T) {
	database := db.NewTestDB(t)
	users := NewUserStore(database)
	ctx := context.Background()
	u := newUser(t, users, "c@example.com")

	dup := &domain.User{Username: "other", Mobile: "0123456789", Email: "c@example.com", Password: "h"}
	assert.ErrorIs(t, users.Create(ctx, dup), domain.ErrAlreadyExists)

	taken, err := users.EmailTaken(ctx, "c@example.com")
	require.NoError(t, err)
	assert.True(t, taken)

	require.NoError(t, users.UpdatePassword(ctx, u.ID, "newhash"))
	got, err := users.GetByEmail(ctx, "c@example.com")
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.Password)

	got.Username = "renamed"
	require.NoError(t, users.UpdateProfile(ctx, got))
	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Username)

	_, err = users.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, users.UpdatePassword(ctx, 999, "x"), domain.ErrNotFound)
}

func TestOTPStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewOTPStore(client)
	ctx := context.Background()

	now := time.Now()
	code := domain.OneTimeCode{Contact: "a@example.com", Code: "123456", CreatedAt: now, ExpiresAt: now.Add(domain.OTPTTL)}
	require.NoError(t, s.Put(ctx, code))
	assert.Equal(t, domain.OTPTTL, mr.TTL(otpKeyPrefix+"a@example.com"))

	got, err := s.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", got.Code)
	assert.True(t, got.ExpiresAt.Equal(code.ExpiresAt))

	require.NoError(t, s.Delete(ctx, "a@example.com"))
	_, err = s.Get(ctx, "a@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Put(ctx, code))
	mr.FastForward(domain.OTPTTL + time.Second)
	_, err = s.Get(ctx, "a@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound, "reclaimed by TTL")
}

func TestOTPStoreCounters(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewOTPStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()
	contact := "a@example.com"

	for want := int64(1); want <= 3; want++ {
		n, err := s.RecordAttempt(ctx, contact, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, time.Minute, mr.TTL(attemptsKeyPrefix+contact), "window starts at the first attempt")

	now := time.Now()
	require.NoError(t, s.Put(ctx, domain.OneTimeCode{Contact: contact, Code: "111111", CreatedAt: now, ExpiresAt: now.Add(domain.OTPTTL)}))
	n, err := s.RecordAttempt(ctx, contact, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "a new code resets the attempts")

	require.NoError(t, s.Delete(ctx, contact))
	assert.False(t, mr.Exists(attemptsKeyPrefix+contact))

	_, err = s.RecordIssue(ctx, contact, time.Hour)
	require.NoError(t, err)
	n, err = s.RecordIssue(ctx, contact, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	mr.FastForward(time.Hour + time.Second)
	n, err = s.RecordIssue(ctx, contact, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "issue window expires")
}
