package listing

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"art_market/internal/blob"
	"art_market/internal/db"
	"art_market/internal/domain"
	"art_market/internal/events"
	"art_market/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *Service
	listings *store.ListingStore
	users    *store.UserStore
	bus      *events.Bus
	blobDir  string
	owner    *domain.User
	other    *domain.User
	admin    *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	f := &fixture{
		listings: store.NewListingStore(database),
		users:    store.NewUserStore(database),
		bus:      events.NewBus(),
		blobDir:  t.TempDir(),
	}
	blobs, err := blob.NewDiskStore(f.blobDir, "")
	require.NoError(t, err)
	f.svc = NewService(f.listings, blobs, f.bus)

	ctx := context.Background()
	mk := func(email, role string) *domain.User {
		u := &domain.User{Username: email, Mobile: "0123456789", Email: email, Password: "x", Role: role}
		require.NoError(t, f.users.Create(ctx, u))
		return u
	}
	f.owner = mk("owner@example.com", domain.RoleUser)
	f.other = mk("other@example.com", domain.RoleUser)
	f.admin = mk("admin@example.com", domain.RoleAdmin)
	return f
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	n, err := f.listings.Count(context.Background())
	require.NoError(t, err)
	return n
}

func (f *fixture) blobFiles(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(f.blobDir, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

func caller(u *domain.User) Caller { return Caller{ID: u.ID, Role: u.Role} }

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{10, 120, 200, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// pngHeader declares a w x h grayscale PNG without any pixel data.
func pngHeader(w, h uint32) []byte {
	var ihdr bytes.Buffer
	ihdr.WriteString("IHDR")
	_ = binary.Write(&ihdr, binary.BigEndian, w)
	_ = binary.Write(&ihdr, binary.BigEndian, h)
	ihdr.Write([]byte{8, 0, 0, 0, 0})

	var out bytes.Buffer
	out.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&out, binary.BigEndian, uint32(ihdr.Len()-4))
	out.Write(ihdr.Bytes())
	_ = binary.Write(&out, binary.BigEndian, crc32.ChecksumIEEE(ihdr.Bytes()))
	return out.Bytes()
}

func sunset(t *testing.T) Upload {
	data := testJPEG(t)
	return Upload{
		Title: "Sunset",
		Price: "120",
		Image: &Image{Filename: "a.jpg", ContentType: "image/jpeg", Size: int64(len(data)), Data: data},
	}
}

func TestCreateAppliesDefaultsAndSessionOwner(t *testing.T) {
	f := newFixture(t)
	sub := f.bus.Subscribe(4)

	u := sunset(t)
	u.Owner = "999" // ignored
	l, err := f.svc.Create(context.Background(), caller(f.owner), u)
	require.NoError(t, err)

	assert.NotZero(t, l.ID)
	assert.Equal(t, f.owner.ID, l.OwnerID)
	assert.Equal(t, domain.StatusAvailable, l.Status)
	assert.Equal(t, domain.DefaultDescription, l.Description)
	assert.Equal(t, domain.DefaultUnspecified, l.Dimensions)
	assert.Equal(t, domain.DefaultUnspecified, l.Material)
	assert.Equal(t, 120.0, l.Price)
	assert.Equal(t, 1, f.blobFiles(t))

	got, err := f.svc.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ImageURL, got.ImageURL)
	assert.Equal(t, "Sunset", got.Title)
	assert.Equal(t, 120.0, got.Price)
	assert.Equal(t, domain.DefaultDescription, got.Description)
	require.NotNil(t, got.Owner)
	assert.Equal(t, f.owner.Email, got.Owner.Email)

	select {
	case ev := <-sub.C():
		assert.Equal(t, events.ListingCreated, ev.Type)
		assert.Equal(t, l.ID, ev.Listing.ID)
		require.NotNil(t, ev.Listing.Owner)
		assert.Equal(t, f.owner.ID, ev.Listing.Owner.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no listing.created event")
	}
}

func TestCreateKeepsProvidedOptionalFields(t *testing.T) {
	f := newFixture(t)
	u := sunset(t)
	u.Title = "  Dawn  "
	u.Description = "Oil on canvas"
	u.Dimensions = "50x70cm"
	u.Material = "Oil"

	l, err := f.svc.Create(context.Background(), caller(f.owner), u)
	require.NoError(t, err)
	assert.Equal(t, "Dawn", l.Title)
	assert.Equal(t, "Oil on canvas", l.Description)
	assert.Equal(t, "50x70cm", l.Dimensions)
	assert.Equal(t, "Oil", l.Material)
}

func TestCreateDuplicateTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, caller(f.owner), sunset(t))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, caller(f.other), sunset(t))
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	assert.Equal(t, int64(1), f.count(t))
	assert.Equal(t, 1, f.blobFiles(t), "guard rejects before the image is stored")
}

// blindGuard hides existing titles so only the unique index can reject.
type blindGuard struct{ *store.ListingStore }

func (blindGuard) ExistsByTitle(context.Context, string, uint) (bool, error) { return false, nil }

func TestUniqueIndexBacksTheGuard(t *testing.T) {
	f := newFixture(t)
	blobs, err := blob.NewDiskStore(f.blobDir, "")
	require.NoError(t, err)
	svc := NewService(blindGuard{f.listings}, blobs, f.bus)
	ctx := context.Background()

	_, err = svc.Create(ctx, caller(f.owner), sunset(t))
	require.NoError(t, err)
	_, err = svc.Create(ctx, caller(f.other), sunset(t))
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	assert.Equal(t, int64(1), f.count(t))
	assert.Equal(t, 1, f.blobFiles(t), "image of the rejected write is removed")
}

func TestCreateRejectsBeforeAnyWrite(t *testing.T) {
	big := make([]byte, MaxImageSize+1)
	copy(big, testJPEG(t))

	cases := []struct {
		name   string
		mutate func(*Upload)
		want   error
	}{
		{name: "gif", mutate: func(u *Upload) { u.Image.ContentType = "image/gif" }, want: domain.ErrUnsupportedMediaType},
		{name: "pdf", mutate: func(u *Upload) { u.Image.ContentType = "application/pdf" }, want: domain.ErrUnsupportedMediaType},
		{name: "lying header", mutate: func(u *Upload) { u.Image.Data = []byte("not an image at all") }, want: domain.ErrUnsupportedMediaType},
		{name: "too large", mutate: func(u *Upload) { u.Image.Data = big; u.Image.Size = int64(len(big)) }, want: domain.ErrPayloadTooLarge},
		{name: "declared too large", mutate: func(u *Upload) { u.Image.Size = MaxImageSize + 1 }, want: domain.ErrPayloadTooLarge},
		{name: "no image", mutate: func(u *Upload) { u.Image = nil }, want: domain.ErrInvalidArgument},
		{name: "blank title", mutate: func(u *Upload) { u.Title = "   " }, want: domain.ErrInvalidArgument},
		{name: "no price", mutate: func(u *Upload) { u.Price = "" }, want: domain.ErrInvalidArgument},
		{name: "zero price", mutate: func(u *Upload) { u.Price = "0" }, want: domain.ErrInvalidArgument},
		{name: "negative price", mutate: func(u *Upload) { u.Price = "-4" }, want: domain.ErrInvalidArgument},
		{name: "text price", mutate: func(u *Upload) { u.Price = "cheap" }, want: domain.ErrInvalidArgument},
		{name: "nan price", mutate: func(u *Upload) { u.Price = "NaN" }, want: domain.ErrInvalidArgument},
		{name: "long title", mutate: func(u *Upload) { u.Title = strings.Repeat("t", MaxFieldLength+1) }, want: domain.ErrInvalidArgument},
		{name: "long material", mutate: func(u *Upload) { u.Material = strings.Repeat("é", MaxFieldLength+1) }, want: domain.ErrInvalidArgument},
		{name: "huge raster", mutate: func(u *Upload) {
			u.Image.ContentType = "image/png"
			u.Image.Data = pngHeader(12000, 12000)
			u.Image.Size = int64(len(u.Image.Data))
		}, want: domain.ErrPayloadTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			u := sunset(t)
			tc.mutate(&u)

			_, err := f.svc.Create(context.Background(), caller(f.owner), u)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, int64(0), f.count(t))
			assert.Equal(t, 0, f.blobFiles(t))
		})
	}
}

func TestValidateNamesTheField(t *testing.T) {
	u := sunset(t)
	u.Price = "abc"
	_, err := Validate(u)

	var fe *domain.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "price", fe.Field)

	u = sunset(t)
	u.Image.ContentType = "image/jpg; charset=binary"
	_, err = Validate(u)
	assert.NoError(t, err)
}

func TestDeleteAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.svc.Create(ctx, caller(f.owner), sunset(t))
	require.NoError(t, err)

	err = f.svc.Delete(ctx, caller(f.other), l.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, int64(1), f.count(t))

	err = f.svc.Delete(ctx, caller(f.other), l.ID+100)
	require.ErrorIs(t, err, domain.ErrNotFound, "not found wins over forbidden")

	require.NoError(t, f.svc.Delete(ctx, caller(f.owner), l.ID))
	assert.Equal(t, int64(0), f.count(t))
	assert.Equal(t, 0, f.blobFiles(t))

	u := sunset(t)
	u.Title = "Moonrise"
	l2, err := f.svc.Create(ctx, caller(f.owner), u)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, caller(f.admin), l2.ID))
	assert.Equal(t, int64(0), f.count(t))
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.svc.Create(ctx, caller(f.owner), sunset(t))
	require.NoError(t, err)
	u := sunset(t)
	u.Title = "Taken"
	_, err = f.svc.Create(ctx, caller(f.owner), u)
	require.NoError(t, err)

	sold := domain.StatusSold
	_, err = f.svc.Update(ctx, caller(f.other), l.ID, Patch{Status: &sold})
	require.ErrorIs(t, err, domain.ErrForbidden)

	bad := "lost"
	_, err = f.svc.Update(ctx, caller(f.owner), l.ID, Patch{Status: &bad})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	taken := "Taken"
	_, err = f.svc.Update(ctx, caller(f.owner), l.ID, Patch{Title: &taken})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	long := strings.Repeat("x", MaxFieldLength+1)
	_, err = f.svc.Update(ctx, caller(f.owner), l.ID, Patch{Title: &long})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.svc.Update(ctx, caller(f.owner), l.ID, Patch{Dimensions: &long})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	negative := -1.0
	_, err = f.svc.Update(ctx, caller(f.owner), l.ID, Patch{Price: &negative})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	price := 200.0
	same := "Sunset"
	updated, err := f.svc.Update(ctx, caller(f.admin), l.ID, Patch{Status: &sold, Price: &price, Title: &same})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSold, updated.Status)

	got, err := f.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSold, got.Status)
	assert.Equal(t, 200.0, got.Price)
}

func TestListNewestFirstAndBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, title := range []string{"A", "B", "C"} {
		u := sunset(t)
		u.Title = title
		_, err := f.svc.Create(ctx, caller(f.owner), u)
		require.NoError(t, err)
	}

	items, total, err := f.svc.List(ctx, store.ListingFilter{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 3)
	assert.Equal(t, "C", items[0].Title)
	assert.Equal(t, "A", items[2].Title)

	_, _, err = f.svc.List(ctx, store.ListingFilter{Status: "gone"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Equal(t, store.ListingFilter{Page: 1, PageSize: DefaultPageSize}, NormalizeFilter(store.ListingFilter{Page: -3}))
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error {
	return errors.New("transport down")
}

func TestNotifierFailureDoesNotFailUpload(t *testing.T) {
	f := newFixture(t)
	blobs, err := blob.NewDiskStore(f.blobDir, "")
	require.NoError(t, err)
	svc := NewService(f.listings, blobs, failingPublisher{})

	l, err := svc.Create(context.Background(), caller(f.owner), sunset(t))
	require.NoError(t, err)
	assert.NotZero(t, l.ID)
	svc.Wait()
	assert.Equal(t, int64(1), f.count(t))
}
