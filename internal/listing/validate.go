package listing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"art_market/internal/domain"
	"art_market/internal/imaging"
)

// MaxImageSize is the largest accepted image part, in bytes.
const MaxImageSize = 2 << 20

// MaxFieldLength is the column width of title, dimensions and material.
const MaxFieldLength = 255

// allowedTypes are the declared image MIME types accepted on upload.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/jpg":  true,
}

// Image is the uploaded file part.
type Image struct {
	Filename    string
	ContentType string // Declared by the client
	Size        int64  // Declared part size
	Data        []byte
}

// Upload is the raw multipart input. Owner is accepted for compatibility with
// older clients and ignored: the owner always comes from the session.
type Upload struct {
	Title       string
	Price       string
	Description string
	Dimensions  string
	Material    string
	Owner       string
	Image       *Image
}

// Draft is an upload that passed validation.
type Draft struct {
	Title       string
	Price       float64
	Description string
	Dimensions  string
	Material    string
	Image       Image
}

// Validate checks the image part and the text fields. It has no side effects.
func Validate(u Upload) (*Draft, error) {
	if u.Image == nil || len(u.Image.Data) == 0 {
		return nil, domain.InvalidField("image", "image file is required")
	}
	if !allowedTypes[baseType(u.Image.ContentType)] {
		return nil, fmt.Errorf("%w: only JPG, PNG, and JPEG files are allowed", domain.ErrUnsupportedMediaType)
	}
	if u.Image.Size > MaxImageSize || len(u.Image.Data) > MaxImageSize {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrPayloadTooLarge, MaxImageSize)
	}
	if _, err := imaging.Sniff(u.Image.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedMediaType, err)
	}

	title := strings.TrimSpace(u.Title)
	if title == "" {
		return nil, domain.InvalidField("title", "title is required")
	}
	price, err := ParsePrice(u.Price)
	if err != nil {
		return nil, err
	}
	d := &Draft{
		Title:       title,
		Price:       price,
		Description: strings.TrimSpace(u.Description),
		Dimensions:  strings.TrimSpace(u.Dimensions),
		Material:    strings.TrimSpace(u.Material),
		Image:       *u.Image,
	}
	for _, f := range [][2]string{{"title", d.Title}, {"dimensions", d.Dimensions}, {"material", d.Material}} {
		if err := CheckLength(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// CheckLength rejects values wider than their column.
func CheckLength(field, v string) error {
	if utf8.RuneCountInString(v) > MaxFieldLength {
		return domain.InvalidField(field, fmt.Sprintf("%s must be at most %d characters", field, MaxFieldLength))
	}
	return nil
}

// ParsePrice parses a positive, finite price.
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, domain.InvalidField("price", "price is required")
	}
	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, domain.InvalidField("price", "price must be a number")
	}
	return price, CheckPrice(price)
}

// CheckPrice rejects zero, negative and non-finite prices.
func CheckPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return domain.InvalidField("price", "price must be a positive number")
	}
	return nil
}

func baseType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}
