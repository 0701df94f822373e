package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxDimension is the largest width or height kept for stored images.
const MaxDimension = 1600

// JPEGQuality is the quality used when a JPEG has to be re-encoded.
const JPEGQuality = 85

// MaxPixels bounds the raster Normalize will decode.
const MaxPixels = 40_000_000

var (
	// ErrUnsupported is returned when the bytes are not a JPEG or PNG image.
	ErrUnsupported = errors.New("unsupported image format")
	// ErrTooLarge is returned when the declared dimensions exceed MaxPixels.
	ErrTooLarge = errors.New("image dimensions too large")
)

// extensions maps sniffed MIME types to file extensions.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Result is a validated, possibly downscaled image.
type Result struct {
	Data []byte
	MIME string
	Ext  string
}

// Sniff returns the MIME type detected from the leading bytes, not the client header.
func Sniff(data []byte) (string, error) {
	detected := http.DetectContentType(data)
	if _, ok := extensions[detected]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}
	return detected, nil
}

// Normalize validates data and downscales it when either side exceeds MaxDimension.
// Dimensions are read from the header first, so oversized rasters are never decoded.
// Images already within bounds are returned byte-for-byte. Scaled images keep
// their source format.
func Normalize(data []byte) (*Result, error) {
	mime, err := Sniff(data)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	if cfg.Width <= MaxDimension && cfg.Height <= MaxDimension {
		return &Result{Data: data, MIME: mime, Ext: extensions[mime]}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	switch mime {
	case "image/png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", mime, err)
	}
	return &Result{Data: buf.Bytes(), MIME: mime, Ext: extensions[mime]}, nil
}

// downscale resizes img so neither dimension exceeds maxDim, keeping aspect ratio.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
