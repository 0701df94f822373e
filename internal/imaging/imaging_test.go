package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{200, 80, 10, 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h)))
	return buf.Bytes()
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	data := encodeJPEG(t, 64, 32)
	res, err := Normalize(data)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.MIME)
	assert.Equal(t, ".jpg", res.Ext)
	assert.Equal(t, data, res.Data)
}

func TestNormalizeDownscalesPNG(t *testing.T) {
	res, err := Normalize(encodePNG(t, MaxDimension*2, 100))
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.MIME)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, MaxDimension, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestNormalizeRejectsNonImages(t *testing.T) {
	_, err := Normalize([]byte("GIF89a not really"))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Sniff([]byte("plain text"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

// pngHeader is a PNG signature plus an IHDR chunk declaring w x h. It is
// enough for DecodeConfig but carries no pixel data.
func pngHeader(w, h uint32) []byte {
	var ihdr bytes.Buffer
	ihdr.WriteString("IHDR")
	_ = binary.Write(&ihdr, binary.BigEndian, w)
	_ = binary.Write(&ihdr, binary.BigEndian, h)
	ihdr.Write([]byte{8, 0, 0, 0, 0}) // 8-bit grayscale, no interlace

	var out bytes.Buffer
	out.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&out, binary.BigEndian, uint32(ihdr.Len()-4))
	out.Write(ihdr.Bytes())
	_ = binary.Write(&out, binary.BigEndian, crc32.ChecksumIEEE(ihdr.Bytes()))
	return out.Bytes()
}

func TestNormalizeRejectsHugeRasterBeforeDecoding(t *testing.T) {
	cases := []struct {
		name string
		w, h uint32
	}{
		{name: "square", w: 12000, h: 12000},
		{name: "wide", w: 1 << 20, h: 64},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(pngHeader(tc.w, tc.h))
			assert.ErrorIs(t, err, ErrTooLarge)
		})
	}
}
