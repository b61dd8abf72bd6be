package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/manvue/go-backend/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBitmap() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	return img
}

func TestDecodeRGB_PNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testBitmap()))

	decoded, err := NewDecoder().DecodeRGB(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx())
	assert.Equal(t, 8, decoded.Bounds().Dy())
}

func TestDecodeRGB_JPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testBitmap(), nil))

	decoded, err := NewDecoder().DecodeRGB(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx())
}

func TestDecodeRGB_Empty(t *testing.T) {
	_, err := NewDecoder().DecodeRGB(nil)
	assert.ErrorIs(t, err, e.ErrInvalidImage)
}

func TestDecodeRGB_Garbage(t *testing.T) {
	_, err := NewDecoder().DecodeRGB([]byte("definitely not an image"))
	assert.ErrorIs(t, err, e.ErrInvalidImage)
}

func TestDecodeRGB_TruncatedPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testBitmap()))

	// обрезанный файл с валидной сигнатурой
	_, err := NewDecoder().DecodeRGB(buf.Bytes()[:12])
	assert.ErrorIs(t, err, e.ErrInvalidImage)
}
