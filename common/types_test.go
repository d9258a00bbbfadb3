package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buffer bytes.Buffer
	require.NoError(t, png.Encode(&buffer, img))
	return buffer.Bytes()
}

func TestDecodePixels(t *testing.T) {
	data := encodeTestPNG(t, 3, 2)

	pixels, err := DecodePixels(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), pixels.Width)
	assert.Equal(t, uint32(2), pixels.Height)
	assert.Len(t, pixels.Pixels, 3*2*4)
	assert.Equal(t, byte(255), pixels.Pixels[0])
	assert.Equal(t, byte(255), pixels.Pixels[3])
}

func TestDecodePixelsRejectsBadInput(t *testing.T) {
	_, err := DecodePixels(nil)
	assert.ErrorContains(t, err, "image data is empty")

	_, err = DecodePixels([]byte("not an image"))
	assert.ErrorContains(t, err, "failed to decode image")
}

func TestDecodePixelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tex.png")
	require.NoError(t, os.WriteFile(path, encodeTestPNG(t, 4, 4), 0644))

	pixels, err := DecodePixelsFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), pixels.Width)
	assert.Equal(t, uint32(4), pixels.Height)

	_, err = DecodePixelsFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorContains(t, err, "failed to open image file")
}
