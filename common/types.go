// package common contains common types that are used throughout this library. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// PixelData holds decoded RGBA pixel data ready for GPU texture upload.
// Pixels are 4 bytes per pixel in row-major order.
type PixelData struct {
	// Pixels is the raw RGBA byte data (4 bytes per pixel).
	Pixels []byte

	// Width is the image width in pixels.
	Width uint32

	// Height is the image height in pixels.
	Height uint32
}

// DecodePixels decodes PNG or JPEG bytes into RGBA pixel data.
// Reference: https://pkg.go.dev/image
//
// Parameters:
//   - data: raw encoded image bytes
//
// Returns:
//   - *PixelData: the decoded RGBA pixels with dimensions
//   - error: error if decoding fails
func DecodePixels(data []byte) (*PixelData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return rgbaPixels(img), nil
}

// DecodePixelsFile reads and decodes a PNG or JPEG file into RGBA pixel data.
//
// Parameters:
//   - path: path to the image file on disk
//
// Returns:
//   - *PixelData: the decoded RGBA pixels with dimensions
//   - error: error if the file cannot be read or decoded
func DecodePixelsFile(path string) (*PixelData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image file %s: %w", path, err)
	}
	return rgbaPixels(img), nil
}

func rgbaPixels(img image.Image) *PixelData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return &PixelData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
}
