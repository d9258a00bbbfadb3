package graphics

import "fmt"

// TextureParams describes a texture at creation time.
type TextureParams struct {
	// Width and Height are the base mip dimensions in pixels.
	Width  uint32
	Height uint32

	// Format is the pixel format.
	Format TextureFormat

	// MipCount is the number of mip levels (0 is treated as 1).
	MipCount uint32

	// RenderTarget marks the texture usable as a render pass attachment.
	RenderTarget bool

	// Label names the texture in backend diagnostics.
	Label string
}

// Texture is a GPU texture plus its sampler configuration. Sampler state
// (filtering, wrapping) lives CPU-side and is resolved to a backend sampler at
// draw time, so changing it never recreates the texture.
type Texture struct {
	handle    any
	params    TextureParams
	minFilter TextureFilter
	magFilter TextureFilter
	wrapU     TextureWrap
	wrapV     TextureWrap
	destroyed bool
}

// Width returns the base mip width in pixels.
func (t *Texture) Width() uint32 {
	return t.params.Width
}

// Height returns the base mip height in pixels.
func (t *Texture) Height() uint32 {
	return t.params.Height
}

// Format returns the texture's pixel format.
func (t *Texture) Format() TextureFormat {
	return t.params.Format
}

// MipCount returns the number of mip levels.
func (t *Texture) MipCount() uint32 {
	return t.params.MipCount
}

// Destroyed reports whether the texture has been logically released.
func (t *Texture) Destroyed() bool {
	return t.destroyed
}

// TextureUpdate carries one mip level's pixel data for upload.
type TextureUpdate struct {
	// Mip is the target mip level.
	Mip uint32

	// Width and Height are the dimensions of the uploaded level in pixels.
	Width  uint32
	Height uint32

	// Pixels is the raw pixel data, tightly packed rows in the texture's format.
	Pixels []byte
}

// validateTextureUpdate checks an upload against the texture's declared
// layout: the mip exists, the dimensions match that level, and the pixel
// slice holds exactly one level's worth of data.
func validateTextureUpdate(t *Texture, up *TextureUpdate) error {
	if t.destroyed || t.handle == nil {
		return fmt.Errorf("%w: texture %q", ErrResourceDestroyed, t.params.Label)
	}
	if up.Mip >= t.params.MipCount {
		return fmt.Errorf("%w: mip %d out of %d levels", ErrInvalidParams, up.Mip, t.params.MipCount)
	}
	wantW := max(t.params.Width>>up.Mip, 1)
	wantH := max(t.params.Height>>up.Mip, 1)
	if up.Width != wantW || up.Height != wantH {
		return fmt.Errorf("%w: mip %d is %dx%d, got %dx%d", ErrInvalidParams, up.Mip, wantW, wantH, up.Width, up.Height)
	}
	bpp := t.params.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: format %d cannot be CPU-uploaded", ErrInvalidParams, t.params.Format)
	}
	if want := up.Width * up.Height * bpp; uint32(len(up.Pixels)) != want {
		return fmt.Errorf("%w: mip %d needs %d bytes, got %d", ErrInvalidParams, up.Mip, want, len(up.Pixels))
	}
	return nil
}

// SamplerParams is the resolved sampler configuration a texture binds with.
type SamplerParams struct {
	MinFilter TextureFilter
	MagFilter TextureFilter
	WrapU     TextureWrap
	WrapV     TextureWrap
}

// samplerParams returns the texture's current sampler configuration.
func (t *Texture) samplerParams() SamplerParams {
	return SamplerParams{
		MinFilter: t.minFilter,
		MagFilter: t.magFilter,
		WrapU:     t.wrapU,
		WrapV:     t.wrapV,
	}
}
