package graphics

import "fmt"

// RenderTargetParams describes an offscreen render target at creation time.
type RenderTargetParams struct {
	// Width and Height are the attachment dimensions in pixels.
	Width  uint32
	Height uint32

	// ColorFormats lists the color attachment formats in attachment order.
	// May be empty for a depth-only target.
	ColorFormats []TextureFormat

	// HasDepth attaches a depth buffer of DepthFormat.
	HasDepth bool

	// DepthFormat is the depth attachment format when HasDepth is set.
	DepthFormat TextureFormat

	// Label names the target in backend diagnostics.
	Label string
}

// RenderTarget is a set of attachments draws render into. Every target has a
// stable id folded into pipeline cache keys; id 0 is reserved for the default
// (swapchain) target, whose color attachment is the per-frame drawable rather
// than an owned texture.
type RenderTarget struct {
	id            uint32
	width         uint32
	height        uint32
	colorTextures []*Texture
	depthTexture  *Texture
	colorFormats  []TextureFormat
	depthFormat   TextureFormat
	hasDepth      bool
	defaultTarget bool
	destroyed     bool
	label         string
}

// ID returns the target's stable identity (0 for the default target).
func (rt *RenderTarget) ID() uint32 {
	return rt.id
}

// Width returns the attachment width in pixels.
func (rt *RenderTarget) Width() uint32 {
	return rt.width
}

// Height returns the attachment height in pixels.
func (rt *RenderTarget) Height() uint32 {
	return rt.height
}

// ColorAttachmentCount returns the number of color attachments. Zero is valid
// and describes a depth-only target.
func (rt *RenderTarget) ColorAttachmentCount() int {
	return len(rt.colorFormats)
}

// ColorFormat returns the format of color attachment i.
//
// Parameters:
//   - i: the attachment index
//
// Returns:
//   - TextureFormat: the attachment format
//   - error: error if i is out of range
func (rt *RenderTarget) ColorFormat(i int) (TextureFormat, error) {
	if i < 0 || i >= len(rt.colorFormats) {
		return 0, fmt.Errorf("%w: color attachment %d of %d", ErrOutOfRange, i, len(rt.colorFormats))
	}
	return rt.colorFormats[i], nil
}

// ColorTexture returns the owned texture backing color attachment i, for
// sampling a rendered target in a later pass. The default target owns no
// textures and returns nil.
//
// Parameters:
//   - i: the attachment index
//
// Returns:
//   - *Texture: the attachment texture, or nil
func (rt *RenderTarget) ColorTexture(i int) *Texture {
	if i < 0 || i >= len(rt.colorTextures) {
		return nil
	}
	return rt.colorTextures[i]
}

// DepthFormat returns the depth attachment format and whether one exists.
func (rt *RenderTarget) DepthFormat() (TextureFormat, bool) {
	return rt.depthFormat, rt.hasDepth
}

// Destroyed reports whether the target has been logically released.
func (rt *RenderTarget) Destroyed() bool {
	return rt.destroyed
}

// takeAttachmentHandles detaches and returns the backend handles of every
// owned attachment texture, marking the wrappers destroyed. Used when the
// target enters the destruction queue.
func (rt *RenderTarget) takeAttachmentHandles() []any {
	var handles []any
	for _, t := range rt.colorTextures {
		if t != nil && t.handle != nil {
			handles = append(handles, t.handle)
			t.handle = nil
			t.destroyed = true
		}
	}
	rt.colorTextures = nil
	if rt.depthTexture != nil && rt.depthTexture.handle != nil {
		handles = append(handles, rt.depthTexture.handle)
		rt.depthTexture.handle = nil
		rt.depthTexture.destroyed = true
	}
	rt.depthTexture = nil
	return handles
}

// validateRenderTargetParams checks creation parameters: nonzero dimensions,
// color formats that are color formats, and a depth format that carries depth.
func validateRenderTargetParams(params *RenderTargetParams) error {
	if params.Width == 0 || params.Height == 0 {
		return fmt.Errorf("%w: render target dimensions %dx%d", ErrInvalidParams, params.Width, params.Height)
	}
	for i, f := range params.ColorFormats {
		if f.IsDepth() {
			return fmt.Errorf("%w: color attachment %d uses depth format", ErrInvalidParams, i)
		}
	}
	if params.HasDepth && !params.DepthFormat.IsDepth() {
		return fmt.Errorf("%w: depth attachment uses non-depth format", ErrInvalidParams)
	}
	return nil
}
