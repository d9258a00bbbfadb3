package graphics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderTargetCreatesAttachments(t *testing.T) {
	ctx, fb := newTestContext(t)
	defer ctx.Close()

	rt, err := ctx.NewRenderTarget(RenderTargetParams{
		Width:        256,
		Height:       128,
		ColorFormats: []TextureFormat{TextureFormatRGBA8, TextureFormatRGBA16F},
		HasDepth:     true,
		DepthFormat:  TextureFormatDepth24Stencil8,
		Label:        "offscreen",
	})
	require.NoError(t, err)

	assert.Equal(t, uint32(1), rt.ID())
	assert.Equal(t, uint32(256), rt.Width())
	assert.Equal(t, uint32(128), rt.Height())
	assert.Equal(t, 2, rt.ColorAttachmentCount())
	assert.False(t, rt.Destroyed())

	f0, err := rt.ColorFormat(0)
	require.NoError(t, err)
	assert.Equal(t, TextureFormatRGBA8, f0)
	f1, err := rt.ColorFormat(1)
	require.NoError(t, err)
	assert.Equal(t, TextureFormatRGBA16F, f1)
	_, err = rt.ColorFormat(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = rt.ColorFormat(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	depthFormat, hasDepth := rt.DepthFormat()
	assert.True(t, hasDepth)
	assert.Equal(t, TextureFormatDepth24Stencil8, depthFormat)

	// One texture per color attachment plus the depth attachment.
	assert.Equal(t, 3, fb.liveTextureCount())
	labels := make(map[string]bool)
	for h := range fb.liveTextures {
		labels[h.params.Label] = true
	}
	assert.True(t, labels["offscreen-color0"])
	assert.True(t, labels["offscreen-color1"])
	assert.True(t, labels["offscreen-depth"])

	tex := rt.ColorTexture(0)
	require.NotNil(t, tex)
	assert.Equal(t, uint32(256), tex.Width())
	assert.Nil(t, rt.ColorTexture(5))

	// Target ids keep incrementing; id 0 stays reserved for the default.
	rt2, err := ctx.NewRenderTarget(RenderTargetParams{Width: 4, Height: 4, ColorFormats: []TextureFormat{TextureFormatRGBA8}})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), rt2.ID())
}

func TestNewRenderTargetValidation(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	_, err := ctx.NewRenderTarget(RenderTargetParams{Width: 0, Height: 64})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = ctx.NewRenderTarget(RenderTargetParams{
		Width: 64, Height: 64,
		ColorFormats: []TextureFormat{TextureFormatDepth24Stencil8},
	})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "color attachment 0 uses depth format")

	_, err = ctx.NewRenderTarget(RenderTargetParams{
		Width: 64, Height: 64,
		HasDepth:    true,
		DepthFormat: TextureFormatRGBA8,
	})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "depth attachment uses non-depth format")
}

func TestNewRenderTargetPartialFailureDestroysCreated(t *testing.T) {
	ctx, fb := newTestContext(t)
	defer ctx.Close()

	// First attachment succeeds, second create fails; the first must not leak.
	fb.failTextureCreate = errors.New("out of memory")
	fb.failTextureCreateAfter = 1

	_, err := ctx.NewRenderTarget(RenderTargetParams{
		Width: 64, Height: 64,
		ColorFormats: []TextureFormat{TextureFormatRGBA8, TextureFormatRGBA8},
		Label:        "leaky",
	})
	assert.ErrorContains(t, err, `render target "leaky" color attachment 1`)
	assert.Equal(t, 0, fb.liveTextureCount())

	fb.failTextureCreateAfter = 2
	_, err = ctx.NewRenderTarget(RenderTargetParams{
		Width: 64, Height: 64,
		ColorFormats: []TextureFormat{TextureFormatRGBA8},
		HasDepth:     true,
		DepthFormat:  TextureFormatDepth24Stencil8,
		Label:        "leaky",
	})
	assert.ErrorContains(t, err, `render target "leaky" depth attachment`)
	assert.Equal(t, 0, fb.liveTextureCount())
}

func TestSetRenderTargetSwitchesPassAndViewport(t *testing.T) {
	ctx, fb := newTestContext(t)
	defer ctx.Close()
	c := ctx.(*context)

	rt, err := ctx.NewRenderTarget(RenderTargetParams{
		Width: 320, Height: 200,
		ColorFormats: []TextureFormat{TextureFormatRGBA8},
		Label:        "pass",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, ctx.SetRenderTarget(rt), ErrNoFrameBegun)

	require.NoError(t, ctx.BeginFrame())
	passes := fb.passes
	require.NoError(t, ctx.SetRenderTarget(rt))
	assert.Equal(t, passes+1, fb.passes)
	assert.Same(t, rt, c.currentTarget)
	assert.Equal(t, Viewport{Width: 320, Height: 200}, c.viewport)
	assert.True(t, c.viewportChanged)

	// Nil switches back to the default (swapchain) target.
	require.NoError(t, ctx.SetRenderTarget(nil))
	assert.Same(t, c.defaultTarget, c.currentTarget)
	assert.Equal(t, Viewport{Width: 800, Height: 600}, c.viewport)
	require.NoError(t, ctx.EndFrame())

	ctx.DeleteRenderTarget(rt)
	require.NoError(t, ctx.BeginFrame())
	err = ctx.SetRenderTarget(rt)
	assert.ErrorIs(t, err, ErrResourceDestroyed)
	require.NoError(t, ctx.EndFrame())
}

func TestDeleteRenderTargetRetiresAttachments(t *testing.T) {
	ctx, fb := newTestContext(t)
	defer ctx.Close()
	c := ctx.(*context)

	rt, err := ctx.NewRenderTarget(RenderTargetParams{
		Width: 64, Height: 64,
		ColorFormats: []TextureFormat{TextureFormatRGBA8},
		HasDepth:     true,
		DepthFormat:  TextureFormatDepth24Stencil8,
		Label:        "doomed",
	})
	require.NoError(t, err)
	require.Equal(t, 2, fb.liveTextureCount())

	require.NoError(t, ctx.BeginFrame())
	require.NoError(t, ctx.SetRenderTarget(rt))
	ctx.DeleteRenderTarget(rt)

	// Deleting the bound target falls back to the default for later draws.
	assert.Same(t, c.defaultTarget, c.currentTarget)
	assert.True(t, rt.Destroyed())
	assert.Nil(t, rt.ColorTexture(0))

	// Attachments stay alive until the frame that might reference them lands.
	assert.Equal(t, 2, fb.liveTextureCount())
	require.NoError(t, ctx.EndFrame())
	assert.Equal(t, 0, fb.liveTextureCount())

	// Idempotent.
	ctx.DeleteRenderTarget(rt)
	ctx.DeleteRenderTarget(nil)
}

func TestDeleteDefaultRenderTargetIgnored(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()
	c := ctx.(*context)

	ctx.DeleteRenderTarget(c.defaultTarget)
	assert.False(t, c.defaultTarget.Destroyed())
}

func TestSetRenderTargetSizeRebuildsAttachments(t *testing.T) {
	ctx, fb := newTestContext(t)

	rt, err := ctx.NewRenderTarget(RenderTargetParams{
		Width: 64, Height: 64,
		ColorFormats: []TextureFormat{TextureFormatRGBA8},
		HasDepth:     true,
		DepthFormat:  TextureFormatDepth24Stencil8,
		Label:        "resizable",
	})
	require.NoError(t, err)
	require.Equal(t, 2, fb.liveTextureCount())

	require.NoError(t, ctx.SetRenderTargetSize(rt, 128, 256))
	assert.Equal(t, uint32(128), rt.Width())
	assert.Equal(t, uint32(256), rt.Height())
	assert.Equal(t, uint32(128), rt.ColorTexture(0).Width())
	assert.Equal(t, uint32(256), rt.ColorTexture(0).Height())

	// Old attachments sit in the destroy queue until their slot flushes; the
	// new ones coexist with them until then.
	assert.Equal(t, 4, fb.liveTextureCount())

	require.NoError(t, ctx.Close())
	assert.Equal(t, 0, fb.liveTextureCount())
}

func TestSetRenderTargetSizeGuards(t *testing.T) {
	ctx, fb := newTestContext(t)
	defer ctx.Close()
	c := ctx.(*context)

	err := ctx.SetRenderTargetSize(nil, 4, 4)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "nil render target")

	err = ctx.SetRenderTargetSize(c.defaultTarget, 4, 4)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "resizes with the window")

	rt, err := ctx.NewRenderTarget(RenderTargetParams{
		Width: 8, Height: 8,
		ColorFormats: []TextureFormat{TextureFormatRGBA8},
		Label:        "guarded",
	})
	require.NoError(t, err)

	err = ctx.SetRenderTargetSize(rt, 0, 8)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "zero render target dimensions")

	// A rebuild failure leaves the target unusable rather than half-built.
	fb.failTextureCreate = errors.New("device lost")
	fb.failTextureCreateAfter = fb.textureCreates
	err = ctx.SetRenderTargetSize(rt, 16, 16)
	assert.Error(t, err)
	assert.True(t, rt.Destroyed())

	fb.failTextureCreate = nil
	err = ctx.SetRenderTargetSize(rt, 16, 16)
	assert.ErrorIs(t, err, ErrResourceDestroyed)
}
