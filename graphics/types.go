// package graphics implements the GPU resource and pipeline management core:
// device buffers with deferred destruction, per-frame scratch staging for
// uniform data, a keyed pipeline cache, and the frame resource ring that keeps
// CPU-side resource lifetime in step with in-flight GPU work. The public
// surface is backend-agnostic; the production backend speaks WebGPU.
package graphics

import "fmt"

// BufferUsage hints how often a buffer's contents are expected to change.
type BufferUsage int

const (
	// BufferUsageStatic marks data written once and drawn many times.
	BufferUsageStatic BufferUsage = iota

	// BufferUsageDynamic marks data rewritten frequently, possibly every frame.
	BufferUsageDynamic

	// BufferUsageStream marks data rewritten for every use.
	BufferUsageStream
)

// StorageMode selects the memory type backing a device buffer.
type StorageMode int

const (
	// StorageModeHostVisible is CPU-writable memory with coherent visibility to the GPU.
	StorageModeHostVisible StorageMode = iota

	// StorageModeHostManaged is CPU-writable memory requiring an explicit flush per write range.
	StorageModeHostManaged

	// StorageModePrivate is GPU-only memory; uploads go through a staging copy.
	StorageModePrivate
)

// String returns the storage mode name used in diagnostics.
func (m StorageMode) String() string {
	switch m {
	case StorageModeHostVisible:
		return "host-visible"
	case StorageModeHostManaged:
		return "host-managed"
	case StorageModePrivate:
		return "private"
	default:
		return fmt.Sprintf("storage(%d)", int(m))
	}
}

// BufferTarget identifies what a device buffer binds as at draw time.
type BufferTarget int

const (
	// BufferTargetVertex binds as a vertex stream source.
	BufferTargetVertex BufferTarget = iota

	// BufferTargetIndex binds as an index source for indexed draws.
	BufferTargetIndex

	// BufferTargetUniform binds as uniform block backing (scratch staging).
	BufferTargetUniform

	// BufferTargetStorage binds as a read/write storage buffer.
	BufferTargetStorage
)

// Type identifies the element type of vertex stream data.
type Type int

const (
	// TypeByte is a signed 8-bit element.
	TypeByte Type = iota

	// TypeUnsignedByte is an unsigned 8-bit element.
	TypeUnsignedByte

	// TypeShort is a signed 16-bit element.
	TypeShort

	// TypeUnsignedShort is an unsigned 16-bit element.
	TypeUnsignedShort

	// TypeInt is a signed 32-bit element.
	TypeInt

	// TypeUnsignedInt is an unsigned 32-bit element.
	TypeUnsignedInt

	// TypeFloat is a 32-bit float element.
	TypeFloat
)

// ByteSize returns the size in bytes of one element of this type.
//
// Returns:
//   - uint32: the element byte size, or 0 for an unknown type
func (t Type) ByteSize() uint32 {
	switch t {
	case TypeByte, TypeUnsignedByte:
		return 1
	case TypeShort, TypeUnsignedShort:
		return 2
	case TypeInt, TypeUnsignedInt, TypeFloat:
		return 4
	default:
		return 0
	}
}

// IndexType selects the element width of an index buffer.
type IndexType int

const (
	// IndexTypeUint16 uses 16-bit indices.
	IndexTypeUint16 IndexType = iota

	// IndexTypeUint32 uses 32-bit indices.
	IndexTypeUint32
)

// PrimitiveType selects how vertex streams assemble into primitives.
type PrimitiveType int

const (
	// PrimitiveTriangles assembles independent triangles from each 3 vertices.
	PrimitiveTriangles PrimitiveType = iota

	// PrimitiveTriangleStrip assembles a connected triangle strip.
	PrimitiveTriangleStrip

	// PrimitiveLines assembles independent line segments from each 2 vertices.
	PrimitiveLines

	// PrimitivePoints assembles one point per vertex.
	PrimitivePoints
)

// CompareFunc selects a depth or stencil comparison function.
type CompareFunc int

const (
	// CompareNever fails every comparison.
	CompareNever CompareFunc = iota

	// CompareLess passes when the incoming value is less.
	CompareLess

	// CompareLessEqual passes when the incoming value is less or equal.
	CompareLessEqual

	// CompareGreater passes when the incoming value is greater.
	CompareGreater

	// CompareGreaterEqual passes when the incoming value is greater or equal.
	CompareGreaterEqual

	// CompareEqual passes when the values are equal.
	CompareEqual

	// CompareNotEqual passes when the values differ.
	CompareNotEqual

	// CompareAlways passes every comparison.
	CompareAlways
)

// BlendFactor selects a source or destination blend multiplier.
type BlendFactor int

const (
	// BlendZero multiplies by zero.
	BlendZero BlendFactor = iota

	// BlendOne multiplies by one.
	BlendOne

	// BlendSrcColor multiplies by the source color.
	BlendSrcColor

	// BlendOneMinusSrcColor multiplies by one minus the source color.
	BlendOneMinusSrcColor

	// BlendDstColor multiplies by the destination color.
	BlendDstColor

	// BlendOneMinusDstColor multiplies by one minus the destination color.
	BlendOneMinusDstColor

	// BlendSrcAlpha multiplies by the source alpha.
	BlendSrcAlpha

	// BlendOneMinusSrcAlpha multiplies by one minus the source alpha.
	BlendOneMinusSrcAlpha

	// BlendDstAlpha multiplies by the destination alpha.
	BlendDstAlpha

	// BlendOneMinusDstAlpha multiplies by one minus the destination alpha.
	BlendOneMinusDstAlpha
)

// StencilOp selects the action applied to a stencil value.
type StencilOp int

const (
	// StencilOpKeep leaves the stencil value unchanged.
	StencilOpKeep StencilOp = iota

	// StencilOpZero sets the stencil value to zero.
	StencilOpZero

	// StencilOpReplace sets the stencil value to the reference.
	StencilOpReplace

	// StencilOpIncr increments the stencil value, clamping at max.
	StencilOpIncr

	// StencilOpIncrWrap increments the stencil value with wraparound.
	StencilOpIncrWrap

	// StencilOpDecr decrements the stencil value, clamping at zero.
	StencilOpDecr

	// StencilOpDecrWrap decrements the stencil value with wraparound.
	StencilOpDecrWrap

	// StencilOpInvert bitwise-inverts the stencil value.
	StencilOpInvert
)

// FaceType selects which primitive faces are culled.
type FaceType int

const (
	// FaceTypeBack culls back-facing primitives.
	FaceTypeBack FaceType = iota

	// FaceTypeFront culls front-facing primitives.
	FaceTypeFront

	// FaceTypeFrontAndBack culls all primitives.
	FaceTypeFrontAndBack
)

// FaceWinding selects which vertex winding order is front-facing.
type FaceWinding int

const (
	// FaceWindingCCW treats counter-clockwise wound primitives as front-facing.
	FaceWindingCCW FaceWinding = iota

	// FaceWindingCW treats clockwise wound primitives as front-facing.
	FaceWindingCW
)

// State identifies a toggleable fixed-function render state.
type State int

const (
	// StateDepthTest toggles depth testing.
	StateDepthTest State = iota

	// StateStencilTest toggles stencil testing.
	StateStencilTest

	// StateBlend toggles blending.
	StateBlend

	// StateCullFace toggles face culling.
	StateCullFace

	// StateScissorTest toggles scissor clipping.
	StateScissorTest
)

// ClearFlags selects which attachment aspects a Clear call affects.
type ClearFlags uint32

const (
	// ClearColor clears the color attachment(s).
	ClearColor ClearFlags = 1 << iota

	// ClearDepth clears the depth aspect.
	ClearDepth

	// ClearStencil clears the stencil aspect.
	ClearStencil
)

// TextureFormat identifies a texture or attachment pixel format.
type TextureFormat int

const (
	// TextureFormatRGBA8 is 8-bit-per-channel RGBA, unsigned normalized.
	TextureFormatRGBA8 TextureFormat = iota

	// TextureFormatBGRA8 is 8-bit-per-channel BGRA, unsigned normalized. Common swapchain format.
	TextureFormatBGRA8

	// TextureFormatR8 is single-channel 8-bit, unsigned normalized.
	TextureFormatR8

	// TextureFormatRGBA16F is 16-bit-per-channel floating point RGBA.
	TextureFormatRGBA16F

	// TextureFormatR32F is single-channel 32-bit floating point.
	TextureFormatR32F

	// TextureFormatDepth24Stencil8 is a combined 24-bit depth + 8-bit stencil format.
	TextureFormatDepth24Stencil8

	// TextureFormatDepth32F is a 32-bit floating point depth-only format.
	TextureFormatDepth32F
)

// IsDepth reports whether the format carries a depth aspect.
//
// Returns:
//   - bool: true for depth and depth-stencil formats
func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatDepth24Stencil8 || f == TextureFormatDepth32F
}

// BytesPerPixel returns the byte size of one pixel in this format,
// or 0 for depth formats which are never CPU-uploaded.
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case TextureFormatRGBA8, TextureFormatBGRA8:
		return 4
	case TextureFormatR8:
		return 1
	case TextureFormatRGBA16F:
		return 8
	case TextureFormatR32F:
		return 4
	default:
		return 0
	}
}

// TextureFilter selects the sampling filter for texture reads.
type TextureFilter int

const (
	// TextureFilterNearest samples the nearest texel.
	TextureFilterNearest TextureFilter = iota

	// TextureFilterLinear interpolates between neighboring texels.
	TextureFilterLinear
)

// TextureWrap selects coordinate addressing outside [0, 1].
type TextureWrap int

const (
	// TextureWrapRepeat tiles the texture.
	TextureWrapRepeat TextureWrap = iota

	// TextureWrapClampToEdge clamps coordinates to the edge texel.
	TextureWrapClampToEdge

	// TextureWrapMirroredRepeat tiles the texture with alternating mirroring.
	TextureWrapMirroredRepeat
)

// VertexStepFunction selects how a vertex stream advances.
type VertexStepFunction int

const (
	// VertexStepPerVertex advances the stream once per vertex.
	VertexStepPerVertex VertexStepFunction = iota

	// VertexStepPerInstance advances the stream once per instance.
	VertexStepPerInstance
)

// Viewport describes the active viewport rectangle in pixels.
type Viewport struct {
	X      int32
	Y      int32
	Width  int32
	Height int32
}

// ScissorRect describes the active scissor rectangle in pixels.
type ScissorRect struct {
	X      int32
	Y      int32
	Width  int32
	Height int32
}
