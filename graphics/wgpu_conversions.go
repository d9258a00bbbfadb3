package graphics

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuTextureFormat maps a core texture format to its WebGPU equivalent.
func wgpuTextureFormat(f TextureFormat) (wgpu.TextureFormat, error) {
	switch f {
	case TextureFormatRGBA8:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case TextureFormatBGRA8:
		return wgpu.TextureFormatBGRA8Unorm, nil
	case TextureFormatR8:
		return wgpu.TextureFormatR8Unorm, nil
	case TextureFormatRGBA16F:
		return wgpu.TextureFormatRGBA16Float, nil
	case TextureFormatR32F:
		return wgpu.TextureFormatR32Float, nil
	case TextureFormatDepth24Stencil8:
		return wgpu.TextureFormatDepth24PlusStencil8, nil
	case TextureFormatDepth32F:
		return wgpu.TextureFormatDepth32Float, nil
	default:
		return wgpu.TextureFormatUndefined, fmt.Errorf("%w: unsupported texture format %d", ErrInvalidParams, int(f))
	}
}

// coreTextureFormat maps a WebGPU surface format back to a core format.
// Surfaces we do not model fall back to BGRA8, the most common swapchain
// format on desktop.
func coreTextureFormat(f wgpu.TextureFormat) TextureFormat {
	switch f {
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb:
		return TextureFormatRGBA8
	case wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb:
		return TextureFormatBGRA8
	default:
		return TextureFormatBGRA8
	}
}

// formatHasStencil reports whether a depth format carries stencil bits.
func formatHasStencil(f TextureFormat) bool {
	return f == TextureFormatDepth24Stencil8
}

// wgpuCompareFunction maps a core comparison to WebGPU.
func wgpuCompareFunction(fn CompareFunc) wgpu.CompareFunction {
	switch fn {
	case CompareNever:
		return wgpu.CompareFunctionNever
	case CompareLess:
		return wgpu.CompareFunctionLess
	case CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case CompareGreater:
		return wgpu.CompareFunctionGreater
	case CompareGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	case CompareEqual:
		return wgpu.CompareFunctionEqual
	case CompareNotEqual:
		return wgpu.CompareFunctionNotEqual
	case CompareAlways:
		fallthrough
	default:
		return wgpu.CompareFunctionAlways
	}
}

// wgpuBlendFactor maps a core blend factor to WebGPU.
func wgpuBlendFactor(f BlendFactor) wgpu.BlendFactor {
	switch f {
	case BlendZero:
		return wgpu.BlendFactorZero
	case BlendOne:
		return wgpu.BlendFactorOne
	case BlendSrcColor:
		return wgpu.BlendFactorSrc
	case BlendOneMinusSrcColor:
		return wgpu.BlendFactorOneMinusSrc
	case BlendDstColor:
		return wgpu.BlendFactorDst
	case BlendOneMinusDstColor:
		return wgpu.BlendFactorOneMinusDst
	case BlendSrcAlpha:
		return wgpu.BlendFactorSrcAlpha
	case BlendOneMinusSrcAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha
	case BlendDstAlpha:
		return wgpu.BlendFactorDstAlpha
	case BlendOneMinusDstAlpha:
		return wgpu.BlendFactorOneMinusDstAlpha
	default:
		return wgpu.BlendFactorOne
	}
}

// wgpuStencilOperation maps a core stencil op to WebGPU.
func wgpuStencilOperation(op StencilOp) wgpu.StencilOperation {
	switch op {
	case StencilOpKeep:
		return wgpu.StencilOperationKeep
	case StencilOpZero:
		return wgpu.StencilOperationZero
	case StencilOpReplace:
		return wgpu.StencilOperationReplace
	case StencilOpIncr:
		return wgpu.StencilOperationIncrementClamp
	case StencilOpIncrWrap:
		return wgpu.StencilOperationIncrementWrap
	case StencilOpDecr:
		return wgpu.StencilOperationDecrementClamp
	case StencilOpDecrWrap:
		return wgpu.StencilOperationDecrementWrap
	case StencilOpInvert:
		return wgpu.StencilOperationInvert
	default:
		return wgpu.StencilOperationKeep
	}
}

// wgpuPrimitiveTopology maps a core primitive type to WebGPU.
func wgpuPrimitiveTopology(p PrimitiveType) wgpu.PrimitiveTopology {
	switch p {
	case PrimitiveTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case PrimitiveLines:
		return wgpu.PrimitiveTopologyLineList
	case PrimitivePoints:
		return wgpu.PrimitiveTopologyPointList
	case PrimitiveTriangles:
		fallthrough
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

// wgpuCullMode maps a core face cull selection to WebGPU. WebGPU has no
// front-and-back cull mode; that selection degenerates to front culling.
func wgpuCullMode(enabled bool, face FaceType) wgpu.CullMode {
	if !enabled {
		return wgpu.CullModeNone
	}
	switch face {
	case FaceTypeFront, FaceTypeFrontAndBack:
		return wgpu.CullModeFront
	case FaceTypeBack:
		fallthrough
	default:
		return wgpu.CullModeBack
	}
}

// wgpuFrontFace maps a core winding order to WebGPU.
func wgpuFrontFace(w FaceWinding) wgpu.FrontFace {
	if w == FaceWindingCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

// wgpuIndexFormat maps a core index type to WebGPU.
func wgpuIndexFormat(t IndexType) wgpu.IndexFormat {
	if t == IndexTypeUint16 {
		return wgpu.IndexFormatUint16
	}
	return wgpu.IndexFormatUint32
}

// wgpuFilterMode maps a core texture filter to WebGPU.
func wgpuFilterMode(f TextureFilter) wgpu.FilterMode {
	if f == TextureFilterNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

// wgpuAddressMode maps a core texture wrap to WebGPU.
func wgpuAddressMode(w TextureWrap) wgpu.AddressMode {
	switch w {
	case TextureWrapRepeat:
		return wgpu.AddressModeRepeat
	case TextureWrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	case TextureWrapClampToEdge:
		fallthrough
	default:
		return wgpu.AddressModeClampToEdge
	}
}

// wgpuBufferUsage maps a core buffer target to WebGPU usage flags. Every
// buffer is a copy destination so uploads can stage through the queue.
func wgpuBufferUsage(target BufferTarget) wgpu.BufferUsage {
	switch target {
	case BufferTargetVertex:
		return wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	case BufferTargetIndex:
		return wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	case BufferTargetUniform:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	case BufferTargetStorage:
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	default:
		return wgpu.BufferUsageCopyDst
	}
}

// wgpuVertexFormat maps a stream's component type, count and normalization to
// a WebGPU vertex format. Not every combination exists in WebGPU; 1- and
// 3-component 8/16-bit formats are the notable holes.
func wgpuVertexFormat(t Type, size uint32, normalize bool) (wgpu.VertexFormat, error) {
	type key struct {
		t         Type
		size      uint32
		normalize bool
	}
	formats := map[key]wgpu.VertexFormat{
		{TypeFloat, 1, false}: wgpu.VertexFormatFloat32,
		{TypeFloat, 2, false}: wgpu.VertexFormatFloat32x2,
		{TypeFloat, 3, false}: wgpu.VertexFormatFloat32x3,
		{TypeFloat, 4, false}: wgpu.VertexFormatFloat32x4,

		{TypeInt, 1, false}:         wgpu.VertexFormatSint32,
		{TypeInt, 2, false}:         wgpu.VertexFormatSint32x2,
		{TypeInt, 3, false}:         wgpu.VertexFormatSint32x3,
		{TypeInt, 4, false}:         wgpu.VertexFormatSint32x4,
		{TypeUnsignedInt, 1, false}: wgpu.VertexFormatUint32,
		{TypeUnsignedInt, 2, false}: wgpu.VertexFormatUint32x2,
		{TypeUnsignedInt, 3, false}: wgpu.VertexFormatUint32x3,
		{TypeUnsignedInt, 4, false}: wgpu.VertexFormatUint32x4,

		{TypeByte, 2, false}:          wgpu.VertexFormatSint8x2,
		{TypeByte, 4, false}:          wgpu.VertexFormatSint8x4,
		{TypeByte, 2, true}:           wgpu.VertexFormatSnorm8x2,
		{TypeByte, 4, true}:           wgpu.VertexFormatSnorm8x4,
		{TypeUnsignedByte, 2, false}:  wgpu.VertexFormatUint8x2,
		{TypeUnsignedByte, 4, false}:  wgpu.VertexFormatUint8x4,
		{TypeUnsignedByte, 2, true}:   wgpu.VertexFormatUnorm8x2,
		{TypeUnsignedByte, 4, true}:   wgpu.VertexFormatUnorm8x4,
		{TypeShort, 2, false}:         wgpu.VertexFormatSint16x2,
		{TypeShort, 4, false}:         wgpu.VertexFormatSint16x4,
		{TypeShort, 2, true}:          wgpu.VertexFormatSnorm16x2,
		{TypeShort, 4, true}:          wgpu.VertexFormatSnorm16x4,
		{TypeUnsignedShort, 2, false}: wgpu.VertexFormatUint16x2,
		{TypeUnsignedShort, 4, false}: wgpu.VertexFormatUint16x4,
		{TypeUnsignedShort, 2, true}:  wgpu.VertexFormatUnorm16x2,
		{TypeUnsignedShort, 4, true}:  wgpu.VertexFormatUnorm16x4,
	}
	if f, ok := formats[key{t, size, normalize}]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: no vertex format for type %d size %d normalize %t", ErrInvalidParams, int(t), size, normalize)
}

// wgpuVertexStepMode maps a core step function to WebGPU.
func wgpuVertexStepMode(s VertexStepFunction) wgpu.VertexStepMode {
	if s == VertexStepPerInstance {
		return wgpu.VertexStepModeInstance
	}
	return wgpu.VertexStepModeVertex
}

// wgpuColorWriteMask maps the packed core color mask to WebGPU.
func wgpuColorWriteMask(mask uint8) wgpu.ColorWriteMask {
	var out wgpu.ColorWriteMask
	if mask&ColorMaskRed != 0 {
		out |= wgpu.ColorWriteMaskRed
	}
	if mask&ColorMaskGreen != 0 {
		out |= wgpu.ColorWriteMaskGreen
	}
	if mask&ColorMaskBlue != 0 {
		out |= wgpu.ColorWriteMaskBlue
	}
	if mask&ColorMaskAlpha != 0 {
		out |= wgpu.ColorWriteMaskAlpha
	}
	return out
}
