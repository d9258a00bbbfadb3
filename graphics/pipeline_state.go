package graphics

// PipelineState is the packed fixed-function render state carried per draw and
// folded into pipeline cache keys. It mirrors the state set by the
// Enable/DisableState and Set* calls on the context.
type PipelineState struct {
	// PrimitiveType selects primitive assembly for draws.
	PrimitiveType PrimitiveType

	// WriteColorMask holds the RGBA channel write-enable bits (bit 0 = R .. bit 3 = A).
	WriteColorMask uint8

	// WriteDepth enables depth writes.
	WriteDepth bool

	// DepthTestEnabled enables depth testing.
	DepthTestEnabled bool

	// DepthTestFunc is the depth comparison function.
	DepthTestFunc CompareFunc

	// BlendEnabled enables blending on color attachments.
	BlendEnabled bool

	// BlendSrcFactor is the source blend multiplier.
	BlendSrcFactor BlendFactor

	// BlendDstFactor is the destination blend multiplier.
	BlendDstFactor BlendFactor

	// StencilEnabled enables stencil testing.
	StencilEnabled bool

	// StencilTestFunc is the stencil comparison function.
	StencilTestFunc CompareFunc

	// StencilOpFail applies when the stencil test fails.
	StencilOpFail StencilOp

	// StencilOpDepthFail applies when the stencil test passes but the depth test fails.
	StencilOpDepthFail StencilOp

	// StencilOpPass applies when both tests pass.
	StencilOpPass StencilOp

	// StencilWriteMask masks stencil writes.
	StencilWriteMask uint8

	// StencilCompareMask masks stencil comparison reads.
	StencilCompareMask uint8

	// StencilReference is the stencil reference value.
	StencilReference uint8

	// CullFaceEnabled enables face culling.
	CullFaceEnabled bool

	// CullFaceType selects which faces are culled.
	CullFaceType FaceType

	// FaceWinding selects the front-facing winding order.
	FaceWinding FaceWinding

	// ScissorEnabled enables scissor clipping.
	ScissorEnabled bool
}

// Color channel bits for WriteColorMask.
const (
	ColorMaskRed   uint8 = 1 << 0
	ColorMaskGreen uint8 = 1 << 1
	ColorMaskBlue  uint8 = 1 << 2
	ColorMaskAlpha uint8 = 1 << 3
	ColorMaskAll         = ColorMaskRed | ColorMaskGreen | ColorMaskBlue | ColorMaskAlpha
)

// defaultPipelineState returns the context's initial render state: depth test
// and write on with less-equal comparison, opaque writes to all channels,
// culling and blending off, counter-clockwise front faces.
func defaultPipelineState() PipelineState {
	return PipelineState{
		PrimitiveType:      PrimitiveTriangles,
		WriteColorMask:     ColorMaskAll,
		WriteDepth:         true,
		DepthTestEnabled:   true,
		DepthTestFunc:      CompareLessEqual,
		BlendSrcFactor:     BlendOne,
		BlendDstFactor:     BlendZero,
		StencilTestFunc:    CompareAlways,
		StencilOpFail:      StencilOpKeep,
		StencilOpDepthFail: StencilOpKeep,
		StencilOpPass:      StencilOpKeep,
		StencilWriteMask:   0xff,
		StencilCompareMask: 0xff,
		CullFaceType:       FaceTypeBack,
		FaceWinding:        FaceWindingCCW,
	}
}

// pack folds the state into a 64-bit word with a fixed field layout, used as
// the render-state contribution to pipeline cache keys. Two states pack to the
// same word iff every keyed field matches.
func (ps *PipelineState) pack() uint64 {
	var bits uint64
	put := func(v uint64, width uint) {
		bits = bits<<width | (v & (1<<width - 1))
	}
	putBool := func(b bool) {
		var v uint64
		if b {
			v = 1
		}
		put(v, 1)
	}

	put(uint64(ps.PrimitiveType), 3)
	put(uint64(ps.WriteColorMask), 4)
	putBool(ps.WriteDepth)
	putBool(ps.DepthTestEnabled)
	put(uint64(ps.DepthTestFunc), 3)
	putBool(ps.BlendEnabled)
	put(uint64(ps.BlendSrcFactor), 4)
	put(uint64(ps.BlendDstFactor), 4)
	putBool(ps.StencilEnabled)
	put(uint64(ps.StencilTestFunc), 3)
	put(uint64(ps.StencilOpFail), 3)
	put(uint64(ps.StencilOpDepthFail), 3)
	put(uint64(ps.StencilOpPass), 3)
	put(uint64(ps.StencilWriteMask), 8)
	put(uint64(ps.StencilCompareMask), 8)
	put(uint64(ps.StencilReference), 8)
	putBool(ps.CullFaceEnabled)
	put(uint64(ps.CullFaceType), 2)
	put(uint64(ps.FaceWinding), 1)
	putBool(ps.ScissorEnabled)
	return bits
}
