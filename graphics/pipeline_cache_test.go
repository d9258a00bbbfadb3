package graphics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineCacheLookupCountsHitsAndMisses(t *testing.T) {
	pc := newPipelineCache()

	assert.Nil(t, pc.lookup(42))
	assert.Equal(t, uint64(1), pc.misses)

	p := &Pipeline{key: 42}
	pc.insert(p)
	assert.Same(t, p, pc.lookup(42))
	assert.Equal(t, uint64(1), pc.hits)
	assert.Equal(t, 1, pc.size())
}

func TestRenderPipelineKeyComposition(t *testing.T) {
	progA, err := buildProgram("key-a", testBareRenderStages())
	require.NoError(t, err)
	descsB := testBareRenderStages()
	descsB[0].Source = "different vertex source"
	progB, err := buildProgram("key-b", descsB)
	require.NoError(t, err)

	state := defaultPipelineState()
	target := &RenderTarget{id: 0, colorFormats: []TextureFormat{TextureFormatBGRA8}}

	declPos, err := NewVertexDeclaration([]VertexStream{{Name: "position", Size: 3, Type: TypeFloat}})
	require.NoError(t, err)
	declPosColor, err := NewVertexDeclaration([]VertexStream{
		{Name: "position", Size: 3, Type: TypeFloat},
		{Name: "color", Size: 4, Type: TypeFloat},
	})
	require.NoError(t, err)

	base := renderPipelineKey(progA, &state, target, []*VertexDeclaration{declPos})

	// Identical inputs produce the identical key.
	assert.Equal(t, base, renderPipelineKey(progA, &state, target, []*VertexDeclaration{declPos}))

	// Each folded input moves the key.
	assert.NotEqual(t, base, renderPipelineKey(progB, &state, target, []*VertexDeclaration{declPos}))

	blended := state
	blended.BlendEnabled = true
	assert.NotEqual(t, base, renderPipelineKey(progA, &blended, target, []*VertexDeclaration{declPos}))

	other := &RenderTarget{id: 7, colorFormats: []TextureFormat{TextureFormatBGRA8}}
	assert.NotEqual(t, base, renderPipelineKey(progA, &state, other, []*VertexDeclaration{declPos}))

	assert.NotEqual(t, base, renderPipelineKey(progA, &state, target, []*VertexDeclaration{declPosColor}))

	// Nil slots are skipped, so a sparse slice matches its dense equivalent.
	sparse := renderPipelineKey(progA, &state, target, []*VertexDeclaration{nil, declPos, nil})
	dense := renderPipelineKey(progA, &state, target, []*VertexDeclaration{declPos})
	assert.Equal(t, dense, sparse)
}

func TestRenderPipelineKeyFoldsStepFunction(t *testing.T) {
	prog, err := buildProgram("step-key", testBareRenderStages())
	require.NoError(t, err)
	state := defaultPipelineState()
	target := &RenderTarget{colorFormats: []TextureFormat{TextureFormatBGRA8}}

	streams := []VertexStream{{Name: "offset", Size: 4, Type: TypeFloat}}
	perVertex, err := NewVertexDeclaration(streams)
	require.NoError(t, err)
	perInstance, err := NewVertexDeclaration(streams, WithStepFunction(VertexStepPerInstance))
	require.NoError(t, err)

	a := renderPipelineKey(prog, &state, target, []*VertexDeclaration{perVertex})
	b := renderPipelineKey(prog, &state, target, []*VertexDeclaration{perInstance})
	assert.NotEqual(t, a, b)
}

func TestComputePipelineKeyDisjointFromRenderKeys(t *testing.T) {
	prog, err := buildProgram("disjoint", testComputeStage())
	require.NoError(t, err)
	state := defaultPipelineState()
	target := &RenderTarget{colorFormats: []TextureFormat{TextureFormatBGRA8}}

	ck := computePipelineKey(prog)
	rk := renderPipelineKey(prog, &state, target, nil)
	assert.NotEqual(t, ck, rk)

	// Stable per program.
	assert.Equal(t, ck, computePipelineKey(prog))
}

func TestComputePipelineCachedOncePerProgram(t *testing.T) {
	ctx, fb := newTestContext(t)
	defer ctx.Close()

	prog, err := ctx.NewProgram("cached-comp", testComputeStage()...)
	require.NoError(t, err)
	sb, err := ctx.NewStorageBuffer(64, make([]byte, 64), BufferUsageDynamic)
	require.NoError(t, err)

	require.NoError(t, ctx.BeginFrame())
	require.NoError(t, ctx.EnableProgram(prog))
	require.NoError(t, ctx.EnableStorageBuffer(0, sb, 0))
	require.NoError(t, ctx.SetConstantV4(mustLocation(t, prog, "config"), [4]float32{1, 0, 0, 0}))

	require.NoError(t, ctx.DispatchCompute(1, 1, 1))
	require.NoError(t, ctx.DispatchCompute(2, 1, 1))
	assert.Equal(t, 1, fb.computePipelineBuilds)

	require.NoError(t, ctx.EndFrame())
}
