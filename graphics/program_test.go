package graphics

import (
	"testing"

	"github.com/Carmen-Shannon/gfx-go/graphics/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageDesc(stage shader.Stage, source string, meta shader.Metadata) shader.Desc {
	return shader.Desc{
		Name:       "test-" + stage.String(),
		Stage:      stage,
		Source:     source,
		EntryPoint: "main",
		Meta:       meta,
	}
}

func TestBuildProgramPacksUniformBlocks(t *testing.T) {
	vertex := stageDesc(shader.StageVertex, "vs", shader.Metadata{
		Bindings: []shader.Binding{
			{Name: "scene", Set: 0, Binding: 0, Kind: shader.ResourceUniformBuffer, Size: 68},
		},
		Uniforms: []shader.Uniform{
			{Name: "transform", Set: 0, Binding: 0, Offset: 0, Type: shader.DataTypeMat4, Count: 1},
			{Name: "exposure", Set: 0, Binding: 0, Offset: 64, Type: shader.DataTypeFloat, Count: 1},
		},
	})
	fragment := stageDesc(shader.StageFragment, "fs", shader.Metadata{
		Bindings: []shader.Binding{
			{Name: "material", Set: 0, Binding: 1, Kind: shader.ResourceUniformBuffer, Size: 16},
		},
		Uniforms: []shader.Uniform{
			{Name: "tint", Set: 0, Binding: 1, Offset: 0, Type: shader.DataTypeVec4, Count: 1},
		},
	})

	p, err := buildProgram("packed", []shader.Desc{vertex, fragment})
	require.NoError(t, err)

	require.Len(t, p.bindings, 2)
	scene, material := p.bindings[0], p.bindings[1]
	assert.Equal(t, "scene", scene.name)
	assert.Equal(t, "material", material.name)

	// Blocks pack back to back at 16-byte granularity; the 68-byte block
	// pushes the next one to offset 80.
	assert.Equal(t, uint32(0), scene.byteOffset)
	assert.Equal(t, uint32(80), material.byteOffset)
	assert.Equal(t, uint32(0), scene.nativeIndex)
	assert.Equal(t, uint32(1), material.nativeIndex)

	assert.Equal(t, uint32(96), p.uniformSize)
	assert.Equal(t, uint32(256), p.uniformSizeAligned)
	assert.Equal(t, uint32(256), p.UniformStagingSize())
	assert.Len(t, p.uniformData, 256)
	assert.False(t, p.Compute())
}

func TestBuildProgramAssignsNativeIndicesPerFamily(t *testing.T) {
	p, err := buildProgram("families", testComputeStage())
	require.NoError(t, err)

	particles := p.bindingAt(0, 0)
	require.NotNil(t, particles)
	assert.Equal(t, BindingFamilyStorageBuffer, particles.family)
	assert.Equal(t, uint32(0), particles.nativeIndex)

	sim := p.bindingAt(0, 1)
	require.NotNil(t, sim)
	assert.Equal(t, BindingFamilyUniformBuffer, sim.family)
	assert.Equal(t, uint32(0), sim.nativeIndex)
	assert.Equal(t, uint32(0), sim.byteOffset)
	assert.True(t, p.Compute())
}

func TestBuildProgramMergesStageVisibility(t *testing.T) {
	shared := shader.Binding{Name: "globals", Set: 0, Binding: 0, Kind: shader.ResourceUniformBuffer, Size: 16}
	vertex := stageDesc(shader.StageVertex, "vs", shader.Metadata{Bindings: []shader.Binding{shared}})
	fragment := stageDesc(shader.StageFragment, "fs", shader.Metadata{Bindings: []shader.Binding{shared}})

	p, err := buildProgram("merged", []shader.Desc{vertex, fragment})
	require.NoError(t, err)

	require.Len(t, p.bindings, 1)
	assert.Equal(t, shader.StageFlagVertex|shader.StageFlagFragment, p.bindings[0].stages)
}

func TestBuildProgramBindingConflict(t *testing.T) {
	vertex := stageDesc(shader.StageVertex, "vs", shader.Metadata{
		Bindings: []shader.Binding{
			{Name: "globals", Set: 0, Binding: 0, Kind: shader.ResourceUniformBuffer, Size: 16},
		},
	})
	fragment := stageDesc(shader.StageFragment, "fs", shader.Metadata{
		Bindings: []shader.Binding{
			{Name: "globals_tex", Set: 0, Binding: 0, Kind: shader.ResourceTextureSampler},
		},
	})

	_, err := buildProgram("conflict", []shader.Desc{vertex, fragment})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "declared as uniform-buffer/16 bytes by one stage and sampler/0 bytes by another")
}

func TestBuildProgramStageSetValidation(t *testing.T) {
	vertex := stageDesc(shader.StageVertex, "vs", shader.Metadata{})
	fragment := stageDesc(shader.StageFragment, "fs", shader.Metadata{})
	compute := stageDesc(shader.StageCompute, "cs", shader.Metadata{})

	_, err := buildProgram("empty", nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "has no stages")

	_, err = buildProgram("dup", []shader.Desc{vertex, vertex})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "declares stage vertex twice")

	_, err = buildProgram("mixed", []shader.Desc{compute, fragment})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "mixes compute with render stages")

	_, err = buildProgram("headless", []shader.Desc{fragment})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "has no vertex stage")
}

func TestBuildProgramRecordsWorkgroup(t *testing.T) {
	p, err := buildProgram("wg", testComputeStage())
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{64, 1, 1}, p.workgrp)
}

func TestCollectUniformsPlacementConflict(t *testing.T) {
	block := shader.Binding{Name: "globals", Set: 0, Binding: 0, Kind: shader.ResourceUniformBuffer, Size: 32}
	vertex := stageDesc(shader.StageVertex, "vs", shader.Metadata{
		Bindings: []shader.Binding{block},
		Uniforms: []shader.Uniform{{Name: "time", Set: 0, Binding: 0, Offset: 0, Type: shader.DataTypeFloat}},
	})
	fragment := stageDesc(shader.StageFragment, "fs", shader.Metadata{
		Bindings: []shader.Binding{block},
		Uniforms: []shader.Uniform{{Name: "time", Set: 0, Binding: 0, Offset: 16, Type: shader.DataTypeFloat}},
	})

	_, err := buildProgram("placement", []shader.Desc{vertex, fragment})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, `uniform "time" declared at two different placements`)

	// Agreeing placements merge into one member.
	fragment.Meta.Uniforms[0].Offset = 0
	p, err := buildProgram("placement", []shader.Desc{vertex, fragment})
	require.NoError(t, err)
	assert.Equal(t, 1, p.UniformCount())
}

func TestCollectUniformsDefaultsZeroCountToOne(t *testing.T) {
	vertex := stageDesc(shader.StageVertex, "vs", shader.Metadata{
		Bindings: []shader.Binding{
			{Name: "globals", Set: 0, Binding: 0, Kind: shader.ResourceUniformBuffer, Size: 16},
		},
		Uniforms: []shader.Uniform{{Name: "tint", Set: 0, Binding: 0, Offset: 0, Type: shader.DataTypeVec4, Count: 0}},
	})

	p, err := buildProgram("count", []shader.Desc{vertex})
	require.NoError(t, err)
	require.Contains(t, p.byName, "tint")
	assert.Equal(t, uint32(1), p.byName["tint"].count)
}

func TestGetUniformLocation(t *testing.T) {
	p, err := buildProgram("lookup", testSampledStages())
	require.NoError(t, err)

	loc, err := p.GetUniformLocation("effect")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), loc.set())
	assert.Equal(t, uint32(0), loc.bindingIndex())
	assert.Equal(t, uint32(0), loc.blockOffset())

	// Sampler bindings resolve by their declared name with a zero offset.
	texLoc, err := p.GetUniformLocation("scene_texture")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), texLoc.set())
	assert.Equal(t, uint32(1), texLoc.bindingIndex())
	assert.Equal(t, uint32(0), texLoc.blockOffset())

	_, err = p.GetUniformLocation("nope")
	assert.ErrorContains(t, err, `uniform "nope" not found in program "lookup"`)
}

func TestUniformLocationPacking(t *testing.T) {
	loc := newUniformLocation(3, 12, 0xdeadbeef)
	assert.Equal(t, uint32(3), loc.set())
	assert.Equal(t, uint32(12), loc.bindingIndex())
	assert.Equal(t, uint32(0xdeadbeef), loc.blockOffset())
}

func TestWriteUniformGuards(t *testing.T) {
	p, err := buildProgram("writes", testSampledStages())
	require.NoError(t, err)

	err = p.writeUniform(newUniformLocation(2, 2, 0), []byte{1})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "no binding at set 2 binding 2")

	texLoc, err := p.GetUniformLocation("scene_texture")
	require.NoError(t, err)
	err = p.writeUniform(texLoc, []byte{1})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "is a sampler, not a uniform buffer")

	effect, err := p.GetUniformLocation("effect")
	require.NoError(t, err)
	err = p.writeUniform(effect, make([]byte, 32))
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorContains(t, err, "exceeds block")

	require.NoError(t, p.writeUniform(effect, []byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 3, 4}, p.uniformData[:4])
}

func TestSetSamplerPanicsOnNonSamplerLocation(t *testing.T) {
	p, err := buildProgram("sampler-panic", testSampledStages())
	require.NoError(t, err)

	effect, err := p.GetUniformLocation("effect")
	require.NoError(t, err)
	assert.Panics(t, func() { p.setSampler(effect, 0) })
	assert.Panics(t, func() { p.setSampler(newUniformLocation(3, 3, 0), 0) })

	texLoc, err := p.GetUniformLocation("scene_texture")
	require.NoError(t, err)
	p.setSampler(texLoc, 5)
	assert.Equal(t, int32(5), p.bindingAt(0, 1).textureUnit)
}

func TestProgramHashIgnoresStageOrder(t *testing.T) {
	descs := testRenderStages()
	reversed := []shader.Desc{descs[1], descs[0]}

	a, err := buildProgram("order-a", descs)
	require.NoError(t, err)
	b, err := buildProgram("order-b", reversed)
	require.NoError(t, err)
	assert.Equal(t, a.Hash(), b.Hash())

	changed := testRenderStages()
	changed[1].Source = "different fragment source"
	c, err := buildProgram("order-c", changed)
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestUniformNameEnumeration(t *testing.T) {
	p, err := buildProgram("names", testRenderStages())
	require.NoError(t, err)

	assert.Equal(t, 2, p.UniformCount())
	name, err := p.UniformName(0)
	require.NoError(t, err)
	assert.Equal(t, "transform", name)
	name, err = p.UniformName(1)
	require.NoError(t, err)
	assert.Equal(t, "tint", name)

	_, err = p.UniformName(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = p.UniformName(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
