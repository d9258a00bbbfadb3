package graphics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestroyQueueGrowsByFixedIncrement(t *testing.T) {
	var q destroyQueue
	require.Equal(t, 0, cap(q.entries))

	for i := 0; i < destroyQueueGrowth; i++ {
		q.push(resourceToDestroy{kind: resourceKindBuffer})
	}
	assert.Equal(t, destroyQueueGrowth, cap(q.entries))
	assert.Equal(t, destroyQueueGrowth, q.size())

	q.push(resourceToDestroy{kind: resourceKindBuffer})
	assert.Equal(t, 2*destroyQueueGrowth, cap(q.entries))
	assert.Equal(t, destroyQueueGrowth+1, q.size())
}

func TestDestroyQueueDrainEmpties(t *testing.T) {
	var q destroyQueue
	q.push(resourceToDestroy{kind: resourceKindBuffer})
	q.push(resourceToDestroy{kind: resourceKindTexture})

	entries := q.drain()
	require.Len(t, entries, 2)
	assert.Equal(t, resourceKindBuffer, entries[0].kind)
	assert.Equal(t, resourceKindTexture, entries[1].kind)
	assert.Equal(t, 0, q.size())
	assert.Empty(t, q.drain())
}

func TestReleaseResourceDispatchesByKind(t *testing.T) {
	ctx, fb := newTestContext(t)
	defer ctx.Close()
	c := ctx.(*context)

	buf, err := fb.CreateBuffer(16, BufferTargetVertex, StorageModePrivate, BufferUsageStatic, "loose")
	require.NoError(t, err)
	tex, err := fb.CreateTexture(TextureParams{Width: 1, Height: 1, Format: TextureFormatRGBA8})
	require.NoError(t, err)
	modA, err := fb.CompileShaderModule(testBareRenderStages()[0])
	require.NoError(t, err)
	modB, err := fb.CompileShaderModule(testBareRenderStages()[1])
	require.NoError(t, err)
	rtTexA, err := fb.CreateTexture(TextureParams{Width: 1, Height: 1, Format: TextureFormatRGBA8})
	require.NoError(t, err)
	rtTexB, err := fb.CreateTexture(TextureParams{Width: 1, Height: 1, Format: TextureFormatDepth32F})
	require.NoError(t, err)

	c.releaseResource(resourceToDestroy{kind: resourceKindBuffer, buffer: buf})
	c.releaseResource(resourceToDestroy{kind: resourceKindTexture, texture: tex})
	c.releaseResource(resourceToDestroy{kind: resourceKindProgram, modules: []any{modA, modB}})
	c.releaseResource(resourceToDestroy{kind: resourceKindRenderTarget, textures: []any{rtTexA, rtTexB}})

	assert.Equal(t, 0, fb.liveTextureCount())
	assert.Equal(t, 0, fb.liveModuleCount())

	assert.Panics(t, func() {
		c.releaseResource(resourceToDestroy{kind: resourceKind(99)})
	})
}

func TestDeferDestroyHandlesIgnoreNil(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()
	c := ctx.(*context)

	c.deferDestroyBufferHandle(nil)
	c.deferDestroyTextureHandle(nil)
	c.deferDestroyBuffer(nil)
	c.deferDestroyTexture(nil)
	c.deferDestroyProgram(nil)
	c.deferDestroyRenderTarget(nil)
	assert.Equal(t, 0, c.activeSlot().destroy.size())

	// A never-allocated buffer marks destroyed without queueing anything.
	empty := &DeviceBuffer{}
	c.deferDestroyBuffer(empty)
	assert.True(t, empty.destroyed)
	assert.Equal(t, 0, c.activeSlot().destroy.size())
}
