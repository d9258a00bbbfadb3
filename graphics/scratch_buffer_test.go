package graphics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScratchAllocateAlignsCursor(t *testing.T) {
	s := &ScratchBuffer{buffer: DeviceBuffer{size: 1024}}

	assert.Equal(t, uint32(0), s.Allocate(100, 256))
	assert.Equal(t, uint32(100), s.Cursor())

	// The next allocation starts at the aligned cursor, not at 100.
	assert.Equal(t, uint32(256), s.Allocate(100, 256))
	assert.Equal(t, uint32(356), s.Cursor())

	assert.Equal(t, uint32(512), s.Allocate(16, 256))
	assert.Equal(t, uint32(528), s.Cursor())
	assert.Equal(t, uint32(1024), s.Capacity())
}

func TestScratchCanAllocate(t *testing.T) {
	s := &ScratchBuffer{buffer: DeviceBuffer{size: 256}}

	assert.True(t, s.CanAllocate(256))
	s.Allocate(200, 1)
	assert.True(t, s.CanAllocate(56))
	assert.False(t, s.CanAllocate(57))

	// The aligned check accounts for the padding the allocation would add.
	assert.False(t, s.canAllocateAligned(1, 256))
	s.Rewind()
	assert.True(t, s.canAllocateAligned(256, 256))
}

func TestScratchRewind(t *testing.T) {
	s := &ScratchBuffer{buffer: DeviceBuffer{size: 512}}
	s.Allocate(300, 256)
	require.Equal(t, uint32(300), s.Cursor())

	s.Rewind()
	assert.Equal(t, uint32(0), s.Cursor())
	assert.Equal(t, uint32(0), s.Allocate(300, 256))
}

func TestScratchAllocatePanicsPastCapacity(t *testing.T) {
	s := &ScratchBuffer{buffer: DeviceBuffer{size: 256}}
	s.Allocate(200, 1)
	assert.Panics(t, func() { s.Allocate(100, 256) })
}

func TestEnsureScratchCapacityGrowsInFixedIncrements(t *testing.T) {
	ctx, fb := newTestContext(t, WithScratchBufferSize(256))
	defer ctx.Close()
	c := ctx.(*context)
	s := c.frames[0].scratch

	// Already fits: no growth.
	require.NoError(t, c.ensureScratchCapacity(s, 256))
	assert.Equal(t, uint32(256), s.Capacity())

	// 20000 bytes needs three increments from 256.
	live := fb.liveBufferCount()
	require.NoError(t, c.ensureScratchCapacity(s, 20000))
	assert.Equal(t, uint32(256+3*scratchBufferGrowth), s.Capacity())

	// The superseded allocation waits in the destruction queue.
	assert.Equal(t, live+1, fb.liveBufferCount())
	assert.Equal(t, 1, c.activeSlot().destroy.size())
}

func TestEnsureScratchCapacityKeepsCursor(t *testing.T) {
	ctx, _ := newTestContext(t, WithScratchBufferSize(256))
	defer ctx.Close()
	c := ctx.(*context)
	s := c.frames[0].scratch

	s.Allocate(256, 256)
	require.NoError(t, c.ensureScratchCapacity(s, 256))

	// Draws already recorded hold offsets into the old allocation; the
	// cursor keeps moving forward in the replacement.
	assert.Equal(t, uint32(256), s.Cursor())
	assert.Equal(t, uint32(256), s.Allocate(256, 256))
}
