package graphics

import (
	"fmt"

	"github.com/Carmen-Shannon/gfx-go/common"
	"github.com/Carmen-Shannon/gfx-go/logging"
)

const (
	// uniformBufferAlignment is the byte alignment of uniform block
	// allocations inside a scratch buffer.
	uniformBufferAlignment uint32 = 256

	// storageBufferAlignment is the byte alignment of storage block
	// allocations inside a scratch buffer.
	storageBufferAlignment uint32 = 16

	// scratchBufferGrowth is the fixed increment scratch capacity grows by
	// when a draw's uniform data no longer fits.
	scratchBufferGrowth uint32 = 8 * 1024

	// scratchBufferInitialSize is the default scratch capacity per frame slot.
	scratchBufferInitialSize uint32 = 32 * 1024
)

// ScratchBuffer is a per-frame bump allocator over one device buffer, used to
// stage small frequently-changing data (uniform values) for draws recorded in
// the frame its slot serves. The cursor only moves forward between Rewinds, so
// writes for the current frame can never land on bytes a previous, possibly
// still-executing frame's draws are reading.
type ScratchBuffer struct {
	buffer DeviceBuffer
	cursor uint32
}

// Rewind resets the cursor to zero. Called exactly once per frame for the slot
// the frame is using, before any draw in that frame allocates.
func (s *ScratchBuffer) Rewind() {
	s.cursor = 0
}

// CanAllocate reports whether n more bytes fit at the current cursor.
//
// Parameters:
//   - n: the allocation size in bytes
//
// Returns:
//   - bool: true iff cursor + n <= capacity
func (s *ScratchBuffer) CanAllocate(n uint32) bool {
	return s.cursor+n <= s.buffer.size
}

// canAllocateAligned reports whether n bytes fit once the cursor is rounded up
// to align.
func (s *ScratchBuffer) canAllocateAligned(n, align uint32) bool {
	return common.AlignUp(s.cursor, align)+n <= s.buffer.size
}

// Allocate rounds the cursor up to align, returns that offset, and advances
// the cursor past n. Callers must have established capacity via CanAllocate
// (or the context's draw-setup growth step); allocation never silently
// overflows and panics on a missed capacity check.
//
// Parameters:
//   - n: the allocation size in bytes
//   - align: the required offset alignment (power of two)
//
// Returns:
//   - uint32: the aligned byte offset of the allocation
func (s *ScratchBuffer) Allocate(n, align uint32) uint32 {
	offset := common.AlignUp(s.cursor, align)
	if offset+n > s.buffer.size {
		panic(fmt.Sprintf("scratch buffer: allocation of %d bytes at aligned cursor %d exceeds capacity %d; capacity must be ensured before allocating", n, offset, s.buffer.size))
	}
	s.cursor = offset + n
	return offset
}

// Cursor returns the bytes consumed since the last Rewind (including
// alignment padding).
//
// Returns:
//   - uint32: the current cursor position
func (s *ScratchBuffer) Cursor() uint32 {
	return s.cursor
}

// Capacity returns the scratch backing buffer's current size.
//
// Returns:
//   - uint32: the capacity in bytes
func (s *ScratchBuffer) Capacity() uint32 {
	return s.buffer.size
}

// newScratchBuffer allocates the backing device buffer for one frame slot.
func (c *context) newScratchBuffer(size uint32, slot uint32) (*ScratchBuffer, error) {
	s := &ScratchBuffer{
		buffer: DeviceBuffer{
			mode:   StorageModeHostVisible,
			target: BufferTargetUniform,
			usage:  BufferUsageStream,
			label:  fmt.Sprintf("scratch-frame-%d", slot),
		},
	}
	handle, err := c.backend.CreateBuffer(size, s.buffer.target, s.buffer.mode, s.buffer.usage, s.buffer.label)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %d byte scratch buffer: %w", size, err)
	}
	s.buffer.handle = handle
	s.buffer.size = size
	return s, nil
}

// ensureScratchCapacity grows the scratch backing buffer in fixed increments
// until the program's aligned uniform block fits at the current cursor. The
// old allocation is handed to the active slot's destruction queue; draws
// already recorded this frame keep reading from it. Growth only ever happens
// here, at draw setup, before any write for the draw.
func (c *context) ensureScratchCapacity(s *ScratchBuffer, need uint32) error {
	if s.canAllocateAligned(need, uniformBufferAlignment) {
		return nil
	}
	newSize := s.buffer.size
	for {
		newSize += scratchBufferGrowth
		if common.AlignUp(s.cursor, uniformBufferAlignment)+need <= newSize {
			break
		}
	}
	handle, err := c.backend.CreateBuffer(newSize, s.buffer.target, s.buffer.mode, s.buffer.usage, s.buffer.label)
	if err != nil {
		return fmt.Errorf("failed to grow scratch buffer to %d bytes: %w", newSize, err)
	}
	c.deferDestroyBufferHandle(s.buffer.handle)
	s.buffer.handle = handle
	s.buffer.size = newSize
	logging.Debugf("graphics: scratch buffer %q grown to %d bytes", s.buffer.label, newSize)
	return nil
}
