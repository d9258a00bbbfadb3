package graphics

import "fmt"

// DeviceBuffer is an opaque GPU-visible linear allocation. The backend handle
// is allocated lazily on first upload and is non-nil exactly when the logical
// size is nonzero and the buffer has not been destroyed. Destruction always
// goes through the active frame slot's deferred destruction queue so GPU work
// already recorded against the handle keeps reading valid memory.
type DeviceBuffer struct {
	// handle is the backend-native buffer object, nil when unallocated.
	handle any

	// size is the current logical byte size.
	size uint32

	// mode selects the memory type backing the allocation.
	mode StorageMode

	// target is what the buffer binds as at draw time.
	target BufferTarget

	// usage hints the rewrite frequency to the backend.
	usage BufferUsage

	// destroyed marks the buffer logically released; a destroyed buffer's
	// handle is nil and a second delete is a no-op.
	destroyed bool

	// label names the buffer in backend diagnostics.
	label string
}

// Size returns the buffer's current logical byte size.
//
// Returns:
//   - uint32: the size in bytes, 0 when unallocated
func (b *DeviceBuffer) Size() uint32 {
	return b.size
}

// StorageMode returns the memory type backing the buffer.
//
// Returns:
//   - StorageMode: the buffer's storage mode
func (b *DeviceBuffer) StorageMode() StorageMode {
	return b.mode
}

// Target returns what the buffer binds as at draw time.
//
// Returns:
//   - BufferTarget: the buffer's bind target
func (b *DeviceBuffer) Target() BufferTarget {
	return b.target
}

// Destroyed reports whether the buffer has been logically released.
//
// Returns:
//   - bool: true once the buffer has been deleted
func (b *DeviceBuffer) Destroyed() bool {
	return b.destroyed
}

// VertexBuffer is a device buffer bound as a vertex stream source.
type VertexBuffer struct {
	DeviceBuffer
}

// IndexBuffer is a device buffer bound as an index source for indexed draws.
type IndexBuffer struct {
	DeviceBuffer
}

// StorageBuffer is a device buffer bound as a read/write storage input for
// draw or compute programs.
type StorageBuffer struct {
	DeviceBuffer
}

// uploadDeviceBuffer implements the full (re)upload contract. A zero size is a
// no-op. When the buffer is unallocated, destroyed, or sized differently from
// the request, the old backend allocation (if any) is handed to the active
// slot's destruction queue and a fresh allocation of the requested size is
// made before writing. A nil data slice zero-fills the requested range.
func (c *context) uploadDeviceBuffer(b *DeviceBuffer, data []byte, size, offset uint32) error {
	if size == 0 {
		return nil
	}
	if data != nil && offset+uint32(len(data)) > size {
		return fmt.Errorf("%w: write of %d bytes at offset %d exceeds upload size %d", ErrOutOfRange, len(data), offset, size)
	}

	if b.handle == nil || b.destroyed || b.size != size {
		if b.handle != nil {
			c.deferDestroyBufferHandle(b.handle)
			b.handle = nil
		}
		handle, err := c.backend.CreateBuffer(size, b.target, b.mode, b.usage, b.label)
		if err != nil {
			b.size = 0
			return fmt.Errorf("failed to allocate %d byte buffer %q: %w", size, b.label, err)
		}
		b.handle = handle
		b.size = size
		b.destroyed = false
	}

	payload := data
	if payload == nil {
		payload = make([]byte, size)
		offset = 0
	}
	if err := c.backend.WriteBuffer(b.handle, offset, payload); err != nil {
		return fmt.Errorf("failed to write %d bytes to buffer %q: %w", len(payload), b.label, err)
	}
	return nil
}

// subUploadDeviceBuffer performs a partial in-place write without
// reallocation. The target range must lie inside the buffer's current size.
func (c *context) subUploadDeviceBuffer(b *DeviceBuffer, offset uint32, data []byte) error {
	if b.destroyed || b.handle == nil {
		return fmt.Errorf("%w: buffer %q", ErrResourceDestroyed, b.label)
	}
	if len(data) == 0 {
		return nil
	}
	if offset+uint32(len(data)) > b.size {
		return fmt.Errorf("%w: write of %d bytes at offset %d exceeds buffer size %d", ErrOutOfRange, len(data), offset, b.size)
	}
	if err := c.backend.WriteBuffer(b.handle, offset, data); err != nil {
		return fmt.Errorf("failed to write %d bytes to buffer %q: %w", len(data), b.label, err)
	}
	return nil
}
