package graphics

import "errors"

// Sentinel errors returned by the context operation surface. Callers can
// classify failures with errors.Is; messages wrap these with call detail.
var (
	// ErrOutOfRange indicates a sub-range write outside the target resource's bounds.
	ErrOutOfRange = errors.New("range out of bounds")

	// ErrContextClosed indicates an operation on a deleted context.
	ErrContextClosed = errors.New("context closed")

	// ErrNoFrameBegun indicates a frame-scoped operation outside BeginFrame/EndFrame.
	ErrNoFrameBegun = errors.New("no frame begun")

	// ErrFrameAlreadyBegun indicates BeginFrame while a frame is already open.
	ErrFrameAlreadyBegun = errors.New("frame already begun")

	// ErrNoProgramEnabled indicates a draw or dispatch with no program enabled.
	ErrNoProgramEnabled = errors.New("no program enabled")

	// ErrResourceDestroyed indicates an operation on a resource already deleted.
	ErrResourceDestroyed = errors.New("resource destroyed")

	// ErrInvalidParams indicates creation parameters that fail validation.
	ErrInvalidParams = errors.New("invalid parameters")
)
