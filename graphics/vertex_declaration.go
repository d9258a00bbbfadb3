package graphics

import (
	"fmt"
	"hash/fnv"
)

// VertexStream declares one attribute within a vertex declaration.
type VertexStream struct {
	// Name is the attribute name matched against the program's vertex inputs.
	Name string

	// Size is the component count per element (1 to 4).
	Size uint32

	// Type is the element type of each component.
	Type Type

	// Normalize maps integer types to [0,1] / [-1,1] floats in the shader.
	Normalize bool
}

// vertexStream is a declared stream with its computed layout placement.
type vertexStream struct {
	VertexStream
	offset   uint32
	location uint32
}

// VertexDeclaration is an immutable description of one interleaved vertex
// buffer layout: its streams with computed offsets, the total stride, the step
// function, and a layout hash folded into pipeline cache keys.
type VertexDeclaration struct {
	streams []vertexStream
	stride  uint32
	step    VertexStepFunction
	hash    uint64
}

// VertexDeclarationOption is a functional option applied during NewVertexDeclaration.
type VertexDeclarationOption func(*VertexDeclaration)

// WithStepFunction sets the declaration's step function. Per-instance
// declarations advance once per instance instead of once per vertex.
//
// Parameters:
//   - step: the step function to declare
//
// Returns:
//   - VertexDeclarationOption: a function that applies the step function option
func WithStepFunction(step VertexStepFunction) VertexDeclarationOption {
	return func(vd *VertexDeclaration) {
		vd.step = step
	}
}

// NewVertexDeclaration builds a vertex declaration from the given streams.
// Offsets are packed in declaration order with no padding; shader input
// locations are assigned sequentially in the same order.
//
// Parameters:
//   - streams: the attribute streams in buffer order
//   - options: functional options (step function)
//
// Returns:
//   - *VertexDeclaration: the immutable declaration
//   - error: error if a stream is malformed
func NewVertexDeclaration(streams []VertexStream, options ...VertexDeclarationOption) (*VertexDeclaration, error) {
	if len(streams) == 0 {
		return nil, fmt.Errorf("%w: vertex declaration has no streams", ErrInvalidParams)
	}
	vd := &VertexDeclaration{
		streams: make([]vertexStream, 0, len(streams)),
		step:    VertexStepPerVertex,
	}
	var offset uint32
	for i, s := range streams {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: stream %d has no name", ErrInvalidParams, i)
		}
		if s.Size < 1 || s.Size > 4 {
			return nil, fmt.Errorf("%w: stream %q size %d not in 1..4", ErrInvalidParams, s.Name, s.Size)
		}
		if s.Type.ByteSize() == 0 {
			return nil, fmt.Errorf("%w: stream %q has unknown type", ErrInvalidParams, s.Name)
		}
		vd.streams = append(vd.streams, vertexStream{
			VertexStream: s,
			offset:       offset,
			location:     uint32(i),
		})
		offset += s.Size * s.Type.ByteSize()
	}
	vd.stride = offset
	for _, opt := range options {
		opt(vd)
	}
	vd.hash = vd.computeHash()
	return vd, nil
}

// computeHash derives the layout hash over every field that affects the
// backend vertex descriptor except the step function, which pipeline keys
// fold in separately per bound declaration.
func (vd *VertexDeclaration) computeHash() uint64 {
	h := fnv.New64a()
	var scratch [8]byte
	writeU32 := func(v uint32) {
		scratch[0] = byte(v)
		scratch[1] = byte(v >> 8)
		scratch[2] = byte(v >> 16)
		scratch[3] = byte(v >> 24)
		h.Write(scratch[:4])
	}
	writeU32(vd.stride)
	for i := range vd.streams {
		s := &vd.streams[i]
		h.Write([]byte(s.Name))
		writeU32(s.Size)
		writeU32(uint32(s.Type))
		if s.Normalize {
			writeU32(1)
		} else {
			writeU32(0)
		}
		writeU32(s.offset)
		writeU32(s.location)
	}
	return h.Sum64()
}

// Stride returns the byte distance between consecutive elements.
//
// Returns:
//   - uint32: the layout stride in bytes
func (vd *VertexDeclaration) Stride() uint32 {
	return vd.stride
}

// StepFunction returns how the declaration advances across a draw.
//
// Returns:
//   - VertexStepFunction: per-vertex or per-instance
func (vd *VertexDeclaration) StepFunction() VertexStepFunction {
	return vd.step
}

// Hash returns the layout hash folded into pipeline cache keys.
//
// Returns:
//   - uint64: the declaration's layout hash
func (vd *VertexDeclaration) Hash() uint64 {
	return vd.hash
}

// StreamCount returns the number of declared streams.
//
// Returns:
//   - int: the stream count
func (vd *VertexDeclaration) StreamCount() int {
	return len(vd.streams)
}
