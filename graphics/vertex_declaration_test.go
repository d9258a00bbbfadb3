package graphics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVertexDeclarationPacksOffsets(t *testing.T) {
	vd, err := NewVertexDeclaration([]VertexStream{
		{Name: "position", Size: 3, Type: TypeFloat},
		{Name: "normal", Size: 3, Type: TypeFloat},
		{Name: "texcoord", Size: 2, Type: TypeUnsignedShort, Normalize: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, vd.StreamCount())
	assert.Equal(t, uint32(28), vd.Stride())
	assert.Equal(t, VertexStepPerVertex, vd.StepFunction())

	assert.Equal(t, uint32(0), vd.streams[0].offset)
	assert.Equal(t, uint32(12), vd.streams[1].offset)
	assert.Equal(t, uint32(24), vd.streams[2].offset)

	// Shader input locations follow declaration order.
	assert.Equal(t, uint32(0), vd.streams[0].location)
	assert.Equal(t, uint32(1), vd.streams[1].location)
	assert.Equal(t, uint32(2), vd.streams[2].location)
}

func TestNewVertexDeclarationValidation(t *testing.T) {
	_, err := NewVertexDeclaration(nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "no streams")

	_, err = NewVertexDeclaration([]VertexStream{{Size: 3, Type: TypeFloat}})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "has no name")

	_, err = NewVertexDeclaration([]VertexStream{{Name: "position", Size: 5, Type: TypeFloat}})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "size 5 not in 1..4")

	_, err = NewVertexDeclaration([]VertexStream{{Name: "position", Size: 0, Type: TypeFloat}})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewVertexDeclaration([]VertexStream{{Name: "position", Size: 3, Type: Type(99)}})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.ErrorContains(t, err, "unknown type")
}

func TestVertexDeclarationHashReflectsContent(t *testing.T) {
	a, err := NewVertexDeclaration([]VertexStream{{Name: "position", Size: 3, Type: TypeFloat}})
	require.NoError(t, err)
	same, err := NewVertexDeclaration([]VertexStream{{Name: "position", Size: 3, Type: TypeFloat}})
	require.NoError(t, err)
	assert.Equal(t, a.Hash(), same.Hash())

	renamed, err := NewVertexDeclaration([]VertexStream{{Name: "pos", Size: 3, Type: TypeFloat}})
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash(), renamed.Hash())

	normalized, err := NewVertexDeclaration([]VertexStream{{Name: "position", Size: 3, Type: TypeFloat, Normalize: true}})
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash(), normalized.Hash())

	// Step function stays out of the layout hash; pipeline keys fold it in
	// separately.
	instanced, err := NewVertexDeclaration(
		[]VertexStream{{Name: "position", Size: 3, Type: TypeFloat}},
		WithStepFunction(VertexStepPerInstance),
	)
	require.NoError(t, err)
	assert.Equal(t, a.Hash(), instanced.Hash())
	assert.Equal(t, VertexStepPerInstance, instanced.StepFunction())
}

func TestVertexStreamTypeSizes(t *testing.T) {
	vd, err := NewVertexDeclaration([]VertexStream{
		{Name: "a", Size: 4, Type: TypeUnsignedByte, Normalize: true},
		{Name: "b", Size: 1, Type: TypeUnsignedInt},
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(8), vd.Stride())
	assert.Equal(t, uint32(4), vd.streams[1].offset)
}
