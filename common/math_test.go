package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertMat4InDelta(t *testing.T, want, got []float32) {
	t.Helper()
	require.Len(t, got, 16)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "element %d", i)
	}
}

func identityMat() []float32 {
	m := make([]float32, 16)
	Identity(m)
	return m
}

func TestIdentity(t *testing.T) {
	m := []float32{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
	Identity(m)
	assertMat4InDelta(t, []float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}, m)
}

func TestMul4IdentityIsNeutral(t *testing.T) {
	m := make([]float32, 16)
	Translation(m, 2, 3, 4)

	out := make([]float32, 16)
	Mul4(out, identityMat(), m)
	assertMat4InDelta(t, m, out)

	Mul4(out, m, identityMat())
	assertMat4InDelta(t, m, out)

	// Mul4 buffers internally, so aliasing output and input is allowed.
	Mul4(m, m, identityMat())
	assertMat4InDelta(t, out, m)
}

func TestMul4ComposesTranslations(t *testing.T) {
	a := make([]float32, 16)
	b := make([]float32, 16)
	Translation(a, 1, 2, 3)
	Translation(b, 10, 20, 30)

	out := make([]float32, 16)
	Mul4(out, a, b)

	want := make([]float32, 16)
	Translation(want, 11, 22, 33)
	assertMat4InDelta(t, want, out)
}

func TestTranslation(t *testing.T) {
	m := make([]float32, 16)
	Translation(m, 5, -6, 7)
	assert.Equal(t, float32(5), m[12])
	assert.Equal(t, float32(-6), m[13])
	assert.Equal(t, float32(7), m[14])
	assert.Equal(t, float32(1), m[0])
	assert.Equal(t, float32(1), m[15])
}

func TestRotationY(t *testing.T) {
	m := make([]float32, 16)
	RotationY(m, 0)
	assertMat4InDelta(t, identityMat(), m)

	// Quarter turn: +X maps to -Z in column-major layout.
	RotationY(m, 3.14159265/2)
	assert.InDelta(t, 0, m[0], 1e-5)
	assert.InDelta(t, -1, m[2], 1e-5)
	assert.InDelta(t, 1, m[8], 1e-5)
	assert.InDelta(t, 0, m[10], 1e-5)
}

func TestPerspectiveClipSpace(t *testing.T) {
	m := make([]float32, 16)
	Perspective(m, 3.14159265/2, 2.0, 0.1, 100.0)

	// f = 1/tan(fov/2) = 1 for a 90 degree fov.
	assert.InDelta(t, 0.5, m[0], 1e-5)
	assert.InDelta(t, 1.0, m[5], 1e-5)
	assert.InDelta(t, 100.0/(0.1-100.0), m[10], 1e-5)
	assert.InDelta(t, -1.0, m[11], 1e-5)
	assert.InDelta(t, (0.1*100.0)/(0.1-100.0), m[14], 1e-5)
	assert.InDelta(t, 0.0, m[15], 1e-5)
}

func TestLookAtFromOriginIsIdentity(t *testing.T) {
	m := make([]float32, 16)
	LookAt(m, 0, 0, 0, 0, 0, -1, 0, 1, 0)
	assertMat4InDelta(t, identityMat(), m)
}

func TestLookAtTranslatesEye(t *testing.T) {
	m := make([]float32, 16)
	LookAt(m, 0, 0, 5, 0, 0, 0, 0, 1, 0)

	// Same axes as the origin view, with the eye distance in the
	// translation column.
	assert.InDelta(t, 1, m[0], 1e-5)
	assert.InDelta(t, 1, m[5], 1e-5)
	assert.InDelta(t, 1, m[10], 1e-5)
	assert.InDelta(t, -5, m[14], 1e-5)
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes[float32](nil))
	assert.Nil(t, SliceToBytes([]float32{}))

	b := SliceToBytes([]float32{1, 2, 3})
	assert.Len(t, b, 12)

	// The view shares memory with the source.
	src := []byte{1, 2, 3, 4}
	view := SliceToBytes(src)
	src[0] = 99
	assert.Equal(t, byte(99), view[0])
}

func TestStructToBytes(t *testing.T) {
	type uniforms struct {
		A [4]float32
		B [4]float32
	}
	u := uniforms{}
	b := StructToBytes(&u)
	assert.Len(t, b, 32)

	u.A[0] = 1
	assert.NotEqual(t, make([]byte, 32), b)
}
