package shader

import "fmt"

// MaxSets is the number of bind set slots a stage may address.
const MaxSets = 4

// MaxBindingsPerSet is the number of binding slots within one set.
const MaxBindingsPerSet = 16

// ResourceKind classifies a declared shader resource binding.
type ResourceKind int

const (
	// ResourceUniformBuffer is a uniform block binding backed by per-draw staged data.
	ResourceUniformBuffer ResourceKind = iota

	// ResourceStorageBuffer is a read/write storage buffer binding.
	ResourceStorageBuffer

	// ResourceTextureSampler is a combined texture + sampler binding addressed by texture unit.
	ResourceTextureSampler
)

// String returns the kind name used in diagnostics.
func (k ResourceKind) String() string {
	switch k {
	case ResourceUniformBuffer:
		return "uniform-buffer"
	case ResourceStorageBuffer:
		return "storage-buffer"
	case ResourceTextureSampler:
		return "texture-sampler"
	default:
		return fmt.Sprintf("resource(%d)", int(k))
	}
}

// DataType identifies the element type of a uniform or vertex attribute.
type DataType int

const (
	// DataTypeFloat is a single 32-bit float.
	DataTypeFloat DataType = iota

	// DataTypeVec2 is a 2-component 32-bit float vector.
	DataTypeVec2

	// DataTypeVec3 is a 3-component 32-bit float vector.
	DataTypeVec3

	// DataTypeVec4 is a 4-component 32-bit float vector.
	DataTypeVec4

	// DataTypeMat4 is a 4x4 32-bit float matrix (column-major).
	DataTypeMat4

	// DataTypeInt is a single 32-bit signed integer.
	DataTypeInt

	// DataTypeUint is a single 32-bit unsigned integer.
	DataTypeUint
)

// ByteSize returns the size in bytes of one element of this type.
//
// Returns:
//   - uint32: the element byte size, or 0 for an unknown type
func (t DataType) ByteSize() uint32 {
	switch t {
	case DataTypeFloat, DataTypeInt, DataTypeUint:
		return 4
	case DataTypeVec2:
		return 8
	case DataTypeVec3:
		return 12
	case DataTypeVec4:
		return 16
	case DataTypeMat4:
		return 64
	default:
		return 0
	}
}

// Binding describes one declared resource binding at a (set, binding) address.
type Binding struct {
	// Name is the declared variable or block name.
	Name string

	// Set is the bind set index the resource is declared in.
	Set uint32

	// Binding is the binding index within the set.
	Binding uint32

	// Kind classifies the resource (uniform buffer, storage buffer, texture sampler).
	Kind ResourceKind

	// Size is the declared byte size of the block for buffer kinds (0 for samplers).
	Size uint32
}

// Uniform describes one named member inside a uniform block binding.
type Uniform struct {
	// Name is the declared member name, unique within the stage.
	Name string

	// Set and Binding address the uniform block the member belongs to.
	Set uint32

	// Binding is the binding index of the owning block within the set.
	Binding uint32

	// Offset is the member's byte offset inside the block.
	Offset uint32

	// Type is the member element type.
	Type DataType

	// Count is the array element count (1 for non-arrays).
	Count uint32
}

// Attribute describes one vertex stage input attribute.
type Attribute struct {
	// Name is the declared attribute name.
	Name string

	// Location is the shader input location index.
	Location uint32

	// Type is the attribute element type.
	Type DataType
}

// Metadata is the reflected interface of one shader stage: its resource
// bindings, the uniform members inside uniform-buffer bindings, vertex
// attributes (vertex stage only), and the compute workgroup size
// (compute stage only).
type Metadata struct {
	// Bindings lists the declared resource bindings of the stage.
	Bindings []Binding

	// Uniforms lists the members of the uniform-buffer bindings.
	Uniforms []Uniform

	// Attributes lists the vertex input attributes (vertex stage only).
	Attributes []Attribute

	// Workgroup is the compute workgroup size as [x, y, z] (compute stage only).
	Workgroup [3]uint32
}

// Validate checks the metadata for internal consistency: addresses in range,
// no duplicate (set, binding) pairs, uniform members referencing a declared
// uniform-buffer binding, and members lying inside their block's size.
//
// Returns:
//   - error: the first problem found, or nil
func (m *Metadata) Validate() error {
	seen := make(map[[2]uint32]*Binding, len(m.Bindings))
	for i := range m.Bindings {
		b := &m.Bindings[i]
		if b.Set >= MaxSets {
			return fmt.Errorf("binding %q: set %d out of range (max %d)", b.Name, b.Set, MaxSets-1)
		}
		if b.Binding >= MaxBindingsPerSet {
			return fmt.Errorf("binding %q: binding %d out of range (max %d)", b.Name, b.Binding, MaxBindingsPerSet-1)
		}
		addr := [2]uint32{b.Set, b.Binding}
		if prev, ok := seen[addr]; ok {
			return fmt.Errorf("binding %q: set %d binding %d already declared by %q", b.Name, b.Set, b.Binding, prev.Name)
		}
		if b.Kind != ResourceTextureSampler && b.Size == 0 {
			return fmt.Errorf("binding %q: %s declared with zero size", b.Name, b.Kind)
		}
		seen[addr] = b
	}
	for i := range m.Uniforms {
		u := &m.Uniforms[i]
		owner, ok := seen[[2]uint32{u.Set, u.Binding}]
		if !ok {
			return fmt.Errorf("uniform %q: no binding declared at set %d binding %d", u.Name, u.Set, u.Binding)
		}
		if owner.Kind != ResourceUniformBuffer {
			return fmt.Errorf("uniform %q: binding at set %d binding %d is a %s, not a uniform buffer", u.Name, u.Set, u.Binding, owner.Kind)
		}
		count := u.Count
		if count == 0 {
			count = 1
		}
		end := u.Offset + u.Type.ByteSize()*count
		if end > owner.Size {
			return fmt.Errorf("uniform %q: extends to byte %d, past block %q size %d", u.Name, end, owner.Name, owner.Size)
		}
	}
	for i := range m.Attributes {
		a := &m.Attributes[i]
		if a.Name == "" {
			return fmt.Errorf("attribute at location %d: name is empty", a.Location)
		}
	}
	return nil
}

// BindingAt returns the binding declared at (set, binding), if any.
//
// Parameters:
//   - set: the bind set index
//   - binding: the binding index within the set
//
// Returns:
//   - *Binding: the declared binding, or nil
func (m *Metadata) BindingAt(set, binding uint32) *Binding {
	for i := range m.Bindings {
		b := &m.Bindings[i]
		if b.Set == set && b.Binding == binding {
			return b
		}
	}
	return nil
}
