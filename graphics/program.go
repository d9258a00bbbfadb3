package graphics

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/Carmen-Shannon/gfx-go/common"
	"github.com/Carmen-Shannon/gfx-go/graphics/shader"
)

// BindingFamily classifies a program resource binding for draw-time commit.
type BindingFamily int

const (
	// BindingFamilyUniformBuffer is backed by per-draw scratch-staged uniform data.
	BindingFamilyUniformBuffer BindingFamily = iota

	// BindingFamilySampler is a texture + sampler pair addressed by texture unit.
	BindingFamilySampler

	// BindingFamilyStorageBuffer is a read/write storage buffer.
	BindingFamilyStorageBuffer
)

// String returns the family name used in diagnostics.
func (f BindingFamily) String() string {
	switch f {
	case BindingFamilyUniformBuffer:
		return "uniform-buffer"
	case BindingFamilySampler:
		return "sampler"
	case BindingFamilyStorageBuffer:
		return "storage-buffer"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// familyFromKind maps a reflected resource kind to its binding family.
func familyFromKind(k shader.ResourceKind) (BindingFamily, error) {
	switch k {
	case shader.ResourceUniformBuffer:
		return BindingFamilyUniformBuffer, nil
	case shader.ResourceStorageBuffer:
		return BindingFamilyStorageBuffer, nil
	case shader.ResourceTextureSampler:
		return BindingFamilySampler, nil
	default:
		return 0, fmt.Errorf("%w: unknown resource kind %d", ErrInvalidParams, int(k))
	}
}

// UniformLocation addresses one uniform member: the owning block's (set,
// binding) pair and the member's byte offset inside the block, packed into a
// single integer.
type UniformLocation uint64

// newUniformLocation packs a (set, binding, intra-block byte offset) triple.
func newUniformLocation(set, binding, blockOffset uint32) UniformLocation {
	return UniformLocation(uint64(set)<<48 | uint64(binding)<<32 | uint64(blockOffset))
}

// set returns the bind set index encoded in the location.
func (l UniformLocation) set() uint32 {
	return uint32(l>>48) & 0xffff
}

// bindingIndex returns the binding index encoded in the location.
func (l UniformLocation) bindingIndex() uint32 {
	return uint32(l>>32) & 0xffff
}

// blockOffset returns the intra-block byte offset encoded in the location.
func (l UniformLocation) blockOffset() uint32 {
	return uint32(l)
}

// resourceBinding is one program resource slot resolved from stage metadata:
// its (set, binding) address, family, flat backend index within that family,
// byte placement in the uniform staging blob (uniform family only), and the
// union of stages it is visible to. The texture unit of a sampler binding is
// the only mutable field; SetSampler records it for draw-time resolution.
type resourceBinding struct {
	name        string
	set         uint32
	binding     uint32
	family      BindingFamily
	nativeIndex uint32
	byteOffset  uint32
	blockSize   uint32
	stages      shader.StageFlags
	textureUnit int32
}

// uniformMember is one named member inside a uniform block binding.
type uniformMember struct {
	name    string
	set     uint32
	binding uint32
	offset  uint32
	typ     shader.DataType
	count   uint32
}

// Program owns the compiled stage modules and the resource binding table
// reflected from stage metadata. The table layout and staging blob size are
// fixed at creation; SetConstant* writes go into the CPU-side staging blob and
// reach the GPU only when a draw commits them into the frame's scratch buffer.
type Program struct {
	label    string
	hash     uint64
	compute  bool
	modules  map[shader.Stage]any
	entries  map[shader.Stage]string
	bindings []*resourceBinding
	byAddr   [shader.MaxSets][shader.MaxBindingsPerSet]*resourceBinding
	members  []*uniformMember
	byName   map[string]*uniformMember
	attrs    []shader.Attribute
	workgrp  [3]uint32

	// uniformSize is the packed size of all uniform blocks; uniformSizeAligned
	// rounds it up to the scratch allocator's uniform alignment.
	uniformSize        uint32
	uniformSizeAligned uint32
	uniformData        []byte

	destroyed bool
}

// Hash returns the program's identity hash, derived from its stage sources
// and entry points. Folded into pipeline cache keys.
func (p *Program) Hash() uint64 {
	return p.hash
}

// Compute reports whether the program is a compute program.
func (p *Program) Compute() bool {
	return p.compute
}

// Destroyed reports whether the program has been logically released.
func (p *Program) Destroyed() bool {
	return p.destroyed
}

// UniformStagingSize returns the aligned byte size of the program's uniform
// staging blob. Zero for programs with no uniform inputs.
func (p *Program) UniformStagingSize() uint32 {
	return p.uniformSizeAligned
}

// UniformCount returns the number of reflected uniform members.
func (p *Program) UniformCount() int {
	return len(p.members)
}

// UniformName returns the name of uniform member i, in reflection order.
//
// Parameters:
//   - i: the member index
//
// Returns:
//   - string: the member name
//   - error: error if i is out of range
func (p *Program) UniformName(i int) (string, error) {
	if i < 0 || i >= len(p.members) {
		return "", fmt.Errorf("%w: uniform %d of %d", ErrOutOfRange, i, len(p.members))
	}
	return p.members[i].name, nil
}

// GetUniformLocation resolves a uniform member or sampler binding name to its
// packed location.
//
// Parameters:
//   - name: the reflected member or binding name
//
// Returns:
//   - UniformLocation: the packed (set, binding, offset) location
//   - error: error if the name is not declared by the program
func (p *Program) GetUniformLocation(name string) (UniformLocation, error) {
	if m, ok := p.byName[name]; ok {
		return newUniformLocation(m.set, m.binding, m.offset), nil
	}
	for _, b := range p.bindings {
		if b.family == BindingFamilySampler && b.name == name {
			return newUniformLocation(b.set, b.binding, 0), nil
		}
	}
	return 0, fmt.Errorf("uniform %q not found in program %q", name, p.label)
}

// bindingAt returns the resource binding at (set, binding), or nil.
func (p *Program) bindingAt(set, binding uint32) *resourceBinding {
	if set >= shader.MaxSets || binding >= shader.MaxBindingsPerSet {
		return nil
	}
	return p.byAddr[set][binding]
}

// writeUniform copies raw element data into the staging blob at the location's
// block placement. Pure CPU-side bookkeeping; bounds are pre-validated against
// the owning block so a bad location can never scribble outside its block.
func (p *Program) writeUniform(location UniformLocation, data []byte) error {
	b := p.bindingAt(location.set(), location.bindingIndex())
	if b == nil {
		return fmt.Errorf("%w: no binding at set %d binding %d in program %q", ErrInvalidParams, location.set(), location.bindingIndex(), p.label)
	}
	if b.family != BindingFamilyUniformBuffer {
		return fmt.Errorf("%w: binding %q at set %d binding %d is a %s, not a uniform buffer", ErrInvalidParams, b.name, b.set, b.binding, b.family)
	}
	start := location.blockOffset()
	if start+uint32(len(data)) > b.blockSize {
		return fmt.Errorf("%w: write of %d bytes at block offset %d exceeds block %q size %d", ErrOutOfRange, len(data), start, b.name, b.blockSize)
	}
	copy(p.uniformData[b.byteOffset+start:], data)
	return nil
}

// setSampler records the texture unit a sampler binding reads from at draw
// time. A location whose binding family is not a sampler is a caller contract
// violation and panics.
func (p *Program) setSampler(location UniformLocation, unit int32) {
	b := p.bindingAt(location.set(), location.bindingIndex())
	if b == nil {
		panic(fmt.Sprintf("program %q: no binding at set %d binding %d", p.label, location.set(), location.bindingIndex()))
	}
	if b.family != BindingFamilySampler {
		panic(fmt.Sprintf("program %q: binding %q is a %s, not a sampler", p.label, b.name, b.family))
	}
	b.textureUnit = unit
}

// buildProgram reflects stage metadata into a program binding table.
// Bindings declared by more than one stage merge with ORed stage visibility;
// uniform blocks get packed staging offsets in (set, binding) order; flat
// backend indices are assigned per family in the same order.
func buildProgram(label string, descs []shader.Desc) (*Program, error) {
	if len(descs) == 0 {
		return nil, fmt.Errorf("%w: program %q has no stages", ErrInvalidParams, label)
	}

	p := &Program{
		label:   label,
		modules: make(map[shader.Stage]any, len(descs)),
		entries: make(map[shader.Stage]string, len(descs)),
		byName:  make(map[string]*uniformMember),
	}

	var hasVertex, hasCompute bool
	for i := range descs {
		d := &descs[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := p.entries[d.Stage]; dup {
			return nil, fmt.Errorf("%w: program %q declares stage %s twice", ErrInvalidParams, label, d.Stage)
		}
		p.entries[d.Stage] = d.EntryPoint
		switch d.Stage {
		case shader.StageVertex:
			hasVertex = true
			p.attrs = append(p.attrs, d.Meta.Attributes...)
		case shader.StageCompute:
			hasCompute = true
			p.workgrp = d.Meta.Workgroup
		}
	}
	if hasCompute && len(descs) > 1 {
		return nil, fmt.Errorf("%w: program %q mixes compute with render stages", ErrInvalidParams, label)
	}
	if !hasCompute && !hasVertex {
		return nil, fmt.Errorf("%w: program %q has no vertex stage", ErrInvalidParams, label)
	}
	p.compute = hasCompute

	if err := p.mergeBindings(descs); err != nil {
		return nil, err
	}
	if err := p.collectUniforms(descs); err != nil {
		return nil, err
	}
	p.hash = programHash(descs)
	p.uniformData = make([]byte, p.uniformSizeAligned)
	return p, nil
}

// mergeBindings folds every stage's declared bindings into one table. The
// same (set, binding) address declared by two stages must agree on family and
// size; visibility is the union of the declaring stages.
func (p *Program) mergeBindings(descs []shader.Desc) error {
	for i := range descs {
		d := &descs[i]
		for j := range d.Meta.Bindings {
			decl := &d.Meta.Bindings[j]
			family, err := familyFromKind(decl.Kind)
			if err != nil {
				return err
			}
			existing := p.byAddr[decl.Set][decl.Binding]
			if existing != nil {
				if existing.family != family || existing.blockSize != decl.Size {
					return fmt.Errorf("%w: binding at set %d binding %d declared as %s/%d bytes by one stage and %s/%d bytes by another",
						ErrInvalidParams, decl.Set, decl.Binding, existing.family, existing.blockSize, family, decl.Size)
				}
				existing.stages |= d.Stage.Flag()
				continue
			}
			b := &resourceBinding{
				name:        decl.Name,
				set:         decl.Set,
				binding:     decl.Binding,
				family:      family,
				blockSize:   decl.Size,
				stages:      d.Stage.Flag(),
				textureUnit: -1,
			}
			p.byAddr[decl.Set][decl.Binding] = b
			p.bindings = append(p.bindings, b)
		}
	}

	// Deterministic table order regardless of declaration order.
	sort.Slice(p.bindings, func(a, b int) bool {
		if p.bindings[a].set != p.bindings[b].set {
			return p.bindings[a].set < p.bindings[b].set
		}
		return p.bindings[a].binding < p.bindings[b].binding
	})

	var familyCounters [3]uint32
	var stagingOffset uint32
	for _, b := range p.bindings {
		b.nativeIndex = familyCounters[b.family]
		familyCounters[b.family]++
		if b.family == BindingFamilyUniformBuffer {
			b.byteOffset = common.AlignUp(stagingOffset, storageBufferAlignment)
			stagingOffset = b.byteOffset + b.blockSize
		}
	}
	p.uniformSize = stagingOffset
	p.uniformSizeAligned = common.AlignUp(stagingOffset, uniformBufferAlignment)
	return nil
}

// collectUniforms indexes every stage's uniform members by name. A name
// declared by two stages must resolve to the same block placement.
func (p *Program) collectUniforms(descs []shader.Desc) error {
	for i := range descs {
		d := &descs[i]
		for j := range d.Meta.Uniforms {
			u := &d.Meta.Uniforms[j]
			if prev, ok := p.byName[u.Name]; ok {
				if prev.set != u.Set || prev.binding != u.Binding || prev.offset != u.Offset {
					return fmt.Errorf("%w: uniform %q declared at two different placements", ErrInvalidParams, u.Name)
				}
				continue
			}
			count := u.Count
			if count == 0 {
				count = 1
			}
			m := &uniformMember{
				name:    u.Name,
				set:     u.Set,
				binding: u.Binding,
				offset:  u.Offset,
				typ:     u.Type,
				count:   count,
			}
			p.members = append(p.members, m)
			p.byName[u.Name] = m
		}
	}
	return nil
}

// programHash derives the program identity hash from its stage sources and
// entry points, in stage order.
func programHash(descs []shader.Desc) uint64 {
	sorted := make([]*shader.Desc, 0, len(descs))
	for i := range descs {
		sorted = append(sorted, &descs[i])
	}
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Stage < sorted[b].Stage })

	h := fnv.New64a()
	for _, d := range sorted {
		h.Write([]byte{byte(d.Stage)})
		h.Write([]byte(d.EntryPoint))
		h.Write([]byte{0})
		h.Write([]byte(d.Source))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
