// Package wgsl derives shader reflection metadata from WGSL source text. It
// is the reflection step that feeds program creation: resource declarations,
// uniform block members with computed offsets, vertex input attributes, and
// compute workgroup sizes are extracted by scanning the source, so callers do
// not have to describe their shaders by hand. The graphics core itself never
// parses shader text; it consumes the produced metadata.
//
// Standalone sampler declarations are skipped: the core's combined
// texture-sampler model pairs each texture binding with the sampler slot
// directly after it, so only the texture declaration is reflected.
package wgsl

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/gfx-go/graphics/shader"
)

// Reflect extracts reflection metadata from WGSL source for one shader stage.
// Resource bindings are discovered from @group/@binding declarations, uniform
// block members from the struct layout rules of the WGSL specification,
// vertex attributes from pure vertex input structs (vertex stage only), and
// the workgroup size from @workgroup_size (compute stage only).
//
// Parameters:
//   - source: the raw WGSL source code string
//   - stage: the shader stage the source implements
//
// Returns:
//   - shader.Metadata: the extracted reflection metadata
//   - error: an error if a declaration cannot be sized or uses an unsupported resource type
func Reflect(source string, stage shader.Stage) (shader.Metadata, error) {
	cleaned := stripComments(source)
	structs := parseStructBlocks(cleaned)
	sizes := computeStructSizes(structs)

	byName := make(map[string]parsedStruct, len(structs))
	for _, ps := range structs {
		byName[ps.name] = ps
	}

	var meta shader.Metadata
	for _, match := range resourceDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		set, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		varName := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		switch {
		case addressSpace == "uniform":
			layout, ok := resolveTypeLayout(typeName, sizes)
			if !ok || layout.size == 0 {
				return shader.Metadata{}, fmt.Errorf("cannot size uniform %q of type %s", varName, typeName)
			}
			meta.Bindings = append(meta.Bindings, shader.Binding{
				Name:    varName,
				Set:     uint32(set),
				Binding: uint32(binding),
				Kind:    shader.ResourceUniformBuffer,
				Size:    uint32(layout.size),
			})
			if ps, ok := byName[typeName]; ok {
				meta.Uniforms = append(meta.Uniforms, structMembers(ps, uint32(set), uint32(binding), sizes)...)
			}

		case strings.HasPrefix(addressSpace, "storage"):
			layout, ok := resolveTypeLayout(typeName, sizes)
			if !ok || layout.size == 0 {
				return shader.Metadata{}, fmt.Errorf("cannot size storage buffer %q of type %s", varName, typeName)
			}
			meta.Bindings = append(meta.Bindings, shader.Binding{
				Name:    varName,
				Set:     uint32(set),
				Binding: uint32(binding),
				Kind:    shader.ResourceStorageBuffer,
				Size:    uint32(layout.size),
			})

		case addressSpace == "":
			base, _ := splitTypeParams(typeName)
			switch {
			case base == "sampler" || base == "sampler_comparison":
				continue
			case strings.HasPrefix(base, "texture_storage_"):
				return shader.Metadata{}, fmt.Errorf("storage texture %q is not supported", varName)
			case strings.HasPrefix(base, "texture_"):
				meta.Bindings = append(meta.Bindings, shader.Binding{
					Name:    varName,
					Set:     uint32(set),
					Binding: uint32(binding),
					Kind:    shader.ResourceTextureSampler,
				})
			default:
				return shader.Metadata{}, fmt.Errorf("unrecognized resource declaration %q of type %s", varName, typeName)
			}

		default:
			return shader.Metadata{}, fmt.Errorf("unrecognized address space %q on %q", addressSpace, varName)
		}
	}

	sort.Slice(meta.Bindings, func(i, j int) bool {
		if meta.Bindings[i].Set != meta.Bindings[j].Set {
			return meta.Bindings[i].Set < meta.Bindings[j].Set
		}
		return meta.Bindings[i].Binding < meta.Bindings[j].Binding
	})

	if stage == shader.StageVertex {
		meta.Attributes = parseAttributes(structs)
	}
	if stage == shader.StageCompute {
		meta.Workgroup = parseWorkgroupSize(cleaned)
	}

	return meta, nil
}

// structMembers walks a uniform block struct emitting one shader.Uniform per
// addressable member, with offsets computed by the WGSL struct layout rules.
// Members of non-addressable types (nested structs, f16 forms) occupy their
// place in the layout but produce no uniform entry. The walk stops at a
// runtime-sized array tail.
func structMembers(ps parsedStruct, set, binding uint32, sizes map[string]typeLayout) []shader.Uniform {
	members := make([]shader.Uniform, 0, len(ps.fields))
	offset := uint64(0)

	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}
		layout, ok := resolveTypeLayout(field.typeName, sizes)
		if !ok {
			break
		}
		offset = roundUpAlign(layout.align, offset)
		if dt, count, ok := memberType(field.typeName); ok {
			members = append(members, shader.Uniform{
				Name:    field.name,
				Set:     set,
				Binding: binding,
				Offset:  uint32(offset),
				Type:    dt,
				Count:   count,
			})
		}
		offset += layout.size
	}

	return members
}

// parseAttributes extracts vertex input attributes from all pure vertex input
// structs. Fields whose WGSL type has no reflection data type are skipped;
// location matching against vertex declarations is by name, so a skipped
// field's stream simply stays unbound.
func parseAttributes(structs []parsedStruct) []shader.Attribute {
	var attrs []shader.Attribute
	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		for _, field := range ps.fields {
			if field.location < 0 {
				continue
			}
			dt, _, ok := memberType(field.typeName)
			if !ok {
				continue
			}
			attrs = append(attrs, shader.Attribute{
				Name:     field.name,
				Location: uint32(field.location),
				Type:     dt,
			})
		}
	}
	return attrs
}

// parseWorkgroupSize extracts the @workgroup_size(x, y, z) dimensions from
// comment-stripped WGSL source. Omitted dimensions default to 1 per the WGSL
// specification. Returns [1, 1, 1] if no @workgroup_size annotation is found.
func parseWorkgroupSize(cleaned string) [3]uint32 {
	result := [3]uint32{1, 1, 1}

	match := workgroupSizeRegex.FindStringSubmatch(cleaned)
	if match == nil {
		return result
	}

	for i := 0; i < 3; i++ {
		if match[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}

	return result
}

// EntryPoint extracts the entry point function name for the given shader
// stage from WGSL source. Returns an empty string if no matching entry point
// annotation is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - stage: the shader stage to search for
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func EntryPoint(source string, stage shader.Stage) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch stage {
	case shader.StageVertex:
		re = vertexEntryRegex
	case shader.StageFragment:
		re = fragmentEntryRegex
	case shader.StageCompute:
		re = computeEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// NewDesc builds a complete validated shader description from WGSL source:
// reflection metadata is derived with Reflect and the entry point is located
// for the stage.
//
// Parameters:
//   - name: the shader name used for labels and diagnostics
//   - source: the raw WGSL source code string
//   - stage: the shader stage the source implements
//
// Returns:
//   - shader.Desc: the populated shader description
//   - error: an error if reflection fails, no entry point exists, or validation fails
func NewDesc(name, source string, stage shader.Stage) (shader.Desc, error) {
	meta, err := Reflect(source, stage)
	if err != nil {
		return shader.Desc{}, fmt.Errorf("reflect shader %q: %w", name, err)
	}
	entry := EntryPoint(source, stage)
	if entry == "" {
		return shader.Desc{}, fmt.Errorf("shader %q has no @%s entry point", name, stage)
	}
	desc := shader.Desc{
		Name:       name,
		Stage:      stage,
		Source:     source,
		EntryPoint: entry,
		Meta:       meta,
	}
	if err := desc.Validate(); err != nil {
		return shader.Desc{}, fmt.Errorf("shader %q: %w", name, err)
	}
	return desc, nil
}

// NewDescFromFile reads WGSL source from a file and builds a validated shader
// description via NewDesc.
//
// Parameters:
//   - name: the shader name used for labels and diagnostics
//   - path: the file path to read WGSL source from
//   - stage: the shader stage the source implements
//
// Returns:
//   - shader.Desc: the populated shader description
//   - error: an error if the file cannot be read or the source fails reflection
func NewDescFromFile(name, path string, stage shader.Stage) (shader.Desc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return shader.Desc{}, fmt.Errorf("read shader source %q: %w", path, err)
	}
	return NewDesc(name, string(data), stage)
}
