// package shader defines the stage descriptors and reflection metadata the
// graphics core consumes. Shader source is treated as opaque text for the
// backend to compile; resource bindings arrive as data produced by an external
// reflection step, never by parsing the source here.
package shader

import (
	"fmt"
	"os"
)

// Stage identifies a single programmable pipeline stage.
type Stage int

const (
	// StageVertex is the vertex shader stage, used for vertex processing in render pipelines.
	StageVertex Stage = iota

	// StageFragment is the fragment shader stage, used in pair with a vertex stage.
	StageFragment

	// StageCompute is the compute shader stage for dispatch work.
	StageCompute
)

// String returns the lower-case stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageFlags is a bitmask of pipeline stages a resource binding is visible to.
type StageFlags uint8

const (
	// StageFlagVertex marks visibility to the vertex stage.
	StageFlagVertex StageFlags = 1 << iota

	// StageFlagFragment marks visibility to the fragment stage.
	StageFlagFragment

	// StageFlagCompute marks visibility to the compute stage.
	StageFlagCompute
)

// Flag returns the visibility flag bit for this stage.
//
// Returns:
//   - StageFlags: the single-bit mask for the stage
func (s Stage) Flag() StageFlags {
	switch s {
	case StageVertex:
		return StageFlagVertex
	case StageFragment:
		return StageFlagFragment
	case StageCompute:
		return StageFlagCompute
	default:
		return 0
	}
}

// Desc describes one shader stage: its compilable source text, entry point,
// and the reflected interface metadata for that stage.
type Desc struct {
	// Name labels the stage for diagnostics and backend object labels.
	Name string

	// Stage is the pipeline stage this source compiles for.
	Stage Stage

	// Source is the backend-compilable shader text (WGSL for the WebGPU backend).
	Source string

	// EntryPoint is the entry function name within Source (e.g. "main").
	EntryPoint string

	// Meta is the reflected interface of this stage, produced externally.
	Meta Metadata
}

// FromFile builds a stage Desc by reading the shader source from disk.
//
// Parameters:
//   - stage: the pipeline stage the source compiles for
//   - path: path of the source file to read
//   - entryPoint: entry function name within the source
//   - meta: reflected interface metadata for the stage
//
// Returns:
//   - Desc: the populated stage descriptor
//   - error: error if the file cannot be read
func FromFile(stage Stage, path, entryPoint string, meta Metadata) (Desc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Desc{}, fmt.Errorf("failed to read shader source %q: %w", path, err)
	}
	return Desc{
		Name:       path,
		Stage:      stage,
		Source:     string(data),
		EntryPoint: entryPoint,
		Meta:       meta,
	}, nil
}

// Validate checks the descriptor and its metadata for internal consistency.
//
// Returns:
//   - error: the first problem found, or nil
func (d *Desc) Validate() error {
	if d.Source == "" {
		return fmt.Errorf("shader %q: source is empty", d.Name)
	}
	if d.EntryPoint == "" {
		return fmt.Errorf("shader %q: entry point is empty", d.Name)
	}
	if err := d.Meta.Validate(); err != nil {
		return fmt.Errorf("shader %q: %w", d.Name, err)
	}
	return nil
}
