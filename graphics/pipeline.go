package graphics

// Pipeline pairs a compiled backend pipeline object with the cache key it was
// built under. Pipelines are immutable once created; any change to render
// state, program, target formats, or vertex layout selects (or builds) a
// different pipeline instead of mutating this one.
type Pipeline struct {
	key     uint64
	native  any
	compute bool
}

// Key returns the 64-bit cache key the pipeline was built under.
func (p *Pipeline) Key() uint64 {
	return p.key
}

// Compute reports whether this is a compute pipeline.
func (p *Pipeline) Compute() bool {
	return p.compute
}
