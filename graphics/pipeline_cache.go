package graphics

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/Carmen-Shannon/gfx-go/logging"
)

// pipelineCache memoizes compiled pipelines by 64-bit key. The cache only
// grows; pipelines stay valid for the life of the context, so entries are
// never evicted and lookups always return stable pointers. A failed build
// inserts nothing, leaving the key free for a later attempt.
type pipelineCache struct {
	entries map[uint64]*Pipeline
	hits    uint64
	misses  uint64
}

// newPipelineCache returns an empty cache.
func newPipelineCache() *pipelineCache {
	return &pipelineCache{entries: make(map[uint64]*Pipeline)}
}

// lookup returns the cached pipeline for key, or nil.
func (pc *pipelineCache) lookup(key uint64) *Pipeline {
	if p, ok := pc.entries[key]; ok {
		pc.hits++
		return p
	}
	pc.misses++
	return nil
}

// insert stores a freshly built pipeline under its key.
func (pc *pipelineCache) insert(p *Pipeline) {
	pc.entries[p.key] = p
}

// size returns the number of cached pipelines.
func (pc *pipelineCache) size() int {
	return len(pc.entries)
}

// renderPipelineKey folds every input that affects compiled render pipeline
// state into one 64-bit key: program identity, packed fixed-function state,
// the target's stable identity and attachment count, and each bound vertex
// layout's content hash plus its step function. Anything not folded in here
// must be settable on a pipeline dynamically.
func renderPipelineKey(prog *Program, state *PipelineState, target *RenderTarget, decls []*VertexDeclaration) uint64 {
	h := fnv.New64a()
	var scratch [8]byte

	binary.LittleEndian.PutUint64(scratch[:], prog.Hash())
	h.Write(scratch[:])
	binary.LittleEndian.PutUint64(scratch[:], state.pack())
	h.Write(scratch[:])
	binary.LittleEndian.PutUint64(scratch[:], uint64(target.ID()))
	h.Write(scratch[:])
	h.Write([]byte{byte(target.ColorAttachmentCount())})

	for _, d := range decls {
		if d == nil {
			continue
		}
		binary.LittleEndian.PutUint64(scratch[:], d.Hash())
		h.Write(scratch[:])
		h.Write([]byte{byte(d.StepFunction())})
	}
	return h.Sum64()
}

// computePipelineKey derives the cache key for a compute program. A tag byte
// keeps the compute keyspace disjoint from render keys built over the same
// program hash.
func computePipelineKey(prog *Program) uint64 {
	h := fnv.New64a()
	var scratch [8]byte
	h.Write([]byte{0xc0})
	binary.LittleEndian.PutUint64(scratch[:], prog.Hash())
	h.Write(scratch[:])
	return h.Sum64()
}

// getOrCreateRenderPipeline resolves the pipeline for the current draw state,
// building and caching it on first use.
func (c *context) getOrCreateRenderPipeline(prog *Program, decls []*VertexDeclaration) (*Pipeline, error) {
	key := renderPipelineKey(prog, &c.pipelineState, c.boundRenderTarget(), decls)
	if p := c.pipelines.lookup(key); p != nil {
		return p, nil
	}

	target := c.boundRenderTarget()
	desc := RenderPipelineDesc{
		Program:      prog,
		State:        c.pipelineState,
		Layouts:      decls,
		ColorFormats: target.colorFormats,
		HasDepth:     target.hasDepth,
		DepthFormat:  target.depthFormat,
		Label:        fmt.Sprintf("pipeline-%016x", key),
	}
	native, err := c.backend.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("create render pipeline for program %q: %w", prog.label, err)
	}
	p := &Pipeline{key: key, native: native}
	c.pipelines.insert(p)
	logging.Debugf("pipeline cache: built render pipeline %016x (program %q, %d cached)", key, prog.label, c.pipelines.size())
	return p, nil
}

// getOrCreateComputePipeline resolves the pipeline for a compute program,
// building and caching it on first use.
func (c *context) getOrCreateComputePipeline(prog *Program) (*Pipeline, error) {
	key := computePipelineKey(prog)
	if p := c.pipelines.lookup(key); p != nil {
		return p, nil
	}

	native, err := c.backend.CreateComputePipeline(ComputePipelineDesc{
		Program: prog,
		Label:   fmt.Sprintf("compute-pipeline-%016x", key),
	})
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline for program %q: %w", prog.label, err)
	}
	p := &Pipeline{key: key, native: native, compute: true}
	c.pipelines.insert(p)
	logging.Debugf("pipeline cache: built compute pipeline %016x (program %q, %d cached)", key, prog.label, c.pipelines.size())
	return p, nil
}
