package graphics

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/gfx-go/logging"
)

// resourceKind tags a deferred destruction entry with the resource family it
// releases. Unknown tags at flush time are a fatal programming error.
type resourceKind int

const (
	resourceKindBuffer resourceKind = iota
	resourceKindTexture
	resourceKindProgram
	resourceKindRenderTarget
)

// resourceToDestroy is one queued destruction: the kind tag plus the
// backend-native handles to release once the owning slot's GPU work is
// confirmed complete. Exactly one payload field is populated per kind.
type resourceToDestroy struct {
	kind resourceKind

	// buffer is the backend buffer handle (resourceKindBuffer).
	buffer any

	// texture is the backend texture handle (resourceKindTexture).
	texture any

	// modules are the backend shader module handles (resourceKindProgram).
	modules []any

	// textures are the backend attachment texture handles (resourceKindRenderTarget).
	textures []any
}

// destroyQueueGrowth is the fixed capacity increment applied when a slot's
// queue is full.
const destroyQueueGrowth = 8

// destroyQueue holds the resources deferred into one frame slot. The render
// thread appends while recording; the backend's completion callback drains,
// possibly on another goroutine, so both sides synchronize on the mutex.
type destroyQueue struct {
	mu      sync.Mutex
	entries []resourceToDestroy
}

// push appends one entry, growing capacity by the fixed increment when full.
func (q *destroyQueue) push(e resourceToDestroy) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == cap(q.entries) {
		grown := make([]resourceToDestroy, len(q.entries), cap(q.entries)+destroyQueueGrowth)
		copy(grown, q.entries)
		q.entries = grown
	}
	q.entries = append(q.entries, e)
}

// drain removes and returns all queued entries. The release calls happen
// outside the lock; each entry is consumed exactly once.
func (q *destroyQueue) drain() []resourceToDestroy {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := q.entries
	q.entries = nil
	return entries
}

// size returns the number of queued entries.
func (q *destroyQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// releaseResource releases one drained entry's backend objects according to
// its kind tag.
func (c *context) releaseResource(r resourceToDestroy) {
	switch r.kind {
	case resourceKindBuffer:
		c.backend.DestroyBuffer(r.buffer)
	case resourceKindTexture:
		c.backend.DestroyTexture(r.texture)
	case resourceKindProgram:
		for _, m := range r.modules {
			c.backend.DestroyShaderModule(m)
		}
	case resourceKindRenderTarget:
		for _, t := range r.textures {
			c.backend.DestroyTexture(t)
		}
	default:
		panic(fmt.Sprintf("destroy queue: unknown resource kind %d", r.kind))
	}
}

// flushDestroyQueue drains and releases every entry in the queue. Tolerates an
// empty queue. Called from the completion callback of the owning slot, from
// that slot's next BeginFrame, and unconditionally during context teardown.
func (c *context) flushDestroyQueue(q *destroyQueue) {
	entries := q.drain()
	for _, r := range entries {
		c.releaseResource(r)
	}
	if len(entries) > 0 {
		logging.Debugf("graphics: retired %d deferred resources", len(entries))
	}
}

// queueDestroy appends one entry to the active slot's queue and counts the
// retirement for frame statistics.
func (c *context) queueDestroy(e resourceToDestroy) {
	c.activeSlot().destroy.push(e)
	if c.prof != nil {
		c.prof.RecordRetired()
	}
}

// deferDestroyBufferHandle queues a bare backend buffer handle into the active
// slot. This is the resize and scratch-growth path, where the logical buffer
// lives on with a fresh allocation while the superseded one must survive until
// in-flight work completes.
func (c *context) deferDestroyBufferHandle(handle any) {
	if handle == nil {
		return
	}
	c.queueDestroy(resourceToDestroy{kind: resourceKindBuffer, buffer: handle})
}

// deferDestroyBuffer queues a device buffer's backend allocation and marks the
// wrapper destroyed. A nil, never-allocated, or already-destroyed buffer is a
// no-op, so double deletes release nothing.
func (c *context) deferDestroyBuffer(b *DeviceBuffer) {
	if b == nil || b.destroyed {
		return
	}
	b.destroyed = true
	if b.handle == nil {
		return
	}
	c.queueDestroy(resourceToDestroy{kind: resourceKindBuffer, buffer: b.handle})
	b.handle = nil
	b.size = 0
}

// deferDestroyTextureHandle queues a bare backend texture handle into the
// active slot. Used when render target attachments are rebuilt on resize.
func (c *context) deferDestroyTextureHandle(handle any) {
	if handle == nil {
		return
	}
	c.queueDestroy(resourceToDestroy{kind: resourceKindTexture, texture: handle})
}

// deferDestroyTexture queues a texture's backend object and marks the wrapper
// destroyed. Idempotent like deferDestroyBuffer.
func (c *context) deferDestroyTexture(t *Texture) {
	if t == nil || t.destroyed {
		return
	}
	t.destroyed = true
	if t.handle == nil {
		return
	}
	c.queueDestroy(resourceToDestroy{kind: resourceKindTexture, texture: t.handle})
	t.handle = nil
}

// deferDestroyProgram queues a program's compiled stage modules and marks the
// wrapper destroyed. Pipelines keyed on the program stay in the cache.
func (c *context) deferDestroyProgram(p *Program) {
	if p == nil || p.destroyed {
		return
	}
	p.destroyed = true
	modules := make([]any, 0, len(p.modules))
	for _, m := range p.modules {
		if m != nil {
			modules = append(modules, m)
		}
	}
	p.modules = nil
	if len(modules) == 0 {
		return
	}
	c.queueDestroy(resourceToDestroy{kind: resourceKindProgram, modules: modules})
}

// deferDestroyRenderTarget queues a render target's owned attachment textures
// and marks the wrapper destroyed.
func (c *context) deferDestroyRenderTarget(rt *RenderTarget) {
	if rt == nil || rt.destroyed {
		return
	}
	rt.destroyed = true
	textures := rt.takeAttachmentHandles()
	if len(textures) == 0 {
		return
	}
	c.queueDestroy(resourceToDestroy{kind: resourceKindRenderTarget, textures: textures})
}
