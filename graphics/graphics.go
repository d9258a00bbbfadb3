package graphics

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/gfx-go/common"
	"github.com/Carmen-Shannon/gfx-go/graphics/shader"
	"github.com/Carmen-Shannon/gfx-go/logging"
	"github.com/Carmen-Shannon/gfx-go/profiler"
	"github.com/Carmen-Shannon/gfx-go/window"
)

const (
	// maxVertexBuffers is the number of vertex input slots a draw can source from.
	maxVertexBuffers = 4

	// maxTextureUnits is the number of texture units SetSampler can address.
	maxTextureUnits = 16

	// maxStorageBuffers is the number of storage buffer units.
	maxStorageBuffers = 4

	// defaultFramesInFlight is the frame ring size when not configured.
	defaultFramesInFlight = 2

	// maxFramesInFlight caps the configurable frame ring size.
	maxFramesInFlight = 3
)

// vertexBufferBinding is one bound vertex input slot.
type vertexBufferBinding struct {
	buffer *VertexBuffer
	offset uint32
}

// storageBufferBinding is one bound storage buffer unit.
type storageBufferBinding struct {
	buffer *StorageBuffer
	offset uint32
}

// context is the implementation of the Context interface.
type context struct {
	mu *sync.Mutex

	backendType BackendType
	backend     Backend
	prof        *profiler.Profiler

	frames        []*frameResourceSlot
	currentFrame  uint32
	frameBegun    bool
	commandBuffer any

	pipelines     *pipelineCache
	pipelineState PipelineState

	defaultTarget *RenderTarget
	currentTarget *RenderTarget
	nextTargetID  uint32

	currentProgram *Program
	vertexBuffers  [maxVertexBuffers]vertexBufferBinding
	vertexDecls    [maxVertexBuffers]*VertexDeclaration
	textureUnits   [maxTextureUnits]*Texture
	storageUnits   [maxStorageBuffers]storageBufferBinding

	viewport        Viewport
	viewportChanged bool
	scissor         ScissorRect
	scissorChanged  bool

	width  uint32
	height uint32
	closed bool

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingBackend       Backend
	pendingFramesCount   *uint32
	pendingScratchSize   *uint32
	pendingPresentMode   *PresentMode
	pendingValidation    *bool
	pendingProfiler      *profiler.Profiler
}

// Context is the device-facing core of the rendering system. It owns the
// frame lifecycle, all GPU resources, the pipeline cache, and the per-frame
// scratch and deferred-destruction machinery that keeps CPU recording ahead
// of GPU execution without data hazards.
//
// All methods except resource deletion must be called from the single
// goroutine driving the frame loop. Deletion methods only enqueue work and
// may be called from any goroutine.
type Context interface {
	// BeginFrame advances the frame ring to the next slot, waits if that
	// slot's previous GPU work has not completed, releases resources retired
	// under it, rewinds its scratch buffer, and opens the frame's command
	// buffer targeting the default render target.
	//
	// Returns:
	//   - error: ErrFrameAlreadyBegun if a frame is open, ErrContextClosed
	//     after Close, or a backend error if the drawable could not be acquired
	BeginFrame() error

	// EndFrame submits the frame's recorded work and presents the drawable.
	// The frame's resources stay reserved until the device signals completion
	// asynchronously; EndFrame itself does not block on the GPU.
	//
	// Returns:
	//   - error: ErrNoFrameBegun if no frame is open, or a backend submit error
	EndFrame() error

	// Clear clears the selected attachments of the bound render target to the
	// given values. Color components are normalized [0,1].
	//
	// Parameters:
	//   - flags: which attachments to clear (color, depth, stencil)
	//   - red, green, blue, alpha: clear color
	//   - depth: depth clear value
	//   - stencil: stencil clear value
	//
	// Returns:
	//   - error: ErrNoFrameBegun if no frame is open
	Clear(flags ClearFlags, red, green, blue, alpha, depth float32, stencil uint8) error

	// SetViewport sets the viewport transform applied to subsequent draws.
	SetViewport(x, y, width, height int32)

	// SetScissor sets the scissor rectangle applied to subsequent draws while
	// StateScissorTest is enabled.
	SetScissor(x, y, width, height int32)

	// NewVertexBuffer creates a vertex buffer and optionally fills it.
	//
	// Parameters:
	//   - size: the buffer size in bytes
	//   - data: optional initial contents; nil leaves the buffer zeroed
	//   - usage: expected update frequency, which also selects storage mode
	//
	// Returns:
	//   - *VertexBuffer: the created buffer
	//   - error: an error if device allocation failed
	NewVertexBuffer(size uint32, data []byte, usage BufferUsage) (*VertexBuffer, error)

	// NewIndexBuffer creates an index buffer and optionally fills it.
	NewIndexBuffer(size uint32, data []byte, usage BufferUsage) (*IndexBuffer, error)

	// NewStorageBuffer creates a storage buffer and optionally fills it.
	NewStorageBuffer(size uint32, data []byte, usage BufferUsage) (*StorageBuffer, error)

	// SetVertexBufferData replaces a vertex buffer's contents. A size change
	// reallocates the device buffer; the old allocation is retired through
	// the deferred destruction queue, never freed while a frame may use it.
	// Nil data with a non-zero size zero-fills the buffer.
	SetVertexBufferData(b *VertexBuffer, size uint32, data []byte, usage BufferUsage) error

	// SetVertexBufferSubData overwrites a byte range of a vertex buffer.
	// The range must lie inside the current size; no reallocation happens.
	SetVertexBufferSubData(b *VertexBuffer, offset uint32, data []byte) error

	// SetIndexBufferData replaces an index buffer's contents, reallocating on
	// size change like SetVertexBufferData.
	SetIndexBufferData(b *IndexBuffer, size uint32, data []byte, usage BufferUsage) error

	// SetIndexBufferSubData overwrites a byte range of an index buffer.
	SetIndexBufferSubData(b *IndexBuffer, offset uint32, data []byte) error

	// SetStorageBufferData replaces a storage buffer's contents.
	SetStorageBufferData(b *StorageBuffer, size uint32, data []byte, usage BufferUsage) error

	// DeleteVertexBuffer retires a vertex buffer. The wrapper is dead
	// immediately; the device memory is released only after every frame that
	// may reference it has completed. Idempotent.
	DeleteVertexBuffer(b *VertexBuffer)

	// DeleteIndexBuffer retires an index buffer. Idempotent.
	DeleteIndexBuffer(b *IndexBuffer)

	// DeleteStorageBuffer retires a storage buffer. Idempotent.
	DeleteStorageBuffer(b *StorageBuffer)

	// EnableVertexBuffer binds a vertex buffer to an input slot.
	//
	// Parameters:
	//   - slot: the vertex input slot, < MaxVertexBuffers
	//   - b: the buffer to bind
	//   - offset: byte offset of the first vertex
	//
	// Returns:
	//   - error: ErrOutOfRange for a bad slot, ErrResourceDestroyed for a
	//     deleted buffer
	EnableVertexBuffer(slot uint32, b *VertexBuffer, offset uint32) error

	// DisableVertexBuffer unbinds a vertex input slot.
	DisableVertexBuffer(slot uint32)

	// EnableVertexDeclaration binds a vertex layout to an input slot. The
	// layout describes how the slot's buffer bytes map to program attributes
	// and participates in pipeline selection.
	EnableVertexDeclaration(slot uint32, decl *VertexDeclaration) error

	// DisableVertexDeclaration unbinds a vertex layout slot.
	DisableVertexDeclaration(slot uint32)

	// NewProgram builds a program from per-stage shader descriptions:
	// reflection metadata is merged into the program's binding table and each
	// stage is compiled by the backend. On any stage failure the already
	// compiled modules are destroyed and an error is returned.
	//
	// Parameters:
	//   - label: a debug label for the program
	//   - stages: one description per stage; vertex(+fragment) or compute
	//
	// Returns:
	//   - *Program: the created program
	//   - error: a reflection validation or backend compile error
	NewProgram(label string, stages ...shader.Desc) (*Program, error)

	// DeleteProgram retires a program and its stage modules. Idempotent.
	DeleteProgram(p *Program)

	// EnableProgram makes a program current for subsequent draws or
	// dispatches.
	EnableProgram(p *Program) error

	// DisableProgram clears the current program.
	DisableProgram()

	// SetConstantV4 writes one or more vec4 values to a uniform member of the
	// current program's staging data. The write reaches the GPU with the next
	// draw or dispatch.
	//
	// Parameters:
	//   - location: the member location from GetUniformLocation
	//   - values: one vec4 per array element
	//
	// Returns:
	//   - error: ErrNoProgramEnabled, or a location/bounds error
	SetConstantV4(location UniformLocation, values ...[4]float32) error

	// SetConstantM4 writes one or more 4x4 matrices to a uniform member of
	// the current program's staging data.
	SetConstantM4(location UniformLocation, values ...[16]float32) error

	// SetSampler points a sampler binding of the current program at a texture
	// unit. The location must name a sampler binding; pointing it at a
	// buffer binding is a caller contract violation and panics.
	SetSampler(location UniformLocation, unit int32) error

	// NewTexture creates a texture. Textures with a CPU-uploadable format can
	// be filled with SetTextureData.
	NewTexture(params TextureParams) (*Texture, error)

	// SetTextureData uploads pixel data to one mip level of a texture.
	SetTextureData(t *Texture, update TextureUpdate) error

	// SetTextureParams sets a texture's filtering and wrapping. Applied to
	// the sampler used at the next draw that samples the texture.
	SetTextureParams(t *Texture, minFilter, magFilter TextureFilter, wrapU, wrapV TextureWrap) error

	// DeleteTexture retires a texture. Idempotent.
	DeleteTexture(t *Texture)

	// EnableTexture binds a texture to a texture unit.
	EnableTexture(unit uint32, t *Texture) error

	// DisableTexture unbinds a texture unit.
	DisableTexture(unit uint32)

	// EnableStorageBuffer binds a storage buffer region to a storage unit for
	// program bindings of the storage family.
	EnableStorageBuffer(unit uint32, b *StorageBuffer, offset uint32) error

	// DisableStorageBuffer unbinds a storage unit.
	DisableStorageBuffer(unit uint32)

	// EnableState enables a fixed-function state toggle.
	EnableState(state State)

	// DisableState disables a fixed-function state toggle.
	DisableState(state State)

	// SetBlendFunc sets the source and destination blend factors used while
	// StateBlend is enabled.
	SetBlendFunc(src, dst BlendFactor)

	// SetColorMask selects which color channels draws write.
	SetColorMask(red, green, blue, alpha bool)

	// SetDepthMask enables or disables depth writes.
	SetDepthMask(mask bool)

	// SetDepthFunc sets the depth test comparison.
	SetDepthFunc(fn CompareFunc)

	// SetStencilMask sets the stencil write mask.
	SetStencilMask(mask uint8)

	// SetStencilFunc sets the stencil test comparison, reference value and
	// compare mask.
	SetStencilFunc(fn CompareFunc, ref, mask uint8)

	// SetStencilOp sets the stencil operations for fail, depth-fail and pass.
	SetStencilOp(stencilFail, depthFail, pass StencilOp)

	// SetCullFace selects which faces are culled while StateCullFace is
	// enabled.
	SetCullFace(face FaceType)

	// SetFaceWinding sets which winding order is considered front-facing.
	SetFaceWinding(winding FaceWinding)

	// GetPipelineState returns a copy of the current fixed-function state.
	GetPipelineState() PipelineState

	// Draw issues a non-indexed draw with the current program, vertex
	// bindings and fixed-function state. The matching pipeline is taken from
	// the cache or compiled on first use. A pipeline compile failure is
	// logged and returned; the frame stays open and later draws proceed.
	//
	// Parameters:
	//   - primitive: the primitive topology
	//   - first: index of the first vertex
	//   - count: number of vertices
	//   - instanceCount: number of instances, 0 treated as 1
	//
	// Returns:
	//   - error: phase, binding or pipeline errors
	Draw(primitive PrimitiveType, first, count, instanceCount uint32) error

	// DrawElements issues an indexed draw reading indices from the given
	// index buffer.
	//
	// Parameters:
	//   - primitive: the primitive topology
	//   - first: index of the first index element
	//   - count: number of index elements
	//   - indexType: 16- or 32-bit indices
	//   - ib: the index buffer to read
	//   - instanceCount: number of instances, 0 treated as 1
	//
	// Returns:
	//   - error: phase, binding or pipeline errors
	DrawElements(primitive PrimitiveType, first, count uint32, indexType IndexType, ib *IndexBuffer, instanceCount uint32) error

	// DispatchCompute dispatches the current compute program. Uniform state
	// set via SetConstant* is staged exactly like a draw. The open render
	// pass is suspended around the dispatch and re-established afterwards.
	//
	// Parameters:
	//   - x, y, z: workgroup counts per dimension
	//
	// Returns:
	//   - error: phase, binding or pipeline errors
	DispatchCompute(x, y, z uint32) error

	// NewRenderTarget creates an offscreen render target with its own color
	// and depth attachments. The target has a stable identity that
	// participates in pipeline selection for draws rendered into it.
	NewRenderTarget(params RenderTargetParams) (*RenderTarget, error)

	// DeleteRenderTarget retires a render target and its attachment textures.
	// Idempotent.
	DeleteRenderTarget(rt *RenderTarget)

	// SetRenderTarget directs subsequent draws at a render target. Passing
	// nil restores the default (swapchain) target. The target's existing
	// contents are loaded; use Clear to discard them.
	SetRenderTarget(rt *RenderTarget) error

	// SetRenderTargetSize resizes an offscreen render target, recreating its
	// attachments. The old attachments are retired through the deferred
	// destruction queue.
	SetRenderTargetSize(rt *RenderTarget, width, height uint32) error

	// Width returns the default target's width in pixels.
	Width() uint32

	// Height returns the default target's height in pixels.
	Height() uint32

	// Resize reconfigures the swapchain after a window size change. Must be
	// called between frames.
	Resize(width, height uint32) error

	// Close waits for the device to go idle, drains every frame slot's
	// deferred destruction queue, releases the pipeline cache and scratch
	// buffers, and shuts down the backend. The context is unusable after.
	//
	// Returns:
	//   - error: ErrFrameAlreadyBegun if called with a frame open
	Close() error
}

var _ Context = &context{}

// NewContext creates a rendering context on the given window.
//
// Parameters:
//   - backendType: the device backend to use (e.g. WGPU)
//   - win: the window supplying the surface; may be nil when a backend is
//     injected via WithDeviceBackend
//   - options: variadic list of ContextBuilderOption functions
//
// Returns:
//   - Context: the created context
//   - error: an error if the backend or frame resources could not be created
func NewContext(backendType BackendType, win window.Window, options ...ContextBuilderOption) (Context, error) {
	c := &context{
		mu:          &sync.Mutex{},
		backendType: backendType,
		pipelines:   newPipelineCache(),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(c)
	}

	if c.pendingBackend != nil {
		c.backend = c.pendingBackend
	} else {
		switch backendType {
		case BackendTypeWGPU:
			fallthrough
		default:
			backend, err := newWGPUBackend(win, wgpuBackendConfig{
				forceFallbackAdapter: c.forceFallbackAdapter,
				presentMode:          c.pendingPresentMode,
				validation:           c.pendingValidation != nil && *c.pendingValidation,
			})
			if err != nil {
				return nil, fmt.Errorf("create %v backend: %w", backendType, err)
			}
			c.backend = backend
		}
	}

	frameCount := uint32(defaultFramesInFlight)
	if c.pendingFramesCount != nil {
		frameCount = common.Clamp(*c.pendingFramesCount, 1, maxFramesInFlight)
	}
	scratchSize := uint32(scratchBufferInitialSize)
	if c.pendingScratchSize != nil && *c.pendingScratchSize > 0 {
		scratchSize = common.AlignUp(*c.pendingScratchSize, uniformBufferAlignment)
	}
	c.prof = c.pendingProfiler

	c.width, c.height = c.backend.SurfaceSize()
	c.defaultTarget = &RenderTarget{
		width:         c.width,
		height:        c.height,
		colorFormats:  []TextureFormat{c.backend.SurfaceFormat()},
		hasDepth:      true,
		depthFormat:   c.backend.DepthStencilFormat(),
		defaultTarget: true,
		label:         "default-target",
	}
	c.currentTarget = c.defaultTarget
	c.nextTargetID = 1
	c.pipelineState = defaultPipelineState()
	c.viewport = Viewport{Width: int32(c.width), Height: int32(c.height)}

	c.frames = make([]*frameResourceSlot, frameCount)
	for i := uint32(0); i < frameCount; i++ {
		slot, err := c.newFrameResourceSlot(i, scratchSize)
		if err != nil {
			for j := uint32(0); j < i; j++ {
				c.backend.DestroyBuffer(c.frames[j].scratch.buffer.handle)
			}
			c.backend.Release()
			return nil, err
		}
		c.frames[i] = slot
	}
	// The ring starts one behind slot zero so the first BeginFrame advance
	// lands on it.
	c.currentFrame = frameCount - 1

	logging.Infof("graphics: context ready (%s, %d frames in flight, %d byte scratch per frame)", c.backend.Name(), frameCount, scratchSize)
	return c, nil
}

func (c *context) BeginFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	if c.frameBegun {
		return ErrFrameAlreadyBegun
	}

	c.advanceFrame()
	slot := c.activeSlot()
	slot.waitIfPending()
	c.flushDestroyQueue(&slot.destroy)
	slot.scratch.Rewind()

	cb, err := c.backend.BeginFrame()
	if err != nil {
		return fmt.Errorf("begin frame %d: %w", slot.index, err)
	}
	c.commandBuffer = cb
	c.frameBegun = true
	c.currentTarget = c.defaultTarget
	if err := c.backend.BeginRenderPass(cb, c.currentTarget, nil); err != nil {
		return fmt.Errorf("begin frame %d: %w", slot.index, err)
	}

	c.viewport = Viewport{Width: int32(c.width), Height: int32(c.height)}
	c.viewportChanged = true
	c.scissorChanged = true
	if c.prof != nil {
		c.prof.FrameBegin()
	}
	return nil
}

func (c *context) EndFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	if !c.frameBegun {
		return ErrNoFrameBegun
	}

	slot := c.activeSlot()
	cb := c.commandBuffer
	c.commandBuffer = nil
	c.frameBegun = false

	slot.markSubmitted()
	if err := c.backend.Submit(cb, func() { slot.complete(c) }); err != nil {
		// Nothing reached the device; the slot is immediately reusable.
		slot.complete(c)
		return fmt.Errorf("submit frame %d: %w", slot.index, err)
	}
	if c.prof != nil {
		c.prof.FrameEnd(c.pipelines.size())
	}
	return nil
}

func (c *context) Clear(flags ClearFlags, red, green, blue, alpha, depth float32, stencil uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.frameBegun {
		return ErrNoFrameBegun
	}
	params := ClearParams{
		Flags:   flags,
		Color:   [4]float32{red, green, blue, alpha},
		Depth:   depth,
		Stencil: stencil,
	}
	if err := c.backend.BeginRenderPass(c.commandBuffer, c.currentTarget, &params); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	c.viewportChanged = true
	c.scissorChanged = true
	return nil
}

func (c *context) SetViewport(x, y, width, height int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = Viewport{X: x, Y: y, Width: width, Height: height}
	c.viewportChanged = true
}

func (c *context) SetScissor(x, y, width, height int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scissor = ScissorRect{X: x, Y: y, Width: width, Height: height}
	c.scissorChanged = true
}

// storageModeForUsage picks where a buffer lives from its update frequency:
// static data goes to private device memory through a staging copy, anything
// rewritten per frame stays host visible.
func storageModeForUsage(usage BufferUsage) StorageMode {
	if usage == BufferUsageStatic {
		return StorageModePrivate
	}
	return StorageModeHostVisible
}

func (c *context) NewVertexBuffer(size uint32, data []byte, usage BufferUsage) (*VertexBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := &VertexBuffer{DeviceBuffer{target: BufferTargetVertex, usage: usage, mode: storageModeForUsage(usage), label: "vertex-buffer"}}
	if err := c.uploadDeviceBuffer(&b.DeviceBuffer, data, size, 0); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *context) NewIndexBuffer(size uint32, data []byte, usage BufferUsage) (*IndexBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := &IndexBuffer{DeviceBuffer{target: BufferTargetIndex, usage: usage, mode: storageModeForUsage(usage), label: "index-buffer"}}
	if err := c.uploadDeviceBuffer(&b.DeviceBuffer, data, size, 0); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *context) NewStorageBuffer(size uint32, data []byte, usage BufferUsage) (*StorageBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := &StorageBuffer{DeviceBuffer{target: BufferTargetStorage, usage: usage, mode: storageModeForUsage(usage), label: "storage-buffer"}}
	if err := c.uploadDeviceBuffer(&b.DeviceBuffer, data, size, 0); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *context) SetVertexBufferData(b *VertexBuffer, size uint32, data []byte, usage BufferUsage) error {
	if b == nil {
		return fmt.Errorf("%w: nil vertex buffer", ErrInvalidParams)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b.usage = usage
	b.mode = storageModeForUsage(usage)
	return c.uploadDeviceBuffer(&b.DeviceBuffer, data, size, 0)
}

func (c *context) SetVertexBufferSubData(b *VertexBuffer, offset uint32, data []byte) error {
	if b == nil {
		return fmt.Errorf("%w: nil vertex buffer", ErrInvalidParams)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subUploadDeviceBuffer(&b.DeviceBuffer, offset, data)
}

func (c *context) SetIndexBufferData(b *IndexBuffer, size uint32, data []byte, usage BufferUsage) error {
	if b == nil {
		return fmt.Errorf("%w: nil index buffer", ErrInvalidParams)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b.usage = usage
	b.mode = storageModeForUsage(usage)
	return c.uploadDeviceBuffer(&b.DeviceBuffer, data, size, 0)
}

func (c *context) SetIndexBufferSubData(b *IndexBuffer, offset uint32, data []byte) error {
	if b == nil {
		return fmt.Errorf("%w: nil index buffer", ErrInvalidParams)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subUploadDeviceBuffer(&b.DeviceBuffer, offset, data)
}

func (c *context) SetStorageBufferData(b *StorageBuffer, size uint32, data []byte, usage BufferUsage) error {
	if b == nil {
		return fmt.Errorf("%w: nil storage buffer", ErrInvalidParams)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b.usage = usage
	b.mode = storageModeForUsage(usage)
	return c.uploadDeviceBuffer(&b.DeviceBuffer, data, size, 0)
}

func (c *context) DeleteVertexBuffer(b *VertexBuffer) {
	if b == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferDestroyBuffer(&b.DeviceBuffer)
}

func (c *context) DeleteIndexBuffer(b *IndexBuffer) {
	if b == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferDestroyBuffer(&b.DeviceBuffer)
}

func (c *context) DeleteStorageBuffer(b *StorageBuffer) {
	if b == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferDestroyBuffer(&b.DeviceBuffer)
}

func (c *context) EnableVertexBuffer(slot uint32, b *VertexBuffer, offset uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot >= maxVertexBuffers {
		return fmt.Errorf("%w: vertex buffer slot %d of %d", ErrOutOfRange, slot, maxVertexBuffers)
	}
	if b == nil || b.Destroyed() {
		return fmt.Errorf("%w: vertex buffer for slot %d", ErrResourceDestroyed, slot)
	}
	c.vertexBuffers[slot] = vertexBufferBinding{buffer: b, offset: offset}
	return nil
}

func (c *context) DisableVertexBuffer(slot uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot < maxVertexBuffers {
		c.vertexBuffers[slot] = vertexBufferBinding{}
	}
}

func (c *context) EnableVertexDeclaration(slot uint32, decl *VertexDeclaration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot >= maxVertexBuffers {
		return fmt.Errorf("%w: vertex declaration slot %d of %d", ErrOutOfRange, slot, maxVertexBuffers)
	}
	if decl == nil {
		return fmt.Errorf("%w: nil vertex declaration", ErrInvalidParams)
	}
	c.vertexDecls[slot] = decl
	return nil
}

func (c *context) DisableVertexDeclaration(slot uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot < maxVertexBuffers {
		c.vertexDecls[slot] = nil
	}
}

func (c *context) NewProgram(label string, stages ...shader.Desc) (*Program, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := buildProgram(label, stages)
	if err != nil {
		return nil, err
	}
	for i := range stages {
		module, err := c.backend.CompileShaderModule(stages[i])
		if err != nil {
			// Leave no partially created stage modules behind.
			for _, m := range p.modules {
				c.backend.DestroyShaderModule(m)
			}
			return nil, fmt.Errorf("program %q stage %s: %w", label, stages[i].Stage, err)
		}
		p.modules[stages[i].Stage] = module
	}
	return p, nil
}

func (c *context) DeleteProgram(p *Program) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.destroyed {
		return
	}
	if c.currentProgram == p {
		c.currentProgram = nil
	}
	c.deferDestroyProgram(p)
}

func (c *context) EnableProgram(p *Program) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == nil || p.destroyed {
		return fmt.Errorf("%w: program", ErrResourceDestroyed)
	}
	c.currentProgram = p
	return nil
}

func (c *context) DisableProgram() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentProgram = nil
}

func (c *context) SetConstantV4(location UniformLocation, values ...[4]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentProgram == nil {
		return ErrNoProgramEnabled
	}
	if len(values) == 0 {
		return nil
	}
	return c.currentProgram.writeUniform(location, common.SliceToBytes(values))
}

func (c *context) SetConstantM4(location UniformLocation, values ...[16]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentProgram == nil {
		return ErrNoProgramEnabled
	}
	if len(values) == 0 {
		return nil
	}
	return c.currentProgram.writeUniform(location, common.SliceToBytes(values))
}

func (c *context) SetSampler(location UniformLocation, unit int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentProgram == nil {
		return ErrNoProgramEnabled
	}
	if unit < 0 || unit >= maxTextureUnits {
		return fmt.Errorf("%w: texture unit %d of %d", ErrOutOfRange, unit, maxTextureUnits)
	}
	c.currentProgram.setSampler(location, unit)
	return nil
}

func (c *context) NewTexture(params TextureParams) (*Texture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if params.Width == 0 || params.Height == 0 {
		return nil, fmt.Errorf("%w: zero texture dimensions", ErrInvalidParams)
	}
	if params.MipCount == 0 {
		params.MipCount = 1
	}
	handle, err := c.backend.CreateTexture(params)
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", params.Label, err)
	}
	return &Texture{
		handle:    handle,
		params:    params,
		minFilter: TextureFilterLinear,
		magFilter: TextureFilterLinear,
		wrapU:     TextureWrapClampToEdge,
		wrapV:     TextureWrapClampToEdge,
	}, nil
}

func (c *context) SetTextureData(t *Texture, update TextureUpdate) error {
	if t == nil {
		return fmt.Errorf("%w: nil texture", ErrInvalidParams)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := validateTextureUpdate(t, &update); err != nil {
		return err
	}
	return c.backend.WriteTexture(t.handle, t.params, update)
}

func (c *context) SetTextureParams(t *Texture, minFilter, magFilter TextureFilter, wrapU, wrapV TextureWrap) error {
	if t == nil {
		return fmt.Errorf("%w: nil texture", ErrInvalidParams)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.destroyed {
		return fmt.Errorf("%w: texture", ErrResourceDestroyed)
	}
	t.minFilter = minFilter
	t.magFilter = magFilter
	t.wrapU = wrapU
	t.wrapV = wrapV
	return nil
}

func (c *context) DeleteTexture(t *Texture) {
	if t == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.textureUnits {
		if c.textureUnits[i] == t {
			c.textureUnits[i] = nil
		}
	}
	c.deferDestroyTexture(t)
}

func (c *context) EnableTexture(unit uint32, t *Texture) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if unit >= maxTextureUnits {
		return fmt.Errorf("%w: texture unit %d of %d", ErrOutOfRange, unit, maxTextureUnits)
	}
	if t == nil || t.destroyed {
		return fmt.Errorf("%w: texture for unit %d", ErrResourceDestroyed, unit)
	}
	c.textureUnits[unit] = t
	return nil
}

func (c *context) DisableTexture(unit uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if unit < maxTextureUnits {
		c.textureUnits[unit] = nil
	}
}

func (c *context) EnableStorageBuffer(unit uint32, b *StorageBuffer, offset uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if unit >= maxStorageBuffers {
		return fmt.Errorf("%w: storage unit %d of %d", ErrOutOfRange, unit, maxStorageBuffers)
	}
	if b == nil || b.Destroyed() {
		return fmt.Errorf("%w: storage buffer for unit %d", ErrResourceDestroyed, unit)
	}
	if offset >= b.Size() {
		return fmt.Errorf("%w: offset %d in storage buffer of %d bytes", ErrOutOfRange, offset, b.Size())
	}
	c.storageUnits[unit] = storageBufferBinding{buffer: b, offset: offset}
	return nil
}

func (c *context) DisableStorageBuffer(unit uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if unit < maxStorageBuffers {
		c.storageUnits[unit] = storageBufferBinding{}
	}
}

func (c *context) EnableState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setState(state, true)
}

func (c *context) DisableState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setState(state, false)
}

func (c *context) setState(state State, enabled bool) {
	switch state {
	case StateDepthTest:
		c.pipelineState.DepthTestEnabled = enabled
	case StateStencilTest:
		c.pipelineState.StencilEnabled = enabled
	case StateBlend:
		c.pipelineState.BlendEnabled = enabled
	case StateCullFace:
		c.pipelineState.CullFaceEnabled = enabled
	case StateScissorTest:
		c.pipelineState.ScissorEnabled = enabled
		c.scissorChanged = true
	default:
		logging.Warnf("graphics: unknown state toggle %d ignored", int(state))
	}
}

func (c *context) SetBlendFunc(src, dst BlendFactor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipelineState.BlendSrcFactor = src
	c.pipelineState.BlendDstFactor = dst
}

func (c *context) SetColorMask(red, green, blue, alpha bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var mask uint8
	if red {
		mask |= ColorMaskRed
	}
	if green {
		mask |= ColorMaskGreen
	}
	if blue {
		mask |= ColorMaskBlue
	}
	if alpha {
		mask |= ColorMaskAlpha
	}
	c.pipelineState.WriteColorMask = mask
}

func (c *context) SetDepthMask(mask bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipelineState.WriteDepth = mask
}

func (c *context) SetDepthFunc(fn CompareFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipelineState.DepthTestFunc = fn
}

func (c *context) SetStencilMask(mask uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipelineState.StencilWriteMask = mask
}

func (c *context) SetStencilFunc(fn CompareFunc, ref, mask uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipelineState.StencilTestFunc = fn
	c.pipelineState.StencilReference = ref
	c.pipelineState.StencilCompareMask = mask
}

func (c *context) SetStencilOp(stencilFail, depthFail, pass StencilOp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipelineState.StencilOpFail = stencilFail
	c.pipelineState.StencilOpDepthFail = depthFail
	c.pipelineState.StencilOpPass = pass
}

func (c *context) SetCullFace(face FaceType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipelineState.CullFaceType = face
}

func (c *context) SetFaceWinding(winding FaceWinding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipelineState.FaceWinding = winding
}

func (c *context) GetPipelineState() PipelineState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipelineState
}

// boundRenderTarget returns the target draws are currently directed at.
func (c *context) boundRenderTarget() *RenderTarget {
	if c.currentTarget != nil {
		return c.currentTarget
	}
	return c.defaultTarget
}

// buildResourceCommit resolves the program's binding table against the
// frame's scratch buffer and the bound texture and storage units. Uniform
// staging data is copied into a fresh scratch allocation so earlier draws
// this frame keep the values they were issued with.
func (c *context) buildResourceCommit(p *Program) (*ResourceCommit, error) {
	commit := &ResourceCommit{Program: p}
	if len(p.bindings) == 0 {
		return commit, nil
	}

	var scratchOffset uint32
	if need := p.uniformSizeAligned; need > 0 {
		scratch := c.activeSlot().scratch
		if !scratch.canAllocateAligned(need, uniformBufferAlignment) {
			if err := c.ensureScratchCapacity(scratch, need); err != nil {
				return nil, err
			}
		}
		scratchOffset = scratch.Allocate(need, uniformBufferAlignment)
		if err := c.backend.WriteBuffer(scratch.buffer.handle, scratchOffset, p.uniformData[:p.uniformSize]); err != nil {
			return nil, fmt.Errorf("stage uniform data: %w", err)
		}
	}

	for _, b := range p.bindings {
		switch b.family {
		case BindingFamilyUniformBuffer:
			commit.Buffers = append(commit.Buffers, BufferBinding{
				Set:     b.set,
				Binding: b.binding,
				Family:  b.family,
				Handle:  c.activeSlot().scratch.buffer.handle,
				Offset:  scratchOffset + b.byteOffset,
				Size:    b.blockSize,
			})
		case BindingFamilyStorageBuffer:
			unit := b.nativeIndex
			if unit >= maxStorageBuffers || c.storageUnits[unit].buffer == nil {
				return nil, fmt.Errorf("%w: no storage buffer bound for %q (unit %d)", ErrInvalidParams, b.name, unit)
			}
			bound := c.storageUnits[unit]
			if bound.buffer.Destroyed() {
				return nil, fmt.Errorf("%w: storage buffer for %q", ErrResourceDestroyed, b.name)
			}
			commit.Buffers = append(commit.Buffers, BufferBinding{
				Set:     b.set,
				Binding: b.binding,
				Family:  b.family,
				Handle:  bound.buffer.handle,
				Offset:  bound.offset,
				Size:    bound.buffer.Size() - bound.offset,
			})
		case BindingFamilySampler:
			unit := b.textureUnit
			if unit < 0 {
				unit = 0
			}
			t := c.textureUnits[unit]
			if t == nil || t.destroyed {
				return nil, fmt.Errorf("%w: no texture bound to unit %d for %q", ErrInvalidParams, unit, b.name)
			}
			commit.Textures = append(commit.Textures, TextureBinding{
				Set:     b.set,
				Binding: b.binding,
				Texture: t,
			})
		}
	}
	return commit, nil
}

// applyDynamicState pushes viewport and scissor to the backend when stale.
// Pass restarts (Clear, SetRenderTarget) mark both stale since a fresh pass
// resets them.
func (c *context) applyDynamicState() {
	if c.viewportChanged {
		c.backend.SetViewport(c.commandBuffer, c.viewport)
		c.viewportChanged = false
	}
	if c.scissorChanged {
		rect := c.scissor
		if !c.pipelineState.ScissorEnabled || rect.Width == 0 || rect.Height == 0 {
			target := c.boundRenderTarget()
			rect = ScissorRect{Width: int32(target.width), Height: int32(target.height)}
		}
		c.backend.SetScissor(c.commandBuffer, rect)
		c.scissorChanged = false
	}
}

// drawSetup runs the shared front half of Draw and DrawElements: phase and
// binding checks, pipeline selection, dynamic state, vertex buffer binds and
// the per-draw resource commit.
func (c *context) drawSetup(primitive PrimitiveType) error {
	if !c.frameBegun {
		return ErrNoFrameBegun
	}
	p := c.currentProgram
	if p == nil {
		return ErrNoProgramEnabled
	}
	if p.compute {
		return fmt.Errorf("%w: compute program %q enabled for a draw", ErrInvalidParams, p.label)
	}

	c.pipelineState.PrimitiveType = primitive
	pipe, err := c.getOrCreateRenderPipeline(p, c.vertexDecls[:])
	if err != nil {
		logging.Errorf("graphics: %v", err)
		return err
	}

	c.backend.BindPipeline(c.commandBuffer, pipe)
	c.applyDynamicState()

	for slot := range c.vertexBuffers {
		binding := c.vertexBuffers[slot]
		if binding.buffer == nil || c.vertexDecls[slot] == nil {
			continue
		}
		if binding.buffer.Destroyed() {
			return fmt.Errorf("%w: vertex buffer in slot %d", ErrResourceDestroyed, slot)
		}
		c.backend.BindVertexBuffer(c.commandBuffer, uint32(slot), binding.buffer.handle, binding.offset)
	}

	commit, err := c.buildResourceCommit(p)
	if err != nil {
		return err
	}
	if len(commit.Buffers) > 0 || len(commit.Textures) > 0 {
		if err := c.backend.CommitResources(c.commandBuffer, commit); err != nil {
			return fmt.Errorf("commit draw resources: %w", err)
		}
	}
	return nil
}

func (c *context) Draw(primitive PrimitiveType, first, count, instanceCount uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.drawSetup(primitive); err != nil {
		return err
	}
	c.backend.Draw(c.commandBuffer, first, count, max(instanceCount, 1))
	if c.prof != nil {
		c.prof.RecordDraw(count, max(instanceCount, 1))
	}
	return nil
}

func (c *context) DrawElements(primitive PrimitiveType, first, count uint32, indexType IndexType, ib *IndexBuffer, instanceCount uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ib == nil || ib.Destroyed() {
		return fmt.Errorf("%w: index buffer", ErrResourceDestroyed)
	}
	if err := c.drawSetup(primitive); err != nil {
		return err
	}
	c.backend.BindIndexBuffer(c.commandBuffer, ib.handle, indexType)
	c.backend.DrawIndexed(c.commandBuffer, first, count, max(instanceCount, 1))
	if c.prof != nil {
		c.prof.RecordDraw(count, max(instanceCount, 1))
	}
	return nil
}

func (c *context) DispatchCompute(x, y, z uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.frameBegun {
		return ErrNoFrameBegun
	}
	p := c.currentProgram
	if p == nil {
		return ErrNoProgramEnabled
	}
	if !p.compute {
		return fmt.Errorf("%w: render program %q enabled for a dispatch", ErrInvalidParams, p.label)
	}

	pipe, err := c.getOrCreateComputePipeline(p)
	if err != nil {
		logging.Errorf("graphics: %v", err)
		return err
	}
	commit, err := c.buildResourceCommit(p)
	if err != nil {
		return err
	}
	if err := c.backend.DispatchCompute(c.commandBuffer, pipe, commit, [3]uint32{x, y, z}); err != nil {
		return fmt.Errorf("dispatch compute: %w", err)
	}

	// The dispatch suspended the render pass; reopen it on the same target.
	if err := c.backend.BeginRenderPass(c.commandBuffer, c.currentTarget, nil); err != nil {
		return fmt.Errorf("resume render pass after dispatch: %w", err)
	}
	c.viewportChanged = true
	c.scissorChanged = true
	if c.prof != nil {
		c.prof.RecordDispatch()
	}
	return nil
}

func (c *context) NewRenderTarget(params RenderTargetParams) (*RenderTarget, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := validateRenderTargetParams(&params); err != nil {
		return nil, err
	}

	rt := &RenderTarget{
		id:           c.nextTargetID,
		width:        params.Width,
		height:       params.Height,
		colorFormats: params.ColorFormats,
		hasDepth:     params.HasDepth,
		depthFormat:  params.DepthFormat,
		label:        params.Label,
	}
	if err := c.createRenderTargetAttachments(rt); err != nil {
		return nil, err
	}
	c.nextTargetID++
	return rt, nil
}

// createRenderTargetAttachments allocates the target's color and depth
// textures. On failure every texture created so far is destroyed before
// returning.
func (c *context) createRenderTargetAttachments(rt *RenderTarget) error {
	cleanup := func() {
		for _, t := range rt.colorTextures {
			if t != nil && t.handle != nil {
				c.backend.DestroyTexture(t.handle)
			}
		}
		rt.colorTextures = nil
		if rt.depthTexture != nil && rt.depthTexture.handle != nil {
			c.backend.DestroyTexture(rt.depthTexture.handle)
			rt.depthTexture = nil
		}
	}

	for i, format := range rt.colorFormats {
		params := TextureParams{
			Width:        rt.width,
			Height:       rt.height,
			Format:       format,
			MipCount:     1,
			RenderTarget: true,
			Label:        fmt.Sprintf("%s-color%d", rt.label, i),
		}
		handle, err := c.backend.CreateTexture(params)
		if err != nil {
			cleanup()
			return fmt.Errorf("render target %q color attachment %d: %w", rt.label, i, err)
		}
		rt.colorTextures = append(rt.colorTextures, &Texture{handle: handle, params: params})
	}
	if rt.hasDepth {
		params := TextureParams{
			Width:        rt.width,
			Height:       rt.height,
			Format:       rt.depthFormat,
			MipCount:     1,
			RenderTarget: true,
			Label:        rt.label + "-depth",
		}
		handle, err := c.backend.CreateTexture(params)
		if err != nil {
			cleanup()
			return fmt.Errorf("render target %q depth attachment: %w", rt.label, err)
		}
		rt.depthTexture = &Texture{handle: handle, params: params}
	}
	return nil
}

func (c *context) DeleteRenderTarget(rt *RenderTarget) {
	if rt == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if rt.defaultTarget || rt.destroyed {
		return
	}
	if c.currentTarget == rt {
		c.currentTarget = c.defaultTarget
	}
	c.deferDestroyRenderTarget(rt)
}

func (c *context) SetRenderTarget(rt *RenderTarget) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.frameBegun {
		return ErrNoFrameBegun
	}
	if rt == nil {
		rt = c.defaultTarget
	}
	if rt.destroyed {
		return fmt.Errorf("%w: render target %q", ErrResourceDestroyed, rt.label)
	}
	if err := c.backend.BeginRenderPass(c.commandBuffer, rt, nil); err != nil {
		return fmt.Errorf("set render target %q: %w", rt.label, err)
	}
	c.currentTarget = rt
	c.viewport = Viewport{Width: int32(rt.width), Height: int32(rt.height)}
	c.viewportChanged = true
	c.scissorChanged = true
	return nil
}

func (c *context) SetRenderTargetSize(rt *RenderTarget, width, height uint32) error {
	if rt == nil {
		return fmt.Errorf("%w: nil render target", ErrInvalidParams)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if rt.defaultTarget {
		return fmt.Errorf("%w: default target resizes with the window", ErrInvalidParams)
	}
	if rt.destroyed {
		return fmt.Errorf("%w: render target %q", ErrResourceDestroyed, rt.label)
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: zero render target dimensions", ErrInvalidParams)
	}

	// Old attachments may be referenced by in-flight frames; retire them
	// through the destroy queue and build fresh ones.
	for _, handle := range rt.takeAttachmentHandles() {
		c.deferDestroyTextureHandle(handle)
	}
	rt.width = width
	rt.height = height
	if err := c.createRenderTargetAttachments(rt); err != nil {
		rt.destroyed = true
		return err
	}
	return nil
}

func (c *context) Width() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width
}

func (c *context) Height() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

func (c *context) Resize(width, height uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	if c.frameBegun {
		return ErrFrameAlreadyBegun
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: zero surface dimensions", ErrInvalidParams)
	}
	if err := c.backend.ResizeSurface(width, height); err != nil {
		return fmt.Errorf("resize surface: %w", err)
	}
	c.width = width
	c.height = height
	c.defaultTarget.width = width
	c.defaultTarget.height = height
	return nil
}

func (c *context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if c.frameBegun {
		return ErrFrameAlreadyBegun
	}
	c.closed = true

	// Let every in-flight frame land before touching its resources.
	c.backend.WaitIdle()
	for _, slot := range c.frames {
		slot.waitIfPending()
		c.flushDestroyQueue(&slot.destroy)
		if slot.scratch != nil && slot.scratch.buffer.handle != nil {
			c.backend.DestroyBuffer(slot.scratch.buffer.handle)
			slot.scratch.buffer.handle = nil
		}
	}
	for _, p := range c.pipelines.entries {
		c.backend.DestroyPipeline(p.native)
	}
	logging.Infof("graphics: context closed (%d pipelines built, %d cache hits)", c.pipelines.size(), c.pipelines.hits)
	c.backend.Release()
	return nil
}
