package graphics

import (
	"github.com/Carmen-Shannon/gfx-go/graphics/shader"
)

// BackendType identifies the GPU backend implementation used by the Context.
type BackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based device backend.
	BackendTypeWGPU BackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ClearParams selects which attachments of the bound render target to clear
// and the values to clear them to. Color components are normalized [0,1].
type ClearParams struct {
	Flags   ClearFlags
	Color   [4]float32
	Depth   float32
	Stencil uint8
}

// RenderPipelineDesc carries everything a backend needs to compile one render
// pipeline: the program's stage modules and binding table, the packed
// fixed-function state, the bound vertex layouts, and the target's attachment
// formats.
type RenderPipelineDesc struct {
	Program      *Program
	State        PipelineState
	Layouts      []*VertexDeclaration
	ColorFormats []TextureFormat
	HasDepth     bool
	DepthFormat  TextureFormat
	Label        string
}

// ComputePipelineDesc carries the program for one compute pipeline.
type ComputePipelineDesc struct {
	Program *Program
	Label   string
}

// BufferBinding is one resolved buffer input for a draw or dispatch: the
// program binding address it satisfies and the backend buffer region to read.
type BufferBinding struct {
	Set     uint32
	Binding uint32
	Family  BindingFamily
	Handle  any
	Offset  uint32
	Size    uint32
}

// TextureBinding is one resolved texture + sampler input for a draw.
type TextureBinding struct {
	Set     uint32
	Binding uint32
	Texture *Texture
}

// ResourceCommit is the full resolved resource set for one draw or dispatch,
// assembled by the context from the program's binding table, the frame's
// scratch allocations, and the bound texture units.
type ResourceCommit struct {
	Program  *Program
	Buffers  []BufferBinding
	Textures []TextureBinding
}

// deviceBackend is the device-facing contract the context records against.
// Resource handles are opaque; only the backend that created a handle may
// interpret it. Command-recording methods take the opaque command buffer
// returned by BeginFrame. Unless noted, methods must be called from the
// thread driving the frame loop.
type deviceBackend interface {
	// Name returns a short human-readable backend identifier for logs.
	Name() string

	// CreateBuffer allocates a device buffer.
	//
	// Parameters:
	//   - size: the buffer size in bytes, must be > 0
	//   - target: the bind target the buffer will be used as
	//   - mode: the storage mode controlling CPU visibility
	//   - usage: the expected update frequency
	//   - label: a debug label attached to the backend object
	//
	// Returns:
	//   - any: an opaque buffer handle
	//   - error: an error if allocation failed
	CreateBuffer(size uint32, target BufferTarget, mode StorageMode, usage BufferUsage, label string) (any, error)

	// WriteBuffer copies data into a buffer at a byte offset. For private
	// storage the backend stages through a transfer buffer; the copy is
	// ordered before any frame work submitted afterwards.
	WriteBuffer(handle any, offset uint32, data []byte) error

	// DestroyBuffer releases a buffer handle. Safe for handles whose GPU work
	// has completed; the context's deferred destruction queue guarantees that.
	DestroyBuffer(handle any)

	// CreateTexture allocates a texture.
	CreateTexture(params TextureParams) (any, error)

	// WriteTexture copies pixel data into one mip level of a texture.
	WriteTexture(handle any, params TextureParams, update TextureUpdate) error

	// DestroyTexture releases a texture handle.
	DestroyTexture(handle any)

	// CompileShaderModule compiles one stage's source into a backend module.
	// Compile diagnostics are logged in full; on failure no module is created.
	CompileShaderModule(desc shader.Desc) (any, error)

	// DestroyShaderModule releases a compiled stage module.
	DestroyShaderModule(module any)

	// CreateRenderPipeline compiles a render pipeline. On failure any
	// partially created backend objects are cleaned up before returning.
	CreateRenderPipeline(desc RenderPipelineDesc) (any, error)

	// CreateComputePipeline compiles a compute pipeline.
	CreateComputePipeline(desc ComputePipelineDesc) (any, error)

	// DestroyPipeline releases a compiled pipeline.
	DestroyPipeline(native any)

	// SurfaceFormat returns the swapchain color format.
	SurfaceFormat() TextureFormat

	// SurfaceSize returns the swapchain dimensions in pixels.
	SurfaceSize() (uint32, uint32)

	// DepthStencilFormat returns the default target's depth-stencil format.
	DepthStencilFormat() TextureFormat

	// ResizeSurface reconfigures the swapchain for a new window size.
	ResizeSurface(width, height uint32) error

	// BeginFrame acquires the next drawable and opens a command buffer for
	// the frame.
	//
	// Returns:
	//   - any: an opaque command buffer handle
	//   - error: an error if the drawable could not be acquired
	BeginFrame() (any, error)

	// BeginRenderPass (re)targets subsequent draws at the given render
	// target. A nil clear loads the target's existing contents; a non-nil
	// clear discards them per its flags. Any open pass on the command buffer
	// is ended first.
	BeginRenderPass(cb any, target *RenderTarget, clear *ClearParams) error

	// SetViewport sets the viewport transform for subsequent draws.
	SetViewport(cb any, viewport Viewport)

	// SetScissor sets the scissor rectangle for subsequent draws.
	SetScissor(cb any, rect ScissorRect)

	// BindPipeline makes a compiled render pipeline current.
	BindPipeline(cb any, p *Pipeline)

	// BindVertexBuffer binds a vertex buffer region to an input slot.
	BindVertexBuffer(cb any, slot uint32, handle any, offset uint32)

	// BindIndexBuffer binds the index buffer for subsequent indexed draws.
	BindIndexBuffer(cb any, handle any, indexType IndexType)

	// CommitResources binds the draw's resolved buffer and texture inputs.
	CommitResources(cb any, commit *ResourceCommit) error

	// Draw encodes a non-indexed draw with the current pipeline and bindings.
	Draw(cb any, firstVertex, vertexCount, instanceCount uint32)

	// DrawIndexed encodes an indexed draw with the current pipeline and
	// bindings. firstIndex is in elements of the bound index type.
	DrawIndexed(cb any, firstIndex, indexCount, instanceCount uint32)

	// DispatchCompute encodes one compute dispatch on the frame's command
	// buffer. Any open render pass is suspended around the compute pass and
	// must be re-established by the caller before further draws.
	DispatchCompute(cb any, p *Pipeline, commit *ResourceCommit, workgroups [3]uint32) error

	// Submit ends the frame's passes, submits the command buffer, and
	// presents the acquired drawable. onDone is invoked exactly once, from a
	// background goroutine, when the device has finished executing the
	// submitted work.
	Submit(cb any, onDone func()) error

	// WaitIdle blocks until the device has finished all submitted work.
	WaitIdle()

	// Release destroys the backend's own objects. The context guarantees the
	// device is idle and all deferred resources are flushed before calling.
	Release()
}

// Backend is the top-level device backend interface for the Context.
// It embeds the backend-agnostic device contract.
type Backend interface {
	deviceBackend
}
