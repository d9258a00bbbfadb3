package graphics

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/gfx-go/graphics/shader"
	"github.com/stretchr/testify/require"
)

// fakeBufferHandle is the opaque buffer handle the fake backend hands out.
// It records the creation parameters and accumulates every write so tests can
// assert on staged bytes.
type fakeBufferHandle struct {
	id     int
	size   uint32
	target BufferTarget
	mode   StorageMode
	usage  BufferUsage
	label  string
	data   []byte
}

type fakeTextureHandle struct {
	id     int
	params TextureParams
}

type fakeModuleHandle struct {
	id   int
	desc shader.Desc
}

type fakePipelineHandle struct {
	id      int
	render  RenderPipelineDesc
	compute ComputePipelineDesc
}

type fakeCommandBuffer struct {
	id int
}

// fakeWrite records one WriteBuffer call.
type fakeWrite struct {
	handle *fakeBufferHandle
	offset uint32
	data   []byte
}

// fakeBackend is an in-memory deviceBackend for exercising the context
// without a GPU. Every create hands out a unique handle and tracks it as
// live until the matching destroy; destroying a handle that is not live
// panics, so a double release in the deferred destruction path fails tests
// loudly. Submit completes synchronously unless manualCompletion is set, in
// which case completion callbacks queue up for the test to release one at a
// time via completeNext.
type fakeBackend struct {
	mu sync.Mutex

	width  uint32
	height uint32

	nextID int

	liveBuffers   map[*fakeBufferHandle]bool
	liveTextures  map[*fakeTextureHandle]bool
	liveModules   map[*fakeModuleHandle]bool
	livePipelines map[*fakePipelineHandle]bool

	bufferCreates        int
	textureCreates       int
	moduleCompiles       int
	renderPipelineBuilds int
	computePipelineBuilds int

	frames       int
	submits      int
	passes       int
	draws        int
	indexedDraws int
	dispatches   int
	vertexBinds  int
	indexBinds   int
	released     bool

	writes         []fakeWrite
	commits        []*ResourceCommit
	dispatchGroups [][3]uint32

	manualCompletion bool
	pendingDone      []func()

	// failBufferCreate makes CreateBuffer fail once bufferCreates reaches
	// failBufferCreateAfter successful calls; zero fails immediately. The
	// texture pair behaves the same for CreateTexture.
	failBufferCreate       error
	failBufferCreateAfter  int
	failTextureCreate      error
	failTextureCreateAfter int
	failCompile            error
	failRenderPipeline     error
	failComputePipeline    error
	failBeginFrame         error
	failSubmit             error
	failWrite              error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		width:         800,
		height:        600,
		liveBuffers:   make(map[*fakeBufferHandle]bool),
		liveTextures:  make(map[*fakeTextureHandle]bool),
		liveModules:   make(map[*fakeModuleHandle]bool),
		livePipelines: make(map[*fakePipelineHandle]bool),
	}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) CreateBuffer(size uint32, target BufferTarget, mode StorageMode, usage BufferUsage, label string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBufferCreate != nil && f.bufferCreates >= f.failBufferCreateAfter {
		return nil, f.failBufferCreate
	}
	f.nextID++
	f.bufferCreates++
	h := &fakeBufferHandle{
		id:     f.nextID,
		size:   size,
		target: target,
		mode:   mode,
		usage:  usage,
		label:  label,
		data:   make([]byte, size),
	}
	f.liveBuffers[h] = true
	return h, nil
}

func (f *fakeBackend) WriteBuffer(handle any, offset uint32, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return f.failWrite
	}
	h := handle.(*fakeBufferHandle)
	if !f.liveBuffers[h] {
		panic(fmt.Sprintf("fake backend: write to dead buffer %q (id %d)", h.label, h.id))
	}
	if offset+uint32(len(data)) > h.size {
		panic(fmt.Sprintf("fake backend: write of %d bytes at %d overruns buffer %q size %d", len(data), offset, h.label, h.size))
	}
	copy(h.data[offset:], data)
	f.writes = append(f.writes, fakeWrite{handle: h, offset: offset, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeBackend) DestroyBuffer(handle any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := handle.(*fakeBufferHandle)
	if !f.liveBuffers[h] {
		panic(fmt.Sprintf("fake backend: double destroy of buffer %q (id %d)", h.label, h.id))
	}
	delete(f.liveBuffers, h)
}

func (f *fakeBackend) CreateTexture(params TextureParams) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTextureCreate != nil && f.textureCreates >= f.failTextureCreateAfter {
		return nil, f.failTextureCreate
	}
	f.nextID++
	f.textureCreates++
	h := &fakeTextureHandle{id: f.nextID, params: params}
	f.liveTextures[h] = true
	return h, nil
}

func (f *fakeBackend) WriteTexture(handle any, params TextureParams, update TextureUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := handle.(*fakeTextureHandle)
	if !f.liveTextures[h] {
		panic(fmt.Sprintf("fake backend: write to dead texture %q (id %d)", h.params.Label, h.id))
	}
	return nil
}

func (f *fakeBackend) DestroyTexture(handle any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := handle.(*fakeTextureHandle)
	if !f.liveTextures[h] {
		panic(fmt.Sprintf("fake backend: double destroy of texture %q (id %d)", h.params.Label, h.id))
	}
	delete(f.liveTextures, h)
}

func (f *fakeBackend) CompileShaderModule(desc shader.Desc) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCompile != nil {
		return nil, f.failCompile
	}
	f.nextID++
	f.moduleCompiles++
	h := &fakeModuleHandle{id: f.nextID, desc: desc}
	f.liveModules[h] = true
	return h, nil
}

func (f *fakeBackend) DestroyShaderModule(module any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := module.(*fakeModuleHandle)
	if !f.liveModules[h] {
		panic(fmt.Sprintf("fake backend: double destroy of shader module %q (id %d)", h.desc.Name, h.id))
	}
	delete(f.liveModules, h)
}

func (f *fakeBackend) CreateRenderPipeline(desc RenderPipelineDesc) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRenderPipeline != nil {
		return nil, f.failRenderPipeline
	}
	f.nextID++
	f.renderPipelineBuilds++
	h := &fakePipelineHandle{id: f.nextID, render: desc}
	f.livePipelines[h] = true
	return h, nil
}

func (f *fakeBackend) CreateComputePipeline(desc ComputePipelineDesc) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failComputePipeline != nil {
		return nil, f.failComputePipeline
	}
	f.nextID++
	f.computePipelineBuilds++
	h := &fakePipelineHandle{id: f.nextID, compute: desc}
	f.livePipelines[h] = true
	return h, nil
}

func (f *fakeBackend) DestroyPipeline(native any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := native.(*fakePipelineHandle)
	if !f.livePipelines[h] {
		panic(fmt.Sprintf("fake backend: double destroy of pipeline (id %d)", h.id))
	}
	delete(f.livePipelines, h)
}

func (f *fakeBackend) SurfaceFormat() TextureFormat { return TextureFormatBGRA8 }

func (f *fakeBackend) SurfaceSize() (uint32, uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.width, f.height
}

func (f *fakeBackend) DepthStencilFormat() TextureFormat { return TextureFormatDepth24Stencil8 }

func (f *fakeBackend) ResizeSurface(width, height uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.width = width
	f.height = height
	return nil
}

func (f *fakeBackend) BeginFrame() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBeginFrame != nil {
		return nil, f.failBeginFrame
	}
	f.nextID++
	f.frames++
	return &fakeCommandBuffer{id: f.nextID}, nil
}

func (f *fakeBackend) BeginRenderPass(cb any, target *RenderTarget, clear *ClearParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passes++
	return nil
}

func (f *fakeBackend) SetViewport(cb any, viewport Viewport) {}

func (f *fakeBackend) SetScissor(cb any, rect ScissorRect) {}

func (f *fakeBackend) BindPipeline(cb any, p *Pipeline) {}

func (f *fakeBackend) BindVertexBuffer(cb any, slot uint32, handle any, offset uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vertexBinds++
}

func (f *fakeBackend) BindIndexBuffer(cb any, handle any, indexType IndexType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexBinds++
}

func (f *fakeBackend) CommitResources(cb any, commit *ResourceCommit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, commit)
	return nil
}

func (f *fakeBackend) Draw(cb any, firstVertex, vertexCount, instanceCount uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draws++
}

func (f *fakeBackend) DrawIndexed(cb any, firstIndex, indexCount, instanceCount uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexedDraws++
}

func (f *fakeBackend) DispatchCompute(cb any, p *Pipeline, commit *ResourceCommit, workgroups [3]uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatches++
	f.commits = append(f.commits, commit)
	f.dispatchGroups = append(f.dispatchGroups, workgroups)
	return nil
}

func (f *fakeBackend) Submit(cb any, onDone func()) error {
	f.mu.Lock()
	if f.failSubmit != nil {
		err := f.failSubmit
		f.mu.Unlock()
		return err
	}
	f.submits++
	if f.manualCompletion {
		f.pendingDone = append(f.pendingDone, onDone)
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()
	onDone()
	return nil
}

func (f *fakeBackend) WaitIdle() {
	f.completeAll()
}

func (f *fakeBackend) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
}

// completeNext fires the oldest held completion callback. Panics if none is
// pending, which catches tests that complete more frames than they submitted.
func (f *fakeBackend) completeNext() {
	f.mu.Lock()
	if len(f.pendingDone) == 0 {
		f.mu.Unlock()
		panic("fake backend: no pending completion")
	}
	done := f.pendingDone[0]
	f.pendingDone = f.pendingDone[1:]
	f.mu.Unlock()
	done()
}

// completeAll fires every held completion callback in submission order.
func (f *fakeBackend) completeAll() {
	for {
		f.mu.Lock()
		if len(f.pendingDone) == 0 {
			f.mu.Unlock()
			return
		}
		done := f.pendingDone[0]
		f.pendingDone = f.pendingDone[1:]
		f.mu.Unlock()
		done()
	}
}

func (f *fakeBackend) liveBufferCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.liveBuffers)
}

func (f *fakeBackend) liveTextureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.liveTextures)
}

func (f *fakeBackend) liveModuleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.liveModules)
}

func (f *fakeBackend) livePipelineCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.livePipelines)
}

// bufferByLabel returns the first live buffer created with the given label.
func (f *fakeBackend) bufferByLabel(label string) *fakeBufferHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *fakeBufferHandle
	for h := range f.liveBuffers {
		if h.label == label && (found == nil || h.id < found.id) {
			found = h
		}
	}
	return found
}

// lastCommit returns the most recent resource commit the backend received.
func (f *fakeBackend) lastCommit() *ResourceCommit {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commits) == 0 {
		return nil
	}
	return f.commits[len(f.commits)-1]
}

// newTestContext builds a context over a fresh fake backend. The fake's
// surface is 800x600 BGRA8 with a 24/8 depth-stencil.
func newTestContext(t *testing.T, options ...ContextBuilderOption) (Context, *fakeBackend) {
	t.Helper()
	fb := newFakeBackend()
	ctx, err := NewContext(BackendTypeWGPU, nil, append([]ContextBuilderOption{WithDeviceBackend(fb)}, options...)...)
	require.NoError(t, err)
	return ctx, fb
}

// testRenderStages builds a minimal vertex+fragment stage pair whose vertex
// stage declares one 80-byte uniform block (a mat4 "transform" and a vec4
// "tint") at set 0 binding 0.
func testRenderStages() []shader.Desc {
	return []shader.Desc{
		{
			Name:       "test-vert",
			Stage:      shader.StageVertex,
			Source:     "vertex source",
			EntryPoint: "vs_main",
			Meta: shader.Metadata{
				Bindings: []shader.Binding{
					{Name: "scene", Set: 0, Binding: 0, Kind: shader.ResourceUniformBuffer, Size: 80},
				},
				Uniforms: []shader.Uniform{
					{Name: "transform", Set: 0, Binding: 0, Offset: 0, Type: shader.DataTypeMat4, Count: 1},
					{Name: "tint", Set: 0, Binding: 0, Offset: 64, Type: shader.DataTypeVec4, Count: 1},
				},
			},
		},
		{
			Name:       "test-frag",
			Stage:      shader.StageFragment,
			Source:     "fragment source",
			EntryPoint: "fs_main",
		},
	}
}

// testBareRenderStages builds a vertex+fragment stage pair with no resource
// bindings at all.
func testBareRenderStages() []shader.Desc {
	return []shader.Desc{
		{Name: "bare-vert", Stage: shader.StageVertex, Source: "vertex source", EntryPoint: "vs_main"},
		{Name: "bare-frag", Stage: shader.StageFragment, Source: "fragment source", EntryPoint: "fs_main"},
	}
}

// testComputeStage builds a single compute stage with a storage buffer at
// set 0 binding 0 and a 16-byte uniform block ("config") at set 0 binding 1.
func testComputeStage() []shader.Desc {
	return []shader.Desc{
		{
			Name:       "test-comp",
			Stage:      shader.StageCompute,
			Source:     "compute source",
			EntryPoint: "cs_main",
			Meta: shader.Metadata{
				Bindings: []shader.Binding{
					{Name: "particles", Set: 0, Binding: 0, Kind: shader.ResourceStorageBuffer, Size: 16},
					{Name: "sim", Set: 0, Binding: 1, Kind: shader.ResourceUniformBuffer, Size: 16},
				},
				Uniforms: []shader.Uniform{
					{Name: "config", Set: 0, Binding: 1, Offset: 0, Type: shader.DataTypeVec4, Count: 1},
				},
				Workgroup: [3]uint32{64, 1, 1},
			},
		},
	}
}

// testSampledStages builds a vertex+fragment stage pair whose fragment stage
// samples one texture at set 0 binding 1 next to a 16-byte uniform block at
// set 0 binding 0.
func testSampledStages() []shader.Desc {
	return []shader.Desc{
		{Name: "sampled-vert", Stage: shader.StageVertex, Source: "vertex source", EntryPoint: "vs_main"},
		{
			Name:       "sampled-frag",
			Stage:      shader.StageFragment,
			Source:     "fragment source",
			EntryPoint: "fs_main",
			Meta: shader.Metadata{
				Bindings: []shader.Binding{
					{Name: "post", Set: 0, Binding: 0, Kind: shader.ResourceUniformBuffer, Size: 16},
					{Name: "scene_texture", Set: 0, Binding: 1, Kind: shader.ResourceTextureSampler},
				},
				Uniforms: []shader.Uniform{
					{Name: "effect", Set: 0, Binding: 0, Offset: 0, Type: shader.DataTypeVec4, Count: 1},
				},
			},
		},
	}
}
