package graphics

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/gfx-go/graphics/shader"
	"github.com/Carmen-Shannon/gfx-go/logging"
	"github.com/Carmen-Shannon/gfx-go/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBackendConfig carries the construction parameters for the WebGPU backend.
type wgpuBackendConfig struct {
	// forceFallbackAdapter requests a software rasterizer adapter instead of a
	// hardware GPU. Useful for CI machines without a GPU.
	forceFallbackAdapter bool

	// presentMode overrides the default vsync presentation when set.
	presentMode *PresentMode

	// validation raises the native log level so driver validation messages
	// reach the application log.
	validation bool
}

// releasable is any backend object with wgpu reference-counted lifetime.
type releasable interface {
	Release()
}

// wgpuBuffer is the opaque handle wrapping one device buffer.
type wgpuBuffer struct {
	buffer *wgpu.Buffer
	size   uint32
}

// wgpuTexture is the opaque handle wrapping one texture and its default view.
type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

// wgpuPipeline is the opaque handle wrapping one compiled pipeline. The bind
// group layouts created for the pipeline are kept so per-draw bind groups can
// be built against them; stencilRef is the baked stencil reference applied
// when the pipeline is bound.
type wgpuPipeline struct {
	render     *wgpu.RenderPipeline
	compute    *wgpu.ComputePipeline
	layouts    []*wgpu.BindGroupLayout
	stencilRef uint32
}

// wgpuCommandBuffer is the opaque per-frame recording state: the frame's
// command encoder, the currently open render pass (nil between passes), the
// render pipeline bound on that pass, and the frame-scoped objects to release
// once the device finishes the frame.
type wgpuCommandBuffer struct {
	encoder  *wgpu.CommandEncoder
	pass     *wgpu.RenderPassEncoder
	bound    *wgpuPipeline
	releases []releasable
}

// wgpuBackend implements the device backend on WebGPU via wgpu-native.
type wgpuBackend struct {
	mu       *sync.Mutex
	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	width         uint32
	height        uint32

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	// samplers caches immutable sampler objects by their configuration so
	// textures sharing filter and wrap settings share one sampler.
	samplers map[SamplerParams]*wgpu.Sampler

	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// completions runs one task per submitted frame: block until the device
	// finishes, release the frame's transient objects, then signal the frame
	// slot. A single worker keeps completion order matching submission order.
	completions worker.DynamicWorkerPool
	taskID      int
}

var _ Backend = &wgpuBackend{}

// newWGPUBackend creates the WebGPU device backend on the given window's
// surface: instance, surface, adapter, device and queue, then the initial
// swapchain configuration and default depth-stencil attachment.
func newWGPUBackend(win window.Window, cfg wgpuBackendConfig) (Backend, error) {
	runtime.LockOSThread()

	if cfg.validation {
		wgpu.SetLogLevel(wgpu.LogLevelWarn)
	}

	b := &wgpuBackend{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		samplers:    make(map[SamplerParams]*wgpu.Sampler),
		completions: worker.NewDynamicWorkerPool(1, 16, 1*time.Second),
	}
	if cfg.presentMode != nil && *cfg.presentMode == PresentModeUncapped {
		b.presentMode = wgpu.PresentModeImmediate
	}

	surfaceDescriptor := win.SurfaceDescriptor()
	if surfaceDescriptor == nil {
		b.instance.Release()
		return nil, fmt.Errorf("%w: window has no surface descriptor", ErrInvalidParams)
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.surface.Release()
		b.instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "graphics-device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		b.adapter.Release()
		b.surface.Release()
		b.instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	if err := b.configureSurface(uint32(win.Width()), uint32(win.Height())); err != nil {
		b.Release()
		return nil, err
	}

	logging.Infof("wgpu backend ready: %dx%d, surface format %d", b.width, b.height, b.surfaceFormat)
	return b, nil
}

// configureSurface (re)configures the swapchain for the given size and
// recreates the default depth-stencil attachment to match.
func (b *wgpuBackend) configureSurface(width, height uint32) error {
	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return fmt.Errorf("surface reports no supported formats")
	}
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "default-depth",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24PlusStencil8,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	depthView, err := depthTexture.CreateView(nil)
	if err != nil {
		depthTexture.Release()
		return fmt.Errorf("create depth view: %w", err)
	}
	b.depthTexture = depthTexture
	b.depthView = depthView
	b.width = width
	b.height = height
	return nil
}

func (b *wgpuBackend) Name() string {
	return "wgpu"
}

func (b *wgpuBackend) CreateBuffer(size uint32, target BufferTarget, mode StorageMode, usage BufferUsage, label string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// All storage modes upload through queue staging, so the native usage
	// depends only on the bind target.
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(size),
		Usage:            wgpuBufferUsage(target),
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	return &wgpuBuffer{buffer: buf, size: size}, nil
}

func (b *wgpuBackend) WriteBuffer(handle any, offset uint32, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := handle.(*wgpuBuffer)
	if !ok || wb.buffer == nil {
		return fmt.Errorf("%w: stale buffer handle", ErrResourceDestroyed)
	}
	if len(data) == 0 {
		return nil
	}
	b.queue.WriteBuffer(wb.buffer, uint64(offset), data)
	return nil
}

func (b *wgpuBackend) DestroyBuffer(handle any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := handle.(*wgpuBuffer)
	if !ok || wb.buffer == nil {
		return
	}
	wb.buffer.Release()
	wb.buffer = nil
}

func (b *wgpuBackend) CreateTexture(params TextureParams) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	format, err := wgpuTextureFormat(params.Format)
	if err != nil {
		return nil, err
	}
	textureUsage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if params.RenderTarget {
		textureUsage |= wgpu.TextureUsageRenderAttachment
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     params.Label,
		Usage:     textureUsage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              params.Width,
			Height:             params.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: max(params.MipCount, 1),
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", params.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create texture view %q: %w", params.Label, err)
	}
	return &wgpuTexture{texture: tex, view: view}, nil
}

func (b *wgpuBackend) WriteTexture(handle any, params TextureParams, update TextureUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	wt, ok := handle.(*wgpuTexture)
	if !ok || wt.texture == nil {
		return fmt.Errorf("%w: stale texture handle", ErrResourceDestroyed)
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  wt.texture,
			MipLevel: update.Mip,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		update.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  update.Width * params.Format.BytesPerPixel(),
			RowsPerImage: update.Height,
		},
		&wgpu.Extent3D{
			Width:              update.Width,
			Height:             update.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *wgpuBackend) DestroyTexture(handle any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wt, ok := handle.(*wgpuTexture)
	if !ok {
		return
	}
	if wt.view != nil {
		wt.view.Release()
		wt.view = nil
	}
	if wt.texture != nil {
		wt.texture.Release()
		wt.texture = nil
	}
}

func (b *wgpuBackend) CompileShaderModule(desc shader.Desc) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		logging.Errorf("shader %q (%s) failed to compile: %v", desc.Name, desc.Stage, err)
		return nil, fmt.Errorf("compile %s shader %q: %w", desc.Stage, desc.Name, err)
	}
	return module, nil
}

func (b *wgpuBackend) DestroyShaderModule(module any) {
	m, ok := module.(*wgpu.ShaderModule)
	if !ok || m == nil {
		return
	}
	m.Release()
}

// samplerFor returns the cached sampler for the given configuration, creating
// it on first use. Callers hold b.mu.
func (b *wgpuBackend) samplerFor(params SamplerParams) (*wgpu.Sampler, error) {
	if s, ok := b.samplers[params]; ok {
		return s, nil
	}
	mipmapFilter := wgpu.MipmapFilterModeLinear
	if params.MinFilter == TextureFilterNearest {
		mipmapFilter = wgpu.MipmapFilterModeNearest
	}
	s, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "texture-sampler",
		AddressModeU:  wgpuAddressMode(params.WrapU),
		AddressModeV:  wgpuAddressMode(params.WrapV),
		AddressModeW:  wgpuAddressMode(params.WrapV),
		MagFilter:     wgpuFilterMode(params.MagFilter),
		MinFilter:     wgpuFilterMode(params.MinFilter),
		MipmapFilter:  mipmapFilter,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	b.samplers[params] = s
	return s, nil
}

// wgpuShaderStages maps binding visibility flags to WebGPU stage bits.
func wgpuShaderStages(flags shader.StageFlags) wgpu.ShaderStage {
	var visibility wgpu.ShaderStage
	if flags&shader.StageFlagVertex != 0 {
		visibility |= wgpu.ShaderStageVertex
	}
	if flags&shader.StageFlagFragment != 0 {
		visibility |= wgpu.ShaderStageFragment
	}
	if flags&shader.StageFlagCompute != 0 {
		visibility |= wgpu.ShaderStageCompute
	}
	return visibility
}

// buildBindGroupLayouts creates one bind group layout per set the program
// addresses, including empty layouts for unused sets below the highest so
// set indices stay positional. Texture-sampler bindings occupy two slots: the
// texture at the declared binding and its sampler at binding+1, so shader
// reflection must leave the +1 slot free.
func (b *wgpuBackend) buildBindGroupLayouts(p *Program, label string) ([]*wgpu.BindGroupLayout, error) {
	maxSet := -1
	for _, rb := range p.bindings {
		if int(rb.set) > maxSet {
			maxSet = int(rb.set)
		}
	}
	if maxSet < 0 {
		return nil, nil
	}

	layouts := make([]*wgpu.BindGroupLayout, maxSet+1)
	for set := 0; set <= maxSet; set++ {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, 4)
		for _, rb := range p.bindings {
			if int(rb.set) != set {
				continue
			}
			entry := wgpu.BindGroupLayoutEntry{
				Binding:    rb.binding,
				Visibility: wgpuShaderStages(rb.stages),
			}
			switch rb.family {
			case BindingFamilyUniformBuffer:
				entry.Buffer.Type = wgpu.BufferBindingTypeUniform
				entry.Buffer.MinBindingSize = uint64(rb.blockSize)
			case BindingFamilyStorageBuffer:
				// Storage buffers visible to the vertex stage must be
				// read-only under WebGPU rules.
				if rb.stages&shader.StageFlagVertex != 0 {
					entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
				} else {
					entry.Buffer.Type = wgpu.BufferBindingTypeStorage
				}
			case BindingFamilySampler:
				entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
				entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
				entries = append(entries, entry)
				entry = wgpu.BindGroupLayoutEntry{
					Binding:    rb.binding + 1,
					Visibility: wgpuShaderStages(rb.stages),
				}
				entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
			}
			entries = append(entries, entry)
		}
		layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s-set%d", label, set),
			Entries: entries,
		})
		if err != nil {
			releaseBindGroupLayouts(layouts)
			return nil, fmt.Errorf("create bind group layout for set %d: %w", set, err)
		}
		layouts[set] = layout
	}
	return layouts, nil
}

func releaseBindGroupLayouts(layouts []*wgpu.BindGroupLayout) {
	for _, l := range layouts {
		if l != nil {
			l.Release()
		}
	}
}

// buildVertexLayouts converts the bound vertex declarations to WebGPU buffer
// layouts. Slots are positional: nil declarations below the highest bound one
// become empty placeholder layouts so buffer indices keep matching the
// context's input slots. When the program declares vertex attributes, streams
// are matched to shader locations by name and unmatched streams contribute
// stride only; without attribute metadata the declaration's own sequential
// locations are used.
func buildVertexLayouts(p *Program, decls []*VertexDeclaration) ([]wgpu.VertexBufferLayout, error) {
	lastBound := -1
	for i, decl := range decls {
		if decl != nil {
			lastBound = i
		}
	}
	if lastBound < 0 {
		return nil, nil
	}

	byName := make(map[string]uint32, len(p.attrs))
	for _, a := range p.attrs {
		byName[a.Name] = a.Location
	}

	layouts := make([]wgpu.VertexBufferLayout, 0, lastBound+1)
	for slot := 0; slot <= lastBound; slot++ {
		decl := decls[slot]
		if decl == nil {
			layouts = append(layouts, wgpu.VertexBufferLayout{})
			continue
		}
		attrs := make([]wgpu.VertexAttribute, 0, decl.StreamCount())
		for i := range decl.streams {
			s := &decl.streams[i]
			location := s.location
			if len(byName) > 0 {
				loc, ok := byName[s.Name]
				if !ok {
					continue
				}
				location = loc
			}
			format, err := wgpuVertexFormat(s.Type, s.Size, s.Normalize)
			if err != nil {
				return nil, fmt.Errorf("vertex slot %d stream %q: %w", slot, s.Name, err)
			}
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         format,
				Offset:         uint64(s.offset),
				ShaderLocation: location,
			})
		}
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: uint64(decl.Stride()),
			StepMode:    wgpuVertexStepMode(decl.StepFunction()),
			Attributes:  attrs,
		})
	}
	return layouts, nil
}

func (b *wgpuBackend) CreateRenderPipeline(desc RenderPipelineDesc) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := desc.Program
	vsModule, ok := p.modules[shader.StageVertex].(*wgpu.ShaderModule)
	if !ok || vsModule == nil {
		return nil, fmt.Errorf("%w: program %q has no compiled vertex stage", ErrInvalidParams, p.label)
	}

	layouts, err := b.buildBindGroupLayouts(p, desc.Label)
	if err != nil {
		return nil, err
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		releaseBindGroupLayouts(layouts)
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	vertexLayouts, err := buildVertexLayouts(p, desc.Layouts)
	if err != nil {
		pipelineLayout.Release()
		releaseBindGroupLayouts(layouts)
		return nil, err
	}

	state := &desc.State
	primitive := wgpu.PrimitiveState{
		Topology:  wgpuPrimitiveTopology(state.PrimitiveType),
		FrontFace: wgpuFrontFace(state.FaceWinding),
		CullMode:  wgpuCullMode(state.CullFaceEnabled, state.CullFaceType),
	}
	if primitive.Topology == wgpu.PrimitiveTopologyTriangleStrip {
		// Strip topologies must declare the index format they restart on.
		primitive.StripIndexFormat = wgpu.IndexFormatUint32
	}

	pipelineDesc := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vsModule,
			EntryPoint: p.entries[shader.StageVertex],
			Buffers:    vertexLayouts,
		},
		Primitive: primitive,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}

	if fsModule, ok := p.modules[shader.StageFragment].(*wgpu.ShaderModule); ok && fsModule != nil {
		targets := make([]wgpu.ColorTargetState, 0, len(desc.ColorFormats))
		for _, coreFormat := range desc.ColorFormats {
			format, err := wgpuTextureFormat(coreFormat)
			if err != nil {
				pipelineLayout.Release()
				releaseBindGroupLayouts(layouts)
				return nil, err
			}
			target := wgpu.ColorTargetState{
				Format:    format,
				WriteMask: wgpuColorWriteMask(state.WriteColorMask),
			}
			if state.BlendEnabled {
				component := wgpu.BlendComponent{
					SrcFactor: wgpuBlendFactor(state.BlendSrcFactor),
					DstFactor: wgpuBlendFactor(state.BlendDstFactor),
					Operation: wgpu.BlendOperationAdd,
				}
				target.Blend = &wgpu.BlendState{
					Color: component,
					Alpha: component,
				}
			}
			targets = append(targets, target)
		}
		pipelineDesc.Fragment = &wgpu.FragmentState{
			Module:     fsModule,
			EntryPoint: p.entries[shader.StageFragment],
			Targets:    targets,
		}
	}

	if desc.HasDepth {
		depthFormat, err := wgpuTextureFormat(desc.DepthFormat)
		if err != nil {
			pipelineLayout.Release()
			releaseBindGroupLayouts(layouts)
			return nil, err
		}
		depthCompare := wgpu.CompareFunctionAlways
		if state.DepthTestEnabled {
			depthCompare = wgpuCompareFunction(state.DepthTestFunc)
		}
		depthStencil := &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: state.WriteDepth,
			DepthCompare:      depthCompare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilReadMask:   0xff,
			StencilWriteMask:  0xff,
		}
		if state.StencilEnabled && formatHasStencil(desc.DepthFormat) {
			face := wgpu.StencilFaceState{
				Compare:     wgpuCompareFunction(state.StencilTestFunc),
				FailOp:      wgpuStencilOperation(state.StencilOpFail),
				DepthFailOp: wgpuStencilOperation(state.StencilOpDepthFail),
				PassOp:      wgpuStencilOperation(state.StencilOpPass),
			}
			depthStencil.StencilFront = face
			depthStencil.StencilBack = face
			depthStencil.StencilReadMask = uint32(state.StencilCompareMask)
			depthStencil.StencilWriteMask = uint32(state.StencilWriteMask)
		}
		pipelineDesc.DepthStencil = depthStencil
	}

	created, err := b.device.CreateRenderPipeline(pipelineDesc)
	pipelineLayout.Release()
	if err != nil {
		releaseBindGroupLayouts(layouts)
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	return &wgpuPipeline{
		render:     created,
		layouts:    layouts,
		stencilRef: uint32(state.StencilReference),
	}, nil
}

func (b *wgpuBackend) CreateComputePipeline(desc ComputePipelineDesc) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := desc.Program
	module, ok := p.modules[shader.StageCompute].(*wgpu.ShaderModule)
	if !ok || module == nil {
		return nil, fmt.Errorf("%w: program %q has no compiled compute stage", ErrInvalidParams, p.label)
	}

	layouts, err := b.buildBindGroupLayouts(p, desc.Label)
	if err != nil {
		return nil, err
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		releaseBindGroupLayouts(layouts)
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: p.entries[shader.StageCompute],
		},
	})
	pipelineLayout.Release()
	if err != nil {
		releaseBindGroupLayouts(layouts)
		return nil, fmt.Errorf("create compute pipeline: %w", err)
	}
	return &wgpuPipeline{compute: created, layouts: layouts}, nil
}

func (b *wgpuBackend) DestroyPipeline(native any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pipe, ok := native.(*wgpuPipeline)
	if !ok {
		return
	}
	if pipe.render != nil {
		pipe.render.Release()
		pipe.render = nil
	}
	if pipe.compute != nil {
		pipe.compute.Release()
		pipe.compute = nil
	}
	releaseBindGroupLayouts(pipe.layouts)
	pipe.layouts = nil
}

func (b *wgpuBackend) SurfaceFormat() TextureFormat {
	return coreTextureFormat(b.surfaceFormat)
}

func (b *wgpuBackend) SurfaceSize() (uint32, uint32) {
	return b.width, b.height
}

func (b *wgpuBackend) DepthStencilFormat() TextureFormat {
	return TextureFormatDepth24Stencil8
}

func (b *wgpuBackend) ResizeSurface(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width == 0 || height == 0 {
		return fmt.Errorf("%w: surface size %dx%d", ErrInvalidParams, width, height)
	}

	// The swapchain and depth attachment cannot be replaced while in use.
	b.device.Poll(true, nil)

	if b.depthView != nil {
		b.depthView.Release()
		b.depthView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
	return b.configureSurface(width, height)
}

func (b *wgpuBackend) BeginFrame() (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Guard against double acquisition when a prior frame was never
	// submitted; wgpu-native rejects overlapping surface acquisitions.
	if b.frameSurface != nil {
		return nil, fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("create surface view: %w", err)
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, fmt.Errorf("create command encoder: %w", err)
	}

	b.frameSurface = surfaceTexture
	b.frameView = view
	return &wgpuCommandBuffer{encoder: encoder}, nil
}

func (b *wgpuBackend) BeginRenderPass(cb any, target *RenderTarget, clear *ClearParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := cb.(*wgpuCommandBuffer)
	if !ok || c.encoder == nil {
		return fmt.Errorf("%w: no frame command buffer", ErrInvalidParams)
	}
	if c.pass != nil {
		c.pass.End()
		c.pass = nil
		c.bound = nil
	}

	colorLoad := wgpu.LoadOpLoad
	clearColor := wgpu.Color{}
	if clear != nil && clear.Flags&ClearColor != 0 {
		colorLoad = wgpu.LoadOpClear
		clearColor = wgpu.Color{
			R: float64(clear.Color[0]),
			G: float64(clear.Color[1]),
			B: float64(clear.Color[2]),
			A: float64(clear.Color[3]),
		}
	}

	var colors []wgpu.RenderPassColorAttachment
	if target.defaultTarget {
		if b.frameView == nil {
			return fmt.Errorf("no acquired surface view")
		}
		colors = []wgpu.RenderPassColorAttachment{{
			View:       b.frameView,
			LoadOp:     colorLoad,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clearColor,
		}}
	} else {
		colors = make([]wgpu.RenderPassColorAttachment, 0, len(target.colorTextures))
		for _, t := range target.colorTextures {
			wt, ok := t.handle.(*wgpuTexture)
			if !ok || wt.view == nil {
				return fmt.Errorf("%w: render target %q color attachment", ErrResourceDestroyed, target.label)
			}
			colors = append(colors, wgpu.RenderPassColorAttachment{
				View:       wt.view,
				LoadOp:     colorLoad,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: clearColor,
			})
		}
	}

	passDesc := &wgpu.RenderPassDescriptor{
		Label:            target.label,
		ColorAttachments: colors,
	}

	if target.hasDepth {
		depthView := b.depthView
		depthFormat := TextureFormatDepth24Stencil8
		if !target.defaultTarget {
			wt, ok := target.depthTexture.handle.(*wgpuTexture)
			if !ok || wt.view == nil {
				return fmt.Errorf("%w: render target %q depth attachment", ErrResourceDestroyed, target.label)
			}
			depthView = wt.view
			depthFormat = target.depthFormat
		}
		attachment := &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     wgpu.LoadOpLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		}
		if clear != nil && clear.Flags&ClearDepth != 0 {
			attachment.DepthLoadOp = wgpu.LoadOpClear
			attachment.DepthClearValue = clear.Depth
		}
		if formatHasStencil(depthFormat) {
			attachment.StencilLoadOp = wgpu.LoadOpLoad
			attachment.StencilStoreOp = wgpu.StoreOpStore
			if clear != nil && clear.Flags&ClearStencil != 0 {
				attachment.StencilLoadOp = wgpu.LoadOpClear
				attachment.StencilClearValue = uint32(clear.Stencil)
			}
		}
		passDesc.DepthStencilAttachment = attachment
	}

	c.pass = c.encoder.BeginRenderPass(passDesc)
	return nil
}

func (b *wgpuBackend) SetViewport(cb any, viewport Viewport) {
	c, ok := cb.(*wgpuCommandBuffer)
	if !ok || c.pass == nil || viewport.Width <= 0 || viewport.Height <= 0 {
		return
	}
	c.pass.SetViewport(
		float32(viewport.X), float32(viewport.Y),
		float32(viewport.Width), float32(viewport.Height),
		0, 1,
	)
}

func (b *wgpuBackend) SetScissor(cb any, rect ScissorRect) {
	c, ok := cb.(*wgpuCommandBuffer)
	if !ok || c.pass == nil || rect.Width <= 0 || rect.Height <= 0 {
		return
	}
	c.pass.SetScissorRect(
		uint32(max(rect.X, 0)), uint32(max(rect.Y, 0)),
		uint32(rect.Width), uint32(rect.Height),
	)
}

func (b *wgpuBackend) BindPipeline(cb any, p *Pipeline) {
	c, ok := cb.(*wgpuCommandBuffer)
	if !ok || c.pass == nil {
		return
	}
	pipe, ok := p.native.(*wgpuPipeline)
	if !ok || pipe.render == nil {
		return
	}
	c.pass.SetPipeline(pipe.render)
	c.pass.SetStencilReference(pipe.stencilRef)
	c.bound = pipe
}

func (b *wgpuBackend) BindVertexBuffer(cb any, slot uint32, handle any, offset uint32) {
	c, ok := cb.(*wgpuCommandBuffer)
	if !ok || c.pass == nil {
		return
	}
	wb, ok := handle.(*wgpuBuffer)
	if !ok || wb.buffer == nil {
		return
	}
	c.pass.SetVertexBuffer(slot, wb.buffer, uint64(offset), wgpu.WholeSize)
}

func (b *wgpuBackend) BindIndexBuffer(cb any, handle any, indexType IndexType) {
	c, ok := cb.(*wgpuCommandBuffer)
	if !ok || c.pass == nil {
		return
	}
	wb, ok := handle.(*wgpuBuffer)
	if !ok || wb.buffer == nil {
		return
	}
	c.pass.SetIndexBuffer(wb.buffer, wgpuIndexFormat(indexType), 0, wgpu.WholeSize)
}

// buildBindGroups creates one bind group per pipeline set from the resolved
// commit. Sets the commit has no resources for get an empty bind group so
// every layout in the pipeline is satisfied. Callers hold b.mu.
func (b *wgpuBackend) buildBindGroups(pipe *wgpuPipeline, commit *ResourceCommit) ([]*wgpu.BindGroup, error) {
	groups := make([]*wgpu.BindGroup, len(pipe.layouts))
	fail := func(err error) ([]*wgpu.BindGroup, error) {
		for _, g := range groups {
			if g != nil {
				g.Release()
			}
		}
		return nil, err
	}

	for set := range pipe.layouts {
		entries := make([]wgpu.BindGroupEntry, 0, 4)
		for _, bb := range commit.Buffers {
			if int(bb.Set) != set {
				continue
			}
			wb, ok := bb.Handle.(*wgpuBuffer)
			if !ok || wb.buffer == nil {
				return fail(fmt.Errorf("%w: buffer bound at set %d binding %d", ErrResourceDestroyed, bb.Set, bb.Binding))
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: bb.Binding,
				Buffer:  wb.buffer,
				Offset:  uint64(bb.Offset),
				Size:    uint64(bb.Size),
			})
		}
		for _, tb := range commit.Textures {
			if int(tb.Set) != set {
				continue
			}
			wt, ok := tb.Texture.handle.(*wgpuTexture)
			if !ok || wt.view == nil {
				return fail(fmt.Errorf("%w: texture bound at set %d binding %d", ErrResourceDestroyed, tb.Set, tb.Binding))
			}
			sampler, err := b.samplerFor(tb.Texture.samplerParams())
			if err != nil {
				return fail(err)
			}
			entries = append(entries,
				wgpu.BindGroupEntry{Binding: tb.Binding, TextureView: wt.view},
				wgpu.BindGroupEntry{Binding: tb.Binding + 1, Sampler: sampler},
			)
		}
		group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   commit.Program.label,
			Layout:  pipe.layouts[set],
			Entries: entries,
		})
		if err != nil {
			return fail(fmt.Errorf("create bind group for set %d: %w", set, err))
		}
		groups[set] = group
	}
	return groups, nil
}

func (b *wgpuBackend) CommitResources(cb any, commit *ResourceCommit) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := cb.(*wgpuCommandBuffer)
	if !ok || c.pass == nil {
		return fmt.Errorf("%w: no active render pass", ErrInvalidParams)
	}
	if c.bound == nil {
		return fmt.Errorf("%w: no pipeline bound", ErrInvalidParams)
	}
	groups, err := b.buildBindGroups(c.bound, commit)
	if err != nil {
		return err
	}
	for set, group := range groups {
		c.pass.SetBindGroup(uint32(set), group, nil)
		c.releases = append(c.releases, group)
	}
	return nil
}

func (b *wgpuBackend) Draw(cb any, firstVertex, vertexCount, instanceCount uint32) {
	c, ok := cb.(*wgpuCommandBuffer)
	if !ok || c.pass == nil {
		return
	}
	c.pass.Draw(vertexCount, instanceCount, firstVertex, 0)
}

func (b *wgpuBackend) DrawIndexed(cb any, firstIndex, indexCount, instanceCount uint32) {
	c, ok := cb.(*wgpuCommandBuffer)
	if !ok || c.pass == nil {
		return
	}
	c.pass.DrawIndexed(indexCount, instanceCount, firstIndex, 0, 0)
}

func (b *wgpuBackend) DispatchCompute(cb any, p *Pipeline, commit *ResourceCommit, workgroups [3]uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := cb.(*wgpuCommandBuffer)
	if !ok || c.encoder == nil {
		return fmt.Errorf("%w: no frame command buffer", ErrInvalidParams)
	}
	pipe, ok := p.native.(*wgpuPipeline)
	if !ok || pipe.compute == nil {
		return fmt.Errorf("%w: pipeline %016x is not a compute pipeline", ErrInvalidParams, p.Key())
	}

	if c.pass != nil {
		c.pass.End()
		c.pass = nil
		c.bound = nil
	}

	groups, err := b.buildBindGroups(pipe, commit)
	if err != nil {
		return err
	}
	pass := c.encoder.BeginComputePass(nil)
	pass.SetPipeline(pipe.compute)
	for set, group := range groups {
		pass.SetBindGroup(uint32(set), group, nil)
		c.releases = append(c.releases, group)
	}
	pass.DispatchWorkgroups(workgroups[0], workgroups[1], workgroups[2])
	pass.End()
	return nil
}

// releaseFrame drops everything held for the in-flight frame after a failed
// submit. Callers hold b.mu.
func (b *wgpuBackend) releaseFrame(c *wgpuCommandBuffer) {
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
	for _, r := range c.releases {
		r.Release()
	}
	c.releases = nil
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuBackend) Submit(cb any, onDone func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := cb.(*wgpuCommandBuffer)
	if !ok || c.encoder == nil {
		return fmt.Errorf("%w: no frame command buffer", ErrInvalidParams)
	}
	if c.pass != nil {
		c.pass.End()
		c.pass = nil
		c.bound = nil
	}

	commandBuffer, err := c.encoder.Finish(nil)
	if err != nil {
		b.releaseFrame(c)
		return fmt.Errorf("finish command encoder: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	c.encoder.Release()
	c.encoder = nil

	b.surface.Present()
	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil

	releases := c.releases
	c.releases = nil
	b.taskID++
	b.completions.SubmitTask(worker.Task{
		ID: b.taskID,
		Do: func() (any, error) {
			// Poll blocks until the device drains this frame's submission,
			// after which the transient bind groups are safe to release.
			b.device.Poll(true, nil)
			for _, r := range releases {
				r.Release()
			}
			onDone()
			return nil, nil
		},
	})
	return nil
}

func (b *wgpuBackend) WaitIdle() {
	b.device.Poll(true, nil)
}

func (b *wgpuBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.samplers {
		s.Release()
	}
	b.samplers = nil
	if b.depthView != nil {
		b.depthView.Release()
		b.depthView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
		b.queue = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
