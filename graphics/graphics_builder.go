package graphics

import (
	"github.com/sirupsen/logrus"

	"github.com/Carmen-Shannon/gfx-go/logging"
	"github.com/Carmen-Shannon/gfx-go/profiler"
)

// ContextBuilderOption is a functional option applied to a context during construction via NewContext.
type ContextBuilderOption func(*context)

// WithFramesInFlight sets how many frames the CPU may record ahead of the GPU.
// The value is clamped to [1, 3]. Each in-flight frame carries its own scratch
// buffer and deferred destruction queue. When not specified, the default is 2.
//
// Parameters:
//   - count: the number of concurrent frames
//
// Returns:
//   - ContextBuilderOption: a function that applies the frames-in-flight option to a context
func WithFramesInFlight(count uint32) ContextBuilderOption {
	return func(c *context) {
		c.pendingFramesCount = &count
	}
}

// WithScratchBufferSize sets the initial per-frame scratch buffer capacity in
// bytes. The value is rounded up to the uniform alignment. Frames whose
// uniform traffic exceeds the capacity grow their scratch buffer on demand.
//
// Parameters:
//   - size: the initial capacity in bytes
//
// Returns:
//   - ContextBuilderOption: a function that applies the scratch size option to a context
func WithScratchBufferSize(size uint32) ContextBuilderOption {
	return func(c *context) {
		c.pendingScratchSize = &size
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - ContextBuilderOption: a function that applies the present mode option to a context
func WithPresentMode(mode PresentMode) ContextBuilderOption {
	return func(c *context) {
		c.pendingPresentMode = &mode
	}
}

// WithValidation enables backend validation layers where the backend supports
// them. Slower, but surfaces misuse as log output instead of undefined
// behavior.
//
// Parameters:
//   - enabled: true to enable validation
//
// Returns:
//   - ContextBuilderOption: a function that applies the validation option to a context
func WithValidation(enabled bool) ContextBuilderOption {
	return func(c *context) {
		c.pendingValidation = &enabled
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - ContextBuilderOption: a function that applies the force software renderer option to a context
func WithForceSoftwareRenderer(force bool) ContextBuilderOption {
	return func(c *context) {
		c.forceFallbackAdapter = force
	}
}

// WithDeviceBackend injects a pre-built device backend, bypassing backend
// construction from the backend type. The context takes ownership and
// releases it on Close.
//
// Parameters:
//   - backend: the backend to use
//
// Returns:
//   - ContextBuilderOption: a function that applies the backend option to a context
func WithDeviceBackend(backend Backend) ContextBuilderOption {
	return func(c *context) {
		c.pendingBackend = backend
	}
}

// WithLogger installs a caller-owned logger for the module's log output.
// When not specified, the shared default logger is used.
//
// Parameters:
//   - l: the logger to install, or nil to keep the default
//
// Returns:
//   - ContextBuilderOption: a function that applies the logger option to a context
func WithLogger(l *logrus.Logger) ContextBuilderOption {
	return func(_ *context) {
		if l != nil {
			logging.Set(l)
		}
	}
}

// WithProfiler attaches a frame profiler that accumulates per-frame draw,
// dispatch and pipeline counters.
//
// Parameters:
//   - p: the profiler to feed
//
// Returns:
//   - ContextBuilderOption: a function that applies the profiler option to a context
func WithProfiler(p *profiler.Profiler) ContextBuilderOption {
	return func(c *context) {
		c.pendingProfiler = p
	}
}

// WithConfig applies a loaded display configuration file to the context:
// frames in flight, scratch capacity, present mode, validation and adapter
// preference. Options given after WithConfig override individual fields.
//
// Parameters:
//   - cfg: the configuration to apply; nil applies nothing
//
// Returns:
//   - ContextBuilderOption: a function that applies the config option to a context
func WithConfig(cfg *Config) ContextBuilderOption {
	return func(c *context) {
		if cfg == nil {
			return
		}
		frames := cfg.FramesInFlight
		c.pendingFramesCount = &frames
		if cfg.ScratchBufferSize > 0 {
			scratch := cfg.ScratchBufferSize
			c.pendingScratchSize = &scratch
		}
		mode := cfg.presentMode()
		c.pendingPresentMode = &mode
		validation := cfg.Validation
		c.pendingValidation = &validation
		c.forceFallbackAdapter = cfg.SoftwareAdapter
	}
}
