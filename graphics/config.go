package graphics

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/Carmen-Shannon/gfx-go/common"
	"github.com/Carmen-Shannon/gfx-go/logging"
)

// Config is the on-disk display configuration, stored as TOML. Fields map to
// context builder options through WithConfig; out-of-range values are clamped
// rather than rejected so a hand-edited file cannot brick startup.
type Config struct {
	// FramesInFlight is how many frames the CPU records ahead of the GPU.
	FramesInFlight uint32

	// SwapInterval selects presentation pacing: 0 presents immediately,
	// anything else waits for vertical blank.
	SwapInterval uint32

	// ScratchBufferSize is the initial per-frame scratch capacity in bytes.
	// Zero keeps the built-in default.
	ScratchBufferSize uint32

	// Validation enables backend validation layers.
	Validation bool

	// SoftwareAdapter forces the software fallback adapter.
	SoftwareAdapter bool
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		FramesInFlight: defaultFramesInFlight,
		SwapInterval:   1,
	}
}

// normalize clamps loaded values into supported ranges.
func (cfg *Config) normalize() {
	cfg.FramesInFlight = common.Clamp(cfg.FramesInFlight, 1, maxFramesInFlight)
	if cfg.SwapInterval > 1 {
		cfg.SwapInterval = 1
	}
	if cfg.ScratchBufferSize > 0 {
		cfg.ScratchBufferSize = common.AlignUp(cfg.ScratchBufferSize, uniformBufferAlignment)
	}
}

// presentMode maps the swap interval to a backend present mode.
func (cfg *Config) presentMode() PresentMode {
	if cfg.SwapInterval == 0 {
		return PresentModeUncapped
	}
	return PresentModeVSync
}

// LoadConfig reads a display configuration from a TOML file. A missing file
// yields the defaults; a malformed file is a configuration error. Keys the
// current version does not know are ignored so configs survive upgrades in
// both directions.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - *Config: the loaded (or default) configuration, normalized
//   - error: an error if the file exists but cannot be parsed
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: parse config %s: %v", ErrInvalidParams, path, err)
	}
	for _, key := range meta.Undecoded() {
		logging.Warnf("config: ignoring unknown key %q in %s", key, path)
	}
	cfg.normalize()
	return cfg, nil
}

// SaveConfig writes a display configuration as TOML.
//
// Parameters:
//   - path: the file to write
//   - cfg: the configuration to store
//
// Returns:
//   - error: an error if encoding or writing failed
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidParams)
	}
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
