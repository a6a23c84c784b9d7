package scope

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/internal/validate"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("scope: invalid config")

// Config is the tunable part of a scope renderer and its driver.
type Config struct {
	Targets TargetConfig `toml:"targets"`
	Optic   OpticConfig  `toml:"optic"`
	Driver  DriverConfig `toml:"driver"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

// TargetConfig selects the host resources a render uses.
type TargetConfig struct {
	Render int `toml:"render" range:"-1,255"`
	Color  int `toml:"color" range:"0,255"`
	Depth  int `toml:"depth" range:"0,255"`
	Effect int `toml:"effect" range:"0,1023"`
	// TextureWidth and TextureHeight resample the saved texture. Zero keeps
	// the target size.
	TextureWidth  int `toml:"texture_width" range:"0,8192"`
	TextureHeight int `toml:"texture_height" range:"0,8192"`
	// ClearColor is kept set (as RGBA) while a render is in flight.
	ClearColor [4]uint8 `toml:"clear_color"`
}

// OpticConfig describes the scope model.
type OpticConfig struct {
	RenderPlaneName string `toml:"render_plane_name"`
	CameraName      string `toml:"camera_name"`
	// Magnification is reached at full zoom.
	Magnification float64 `toml:"magnification" range:"1,100"`
}

// DriverConfig tunes the per-frame driver.
type DriverConfig struct {
	// Simple selects the silhouette-only render path.
	Simple        bool `toml:"simple"`
	LockTimeoutMS int  `toml:"lock_timeout_ms" range:"0,60000"`
	// Lookups of the scope nodes are retried on an exponential schedule.
	RetryInitialMS int     `toml:"retry_initial_ms" range:"1,60000"`
	RetryMaxMS     int     `toml:"retry_max_ms" range:"1,600000"`
	RetryJitter    float64 `toml:"retry_jitter" range:"0,1"`
}

// DefaultConfig returns the configuration matching the host's HUD glass
// target and main depth target.
func DefaultConfig() Config {
	return Config{
		Targets: TargetConfig{
			Render:     int(engine.TargetScope),
			Color:      int(engine.TargetHUDGlass),
			Depth:      int(engine.DepthMain),
			Effect:     int(engine.EffectVATSTarget),
			ClearColor: [4]uint8{51, 51, 51, 255},
		},
		Optic: OpticConfig{
			RenderPlaneName: DefaultRenderPlaneName,
			CameraName:      DefaultCameraName,
			Magnification:   4,
		},
		Driver: DriverConfig{
			LockTimeoutMS:  5,
			RetryInitialMS: 100,
			RetryMaxMS:     5000,
			RetryJitter:    0.5,
		},
		LogLevel: "info",
	}
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		errs = append(errs, err)
	}
	if c.Optic.RenderPlaneName == "" || c.Optic.CameraName == "" {
		errs = append(errs, errors.New("optic node names must not be empty"))
	}
	if c.Driver.RetryMaxMS < c.Driver.RetryInitialMS {
		errs = append(errs, fmt.Errorf("retry_max_ms (%d) is below retry_initial_ms (%d)", c.Driver.RetryMaxMS, c.Driver.RetryInitialMS))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

func (c *Config) clearColor() color.NRGBA {
	cc := c.Targets.ClearColor
	return color.NRGBA{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}
}

func (c *Config) textureSize() image.Point {
	return image.Point{X: c.Targets.TextureWidth, Y: c.Targets.TextureHeight}
}

func (c *Config) lockTimeout() time.Duration {
	return time.Duration(c.Driver.LockTimeoutMS) * time.Millisecond
}

// LoadConfig reads a TOML file over the defaults. Unknown keys are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as TOML.
func SaveConfig(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WatchConfig reloads path whenever it is written and sends every config
// that loads and validates. The channel keeps only the latest config and is
// closed once ctx is done.
func WatchConfig(ctx context.Context, path string, log *slog.Logger) (<-chan Config, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "scope-config")
	w, err := newFsWatcher()
	if err != nil {
		return nil, err
	}
	// Editors often replace the file, so the directory is watched.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}
	out := make(chan Config, 1)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := LoadConfig(path)
				if err != nil {
					log.Warn("ignoring config change", "err", err)
					continue
				}
				log.Info("config reloaded", "path", path)
				select {
				case <-out: // drop the stale one
				default:
				}
				out <- cfg
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher error", "err", err)
			}
		}
	}()
	return out, nil
}
