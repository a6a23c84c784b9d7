// Package soft implements the engine services on the CPU with fauxgl, and
// builds a small demo world out of sdfx meshes.
package soft

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/Yeicor/sdfx-scope/engine"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

//-----------------------------------------------------------------------------
// CONFIGURATION
//-----------------------------------------------------------------------------

// Option configures a Backend.
type Option func(b *Backend)

// OptTargetSize sets the size of a color target. Unset targets use the
// screen size.
func OptTargetSize(id engine.TargetID, size image.Point) Option {
	return func(b *Backend) {
		b.Targets.declare(id, size)
	}
}

// OptLightDir sets the direction of the default world light.
func OptLightDir(dir v3.Vec) Option {
	return func(b *Backend) {
		b.lightDir = dir.Normalize()
	}
}

// OptLogger sets the logger.
func OptLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		b.log = l.With("component", "soft")
	}
}

// OptDeferredRGBEmit enables the glow map color slot.
func OptDeferredRGBEmit(on bool) Option {
	return func(b *Backend) {
		b.host.DeferredRGBEmit = on
	}
}

//-----------------------------------------------------------------------------
// BACKEND
//-----------------------------------------------------------------------------

// Backend owns the software implementation of every engine service.
type Backend struct {
	Targets    *Targets
	Device     *Device
	Graphics   *GraphicsState
	ImageSpace *ImageSpace

	host     *engine.Host
	main     *mainPass
	lightDir v3.Vec
	log      *slog.Logger
}

// New creates a backend for a back buffer of the given size. The returned
// backend has no world; see NewDemoWorld.
func New(screen image.Point, opts ...Option) *Backend {
	b := &Backend{
		lightDir: v3.Vec{X: -1, Y: 1, Z: 1}.Normalize(),
		log:      slog.Default().With("component", "soft"),
	}
	b.Device = &Device{clearColor: color.NRGBA{A: 255}}
	b.Targets = newTargets(screen, b.Device)
	b.Device.targets = b.Targets
	b.Graphics = &GraphicsState{}
	b.ImageSpace = newImageSpace(b.Targets)
	b.host = &engine.Host{
		Fade:       &engine.FadeGlobals{FadeEnabled: true, DrawFadingEnabled: true, FadeEnableCounter: 1},
		Distant:    &engine.DistantObjectRenderer{Enabled: true},
		ScreenSize: screen,
		Targets:    b.Targets,
		Device:     b.Device,
		Graphics:   b.Graphics,
		ImageSpace: b.ImageSpace,
	}
	b.host.NewAccumulator = func() (engine.Accumulator, error) { return b.NewAccumulator(), nil }
	b.host.NewCullingProcess = func() (engine.CullingProcess, error) { return NewCullingProcess(), nil }
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Host returns the engine view of the backend.
func (b *Backend) Host() *engine.Host { return b.host }

// NewAccumulator creates an accumulator drawing into b's targets.
func (b *Backend) NewAccumulator() *Accumulator {
	return &Accumulator{
		targets:  b.Targets,
		device:   b.Device,
		graphics: b.Graphics,
		lightDir: b.lightDir,
		fade:     b.host.Fade,
		distant:  b.host.Distant,
	}
}
