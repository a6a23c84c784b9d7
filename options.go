package scope

import (
	"log/slog"

	"github.com/Yeicor/sdfx-scope/engine"
)

// Option configures a Renderer.
type Option func(r *Renderer)

// OptConfig replaces the whole configuration. Options applied later refine it.
func OptConfig(cfg Config) Option {
	return func(r *Renderer) {
		r.cfg = cfg
	}
}

// OptLogger sets the logger of the renderer and its camera.
func OptLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		r.baseLog = l
	}
}

// OptDefaultGeometry makes the camera create its own camera and render plane
// instead of looking them up in the player's model.
func OptDefaultGeometry(createDefault bool) Option {
	return func(r *Renderer) {
		r.defaultGeometry = createDefault
	}
}

// OptCameraOptions forwards options to the scope camera.
func OptCameraOptions(opts ...CameraOption) Option {
	return func(r *Renderer) {
		r.cameraOpts = append(r.cameraOpts, opts...)
	}
}

// OptRenderTarget sets the render target identifier reported by the renderer.
func OptRenderTarget(id engine.TargetID) Option {
	return func(r *Renderer) {
		r.cfg.Targets.Render = int(id)
	}
}

// OptSimple selects the silhouette-only render path in the driver.
func OptSimple(simple bool) Option {
	return func(r *Renderer) {
		r.cfg.Driver.Simple = simple
	}
}
