package scope

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/internal/frame"
	"github.com/cenkalti/backoff/v4"
)

// Driver runs the scope once per host frame: it owns at most one Renderer,
// follows the equipped weapon's optic, renders and composites the result
// onto the scope's render plane.
type Driver struct {
	host *engine.Host
	cfg  Config
	opts []Option

	renderer *Renderer
	texture  engine.TextureHandle

	flags     engine.ScopeFlags
	haveFlags bool

	lookup     *backoff.ExponentialBackOff
	nextLookup time.Time

	configs <-chan Config
	stats   frame.Stats
	baseLog *slog.Logger
	log     *slog.Logger
}

// NewDriver creates a driver with no renderer. Renderers are created with
// cfg, log (nil for the default logger) and then opts.
func NewDriver(host *engine.Host, cfg Config, log *slog.Logger, opts ...Option) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{
		host:    host,
		cfg:     cfg,
		opts:    opts,
		lookup:  newLookupBackOff(cfg),
		baseLog: log,
		log:     log.With("component", "scope-driver"),
	}
}

func newLookupBackOff(cfg Config) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(cfg.Driver.RetryInitialMS) * time.Millisecond
	b.MaxInterval = time.Duration(cfg.Driver.RetryMaxMS) * time.Millisecond
	b.RandomizationFactor = cfg.Driver.RetryJitter
	b.MaxElapsedTime = 0 // retry forever
	b.Reset()
	return b
}

// CreateRenderer creates the renderer. It does nothing if one exists.
func (d *Driver) CreateRenderer() error {
	if d.renderer != nil {
		d.log.Info("a renderer is already in place")
		return nil
	}
	d.log.Info("renderer creation starting")
	opts := append([]Option{OptConfig(d.cfg), OptLogger(d.baseLog)}, d.opts...)
	r, err := NewRenderer(d.host, opts...)
	if err != nil {
		d.log.Error("renderer creation failed", "err", err)
		return err
	}
	d.renderer = r
	d.haveFlags = false
	d.nextLookup = time.Time{}
	d.lookup.Reset()
	d.log.Info("renderer creation complete")
	return nil
}

// DestroyRenderer destroys the renderer, if any, and drops the last texture.
func (d *Driver) DestroyRenderer() {
	if d.renderer == nil {
		return
	}
	d.log.Info("renderer destroy starting")
	d.renderer.Destroy()
	d.renderer = nil
	d.texture.Clear()
	d.log.Info("renderer destroy complete")
}

// Initialized reports whether a renderer exists.
func (d *Driver) Initialized() bool { return d.renderer != nil }

// Renderer returns the renderer, or nil.
func (d *Driver) Renderer() *Renderer { return d.renderer }

// Texture returns the last texture composited, or nil.
func (d *Driver) Texture() *engine.Texture { return d.texture.Get() }

// Stats returns the frame counters.
func (d *Driver) Stats() frame.Stats { return d.stats }

// Config returns the configuration in use.
func (d *Driver) Config() Config { return d.cfg }

// FollowConfigs makes the driver apply configs received on ch between frames.
func (d *Driver) FollowConfigs(ch <-chan Config) { d.configs = ch }

func (d *Driver) applyConfigs() {
	for {
		select {
		case cfg, ok := <-d.configs:
			if !ok {
				d.configs = nil
				return
			}
			d.cfg = cfg
			d.lookup = newLookupBackOff(cfg)
			if d.renderer != nil {
				d.renderer.SetConfig(cfg)
			}
			d.log.Info("applied new config")
		default:
			return
		}
	}
}

// Frame runs one scope frame. On failure the previous texture stays on the
// render plane and the error says why this frame was skipped.
func (d *Driver) Frame(ctx context.Context, args frame.Args) error {
	d.applyConfigs()
	if d.renderer == nil {
		d.log.Warn("frame requested while there is no renderer")
		d.stats.Record(ErrNotConstructed)
		return ErrNotConstructed
	}
	err := d.frame(ctx, args)
	d.stats.Record(err)
	return err
}

func (d *Driver) frame(ctx context.Context, args frame.Args) error {
	cam := d.renderer.Camera()

	lockCtx, cancel := context.WithTimeout(ctx, d.cfg.lockTimeout())
	w, err := d.host.Player.EquippedDefault(lockCtx)
	cancel()
	if err != nil {
		d.log.Warn("could not read the equipped weapon", "err", err)
		return err
	}
	if w == nil || !w.Scope.Any() {
		d.haveFlags = false
		return fmt.Errorf("%w: no scoped weapon equipped", ErrNoApplicableMode)
	}

	now := args.Now
	if now.IsZero() {
		now = time.Now()
	}
	if err := d.lookupNodes(cam, now); err != nil {
		return err
	}
	if !d.haveFlags || w.Scope != d.flags {
		if err := cam.StartCorrectState(w.Scope); err != nil {
			return err
		}
		d.flags, d.haveFlags = w.Scope, true
	}
	cam.ZoomInput = args.ZoomInput

	render := d.renderer.Render
	if d.renderer.cfg.Driver.Simple || args.Simple {
		render = d.renderer.RenderSimple
	}
	tex, err := render()
	if err != nil {
		d.log.Warn("scope render failed, keeping the previous texture", "err", err)
		return err
	}
	d.texture.Reset(tex)
	return Composite(tex, cam.RenderPlane())
}

// lookupNodes makes sure the camera has its scope nodes, retrying failed
// lookups on the backoff schedule.
func (d *Driver) lookupNodes(cam *Camera, now time.Time) error {
	if cam.HasRenderPlane() && cam.CameraNode() != nil {
		return nil
	}
	if now.Before(d.nextLookup) {
		return fmt.Errorf("%w: next lookup in %s", ErrLookupMiss, d.nextLookup.Sub(now))
	}
	if !d.nextLookup.IsZero() {
		d.stats.LookupRetries++
	}
	if err := cam.Update3D(); err != nil {
		d.nextLookup = now.Add(d.lookup.NextBackOff())
		return err
	}
	d.lookup.Reset()
	d.nextLookup = time.Time{}
	return nil
}
