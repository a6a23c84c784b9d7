package scope

import (
	"fmt"
	"image/color"
	"log/slog"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/refcount"
	"github.com/barkimedes/go-deepcopy"
)

// ScopeTextureName is the name of every texture produced by a render.
const ScopeTextureName = "ScopeTexture"

// Renderer renders the scene seen through the scope camera into a texture,
// borrowing the host's targets and global render state for the duration of
// each render.
type Renderer struct {
	host   *engine.Host
	cfg    Config
	camera *Camera
	cull   engine.CullingProcess
	acc    engine.Accumulator // referenced until Destroy
	params *engine.ShaderParams

	defaultGeometry bool
	cameraOpts      []CameraOption
	baseLog         *slog.Logger
	log             *slog.Logger
}

// NewRenderer creates a renderer for host. A culling process or accumulator
// that cannot be created is logged and left nil; rendering then fails with
// ErrNotConstructed.
func NewRenderer(host *engine.Host, opts ...Option) (*Renderer, error) {
	r := &Renderer{host: host, cfg: DefaultConfig(), baseLog: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.baseLog.With("component", "scope-renderer")
	if err := host.Check(); err != nil {
		return nil, err
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	r.log.Info("renderer creation starting")

	cull, err := host.NewCullingProcess()
	if err != nil || cull == nil {
		r.log.Error("culling process creation failed", "err", err)
	} else {
		r.cull = cull
	}

	camOpts := []CameraOption{
		WithPlayer(host.Player),
		WithScreenSize(host.ScreenSize),
		WithCameraLogger(r.baseLog),
		WithNodeNames(r.cfg.Optic.RenderPlaneName, r.cfg.Optic.CameraName),
	}
	r.camera = NewCamera(r.defaultGeometry, append(camOpts, r.cameraOpts...)...)

	params, err := host.ImageSpace.NewShaderParams()
	if err != nil || params == nil {
		r.log.Error("shader params creation failed, using a copy of the defaults", "err", err)
		// The renderer writes its own constants, the host's block stays untouched.
		params = deepcopy.MustAnything(host.ImageSpace.DefaultShaderParams()).(*engine.ShaderParams)
	}
	r.params = params

	acc, err := host.NewAccumulator()
	if err != nil || acc == nil {
		r.log.Error("accumulator creation failed", "err", err)
	} else {
		refcount.AcquireCounted(acc)
		r.acc = acc
		acc.SetZPrePass(true)
		acc.SetActiveShadowSceneNode(host.World)
		acc.SetSilhouetteColor(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	}
	if r.cull != nil && r.acc != nil {
		r.configureCulling()
	}
	r.log.Info("renderer creation complete")
	return r, nil
}

// configureCulling binds the culling process to the scope accumulator and
// camera.
func (r *Renderer) configureCulling() {
	r.cull.SetAccumulator(r.acc)
	r.cull.SetCullMode(engine.CullIgnoreMultiBounds)
	r.cull.SetCameraRelatedUpdates(false)
	r.cull.SetCamera(r.camera.CameraNode())
}

// Camera returns the scope camera.
func (r *Renderer) Camera() *Camera { return r.camera }

// RenderTarget returns the configured render target identifier.
func (r *Renderer) RenderTarget() engine.TargetID { return engine.TargetID(r.cfg.Targets.Render) }

// Config returns the current configuration.
func (r *Renderer) Config() Config { return r.cfg }

// SetConfig replaces the configuration used by later renders. Node names
// only apply to lookups made after the change.
func (r *Renderer) SetConfig(cfg Config) {
	r.cfg = cfg
	r.camera.planeName, r.camera.cameraName = cfg.Optic.RenderPlaneName, cfg.Optic.CameraName
}

// Accumulator returns the scope accumulator, or nil.
func (r *Renderer) Accumulator() engine.Accumulator { return r.acc }

// ShaderParams returns the constants handed to the scope effect.
func (r *Renderer) ShaderParams() *engine.ShaderParams { return r.params }

// CullingProcess returns the scope culling process, or nil.
func (r *Renderer) CullingProcess() engine.CullingProcess { return r.cull }

// Render draws the portal always-render objects, the portal-shared subtree
// and the multi-bound subtree of the world as seen through the scope, runs
// the scope image-space effect and returns the result as a new texture.
// Every host global it changes is restored before it returns, whether it
// fails or not.
func (r *Renderer) Render() (*engine.Texture, error) { return r.render(false) }

// RenderSimple is a cheaper Render: only the multi-bound subtree is drawn, as
// silhouettes, without z-prepass or decal passes.
func (r *Renderer) RenderSimple() (*engine.Texture, error) { return r.render(true) }

func (r *Renderer) render(simple bool) (*engine.Texture, error) {
	if r.cull == nil || r.acc == nil {
		return nil, fmt.Errorf("%w: missing culling process or accumulator", ErrNotConstructed)
	}
	r.camera.UpdateCamera()
	cam := r.camera.CameraNode()
	if cam == nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConstructed, ErrLookupMiss)
	}
	h := r.host
	r.log.Debug("render starting", "simple", simple)

	o := &overrides{host: h}
	defer o.restore()
	defer func() {
		r.acc.ClearActivePasses()
		r.acc.ClearGroupPasses()
	}()

	o.suppress()
	r.swapCamera(cam)
	o.bindCamera(cam)
	o.overrideGlobals(r.cfg.clearColor())

	ts := &targetScope{targets: h.Targets, graphics: h.Graphics}
	defer ts.close()
	ts.keepViewport()

	r.configureCulling()
	if simple {
		r.acc.SetRenderMode(engine.RenderVATSMask)
	} else {
		r.acc.SetRenderMode(engine.RenderScreenSplatter)
	}
	r.acc.SetEyePosition(cam.Eye())
	h.Device.ResetZPrePass()
	if !simple {
		if h.Portals != nil {
			r.cull.AccumulateSceneArray(h.Portals.AlwaysRender)
		}
		r.cull.AccumulateScene(h.World.ChildAt(engine.ChildPortalShared))
	}
	r.cull.AccumulateScene(h.World.ChildAt(engine.ChildMultiBound))
	if !simple {
		h.World.ProcessQueuedLights(r.cull)
	}
	h.Device.ResetState()

	target := engine.TargetID(r.cfg.Targets.Color)
	depth := engine.DepthTargetID(r.cfg.Targets.Depth)
	if err := ts.acquireDepth(depth); err != nil {
		r.log.Warn("could not acquire the depth target", "err", err)
		return nil, err
	}
	if err := ts.acquireColor(target); err != nil {
		r.log.Warn("could not acquire the render target", "err", err)
		return nil, err
	}
	r.drawScene(ts, cam, target, depth, simple)

	tex := engine.CreateEmptyTexture(ScopeTextureName, r.cfg.textureSize())
	if vp := h.Targets.Viewport(); vp.Dx() > 0 && vp.Dy() > 0 {
		r.params.SetPixelConstant(0, [4]float32{1 / float32(vp.Dx()), 1 / float32(vp.Dy()), 0, 0})
	}
	if err := h.ImageSpace.RenderEffect(engine.EffectID(r.cfg.Targets.Effect), target, r.params); err != nil {
		r.log.Warn("scope effect failed", "err", err)
		return nil, fmt.Errorf("scope effect: %w", err)
	}
	if err := h.Targets.SaveRenderTargetToTexture(target, tex); err != nil {
		return nil, fmt.Errorf("saving the scope texture: %w", err)
	}
	r.log.Debug("render complete", "simple", simple)
	return tex, nil
}

// swapCamera points cam like the primary camera, narrowed by the optic
// magnification scaled by the zoom of the active mode.
func (r *Renderer) swapCamera(cam *engine.Camera) {
	view := r.host.PrimaryCamera.View()
	zoom := float64(1)
	if s := r.camera.CurrentState(); s != nil {
		zoom = float64(s.Zoom())
	}
	view.Frustum = view.Frustum.Magnify(1 + (r.cfg.Optic.Magnification-1)*zoom)
	cam.SetView(view)
}

// drawScene binds the targets and draws the accumulated passes into target.
func (r *Renderer) drawScene(ts *targetScope, cam *engine.Camera, target engine.TargetID, depth engine.DepthTargetID, simple bool) {
	h := r.host
	ts.bindDepth(depth, engine.SetForceCopyRestore)
	ts.bindColor(0, target, engine.SetClear)
	if !simple {
		ts.bindColor(1, engine.TargetNone, engine.SetClear) // normal
		ts.bindColor(2, engine.TargetNone, engine.SetClear) // environment
		ts.bindColor(3, engine.TargetNone, engine.SetClear)
		if h.DeferredRGBEmit {
			ts.bindColor(4, engine.TargetNone, engine.SetClear) // glow
		}
		ts.bindColor(5, engine.TargetNone, engine.SetRestore)
	}
	ts.viewportToTarget()
	h.Device.SetClearColor(color.NRGBA{})
	h.Device.Clear()
	h.Device.Flush()

	ts.bindCamera(cam)
	if !simple {
		h.Device.DoZPrePass()
		r.acc.RenderOpaqueDecals()
	}
	r.acc.RenderBatches()
	if !simple {
		r.acc.RenderBlendedDecals()
	}
	h.Device.Flush()
	h.Device.ResetZPrePass()
	h.Device.SetClearColor(r.cfg.clearColor())
	r.acc.ClearEffectPasses()
	r.acc.ClearActivePasses()
}

// Destroy releases the accumulator and the culling process, then destroys
// the camera.
func (r *Renderer) Destroy() {
	r.log.Info("renderer destroy starting")
	if r.acc != nil {
		refcount.ReleaseCounted(r.acc)
		r.acc = nil
	}
	r.cull = nil
	r.camera.Destroy()
	r.log.Info("renderer destroy complete")
}
