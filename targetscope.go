package scope

import (
	"fmt"
	"image/color"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/refcount"
)

//-----------------------------------------------------------------------------
// OVERRIDES
//-----------------------------------------------------------------------------

// overrides holds the saved value of every host global a scope render
// changes. restore puts them back in the inverse order they were applied,
// and only the stages that were applied.
type overrides struct {
	host  *engine.Host
	stage int

	// suppress
	lodRoot      engine.Object
	lodCulled    bool
	grass        *engine.Node
	grassCulled  bool
	distantWasOn bool
	// camera
	camera *engine.Camera
	// globals
	lightUpdateDisabled bool
	fade                engine.FadeGlobals
	clearColor          color.NRGBA
}

const (
	stageNone = iota
	stageSuppress
	stageCamera
	stageGlobals
)

// suppress app-culls the object LOD root and the grass node and disables the
// distant object renderer. Both nodes are referenced until restore.
func (o *overrides) suppress() {
	h := o.host
	if lod := h.ObjectLODRoot(); lod != nil {
		refcount.AcquireCounted(lod)
		o.lodRoot = lod
		o.lodCulled = lod.AV().AppCulled()
		lod.AV().SetAppCulled(true)
	}
	if h.Grass != nil {
		o.grass = refcount.Acquire(h.Grass)
		o.grassCulled = h.Grass.AppCulled()
		h.Grass.SetAppCulled(true)
	}
	o.distantWasOn = h.Distant.Enabled
	h.Distant.Enabled = false
	o.stage = stageSuppress
}

// bindCamera makes cam the active camera data.
func (o *overrides) bindCamera(cam *engine.Camera) {
	o.camera = o.host.Graphics.CameraData()
	o.host.Graphics.SetCameraData(cam)
	o.stage = stageCamera
}

// overrideGlobals turns distance fading off, freezes the world lights and
// sets the clear color.
func (o *overrides) overrideGlobals(cc color.NRGBA) {
	h := o.host
	o.fade = *h.Fade
	*h.Fade = engine.FadeGlobals{}
	o.lightUpdateDisabled = h.World.DisableLightUpdate
	h.World.DisableLightUpdate = true
	o.clearColor = h.Device.ClearColor()
	h.Device.SetClearColor(cc)
	o.stage = stageGlobals
}

func (o *overrides) restore() {
	h := o.host
	if o.stage >= stageGlobals {
		h.Device.SetClearColor(o.clearColor)
		h.World.DisableLightUpdate = o.lightUpdateDisabled
		*h.Fade = o.fade
	}
	if o.stage >= stageCamera {
		h.Graphics.SetCameraData(o.camera)
	}
	if o.stage >= stageSuppress {
		h.Distant.Enabled = o.distantWasOn
		if o.grass != nil {
			o.grass.SetAppCulled(o.grassCulled)
			refcount.Release(o.grass)
		}
		if o.lodRoot != nil {
			o.lodRoot.AV().SetAppCulled(o.lodCulled)
			refcount.ReleaseCounted(o.lodRoot)
		}
	}
	o.stage = stageNone
}

//-----------------------------------------------------------------------------
// TARGETS
//-----------------------------------------------------------------------------

// targetScope records how to undo every target acquisition and binding made
// during a render. close undoes them in reverse order.
type targetScope struct {
	targets  engine.RenderTargets
	graphics engine.GraphicsState
	undo     []func()
}

func (s *targetScope) push(f func()) { s.undo = append(s.undo, f) }

func (s *targetScope) acquireDepth(id engine.DepthTargetID) error {
	if err := s.targets.AcquireDepthStencil(id); err != nil {
		return fmt.Errorf("%w: %w", ErrTargetAcquisition, err)
	}
	s.push(func() { s.targets.ReleaseDepthStencil(id) })
	return nil
}

func (s *targetScope) acquireColor(id engine.TargetID) error {
	if err := s.targets.AcquireRenderTarget(id); err != nil {
		return fmt.Errorf("%w: %w", ErrTargetAcquisition, err)
	}
	s.push(func() { s.targets.ReleaseRenderTarget(id) })
	return nil
}

func (s *targetScope) bindDepth(id engine.DepthTargetID, mode engine.SetMode) {
	prev := s.targets.CurrentDepthStencilTarget()
	s.push(func() { s.targets.SetCurrentDepthStencilTarget(prev, engine.SetRestore) })
	s.targets.SetCurrentDepthStencilTarget(id, mode)
}

func (s *targetScope) bindColor(slot int, id engine.TargetID, mode engine.SetMode) {
	prev := s.targets.CurrentRenderTarget(slot)
	s.push(func() { s.targets.SetCurrentRenderTarget(slot, prev, engine.SetRestore) })
	s.targets.SetCurrentRenderTarget(slot, id, mode)
}

// keepViewport makes close put the current viewport back.
func (s *targetScope) keepViewport() {
	prev := s.targets.Viewport()
	s.push(func() { s.targets.SetViewport(prev) })
}

func (s *targetScope) viewportToTarget() {
	s.keepViewport()
	s.targets.SetViewportToRenderTarget()
}

func (s *targetScope) bindCamera(cam *engine.Camera) {
	prev := s.graphics.CameraData()
	s.push(func() { s.graphics.SetCameraData(prev) })
	s.graphics.SetCameraData(cam)
}

func (s *targetScope) close() {
	for i := len(s.undo) - 1; i >= 0; i-- {
		s.undo[i]()
	}
	s.undo = nil
}
