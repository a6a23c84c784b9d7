package soft

import (
	"errors"
	"image"
	"image/color"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/refcount"
)

// SkyColor is the clear color of the main view.
var SkyColor = color.NRGBA{R: 50, G: 100, B: 150, A: 255}

type mainPass struct {
	acc  refcount.Handle[Accumulator, *Accumulator]
	cull *CullingProcess
}

// RenderMain draws the world and the player model from the primary camera
// into the main target and returns its contents. The bound camera and the
// clear color are left as they were.
func (b *Backend) RenderMain() (*image.NRGBA, error) {
	h := b.host
	if h.World == nil || h.PrimaryCamera == nil {
		return nil, errors.New("no world to render")
	}
	if b.main == nil {
		b.main = &mainPass{acc: refcount.New(b.NewAccumulator()), cull: NewCullingProcess()}
		b.main.acc.Get().SetZPrePass(true)
		b.main.cull.SetAccumulator(b.main.acc.Get())
	}
	acc, cull := b.main.acc.Get(), b.main.cull

	prevCamera := b.Graphics.CameraData()
	prevClear := b.Device.ClearColor()
	defer func() {
		b.Graphics.SetCameraData(prevCamera)
		b.Device.SetClearColor(prevClear)
	}()

	cam := h.PrimaryCamera
	cull.SetCamera(cam)
	h.World.ProcessQueuedLights(cull)
	cull.AccumulateScene(h.World)
	if h.Portals != nil {
		cull.AccumulateSceneArray(h.Portals.AlwaysRender)
	}
	if h.Player != nil && h.Player.Root3D != nil {
		cull.AccumulateScene(h.Player.Root3D)
	}

	b.Device.SetClearColor(SkyColor)
	b.Targets.SetCurrentRenderTarget(0, engine.TargetMain, engine.SetClear)
	b.Targets.SetViewportToRenderTarget()
	b.Graphics.SetCameraData(cam)
	acc.SetActiveShadowSceneNode(h.World)
	acc.SetRenderMode(engine.RenderNormal)
	acc.SetEyePosition(cam.Eye())
	b.Device.DoZPrePass()
	acc.RenderOpaqueDecals()
	acc.RenderBatches()
	acc.RenderBlendedDecals()
	b.Device.Flush()
	b.Device.ResetZPrePass()
	acc.ClearGroupPasses()
	return b.Targets.Image(engine.TargetMain), nil
}

// Close releases the resources of the main pass.
func (b *Backend) Close() {
	if b.main != nil {
		b.main.acc.Clear()
		b.main = nil
	}
}
