package soft

import (
	"image/color"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/fogleman/fauxgl"
)

// Device implements engine.Device.
type Device struct {
	targets    *Targets
	clearColor color.NRGBA
	zPrePass   bool
	flushes    int
}

func (d *Device) ClearColor() color.NRGBA     { return d.clearColor }
func (d *Device) SetClearColor(c color.NRGBA) { d.clearColor = c }

func (d *Device) Clear() {
	if ct := d.targets.slot0(); ct != nil {
		ct.context().ClearColorBufferWith(fauxgl.MakeColor(d.clearColor))
	}
}

// Flush resolves the slot 0 target, and copies its depth into the bound
// depth target when their sizes match.
func (d *Device) Flush() {
	d.flushes++
	ct := d.targets.slot0()
	if ct == nil {
		return
	}
	ct.resolve()
	if dt, ok := d.targets.depth[d.targets.boundDepth]; ok && len(dt.buf) == len(ct.ctx.DepthBuffer) {
		copy(dt.buf, ct.ctx.DepthBuffer)
	}
}

// Flushes returns the number of Flush calls so far.
func (d *Device) Flushes() int { return d.flushes }

func (d *Device) ResetState() {
	d.zPrePass = false
	d.targets.SetViewportToRenderTarget()
}

func (d *Device) ResetZPrePass() { d.zPrePass = false }
func (d *Device) DoZPrePass()    { d.zPrePass = true }

// GraphicsState implements engine.GraphicsState.
type GraphicsState struct {
	camera *engine.Camera
}

func (g *GraphicsState) CameraData() *engine.Camera     { return g.camera }
func (g *GraphicsState) SetCameraData(c *engine.Camera) { g.camera = c }
