package soft

import (
	"fmt"
	"image"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/fogleman/fauxgl"
	"golang.org/x/image/draw"
)

type colorTarget struct {
	size     image.Point
	acquired bool
	ctx      *fauxgl.Context
	// resolved holds the contents flushed out of ctx.
	resolved *image.NRGBA
}

// context returns the rasterizer context, rebuilding it only when the size
// changed.
func (t *colorTarget) context() *fauxgl.Context {
	if t.ctx == nil || t.ctx.Width != t.size.X || t.ctx.Height != t.size.Y {
		t.ctx = fauxgl.NewContext(t.size.X, t.size.Y)
		t.resolved = image.NewNRGBA(image.Rectangle{Max: t.size})
	}
	return t.ctx
}

func (t *colorTarget) resolve() {
	img := t.context().Image().(*image.NRGBA)
	copy(t.resolved.Pix[t.resolved.PixOffset(0, 0):], img.Pix[img.PixOffset(0, 0):])
}

type depthTarget struct {
	size     image.Point
	acquired bool
	buf      []float64
	saved    []float64 // set while bound with SetForceCopyRestore
}

// Targets implements engine.RenderTargets.
type Targets struct {
	device     *Device
	color      map[engine.TargetID]*colorTarget
	depth      map[engine.DepthTargetID]*depthTarget
	bound      [engine.ColorSlots]engine.TargetID
	boundDepth engine.DepthTargetID
	viewport   image.Rectangle
}

func newTargets(screen image.Point, device *Device) *Targets {
	t := &Targets{
		device:     device,
		color:      map[engine.TargetID]*colorTarget{},
		depth:      map[engine.DepthTargetID]*depthTarget{},
		boundDepth: engine.DepthMain,
		viewport:   image.Rectangle{Max: screen},
	}
	for _, id := range []engine.TargetID{engine.TargetMain, engine.TargetMainCopy, engine.TargetScope, engine.TargetHUDGlass} {
		t.declare(id, screen)
	}
	t.depth[engine.DepthMain] = &depthTarget{size: screen, buf: make([]float64, screen.X*screen.Y)}
	for i := range t.bound {
		t.bound[i] = engine.TargetNone
	}
	t.bound[0] = engine.TargetMain
	return t
}

func (t *Targets) declare(id engine.TargetID, size image.Point) {
	if ct, ok := t.color[id]; ok {
		ct.size = size
		return
	}
	t.color[id] = &colorTarget{size: size}
}

func (t *Targets) AcquireRenderTarget(id engine.TargetID) error {
	ct, ok := t.color[id]
	if !ok {
		return fmt.Errorf("%w: %d", engine.ErrUnknownTarget, id)
	}
	if ct.acquired {
		return fmt.Errorf("%w: %d", engine.ErrTargetInUse, id)
	}
	ct.acquired = true
	return nil
}

func (t *Targets) ReleaseRenderTarget(id engine.TargetID) {
	if ct, ok := t.color[id]; ok {
		ct.acquired = false
	}
}

func (t *Targets) AcquireDepthStencil(id engine.DepthTargetID) error {
	dt, ok := t.depth[id]
	if !ok {
		return fmt.Errorf("%w: depth %d", engine.ErrUnknownTarget, id)
	}
	if dt.acquired {
		return fmt.Errorf("%w: depth %d", engine.ErrTargetInUse, id)
	}
	dt.acquired = true
	return nil
}

func (t *Targets) ReleaseDepthStencil(id engine.DepthTargetID) {
	if dt, ok := t.depth[id]; ok {
		dt.acquired = false
	}
}

// Acquired reports whether a color target is currently acquired.
func (t *Targets) Acquired(id engine.TargetID) bool {
	ct, ok := t.color[id]
	return ok && ct.acquired
}

// DepthAcquired reports whether a depth target is currently acquired.
func (t *Targets) DepthAcquired(id engine.DepthTargetID) bool {
	dt, ok := t.depth[id]
	return ok && dt.acquired
}

func (t *Targets) CurrentRenderTarget(slot int) engine.TargetID {
	if slot < 0 || slot >= len(t.bound) {
		return engine.TargetNone
	}
	return t.bound[slot]
}

func (t *Targets) SetCurrentRenderTarget(slot int, id engine.TargetID, mode engine.SetMode) {
	if slot < 0 || slot >= len(t.bound) {
		return
	}
	t.bound[slot] = id
	ct, ok := t.color[id]
	if !ok || mode != engine.SetClear {
		return
	}
	ctx := ct.context()
	ctx.ClearColorBufferWith(fauxgl.MakeColor(t.device.clearColor))
	ctx.ClearDepthBuffer()
}

func (t *Targets) CurrentDepthStencilTarget() engine.DepthTargetID { return t.boundDepth }

func (t *Targets) SetCurrentDepthStencilTarget(id engine.DepthTargetID, mode engine.SetMode) {
	// Leaving a force-copy binding puts the original contents back.
	if prev, ok := t.depth[t.boundDepth]; ok && prev.saved != nil && (id != t.boundDepth || mode != engine.SetForceCopyRestore) {
		prev.buf, prev.saved = prev.saved, nil
	}
	t.boundDepth = id
	dt, ok := t.depth[id]
	if !ok {
		return
	}
	switch mode {
	case engine.SetForceCopyRestore:
		if dt.saved == nil {
			dt.saved = append([]float64(nil), dt.buf...)
		}
	case engine.SetClear:
		for i := range dt.buf {
			dt.buf[i] = 0
		}
	}
}

// DepthBuffer returns the contents of a depth target.
func (t *Targets) DepthBuffer(id engine.DepthTargetID) []float64 {
	if dt, ok := t.depth[id]; ok {
		return dt.buf
	}
	return nil
}

func (t *Targets) Viewport() image.Rectangle     { return t.viewport }
func (t *Targets) SetViewport(r image.Rectangle) { t.viewport = r }

func (t *Targets) SetViewportToRenderTarget() {
	if ct, ok := t.color[t.bound[0]]; ok {
		t.viewport = image.Rectangle{Max: ct.size}
	}
}

func (t *Targets) SaveRenderTargetToTexture(id engine.TargetID, dst *engine.Texture) error {
	ct, ok := t.color[id]
	if !ok {
		return fmt.Errorf("%w: %d", engine.ErrUnknownTarget, id)
	}
	ct.context()
	src := ct.resolved
	if dst.Image != nil && dst.Image.Bounds().Size() != src.Bounds().Size() {
		draw.BiLinear.Scale(dst.Image, dst.Image.Bounds(), src, src.Bounds(), draw.Src, nil)
		return nil
	}
	dst.Image = image.NewNRGBA(src.Bounds())
	copy(dst.Image.Pix, src.Pix)
	return nil
}

// Image returns the resolved contents of a color target.
func (t *Targets) Image(id engine.TargetID) *image.NRGBA {
	ct, ok := t.color[id]
	if !ok {
		return nil
	}
	ct.context()
	return ct.resolved
}

// slot0 returns the target bound to color slot 0, or nil.
func (t *Targets) slot0() *colorTarget {
	return t.color[t.bound[0]]
}
