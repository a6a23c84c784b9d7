package scope

import (
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/engine/soft"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	backend *soft.Backend
	world   *soft.DemoWorld
	host    *engine.Host
}

// newFixture builds the demo world with a PIP rifle equipped.
func newFixture(tb testing.TB) *fixture {
	tb.Helper()
	b := soft.New(image.Point{X: 64, Y: 48}, soft.OptLogger(quietLog))
	w, err := soft.NewDemoWorld(b, 8)
	if err != nil {
		tb.Fatalf("expected no error building the demo world, but got %v", err)
	}
	h := b.Host()
	h.Player.Equip(&engine.Weapon{Name: "Rifle", Scope: engine.ScopeFlags{PIP: true}})
	// Leave the host as the main pass would: primary camera bound.
	h.Graphics.SetCameraData(h.PrimaryCamera)
	depth := b.Targets.DepthBuffer(engine.DepthMain)
	for i := range depth {
		depth[i] = float64(i % 7)
	}
	tb.Cleanup(func() {
		w.Release()
		b.Close()
	})
	return &fixture{backend: b, world: w, host: h}
}

func (f *fixture) newRenderer(tb testing.TB, opts ...Option) *Renderer {
	tb.Helper()
	r, err := NewRenderer(f.host, append([]Option{OptLogger(quietLog)}, opts...)...)
	if err != nil {
		tb.Fatalf("expected no error creating the renderer, but got %v", err)
	}
	tb.Cleanup(r.Destroy)
	return r
}

// globals is everything a scope render may touch outside the renderer.
type globals struct {
	lodCulled, grassCulled bool
	distant                bool
	camera                 *engine.Camera
	lightUpdateDisabled    bool
	fade                   engine.FadeGlobals
	clearColor             color.NRGBA
	slots                  [engine.ColorSlots]engine.TargetID
	depthTarget            engine.DepthTargetID
	viewport               image.Rectangle
	hudAcquired            bool
	depthAcquired          bool
	depth                  []float64
}

func (f *fixture) snapshot() globals {
	h, t := f.host, f.backend.Targets
	g := globals{
		lodCulled:           h.ObjectLODRoot().AV().AppCulled(),
		grassCulled:         h.Grass.AppCulled(),
		distant:             h.Distant.Enabled,
		camera:              h.Graphics.CameraData(),
		lightUpdateDisabled: h.World.DisableLightUpdate,
		fade:                *h.Fade,
		clearColor:          h.Device.ClearColor(),
		depthTarget:         t.CurrentDepthStencilTarget(),
		viewport:            t.Viewport(),
		hudAcquired:         t.Acquired(engine.TargetHUDGlass),
		depthAcquired:       t.DepthAcquired(engine.DepthMain),
		depth:               append([]float64(nil), t.DepthBuffer(engine.DepthMain)...),
	}
	for i := range g.slots {
		g.slots[i] = t.CurrentRenderTarget(i)
	}
	return g
}

func checkRestored(t *testing.T, before, after globals) {
	t.Helper()
	if before.lodCulled != after.lodCulled || before.grassCulled != after.grassCulled {
		t.Fatalf("expected app-culled flags %v/%v, but got %v/%v", before.lodCulled, before.grassCulled, after.lodCulled, after.grassCulled)
	}
	if before.distant != after.distant {
		t.Fatalf("expected distant renderer enabled=%v, but got %v", before.distant, after.distant)
	}
	if before.camera != after.camera {
		t.Fatalf("expected the camera binding to be restored")
	}
	if before.lightUpdateDisabled != after.lightUpdateDisabled {
		t.Fatalf("expected DisableLightUpdate=%v, but got %v", before.lightUpdateDisabled, after.lightUpdateDisabled)
	}
	if before.fade != after.fade {
		t.Fatalf("expected fade globals %+v, but got %+v", before.fade, after.fade)
	}
	if before.clearColor != after.clearColor {
		t.Fatalf("expected clear color %v, but got %v", before.clearColor, after.clearColor)
	}
	if before.slots != after.slots || before.depthTarget != after.depthTarget {
		t.Fatalf("expected bindings %v/%d, but got %v/%d", before.slots, before.depthTarget, after.slots, after.depthTarget)
	}
	if before.viewport != after.viewport {
		t.Fatalf("expected viewport %v, but got %v", before.viewport, after.viewport)
	}
	if before.hudAcquired != after.hudAcquired || before.depthAcquired != after.depthAcquired {
		t.Fatalf("expected target acquisition %v/%v, but got %v/%v", before.hudAcquired, before.depthAcquired, after.hudAcquired, after.depthAcquired)
	}
	for i := range before.depth {
		if before.depth[i] != after.depth[i] {
			t.Fatalf("expected depth %d to be restored to %f, but got %f", i, before.depth[i], after.depth[i])
		}
	}
}
