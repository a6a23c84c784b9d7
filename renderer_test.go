package scope

import (
	"errors"
	"math"
	"testing"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/engine/soft"
)

func TestRenderRestoresHostState(t *testing.T) {
	for _, simple := range []bool{false, true} {
		f := newFixture(t)
		r := f.newRenderer(t)
		render := r.Render
		if simple {
			render = r.RenderSimple
		}
		before := f.snapshot()
		tex, err := render()
		if err != nil {
			t.Fatalf("expected no error (simple=%v), but got %v", simple, err)
		}
		if tex == nil || tex.Image == nil || tex.Name != ScopeTextureName {
			t.Fatalf("expected a %s texture with an image (simple=%v)", ScopeTextureName, simple)
		}
		checkRestored(t, before, f.snapshot())
		if n := r.Accumulator().Pending(); n != 0 {
			t.Fatalf("expected every pass to be cleared (simple=%v), but %d geometries are pending", simple, n)
		}
	}
}

func TestRenderRestoresOnTargetFailure(t *testing.T) {
	for _, simple := range []bool{false, true} {
		for _, busy := range []string{"depth", "color"} {
			f := newFixture(t)
			r := f.newRenderer(t)
			switch busy {
			case "depth":
				if err := f.backend.Targets.AcquireDepthStencil(engine.DepthMain); err != nil {
					t.Fatalf("expected no error, but got %v", err)
				}
			case "color":
				if err := f.backend.Targets.AcquireRenderTarget(engine.TargetHUDGlass); err != nil {
					t.Fatalf("expected no error, but got %v", err)
				}
			}
			render := r.Render
			if simple {
				render = r.RenderSimple
			}
			before := f.snapshot()
			tex, err := render()
			if !errors.Is(err, ErrTargetAcquisition) || !errors.Is(err, engine.ErrTargetInUse) {
				t.Fatalf("expected ErrTargetAcquisition with the %s target busy (simple=%v), but got %v", busy, simple, err)
			}
			if tex != nil {
				t.Fatalf("expected no texture on failure")
			}
			checkRestored(t, before, f.snapshot())
		}
	}
}

func TestRenderNotConstructed(t *testing.T) {
	f := newFixture(t)
	f.host.NewAccumulator = func() (engine.Accumulator, error) { return nil, ErrAllocation }
	r := f.newRenderer(t)
	before := f.snapshot()
	if _, err := r.Render(); !errors.Is(err, ErrNotConstructed) {
		t.Fatalf("expected ErrNotConstructed, but got %v", err)
	}
	if _, err := r.RenderSimple(); !errors.Is(err, ErrNotConstructed) {
		t.Fatalf("expected ErrNotConstructed, but got %v", err)
	}
	checkRestored(t, before, f.snapshot())
}

type failingImageSpace struct{ *soft.ImageSpace }

func (failingImageSpace) NewShaderParams() (*engine.ShaderParams, error) { return nil, ErrAllocation }

func TestRenderShaderParamsAreOwned(t *testing.T) {
	for _, fallback := range []bool{false, true} {
		f := newFixture(t)
		defaults := f.backend.ImageSpace.DefaultShaderParams()
		defaults.SetPixelConstant(1, [4]float32{7, 7, 7, 7})
		if fallback {
			f.host.ImageSpace = failingImageSpace{f.backend.ImageSpace}
		}
		r := f.newRenderer(t)
		if r.ShaderParams() == defaults {
			t.Fatalf("fallback %t: expected the renderer to own its shader params", fallback)
		}
		if _, err := r.Render(); err != nil {
			t.Fatalf("fallback %t: expected no error, but got %v", fallback, err)
		}
		if got := defaults.PixelConstant(0); got != ([4]float32{}) {
			t.Fatalf("fallback %t: expected the host defaults to stay untouched, but got %v", fallback, got)
		}
		texel := r.ShaderParams().PixelConstant(0)
		if texel[0] <= 0 || texel[1] <= 0 {
			t.Fatalf("fallback %t: expected the texel size in constant 0, but got %v", fallback, texel)
		}
		if got := r.ShaderParams().PixelConstant(1); got != ([4]float32{7, 7, 7, 7}) {
			t.Fatalf("fallback %t: expected the defaults to be copied, but got %v", fallback, got)
		}
	}
}

func TestRenderWithoutScopeNodes(t *testing.T) {
	f := newFixture(t)
	r := f.newRenderer(t, OptCameraOptions(WithNodeNames("NoPlane", "NoCamera")))
	before := f.snapshot()
	_, err := r.Render()
	if !errors.Is(err, ErrNotConstructed) || !errors.Is(err, ErrLookupMiss) {
		t.Fatalf("expected ErrNotConstructed wrapping ErrLookupMiss, but got %v", err)
	}
	checkRestored(t, before, f.snapshot())
}

func TestRenderDrawsScene(t *testing.T) {
	f := newFixture(t)
	r := f.newRenderer(t)
	acc := r.Accumulator().(*soft.Accumulator)
	runs := f.backend.ImageSpace.Runs()
	tex, err := r.Render()
	if err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	if acc.Drawn() == 0 {
		t.Fatalf("expected the scope scene to draw some geometry")
	}
	if f.backend.ImageSpace.Runs() != runs+1 {
		t.Fatalf("expected the scope effect to run once")
	}
	lit := 0
	b := tex.Image.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := tex.Image.NRGBAAt(x, y)
			if c.R > 0 || c.G > 0 || c.B > 0 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Fatalf("expected the scope texture to show something")
	}
	if c := tex.Image.NRGBAAt(0, 0); c.R != 0 || c.G != 0 || c.B != 0 {
		t.Fatalf("expected the scope mask to black out the corners, but got %v", c)
	}

	drawn := acc.Drawn()
	if _, err := r.RenderSimple(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	if acc.RenderMode() != engine.RenderVATSMask {
		t.Fatalf("expected the simple render to use the silhouette mode")
	}
	if acc.Drawn() < drawn {
		t.Fatalf("expected the draw count to only grow")
	}
}

func TestRenderMagnifies(t *testing.T) {
	f := newFixture(t)
	r := f.newRenderer(t)
	if _, err := r.Render(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	primary := f.host.PrimaryCamera.Frustum
	scope := r.Camera().CameraNode().Frustum
	if math.Abs(scope.Right*4-primary.Right) > 1e-9 || math.Abs(scope.Top*4-primary.Top) > 1e-9 {
		t.Fatalf("expected a 4x narrower frustum than %+v, but got %+v", primary, scope)
	}

	r.Camera().CurrentState().SetZoom(0)
	r.Camera().ZoomInput = 0
	if _, err := r.Render(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	scope = r.Camera().CameraNode().Frustum
	if math.Abs(scope.Right-primary.Right) > 1e-9 {
		t.Fatalf("expected no magnification at zoom 0, but got %+v", scope)
	}
}

func TestRenderWithDefaultGeometry(t *testing.T) {
	f := newFixture(t)
	r := f.newRenderer(t, OptDefaultGeometry(true))
	if !r.Camera().GeometryDefault() {
		t.Fatalf("expected the renderer camera to own its geometry")
	}
	before := f.snapshot()
	if _, err := r.Render(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	checkRestored(t, before, f.snapshot())
}

func TestRendererDestroy(t *testing.T) {
	f := newFixture(t)
	r, err := NewRenderer(f.host, OptLogger(quietLog), OptRenderTarget(engine.TargetScope))
	if err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	if r.RenderTarget() != engine.TargetScope {
		t.Fatalf("expected render target %d, but got %d", engine.TargetScope, r.RenderTarget())
	}
	acc := r.Accumulator().(*soft.Accumulator)
	r.Destroy()
	if !acc.Deleted() {
		t.Fatalf("expected the accumulator to be released")
	}
	if r.Accumulator() != nil || r.CullingProcess() != nil {
		t.Fatalf("expected the renderer to drop its services")
	}
	if _, err := r.Render(); !errors.Is(err, ErrNotConstructed) {
		t.Fatalf("expected ErrNotConstructed after Destroy, but got %v", err)
	}
}

func TestNewRendererRejectsBadInput(t *testing.T) {
	if _, err := NewRenderer(&engine.Host{}, OptLogger(quietLog)); !errors.Is(err, engine.ErrIncompleteHost) {
		t.Fatalf("expected ErrIncompleteHost, but got %v", err)
	}
	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.Optic.Magnification = 0
	if _, err := NewRenderer(f.host, OptLogger(quietLog), OptConfig(cfg)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, but got %v", err)
	}
}

func BenchmarkRender(b *testing.B) {
	f := newFixture(b)
	r := f.newRenderer(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Render(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRenderSimple(b *testing.B) {
	f := newFixture(b)
	r := f.newRenderer(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.RenderSimple(); err != nil {
			b.Fatal(err)
		}
	}
}
