package scope

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/engine/soft"
	"github.com/Yeicor/sdfx-scope/internal/frame"
)

func newTestDriver(t *testing.T, f *fixture, cfg Config) *Driver {
	t.Helper()
	d := NewDriver(f.host, cfg, quietLog)
	t.Cleanup(d.DestroyRenderer)
	return d
}

func scopePlane(t *testing.T, f *fixture) *engine.EffectMaterial {
	t.Helper()
	g, ok := f.host.Player.GetByName(soft.RenderPlaneName).(*engine.Geometry)
	if !ok {
		t.Fatalf("expected the demo player to carry a render plane")
	}
	return g.Material().(*engine.EffectMaterial)
}

func TestDriverWithoutRenderer(t *testing.T) {
	f := newFixture(t)
	d := newTestDriver(t, f, DefaultConfig())
	if err := d.Frame(context.Background(), frame.Args{}); !errors.Is(err, ErrNotConstructed) {
		t.Fatalf("expected ErrNotConstructed, but got %v", err)
	}
	if d.Stats().Skipped != 1 {
		t.Fatalf("expected the frame to be counted as skipped")
	}
}

func TestDriverCreateRendererTwice(t *testing.T) {
	f := newFixture(t)
	d := newTestDriver(t, f, DefaultConfig())
	if err := d.CreateRenderer(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	r := d.Renderer()
	if err := d.CreateRenderer(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	if d.Renderer() != r || !d.Initialized() {
		t.Fatalf("expected the existing renderer to be kept")
	}
	d.DestroyRenderer()
	if d.Initialized() {
		t.Fatalf("expected no renderer after DestroyRenderer")
	}
}

func TestDriverFrameComposites(t *testing.T) {
	f := newFixture(t)
	d := newTestDriver(t, f, DefaultConfig())
	if err := d.CreateRenderer(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	m := scopePlane(t, f)
	before := f.snapshot()
	if err := d.Frame(context.Background(), frame.Args{}); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	checkRestored(t, before, f.snapshot())
	first := d.Texture()
	if first == nil || m.Texture() != first {
		t.Fatalf("expected the scope texture on the render plane")
	}
	if first.Refs() != 2 {
		t.Fatalf("expected the driver and the material to reference the texture, but got %d references", first.Refs())
	}

	if err := d.Frame(context.Background(), frame.Args{Simple: true}); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	if !first.Deleted() {
		t.Fatalf("expected the previous texture to be released")
	}
	if m.Texture() != d.Texture() {
		t.Fatalf("expected the new texture on the render plane")
	}
	if s := d.Stats(); s.Frames != 2 || s.Rendered != 2 {
		t.Fatalf("expected 2 rendered frames, but got %+v", s)
	}

	d.DestroyRenderer()
	if d.Texture() != nil {
		t.Fatalf("expected the driver to drop its texture")
	}
	if m.Texture() == nil {
		t.Fatalf("expected the material to keep its own reference")
	}
}

func TestDriverKeepsTextureOnFailure(t *testing.T) {
	f := newFixture(t)
	d := newTestDriver(t, f, DefaultConfig())
	if err := d.CreateRenderer(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	if err := d.Frame(context.Background(), frame.Args{}); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	kept := d.Texture()
	if err := f.backend.Targets.AcquireRenderTarget(engine.TargetHUDGlass); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	err := d.Frame(context.Background(), frame.Args{})
	if !errors.Is(err, ErrTargetAcquisition) {
		t.Fatalf("expected ErrTargetAcquisition, but got %v", err)
	}
	if d.Texture() != kept || scopePlane(t, f).Texture() != kept || kept.Deleted() {
		t.Fatalf("expected the previous texture to stay on the render plane")
	}
	if s := d.Stats(); s.Skipped != 1 || !errors.Is(s.LastErr, ErrTargetAcquisition) {
		t.Fatalf("expected one skipped frame, but got %+v", s)
	}
}

func TestDriverFollowsWeapon(t *testing.T) {
	f := newFixture(t)
	d := newTestDriver(t, f, DefaultConfig())
	if err := d.CreateRenderer(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	cam := d.Renderer().Camera()

	f.host.Player.Equip(&engine.Weapon{Name: "Thermal", Scope: engine.ScopeFlags{Thermal: true, PIP: true}})
	if err := d.Frame(context.Background(), frame.Args{}); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	if !cam.IsInThermalMode() {
		t.Fatalf("expected the thermal mode")
	}

	f.host.Player.Equip(&engine.Weapon{Name: "NV", Scope: engine.ScopeFlags{NightVision: true}})
	if err := d.Frame(context.Background(), frame.Args{}); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	if !cam.IsInNightVisionMode() {
		t.Fatalf("expected the night vision mode")
	}

	f.host.Player.Equip(&engine.Weapon{Name: "Pistol"})
	if err := d.Frame(context.Background(), frame.Args{}); !errors.Is(err, ErrNoApplicableMode) {
		t.Fatalf("expected ErrNoApplicableMode, but got %v", err)
	}
	f.host.Player.Unequip()
	if err := d.Frame(context.Background(), frame.Args{}); !errors.Is(err, ErrNoApplicableMode) {
		t.Fatalf("expected ErrNoApplicableMode, but got %v", err)
	}
}

func TestDriverZoomInput(t *testing.T) {
	f := newFixture(t)
	d := newTestDriver(t, f, DefaultConfig())
	if err := d.CreateRenderer(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := d.Frame(context.Background(), frame.Args{ZoomInput: -0.25}); err != nil {
			t.Fatalf("expected no error, but got %v", err)
		}
	}
	if z := d.Renderer().Camera().CurrentState().Zoom(); z != 0.25 {
		t.Fatalf("expected zoom 0.25, but got %f", z)
	}
}

func TestDriverLookupBackoff(t *testing.T) {
	f := newFixture(t)
	f.host.Player = engine.NewPlayer(engine.NewNode("Unscoped", 0))
	f.host.Player.Equip(&engine.Weapon{Name: "Rifle", Scope: engine.ScopeFlags{PIP: true}})
	cfg := DefaultConfig()
	cfg.Driver.RetryInitialMS = 100
	cfg.Driver.RetryJitter = 0
	d := newTestDriver(t, f, cfg)
	if err := d.CreateRenderer(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}

	t0 := time.Unix(1000, 0)
	for _, tc := range []struct {
		after   time.Duration
		retries int
	}{
		{0, 0},
		{50 * time.Millisecond, 0},
		{100 * time.Millisecond, 1},
		{200 * time.Millisecond, 1},
		{250 * time.Millisecond, 2},
	} {
		err := d.Frame(context.Background(), frame.Args{Now: t0.Add(tc.after)})
		if !errors.Is(err, ErrLookupMiss) {
			t.Fatalf("expected ErrLookupMiss at +%s, but got %v", tc.after, err)
		}
		if d.Stats().LookupRetries != tc.retries {
			t.Fatalf("expected %d retries at +%s, but got %d", tc.retries, tc.after, d.Stats().LookupRetries)
		}
	}
}

func TestDriverAppliesConfigs(t *testing.T) {
	f := newFixture(t)
	d := newTestDriver(t, f, DefaultConfig())
	if err := d.CreateRenderer(); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	ch := make(chan Config, 1)
	d.FollowConfigs(ch)
	cfg := DefaultConfig()
	cfg.Driver.Simple = true
	cfg.Optic.Magnification = 2
	ch <- cfg
	if err := d.Frame(context.Background(), frame.Args{}); err != nil {
		t.Fatalf("expected no error, but got %v", err)
	}
	if !d.Config().Driver.Simple || d.Renderer().Config().Optic.Magnification != 2 {
		t.Fatalf("expected the new config to be applied")
	}
	if acc := d.Renderer().Accumulator(); acc.RenderMode() != engine.RenderVATSMask {
		t.Fatalf("expected the simple render path")
	}
	close(ch)
	if err := d.Frame(context.Background(), frame.Args{}); err != nil {
		t.Fatalf("expected no error after the config channel closed, but got %v", err)
	}
}
