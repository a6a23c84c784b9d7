package scope

import (
	"testing"
)

func TestTargetScopeUndoesInReverse(t *testing.T) {
	var order []int
	ts := &targetScope{}
	for i := 0; i < 3; i++ {
		ts.push(func() { order = append(order, i) })
	}
	ts.close()
	if len(order) != 3 || order[0] != 2 || order[1] != 1 || order[2] != 0 {
		t.Fatalf("expected undo order [2 1 0], but got %v", order)
	}
	ts.close()
	if len(order) != 3 {
		t.Fatalf("expected a second close to do nothing")
	}
}

func TestOverridesRestoreAppliedStagesOnly(t *testing.T) {
	f := newFixture(t)
	h := f.host
	before := f.snapshot()
	lod := h.ObjectLODRoot()
	refs := lod.AV().Refs()

	o := &overrides{host: h}
	o.suppress()
	if !lod.AV().AppCulled() || !h.Grass.AppCulled() || h.Distant.Enabled {
		t.Fatalf("expected the LOD root and grass culled and the distant renderer off")
	}
	if lod.AV().Refs() != refs+1 {
		t.Fatalf("expected the LOD root to be referenced while suppressed")
	}
	// A camera bound by someone else after suppress must survive restore.
	other := h.PrimaryCamera
	h.Graphics.SetCameraData(nil)
	o.restore()
	if h.Graphics.CameraData() != nil {
		t.Fatalf("expected the camera binding to be left alone")
	}
	h.Graphics.SetCameraData(other)
	checkRestored(t, before, f.snapshot())
	if lod.AV().Refs() != refs {
		t.Fatalf("expected %d references on the LOD root, but got %d", refs, lod.AV().Refs())
	}
	o.restore()
	checkRestored(t, before, f.snapshot())
}
