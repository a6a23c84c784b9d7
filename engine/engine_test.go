package engine

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"
	"time"

	"github.com/Yeicor/sdfx-scope/refcount"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func near(a, b v3.Vec) bool {
	return a.Sub(b).Length() < 1e-9
}

func TestTransformInverse(t *testing.T) {
	tr := Transform{
		Rotate:    Quat{V: v3.Vec{Z: math.Sin(math.Pi / 8)}, R: math.Cos(math.Pi / 8)}.Mat3(),
		Translate: v3.Vec{X: 1, Y: 2, Z: 3},
		Scale:     2,
	}
	p := v3.Vec{X: -4, Y: 0.5, Z: 7}
	got := tr.Inverse().Apply(tr.Apply(p))
	if !near(got, p) {
		t.Fatalf("expected %v, but got %v", p, got)
	}
	id := tr.Compose(tr.Inverse())
	if !near(id.Translate, v3.Vec{}) || math.Abs(id.Scale-1) > 1e-12 {
		t.Fatalf("expected the identity, but got %+v", id)
	}
}

func TestQuatZeroIsIdentity(t *testing.T) {
	if (Quat{}).Mat3() != Identity3() {
		t.Fatalf("expected the zero quaternion to map to the identity")
	}
}

func TestNodeChildrenReferences(t *testing.T) {
	root := NewNode("root", 2)
	child := NewNode("child", 0)
	root.AttachChild(child)
	if child.Refs() != 1 || child.Parent() != root {
		t.Fatalf("expected child to be referenced once by root, but got %d refs", child.Refs())
	}
	other := NewNode("other", 0)
	other.AttachChild(child)
	if child.Refs() != 1 || child.Parent() != other || len(root.Children()) != 0 {
		t.Fatalf("expected reattaching to move the reference, but got %d refs", child.Refs())
	}
	other.SetAt(4, NewNode("slot4", 0))
	if other.ChildAt(3) != nil || other.ChildAt(4).AV().Name() != "slot4" {
		t.Fatalf("expected slot 4 to be filled and 3 to be empty")
	}
	if other.GetObjectByName("slot4") == nil || other.GetObjectByName("missing") != nil {
		t.Fatalf("unexpected name lookup result")
	}
	// Releasing the parent releases the whole subtree.
	refcount.AcquireCounted(other)
	refcount.ReleaseCounted(other)
	if !child.Deleted() {
		t.Fatalf("expected the child to be deleted with its parent")
	}
}

func TestCameraSetViewKeepsWorld(t *testing.T) {
	parent := NewNode("parent", 1)
	parent.Local.Translate = v3.Vec{X: 5}
	parent.Local.Rotate = Quat{V: v3.Vec{Z: math.Sin(math.Pi / 4)}, R: math.Cos(math.Pi / 4)}.Mat3()
	cam := NewCamera("cam")
	parent.AttachChild(cam)
	parent.Update()

	primary := NewCamera("primary")
	primary.Local.Translate = v3.Vec{Y: -10, Z: 3}
	primary.Frustum = AspectFrustum(1600, 900)
	primary.UpdateWorld(IdentityTransform())

	cam.SetView(primary.View())
	parent.Update()
	if !near(cam.Eye(), primary.Eye()) {
		t.Fatalf("expected the eye to survive a parent update, expected %v, but got %v", primary.Eye(), cam.Eye())
	}
	if cam.Frustum != primary.Frustum {
		t.Fatalf("expected the frustum to be copied")
	}
}

func TestCameraViewVisible(t *testing.T) {
	cam := NewCamera("cam")
	cam.UpdateWorld(IdentityTransform())
	view := cam.View()
	ahead := sdf.Box3{Min: v3.Vec{X: -1, Y: 9, Z: -1}, Max: v3.Vec{X: 1, Y: 11, Z: 1}}
	behind := sdf.Box3{Min: v3.Vec{X: -1, Y: -11, Z: -1}, Max: v3.Vec{X: 1, Y: -9, Z: 1}}
	side := sdf.Box3{Min: v3.Vec{X: 50, Y: 9, Z: -1}, Max: v3.Vec{X: 52, Y: 11, Z: 1}}
	if !view.Visible(ahead) {
		t.Fatalf("expected a box in front of the camera to be visible")
	}
	if view.Visible(behind) {
		t.Fatalf("expected a box behind the camera to be culled")
	}
	if view.Visible(side) {
		t.Fatalf("expected a box far to the side to be culled")
	}
}

func TestAspectFrustum(t *testing.T) {
	f := AspectFrustum(200, 100)
	if f.Left != -1 || f.Right != 1 || f.Top != 0.5 || f.Bottom != -0.5 || f.Near != 1 || f.Far != 10000 {
		t.Fatalf("unexpected frustum %+v", f)
	}
	m := f.Magnify(4)
	if m.Right != 0.25 || m.Near != 1 {
		t.Fatalf("unexpected magnified frustum %+v", m)
	}
}

func TestScreenQuadMaterialReleasesTexture(t *testing.T) {
	quad := NewScreenQuad("quad")
	tex := CreateEmptyTexture("tex", image.Point{})
	quad.Material().(*EffectMaterial).BaseTexture.Reset(tex)
	refcount.AcquireCounted(quad)
	refcount.ReleaseCounted(quad)
	if !tex.Deleted() {
		t.Fatalf("expected the quad to release its texture on deletion")
	}
}

func TestPlayerEquippedLockTimeout(t *testing.T) {
	p := NewPlayer(NewNode("player", 0))
	p.Equip(&Weapon{Name: "rifle", Scope: ScopeFlags{Thermal: true}})
	w, err := p.EquippedDefault(context.Background())
	if err != nil || w == nil || !w.Scope.Thermal {
		t.Fatalf("expected the thermal rifle, but got %v, %v", w, err)
	}
	p.equipLock.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err = p.EquippedDefault(ctx)
	p.equipLock.Unlock()
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, but got %v", err)
	}
}
