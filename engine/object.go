// Package engine models the host engine the scope renderer plugs into: its
// reference-counted scene graph, materials and textures, and the rendering
// services (render targets, shader accumulator, culling process, image-space
// effects) that a render pass is assembled from.
//
// Everything here is consumed by the scope package through plain Go types
// and interfaces. Package soft implements the services on the CPU.
package engine

import (
	"math"

	"github.com/Yeicor/sdfx-scope/refcount"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Flags are per-object scene graph flags.
type Flags uint32

const (
	// FlagAppCulled excludes an object and its subtree from culling passes.
	FlagAppCulled Flags = 1 << iota
	// FlagMultiBound marks objects that are culled by their multi-bound
	// volume instead of their own bound.
	FlagMultiBound
)

// Object is anything that can live in a scene graph.
type Object interface {
	refcount.Counted
	AV() *AVObject
	// UpdateWorld recomputes world transforms from the parent's.
	UpdateWorld(parent Transform)
	// WorldBound returns the world-space bound of the subtree and whether
	// the subtree has any geometry.
	WorldBound() (sdf.Box3, bool)
}

// AVObject is the state shared by every scene object.
type AVObject struct {
	refcount.Count
	name    string
	parent  *Node
	flags   Flags
	deleted bool

	Local Transform
	World Transform
}

func (o *AVObject) init(name string) {
	o.name = name
	o.Local = IdentityTransform()
	o.World = IdentityTransform()
}

// AV returns o.
func (o *AVObject) AV() *AVObject { return o }

// Name returns the object's name.
func (o *AVObject) Name() string { return o.name }

// Parent returns the node o is attached to, or nil. The parent is not
// referenced by the child.
func (o *AVObject) Parent() *Node { return o.parent }

// AppCulled reports whether FlagAppCulled is set.
func (o *AVObject) AppCulled() bool { return o.flags&FlagAppCulled != 0 }

// SetAppCulled sets or clears FlagAppCulled.
func (o *AVObject) SetAppCulled(culled bool) { o.SetFlag(FlagAppCulled, culled) }

// Flag reports whether f is set.
func (o *AVObject) Flag(f Flags) bool { return o.flags&f == f }

// SetFlag sets or clears f.
func (o *AVObject) SetFlag(f Flags, on bool) {
	if on {
		o.flags |= f
	} else {
		o.flags &^= f
	}
}

// Deleted reports whether the last reference to o has been released.
func (o *AVObject) Deleted() bool { return o.deleted }

// DeleteThis is called when the last reference is released.
func (o *AVObject) DeleteThis() { o.deleted = true }

// Node is an object with children. Children are referenced by their parent.
type Node struct {
	AVObject
	children []Object
}

// NewNode creates a node with room for capacity children.
func NewNode(name string, capacity int) *Node {
	n := &Node{children: make([]Object, 0, capacity)}
	n.init(name)
	return n
}

// AttachChild appends o to n's children, detaching it from its previous
// parent first.
func (n *Node) AttachChild(o Object) {
	refcount.AcquireCounted(o)
	if p := o.AV().parent; p != nil {
		p.DetachChild(o)
	}
	o.AV().parent = n
	n.children = append(n.children, o)
}

// SetAt places o at index i, growing the child array with empty slots as
// needed. The object previously at i is detached.
func (n *Node) SetAt(i int, o Object) {
	for len(n.children) <= i {
		n.children = append(n.children, nil)
	}
	if o != nil {
		refcount.AcquireCounted(o)
		if p := o.AV().parent; p != nil {
			p.DetachChild(o)
		}
		o.AV().parent = n
	}
	old := n.children[i]
	n.children[i] = o
	if old != nil {
		old.AV().parent = nil
		refcount.ReleaseCounted(old)
	}
}

// DetachChild removes o from n's children. It reports whether o was found.
// Indexed slots keep their position; the slot is emptied.
func (n *Node) DetachChild(o Object) bool {
	for i, c := range n.children {
		if c == o {
			n.children[i] = nil
			if i == len(n.children)-1 {
				n.children = n.children[:i]
			}
			o.AV().parent = nil
			refcount.ReleaseCounted(o)
			return true
		}
	}
	return false
}

// Children returns n's child array. Empty slots are nil.
func (n *Node) Children() []Object { return n.children }

// ChildAt returns the child at i, or nil when i is out of range or empty.
func (n *Node) ChildAt(i int) Object {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// GetObjectByName searches n's subtree (n included) depth-first.
func (n *Node) GetObjectByName(name string) Object {
	if n.name == name {
		return n
	}
	for _, c := range n.children {
		if c == nil {
			continue
		}
		if c.AV().name == name {
			return c
		}
		if sub, ok := c.(interface{ GetObjectByName(string) Object }); ok {
			if found := sub.GetObjectByName(name); found != nil {
				return found
			}
		}
	}
	return nil
}

// Update recomputes world transforms for n's subtree, using the parent's
// current world transform (or the identity for roots).
func (n *Node) Update() {
	parent := IdentityTransform()
	if n.parent != nil {
		parent = n.parent.World
	}
	n.UpdateWorld(parent)
}

// UpdateWorld implements Object.
func (n *Node) UpdateWorld(parent Transform) {
	n.World = parent.Compose(n.Local)
	for _, c := range n.children {
		if c != nil {
			c.UpdateWorld(n.World)
		}
	}
}

// WorldBound implements Object.
func (n *Node) WorldBound() (sdf.Box3, bool) {
	var box sdf.Box3
	found := false
	for _, c := range n.children {
		if c == nil {
			continue
		}
		b, ok := c.WorldBound()
		if !ok {
			continue
		}
		if !found {
			box, found = b, true
		} else {
			box = box.Extend(b)
		}
	}
	return box, found
}

// DeleteThis releases every child.
func (n *Node) DeleteThis() {
	children := n.children
	n.children = nil
	for _, c := range children {
		if c != nil {
			c.AV().parent = nil
			refcount.ReleaseCounted(c)
		}
	}
	n.AVObject.DeleteThis()
}

// Frustum describes a perspective view volume in camera space. The side
// planes are given at distance 1 from the eye.
type Frustum struct {
	Left, Right, Top, Bottom float64
	Near, Far                float64
}

// Viewport is a normalized screen rectangle.
type Viewport struct {
	Left, Right, Top, Bottom float64
}

// CameraView is the copyable state of a camera.
type CameraView struct {
	World   Transform
	Frustum Frustum
	Port    Viewport
	// Planes are the world-space culling planes derived from World and
	// Frustum, as (normal, offset) pairs.
	Planes []Plane
}

// Plane is a half space: points p with Normal·p >= Offset are inside.
type Plane struct {
	Normal v3.Vec
	Offset float64
}

// Camera is a scene object that can be bound as the active view. The camera
// looks down its local +Y axis with +Z up.
type Camera struct {
	AVObject
	Frustum Frustum
	Port    Viewport
}

// NewCamera creates a camera with a 90º frustum.
func NewCamera(name string) *Camera {
	c := &Camera{
		Frustum: Frustum{Left: -1, Right: 1, Top: 1, Bottom: -1, Near: 1, Far: 10000},
		Port:    Viewport{Left: 0, Right: 1, Top: 1, Bottom: 0},
	}
	c.init(name)
	return c
}

// UpdateWorld implements Object.
func (c *Camera) UpdateWorld(parent Transform) { c.World = parent.Compose(c.Local) }

// WorldBound implements Object. Cameras have no geometry.
func (c *Camera) WorldBound() (sdf.Box3, bool) { return sdf.Box3{}, false }

// Eye returns the camera position in world space.
func (c *Camera) Eye() v3.Vec { return c.World.Translate }

// View returns a snapshot of the camera state.
func (c *Camera) View() CameraView {
	return CameraView{World: c.World, Frustum: c.Frustum, Port: c.Port, Planes: c.planes()}
}

// SetView makes c look exactly like v. The local transform is solved against
// the current parent so that a later Update keeps the world transform.
func (c *Camera) SetView(v CameraView) {
	c.Frustum = v.Frustum
	c.Port = v.Port
	c.World = v.World
	if c.parent != nil {
		c.Local = c.parent.World.Inverse().Compose(v.World)
	} else {
		c.Local = v.World
	}
}

// planes derives the six culling planes of the frustum.
func (c *Camera) planes() []Plane {
	f := c.Frustum
	w := c.World
	eye := w.Translate
	fwd := w.Rotate.Apply(v3.Vec{Y: 1})
	right := w.Rotate.Apply(v3.Vec{X: 1})
	up := w.Rotate.Apply(v3.Vec{Z: 1})
	planes := []Plane{
		{Normal: fwd, Offset: fwd.Dot(eye) + f.Near},
		{Normal: fwd.Neg(), Offset: -(fwd.Dot(eye) + f.Far)},
	}
	// Side planes pass through the eye and the frustum edges at distance 1.
	side := func(edge, axis v3.Vec, sign float64) Plane {
		n := fwd.MulScalar(-edge.Dot(axis) * sign).Add(axis.MulScalar(sign))
		n = n.Normalize()
		return Plane{Normal: n, Offset: n.Dot(eye)}
	}
	planes = append(planes,
		side(right.MulScalar(f.Left), right, 1),
		side(right.MulScalar(f.Right), right, -1),
		side(up.MulScalar(f.Bottom), up, 1),
		side(up.MulScalar(f.Top), up, -1),
	)
	return planes
}

// Visible reports whether box intersects the camera's view volume. It is
// conservative: boxes near the corners may be reported visible.
func (v CameraView) Visible(box sdf.Box3) bool {
	for _, p := range v.Planes {
		// The box corner farthest along the plane normal.
		c := v3.Vec{X: box.Min.X, Y: box.Min.Y, Z: box.Min.Z}
		if p.Normal.X >= 0 {
			c.X = box.Max.X
		}
		if p.Normal.Y >= 0 {
			c.Y = box.Max.Y
		}
		if p.Normal.Z >= 0 {
			c.Z = box.Max.Z
		}
		if p.Normal.Dot(c) < p.Offset {
			return false
		}
	}
	return true
}

// AspectFrustum returns the frustum used by default scope cameras: near 1,
// far 10000, a unit-high window scaled horizontally by the back buffer
// aspect ratio.
func AspectFrustum(width, height int) Frustum {
	ratio := 1.0
	if height > 0 {
		ratio = float64(width) / float64(height)
	}
	return Frustum{
		Near:   1,
		Far:    10000,
		Left:   ratio * -0.5,
		Right:  ratio * 0.5,
		Bottom: -0.5,
		Top:    0.5,
	}
}

// FOV returns the horizontal field of view of f in degrees.
func (f Frustum) FOV() float64 {
	return (math.Atan(f.Right) - math.Atan(f.Left)) * 180 / math.Pi
}

// Magnify narrows f by the given magnification factor.
func (f Frustum) Magnify(m float64) Frustum {
	if m <= 0 {
		return f
	}
	f.Left /= m
	f.Right /= m
	f.Top /= m
	f.Bottom /= m
	return f
}
