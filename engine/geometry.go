package engine

import (
	"image/color"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// PassGroup selects the accumulator pass a Geometry is drawn in.
type PassGroup int

const (
	PassOpaque PassGroup = iota
	PassOpaqueDecal
	PassBlendedDecal
)

// Geometry is a leaf object made of triangles in local space.
type Geometry struct {
	AVObject
	Triangles []*render.Triangle3
	// UVs holds one texture coordinate per triangle vertex. It may be nil.
	UVs   [][3]v2.Vec
	Color color.NRGBA
	Pass  PassGroup

	material Material
	bound    sdf.Box3
}

// NewGeometry creates a geometry from local-space triangles.
func NewGeometry(name string, tris []*render.Triangle3) *Geometry {
	g := &Geometry{Triangles: tris, Color: color.NRGBA{R: 235, G: 215, B: 175, A: 255}}
	g.init(name)
	g.computeBound()
	return g
}

// NewScreenQuad creates a unit quad on the XZ plane facing -Y, with texture
// coordinates spanning 0..1 and an effect material.
func NewScreenQuad(name string) *Geometry {
	a := v3.Vec{X: -1, Z: -1}
	b := v3.Vec{X: 1, Z: -1}
	c := v3.Vec{X: 1, Z: 1}
	d := v3.Vec{X: -1, Z: 1}
	g := NewGeometry(name, []*render.Triangle3{
		{V: [3]v3.Vec{a, b, c}},
		{V: [3]v3.Vec{a, c, d}},
	})
	g.UVs = [][3]v2.Vec{
		{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}},
		{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}},
	}
	g.SetMaterial(NewEffectMaterial())
	return g
}

func (g *Geometry) computeBound() {
	for i, t := range g.Triangles {
		for j, v := range t.V {
			if i == 0 && j == 0 {
				g.bound = sdf.Box3{Min: v, Max: v}
			} else {
				g.bound = g.bound.Include(v)
			}
		}
	}
}

// Material returns the attached material, or nil.
func (g *Geometry) Material() Material { return g.material }

// SetMaterial replaces the material. The previous one is released.
func (g *Geometry) SetMaterial(m Material) {
	if g.material != nil && g.material != m {
		g.material.Release()
	}
	g.material = m
}

// UpdateWorld implements Object.
func (g *Geometry) UpdateWorld(parent Transform) { g.World = parent.Compose(g.Local) }

// WorldBound implements Object.
func (g *Geometry) WorldBound() (sdf.Box3, bool) {
	if len(g.Triangles) == 0 {
		return sdf.Box3{}, false
	}
	var box sdf.Box3
	for i, corner := range g.bound.Vertices() {
		p := g.World.Apply(corner)
		if i == 0 {
			box = sdf.Box3{Min: p, Max: p}
		} else {
			box = box.Include(p)
		}
	}
	return box, true
}

// WorldTriangles returns the triangles transformed to world space.
func (g *Geometry) WorldTriangles() []*render.Triangle3 {
	out := make([]*render.Triangle3, len(g.Triangles))
	for i, t := range g.Triangles {
		out[i] = &render.Triangle3{V: [3]v3.Vec{g.World.Apply(t.V[0]), g.World.Apply(t.V[1]), g.World.Apply(t.V[2])}}
	}
	return out
}

// DeleteThis releases the material's textures.
func (g *Geometry) DeleteThis() {
	if g.material != nil {
		g.material.Release()
	}
	g.AVObject.DeleteThis()
}
