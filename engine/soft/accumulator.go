package soft

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/refcount"
	"github.com/deadsy/sdfx/render"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/fogleman/fauxgl"
)

// FadeDistance is the distance past which geometry is faded out while
// distance fading is enabled.
const FadeDistance = 120

// Accumulator implements engine.Accumulator. Queued geometry is referenced
// until its pass is cleared.
type Accumulator struct {
	refcount.Count
	targets  *Targets
	device   *Device
	graphics *GraphicsState
	lightDir v3.Vec
	fade     *engine.FadeGlobals
	distant  *engine.DistantObjectRenderer

	zPrePass   bool
	ssn        *engine.ShadowSceneNode
	silhouette color.NRGBA
	mode       engine.RenderMode
	eye        v3.Vec

	passes  [engine.PassBlendedDecal + 1][]*engine.Geometry
	effects []*engine.Geometry
	drawn   int
	deleted bool
}

func (a *Accumulator) SetZPrePass(on bool)               { a.zPrePass = on }
func (a *Accumulator) ZPrePass() bool                    { return a.zPrePass }
func (a *Accumulator) SetSilhouetteColor(c color.NRGBA)  { a.silhouette = c }
func (a *Accumulator) SetRenderMode(m engine.RenderMode) { a.mode = m }
func (a *Accumulator) RenderMode() engine.RenderMode     { return a.mode }
func (a *Accumulator) SetEyePosition(p v3.Vec)           { a.eye = p }

func (a *Accumulator) SetActiveShadowSceneNode(n *engine.ShadowSceneNode) { a.ssn = n }

// ActiveShadowSceneNode returns the scene node whose lights are used.
func (a *Accumulator) ActiveShadowSceneNode() *engine.ShadowSceneNode { return a.ssn }

// Add queues g. Geometry with an effect material goes to the effect pass.
func (a *Accumulator) Add(g *engine.Geometry) {
	refcount.Acquire(g)
	if m := g.Material(); m != nil && m.Kind() == engine.MaterialEffect {
		a.effects = append(a.effects, g)
		return
	}
	a.passes[g.Pass] = append(a.passes[g.Pass], g)
}

func (a *Accumulator) Pending() int {
	n := len(a.effects)
	for _, p := range a.passes {
		n += len(p)
	}
	return n
}

// Drawn returns the number of geometries drawn since creation.
func (a *Accumulator) Drawn() int { return a.drawn }

func (a *Accumulator) RenderOpaqueDecals() { a.draw(a.passes[engine.PassOpaqueDecal], false) }

// RenderBatches draws the opaque pass (front to back after a z-prepass), the
// distant object instances when their renderer is enabled, then the effect
// pass blended.
func (a *Accumulator) RenderBatches() {
	opaque := a.passes[engine.PassOpaque]
	if a.zPrePass && a.device.zPrePass {
		opaque = append([]*engine.Geometry(nil), opaque...)
		sort.SliceStable(opaque, func(i, j int) bool {
			return a.distance(opaque[i]) < a.distance(opaque[j])
		})
	}
	a.draw(opaque, false)
	if a.distant != nil && a.distant.Enabled {
		a.draw(a.distant.Instances, false)
	}
	a.draw(a.effects, true)
}

func (a *Accumulator) RenderBlendedDecals() { a.draw(a.passes[engine.PassBlendedDecal], true) }

func (a *Accumulator) ClearEffectPasses() { a.effects = releaseAll(a.effects) }

func (a *Accumulator) ClearActivePasses() {
	for i := range a.passes {
		a.passes[i] = releaseAll(a.passes[i])
	}
}

func (a *Accumulator) ClearGroupPasses() {
	a.ClearActivePasses()
	a.ClearEffectPasses()
}

// DeleteThis drops every queued reference.
func (a *Accumulator) DeleteThis() {
	a.ClearGroupPasses()
	a.deleted = true
}

// Deleted reports whether the last reference to a has been released.
func (a *Accumulator) Deleted() bool { return a.deleted }

func releaseAll(gs []*engine.Geometry) []*engine.Geometry {
	for _, g := range gs {
		refcount.Release(g)
	}
	return gs[:0]
}

func (a *Accumulator) distance(g *engine.Geometry) float64 {
	b, ok := g.WorldBound()
	if !ok {
		return math.Inf(1)
	}
	return b.Center().Sub(a.eye).Length()
}

// draw rasterizes gs into the slot 0 target, seen from the bound camera.
func (a *Accumulator) draw(gs []*engine.Geometry, blend bool) {
	ct := a.targets.slot0()
	cam := a.graphics.CameraData()
	if ct == nil || cam == nil || len(gs) == 0 {
		return
	}
	ctx := ct.context()
	matrix := cameraMatrix(cam, ct.size)
	light := a.lightDir
	if a.ssn != nil {
		if lights := a.ssn.ActiveLights(); len(lights) > 0 {
			light = lights[0].Dir.Neg().Normalize()
		}
	}
	ctx.AlphaBlend = blend
	ctx.Wireframe = false
	fading := a.fade != nil && a.fade.FadeEnabled && a.fade.DrawFadingEnabled
	for _, g := range gs {
		if fading && a.distance(g) > FadeDistance {
			continue
		}
		tris := make([]*fauxgl.Triangle, 0, len(g.Triangles))
		for i, tri := range g.WorldTriangles() {
			tris = append(tris, convertTriangle(tri, g, i))
		}
		ctx.Shader = a.shader(g, matrix, light, cam.Eye())
		ctx.DrawMesh(fauxgl.NewTriangleMesh(tris))
		a.drawn++
	}
	ctx.AlphaBlend = false
}

func (a *Accumulator) shader(g *engine.Geometry, matrix fauxgl.Matrix, light, eye v3.Vec) fauxgl.Shader {
	if a.mode == engine.RenderVATSMask {
		return fauxgl.NewSolidColorShader(matrix, fauxgl.MakeColor(a.silhouette))
	}
	if m := g.Material(); m != nil {
		if tex := m.Texture(); tex != nil && tex.Image != nil && g.UVs != nil {
			tint := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			if em, ok := m.(*engine.EffectMaterial); ok {
				tint = scaleColor(em.BaseColor, em.BaseColorScale)
			}
			return &textureShader{Matrix: matrix, Image: tex.Image, Tint: fauxgl.MakeColor(tint)}
		}
		if em, ok := m.(*engine.EffectMaterial); ok {
			return fauxgl.NewSolidColorShader(matrix, fauxgl.MakeColor(scaleColor(em.BaseColor, em.BaseColorScale)))
		}
	}
	shader := fauxgl.NewPhongShader(matrix, toFauxglVector(light), toFauxglVector(eye))
	shader.ObjectColor = fauxgl.MakeColor(g.Color)
	return shader
}

// cameraMatrix builds the view-projection matrix of cam for a target of the
// given size.
func cameraMatrix(cam *engine.Camera, size image.Point) fauxgl.Matrix {
	eye := cam.Eye()
	fwd := cam.World.Rotate.Apply(v3.Vec{Y: 1})
	up := cam.World.Rotate.Apply(v3.Vec{Z: 1})
	f := cam.Frustum
	fovY := 2 * math.Atan((f.Top-f.Bottom)/2)
	aspect := float64(size.X) / float64(size.Y)
	return fauxgl.LookAt(toFauxglVector(eye), toFauxglVector(eye.Add(fwd)), toFauxglVector(up)).
		Perspective(fovY*180/math.Pi, aspect, f.Near, f.Far)
}

func scaleColor(c color.NRGBA, s float32) color.NRGBA {
	scale := func(v uint8) uint8 {
		return uint8(math.Min(255, float64(v)*float64(s)))
	}
	return color.NRGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

func convertTriangle(tri *render.Triangle3, g *engine.Geometry, i int) *fauxgl.Triangle {
	normal := toFauxglVector(tri.Normal())
	c := fauxgl.MakeColor(g.Color)
	t := &fauxgl.Triangle{
		V1: fauxgl.Vertex{Position: toFauxglVector(tri.V[0]), Normal: normal, Color: c},
		V2: fauxgl.Vertex{Position: toFauxglVector(tri.V[1]), Normal: normal, Color: c},
		V3: fauxgl.Vertex{Position: toFauxglVector(tri.V[2]), Normal: normal, Color: c},
	}
	if i < len(g.UVs) {
		uv := g.UVs[i]
		t.V1.Texture = fauxgl.Vector{X: uv[0].X, Y: uv[0].Y}
		t.V2.Texture = fauxgl.Vector{X: uv[1].X, Y: uv[1].Y}
		t.V3.Texture = fauxgl.Vector{X: uv[2].X, Y: uv[2].Y}
	}
	return t
}

func toFauxglVector(v v3.Vec) fauxgl.Vector {
	return fauxgl.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// textureShader samples Image at the interpolated texture coordinate,
// nearest neighbour, multiplied by Tint.
type textureShader struct {
	Matrix fauxgl.Matrix
	Image  *image.NRGBA
	Tint   fauxgl.Color
}

func (shader *textureShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	v.Output = shader.Matrix.MulPositionW(v.Position)
	return v
}

func (shader *textureShader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	b := shader.Image.Bounds()
	x := b.Min.X + int(clamp01(v.Texture.X)*float64(b.Dx()-1))
	y := b.Min.Y + int(clamp01(v.Texture.Y)*float64(b.Dy()-1))
	c := fauxgl.MakeColor(shader.Image.NRGBAAt(x, y))
	return c.Mul(shader.Tint)
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
