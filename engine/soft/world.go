package soft

import (
	"fmt"
	"image/color"
	"math"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/refcount"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Names of the nodes a scoped weapon model carries.
const (
	RenderPlaneName = "TextureLoader:0"
	ScopePOVName    = "ScopePOV"
	GrassSlot       = 5
)

// DemoWorld is a shooting range: a ground plane, targets downrange, some
// distant hills and grass, and a player holding a scoped rifle.
type DemoWorld struct {
	World  *engine.ShadowSceneNode
	Player *engine.Player
	Weapon *engine.Node
	Camera *engine.Camera

	backend *Backend
}

// meshTriangles renders s to triangles with the given generator.
func meshTriangles(gen render.Render3, s sdf.SDF3) []*render.Triangle3 {
	var triangles []*render.Triangle3
	triChan := make(chan []*render.Triangle3)
	go func() {
		gen.Render(s, triChan)
		close(triChan)
	}()
	for tris := range triChan {
		triangles = append(triangles, tris...)
	}
	return triangles
}

type meshCache struct {
	gen    render.Render3
	meshes map[string][]*render.Triangle3
}

func (c *meshCache) get(name string, build func() (sdf.SDF3, error)) ([]*render.Triangle3, error) {
	if tris, ok := c.meshes[name]; ok {
		return tris, nil
	}
	s, err := build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	tris := meshTriangles(c.gen, s)
	c.meshes[name] = tris
	return tris, nil
}

// groundTriangles is a flat rectangle on Z=0, facing +Z. Too thin for
// marching cubes.
func groundTriangles(halfX, halfY float64) []*render.Triangle3 {
	a := v3.Vec{X: -halfX, Y: -halfY}
	b := v3.Vec{X: halfX, Y: -halfY}
	c := v3.Vec{X: halfX, Y: halfY}
	d := v3.Vec{X: -halfX, Y: halfY}
	return []*render.Triangle3{{V: [3]v3.Vec{a, b, c}}, {V: [3]v3.Vec{a, c, d}}}
}

func placed(name string, tris []*render.Triangle3, at v3.Vec, c color.NRGBA) *engine.Geometry {
	g := engine.NewGeometry(name, tris)
	g.Local.Translate = at
	g.Color = c
	return g
}

// NewDemoWorld builds the demo world, installs it in b's host and returns
// it. meshCells is the marching cubes resolution of each shape.
func NewDemoWorld(b *Backend, meshCells int) (*DemoWorld, error) {
	b.log.Info("building demo world meshes", "cells", meshCells) // only performed once per world
	cache := &meshCache{gen: render.NewMarchingCubesOctree(meshCells), meshes: map[string][]*render.Triangle3{}}
	target, err := cache.get("target", func() (sdf.SDF3, error) { return sdf.Cylinder3D(0.2, 1, 0.05) })
	if err != nil {
		return nil, err
	}
	post, err := cache.get("post", func() (sdf.SDF3, error) { return sdf.Box3D(v3.Vec{X: 0.2, Y: 0.2, Z: 2}, 0) })
	if err != nil {
		return nil, err
	}
	hill, err := cache.get("hill", func() (sdf.SDF3, error) { return sdf.Sphere3D(30) })
	if err != nil {
		return nil, err
	}
	tuft, err := cache.get("tuft", func() (sdf.SDF3, error) { return sdf.Cone3D(0.6, 0.25, 0, 0) })
	if err != nil {
		return nil, err
	}
	tower, err := cache.get("tower", func() (sdf.SDF3, error) { return sdf.Box3D(v3.Vec{X: 4, Y: 4, Z: 30}, 0.5) })
	if err != nil {
		return nil, err
	}
	rifle, err := cache.get("rifle", func() (sdf.SDF3, error) {
		body, err := sdf.Box3D(v3.Vec{X: 0.06, Y: 1, Z: 0.1}, 0.01)
		if err != nil {
			return nil, err
		}
		tube, err := sdf.Cylinder3D(0.35, 0.04, 0.005)
		if err != nil {
			return nil, err
		}
		tube = sdf.Transform3D(tube, sdf.Translate3d(v3.Vec{Y: 0.05, Z: 0.1}).Mul(sdf.RotateX(math.Pi/2)))
		return sdf.Union3D(body, tube), nil
	})
	if err != nil {
		return nil, err
	}

	h := b.host
	world := engine.NewShadowSceneNode("WorldRoot")
	world.QueueLight(engine.Light{Dir: b.lightDir.Neg(), Color: color.NRGBA{R: 255, G: 250, B: 240, A: 255}})

	lodRoot := engine.NewNode("ObjectLODRoot", 4)
	for i, x := range []float64{-150, -40, 90, 200} {
		lodRoot.AttachChild(placed(fmt.Sprintf("Hill%d", i), hill, v3.Vec{X: x, Y: 600, Z: -10}, color.NRGBA{R: 90, G: 110, B: 80, A: 255}))
	}
	world.SetAt(engine.ChildObjectLODRoot, lodRoot)

	grass := engine.NewNode("GrassNode", 16)
	for i := 0; i < 16; i++ {
		at := v3.Vec{X: float64(i%4)*3 - 4.5, Y: float64(i/4)*4 + 2, Z: 0.3}
		grass.AttachChild(placed(fmt.Sprintf("Grass%d", i), tuft, at, color.NRGBA{R: 70, G: 140, B: 50, A: 255}))
	}
	world.SetAt(GrassSlot, grass)

	multiBound := engine.NewNode("MultiBoundNode", 8)
	multiBound.SetFlag(engine.FlagMultiBound, true)
	for i, y := range []float64{25, 50, 100, 200} {
		lane := engine.NewNode(fmt.Sprintf("Lane%d", i), 2)
		lane.Local.Translate = v3.Vec{X: float64(i-2) * 3, Y: y}
		lane.AttachChild(placed("Post", post, v3.Vec{Z: 1}, color.NRGBA{R: 110, G: 80, B: 50, A: 255}))
		face := placed("Target", target, v3.Vec{Z: 2.2}, color.NRGBA{R: 220, G: 40, B: 40, A: 255})
		face.Local.Rotate = engine.Quat{V: v3.Vec{X: math.Sin(math.Pi / 4)}, R: math.Cos(math.Pi / 4)}.Mat3()
		lane.AttachChild(face)
		multiBound.AttachChild(lane)
	}
	world.SetAt(engine.ChildMultiBound, multiBound)

	portalShared := engine.NewNode("PortalSharedNode", 1)
	portalShared.AttachChild(placed("Ground", groundTriangles(40, 200), v3.Vec{Y: 190}, color.NRGBA{R: 120, G: 110, B: 90, A: 255}))
	world.SetAt(engine.ChildPortalShared, portalShared)

	towerGeom := placed("Tower", tower, v3.Vec{X: 30, Y: 300, Z: 15}, color.NRGBA{R: 150, G: 150, B: 160, A: 255})
	refcount.Acquire(towerGeom)
	h.Portals = &engine.PortalGraph{AlwaysRender: []engine.Object{towerGeom}}

	for i, x := range []float64{-300, 300} {
		inst := placed(fmt.Sprintf("Distant%d", i), hill, v3.Vec{X: x, Y: 900, Z: -5}, color.NRGBA{R: 100, G: 100, B: 120, A: 255})
		refcount.Acquire(inst)
		h.Distant.Instances = append(h.Distant.Instances, inst)
	}

	// The player model follows the primary camera; the weapon sits below
	// and in front of the eye, with its scope looking down the barrel.
	primary := engine.NewCamera("PlayerCamera")
	primary.Frustum = engine.AspectFrustum(h.ScreenSize.X, h.ScreenSize.Y)
	primary.Frustum.Near = 0.1
	primary.Local.Translate = v3.Vec{Y: -5, Z: 1.7}
	refcount.Acquire(primary)

	playerRoot := engine.NewNode("PlayerRoot", 1)
	weapon := engine.NewNode("Weapon", 3)
	weapon.Local.Translate = v3.Vec{X: 0.2, Y: 0.6, Z: -0.22}
	body := placed("RifleBody", rifle, v3.Vec{}, color.NRGBA{R: 60, G: 60, B: 65, A: 255})
	weapon.AttachChild(body)
	plane := engine.NewScreenQuad(RenderPlaneName)
	plane.Local.Scale = 0.06
	plane.Local.Translate = v3.Vec{Y: -0.2, Z: 0.1}
	weapon.AttachChild(plane)
	scopeNode := engine.NewNode("ScopeNode", 1)
	scopeNode.Local.Translate = v3.Vec{Y: 0.5, Z: 0.1}
	pov := engine.NewCamera(ScopePOVName)
	pov.Frustum = engine.AspectFrustum(1, 1)
	scopeNode.AttachChild(pov)
	weapon.AttachChild(scopeNode)
	playerRoot.AttachChild(weapon)
	playerRoot.Local = primary.Local

	refcount.Acquire(world)
	refcount.Acquire(grass)
	h.World = world
	h.Grass = grass
	h.PrimaryCamera = primary
	h.Player = engine.NewPlayer(playerRoot)
	refcount.Acquire(playerRoot)
	world.Update()
	primary.UpdateWorld(engine.IdentityTransform())
	playerRoot.Update()
	b.log.Info("demo world is ready", "meshes", len(cache.meshes))

	return &DemoWorld{World: world, Player: h.Player, Weapon: weapon, Camera: primary, backend: b}, nil
}

// Aim points the primary camera and the player model by yaw (around +Z) and
// pitch (around the camera's +X), in radians.
func (w *DemoWorld) Aim(yaw, pitch float64) {
	qYaw := engine.Quat{V: v3.Vec{Z: math.Sin(yaw / 2)}, R: math.Cos(yaw / 2)}
	qPitch := engine.Quat{V: v3.Vec{X: math.Sin(pitch / 2)}, R: math.Cos(pitch / 2)}
	rot := qYaw.Mul(qPitch).Mat3()
	w.Camera.Local.Rotate = rot
	w.Camera.UpdateWorld(engine.IdentityTransform())
	root := w.Player.Root3D
	root.Local = w.Camera.Local
	root.Update()
}

// Release drops every reference the world holds.
func (w *DemoWorld) Release() {
	h := w.backend.host
	for _, o := range h.Portals.AlwaysRender {
		refcount.ReleaseCounted(o)
	}
	for _, g := range h.Distant.Instances {
		refcount.Release(g)
	}
	h.Distant.Instances = nil
	refcount.Release(h.Grass)
	refcount.Release(h.World)
	refcount.Release(h.Player.Root3D)
	refcount.Release(h.PrimaryCamera)
}
