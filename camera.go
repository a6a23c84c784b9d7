package scope

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/refcount"
)

// Default names of the scope nodes in the player's 3D model.
const (
	DefaultRenderPlaneName = "TextureLoader:0"
	DefaultCameraName      = "ScopePOV"
)

type stateHandle = refcount.Handle[CameraState, *CameraState]

//-----------------------------------------------------------------------------
// ALLOCATION
//-----------------------------------------------------------------------------

// Allocator creates everything a Camera owns. Tests replace it to simulate
// allocation failures.
type Allocator interface {
	NewState(c *Camera, id StateID) (*CameraState, error)
	NewCamera(name string) (*engine.Camera, error)
	NewNode(name string, capacity int) (*engine.Node, error)
	NewScreenQuad(name string) (*engine.Geometry, error)
}

type heapAllocator struct{}

func (heapAllocator) NewState(c *Camera, id StateID) (*CameraState, error) {
	return newCameraState(c, id), nil
}

func (heapAllocator) NewCamera(name string) (*engine.Camera, error) {
	return engine.NewCamera(name), nil
}

func (heapAllocator) NewNode(name string, capacity int) (*engine.Node, error) {
	return engine.NewNode(name, capacity), nil
}

func (heapAllocator) NewScreenQuad(name string) (*engine.Geometry, error) {
	return engine.NewScreenQuad(name), nil
}

//-----------------------------------------------------------------------------
// CONFIGURATION
//-----------------------------------------------------------------------------

// CameraOption configures a Camera.
type CameraOption func(c *Camera)

// WithPlayer sets the player whose 3D model is searched by Update3D.
func WithPlayer(p *engine.Player) CameraOption {
	return func(c *Camera) {
		c.player = p
	}
}

// WithScreenSize sets the back buffer size used for the default frustum.
func WithScreenSize(size image.Point) CameraOption {
	return func(c *Camera) {
		c.screen = size
	}
}

// WithCameraLogger sets the logger.
func WithCameraLogger(l *slog.Logger) CameraOption {
	return func(c *Camera) {
		c.log = l.With("component", "scope-camera")
	}
}

// WithAllocator replaces the allocator.
func WithAllocator(a Allocator) CameraOption {
	return func(c *Camera) {
		c.alloc = a
	}
}

// WithNodeNames sets the names Update3D looks for.
func WithNodeNames(renderPlane, camera string) CameraOption {
	return func(c *Camera) {
		c.planeName, c.cameraName = renderPlane, camera
	}
}

//-----------------------------------------------------------------------------
// CAMERA
//-----------------------------------------------------------------------------

// Camera is the scope camera: a state machine over the three modes plus the
// camera, render plane and camera root nodes used to view the scope scene.
type Camera struct {
	// ZoomInput is added to the zoom of the active mode on every update.
	ZoomInput float32

	states  [StateTotal]stateHandle
	current stateHandle

	camera      *engine.Camera
	renderPlane *engine.Geometry
	root        refcount.Handle[engine.Node, *engine.Node]

	enabled   bool
	destroyed bool

	// ownsCamera and ownsPlane mark the nodes created by CreateDefault3D.
	// Update3D may replace one before the other.
	ownsCamera, ownsPlane bool

	player                *engine.Player
	screen                image.Point
	planeName, cameraName string
	alloc                 Allocator
	log                   *slog.Logger
}

// NewCamera creates the three modes and starts in the default one. With
// createDefault, it also creates its own camera, camera root and render
// plane; otherwise they are located later by Update3D.
func NewCamera(createDefault bool, opts ...CameraOption) *Camera {
	c := &Camera{
		enabled:    true,
		screen:     image.Point{X: 1, Y: 1},
		planeName:  DefaultRenderPlaneName,
		cameraName: DefaultCameraName,
		alloc:      heapAllocator{},
		log:        slog.Default().With("component", "scope-camera"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log.Info("creating scope camera")
	for id := StateDefault; id < StateTotal; id++ {
		s, err := c.alloc.NewState(c, id)
		if err == nil && s == nil {
			err = ErrAllocation
		}
		if err != nil {
			c.log.Error("camera state creation failed", "state", id, "err", err)
			continue
		}
		c.states[id].Reset(s)
		c.log.Info("created camera state", "state", id)
	}
	c.SetState(c.states[StateDefault].Get())
	if createDefault {
		c.CreateDefault3D()
	}
	return c
}

// SetState makes next the active mode: End on the current mode, then the
// current handle is re-homed (acquiring next before releasing the old mode),
// then Begin on next. nil is only accepted by Destroy.
func (c *Camera) SetState(next *CameraState) {
	if next == nil && !c.destroyed {
		c.log.Error("refusing to switch to a nil camera state")
		return
	}
	if cur := c.current.Get(); cur != nil {
		cur.End()
	}
	c.current.Reset(next)
	if cur := c.current.Get(); cur != nil {
		cur.Begin()
	}
}

// CurrentState returns the active mode.
func (c *Camera) CurrentState() *CameraState { return c.current.Get() }

// State returns the mode for id, or nil when it could not be created.
func (c *Camera) State(id StateID) *CameraState {
	if id < 0 || id >= StateTotal {
		return nil
	}
	return c.states[id].Get()
}

// StartCorrectState switches to the most specialized mode the optic supports:
// thermal, then night vision, then the default picture-in-picture mode.
func (c *Camera) StartCorrectState(flags engine.ScopeFlags) error {
	var id StateID
	switch {
	case flags.Thermal:
		id = StateThermal
	case flags.NightVision:
		id = StateNightVision
	case flags.PIP:
		id = StateDefault
	default:
		c.log.Error("could not find the correct state to start", "flags", fmt.Sprintf("%+v", flags))
		return ErrNoApplicableMode
	}
	if err := c.start(id); err != nil {
		return err
	}
	c.UpdateCamera()
	return nil
}

func (c *Camera) start(id StateID) error {
	s := c.states[id].Get()
	if s == nil {
		c.log.Error("camera state is unavailable", "state", id)
		return fmt.Errorf("%w: %s", ErrStateUnavailable, id)
	}
	c.SetState(s)
	return nil
}

// StartDefaultState switches to the picture-in-picture mode.
func (c *Camera) StartDefaultState() error { return c.start(StateDefault) }

// StartThermalState switches to the thermal mode.
func (c *Camera) StartThermalState() error { return c.start(StateThermal) }

// StartNightVisionState switches to the night vision mode.
func (c *Camera) StartNightVisionState() error { return c.start(StateNightVision) }

func (c *Camera) isIn(id StateID) bool {
	cur := c.current.Get()
	return cur != nil && cur == c.states[id].Get()
}

// IsInDefaultMode reports whether the picture-in-picture mode is active.
func (c *Camera) IsInDefaultMode() bool { return c.isIn(StateDefault) }

// IsInThermalMode reports whether the thermal mode is active.
func (c *Camera) IsInThermalMode() bool { return c.isIn(StateThermal) }

// IsInNightVisionMode reports whether the night vision mode is active.
func (c *Camera) IsInNightVisionMode() bool { return c.isIn(StateNightVision) }

// Reset restarts the active mode.
func (c *Camera) Reset() {
	if cur := c.current.Get(); cur != nil {
		cur.Begin()
	}
}

// UpdateCamera ticks the active mode. Without a render plane the scope nodes
// are looked up first.
func (c *Camera) UpdateCamera() {
	if !c.enabled {
		return
	}
	if !c.HasRenderPlane() {
		_ = c.Update3D() // misses are logged
	}
	if cur := c.current.Get(); cur != nil {
		cur.Update()
	}
}

// CreateDefault3D creates a camera with the default scope frustum, a camera
// root holding it and a screen quad render plane, all owned by c.
func (c *Camera) CreateDefault3D() {
	cam, err := c.alloc.NewCamera(c.cameraName)
	if err != nil || cam == nil {
		c.log.Error("camera creation failed", "err", err)
		return
	}
	cam.Frustum = engine.AspectFrustum(c.screen.X, c.screen.Y)
	node, err := c.alloc.NewNode("ScopeCameraRoot", 1)
	if err != nil || node == nil {
		c.log.Error("camera root creation failed", "err", err)
		return
	}
	plane, err := c.alloc.NewScreenQuad(c.planeName)
	if err != nil || plane == nil {
		c.log.Error("render plane creation failed", "err", err)
		return
	}
	c.log.Info("created default scope geometry")

	c.releaseOwnedGeometry()
	c.camera = refcount.Acquire(cam)
	c.SetCameraRoot(node)
	node.AttachChild(cam)
	c.renderPlane = refcount.Acquire(plane)
	c.ownsCamera, c.ownsPlane = true, true
	node.Update()
}

// Update3D locates the render plane and the scope camera by name in the
// player's 3D model. Found nodes stay owned by the model and are not
// referenced. A miss keeps the previous node (owned or not) and returns
// ErrLookupMiss; only a node that is actually replaced is released.
func (c *Camera) Update3D() error {
	c.log.Info("looking for new camera and geometry")
	var missed []string

	if g, ok := c.player.GetByName(c.planeName).(*engine.Geometry); ok {
		c.log.Info("found the geometry of the scope", "name", c.planeName)
		if g != c.renderPlane {
			c.releaseOwnedPlane()
			c.renderPlane = g
		}
	} else {
		c.log.Warn("could not find the geometry of the scope", "name", c.planeName)
		missed = append(missed, c.planeName)
	}

	if cam, ok := c.player.GetByName(c.cameraName).(*engine.Camera); ok {
		c.log.Info("found the scope camera", "name", c.cameraName)
		if cam != c.camera {
			c.releaseOwnedCamera()
			c.camera = cam
			c.SetCameraRoot(cam.Parent())
		}
	} else {
		c.log.Warn("could not find the camera of the scope", "name", c.cameraName)
		missed = append(missed, c.cameraName)
	}

	if len(missed) > 0 {
		return fmt.Errorf("%w: %v", ErrLookupMiss, missed)
	}
	return nil
}

// releaseOwnedGeometry drops whatever is left of the self-created camera and
// render plane.
func (c *Camera) releaseOwnedGeometry() {
	c.releaseOwnedCamera()
	c.releaseOwnedPlane()
}

// releaseOwnedCamera drops the self-created camera. The caller replaces
// c.camera right after.
func (c *Camera) releaseOwnedCamera() {
	if !c.ownsCamera {
		return
	}
	c.ownsCamera = false
	cam := c.camera
	c.camera = nil
	refcount.Release(cam)
}

func (c *Camera) releaseOwnedPlane() {
	if !c.ownsPlane {
		return
	}
	c.ownsPlane = false
	plane := c.renderPlane
	c.renderPlane = nil
	refcount.Release(plane)
}

// SetCameraRoot re-homes the camera root, acquiring n before the old root is
// released.
func (c *Camera) SetCameraRoot(n *engine.Node) { c.root.Reset(n) }

// SetEnabled turns UpdateCamera on or off.
func (c *Camera) SetEnabled(enabled bool) { c.enabled = enabled }

// Enabled reports whether UpdateCamera does anything.
func (c *Camera) Enabled() bool { return c.enabled }

// HasRenderPlane reports whether a render plane is known.
func (c *Camera) HasRenderPlane() bool { return c.renderPlane != nil }

// RenderPlane returns the geometry the scope texture is composited onto.
func (c *Camera) RenderPlane() *engine.Geometry { return c.renderPlane }

// CameraNode returns the camera the scope scene is rendered from.
func (c *Camera) CameraNode() *engine.Camera { return c.camera }

// Root returns the node the active mode's pose is applied to.
func (c *Camera) Root() *engine.Node { return c.root.Get() }

// GeometryDefault reports whether c still holds a camera or render plane it
// created itself (and releases them in Destroy).
func (c *Camera) GeometryDefault() bool { return c.ownsCamera || c.ownsPlane }

// Destroy ends the active mode, releases the modes, then the owned camera
// and render plane, then the camera root. Calling it again does nothing.
func (c *Camera) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.log.Info("destroying scope camera")
	c.SetState(nil)
	for i := range c.states {
		c.states[i].Clear()
	}
	c.releaseOwnedGeometry()
	c.camera = nil
	c.renderPlane = nil
	c.root.Clear()
}
