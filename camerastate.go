package scope

import (
	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/Yeicor/sdfx-scope/refcount"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// StateID identifies a camera mode.
type StateID int

const (
	StateDefault StateID = iota
	StateThermal
	StateNightVision
	StateTotal
)

func (id StateID) String() string {
	switch id {
	case StateDefault:
		return "default"
	case StateThermal:
		return "thermal"
	case StateNightVision:
		return "night vision"
	default:
		return "unknown"
	}
}

//-----------------------------------------------------------------------------
// INPUT
//-----------------------------------------------------------------------------

// InputEvent is one of the events a camera state may consume.
type InputEvent interface {
	inputEvent()
}

// ThumbstickEvent is a gamepad stick position in -1..1.
type ThumbstickEvent struct{ X, Y float32 }

// CursorMoveEvent is a cursor displacement in pixels.
type CursorMoveEvent struct{ DX, DY float32 }

// MouseMoveEvent is a raw mouse displacement.
type MouseMoveEvent struct{ DX, DY float32 }

// ButtonEvent is a key or button press.
type ButtonEvent struct {
	Code    int
	Pressed bool
}

func (ThumbstickEvent) inputEvent() {}
func (CursorMoveEvent) inputEvent() {}
func (MouseMoveEvent) inputEvent()  {}
func (ButtonEvent) inputEvent()     {}

//-----------------------------------------------------------------------------
// BEHAVIOR
//-----------------------------------------------------------------------------

// stateBehavior is the per-mode hook table. A nil hook runs the default
// behavior.
type stateBehavior struct {
	shouldHandleEvent func(s *CameraState, ev InputEvent) bool
	handleThumbstick  func(s *CameraState, ev ThumbstickEvent)
	handleCursorMove  func(s *CameraState, ev CursorMoveEvent)
	handleMouseMove   func(s *CameraState, ev MouseMoveEvent)
	handleButton      func(s *CameraState, ev ButtonEvent)
	begin             func(s *CameraState)
	end               func(s *CameraState)
	update            func(s *CameraState)
}

// behaviors holds the hooks installed by each mode. Thermal and night vision
// have no visual treatment of their own yet.
var behaviors = [StateTotal]stateBehavior{
	StateDefault:     {},
	StateThermal:     {},
	StateNightVision: {},
}

//-----------------------------------------------------------------------------
// STATE
//-----------------------------------------------------------------------------

// CameraState is one mode of a scope Camera: the pose applied to the camera
// root and the zoom level. All modes share this layout.
type CameraState struct {
	refcount.Count
	id     StateID
	camera *Camera
	hooks  stateBehavior

	initialRotation engine.Quat
	initialPosition v3.Vec
	rotation        engine.Quat
	translation     v3.Vec
	zoom            float32

	deleted bool
}

func newCameraState(c *Camera, id StateID) *CameraState {
	s := &CameraState{id: id, camera: c, zoom: 1}
	if id >= 0 && id < StateTotal {
		s.hooks = behaviors[id]
	}
	return s
}

// ID returns the mode of s.
func (s *CameraState) ID() StateID { return s.id }

// DeleteThis is called when the last reference to s is released.
func (s *CameraState) DeleteThis() { s.deleted = true }

// Deleted reports whether s has been destroyed.
func (s *CameraState) Deleted() bool { return s.deleted }

// ShouldHandleEvent reports whether s consumes ev. The default is no.
func (s *CameraState) ShouldHandleEvent(ev InputEvent) bool {
	if h := s.hooks.shouldHandleEvent; h != nil {
		return h(s, ev)
	}
	return false
}

// HandleThumbstick forwards a stick position to the mode's hook.
func (s *CameraState) HandleThumbstick(ev ThumbstickEvent) {
	if h := s.hooks.handleThumbstick; h != nil {
		h(s, ev)
	}
}

// HandleCursorMove forwards a cursor displacement to the mode's hook.
func (s *CameraState) HandleCursorMove(ev CursorMoveEvent) {
	if h := s.hooks.handleCursorMove; h != nil {
		h(s, ev)
	}
}

// HandleMouseMove forwards a raw mouse displacement to the mode's hook.
func (s *CameraState) HandleMouseMove(ev MouseMoveEvent) {
	if h := s.hooks.handleMouseMove; h != nil {
		h(s, ev)
	}
}

// HandleButton forwards a key or button press to the mode's hook.
func (s *CameraState) HandleButton(ev ButtonEvent) {
	if h := s.hooks.handleButton; h != nil {
		h(s, ev)
	}
}

// Begin is called when s becomes the active mode.
func (s *CameraState) Begin() {
	if h := s.hooks.begin; h != nil {
		h(s)
		return
	}
	s.translation = v3.Vec{}
	s.zoom = 1
}

// End is called when s stops being the active mode.
func (s *CameraState) End() {
	if h := s.hooks.end; h != nil {
		h(s)
	}
}

// Update applies the pose of s to the camera root and advances the zoom by
// the camera's zoom input, saturating at 0 and 1.
func (s *CameraState) Update() {
	if h := s.hooks.update; h != nil {
		h(s)
		return
	}
	translation := s.Translation()
	rotation := s.Rotation()

	root := refcount.New(s.camera.Root())
	defer root.Clear()
	if n := root.Get(); n != nil {
		n.Local.Rotate = rotation.Mat3()
		n.Local.Translate = translation
		n.Update()
	}

	s.zoom = clampZoom(s.camera.ZoomInput + s.zoom)
}

func clampZoom(z float32) float32 {
	if z > 1 {
		return 1
	}
	if z < 0 {
		return 0
	}
	return z
}

// Rotation returns the rotation applied to the camera root.
func (s *CameraState) Rotation() engine.Quat { return s.rotation }

// Translation returns the offset applied to the camera root.
func (s *CameraState) Translation() v3.Vec { return s.translation }

// InitialRotation returns the rotation the mode was set up with.
func (s *CameraState) InitialRotation() engine.Quat { return s.initialRotation }

// InitialPosition returns the position the mode was set up with.
func (s *CameraState) InitialPosition() v3.Vec { return s.initialPosition }

// SetInitialRotation sets the rotation the mode was set up with.
func (s *CameraState) SetInitialRotation(q engine.Quat) { s.initialRotation = q }

// SetInitialPosition sets the position the mode was set up with.
func (s *CameraState) SetInitialPosition(p v3.Vec) { s.initialPosition = p }

// SetRotation sets the rotation applied by the next Update.
func (s *CameraState) SetRotation(q engine.Quat) { s.rotation = q }

// SetTranslation sets the offset applied by the next Update.
func (s *CameraState) SetTranslation(p v3.Vec) { s.translation = p }

// SetZoom sets the zoom in 0..1 without clamping.
func (s *CameraState) SetZoom(z float32) { s.zoom = z }

// Zoom returns the zoom in 0..1, where 1 is full optic magnification.
func (s *CameraState) Zoom() float32 { return s.zoom }

// SaveGame, LoadGame and Revert are persistence hooks. Camera modes keep no
// persistent data.
func (s *CameraState) SaveGame(buf []byte) []byte { return buf }
func (s *CameraState) LoadGame([]byte) error      { return nil }
func (s *CameraState) Revert()                    {}
