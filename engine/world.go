package engine

import (
	"errors"
	"image"
	"image/color"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Child slots of the world ShadowSceneNode.
const (
	ChildObjectLODRoot = 3
	ChildMultiBound    = 8
	ChildPortalShared  = 9
)

// Light is a directional light.
type Light struct {
	Dir   v3.Vec
	Color color.NRGBA
}

// ShadowSceneNode is the root of a scene graph that owns lights.
type ShadowSceneNode struct {
	Node
	// DisableLightUpdate freezes the active light set.
	DisableLightUpdate bool

	queued []Light
	active []Light
}

// NewShadowSceneNode creates an empty world root.
func NewShadowSceneNode(name string) *ShadowSceneNode {
	n := &ShadowSceneNode{Node: Node{children: make([]Object, 0, ChildPortalShared+1)}}
	n.init(name)
	return n
}

// QueueLight adds l to the lights processed by the next culling pass.
func (n *ShadowSceneNode) QueueLight(l Light) { n.queued = append(n.queued, l) }

// ProcessQueuedLights activates the queued lights for cp's pass. With
// DisableLightUpdate set, the active set is kept and the queue is left for a
// later pass.
func (n *ShadowSceneNode) ProcessQueuedLights(cp CullingProcess) {
	if n.DisableLightUpdate || len(n.queued) == 0 {
		return
	}
	n.active = append(n.active[:0], n.queued...)
	n.queued = n.queued[:0]
}

// ActiveLights returns the lights used for shading.
func (n *ShadowSceneNode) ActiveLights() []Light { return n.active }

// PortalGraph partitions the world into cells.
type PortalGraph struct {
	// AlwaysRender are rendered regardless of cell visibility.
	AlwaysRender []Object
}

// FadeGlobals are the process-wide distance fade settings.
type FadeGlobals struct {
	FadeEnabled       bool
	DrawFadingEnabled bool
	FadeEnableCounter int
}

// DistantObjectRenderer draws instanced far-away objects as part of every
// batch pass while enabled. Instances are not part of the scene graph.
type DistantObjectRenderer struct {
	Enabled   bool
	Instances []*Geometry
}

// Host bundles everything a scope render reads or temporarily overrides.
type Host struct {
	World   *ShadowSceneNode
	Grass   *Node
	Portals *PortalGraph // nil outside portal-based cells
	Fade    *FadeGlobals
	Distant *DistantObjectRenderer

	PrimaryCamera *Camera
	Player        *Player

	// DeferredRGBEmit enables the glow map color slot.
	DeferredRGBEmit bool
	// ScreenSize is the back buffer size.
	ScreenSize image.Point

	Targets    RenderTargets
	Device     Device
	Graphics   GraphicsState
	ImageSpace ImageSpace

	NewAccumulator    func() (Accumulator, error)
	NewCullingProcess func() (CullingProcess, error)
}

// ErrIncompleteHost is returned by Host.Check.
var ErrIncompleteHost = errors.New("incomplete host")

// Check reports which required services are missing.
func (h *Host) Check() error {
	var missing []error
	add := func(ok bool, what string) {
		if !ok {
			missing = append(missing, errors.New(what))
		}
	}
	add(h.World != nil, "world")
	add(h.Fade != nil, "fade globals")
	add(h.Distant != nil, "distant object renderer")
	add(h.PrimaryCamera != nil, "primary camera")
	add(h.Targets != nil, "render targets")
	add(h.Device != nil, "device")
	add(h.Graphics != nil, "graphics state")
	add(h.ImageSpace != nil, "image space")
	add(h.NewAccumulator != nil, "accumulator factory")
	add(h.NewCullingProcess != nil, "culling process factory")
	if len(missing) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrIncompleteHost}, missing...)...)
}

// ObjectLODRoot returns the world child holding distant LOD objects.
func (h *Host) ObjectLODRoot() Object { return h.World.ChildAt(ChildObjectLODRoot) }
