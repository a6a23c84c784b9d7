package engine

import (
	"errors"
	"image"
	"image/color"

	"github.com/Yeicor/sdfx-scope/refcount"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var (
	ErrUnknownTarget = errors.New("unknown render target")
	ErrTargetInUse   = errors.New("render target already acquired")
)

//-----------------------------------------------------------------------------
// RENDER TARGETS
//-----------------------------------------------------------------------------

// TargetID identifies a color render target.
type TargetID int

const (
	TargetNone     TargetID = -1
	TargetMain     TargetID = 1
	TargetMainCopy TargetID = 2
	TargetScope    TargetID = 19
	TargetHUDGlass TargetID = 24
)

// DepthTargetID identifies a depth-stencil target.
type DepthTargetID int

const (
	DepthNone DepthTargetID = -1
	DepthMain DepthTargetID = 1
)

// SetMode tells a target binding what to do with the target's contents.
type SetMode int

const (
	// SetRestore binds without touching the contents.
	SetRestore SetMode = iota
	// SetClear clears the target to the current clear color when bound.
	SetClear
	// SetForceCopyRestore copies the contents in and back out on rebind.
	SetForceCopyRestore
)

// ColorSlots is the number of simultaneous color bindings.
const ColorSlots = 6

// RenderTargets manages the color and depth-stencil targets of the device.
type RenderTargets interface {
	AcquireRenderTarget(id TargetID) error
	ReleaseRenderTarget(id TargetID)
	AcquireDepthStencil(id DepthTargetID) error
	ReleaseDepthStencil(id DepthTargetID)

	CurrentRenderTarget(slot int) TargetID
	SetCurrentRenderTarget(slot int, id TargetID, mode SetMode)
	CurrentDepthStencilTarget() DepthTargetID
	SetCurrentDepthStencilTarget(id DepthTargetID, mode SetMode)

	Viewport() image.Rectangle
	SetViewport(r image.Rectangle)
	// SetViewportToRenderTarget resizes the viewport to slot 0's dimensions.
	SetViewportToRenderTarget()

	// SaveRenderTargetToTexture copies the target's contents into dst,
	// resampling when dst already has an image of a different size.
	SaveRenderTargetToTexture(id TargetID, dst *Texture) error
}

//-----------------------------------------------------------------------------
// DEVICE
//-----------------------------------------------------------------------------

// Device issues the draw calls that are not tied to an accumulator.
type Device interface {
	ClearColor() color.NRGBA
	SetClearColor(c color.NRGBA)
	// Clear clears the slot 0 target to the current clear color.
	Clear()
	Flush()
	ResetState()
	ResetZPrePass()
	DoZPrePass()
}

// GraphicsState holds the camera bound for drawing.
type GraphicsState interface {
	CameraData() *Camera
	SetCameraData(c *Camera)
}

//-----------------------------------------------------------------------------
// ACCUMULATION
//-----------------------------------------------------------------------------

// RenderMode selects how an accumulator shades its batches.
type RenderMode int

const (
	RenderNormal RenderMode = iota
	RenderScreenSplatter
	RenderVATSMask
)

// Accumulator batches visible geometry into passes and draws them into the
// bound render target.
type Accumulator interface {
	refcount.Counted
	SetZPrePass(on bool)
	ZPrePass() bool
	SetActiveShadowSceneNode(n *ShadowSceneNode)
	SetSilhouetteColor(c color.NRGBA)
	SetRenderMode(m RenderMode)
	RenderMode() RenderMode
	SetEyePosition(p v3.Vec)

	// Add enqueues g in the pass its PassGroup names.
	Add(g *Geometry)
	// Pending returns the number of queued geometries in every pass.
	Pending() int

	RenderOpaqueDecals()
	RenderBatches()
	RenderBlendedDecals()
	ClearEffectPasses()
	ClearActivePasses()
	ClearGroupPasses()
}

// CullMode selects how a culling process treats bounds.
type CullMode int

const (
	CullNormal CullMode = iota
	// CullIgnoreMultiBounds descends into multi-bound subtrees without
	// testing their bound.
	CullIgnoreMultiBounds
	CullAllPass
)

// CullingProcess walks scene subtrees and feeds the geometry visible to its
// camera into its accumulator. Subtrees flagged app-culled are skipped.
type CullingProcess interface {
	SetAccumulator(a Accumulator)
	Accumulator() Accumulator
	SetCullMode(m CullMode)
	SetCameraRelatedUpdates(on bool)
	SetCamera(c *Camera)
	// AccumulateScene walks root. A nil root is skipped.
	AccumulateScene(root Object)
	AccumulateSceneArray(objs []Object)
}

//-----------------------------------------------------------------------------
// IMAGE SPACE
//-----------------------------------------------------------------------------

// EffectID identifies an image-space effect.
type EffectID int

const EffectVATSTarget EffectID = 162

// ShaderParams are the constants handed to an image-space effect.
type ShaderParams struct {
	PixelConstants [][4]float32
	// Tint multiplies the effect output.
	Tint color.NRGBA
}

// SetPixelConstant stores v as constant i, growing the constant group when
// needed.
func (p *ShaderParams) SetPixelConstant(i int, v [4]float32) {
	for len(p.PixelConstants) <= i {
		p.PixelConstants = append(p.PixelConstants, [4]float32{})
	}
	p.PixelConstants[i] = v
}

// PixelConstant returns constant i, or zeros when it was never set.
func (p *ShaderParams) PixelConstant(i int) [4]float32 {
	if p == nil || i < 0 || i >= len(p.PixelConstants) {
		return [4]float32{}
	}
	return p.PixelConstants[i]
}

// ImageSpace runs full-screen post-process effects.
type ImageSpace interface {
	NewShaderParams() (*ShaderParams, error)
	DefaultShaderParams() *ShaderParams
	// RenderEffect runs effect over the contents of target in place.
	RenderEffect(effect EffectID, target TargetID, params *ShaderParams) error
}
