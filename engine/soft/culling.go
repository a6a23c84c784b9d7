package soft

import (
	"github.com/Yeicor/sdfx-scope/engine"
)

// CullingProcess implements engine.CullingProcess.
type CullingProcess struct {
	acc           engine.Accumulator
	mode          engine.CullMode
	cameraUpdates bool
	camera        *engine.Camera

	view    engine.CameraView
	visited int
}

// NewCullingProcess creates a culling process with normal culling and
// camera-related updates on.
func NewCullingProcess() *CullingProcess {
	return &CullingProcess{cameraUpdates: true}
}

func (p *CullingProcess) SetAccumulator(a engine.Accumulator) { p.acc = a }
func (p *CullingProcess) Accumulator() engine.Accumulator     { return p.acc }
func (p *CullingProcess) SetCullMode(m engine.CullMode)       { p.mode = m }
func (p *CullingProcess) SetCameraRelatedUpdates(on bool)     { p.cameraUpdates = on }
func (p *CullingProcess) SetCamera(c *engine.Camera)          { p.camera = c }

// CullMode returns the current cull mode.
func (p *CullingProcess) CullMode() engine.CullMode { return p.mode }

// CameraRelatedUpdates reports whether walks refresh world transforms.
func (p *CullingProcess) CameraRelatedUpdates() bool { return p.cameraUpdates }

// Camera returns the camera objects are culled against.
func (p *CullingProcess) Camera() *engine.Camera { return p.camera }

// Visited returns the number of objects tested since creation.
func (p *CullingProcess) Visited() int { return p.visited }

func (p *CullingProcess) AccumulateScene(root engine.Object) {
	if root == nil || p.acc == nil || p.camera == nil {
		return
	}
	if p.cameraUpdates {
		if n, ok := root.(interface{ Update() }); ok {
			n.Update()
		}
	}
	p.view = p.camera.View()
	p.walk(root)
}

func (p *CullingProcess) AccumulateSceneArray(objs []engine.Object) {
	for _, o := range objs {
		p.AccumulateScene(o)
	}
}

func (p *CullingProcess) walk(o engine.Object) {
	p.visited++
	av := o.AV()
	if av.AppCulled() {
		return
	}
	test := p.mode == engine.CullNormal ||
		(p.mode == engine.CullIgnoreMultiBounds && !av.Flag(engine.FlagMultiBound))
	if test {
		b, ok := o.WorldBound()
		if !ok || !p.view.Visible(b) {
			return
		}
	}
	switch t := o.(type) {
	case *engine.Geometry:
		p.acc.Add(t)
	case interface{ Children() []engine.Object }:
		for _, c := range t.Children() {
			if c != nil {
				p.walk(c)
			}
		}
	}
}
