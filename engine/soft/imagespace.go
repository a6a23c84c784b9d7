package soft

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	"github.com/Yeicor/sdfx-scope/engine"
	"github.com/barkimedes/go-deepcopy"
)

// Effect transforms one pixel of an image-space pass. x01 and y01 are the
// pixel center in 0..1 target coordinates.
type Effect func(c color.NRGBA, x01, y01 float64, params *engine.ShaderParams) color.NRGBA

// ImageSpace implements engine.ImageSpace.
type ImageSpace struct {
	targets  *Targets
	effects  map[engine.EffectID]Effect
	defaults *engine.ShaderParams
	runs     int
}

func newImageSpace(targets *Targets) *ImageSpace {
	return &ImageSpace{
		targets: targets,
		effects: map[engine.EffectID]Effect{
			engine.EffectVATSTarget: scopeMaskEffect,
		},
		defaults: &engine.ShaderParams{Tint: color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
	}
}

// Register installs (or replaces) the effect for id.
func (s *ImageSpace) Register(id engine.EffectID, e Effect) { s.effects[id] = e }

// NewShaderParams returns a copy of the defaults that shares no constants
// with them.
func (s *ImageSpace) NewShaderParams() (*engine.ShaderParams, error) {
	p, err := deepcopy.Anything(s.defaults)
	if err != nil {
		return nil, err
	}
	return p.(*engine.ShaderParams), nil
}

func (s *ImageSpace) DefaultShaderParams() *engine.ShaderParams { return s.defaults }

// Runs returns the number of effect passes run since creation.
func (s *ImageSpace) Runs() int { return s.runs }

// RenderEffect runs the effect over the resolved target, one row per job.
func (s *ImageSpace) RenderEffect(id engine.EffectID, target engine.TargetID, params *engine.ShaderParams) error {
	effect, ok := s.effects[id]
	if !ok {
		return fmt.Errorf("unknown image space effect %d", id)
	}
	img := s.targets.Image(target)
	if img == nil {
		return fmt.Errorf("%w: %d", engine.ErrUnknownTarget, target)
	}
	if params == nil {
		params = s.defaults
	}
	s.runs++
	runRows(img, func(y int) {
		b := img.Bounds()
		y01 := (float64(y-b.Min.Y) + 0.5) / float64(b.Dy())
		for x := b.Min.X; x < b.Max.X; x++ {
			x01 := (float64(x-b.Min.X) + 0.5) / float64(b.Dx())
			img.SetNRGBA(x, y, effect(img.NRGBAAt(x, y), x01, y01, params))
		}
	})
	return nil
}

// runRows calls process for every row of img from a pool of NumCPU workers.
// Rows are disjoint, so workers write to img without locking.
func runRows(img *image.NRGBA, process func(y int)) {
	b := img.Bounds()
	jobs := make(chan int)
	workerWg := &sync.WaitGroup{}
	for i := 0; i < runtime.NumCPU(); i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for y := range jobs {
				process(y)
			}
		}()
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		jobs <- y
	}
	close(jobs)
	workerWg.Wait()
}

// scopeMaskEffect keeps the circle inscribed in the target, blacks out the
// rest, draws a thin crosshair and multiplies by the tint.
func scopeMaskEffect(c color.NRGBA, x01, y01 float64, params *engine.ShaderParams) color.NRGBA {
	dx, dy := x01-0.5, y01-0.5
	r := math.Sqrt(dx*dx + dy*dy)
	if r > 0.5 {
		return color.NRGBA{A: 255}
	}
	// Constant 0 holds the texel size; the crosshair is never thinner than
	// one texel.
	texel := params.PixelConstant(0)
	lineX, lineY := math.Max(0.002, float64(texel[0])/2), math.Max(0.002, float64(texel[1])/2)
	if (math.Abs(dx) < lineX || math.Abs(dy) < lineY) && r > 0.02 {
		return color.NRGBA{A: 255}
	}
	t := params.Tint
	c.R = uint8(uint16(c.R) * uint16(t.R) / 255)
	c.G = uint8(uint16(c.G) * uint16(t.G) / 255)
	c.B = uint8(uint16(c.B) * uint16(t.B) / 255)
	// Edge vignette.
	if r > 0.45 {
		k := (0.5 - r) / 0.05
		c.R = uint8(float64(c.R) * k)
		c.G = uint8(float64(c.G) * k)
		c.B = uint8(float64(c.B) * k)
	}
	c.A = 255
	return c
}
