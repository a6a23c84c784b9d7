package scope

import (
	"fmt"
	"image/color"

	"github.com/Yeicor/sdfx-scope/engine"
)

// Composite shows tex on the render plane: as the base texture, at full
// white and scale 1, of an effect material, or as the diffuse texture of a
// lighting material. The material keeps its own reference to tex.
func Composite(tex *engine.Texture, plane *engine.Geometry) error {
	if plane == nil {
		return fmt.Errorf("%w: no render plane", ErrLookupMiss)
	}
	switch m := plane.Material().(type) {
	case nil:
		return fmt.Errorf("%w: render plane %q has no material", ErrLookupMiss, plane.Name())
	case *engine.EffectMaterial:
		m.BaseTexture.Reset(tex)
		m.BaseColorScale = 1
		m.BaseColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	case *engine.LightingMaterial:
		m.Diffuse.Reset(tex)
	default:
		return fmt.Errorf("%w: %s material on %q", ErrUnsupportedMaterial, m.Kind(), plane.Name())
	}
	return nil
}
