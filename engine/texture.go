package engine

import (
	"image"
	"image/color"

	"github.com/Yeicor/sdfx-scope/refcount"
)

// Texture is a named, reference-counted image.
type Texture struct {
	refcount.Count
	Name    string
	Image   *image.NRGBA // nil until something is saved into the texture
	deleted bool
}

// TextureHandle holds one reference to a Texture.
type TextureHandle = refcount.Handle[Texture, *Texture]

// CreateEmptyTexture creates a texture with no contents. When size is not
// empty the image is preallocated, and saving into the texture resamples to
// that size.
func CreateEmptyTexture(name string, size image.Point) *Texture {
	t := &Texture{Name: name}
	if size.X > 0 && size.Y > 0 {
		t.Image = image.NewNRGBA(image.Rectangle{Max: size})
	}
	return t
}

// Deleted reports whether the last reference to t has been released.
func (t *Texture) Deleted() bool { return t.deleted }

// DeleteThis frees the image.
func (t *Texture) DeleteThis() {
	t.Image = nil
	t.deleted = true
}

// MaterialKind distinguishes the two material families a render plane can
// use.
type MaterialKind int

const (
	// MaterialEffect is an unlit, emissive material.
	MaterialEffect MaterialKind = iota
	// MaterialLighting is a lit material with a diffuse texture.
	MaterialLighting
)

func (k MaterialKind) String() string {
	switch k {
	case MaterialEffect:
		return "effect"
	case MaterialLighting:
		return "lighting"
	default:
		return "unknown"
	}
}

// Material is the shading description attached to a Geometry.
type Material interface {
	Kind() MaterialKind
	// Texture returns the texture the material samples, if any.
	Texture() *Texture
	// Release drops every texture reference held by the material.
	Release()
}

// EffectMaterial is an emissive material: BaseTexture ⋅ BaseColor ⋅
// BaseColorScale.
type EffectMaterial struct {
	BaseTexture    TextureHandle
	BaseColor      color.NRGBA
	BaseColorScale float32
}

// NewEffectMaterial returns an effect material with no texture and a
// translucent black base color.
func NewEffectMaterial() *EffectMaterial {
	return &EffectMaterial{BaseColor: color.NRGBA{A: 128}, BaseColorScale: 1}
}

func (m *EffectMaterial) Kind() MaterialKind { return MaterialEffect }
func (m *EffectMaterial) Texture() *Texture  { return m.BaseTexture.Get() }
func (m *EffectMaterial) Release()           { m.BaseTexture.Clear() }

// LightingMaterial is a lit material.
type LightingMaterial struct {
	Diffuse TextureHandle
	Color   color.NRGBA
}

func (m *LightingMaterial) Kind() MaterialKind { return MaterialLighting }
func (m *LightingMaterial) Texture() *Texture  { return m.Diffuse.Get() }
func (m *LightingMaterial) Release()           { m.Diffuse.Clear() }
