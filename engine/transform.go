package engine

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mat3 is a row-major 3x3 rotation matrix.
type Mat3 [3][3]float64

// Identity3 returns the identity rotation.
func Identity3() Mat3 { return Mat3{{1}, {0, 1}, {0, 0, 1}} }

// Mul returns m ⋅ n.
func (m Mat3) Mul(n Mat3) (r Mat3) {
	for i := range r {
		for j := range r {
			for k := range r {
				r[i][j] += m[i][k] * n[k][j]
			}
		}
	}
	return
}

// Apply returns m ⋅ v.
func (m Mat3) Apply(v v3.Vec) v3.Vec {
	return v3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Transpose returns the transpose of m, which is its inverse for rotations.
func (m Mat3) Transpose() (r Mat3) {
	for i := range r {
		for j := range r {
			r[i][j] = m[j][i]
		}
	}
	return
}

// Quat is a rotation quaternion with vector part V and real part R.
type Quat struct {
	V v3.Vec
	R float64
}

// Mul returns l ⋅ r.
func (l Quat) Mul(r Quat) Quat {
	v := r.V.MulScalar(l.R).Add(l.V.MulScalar(r.R)).Add(l.V.Cross(r.V))
	return Quat{V: v, R: l.R*r.R - l.V.Dot(r.V)}
}

// Mat3 converts q to a rotation matrix. The conversion does not normalize q,
// so the zero quaternion yields the identity.
func (q Quat) Mat3() Mat3 {
	x, y, z, w := q.V.X, q.V.Y, q.V.Z, q.R
	return Mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// Transform is a rotation, translation and uniform scale.
type Transform struct {
	Rotate    Mat3
	Translate v3.Vec
	Scale     float64
}

// IdentityTransform returns the transform that changes nothing.
func IdentityTransform() Transform {
	return Transform{Rotate: Identity3(), Scale: 1}
}

// Compose returns t ∘ local, the world transform of a child whose parent's
// world transform is t.
func (t Transform) Compose(local Transform) Transform {
	return Transform{
		Rotate:    t.Rotate.Mul(local.Rotate),
		Translate: t.Translate.Add(t.Rotate.Apply(local.Translate.MulScalar(t.Scale))),
		Scale:     t.Scale * local.Scale,
	}
}

// Inverse returns the transform u such that t.Compose(u) is the identity.
func (t Transform) Inverse() Transform {
	s := 1.0
	if t.Scale != 0 {
		s = 1 / t.Scale
	}
	rt := t.Rotate.Transpose()
	return Transform{
		Rotate:    rt,
		Translate: rt.Apply(t.Translate).MulScalar(-s),
		Scale:     s,
	}
}

// Apply transforms the point p.
func (t Transform) Apply(p v3.Vec) v3.Vec {
	return t.Translate.Add(t.Rotate.Apply(p.MulScalar(t.Scale)))
}
