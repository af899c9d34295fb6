package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Cross returns the 2D cross product (z component) of two vectors.
func Cross(a, b mgl64.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// CrossVS returns the cross product of a vector and a scalar: (s*v.y, -s*v.x).
func CrossVS(v mgl64.Vec2, s float64) mgl64.Vec2 {
	return mgl64.Vec2{s * v[1], -s * v[0]}
}

// CrossSV returns the cross product of a scalar and a vector: (-s*v.y, s*v.x).
func CrossSV(s float64, v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-s * v[1], s * v[0]}
}

// Normalize returns the unit vector of v and its original length.
// A near-zero vector is returned unchanged with a zero length.
func Normalize(v mgl64.Vec2) (mgl64.Vec2, float64) {
	length := v.Len()
	if length < 1e-12 {
		return v, 0
	}
	return v.Mul(1.0 / length), length
}

// Abs returns the component-wise absolute value.
func Abs(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{math.Abs(v[0]), math.Abs(v[1])}
}

// MinVec returns the component-wise minimum.
func MinVec(a, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{min(a[0], b[0]), min(a[1], b[1])}
}

// MaxVec returns the component-wise maximum.
func MaxVec(a, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{max(a[0], b[0]), max(a[1], b[1])}
}

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

// Solve22 solves m * x = b for a 2x2 matrix, returning zero when m is singular.
func Solve22(m mgl64.Mat2, b mgl64.Vec2) mgl64.Vec2 {
	// column major: m[0], m[1] is the first column
	a11, a12, a21, a22 := m[0], m[2], m[1], m[3]
	det := a11*a22 - a12*a21
	if det != 0 {
		det = 1.0 / det
	}
	return mgl64.Vec2{det * (a22*b[0] - a12*b[1]), det * (a11*b[1] - a21*b[0])}
}

// Rot is a 2D rotation stored as its sine and cosine.
type Rot struct {
	S, C float64
}

// NewRot builds the rotation for an angle in radians.
func NewRot(angle float64) Rot {
	s, c := math.Sincos(angle)
	return Rot{S: s, C: c}
}

// RotIdentity is the zero rotation.
func RotIdentity() Rot {
	return Rot{S: 0, C: 1}
}

// Angle returns the rotation angle in radians.
func (q Rot) Angle() float64 {
	return math.Atan2(q.S, q.C)
}

// XAxis is the rotated x axis.
func (q Rot) XAxis() mgl64.Vec2 {
	return mgl64.Vec2{q.C, q.S}
}

// YAxis is the rotated y axis.
func (q Rot) YAxis() mgl64.Vec2 {
	return mgl64.Vec2{-q.S, q.C}
}

// Rotate applies the rotation to v.
func (q Rot) Rotate(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{q.C*v[0] - q.S*v[1], q.S*v[0] + q.C*v[1]}
}

// InvRotate applies the inverse rotation to v.
func (q Rot) InvRotate(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{q.C*v[0] + q.S*v[1], -q.S*v[0] + q.C*v[1]}
}

// Mul composes two rotations: q * r.
func (q Rot) Mul(r Rot) Rot {
	return Rot{
		S: q.S*r.C + q.C*r.S,
		C: q.C*r.C - q.S*r.S,
	}
}

// MulT composes the inverse of q with r: q^T * r.
func (q Rot) MulT(r Rot) Rot {
	return Rot{
		S: q.C*r.S - q.S*r.C,
		C: q.C*r.C + q.S*r.S,
	}
}
