package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and an orientation in 2D space
type Transform struct {
	Position mgl64.Vec2
	Rotation Rot
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec2{0, 0},
		Rotation: RotIdentity(),
	}
}

// NewTransformAt creates a transform from a position and an angle in radians
func NewTransformAt(position mgl64.Vec2, angle float64) Transform {
	return Transform{Position: position, Rotation: NewRot(angle)}
}

// Apply maps a local point to world space
func (xf Transform) Apply(v mgl64.Vec2) mgl64.Vec2 {
	return xf.Rotation.Rotate(v).Add(xf.Position)
}

// ApplyInv maps a world point to local space
func (xf Transform) ApplyInv(v mgl64.Vec2) mgl64.Vec2 {
	return xf.Rotation.InvRotate(v.Sub(xf.Position))
}

// Mul composes two transforms: xf * other
func (xf Transform) Mul(other Transform) Transform {
	return Transform{
		Position: xf.Rotation.Rotate(other.Position).Add(xf.Position),
		Rotation: xf.Rotation.Mul(other.Rotation),
	}
}

// MulT composes the inverse of xf with other: xf^-1 * other
func (xf Transform) MulT(other Transform) Transform {
	return Transform{
		Position: xf.Rotation.InvRotate(other.Position.Sub(xf.Position)),
		Rotation: xf.Rotation.MulT(other.Rotation),
	}
}
