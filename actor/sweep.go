package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sweep describes the motion of a body over a time step for continuous
// collision. Positions are those of the center of mass; LocalCenter lets the
// body origin be recovered.
type Sweep struct {
	LocalCenter mgl64.Vec2 // center of mass in the body frame
	C0, C       mgl64.Vec2 // world center positions at Alpha0 and 1
	A0, A       float64    // world angles at Alpha0 and 1

	// Fraction of the current step already consumed, in [0,1)
	Alpha0 float64
}

// Transform returns the interpolated body transform at beta in [0,1].
func (s Sweep) Transform(beta float64) Transform {
	p := s.C0.Mul(1.0 - beta).Add(s.C.Mul(beta))
	angle := (1.0-beta)*s.A0 + beta*s.A

	xf := Transform{Position: p, Rotation: NewRot(angle)}
	// shift to origin
	xf.Position = xf.Position.Sub(xf.Rotation.Rotate(s.LocalCenter))
	return xf
}

// Advance moves the start of the sweep forward to alpha.
func (s *Sweep) Advance(alpha float64) {
	if s.Alpha0 >= 1.0 {
		panic("actor: sweep advanced past the end of the step")
	}
	beta := (alpha - s.Alpha0) / (1.0 - s.Alpha0)
	s.C0 = s.C0.Add(s.C.Sub(s.C0).Mul(beta))
	s.A0 += beta * (s.A - s.A0)
	s.Alpha0 = alpha
}

// Normalize wraps the angles into [-pi, pi] without changing the rotation.
func (s *Sweep) Normalize() {
	const twoPi = 2.0 * math.Pi
	d := twoPi * math.Floor(s.A0/twoPi)
	s.A0 -= d
	s.A -= d
}
