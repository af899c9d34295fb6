package actor

import (
	"math"

	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec2
	Max mgl64.Vec2
}

// RayCastInput is a ray from P1 to P1 + MaxFraction * (P2 - P1)
type RayCastInput struct {
	P1, P2      mgl64.Vec2
	MaxFraction float64
}

// RayCastOutput is the hit of a ray: the point is P1 + Fraction * (P2 - P1)
type RayCastOutput struct {
	Normal   mgl64.Vec2
	Fraction float64
}

// IsValid reports whether the bounds are sorted and finite
func (a AABB) IsValid() bool {
	d := a.Max.Sub(a.Min)
	return d[0] >= 0 && d[1] >= 0 &&
		!math.IsInf(a.Min[0], 0) && !math.IsInf(a.Min[1], 0) &&
		!math.IsInf(a.Max[0], 0) && !math.IsInf(a.Max[1], 0) &&
		!math.IsNaN(a.Min[0]) && !math.IsNaN(a.Min[1]) &&
		!math.IsNaN(a.Max[0]) && !math.IsNaN(a.Max[1])
}

// Center returns the center of the box
func (a AABB) Center() mgl64.Vec2 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the half-widths
func (a AABB) Extents() mgl64.Vec2 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Perimeter is the cost metric of the dynamic tree
func (a AABB) Perimeter() float64 {
	wx := a.Max[0] - a.Min[0]
	wy := a.Max[1] - a.Min[1]
	return 2.0 * (wx + wy)
}

// Combine returns the union of two boxes
func (a AABB) Combine(other AABB) AABB {
	return AABB{Min: MinVec(a.Min, other.Min), Max: MaxVec(a.Max, other.Max)}
}

// Contains checks if other lies entirely inside the AABB
func (a AABB) Contains(other AABB) bool {
	return a.Min[0] <= other.Min[0] && a.Min[1] <= other.Min[1] &&
		other.Max[0] <= a.Max[0] && other.Max[1] <= a.Max[1]
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec2) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y()
}

// Overlaps checks if two AABBs overlap. Touching boxes overlap.
func (a AABB) Overlaps(other AABB) bool {
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y()
}

// Extend grows the box by margin on every side
func (a AABB) Extend(margin float64) AABB {
	r := mgl64.Vec2{margin, margin}
	return AABB{Min: a.Min.Sub(r), Max: a.Max.Add(r)}
}

// RayCast clips the ray against the slabs of the box. A ray starting inside
// the box does not hit it.
func (a AABB) RayCast(input RayCastInput) (RayCastOutput, bool) {
	tmin := -settings.MaxFloat
	tmax := settings.MaxFloat

	p := input.P1
	d := input.P2.Sub(input.P1)
	absD := Abs(d)

	var normal mgl64.Vec2
	for i := 0; i < 2; i++ {
		if absD[i] < settings.Epsilon {
			// parallel
			if p[i] < a.Min[i] || a.Max[i] < p[i] {
				return RayCastOutput{}, false
			}
			continue
		}

		invD := 1.0 / d[i]
		t1 := (a.Min[i] - p[i]) * invD
		t2 := (a.Max[i] - p[i]) * invD

		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}

		if t1 > tmin {
			normal = mgl64.Vec2{}
			normal[i] = s
			tmin = t1
		}
		tmax = min(tmax, t2)

		if tmin > tmax {
			return RayCastOutput{}, false
		}
	}

	if tmin < 0.0 || input.MaxFraction < tmin {
		return RayCastOutput{}, false
	}

	return RayCastOutput{Normal: normal, Fraction: tmin}, true
}
