package plume

import (
	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// QueryCallback receives the fixtures whose fat AABB overlaps the query box.
// Returning false stops the query. A chain fixture is reported once per child
// edge.
type QueryCallback func(f *actor.Fixture, childIndex int) bool

// RayCastCallback receives every fixture child hit by the ray, in no
// particular order. Its return value clips the ray:
//   - -1 ignores the fixture and continues
//   - 0 terminates the ray cast
//   - fraction clips the ray to this hit
//   - 1 does not clip the ray and continues
type RayCastCallback func(f *actor.Fixture, point, normal mgl64.Vec2, fraction float64) float64

// QueryAABB reports the fixture children potentially overlapping aabb.
func (w *World) QueryAABB(aabb actor.AABB, callback QueryCallback) {
	w.broadPhase.Query(aabb, func(proxyID int) bool {
		proxy := w.broadPhase.UserData(proxyID)
		return callback(proxy.Fixture, proxy.ChildIndex)
	})
}

// QueryPoint reports the fixtures containing a world point.
func (w *World) QueryPoint(point mgl64.Vec2, callback func(f *actor.Fixture) bool) {
	aabb := actor.AABB{Min: point, Max: point}
	w.QueryAABB(aabb, func(f *actor.Fixture, childIndex int) bool {
		if f.TestPoint(point) {
			return callback(f)
		}
		return true
	})
}

// RayCast casts a ray from p1 to p2 through the fixtures of the world.
func (w *World) RayCast(p1, p2 mgl64.Vec2, callback RayCastCallback) {
	input := actor.RayCastInput{P1: p1, P2: p2, MaxFraction: 1.0}

	w.broadPhase.RayCast(input, func(subInput actor.RayCastInput, proxyID int) float64 {
		proxy := w.broadPhase.UserData(proxyID)
		f := proxy.Fixture

		output, hit := f.RayCast(subInput, proxy.ChildIndex)
		if !hit {
			return subInput.MaxFraction
		}

		fraction := output.Fraction
		point := p1.Mul(1.0 - fraction).Add(p2.Mul(fraction))
		return callback(f, point, output.Normal, fraction)
	})
}
