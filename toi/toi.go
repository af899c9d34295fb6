// Package toi computes the time of impact of two moving convex shapes.
//
// The search is a conservative advancement: the GJK distance between both cores gives
// the gap, and a bound on the relative speed of any two points of the shapes gives the
// time that can safely elapse before the gap could close to the target separation. The
// result never tunnels, it may only stop a little early.
package toi

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/gjk"
	"github.com/akmonengine/plume/settings"
)

// DefaultMaxIterations bounds the number of advancement steps when the input
// leaves MaxIterations at 0.
const DefaultMaxIterations = 30

// State is the outcome of a time of impact query.
type State int

const (
	StateUnknown State = iota
	// Failed: the iteration cap was reached, T is the last safe time
	StateFailed
	// Overlapped: the cores already overlap
	StateOverlapped
	// Touching: the shapes reach the target separation at T
	StateTouching
	// Separated: no impact before TMax
	StateSeparated
)

func (s State) String() string {
	switch s {
	case StateFailed:
		return "failed"
	case StateOverlapped:
		return "overlapped"
	case StateTouching:
		return "touching"
	case StateSeparated:
		return "separated"
	default:
		return "unknown"
	}
}

// Input describes both shapes and their motion. Sweeps are expressed over
// [0,1] from their own Alpha0; TMax limits the search in that interval.
type Input struct {
	ProxyA gjk.Proxy
	ProxyB gjk.Proxy
	SweepA actor.Sweep
	SweepB actor.Sweep
	TMax   float64

	MaxIterations int
}

type Output struct {
	State      State
	T          float64
	Iterations int
}

// Target returns the separation TimeOfImpact aims for, given the sum of both
// shape radii.
func Target(totalRadius float64) float64 {
	return math.Max(settings.LinearSlop, totalRadius-3.0*settings.LinearSlop)
}

// Tolerance is the accepted deviation around Target.
const Tolerance = 0.25 * settings.LinearSlop

// TimeOfImpact advances both sweeps until their cores are within the target
// separation.
//
// Algorithm:
//  1. At time t, compute the core distance with GJK (the cache is reused)
//  2. distance ~ 0: Overlapped; distance < target + tolerance: Touching
//  3. Advance t by (distance - target) / bound
//  4. t >= TMax: Separated
//
// The bound is |dcB - dcA| + |daA|*rA + |daB|*rB, the largest rate at which any
// two points of the shapes may approach, rA and rB being the farthest vertex
// distances from the centers of mass.
func TimeOfImpact(input Input) Output {
	sweepA := input.SweepA
	sweepB := input.SweepB

	// large rotations make the bound loose
	sweepA.Normalize()
	sweepB.Normalize()

	proxyA := input.ProxyA
	proxyB := input.ProxyB

	totalRadius := proxyA.Radius + proxyB.Radius
	target := Target(totalRadius)
	tMax := input.TMax

	rA := proxyA.Farthest(sweepA.LocalCenter)
	rB := proxyB.Farthest(sweepB.LocalCenter)

	dcA := sweepA.C.Sub(sweepA.C0)
	dcB := sweepB.C.Sub(sweepB.C0)
	bound := dcB.Sub(dcA).Len() + math.Abs(sweepA.A-sweepA.A0)*rA + math.Abs(sweepB.A-sweepB.A0)*rB

	maxIterations := input.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	var cache gjk.SimplexCache
	t := 0.0

	for iter := 1; iter <= maxIterations; iter++ {
		out := gjk.Distance(&cache, gjk.DistanceInput{
			ProxyA:     proxyA,
			ProxyB:     proxyB,
			TransformA: sweepA.Transform(t),
			TransformB: sweepB.Transform(t),
		})

		// GJK stops with a rounding residual when the origin lies on a simplex edge
		if out.Distance < 10.0*settings.Epsilon {
			return Output{State: StateOverlapped, T: t, Iterations: iter}
		}

		if out.Distance < target+Tolerance {
			return Output{State: StateTouching, T: t, Iterations: iter}
		}

		if bound <= settings.Epsilon {
			return Output{State: StateSeparated, T: tMax, Iterations: iter}
		}

		t += (out.Distance - target) / bound
		if t >= tMax {
			return Output{State: StateSeparated, T: tMax, Iterations: iter}
		}
	}

	return Output{State: StateFailed, T: t, Iterations: maxIterations}
}
