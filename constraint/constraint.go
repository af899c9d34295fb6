// Package constraint holds the sequential impulse solver: contact constraints, the
// joint contract and the distance joint.
//
// Solvers never touch bodies while iterating. They read and write the Position and
// Velocity arrays of an island, indexed by each body's IslandIndex, and the island
// copies the results back once the step is done.
package constraint

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// Position is the solver state of a body's center of mass.
type Position struct {
	C mgl64.Vec2
	A float64
}

// Velocity is the solver state of a body's velocity.
type Velocity struct {
	V mgl64.Vec2
	W float64
}

// TimeStep describes the step being solved.
type TimeStep struct {
	Dt                 float64
	InvDt              float64 // 0 when Dt is 0
	DtRatio            float64 // Dt * previous InvDt, scales warm starting impulses
	VelocityIterations int
	PositionIterations int
	WarmStarting       bool
}

// SolverData is what a joint sees while solving.
type SolverData struct {
	Step       TimeStep
	Positions  []Position
	Velocities []Velocity
	Settings   *settings.Settings
}

// ComputeFriction mixes two friction coefficients with the geometric mean.
func ComputeFriction(a, b *actor.Fixture) float64 {
	return math.Sqrt(a.Friction * b.Friction)
}

// ComputeRestitution keeps the bouncier of two surfaces.
func ComputeRestitution(a, b *actor.Fixture) float64 {
	return math.Max(a.Restitution, b.Restitution)
}

// bodyTransform rebuilds the body transform from a solver position.
func bodyTransform(p Position, localCenter mgl64.Vec2) actor.Transform {
	q := actor.NewRot(p.A)
	return actor.Transform{
		Position: p.C.Sub(q.Rotate(localCenter)),
		Rotation: q,
	}
}
