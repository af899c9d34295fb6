package plume

import (
	"math"
	"slices"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// island is a connected set of awake bodies with their touching contacts and
// joints. It is rebuilt for every solve and reuses its buffers.
type island struct {
	world *World

	bodies   []*actor.RigidBody
	contacts []*Contact
	// joint node ids in the world joint graph
	joints []int

	positions  []constraint.Position
	velocities []constraint.Velocity
	inputs     []constraint.ContactInput
}

func (is *island) clear() {
	is.bodies = is.bodies[:0]
	is.contacts = is.contacts[:0]
	is.joints = is.joints[:0]
}

func (is *island) addBody(b *actor.RigidBody) {
	b.IslandIndex = len(is.bodies)
	is.bodies = append(is.bodies, b)
}

func (is *island) addContact(c *Contact) {
	is.contacts = append(is.contacts, c)
}

func (is *island) addJoint(id int) {
	is.joints = append(is.joints, id)
}

func (is *island) joint(k int) constraint.Joint {
	return is.world.joints.nodes[is.joints[k]].joint
}

// prepare sizes the solver buffers and collects the contact solver inputs.
func (is *island) prepare() {
	n := len(is.bodies)
	is.positions = slices.Grow(is.positions[:0], n)[:n]
	is.velocities = slices.Grow(is.velocities[:0], n)[:n]

	is.inputs = is.inputs[:0]
	for _, c := range is.contacts {
		is.inputs = append(is.inputs, c.solverInput())
	}
}

// clampMotion limits the motion of a body over one step. It keeps the solver
// stable when a body is hit very hard.
func (is *island) clampMotion(h float64, v mgl64.Vec2, w float64) (mgl64.Vec2, float64) {
	s := &is.world.settings

	translation := v.Mul(h)
	if translation.Dot(translation) > s.MaxTranslationSquared() {
		v = v.Mul(s.MaxTranslation / translation.Len())
	}

	rotation := h * w
	if rotation*rotation > s.MaxRotationSquared() {
		w *= s.MaxRotation / math.Abs(rotation)
	}

	return v, w
}

// ========== 1. Discrete solve ==========

// solve advances the island over a full step.
//
// Algorithm:
//  1. Integrate the velocities with gravity, forces and damping
//  2. Warm start and iterate the velocity constraints, joints first
//  3. Break the overstressed joints
//  4. Integrate the positions, then correct them with the position constraints
//  5. Put the island to sleep when every body has been still long enough
func (is *island) solve(step constraint.TimeStep) {
	w := is.world
	s := &w.settings
	h := step.Dt

	is.prepare()

	for i, b := range is.bodies {
		c := b.Sweep.C
		a := b.Sweep.A
		v := b.LinearVelocity
		av := b.AngularVelocity

		// the start of the sweep, for continuous collision
		b.Sweep.C0 = b.Sweep.C
		b.Sweep.A0 = b.Sweep.A

		if b.BodyType == actor.BodyTypeDynamic {
			force := w.gravity.Mul(b.GravityScale * b.Mass).Add(b.Force)
			v = v.Add(force.Mul(h * b.InvMass))
			av += h * b.InvInertia * b.Torque

			// Pade approximation of the damping ODE
			v = v.Mul(1.0 / (1.0 + h*b.LinearDamping))
			av *= 1.0 / (1.0 + h*b.AngularDamping)
		}

		is.positions[i] = constraint.Position{C: c, A: a}
		is.velocities[i] = constraint.Velocity{V: v, W: av}
	}

	data := &constraint.SolverData{
		Step:       step,
		Positions:  is.positions,
		Velocities: is.velocities,
		Settings:   s,
	}

	solver := constraint.NewContactSolver(step, s, is.inputs, is.positions, is.velocities)
	solver.InitializeVelocityConstraints()
	if step.WarmStarting {
		solver.WarmStart()
	}

	for k := range is.joints {
		is.joint(k).InitVelocityConstraints(data)
	}

	for range step.VelocityIterations {
		for k := range is.joints {
			is.joint(k).SolveVelocityConstraints(data)
		}
		solver.SolveVelocityConstraints()
	}

	solver.StoreImpulses()

	is.breakJoints(step.InvDt)

	for i := range is.bodies {
		v, av := is.clampMotion(h, is.velocities[i].V, is.velocities[i].W)

		is.positions[i].C = is.positions[i].C.Add(v.Mul(h))
		is.positions[i].A += h * av
		is.velocities[i] = constraint.Velocity{V: v, W: av}
	}

	positionSolved := false
	for range step.PositionIterations {
		contactsOkay := solver.SolvePositionConstraints()

		jointsOkay := true
		for k := range is.joints {
			jointOkay := is.joint(k).SolvePositionConstraints(data)
			jointsOkay = jointsOkay && jointOkay
		}

		if contactsOkay && jointsOkay {
			positionSolved = true
			break
		}
	}

	for i, b := range is.bodies {
		b.Sweep.C = is.positions[i].C
		b.Sweep.A = is.positions[i].A
		b.LinearVelocity = is.velocities[i].V
		b.AngularVelocity = is.velocities[i].W
		b.SynchronizeTransform()
	}

	is.report(solver)

	if s.AllowSleep {
		is.trySleep(h, positionSolved)
	}
}

// breakJoints disables the joints whose reaction force exceeds their
// breakpoint and drops them from the island.
func (is *island) breakJoints(invDt float64) {
	w := is.world

	n := 0
	for _, id := range is.joints {
		node := &w.joints.nodes[id]
		j := node.joint

		breakpoint := j.Breakpoint()
		if breakpoint < math.MaxFloat64 {
			force := j.ReactionForce(invDt).Len()
			if force > breakpoint {
				node.broken = true
				w.Events.emitJointBreak(j, force)
				w.logger.Info("joint broken",
					"type", j.Type(),
					"force", force,
					"breakpoint", breakpoint)

				if !j.CollideConnected() {
					w.touchProxies(j.BodyA())
					w.touchProxies(j.BodyB())
				}
				continue
			}
		}

		is.joints[n] = id
		n++
	}
	is.joints = is.joints[:n]
}

// trySleep puts the island to sleep once the least rested body has been
// below the sleep tolerances for TimeToSleep.
func (is *island) trySleep(h float64, positionSolved bool) {
	s := &is.world.settings

	minSleepTime := math.MaxFloat64
	linTolSqr := s.LinearSleepTolerance * s.LinearSleepTolerance
	angTolSqr := s.AngularSleepTolerance * s.AngularSleepTolerance

	for _, b := range is.bodies {
		if b.BodyType == actor.BodyTypeStatic {
			continue
		}

		if !b.IsSleepingAllowed() ||
			b.AngularVelocity*b.AngularVelocity > angTolSqr ||
			b.LinearVelocity.Dot(b.LinearVelocity) > linTolSqr {
			b.SleepTime = 0.0
			minSleepTime = 0.0
		} else {
			b.SleepTime += h
			minSleepTime = math.Min(minSleepTime, b.SleepTime)
		}
	}

	if minSleepTime >= s.TimeToSleep && positionSolved {
		for _, b := range is.bodies {
			b.SetAwake(false)
		}
	}
}

// report hands the solver impulses to PostSolve.
func (is *island) report(solver *constraint.ContactSolver) {
	listener := is.world.contactManager.listener
	if listener == nil {
		return
	}

	for i, c := range is.contacts {
		impulse := solver.Impulse(i)
		listener.PostSolve(c, &impulse)
	}
}

// ========== 2. TOI sub-step ==========

// solveTOI resolves the TOI contact of the bodies at toiIndexA and toiIndexB
// and integrates the island over the rest of the step. Only the two TOI
// bodies are moved by the position correction; the others act as static.
func (is *island) solveTOI(subStep constraint.TimeStep, toiIndexA, toiIndexB int) {
	s := &is.world.settings

	is.prepare()

	for i, b := range is.bodies {
		is.positions[i] = constraint.Position{C: b.Sweep.C, A: b.Sweep.A}
		is.velocities[i] = constraint.Velocity{V: b.LinearVelocity, W: b.AngularVelocity}
	}

	solver := constraint.NewContactSolver(subStep, s, is.inputs, is.positions, is.velocities)

	for range subStep.PositionIterations {
		if solver.SolveTOIPositionConstraints(toiIndexA, toiIndexB) {
			break
		}
	}

	// the TOI bodies restart their sweep from the corrected positions
	bodyA, bodyB := is.bodies[toiIndexA], is.bodies[toiIndexB]
	bodyA.Sweep.C0 = is.positions[toiIndexA].C
	bodyA.Sweep.A0 = is.positions[toiIndexA].A
	bodyB.Sweep.C0 = is.positions[toiIndexB].C
	bodyB.Sweep.A0 = is.positions[toiIndexB].A

	// no warm starting, the discrete solve already applied those impulses
	solver.InitializeVelocityConstraints()

	for range subStep.VelocityIterations {
		solver.SolveVelocityConstraints()
	}

	// TOI impulses are not stored, they can be very large

	h := subStep.Dt
	for i, b := range is.bodies {
		v, av := is.clampMotion(h, is.velocities[i].V, is.velocities[i].W)
		c := is.positions[i].C.Add(v.Mul(h))
		a := is.positions[i].A + h*av

		is.positions[i] = constraint.Position{C: c, A: a}
		is.velocities[i] = constraint.Velocity{V: v, W: av}

		b.Sweep.C = c
		b.Sweep.A = a
		b.LinearVelocity = v
		b.AngularVelocity = av
		b.SynchronizeTransform()
	}

	is.report(solver)
}
