package plume

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/constraint"
	"github.com/akmonengine/plume/gjk"
	"github.com/akmonengine/plume/settings"
	"github.com/akmonengine/plume/toi"
)

// solve builds the islands of awake bodies with a depth first search over the
// contact and joint graph, and solves them one at a time. Static bodies end
// the search: they may belong to several islands.
func (w *World) solve(step constraint.TimeStep) {
	is := &w.island

	for _, b := range w.bodies {
		b.Flags &^= actor.FlagIsland
	}
	for c := range w.contactManager.All() {
		c.flags &^= contactIsland
	}
	for _, n := range w.joints.all() {
		n.island = false
	}

	for _, seed := range w.bodies {
		if seed.Flags.Has(actor.FlagIsland) {
			continue
		}
		if !seed.IsAwake() || !seed.IsEnabled() {
			continue
		}
		if seed.BodyType == actor.BodyTypeStatic {
			continue
		}

		is.clear()
		w.stack = append(w.stack[:0], seed)
		seed.Flags |= actor.FlagIsland

		for len(w.stack) > 0 {
			b := w.stack[len(w.stack)-1]
			w.stack = w.stack[:len(w.stack)-1]
			is.addBody(b)

			// static bodies close the island and never wake
			if b.BodyType == actor.BodyTypeStatic {
				continue
			}

			// awake without resetting the sleep timer
			b.Flags |= actor.FlagAwake

			for e, id := range w.contactManager.bodyContacts(b) {
				c := &w.contactManager.contacts[id]

				if c.flags&contactIsland != 0 {
					continue
				}
				if !c.IsEnabled() || !c.IsTouching() {
					continue
				}
				if c.isSensor() {
					continue
				}

				is.addContact(c)
				c.flags |= contactIsland

				other := e.Other
				if other.Flags.Has(actor.FlagIsland) {
					continue
				}
				w.stack = append(w.stack, other)
				other.Flags |= actor.FlagIsland
			}

			for e, n := range w.joints.bodyJoints(b) {
				if n.island || n.broken {
					continue
				}

				other := e.Other
				if !other.IsEnabled() {
					continue
				}

				is.addJoint(w.joints.index[n.joint])
				n.island = true

				if other.Flags.Has(actor.FlagIsland) {
					continue
				}
				w.stack = append(w.stack, other)
				other.Flags |= actor.FlagIsland
			}
		}

		is.solve(step)

		// static bodies may join the next island
		for _, b := range is.bodies {
			if b.BodyType == actor.BodyTypeStatic {
				b.Flags &^= actor.FlagIsland
			}
		}
	}

	for _, b := range w.bodies {
		// a body out of every island did not move
		if !b.Flags.Has(actor.FlagIsland) || b.BodyType == actor.BodyTypeStatic {
			continue
		}
		w.synchronizeFixtures(b)
	}

	w.contactManager.FindNewContacts()
}

// computeTOI returns the fraction of the step at which the contact first
// touches, 1 when it does not during the step, and whether the contact is a
// candidate at all.
func (w *World) computeTOI(c *Contact) (float64, bool) {
	if c.flags&contactTOI != 0 {
		return c.toi, true
	}

	fixtureA, fixtureB := c.fixtureA, c.fixtureB
	if fixtureA.IsSensor() || fixtureB.IsSensor() {
		return 1.0, false
	}

	bodyA, bodyB := fixtureA.Body(), fixtureB.Body()
	typeA, typeB := bodyA.BodyType, bodyB.BodyType

	activeA := bodyA.IsAwake() && typeA != actor.BodyTypeStatic
	activeB := bodyB.IsAwake() && typeB != actor.BodyTypeStatic
	if !activeA && !activeB {
		return 1.0, false
	}

	// dynamic against dynamic is only continuous for bullets
	collideA := bodyA.IsBullet() || typeA != actor.BodyTypeDynamic
	collideB := bodyB.IsBullet() || typeB != actor.BodyTypeDynamic
	if !collideA && !collideB {
		return 1.0, false
	}

	// put both sweeps on the same time interval
	alpha0 := bodyA.Sweep.Alpha0
	if bodyA.Sweep.Alpha0 < bodyB.Sweep.Alpha0 {
		alpha0 = bodyB.Sweep.Alpha0
		bodyA.Sweep.Advance(alpha0)
	} else if bodyB.Sweep.Alpha0 < bodyA.Sweep.Alpha0 {
		alpha0 = bodyA.Sweep.Alpha0
		bodyB.Sweep.Advance(alpha0)
	}

	output := toi.TimeOfImpact(toi.Input{
		ProxyA: gjk.NewProxy(fixtureA.Shape(), c.indexA),
		ProxyB: gjk.NewProxy(fixtureB.Shape(), c.indexB),
		SweepA: bodyA.Sweep,
		SweepB: bodyB.Sweep,
		TMax:   1.0,

		MaxIterations: w.settings.MaxTOIIterations,
	})

	alpha := 1.0
	switch output.State {
	case toi.StateTouching:
		alpha = math.Min(alpha0+(1.0-alpha0)*output.T, 1.0)
	case toi.StateFailed:
		// the last safe time is still a valid impact
		w.logger.Debug("time of impact failed",
			"shapeA", fixtureA.Type(),
			"shapeB", fixtureB.Type(),
			"iterations", output.Iterations,
			"t", output.T)
		alpha = math.Min(alpha0+(1.0-alpha0)*output.T, 1.0)
	}

	c.toi = alpha
	c.flags |= contactTOI
	return alpha, true
}

// solveTOI is the continuous pass. It repeatedly finds the earliest time of
// impact of the step, moves the two bodies back to it and solves a sub-step
// island made of them and the static, kinematic or bullet bodies they touch.
func (w *World) solveTOI(step constraint.TimeStep) {
	s := &w.settings
	is := &w.island
	cm := w.contactManager

	if w.stepComplete {
		for _, b := range w.bodies {
			b.Flags &^= actor.FlagIsland
			b.Sweep.Alpha0 = 0.0
		}

		for c := range cm.All() {
			c.flags &^= contactTOI | contactIsland
			c.toiCount = 0
			c.toi = 1.0
		}
	}

	for {
		var minContact *Contact
		minAlpha := 1.0

		for c := range cm.All() {
			if !c.IsEnabled() {
				continue
			}
			// prevent excessive sub-stepping
			if c.toiCount > s.MaxSubSteps {
				continue
			}

			alpha, ok := w.computeTOI(c)
			if !ok {
				continue
			}

			if alpha < minAlpha {
				minContact = c
				minAlpha = alpha
			}
		}

		if minContact == nil || 1.0-10.0*settings.Epsilon < minAlpha {
			w.stepComplete = true
			break
		}

		bodyA, bodyB := minContact.fixtureA.Body(), minContact.fixtureB.Body()
		backupA, backupB := bodyA.Sweep, bodyB.Sweep

		bodyA.Advance(minAlpha)
		bodyB.Advance(minAlpha)

		// the TOI contact likely has new points
		cm.update(minContact)
		minContact.flags &^= contactTOI
		minContact.toiCount++

		if !minContact.IsEnabled() || !minContact.IsTouching() {
			minContact.SetEnabled(false)
			bodyA.Sweep = backupA
			bodyB.Sweep = backupB
			bodyA.SynchronizeTransform()
			bodyB.SynchronizeTransform()
			continue
		}

		bodyA.SetAwake(true)
		bodyB.SetAwake(true)

		is.clear()
		is.addBody(bodyA)
		is.addBody(bodyB)
		is.addContact(minContact)

		bodyA.Flags |= actor.FlagIsland
		bodyB.Flags |= actor.FlagIsland
		minContact.flags |= contactIsland

		w.gatherTOIContacts(bodyA, minAlpha)
		w.gatherTOIContacts(bodyB, minAlpha)

		subStep := constraint.TimeStep{
			Dt:                 (1.0 - minAlpha) * step.Dt,
			DtRatio:            1.0,
			PositionIterations: s.TOIPositionIterations,
			VelocityIterations: step.VelocityIterations,
			WarmStarting:       false,
		}
		subStep.InvDt = 1.0 / subStep.Dt

		is.solveTOI(subStep, bodyA.IslandIndex, bodyB.IslandIndex)

		for _, b := range is.bodies {
			b.Flags &^= actor.FlagIsland

			if b.BodyType != actor.BodyTypeDynamic {
				continue
			}

			w.synchronizeFixtures(b)

			// the body moved, its cached TOIs are stale
			for _, id := range cm.bodyContacts(b) {
				cm.contacts[id].flags &^= contactTOI | contactIsland
			}
		}

		// proxies moved: some contacts are created, some destroyed
		cm.FindNewContacts()

		if s.SubStepping {
			w.stepComplete = false
			break
		}
	}
}

// gatherTOIContacts adds to the TOI island the touching contacts of a dynamic
// body with static, kinematic or bullet bodies, moving them to alpha.
func (w *World) gatherTOIContacts(body *actor.RigidBody, alpha float64) {
	s := &w.settings
	is := &w.island
	cm := w.contactManager

	if body.BodyType != actor.BodyTypeDynamic {
		return
	}

	for e, id := range cm.bodyContacts(body) {
		if len(is.bodies) == 2*s.MaxTOIContacts || len(is.contacts) == s.MaxTOIContacts {
			break
		}

		c := &cm.contacts[id]
		if c.flags&contactIsland != 0 {
			continue
		}

		other := e.Other
		if other.BodyType == actor.BodyTypeDynamic && !body.IsBullet() && !other.IsBullet() {
			continue
		}

		if c.isSensor() {
			continue
		}

		// tentatively move the other body to the TOI
		backup := other.Sweep
		if !other.Flags.Has(actor.FlagIsland) {
			other.Advance(alpha)
		}

		cm.update(c)

		if !c.IsEnabled() || !c.IsTouching() {
			other.Sweep = backup
			other.SynchronizeTransform()
			continue
		}

		c.flags |= contactIsland
		is.addContact(c)

		if other.Flags.Has(actor.FlagIsland) {
			continue
		}

		other.Flags |= actor.FlagIsland
		if other.BodyType != actor.BodyTypeStatic {
			other.SetAwake(true)
		}
		is.addBody(other)
	}
}
