package plume

import (
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/constraint"
	"github.com/akmonengine/plume/manifold"
)

type contactFlags uint8

const (
	// the contact is part of the island being built
	contactIsland contactFlags = 1 << iota
	// the manifold has points, or the sensor shapes overlap
	contactTouching
	// cleared by PreSolve to skip the contact for one step
	contactEnabled
	// the pair must go through ShouldCollide again
	contactFilter
	// the cached TOI is valid
	contactTOI
)

// ContactEdge links a contact into the contact list of one body. Prev and Next
// are edge ids, actor.NullIndex at both ends of the list.
type ContactEdge struct {
	Other *actor.RigidBody
	Prev  int
	Next  int
}

// Contact is the persistent narrow-phase state of two overlapping fixture
// proxies. It is owned by the world: a *Contact is valid until the next
// call that may create contacts (Step, CreateFixture), and must not be
// retained across steps.
type Contact struct {
	flags contactFlags

	fixtureA *actor.Fixture
	fixtureB *actor.Fixture
	indexA   int
	indexB   int

	manifold manifold.Manifold

	friction     float64
	restitution  float64
	tangentSpeed float64

	toiCount int
	toi      float64

	// edges[0] is in the list of body A, edges[1] in the list of body B
	edges [2]ContactEdge

	// creation order list of the world
	prev int
	next int
}

// edgeID addresses side 0 (body A) or 1 (body B) of the contact at index.
func edgeID(index, side int) int {
	return index<<1 | side
}

func (c *Contact) FixtureA() *actor.Fixture { return c.fixtureA }
func (c *Contact) FixtureB() *actor.Fixture { return c.fixtureB }
func (c *Contact) ChildIndexA() int { return c.indexA }
func (c *Contact) ChildIndexB() int { return c.indexB }

// Manifold is the local manifold of the last update. PreSolve may alter it.
func (c *Contact) Manifold() *manifold.Manifold {
	return &c.manifold
}

// WorldManifold evaluates the manifold with the current body transforms.
func (c *Contact) WorldManifold() manifold.WorldManifold {
	var wm manifold.WorldManifold
	bodyA, bodyB := c.fixtureA.Body(), c.fixtureB.Body()
	wm.Initialize(&c.manifold, bodyA.Transform, c.fixtureA.Shape().GetRadius(), bodyB.Transform, c.fixtureB.Shape().GetRadius())
	return wm
}

func (c *Contact) IsTouching() bool {
	return c.flags&contactTouching != 0
}

func (c *Contact) IsEnabled() bool {
	return c.flags&contactEnabled != 0
}

// SetEnabled disables the contact for the current step only, typically from
// PreSolve. The contact is re-enabled by its next update.
func (c *Contact) SetEnabled(enabled bool) {
	if enabled {
		c.flags |= contactEnabled
	} else {
		c.flags &^= contactEnabled
	}
}

// FlagForFiltering makes the next step run the pair through the filters again.
func (c *Contact) FlagForFiltering() {
	c.flags |= contactFilter
}

func (c *Contact) Friction() float64 { return c.friction }

// SetFriction overrides the mixed friction until the contact is destroyed
func (c *Contact) SetFriction(friction float64) {
	c.friction = friction
}

func (c *Contact) ResetFriction() {
	c.friction = constraint.ComputeFriction(c.fixtureA, c.fixtureB)
}

func (c *Contact) Restitution() float64 { return c.restitution }

func (c *Contact) SetRestitution(restitution float64) {
	c.restitution = restitution
}

func (c *Contact) ResetRestitution() {
	c.restitution = constraint.ComputeRestitution(c.fixtureA, c.fixtureB)
}

func (c *Contact) TangentSpeed() float64 { return c.tangentSpeed }

// SetTangentSpeed sets the surface speed along the tangent, for conveyor belts.
func (c *Contact) SetTangentSpeed(speed float64) {
	c.tangentSpeed = speed
}

func (c *Contact) isSensor() bool {
	return c.fixtureA.IsSensor() || c.fixtureB.IsSensor()
}

func (c *Contact) solverInput() constraint.ContactInput {
	return constraint.ContactInput{
		Manifold:     &c.manifold,
		BodyA:        c.fixtureA.Body(),
		BodyB:        c.fixtureB.Body(),
		RadiusA:      c.fixtureA.Shape().GetRadius(),
		RadiusB:      c.fixtureB.Shape().GetRadius(),
		Friction:     c.friction,
		Restitution:  c.restitution,
		TangentSpeed: c.tangentSpeed,
	}
}

func newContact(fixtureA *actor.Fixture, indexA int, fixtureB *actor.Fixture, indexB int) Contact {
	return Contact{
		flags:       contactEnabled,
		fixtureA:    fixtureA,
		fixtureB:    fixtureB,
		indexA:      indexA,
		indexB:      indexB,
		friction:    constraint.ComputeFriction(fixtureA, fixtureB),
		restitution: constraint.ComputeRestitution(fixtureA, fixtureB),
		toi:         1.0,
		prev:        actor.NullIndex,
		next:        actor.NullIndex,
	}
}

// ContactListener is called synchronously while the world is locked.
// PreSolve runs after a touching contact is updated and before it is solved;
// oldManifold is the manifold of the previous update. PostSolve reports the
// impulses applied by the solver.
type ContactListener interface {
	PreSolve(c *Contact, oldManifold *manifold.Manifold)
	PostSolve(c *Contact, impulse *constraint.ContactImpulse)
}

// ContactFilter is consulted after the fixture filters when a pair is found
// and when a contact is flagged for filtering.
type ContactFilter interface {
	ShouldCollide(fixtureA, fixtureB *actor.Fixture) bool
}

// matchImpulses copies the impulses of the old points into the new manifold
// for every point whose feature id persists.
func matchImpulses(m, old *manifold.Manifold) {
	for i := 0; i < m.PointCount; i++ {
		p := &m.Points[i]
		p.NormalImpulse = 0.0
		p.TangentImpulse = 0.0

		for j := 0; j < old.PointCount; j++ {
			if old.Points[j].ID == p.ID {
				p.NormalImpulse = old.Points[j].NormalImpulse
				p.TangentImpulse = old.Points[j].TangentImpulse
				break
			}
		}
	}
}

