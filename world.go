package plume

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/broadphase"
	"github.com/akmonengine/plume/constraint"
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// World manages the bodies, fixtures, joints and contacts of a simulation,
// and steps them.
type World struct {
	settings settings.Settings
	logger   *slog.Logger
	gravity  mgl64.Vec2

	// List of all rigid bodies in the world, in creation order
	bodies []*actor.RigidBody

	broadPhase     *broadphase.BroadPhase[*actor.FixtureProxy]
	contactManager *ContactManager
	joints         jointGraph

	island island
	stack  []*actor.RigidBody

	Events Events

	locked bool
	// new fixtures or proxies are waiting for FindNewContacts
	newContacts bool
	// false while sub-stepping has TOI events left
	stepComplete    bool
	autoClearForces bool
	invDt0          float64
}

type Option func(*World)

// WithSettings replaces the default tuning. The settings are copied.
func WithSettings(s settings.Settings) Option {
	return func(w *World) {
		w.settings = s
	}
}

// WithLogger sets the logger; the world logs nothing by default.
func WithLogger(logger *slog.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

// WithAutoClearForces controls whether forces are cleared after every step.
// It is on by default; turn it off to apply forces once over several
// sub-steps.
func WithAutoClearForces(clear bool) Option {
	return func(w *World) {
		w.autoClearForces = clear
	}
}

// NewWorld creates an empty world with the given gravity (m/s²).
func NewWorld(gravity mgl64.Vec2, opts ...Option) *World {
	w := &World{
		settings:        settings.Default(),
		logger:          slog.New(slog.DiscardHandler),
		gravity:         gravity,
		Events:          NewEvents(),
		joints:          newJointGraph(),
		stepComplete:    true,
		autoClearForces: true,
	}

	for _, opt := range opts {
		opt(w)
	}

	w.broadPhase = broadphase.NewBroadPhase[*actor.FixtureProxy](w.settings.AABBExtension, w.settings.AABBMultiplier)
	w.contactManager = newContactManager(w.broadPhase, &w.Events, &w.joints)
	w.island.world = w

	return w
}

func (w *World) Settings() settings.Settings { return w.settings }
func (w *World) Logger() *slog.Logger { return w.logger }

func (w *World) Gravity() mgl64.Vec2 { return w.gravity }

func (w *World) SetGravity(gravity mgl64.Vec2) {
	w.gravity = gravity
}

// IsLocked reports whether the world is in the middle of a step
func (w *World) IsLocked() bool {
	return w.locked
}

func (w *World) assertUnlocked(op string) {
	if w.locked {
		panic(fmt.Sprintf("plume: %s while the world is stepping", op))
	}
}

// SetContactListener registers the PreSolve/PostSolve callbacks
func (w *World) SetContactListener(listener ContactListener) {
	w.contactManager.listener = listener
}

// SetContactFilter registers a filter applied on top of the fixture filters
func (w *World) SetContactFilter(filter ContactFilter) {
	w.contactManager.filter = filter
}

// Bodies returns the bodies in creation order. The slice must not be modified.
func (w *World) Bodies() []*actor.RigidBody {
	return w.bodies
}

func (w *World) BodyCount() int { return len(w.bodies) }
func (w *World) ContactCount() int { return w.contactManager.Count() }
func (w *World) JointCount() int { return w.joints.count }
func (w *World) ProxyCount() int { return w.broadPhase.ProxyCount() }
func (w *World) TreeHeight() int { return w.broadPhase.TreeHeight() }
func (w *World) TreeBalance() int { return w.broadPhase.TreeBalance() }
func (w *World) TreeQuality() float64 { return w.broadPhase.TreeQuality() }

// Contacts iterates the contacts in creation order
func (w *World) Contacts() iter.Seq[*Contact] {
	return w.contactManager.All()
}

// BodyContacts iterates the contacts of one body
func (w *World) BodyContacts(body *actor.RigidBody) iter.Seq[*Contact] {
	return func(yield func(*Contact) bool) {
		for _, id := range w.contactManager.bodyContacts(body) {
			if !yield(&w.contactManager.contacts[id]) {
				return
			}
		}
	}
}

// Joints iterates the joints in creation order
func (w *World) Joints() iter.Seq[constraint.Joint] {
	return func(yield func(constraint.Joint) bool) {
		for _, n := range w.joints.all() {
			if !yield(n.joint) {
				return
			}
		}
	}
}

// BodyJoints iterates the joints attached to one body
func (w *World) BodyJoints(body *actor.RigidBody) iter.Seq[constraint.Joint] {
	return func(yield func(constraint.Joint) bool) {
		for _, n := range w.joints.bodyJoints(body) {
			if !yield(n.joint) {
				return
			}
		}
	}
}

// IsJointBroken reports whether the joint exceeded its breakpoint
func (w *World) IsJointBroken(j constraint.Joint) bool {
	id, ok := w.joints.index[j]
	return ok && w.joints.nodes[id].broken
}

// ========== Bodies ==========

// CreateBody adds a body built from def. Fixtures are attached with
// CreateFixture.
func (w *World) CreateBody(def actor.BodyDef) *actor.RigidBody {
	w.assertUnlocked("CreateBody")

	body := actor.NewRigidBody(def)
	w.bodies = append(w.bodies, body)
	return body
}

// DestroyBody removes a body with its joints, contacts and fixtures.
func (w *World) DestroyBody(body *actor.RigidBody) {
	w.assertUnlocked("DestroyBody")

	k := slices.Index(w.bodies, body)
	if k < 0 {
		panic("plume: DestroyBody on a body of another world")
	}

	for _, n := range w.joints.bodyJoints(body) {
		w.destroyJoint(n.joint)
	}

	w.contactManager.destroyBodyContacts(body, nil)

	for _, f := range body.Fixtures {
		w.destroyProxies(f)
	}
	body.Fixtures = nil

	w.bodies = slices.Delete(w.bodies, k, k+1)
	w.Events.forget(body)
}

// SetTransform teleports a body and moves its proxies. Contacts are updated
// on the next step.
func (w *World) SetTransform(body *actor.RigidBody, position mgl64.Vec2, angle float64) {
	w.assertUnlocked("SetTransform")

	body.SetTransform(position, angle)
	for _, f := range body.Fixtures {
		w.synchronizeFixture(f, body.Transform, body.Transform)
	}
	w.newContacts = true
}

// SetType changes the type of a body. Its contacts are destroyed and recreated
// by the next step.
func (w *World) SetType(body *actor.RigidBody, bodyType actor.BodyType) {
	w.assertUnlocked("SetType")

	if body.BodyType == bodyType {
		return
	}

	body.BodyType = bodyType
	body.ResetMassData()

	if bodyType == actor.BodyTypeStatic {
		body.LinearVelocity = mgl64.Vec2{}
		body.AngularVelocity = 0.0
		body.Sweep.A0 = body.Sweep.A
		body.Sweep.C0 = body.Sweep.C
		body.Flags &^= actor.FlagAwake
		w.synchronizeFixtures(body)
	}

	body.SetAwake(true)
	body.ClearForces()

	w.contactManager.destroyBodyContacts(body, nil)
	w.touchProxies(body)
}

// SetEnabled adds a body to or removes it from the simulation. A disabled
// body keeps its fixtures but has no proxies and no contacts.
func (w *World) SetEnabled(body *actor.RigidBody, enabled bool) {
	w.assertUnlocked("SetEnabled")

	if enabled == body.IsEnabled() {
		return
	}

	if enabled {
		body.Flags |= actor.FlagEnabled
		for _, f := range body.Fixtures {
			w.createProxies(f, body.Transform)
		}
		w.newContacts = true
		return
	}

	body.Flags &^= actor.FlagEnabled
	for _, f := range body.Fixtures {
		w.destroyProxies(f)
	}
	w.contactManager.destroyBodyContacts(body, nil)
}

// ========== Fixtures ==========

// CreateFixture attaches a shape to a body and registers its proxies. The
// contacts of the new fixture are created at the beginning of the next step.
func (w *World) CreateFixture(body *actor.RigidBody, def actor.FixtureDef) *actor.Fixture {
	w.assertUnlocked("CreateFixture")

	f := body.AttachFixture(def)
	if body.IsEnabled() {
		w.createProxies(f, body.Transform)
	}
	w.newContacts = true

	return f
}

// DestroyFixture removes a fixture with its contacts and proxies.
func (w *World) DestroyFixture(f *actor.Fixture) {
	w.assertUnlocked("DestroyFixture")

	body := f.Body()
	if body == nil {
		panic("plume: DestroyFixture on a detached fixture")
	}

	w.contactManager.destroyBodyContacts(body, f)
	w.destroyProxies(f)
	body.DetachFixture(f)
}

func (w *World) createProxies(f *actor.Fixture, xf actor.Transform) {
	n := f.Shape().ChildCount()
	f.Proxies = make([]actor.FixtureProxy, n)

	for i := range f.Proxies {
		p := &f.Proxies[i]
		p.AABB = f.Shape().ComputeAABB(xf, i)
		p.Fixture = f
		p.ChildIndex = i
		p.ProxyID = w.broadPhase.CreateProxy(p.AABB, p)
	}
}

func (w *World) destroyProxies(f *actor.Fixture) {
	for i := range f.Proxies {
		w.broadPhase.DestroyProxy(f.Proxies[i].ProxyID)
	}
	f.Proxies = nil
}

// touchProxies makes the next FindNewContacts re-pair the body proxies.
func (w *World) touchProxies(body *actor.RigidBody) {
	for _, f := range body.Fixtures {
		for i := range f.Proxies {
			w.broadPhase.TouchProxy(f.Proxies[i].ProxyID)
		}
	}
	w.newContacts = true
}

// synchronizeFixtures moves the proxies of a body to cover its motion over
// the step, from the start of its sweep to its current transform.
func (w *World) synchronizeFixtures(body *actor.RigidBody) {
	xf1 := body.Transform
	if body.IsAwake() {
		xf1 = body.Sweep.Transform(0.0)
	}

	for _, f := range body.Fixtures {
		w.synchronizeFixture(f, xf1, body.Transform)
	}
}

func (w *World) synchronizeFixture(f *actor.Fixture, xf1, xf2 actor.Transform) {
	for i := range f.Proxies {
		p := &f.Proxies[i]

		aabb1 := f.Shape().ComputeAABB(xf1, p.ChildIndex)
		aabb2 := f.Shape().ComputeAABB(xf2, p.ChildIndex)
		p.AABB = aabb1.Combine(aabb2)

		displacement := aabb2.Center().Sub(aabb1.Center())
		w.broadPhase.MoveProxy(p.ProxyID, p.AABB, displacement)
	}
}

// refilter touches the proxies of the fixtures whose filter changed, so
// their new pairs are found, and reports whether there were any.
func (w *World) refilter() bool {
	dirty := false
	for _, b := range w.bodies {
		for _, f := range b.Fixtures {
			if !f.FilterDirty() {
				continue
			}

			for i := range f.Proxies {
				w.broadPhase.TouchProxy(f.Proxies[i].ProxyID)
			}
			dirty = true
		}
	}
	return dirty
}

func (w *World) clearFilterDirty() {
	for _, b := range w.bodies {
		for _, f := range b.Fixtures {
			f.ClearFilterDirty()
		}
	}
}

// ========== Joints ==========

// CreateJoint adds a joint between two bodies of the world. When the joint
// does not collide connected, the contacts between its bodies are dropped on
// the next step. Creating a joint does not wake the bodies.
func (w *World) CreateJoint(j constraint.Joint) {
	w.assertUnlocked("CreateJoint")

	if _, ok := w.joints.index[j]; ok {
		panic("plume: joint created twice")
	}

	w.joints.add(j)

	if !j.CollideConnected() {
		w.contactManager.flagBodyContacts(j.BodyA(), j.BodyB())
	}
}

// DestroyJoint removes a joint and wakes its bodies.
func (w *World) DestroyJoint(j constraint.Joint) {
	w.assertUnlocked("DestroyJoint")
	w.destroyJoint(j)
}

func (w *World) destroyJoint(j constraint.Joint) {
	broken := w.IsJointBroken(j)
	if !w.joints.remove(j) {
		panic("plume: DestroyJoint on an unknown joint")
	}

	bodyA, bodyB := j.BodyA(), j.BodyB()
	bodyA.SetAwake(true)
	bodyB.SetAwake(true)

	// the bodies may collide from now on
	if !j.CollideConnected() && !broken {
		w.contactManager.flagBodyContacts(bodyA, bodyB)
		w.touchProxies(bodyA)
		w.touchProxies(bodyB)
	}
}

// ========== Step ==========

// ClearForces resets the force and torque accumulators of every body.
func (w *World) ClearForces() {
	for _, b := range w.bodies {
		b.ClearForces()
	}
}

// Step advances the world by dt seconds.
//
// Algorithm:
//  1. Commit the fixtures created since the last step to the broad-phase
//  2. Narrow-phase: update every contact
//  3. Solve the islands of awake bodies
//  4. Continuous pass over the fast bodies
//  5. Send the buffered events
func (w *World) Step(dt float64) {
	if w.refilter() {
		w.newContacts = true
	}

	if w.newContacts {
		w.contactManager.FindNewContacts()
		w.newContacts = false
	}

	w.locked = true

	step := constraint.TimeStep{
		Dt:                 dt,
		VelocityIterations: w.settings.VelocityIterations,
		PositionIterations: w.settings.PositionIterations,
		WarmStarting:       w.settings.WarmStarting,
	}
	if dt > 0.0 {
		step.InvDt = 1.0 / dt
	}
	step.DtRatio = w.invDt0 * dt

	// This is where some contacts are destroyed
	w.contactManager.Collide()
	w.clearFilterDirty()

	if w.stepComplete && step.Dt > 0.0 {
		w.solve(step)
	}

	if w.settings.ContinuousPhysics && step.Dt > 0.0 {
		w.solveTOI(step)
	}

	if step.Dt > 0.0 {
		w.invDt0 = step.InvDt
	}

	if w.autoClearForces {
		w.ClearForces()
	}

	w.locked = false

	w.Events.processSleepEvents(w.bodies)
	w.Events.flush()
}
