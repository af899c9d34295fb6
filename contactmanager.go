package plume

import (
	"iter"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/broadphase"
	"github.com/akmonengine/plume/gjk"
	"github.com/akmonengine/plume/manifold"
)

// ContactManager owns the contact arena. Contacts are linked in creation
// order, which is the order Collide and the solver visit them in, and into
// the contact list of both bodies.
type ContactManager struct {
	broadPhase *broadphase.BroadPhase[*actor.FixtureProxy]

	contacts []Contact
	free     []int
	head     int
	tail     int
	count    int

	filter   ContactFilter
	listener ContactListener
	events   *Events
	joints   *jointGraph
}

func newContactManager(bp *broadphase.BroadPhase[*actor.FixtureProxy], events *Events, joints *jointGraph) *ContactManager {
	return &ContactManager{
		broadPhase: bp,
		head:       actor.NullIndex,
		tail:       actor.NullIndex,
		events:     events,
		joints:     joints,
	}
}

// Count is the number of live contacts
func (cm *ContactManager) Count() int {
	return cm.count
}

func (cm *ContactManager) edge(id int) *ContactEdge {
	return &cm.contacts[id>>1].edges[id&1]
}

// All iterates the contacts in creation order. The current contact may be
// destroyed while iterating.
func (cm *ContactManager) All() iter.Seq[*Contact] {
	return func(yield func(*Contact) bool) {
		for id := cm.head; id != actor.NullIndex; {
			next := cm.contacts[id].next
			if !yield(&cm.contacts[id]) {
				return
			}
			id = next
		}
	}
}

// bodyContacts iterates the contact edges of a body with the index of their
// contact. The current contact may be destroyed while iterating.
func (cm *ContactManager) bodyContacts(body *actor.RigidBody) iter.Seq2[*ContactEdge, int] {
	return func(yield func(*ContactEdge, int) bool) {
		for id := body.ContactList; id != actor.NullIndex; {
			e := cm.edge(id)
			next := e.Next
			if !yield(e, id>>1) {
				return
			}
			id = next
		}
	}
}

// FindNewContacts commits the broad-phase move buffer, creating a contact for
// every new pair.
func (cm *ContactManager) FindNewContacts() {
	cm.broadPhase.UpdatePairs(cm.AddPair)
}

// AddPair is the broad-phase callback. It creates the contact of two fixture
// children unless one already exists or the pair is filtered out.
func (cm *ContactManager) AddPair(proxyA, proxyB *actor.FixtureProxy) {
	fixtureA, fixtureB := proxyA.Fixture, proxyB.Fixture
	indexA, indexB := proxyA.ChildIndex, proxyB.ChildIndex
	bodyA, bodyB := fixtureA.Body(), fixtureB.Body()

	if bodyA == bodyB {
		return
	}

	for e, id := range cm.bodyContacts(bodyB) {
		if e.Other != bodyA {
			continue
		}

		c := &cm.contacts[id]
		if c.fixtureA == fixtureA && c.fixtureB == fixtureB && c.indexA == indexA && c.indexB == indexB {
			return
		}
		if c.fixtureA == fixtureB && c.fixtureB == fixtureA && c.indexA == indexB && c.indexB == indexA {
			return
		}
	}

	if !cm.shouldCollide(fixtureA, fixtureB) {
		return
	}

	ok, swap := manifold.Supported(fixtureA.Type(), fixtureB.Type())
	if !ok {
		return
	}
	if swap {
		fixtureA, fixtureB = fixtureB, fixtureA
		indexA, indexB = indexB, indexA
	}

	cm.create(fixtureA, indexA, fixtureB, indexB)
}

// shouldCollide applies, in order, the body types, the joints, the fixture
// filters and the user filter.
func (cm *ContactManager) shouldCollide(fixtureA, fixtureB *actor.Fixture) bool {
	bodyA, bodyB := fixtureA.Body(), fixtureB.Body()

	if !bodyB.ShouldCollide(bodyA) {
		return false
	}
	if cm.joints.preventsCollision(bodyA, bodyB) {
		return false
	}
	if !fixtureA.Filter().ShouldCollide(fixtureB.Filter()) {
		return false
	}
	if cm.filter != nil && !cm.filter.ShouldCollide(fixtureA, fixtureB) {
		return false
	}

	return true
}

func (cm *ContactManager) create(fixtureA *actor.Fixture, indexA int, fixtureB *actor.Fixture, indexB int) int {
	var id int
	if n := len(cm.free); n > 0 {
		id = cm.free[n-1]
		cm.free = cm.free[:n-1]
	} else {
		id = len(cm.contacts)
		cm.contacts = append(cm.contacts, Contact{})
	}

	c := &cm.contacts[id]
	*c = newContact(fixtureA, indexA, fixtureB, indexB)

	c.prev = cm.tail
	if cm.tail != actor.NullIndex {
		cm.contacts[cm.tail].next = id
	} else {
		cm.head = id
	}
	cm.tail = id

	bodyA, bodyB := fixtureA.Body(), fixtureB.Body()
	cm.link(bodyA, edgeID(id, 0), bodyB)
	cm.link(bodyB, edgeID(id, 1), bodyA)

	cm.count++
	return id
}

func (cm *ContactManager) link(body *actor.RigidBody, id int, other *actor.RigidBody) {
	e := cm.edge(id)
	e.Other = other
	e.Prev = actor.NullIndex
	e.Next = body.ContactList
	if body.ContactList != actor.NullIndex {
		cm.edge(body.ContactList).Prev = id
	}
	body.ContactList = id
}

func (cm *ContactManager) unlink(body *actor.RigidBody, id int) {
	e := cm.edge(id)
	if e.Prev != actor.NullIndex {
		cm.edge(e.Prev).Next = e.Next
	}
	if e.Next != actor.NullIndex {
		cm.edge(e.Next).Prev = e.Prev
	}
	if body.ContactList == id {
		body.ContactList = e.Next
	}
}

// Destroy removes the contact at index, emitting its end event when it was
// touching.
func (cm *ContactManager) Destroy(index int) {
	c := &cm.contacts[index]
	bodyA, bodyB := c.fixtureA.Body(), c.fixtureB.Body()

	if c.IsTouching() {
		cm.events.emitEnd(c)
	}

	if c.manifold.PointCount > 0 && !c.isSensor() {
		bodyA.SetAwake(true)
		bodyB.SetAwake(true)
	}

	if c.prev != actor.NullIndex {
		cm.contacts[c.prev].next = c.next
	} else {
		cm.head = c.next
	}
	if c.next != actor.NullIndex {
		cm.contacts[c.next].prev = c.prev
	} else {
		cm.tail = c.prev
	}

	cm.unlink(bodyA, edgeID(index, 0))
	cm.unlink(bodyB, edgeID(index, 1))

	*c = Contact{}
	cm.free = append(cm.free, index)
	cm.count--
}

// destroyBodyContacts removes every contact of a body, or only those of one
// fixture when fixture is not nil.
func (cm *ContactManager) destroyBodyContacts(body *actor.RigidBody, fixture *actor.Fixture) {
	for _, id := range cm.bodyContacts(body) {
		c := &cm.contacts[id]
		if fixture != nil && c.fixtureA != fixture && c.fixtureB != fixture {
			continue
		}
		cm.Destroy(id)
	}
}

// flagBodyContacts flags for filtering the contacts between two bodies
func (cm *ContactManager) flagBodyContacts(bodyA, bodyB *actor.RigidBody) {
	for e, id := range cm.bodyContacts(bodyB) {
		if e.Other == bodyA {
			cm.contacts[id].FlagForFiltering()
		}
	}
}

// Collide is the narrow-phase: it refilters the flagged contacts, destroys
// those whose fat AABBs stopped overlapping and updates the manifold of the
// others. Contacts between two sleeping or static bodies are left as they
// are.
func (cm *ContactManager) Collide() {
	for id := cm.head; id != actor.NullIndex; {
		c := &cm.contacts[id]
		next := c.next

		fixtureA, fixtureB := c.fixtureA, c.fixtureB
		bodyA, bodyB := fixtureA.Body(), fixtureB.Body()

		if c.flags&contactFilter != 0 || fixtureA.FilterDirty() || fixtureB.FilterDirty() {
			if !cm.shouldCollide(fixtureA, fixtureB) {
				cm.Destroy(id)
				id = next
				continue
			}
			c.flags &^= contactFilter
		}

		activeA := bodyA.IsAwake() && bodyA.BodyType != actor.BodyTypeStatic
		activeB := bodyB.IsAwake() && bodyB.BodyType != actor.BodyTypeStatic
		if !activeA && !activeB {
			id = next
			continue
		}

		proxyIDA := fixtureA.Proxies[c.indexA].ProxyID
		proxyIDB := fixtureB.Proxies[c.indexB].ProxyID
		if !cm.broadPhase.TestOverlap(proxyIDA, proxyIDB) {
			cm.Destroy(id)
			id = next
			continue
		}

		cm.update(c)
		id = next
	}
}

// update evaluates the manifold of a contact, warm starts it from the
// previous one, and reports the touching transitions.
func (cm *ContactManager) update(c *Contact) {
	oldManifold := c.manifold

	// re-enabled every update, PreSolve may disable it again
	c.flags |= contactEnabled

	wasTouching := c.IsTouching()
	sensor := c.isSensor()

	fixtureA, fixtureB := c.fixtureA, c.fixtureB
	bodyA, bodyB := fixtureA.Body(), fixtureB.Body()
	xfA, xfB := bodyA.Transform, bodyB.Transform

	var touching bool
	if sensor {
		touching = gjk.TestOverlap(fixtureA.Shape(), c.indexA, fixtureB.Shape(), c.indexB, xfA, xfB)
		// sensors never create points
		c.manifold.PointCount = 0
	} else {
		c.manifold = manifold.Collide(fixtureA.Shape(), c.indexA, xfA, fixtureB.Shape(), c.indexB, xfB)
		touching = c.manifold.PointCount > 0
		matchImpulses(&c.manifold, &oldManifold)

		if touching != wasTouching {
			bodyA.SetAwake(true)
			bodyB.SetAwake(true)
		}
	}

	if touching {
		c.flags |= contactTouching
	} else {
		c.flags &^= contactTouching
	}

	if !wasTouching && touching {
		cm.events.emitBegin(c)
	}
	if wasTouching && !touching {
		cm.events.emitEnd(c)
	}

	if !sensor && touching && cm.listener != nil {
		cm.listener.PreSolve(c, &oldManifold)
	}
}
