package plume

import (
	"iter"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/constraint"
)

// JointEdge links a joint into the joint list of one body. Prev and Next are
// edge ids, actor.NullIndex at both ends of the list.
type JointEdge struct {
	Other *actor.RigidBody
	Prev  int
	Next  int
}

type jointNode struct {
	joint constraint.Joint
	// edges[0] is in the list of body A, edges[1] in the list of body B
	edges [2]JointEdge

	prev int
	next int

	island bool
	broken bool
}

// jointGraph is the joint arena of a world: the nodes are linked in creation
// order and into the joint list of both bodies.
type jointGraph struct {
	nodes []jointNode
	free  []int
	index map[constraint.Joint]int

	head  int
	tail  int
	count int
}

func newJointGraph() jointGraph {
	return jointGraph{
		index: make(map[constraint.Joint]int),
		head:  actor.NullIndex,
		tail:  actor.NullIndex,
	}
}

func (g *jointGraph) edge(id int) *JointEdge {
	return &g.nodes[id>>1].edges[id&1]
}

// add stores the joint and links it into both bodies.
func (g *jointGraph) add(j constraint.Joint) int {
	var id int
	if n := len(g.free); n > 0 {
		id = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		id = len(g.nodes)
		g.nodes = append(g.nodes, jointNode{})
	}

	g.nodes[id] = jointNode{joint: j, prev: g.tail, next: actor.NullIndex}
	if g.tail != actor.NullIndex {
		g.nodes[g.tail].next = id
	} else {
		g.head = id
	}
	g.tail = id

	bodyA, bodyB := j.BodyA(), j.BodyB()
	g.link(bodyA, edgeID(id, 0), bodyB)
	g.link(bodyB, edgeID(id, 1), bodyA)

	g.index[j] = id
	g.count++
	return id
}

// remove unlinks the joint. It reports false for an unknown joint.
func (g *jointGraph) remove(j constraint.Joint) bool {
	id, ok := g.index[j]
	if !ok {
		return false
	}

	n := &g.nodes[id]
	if n.prev != actor.NullIndex {
		g.nodes[n.prev].next = n.next
	} else {
		g.head = n.next
	}
	if n.next != actor.NullIndex {
		g.nodes[n.next].prev = n.prev
	} else {
		g.tail = n.prev
	}

	g.unlink(j.BodyA(), edgeID(id, 0))
	g.unlink(j.BodyB(), edgeID(id, 1))

	g.nodes[id] = jointNode{}
	g.free = append(g.free, id)
	delete(g.index, j)
	g.count--
	return true
}

func (g *jointGraph) link(body *actor.RigidBody, id int, other *actor.RigidBody) {
	e := g.edge(id)
	e.Other = other
	e.Prev = actor.NullIndex
	e.Next = body.JointList
	if body.JointList != actor.NullIndex {
		g.edge(body.JointList).Prev = id
	}
	body.JointList = id
}

func (g *jointGraph) unlink(body *actor.RigidBody, id int) {
	e := g.edge(id)
	if e.Prev != actor.NullIndex {
		g.edge(e.Prev).Next = e.Next
	}
	if e.Next != actor.NullIndex {
		g.edge(e.Next).Prev = e.Prev
	}
	if body.JointList == id {
		body.JointList = e.Next
	}
}

// all iterates the joints in creation order.
func (g *jointGraph) all() iter.Seq2[int, *jointNode] {
	return func(yield func(int, *jointNode) bool) {
		for id := g.head; id != actor.NullIndex; {
			next := g.nodes[id].next
			if !yield(id, &g.nodes[id]) {
				return
			}
			id = next
		}
	}
}

// bodyJoints iterates the joint edges of a body. The current joint may be
// removed while iterating.
func (g *jointGraph) bodyJoints(body *actor.RigidBody) iter.Seq2[*JointEdge, *jointNode] {
	return func(yield func(*JointEdge, *jointNode) bool) {
		for id := body.JointList; id != actor.NullIndex; {
			e := g.edge(id)
			next := e.Next
			if !yield(e, &g.nodes[id>>1]) {
				return
			}
			id = next
		}
	}
}

// preventsCollision reports whether an intact joint between the two bodies
// disables their contacts.
func (g *jointGraph) preventsCollision(bodyA, bodyB *actor.RigidBody) bool {
	for e, n := range g.bodyJoints(bodyB) {
		if e.Other == bodyA && !n.broken && !n.joint.CollideConnected() {
			return true
		}
	}
	return false
}
