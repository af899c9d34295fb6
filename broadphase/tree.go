// Package broadphase indexes fixture proxies in a dynamic AABB tree and
// generates the candidate pairs of the narrow phase.
package broadphase

import (
	"fmt"
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const nullNode = -1

// ============================================================================
// Types
// ============================================================================

type treeNode[T any] struct {
	// Enlarged AABB
	aabb     actor.AABB
	userData T

	parent int
	next   int // free list link

	child1 int
	child2 int

	// leaf = 0, free node = -1
	height int

	moved bool
}

func (n *treeNode[T]) isLeaf() bool {
	return n.child1 == nullNode
}

// DynamicTree is a bounding volume hierarchy of fat AABBs. Leaves are proxies;
// internal nodes bound their two children. Inserting descends by the perimeter
// cost heuristic and the path back to the root is rebalanced by rotations.
// Proxy ids are node indices and stay valid until the proxy is destroyed.
type DynamicTree[T any] struct {
	root           int
	nodes          []treeNode[T]
	nodeCount      int
	freeList       int
	insertionCount int

	extension  float64
	multiplier float64
}

// ============================================================================
// Constructor
// ============================================================================

// NewDynamicTree creates an empty tree. extension is the fat AABB margin and
// multiplier scales the displacement prediction of MoveProxy.
func NewDynamicTree[T any](extension, multiplier float64) *DynamicTree[T] {
	return &DynamicTree[T]{
		root:       nullNode,
		nodes:      make([]treeNode[T], 0, 16),
		freeList:   nullNode,
		extension:  extension,
		multiplier: multiplier,
	}
}

func (t *DynamicTree[T]) allocateNode() int {
	var id int
	if t.freeList == nullNode {
		t.nodes = append(t.nodes, treeNode[T]{})
		id = len(t.nodes) - 1
	} else {
		id = t.freeList
		t.freeList = t.nodes[id].next
	}

	var zero T
	t.nodes[id] = treeNode[T]{
		userData: zero,
		parent:   nullNode,
		next:     nullNode,
		child1:   nullNode,
		child2:   nullNode,
		height:   0,
	}
	t.nodeCount++

	return id
}

func (t *DynamicTree[T]) freeNode(id int) {
	var zero T
	t.nodes[id].next = t.freeList
	t.nodes[id].height = -1
	t.nodes[id].userData = zero
	t.freeList = id
	t.nodeCount--
}

func (t *DynamicTree[T]) checkProxy(proxyID int) {
	if proxyID < 0 || proxyID >= len(t.nodes) || t.nodes[proxyID].height < 0 {
		panic(fmt.Sprintf("broadphase: unknown proxy %d", proxyID))
	}
	if !t.nodes[proxyID].isLeaf() {
		panic(fmt.Sprintf("broadphase: node %d is not a proxy", proxyID))
	}
}

// ============================================================================
// Proxies
// ============================================================================

// CreateProxy inserts a leaf for aabb, stored fattened by the extension.
func (t *DynamicTree[T]) CreateProxy(aabb actor.AABB, userData T) int {
	proxyID := t.allocateNode()

	t.nodes[proxyID].aabb = aabb.Extend(t.extension)
	t.nodes[proxyID].userData = userData
	t.nodes[proxyID].height = 0
	t.nodes[proxyID].moved = true

	t.insertLeaf(proxyID)

	return proxyID
}

// DestroyProxy removes a leaf. It panics on an unknown or internal node.
func (t *DynamicTree[T]) DestroyProxy(proxyID int) {
	t.checkProxy(proxyID)

	t.removeLeaf(proxyID)
	t.freeNode(proxyID)
}

// MoveProxy updates a proxy for its new tight aabb. Nothing happens and false
// is returned while the stored fat AABB still contains aabb. Otherwise the leaf
// is reinserted with an AABB fattened by the extension and stretched along the
// predicted displacement.
func (t *DynamicTree[T]) MoveProxy(proxyID int, aabb actor.AABB, displacement mgl64.Vec2) bool {
	t.checkProxy(proxyID)

	if t.nodes[proxyID].aabb.Contains(aabb) {
		return false
	}

	fat := aabb.Extend(t.extension)

	d := displacement.Mul(t.multiplier)
	for i := 0; i < 2; i++ {
		if d[i] < 0.0 {
			fat.Min[i] += d[i]
		} else {
			fat.Max[i] += d[i]
		}
	}

	t.removeLeaf(proxyID)
	t.nodes[proxyID].aabb = fat
	t.insertLeaf(proxyID)
	t.nodes[proxyID].moved = true

	return true
}

// UserData returns the value given to CreateProxy.
func (t *DynamicTree[T]) UserData(proxyID int) T {
	t.checkProxy(proxyID)
	return t.nodes[proxyID].userData
}

// FatAABB returns the enlarged AABB stored for the proxy.
func (t *DynamicTree[T]) FatAABB(proxyID int) actor.AABB {
	t.checkProxy(proxyID)
	return t.nodes[proxyID].aabb
}

// WasMoved reports whether the proxy was created or reinserted since the last
// ClearMoved.
func (t *DynamicTree[T]) WasMoved(proxyID int) bool {
	t.checkProxy(proxyID)
	return t.nodes[proxyID].moved
}

// ClearMoved resets the moved flag once the pairs of the proxy are found.
func (t *DynamicTree[T]) ClearMoved(proxyID int) {
	t.checkProxy(proxyID)
	t.nodes[proxyID].moved = false
}

// ============================================================================
// Queries
// ============================================================================

// Query reports every proxy whose fat AABB overlaps aabb. The callback
// returns false to stop the query.
func (t *DynamicTree[T]) Query(aabb actor.AABB, callback func(proxyID int) bool) {
	stack := make([]int, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeID == nullNode {
			continue
		}

		node := &t.nodes[nodeID]
		if !node.aabb.Overlaps(aabb) {
			continue
		}

		if node.isLeaf() {
			if !callback(nodeID) {
				return
			}
		} else {
			stack = append(stack, node.child1, node.child2)
		}
	}
}

// RayCast reports the proxies whose fat AABB the ray crosses. The callback
// returns the new max fraction: 0 terminates, a negative value ignores the
// proxy, the input fraction continues unclipped.
func (t *DynamicTree[T]) RayCast(input actor.RayCastInput, callback func(input actor.RayCastInput, proxyID int) float64) {
	p1 := input.P1
	p2 := input.P2
	r, length := actor.Normalize(p2.Sub(p1))
	if length == 0 {
		return
	}

	// v is perpendicular to the segment
	v := actor.CrossSV(1.0, r)
	absV := actor.Abs(v)

	maxFraction := input.MaxFraction

	segment := func() actor.AABB {
		end := p1.Add(p2.Sub(p1).Mul(maxFraction))
		return actor.AABB{Min: actor.MinVec(p1, end), Max: actor.MaxVec(p1, end)}
	}
	segmentAABB := segment()

	stack := make([]int, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeID == nullNode {
			continue
		}

		node := &t.nodes[nodeID]
		if !node.aabb.Overlaps(segmentAABB) {
			continue
		}

		// separating axis for the segment: |dot(v, p1 - c)| > dot(|v|, h)
		c := node.aabb.Center()
		h := node.aabb.Extents()
		separation := math.Abs(v.Dot(p1.Sub(c))) - absV.Dot(h)
		if separation > 0.0 {
			continue
		}

		if !node.isLeaf() {
			stack = append(stack, node.child1, node.child2)
			continue
		}

		value := callback(actor.RayCastInput{P1: p1, P2: p2, MaxFraction: maxFraction}, nodeID)
		if value == 0.0 {
			return
		}
		if value > 0.0 {
			maxFraction = value
			segmentAABB = segment()
		}
	}
}

// ============================================================================
// Insertion
// ============================================================================

func (t *DynamicTree[T]) insertLeaf(leaf int) {
	t.insertionCount++

	if t.root == nullNode {
		t.root = leaf
		t.nodes[t.root].parent = nullNode
		return
	}

	// find the best sibling
	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].aabb.Perimeter()
		combinedArea := t.nodes[index].aabb.Combine(leafAABB).Perimeter()

		// cost of creating a new parent for this node and the new leaf
		cost := 2.0 * combinedArea

		// minimum cost of pushing the leaf further down the tree
		inheritanceCost := 2.0 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafAABB) + inheritanceCost
		cost2 := t.descendCost(child2, leafAABB) + inheritanceCost

		if cost < cost1 && cost < cost2 {
			break
		}

		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index

	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = leafAABB.Combine(t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}

	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	t.refit(t.nodes[leaf].parent)
}

func (t *DynamicTree[T]) descendCost(child int, leafAABB actor.AABB) float64 {
	combined := leafAABB.Combine(t.nodes[child].aabb)
	if t.nodes[child].isLeaf() {
		return combined.Perimeter()
	}
	return combined.Perimeter() - t.nodes[child].aabb.Perimeter()
}

// refit walks up from index, balancing and fixing heights and AABBs
func (t *DynamicTree[T]) refit(index int) {
	for index != nullNode {
		index = t.balance(index)

		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		t.nodes[index].height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)
		t.nodes[index].aabb = t.nodes[child1].aabb.Combine(t.nodes[child2].aabb)

		index = t.nodes[index].parent
	}
}

func (t *DynamicTree[T]) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent

	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	if grandParent == nullNode {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
		return
	}

	// destroy parent and connect sibling to grandParent
	if t.nodes[grandParent].child1 == parent {
		t.nodes[grandParent].child1 = sibling
	} else {
		t.nodes[grandParent].child2 = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.freeNode(parent)

	t.refit(grandParent)
}

// balance performs a left or right rotation if node iA is imbalanced and
// returns the new root of the subtree.
func (t *DynamicTree[T]) balance(iA int) int {
	A := &t.nodes[iA]
	if A.isLeaf() || A.height < 2 {
		return iA
	}

	iB := A.child1
	iC := A.child2
	B := &t.nodes[iB]
	C := &t.nodes[iC]

	balance := C.height - B.height

	// rotate C up
	if balance > 1 {
		iF := C.child1
		iG := C.child2
		F := &t.nodes[iF]
		G := &t.nodes[iG]

		// swap A and C
		C.child1 = iA
		C.parent = A.parent
		A.parent = iC

		t.replaceChild(C.parent, iA, iC)

		if F.height > G.height {
			C.child2 = iF
			A.child2 = iG
			G.parent = iA
			A.aabb = B.aabb.Combine(G.aabb)
			C.aabb = A.aabb.Combine(F.aabb)

			A.height = 1 + max(B.height, G.height)
			C.height = 1 + max(A.height, F.height)
		} else {
			C.child2 = iG
			A.child2 = iF
			F.parent = iA
			A.aabb = B.aabb.Combine(F.aabb)
			C.aabb = A.aabb.Combine(G.aabb)

			A.height = 1 + max(B.height, F.height)
			C.height = 1 + max(A.height, G.height)
		}

		return iC
	}

	// rotate B up
	if balance < -1 {
		iD := B.child1
		iE := B.child2
		D := &t.nodes[iD]
		E := &t.nodes[iE]

		// swap A and B
		B.child1 = iA
		B.parent = A.parent
		A.parent = iB

		t.replaceChild(B.parent, iA, iB)

		if D.height > E.height {
			B.child2 = iD
			A.child1 = iE
			E.parent = iA
			A.aabb = C.aabb.Combine(E.aabb)
			B.aabb = A.aabb.Combine(D.aabb)

			A.height = 1 + max(C.height, E.height)
			B.height = 1 + max(A.height, D.height)
		} else {
			B.child2 = iE
			A.child1 = iD
			D.parent = iA
			A.aabb = C.aabb.Combine(D.aabb)
			B.aabb = A.aabb.Combine(E.aabb)

			A.height = 1 + max(C.height, D.height)
			B.height = 1 + max(A.height, E.height)
		}

		return iB
	}

	return iA
}

// replaceChild points parent at newChild instead of oldChild, or moves the
// root when parent is null
func (t *DynamicTree[T]) replaceChild(parent, oldChild, newChild int) {
	if parent == nullNode {
		t.root = newChild
		return
	}

	if t.nodes[parent].child1 == oldChild {
		t.nodes[parent].child1 = newChild
	} else {
		t.nodes[parent].child2 = newChild
	}
}

// ============================================================================
// Metrics
// ============================================================================

// Height is the height of the root, 0 for an empty tree
func (t *DynamicTree[T]) Height() int {
	if t.root == nullNode {
		return 0
	}
	return t.nodes[t.root].height
}

// MaxBalance is the largest height difference between two siblings
func (t *DynamicTree[T]) MaxBalance() int {
	maxBalance := 0
	for i := range t.nodes {
		node := &t.nodes[i]
		if node.height <= 1 {
			continue
		}

		balance := t.nodes[node.child2].height - t.nodes[node.child1].height
		if balance < 0 {
			balance = -balance
		}
		maxBalance = max(maxBalance, balance)
	}

	return maxBalance
}

// AreaRatio is the summed perimeter of all nodes over the root perimeter
func (t *DynamicTree[T]) AreaRatio() float64 {
	if t.root == nullNode {
		return 0.0
	}

	rootArea := t.nodes[t.root].aabb.Perimeter()
	totalArea := 0.0
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		totalArea += t.nodes[i].aabb.Perimeter()
	}

	return totalArea / rootArea
}

// ProxyCount is the number of leaves
func (t *DynamicTree[T]) ProxyCount() int {
	return (t.nodeCount + 1) / 2
}

// Validate checks the structure and the metrics of the whole tree.
func (t *DynamicTree[T]) Validate() error {
	if t.root != nullNode && t.nodes[t.root].parent != nullNode {
		return fmt.Errorf("root %d has parent %d", t.root, t.nodes[t.root].parent)
	}

	if err := t.validate(t.root); err != nil {
		return err
	}

	freeCount := 0
	for id := t.freeList; id != nullNode; id = t.nodes[id].next {
		if id < 0 || id >= len(t.nodes) {
			return fmt.Errorf("free list points at %d", id)
		}
		freeCount++
	}

	if h := t.computeHeight(t.root); h != t.Height() {
		return fmt.Errorf("height %d, computed %d", t.Height(), h)
	}
	if t.nodeCount+freeCount != len(t.nodes) {
		return fmt.Errorf("%d nodes and %d free for a capacity of %d", t.nodeCount, freeCount, len(t.nodes))
	}

	return nil
}

func (t *DynamicTree[T]) validate(index int) error {
	if index == nullNode {
		return nil
	}

	node := &t.nodes[index]
	if node.isLeaf() {
		if node.child2 != nullNode || node.height != 0 {
			return fmt.Errorf("leaf %d: child2 %d height %d", index, node.child2, node.height)
		}
		return nil
	}

	child1 := node.child1
	child2 := node.child2
	if child1 < 0 || child1 >= len(t.nodes) || child2 < 0 || child2 >= len(t.nodes) {
		return fmt.Errorf("node %d: children %d %d out of range", index, child1, child2)
	}
	if t.nodes[child1].parent != index || t.nodes[child2].parent != index {
		return fmt.Errorf("node %d: children do not point back", index)
	}

	height := 1 + max(t.nodes[child1].height, t.nodes[child2].height)
	if node.height != height {
		return fmt.Errorf("node %d: height %d, want %d", index, node.height, height)
	}

	aabb := t.nodes[child1].aabb.Combine(t.nodes[child2].aabb)
	if aabb != node.aabb {
		return fmt.Errorf("node %d: aabb %v does not bound its children %v", index, node.aabb, aabb)
	}

	if err := t.validate(child1); err != nil {
		return err
	}
	return t.validate(child2)
}

func (t *DynamicTree[T]) computeHeight(index int) int {
	if index == nullNode {
		return 0
	}

	node := &t.nodes[index]
	if node.isLeaf() {
		return 0
	}

	return 1 + max(t.computeHeight(node.child1), t.computeHeight(node.child2))
}
