package broadphase

import (
	"cmp"
	"slices"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Pair is a candidate pair of overlapping proxies, ProxyIDA < ProxyIDB
type Pair struct {
	ProxyIDA int
	ProxyIDB int
}

// BroadPhase wraps a DynamicTree with a move buffer. Only proxies created,
// moved or touched since the last UpdatePairs are re-queried.
type BroadPhase[T any] struct {
	tree *DynamicTree[T]

	proxyCount int
	moveBuffer []int
	pairBuffer []Pair
}

func NewBroadPhase[T any](extension, multiplier float64) *BroadPhase[T] {
	return &BroadPhase[T]{
		tree:       NewDynamicTree[T](extension, multiplier),
		moveBuffer: make([]int, 0, 16),
		pairBuffer: make([]Pair, 0, 16),
	}
}

// CreateProxy adds a proxy; it is paired on the next UpdatePairs.
func (bp *BroadPhase[T]) CreateProxy(aabb actor.AABB, userData T) int {
	proxyID := bp.tree.CreateProxy(aabb, userData)
	bp.proxyCount++
	bp.bufferMove(proxyID)
	return proxyID
}

func (bp *BroadPhase[T]) DestroyProxy(proxyID int) {
	bp.unbufferMove(proxyID)
	bp.proxyCount--
	bp.tree.DestroyProxy(proxyID)
}

// MoveProxy updates the tree and buffers the proxy when it was reinserted.
func (bp *BroadPhase[T]) MoveProxy(proxyID int, aabb actor.AABB, displacement mgl64.Vec2) {
	if bp.tree.MoveProxy(proxyID, aabb, displacement) {
		bp.bufferMove(proxyID)
	}
}

// TouchProxy forces the proxy to be re-paired on the next update
func (bp *BroadPhase[T]) TouchProxy(proxyID int) {
	bp.bufferMove(proxyID)
}

func (bp *BroadPhase[T]) FatAABB(proxyID int) actor.AABB {
	return bp.tree.FatAABB(proxyID)
}

func (bp *BroadPhase[T]) UserData(proxyID int) T {
	return bp.tree.UserData(proxyID)
}

// TestOverlap compares the fat AABBs of two proxies
func (bp *BroadPhase[T]) TestOverlap(proxyIDA, proxyIDB int) bool {
	return bp.tree.FatAABB(proxyIDA).Overlaps(bp.tree.FatAABB(proxyIDB))
}

func (bp *BroadPhase[T]) ProxyCount() int {
	return bp.proxyCount
}

func (bp *BroadPhase[T]) TreeHeight() int {
	return bp.tree.Height()
}

func (bp *BroadPhase[T]) TreeBalance() int {
	return bp.tree.MaxBalance()
}

func (bp *BroadPhase[T]) TreeQuality() float64 {
	return bp.tree.AreaRatio()
}

func (bp *BroadPhase[T]) Tree() *DynamicTree[T] {
	return bp.tree
}

// Query reports the proxies whose fat AABB overlaps aabb
func (bp *BroadPhase[T]) Query(aabb actor.AABB, callback func(proxyID int) bool) {
	bp.tree.Query(aabb, callback)
}

func (bp *BroadPhase[T]) RayCast(input actor.RayCastInput, callback func(input actor.RayCastInput, proxyID int) float64) {
	bp.tree.RayCast(input, callback)
}

func (bp *BroadPhase[T]) bufferMove(proxyID int) {
	bp.moveBuffer = append(bp.moveBuffer, proxyID)
}

func (bp *BroadPhase[T]) unbufferMove(proxyID int) {
	for i, id := range bp.moveBuffer {
		if id == proxyID {
			bp.moveBuffer[i] = nullNode
		}
	}
}

// UpdatePairs queries the tree for every buffered proxy and reports each new
// overlapping pair once, sorted by proxy ids. Pairs of two moved proxies are
// found from the higher id only.
func (bp *BroadPhase[T]) UpdatePairs(callback func(userDataA, userDataB T)) {
	bp.pairBuffer = bp.pairBuffer[:0]

	for _, queryProxyID := range bp.moveBuffer {
		if queryProxyID == nullNode {
			continue
		}

		fatAABB := bp.tree.FatAABB(queryProxyID)
		bp.tree.Query(fatAABB, func(proxyID int) bool {
			if proxyID == queryProxyID {
				return true
			}

			// both moved: the higher id reports the pair
			if bp.tree.WasMoved(proxyID) && proxyID > queryProxyID {
				return true
			}

			bp.pairBuffer = append(bp.pairBuffer, Pair{
				ProxyIDA: min(proxyID, queryProxyID),
				ProxyIDB: max(proxyID, queryProxyID),
			})
			return true
		})
	}

	slices.SortFunc(bp.pairBuffer, func(a, b Pair) int {
		if c := cmp.Compare(a.ProxyIDA, b.ProxyIDA); c != 0 {
			return c
		}
		return cmp.Compare(a.ProxyIDB, b.ProxyIDB)
	})
	bp.pairBuffer = slices.Compact(bp.pairBuffer)

	for _, pair := range bp.pairBuffer {
		callback(bp.tree.UserData(pair.ProxyIDA), bp.tree.UserData(pair.ProxyIDB))
	}

	for _, proxyID := range bp.moveBuffer {
		if proxyID == nullNode {
			continue
		}
		bp.tree.ClearMoved(proxyID)
	}
	bp.moveBuffer = bp.moveBuffer[:0]
}
