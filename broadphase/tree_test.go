package broadphase

import (
	"math"
	"math/rand"
	"testing"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// approx compares floats with an absolute tolerance.
func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func box(x, y, h float64) actor.AABB {
	return actor.AABB{Min: mgl64.Vec2{x - h, y - h}, Max: mgl64.Vec2{x + h, y + h}}
}

func queryAll(tree *DynamicTree[string], aabb actor.AABB) map[string]bool {
	found := make(map[string]bool)
	tree.Query(aabb, func(proxyID int) bool {
		found[tree.UserData(proxyID)] = true
		return true
	})
	return found
}

func TestDynamicTree_IdenticalProxies(t *testing.T) {
	tree := NewDynamicTree[string](0.1, 2)
	aabb := box(0, 0, 1)

	a := tree.CreateProxy(aabb, "a")
	b := tree.CreateProxy(aabb, "b")

	found := queryAll(tree, aabb)
	if !found["a"] || !found["b"] {
		t.Fatalf("both identical proxies should be found, got %v", found)
	}

	tree.DestroyProxy(a)
	found = queryAll(tree, aabb)
	if found["a"] || !found["b"] {
		t.Errorf("only b should remain, got %v", found)
	}
	if err := tree.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	tree.DestroyProxy(b)
	if tree.Height() != 0 || tree.ProxyCount() != 0 {
		t.Errorf("tree should be empty")
	}
}

func TestDynamicTree_FatAABB(t *testing.T) {
	tree := NewDynamicTree[int](0.1, 2)
	id := tree.CreateProxy(box(0, 0, 1), 1)

	fat := tree.FatAABB(id)
	if !fat.Min.ApproxFuncEqual(mgl64.Vec2{-1.1, -1.1}, approx) || !fat.Max.ApproxFuncEqual(mgl64.Vec2{1.1, 1.1}, approx) {
		t.Errorf("fat AABB = %v", fat)
	}
}

func TestDynamicTree_MoveProxy(t *testing.T) {
	tree := NewDynamicTree[int](0.1, 2)
	id := tree.CreateProxy(box(0, 0, 1), 1)

	// still inside the fat AABB
	if tree.MoveProxy(id, box(0.05, 0, 1), mgl64.Vec2{0.05, 0}) {
		t.Errorf("small move should not reinsert")
	}

	if !tree.MoveProxy(id, box(0.5, 0, 1), mgl64.Vec2{0.5, 0}) {
		t.Fatalf("escaping move should reinsert")
	}

	fat := tree.FatAABB(id)
	// extended by 0.1 and by 2 * displacement along +x
	if !fat.Max.ApproxFuncEqual(mgl64.Vec2{1.5 + 0.1 + 1.0, 1.1}, approx) || !fat.Min.ApproxFuncEqual(mgl64.Vec2{-0.6, -1.1}, approx) {
		t.Errorf("predicted fat AABB = %v", fat)
	}
	if !fat.Contains(box(0.5, 0, 1)) {
		t.Errorf("fat AABB must contain the tight AABB")
	}
}

func TestDynamicTree_DestroyUnknownPanics(t *testing.T) {
	tests := []struct {
		name  string
		setup func(tree *DynamicTree[int]) int
	}{
		{"out of range", func(tree *DynamicTree[int]) int { return 42 }},
		{"already destroyed", func(tree *DynamicTree[int]) int {
			id := tree.CreateProxy(box(0, 0, 1), 0)
			tree.CreateProxy(box(5, 0, 1), 1)
			tree.DestroyProxy(id)
			return id
		}},
		{"internal node", func(tree *DynamicTree[int]) int {
			tree.CreateProxy(box(0, 0, 1), 0)
			tree.CreateProxy(box(5, 0, 1), 1)
			return tree.root
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := NewDynamicTree[int](0.1, 2)
			id := tt.setup(tree)

			defer func() {
				if recover() == nil {
					t.Errorf("DestroyProxy(%d) should panic", id)
				}
			}()
			tree.DestroyProxy(id)
		})
	}
}

func TestDynamicTree_MovedFlag(t *testing.T) {
	tree := NewDynamicTree[int](0.1, 2)
	id := tree.CreateProxy(box(0, 0, 1), 0)

	if !tree.WasMoved(id) {
		t.Fatal("a new proxy is moved")
	}
	tree.ClearMoved(id)
	if tree.WasMoved(id) {
		t.Fatal("ClearMoved should reset the flag")
	}

	tree.MoveProxy(id, box(3, 0, 1), mgl64.Vec2{3, 0})
	if !tree.WasMoved(id) {
		t.Error("a reinserted proxy is moved")
	}

	tree.CreateProxy(box(8, 0, 1), 1)
	accessors := map[string]func(id int){
		"WasMoved":   func(id int) { tree.WasMoved(id) },
		"ClearMoved": func(id int) { tree.ClearMoved(id) },
	}
	for name, call := range accessors {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s(root) should panic", name)
				}
			}()
			call(tree.root)
		})
	}
}

func TestDynamicTree_DegenerateAABB(t *testing.T) {
	tree := NewDynamicTree[int](0, 2)
	point := actor.AABB{Min: mgl64.Vec2{1, 1}, Max: mgl64.Vec2{1, 1}}
	tree.CreateProxy(point, 7)

	hits := 0
	tree.Query(point, func(proxyID int) bool {
		hits++
		return true
	})
	if hits != 1 {
		t.Errorf("zero area proxy found %d times, want 1", hits)
	}
}

func TestDynamicTree_RandomizedBalance(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tree := NewDynamicTree[int](0.1, 2)

	ids := make([]int, 0, 200)
	for i := 0; i < 200; i++ {
		x := rng.Float64() * 100
		y := rng.Float64() * 100
		ids = append(ids, tree.CreateProxy(box(x, y, 0.5), i))
	}

	if err := tree.Validate(); err != nil {
		t.Fatalf("Validate() after inserts = %v", err)
	}
	// 200 leaves: a balanced tree is far below the degenerate height of 199
	if tree.Height() > 30 {
		t.Errorf("Height = %d", tree.Height())
	}

	for i, id := range ids {
		if i%3 == 0 {
			tree.DestroyProxy(id)
			continue
		}
		x := rng.Float64() * 100
		y := rng.Float64() * 100
		tree.MoveProxy(id, box(x, y, 0.5), mgl64.Vec2{1, -1})
	}

	if err := tree.Validate(); err != nil {
		t.Fatalf("Validate() after moves = %v", err)
	}
	if tree.AreaRatio() < 1 {
		t.Errorf("AreaRatio = %v, the root is part of the sum", tree.AreaRatio())
	}
}

func TestDynamicTree_QueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := NewDynamicTree[int](0, 2)

	aabbs := make([]actor.AABB, 100)
	for i := range aabbs {
		aabbs[i] = box(rng.Float64()*20, rng.Float64()*20, 0.2+rng.Float64())
		tree.CreateProxy(aabbs[i], i)
	}

	query := box(10, 10, 3)
	found := make(map[int]bool)
	tree.Query(query, func(proxyID int) bool {
		found[tree.UserData(proxyID)] = true
		return true
	})

	for i, aabb := range aabbs {
		if aabb.Overlaps(query) != found[i] {
			t.Errorf("proxy %d: overlap %v, found %v", i, aabb.Overlaps(query), found[i])
		}
	}
}

func TestDynamicTree_RayCast(t *testing.T) {
	tree := NewDynamicTree[string](0, 2)
	tree.CreateProxy(box(2, 0, 0.5), "near")
	tree.CreateProxy(box(6, 0, 0.5), "far")
	tree.CreateProxy(box(4, 5, 0.5), "off")

	input := actor.RayCastInput{P1: mgl64.Vec2{0, 0}, P2: mgl64.Vec2{10, 0}, MaxFraction: 1}

	visited := map[string]bool{}
	tree.RayCast(input, func(sub actor.RayCastInput, proxyID int) float64 {
		visited[tree.UserData(proxyID)] = true
		return sub.MaxFraction
	})
	if !visited["near"] || !visited["far"] || visited["off"] {
		t.Errorf("visited = %v", visited)
	}

	hits := 0
	tree.RayCast(input, func(sub actor.RayCastInput, proxyID int) float64 {
		hits++
		return 0
	})
	if hits != 1 {
		t.Errorf("returning 0 should terminate the cast, got %d hits", hits)
	}

	hits = 0
	tree.RayCast(input, func(sub actor.RayCastInput, proxyID int) float64 {
		hits++
		return -1
	})
	if hits != 2 {
		t.Errorf("ignored proxies should not clip the ray, got %d hits", hits)
	}
}
