package broadphase

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func collectPairs(bp *BroadPhase[string]) [][2]string {
	var pairs [][2]string
	bp.UpdatePairs(func(a, b string) {
		pairs = append(pairs, [2]string{a, b})
	})
	return pairs
}

func TestBroadPhase_UpdatePairs(t *testing.T) {
	bp := NewBroadPhase[string](0.1, 2)
	bp.CreateProxy(box(0, 0, 1), "a")
	bp.CreateProxy(box(1.5, 0, 1), "b")
	bp.CreateProxy(box(10, 0, 1), "c")

	pairs := collectPairs(bp)
	if len(pairs) != 1 {
		t.Fatalf("pairs = %v, want exactly a-b", pairs)
	}
	if pairs[0] != [2]string{"a", "b"} {
		t.Errorf("pair = %v, want [a b]", pairs[0])
	}

	// nothing moved
	if pairs := collectPairs(bp); len(pairs) != 0 {
		t.Errorf("no proxy moved, got %v", pairs)
	}
}

func TestBroadPhase_MoveAndTouch(t *testing.T) {
	bp := NewBroadPhase[string](0.1, 2)
	a := bp.CreateProxy(box(0, 0, 1), "a")
	c := bp.CreateProxy(box(10, 0, 1), "c")
	collectPairs(bp)

	bp.MoveProxy(a, box(9, 0, 1), mgl64.Vec2{9, 0})
	pairs := collectPairs(bp)
	if len(pairs) != 1 || pairs[0] != [2]string{"a", "c"} {
		t.Errorf("pairs after move = %v", pairs)
	}

	bp.TouchProxy(c)
	if pairs := collectPairs(bp); len(pairs) != 1 {
		t.Errorf("touched proxy should be re-paired, got %v", pairs)
	}

	if !bp.TestOverlap(a, c) {
		t.Errorf("fat AABBs should overlap")
	}
}

func TestBroadPhase_DestroyBufferedProxy(t *testing.T) {
	bp := NewBroadPhase[string](0.1, 2)
	bp.CreateProxy(box(0, 0, 1), "a")
	b := bp.CreateProxy(box(0.5, 0, 1), "b")
	bp.DestroyProxy(b)

	if pairs := collectPairs(bp); len(pairs) != 0 {
		t.Errorf("destroyed proxy paired: %v", pairs)
	}
	if bp.ProxyCount() != 1 {
		t.Errorf("ProxyCount = %d, want 1", bp.ProxyCount())
	}
}

func TestBroadPhase_DeterministicOrder(t *testing.T) {
	bp := NewBroadPhase[string](0.1, 2)
	names := []string{"p0", "p1", "p2", "p3"}
	for _, name := range names {
		bp.CreateProxy(box(0, 0, 1), name)
	}

	pairs := collectPairs(bp)
	if len(pairs) != 6 {
		t.Fatalf("4 overlapping proxies give 6 pairs, got %d", len(pairs))
	}

	want := [][2]string{{"p0", "p1"}, {"p0", "p2"}, {"p0", "p3"}, {"p1", "p2"}, {"p1", "p3"}, {"p2", "p3"}}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, pairs[i], want[i])
		}
	}
}
