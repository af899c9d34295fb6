package actor

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// =============================================================================
// Polygon Construction Tests
// =============================================================================

func TestNewPolygon_Hull(t *testing.T) {
	tests := []struct {
		name     string
		points   []mgl64.Vec2
		expected int
	}{
		{
			name:     "triangle",
			points:   []mgl64.Vec2{{0, 0}, {1, 0}, {0, 1}},
			expected: 3,
		},
		{
			name:     "square clockwise",
			points:   []mgl64.Vec2{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
			expected: 4,
		},
		{
			name:     "interior point dropped",
			points:   []mgl64.Vec2{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}},
			expected: 4,
		},
		{
			name:     "collinear point dropped",
			points:   []mgl64.Vec2{{0, 0}, {1, 0}, {2, 0}, {2, 2}, {0, 2}},
			expected: 4,
		},
		{
			name:     "welded duplicates",
			points:   []mgl64.Vec2{{0, 0}, {0.0001, 0}, {1, 0}, {1, 1}},
			expected: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPolygon(tt.points)
			if err != nil {
				t.Fatalf("NewPolygon() error = %v", err)
			}
			if len(p.Vertices) != tt.expected {
				t.Fatalf("vertex count = %d, want %d", len(p.Vertices), tt.expected)
			}

			// counter-clockwise and convex
			n := len(p.Vertices)
			for i := 0; i < n; i++ {
				e1 := p.Vertices[(i+1)%n].Sub(p.Vertices[i])
				e2 := p.Vertices[(i+2)%n].Sub(p.Vertices[(i+1)%n])
				if Cross(e1, e2) <= 0 {
					t.Errorf("hull is not convex CCW at vertex %d", i)
				}
				if math.Abs(p.Normals[i].Len()-1) > 1e-12 {
					t.Errorf("normal %d is not unit", i)
				}
				if p.Normals[i].Dot(e1) > 1e-12 {
					t.Errorf("normal %d is not perpendicular to its edge", i)
				}
			}
		})
	}
}

func TestNewPolygon_Errors(t *testing.T) {
	tests := []struct {
		name   string
		points []mgl64.Vec2
		err    error
	}{
		{"two points", []mgl64.Vec2{{0, 0}, {1, 0}}, ErrDegeneratePolygon},
		{"collinear", []mgl64.Vec2{{0, 0}, {1, 0}, {2, 0}}, ErrDegeneratePolygon},
		{"all welded", []mgl64.Vec2{{0, 0}, {0.001, 0}, {0, 0.001}}, ErrDegeneratePolygon},
		{"too many", make([]mgl64.Vec2, settings.MaxPolygonVertices+1), ErrTooManyVertices},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolygon(tt.points)
			if !errors.Is(err, tt.err) {
				t.Errorf("NewPolygon() error = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestPolygon_ComputeMass(t *testing.T) {
	box := NewBox(1, 0.5)
	md := box.ComputeMass(2)

	// 2 x 1 box
	if math.Abs(md.Mass-4) > 1e-12 {
		t.Errorf("mass = %v, want 4", md.Mass)
	}
	if md.Center.Len() > 1e-12 {
		t.Errorf("center = %v, want origin", md.Center)
	}
	expected := 4.0 * (4.0 + 1.0) / 12.0
	if math.Abs(md.Inertia-expected) > 1e-9 {
		t.Errorf("inertia = %v, want %v", md.Inertia, expected)
	}

	// the same box offset by (3, 0) has the parallel axis term
	offset := NewOrientedBox(1, 0.5, mgl64.Vec2{3, 0}, 0)
	md = offset.ComputeMass(2)
	if !md.Center.ApproxFuncEqual(mgl64.Vec2{3, 0}, approx) {
		t.Errorf("center = %v, want (3,0)", md.Center)
	}
	if math.Abs(md.Inertia-(expected+4*9)) > 1e-9 {
		t.Errorf("inertia = %v, want %v", md.Inertia, expected+36)
	}
}

func TestPolygon_CentroidMatchesMassCenter(t *testing.T) {
	p, err := NewPolygon([]mgl64.Vec2{{0, 0}, {4, 0}, {0, 3}})
	if err != nil {
		t.Fatal(err)
	}

	want := mgl64.Vec2{4.0 / 3.0, 1}
	if !p.Centroid.ApproxFuncEqual(want, approx) {
		t.Errorf("centroid = %v, want %v", p.Centroid, want)
	}
	if md := p.ComputeMass(1); !md.Center.ApproxFuncEqual(want, approx) || math.Abs(md.Mass-6) > 1e-12 {
		t.Errorf("mass data = %+v", md)
	}
}

func TestPolygon_TestPoint(t *testing.T) {
	box := NewBox(1, 1)
	xf := NewTransformAt(mgl64.Vec2{5, 0}, math.Pi/4)

	if !box.TestPoint(xf, mgl64.Vec2{5, 0}) {
		t.Errorf("center should be inside")
	}
	// corner of the unrotated box lies outside the rotated one
	if !box.TestPoint(xf, mgl64.Vec2{5, 1.4}) {
		t.Errorf("rotated corner direction should be inside")
	}
	if box.TestPoint(xf, mgl64.Vec2{6, 1}) {
		t.Errorf("(6,1) should be outside the rotated box")
	}
}

func TestPolygon_RayCast(t *testing.T) {
	box := NewBox(1, 1)
	xf := NewTransformAt(mgl64.Vec2{0, 0}, 0)

	out, hit := box.RayCast(RayCastInput{P1: mgl64.Vec2{-5, 0}, P2: mgl64.Vec2{5, 0}, MaxFraction: 1}, xf, 0)
	if !hit {
		t.Fatal("ray should hit")
	}
	if math.Abs(out.Fraction-0.4) > 1e-12 || !out.Normal.ApproxFuncEqual(mgl64.Vec2{-1, 0}, approx) {
		t.Errorf("output = %+v", out)
	}

	if _, hit := box.RayCast(RayCastInput{P1: mgl64.Vec2{-5, 2}, P2: mgl64.Vec2{5, 2}, MaxFraction: 1}, xf, 0); hit {
		t.Errorf("ray above the box should miss")
	}
	if _, hit := box.RayCast(RayCastInput{P1: mgl64.Vec2{0, 0}, P2: mgl64.Vec2{5, 0}, MaxFraction: 1}, xf, 0); hit {
		t.Errorf("ray starting inside should not report a hit")
	}
}

func TestPolygon_ComputeAABB(t *testing.T) {
	box := NewBox(1, 2)
	aabb := box.ComputeAABB(NewTransformAt(mgl64.Vec2{1, 1}, math.Pi/2), 0)

	r := settings.PolygonRadius
	want := AABB{Min: mgl64.Vec2{-1 - r, 0 - r}, Max: mgl64.Vec2{3 + r, 2 + r}}
	if !aabb.Min.ApproxFuncEqual(want.Min, approx) || !aabb.Max.ApproxFuncEqual(want.Max, approx) {
		t.Errorf("ComputeAABB = %v, want %v", aabb, want)
	}
}

// =============================================================================
// Circle Tests
// =============================================================================

func TestCircle(t *testing.T) {
	c := &Circle{Position: mgl64.Vec2{1, 0}, Radius: 0.5}
	xf := NewTransformAt(mgl64.Vec2{0, 0}, math.Pi/2)

	if !c.TestPoint(xf, mgl64.Vec2{0, 1}) {
		t.Errorf("rotated center should be inside")
	}
	if c.TestPoint(xf, mgl64.Vec2{1, 0}) {
		t.Errorf("unrotated center should be outside")
	}

	aabb := c.ComputeAABB(xf, 0)
	if !aabb.Min.ApproxFuncEqual(mgl64.Vec2{-0.5, 0.5}, approx) || !aabb.Max.ApproxFuncEqual(mgl64.Vec2{0.5, 1.5}, approx) {
		t.Errorf("ComputeAABB = %v", aabb)
	}

	md := c.ComputeMass(1)
	mass := math.Pi * 0.25
	if math.Abs(md.Mass-mass) > 1e-12 || math.Abs(md.Inertia-mass*(0.125+1)) > 1e-12 {
		t.Errorf("ComputeMass = %+v", md)
	}

	out, hit := c.RayCast(RayCastInput{P1: mgl64.Vec2{0, -1}, P2: mgl64.Vec2{0, 3}, MaxFraction: 1}, xf, 0)
	if !hit || math.Abs(out.Fraction-0.375) > 1e-12 || !out.Normal.ApproxFuncEqual(mgl64.Vec2{0, -1}, approx) {
		t.Errorf("RayCast = %+v, %v", out, hit)
	}
}

// =============================================================================
// Edge and Chain Tests
// =============================================================================

func TestEdge_RayCast(t *testing.T) {
	xf := NewTransform()
	down := RayCastInput{P1: mgl64.Vec2{0, 1}, P2: mgl64.Vec2{0, -1}, MaxFraction: 1}
	up := RayCastInput{P1: mgl64.Vec2{0, -1}, P2: mgl64.Vec2{0, 1}, MaxFraction: 1}

	// right side of (1,0)->(-1,0) is up
	two := NewEdge(mgl64.Vec2{1, 0}, mgl64.Vec2{-1, 0})
	if out, hit := two.RayCast(down, xf, 0); !hit || !out.Normal.ApproxFuncEqual(mgl64.Vec2{0, 1}, approx) || math.Abs(out.Fraction-0.5) > 1e-12 {
		t.Errorf("two-sided down = %+v, %v", out, hit)
	}
	if out, hit := two.RayCast(up, xf, 0); !hit || !out.Normal.ApproxFuncEqual(mgl64.Vec2{0, -1}, approx) {
		t.Errorf("two-sided up = %+v, %v", out, hit)
	}

	one := NewOneSidedEdge(mgl64.Vec2{2, 0}, mgl64.Vec2{1, 0}, mgl64.Vec2{-1, 0}, mgl64.Vec2{-2, 0})
	if _, hit := one.RayCast(down, xf, 0); !hit {
		t.Errorf("one-sided edge should be hit from its front")
	}
	if _, hit := one.RayCast(up, xf, 0); hit {
		t.Errorf("one-sided edge should not be hit from its back")
	}
}

func TestNewLoop(t *testing.T) {
	loop, err := NewLoop([]mgl64.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	if err != nil {
		t.Fatal(err)
	}

	if loop.ChildCount() != 4 {
		t.Fatalf("ChildCount = %d, want 4", loop.ChildCount())
	}

	first := loop.ChildEdge(0)
	if first.Vertex0 != (mgl64.Vec2{0, 1}) || first.Vertex3 != (mgl64.Vec2{1, 1}) || !first.OneSided {
		t.Errorf("first edge ghosts = %v %v", first.Vertex0, first.Vertex3)
	}

	last := loop.ChildEdge(3)
	if last.Vertex1 != (mgl64.Vec2{0, 1}) || last.Vertex2 != (mgl64.Vec2{0, 0}) || last.Vertex3 != (mgl64.Vec2{1, 0}) {
		t.Errorf("closing edge = %+v", last)
	}
}

func TestNewChain(t *testing.T) {
	chain, err := NewChain([]mgl64.Vec2{{0, 0}, {1, 0}, {2, 0}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if chain.ChildCount() != 2 {
		t.Fatalf("ChildCount = %d, want 2", chain.ChildCount())
	}
	if chain.PrevVertex != (mgl64.Vec2{-1, 0}) || chain.NextVertex != (mgl64.Vec2{3, 0}) {
		t.Errorf("ghost vertices = %v %v", chain.PrevVertex, chain.NextVertex)
	}

	prev := mgl64.Vec2{-1, 1}
	chain, _ = NewChain([]mgl64.Vec2{{0, 0}, {1, 0}}, &prev, nil)
	if chain.ChildEdge(0).Vertex0 != prev {
		t.Errorf("explicit ghost vertex not used")
	}
}

func TestNewChain_Errors(t *testing.T) {
	if _, err := NewChain([]mgl64.Vec2{{0, 0}}, nil, nil); !errors.Is(err, ErrChainTooShort) {
		t.Errorf("error = %v, want ErrChainTooShort", err)
	}
	if _, err := NewLoop([]mgl64.Vec2{{0, 0}, {1, 0}}); !errors.Is(err, ErrChainTooShort) {
		t.Errorf("error = %v, want ErrChainTooShort", err)
	}
	if _, err := NewChain([]mgl64.Vec2{{0, 0}, {0.001, 0}, {1, 0}}, nil, nil); !errors.Is(err, ErrChainVerticesTooClose) {
		t.Errorf("error = %v, want ErrChainVerticesTooClose", err)
	}
}

func TestFilter_ShouldCollide(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Filter
		expected bool
	}{
		{"defaults", DefaultFilter(), DefaultFilter(), true},
		{"same positive group", Filter{CategoryBits: 1, MaskBits: 0, GroupIndex: 2}, Filter{CategoryBits: 1, MaskBits: 0, GroupIndex: 2}, true},
		{"same negative group", Filter{CategoryBits: 1, MaskBits: 0xFFFF, GroupIndex: -2}, Filter{CategoryBits: 1, MaskBits: 0xFFFF, GroupIndex: -2}, false},
		{"mask excludes", Filter{CategoryBits: 1, MaskBits: 0xFFFF}, Filter{CategoryBits: 2, MaskBits: 0xFFFE}, false},
		{"different groups fall back to bits", Filter{CategoryBits: 1, MaskBits: 2, GroupIndex: -1}, Filter{CategoryBits: 2, MaskBits: 1, GroupIndex: -2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.ShouldCollide(tt.b); got != tt.expected {
				t.Errorf("ShouldCollide = %v, want %v", got, tt.expected)
			}
			if got := tt.b.ShouldCollide(tt.a); got != tt.expected {
				t.Errorf("ShouldCollide (symmetry) = %v, want %v", got, tt.expected)
			}
		})
	}
}
