package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// =============================================================================
// AABB Utility Function Tests
// =============================================================================

func TestAABBOverlaps_Separated(t *testing.T) {
	tests := []struct {
		name  string
		aabb1 AABB
		aabb2 AABB
	}{
		{
			name:  "Separated on X axis (positive)",
			aabb1: AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}},
			aabb2: AABB{Min: mgl64.Vec2{2, 0}, Max: mgl64.Vec2{3, 1}},
		},
		{
			name:  "Separated on X axis (negative)",
			aabb1: AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}},
			aabb2: AABB{Min: mgl64.Vec2{-2, 0}, Max: mgl64.Vec2{-1, 1}},
		},
		{
			name:  "Separated on Y axis (positive)",
			aabb1: AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}},
			aabb2: AABB{Min: mgl64.Vec2{0, 2}, Max: mgl64.Vec2{1, 3}},
		},
		{
			name:  "Separated diagonally",
			aabb1: AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}},
			aabb2: AABB{Min: mgl64.Vec2{1.5, 1.5}, Max: mgl64.Vec2{2, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.aabb1.Overlaps(tt.aabb2) {
				t.Errorf("AABBs should not overlap")
			}
			// Test symmetry
			if tt.aabb2.Overlaps(tt.aabb1) {
				t.Errorf("AABBs should not overlap (symmetry test)")
			}
		})
	}
}

func TestAABBOverlaps_Overlapping(t *testing.T) {
	tests := []struct {
		name  string
		aabb1 AABB
		aabb2 AABB
	}{
		{
			name:  "Complete overlap (identical)",
			aabb1: AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}},
			aabb2: AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}},
		},
		{
			name:  "Partial overlap on X axis",
			aabb1: AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{2, 1}},
			aabb2: AABB{Min: mgl64.Vec2{1, 0}, Max: mgl64.Vec2{3, 1}},
		},
		{
			name:  "Edge touching",
			aabb1: AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}},
			aabb2: AABB{Min: mgl64.Vec2{1, 0}, Max: mgl64.Vec2{2, 1}},
		},
		{
			name:  "Zero area box inside",
			aabb1: AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}},
			aabb2: AABB{Min: mgl64.Vec2{0.5, 0.5}, Max: mgl64.Vec2{0.5, 0.5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.aabb1.Overlaps(tt.aabb2) || !tt.aabb2.Overlaps(tt.aabb1) {
				t.Errorf("AABBs should overlap")
			}
		})
	}
}

func TestAABBContainsPoint(t *testing.T) {
	aabb := AABB{Min: mgl64.Vec2{-1, -1}, Max: mgl64.Vec2{1, 1}}

	tests := []struct {
		name     string
		point    mgl64.Vec2
		expected bool
	}{
		{"center", mgl64.Vec2{0, 0}, true},
		{"corner", mgl64.Vec2{1, 1}, true},
		{"edge midpoint", mgl64.Vec2{0, -1}, true},
		{"outside x", mgl64.Vec2{1.01, 0}, false},
		{"outside y", mgl64.Vec2{0, -1.01}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := aabb.ContainsPoint(tt.point); got != tt.expected {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tt.point, got, tt.expected)
			}
		})
	}
}

func TestAABBContains(t *testing.T) {
	outer := AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{4, 4}}

	if !outer.Contains(AABB{Min: mgl64.Vec2{1, 1}, Max: mgl64.Vec2{2, 2}}) {
		t.Errorf("inner box should be contained")
	}
	if !outer.Contains(outer) {
		t.Errorf("a box contains itself")
	}
	if outer.Contains(AABB{Min: mgl64.Vec2{3, 3}, Max: mgl64.Vec2{5, 5}}) {
		t.Errorf("escaping box should not be contained")
	}
}

func TestAABBCombineAndPerimeter(t *testing.T) {
	a := AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}}
	b := AABB{Min: mgl64.Vec2{2, -1}, Max: mgl64.Vec2{3, 0.5}}

	c := a.Combine(b)
	if c.Min != (mgl64.Vec2{0, -1}) || c.Max != (mgl64.Vec2{3, 1}) {
		t.Errorf("Combine = %v, want [(0,-1) (3,1)]", c)
	}
	if p := c.Perimeter(); math.Abs(p-10) > 1e-12 {
		t.Errorf("Perimeter = %v, want 10", p)
	}
	if got := c.Center(); got != (mgl64.Vec2{1.5, 0}) {
		t.Errorf("Center = %v", got)
	}
	if got := c.Extents(); got != (mgl64.Vec2{1.5, 1}) {
		t.Errorf("Extents = %v", got)
	}
}

func TestAABBIsValid(t *testing.T) {
	if !(AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{0, 0}}).IsValid() {
		t.Errorf("degenerate box is valid")
	}
	if (AABB{Min: mgl64.Vec2{1, 0}, Max: mgl64.Vec2{0, 1}}).IsValid() {
		t.Errorf("inverted box is invalid")
	}
	if (AABB{Min: mgl64.Vec2{math.NaN(), 0}, Max: mgl64.Vec2{0, 1}}).IsValid() {
		t.Errorf("NaN box is invalid")
	}
}

func TestAABBRayCast(t *testing.T) {
	aabb := AABB{Min: mgl64.Vec2{-1, -1}, Max: mgl64.Vec2{1, 1}}

	tests := []struct {
		name     string
		input    RayCastInput
		hit      bool
		fraction float64
		normal   mgl64.Vec2
	}{
		{
			name:     "from the left",
			input:    RayCastInput{P1: mgl64.Vec2{-3, 0}, P2: mgl64.Vec2{3, 0}, MaxFraction: 1},
			hit:      true,
			fraction: 1.0 / 3.0,
			normal:   mgl64.Vec2{-1, 0},
		},
		{
			name:     "from above",
			input:    RayCastInput{P1: mgl64.Vec2{0, 5}, P2: mgl64.Vec2{0, -5}, MaxFraction: 1},
			hit:      true,
			fraction: 0.4,
			normal:   mgl64.Vec2{0, 1},
		},
		{
			name:  "too short",
			input: RayCastInput{P1: mgl64.Vec2{-3, 0}, P2: mgl64.Vec2{3, 0}, MaxFraction: 0.2},
		},
		{
			name:  "miss",
			input: RayCastInput{P1: mgl64.Vec2{-3, 2}, P2: mgl64.Vec2{3, 2}, MaxFraction: 1},
		},
		{
			name:  "starts inside",
			input: RayCastInput{P1: mgl64.Vec2{0, 0}, P2: mgl64.Vec2{3, 0}, MaxFraction: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, hit := aabb.RayCast(tt.input)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if !hit {
				return
			}
			if math.Abs(out.Fraction-tt.fraction) > 1e-9 {
				t.Errorf("fraction = %v, want %v", out.Fraction, tt.fraction)
			}
			if !out.Normal.ApproxFuncEqual(tt.normal, approx) {
				t.Errorf("normal = %v, want %v", out.Normal, tt.normal)
			}
		})
	}
}
