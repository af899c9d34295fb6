package toi

import (
	"math"
	"testing"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

func staticSweep(position mgl64.Vec2) actor.Sweep {
	return actor.Sweep{C0: position, C: position}
}

func linearSweep(from, to mgl64.Vec2) actor.Sweep {
	return actor.Sweep{C0: from, C: to}
}

func TestTimeOfImpactLinearApproach(t *testing.T) {
	circle := actor.NewCircle(0.5)
	input := Input{
		ProxyA: gjk.NewProxy(circle, 0),
		ProxyB: gjk.NewProxy(circle, 0),
		SweepA: staticSweep(mgl64.Vec2{0, 0}),
		SweepB: linearSweep(mgl64.Vec2{10, 0}, mgl64.Vec2{-10, 0}),
		TMax:   1.0,
	}

	out := TimeOfImpact(input)
	if out.State != StateTouching {
		t.Fatalf("State = %v, want touching", out.State)
	}

	target := Target(1.0)
	want := (10.0 - target) / 20.0
	if math.Abs(out.T-want) > 1e-9 {
		t.Errorf("T = %v, want %v", out.T, want)
	}

	// core distance at T is at the target
	distance := 10.0 - 20.0*out.T
	if math.Abs(distance-target) > Tolerance {
		t.Errorf("distance at T = %v, want %v", distance, target)
	}
}

func TestTimeOfImpactStates(t *testing.T) {
	box := actor.NewBox(0.5, 0.5)

	tests := []struct {
		name   string
		sweepB actor.Sweep
		tMax   float64
		want   State
		wantT  float64
	}{
		{
			name:   "too slow to reach",
			sweepB: linearSweep(mgl64.Vec2{10, 0}, mgl64.Vec2{-10, 0}),
			tMax:   0.3,
			want:   StateSeparated,
			wantT:  0.3,
		},
		{
			name:   "no relative motion",
			sweepB: staticSweep(mgl64.Vec2{3, 0}),
			tMax:   1.0,
			want:   StateSeparated,
			wantT:  1.0,
		},
		{
			name:   "moving away",
			sweepB: linearSweep(mgl64.Vec2{3, 0}, mgl64.Vec2{4, 0}),
			tMax:   1.0,
			want:   StateSeparated,
			wantT:  1.0,
		},
		{
			name:   "cores overlap at start",
			sweepB: linearSweep(mgl64.Vec2{0.2, 0}, mgl64.Vec2{-1, 0}),
			tMax:   1.0,
			want:   StateOverlapped,
			wantT:  0.0,
		},
		{
			name:   "cores overlap off axis",
			sweepB: linearSweep(mgl64.Vec2{0.2, 0.3}, mgl64.Vec2{-1, 0.3}),
			tMax:   1.0,
			want:   StateOverlapped,
			wantT:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := TimeOfImpact(Input{
				ProxyA: gjk.NewProxy(box, 0),
				ProxyB: gjk.NewProxy(box, 0),
				SweepA: staticSweep(mgl64.Vec2{0, 0}),
				SweepB: tt.sweepB,
				TMax:   tt.tMax,
			})

			if out.State != tt.want {
				t.Fatalf("State = %v, want %v", out.State, tt.want)
			}
			if math.Abs(out.T-tt.wantT) > 1e-9 {
				t.Errorf("T = %v, want %v", out.T, tt.wantT)
			}
		})
	}
}

func TestTimeOfImpactIterationBudget(t *testing.T) {
	circle := actor.NewCircle(0.5)
	input := Input{
		ProxyA: gjk.NewProxy(circle, 0),
		ProxyB: gjk.NewProxy(circle, 0),
		SweepA: staticSweep(mgl64.Vec2{0, 0}),
		SweepB: linearSweep(mgl64.Vec2{10, 0}, mgl64.Vec2{-10, 0}),
		TMax:   1.0,

		MaxIterations: 1,
	}

	out := TimeOfImpact(input)
	if out.State != StateFailed {
		t.Fatalf("State = %v, want failed", out.State)
	}
	if out.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", out.Iterations)
	}

	// the last advancement is still safe
	if out.T <= 0 || out.T >= 1 {
		t.Fatalf("T = %v, want in (0, 1)", out.T)
	}
	if distance := 10.0 - 20.0*out.T; distance < Target(1.0)-Tolerance {
		t.Errorf("distance at T = %v, below target %v", distance, Target(1.0))
	}

	// the default budget resolves the same query
	input.MaxIterations = 0
	if out := TimeOfImpact(input); out.State != StateTouching {
		t.Errorf("State = %v with the default budget, want touching", out.State)
	}
}

func TestTimeOfImpactRotatingBox(t *testing.T) {
	box := actor.NewBox(0.5, 0.5)
	proxy := gjk.NewProxy(box, 0)

	sweepB := actor.Sweep{
		C0: mgl64.Vec2{3, 0},
		C:  mgl64.Vec2{-3, 0},
		A0: 0,
		A:  math.Pi,
	}

	out := TimeOfImpact(Input{
		ProxyA: proxy,
		ProxyB: proxy,
		SweepA: staticSweep(mgl64.Vec2{0, 0}),
		SweepB: sweepB,
		TMax:   1.0,
	})

	if out.State == StateSeparated || out.State == StateOverlapped {
		t.Fatalf("State = %v, want an impact", out.State)
	}
	if out.T <= 0 || out.T >= 1 {
		t.Fatalf("T = %v, want in (0, 1)", out.T)
	}

	// never advanced past the target separation
	var cache gjk.SimplexCache
	d := gjk.Distance(&cache, gjk.DistanceInput{
		ProxyA:     proxy,
		ProxyB:     proxy,
		TransformA: actor.NewTransform(),
		TransformB: sweepB.Transform(out.T),
	})
	if d.Distance < Target(2*box.Radius)-Tolerance {
		t.Errorf("distance at T = %v, below target %v", d.Distance, Target(2*box.Radius))
	}
}

func TestTimeOfImpactBullet(t *testing.T) {
	// thin wall, fast small circle: a discrete step would miss it
	wall := actor.NewBox(0.05, 2)
	bullet := actor.NewCircle(0.1)

	out := TimeOfImpact(Input{
		ProxyA: gjk.NewProxy(wall, 0),
		ProxyB: gjk.NewProxy(bullet, 0),
		SweepA: staticSweep(mgl64.Vec2{0, 0}),
		SweepB: linearSweep(mgl64.Vec2{-5, 0}, mgl64.Vec2{5, 0}),
		TMax:   1.0,
	})

	if out.State != StateTouching {
		t.Fatalf("State = %v, want touching", out.State)
	}
	// the circle center reaches x = -0.05 - target
	x := -5.0 + 10.0*out.T
	want := -0.05 - Target(wall.Radius+bullet.Radius)
	if math.Abs(x-want) > Tolerance {
		t.Errorf("impact x = %v, want %v", x, want)
	}
}

func TestStateString(t *testing.T) {
	if StateTouching.String() != "touching" {
		t.Errorf("String() = %q", StateTouching.String())
	}
	if StateUnknown.String() != "unknown" {
		t.Errorf("String() = %q", StateUnknown.String())
	}
}
