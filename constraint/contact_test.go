package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/manifold"
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// contactScene is a unit box over a wide static ground, as island arrays.
type contactScene struct {
	ground, box *actor.RigidBody
	manifold    manifold.Manifold
	positions   []Position
	velocities  []Velocity
	settings    settings.Settings
}

func newContactScene(t *testing.T, boxY float64, velocity mgl64.Vec2) *contactScene {
	t.Helper()

	ground := actor.NewRigidBody(actor.NewBodyDef(actor.BodyTypeStatic, mgl64.Vec2{0, 0}))
	ground.AttachFixture(actor.NewFixtureDef(actor.NewBox(5, 0.5), 0))
	box := actor.NewRigidBody(actor.NewBodyDef(actor.BodyTypeDynamic, mgl64.Vec2{0, boxY}))
	box.AttachFixture(actor.NewFixtureDef(actor.NewBox(0.5, 0.5), 1))

	ground.IslandIndex = 0
	box.IslandIndex = 1

	m := manifold.CollidePolygons(
		ground.Fixtures[0].Shape().(*actor.Polygon), ground.Transform,
		box.Fixtures[0].Shape().(*actor.Polygon), box.Transform,
	)
	if m.PointCount != 2 {
		t.Fatalf("setup: PointCount = %d, want 2", m.PointCount)
	}

	return &contactScene{
		ground:   ground,
		box:      box,
		manifold: m,
		positions: []Position{
			{C: ground.Sweep.C, A: ground.Sweep.A},
			{C: box.Sweep.C, A: box.Sweep.A},
		},
		velocities: []Velocity{
			{},
			{V: velocity},
		},
		settings: settings.Default(),
	}
}

func (s *contactScene) solver(step TimeStep, friction, restitution float64) *ContactSolver {
	contacts := []ContactInput{{
		Manifold:    &s.manifold,
		BodyA:       s.ground,
		BodyB:       s.box,
		RadiusA:     settings.PolygonRadius,
		RadiusB:     settings.PolygonRadius,
		Friction:    friction,
		Restitution: restitution,
	}}
	return NewContactSolver(step, &s.settings, contacts, s.positions, s.velocities)
}

func defaultStep() TimeStep {
	return TimeStep{
		Dt:                 1.0 / 60.0,
		InvDt:              60.0,
		DtRatio:            1.0,
		VelocityIterations: 8,
		PositionIterations: 3,
		WarmStarting:       true,
	}
}

func TestContactSolverStopsApproach(t *testing.T) {
	for _, blockSolve := range []bool{true, false} {
		name := "sequential"
		if blockSolve {
			name = "block"
		}

		t.Run(name, func(t *testing.T) {
			scene := newContactScene(t, 0.99, mgl64.Vec2{0, -1})
			scene.settings.BlockSolve = blockSolve
			cs := scene.solver(defaultStep(), 0.0, 0.0)

			cs.InitializeVelocityConstraints()
			cs.WarmStart()
			for range 20 {
				cs.SolveVelocityConstraints()
			}

			v := scene.velocities[1]
			if math.Abs(v.V.Y()) > 1e-6 {
				t.Errorf("vy = %v, want 0", v.V.Y())
			}
			if math.Abs(v.W) > 1e-6 {
				t.Errorf("w = %v, want 0", v.W)
			}

			impulse := cs.Impulse(0)
			total := impulse.NormalImpulses[0] + impulse.NormalImpulses[1]
			// unit box of density 1 stopped from 1 m/s
			if math.Abs(total-1.0) > 1e-6 {
				t.Errorf("total normal impulse = %v, want 1", total)
			}
		})
	}
}

func TestContactSolverRestitution(t *testing.T) {
	scene := newContactScene(t, 0.99, mgl64.Vec2{0, -2})
	cs := scene.solver(defaultStep(), 0.0, 1.0)

	cs.InitializeVelocityConstraints()
	for range 20 {
		cs.SolveVelocityConstraints()
	}

	if vy := scene.velocities[1].V.Y(); math.Abs(vy-2.0) > 1e-6 {
		t.Errorf("vy = %v, want 2 (elastic bounce)", vy)
	}
}

func TestContactSolverBelowVelocityThreshold(t *testing.T) {
	// 0.5 m/s is below the 1 m/s threshold: no bounce
	scene := newContactScene(t, 0.99, mgl64.Vec2{0, -0.5})
	cs := scene.solver(defaultStep(), 0.0, 1.0)

	cs.InitializeVelocityConstraints()
	for range 20 {
		cs.SolveVelocityConstraints()
	}

	if vy := scene.velocities[1].V.Y(); math.Abs(vy) > 1e-6 {
		t.Errorf("vy = %v, want 0", vy)
	}
}

func TestContactSolverFriction(t *testing.T) {
	scene := newContactScene(t, 0.99, mgl64.Vec2{1, -1})
	cs := scene.solver(defaultStep(), 0.5, 0.0)

	cs.InitializeVelocityConstraints()
	for range 20 {
		cs.SolveVelocityConstraints()
	}

	vx := scene.velocities[1].V.X()
	if vx >= 1.0 || vx < 0.0 {
		t.Errorf("vx = %v, want in [0, 1)", vx)
	}

	impulse := cs.Impulse(0)
	for i := 0; i < impulse.Count; i++ {
		if math.Abs(impulse.TangentImpulses[i]) > 0.5*impulse.NormalImpulses[i]+1e-9 {
			t.Errorf("tangent impulse %d = %v exceeds the friction cone (normal %v)", i, impulse.TangentImpulses[i], impulse.NormalImpulses[i])
		}
	}
}

func TestContactSolverWarmStart(t *testing.T) {
	scene := newContactScene(t, 0.99, mgl64.Vec2{0, -1})

	cs := scene.solver(defaultStep(), 0.0, 0.0)
	cs.InitializeVelocityConstraints()
	for range 20 {
		cs.SolveVelocityConstraints()
	}
	cs.StoreImpulses()

	total := scene.manifold.Points[0].NormalImpulse + scene.manifold.Points[1].NormalImpulse
	if math.Abs(total-1.0) > 1e-6 {
		t.Fatalf("stored impulse = %v, want 1", total)
	}

	// same approach again: the stored impulses alone stop the box
	scene.velocities[1] = Velocity{V: mgl64.Vec2{0, -1}}
	cs = scene.solver(defaultStep(), 0.0, 0.0)
	cs.InitializeVelocityConstraints()
	cs.WarmStart()

	if vy := scene.velocities[1].V.Y(); math.Abs(vy) > 1e-6 {
		t.Errorf("vy after warm start = %v, want 0", vy)
	}

	t.Run("disabled", func(t *testing.T) {
		scene.velocities[1] = Velocity{V: mgl64.Vec2{0, -1}}
		step := defaultStep()
		step.WarmStarting = false

		cs := scene.solver(step, 0.0, 0.0)
		cs.InitializeVelocityConstraints()
		cs.WarmStart()

		if vy := scene.velocities[1].V.Y(); math.Abs(vy+1.0) > 1e-9 {
			t.Errorf("vy = %v, want -1", vy)
		}
	})
}

func TestContactSolverPositionCorrection(t *testing.T) {
	scene := newContactScene(t, 0.9, mgl64.Vec2{})
	cs := scene.solver(defaultStep(), 0.2, 0.0)
	cs.InitializeVelocityConstraints()

	solved := false
	for range 50 {
		if cs.SolvePositionConstraints() {
			solved = true
			break
		}
	}

	if !solved {
		t.Fatal("position constraints did not converge")
	}
	if y := scene.positions[1].C.Y(); y <= 0.9 {
		t.Errorf("box center y = %v, want pushed above 0.9", y)
	}
	if scene.positions[0].C != (mgl64.Vec2{0, 0}) {
		t.Errorf("static ground moved to %v", scene.positions[0].C)
	}
}

func TestContactSolverTOIPositionOnlyMovesTOIBodies(t *testing.T) {
	a := actor.NewRigidBody(actor.NewBodyDef(actor.BodyTypeDynamic, mgl64.Vec2{0, 0}))
	a.AttachFixture(actor.NewFixtureDef(actor.NewBox(0.5, 0.5), 1))
	b := actor.NewRigidBody(actor.NewBodyDef(actor.BodyTypeDynamic, mgl64.Vec2{0, 0.9}))
	b.AttachFixture(actor.NewFixtureDef(actor.NewBox(0.5, 0.5), 1))
	a.IslandIndex = 0
	b.IslandIndex = 1

	m := manifold.CollidePolygons(a.Fixtures[0].Shape().(*actor.Polygon), a.Transform, b.Fixtures[0].Shape().(*actor.Polygon), b.Transform)
	positions := []Position{{C: a.Sweep.C}, {C: b.Sweep.C}}
	velocities := make([]Velocity, 2)
	s := settings.Default()

	cs := NewContactSolver(defaultStep(), &s, []ContactInput{{
		Manifold: &m,
		BodyA:    a,
		BodyB:    b,
		RadiusA:  settings.PolygonRadius,
		RadiusB:  settings.PolygonRadius,
	}}, positions, velocities)

	for range 20 {
		cs.SolveTOIPositionConstraints(1, 1)
	}

	if positions[0].C != (mgl64.Vec2{0, 0}) {
		t.Errorf("body A moved to %v, want it held in place", positions[0].C)
	}
	if positions[1].C.Y() <= 0.9 {
		t.Errorf("body B y = %v, want pushed up", positions[1].C.Y())
	}
}

func TestNewContactSolverPanicsOnEmptyManifold(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()

	s := settings.Default()
	rb := actor.NewRigidBody(actor.NewBodyDef(actor.BodyTypeDynamic, mgl64.Vec2{}))
	NewContactSolver(defaultStep(), &s, []ContactInput{{Manifold: &manifold.Manifold{}, BodyA: rb, BodyB: rb}}, nil, nil)
}
