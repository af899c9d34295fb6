package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func createDynamicBox(position mgl64.Vec2, hx, hy, density float64) *RigidBody {
	rb := NewRigidBody(NewBodyDef(BodyTypeDynamic, position))
	rb.AttachFixture(NewFixtureDef(NewBox(hx, hy), density))
	return rb
}

func TestBodyType_Constants(t *testing.T) {
	if BodyTypeStatic != 0 {
		t.Errorf("the zero body type must be static")
	}
	if BodyTypeDynamic.String() != "dynamic" || BodyTypeKinematic.String() != "kinematic" {
		t.Errorf("unexpected body type names")
	}
}

func TestNewRigidBody(t *testing.T) {
	tests := []struct {
		name      string
		bodyType  BodyType
		awake     bool
		invMass   float64
		listHeads int
	}{
		{"static", BodyTypeStatic, false, 0, NullIndex},
		{"kinematic", BodyTypeKinematic, true, 0, NullIndex},
		{"dynamic", BodyTypeDynamic, true, 1, NullIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := NewRigidBody(NewBodyDef(tt.bodyType, mgl64.Vec2{1, 2}))

			if rb.IsAwake() != tt.awake {
				t.Errorf("IsAwake = %v, want %v", rb.IsAwake(), tt.awake)
			}
			if rb.InvMass != tt.invMass {
				t.Errorf("InvMass = %v, want %v", rb.InvMass, tt.invMass)
			}
			if rb.ContactList != tt.listHeads || rb.JointList != tt.listHeads {
				t.Errorf("list heads = %d %d, want %d", rb.ContactList, rb.JointList, tt.listHeads)
			}
			if rb.Sweep.C != (mgl64.Vec2{1, 2}) || rb.Position() != (mgl64.Vec2{1, 2}) {
				t.Errorf("position not initialised")
			}
		})
	}
}

func TestResetMassData_Dynamic(t *testing.T) {
	rb := createDynamicBox(mgl64.Vec2{0, 0}, 0.5, 0.5, 1)

	if math.Abs(rb.Mass-1) > 1e-12 || math.Abs(rb.InvMass-1) > 1e-12 {
		t.Errorf("mass = %v, invMass = %v", rb.Mass, rb.InvMass)
	}
	if math.Abs(rb.Inertia-1.0/6.0) > 1e-12 {
		t.Errorf("inertia = %v, want 1/6", rb.Inertia)
	}

	// a second box shifts the center of mass
	rb.AttachFixture(NewFixtureDef(NewOrientedBox(0.5, 0.5, mgl64.Vec2{2, 0}, 0), 1))
	if !rb.LocalCenter().ApproxFuncEqual(mgl64.Vec2{1, 0}, approx) {
		t.Errorf("local center = %v, want (1,0)", rb.LocalCenter())
	}
	if !rb.WorldCenter().ApproxFuncEqual(mgl64.Vec2{1, 0}, approx) {
		t.Errorf("world center = %v, want (1,0)", rb.WorldCenter())
	}
	// inertia about the new center: 2 * (1/6 + 1)
	if math.Abs(rb.Inertia-(2.0/6.0+2.0)) > 1e-9 {
		t.Errorf("inertia = %v", rb.Inertia)
	}
}

func TestResetMassData_StaticAndFixedRotation(t *testing.T) {
	static := NewRigidBody(NewBodyDef(BodyTypeStatic, mgl64.Vec2{}))
	static.AttachFixture(NewFixtureDef(NewBox(1, 1), 1))
	if static.InvMass != 0 || static.InvInertia != 0 {
		t.Errorf("static body must have zero inverse mass")
	}

	rb := createDynamicBox(mgl64.Vec2{}, 1, 1, 1)
	rb.SetAngularVelocity(3)
	rb.SetFixedRotation(true)
	if rb.InvInertia != 0 || rb.AngularVelocity != 0 {
		t.Errorf("fixed rotation should clear the inertia and the spin")
	}
	if rb.InvMass == 0 {
		t.Errorf("fixed rotation keeps the mass")
	}
}

func TestResetMassData_ZeroDensity(t *testing.T) {
	rb := createDynamicBox(mgl64.Vec2{}, 1, 1, 0)
	if rb.Mass != 1 || rb.InvMass != 1 {
		t.Errorf("dynamic body without density falls back to unit mass, got %v", rb.Mass)
	}
}

func TestSetAwake(t *testing.T) {
	rb := createDynamicBox(mgl64.Vec2{}, 1, 1, 1)
	rb.SetLinearVelocity(mgl64.Vec2{1, 0})
	rb.ApplyForceToCenter(mgl64.Vec2{0, 10}, false)

	rb.SetAwake(false)
	if rb.IsAwake() || rb.LinearVelocity != (mgl64.Vec2{}) || rb.Force != (mgl64.Vec2{}) {
		t.Errorf("sleeping body should lose velocity and forces")
	}

	// forces are dropped on a sleeping body unless wake is set
	rb.ApplyForceToCenter(mgl64.Vec2{0, 10}, false)
	if rb.Force != (mgl64.Vec2{}) {
		t.Errorf("force applied to a sleeping body")
	}
	rb.ApplyForceToCenter(mgl64.Vec2{0, 10}, true)
	if !rb.IsAwake() || rb.Force != (mgl64.Vec2{0, 10}) {
		t.Errorf("wake flag should wake and apply")
	}

	static := NewRigidBody(NewBodyDef(BodyTypeStatic, mgl64.Vec2{}))
	static.SetAwake(true)
	if static.IsAwake() {
		t.Errorf("static bodies never wake")
	}
}

func TestApplyForce_Torque(t *testing.T) {
	rb := createDynamicBox(mgl64.Vec2{}, 1, 1, 1)

	rb.ApplyForce(mgl64.Vec2{0, 2}, mgl64.Vec2{1, 0}, true)
	if rb.Torque != 2 {
		t.Errorf("torque = %v, want 2", rb.Torque)
	}

	rb.ClearForces()
	if rb.Torque != 0 || rb.Force != (mgl64.Vec2{}) {
		t.Errorf("ClearForces did not clear")
	}
}

func TestApplyLinearImpulse(t *testing.T) {
	rb := createDynamicBox(mgl64.Vec2{}, 0.5, 0.5, 1)

	rb.ApplyLinearImpulse(mgl64.Vec2{0, 1}, mgl64.Vec2{0.5, 0}, true)
	if !rb.LinearVelocity.ApproxFuncEqual(mgl64.Vec2{0, 1}, approx) {
		t.Errorf("velocity = %v, want (0,1)", rb.LinearVelocity)
	}
	if math.Abs(rb.AngularVelocity-0.5*6) > 1e-9 {
		t.Errorf("angular velocity = %v, want 3", rb.AngularVelocity)
	}

	kinematic := NewRigidBody(NewBodyDef(BodyTypeKinematic, mgl64.Vec2{}))
	kinematic.ApplyLinearImpulseToCenter(mgl64.Vec2{1, 0}, true)
	if kinematic.LinearVelocity != (mgl64.Vec2{}) {
		t.Errorf("impulses do not affect kinematic bodies")
	}
}

func TestSetTransformAndAdvance(t *testing.T) {
	rb := NewRigidBody(NewBodyDef(BodyTypeDynamic, mgl64.Vec2{}))
	rb.AttachFixture(NewFixtureDef(NewOrientedBox(0.5, 0.5, mgl64.Vec2{1, 0}, 0), 1))

	rb.SetTransform(mgl64.Vec2{0, 0}, math.Pi/2)
	if !rb.WorldCenter().ApproxFuncEqual(mgl64.Vec2{0, 1}, approx) {
		t.Errorf("world center = %v, want (0,1)", rb.WorldCenter())
	}

	// move the sweep end and rewind halfway
	rb.Sweep.C = mgl64.Vec2{2, 1}
	rb.Advance(0.5)
	if !rb.WorldCenter().ApproxFuncEqual(mgl64.Vec2{1, 1}, approx) {
		t.Errorf("advanced center = %v, want (1,1)", rb.WorldCenter())
	}
	if !rb.Position().ApproxFuncEqual(mgl64.Vec2{1, 0}, approx) {
		t.Errorf("advanced origin = %v, want (1,0)", rb.Position())
	}
}

func TestVelocityAt(t *testing.T) {
	rb := NewRigidBody(NewBodyDef(BodyTypeDynamic, mgl64.Vec2{}))
	rb.LinearVelocity = mgl64.Vec2{1, 0}
	rb.AngularVelocity = 2

	if got := rb.VelocityAt(mgl64.Vec2{0, 1}); !got.ApproxFuncEqual(mgl64.Vec2{-1, 0}, approx) {
		t.Errorf("VelocityAt = %v, want (-1,0)", got)
	}
}

func TestShouldCollide_BodyTypes(t *testing.T) {
	static := NewRigidBody(NewBodyDef(BodyTypeStatic, mgl64.Vec2{}))
	kinematic := NewRigidBody(NewBodyDef(BodyTypeKinematic, mgl64.Vec2{}))
	dynamic := NewRigidBody(NewBodyDef(BodyTypeDynamic, mgl64.Vec2{}))

	if static.ShouldCollide(kinematic) || kinematic.ShouldCollide(kinematic) {
		t.Errorf("non-dynamic pairs never collide")
	}
	if !static.ShouldCollide(dynamic) || !dynamic.ShouldCollide(kinematic) {
		t.Errorf("pairs with a dynamic body collide")
	}
}

func TestDetachFixture(t *testing.T) {
	rb := createDynamicBox(mgl64.Vec2{}, 1, 1, 1)
	f := rb.AttachFixture(NewFixtureDef(NewOrientedBox(1, 1, mgl64.Vec2{4, 0}, 0), 1))

	rb.DetachFixture(f)
	if len(rb.Fixtures) != 1 || f.Body() != nil {
		t.Fatalf("fixture not detached")
	}
	if rb.LocalCenter().Len() > 1e-12 || math.Abs(rb.Mass-4) > 1e-12 {
		t.Errorf("mass not recomputed: center %v mass %v", rb.LocalCenter(), rb.Mass)
	}
}
