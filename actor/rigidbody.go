package actor

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// NullIndex marks an empty list head in the world arenas
const NullIndex = -1

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic BodyType = iota

	// BodyTypeKinematic bodies move by their velocity only
	// They have infinite mass and push dynamic bodies without reacting
	BodyTypeKinematic

	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic
)

func (t BodyType) String() string {
	switch t {
	case BodyTypeStatic:
		return "static"
	case BodyTypeKinematic:
		return "kinematic"
	case BodyTypeDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// BodyFlags is the state bit set of a body.
type BodyFlags uint16

const (
	FlagIsland BodyFlags = 1 << iota
	FlagAwake
	FlagAutoSleep
	FlagBullet
	FlagFixedRotation
	FlagEnabled
	FlagTOI
)

func (f BodyFlags) Has(flag BodyFlags) bool {
	return f&flag != 0
}

// BodyDef holds the initial state of a body.
type BodyDef struct {
	Type            BodyType
	Position        mgl64.Vec2
	Angle           float64
	LinearVelocity  mgl64.Vec2
	AngularVelocity float64
	LinearDamping   float64
	AngularDamping  float64
	GravityScale    float64

	AllowSleep    bool
	Awake         bool
	FixedRotation bool
	// Bullet bodies get continuous collision against dynamic bodies too
	Bullet  bool
	Enabled bool

	UserData any
}

// NewBodyDef returns an awake, enabled definition with full gravity
func NewBodyDef(bodyType BodyType, position mgl64.Vec2) BodyDef {
	return BodyDef{
		Type:         bodyType,
		Position:     position,
		GravityScale: 1.0,
		AllowSleep:   true,
		Awake:        true,
		Enabled:      true,
	}
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	BodyType BodyType
	Flags    BodyFlags

	// Transform is the body origin; Sweep tracks the center of mass
	Transform Transform
	Sweep     Sweep

	// Linear motion
	LinearVelocity mgl64.Vec2 // m/s, of the center of mass
	Force          mgl64.Vec2

	// Angular motion
	AngularVelocity float64 // rad/s
	Torque          float64

	Mass, InvMass float64
	// Inertia is about the center of mass
	Inertia, InvInertia float64

	LinearDamping  float64
	AngularDamping float64
	GravityScale   float64

	SleepTime float64

	Fixtures []*Fixture

	// Heads of the contact and joint edge lists, owned by the world
	ContactList int
	JointList   int
	// IslandIndex is the position in the island being solved
	IslandIndex int

	UserData any
}

// NewRigidBody creates a body from its definition. It has no fixtures yet.
func NewRigidBody(def BodyDef) *RigidBody {
	rb := &RigidBody{
		BodyType:        def.Type,
		Transform:       NewTransformAt(def.Position, def.Angle),
		LinearVelocity:  def.LinearVelocity,
		AngularVelocity: def.AngularVelocity,
		LinearDamping:   def.LinearDamping,
		AngularDamping:  def.AngularDamping,
		GravityScale:    def.GravityScale,
		ContactList:     NullIndex,
		JointList:       NullIndex,
		UserData:        def.UserData,
	}

	if def.Bullet {
		rb.Flags |= FlagBullet
	}
	if def.FixedRotation {
		rb.Flags |= FlagFixedRotation
	}
	if def.AllowSleep {
		rb.Flags |= FlagAutoSleep
	}
	if def.Awake && def.Type != BodyTypeStatic {
		rb.Flags |= FlagAwake
	}
	if def.Enabled {
		rb.Flags |= FlagEnabled
	}

	rb.Sweep = Sweep{
		C0: def.Position,
		C:  def.Position,
		A0: def.Angle,
		A:  def.Angle,
	}

	if def.Type == BodyTypeDynamic {
		rb.Mass = 1.0
		rb.InvMass = 1.0
	}

	return rb
}

func (rb *RigidBody) Type() BodyType { return rb.BodyType }

func (rb *RigidBody) Position() mgl64.Vec2 { return rb.Transform.Position }
func (rb *RigidBody) Angle() float64 { return rb.Sweep.A }

// WorldCenter is the center of mass in world coordinates
func (rb *RigidBody) WorldCenter() mgl64.Vec2 { return rb.Sweep.C }

// LocalCenter is the center of mass in the body frame
func (rb *RigidBody) LocalCenter() mgl64.Vec2 { return rb.Sweep.LocalCenter }

func (rb *RigidBody) WorldPoint(local mgl64.Vec2) mgl64.Vec2 {
	return rb.Transform.Apply(local)
}

func (rb *RigidBody) WorldVector(local mgl64.Vec2) mgl64.Vec2 {
	return rb.Transform.Rotation.Rotate(local)
}

func (rb *RigidBody) LocalPoint(world mgl64.Vec2) mgl64.Vec2 {
	return rb.Transform.ApplyInv(world)
}

func (rb *RigidBody) LocalVector(world mgl64.Vec2) mgl64.Vec2 {
	return rb.Transform.Rotation.InvRotate(world)
}

// VelocityAt returns the velocity of a world point attached to the body
func (rb *RigidBody) VelocityAt(world mgl64.Vec2) mgl64.Vec2 {
	return rb.LinearVelocity.Add(CrossSV(rb.AngularVelocity, world.Sub(rb.Sweep.C)))
}

func (rb *RigidBody) IsAwake() bool { return rb.Flags.Has(FlagAwake) }
func (rb *RigidBody) IsEnabled() bool { return rb.Flags.Has(FlagEnabled) }
func (rb *RigidBody) IsBullet() bool { return rb.Flags.Has(FlagBullet) }
func (rb *RigidBody) IsFixedRotation() bool { return rb.Flags.Has(FlagFixedRotation) }
func (rb *RigidBody) IsSleepingAllowed() bool { return rb.Flags.Has(FlagAutoSleep) }

// SetAwake wakes the body or puts it to sleep. A sleeping body loses its
// velocity and accumulated forces. Static bodies never wake.
func (rb *RigidBody) SetAwake(awake bool) {
	if rb.BodyType == BodyTypeStatic {
		return
	}

	if awake {
		rb.Flags |= FlagAwake
		rb.SleepTime = 0.0
		return
	}

	rb.Flags &^= FlagAwake
	rb.SleepTime = 0.0
	rb.LinearVelocity = mgl64.Vec2{}
	rb.AngularVelocity = 0.0
	rb.ClearForces()
}

func (rb *RigidBody) SetSleepingAllowed(allowed bool) {
	if allowed {
		rb.Flags |= FlagAutoSleep
		return
	}

	rb.Flags &^= FlagAutoSleep
	rb.SetAwake(true)
}

func (rb *RigidBody) SetBullet(bullet bool) {
	if bullet {
		rb.Flags |= FlagBullet
	} else {
		rb.Flags &^= FlagBullet
	}
}

// SetFixedRotation locks the rotation and recomputes the mass
func (rb *RigidBody) SetFixedRotation(fixed bool) {
	if fixed == rb.IsFixedRotation() {
		return
	}

	if fixed {
		rb.Flags |= FlagFixedRotation
	} else {
		rb.Flags &^= FlagFixedRotation
	}

	rb.AngularVelocity = 0.0
	rb.ResetMassData()
}

// SetLinearVelocity sets the velocity of the center of mass
func (rb *RigidBody) SetLinearVelocity(v mgl64.Vec2) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	if v.Dot(v) > 0.0 {
		rb.SetAwake(true)
	}
	rb.LinearVelocity = v
}

func (rb *RigidBody) SetAngularVelocity(w float64) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	if w*w > 0.0 {
		rb.SetAwake(true)
	}
	rb.AngularVelocity = w
}

// ApplyForce applies a force at a world point. Forces on a sleeping body are
// dropped unless wake is set.
func (rb *RigidBody) ApplyForce(force, point mgl64.Vec2, wake bool) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	if wake && !rb.IsAwake() {
		rb.SetAwake(true)
	}
	if rb.IsAwake() {
		rb.Force = rb.Force.Add(force)
		rb.Torque += Cross(point.Sub(rb.Sweep.C), force)
	}
}

func (rb *RigidBody) ApplyForceToCenter(force mgl64.Vec2, wake bool) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	if wake && !rb.IsAwake() {
		rb.SetAwake(true)
	}
	if rb.IsAwake() {
		rb.Force = rb.Force.Add(force)
	}
}

func (rb *RigidBody) ApplyTorque(torque float64, wake bool) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	if wake && !rb.IsAwake() {
		rb.SetAwake(true)
	}
	if rb.IsAwake() {
		rb.Torque += torque
	}
}

// ApplyLinearImpulse changes the velocity immediately, in N·s
func (rb *RigidBody) ApplyLinearImpulse(impulse, point mgl64.Vec2, wake bool) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	if wake && !rb.IsAwake() {
		rb.SetAwake(true)
	}
	if rb.IsAwake() {
		rb.LinearVelocity = rb.LinearVelocity.Add(impulse.Mul(rb.InvMass))
		rb.AngularVelocity += rb.InvInertia * Cross(point.Sub(rb.Sweep.C), impulse)
	}
}

func (rb *RigidBody) ApplyLinearImpulseToCenter(impulse mgl64.Vec2, wake bool) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	if wake && !rb.IsAwake() {
		rb.SetAwake(true)
	}
	if rb.IsAwake() {
		rb.LinearVelocity = rb.LinearVelocity.Add(impulse.Mul(rb.InvMass))
	}
}

func (rb *RigidBody) ApplyAngularImpulse(impulse float64, wake bool) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	if wake && !rb.IsAwake() {
		rb.SetAwake(true)
	}
	if rb.IsAwake() {
		rb.AngularVelocity += rb.InvInertia * impulse
	}
}

func (rb *RigidBody) ClearForces() {
	rb.Force = mgl64.Vec2{}
	rb.Torque = 0.0
}

// AttachFixture creates a fixture from def and appends it to the body. The
// caller creates the broad-phase proxies. Mass is recomputed for dense shapes.
func (rb *RigidBody) AttachFixture(def FixtureDef) *Fixture {
	if def.Shape == nil {
		panic("actor: fixture definition without shape")
	}

	f := newFixture(rb, def)
	rb.Fixtures = append(rb.Fixtures, f)

	if f.Density > 0.0 {
		rb.ResetMassData()
	}

	return f
}

// DetachFixture removes a fixture from the body and recomputes the mass.
func (rb *RigidBody) DetachFixture(f *Fixture) {
	i := slices.Index(rb.Fixtures, f)
	if i < 0 {
		panic("actor: fixture does not belong to this body")
	}

	rb.Fixtures = slices.Delete(rb.Fixtures, i, i+1)
	f.body = nil
	rb.ResetMassData()
}

// MassData returns the mass properties with the inertia about the body origin
func (rb *RigidBody) MassData() MassData {
	return MassData{
		Mass:    rb.Mass,
		Center:  rb.Sweep.LocalCenter,
		Inertia: rb.Inertia + rb.Mass*rb.Sweep.LocalCenter.Dot(rb.Sweep.LocalCenter),
	}
}

// ResetMassData recomputes the mass from the fixture densities. Static and
// kinematic bodies have zero mass; a dynamic body always gets a positive mass.
func (rb *RigidBody) ResetMassData() {
	rb.Mass = 0.0
	rb.InvMass = 0.0
	rb.Inertia = 0.0
	rb.InvInertia = 0.0
	rb.Sweep.LocalCenter = mgl64.Vec2{}

	if rb.BodyType != BodyTypeDynamic {
		rb.Sweep.C0 = rb.Transform.Position
		rb.Sweep.C = rb.Transform.Position
		rb.Sweep.A0 = rb.Sweep.A
		return
	}

	var localCenter mgl64.Vec2
	for _, f := range rb.Fixtures {
		if f.Density == 0.0 {
			continue
		}

		md := f.MassData()
		rb.Mass += md.Mass
		localCenter = localCenter.Add(md.Center.Mul(md.Mass))
		rb.Inertia += md.Inertia
	}

	if rb.Mass > 0.0 {
		rb.InvMass = 1.0 / rb.Mass
		localCenter = localCenter.Mul(rb.InvMass)
	} else {
		rb.Mass = 1.0
		rb.InvMass = 1.0
	}

	rb.setInertia(localCenter)
	rb.moveCenter(localCenter)
}

// SetMassData overrides the mass computed from the fixtures.
func (rb *RigidBody) SetMassData(md MassData) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}

	rb.InvMass = 0.0
	rb.Inertia = 0.0
	rb.InvInertia = 0.0

	rb.Mass = md.Mass
	if rb.Mass <= 0.0 {
		rb.Mass = 1.0
	}
	rb.InvMass = 1.0 / rb.Mass

	rb.Inertia = md.Inertia
	rb.setInertia(md.Center)
	rb.moveCenter(md.Center)
}

// setInertia shifts rb.Inertia, taken about the origin, to the center of mass
func (rb *RigidBody) setInertia(localCenter mgl64.Vec2) {
	if rb.Inertia > 0.0 && !rb.IsFixedRotation() {
		rb.Inertia -= rb.Mass * localCenter.Dot(localCenter)
		if rb.Inertia <= 0.0 {
			panic(fmt.Sprintf("actor: non-positive rotational inertia %g", rb.Inertia))
		}
		rb.InvInertia = 1.0 / rb.Inertia
		return
	}

	rb.Inertia = 0.0
	rb.InvInertia = 0.0
}

// moveCenter relocates the center of mass, keeping the velocity of the
// material points unchanged
func (rb *RigidBody) moveCenter(localCenter mgl64.Vec2) {
	oldCenter := rb.Sweep.C
	rb.Sweep.LocalCenter = localCenter
	rb.Sweep.C = rb.Transform.Apply(localCenter)
	rb.Sweep.C0 = rb.Sweep.C

	rb.LinearVelocity = rb.LinearVelocity.Add(CrossSV(rb.AngularVelocity, rb.Sweep.C.Sub(oldCenter)))
}

// SetTransform teleports the body; the caller synchronizes the broad-phase
func (rb *RigidBody) SetTransform(position mgl64.Vec2, angle float64) {
	rb.Transform = NewTransformAt(position, angle)

	rb.Sweep.C = rb.Transform.Apply(rb.Sweep.LocalCenter)
	rb.Sweep.A = angle
	rb.Sweep.C0 = rb.Sweep.C
	rb.Sweep.A0 = angle
}

// SynchronizeTransform derives the origin transform from the sweep end
func (rb *RigidBody) SynchronizeTransform() {
	rb.Transform.Rotation = NewRot(rb.Sweep.A)
	rb.Transform.Position = rb.Sweep.C.Sub(rb.Transform.Rotation.Rotate(rb.Sweep.LocalCenter))
}

// Advance rewinds the body to alpha of the step, used by the continuous pass
func (rb *RigidBody) Advance(alpha float64) {
	rb.Sweep.Advance(alpha)
	rb.Sweep.C = rb.Sweep.C0
	rb.Sweep.A = rb.Sweep.A0
	rb.SynchronizeTransform()
}

// ShouldCollide reports whether the body types allow a contact: at least one
// of the two bodies must be dynamic. Joint filtering is done by the world.
func (rb *RigidBody) ShouldCollide(other *RigidBody) bool {
	return rb.BodyType == BodyTypeDynamic || other.BodyType == BodyTypeDynamic
}
