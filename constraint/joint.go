package constraint

import (
	"errors"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidJoint is returned by joint constructors for inconsistent definitions.
var ErrInvalidJoint = errors.New("invalid joint definition")

// JointType identifies a joint implementation.
type JointType int

const (
	JointTypeUnknown JointType = iota
	JointTypeDistance
)

func (t JointType) String() string {
	switch t {
	case JointTypeDistance:
		return "distance"
	default:
		return "unknown"
	}
}

// Joint is a constraint between two bodies, solved alongside the contacts of
// an island. Velocities and positions are read from and written to
// SolverData, at the IslandIndex of each body.
type Joint interface {
	Type() JointType
	BodyA() *actor.RigidBody
	BodyB() *actor.RigidBody

	// CollideConnected tells whether the two bodies may still collide
	CollideConnected() bool

	// AnchorA and AnchorB are the world anchor points
	AnchorA() mgl64.Vec2
	AnchorB() mgl64.Vec2

	// ReactionForce is the force applied on body B at the anchor
	ReactionForce(invDt float64) mgl64.Vec2
	ReactionTorque(invDt float64) float64

	// Breakpoint is the reaction force above which the joint breaks
	Breakpoint() float64

	InitVelocityConstraints(data *SolverData)
	SolveVelocityConstraints(data *SolverData)
	// SolvePositionConstraints returns true when the position error is within tolerance
	SolvePositionConstraints(data *SolverData) bool

	UserData() any
}

// JointDef holds what every joint definition shares.
type JointDef struct {
	BodyA            *actor.RigidBody
	BodyB            *actor.RigidBody
	CollideConnected bool
	Breakpoint       float64 // reaction force limit, 0 means unbreakable
	UserData         any
}

// jointBase implements the bookkeeping part of Joint.
type jointBase struct {
	bodyA            *actor.RigidBody
	bodyB            *actor.RigidBody
	collideConnected bool
	breakpoint       float64
	userData         any
}

func newJointBase(def JointDef) jointBase {
	if def.BodyA == nil || def.BodyB == nil {
		panic("constraint: joint needs two bodies")
	}
	if def.BodyA == def.BodyB {
		panic("constraint: joint bodies must differ")
	}

	breakpoint := def.Breakpoint
	if breakpoint <= 0 {
		breakpoint = settings.MaxFloat
	}

	return jointBase{
		bodyA:            def.BodyA,
		bodyB:            def.BodyB,
		collideConnected: def.CollideConnected,
		breakpoint:       breakpoint,
		userData:         def.UserData,
	}
}

func (j *jointBase) BodyA() *actor.RigidBody { return j.bodyA }
func (j *jointBase) BodyB() *actor.RigidBody { return j.bodyB }
func (j *jointBase) CollideConnected() bool { return j.collideConnected }
func (j *jointBase) Breakpoint() float64 { return j.breakpoint }
func (j *jointBase) UserData() any { return j.userData }

// solverBody caches the island data of a joint body for one step.
type solverBody struct {
	index       int
	localCenter mgl64.Vec2
	invMass     float64
	invI        float64
}

func newSolverBody(rb *actor.RigidBody) solverBody {
	return solverBody{
		index:       rb.IslandIndex,
		localCenter: rb.Sweep.LocalCenter,
		invMass:     rb.InvMass,
		invI:        rb.InvInertia,
	}
}
