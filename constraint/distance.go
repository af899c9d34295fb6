package constraint

import (
	"fmt"
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// DistanceJointDef describes a DistanceJoint. Anchors are in the local frames
// of the bodies.
type DistanceJointDef struct {
	JointDef
	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2
	Length       float64
	MinLength    float64
	MaxLength    float64
	Stiffness    float64 // linear stiffness in N/m, 0 for a rigid rod
	Damping      float64 // linear damping in N*s/m
}

// NewDistanceJointDef builds a rigid rod between two world anchors, at their
// current distance.
func NewDistanceJointDef(bodyA, bodyB *actor.RigidBody, anchorA, anchorB mgl64.Vec2) DistanceJointDef {
	length := max(anchorB.Sub(anchorA).Len(), settings.LinearSlop)

	return DistanceJointDef{
		JointDef:     JointDef{BodyA: bodyA, BodyB: bodyB},
		LocalAnchorA: bodyA.LocalPoint(anchorA),
		LocalAnchorB: bodyB.LocalPoint(anchorB),
		Length:       length,
		MinLength:    length,
		MaxLength:    length,
	}
}

// LinearStiffness converts a frequency (Hz) and damping ratio into the
// stiffness and damping of a spring between two bodies.
func LinearStiffness(frequencyHertz, dampingRatio float64, bodyA, bodyB *actor.RigidBody) (stiffness, damping float64) {
	massA, massB := bodyA.Mass, bodyB.Mass

	var mass float64
	switch {
	case massA > 0.0 && massB > 0.0:
		mass = massA * massB / (massA + massB)
	case massA > 0.0:
		mass = massA
	default:
		mass = massB
	}

	omega := 2.0 * math.Pi * frequencyHertz
	stiffness = mass * omega * omega
	damping = 2.0 * mass * dampingRatio * omega
	return stiffness, damping
}

// DistanceJoint keeps two anchor points at a distance, or within
// [MinLength, MaxLength]. With a stiffness it behaves like a spring toward
// Length, inside the limits.
type DistanceJoint struct {
	jointBase

	localAnchorA mgl64.Vec2
	localAnchorB mgl64.Vec2
	length       float64
	minLength    float64
	maxLength    float64
	stiffness    float64
	damping      float64

	gamma         float64
	bias          float64
	impulse       float64
	lowerImpulse  float64
	upperImpulse  float64
	currentLength float64

	// solver temporaries
	a, b     solverBody
	u        mgl64.Vec2
	rA, rB   mgl64.Vec2
	mass     float64
	softMass float64
}

// NewDistanceJoint validates the definition and builds the joint.
func NewDistanceJoint(def DistanceJointDef) (*DistanceJoint, error) {
	if def.Stiffness < 0 || def.Damping < 0 {
		return nil, fmt.Errorf("distance joint: negative stiffness %g or damping %g: %w", def.Stiffness, def.Damping, ErrInvalidJoint)
	}
	if def.MaxLength < def.MinLength {
		return nil, fmt.Errorf("distance joint: max length %g below min length %g: %w", def.MaxLength, def.MinLength, ErrInvalidJoint)
	}

	j := &DistanceJoint{
		jointBase:    newJointBase(def.JointDef),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		stiffness:    def.Stiffness,
		damping:      def.Damping,
	}
	j.length = max(def.Length, settings.LinearSlop)
	j.minLength = max(def.MinLength, settings.LinearSlop)
	j.maxLength = max(def.MaxLength, j.minLength)

	return j, nil
}

func (j *DistanceJoint) Type() JointType { return JointTypeDistance }
func (j *DistanceJoint) Length() float64 { return j.length }
func (j *DistanceJoint) MinLength() float64 { return j.minLength }
func (j *DistanceJoint) MaxLength() float64 { return j.maxLength }
func (j *DistanceJoint) CurrentLength() float64 { return j.currentLength }
func (j *DistanceJoint) Stiffness() float64 { return j.stiffness }
func (j *DistanceJoint) Damping() float64 { return j.damping }
func (j *DistanceJoint) LocalAnchorA() mgl64.Vec2 { return j.localAnchorA }
func (j *DistanceJoint) LocalAnchorB() mgl64.Vec2 { return j.localAnchorB }

func (j *DistanceJoint) AnchorA() mgl64.Vec2 {
	return j.bodyA.WorldPoint(j.localAnchorA)
}

func (j *DistanceJoint) AnchorB() mgl64.Vec2 {
	return j.bodyB.WorldPoint(j.localAnchorB)
}

func (j *DistanceJoint) ReactionForce(invDt float64) mgl64.Vec2 {
	return j.u.Mul(invDt * (j.impulse + j.lowerImpulse - j.upperImpulse))
}

func (j *DistanceJoint) ReactionTorque(invDt float64) float64 {
	return 0.0
}

// SetLength changes the rest length of the spring.
func (j *DistanceJoint) SetLength(length float64) {
	j.impulse = 0.0
	j.length = actor.Clamp(length, settings.LinearSlop, settings.MaxFloat)
}

func (j *DistanceJoint) apply(vA *mgl64.Vec2, wA *float64, vB *mgl64.Vec2, wB *float64, p mgl64.Vec2) {
	*vA = vA.Sub(p.Mul(j.a.invMass))
	*wA -= j.a.invI * actor.Cross(j.rA, p)
	*vB = vB.Add(p.Mul(j.b.invMass))
	*wB += j.b.invI * actor.Cross(j.rB, p)
}

func (j *DistanceJoint) InitVelocityConstraints(data *SolverData) {
	j.a = newSolverBody(j.bodyA)
	j.b = newSolverBody(j.bodyB)

	cA, aA := data.Positions[j.a.index].C, data.Positions[j.a.index].A
	vA, wA := data.Velocities[j.a.index].V, data.Velocities[j.a.index].W
	cB, aB := data.Positions[j.b.index].C, data.Positions[j.b.index].A
	vB, wB := data.Velocities[j.b.index].V, data.Velocities[j.b.index].W

	j.rA = actor.NewRot(aA).Rotate(j.localAnchorA.Sub(j.a.localCenter))
	j.rB = actor.NewRot(aB).Rotate(j.localAnchorB.Sub(j.b.localCenter))
	j.u = cB.Add(j.rB).Sub(cA).Sub(j.rA)

	// singularity
	j.currentLength = j.u.Len()
	if j.currentLength > settings.LinearSlop {
		j.u = j.u.Mul(1.0 / j.currentLength)
	} else {
		j.u = mgl64.Vec2{}
		j.mass = 0.0
		j.impulse = 0.0
		j.lowerImpulse = 0.0
		j.upperImpulse = 0.0
	}

	crAu := actor.Cross(j.rA, j.u)
	crBu := actor.Cross(j.rB, j.u)
	invMass := j.a.invMass + j.a.invI*crAu*crAu + j.b.invMass + j.b.invI*crBu*crBu
	j.mass = 0.0
	if invMass != 0.0 {
		j.mass = 1.0 / invMass
	}

	if j.stiffness > 0.0 && j.minLength < j.maxLength {
		// soft
		c := j.currentLength - j.length
		h := data.Step.Dt

		// gamma = 1 / (h * (d + h * k)), lambda being an impulse
		j.gamma = h * (j.damping + h*j.stiffness)
		if j.gamma != 0.0 {
			j.gamma = 1.0 / j.gamma
		}
		j.bias = c * h * j.stiffness * j.gamma

		invMass += j.gamma
		j.softMass = 0.0
		if invMass != 0.0 {
			j.softMass = 1.0 / invMass
		}
	} else {
		// rigid
		j.gamma = 0.0
		j.bias = 0.0
		j.softMass = j.mass
	}

	if data.Step.WarmStarting {
		j.impulse *= data.Step.DtRatio
		j.lowerImpulse *= data.Step.DtRatio
		j.upperImpulse *= data.Step.DtRatio

		p := j.u.Mul(j.impulse + j.lowerImpulse - j.upperImpulse)
		j.apply(&vA, &wA, &vB, &wB, p)
	} else {
		j.impulse = 0.0
		j.lowerImpulse = 0.0
		j.upperImpulse = 0.0
	}

	data.Velocities[j.a.index] = Velocity{V: vA, W: wA}
	data.Velocities[j.b.index] = Velocity{V: vB, W: wB}
}

func (j *DistanceJoint) SolveVelocityConstraints(data *SolverData) {
	vA, wA := data.Velocities[j.a.index].V, data.Velocities[j.a.index].W
	vB, wB := data.Velocities[j.b.index].V, data.Velocities[j.b.index].W

	// Cdot = dot(u, vB + wB x rB - vA - wA x rA)
	cdot := func() float64 {
		vpA := vA.Add(actor.CrossSV(wA, j.rA))
		vpB := vB.Add(actor.CrossSV(wB, j.rB))
		return j.u.Dot(vpB.Sub(vpA))
	}

	if j.minLength < j.maxLength {
		if j.stiffness > 0.0 {
			impulse := -j.softMass * (cdot() + j.bias + j.gamma*j.impulse)
			j.impulse += impulse
			j.apply(&vA, &wA, &vB, &wB, j.u.Mul(impulse))
		}

		// lower
		{
			c := j.currentLength - j.minLength
			bias := max(0.0, c) * data.Step.InvDt

			impulse := -j.mass * (cdot() + bias)
			oldImpulse := j.lowerImpulse
			j.lowerImpulse = max(0.0, j.lowerImpulse+impulse)
			impulse = j.lowerImpulse - oldImpulse
			j.apply(&vA, &wA, &vB, &wB, j.u.Mul(impulse))
		}

		// upper
		{
			c := j.maxLength - j.currentLength
			bias := max(0.0, c) * data.Step.InvDt

			impulse := -j.mass * (-cdot() + bias)
			oldImpulse := j.upperImpulse
			j.upperImpulse = max(0.0, j.upperImpulse+impulse)
			impulse = j.upperImpulse - oldImpulse
			j.apply(&vA, &wA, &vB, &wB, j.u.Mul(-impulse))
		}
	} else {
		// equal limits
		impulse := -j.mass * cdot()
		j.impulse += impulse
		j.apply(&vA, &wA, &vB, &wB, j.u.Mul(impulse))
	}

	data.Velocities[j.a.index] = Velocity{V: vA, W: wA}
	data.Velocities[j.b.index] = Velocity{V: vB, W: wB}
}

func (j *DistanceJoint) SolvePositionConstraints(data *SolverData) bool {
	cA, aA := data.Positions[j.a.index].C, data.Positions[j.a.index].A
	cB, aB := data.Positions[j.b.index].C, data.Positions[j.b.index].A

	rA := actor.NewRot(aA).Rotate(j.localAnchorA.Sub(j.a.localCenter))
	rB := actor.NewRot(aB).Rotate(j.localAnchorB.Sub(j.b.localCenter))
	u, length := actor.Normalize(cB.Add(rB).Sub(cA).Sub(rA))

	var c float64
	switch {
	case j.minLength == j.maxLength:
		c = length - j.minLength
	case length < j.minLength:
		c = length - j.minLength
	case j.maxLength < length:
		c = length - j.maxLength
	default:
		return true
	}

	p := u.Mul(-j.mass * c)

	cA = cA.Sub(p.Mul(j.a.invMass))
	aA -= j.a.invI * actor.Cross(rA, p)
	cB = cB.Add(p.Mul(j.b.invMass))
	aB += j.b.invI * actor.Cross(rB, p)

	data.Positions[j.a.index] = Position{C: cA, A: aA}
	data.Positions[j.b.index] = Position{C: cB, A: aB}

	return math.Abs(c) < settings.LinearSlop
}
