package constraint

import (
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/manifold"
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// maxConditionNumber guards the two point block solver against redundant points
const maxConditionNumber = 1000.0

// ContactInput is one touching contact handed to the solver. Manifold is
// written back by StoreImpulses.
type ContactInput struct {
	Manifold     *manifold.Manifold
	BodyA        *actor.RigidBody
	BodyB        *actor.RigidBody
	RadiusA      float64
	RadiusB      float64
	Friction     float64
	Restitution  float64
	TangentSpeed float64
}

// ContactImpulse reports the impulses applied at each point, for PostSolve.
type ContactImpulse struct {
	NormalImpulses  [settings.MaxManifoldPoints]float64
	TangentImpulses [settings.MaxManifoldPoints]float64
	Count           int
}

type velocityConstraintPoint struct {
	rA, rB         mgl64.Vec2
	normalImpulse  float64
	tangentImpulse float64
	normalMass     float64
	tangentMass    float64
	velocityBias   float64
}

type velocityConstraint struct {
	points       [settings.MaxManifoldPoints]velocityConstraintPoint
	normal       mgl64.Vec2
	normalMass   mgl64.Mat2
	k            mgl64.Mat2
	indexA       int
	indexB       int
	invMassA     float64
	invMassB     float64
	invIA        float64
	invIB        float64
	friction     float64
	restitution  float64
	tangentSpeed float64
	pointCount   int
}

type positionConstraint struct {
	localPoints  [settings.MaxManifoldPoints]mgl64.Vec2
	localNormal  mgl64.Vec2
	localPoint   mgl64.Vec2
	indexA       int
	indexB       int
	invMassA     float64
	invMassB     float64
	localCenterA mgl64.Vec2
	localCenterB mgl64.Vec2
	invIA        float64
	invIB        float64
	kind         manifold.Type
	radiusA      float64
	radiusB      float64
	pointCount   int
}

// ContactSolver solves the contacts of one island with sequential impulses.
type ContactSolver struct {
	step       TimeStep
	settings   *settings.Settings
	positions  []Position
	velocities []Velocity
	contacts   []ContactInput

	velocityConstraints []velocityConstraint
	positionConstraints []positionConstraint
}

// NewContactSolver copies the contact data and, with warm starting, the
// impulses of the previous step scaled by DtRatio.
func NewContactSolver(step TimeStep, s *settings.Settings, contacts []ContactInput, positions []Position, velocities []Velocity) *ContactSolver {
	cs := &ContactSolver{
		step:                step,
		settings:            s,
		positions:           positions,
		velocities:          velocities,
		contacts:            contacts,
		velocityConstraints: make([]velocityConstraint, len(contacts)),
		positionConstraints: make([]positionConstraint, len(contacts)),
	}

	for i := range contacts {
		c := &contacts[i]
		m := c.Manifold
		if m.PointCount == 0 {
			panic("constraint: contact without points handed to the solver")
		}

		bodyA, bodyB := c.BodyA, c.BodyB

		vc := &cs.velocityConstraints[i]
		vc.friction = c.Friction
		vc.restitution = c.Restitution
		vc.tangentSpeed = c.TangentSpeed
		vc.indexA = bodyA.IslandIndex
		vc.indexB = bodyB.IslandIndex
		vc.invMassA = bodyA.InvMass
		vc.invMassB = bodyB.InvMass
		vc.invIA = bodyA.InvInertia
		vc.invIB = bodyB.InvInertia
		vc.pointCount = m.PointCount

		pc := &cs.positionConstraints[i]
		pc.indexA = bodyA.IslandIndex
		pc.indexB = bodyB.IslandIndex
		pc.invMassA = bodyA.InvMass
		pc.invMassB = bodyB.InvMass
		pc.localCenterA = bodyA.Sweep.LocalCenter
		pc.localCenterB = bodyB.Sweep.LocalCenter
		pc.invIA = bodyA.InvInertia
		pc.invIB = bodyB.InvInertia
		pc.localNormal = m.LocalNormal
		pc.localPoint = m.LocalPoint
		pc.pointCount = m.PointCount
		pc.radiusA = c.RadiusA
		pc.radiusB = c.RadiusB
		pc.kind = m.Type

		for j := 0; j < m.PointCount; j++ {
			cp := &m.Points[j]
			vcp := &vc.points[j]

			if step.WarmStarting {
				vcp.normalImpulse = step.DtRatio * cp.NormalImpulse
				vcp.tangentImpulse = step.DtRatio * cp.TangentImpulse
			}

			pc.localPoints[j] = cp.LocalPoint
		}
	}

	return cs
}

// InitializeVelocityConstraints computes the anchors, effective masses and
// restitution bias of every point from the current positions.
func (cs *ContactSolver) InitializeVelocityConstraints() {
	for i := range cs.velocityConstraints {
		vc := &cs.velocityConstraints[i]
		pc := &cs.positionConstraints[i]

		mA, mB := vc.invMassA, vc.invMassB
		iA, iB := vc.invIA, vc.invIB

		cA := cs.positions[vc.indexA].C
		vA := cs.velocities[vc.indexA].V
		wA := cs.velocities[vc.indexA].W
		cB := cs.positions[vc.indexB].C
		vB := cs.velocities[vc.indexB].V
		wB := cs.velocities[vc.indexB].W

		xfA := bodyTransform(cs.positions[vc.indexA], pc.localCenterA)
		xfB := bodyTransform(cs.positions[vc.indexB], pc.localCenterB)

		var wm manifold.WorldManifold
		wm.Initialize(cs.contacts[i].Manifold, xfA, pc.radiusA, xfB, pc.radiusB)

		vc.normal = wm.Normal
		tangent := actor.CrossVS(vc.normal, 1.0)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			vcp.rA = wm.Points[j].Sub(cA)
			vcp.rB = wm.Points[j].Sub(cB)

			rnA := actor.Cross(vcp.rA, vc.normal)
			rnB := actor.Cross(vcp.rB, vc.normal)
			kNormal := mA + mB + iA*rnA*rnA + iB*rnB*rnB
			vcp.normalMass = 0
			if kNormal > 0.0 {
				vcp.normalMass = 1.0 / kNormal
			}

			rtA := actor.Cross(vcp.rA, tangent)
			rtB := actor.Cross(vcp.rB, tangent)
			kTangent := mA + mB + iA*rtA*rtA + iB*rtB*rtB
			vcp.tangentMass = 0
			if kTangent > 0.0 {
				vcp.tangentMass = 1.0 / kTangent
			}

			// restitution bias
			vcp.velocityBias = 0.0
			vRel := vc.normal.Dot(vB.Add(actor.CrossSV(wB, vcp.rB)).Sub(vA).Sub(actor.CrossSV(wA, vcp.rA)))
			if vRel < -cs.settings.VelocityThreshold {
				vcp.velocityBias = -vc.restitution * vRel
			}
		}

		// two points: prepare the block solver
		if vc.pointCount == 2 && cs.settings.BlockSolve {
			vcp1 := &vc.points[0]
			vcp2 := &vc.points[1]

			rn1A := actor.Cross(vcp1.rA, vc.normal)
			rn1B := actor.Cross(vcp1.rB, vc.normal)
			rn2A := actor.Cross(vcp2.rA, vc.normal)
			rn2B := actor.Cross(vcp2.rB, vc.normal)

			k11 := mA + mB + iA*rn1A*rn1A + iB*rn1B*rn1B
			k22 := mA + mB + iA*rn2A*rn2A + iB*rn2B*rn2B
			k12 := mA + mB + iA*rn1A*rn2A + iB*rn1B*rn2B

			if k11*k11 < maxConditionNumber*(k11*k22-k12*k12) {
				// column major
				vc.k = mgl64.Mat2{k11, k12, k12, k22}
				vc.normalMass = vc.k.Inv()
			} else {
				// redundant points, keep one
				vc.pointCount = 1
			}
		}
	}
}

// WarmStart applies the stored impulses.
func (cs *ContactSolver) WarmStart() {
	for i := range cs.velocityConstraints {
		vc := &cs.velocityConstraints[i]

		mA, iA := vc.invMassA, vc.invIA
		mB, iB := vc.invMassB, vc.invIB

		vA := cs.velocities[vc.indexA].V
		wA := cs.velocities[vc.indexA].W
		vB := cs.velocities[vc.indexB].V
		wB := cs.velocities[vc.indexB].W

		normal := vc.normal
		tangent := actor.CrossVS(normal, 1.0)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			p := normal.Mul(vcp.normalImpulse).Add(tangent.Mul(vcp.tangentImpulse))
			wA -= iA * actor.Cross(vcp.rA, p)
			vA = vA.Sub(p.Mul(mA))
			wB += iB * actor.Cross(vcp.rB, p)
			vB = vB.Add(p.Mul(mB))
		}

		cs.velocities[vc.indexA] = Velocity{V: vA, W: wA}
		cs.velocities[vc.indexB] = Velocity{V: vB, W: wB}
	}
}

// SolveVelocityConstraints runs one pass over every contact: friction first,
// then the normal constraints.
func (cs *ContactSolver) SolveVelocityConstraints() {
	for i := range cs.velocityConstraints {
		vc := &cs.velocityConstraints[i]

		mA, iA := vc.invMassA, vc.invIA
		mB, iB := vc.invMassB, vc.invIB

		vA := cs.velocities[vc.indexA].V
		wA := cs.velocities[vc.indexA].W
		vB := cs.velocities[vc.indexB].V
		wB := cs.velocities[vc.indexB].W

		normal := vc.normal
		tangent := actor.CrossVS(normal, 1.0)

		apply := func(rA, rB, p mgl64.Vec2) {
			vA = vA.Sub(p.Mul(mA))
			wA -= iA * actor.Cross(rA, p)
			vB = vB.Add(p.Mul(mB))
			wB += iB * actor.Cross(rB, p)
		}
		relativeVelocity := func(vcp *velocityConstraintPoint) mgl64.Vec2 {
			return vB.Add(actor.CrossSV(wB, vcp.rB)).Sub(vA).Sub(actor.CrossSV(wA, vcp.rA))
		}

		// ========== 1. Friction ==========
		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			vt := relativeVelocity(vcp).Dot(tangent) - vc.tangentSpeed
			lambda := vcp.tangentMass * (-vt)

			maxFriction := vc.friction * vcp.normalImpulse
			newImpulse := actor.Clamp(vcp.tangentImpulse+lambda, -maxFriction, maxFriction)
			lambda = newImpulse - vcp.tangentImpulse
			vcp.tangentImpulse = newImpulse

			apply(vcp.rA, vcp.rB, tangent.Mul(lambda))
		}

		// ========== 2. Normal ==========
		if vc.pointCount == 1 || !cs.settings.BlockSolve {
			for j := 0; j < vc.pointCount; j++ {
				vcp := &vc.points[j]

				vn := relativeVelocity(vcp).Dot(normal)
				lambda := -vcp.normalMass * (vn - vcp.velocityBias)

				newImpulse := max(vcp.normalImpulse+lambda, 0.0)
				lambda = newImpulse - vcp.normalImpulse
				vcp.normalImpulse = newImpulse

				apply(vcp.rA, vcp.rB, normal.Mul(lambda))
			}
		} else {
			cs.solveBlock(vc, relativeVelocity, apply)
		}

		cs.velocities[vc.indexA] = Velocity{V: vA, W: wA}
		cs.velocities[vc.indexB] = Velocity{V: vB, W: wB}
	}
}

// solveBlock solves both normal constraints together as a linear
// complementarity problem:
//
//	vn = A * x + b, vn >= 0, x >= 0, vn_i * x_i = 0
//
// with x the accumulated impulses. The incremental form b' = b - A*a is
// tested against the four cases of the LCP in turn: both points active, only
// the first, only the second, none. When no case holds the impulses are left
// as they are.
func (cs *ContactSolver) solveBlock(vc *velocityConstraint, relativeVelocity func(*velocityConstraintPoint) mgl64.Vec2, apply func(rA, rB, p mgl64.Vec2)) {
	cp1 := &vc.points[0]
	cp2 := &vc.points[1]
	normal := vc.normal

	a := mgl64.Vec2{cp1.normalImpulse, cp2.normalImpulse}

	vn1 := relativeVelocity(cp1).Dot(normal)
	vn2 := relativeVelocity(cp2).Dot(normal)

	b := mgl64.Vec2{vn1 - cp1.velocityBias, vn2 - cp2.velocityBias}
	b = b.Sub(vc.k.Mul2x1(a))

	commit := func(x mgl64.Vec2) {
		d := x.Sub(a)
		p1 := normal.Mul(d[0])
		p2 := normal.Mul(d[1])
		apply(cp1.rA, cp1.rB, p1)
		apply(cp2.rA, cp2.rB, p2)
		cp1.normalImpulse = x[0]
		cp2.normalImpulse = x[1]
	}

	// Case 1: vn = 0
	x := vc.normalMass.Mul2x1(b).Mul(-1)
	if x[0] >= 0.0 && x[1] >= 0.0 {
		commit(x)
		return
	}

	// Case 2: vn1 = 0 and x2 = 0
	x = mgl64.Vec2{-cp1.normalMass * b[0], 0.0}
	vn2 = vc.k[1]*x[0] + b[1]
	if x[0] >= 0.0 && vn2 >= 0.0 {
		commit(x)
		return
	}

	// Case 3: vn2 = 0 and x1 = 0
	x = mgl64.Vec2{0.0, -cp2.normalMass * b[1]}
	vn1 = vc.k[2]*x[1] + b[0]
	if x[1] >= 0.0 && vn1 >= 0.0 {
		commit(x)
		return
	}

	// Case 4: x1 = 0 and x2 = 0
	x = mgl64.Vec2{}
	if b[0] >= 0.0 && b[1] >= 0.0 {
		commit(x)
	}
}

// StoreImpulses writes the accumulated impulses back into the manifolds for
// warm starting the next step.
func (cs *ContactSolver) StoreImpulses() {
	for i := range cs.velocityConstraints {
		vc := &cs.velocityConstraints[i]
		m := cs.contacts[i].Manifold

		for j := 0; j < vc.pointCount; j++ {
			m.Points[j].NormalImpulse = vc.points[j].normalImpulse
			m.Points[j].TangentImpulse = vc.points[j].tangentImpulse
		}
	}
}

// Impulse returns the impulses applied to contact i.
func (cs *ContactSolver) Impulse(i int) ContactImpulse {
	vc := &cs.velocityConstraints[i]

	impulse := ContactImpulse{Count: vc.pointCount}
	for j := 0; j < vc.pointCount; j++ {
		impulse.NormalImpulses[j] = vc.points[j].normalImpulse
		impulse.TangentImpulses[j] = vc.points[j].tangentImpulse
	}
	return impulse
}

// Count is the number of contacts being solved.
func (cs *ContactSolver) Count() int {
	return len(cs.contacts)
}

// positionManifold evaluates point index of a position constraint.
func positionManifold(pc *positionConstraint, xfA, xfB actor.Transform, index int) (normal, point mgl64.Vec2, separation float64) {
	switch pc.kind {
	case manifold.TypeCircles:
		pointA := xfA.Apply(pc.localPoint)
		pointB := xfB.Apply(pc.localPoints[0])
		normal, _ = actor.Normalize(pointB.Sub(pointA))
		point = pointA.Add(pointB).Mul(0.5)
		separation = pointB.Sub(pointA).Dot(normal) - pc.radiusA - pc.radiusB

	case manifold.TypeFaceA:
		normal = xfA.Rotation.Rotate(pc.localNormal)
		planePoint := xfA.Apply(pc.localPoint)
		point = xfB.Apply(pc.localPoints[index])
		separation = point.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB

	case manifold.TypeFaceB:
		normal = xfB.Rotation.Rotate(pc.localNormal)
		planePoint := xfB.Apply(pc.localPoint)
		point = xfA.Apply(pc.localPoints[index])
		separation = point.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB

		// normal from A to B
		normal = normal.Mul(-1)
	}

	return normal, point, separation
}

// solvePositions runs one nonlinear Gauss-Seidel pass and returns the
// smallest separation seen. mass overrides the inverse masses of a
// constraint, for the TOI sub-step.
func (cs *ContactSolver) solvePositions(baumgarte float64, mass func(pc *positionConstraint) (mA, iA, mB, iB float64)) float64 {
	minSeparation := 0.0
	slop := cs.settings.LinearSlop
	maxCorrection := cs.settings.MaxLinearCorrection

	for i := range cs.positionConstraints {
		pc := &cs.positionConstraints[i]
		mA, iA, mB, iB := mass(pc)

		cA := cs.positions[pc.indexA].C
		aA := cs.positions[pc.indexA].A
		cB := cs.positions[pc.indexB].C
		aB := cs.positions[pc.indexB].A

		for j := 0; j < pc.pointCount; j++ {
			xfA := bodyTransform(Position{C: cA, A: aA}, pc.localCenterA)
			xfB := bodyTransform(Position{C: cB, A: aB}, pc.localCenterB)

			normal, point, separation := positionManifold(pc, xfA, xfB, j)

			rA := point.Sub(cA)
			rB := point.Sub(cB)

			minSeparation = min(minSeparation, separation)

			// allow slop, prevent large corrections
			c := actor.Clamp(baumgarte*(separation+slop), -maxCorrection, 0.0)

			rnA := actor.Cross(rA, normal)
			rnB := actor.Cross(rB, normal)
			k := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			impulse := 0.0
			if k > 0.0 {
				impulse = -c / k
			}
			p := normal.Mul(impulse)

			cA = cA.Sub(p.Mul(mA))
			aA -= iA * actor.Cross(rA, p)
			cB = cB.Add(p.Mul(mB))
			aB += iB * actor.Cross(rB, p)
		}

		cs.positions[pc.indexA] = Position{C: cA, A: aA}
		cs.positions[pc.indexB] = Position{C: cB, A: aB}
	}

	return minSeparation
}

// SolvePositionConstraints runs one position pass. It reports true once
// every contact is within 3 LinearSlop, since the solver never pushes the
// separation above -LinearSlop.
func (cs *ContactSolver) SolvePositionConstraints() bool {
	minSeparation := cs.solvePositions(cs.settings.Baumgarte, func(pc *positionConstraint) (float64, float64, float64, float64) {
		return pc.invMassA, pc.invIA, pc.invMassB, pc.invIB
	})

	return minSeparation >= -3.0*cs.settings.LinearSlop
}

// SolveTOIPositionConstraints runs one position pass that only moves the two
// bodies of a time of impact event, at island indices toiIndexA and
// toiIndexB. Every other body acts as static.
func (cs *ContactSolver) SolveTOIPositionConstraints(toiIndexA, toiIndexB int) bool {
	isTOI := func(index int) bool {
		return index == toiIndexA || index == toiIndexB
	}

	minSeparation := cs.solvePositions(cs.settings.TOIBaumgarte, func(pc *positionConstraint) (mA, iA, mB, iB float64) {
		if isTOI(pc.indexA) {
			mA, iA = pc.invMassA, pc.invIA
		}
		if isTOI(pc.indexB) {
			mB, iB = pc.invMassB, pc.invIB
		}
		return mA, iA, mB, iB
	})

	return minSeparation >= -1.5*cs.settings.LinearSlop
}
