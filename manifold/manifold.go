// Package manifold generates contact manifolds between pairs of convex shapes.
//
// A manifold holds at most two points for a pair of 2D convex shapes. Points are stored
// in local coordinates, relative to the reference face or circle center, so that they
// survive small motions and can be matched frame to frame by their ContactID. The
// matched points carry their accumulated impulses over, which is what makes warm
// starting work.
package manifold

import (
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// Type tells how the local normal and point of a manifold are interpreted.
type Type int

const (
	// Circles: LocalPoint is the center of circle A, the point holds the center of B
	TypeCircles Type = iota
	// FaceA: LocalNormal and LocalPoint describe a face of A, points are on B
	TypeFaceA
	// FaceB: LocalNormal and LocalPoint describe a face of B, points are on A
	TypeFaceB
)

// FeatureType is the kind of feature that produced a contact point.
type FeatureType uint8

const (
	FeatureVertex FeatureType = iota
	FeatureFace
)

// ContactID identifies a contact point by the features of both shapes that
// intersect to produce it.
type ContactID struct {
	IndexA uint8
	IndexB uint8
	TypeA  FeatureType
	TypeB  FeatureType
}

// Key packs the id into a single integer.
func (id ContactID) Key() uint32 {
	return uint32(id.IndexA) | uint32(id.IndexB)<<8 | uint32(id.TypeA)<<16 | uint32(id.TypeB)<<24
}

// swap exchanges the roles of A and B
func (id ContactID) swap() ContactID {
	return ContactID{IndexA: id.IndexB, IndexB: id.IndexA, TypeA: id.TypeB, TypeB: id.TypeA}
}

// Point is a contact point of a manifold.
type Point struct {
	// LocalPoint depends on the manifold type:
	//  - circles: the center of circle B
	//  - faceA: the clip point in the frame of B
	//  - faceB: the clip point in the frame of A
	LocalPoint     mgl64.Vec2
	NormalImpulse  float64 // accumulated by the solver
	TangentImpulse float64 // accumulated by the solver
	ID             ContactID
}

// Manifold is the contact description of two touching convex shapes.
type Manifold struct {
	Points      [settings.MaxManifoldPoints]Point
	LocalNormal mgl64.Vec2 // unused for TypeCircles
	LocalPoint  mgl64.Vec2
	Type        Type
	PointCount  int
}

// WorldManifold is a manifold evaluated in world space.
type WorldManifold struct {
	Normal      mgl64.Vec2 // from A to B
	Points      [settings.MaxManifoldPoints]mgl64.Vec2
	Separations [settings.MaxManifoldPoints]float64 // negative when overlapping
}

// Initialize evaluates the manifold with the given transforms and shape
// radii. Points are the midpoints between both surfaces.
func (wm *WorldManifold) Initialize(m *Manifold, xfA actor.Transform, radiusA float64, xfB actor.Transform, radiusB float64) {
	if m.PointCount == 0 {
		return
	}

	switch m.Type {
	case TypeCircles:
		wm.Normal = mgl64.Vec2{1.0, 0.0}
		pointA := xfA.Apply(m.LocalPoint)
		pointB := xfB.Apply(m.Points[0].LocalPoint)
		if d := pointB.Sub(pointA); d.Dot(d) > settings.Epsilon*settings.Epsilon {
			wm.Normal, _ = actor.Normalize(d)
		}

		cA := pointA.Add(wm.Normal.Mul(radiusA))
		cB := pointB.Sub(wm.Normal.Mul(radiusB))
		wm.Points[0] = cA.Add(cB).Mul(0.5)
		wm.Separations[0] = cB.Sub(cA).Dot(wm.Normal)

	case TypeFaceA:
		wm.Normal = xfA.Rotation.Rotate(m.LocalNormal)
		planePoint := xfA.Apply(m.LocalPoint)

		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfB.Apply(m.Points[i].LocalPoint)
			cA := clipPoint.Add(wm.Normal.Mul(radiusA - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cB := clipPoint.Sub(wm.Normal.Mul(radiusB))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cB.Sub(cA).Dot(wm.Normal)
		}

	case TypeFaceB:
		wm.Normal = xfB.Rotation.Rotate(m.LocalNormal)
		planePoint := xfB.Apply(m.LocalPoint)

		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfA.Apply(m.Points[i].LocalPoint)
			cB := clipPoint.Add(wm.Normal.Mul(radiusB - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cA := clipPoint.Sub(wm.Normal.Mul(radiusA))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cA.Sub(cB).Dot(wm.Normal)
		}

		// the normal always points from A to B
		wm.Normal = wm.Normal.Mul(-1)
	}
}

// PointState is the transition of a contact point between two manifolds.
type PointState int

const (
	StateNull    PointState = iota // point does not exist
	StateAdd                       // point was added in the update
	StatePersist                   // point persisted across the update
	StateRemove                    // point was removed in the update
)

// PointStates compares an old and a new manifold by contact ids. state1
// describes the points of m1 (persist or remove), state2 those of m2 (add or
// persist).
func PointStates(m1, m2 *Manifold) (state1, state2 [settings.MaxManifoldPoints]PointState) {
	for i := 0; i < m1.PointCount; i++ {
		id := m1.Points[i].ID
		state1[i] = StateRemove
		for j := 0; j < m2.PointCount; j++ {
			if m2.Points[j].ID == id {
				state1[i] = StatePersist
				break
			}
		}
	}

	for i := 0; i < m2.PointCount; i++ {
		id := m2.Points[i].ID
		state2[i] = StateAdd
		for j := 0; j < m1.PointCount; j++ {
			if m1.Points[j].ID == id {
				state2[i] = StatePersist
				break
			}
		}
	}

	return state1, state2
}

// ============================================================================
// Dispatch
// ============================================================================

var registered = [actor.ShapeTypeCount][actor.ShapeTypeCount]bool{}

func init() {
	register := func(a, b actor.ShapeType) {
		registered[a][b] = true
	}

	register(actor.ShapeTypeCircle, actor.ShapeTypeCircle)
	register(actor.ShapeTypePolygon, actor.ShapeTypeCircle)
	register(actor.ShapeTypePolygon, actor.ShapeTypePolygon)
	register(actor.ShapeTypeEdge, actor.ShapeTypeCircle)
	register(actor.ShapeTypeEdge, actor.ShapeTypePolygon)
	register(actor.ShapeTypeChain, actor.ShapeTypeCircle)
	register(actor.ShapeTypeChain, actor.ShapeTypePolygon)
}

// Supported reports whether a manifold algorithm exists for the two shape
// types. swap is set when the shapes must be exchanged to match the
// algorithm's (A, B) order. Edges and chains never collide with each other.
func Supported(typeA, typeB actor.ShapeType) (ok, swap bool) {
	if registered[typeA][typeB] {
		return true, false
	}
	if registered[typeB][typeA] {
		return true, true
	}
	return false, false
}

// Collide evaluates the manifold of two shape children. The pair must be in
// the order reported by Supported.
func Collide(shapeA actor.Shape, indexA int, xfA actor.Transform, shapeB actor.Shape, indexB int, xfB actor.Transform) Manifold {
	switch a := shapeA.(type) {
	case *actor.Circle:
		if b, ok := shapeB.(*actor.Circle); ok {
			return CollideCircles(a, xfA, b, xfB)
		}
	case *actor.Polygon:
		switch b := shapeB.(type) {
		case *actor.Circle:
			return CollidePolygonAndCircle(a, xfA, b, xfB)
		case *actor.Polygon:
			return CollidePolygons(a, xfA, b, xfB)
		}
	case *actor.Edge:
		switch b := shapeB.(type) {
		case *actor.Circle:
			return CollideEdgeAndCircle(a, xfA, b, xfB)
		case *actor.Polygon:
			return CollideEdgeAndPolygon(a, xfA, b, xfB)
		}
	case *actor.Chain:
		edge := a.ChildEdge(indexA)
		switch b := shapeB.(type) {
		case *actor.Circle:
			return CollideEdgeAndCircle(edge, xfA, b, xfB)
		case *actor.Polygon:
			return CollideEdgeAndPolygon(edge, xfA, b, xfB)
		}
	}

	panic("manifold: no algorithm for " + shapeA.Type().String() + " and " + shapeB.Type().String())
}
