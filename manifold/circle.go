package manifold

import (
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/settings"
)

// CollideCircles computes the manifold of two circles.
func CollideCircles(circleA *actor.Circle, xfA actor.Transform, circleB *actor.Circle, xfB actor.Transform) Manifold {
	var m Manifold

	pA := xfA.Apply(circleA.Position)
	pB := xfB.Apply(circleB.Position)
	d := pB.Sub(pA)
	radius := circleA.Radius + circleB.Radius
	if d.Dot(d) > radius*radius {
		return m
	}

	m.Type = TypeCircles
	m.LocalPoint = circleA.Position
	m.PointCount = 1
	m.Points[0].LocalPoint = circleB.Position

	return m
}

// CollidePolygonAndCircle computes the manifold of a polygon and a circle.
//
// Algorithm:
//  1. Move the circle center into the polygon frame
//  2. Find the face of maximum separation, early out past the combined radius
//  3. Center inside the polygon: the face normal is used directly
//  4. Otherwise pick the Voronoi region of the face (vertex 1, vertex 2 or the face itself)
func CollidePolygonAndCircle(polygonA *actor.Polygon, xfA actor.Transform, circleB *actor.Circle, xfB actor.Transform) Manifold {
	var m Manifold

	c := xfB.Apply(circleB.Position)
	cLocal := xfA.ApplyInv(c)

	normalIndex := 0
	separation := -settings.MaxFloat
	radius := polygonA.Radius + circleB.Radius
	vertices := polygonA.Vertices
	normals := polygonA.Normals
	count := len(vertices)

	for i := range count {
		s := normals[i].Dot(cLocal.Sub(vertices[i]))
		if s > radius {
			return m
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	vertIndex1 := normalIndex
	vertIndex2 := 0
	if vertIndex1+1 < count {
		vertIndex2 = vertIndex1 + 1
	}
	v1 := vertices[vertIndex1]
	v2 := vertices[vertIndex2]

	// Center inside the polygon
	if separation < settings.Epsilon {
		m.PointCount = 1
		m.Type = TypeFaceA
		m.LocalNormal = normals[normalIndex]
		m.LocalPoint = v1.Add(v2).Mul(0.5)
		m.Points[0].LocalPoint = circleB.Position
		return m
	}

	u1 := cLocal.Sub(v1).Dot(v2.Sub(v1))
	u2 := cLocal.Sub(v2).Dot(v1.Sub(v2))

	switch {
	case u1 <= 0.0:
		d := cLocal.Sub(v1)
		if d.Dot(d) > radius*radius {
			return m
		}
		m.LocalNormal, _ = actor.Normalize(d)
		m.LocalPoint = v1
	case u2 <= 0.0:
		d := cLocal.Sub(v2)
		if d.Dot(d) > radius*radius {
			return m
		}
		m.LocalNormal, _ = actor.Normalize(d)
		m.LocalPoint = v2
	default:
		faceCenter := v1.Add(v2).Mul(0.5)
		if cLocal.Sub(faceCenter).Dot(normals[vertIndex1]) > radius {
			return m
		}
		m.LocalNormal = normals[vertIndex1]
		m.LocalPoint = faceCenter
	}

	m.PointCount = 1
	m.Type = TypeFaceA
	m.Points[0].LocalPoint = circleB.Position

	return m
}
