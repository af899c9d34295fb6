package manifold

import (
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// CollideEdgeAndCircle computes the manifold of an edge and a circle.
//
// The circle is classified against the Voronoi regions of the segment
// (vertex 1, vertex 2 or the interior). For a one-sided edge, contacts from
// the back are dropped and vertex contacts that belong to a neighbouring
// edge, as told by the ghost vertices, are skipped.
func CollideEdgeAndCircle(edgeA *actor.Edge, xfA actor.Transform, circleB *actor.Circle, xfB actor.Transform) Manifold {
	var m Manifold

	// circle in the frame of the edge
	q := xfA.ApplyInv(xfB.Apply(circleB.Position))

	a, b := edgeA.Vertex1, edgeA.Vertex2
	e := b.Sub(a)

	// right-hand normal
	n := mgl64.Vec2{e[1], -e[0]}
	offset := n.Dot(q.Sub(a))

	if edgeA.OneSided && offset < 0.0 {
		return m
	}

	// barycentric coordinates
	u := e.Dot(b.Sub(q))
	v := e.Dot(q.Sub(a))

	radius := edgeA.Radius + circleB.Radius

	// Region A
	if v <= 0.0 {
		d := q.Sub(a)
		if d.Dot(d) > radius*radius {
			return m
		}

		if edgeA.OneSided {
			// circle in the AB region of the previous edge
			e1 := a.Sub(edgeA.Vertex0)
			if e1.Dot(a.Sub(q)) > 0.0 {
				return m
			}
		}

		m.PointCount = 1
		m.Type = TypeCircles
		m.LocalPoint = a
		m.Points[0].ID = ContactID{IndexA: 0, TypeA: FeatureVertex, TypeB: FeatureVertex}
		m.Points[0].LocalPoint = circleB.Position
		return m
	}

	// Region B
	if u <= 0.0 {
		d := q.Sub(b)
		if d.Dot(d) > radius*radius {
			return m
		}

		if edgeA.OneSided {
			// circle in the AB region of the next edge
			e2 := edgeA.Vertex3.Sub(b)
			if e2.Dot(q.Sub(b)) > 0.0 {
				return m
			}
		}

		m.PointCount = 1
		m.Type = TypeCircles
		m.LocalPoint = b
		m.Points[0].ID = ContactID{IndexA: 1, TypeA: FeatureVertex, TypeB: FeatureVertex}
		m.Points[0].LocalPoint = circleB.Position
		return m
	}

	// Region AB
	den := e.Dot(e)
	p := a.Mul(u).Add(b.Mul(v)).Mul(1.0 / den)
	d := q.Sub(p)
	if d.Dot(d) > radius*radius {
		return m
	}

	if offset < 0.0 {
		n = n.Mul(-1)
	}
	n, _ = actor.Normalize(n)

	m.PointCount = 1
	m.Type = TypeFaceA
	m.LocalNormal = n
	m.LocalPoint = a
	m.Points[0].ID = ContactID{IndexA: 0, TypeA: FeatureFace, TypeB: FeatureVertex}
	m.Points[0].LocalPoint = circleB.Position

	return m
}

type axisType int

const (
	axisUnknown axisType = iota
	axisEdgeA
	axisEdgeB
)

type separationAxis struct {
	normal     mgl64.Vec2
	kind       axisType
	index      int
	separation float64
}

type referenceFace struct {
	i1, i2                   int
	v1, v2                   mgl64.Vec2
	normal                   mgl64.Vec2
	sideNormal1, sideNormal2 mgl64.Vec2
	sideOffset1, sideOffset2 float64
}

// computeEdgeSeparation tests both sides of the edge normal against the
// polygon (already in the edge frame).
func computeEdgeSeparation(vertices []mgl64.Vec2, v1, normal1 mgl64.Vec2) separationAxis {
	axis := separationAxis{kind: axisEdgeA, index: -1, separation: -settings.MaxFloat}

	axes := [2]mgl64.Vec2{normal1, normal1.Mul(-1)}
	for j, n := range axes {
		sj := settings.MaxFloat
		for _, v := range vertices {
			sj = min(sj, n.Dot(v.Sub(v1)))
		}

		if sj > axis.separation {
			axis.index = j
			axis.separation = sj
			axis.normal = n
		}
	}

	return axis
}

// computePolygonSeparation tests the polygon normals against the segment.
func computePolygonSeparation(vertices, normals []mgl64.Vec2, v1, v2 mgl64.Vec2) separationAxis {
	axis := separationAxis{kind: axisUnknown, index: -1, separation: -settings.MaxFloat}

	for i := range vertices {
		n := normals[i].Mul(-1)
		s := min(n.Dot(vertices[i].Sub(v1)), n.Dot(vertices[i].Sub(v2)))

		if s > axis.separation {
			axis.kind = axisEdgeB
			axis.index = i
			axis.separation = s
			axis.normal = n
		}
	}

	return axis
}

// CollideEdgeAndPolygon computes the manifold of an edge and a polygon.
//
// Algorithm:
//  1. Move the polygon into the edge frame, drop it if behind a one-sided edge
//  2. Separating axis test on the edge normal (both sides) and on the polygon normals
//  3. Prefer the edge axis unless the polygon axis is clearly better (hysteresis)
//  4. One-sided edges check the Gauss map against the ghost neighbours, skipping
//     or snapping normals that would produce ghost collisions
//  5. Clip the incident edge against the reference face side planes
//
// Returns:
//
//	A TypeFaceA manifold when the edge is the reference, TypeFaceB otherwise
func CollideEdgeAndPolygon(edgeA *actor.Edge, xfA actor.Transform, polygonB *actor.Polygon, xfB actor.Transform) Manifold {
	var m Manifold

	xf := xfA.MulT(xfB)
	centroidB := xf.Apply(polygonB.Centroid)

	v1, v2 := edgeA.Vertex1, edgeA.Vertex2
	edge1, _ := actor.Normalize(v2.Sub(v1))

	// right-hand normal
	normal1 := mgl64.Vec2{edge1[1], -edge1[0]}
	offset1 := normal1.Dot(centroidB.Sub(v1))

	if edgeA.OneSided && offset1 < 0.0 {
		return m
	}

	// polygon B in frame A
	count := len(polygonB.Vertices)
	var vertices, normals [settings.MaxPolygonVertices]mgl64.Vec2
	for i := range count {
		vertices[i] = xf.Apply(polygonB.Vertices[i])
		normals[i] = xf.Rotation.Rotate(polygonB.Normals[i])
	}

	radius := polygonB.Radius + edgeA.Radius

	edgeAxis := computeEdgeSeparation(vertices[:count], v1, normal1)
	if edgeAxis.separation > radius {
		return m
	}

	polygonAxis := computePolygonSeparation(vertices[:count], normals[:count], v1, v2)
	if polygonAxis.separation > radius {
		return m
	}

	const (
		relativeTol = 0.98
		absoluteTol = 0.001
	)

	primaryAxis := edgeAxis
	if polygonAxis.separation-radius > relativeTol*(edgeAxis.separation-radius)+absoluteTol {
		primaryAxis = polygonAxis
	}

	if edgeA.OneSided {
		edge0, _ := actor.Normalize(v1.Sub(edgeA.Vertex0))
		normal0 := mgl64.Vec2{edge0[1], -edge0[0]}
		convex1 := actor.Cross(edge0, edge1) >= 0.0

		edge2, _ := actor.Normalize(edgeA.Vertex3.Sub(v2))
		normal2 := mgl64.Vec2{edge2[1], -edge2[0]}
		convex2 := actor.Cross(edge1, edge2) >= 0.0

		const sinTol = 0.1
		side1 := primaryAxis.normal.Dot(edge1) <= 0.0

		// Gauss map
		if side1 {
			if convex1 {
				if actor.Cross(primaryAxis.normal, normal0) > sinTol {
					// skip region
					return m
				}
			} else {
				// snap region
				primaryAxis = edgeAxis
			}
		} else {
			if convex2 {
				if actor.Cross(normal2, primaryAxis.normal) > sinTol {
					return m
				}
			} else {
				primaryAxis = edgeAxis
			}
		}
	}

	var (
		clipPoints [2]ClipVertex
		ref        referenceFace
	)

	if primaryAxis.kind == axisEdgeA {
		m.Type = TypeFaceA

		// polygon normal most anti-parallel to the edge normal
		bestIndex := 0
		bestValue := primaryAxis.normal.Dot(normals[0])
		for i := 1; i < count; i++ {
			if value := primaryAxis.normal.Dot(normals[i]); value < bestValue {
				bestValue = value
				bestIndex = i
			}
		}

		i1 := bestIndex
		i2 := 0
		if i1+1 < count {
			i2 = i1 + 1
		}

		clipPoints[0] = ClipVertex{
			V:  vertices[i1],
			ID: ContactID{IndexA: 0, IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex},
		}
		clipPoints[1] = ClipVertex{
			V:  vertices[i2],
			ID: ContactID{IndexA: 0, IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex},
		}

		ref.i1 = 0
		ref.i2 = 1
		ref.v1 = v1
		ref.v2 = v2
		ref.normal = primaryAxis.normal
		ref.sideNormal1 = edge1.Mul(-1)
		ref.sideNormal2 = edge1
	} else {
		m.Type = TypeFaceB

		clipPoints[0] = ClipVertex{
			V:  v2,
			ID: ContactID{IndexA: 1, IndexB: uint8(primaryAxis.index), TypeA: FeatureVertex, TypeB: FeatureFace},
		}
		clipPoints[1] = ClipVertex{
			V:  v1,
			ID: ContactID{IndexA: 0, IndexB: uint8(primaryAxis.index), TypeA: FeatureVertex, TypeB: FeatureFace},
		}

		ref.i1 = primaryAxis.index
		ref.i2 = 0
		if ref.i1+1 < count {
			ref.i2 = ref.i1 + 1
		}
		ref.v1 = vertices[ref.i1]
		ref.v2 = vertices[ref.i2]
		ref.normal = normals[ref.i1]

		// CCW winding
		ref.sideNormal1 = mgl64.Vec2{ref.normal[1], -ref.normal[0]}
		ref.sideNormal2 = ref.sideNormal1.Mul(-1)
	}

	ref.sideOffset1 = ref.sideNormal1.Dot(ref.v1)
	ref.sideOffset2 = ref.sideNormal2.Dot(ref.v2)

	clipPoints1, np := ClipSegmentToLine(clipPoints, ref.sideNormal1, ref.sideOffset1, ref.i1)
	if np < settings.MaxManifoldPoints {
		return m
	}

	clipPoints2, np := ClipSegmentToLine(clipPoints1, ref.sideNormal2, ref.sideOffset2, ref.i2)
	if np < settings.MaxManifoldPoints {
		return m
	}

	if primaryAxis.kind == axisEdgeA {
		m.LocalNormal = ref.normal
		m.LocalPoint = ref.v1
	} else {
		m.LocalNormal = polygonB.Normals[ref.i1]
		m.LocalPoint = polygonB.Vertices[ref.i1]
	}

	for i := range settings.MaxManifoldPoints {
		separation := ref.normal.Dot(clipPoints2[i].V.Sub(ref.v1))
		if separation > radius {
			continue
		}

		cp := &m.Points[m.PointCount]
		if primaryAxis.kind == axisEdgeA {
			cp.LocalPoint = xf.ApplyInv(clipPoints2[i].V)
			cp.ID = clipPoints2[i].ID
		} else {
			cp.LocalPoint = clipPoints2[i].V
			cp.ID = clipPoints2[i].ID.swap()
		}
		m.PointCount++
	}

	return m
}
