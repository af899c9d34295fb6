package manifold

import (
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/settings"
)

// findMaxSeparation finds the face of poly1 with the largest separation
// against poly2.
func findMaxSeparation(poly1 *actor.Polygon, xf1 actor.Transform, poly2 *actor.Polygon, xf2 actor.Transform) (int, float64) {
	xf := xf2.MulT(xf1)

	bestIndex := 0
	maxSeparation := -settings.MaxFloat
	for i := range poly1.Vertices {
		// poly1 normal in frame2
		n := xf.Rotation.Rotate(poly1.Normals[i])
		v1 := xf.Apply(poly1.Vertices[i])

		// deepest point of poly2 along n
		si := settings.MaxFloat
		for _, v2 := range poly2.Vertices {
			si = min(si, n.Dot(v2.Sub(v1)))
		}

		if si > maxSeparation {
			maxSeparation = si
			bestIndex = i
		}
	}

	return bestIndex, maxSeparation
}

// findIncidentEdge returns the edge of poly2 most anti-parallel to the
// reference face edge1 of poly1, in world space.
func findIncidentEdge(poly1 *actor.Polygon, xf1 actor.Transform, edge1 int, poly2 *actor.Polygon, xf2 actor.Transform) [2]ClipVertex {
	// reference normal in poly2's frame
	normal1 := xf2.Rotation.InvRotate(xf1.Rotation.Rotate(poly1.Normals[edge1]))

	index := 0
	minDot := settings.MaxFloat
	for i, n := range poly2.Normals {
		if dot := normal1.Dot(n); dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := 0
	if i1+1 < len(poly2.Vertices) {
		i2 = i1 + 1
	}

	return [2]ClipVertex{
		{
			V:  xf2.Apply(poly2.Vertices[i1]),
			ID: ContactID{IndexA: uint8(edge1), IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
		{
			V:  xf2.Apply(poly2.Vertices[i2]),
			ID: ContactID{IndexA: uint8(edge1), IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
	}
}

// CollidePolygons computes the manifold of two convex polygons.
//
// Algorithm:
//  1. Separating axis test over the face normals of A, then of B
//  2. Pick the reference face, preferring A unless B separates by more than 0.1*slop
//  3. Find the incident edge on the other polygon
//  4. Clip the incident edge against the side planes of the reference face
//  5. Keep the clipped points within the combined skin radius of the face
//
// Parameters:
//   - polyA, xfA: the first polygon and its transform
//   - polyB, xfB: the second polygon and its transform
//
// Returns:
//
//	A TypeFaceA or TypeFaceB manifold with 0-2 points. Feature ids are
//	always expressed with A as the first shape.
func CollidePolygons(polyA *actor.Polygon, xfA actor.Transform, polyB *actor.Polygon, xfB actor.Transform) Manifold {
	var m Manifold
	totalRadius := polyA.Radius + polyB.Radius

	edgeA, separationA := findMaxSeparation(polyA, xfA, polyB, xfB)
	if separationA > totalRadius {
		return m
	}

	edgeB, separationB := findMaxSeparation(polyB, xfB, polyA, xfA)
	if separationB > totalRadius {
		return m
	}

	var (
		poly1, poly2 *actor.Polygon
		xf1, xf2     actor.Transform
		edge1        int
		flip         bool
	)

	const tol = 0.1 * settings.LinearSlop
	if separationB > separationA+tol {
		poly1, poly2 = polyB, polyA
		xf1, xf2 = xfB, xfA
		edge1 = edgeB
		m.Type = TypeFaceB
		flip = true
	} else {
		poly1, poly2 = polyA, polyB
		xf1, xf2 = xfA, xfB
		edge1 = edgeA
		m.Type = TypeFaceA
	}

	incidentEdge := findIncidentEdge(poly1, xf1, edge1, poly2, xf2)

	count1 := len(poly1.Vertices)
	iv1 := edge1
	iv2 := 0
	if edge1+1 < count1 {
		iv2 = edge1 + 1
	}

	v11 := poly1.Vertices[iv1]
	v12 := poly1.Vertices[iv2]

	localTangent, _ := actor.Normalize(v12.Sub(v11))
	localNormal := actor.CrossVS(localTangent, 1.0)
	planePoint := v11.Add(v12).Mul(0.5)

	tangent := xf1.Rotation.Rotate(localTangent)
	normal := actor.CrossVS(tangent, 1.0)

	v11 = xf1.Apply(v11)
	v12 = xf1.Apply(v12)

	frontOffset := normal.Dot(v11)

	// Side offsets, extended by the skin
	sideOffset1 := -tangent.Dot(v11) + totalRadius
	sideOffset2 := tangent.Dot(v12) + totalRadius

	clipPoints1, np := ClipSegmentToLine(incidentEdge, tangent.Mul(-1), sideOffset1, iv1)
	if np < 2 {
		return m
	}

	clipPoints2, np := ClipSegmentToLine(clipPoints1, tangent, sideOffset2, iv2)
	if np < 2 {
		return m
	}

	m.LocalNormal = localNormal
	m.LocalPoint = planePoint

	for i := range settings.MaxManifoldPoints {
		separation := normal.Dot(clipPoints2[i].V) - frontOffset
		if separation > totalRadius {
			continue
		}

		cp := &m.Points[m.PointCount]
		cp.LocalPoint = xf2.ApplyInv(clipPoints2[i].V)
		cp.ID = clipPoints2[i].ID
		if flip {
			cp.ID = cp.ID.swap()
		}
		m.PointCount++
	}

	return m
}
