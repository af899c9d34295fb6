package manifold

import "github.com/go-gl/mathgl/mgl64"

// ClipVertex is a vertex of an incident segment being clipped, tagged with
// the features that produced it.
type ClipVertex struct {
	V  mgl64.Vec2
	ID ContactID
}

// ClipSegmentToLine clips a segment against a half plane, Sutherland-Hodgman
// style for a single plane.
//
// Points with normal·v - offset <= 0 are kept. When the segment crosses the
// line, the intersection is emitted with a vertex/face id: vertex
// vertexIndexA of the reference shape hits the incident face.
//
// Parameters:
//   - in: the incident segment
//   - normal, offset: the clipping line, normal pointing outward
//   - vertexIndexA: reference vertex on the clipping line
//
// Returns:
//
//	The clipped segment and the number of points kept (0, 1 or 2)
func ClipSegmentToLine(in [2]ClipVertex, normal mgl64.Vec2, offset float64, vertexIndexA int) ([2]ClipVertex, int) {
	var out [2]ClipVertex
	count := 0

	distance0 := normal.Dot(in[0].V) - offset
	distance1 := normal.Dot(in[1].V) - offset

	// Points behind the plane
	if distance0 <= 0.0 {
		out[count] = in[0]
		count++
	}
	if distance1 <= 0.0 {
		out[count] = in[1]
		count++
	}

	// Points on different sides of the plane
	if distance0*distance1 < 0.0 {
		interp := distance0 / (distance0 - distance1)
		out[count].V = in[0].V.Add(in[1].V.Sub(in[0].V).Mul(interp))
		out[count].ID = ContactID{
			IndexA: uint8(vertexIndexA),
			IndexB: in[0].ID.IndexB,
			TypeA:  FeatureVertex,
			TypeB:  FeatureFace,
		}
		count++
	}

	return out, count
}
