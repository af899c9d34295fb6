// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) distance algorithm.
//
// GJK computes the distance between two convex shapes by searching the point of their
// Minkowski difference closest to the origin. The algorithm keeps a simplex of at most
// three support points, solves for the closest feature with barycentric coordinates and
// moves the search direction toward the origin until no new support point helps.
//
// Shapes enter the algorithm as a Proxy: the vertices of a convex child plus a rounding
// radius. The core works on the vertices only; radii are applied at the end when
// requested, which keeps the witness points on the rounded surfaces.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxIterations bounds the number of support point calls of Distance.
const MaxIterations = 20

// Proxy is the convex geometry GJK works on: a point, a segment or a polygon,
// plus a radius.
type Proxy struct {
	Vertices []mgl64.Vec2
	Radius   float64
}

// NewProxy builds the proxy of one shape child. The proxy shares the shape
// vertices when it can.
func NewProxy(shape actor.Shape, childIndex int) Proxy {
	switch s := shape.(type) {
	case *actor.Circle:
		return Proxy{Vertices: []mgl64.Vec2{s.Position}, Radius: s.Radius}
	case *actor.Polygon:
		return Proxy{Vertices: s.Vertices, Radius: s.Radius}
	case *actor.Edge:
		return Proxy{Vertices: []mgl64.Vec2{s.Vertex1, s.Vertex2}, Radius: s.Radius}
	case *actor.Chain:
		next := childIndex + 1
		if next >= len(s.Vertices) {
			next = 0
		}
		return Proxy{Vertices: []mgl64.Vec2{s.Vertices[childIndex], s.Vertices[next]}, Radius: s.Radius}
	default:
		panic("gjk: unsupported shape")
	}
}

// Support returns the index of the vertex furthest along d.
func (p Proxy) Support(d mgl64.Vec2) int {
	bestIndex := 0
	bestValue := p.Vertices[0].Dot(d)
	for i := 1; i < len(p.Vertices); i++ {
		if value := p.Vertices[i].Dot(d); value > bestValue {
			bestIndex = i
			bestValue = value
		}
	}
	return bestIndex
}

func (p Proxy) Vertex(index int) mgl64.Vec2 {
	return p.Vertices[index]
}

// SimplexCache carries the final simplex of a call to the next one on the
// same pair, so coherent queries converge in one or two iterations.
type SimplexCache struct {
	Metric float64 // length or area of the cached simplex
	Count  int
	IndexA [3]int
	IndexB [3]int
}

type DistanceInput struct {
	ProxyA     Proxy
	ProxyB     Proxy
	TransformA actor.Transform
	TransformB actor.Transform
	UseRadii   bool
}

// DistanceOutput holds the closest points of both shapes, in world space.
type DistanceOutput struct {
	PointA     mgl64.Vec2
	PointB     mgl64.Vec2
	Distance   float64
	Iterations int
}

// Distance computes the closest points between two proxies.
//
// Termination:
//   - the simplex is a triangle: the origin is inside, the shapes overlap
//   - the search direction vanishes: the origin lies on the simplex
//   - the new support point is already in the simplex: no progress is possible
//   - MaxIterations support calls were made
//
// With UseRadii the distance is reduced by both radii and the points move onto
// the rounded surfaces. When the rounded shapes overlap the distance is 0 and
// both points are the midpoint of the core witness points.
func Distance(cache *SimplexCache, input DistanceInput) DistanceOutput {
	proxyA := &input.ProxyA
	proxyB := &input.ProxyB
	xfA := input.TransformA
	xfB := input.TransformB

	var simplex Simplex
	simplex.readCache(cache, proxyA, xfA, proxyB, xfB)

	// vertices of the last simplex, to detect duplicates and prevent cycling
	var saveA, saveB [3]int

	iter := 0
	for iter < MaxIterations {
		saveCount := simplex.Count
		for i := 0; i < saveCount; i++ {
			saveA[i] = simplex.Vertices[i].IndexA
			saveB[i] = simplex.Vertices[i].IndexB
		}

		switch simplex.Count {
		case 2:
			simplex.solve2()
		case 3:
			simplex.solve3()
		}

		// the origin is inside the triangle
		if simplex.Count == 3 {
			break
		}

		d := simplex.searchDirection()

		// The origin is probably on a segment or a triangle: the shapes overlap.
		// Returning zero here is not safe, the origin may only be very close.
		if d.LenSqr() < settings.Epsilon*settings.Epsilon {
			break
		}

		// support = support(B, d) - support(A, -d)
		vertex := &simplex.Vertices[simplex.Count]
		vertex.IndexA = proxyA.Support(xfA.Rotation.InvRotate(d.Mul(-1)))
		vertex.WA = xfA.Apply(proxyA.Vertex(vertex.IndexA))
		vertex.IndexB = proxyB.Support(xfB.Rotation.InvRotate(d))
		vertex.WB = xfB.Apply(proxyB.Vertex(vertex.IndexB))
		vertex.W = vertex.WB.Sub(vertex.WA)

		// iterations count the support point calls
		iter++

		duplicate := false
		for i := 0; i < saveCount; i++ {
			if vertex.IndexA == saveA[i] && vertex.IndexB == saveB[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}

		simplex.Count++
	}

	var output DistanceOutput
	output.PointA, output.PointB = simplex.witnessPoints()
	output.Distance = output.PointB.Sub(output.PointA).Len()
	output.Iterations = iter

	simplex.writeCache(cache)

	if input.UseRadii {
		rA := proxyA.Radius
		rB := proxyB.Radius

		if output.Distance > rA+rB && output.Distance > settings.Epsilon {
			// still separated: move the points to the surfaces
			output.Distance -= rA + rB
			normal, _ := actor.Normalize(output.PointB.Sub(output.PointA))
			output.PointA = output.PointA.Add(normal.Mul(rA))
			output.PointB = output.PointB.Sub(normal.Mul(rB))
		} else {
			p := output.PointA.Add(output.PointB).Mul(0.5)
			output.PointA = p
			output.PointB = p
			output.Distance = 0.0
		}
	}

	return output
}

// TestOverlap reports whether two shape children overlap, radii included.
func TestOverlap(shapeA actor.Shape, indexA int, shapeB actor.Shape, indexB int, xfA, xfB actor.Transform) bool {
	input := DistanceInput{
		ProxyA:     NewProxy(shapeA, indexA),
		ProxyB:     NewProxy(shapeB, indexB),
		TransformA: xfA,
		TransformB: xfB,
		UseRadii:   true,
	}

	var cache SimplexCache
	output := Distance(&cache, input)

	return output.Distance < 10.0*settings.Epsilon
}

// SimplexVertex is a point of the Minkowski difference B - A with the support
// points that produced it.
type SimplexVertex struct {
	WA     mgl64.Vec2 // support point in A
	WB     mgl64.Vec2 // support point in B
	W      mgl64.Vec2 // WB - WA
	A      float64    // barycentric coordinate of the closest point
	IndexA int
	IndexB int
}

// Simplex represents a set of 1-3 points in the Minkowski difference space.
type Simplex struct {
	Vertices [3]SimplexVertex
	Count    int
}

func (s *Simplex) readCache(cache *SimplexCache, proxyA *Proxy, xfA actor.Transform, proxyB *Proxy, xfB actor.Transform) {
	s.Count = cache.Count
	for i := 0; i < s.Count; i++ {
		v := &s.Vertices[i]
		v.IndexA = cache.IndexA[i]
		v.IndexB = cache.IndexB[i]
		v.WA = xfA.Apply(proxyA.Vertex(v.IndexA))
		v.WB = xfB.Apply(proxyB.Vertex(v.IndexB))
		v.W = v.WB.Sub(v.WA)
		v.A = 0.0
	}

	// flush a cache whose simplex changed too much
	if s.Count > 1 {
		metric1 := cache.Metric
		metric2 := s.metric()
		if metric2 < 0.5*metric1 || 2.0*metric1 < metric2 || metric2 < settings.Epsilon {
			s.Count = 0
		}
	}

	if s.Count == 0 {
		v := &s.Vertices[0]
		v.IndexA = 0
		v.IndexB = 0
		v.WA = xfA.Apply(proxyA.Vertex(0))
		v.WB = xfB.Apply(proxyB.Vertex(0))
		v.W = v.WB.Sub(v.WA)
		v.A = 1.0
		s.Count = 1
	}
}

func (s *Simplex) writeCache(cache *SimplexCache) {
	cache.Metric = s.metric()
	cache.Count = s.Count
	for i := 0; i < s.Count; i++ {
		cache.IndexA[i] = s.Vertices[i].IndexA
		cache.IndexB[i] = s.Vertices[i].IndexB
	}
}

func (s *Simplex) searchDirection() mgl64.Vec2 {
	switch s.Count {
	case 1:
		return s.Vertices[0].W.Mul(-1)
	case 2:
		e12 := s.Vertices[1].W.Sub(s.Vertices[0].W)
		sgn := actor.Cross(e12, s.Vertices[0].W.Mul(-1))
		if sgn > 0.0 {
			// origin is left of e12
			return actor.CrossSV(1.0, e12)
		}
		return actor.CrossVS(e12, 1.0)
	default:
		return mgl64.Vec2{}
	}
}

func (s *Simplex) witnessPoints() (mgl64.Vec2, mgl64.Vec2) {
	v := &s.Vertices
	switch s.Count {
	case 1:
		return v[0].WA, v[0].WB
	case 2:
		pA := v[0].WA.Mul(v[0].A).Add(v[1].WA.Mul(v[1].A))
		pB := v[0].WB.Mul(v[0].A).Add(v[1].WB.Mul(v[1].A))
		return pA, pB
	case 3:
		pA := v[0].WA.Mul(v[0].A).Add(v[1].WA.Mul(v[1].A)).Add(v[2].WA.Mul(v[2].A))
		return pA, pA
	default:
		return mgl64.Vec2{}, mgl64.Vec2{}
	}
}

func (s *Simplex) metric() float64 {
	v := &s.Vertices
	switch s.Count {
	case 2:
		return v[0].W.Sub(v[1].W).Len()
	case 3:
		return actor.Cross(v[1].W.Sub(v[0].W), v[2].W.Sub(v[0].W))
	default:
		return 0.0
	}
}

// solve2 finds the closest point of the segment w1-w2 to the origin.
//
// Barycentric coordinates along e12 = w2 - w1:
//
//	a1 = dot(w2, e12) / dot(e12, e12)
//	a2 = -dot(w1, e12) / dot(e12, e12)
//
// A non-positive coordinate means the origin lies in the region of the other vertex.
func (s *Simplex) solve2() {
	w1 := s.Vertices[0].W
	w2 := s.Vertices[1].W
	e12 := w2.Sub(w1)

	// w1 region
	d12n2 := -w1.Dot(e12)
	if d12n2 <= 0.0 {
		s.Vertices[0].A = 1.0
		s.Count = 1
		return
	}

	// w2 region
	d12n1 := w2.Dot(e12)
	if d12n1 <= 0.0 {
		s.Vertices[1].A = 1.0
		s.Count = 1
		s.Vertices[0] = s.Vertices[1]
		return
	}

	// e12 region
	inv := 1.0 / (d12n1 + d12n2)
	s.Vertices[0].A = d12n1 * inv
	s.Vertices[1].A = d12n2 * inv
	s.Count = 2
}

// solve3 finds the closest feature of the triangle w1-w2-w3: a vertex, an
// edge or the interior, by testing the Voronoi regions.
func (s *Simplex) solve3() {
	w1 := s.Vertices[0].W
	w2 := s.Vertices[1].W
	w3 := s.Vertices[2].W

	// edge 12
	e12 := w2.Sub(w1)
	d12n1 := w2.Dot(e12)
	d12n2 := -w1.Dot(e12)

	// edge 13
	e13 := w3.Sub(w1)
	d13n1 := w3.Dot(e13)
	d13n2 := -w1.Dot(e13)

	// edge 23
	e23 := w3.Sub(w2)
	d23n1 := w3.Dot(e23)
	d23n2 := -w2.Dot(e23)

	// triangle 123
	n123 := actor.Cross(e12, e13)
	d123n1 := n123 * actor.Cross(w2, w3)
	d123n2 := n123 * actor.Cross(w3, w1)
	d123n3 := n123 * actor.Cross(w1, w2)

	// w1 region
	if d12n2 <= 0.0 && d13n2 <= 0.0 {
		s.Vertices[0].A = 1.0
		s.Count = 1
		return
	}

	// e12
	if d12n1 > 0.0 && d12n2 > 0.0 && d123n3 <= 0.0 {
		inv := 1.0 / (d12n1 + d12n2)
		s.Vertices[0].A = d12n1 * inv
		s.Vertices[1].A = d12n2 * inv
		s.Count = 2
		return
	}

	// e13
	if d13n1 > 0.0 && d13n2 > 0.0 && d123n2 <= 0.0 {
		inv := 1.0 / (d13n1 + d13n2)
		s.Vertices[0].A = d13n1 * inv
		s.Vertices[2].A = d13n2 * inv
		s.Count = 2
		s.Vertices[1] = s.Vertices[2]
		return
	}

	// w2 region
	if d12n1 <= 0.0 && d23n2 <= 0.0 {
		s.Vertices[1].A = 1.0
		s.Count = 1
		s.Vertices[0] = s.Vertices[1]
		return
	}

	// w3 region
	if d13n1 <= 0.0 && d23n1 <= 0.0 {
		s.Vertices[2].A = 1.0
		s.Count = 1
		s.Vertices[0] = s.Vertices[2]
		return
	}

	// e23
	if d23n1 > 0.0 && d23n2 > 0.0 && d123n1 <= 0.0 {
		inv := 1.0 / (d23n1 + d23n2)
		s.Vertices[1].A = d23n1 * inv
		s.Vertices[2].A = d23n2 * inv
		s.Count = 2
		s.Vertices[0] = s.Vertices[2]
		return
	}

	// inside the triangle
	inv := 1.0 / (d123n1 + d123n2 + d123n3)
	s.Vertices[0].A = d123n1 * inv
	s.Vertices[1].A = d123n2 * inv
	s.Vertices[2].A = d123n3 * inv
	s.Count = 3
}

// Farthest returns the largest distance from center to a proxy vertex. Used
// to bound the rotational motion of a sweep.
func (p Proxy) Farthest(center mgl64.Vec2) float64 {
	r := 0.0
	for _, v := range p.Vertices {
		r = math.Max(r, v.Sub(center).Len())
	}
	return r
}
