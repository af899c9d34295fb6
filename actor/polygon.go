package actor

import (
	"fmt"

	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// Polygon is a convex polygon with counter-clockwise winding and at most
// settings.MaxPolygonVertices vertices. Normals[i] is the outward normal of the
// edge from Vertices[i] to Vertices[i+1].
type Polygon struct {
	Centroid mgl64.Vec2
	Vertices []mgl64.Vec2
	Normals  []mgl64.Vec2
	Radius   float64
}

// NewPolygon computes the convex hull of points and builds the polygon from it.
// Points closer than half the linear slop are welded. Collinear points are
// dropped from the hull.
func NewPolygon(points []mgl64.Vec2) (*Polygon, error) {
	if len(points) > settings.MaxPolygonVertices {
		return nil, fmt.Errorf("%d points, max %d: %w", len(points), settings.MaxPolygonVertices, ErrTooManyVertices)
	}

	const weld = 0.5 * settings.LinearSlop
	ps := make([]mgl64.Vec2, 0, len(points))
	for _, v := range points {
		unique := true
		for _, p := range ps {
			if d := v.Sub(p); d.Dot(d) < weld*weld {
				unique = false
				break
			}
		}
		if unique {
			ps = append(ps, v)
		}
	}

	n := len(ps)
	if n < 3 {
		return nil, fmt.Errorf("%d distinct points: %w", n, ErrDegeneratePolygon)
	}

	// gift wrapping, starting from the right-most (then lowest) point
	i0 := 0
	x0 := ps[0][0]
	for i := 1; i < n; i++ {
		x := ps[i][0]
		if x > x0 || (x == x0 && ps[i][1] < ps[i0][1]) {
			i0 = i
			x0 = x
		}
	}

	hull := make([]int, 0, n)
	ih := i0
	for {
		hull = append(hull, ih)
		ie := 0
		for j := 1; j < n; j++ {
			if ie == ih {
				ie = j
				continue
			}

			r := ps[ie].Sub(ps[ih])
			v := ps[j].Sub(ps[ih])
			c := Cross(r, v)
			if c < 0.0 {
				ie = j
			}
			// collinear: keep the farthest
			if c == 0.0 && v.LenSqr() > r.LenSqr() {
				ie = j
			}
		}

		ih = ie
		if ie == i0 || len(hull) == n {
			break
		}
	}

	if len(hull) < 3 {
		return nil, fmt.Errorf("hull of %d points: %w", len(hull), ErrDegeneratePolygon)
	}

	vertices := make([]mgl64.Vec2, len(hull))
	for i, h := range hull {
		vertices[i] = ps[h]
	}

	return newPolygonFromHull(vertices)
}

func newPolygonFromHull(vertices []mgl64.Vec2) (*Polygon, error) {
	m := len(vertices)
	normals := make([]mgl64.Vec2, m)
	for i := 0; i < m; i++ {
		edge := vertices[(i+1)%m].Sub(vertices[i])
		if edge.LenSqr() <= settings.Epsilon*settings.Epsilon {
			return nil, fmt.Errorf("zero length edge %d: %w", i, ErrDegeneratePolygon)
		}
		normals[i], _ = Normalize(CrossVS(edge, 1.0))
	}

	centroid, area := computeCentroid(vertices)
	if area <= settings.Epsilon {
		return nil, fmt.Errorf("area %g: %w", area, ErrDegeneratePolygon)
	}

	return &Polygon{
		Centroid: centroid,
		Vertices: vertices,
		Normals:  normals,
		Radius:   settings.PolygonRadius,
	}, nil
}

// NewBox creates an axis-aligned box centered on the body origin
func NewBox(hx, hy float64) *Polygon {
	return &Polygon{
		Vertices: []mgl64.Vec2{{-hx, -hy}, {hx, -hy}, {hx, hy}, {-hx, hy}},
		Normals:  []mgl64.Vec2{{0, -1}, {1, 0}, {0, 1}, {-1, 0}},
		Radius:   settings.PolygonRadius,
	}
}

// NewOrientedBox creates a box centered on center and rotated by angle, in the body frame
func NewOrientedBox(hx, hy float64, center mgl64.Vec2, angle float64) *Polygon {
	box := NewBox(hx, hy)
	xf := NewTransformAt(center, angle)

	for i := range box.Vertices {
		box.Vertices[i] = xf.Apply(box.Vertices[i])
		box.Normals[i] = xf.Rotation.Rotate(box.Normals[i])
	}
	box.Centroid = center

	return box
}

func computeCentroid(vs []mgl64.Vec2) (mgl64.Vec2, float64) {
	var c mgl64.Vec2
	area := 0.0

	// reference point inside the hull limits round-off
	s := vs[0]
	const inv3 = 1.0 / 3.0

	for i := range vs {
		p1 := vs[0].Sub(s)
		p2 := vs[i].Sub(s)
		p3 := vs[(i+1)%len(vs)].Sub(s)

		d := Cross(p2.Sub(p1), p3.Sub(p1))
		triangleArea := 0.5 * d
		area += triangleArea

		c = c.Add(p1.Add(p2).Add(p3).Mul(triangleArea * inv3))
	}

	if area <= settings.Epsilon {
		return s, area
	}

	return c.Mul(1.0 / area).Add(s), area
}

func (p *Polygon) Type() ShapeType { return ShapeTypePolygon }
func (p *Polygon) GetRadius() float64 { return p.Radius }
func (p *Polygon) ChildCount() int { return 1 }

func (p *Polygon) TestPoint(xf Transform, point mgl64.Vec2) bool {
	local := xf.ApplyInv(point)

	for i, v := range p.Vertices {
		if p.Normals[i].Dot(local.Sub(v)) > 0.0 {
			return false
		}
	}

	return true
}

// RayCast clips the ray against every face half-plane.
func (p *Polygon) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	p1 := xf.ApplyInv(input.P1)
	p2 := xf.ApplyInv(input.P2)
	d := p2.Sub(p1)

	lower, upper := 0.0, input.MaxFraction
	index := -1

	for i, v := range p.Vertices {
		// p = p1 + a * d
		// dot(normal, p - v) = 0
		// dot(normal, p1 - v) + a * dot(normal, d) = 0
		numerator := p.Normals[i].Dot(v.Sub(p1))
		denominator := p.Normals[i].Dot(d)

		if denominator == 0.0 {
			if numerator < 0.0 {
				return RayCastOutput{}, false
			}
		} else {
			if denominator < 0.0 && numerator < lower*denominator {
				// entering this half-plane
				lower = numerator / denominator
				index = i
			} else if denominator > 0.0 && numerator < upper*denominator {
				// leaving this half-plane
				upper = numerator / denominator
			}
		}

		if upper < lower {
			return RayCastOutput{}, false
		}
	}

	if index < 0 {
		return RayCastOutput{}, false
	}

	return RayCastOutput{Fraction: lower, Normal: xf.Rotation.Rotate(p.Normals[index])}, true
}

func (p *Polygon) ComputeAABB(xf Transform, childIndex int) AABB {
	lower := xf.Apply(p.Vertices[0])
	upper := lower

	for _, v := range p.Vertices[1:] {
		w := xf.Apply(v)
		lower = MinVec(lower, w)
		upper = MaxVec(upper, w)
	}

	return AABB{Min: lower, Max: upper}.Extend(p.Radius)
}

// ComputeMass integrates over the triangle fan of the polygon. The skin
// radius is ignored.
func (p *Polygon) ComputeMass(density float64) MassData {
	var center mgl64.Vec2
	area := 0.0
	inertia := 0.0

	s := p.Vertices[0]
	const inv3 = 1.0 / 3.0

	count := len(p.Vertices)
	for i := 0; i < count; i++ {
		e1 := p.Vertices[i].Sub(s)
		e2 := p.Vertices[(i+1)%count].Sub(s)

		d := Cross(e1, e2)

		triangleArea := 0.5 * d
		area += triangleArea

		center = center.Add(e1.Add(e2).Mul(triangleArea * inv3))

		ex1, ey1 := e1[0], e1[1]
		ex2, ey2 := e2[0], e2[1]

		intx2 := ex1*ex1 + ex2*ex1 + ex2*ex2
		inty2 := ey1*ey1 + ey2*ey1 + ey2*ey2

		inertia += (0.25 * inv3 * d) * (intx2 + inty2)
	}

	if area <= settings.Epsilon {
		panic(fmt.Sprintf("actor: polygon area %g is degenerate", area))
	}

	mass := density * area
	center = center.Mul(1.0 / area)
	massCenter := center.Add(s)

	// shift from the reference point to the centroid, then to the body origin
	i := density*inertia + mass*(massCenter.Dot(massCenter)-center.Dot(center))

	return MassData{Mass: mass, Center: massCenter, Inertia: i}
}
