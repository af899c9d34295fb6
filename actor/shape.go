package actor

import (
	"errors"
	"math"

	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrDegeneratePolygon     = errors.New("degenerate polygon")
	ErrTooManyVertices       = errors.New("too many polygon vertices")
	ErrChainTooShort         = errors.New("chain has too few vertices")
	ErrChainVerticesTooClose = errors.New("chain vertices are too close together")
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeCircle ShapeType = iota
	ShapeTypeEdge
	ShapeTypePolygon
	ShapeTypeChain

	ShapeTypeCount
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeCircle:
		return "circle"
	case ShapeTypeEdge:
		return "edge"
	case ShapeTypePolygon:
		return "polygon"
	case ShapeTypeChain:
		return "chain"
	default:
		return "unknown"
	}
}

// MassData holds the mass properties of a shape, with the rotational inertia
// taken about the shape origin.
type MassData struct {
	Mass    float64
	Center  mgl64.Vec2
	Inertia float64
}

// Shape is the interface that all collision shapes implement. Geometry is
// immutable and expressed in the body frame.
type Shape interface {
	Type() ShapeType
	// GetRadius is the rounding radius: the circle radius, or the polygon skin.
	GetRadius() float64
	// ChildCount is the number of convex children; only chains have more than one.
	ChildCount() int
	// TestPoint reports whether a world point lies inside the shape.
	TestPoint(xf Transform, p mgl64.Vec2) bool
	RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool)
	// ComputeAABB calculates the world bounding box of a child
	ComputeAABB(xf Transform, childIndex int) AABB
	// ComputeMass calculates mass data for the shape given a density
	ComputeMass(density float64) MassData
}

// Circle is a solid disc centered on Position in the body frame.
type Circle struct {
	Position mgl64.Vec2
	Radius   float64
}

// NewCircle creates a circle centered on the body origin
func NewCircle(radius float64) *Circle {
	return &Circle{Radius: radius}
}

func (c *Circle) Type() ShapeType { return ShapeTypeCircle }
func (c *Circle) GetRadius() float64 { return c.Radius }
func (c *Circle) ChildCount() int { return 1 }

func (c *Circle) TestPoint(xf Transform, p mgl64.Vec2) bool {
	center := xf.Apply(c.Position)
	d := p.Sub(center)
	return d.Dot(d) <= c.Radius*c.Radius
}

// RayCast solves |s + t*r| = radius for the smallest t in [0, MaxFraction].
func (c *Circle) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	position := xf.Apply(c.Position)
	s := input.P1.Sub(position)
	b := s.Dot(s) - c.Radius*c.Radius

	r := input.P2.Sub(input.P1)
	cc := s.Dot(r)
	rr := r.Dot(r)
	sigma := cc*cc - rr*b

	if sigma < 0.0 || rr < settings.Epsilon {
		return RayCastOutput{}, false
	}

	a := -(cc + math.Sqrt(sigma))
	if 0.0 <= a && a <= input.MaxFraction*rr {
		a /= rr
		normal, _ := Normalize(s.Add(r.Mul(a)))
		return RayCastOutput{Normal: normal, Fraction: a}, true
	}

	return RayCastOutput{}, false
}

func (c *Circle) ComputeAABB(xf Transform, childIndex int) AABB {
	p := xf.Apply(c.Position)
	r := mgl64.Vec2{c.Radius, c.Radius}
	return AABB{Min: p.Sub(r), Max: p.Add(r)}
}

func (c *Circle) ComputeMass(density float64) MassData {
	rr := c.Radius * c.Radius
	mass := density * math.Pi * rr

	return MassData{
		Mass:   mass,
		Center: c.Position,
		// inertia about the local origin
		Inertia: mass * (0.5*rr + c.Position.Dot(c.Position)),
	}
}

// Edge is a line segment from Vertex1 to Vertex2. A one-sided edge collides
// only on its right-hand side (looking from Vertex1 to Vertex2) and uses the
// ghost vertices Vertex0 and Vertex3 to smooth collisions with its neighbours.
type Edge struct {
	Vertex0, Vertex1, Vertex2, Vertex3 mgl64.Vec2
	OneSided                           bool
	Radius                             float64
}

// NewEdge creates a two-sided segment
func NewEdge(v1, v2 mgl64.Vec2) *Edge {
	return &Edge{Vertex1: v1, Vertex2: v2, Radius: settings.PolygonRadius}
}

// NewOneSidedEdge creates a segment that collides only on its right side,
// with v0 and v3 as ghost vertices of the neighbouring segments.
func NewOneSidedEdge(v0, v1, v2, v3 mgl64.Vec2) *Edge {
	return &Edge{
		Vertex0:  v0,
		Vertex1:  v1,
		Vertex2:  v2,
		Vertex3:  v3,
		OneSided: true,
		Radius:   settings.PolygonRadius,
	}
}

func (e *Edge) Type() ShapeType { return ShapeTypeEdge }
func (e *Edge) GetRadius() float64 { return e.Radius }
func (e *Edge) ChildCount() int { return 1 }

// TestPoint is always false: an edge has no area.
func (e *Edge) TestPoint(xf Transform, p mgl64.Vec2) bool {
	return false
}

func (e *Edge) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	// ray in the edge frame
	p1 := xf.ApplyInv(input.P1)
	p2 := xf.ApplyInv(input.P2)
	d := p2.Sub(p1)

	v1 := e.Vertex1
	v2 := e.Vertex2
	edge := v2.Sub(v1)

	// right normal, looking from v1 to v2
	normal, _ := Normalize(mgl64.Vec2{edge[1], -edge[0]})

	numerator := normal.Dot(v1.Sub(p1))
	if e.OneSided && numerator > 0.0 {
		return RayCastOutput{}, false
	}

	denominator := normal.Dot(d)
	if denominator == 0.0 {
		return RayCastOutput{}, false
	}

	t := numerator / denominator
	if t < 0.0 || input.MaxFraction < t {
		return RayCastOutput{}, false
	}

	q := p1.Add(d.Mul(t))

	rr := edge.Dot(edge)
	if rr == 0.0 {
		return RayCastOutput{}, false
	}

	s := q.Sub(v1).Dot(edge) / rr
	if s < 0.0 || 1.0 < s {
		return RayCastOutput{}, false
	}

	out := RayCastOutput{Fraction: t, Normal: xf.Rotation.Rotate(normal)}
	if numerator > 0.0 {
		out.Normal = out.Normal.Mul(-1)
	}
	return out, true
}

func (e *Edge) ComputeAABB(xf Transform, childIndex int) AABB {
	v1 := xf.Apply(e.Vertex1)
	v2 := xf.Apply(e.Vertex2)

	return AABB{Min: MinVec(v1, v2), Max: MaxVec(v1, v2)}.Extend(e.Radius)
}

// ComputeMass returns zero mass: an edge has no area.
func (e *Edge) ComputeMass(density float64) MassData {
	return MassData{Center: e.Vertex1.Add(e.Vertex2).Mul(0.5)}
}
