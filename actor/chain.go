package actor

import (
	"fmt"

	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// Chain is a sequence of one-sided edges sharing vertices. Its children are
// materialised with ChildEdge, carrying the neighbouring vertices as ghosts so
// bodies slide across the joints without catching.
type Chain struct {
	Vertices   []mgl64.Vec2
	PrevVertex mgl64.Vec2
	NextVertex mgl64.Vec2
	Radius     float64
}

func checkChainVertices(vertices []mgl64.Vec2) error {
	for i := 1; i < len(vertices); i++ {
		d := vertices[i].Sub(vertices[i-1])
		if d.LenSqr() <= settings.LinearSlop*settings.LinearSlop {
			return fmt.Errorf("vertices %d and %d: %w", i-1, i, ErrChainVerticesTooClose)
		}
	}
	return nil
}

// NewLoop creates a closed chain. The last vertex connects back to the first.
func NewLoop(vertices []mgl64.Vec2) (*Chain, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("loop of %d vertices: %w", len(vertices), ErrChainTooShort)
	}
	if err := checkChainVertices(vertices); err != nil {
		return nil, err
	}

	vs := make([]mgl64.Vec2, len(vertices)+1)
	copy(vs, vertices)
	vs[len(vertices)] = vertices[0]

	return &Chain{
		Vertices:   vs,
		PrevVertex: vs[len(vs)-2],
		NextVertex: vs[1],
		Radius:     settings.PolygonRadius,
	}, nil
}

// NewChain creates an open chain. prev and next are the ghost vertices before
// the first and after the last vertex; pass nil to extend the end segments
// straight.
func NewChain(vertices []mgl64.Vec2, prev, next *mgl64.Vec2) (*Chain, error) {
	if len(vertices) < 2 {
		return nil, fmt.Errorf("chain of %d vertices: %w", len(vertices), ErrChainTooShort)
	}
	if err := checkChainVertices(vertices); err != nil {
		return nil, err
	}

	vs := make([]mgl64.Vec2, len(vertices))
	copy(vs, vertices)

	c := &Chain{Vertices: vs, Radius: settings.PolygonRadius}

	n := len(vs)
	if prev != nil {
		c.PrevVertex = *prev
	} else {
		c.PrevVertex = vs[0].Mul(2).Sub(vs[1])
	}
	if next != nil {
		c.NextVertex = *next
	} else {
		c.NextVertex = vs[n-1].Mul(2).Sub(vs[n-2])
	}

	return c, nil
}

func (c *Chain) Type() ShapeType { return ShapeTypeChain }
func (c *Chain) GetRadius() float64 { return c.Radius }

// ChildCount is the number of edges
func (c *Chain) ChildCount() int { return len(c.Vertices) - 1 }

// ChildEdge returns the one-sided edge at index with its ghost vertices.
func (c *Chain) ChildEdge(index int) *Edge {
	e := &Edge{
		Vertex1:  c.Vertices[index],
		Vertex2:  c.Vertices[index+1],
		OneSided: true,
		Radius:   c.Radius,
	}

	if index > 0 {
		e.Vertex0 = c.Vertices[index-1]
	} else {
		e.Vertex0 = c.PrevVertex
	}

	if index < len(c.Vertices)-2 {
		e.Vertex3 = c.Vertices[index+2]
	} else {
		e.Vertex3 = c.NextVertex
	}

	return e
}

// TestPoint is always false: a chain has no area.
func (c *Chain) TestPoint(xf Transform, p mgl64.Vec2) bool {
	return false
}

func (c *Chain) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	edge := Edge{
		Vertex1: c.Vertices[childIndex],
		Vertex2: c.Vertices[childIndex+1],
		Radius:  c.Radius,
	}
	return edge.RayCast(input, xf, 0)
}

func (c *Chain) ComputeAABB(xf Transform, childIndex int) AABB {
	v1 := xf.Apply(c.Vertices[childIndex])
	v2 := xf.Apply(c.Vertices[childIndex+1])

	return AABB{Min: MinVec(v1, v2), Max: MaxVec(v1, v2)}.Extend(c.Radius)
}

// ComputeMass returns zero mass: a chain has no area.
func (c *Chain) ComputeMass(density float64) MassData {
	return MassData{}
}
