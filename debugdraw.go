package plume

import (
	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Color is an RGBA color with components in [0,1].
type Color struct {
	R, G, B, A float64
}

func RGB(r, g, b float64) Color {
	return Color{R: r, G: g, B: b, A: 1.0}
}

// DebugDraw receives the primitives of World.DrawDebugData. Coordinates are in
// world space.
type DebugDraw interface {
	DrawPolygon(vertices []mgl64.Vec2, color Color)
	DrawSolidPolygon(vertices []mgl64.Vec2, color Color)
	DrawCircle(center mgl64.Vec2, radius float64, color Color)
	// axis is the direction of the body x axis
	DrawSolidCircle(center mgl64.Vec2, radius float64, axis mgl64.Vec2, color Color)
	DrawSegment(p1, p2 mgl64.Vec2, color Color)
	DrawTransform(xf actor.Transform)
	DrawPoint(p mgl64.Vec2, size float64, color Color)
}

// DrawFlags selects what DrawDebugData draws.
type DrawFlags uint8

const (
	DrawShapes DrawFlags = 1 << iota
	DrawJoints
	DrawAABBs
	DrawCenterOfMass
	DrawContactPoints
)

var (
	colorDisabled  = RGB(0.5, 0.5, 0.3)
	colorStatic    = RGB(0.5, 0.9, 0.5)
	colorKinematic = RGB(0.5, 0.5, 0.9)
	colorSleeping  = RGB(0.6, 0.6, 0.6)
	colorDynamic   = RGB(0.9, 0.7, 0.7)
	colorJoint     = RGB(0.5, 0.8, 0.8)
	colorAABB      = RGB(0.9, 0.3, 0.9)
	colorContact   = RGB(0.3, 0.95, 0.3)
)

func bodyColor(b *actor.RigidBody) Color {
	switch {
	case !b.IsEnabled():
		return colorDisabled
	case b.BodyType == actor.BodyTypeStatic:
		return colorStatic
	case b.BodyType == actor.BodyTypeKinematic:
		return colorKinematic
	case !b.IsAwake():
		return colorSleeping
	default:
		return colorDynamic
	}
}

// DrawDebugData walks the world and draws what flags selects.
func (w *World) DrawDebugData(draw DebugDraw, flags DrawFlags) {
	if flags&DrawShapes != 0 {
		for _, b := range w.bodies {
			color := bodyColor(b)
			for _, f := range b.Fixtures {
				drawShape(draw, f.Shape(), b.Transform, color)
			}
		}
	}

	if flags&DrawJoints != 0 {
		for _, n := range w.joints.all() {
			if n.broken {
				continue
			}
			j := n.joint
			bodyA, bodyB := j.BodyA(), j.BodyB()
			draw.DrawSegment(bodyA.Transform.Position, j.AnchorA(), colorJoint)
			draw.DrawSegment(j.AnchorA(), j.AnchorB(), colorJoint)
			draw.DrawSegment(bodyB.Transform.Position, j.AnchorB(), colorJoint)
		}
	}

	if flags&DrawAABBs != 0 {
		for _, b := range w.bodies {
			if !b.IsEnabled() {
				continue
			}
			for _, f := range b.Fixtures {
				for i := range f.Proxies {
					aabb := w.broadPhase.FatAABB(f.Proxies[i].ProxyID)
					draw.DrawPolygon([]mgl64.Vec2{
						aabb.Min,
						{aabb.Max.X(), aabb.Min.Y()},
						aabb.Max,
						{aabb.Min.X(), aabb.Max.Y()},
					}, colorAABB)
				}
			}
		}
	}

	if flags&DrawCenterOfMass != 0 {
		for _, b := range w.bodies {
			xf := b.Transform
			xf.Position = b.WorldCenter()
			draw.DrawTransform(xf)
		}
	}

	if flags&DrawContactPoints != 0 {
		for c := range w.Contacts() {
			if !c.IsTouching() {
				continue
			}
			wm := c.WorldManifold()
			for i := 0; i < c.manifold.PointCount; i++ {
				draw.DrawPoint(wm.Points[i], 4.0, colorContact)
			}
		}
	}
}

func drawShape(draw DebugDraw, shape actor.Shape, xf actor.Transform, color Color) {
	switch s := shape.(type) {
	case *actor.Circle:
		center := xf.Apply(s.Position)
		axis := xf.Rotation.Rotate(mgl64.Vec2{1.0, 0.0})
		draw.DrawSolidCircle(center, s.Radius, axis, color)

	case *actor.Edge:
		v1 := xf.Apply(s.Vertex1)
		v2 := xf.Apply(s.Vertex2)
		draw.DrawSegment(v1, v2, color)
		if !s.OneSided {
			draw.DrawPoint(v1, 4.0, color)
			draw.DrawPoint(v2, 4.0, color)
		}

	case *actor.Chain:
		v1 := xf.Apply(s.Vertices[0])
		for _, v := range s.Vertices[1:] {
			v2 := xf.Apply(v)
			draw.DrawSegment(v1, v2, color)
			v1 = v2
		}

	case *actor.Polygon:
		vertices := make([]mgl64.Vec2, len(s.Vertices))
		for i, v := range s.Vertices {
			vertices[i] = xf.Apply(v)
		}
		draw.DrawSolidPolygon(vertices, color)
	}
}
