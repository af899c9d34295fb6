// Package snapshot saves a World to a compact binary form and restores it.
//
// A snapshot holds the settings, the gravity, every body with its fixtures and
// shapes, and the joints. Contacts are not saved: they are rebuilt by the first
// step after Decode, without warm starting. Broken joints are dropped.
package snapshot

import (
	"errors"
	"fmt"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/constraint"
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/vmihailenco/msgpack/v5"
)

// Version is the format written by Encode.
const Version = 1

var (
	ErrVersion          = errors.New("unsupported snapshot version")
	ErrBodyType         = errors.New("unknown body type")
	ErrUnknownShape     = errors.New("unknown shape type")
	ErrInvalidShape     = errors.New("invalid shape")
	ErrUnsupportedJoint = errors.New("unsupported joint type")
	ErrBodyIndex        = errors.New("body index out of range")
)

type vec2 [2]float64

func fromVec(v mgl64.Vec2) vec2 { return vec2{v[0], v[1]} }
func (v vec2) toVec() mgl64.Vec2 { return mgl64.Vec2{v[0], v[1]} }

type worldState struct {
	Version  int               `msgpack:"version"`
	Settings settings.Settings `msgpack:"settings"`
	Gravity  vec2              `msgpack:"gravity"`
	Bodies   []bodyState       `msgpack:"bodies"`
	Joints   []jointState      `msgpack:"joints,omitempty"`
}

type bodyState struct {
	Type            actor.BodyType `msgpack:"type"`
	Position        vec2           `msgpack:"pos"`
	Angle           float64        `msgpack:"angle"`
	LinearVelocity  vec2           `msgpack:"v"`
	AngularVelocity float64        `msgpack:"w"`
	LinearDamping   float64        `msgpack:"ldamp,omitempty"`
	AngularDamping  float64        `msgpack:"adamp,omitempty"`
	GravityScale    float64        `msgpack:"gscale"`
	SleepTime       float64        `msgpack:"sleep,omitempty"`

	Awake         bool `msgpack:"awake"`
	AllowSleep    bool `msgpack:"allowSleep"`
	FixedRotation bool `msgpack:"fixedRot,omitempty"`
	Bullet        bool `msgpack:"bullet,omitempty"`
	Enabled       bool `msgpack:"enabled"`

	Fixtures []fixtureState `msgpack:"fixtures,omitempty"`
}

type fixtureState struct {
	Shape       shapeState `msgpack:"shape"`
	Density     float64    `msgpack:"density"`
	Friction    float64    `msgpack:"friction"`
	Restitution float64    `msgpack:"restitution,omitempty"`
	Sensor      bool       `msgpack:"sensor,omitempty"`
	Category    uint16     `msgpack:"category"`
	Mask        uint16     `msgpack:"mask"`
	Group       int16      `msgpack:"group,omitempty"`
}

// shapeState is the union of the shape geometries. Ghosts holds the edge
// vertices 0 and 3, or the chain prev and next vertices.
type shapeState struct {
	Type     actor.ShapeType `msgpack:"type"`
	Radius   float64         `msgpack:"radius"`
	Center   vec2            `msgpack:"center"`
	Vertices []vec2          `msgpack:"vertices,omitempty"`
	Normals  []vec2          `msgpack:"normals,omitempty"`
	Ghosts   [2]vec2         `msgpack:"ghosts"`
	OneSided bool            `msgpack:"oneSided,omitempty"`
}

type jointState struct {
	Type             constraint.JointType `msgpack:"type"`
	BodyA            int                  `msgpack:"a"`
	BodyB            int                  `msgpack:"b"`
	CollideConnected bool                 `msgpack:"collide,omitempty"`
	Breakpoint       float64              `msgpack:"breakpoint,omitempty"`

	LocalAnchorA vec2    `msgpack:"anchorA"`
	LocalAnchorB vec2    `msgpack:"anchorB"`
	Length       float64 `msgpack:"length"`
	MinLength    float64 `msgpack:"minLength"`
	MaxLength    float64 `msgpack:"maxLength"`
	Stiffness    float64 `msgpack:"stiffness,omitempty"`
	Damping      float64 `msgpack:"damping,omitempty"`
}

// Encode serializes the world. It must not be called during a step.
func Encode(w *plume.World) ([]byte, error) {
	if w.IsLocked() {
		return nil, errors.New("snapshot: world is stepping")
	}

	state := worldState{
		Version:  Version,
		Settings: w.Settings(),
		Gravity:  fromVec(w.Gravity()),
	}

	index := make(map[*actor.RigidBody]int, w.BodyCount())
	for i, b := range w.Bodies() {
		index[b] = i
		state.Bodies = append(state.Bodies, encodeBody(b))
	}

	for j := range w.Joints() {
		if w.IsJointBroken(j) {
			continue
		}

		js, err := encodeJoint(j, index)
		if err != nil {
			return nil, err
		}
		state.Joints = append(state.Joints, js)
	}

	data, err := msgpack.Marshal(&state)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return data, nil
}

func encodeBody(b *actor.RigidBody) bodyState {
	bs := bodyState{
		Type:            b.BodyType,
		Position:        fromVec(b.Position()),
		Angle:           b.Angle(),
		LinearVelocity:  fromVec(b.LinearVelocity),
		AngularVelocity: b.AngularVelocity,
		LinearDamping:   b.LinearDamping,
		AngularDamping:  b.AngularDamping,
		GravityScale:    b.GravityScale,
		SleepTime:       b.SleepTime,
		Awake:           b.IsAwake(),
		AllowSleep:      b.IsSleepingAllowed(),
		FixedRotation:   b.IsFixedRotation(),
		Bullet:          b.IsBullet(),
		Enabled:         b.IsEnabled(),
	}

	for _, f := range b.Fixtures {
		filter := f.Filter()
		bs.Fixtures = append(bs.Fixtures, fixtureState{
			Shape:       encodeShape(f.Shape()),
			Density:     f.Density,
			Friction:    f.Friction,
			Restitution: f.Restitution,
			Sensor:      f.IsSensor(),
			Category:    filter.CategoryBits,
			Mask:        filter.MaskBits,
			Group:       filter.GroupIndex,
		})
	}

	return bs
}

func encodeShape(shape actor.Shape) shapeState {
	ss := shapeState{Type: shape.Type(), Radius: shape.GetRadius()}

	switch s := shape.(type) {
	case *actor.Circle:
		ss.Center = fromVec(s.Position)
	case *actor.Edge:
		ss.Vertices = []vec2{fromVec(s.Vertex1), fromVec(s.Vertex2)}
		ss.Ghosts = [2]vec2{fromVec(s.Vertex0), fromVec(s.Vertex3)}
		ss.OneSided = s.OneSided
	case *actor.Polygon:
		ss.Center = fromVec(s.Centroid)
		for i := range s.Vertices {
			ss.Vertices = append(ss.Vertices, fromVec(s.Vertices[i]))
			ss.Normals = append(ss.Normals, fromVec(s.Normals[i]))
		}
	case *actor.Chain:
		for _, v := range s.Vertices {
			ss.Vertices = append(ss.Vertices, fromVec(v))
		}
		ss.Ghosts = [2]vec2{fromVec(s.PrevVertex), fromVec(s.NextVertex)}
	}

	return ss
}

func encodeJoint(j constraint.Joint, index map[*actor.RigidBody]int) (jointState, error) {
	dj, ok := j.(*constraint.DistanceJoint)
	if !ok {
		return jointState{}, fmt.Errorf("snapshot: joint %s: %w", j.Type(), ErrUnsupportedJoint)
	}

	return jointState{
		Type:             dj.Type(),
		BodyA:            index[dj.BodyA()],
		BodyB:            index[dj.BodyB()],
		CollideConnected: dj.CollideConnected(),
		Breakpoint:       dj.Breakpoint(),
		LocalAnchorA:     fromVec(dj.LocalAnchorA()),
		LocalAnchorB:     fromVec(dj.LocalAnchorB()),
		Length:           dj.Length(),
		MinLength:        dj.MinLength(),
		MaxLength:        dj.MaxLength(),
		Stiffness:        dj.Stiffness(),
		Damping:          dj.Damping(),
	}, nil
}

// Decode rebuilds a world from Encode output. The options are applied after
// the saved settings, so WithSettings overrides them.
func Decode(data []byte, opts ...plume.Option) (*plume.World, error) {
	var state worldState
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if state.Version != Version {
		return nil, fmt.Errorf("snapshot: version %d: %w", state.Version, ErrVersion)
	}

	opts = append([]plume.Option{plume.WithSettings(state.Settings)}, opts...)
	w := plume.NewWorld(state.Gravity.toVec(), opts...)

	bodies := make([]*actor.RigidBody, 0, len(state.Bodies))
	for i, bs := range state.Bodies {
		b, err := decodeBody(w, bs)
		if err != nil {
			return nil, fmt.Errorf("snapshot: body %d: %w", i, err)
		}
		bodies = append(bodies, b)
	}

	for i, js := range state.Joints {
		if err := decodeJoint(w, js, bodies); err != nil {
			return nil, fmt.Errorf("snapshot: joint %d: %w", i, err)
		}
	}

	return w, nil
}

func decodeBody(w *plume.World, bs bodyState) (*actor.RigidBody, error) {
	if bs.Type < actor.BodyTypeStatic || bs.Type > actor.BodyTypeDynamic {
		return nil, fmt.Errorf("body type %d: %w", bs.Type, ErrBodyType)
	}

	def := actor.BodyDef{
		Type:            bs.Type,
		Position:        bs.Position.toVec(),
		Angle:           bs.Angle,
		LinearVelocity:  bs.LinearVelocity.toVec(),
		AngularVelocity: bs.AngularVelocity,
		LinearDamping:   bs.LinearDamping,
		AngularDamping:  bs.AngularDamping,
		GravityScale:    bs.GravityScale,
		AllowSleep:      bs.AllowSleep,
		Awake:           bs.Awake,
		FixedRotation:   bs.FixedRotation,
		Bullet:          bs.Bullet,
		Enabled:         bs.Enabled,
	}

	// shapes first: a corrupted fixture must not leave a half built body
	shapes := make([]actor.Shape, len(bs.Fixtures))
	for i, fs := range bs.Fixtures {
		shape, err := decodeShape(fs.Shape)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		shapes[i] = shape
	}

	b := w.CreateBody(def)
	for i, fs := range bs.Fixtures {
		w.CreateFixture(b, actor.FixtureDef{
			Shape:       shapes[i],
			Density:     fs.Density,
			Friction:    fs.Friction,
			Restitution: fs.Restitution,
			IsSensor:    fs.Sensor,
			Filter: actor.Filter{
				CategoryBits: fs.Category,
				MaskBits:     fs.Mask,
				GroupIndex:   fs.Group,
			},
		})
	}
	b.SleepTime = bs.SleepTime

	return b, nil
}

func decodeShape(ss shapeState) (actor.Shape, error) {
	switch ss.Type {
	case actor.ShapeTypeCircle:
		if ss.Radius <= 0.0 {
			return nil, fmt.Errorf("circle radius %g: %w", ss.Radius, ErrInvalidShape)
		}
		return &actor.Circle{Position: ss.Center.toVec(), Radius: ss.Radius}, nil

	case actor.ShapeTypeEdge:
		if len(ss.Vertices) != 2 {
			return nil, fmt.Errorf("edge of %d vertices: %w", len(ss.Vertices), ErrInvalidShape)
		}
		return &actor.Edge{
			Vertex0:  ss.Ghosts[0].toVec(),
			Vertex1:  ss.Vertices[0].toVec(),
			Vertex2:  ss.Vertices[1].toVec(),
			Vertex3:  ss.Ghosts[1].toVec(),
			OneSided: ss.OneSided,
			Radius:   ss.Radius,
		}, nil

	case actor.ShapeTypePolygon:
		n := len(ss.Vertices)
		if n < 3 || n > settings.MaxPolygonVertices || len(ss.Normals) != n {
			return nil, fmt.Errorf("polygon of %d vertices and %d normals: %w", n, len(ss.Normals), ErrInvalidShape)
		}
		p := &actor.Polygon{
			Centroid: ss.Center.toVec(),
			Vertices: make([]mgl64.Vec2, n),
			Normals:  make([]mgl64.Vec2, n),
			Radius:   ss.Radius,
		}
		for i := range n {
			p.Vertices[i] = ss.Vertices[i].toVec()
			p.Normals[i] = ss.Normals[i].toVec()
		}
		return p, nil

	case actor.ShapeTypeChain:
		vertices := make([]mgl64.Vec2, len(ss.Vertices))
		for i, v := range ss.Vertices {
			vertices[i] = v.toVec()
		}
		prev, next := ss.Ghosts[0].toVec(), ss.Ghosts[1].toVec()
		chain, err := actor.NewChain(vertices, &prev, &next)
		if err != nil {
			return nil, err
		}
		chain.Radius = ss.Radius
		return chain, nil
	}

	return nil, fmt.Errorf("shape type %d: %w", ss.Type, ErrUnknownShape)
}

func decodeJoint(w *plume.World, js jointState, bodies []*actor.RigidBody) error {
	if js.Type != constraint.JointTypeDistance {
		return fmt.Errorf("joint type %d: %w", js.Type, ErrUnsupportedJoint)
	}
	if js.BodyA < 0 || js.BodyA >= len(bodies) || js.BodyB < 0 || js.BodyB >= len(bodies) {
		return fmt.Errorf("bodies %d and %d of %d: %w", js.BodyA, js.BodyB, len(bodies), ErrBodyIndex)
	}

	joint, err := constraint.NewDistanceJoint(constraint.DistanceJointDef{
		JointDef: constraint.JointDef{
			BodyA:            bodies[js.BodyA],
			BodyB:            bodies[js.BodyB],
			CollideConnected: js.CollideConnected,
			Breakpoint:       js.Breakpoint,
		},
		LocalAnchorA: js.LocalAnchorA.toVec(),
		LocalAnchorB: js.LocalAnchorB.toVec(),
		Length:       js.Length,
		MinLength:    js.MinLength,
		MaxLength:    js.MaxLength,
		Stiffness:    js.Stiffness,
		Damping:      js.Damping,
	})
	if err != nil {
		return err
	}

	w.CreateJoint(joint)
	return nil
}
