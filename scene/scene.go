// Package scene loads worlds described in YAML.
//
// A scene lists the gravity, optional settings overrides, the bodies with
// their fixtures and the joints between named bodies:
//
//	gravity: [0, -10]
//	settings:
//	  velocityIterations: 10
//	bodies:
//	  - name: ground
//	    type: static
//	    fixtures:
//	      - shape: {type: box, halfWidth: 20, halfHeight: 0.5}
//	  - name: ball
//	    type: dynamic
//	    position: [0, 4]
//	    fixtures:
//	      - shape: {type: circle, radius: 0.5}
//	        density: 1
//	        restitution: 0.5
//	joints:
//	  - type: distance
//	    bodyA: ground
//	    bodyB: ball
//	    anchorA: [0, 6]
//	    anchorB: [0, 4]
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/constraint"
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownBodyType  = errors.New("unknown body type")
	ErrUnknownShape     = errors.New("unknown shape type")
	ErrUnknownJointType = errors.New("unknown joint type")
	ErrInvalidShape     = errors.New("invalid shape")
	ErrUnknownBody      = errors.New("unknown body")
	ErrDuplicateBody    = errors.New("duplicate body name")
)

// Vec is a point or vector written as [x, y].
type Vec [2]float64

func (v Vec) vec2() mgl64.Vec2 { return mgl64.Vec2{v[0], v[1]} }

// Scene is the parsed content of a scene file.
type Scene struct {
	Gravity  Vec       `yaml:"gravity"`
	Settings Overrides `yaml:"settings"`
	Bodies   []Body    `yaml:"bodies"`
	Joints   []Joint   `yaml:"joints"`
}

// Overrides replaces the default settings field by field. Unset fields keep
// their default.
type Overrides struct {
	VelocityIterations    *int     `yaml:"velocityIterations"`
	PositionIterations    *int     `yaml:"positionIterations"`
	TOIPositionIterations *int     `yaml:"toiPositionIterations"`
	MaxTOIIterations      *int     `yaml:"maxTOIIterations"`
	MaxSubSteps           *int     `yaml:"maxSubSteps"`
	TimeToSleep           *float64 `yaml:"timeToSleep"`
	Baumgarte             *float64 `yaml:"baumgarte"`
	VelocityThreshold     *float64 `yaml:"velocityThreshold"`
	MaxTranslation        *float64 `yaml:"maxTranslation"`
	WarmStarting          *bool    `yaml:"warmStarting"`
	ContinuousPhysics     *bool    `yaml:"continuousPhysics"`
	SubStepping           *bool    `yaml:"subStepping"`
	AllowSleep            *bool    `yaml:"allowSleep"`
	BlockSolve            *bool    `yaml:"blockSolve"`
}

// Apply returns s with the set overrides.
func (o Overrides) Apply(s settings.Settings) settings.Settings {
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setf := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setb := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	set(&s.VelocityIterations, o.VelocityIterations)
	set(&s.PositionIterations, o.PositionIterations)
	set(&s.TOIPositionIterations, o.TOIPositionIterations)
	set(&s.MaxTOIIterations, o.MaxTOIIterations)
	set(&s.MaxSubSteps, o.MaxSubSteps)
	setf(&s.TimeToSleep, o.TimeToSleep)
	setf(&s.Baumgarte, o.Baumgarte)
	setf(&s.VelocityThreshold, o.VelocityThreshold)
	setf(&s.MaxTranslation, o.MaxTranslation)
	setb(&s.WarmStarting, o.WarmStarting)
	setb(&s.ContinuousPhysics, o.ContinuousPhysics)
	setb(&s.SubStepping, o.SubStepping)
	setb(&s.AllowSleep, o.AllowSleep)
	setb(&s.BlockSolve, o.BlockSolve)

	return s
}

type Body struct {
	Name            string    `yaml:"name"`
	Type            string    `yaml:"type"`
	Position        Vec       `yaml:"position"`
	Angle           float64   `yaml:"angle"`
	LinearVelocity  Vec       `yaml:"linearVelocity"`
	AngularVelocity float64   `yaml:"angularVelocity"`
	LinearDamping   float64   `yaml:"linearDamping"`
	AngularDamping  float64   `yaml:"angularDamping"`
	GravityScale    *float64  `yaml:"gravityScale"`
	Bullet          bool      `yaml:"bullet"`
	FixedRotation   bool      `yaml:"fixedRotation"`
	Awake           *bool     `yaml:"awake"`
	AllowSleep      *bool     `yaml:"allowSleep"`
	Enabled         *bool     `yaml:"enabled"`
	Fixtures        []Fixture `yaml:"fixtures"`
}

type Fixture struct {
	Shape       Shape    `yaml:"shape"`
	Density     float64  `yaml:"density"`
	Friction    *float64 `yaml:"friction"`
	Restitution float64  `yaml:"restitution"`
	Sensor      bool     `yaml:"sensor"`
	Filter      *Filter  `yaml:"filter"`
}

type Filter struct {
	Category uint16 `yaml:"category"`
	Mask     uint16 `yaml:"mask"`
	Group    int16  `yaml:"group"`
}

// Shape is one of box, circle, polygon, edge, chain or loop.
type Shape struct {
	Type       string  `yaml:"type"`
	HalfWidth  float64 `yaml:"halfWidth"`
	HalfHeight float64 `yaml:"halfHeight"`
	Radius     float64 `yaml:"radius"`
	Center     Vec     `yaml:"center"`
	Angle      float64 `yaml:"angle"`
	Vertices   []Vec   `yaml:"vertices"`
}

// Joint is a distance joint between two named bodies. Anchors are in world
// coordinates. A frequency turns the rod into a spring.
type Joint struct {
	Type             string   `yaml:"type"`
	BodyA            string   `yaml:"bodyA"`
	BodyB            string   `yaml:"bodyB"`
	AnchorA          Vec      `yaml:"anchorA"`
	AnchorB          Vec      `yaml:"anchorB"`
	MinLength        *float64 `yaml:"minLength"`
	MaxLength        *float64 `yaml:"maxLength"`
	Frequency        float64  `yaml:"frequency"`
	DampingRatio     float64  `yaml:"dampingRatio"`
	CollideConnected bool     `yaml:"collideConnected"`
	Breakpoint       float64  `yaml:"breakpoint"`
}

// Load reads and parses a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scene. Unknown keys are errors.
func Parse(data []byte) (*Scene, error) {
	var s Scene

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}

	names := make(map[string]bool, len(s.Bodies))
	for i, b := range s.Bodies {
		if b.Name == "" {
			continue
		}
		if names[b.Name] {
			return nil, fmt.Errorf("scene: body %d %q: %w", i, b.Name, ErrDuplicateBody)
		}
		names[b.Name] = true
	}

	return &s, nil
}

// Build creates the world. Each body gets its scene name as UserData.
func (s *Scene) Build(opts ...plume.Option) (*plume.World, error) {
	opts = append([]plume.Option{plume.WithSettings(s.Settings.Apply(settings.Default()))}, opts...)
	w := plume.NewWorld(s.Gravity.vec2(), opts...)

	named := make(map[string]*actor.RigidBody, len(s.Bodies))
	for i := range s.Bodies {
		b, err := s.Bodies[i].build(w)
		if err != nil {
			return nil, fmt.Errorf("scene: body %d %q: %w", i, s.Bodies[i].Name, err)
		}
		if s.Bodies[i].Name != "" {
			named[s.Bodies[i].Name] = b
		}
	}

	for i := range s.Joints {
		if err := s.Joints[i].build(w, named); err != nil {
			return nil, fmt.Errorf("scene: joint %d: %w", i, err)
		}
	}

	return w, nil
}

func bodyType(name string) (actor.BodyType, error) {
	switch name {
	case "static":
		return actor.BodyTypeStatic, nil
	case "kinematic":
		return actor.BodyTypeKinematic, nil
	case "dynamic", "":
		return actor.BodyTypeDynamic, nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownBodyType)
}

func (b *Body) build(w *plume.World) (*actor.RigidBody, error) {
	bt, err := bodyType(b.Type)
	if err != nil {
		return nil, err
	}

	shapes := make([]actor.Shape, len(b.Fixtures))
	for i := range b.Fixtures {
		shapes[i], err = b.Fixtures[i].Shape.build()
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
	}

	def := actor.NewBodyDef(bt, b.Position.vec2())
	def.Angle = b.Angle
	def.LinearVelocity = b.LinearVelocity.vec2()
	def.AngularVelocity = b.AngularVelocity
	def.LinearDamping = b.LinearDamping
	def.AngularDamping = b.AngularDamping
	def.Bullet = b.Bullet
	def.FixedRotation = b.FixedRotation
	def.UserData = b.Name
	if b.GravityScale != nil {
		def.GravityScale = *b.GravityScale
	}
	if b.Awake != nil {
		def.Awake = *b.Awake
	}
	if b.AllowSleep != nil {
		def.AllowSleep = *b.AllowSleep
	}
	if b.Enabled != nil {
		def.Enabled = *b.Enabled
	}

	body := w.CreateBody(def)
	for i, f := range b.Fixtures {
		fd := actor.NewFixtureDef(shapes[i], f.Density)
		if f.Friction != nil {
			fd.Friction = *f.Friction
		}
		fd.Restitution = f.Restitution
		fd.IsSensor = f.Sensor
		if f.Filter != nil {
			fd.Filter = actor.Filter{
				CategoryBits: f.Filter.Category,
				MaskBits:     f.Filter.Mask,
				GroupIndex:   f.Filter.Group,
			}
		}
		w.CreateFixture(body, fd)
	}

	return body, nil
}

func (s *Shape) build() (actor.Shape, error) {
	vertices := make([]mgl64.Vec2, len(s.Vertices))
	for i, v := range s.Vertices {
		vertices[i] = v.vec2()
	}

	switch s.Type {
	case "box":
		if s.HalfWidth <= 0.0 || s.HalfHeight <= 0.0 {
			return nil, fmt.Errorf("box %gx%g: %w", s.HalfWidth, s.HalfHeight, ErrInvalidShape)
		}
		if s.Center != (Vec{}) || s.Angle != 0.0 {
			return actor.NewOrientedBox(s.HalfWidth, s.HalfHeight, s.Center.vec2(), s.Angle), nil
		}
		return actor.NewBox(s.HalfWidth, s.HalfHeight), nil

	case "circle":
		if s.Radius <= 0.0 {
			return nil, fmt.Errorf("circle radius %g: %w", s.Radius, ErrInvalidShape)
		}
		c := actor.NewCircle(s.Radius)
		c.Position = s.Center.vec2()
		return c, nil

	case "polygon":
		return actor.NewPolygon(vertices)

	case "edge":
		if len(vertices) != 2 {
			return nil, fmt.Errorf("edge of %d vertices: %w", len(vertices), ErrInvalidShape)
		}
		return actor.NewEdge(vertices[0], vertices[1]), nil

	case "chain":
		return actor.NewChain(vertices, nil, nil)

	case "loop":
		return actor.NewLoop(vertices)
	}

	return nil, fmt.Errorf("%q: %w", s.Type, ErrUnknownShape)
}

func (j *Joint) build(w *plume.World, named map[string]*actor.RigidBody) error {
	if j.Type != "distance" {
		return fmt.Errorf("%q: %w", j.Type, ErrUnknownJointType)
	}

	bodyA, ok := named[j.BodyA]
	if !ok {
		return fmt.Errorf("%q: %w", j.BodyA, ErrUnknownBody)
	}
	bodyB, ok := named[j.BodyB]
	if !ok {
		return fmt.Errorf("%q: %w", j.BodyB, ErrUnknownBody)
	}

	def := constraint.NewDistanceJointDef(bodyA, bodyB, j.AnchorA.vec2(), j.AnchorB.vec2())
	def.CollideConnected = j.CollideConnected
	def.Breakpoint = j.Breakpoint
	if j.MinLength != nil {
		def.MinLength = *j.MinLength
	}
	if j.MaxLength != nil {
		def.MaxLength = *j.MaxLength
	}
	if j.Frequency > 0.0 {
		def.Stiffness, def.Damping = constraint.LinearStiffness(j.Frequency, j.DampingRatio, bodyA, bodyB)
	}

	joint, err := constraint.NewDistanceJoint(def)
	if err != nil {
		return err
	}

	w.CreateJoint(joint)
	return nil
}
