package actor

import (
	"github.com/akmonengine/plume/settings"
	"github.com/go-gl/mathgl/mgl64"
)

// Filter holds the collision filtering data of a fixture.
type Filter struct {
	// CategoryBits are the categories this fixture belongs to
	CategoryBits uint16
	// MaskBits are the categories this fixture accepts collisions with
	MaskBits uint16
	// GroupIndex overrides the bits when two fixtures share a non-zero group:
	// positive always collides, negative never does.
	GroupIndex int16
}

// DefaultFilter belongs to the first category and collides with everything
func DefaultFilter() Filter {
	return Filter{
		CategoryBits: settings.DefaultCategoryBits,
		MaskBits:     settings.DefaultMaskBits,
		GroupIndex:   settings.DefaultGroupIndex,
	}
}

// ShouldCollide applies the group rule, then the category/mask rule both ways.
func (f Filter) ShouldCollide(other Filter) bool {
	if f.GroupIndex == other.GroupIndex && f.GroupIndex != 0 {
		return f.GroupIndex > 0
	}

	return f.MaskBits&other.CategoryBits != 0 && f.CategoryBits&other.MaskBits != 0
}

// FixtureDef is used to attach a shape to a body.
type FixtureDef struct {
	Shape       Shape
	Friction    float64
	Restitution float64 // 0= no rebound, 1= perfect restitution
	Density     float64 // kg/m²
	IsSensor    bool
	Filter      Filter
	UserData    any
}

// NewFixtureDef returns a definition with the usual friction and the default filter
func NewFixtureDef(shape Shape, density float64) FixtureDef {
	return FixtureDef{
		Shape:    shape,
		Friction: 0.2,
		Density:  density,
		Filter:   DefaultFilter(),
	}
}

// FixtureProxy links one shape child to its broad-phase proxy.
type FixtureProxy struct {
	AABB       AABB
	Fixture    *Fixture
	ChildIndex int
	ProxyID    int
}

// Fixture binds a shape to a body with material and filtering data.
type Fixture struct {
	body  *RigidBody
	shape Shape

	Density     float64
	Friction    float64
	Restitution float64

	sensor      bool
	filter      Filter
	filterDirty bool

	// Proxies has one entry per shape child while the body is enabled
	Proxies []FixtureProxy

	UserData any
}

func newFixture(body *RigidBody, def FixtureDef) *Fixture {
	return &Fixture{
		body:        body,
		shape:       def.Shape,
		Density:     def.Density,
		Friction:    def.Friction,
		Restitution: def.Restitution,
		sensor:      def.IsSensor,
		filter:      def.Filter,
		UserData:    def.UserData,
	}
}

func (f *Fixture) Body() *RigidBody { return f.body }
func (f *Fixture) Shape() Shape { return f.shape }
func (f *Fixture) Type() ShapeType { return f.shape.Type() }

// IsSensor reports whether the fixture only detects overlaps
func (f *Fixture) IsSensor() bool {
	return f.sensor
}

// SetSensor toggles the sensor flag and wakes the body
func (f *Fixture) SetSensor(sensor bool) {
	if sensor != f.sensor {
		f.body.SetAwake(true)
		f.sensor = sensor
	}
}

func (f *Fixture) Filter() Filter {
	return f.filter
}

// SetFilter replaces the filter. Contacts of the fixture are refiltered at the
// beginning of the next step.
func (f *Fixture) SetFilter(filter Filter) {
	f.filter = filter
	f.filterDirty = true
}

// FilterDirty reports whether SetFilter was called since the last refilter
func (f *Fixture) FilterDirty() bool {
	return f.filterDirty
}

// ClearFilterDirty acknowledges a refilter
func (f *Fixture) ClearFilterDirty() {
	f.filterDirty = false
}

// TestPoint checks a world point against the shape
func (f *Fixture) TestPoint(p mgl64.Vec2) bool {
	return f.shape.TestPoint(f.body.Transform, p)
}

// RayCast casts a world ray against one shape child
func (f *Fixture) RayCast(input RayCastInput, childIndex int) (RayCastOutput, bool) {
	return f.shape.RayCast(input, f.body.Transform, childIndex)
}

// MassData computes the shape mass for the fixture density
func (f *Fixture) MassData() MassData {
	return f.shape.ComputeMass(f.Density)
}

// AABB returns the last AABB computed for a child. It is tight, the
// broad-phase stores the fattened one.
func (f *Fixture) AABB(childIndex int) AABB {
	return f.Proxies[childIndex].AABB
}
