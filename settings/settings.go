// Package settings holds the engine tolerances.
//
// Fixed geometric constants live here as package constants because shapes bake them in
// at construction time. Everything a simulation may tune is grouped in Settings, which a
// World copies at construction and treats as read-only while stepping.
package settings

import "math"

const (
	// MaxManifoldPoints is the maximum number of contact points between two convex shapes.
	MaxManifoldPoints = 2

	// MaxPolygonVertices is the maximum number of vertices on a convex polygon.
	MaxPolygonVertices = 8

	// LinearSlop is the default collision and constraint tolerance, in meters.
	LinearSlop = 0.005

	// PolygonRadius is the skin radius of polygons, edges and chains. It gives
	// continuous collision a buffer and should not be modified.
	PolygonRadius = 2.0 * LinearSlop

	// Epsilon is the machine epsilon used by the geometric predicates.
	Epsilon = 2.220446049250313e-16

	// MaxFloat stands in for "no bound".
	MaxFloat = math.MaxFloat64
)

// Filter defaults.
const (
	DefaultCategoryBits uint16 = 0x0001
	DefaultMaskBits     uint16 = 0xFFFF
	DefaultGroupIndex   int16  = 0
)

// Settings groups the tunable tolerances of a World.
type Settings struct {
	// Collision
	LinearSlop     float64 // allowed penetration, prevents jitter at contact boundaries
	AngularSlop    float64
	AABBExtension  float64 // fat AABB margin in the dynamic tree
	AABBMultiplier float64 // displacement prediction factor for fat AABBs

	// Dynamics
	VelocityThreshold     float64 // below this relative speed collisions are inelastic
	MaxLinearCorrection   float64
	MaxAngularCorrection  float64
	MaxTranslation        float64 // per step
	MaxRotation           float64 // per step
	Baumgarte             float64
	TOIBaumgarte          float64
	MaxSubSteps           int
	MaxTOIContacts        int
	VelocityIterations    int
	PositionIterations    int
	TOIPositionIterations int
	MaxTOIIterations      int // conservative advancement steps before giving up

	// Sleep
	TimeToSleep           float64
	LinearSleepTolerance  float64
	AngularSleepTolerance float64

	WarmStarting      bool
	ContinuousPhysics bool
	SubStepping       bool
	AllowSleep        bool
	BlockSolve        bool

	DefaultCategoryBits uint16
	DefaultMaskBits     uint16
	DefaultGroupIndex   int16
}

// Default returns the standard MKS tuning.
func Default() Settings {
	return Settings{
		LinearSlop:     LinearSlop,
		AngularSlop:    2.0 / 180.0 * math.Pi,
		AABBExtension:  0.1,
		AABBMultiplier: 2.0,

		VelocityThreshold:     1.0,
		MaxLinearCorrection:   0.2,
		MaxAngularCorrection:  8.0 / 180.0 * math.Pi,
		MaxTranslation:        2.0,
		MaxRotation:           0.5 * math.Pi,
		Baumgarte:             0.2,
		TOIBaumgarte:          0.75,
		MaxSubSteps:           8,
		MaxTOIContacts:        32,
		VelocityIterations:    8,
		PositionIterations:    3,
		TOIPositionIterations: 20,
		MaxTOIIterations:      30,

		TimeToSleep:           0.5,
		LinearSleepTolerance:  0.01,
		AngularSleepTolerance: 2.0 / 180.0 * math.Pi,

		WarmStarting:      true,
		ContinuousPhysics: true,
		SubStepping:       false,
		AllowSleep:        true,
		BlockSolve:        true,

		DefaultCategoryBits: DefaultCategoryBits,
		DefaultMaskBits:     DefaultMaskBits,
		DefaultGroupIndex:   DefaultGroupIndex,
	}
}

// MaxTranslationSquared is MaxTranslation squared.
func (s Settings) MaxTranslationSquared() float64 {
	return s.MaxTranslation * s.MaxTranslation
}

// MaxRotationSquared is MaxRotation squared.
func (s Settings) MaxRotationSquared() float64 {
	return s.MaxRotation * s.MaxRotation
}
