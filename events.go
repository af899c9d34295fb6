package plume

import (
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/constraint"
)

const (
	CONTACT_BEGIN EventType = iota
	CONTACT_END
	SENSOR_BEGIN
	SENSOR_END
	JOINT_BREAK
	ON_SLEEP
	ON_WAKE
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Contact events, FixtureA and FixtureB are in the contact order
type ContactBeginEvent struct {
	FixtureA    *actor.Fixture
	FixtureB    *actor.Fixture
	ChildIndexA int
	ChildIndexB int
}

func (e ContactBeginEvent) Type() EventType { return CONTACT_BEGIN }

type ContactEndEvent struct {
	FixtureA    *actor.Fixture
	FixtureB    *actor.Fixture
	ChildIndexA int
	ChildIndexB int
}

func (e ContactEndEvent) Type() EventType { return CONTACT_END }

// Sensor events
type SensorBeginEvent struct {
	FixtureA *actor.Fixture
	FixtureB *actor.Fixture
}

func (e SensorBeginEvent) Type() EventType { return SENSOR_BEGIN }

type SensorEndEvent struct {
	FixtureA *actor.Fixture
	FixtureB *actor.Fixture
}

func (e SensorEndEvent) Type() EventType { return SENSOR_END }

// JointBreakEvent is sent once, when the reaction force of a joint first
// exceeds its breakpoint
type JointBreakEvent struct {
	Joint constraint.Joint
	Force float64
}

func (e JointBreakEvent) Type() EventType { return JOINT_BREAK }

// Sleep/Wake events
type SleepEvent struct {
	Body *actor.RigidBody
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *actor.RigidBody
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager. Events raised during a step are buffered and sent at the
// end of World.Step, once the world is unlocked: listeners may create and
// destroy bodies. Events raised outside a step are sent with the next one.
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	sleepStates map[*actor.RigidBody]bool
}

func NewEvents() Events {
	return Events{
		listeners:   make(map[EventType][]EventListener),
		buffer:      make([]Event, 0, 256),
		sleepStates: make(map[*actor.RigidBody]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// emitBegin is called by the contact update on a touching transition
func (e *Events) emitBegin(c *Contact) {
	if c.isSensor() {
		e.buffer = append(e.buffer, SensorBeginEvent{FixtureA: c.fixtureA, FixtureB: c.fixtureB})
		return
	}

	e.buffer = append(e.buffer, ContactBeginEvent{
		FixtureA:    c.fixtureA,
		FixtureB:    c.fixtureB,
		ChildIndexA: c.indexA,
		ChildIndexB: c.indexB,
	})
}

// emitEnd is called when a touching contact stops touching or is destroyed
func (e *Events) emitEnd(c *Contact) {
	if c.isSensor() {
		e.buffer = append(e.buffer, SensorEndEvent{FixtureA: c.fixtureA, FixtureB: c.fixtureB})
		return
	}

	e.buffer = append(e.buffer, ContactEndEvent{
		FixtureA:    c.fixtureA,
		FixtureB:    c.fixtureB,
		ChildIndexA: c.indexA,
		ChildIndexB: c.indexB,
	})
}

func (e *Events) emitJointBreak(joint constraint.Joint, force float64) {
	e.buffer = append(e.buffer, JointBreakEvent{Joint: joint, Force: force})
}

// processSleepEvents compares the awake flag of every body with the state seen
// at the previous step. Bodies are visited in creation order.
func (e *Events) processSleepEvents(bodies []*actor.RigidBody) {
	for _, body := range bodies {
		if body.BodyType == actor.BodyTypeStatic {
			continue
		}

		sleeping := !body.IsAwake()
		trackedState, exists := e.sleepStates[body]
		if !exists {
			e.sleepStates[body] = sleeping
			continue
		}

		if !trackedState && sleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: body})
			e.sleepStates[body] = true
		} else if trackedState && !sleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: body})
			e.sleepStates[body] = false
		}
	}
}

func (e *Events) forget(body *actor.RigidBody) {
	delete(e.sleepStates, body)
}

// flush sends all buffered events and clears the buffer. Listeners may raise
// new events; they are sent in the same flush.
func (e *Events) flush() {
	for i := 0; i < len(e.buffer); i++ {
		event := e.buffer[i]
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
