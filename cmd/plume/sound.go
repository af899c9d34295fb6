package main

import (
	"math"
	"sync"
	"time"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/actor"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(44100)
	clickTime  = 40 * time.Millisecond
	// at most this many clicks per step
	maxClicks = 4
)

// contactSound clicks on every new solid contact. Circles ring higher than
// polygons.
type contactSound struct {
	mu     sync.Mutex
	clicks int
}

func newContactSound() (*contactSound, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/20)); err != nil {
		return nil, err
	}
	return &contactSound{}, nil
}

func (s *contactSound) subscribe(events *plume.Events) {
	events.Subscribe(plume.CONTACT_BEGIN, func(e plume.Event) {
		begin := e.(plume.ContactBeginEvent)
		s.play(begin.FixtureA, begin.FixtureB)
	})
}

// endStep re-arms the click budget.
func (s *contactSound) endStep() {
	s.mu.Lock()
	s.clicks = 0
	s.mu.Unlock()
}

func (s *contactSound) play(a, b *actor.Fixture) {
	s.mu.Lock()
	if s.clicks >= maxClicks {
		s.mu.Unlock()
		return
	}
	s.clicks++
	s.mu.Unlock()

	freq := 330.0
	if a.Type() == actor.ShapeTypeCircle || b.Type() == actor.ShapeTypeCircle {
		freq = 660.0
	}

	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}

	// heavier bodies sound louder
	mass := math.Max(a.Body().Mass, b.Body().Mass)
	volume := &effects.Volume{
		Streamer: beep.Take(sampleRate.N(clickTime), sine),
		Base:     2,
		Volume:   actor.Clamp(math.Log2(mass)-3.0, -6.0, 0.0),
	}
	speaker.Play(volume)
}

func (s *contactSound) close() {
	speaker.Clear()
}
