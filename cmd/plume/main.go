// Command plume runs a scene and reports where its bodies end up.
//
// Usage:
//
//	plume [-scene file.yaml] [-steps N] [-dt 1/60] [-tui] [-sound] [-v]
//	      [-save out.snap] [-restore in.snap] [-log file]
//
// Without -scene, a box is dropped on the ground. With -tui the world is drawn
// in the terminal: space pauses, n steps once, arrows pan, +/- zoom and q
// quits.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/scene"
	"github.com/akmonengine/plume/snapshot"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

type options struct {
	scene   string
	steps   int
	dt      float64
	tui     bool
	sound   bool
	verbose bool
	save    string
	restore string
	logFile string
}

func parseFlags(args []string) (options, error) {
	opts := options{dt: 1.0 / 60.0}

	fs := flag.NewFlagSet("plume", flag.ContinueOnError)
	fs.StringVar(&opts.scene, "scene", "", "YAML scene file")
	fs.IntVar(&opts.steps, "steps", 600, "number of steps, 0 runs until quit in the terminal view")
	fs.Func("dt", "time step in seconds, as a decimal or a fraction like 1/60", func(s string) error {
		dt, err := parseDt(s)
		if err != nil {
			return err
		}
		opts.dt = dt
		return nil
	})
	fs.BoolVar(&opts.tui, "tui", false, "draw the world in the terminal")
	fs.BoolVar(&opts.sound, "sound", false, "click on new contacts")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	fs.StringVar(&opts.save, "save", "", "write a snapshot of the final state")
	fs.StringVar(&opts.restore, "restore", "", "start from a snapshot instead of a scene")
	fs.StringVar(&opts.logFile, "log", "", "log file, stderr by default")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.scene != "" && opts.restore != "" {
		return opts, errors.New("-scene and -restore are exclusive")
	}
	return opts, nil
}

func parseDt(s string) (float64, error) {
	var dt float64
	var err error

	if num, den, ok := strings.Cut(s, "/"); ok {
		var n, d float64
		if n, err = strconv.ParseFloat(num, 64); err != nil {
			return 0, err
		}
		if d, err = strconv.ParseFloat(den, 64); err != nil {
			return 0, err
		}
		if d == 0 {
			return 0, fmt.Errorf("dt %q: division by zero", s)
		}
		dt = n / d
	} else if dt, err = strconv.ParseFloat(s, 64); err != nil {
		return 0, err
	}

	if dt <= 0 {
		return 0, fmt.Errorf("dt %q: must be positive", s)
	}
	return dt, nil
}

func newLogger(opts options) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)

	switch {
	case opts.logFile != "":
		f, err := os.Create(opts.logFile)
		if err != nil {
			return nil, nil, err
		}
		out, closer = f, f
	case opts.tui:
		// the screen owns the terminal
		return slog.New(slog.DiscardHandler), closer, nil
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closer, nil
}

// defaultScene drops a tilted bouncy box on the ground.
func defaultScene(opts ...plume.Option) *plume.World {
	w := plume.NewWorld(mgl64.Vec2{0, -9.81}, opts...)

	ground := w.CreateBody(actor.NewBodyDef(actor.BodyTypeStatic, mgl64.Vec2{0, 0}))
	w.CreateFixture(ground, actor.NewFixtureDef(actor.NewBox(20, 0.5), 0))

	def := actor.NewBodyDef(actor.BodyTypeDynamic, mgl64.Vec2{-5, 5})
	def.Angle = mgl64.DegToRad(70)
	def.UserData = "box"
	box := w.CreateBody(def)

	fd := actor.NewFixtureDef(actor.NewBox(1.5, 1.5), 1)
	fd.Restitution = 0.8
	w.CreateFixture(box, fd)

	return w
}

func loadWorld(opts options, logger *slog.Logger) (*plume.World, error) {
	worldOpts := []plume.Option{plume.WithLogger(logger)}

	switch {
	case opts.restore != "":
		data, err := os.ReadFile(opts.restore)
		if err != nil {
			return nil, err
		}
		return snapshot.Decode(data, worldOpts...)

	case opts.scene != "":
		s, err := scene.Load(opts.scene)
		if err != nil {
			return nil, err
		}
		return s.Build(worldOpts...)
	}

	return defaultScene(worldOpts...), nil
}

// traceContacts logs every contact event at debug level.
func traceContacts(w *plume.World, logger *slog.Logger) {
	name := func(f *actor.Fixture) any {
		if n := f.Body().UserData; n != nil {
			return n
		}
		return f.Type()
	}

	w.Events.Subscribe(plume.CONTACT_BEGIN, func(e plume.Event) {
		c := e.(plume.ContactBeginEvent)
		logger.Debug("contact begin", "a", name(c.FixtureA), "b", name(c.FixtureB))
	})
	w.Events.Subscribe(plume.CONTACT_END, func(e plume.Event) {
		c := e.(plume.ContactEndEvent)
		logger.Debug("contact end", "a", name(c.FixtureA), "b", name(c.FixtureB))
	})
	w.Events.Subscribe(plume.JOINT_BREAK, func(e plume.Event) {
		j := e.(plume.JointBreakEvent)
		logger.Info("joint break", "type", j.Joint.Type(), "force", j.Force)
	})
	w.Events.Subscribe(plume.ON_SLEEP, func(e plume.Event) {
		logger.Debug("sleep", "body", e.(plume.SleepEvent).Body.UserData)
	})
}

func report(w *plume.World, logger *slog.Logger, steps int) {
	logger.Info("done",
		"steps", steps,
		"bodies", w.BodyCount(),
		"contacts", w.ContactCount(),
		"joints", w.JointCount(),
		"treeHeight", w.TreeHeight())

	for i, b := range w.Bodies() {
		if b.BodyType == actor.BodyTypeStatic {
			continue
		}
		fmt.Printf("%3d %-12v pos=(%.3f, %.3f) angle=%.3f v=(%.3f, %.3f) awake=%v\n",
			i, b.UserData, b.Position().X(), b.Position().Y(), b.Angle(),
			b.LinearVelocity.X(), b.LinearVelocity.Y(), b.IsAwake())
	}
}

func run(opts options) error {
	logger, closer, err := newLogger(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	w, err := loadWorld(opts, logger)
	if err != nil {
		return err
	}
	traceContacts(w, logger)

	var sound *contactSound
	if opts.sound {
		sound, err = newContactSound()
		if err != nil {
			// non-fatal, the simulation runs without sound
			logger.Warn("audio initialization failed", "err", err)
		} else {
			defer sound.close()
			sound.subscribe(&w.Events)
		}
	}

	step := func() {
		w.Step(opts.dt)
		if sound != nil {
			sound.endStep()
		}
	}

	var steps int
	if opts.tui {
		steps, err = runTerminal(w, step, opts)
		if err != nil {
			return err
		}
	} else {
		start := time.Now()
		for range opts.steps {
			step()
		}
		steps = opts.steps
		logger.Debug("simulated", "elapsed", time.Since(start))
	}

	report(w, logger, steps)

	if opts.save != "" {
		data, err := snapshot.Encode(w)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.save, data, 0o644); err != nil {
			return err
		}
		logger.Info("snapshot saved", "path", opts.save, "bytes", len(data))
	}

	return nil
}

// runTerminal steps the world in real time and draws it until q is pressed
// or the step budget is spent. It returns the number of steps taken.
func runTerminal(w *plume.World, step func(), opts options) (int, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return 0, err
	}
	if err := screen.Init(); err != nil {
		return 0, err
	}
	defer screen.Fini()

	draw := newTermDraw(screen)
	flags := plume.DrawShapes | plume.DrawJoints | plume.DrawContactPoints

	eventChan := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	ticker := time.NewTicker(time.Duration(opts.dt * float64(time.Second)))
	defer ticker.Stop()

	steps := 0
	paused := false

	for opts.steps == 0 || steps < opts.steps {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q':
					return steps, nil
				case ev.Rune() == ' ':
					paused = !paused
				case ev.Rune() == 'n' && paused:
					step()
					steps++
				case ev.Rune() == 'a':
					flags ^= plume.DrawAABBs
				case ev.Rune() == '+':
					draw.zoom(1.25)
				case ev.Rune() == '-':
					draw.zoom(0.8)
				case ev.Key() == tcell.KeyLeft:
					draw.pan(-4, 0)
				case ev.Key() == tcell.KeyRight:
					draw.pan(4, 0)
				case ev.Key() == tcell.KeyUp:
					draw.pan(0, 2)
				case ev.Key() == tcell.KeyDown:
					draw.pan(0, -2)
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case <-ticker.C:
			if !paused {
				step()
				steps++
			}
		}

		screen.Clear()
		w.DrawDebugData(draw, flags)
		status := fmt.Sprintf(" step %d  bodies %d  contacts %d ", steps, w.BodyCount(), w.ContactCount())
		if paused {
			status += " [paused] "
		}
		for i, r := range status {
			screen.SetContent(i, 0, r, nil, tcell.StyleDefault.Reverse(true))
		}
		screen.Show()
	}

	return steps, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "plume:", err)
		os.Exit(1)
	}
}
