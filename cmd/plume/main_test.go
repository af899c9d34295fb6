package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/actor"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

func TestParseDt(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1/60", 1.0 / 60.0, false},
		{"0.01", 0.01, false},
		{"2/240", 1.0 / 120.0, false},
		{"1/0", 0, true},
		{"-0.1", 0, true},
		{"0", 0, true},
		{"abc", 0, true},
		{"1/x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDt(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseDt(%q) = %g, want an error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDt(%q): %v", tt.in, err)
			}
			if math.Abs(got-tt.want) > 1e-15 {
				t.Errorf("parseDt(%q) = %g, want %g", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-steps", "10", "-dt", "1/120", "-v"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.steps != 10 || !opts.verbose {
		t.Errorf("Unexpected options %+v", opts)
	}
	if math.Abs(opts.dt-1.0/120.0) > 1e-15 {
		t.Errorf("dt = %g, want 1/120", opts.dt)
	}

	defaults, err := parseFlags(nil)
	if err != nil {
		t.Fatal(err)
	}
	if defaults.dt != 1.0/60.0 || defaults.steps != 600 {
		t.Errorf("Unexpected defaults %+v", defaults)
	}

	if _, err := parseFlags([]string{"-scene", "a.yaml", "-restore", "b.snap"}); err == nil {
		t.Error("Expected -scene and -restore to conflict")
	}
}

func TestDefaultSceneSettles(t *testing.T) {
	w := defaultScene()

	for range 1200 {
		w.Step(1.0 / 60.0)
	}

	box := w.Bodies()[1]
	if box.LinearVelocity.Len() > 0.05 {
		t.Errorf("Box still moving at %v", box.LinearVelocity)
	}
	if y := box.Position().Y(); y < 1.5 || y > 2.5 {
		t.Errorf("Box at y = %g, want resting on the ground", y)
	}
}

func TestRun_SaveAndRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "box.snap")
	logPath := filepath.Join(dir, "run.log")

	if err := run(options{steps: 30, dt: 1.0 / 60.0, save: path, logFile: logPath}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("Snapshot not written: %v", err)
	}

	if err := run(options{steps: 30, dt: 1.0 / 60.0, restore: path, logFile: logPath}); err != nil {
		t.Fatalf("run from snapshot: %v", err)
	}
}

// =============================================================================
// Terminal View Tests
// =============================================================================

func newTestScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()

	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)
	return screen
}

func TestTermDraw_Cell(t *testing.T) {
	screen := newTestScreen(t)
	d := newTermDraw(screen)
	d.center = mgl64.Vec2{0, 0}
	d.scale = 1.0

	tests := []struct {
		name   string
		p      mgl64.Vec2
		wx, wy int
	}{
		{"center", mgl64.Vec2{0, 0}, 40, 12},
		{"right", mgl64.Vec2{5, 0}, 50, 12},
		{"up", mgl64.Vec2{0, 5}, 40, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := d.cell(tt.p)
			if x != tt.wx || y != tt.wy {
				t.Errorf("cell(%v) = (%d, %d), want (%d, %d)", tt.p, x, y, tt.wx, tt.wy)
			}
		})
	}
}

func TestTermDraw_DrawsWorld(t *testing.T) {
	screen := newTestScreen(t)
	d := newTermDraw(screen)
	d.center = mgl64.Vec2{0, 0}

	w := plume.NewWorld(mgl64.Vec2{})
	ball := w.CreateBody(actor.NewBodyDef(actor.BodyTypeDynamic, mgl64.Vec2{0, 0}))
	w.CreateFixture(ball, actor.NewFixtureDef(actor.NewCircle(2), 1))

	w.DrawDebugData(d, plume.DrawShapes)
	screen.Show()

	cells, width, _ := screen.GetContents()
	drawn := 0
	for _, c := range cells {
		if len(c.Runes) > 0 && c.Runes[0] == 'o' {
			drawn++
		}
	}
	if drawn == 0 {
		t.Fatal("Circle outline not drawn")
	}

	// the axis of the ball points right from the center
	x, y := d.cell(mgl64.Vec2{1, 0})
	if c := cells[y*width+x]; len(c.Runes) == 0 || c.Runes[0] != '+' {
		t.Errorf("Axis cell = %v, want '+'", c.Runes)
	}
}

func TestTermDraw_ClipsOffscreen(t *testing.T) {
	screen := newTestScreen(t)
	d := newTermDraw(screen)

	// must not panic
	d.DrawSegment(mgl64.Vec2{-1000, -1000}, mgl64.Vec2{1000, 1000}, plume.RGB(1, 1, 1))
	d.DrawPoint(mgl64.Vec2{1e6, 0}, 4, plume.RGB(1, 1, 1))
}

func TestTermDraw_Zoom(t *testing.T) {
	screen := newTestScreen(t)
	d := newTermDraw(screen)

	for range 50 {
		d.zoom(2)
	}
	if d.scale != 32 {
		t.Errorf("scale = %g, want clamped to 32", d.scale)
	}
}
