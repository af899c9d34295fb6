package main

import (
	"math"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/actor"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// terminal cells are about twice as tall as wide
const cellAspect = 2.0

// termDraw renders the debug primitives on a tcell screen. The camera looks
// at center with scale cells per meter vertically.
type termDraw struct {
	screen tcell.Screen
	center mgl64.Vec2
	scale  float64
}

func newTermDraw(screen tcell.Screen) *termDraw {
	return &termDraw{screen: screen, center: mgl64.Vec2{0, 5}, scale: 2.0}
}

func style(c plume.Color) tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(
		int32(c.R*255),
		int32(c.G*255),
		int32(c.B*255),
	))
}

// cell maps a world point to a screen cell.
func (d *termDraw) cell(p mgl64.Vec2) (int, int) {
	w, h := d.screen.Size()
	x := float64(w)/2 + (p.X()-d.center.X())*d.scale*cellAspect
	y := float64(h)/2 - (p.Y()-d.center.Y())*d.scale
	return int(math.Round(x)), int(math.Round(y))
}

func (d *termDraw) set(x, y int, r rune, st tcell.Style) {
	w, h := d.screen.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	d.screen.SetContent(x, y, r, nil, st)
}

// line draws with Bresenham's algorithm.
func (d *termDraw) line(x0, y0, x1, y1 int, r rune, st tcell.Style) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	for {
		d.set(x0, y0, r, st)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (d *termDraw) segment(p1, p2 mgl64.Vec2, r rune, st tcell.Style) {
	x0, y0 := d.cell(p1)
	x1, y1 := d.cell(p2)
	d.line(x0, y0, x1, y1, r, st)
}

func (d *termDraw) DrawPolygon(vertices []mgl64.Vec2, color plume.Color) {
	st := style(color)
	for i := range vertices {
		d.segment(vertices[i], vertices[(i+1)%len(vertices)], '·', st)
	}
}

func (d *termDraw) DrawSolidPolygon(vertices []mgl64.Vec2, color plume.Color) {
	st := style(color)
	for i := range vertices {
		d.segment(vertices[i], vertices[(i+1)%len(vertices)], '#', st)
	}
}

func (d *termDraw) circle(center mgl64.Vec2, radius float64, r rune, st tcell.Style) {
	const segments = 16
	prev := center.Add(mgl64.Vec2{radius, 0})
	for i := 1; i <= segments; i++ {
		a := 2.0 * math.Pi * float64(i) / segments
		p := center.Add(mgl64.Vec2{radius * math.Cos(a), radius * math.Sin(a)})
		d.segment(prev, p, r, st)
		prev = p
	}
}

func (d *termDraw) DrawCircle(center mgl64.Vec2, radius float64, color plume.Color) {
	d.circle(center, radius, '·', style(color))
}

func (d *termDraw) DrawSolidCircle(center mgl64.Vec2, radius float64, axis mgl64.Vec2, color plume.Color) {
	st := style(color)
	d.circle(center, radius, 'o', st)
	d.segment(center, center.Add(axis.Mul(radius)), '+', st)
}

func (d *termDraw) DrawSegment(p1, p2 mgl64.Vec2, color plume.Color) {
	d.segment(p1, p2, '-', style(color))
}

func (d *termDraw) DrawTransform(xf actor.Transform) {
	const axisScale = 0.4
	p := xf.Position
	d.segment(p, p.Add(xf.Rotation.XAxis().Mul(axisScale)), '.', style(plume.RGB(1, 0, 0)))
	d.segment(p, p.Add(xf.Rotation.YAxis().Mul(axisScale)), '.', style(plume.RGB(0, 1, 0)))
}

func (d *termDraw) DrawPoint(p mgl64.Vec2, size float64, color plume.Color) {
	x, y := d.cell(p)
	d.set(x, y, '*', style(color))
}

// pan moves the camera by a number of cells.
func (d *termDraw) pan(dx, dy int) {
	d.center = d.center.Add(mgl64.Vec2{
		float64(dx) / (d.scale * cellAspect),
		float64(dy) / d.scale,
	})
}

func (d *termDraw) zoom(factor float64) {
	d.scale = actor.Clamp(d.scale*factor, 0.25, 32.0)
}
