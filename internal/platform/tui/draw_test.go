package tui

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/vovakirdan/tui-traffic/internal/config"
	"github.com/vovakirdan/tui-traffic/internal/core"
	"github.com/vovakirdan/tui-traffic/internal/routing"
	"github.com/vovakirdan/tui-traffic/internal/sim"
)

func testPalette(t *testing.T) config.Palette {
	t.Helper()
	p, err := config.DefaultSimConfig().View.Colors.Palette()
	if err != nil {
		t.Fatalf("default palette: %v", err)
	}
	return p
}

func TestNewLayoutScale(t *testing.T) {
	l := NewLayout(routing.C(0, 0), routing.C(9, 4), core.NewRect(0, 0, 80, 23))
	if l.CellW != 8 || l.CellH != 4 {
		t.Fatalf("cell size = %dx%d, want 8x4", l.CellW, l.CellH)
	}
	if got := l.TileRect(routing.C(0, 0)); got != core.NewRect(0, 1, 8, 4) {
		t.Errorf("TileRect(0,0) = %+v", got)
	}
	if got := l.TileRect(routing.C(9, 4)); got != core.NewRect(72, 17, 8, 4) {
		t.Errorf("TileRect(9,4) = %+v", got)
	}
}

func TestNewLayoutClipsWideMaps(t *testing.T) {
	l := NewLayout(routing.C(0, 0), routing.C(99, 0), core.NewRect(0, 0, 80, 24))
	if l.CellW != 2 || l.CellH != 1 {
		t.Fatalf("cell size = %dx%d, want 2x1", l.CellW, l.CellH)
	}
	if got := l.TileRect(routing.C(0, 0)); got.X != 0 {
		t.Errorf("wide map should start at the left edge, got x=%d", got.X)
	}
}

func TestLayoutCells(t *testing.T) {
	l := NewLayout(routing.C(0, 0), routing.C(9, 4), core.NewRect(0, 0, 80, 23))

	tests := []struct {
		name         string
		pos          mgl64.Vec2
		wantX, wantY int
	}{
		{"tile center", mgl64.Vec2{0, 0}, 4, 3},
		{"next tile center", mgl64.Vec2{15, 0}, 12, 3},
		{"tile corner", mgl64.Vec2{7.5, 7.5}, 8, 5},
		{"last tile", mgl64.Vec2{135, 60}, 76, 19},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := l.WorldCell(tc.pos)
			if x != tc.wantX || y != tc.wantY {
				t.Errorf("WorldCell(%v) = (%d, %d), want (%d, %d)", tc.pos, x, y, tc.wantX, tc.wantY)
			}
		})
	}

	if x, y := l.TileUnitCell(0.5, 0.5); x != 8 || y != 5 {
		t.Errorf("TileUnitCell(0.5, 0.5) = (%d, %d), want (8, 5)", x, y)
	}
}

func TestHeadingGlyph(t *testing.T) {
	tests := []struct {
		deg  float64
		want rune
	}{
		{0, '▲'},
		{45, '◥'},
		{90, '▶'},
		{180, '▼'},
		{270, '◀'},
		{360, '▲'},
		{-90, '◀'},
		{100, '▶'},
	}
	for _, tc := range tests {
		if got := HeadingGlyph(tc.deg); got != tc.want {
			t.Errorf("HeadingGlyph(%v) = %q, want %q", tc.deg, got, tc.want)
		}
	}
}

func TestDrawTiles(t *testing.T) {
	p := testPalette(t)
	s := core.NewScreen(80, 23)
	l := NewLayout(routing.C(0, 0), routing.C(9, 4), core.NewRect(0, 0, 80, 23))

	DrawTiles(s, l, []sim.TileView{
		{X: 1, Y: 0, Kind: sim.TileStraight, Out: "Right"},
		{X: 2, Y: 0, Kind: sim.TileIntersection},
	}, p)

	if got := s.GetCell(12, 3); got.Rune != '→' || got.Color != p.Road {
		t.Errorf("straight tile center = %+v", got)
	}
	if got := s.GetCell(8, 1); got.Rune != '░' {
		t.Errorf("straight tile fill = %q", got.Rune)
	}
	if got := s.GetCell(16, 1); got.Rune != '▒' || got.Color != p.Intersection {
		t.Errorf("intersection fill = %+v", got)
	}
	if got := s.GetCell(0, 1); got.Rune != ' ' {
		t.Errorf("empty tile drawn: %q", got.Rune)
	}
}

func TestDrawFrame(t *testing.T) {
	p := testPalette(t)
	s := core.NewScreen(80, 23)
	l := NewLayout(routing.C(0, 0), routing.C(9, 4), core.NewRect(0, 0, 80, 23))

	DrawFrame(s, l, sim.Snapshot{
		Vehicles: []sim.VehicleView{
			{ID: 1, X: 0, Y: 0, Heading: 90, Speed: 0},
			{ID: 2, X: 15, Y: 0, Heading: 180, Speed: 5},
		},
		Stoplights: []sim.StoplightView{
			{X: 0.5, Y: 0.5, Axis: "Vertical", Phase: "Stop"},
		},
	}, p)

	if got := s.GetCell(4, 3); got.Rune != '▶' || got.Color != p.Stopped {
		t.Errorf("stopped vehicle = %+v", got)
	}
	if got := s.GetCell(12, 3); got.Rune != '▼' || got.Color != p.Vehicle {
		t.Errorf("moving vehicle = %+v", got)
	}
	if got := s.GetCell(8, 5); got.Rune != '║' || got.Color != p.Stop {
		t.Errorf("stoplight = %+v", got)
	}
}

func TestDrawFrameStopSign(t *testing.T) {
	p := testPalette(t)
	s := core.NewScreen(80, 23)
	l := NewLayout(routing.C(0, 0), routing.C(9, 4), core.NewRect(0, 0, 80, 23))

	DrawFrame(s, l, sim.Snapshot{
		StopSigns: []sim.StopSignView{{X: 0.5, Y: 0.5, Priority: "Left"}},
	}, p)

	if got := s.GetCell(8, 5); got.Rune != '■' || got.Color != p.StopSign {
		t.Errorf("stop sign = %+v", got)
	}
	if got := s.GetCell(9, 5).Rune; got != '←' {
		t.Errorf("priority arrow = %q", got)
	}
}

func TestStatusLine(t *testing.T) {
	snap := sim.Snapshot{Scene: "crossroads", Tick: 120, Vehicles: make([]sim.VehicleView, 3)}
	st := sim.Stats{Ticks: 3600, Exited: 10}

	running := StatusLine(snap, st, 4, false)
	for _, want := range []string{"crossroads", "tick 120", "2.0s", "vehicles 3", "exited 10", "10.0/min", "x4"} {
		if !strings.Contains(running, want) {
			t.Errorf("status %q missing %q", running, want)
		}
	}
	if paused := StatusLine(snap, st, 4, true); !strings.Contains(paused, "paused") {
		t.Errorf("paused status %q", paused)
	}
}

func TestPainterRender(t *testing.T) {
	s := core.NewScreen(10, 2)
	s.DrawText(0, 0, "hello")
	s.DrawTextColored(0, 1, "world", core.ColorRed)

	out := NewPainter(nil).Render(s)
	if !strings.Contains(out, "hello") || !strings.Contains(out, "world") {
		t.Errorf("rendered output missing text: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected 2 lines, got %q", out)
	}
}
