package tui

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/vovakirdan/tui-traffic/internal/config"
	"github.com/vovakirdan/tui-traffic/internal/core"
	"github.com/vovakirdan/tui-traffic/internal/routing"
	"github.com/vovakirdan/tui-traffic/internal/sim"
)

// Layout maps the tile grid onto a block of screen cells. Terminal cells
// are about twice as tall as they are wide, so a tile is twice as many
// cells wide as it is tall.
type Layout struct {
	Area  core.Rect     // screen region holding the map
	Min   routing.Coord // top-left tile
	Cols  int           // tiles across
	Rows  int           // tiles down
	CellW int           // cells per tile, horizontally
	CellH int           // cells per tile, vertically
	offX  int
	offY  int
}

// NewLayout picks the largest scale at which the tile bounds fit the area
// and centers the map. Maps that do not fit at scale 1 are clipped.
func NewLayout(minTile, maxTile routing.Coord, area core.Rect) Layout {
	l := Layout{
		Area: area,
		Min:  minTile,
		Cols: maxTile.X - minTile.X + 1,
		Rows: maxTile.Y - minTile.Y + 1,
	}

	scale := 1
	for k := 2; l.Cols*2*k <= area.W && l.Rows*k <= area.H; k++ {
		scale = k
	}
	l.CellW, l.CellH = 2*scale, scale
	l.offX = max((area.W-l.Cols*l.CellW)/2, 0)
	l.offY = max((area.H-l.Rows*l.CellH)/2, 0)
	return l
}

// TileRect returns the cells covered by a tile.
func (l Layout) TileRect(c routing.Coord) core.Rect {
	return core.NewRect(
		l.Area.X+l.offX+(c.X-l.Min.X)*l.CellW,
		l.Area.Y+l.offY+(c.Y-l.Min.Y)*l.CellH,
		l.CellW, l.CellH,
	)
}

// WorldCell returns the cell containing a world position.
func (l Layout) WorldCell(p mgl64.Vec2) (int, int) {
	tx := p.X()/routing.TileSize - float64(l.Min.X) + 0.5
	ty := p.Y()/routing.TileSize - float64(l.Min.Y) + 0.5
	return l.Area.X + l.offX + int(math.Floor(tx*float64(l.CellW))),
		l.Area.Y + l.offY + int(math.Floor(ty*float64(l.CellH)))
}

// TileUnitCell returns the cell containing a position given in tile units,
// such as a device center.
func (l Layout) TileUnitCell(x, y float64) (int, int) {
	return l.WorldCell(mgl64.Vec2{x, y}.Mul(routing.TileSize))
}

var arrows = map[string]rune{
	"Up":    '↑',
	"Down":  '↓',
	"Left":  '←',
	"Right": '→',
}

// headingGlyphs is indexed by heading in eighths of a turn, clockwise from
// Up.
var headingGlyphs = [8]rune{'▲', '◥', '▶', '◢', '▼', '◣', '◀', '◤'}

// HeadingGlyph returns the vehicle glyph closest to a heading in degrees.
func HeadingGlyph(deg float64) rune {
	i := int(math.Round(deg/45)) % 8
	if i < 0 {
		i += 8
	}
	return headingGlyphs[i]
}

// DrawTiles paints the road network. Tiles never change, so callers pass
// them once and reuse them every frame.
func DrawTiles(s *core.Screen, l Layout, tiles []sim.TileView, p config.Palette) {
	road := core.Cell{Rune: '░', Color: p.Road}
	junction := core.Cell{Rune: '▒', Color: p.Intersection}

	for _, t := range tiles {
		r := l.TileRect(routing.C(t.X, t.Y))
		if t.Kind == sim.TileIntersection {
			s.DrawRect(r, junction)
			continue
		}
		s.DrawRect(r, road)
		cx, cy := r.Center()
		glyph := arrows[t.Out]
		if t.Kind == sim.TileTurn {
			glyph = '↻'
		}
		s.SetColored(cx, cy, glyph, p.Road)
	}
}

// DrawFrame paints devices and vehicles over the tiles.
func DrawFrame(s *core.Screen, l Layout, f sim.Snapshot, p config.Palette) {
	for _, ss := range f.StopSigns {
		x, y := l.TileUnitCell(ss.X, ss.Y)
		s.SetColored(x, y, '■', p.StopSign)
		s.SetColored(x+1, y, arrows[ss.Priority], p.StopSign)
	}

	for _, sl := range f.Stoplights {
		x, y := l.TileUnitCell(sl.X, sl.Y)
		glyph := '═'
		if sl.Axis == routing.Vertical.String() {
			glyph = '║'
		}
		color := p.Go
		switch sl.Phase {
		case routing.PhaseAmber.String():
			color = p.Amber
		case routing.PhaseStop.String():
			color = p.Stop
		}
		s.SetColored(x, y, glyph, color)
	}

	for _, v := range f.Vehicles {
		x, y := l.WorldCell(mgl64.Vec2{v.X, v.Y})
		color := p.Vehicle
		if v.Speed == 0 {
			color = p.Stopped
		}
		s.SetColored(x, y, HeadingGlyph(v.Heading), color)
	}
}

// StatusLine summarises the world for the bottom of the viewer.
func StatusLine(f sim.Snapshot, st sim.Stats, speed int, paused bool) string {
	state := fmt.Sprintf("x%d", speed)
	if paused {
		state = "paused"
	}
	return fmt.Sprintf(" %s  tick %d (%.1fs)  vehicles %d  exited %d  %.1f/min  %s",
		f.Scene, f.Tick, float64(f.Tick)/routing.TickRate, len(f.Vehicles),
		st.Exited, st.Throughput(), state)
}
