package sim

import (
	"math"

	"github.com/vovakirdan/tui-traffic/internal/routing"
)

// TileKind classifies a tile for drawing.
type TileKind string

const (
	TileStraight     TileKind = "straight"
	TileTurn         TileKind = "turn"
	TileIntersection TileKind = "intersection"
)

// VehicleView is the drawable state of a vehicle.
type VehicleView struct {
	ID      uint64  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	Speed   float64 `json:"speed"`
	Length  float64 `json:"length"`
	TileX   int     `json:"tile_x"`
	TileY   int     `json:"tile_y"`
	Dir     string  `json:"dir"`
}

// TileView is the drawable state of a tile. Degrees is the sprite rotation:
// the heading for straight tiles, the turn heading shifted so that a single
// corner sprite covers every turn, and 0 for intersections.
type TileView struct {
	X       int      `json:"x"`
	Y       int      `json:"y"`
	Kind    TileKind `json:"kind"`
	Degrees float64  `json:"degrees"`
	Out     string   `json:"out,omitempty"`
}

// StopSignView is the drawable state of a stop sign.
type StopSignView struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Priority    string  `json:"priority"`
	MovedInside bool    `json:"moved_inside"`
}

// StoplightView is the drawable state of a stoplight.
type StoplightView struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Axis  string  `json:"axis"`
	Phase string  `json:"phase"`
	Grace uint32  `json:"grace"`
}

// Snapshot is a read-only copy of everything a presenter needs. Tiles are
// included so a snapshot can be drawn on its own.
type Snapshot struct {
	Scene      string          `json:"scene"`
	Tick       uint64          `json:"tick"`
	Vehicles   []VehicleView   `json:"vehicles"`
	Tiles      []TileView      `json:"tiles,omitempty"`
	StopSigns  []StopSignView  `json:"stop_signs,omitempty"`
	Stoplights []StoplightView `json:"stoplights,omitempty"`
}

// Snapshot captures the current state, including tiles.
func (w *World) Snapshot() Snapshot {
	s := w.Frame()
	s.Tiles = TileViews(w.tiles)
	return s
}

// Frame captures the current state without tiles, which never change.
func (w *World) Frame() Snapshot {
	s := Snapshot{
		Scene:    w.scene.ID,
		Tick:     w.tick,
		Vehicles: make([]VehicleView, 0, len(w.vehicles)),
	}

	for _, v := range w.vehicles {
		s.Vehicles = append(s.Vehicles, VehicleView{
			ID:      v.ID(),
			X:       v.Pos().X(),
			Y:       v.Pos().Y(),
			Heading: v.Heading(),
			Speed:   v.Speed(),
			Length:  v.Length(),
			TileX:   v.TilePos().X,
			TileY:   v.TilePos().Y,
			Dir:     v.Dir().String(),
		})
	}

	for _, ss := range w.stopSigns {
		s.StopSigns = append(s.StopSigns, StopSignView{
			X:           ss.Pos().X(),
			Y:           ss.Pos().Y(),
			Priority:    ss.Priority().String(),
			MovedInside: ss.MovedInside(),
		})
	}

	for _, l := range w.stoplights {
		grace, _ := l.Grace()
		s.Stoplights = append(s.Stoplights, StoplightView{
			X:     l.Pos().X(),
			Y:     l.Pos().Y(),
			Axis:  l.Axis().String(),
			Phase: l.Phase().String(),
			Grace: grace,
		})
	}

	return s
}

// TileViews classifies every tile in authored order.
func TileViews(tm *routing.TileMap) []TileView {
	views := make([]TileView, 0, tm.Len())
	for _, t := range tm.Tiles() {
		views = append(views, ClassifyTile(t))
	}
	return views
}

// ClassifyTile returns the drawable view of a single tile.
func ClassifyTile(t routing.Tile) TileView {
	tv := TileView{X: t.Pos.X, Y: t.Pos.Y}

	d, fixed := t.Dir.Fixed()
	switch {
	case !fixed:
		tv.Kind = TileIntersection
	case d.IsTurn():
		tv.Kind = TileTurn
		tv.Degrees = normDegrees(d.Degrees() + turnOffset(d))
		tv.Out = d.Out().String()
	default:
		tv.Kind = TileStraight
		tv.Degrees = d.Degrees()
		tv.Out = d.Out().String()
	}
	return tv
}

// turnOffset aligns the corner sprite with the turn. Right turns use the
// sprite rotated half a turn.
func turnOffset(d routing.Direction) float64 {
	switch d {
	case routing.Turn(routing.Left, routing.Up),
		routing.Turn(routing.Right, routing.Down),
		routing.Turn(routing.Up, routing.Right),
		routing.Turn(routing.Down, routing.Left):
		return -45 + 180
	default:
		return -45
	}
}

func normDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
