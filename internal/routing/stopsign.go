package routing

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// StopSign is a four-way stop covering the 2x2 tile block around its
// position. Right-of-way rotates clockwise between approaches, skipping
// approaches with nobody waiting.
type StopSign struct {
	pos         mgl64.Vec2
	priority    Cardinal
	movedInside bool
}

// NewStopSign creates a stop sign centered on a tile corner, in tile units
// (for example (6.5, 1.5)). Priority starts with traffic heading Up.
func NewStopSign(pos mgl64.Vec2) StopSign {
	return StopSign{pos: pos, priority: Up}
}

// Pos returns the sign center in tile units.
func (s StopSign) Pos() mgl64.Vec2 { return s.pos }

// Priority returns the heading that currently has right-of-way.
func (s StopSign) Priority() Cardinal { return s.priority }

// MovedInside reports whether a vehicle has entered during this priority round.
func (s StopSign) MovedInside() bool { return s.movedInside }

// Bounds returns the four entry lines around the sign.
func (s StopSign) Bounds() DirBounds {
	return NewDirBounds(s.pos)
}

// Footprint returns the four tiles controlled by the sign.
func (s StopSign) Footprint() [4]Coord {
	base := gridAt(s.pos.Sub(mgl64.Vec2{0.5, 0.5}))
	return [4]Coord{
		base,
		base.Add(C(1, 0)),
		base.Add(C(0, 1)),
		base.Add(C(1, 1)),
	}
}

// Inside reports whether a tile position lies in the footprint.
func (s StopSign) Inside(pos Coord) bool {
	for _, c := range s.Footprint() {
		if c == pos {
			return true
		}
	}
	return false
}

// Colliding reports whether a vehicle at tilePos with the given look-ahead
// envelope must yield. A vehicle already inside the footprint is committed
// and never blocked. Once somebody entered this round every entry blocks;
// otherwise only the entry used by the priority heading is open.
func (s StopSign) Colliding(tilePos Coord, envelope Shape) bool {
	if s.Inside(tilePos) {
		return false
	}

	bounds := s.Bounds()
	if s.movedInside {
		return bounds.Colliding(envelope)
	}

	open := entryEdge(s.priority)
	for _, c := range Cardinals {
		if c == open {
			continue
		}
		if Collides(envelope, bounds.Edge(c).Shape()) {
			return true
		}
	}
	return false
}

// Update advances the sign by one tick. vehicles is the full vehicle list
// after this tick's vehicle pass.
func (s *StopSign) Update(vehicles []Vehicle) {
	anyInside := s.anyInside(vehicles)
	if anyInside {
		s.movedInside = true
	}

	next := s.priority.Rotate()

	shouldRotate := !anyInside &&
		(s.movedInside || !s.Waiting(vehicles, s.priority)) &&
		s.Waiting(vehicles, next)

	if shouldRotate {
		s.priority = next
		s.movedInside = false
	}
}

func (s StopSign) anyInside(vehicles []Vehicle) bool {
	for i := range vehicles {
		if s.Inside(vehicles[i].TilePos()) {
			return true
		}
	}
	return false
}

// Waiting reports whether any vehicle occupies one of the two approach tiles
// used by traffic heading dir.
func (s StopSign) Waiting(vehicles []Vehicle, dir Cardinal) bool {
	for _, pos := range s.Approach(dir) {
		for i := range vehicles {
			if vehicles[i].TilePos() == pos {
				return true
			}
		}
	}
	return false
}

// Approach returns the two tiles, nearest first, where traffic heading dir
// queues before entering.
func (s StopSign) Approach(dir Cardinal) [2]Coord {
	var offsets [2]mgl64.Vec2
	switch dir {
	case Up:
		offsets = [2]mgl64.Vec2{{0.5, 1.5}, {0.5, 2.5}}
	case Down:
		offsets = [2]mgl64.Vec2{{-0.5, -1.5}, {-0.5, -2.5}}
	case Left:
		offsets = [2]mgl64.Vec2{{1.5, -0.5}, {2.5, -0.5}}
	default:
		offsets = [2]mgl64.Vec2{{-1.5, 0.5}, {-2.5, 0.5}}
	}
	return [2]Coord{
		gridAt(s.pos.Add(offsets[0])),
		gridAt(s.pos.Add(offsets[1])),
	}
}

// gridAt converts an integral tile-unit vector to a Coord.
func gridAt(v mgl64.Vec2) Coord {
	return C(int(math.Floor(v.X()+overlapEps)), int(math.Floor(v.Y()+overlapEps)))
}
