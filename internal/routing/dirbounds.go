package routing

import "github.com/go-gl/mathgl/mgl64"

// DirBounds holds the four tile-edge crossing lines around a device whose
// center sits on a tile corner. Each segment gates the entry lane of the
// edge it is named for: Up is the top edge, crossed by traffic heading Down.
type DirBounds struct {
	Up    Segment
	Down  Segment
	Left  Segment
	Right Segment
}

// NewDirBounds builds the gating segments for a device centered at pos,
// given in tile units.
func NewDirBounds(pos mgl64.Vec2) DirBounds {
	x, y := pos.X(), pos.Y()
	seg := func(ax, ay, bx, by float64) Segment {
		return Segment{
			A: mgl64.Vec2{ax, ay}.Mul(TileSize),
			B: mgl64.Vec2{bx, by}.Mul(TileSize),
		}
	}

	return DirBounds{
		Up:    seg(x-1, y-1, x, y-1),
		Down:  seg(x+1, y+1, x, y+1),
		Left:  seg(x-1, y+1, x-1, y),
		Right: seg(x+1, y-1, x+1, y),
	}
}

// All returns the four segments in Up, Down, Left, Right order.
func (b DirBounds) All() [4]Segment {
	return [4]Segment{b.Up, b.Down, b.Left, b.Right}
}

// Edge returns the segment for a named edge.
func (b DirBounds) Edge(c Cardinal) Segment {
	switch c {
	case Up:
		return b.Up
	case Down:
		return b.Down
	case Left:
		return b.Left
	default:
		return b.Right
	}
}

// Colliding reports whether s touches any of the four segments.
func (b DirBounds) Colliding(s Shape) bool {
	for _, seg := range b.All() {
		if Collides(s, seg.Shape()) {
			return true
		}
	}
	return false
}

// OppAxis returns the two segments orthogonal to axis, which gate the
// traffic travelling on the other axis.
func (b DirBounds) OppAxis(axis Axis) (Segment, Segment) {
	if axis == Horizontal {
		return b.Up, b.Down
	}
	return b.Left, b.Right
}

// entryEdge is the edge a vehicle heading c crosses to enter the device.
func entryEdge(c Cardinal) Cardinal {
	return c.Opposite()
}
