// Package routing is the traffic simulation engine: the direction model,
// the collision shapes, the tile network, the two traffic-control devices
// and per-vehicle kinematics. It is deterministic for a given random source
// and has no dependency on any presentation layer.
package routing

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Cardinal is one of the four grid headings.
// Up decreases Y, Down increases Y (screen coordinates).
type Cardinal uint8

const (
	Up Cardinal = iota
	Down
	Left
	Right
)

// Cardinals lists every heading in declaration order.
var Cardinals = [4]Cardinal{Up, Down, Left, Right}

// String returns the string representation of a cardinal.
func (c Cardinal) String() string {
	switch c {
	case Up:
		return "Up"
	case Down:
		return "Down"
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return "Unknown"
	}
}

// Vector returns the unit vector for this heading.
func (c Cardinal) Vector() mgl64.Vec2 {
	switch c {
	case Up:
		return mgl64.Vec2{0, -1}
	case Down:
		return mgl64.Vec2{0, 1}
	case Left:
		return mgl64.Vec2{-1, 0}
	case Right:
		return mgl64.Vec2{1, 0}
	default:
		return mgl64.Vec2{}
	}
}

// Delta returns the grid offset of one step in this heading.
func (c Cardinal) Delta() Coord {
	switch c {
	case Up:
		return C(0, -1)
	case Down:
		return C(0, 1)
	case Left:
		return C(-1, 0)
	case Right:
		return C(1, 0)
	default:
		return C(0, 0)
	}
}

// Degrees returns the sprite heading in degrees, clockwise from Up.
// Up reports 360 instead of 0 when paired with Left, so a Left/Up turn
// averages to 315.
func (c Cardinal) Degrees(other *Cardinal) float64 {
	switch c {
	case Up:
		if other != nil && *other == Left {
			return 360
		}
		return 0
	case Down:
		return 180
	case Left:
		return 270
	case Right:
		return 90
	default:
		return 0
	}
}

// Rotate returns the next cardinal clockwise: Up, Right, Down, Left, Up.
func (c Cardinal) Rotate() Cardinal {
	switch c {
	case Up:
		return Right
	case Right:
		return Down
	case Down:
		return Left
	default:
		return Up
	}
}

// Opposite returns the reverse heading.
func (c Cardinal) Opposite() Cardinal {
	switch c {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// Axis returns the axis this heading travels along.
func (c Cardinal) Axis() Axis {
	if c == Up || c == Down {
		return Vertical
	}
	return Horizontal
}

// OnAxis reports whether this heading travels along axis.
func (c Cardinal) OnAxis(axis Axis) bool {
	return c.Axis() == axis
}

// ParseCardinal converts "Up"/"up" style names into a Cardinal.
func ParseCardinal(s string) (Cardinal, bool) {
	switch s {
	case "Up", "up":
		return Up, true
	case "Down", "down":
		return Down, true
	case "Left", "left":
		return Left, true
	case "Right", "right":
		return Right, true
	}
	return Up, false
}

// Axis is a pair of opposite cardinals.
type Axis uint8

const (
	Horizontal Axis = iota
	Vertical
)

// String returns the string representation of an axis.
func (a Axis) String() string {
	if a == Vertical {
		return "Vertical"
	}
	return "Horizontal"
}

// Flip swaps the axis.
func (a Axis) Flip() Axis {
	if a == Vertical {
		return Horizontal
	}
	return Vertical
}

// Degrees is the canonical device sprite orientation for the axis.
func (a Axis) Degrees() float64 {
	if a == Vertical {
		return 90
	}
	return 0
}

// Direction is the heading of a vehicle on a tile: either straight along one
// cardinal or turning from an inbound cardinal to an outbound one.
// The zero value is Straight(Up). Direction is comparable and may key a map.
type Direction struct {
	in   Cardinal
	out  Cardinal
	turn bool
}

// Straight returns a non-turning direction.
func Straight(c Cardinal) Direction {
	return Direction{in: c, out: c}
}

// Turn returns a direction entering along in and leaving along out.
func Turn(in, out Cardinal) Direction {
	return Direction{in: in, out: out, turn: true}
}

// In returns the inbound cardinal.
func (d Direction) In() Cardinal { return d.in }

// Out returns the outbound cardinal.
func (d Direction) Out() Cardinal { return d.out }

// IsTurn reports whether d was built with Turn.
func (d Direction) IsTurn() bool { return d.turn }

// Vector returns the combined heading vector: the cardinal's own for a
// straight direction, the normalized sum of both for a turn.
func (d Direction) Vector() mgl64.Vec2 {
	if !d.turn {
		return d.in.Vector()
	}
	return d.in.Vector().Add(d.out.Vector()).Mul(1 / math.Sqrt2)
}

// Degrees returns the sprite heading for the direction.
func (d Direction) Degrees() float64 {
	if !d.turn {
		return d.in.Degrees(nil)
	}
	in, out := d.in, d.out
	return (in.Degrees(&out) + out.Degrees(&in)) / 2
}

// String returns a readable form such as "Straight(Up)" or "Turn(Down,Left)".
func (d Direction) String() string {
	if d.turn {
		return fmt.Sprintf("Turn(%s,%s)", d.in, d.out)
	}
	return fmt.Sprintf("Straight(%s)", d.in)
}

// Weights used when choosing an outgoing cardinal at an intersection.
const (
	straightWeight = 3
	turnWeight     = 1
)

// TileDirection classifies the lane behavior of a tile. A constant tile
// always yields its fixed Direction; an intersection tile maps each legal
// arrival Direction to the set of permitted outgoing cardinals.
type TileDirection struct {
	constant Direction
	exits    map[Direction][]Cardinal
}

// Constant returns a fixed lane behavior.
func Constant(d Direction) TileDirection {
	return TileDirection{constant: d}
}

// Intersection returns a probabilistic lane behavior. The map is copied.
func Intersection(exits map[Direction][]Cardinal) TileDirection {
	cp := make(map[Direction][]Cardinal, len(exits))
	for arrival, outs := range exits {
		cp[arrival] = append([]Cardinal(nil), outs...)
	}
	return TileDirection{exits: cp}
}

// IsIntersection reports whether the tile chooses directions per vehicle.
func (t TileDirection) IsIntersection() bool {
	return t.exits != nil
}

// Fixed returns the constant direction, or false for an intersection.
func (t TileDirection) Fixed() (Direction, bool) {
	if t.exits != nil {
		return Direction{}, false
	}
	return t.constant, true
}

// Exits returns the permitted outgoing cardinals for an arrival direction.
func (t TileDirection) Exits(arrival Direction) ([]Cardinal, bool) {
	outs, ok := t.exits[arrival]
	return outs, ok
}

// Arrivals returns every arrival direction an intersection accepts, sorted
// by String.
func (t TileDirection) Arrivals() []Direction {
	out := make([]Direction, 0, len(t.exits))
	for arrival := range t.exits {
		out = append(out, arrival)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// Degrees is the sprite rotation for the tile. Intersections are not rotated.
func (t TileDirection) Degrees() float64 {
	if t.exits != nil {
		return 0
	}
	return t.constant.Degrees()
}

// AsDir returns the direction a vehicle arriving with arrival takes on this
// tile. For an intersection the arrival's own outgoing cardinal (continuing
// straight) is weighted 3 and every other permitted cardinal 1; one outcome
// is drawn from rng. An arrival missing from the mapping returns
// ErrMalformedIntersection.
func (t TileDirection) AsDir(arrival Direction, rng *rand.Rand) (Direction, error) {
	if t.exits == nil {
		return t.constant, nil
	}

	possible, ok := t.exits[arrival]
	if !ok || len(possible) == 0 {
		return Direction{}, fmt.Errorf("%w: no exits for arrival %s", ErrMalformedIntersection, arrival)
	}

	straight := arrival.Out()

	total := 0
	for _, c := range possible {
		total += weightFor(c, straight)
	}

	pick := rng.Intn(total)
	chosen := possible[len(possible)-1]
	for _, c := range possible {
		w := weightFor(c, straight)
		if pick < w {
			chosen = c
			break
		}
		pick -= w
	}

	if chosen == straight {
		return Straight(chosen), nil
	}
	return Turn(straight, chosen), nil
}

func weightFor(c, straight Cardinal) int {
	if c == straight {
		return straightWeight
	}
	return turnWeight
}
