// Package scene describes authored road networks: the tiles, the traffic
// devices placed on them, where vehicles enter and where they leave.
// Scenes are plain data; internal/sim turns them into a running world.
package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/vovakirdan/tui-traffic/internal/routing"
)

// Spawn is an entry point. Vehicles are placed on the center of Tile, which
// must be a constant-direction tile.
type Spawn struct {
	Tile routing.Coord
}

// Exits holds, per outgoing cardinal, the grid line at which a vehicle has
// left the network: Up once Y <= bound, Down once Y >= bound, Left once
// X <= bound and Right once X >= bound. Cardinals without an entry never exit.
type Exits map[routing.Cardinal]int

// Passed reports whether a vehicle at tile pos heading out has left.
func (e Exits) Passed(pos routing.Coord, out routing.Cardinal) bool {
	bound, ok := e[out]
	if !ok {
		return false
	}
	switch out {
	case routing.Up:
		return pos.Y <= bound
	case routing.Down:
		return pos.Y >= bound
	case routing.Left:
		return pos.X <= bound
	default:
		return pos.X >= bound
	}
}

// Scene is a complete authored network.
type Scene struct {
	ID          string
	Name        string
	Description string
	Tiles       []routing.Tile
	StopSigns   []routing.StopSign
	Stoplights  []routing.Stoplight
	Spawns      []Spawn
	Exits       Exits
	FilePath    string
}

// TileMap builds the validated tile map for the scene.
func (s *Scene) TileMap() (*routing.TileMap, error) {
	tm, err := routing.NewTileMap(s.Tiles)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.ID, err)
	}
	return tm, nil
}

// Validate checks the network and every device and spawn against it.
func (s *Scene) Validate() error {
	tm, err := s.TileMap()
	if err != nil {
		return err
	}

	for _, sp := range s.Spawns {
		tile, ok := tm.Get(sp.Tile)
		if !ok {
			return fmt.Errorf("scene %s: %w", s.ID, &routing.ValidationError{
				Code:    "BAD_SPAWN",
				Message: fmt.Sprintf("spawn %s is not on the network", sp.Tile),
				Err:     routing.ErrOffNetwork,
			})
		}
		if tile.Dir.IsIntersection() {
			return fmt.Errorf("scene %s: %w", s.ID, &routing.ValidationError{
				Code:    "BAD_SPAWN",
				Message: fmt.Sprintf("spawn %s is on an intersection", sp.Tile),
				Err:     routing.ErrSpawnOnIntersection,
			})
		}
	}

	for _, sign := range s.StopSigns {
		if err := s.checkDevice(tm, "stop sign", sign.Pos()); err != nil {
			return err
		}
	}

	for _, l := range s.Stoplights {
		if err := s.checkDevice(tm, "stoplight", l.Pos()); err != nil {
			return err
		}
		if l.Frequency() <= 0 {
			return fmt.Errorf("scene %s: %w", s.ID, &routing.ValidationError{
				Code:    "BAD_STOPLIGHT",
				Message: fmt.Sprintf("stoplight at %v has frequency %v", l.Pos(), l.Frequency()),
			})
		}
	}

	return nil
}

// checkDevice requires a device center on a tile corner with at least one
// intersection tile in the 2x2 block around it. Edges of a tee junction may
// fall off the network, so the other three tiles are optional.
func (s *Scene) checkDevice(tm *routing.TileMap, kind string, pos mgl64.Vec2) error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("scene %s: %w", s.ID, &routing.ValidationError{
			Code:    "BAD_DEVICE",
			Message: fmt.Sprintf(kind+" at %v "+format, append([]any{pos}, args...)...),
			Err:     routing.ErrMisplacedDevice,
		})
	}

	if !onCorner(pos.X()) || !onCorner(pos.Y()) {
		return bad("is not on a tile corner")
	}

	footprint := routing.NewStopSign(pos).Footprint()
	for _, c := range footprint {
		if tile, ok := tm.Get(c); ok && tile.Dir.IsIntersection() {
			return nil
		}
	}
	return bad("covers no intersection tile in %v", footprint)
}

func onCorner(v float64) bool {
	f := v - 0.5
	return math.Abs(f-math.Round(f)) < 1e-9
}

// Tile is shorthand for routing.NewTile.
func Tile(x, y int, dir routing.TileDirection) routing.Tile {
	return routing.NewTile(routing.C(x, y), dir)
}

// Straight is a constant straight tile direction.
func Straight(c routing.Cardinal) routing.TileDirection {
	return routing.Constant(routing.Straight(c))
}

// Turn is a constant turning tile direction.
func Turn(in, out routing.Cardinal) routing.TileDirection {
	return routing.Constant(routing.Turn(in, out))
}

// Intersection is a randomized tile direction.
func Intersection(exits map[routing.Direction][]routing.Cardinal) routing.TileDirection {
	return routing.Intersection(exits)
}

// Row returns tiles from x0 to x1 inclusive on row y, all with dir.
func Row(y, x0, x1 int, dir routing.TileDirection) []routing.Tile {
	var tiles []routing.Tile
	step := 1
	if x1 < x0 {
		step = -1
	}
	for x := x0; ; x += step {
		tiles = append(tiles, Tile(x, y, dir))
		if x == x1 {
			break
		}
	}
	return tiles
}

// Column returns tiles from y0 to y1 inclusive on column x, all with dir.
func Column(x, y0, y1 int, dir routing.TileDirection) []routing.Tile {
	var tiles []routing.Tile
	step := 1
	if y1 < y0 {
		step = -1
	}
	for y := y0; ; y += step {
		tiles = append(tiles, Tile(x, y, dir))
		if y == y1 {
			break
		}
	}
	return tiles
}

// At converts a position in tile units, such as a device center on a tile
// corner, to a vector.
func At(x, y float64) mgl64.Vec2 {
	return mgl64.Vec2{x, y}
}
