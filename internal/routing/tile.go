package routing

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// TileSize is the edge length of one tile in world units.
const TileSize = 15.0

// Tile is one authored cell of the road network.
type Tile struct {
	Pos Coord
	Dir TileDirection
}

// NewTile creates a tile.
func NewTile(pos Coord, dir TileDirection) Tile {
	return Tile{Pos: pos, Dir: dir}
}

// TileMap is the immutable authored network with position lookup.
type TileMap struct {
	tiles []Tile
	index map[Coord]int
	min   Coord
	max   Coord
}

// NewTileMap builds a map from tiles in authored order. It rejects duplicate
// positions and validates every intersection against each arrival direction
// its neighbours can produce.
func NewTileMap(tiles []Tile) (*TileMap, error) {
	m := &TileMap{
		tiles: append([]Tile(nil), tiles...),
		index: make(map[Coord]int, len(tiles)),
	}

	for i, t := range m.tiles {
		if _, dup := m.index[t.Pos]; dup {
			return nil, &ValidationError{
				Code:    "DUPLICATE_TILE",
				Message: fmt.Sprintf("tile %s authored more than once", t.Pos),
				Err:     ErrDuplicateTile,
			}
		}
		m.index[t.Pos] = i

		if i == 0 {
			m.min, m.max = t.Pos, t.Pos
			continue
		}
		m.min.X = min(m.min.X, t.Pos.X)
		m.min.Y = min(m.min.Y, t.Pos.Y)
		m.max.X = max(m.max.X, t.Pos.X)
		m.max.Y = max(m.max.Y, t.Pos.Y)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Tiles returns the tiles in authored order. The slice must not be modified.
func (m *TileMap) Tiles() []Tile {
	return m.tiles
}

// Len returns the number of tiles.
func (m *TileMap) Len() int {
	return len(m.tiles)
}

// Bounds returns the smallest and largest grid coordinates in the network.
func (m *TileMap) Bounds() (Coord, Coord) {
	return m.min, m.max
}

// Center returns the world position of the middle of the tile at pos.
func (m *TileMap) Center(pos Coord) mgl64.Vec2 {
	return pos.World()
}

// Get returns the tile at a grid position.
func (m *TileMap) Get(pos Coord) (Tile, bool) {
	i, ok := m.index[pos]
	if !ok {
		return Tile{}, false
	}
	return m.tiles[i], true
}

// Contains reports whether the closed square footprint of the tile at pos
// contains the world position p.
func (m *TileMap) Contains(pos Coord, p mgl64.Vec2) bool {
	if _, ok := m.index[pos]; !ok {
		return false
	}
	return squareContains(pos, p)
}

// AtPos returns the tile whose half-tile-wide square around its center
// contains the world position p. Positions on a shared edge resolve to the
// earliest authored tile.
func (m *TileMap) AtPos(p mgl64.Vec2) (Tile, bool) {
	cx := int(math.Floor(p.X()/TileSize + 0.5))
	cy := int(math.Floor(p.Y()/TileSize + 0.5))

	best := -1
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			pos := C(cx+dx, cy+dy)
			i, ok := m.index[pos]
			if !ok || !squareContains(pos, p) {
				continue
			}
			if best < 0 || i < best {
				best = i
			}
		}
	}

	if best < 0 {
		return Tile{}, false
	}
	return m.tiles[best], true
}

func squareContains(pos Coord, p mgl64.Vec2) bool {
	center := pos.World()
	half := TileSize / 2
	return p.X() <= center.X()+half &&
		p.X() >= center.X()-half &&
		p.Y() <= center.Y()+half &&
		p.Y() >= center.Y()-half
}

// validate checks that every direction a vehicle can arrive with at an
// intersection tile is a key of that tile's mapping.
func (m *TileMap) validate() error {
	for _, t := range m.tiles {
		if !t.Dir.IsIntersection() {
			continue
		}
		for _, arrival := range m.ReachableArrivals(t.Pos) {
			if _, ok := t.Dir.Exits(arrival); !ok {
				return &ValidationError{
					Code:    "MALFORMED_INTERSECTION",
					Message: fmt.Sprintf("intersection %s has no exits for arrival %s", t.Pos, arrival),
					Err:     ErrMalformedIntersection,
				}
			}
		}
		for _, arrival := range t.Dir.Arrivals() {
			if outs, _ := t.Dir.Exits(arrival); len(outs) == 0 {
				return &ValidationError{
					Code:    "EMPTY_EXITS",
					Message: fmt.Sprintf("intersection %s lists no exits for arrival %s", t.Pos, arrival),
					Err:     ErrMalformedIntersection,
				}
			}
		}
	}
	return nil
}

// ReachableArrivals returns the distinct directions a vehicle can hold when
// it enters the tile at pos, derived from the four neighbouring tiles.
// The result is sorted by String for stable output.
func (m *TileMap) ReachableArrivals(pos Coord) []Direction {
	seen := make(map[Direction]bool)

	for _, c := range Cardinals {
		from := pos.Step(c.Opposite())
		n, ok := m.Get(from)
		if !ok {
			continue
		}

		if d, fixed := n.Dir.Fixed(); fixed {
			if d.Out() == c {
				seen[d] = true
			}
			continue
		}

		for _, arrival := range n.Dir.Arrivals() {
			outs, _ := n.Dir.Exits(arrival)
			for _, out := range outs {
				if out != c {
					continue
				}
				if out == arrival.Out() {
					seen[Straight(out)] = true
				} else {
					seen[Turn(arrival.Out(), out)] = true
				}
			}
		}
	}

	result := make([]Direction, 0, len(seen))
	for d := range seen {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].String() < result[j].String()
	})
	return result
}
