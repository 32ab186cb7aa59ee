package routing

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// crossingTiles is a one-way road heading Up along x=7 crossing a one-way
// road heading Right along y=2. The crossing tile only allows straight
// travel so runs are deterministic.
func crossingTiles() []Tile {
	var tiles []Tile
	for y := 8; y >= -4; y-- {
		if y == 2 {
			continue
		}
		tiles = append(tiles, NewTile(C(7, y), Constant(Straight(Up))))
	}
	for x := 0; x <= 14; x++ {
		if x == 7 {
			continue
		}
		tiles = append(tiles, NewTile(C(x, 2), Constant(Straight(Right))))
	}
	tiles = append(tiles, NewTile(C(7, 2), Intersection(map[Direction][]Cardinal{
		Straight(Up):    {Up},
		Straight(Right): {Right},
	})))
	return tiles
}

func crossingMap(t *testing.T) *TileMap {
	t.Helper()
	m, err := NewTileMap(crossingTiles())
	if err != nil {
		t.Fatalf("NewTileMap() failed: %v", err)
	}
	return m
}

// at returns the world position of tile coordinates given in tile units.
func at(x, y float64) mgl64.Vec2 {
	return mgl64.Vec2{x, y}.Mul(TileSize)
}

func mustVehicle(t *testing.T, pos mgl64.Vec2, speed float64, tiles *TileMap) Vehicle {
	t.Helper()
	v, err := NewVehicle(pos, 8, speed, tiles)
	if err != nil {
		t.Fatalf("NewVehicle(%v) failed: %v", pos, err)
	}
	return v
}

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
