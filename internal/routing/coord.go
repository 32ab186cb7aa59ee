package routing

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Coord is an integer tile position on the grid.
// X increases to the right, Y increases downward (screen coordinates).
type Coord struct {
	X int
	Y int
}

// C is a convenience constructor for Coord.
func C(x, y int) Coord {
	return Coord{X: x, Y: y}
}

// String returns a string representation of the coordinate.
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Add returns the sum of two coordinates.
func (c Coord) Add(other Coord) Coord {
	return Coord{X: c.X + other.X, Y: c.Y + other.Y}
}

// Step returns the neighbouring coordinate in the given heading.
func (c Coord) Step(d Cardinal) Coord {
	return c.Add(d.Delta())
}

// Vec returns the coordinate as a vector in tile units.
func (c Coord) Vec() mgl64.Vec2 {
	return mgl64.Vec2{float64(c.X), float64(c.Y)}
}

// World returns the tile center in world units.
func (c Coord) World() mgl64.Vec2 {
	return c.Vec().Mul(TileSize)
}
