package routing

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Kinematic constants. Speeds are world units per second.
const (
	TickRate = 60   // assumed ticks per second
	Accel    = 0.25 // speed gained per tick when the way is clear
	Brake    = 0.5  // speed lost per tick when yielding
	MaxSpeed = 20.0
)

// Vehicle is a car driving along the tile network.
type Vehicle struct {
	id      uint64
	pos     mgl64.Vec2
	tilePos Coord
	length  float64
	speed   float64
	dir     Direction
}

// Env is everything a vehicle reads during one update. Peers is a snapshot
// of every other vehicle as of the start of the tick; devices hold their
// state from the previous tick.
type Env struct {
	Peers      []Vehicle
	Tiles      *TileMap
	StopSigns  []StopSign
	Stoplights []Stoplight
	Rand       *rand.Rand
}

// NewVehicle places a vehicle at a world position. The position must lie on
// a constant tile, whose direction becomes the initial heading.
func NewVehicle(pos mgl64.Vec2, length, speed float64, tiles *TileMap) (Vehicle, error) {
	tile, ok := tiles.AtPos(pos)
	if !ok {
		return Vehicle{}, fmt.Errorf("%w: %v", ErrOffNetwork, pos)
	}

	dir, fixed := tile.Dir.Fixed()
	if !fixed {
		return Vehicle{}, fmt.Errorf("%w: tile %s", ErrSpawnOnIntersection, tile.Pos)
	}

	return Vehicle{
		pos:     pos,
		tilePos: tile.Pos,
		length:  length,
		speed:   clampSpeed(speed),
		dir:     dir,
	}, nil
}

// WithID returns a copy of v carrying the given identifier.
func (v Vehicle) WithID(id uint64) Vehicle {
	v.id = id
	return v
}

// ID returns the identifier assigned by the driver.
func (v Vehicle) ID() uint64 { return v.id }

// Pos returns the world position.
func (v Vehicle) Pos() mgl64.Vec2 { return v.pos }

// TilePos returns the cached grid position.
func (v Vehicle) TilePos() Coord { return v.tilePos }

// Length returns the vehicle length in world units.
func (v Vehicle) Length() float64 { return v.length }

// Speed returns the current speed.
func (v Vehicle) Speed() float64 { return v.speed }

// Dir returns the current direction.
func (v Vehicle) Dir() Direction { return v.dir }

// Heading returns the sprite heading in degrees.
func (v Vehicle) Heading() float64 { return v.dir.Degrees() }

// Footprint returns the physical extent of the vehicle.
func (v Vehicle) Footprint() OrientedRect {
	return VehicleFootprint(v.pos, v.length, v.dir)
}

// Envelope returns the look-ahead collider used for yielding decisions.
func (v Vehicle) Envelope() OrientedRect {
	return LookAhead(v.pos, v.length, v.speed, v.dir)
}

// Update advances the vehicle by one tick.
func (v *Vehicle) Update(env Env) error {
	if !env.Tiles.Contains(v.tilePos, v.pos) {
		tile, ok := env.Tiles.AtPos(v.pos)
		if !ok {
			return fmt.Errorf("%w: vehicle %d at %v", ErrOffNetwork, v.id, v.pos)
		}

		dir, err := tile.Dir.AsDir(v.dir, env.Rand)
		if err != nil {
			return fmt.Errorf("vehicle %d entering %s: %w", v.id, tile.Pos, err)
		}

		// Re-center on the new tile's entry edge.
		entry := dir.In().Vector().Mul(-0.5)
		v.pos = tile.Pos.Vec().Add(entry).Mul(TileSize)
		v.tilePos = tile.Pos
		v.dir = dir
	}

	if v.ShouldSlow(env) {
		v.speed -= Brake
	} else {
		v.speed += Accel
	}
	v.speed = clampSpeed(v.speed)

	v.pos = v.pos.Add(v.dir.Vector().Mul(v.speed / TickRate))
	return nil
}

// ShouldSlow reports whether the look-ahead envelope touches a peer's
// footprint, a blocking stop sign, or a blocking stoplight.
func (v Vehicle) ShouldSlow(env Env) bool {
	envelope := v.Envelope().Shape()

	for i := range env.Peers {
		if Collides(envelope, env.Peers[i].Footprint().Shape()) {
			return true
		}
	}

	for i := range env.StopSigns {
		if env.StopSigns[i].Colliding(v.tilePos, envelope) {
			return true
		}
	}

	out := v.dir.Out()
	for i := range env.Stoplights {
		if env.Stoplights[i].Blocks(out, envelope) {
			return true
		}
	}

	return false
}

func clampSpeed(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > MaxSpeed {
		return MaxSpeed
	}
	return s
}
