package routing

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewVehicle(t *testing.T) {
	m := crossingMap(t)

	v, err := NewVehicle(at(3, 2), 8, 5, m)
	if err != nil {
		t.Fatalf("NewVehicle() failed: %v", err)
	}
	if v.Dir() != Straight(Right) || v.TilePos() != C(3, 2) {
		t.Errorf("vehicle dir %v tile %s, expected Straight(Right) at (3, 2)", v.Dir(), v.TilePos())
	}
	if v.Heading() != 90 {
		t.Errorf("Heading() = %v, expected 90", v.Heading())
	}

	if _, err := NewVehicle(mgl64.Vec2{500, 500}, 8, 5, m); !errors.Is(err, ErrOffNetwork) {
		t.Errorf("expected ErrOffNetwork, got %v", err)
	}
	if _, err := NewVehicle(at(7, 2), 8, 5, m); !errors.Is(err, ErrSpawnOnIntersection) {
		t.Errorf("expected ErrSpawnOnIntersection, got %v", err)
	}

	fast := mustVehicle(t, at(3, 2), 50, m)
	if fast.Speed() != MaxSpeed {
		t.Errorf("spawn speed = %v, expected clamp to %v", fast.Speed(), MaxSpeed)
	}
}

func TestVehicleAcceleratesToMaxSpeed(t *testing.T) {
	m := crossingMap(t)
	v := mustVehicle(t, at(0, 2), 19, m)
	env := Env{Tiles: m, Rand: rand.New(rand.NewSource(1))}

	for i := 0; i < 30; i++ {
		if err := v.Update(env); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if v.Speed() > MaxSpeed {
			t.Fatalf("tick %d: speed %v above max", i, v.Speed())
		}
	}
	if v.Speed() != MaxSpeed {
		t.Errorf("speed = %v, expected %v", v.Speed(), MaxSpeed)
	}
	if v.Pos().Y() != 30 {
		t.Errorf("vehicle drifted off its lane: %v", v.Pos())
	}
}

func TestVehicleObstructedStopsAndStays(t *testing.T) {
	m := crossingMap(t)
	v := mustVehicle(t, mgl64.Vec2{30, 30}, 10, m)
	peer := mustVehicle(t, mgl64.Vec2{42, 30}, 0, m).WithID(2)
	env := Env{Peers: []Vehicle{peer}, Tiles: m, Rand: rand.New(rand.NewSource(1))}

	prev := v.Speed()
	for i := 0; i < 150; i++ {
		if err := v.Update(env); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if v.Speed() > prev {
			t.Fatalf("tick %d: speed rose from %v to %v", i, prev, v.Speed())
		}
		if v.Speed() < 0 {
			t.Fatalf("tick %d: negative speed %v", i, v.Speed())
		}
		prev = v.Speed()
		if i >= 20 && v.Speed() != 0 {
			t.Fatalf("tick %d: speed %v, expected 0", i, v.Speed())
		}
	}

	if v.Footprint().Shape().Colliding(peer.Footprint().Shape()) {
		t.Error("vehicle ran into the parked peer")
	}
}

func TestVehicleRecentersOnTileChange(t *testing.T) {
	m := crossingMap(t)
	v := mustVehicle(t, mgl64.Vec2{37.4, 30}, 20, m)
	env := Env{Tiles: m, Rand: rand.New(rand.NewSource(1))}

	if err := v.Update(env); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if v.TilePos() != C(2, 2) {
		t.Fatalf("tile = %s after first tick, expected (2, 2)", v.TilePos())
	}

	if err := v.Update(env); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if v.TilePos() != C(3, 2) {
		t.Fatalf("tile = %s after crossing, expected (3, 2)", v.TilePos())
	}
	if !approxEqual(v.Pos().X(), 37.5+20.0/60) || v.Pos().Y() != 30 {
		t.Errorf("pos = %v, expected re-centered at the entry edge then moved", v.Pos())
	}
}

func TestVehicleTurnsThroughIntersection(t *testing.T) {
	var tiles []Tile
	for x := 0; x <= 6; x++ {
		tiles = append(tiles, NewTile(C(x, 2), Constant(Straight(Right))))
	}
	tiles = append(tiles, NewTile(C(7, 2), Intersection(map[Direction][]Cardinal{
		Straight(Right): {Up},
	})))
	for y := 1; y >= -4; y-- {
		tiles = append(tiles, NewTile(C(7, y), Constant(Straight(Up))))
	}
	m, err := NewTileMap(tiles)
	if err != nil {
		t.Fatalf("NewTileMap() failed: %v", err)
	}

	v := mustVehicle(t, mgl64.Vec2{97.4, 30}, 20, m)
	env := Env{Tiles: m, Rand: rand.New(rand.NewSource(1))}

	for i := 0; i < 2; i++ {
		if err := v.Update(env); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
	}
	if v.TilePos() != C(7, 2) || v.Dir() != Turn(Right, Up) {
		t.Fatalf("tile %s dir %v, expected Turn(Right,Up) at (7, 2)", v.TilePos(), v.Dir())
	}
	if v.Heading() != 45 {
		t.Errorf("turn heading = %v, expected 45", v.Heading())
	}

	for i := 0; i < 100 && v.TilePos() != C(7, 1); i++ {
		if err := v.Update(env); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
	}
	if v.TilePos() != C(7, 1) || v.Dir() != Straight(Up) {
		t.Fatalf("tile %s dir %v, expected Straight(Up) at (7, 1)", v.TilePos(), v.Dir())
	}
	if math.Abs(v.Pos().X()-105) > 1e-9 {
		t.Errorf("pos = %v, expected to be back on the x=105 lane", v.Pos())
	}
}

func TestVehicleOffNetworkFails(t *testing.T) {
	tiles := []Tile{NewTile(C(0, 0), Constant(Straight(Right)))}
	m, err := NewTileMap(tiles)
	if err != nil {
		t.Fatalf("NewTileMap() failed: %v", err)
	}
	v := mustVehicle(t, mgl64.Vec2{7, 0}, 20, m)
	env := Env{Tiles: m, Rand: rand.New(rand.NewSource(1))}

	var last error
	for i := 0; i < 10 && last == nil; i++ {
		last = v.Update(env)
	}
	if !errors.Is(last, ErrOffNetwork) {
		t.Errorf("expected ErrOffNetwork after leaving the network, got %v", last)
	}
}
