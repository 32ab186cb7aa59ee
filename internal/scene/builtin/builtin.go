// Package builtin holds the scenes shipped with the simulator. Importing it
// registers them.
package builtin

import (
	"github.com/vovakirdan/tui-traffic/internal/registry"
	"github.com/vovakirdan/tui-traffic/internal/routing"
	"github.com/vovakirdan/tui-traffic/internal/scene"
)

const (
	CrossroadsID = "crossroads"
	StopSignID   = "stopsign"
)

func init() {
	registry.Register(CrossroadsID, Crossroads)
	registry.Register(StopSignID, StopSignJunction)
}

// Crossroads is a four-way junction of two two-lane roads controlled by a
// stoplight with a ten second cycle.
func Crossroads() *scene.Scene {
	return &scene.Scene{
		ID:          CrossroadsID,
		Name:        "Crossroads",
		Description: "Four-way junction with a stoplight",
		Tiles:       junctionTiles(),
		Stoplights:  []routing.Stoplight{routing.NewStoplight(scene.At(6.5, 1.5), 10)},
		Spawns:      junctionSpawns(),
		Exits:       junctionExits(),
	}
}

// StopSignJunction is the crossroads network controlled by a four-way stop.
func StopSignJunction() *scene.Scene {
	return &scene.Scene{
		ID:          StopSignID,
		Name:        "Four-way stop",
		Description: "Four-way junction with a stop sign",
		Tiles:       junctionTiles(),
		StopSigns:   []routing.StopSign{routing.NewStopSign(scene.At(6.5, 1.5))},
		Spawns:      junctionSpawns(),
		Exits:       junctionExits(),
	}
}

// junctionTiles lays out a southbound lane on x=6, a northbound lane on x=7,
// a westbound lane on y=1 and an eastbound lane on y=2, meeting in a 2x2
// block of intersections where each lane may continue or turn right.
func junctionTiles() []routing.Tile {
	var tiles []routing.Tile
	tiles = append(tiles, scene.Column(6, -3, 0, scene.Straight(routing.Down))...)
	tiles = append(tiles, scene.Column(6, 3, 7, scene.Straight(routing.Down))...)
	tiles = append(tiles, scene.Column(7, -3, 0, scene.Straight(routing.Up))...)
	tiles = append(tiles, scene.Column(7, 3, 7, scene.Straight(routing.Up))...)

	tiles = append(tiles,
		scene.Tile(6, 1, scene.Intersection(map[routing.Direction][]routing.Cardinal{
			routing.Straight(routing.Left): {routing.Left},
			routing.Straight(routing.Down): {routing.Down, routing.Left},
		})),
		scene.Tile(7, 1, scene.Intersection(map[routing.Direction][]routing.Cardinal{
			routing.Straight(routing.Left): {routing.Left, routing.Up},
			routing.Straight(routing.Up):   {routing.Up},
		})),
		scene.Tile(6, 2, scene.Intersection(map[routing.Direction][]routing.Cardinal{
			routing.Straight(routing.Right): {routing.Right, routing.Down},
			routing.Straight(routing.Down):  {routing.Down},
		})),
		scene.Tile(7, 2, scene.Intersection(map[routing.Direction][]routing.Cardinal{
			routing.Straight(routing.Right): {routing.Right},
			routing.Straight(routing.Up):    {routing.Up, routing.Right},
		})),
	)

	tiles = append(tiles, scene.Row(1, -2, 5, scene.Straight(routing.Left))...)
	tiles = append(tiles, scene.Row(1, 8, 14, scene.Straight(routing.Left))...)
	tiles = append(tiles, scene.Row(2, -2, 5, scene.Straight(routing.Right))...)
	tiles = append(tiles, scene.Row(2, 8, 14, scene.Straight(routing.Right))...)
	return tiles
}

func junctionSpawns() []scene.Spawn {
	return []scene.Spawn{
		{Tile: routing.C(6, -3)},
		{Tile: routing.C(7, 7)},
		{Tile: routing.C(-2, 2)},
		{Tile: routing.C(14, 1)},
	}
}

func junctionExits() scene.Exits {
	return scene.Exits{
		routing.Up:    -3,
		routing.Down:  7,
		routing.Left:  -2,
		routing.Right: 14,
	}
}
