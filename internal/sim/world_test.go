package sim_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/vovakirdan/tui-traffic/internal/routing"
	"github.com/vovakirdan/tui-traffic/internal/scene"
	"github.com/vovakirdan/tui-traffic/internal/sim"
)

// crossingScene is a northbound lane on x=7 crossing an eastbound lane on
// y=2 at a tile that only allows straight travel.
func crossingScene() *scene.Scene {
	var tiles []routing.Tile
	tiles = append(tiles, scene.Column(7, 8, 3, scene.Straight(routing.Up))...)
	tiles = append(tiles, scene.Column(7, 1, -4, scene.Straight(routing.Up))...)
	tiles = append(tiles, scene.Row(2, 0, 6, scene.Straight(routing.Right))...)
	tiles = append(tiles, scene.Row(2, 8, 14, scene.Straight(routing.Right))...)
	tiles = append(tiles, scene.Tile(7, 2, scene.Intersection(map[routing.Direction][]routing.Cardinal{
		routing.Straight(routing.Up):    {routing.Up},
		routing.Straight(routing.Right): {routing.Right},
	})))

	return &scene.Scene{
		ID:    "crossing",
		Tiles: tiles,
		Exits: scene.Exits{routing.Up: -4, routing.Right: 14},
	}
}

func quietConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.SpawnEvery = 0
	cfg.Prefill = false
	return cfg
}

func newWorld(t *testing.T, sc *scene.Scene) *sim.World {
	t.Helper()
	w, err := sim.New(sc, quietConfig())
	if err != nil {
		t.Fatalf("sim.New() failed: %v", err)
	}
	return w
}

func addVehicle(t *testing.T, w *sim.World, x, y, speed float64) uint64 {
	t.Helper()
	id, err := w.AddVehicle(mgl64.Vec2{x, y}, 8, speed)
	if err != nil {
		t.Fatalf("AddVehicle(%v, %v) failed: %v", x, y, err)
	}
	return id
}

func TestStopSignYieldThenRelease(t *testing.T) {
	sc := crossingScene()
	sc.StopSigns = []routing.StopSign{routing.NewStopSign(mgl64.Vec2{6.5, 1.5})}
	w := newWorld(t, sc)

	aID := addVehicle(t, w, 105, 60, 5)  // heading Up, has priority
	bID := addVehicle(t, w, 70.5, 30, 2) // heading Right, must wait

	var rotatedAt, aExited, bExited uint64
	prevA := 5.0

	for w.Tick() < 900 && bExited == 0 {
		before := w.StopSigns()[0].Priority()

		res, err := w.Step()
		if err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
		for _, ev := range res.Exited {
			switch ev.ID {
			case aID:
				aExited = res.Tick
			case bID:
				bExited = res.Tick
			}
		}

		if a, ok := w.Vehicle(aID); ok {
			if a.Speed() < prevA {
				t.Fatalf("tick %d: priority vehicle slowed from %v to %v", res.Tick, prevA, a.Speed())
			}
			prevA = a.Speed()
		}

		b, ok := w.Vehicle(bID)
		if !ok {
			continue
		}
		if before == routing.Up && res.Tick >= 4 && b.Speed() != 0 {
			t.Fatalf("tick %d: waiting vehicle moving at %v before its turn", res.Tick, b.Speed())
		}
		if rotatedAt != 0 && res.Tick == rotatedAt+1 && b.Speed() != routing.Accel {
			t.Fatalf("tick %d: waiting vehicle speed %v after rotation, expected %v", res.Tick, b.Speed(), routing.Accel)
		}
		if rotatedAt == 0 && w.StopSigns()[0].Priority() == routing.Right {
			rotatedAt = res.Tick
			if a, ok := w.Vehicle(aID); ok && w.StopSigns()[0].Inside(a.TilePos()) {
				t.Fatalf("tick %d: rotated while the priority vehicle was inside", res.Tick)
			}
		}
	}

	if rotatedAt == 0 {
		t.Fatal("stop sign never handed priority to the waiting vehicle")
	}
	if aExited == 0 || bExited == 0 {
		t.Fatalf("vehicles did not clear the network: a=%d b=%d", aExited, bExited)
	}
	if bExited <= rotatedAt {
		t.Errorf("waiting vehicle exited at %d before rotation at %d", bExited, rotatedAt)
	}
}

// Devices update after vehicles, so a vehicle reacts to a stoplight change
// one tick after the change.
func TestDevicesUpdateAfterVehicles(t *testing.T) {
	sc := crossingScene()
	sc.Stoplights = []routing.Stoplight{routing.NewStoplight(mgl64.Vec2{6.5, 1.5}, 5)}
	w := newWorld(t, sc)

	bID := addVehicle(t, w, 70.5, 30, 2)

	for tick := uint64(1); tick <= 460; tick++ {
		if _, err := w.Step(); err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
		b, _ := w.Vehicle(bID)
		light := w.Stoplights()[0]

		switch {
		case tick == 300:
			if !light.GracePeriod() || light.Axis() != routing.Vertical {
				t.Fatalf("tick 300: grace %v axis %v, expected grace on Vertical", light.GracePeriod(), light.Axis())
			}
		case tick == 451:
			if light.Axis() != routing.Horizontal || light.GracePeriod() {
				t.Fatalf("tick 451: axis %v grace %v, expected Horizontal without grace", light.Axis(), light.GracePeriod())
			}
		}

		switch {
		case tick >= 4 && tick <= 451:
			if b.Speed() != 0 {
				t.Fatalf("tick %d: speed %v, expected 0 until the light flips", tick, b.Speed())
			}
		case tick == 452:
			if b.Speed() != routing.Accel {
				t.Fatalf("tick 452: speed %v, expected %v", b.Speed(), routing.Accel)
			}
		}
	}
}

func TestAddVehicleRejectsOccupiedAndInvalid(t *testing.T) {
	w := newWorld(t, crossingScene())
	addVehicle(t, w, 60, 30, 0)

	if _, err := w.AddVehicle(mgl64.Vec2{62, 30}, 8, 0); !errors.Is(err, sim.ErrSpawnBlocked) {
		t.Errorf("expected ErrSpawnBlocked, got %v", err)
	}
	if _, err := w.AddVehicle(mgl64.Vec2{105, 30}, 8, 0); !errors.Is(err, routing.ErrSpawnOnIntersection) {
		t.Errorf("expected ErrSpawnOnIntersection, got %v", err)
	}
	if _, err := w.AddVehicle(mgl64.Vec2{-100, -100}, 8, 0); !errors.Is(err, routing.ErrOffNetwork) {
		t.Errorf("expected ErrOffNetwork, got %v", err)
	}
}

func TestNewRejectsInvalidScene(t *testing.T) {
	sc := crossingScene()
	sc.Spawns = []scene.Spawn{{Tile: routing.C(7, 2)}}
	if _, err := sim.New(sc, quietConfig()); !errors.Is(err, routing.ErrSpawnOnIntersection) {
		t.Errorf("expected ErrSpawnOnIntersection, got %v", err)
	}
}

func TestVehiclePrunedAtExit(t *testing.T) {
	w := newWorld(t, crossingScene())
	id := addVehicle(t, w, 180, 30, 20)

	var exit *sim.ExitEvent
	for i := 0; i < 300 && exit == nil; i++ {
		res, err := w.Step()
		if err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
		for _, ev := range res.Exited {
			ev := ev
			exit = &ev
		}
	}

	if exit == nil {
		t.Fatal("vehicle never exited")
	}
	if exit.ID != id || exit.Out != routing.Right || exit.Tile != routing.C(14, 2) {
		t.Errorf("exit = %+v", exit)
	}
	if _, ok := w.Vehicle(id); ok {
		t.Error("exited vehicle still in the world")
	}
	if st := w.Stats(); st.Exited != 1 || st.MeanTransit() <= 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestLoggerReportsExit(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	w, err := sim.New(crossingScene(), quietConfig(), sim.WithLogger(logger))
	if err != nil {
		t.Fatalf("sim.New() failed: %v", err)
	}
	addVehicle(t, w, 180, 30, 20)
	if err := w.Run(300); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if !strings.Contains(buf.String(), "vehicle exited") {
		t.Errorf("log output missing exit line:\n%s", buf.String())
	}
}

func TestStoplightFrequencyOverride(t *testing.T) {
	sc := crossingScene()
	sc.Stoplights = []routing.Stoplight{routing.NewStoplight(mgl64.Vec2{6.5, 1.5}, 10)}
	cfg := quietConfig()
	cfg.StoplightFrequency = 2

	w, err := sim.New(sc, cfg)
	if err != nil {
		t.Fatalf("sim.New() failed: %v", err)
	}
	if f := w.Stoplights()[0].Frequency(); f != 2 {
		t.Errorf("frequency = %v, expected 2", f)
	}
	if f := sc.Stoplights[0].Frequency(); f != 10 {
		t.Errorf("scene stoplight modified: %v", f)
	}
}

func TestClassifyTile(t *testing.T) {
	tests := []struct {
		dir     routing.TileDirection
		kind    sim.TileKind
		degrees float64
	}{
		{scene.Straight(routing.Left), sim.TileStraight, 270},
		{scene.Straight(routing.Up), sim.TileStraight, 0},
		{scene.Turn(routing.Left, routing.Up), sim.TileTurn, 90},
		{scene.Turn(routing.Up, routing.Right), sim.TileTurn, 180},
		{scene.Turn(routing.Up, routing.Left), sim.TileTurn, 270},
		{scene.Turn(routing.Right, routing.Up), sim.TileTurn, 0},
		{scene.Intersection(map[routing.Direction][]routing.Cardinal{
			routing.Straight(routing.Up): {routing.Up},
		}), sim.TileIntersection, 0},
	}
	for i, tt := range tests {
		tv := sim.ClassifyTile(routing.NewTile(routing.C(1, 2), tt.dir))
		if tv.Kind != tt.kind || tv.Degrees != tt.degrees {
			t.Errorf("tile %d: kind %s degrees %v, expected %s %v", i, tv.Kind, tv.Degrees, tt.kind, tt.degrees)
		}
		if tv.X != 1 || tv.Y != 2 {
			t.Errorf("position = %d,%d", tv.X, tv.Y)
		}
	}
}

func TestSnapshotAndFrame(t *testing.T) {
	sc := crossingScene()
	sc.Stoplights = []routing.Stoplight{routing.NewStoplight(mgl64.Vec2{6.5, 1.5}, 10)}
	w := newWorld(t, sc)
	id := addVehicle(t, w, 60, 30, 4)

	if _, err := w.Step(); err != nil {
		t.Fatalf("Step() failed: %v", err)
	}

	snap := w.Snapshot()
	if snap.Scene != "crossing" || snap.Tick != 1 {
		t.Errorf("snapshot header = %s/%d", snap.Scene, snap.Tick)
	}
	if len(snap.Tiles) != w.Tiles().Len() {
		t.Errorf("tiles = %d, expected %d", len(snap.Tiles), w.Tiles().Len())
	}
	if len(snap.Vehicles) != 1 || snap.Vehicles[0].ID != id || snap.Vehicles[0].Heading != 90 {
		t.Errorf("vehicles = %+v", snap.Vehicles)
	}
	if len(snap.Stoplights) != 1 || snap.Stoplights[0].Phase != "Go" || snap.Stoplights[0].Axis != "Vertical" {
		t.Errorf("stoplights = %+v", snap.Stoplights)
	}

	if frame := w.Frame(); frame.Tiles != nil {
		t.Error("Frame() should not carry tiles")
	}
}

func TestSpawnSchedule(t *testing.T) {
	sc := crossingScene()
	sc.Spawns = []scene.Spawn{{Tile: routing.C(7, 8)}, {Tile: routing.C(0, 2)}}

	schedule := func(tick uint64) uint64 {
		if tick > 120 {
			return 0
		}
		return 30
	}
	w, err := sim.New(sc, quietConfig(), sim.WithSpawnSchedule(schedule))
	if err != nil {
		t.Fatalf("sim.New() failed: %v", err)
	}

	var spawnTicks []uint64
	for w.Tick() < 600 {
		res, err := w.Step()
		if err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
		if len(res.Spawned) > 0 {
			spawnTicks = append(spawnTicks, res.Tick)
		}
	}

	if len(spawnTicks) == 0 || spawnTicks[0] != 30 {
		t.Fatalf("expected the first spawn at tick 30, got %v", spawnTicks)
	}
	for _, tick := range spawnTicks {
		if tick%30 != 0 || tick > 120 {
			t.Errorf("spawn at tick %d outside the schedule", tick)
		}
	}
	if got := w.SpawnInterval(); got != 0 {
		t.Errorf("SpawnInterval() = %d after cutoff, expected 0", got)
	}
}
