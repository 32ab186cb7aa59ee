// Package sim drives a scene tick by tick: it owns the vehicle list, runs
// every vehicle against a frozen snapshot of its peers, then updates the
// traffic devices, then prunes and spawns.
package sim

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/vovakirdan/tui-traffic/internal/routing"
	"github.com/vovakirdan/tui-traffic/internal/scene"
)

// ErrSpawnBlocked is returned by AddVehicle when the tile is occupied.
var ErrSpawnBlocked = errors.New("spawn tile occupied")

// Config controls the spawn policy and the world's randomness.
type Config struct {
	Seed int64

	// SpawnEvery is the number of ticks between spawn attempts. Zero
	// disables spawning unless a schedule is set with WithSpawnSchedule.
	SpawnEvery uint64

	// Prefill places one vehicle on every spawn point before the first tick.
	Prefill bool

	VehicleLength float64
	MinSpeed      float64 // initial speed drawn from [MinSpeed, MaxSpeed)
	MaxSpeed      float64

	// StoplightFrequency, when positive, replaces every stoplight's cycle.
	StoplightFrequency float64
}

// DefaultConfig mirrors the built-in junction: a spawn attempt every second
// with vehicles 8 units long starting between 2 and 10 units per second.
func DefaultConfig() Config {
	return Config{
		Seed:          1,
		SpawnEvery:    60,
		Prefill:       true,
		VehicleLength: 8,
		MinSpeed:      2,
		MaxSpeed:      10,
	}
}

// SpawnEvent records a vehicle entering the network.
type SpawnEvent struct {
	ID   uint64
	Tile routing.Coord
}

// ExitEvent records a vehicle leaving through an exit.
type ExitEvent struct {
	ID    uint64
	Tile  routing.Coord
	Out   routing.Cardinal
	Ticks uint64 // ticks spent on the network
}

// StepResult describes what happened during one tick.
type StepResult struct {
	Tick     uint64
	Spawned  []SpawnEvent
	Exited   []ExitEvent
	Stopped  int // vehicles at speed zero after the vehicle pass
	Vehicles int
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger used for spawn and exit events.
func WithLogger(l *log.Logger) Option {
	return func(w *World) {
		w.logger = l
	}
}

// WithSpawnSchedule replaces the fixed SpawnEvery interval with one computed
// from the current tick. An interval of zero pauses spawning.
func WithSpawnSchedule(f func(tick uint64) uint64) Option {
	return func(w *World) {
		w.schedule = f
	}
}

// World is a running scene.
type World struct {
	scene      *scene.Scene
	cfg        Config
	tiles      *routing.TileMap
	stopSigns  []routing.StopSign
	stoplights []routing.Stoplight
	vehicles   []routing.Vehicle
	rngs       map[uint64]*rand.Rand
	born       map[uint64]uint64
	rng        *rand.Rand
	tick       uint64
	nextID     uint64
	stats      Stats
	logger     *log.Logger
	peers      []routing.Vehicle
	schedule   func(uint64) uint64
	lastSpawn  uint64
}

// New builds a world from a scene. The scene is validated first.
func New(sc *scene.Scene, cfg Config, opts ...Option) (*World, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	tiles, err := sc.TileMap()
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	if cfg.MaxSpeed < cfg.MinSpeed {
		return nil, fmt.Errorf("sim: speed range [%v, %v) is empty", cfg.MinSpeed, cfg.MaxSpeed)
	}

	w := &World{
		scene:     sc,
		cfg:       cfg,
		tiles:     tiles,
		stopSigns: append([]routing.StopSign(nil), sc.StopSigns...),
		rngs:      make(map[uint64]*rand.Rand),
		born:      make(map[uint64]uint64),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		nextID:    1,
		logger:    log.New(io.Discard),
	}
	for _, l := range sc.Stoplights {
		if cfg.StoplightFrequency > 0 {
			l = routing.NewStoplight(l.Pos(), cfg.StoplightFrequency)
		}
		w.stoplights = append(w.stoplights, l)
	}
	for _, opt := range opts {
		opt(w)
	}

	if cfg.Prefill {
		for _, i := range w.rng.Perm(len(sc.Spawns)) {
			if _, ok := w.trySpawn(sc.Spawns[i]); ok {
				w.stats.Spawned++
			}
		}
	}

	return w, nil
}

// Scene returns the scene the world was built from.
func (w *World) Scene() *scene.Scene { return w.scene }

// Tiles returns the tile map.
func (w *World) Tiles() *routing.TileMap { return w.tiles }

// Tick returns the number of completed steps.
func (w *World) Tick() uint64 { return w.tick }

// Stats returns the accumulated run statistics.
func (w *World) Stats() Stats { return w.stats }

// Vehicles returns a copy of the current vehicle list.
func (w *World) Vehicles() []routing.Vehicle {
	return append([]routing.Vehicle(nil), w.vehicles...)
}

// Vehicle looks up a vehicle by ID.
func (w *World) Vehicle(id uint64) (routing.Vehicle, bool) {
	for _, v := range w.vehicles {
		if v.ID() == id {
			return v, true
		}
	}
	return routing.Vehicle{}, false
}

// StopSigns returns a copy of the stop sign states.
func (w *World) StopSigns() []routing.StopSign {
	return append([]routing.StopSign(nil), w.stopSigns...)
}

// Stoplights returns a copy of the stoplight states.
func (w *World) Stoplights() []routing.Stoplight {
	return append([]routing.Stoplight(nil), w.stoplights...)
}

// AddVehicle places a vehicle at a world position outside the spawn policy.
func (w *World) AddVehicle(pos mgl64.Vec2, length, speed float64) (uint64, error) {
	v, err := routing.NewVehicle(pos, length, speed, w.tiles)
	if err != nil {
		return 0, fmt.Errorf("sim: %w", err)
	}
	if w.occupied(v.TilePos()) {
		return 0, fmt.Errorf("sim: %w: %s", ErrSpawnBlocked, v.TilePos())
	}
	return w.admit(v), nil
}

// Step advances the world by one tick.
func (w *World) Step() (StepResult, error) {
	w.tick++
	res := StepResult{Tick: w.tick}

	// Every vehicle reads the same start-of-tick state; results go to a
	// separate buffer committed after the pass.
	next := make([]routing.Vehicle, len(w.vehicles))
	for i := range w.vehicles {
		w.peers = append(w.peers[:0], w.vehicles[:i]...)
		w.peers = append(w.peers, w.vehicles[i+1:]...)

		v := w.vehicles[i]
		env := routing.Env{
			Peers:      w.peers,
			Tiles:      w.tiles,
			StopSigns:  w.stopSigns,
			Stoplights: w.stoplights,
			Rand:       w.rngs[v.ID()],
		}
		if err := v.Update(env); err != nil {
			return res, fmt.Errorf("sim: tick %d: %w", w.tick, err)
		}
		next[i] = v
	}
	w.vehicles = next

	for _, v := range w.vehicles {
		if v.Speed() == 0 {
			res.Stopped++
		}
		w.stats.SpeedSum += v.Speed()
	}
	w.stats.SpeedSamples += uint64(len(w.vehicles))
	w.stats.StoppedTicks += uint64(res.Stopped)

	// Devices see this tick's vehicles; vehicles saw last tick's devices.
	for i := range w.stopSigns {
		w.stopSigns[i].Update(w.vehicles)
	}
	for i := range w.stoplights {
		w.stoplights[i].Update(w.tick)
	}

	res.Exited = w.prune()

	if w.spawnDue() {
		w.lastSpawn = w.tick
		sp := w.scene.Spawns[w.rng.Intn(len(w.scene.Spawns))]
		if id, ok := w.trySpawn(sp); ok {
			res.Spawned = append(res.Spawned, SpawnEvent{ID: id, Tile: sp.Tile})
		}
	}

	w.stats.Ticks = w.tick
	w.stats.Spawned += len(res.Spawned)
	w.stats.Exited += len(res.Exited)
	res.Vehicles = len(w.vehicles)
	return res, nil
}

// Run steps the world n times, stopping at the first error.
func (w *World) Run(n uint64) error {
	for i := uint64(0); i < n; i++ {
		if _, err := w.Step(); err != nil {
			return err
		}
	}
	return nil
}

// SpawnInterval returns the spawn interval in effect at the current tick.
func (w *World) SpawnInterval() uint64 {
	if w.schedule != nil {
		return w.schedule(w.tick)
	}
	return w.cfg.SpawnEvery
}

func (w *World) spawnDue() bool {
	interval := w.SpawnInterval()
	if interval == 0 || len(w.scene.Spawns) == 0 {
		return false
	}
	return w.tick-w.lastSpawn >= interval
}

func (w *World) prune() []ExitEvent {
	var exited []ExitEvent
	kept := w.vehicles[:0]
	for _, v := range w.vehicles {
		out := v.Dir().Out()
		if !w.scene.Exits.Passed(v.TilePos(), out) {
			kept = append(kept, v)
			continue
		}

		ev := ExitEvent{
			ID:    v.ID(),
			Tile:  v.TilePos(),
			Out:   out,
			Ticks: w.tick - w.born[v.ID()],
		}
		exited = append(exited, ev)
		w.stats.TransitTicks += ev.Ticks
		delete(w.rngs, v.ID())
		delete(w.born, v.ID())
		w.logger.Debug("vehicle exited", "id", ev.ID, "tile", ev.Tile, "out", ev.Out, "ticks", ev.Ticks)
	}
	w.vehicles = kept
	return exited
}

// trySpawn places a vehicle on a spawn tile unless one is already there.
// Spawn points are checked by Scene.Validate, so a construction failure is
// logged and treated as a skipped spawn.
func (w *World) trySpawn(sp scene.Spawn) (uint64, bool) {
	if w.occupied(sp.Tile) {
		return 0, false
	}

	speed := w.cfg.MinSpeed
	if w.cfg.MaxSpeed > w.cfg.MinSpeed {
		speed += w.rng.Float64() * (w.cfg.MaxSpeed - w.cfg.MinSpeed)
	}

	v, err := routing.NewVehicle(w.tiles.Center(sp.Tile), w.cfg.VehicleLength, speed, w.tiles)
	if err != nil {
		w.logger.Warn("spawn skipped", "tile", sp.Tile, "err", err)
		return 0, false
	}

	id := w.admit(v)
	w.logger.Debug("vehicle spawned", "id", id, "tile", sp.Tile, "speed", speed)
	return id, true
}

func (w *World) admit(v routing.Vehicle) uint64 {
	id := w.nextID
	w.nextID++
	w.vehicles = append(w.vehicles, v.WithID(id))
	w.rngs[id] = rand.New(rand.NewSource(w.rng.Int63()))
	w.born[id] = w.tick
	return id
}

func (w *World) occupied(tile routing.Coord) bool {
	for _, v := range w.vehicles {
		if v.TilePos() == tile {
			return true
		}
	}
	return false
}
