package config

import "github.com/vovakirdan/tui-traffic/internal/core"

// SpawnRamp shortens the spawn interval as a run progresses.
type SpawnRamp struct {
	cfg          RampConfig
	baseEvery    uint64
	initialLevel float64
}

// NewSpawnRamp creates a ramp starting from the base spawn interval.
func NewSpawnRamp(cfg RampConfig, baseEvery uint64) *SpawnRamp {
	return &SpawnRamp{
		cfg:          cfg,
		baseEvery:    baseEvery,
		initialLevel: core.Clamp(cfg.InitialLevel, 0.0, 1.0),
	}
}

// SetInitialLevel overrides the initial level (0.0 to 1.0).
func (r *SpawnRamp) SetInitialLevel(level float64) {
	r.initialLevel = core.Clamp(level, 0.0, 1.0)
}

// IsEnabled returns whether the ramp changes anything.
func (r *SpawnRamp) IsEnabled() bool {
	return r.cfg.Enabled && r.baseEvery > 0
}

// Level returns the current level (0.0 to 1.0) at the given tick.
func (r *SpawnRamp) Level(tick uint64) float64 {
	if !r.cfg.Enabled {
		return r.initialLevel
	}
	maxAt := float64(r.cfg.MaxAt)
	if maxAt <= 0 {
		maxAt = 1
	}
	progress := core.Clamp(float64(tick)/maxAt, 0.0, 1.0)
	return r.initialLevel + progress*(1.0-r.initialLevel)
}

// Interval returns the spawn interval at the given tick, interpolated from
// the base interval down to MinEvery. It never returns less than one tick
// unless spawning is disabled.
func (r *SpawnRamp) Interval(tick uint64) uint64 {
	if r.baseEvery == 0 {
		return 0
	}
	if !r.cfg.Enabled {
		return r.baseEvery
	}
	floor := min(max(r.cfg.MinEvery, 1), r.baseEvery)
	span := float64(r.baseEvery - floor)
	return r.baseEvery - uint64(r.Level(tick)*span)
}
