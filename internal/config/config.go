// Package config provides YAML-based simulation configuration loading,
// traffic presets and the spawn ramp.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/tui-traffic/internal/core"
	"github.com/vovakirdan/tui-traffic/internal/scene"
	"github.com/vovakirdan/tui-traffic/internal/sim"
)

// SimConfig contains every tunable of a simulation run.
type SimConfig struct {
	Spawn   SpawnConfig   `yaml:"spawn"`
	Vehicle VehicleConfig `yaml:"vehicle"`
	Devices DeviceConfig  `yaml:"devices"`
	Ramp    RampConfig    `yaml:"ramp"`
	Run     RunConfig     `yaml:"run"`
	Trace   TraceConfig   `yaml:"trace"`
	View    ViewConfig    `yaml:"view"`
}

// SpawnConfig defines the spawn policy.
type SpawnConfig struct {
	Every   uint64 `yaml:"every"`   // Ticks between spawn attempts, 0 disables spawning
	Prefill bool   `yaml:"prefill"` // Place a vehicle on every spawn point at start
}

// VehicleConfig defines spawned vehicle parameters.
type VehicleConfig struct {
	Length   float64 `yaml:"length"`
	MinSpeed float64 `yaml:"min_speed"`
	MaxSpeed float64 `yaml:"max_speed"`
}

// DeviceConfig overrides authored device parameters.
type DeviceConfig struct {
	StoplightFrequency float64 `yaml:"stoplight_frequency"` // Seconds, 0 keeps the scene's value
}

// RampConfig defines how spawn pressure grows during a run.
type RampConfig struct {
	Enabled      bool    `yaml:"enabled"`
	InitialLevel float64 `yaml:"initial_level"` // 0.0 = base interval, 1.0 = min interval
	MaxAt        uint64  `yaml:"max_at"`        // Tick at which the level reaches 1.0
	MinEvery     uint64  `yaml:"min_every"`     // Spawn interval at level 1.0
}

// RunConfig defines headless run defaults.
type RunConfig struct {
	Ticks     uint64 `yaml:"ticks"`
	ScenesDir string `yaml:"scenes_dir"`
}

// TraceConfig defines the per-tick trace recorder.
type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Every   uint64 `yaml:"every"` // Record one frame every N ticks
}

// ViewConfig defines the terminal viewer.
type ViewConfig struct {
	TicksPerFrame int         `yaml:"ticks_per_frame"`
	Colors        ColorConfig `yaml:"colors"`
}

// ColorConfig names the colors used by the viewer. Names are parsed with
// core.ParseColor.
type ColorConfig struct {
	Road         string `yaml:"road"`
	Intersection string `yaml:"intersection"`
	Vehicle      string `yaml:"vehicle"`
	Stopped      string `yaml:"stopped"`
	StopSign     string `yaml:"stop_sign"`
	Go           string `yaml:"go"`
	Amber        string `yaml:"amber"`
	Stop         string `yaml:"stop"`
	Status       string `yaml:"status"`
}

// Palette is a ColorConfig with every name resolved.
type Palette struct {
	Road, Intersection, Vehicle, Stopped, StopSign core.Color
	Go, Amber, Stop, Status                        core.Color
}

// Palette resolves the color names.
func (c ColorConfig) Palette() (Palette, error) {
	var p Palette
	fields := []struct {
		name string
		dst  *core.Color
	}{
		{c.Road, &p.Road},
		{c.Intersection, &p.Intersection},
		{c.Vehicle, &p.Vehicle},
		{c.Stopped, &p.Stopped},
		{c.StopSign, &p.StopSign},
		{c.Go, &p.Go},
		{c.Amber, &p.Amber},
		{c.Stop, &p.Stop},
		{c.Status, &p.Status},
	}
	for _, f := range fields {
		col, err := core.ParseColor(f.name)
		if err != nil {
			return Palette{}, fmt.Errorf("config: view colors: %w", err)
		}
		*f.dst = col
	}
	return p, nil
}

// Validate checks the values that would make a run meaningless.
func (c SimConfig) Validate() error {
	var errs []error
	if c.Vehicle.Length <= 0 {
		errs = append(errs, fmt.Errorf("vehicle.length must be positive, got %v", c.Vehicle.Length))
	}
	if c.Vehicle.MinSpeed < 0 || c.Vehicle.MaxSpeed < c.Vehicle.MinSpeed {
		errs = append(errs, fmt.Errorf("vehicle speed range [%v, %v) is invalid", c.Vehicle.MinSpeed, c.Vehicle.MaxSpeed))
	}
	if c.Devices.StoplightFrequency < 0 {
		errs = append(errs, fmt.Errorf("devices.stoplight_frequency must not be negative"))
	}
	if c.Ramp.InitialLevel < 0 || c.Ramp.InitialLevel > 1 {
		errs = append(errs, fmt.Errorf("ramp.initial_level must be within [0, 1], got %v", c.Ramp.InitialLevel))
	}
	if c.View.TicksPerFrame < 0 {
		errs = append(errs, fmt.Errorf("view.ticks_per_frame must not be negative"))
	}
	if _, err := c.View.Colors.Palette(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// World converts the config into the simulation's own Config.
func (c SimConfig) World(seed int64) sim.Config {
	return sim.Config{
		Seed:               seed,
		SpawnEvery:         c.Spawn.Every,
		Prefill:            c.Spawn.Prefill,
		VehicleLength:      c.Vehicle.Length,
		MinSpeed:           c.Vehicle.MinSpeed,
		MaxSpeed:           c.Vehicle.MaxSpeed,
		StoplightFrequency: c.Devices.StoplightFrequency,
	}
}

// WorldOptions returns the sim options implied by the config: the spawn
// ramp when it is enabled.
func (c SimConfig) WorldOptions() []sim.Option {
	return RampOptions(c.Ramp, c.Spawn.Every)
}

// NewWorld builds a world for a scene with the config's policy and ramp.
// Extra options, such as a logger, are applied after the ramp.
func (c SimConfig) NewWorld(sc *scene.Scene, seed int64, opts ...sim.Option) (*sim.World, error) {
	return sim.New(sc, c.World(seed), append(c.WorldOptions(), opts...)...)
}

// RampOptions returns the spawn schedule option for a ramp over the base
// interval, or nothing when the ramp is disabled.
func RampOptions(cfg RampConfig, baseEvery uint64) []sim.Option {
	ramp := NewSpawnRamp(cfg, baseEvery)
	if !ramp.IsEnabled() {
		return nil
	}
	return []sim.Option{sim.WithSpawnSchedule(ramp.Interval)}
}

// TrafficPreset represents a named traffic density.
type TrafficPreset string

const (
	TrafficLight  TrafficPreset = "light"
	TrafficNormal TrafficPreset = "normal"
	TrafficHeavy  TrafficPreset = "heavy"
	TrafficFixed  TrafficPreset = "fixed"
)

// Presets lists the accepted preset names.
var Presets = []TrafficPreset{TrafficLight, TrafficNormal, TrafficHeavy, TrafficFixed}

// ParsePreset resolves a preset name. An empty name is TrafficNormal.
func ParsePreset(name string) (TrafficPreset, error) {
	if name == "" {
		return TrafficNormal, nil
	}
	p := TrafficPreset(strings.ToLower(name))
	for _, known := range Presets {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("config: unknown traffic preset %q", name)
}

// InitialLevelForPreset returns the ramp initial level for a preset.
func InitialLevelForPreset(preset TrafficPreset) float64 {
	switch preset {
	case TrafficNormal:
		return 0.3
	case TrafficHeavy:
		return 0.7
	default:
		return 0.0
	}
}

// ApplyTrafficPreset modifies the config based on a traffic preset.
func ApplyTrafficPreset(cfg *SimConfig, preset TrafficPreset) {
	if preset == TrafficFixed {
		cfg.Ramp.Enabled = false
		return
	}
	cfg.Ramp.Enabled = true
	cfg.Ramp.InitialLevel = InitialLevelForPreset(preset)

	switch preset {
	case TrafficLight:
		cfg.Spawn.Every = 120
		cfg.Ramp.MinEvery = 60
	case TrafficHeavy:
		cfg.Spawn.Every = 30
		cfg.Ramp.MinEvery = 10
		cfg.Vehicle.MaxSpeed = 14
	}
}
