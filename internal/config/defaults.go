package config

import (
	_ "embed"
)

//go:embed defaults/sim.yaml
var defaultSimYAML []byte

// DefaultSimConfig returns the hard-coded simulation configuration. It
// matches defaults/sim.yaml.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Spawn: SpawnConfig{
			Every:   60,
			Prefill: true,
		},
		Vehicle: VehicleConfig{
			Length:   8,
			MinSpeed: 2,
			MaxSpeed: 10,
		},
		Ramp: RampConfig{
			MaxAt:    36000, // 10 minutes at 60 ticks per second
			MinEvery: 20,
		},
		Run: RunConfig{
			Ticks: 3600,
		},
		Trace: TraceConfig{
			Dir:   "~/.traffic/traces",
			Every: 1,
		},
		View: ViewConfig{
			TicksPerFrame: 1,
			Colors: ColorConfig{
				Road:         "gray",
				Intersection: "white",
				Vehicle:      "bright_cyan",
				Stopped:      "bright_red",
				StopSign:     "red",
				Go:           "bright_green",
				Amber:        "bright_yellow",
				Stop:         "bright_red",
				Status:       "yellow",
			},
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultSimYAML
}
