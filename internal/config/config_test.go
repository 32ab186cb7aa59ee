package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/tui-traffic/internal/core"
	"github.com/vovakirdan/tui-traffic/internal/scene/builtin"
)

func TestEmbeddedDefaultsMatchHardcoded(t *testing.T) {
	cfg, err := ParseSim(DefaultYAML())
	if err != nil {
		t.Fatalf("embedded defaults do not parse: %v", err)
	}
	if cfg != DefaultSimConfig() {
		t.Errorf("embedded defaults differ from DefaultSimConfig:\n%+v\n%+v", cfg, DefaultSimConfig())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadSimCustomPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")
	data := "spawn:\n  every: 30\nvehicle:\n  max_speed: 12\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadSim(path)
	if err != nil {
		t.Fatalf("LoadSim: %v", err)
	}
	if cfg.Spawn.Every != 30 || cfg.Vehicle.MaxSpeed != 12 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// Keys absent from the file keep their defaults.
	if !cfg.Spawn.Prefill || cfg.Vehicle.Length != 8 || cfg.Vehicle.MinSpeed != 2 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadSimErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("spawn: [1, 2"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope.yaml")},
		{"malformed yaml", bad},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadSim(tc.path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if cfg != DefaultSimConfig() {
				t.Error("failed load should still return the defaults")
			}
		})
	}
}

func TestLoadSimSearchOrder(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadSim("")
	if err != nil {
		t.Fatalf("LoadSim: %v", err)
	}
	if cfg != DefaultSimConfig() {
		t.Errorf("without files LoadSim should return the embedded defaults")
	}

	userDir := filepath.Join(home, ".traffic", "configs")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(userDir, SimFile), []byte("run:\n  ticks: 99\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err = LoadSim("")
	if err != nil {
		t.Fatalf("LoadSim: %v", err)
	}
	if cfg.Run.Ticks != 99 {
		t.Errorf("user config not picked up, ticks = %d", cfg.Run.Ticks)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SimConfig)
	}{
		{"zero length", func(c *SimConfig) { c.Vehicle.Length = 0 }},
		{"inverted speeds", func(c *SimConfig) { c.Vehicle.MinSpeed = 5; c.Vehicle.MaxSpeed = 4 }},
		{"negative frequency", func(c *SimConfig) { c.Devices.StoplightFrequency = -1 }},
		{"level above one", func(c *SimConfig) { c.Ramp.InitialLevel = 1.5 }},
		{"unknown color", func(c *SimConfig) { c.View.Colors.Road = "plaid" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultSimConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestPalette(t *testing.T) {
	p, err := DefaultSimConfig().View.Colors.Palette()
	if err != nil {
		t.Fatalf("Palette: %v", err)
	}
	if p.Road != core.ColorGray || p.Vehicle != core.ColorBrightCyan || p.Amber != core.ColorBrightYellow {
		t.Errorf("unexpected palette %+v", p)
	}
}

func TestWorldConversion(t *testing.T) {
	cfg := DefaultSimConfig()
	cfg.Devices.StoplightFrequency = 4

	w := cfg.World(77)
	if w.Seed != 77 || w.SpawnEvery != 60 || !w.Prefill {
		t.Errorf("unexpected sim config %+v", w)
	}
	if w.VehicleLength != 8 || w.MinSpeed != 2 || w.MaxSpeed != 10 || w.StoplightFrequency != 4 {
		t.Errorf("unexpected sim config %+v", w)
	}

	if opts := cfg.WorldOptions(); len(opts) != 0 {
		t.Errorf("ramp disabled, expected no options, got %d", len(opts))
	}
	cfg.Ramp.Enabled = true
	if opts := cfg.WorldOptions(); len(opts) != 1 {
		t.Errorf("ramp enabled, expected one option, got %d", len(opts))
	}
}

func TestParsePreset(t *testing.T) {
	tests := []struct {
		in      string
		want    TrafficPreset
		wantErr bool
	}{
		{"", TrafficNormal, false},
		{"light", TrafficLight, false},
		{"HEAVY", TrafficHeavy, false},
		{"fixed", TrafficFixed, false},
		{"gridlock", "", true},
	}
	for _, tc := range tests {
		got, err := ParsePreset(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParsePreset(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestApplyTrafficPreset(t *testing.T) {
	tests := []struct {
		preset   TrafficPreset
		enabled  bool
		level    float64
		every    uint64
		maxSpeed float64
	}{
		{TrafficLight, true, 0.0, 120, 10},
		{TrafficNormal, true, 0.3, 60, 10},
		{TrafficHeavy, true, 0.7, 30, 14},
		{TrafficFixed, false, 0.0, 60, 10},
	}
	for _, tc := range tests {
		t.Run(string(tc.preset), func(t *testing.T) {
			cfg := DefaultSimConfig()
			ApplyTrafficPreset(&cfg, tc.preset)
			if cfg.Ramp.Enabled != tc.enabled || cfg.Ramp.InitialLevel != tc.level {
				t.Errorf("ramp = %+v", cfg.Ramp)
			}
			if cfg.Spawn.Every != tc.every || cfg.Vehicle.MaxSpeed != tc.maxSpeed {
				t.Errorf("every = %d, max speed = %v", cfg.Spawn.Every, cfg.Vehicle.MaxSpeed)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("preset config invalid: %v", err)
			}
		})
	}
}

func TestNewWorldAppliesRamp(t *testing.T) {
	tests := []struct {
		preset TrafficPreset
		want   uint64
	}{
		{TrafficFixed, 60},
		{TrafficLight, 120},
	}
	for _, tc := range tests {
		t.Run(string(tc.preset), func(t *testing.T) {
			cfg := DefaultSimConfig()
			ApplyTrafficPreset(&cfg, tc.preset)
			w, err := cfg.NewWorld(builtin.Crossroads(), 7)
			if err != nil {
				t.Fatalf("NewWorld: %v", err)
			}
			if got := w.SpawnInterval(); got != tc.want {
				t.Errorf("SpawnInterval() = %d, want %d", got, tc.want)
			}
		})
	}
}
