package sim

import "github.com/vovakirdan/tui-traffic/internal/routing"

// Stats aggregates a run.
type Stats struct {
	Ticks        uint64
	Spawned      int
	Exited       int
	StoppedTicks uint64 // sum over ticks of vehicles at speed zero
	TransitTicks uint64 // sum over exited vehicles of ticks on the network
	SpeedSum     float64
	SpeedSamples uint64
}

// MeanSpeed is the average vehicle speed over every vehicle-tick.
func (s Stats) MeanSpeed() float64 {
	if s.SpeedSamples == 0 {
		return 0
	}
	return s.SpeedSum / float64(s.SpeedSamples)
}

// MeanTransit is the average time on the network, in seconds, of vehicles
// that exited.
func (s Stats) MeanTransit() float64 {
	if s.Exited == 0 {
		return 0
	}
	return float64(s.TransitTicks) / float64(s.Exited) / routing.TickRate
}

// Throughput is exited vehicles per simulated minute.
func (s Stats) Throughput() float64 {
	if s.Ticks == 0 {
		return 0
	}
	minutes := float64(s.Ticks) / routing.TickRate / 60
	return float64(s.Exited) / minutes
}

// StoppedShare is the fraction of vehicle-ticks spent at speed zero.
func (s Stats) StoppedShare() float64 {
	if s.SpeedSamples == 0 {
		return 0
	}
	return float64(s.StoppedTicks) / float64(s.SpeedSamples)
}
