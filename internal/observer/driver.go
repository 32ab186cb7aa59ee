package observer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-traffic/internal/sim"
)

// Publisher receives one frame per driven tick.
type Publisher interface {
	Publish(sim.Snapshot) error
}

// Drive steps w at tickRate ticks per second, publishing every frame, until
// ctx is cancelled or a step fails. A cancelled context is not an error.
func Drive(ctx context.Context, w *sim.World, tickRate int, pub Publisher, logger *log.Logger) error {
	if tickRate <= 0 {
		return fmt.Errorf("observer: tick rate must be positive, got %d", tickRate)
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res, err := w.Step()
			if err != nil {
				return fmt.Errorf("observer: %w", err)
			}
			if err := pub.Publish(w.Frame()); err != nil {
				return err
			}
			if logger != nil && res.Tick%(uint64(tickRate)*60) == 0 {
				st := w.Stats()
				logger.Info("world running", "tick", res.Tick, "vehicles", res.Vehicles,
					"exited", st.Exited, "throughput", fmt.Sprintf("%.1f/min", st.Throughput()))
			}
		}
	}
}
