package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-traffic/internal/registry"
	"github.com/vovakirdan/tui-traffic/internal/routing"
	"github.com/vovakirdan/tui-traffic/internal/scene"
	"github.com/vovakirdan/tui-traffic/internal/sim"
	"github.com/vovakirdan/tui-traffic/internal/trace"
)

var flagTraceVerify bool

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Summarize or verify a recorded trace",
	Long: `Read a trace written by 'traffic run --trace' and print its header and
totals. With --verify the run is rebuilt from the header and replayed, and
every recorded frame's digest is compared with the replay.

Examples:
  traffic trace ~/.traffic/traces/crossroads_4b7c.jsonl.zst
  traffic trace --verify ./run.jsonl.zst`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	traceCmd.Flags().BoolVar(&flagTraceVerify, "verify", false, "Replay the run and compare every frame")
}

func runTrace(_ *cobra.Command, args []string) error {
	path := args[0]

	s, err := trace.Summarize(path)
	if err != nil {
		return err
	}
	h := s.Header

	fmt.Printf("Trace %s\n", path)
	fmt.Println()
	fmt.Printf("  %-12s %s\n", "Run", h.RunID)
	fmt.Printf("  %-12s %s\n", "Scene", h.Scene)
	if h.SceneFile != "" {
		fmt.Printf("  %-12s %s\n", "Scene file", h.SceneFile)
	}
	fmt.Printf("  %-12s %d\n", "Seed", h.Config.Seed)
	fmt.Printf("  %-12s every %d ticks\n", "Recorded", h.Every)
	fmt.Printf("  %-12s %d (ticks %d-%d, %.1fs)\n", "Frames", s.Frames, s.FirstTick, s.LastTick,
		float64(s.LastTick)/routing.TickRate)
	fmt.Printf("  %-12s %d\n", "Peak cars", s.PeakVehicle)
	fmt.Printf("  %-12s %d spawned, %d exited\n", "Vehicles", s.Spawned, s.Exited)

	if !flagTraceVerify {
		return nil
	}

	checked, err := trace.Verify(path, rebuildFromHeader)
	if err != nil {
		return fmt.Errorf("verify failed after %d frames: %w", checked, err)
	}
	fmt.Println()
	fmt.Printf("Replay matches: %d frames verified\n", checked)
	return nil
}

// rebuildFromHeader recreates the recorded world, reloading the scene file
// when the run used one.
func rebuildFromHeader(h trace.Header) (trace.Stepper, error) {
	var (
		sc  *scene.Scene
		err error
	)
	if h.SceneFile != "" {
		sc, err = scene.LoadFile(h.SceneFile)
	} else {
		sc, err = registry.Create(h.Scene)
	}
	if err != nil {
		return nil, err
	}
	return sim.New(sc, h.Config, h.Options()...)
}
