package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-traffic/internal/config"
	"github.com/vovakirdan/tui-traffic/internal/registry"
	"github.com/vovakirdan/tui-traffic/internal/routing"
	"github.com/vovakirdan/tui-traffic/internal/sim"
	"github.com/vovakirdan/tui-traffic/internal/storage"
	"github.com/vovakirdan/tui-traffic/internal/trace"
)

var (
	flagTicks    uint64
	flagTrace    bool
	flagTraceDir string
	flagNoSave   bool
)

var runCmd = &cobra.Command{
	Use:   "run <scene>",
	Short: "Simulate a scene headless",
	Long: `Run a scene for a fixed number of ticks without a display, print a
summary and save it to the runs database.

With --trace every recorded tick is written to a zstd-compressed JSONL file
that 'traffic trace --verify' can replay.

Examples:
  traffic run crossroads
  traffic run stopsign --ticks 36000 --seed 7
  traffic run crossroads --preset heavy --trace`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Uint64Var(&flagTicks, "ticks", 0, "Ticks to simulate (default: run.ticks from the config)")
	runCmd.Flags().BoolVar(&flagTrace, "trace", false, "Record a replayable trace")
	runCmd.Flags().StringVar(&flagTraceDir, "trace-dir", "", "Trace directory (default: trace.dir from the config)")
	runCmd.Flags().BoolVar(&flagNoSave, "no-save", false, "Do not save the run")
}

// resolveSeed returns --seed, or a time-based seed when it is zero.
func resolveSeed() int64 {
	if flagSeed != 0 {
		return flagSeed
	}
	return time.Now().UnixNano()
}

func runRun(_ *cobra.Command, args []string) error {
	sceneID := args[0]
	if err := requireScene(sceneID); err != nil {
		return err
	}

	ticks := simConfig.Run.Ticks
	if flagTicks > 0 {
		ticks = flagTicks
	}
	seed := resolveSeed()
	runID := uuid.NewString()

	sc, err := registry.Create(sceneID)
	if err != nil {
		return err
	}
	w, err := simConfig.NewWorld(sc, seed, sim.WithLogger(logger.WithPrefix("sim")))
	if err != nil {
		return err
	}

	var rec *trace.Recorder
	if flagTrace || simConfig.Trace.Enabled {
		dir := simConfig.Trace.Dir
		if flagTraceDir != "" {
			dir = flagTraceDir
		}
		dir, err = config.ExpandHome(dir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating trace directory: %w", err)
		}
		rec, err = trace.Create(trace.FileName(dir, sceneID, runID), trace.Header{
			RunID:     runID,
			Scene:     sceneID,
			SceneFile: sceneFiles[sceneID],
			Config:    simConfig.World(seed),
			Ramp:      simConfig.Ramp,
			Tiles:     sim.TileViews(w.Tiles()),
		}, simConfig.Trace.Every)
		if err != nil {
			return err
		}
		defer rec.Close()
	}

	logger.Info("run started", "scene", sceneID, "seed", seed, "ticks", ticks, "preset", presetName())
	start := time.Now()
	progressEvery := uint64(10 * 60 * routing.TickRate)
	for w.Tick() < ticks {
		res, err := w.Step()
		if err != nil {
			return fmt.Errorf("tick %d: %w", w.Tick(), err)
		}
		if rec != nil {
			if err := rec.Observe(w, res); err != nil {
				return err
			}
		}
		if res.Tick%progressEvery == 0 {
			logger.Debug("progress", "tick", res.Tick, "vehicles", res.Vehicles, "exited", w.Stats().Exited)
		}
	}
	elapsed := time.Since(start)

	record := storage.NewRunRecord(sceneID, seed, presetName(), w.Stats())
	record.RunID = runID
	if rec != nil {
		if err := rec.Close(); err != nil {
			return err
		}
		record.TracePath = rec.Path()
		logger.Info("trace written", "path", rec.Path(), "frames", rec.Frames())
	}

	if !flagNoSave {
		store, err := storage.Open(flagDBPath)
		if err != nil {
			logger.Warn("could not open runs database", "err", err)
		} else {
			if _, err := store.SaveRun(record); err != nil {
				logger.Warn("run not saved", "err", err)
			}
			store.Close()
		}
	}

	logger.Info("run finished", "scene", sceneID, "ticks", w.Tick(), "elapsed", elapsed.Round(time.Millisecond))
	printRun(record)
	return nil
}

func printRun(r storage.RunRecord) {
	fmt.Printf("Run %s - %s\n", r.RunID, r.SceneID)
	fmt.Println()
	fmt.Printf("  %-14s %d\n", "Seed", r.Seed)
	fmt.Printf("  %-14s %s\n", "Preset", r.Preset)
	fmt.Printf("  %-14s %d (%.1fs)\n", "Ticks", r.Ticks, float64(r.Ticks)/routing.TickRate)
	fmt.Printf("  %-14s %d\n", "Spawned", r.Spawned)
	fmt.Printf("  %-14s %d\n", "Exited", r.Exited)
	fmt.Printf("  %-14s %.1f per minute\n", "Throughput", r.Throughput)
	fmt.Printf("  %-14s %.2f\n", "Mean speed", r.MeanSpeed)
	fmt.Printf("  %-14s %.1fs\n", "Mean transit", r.MeanTransit)
	fmt.Printf("  %-14s %.1f%%\n", "Stopped", r.StoppedShare*100)
	if r.TracePath != "" {
		fmt.Printf("  %-14s %s\n", "Trace", r.TracePath)
	}
}
