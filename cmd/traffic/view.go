package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/tui-traffic/internal/core"
	"github.com/vovakirdan/tui-traffic/internal/platform/tui"
	"github.com/vovakirdan/tui-traffic/internal/sim"
	"github.com/vovakirdan/tui-traffic/internal/storage"
)

var viewCmd = &cobra.Command{
	Use:   "view <scene>",
	Short: "Watch a scene live",
	Long: `Run a scene in the terminal.

Controls:
  P/Space    - Pause or resume
  N/Right    - Step one tick while paused
  +/-        - Faster / slower
  R          - Restart with the same seed
  S          - Restart with a new seed
  ?          - Show all keys
  Ctrl+S     - Save a screenshot to ~/.traffic/screenshots
  Q/Ctrl+C   - Quit

The run is saved to the runs database when you leave.

Examples:
  traffic view crossroads
  traffic view stopsign --seed 7 --preset heavy`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

// terminalConfig sizes the runtime config to the terminal.
func terminalConfig() core.RuntimeConfig {
	width, height := 80, 24
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width, height = w, h
	}
	return core.RuntimeConfig{
		ScreenW:  width,
		ScreenH:  height,
		TickRate: flagFPS,
		Seed:     flagSeed,
	}
}

// openStore opens the runs database, warning and continuing without it on
// failure.
func openStore() *storage.Store {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		logger.Warn("could not open runs database", "err", err)
		return nil
	}
	return store
}

func viewerOptions(sceneID string, store *storage.Store) (tui.ViewerOptions, error) {
	palette, err := simConfig.View.Colors.Palette()
	if err != nil {
		return tui.ViewerOptions{}, err
	}
	// The viewer owns the terminal, so only warnings reach stderr.
	quiet := logger.WithPrefix("viewer")
	quiet.SetLevel(max(logger.GetLevel(), log.WarnLevel))
	return tui.ViewerOptions{
		SceneID:       sceneID,
		Build:         tui.SceneBuilder(sceneID, simConfig, sim.WithLogger(quiet)),
		Palette:       palette,
		TicksPerFrame: simConfig.View.TicksPerFrame,
		Preset:        presetName(),
		Store:         store,
		Logger:        quiet,
	}, nil
}

func runView(_ *cobra.Command, args []string) error {
	sceneID := args[0]
	if err := requireScene(sceneID); err != nil {
		return err
	}

	store := openStore()
	if store != nil {
		defer store.Close()
	}

	opts, err := viewerOptions(sceneID, store)
	if err != nil {
		return err
	}
	if err := tui.RunViewer(opts, terminalConfig()); err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}
