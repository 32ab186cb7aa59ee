package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-traffic/internal/platform/tui"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Pick scenes interactively",
	Long: `Start the scene picker.

Use arrow keys or j/k to navigate, Enter to watch a scene and Tab for the
saved runs board. Leaving the viewer returns to the picker.

Examples:
  traffic menu
  traffic menu --fps 30
  traffic menu --preset light`,
	Run: runMenu,
}

func runMenu(_ *cobra.Command, _ []string) {
	store := openStore()
	cfg := terminalConfig()

	for {
		result, err := tui.RunMenu(store, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			break
		}
		cfg = result.Config

		if result.Quit {
			break
		}

		if result.WantsRuns {
			goBack, err := tui.RunRunsBoard(store, cfg.ScreenW, cfg.ScreenH)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			if goBack {
				continue
			}
			break
		}

		opts, err := viewerOptions(result.SceneID, store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			break
		}
		viewCfg := cfg
		viewCfg.Seed = flagSeed
		if err := tui.RunViewer(opts, viewCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error running viewer: %v\n", err)
		}
	}

	if store != nil {
		store.Close()
	}
}
