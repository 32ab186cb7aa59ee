package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-traffic/internal/routing"
	"github.com/vovakirdan/tui-traffic/internal/scene"
)

var flagValidateTicks uint64

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check scene files",
	Long: `Parse each scene file, check it against the scene schema and validate
its road network: duplicate tiles, intersections without exits for an
arrival, devices and spawns off the network.

With --ticks the scene is also simulated, which catches vehicles driving
off the network.

Examples:
  traffic validate ./configs/scenes/junction.yaml
  traffic validate --ticks 3600 ./my-scene.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Uint64Var(&flagValidateTicks, "ticks", 0, "Also simulate this many ticks")
}

func runValidate(_ *cobra.Command, args []string) error {
	var failed int
	for _, path := range args {
		if err := validateFile(path); err != nil {
			failed++
			fmt.Printf("FAIL  %s\n      %v\n", path, err)
			var verr *routing.ValidationError
			if errors.As(err, &verr) {
				fmt.Printf("      code: %s\n", verr.Code)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scene files invalid", failed, len(args))
	}
	return nil
}

func validateFile(path string) error {
	sc, err := scene.LoadFile(path)
	if err != nil {
		return err
	}

	tm, err := sc.TileMap()
	if err != nil {
		return err
	}

	if flagValidateTicks > 0 {
		w, err := simConfig.NewWorld(sc, resolveSeed())
		if err != nil {
			return err
		}
		if err := w.Run(flagValidateTicks); err != nil {
			return fmt.Errorf("simulating: %w", err)
		}
	}

	fmt.Printf("ok    %s  %s (%d tiles, %d stop signs, %d stoplights, %d spawns)\n",
		path, sc.ID, tm.Len(), len(sc.StopSigns), len(sc.Stoplights), len(sc.Spawns))
	return nil
}
