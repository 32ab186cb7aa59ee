// traffic is a tile-grid traffic simulator with a terminal viewer.
//
// Usage:
//
//	traffic scenes             - List available scenes
//	traffic run <scene>        - Simulate headless and print a summary
//	traffic view <scene>       - Watch a scene in the terminal
//	traffic menu               - Pick scenes interactively
//	traffic serve              - Serve the viewer over SSH
//	traffic runs [scene]       - Show saved runs
//	traffic validate <file>    - Check a scene file
//	traffic trace <file>       - Summarize or verify a recorded trace
//
// Global flags:
//
//	--fps <rate>          - Viewer frame rate (default: 60)
//	--seed <value>        - RNG seed for reproducible runs
//	--db <path>           - Runs database (default: ~/.traffic/runs.db)
//	--config <path>       - Simulation config YAML
//	--preset <name>       - Traffic preset: light, normal, heavy, fixed
//	--scene-file <path>   - Register extra scenes from YAML files
//	--log-level <level>   - debug, info, warn, error
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-traffic/internal/config"
	"github.com/vovakirdan/tui-traffic/internal/registry"
	"github.com/vovakirdan/tui-traffic/internal/scene"
	_ "github.com/vovakirdan/tui-traffic/internal/scene/builtin"
)

var (
	// Global flags
	flagFPS        int
	flagSeed       int64
	flagDBPath     string
	flagConfig     string
	flagPreset     string
	flagSceneFiles []string
	flagLogLevel   string
)

// Resolved by setup before any subcommand runs.
var (
	logger     *log.Logger
	simConfig  config.SimConfig
	preset     config.TrafficPreset
	sceneFiles = make(map[string]string) // scene ID -> file path
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "traffic",
	Short: "Tile-grid traffic simulator",
	Long: `traffic simulates cars driving a grid of road tiles through stop signs
and stoplights, and shows the result in your terminal.

Available commands:
  scenes    - Show all available scenes
  run       - Simulate a scene headless
  view      - Watch a scene live
  menu      - Interactive scene picker
  serve     - Start SSH server for remote viewing
  runs      - Saved run history
  validate  - Check a scene file
  trace     - Inspect or verify a recorded trace

Examples:
  traffic scenes
  traffic run crossroads --ticks 36000 --trace
  traffic view stopsign --preset heavy
  traffic serve --ssh :2222 --observe 127.0.0.1:8080
  traffic validate ./configs/scenes/junction.yaml`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flagFPS, "fps", 60, "Viewer frame rate")
	pf.Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	pf.StringVar(&flagDBPath, "db", "~/.traffic/runs.db", "Path to runs database")
	pf.StringVar(&flagConfig, "config", "", "Path to simulation config YAML")
	pf.StringVar(&flagPreset, "preset", "", "Traffic preset: light, normal, heavy, fixed")
	pf.StringSliceVar(&flagSceneFiles, "scene-file", nil, "Scene YAML file to register (repeatable)")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(scenesCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(traceCmd)
}

// setup resolves logging, configuration and extra scenes.
func setup(_ *cobra.Command, _ []string) error {
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		return err
	}
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "traffic",
		Level:           level,
	})

	simConfig, err = config.LoadSim(flagConfig)
	if err != nil {
		return err
	}

	// Without --preset the config file is used as written.
	if flagPreset != "" {
		if preset, err = config.ParsePreset(flagPreset); err != nil {
			return err
		}
		config.ApplyTrafficPreset(&simConfig, preset)
	}
	if err := simConfig.Validate(); err != nil {
		return err
	}

	if dir := simConfig.Run.ScenesDir; dir != "" {
		if dir, err = config.ExpandHome(dir); err != nil {
			return err
		}
		scenes, err := scene.NewLoader(dir).LoadAll()
		if err != nil {
			logger.Warn("scenes directory skipped", "dir", dir, "err", err)
		}
		for _, sc := range scenes {
			if err := registerScene(sc); err != nil {
				logger.Warn("scene skipped", "file", sc.FilePath, "err", err)
			}
		}
	}
	for _, path := range flagSceneFiles {
		sc, err := scene.LoadFile(path)
		if err != nil {
			return err
		}
		if err := registerScene(sc); err != nil {
			return err
		}
	}
	return nil
}

// presetName is recorded with saved runs.
func presetName() string {
	if preset == "" {
		return "config"
	}
	return string(preset)
}

func registerScene(sc *scene.Scene) error {
	if err := registry.Add(sc.ID, func() *scene.Scene {
		c := *sc
		return &c
	}); err != nil {
		return err
	}
	sceneFiles[sc.ID] = sc.FilePath
	logger.Debug("scene registered", "id", sc.ID, "file", sc.FilePath)
	return nil
}

// requireScene checks that a scene is registered.
func requireScene(id string) error {
	if registry.Exists(id) {
		return nil
	}
	var ids []string
	for _, s := range registry.List() {
		ids = append(ids, s.ID)
	}
	return fmt.Errorf("unknown scene %q (available: %s)", id, strings.Join(ids, ", "))
}
