package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-traffic/internal/platform/tui"
	"github.com/vovakirdan/tui-traffic/internal/storage"
)

var (
	flagRunsLimit  int
	flagRunsRecent bool
	flagRunsClear  bool
	flagRunsID     string
	flagRunsBoard  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs [scene]",
	Short: "Show saved runs",
	Long: `Display saved runs.

Without a scene, prints one line per scene with its run count and best
throughput. With a scene, prints its best runs by throughput, or the most
recent ones with --recent.

Examples:
  traffic runs
  traffic runs crossroads
  traffic runs crossroads --recent --limit 20
  traffic runs --id 4b7c...
  traffic runs --board`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 10, "Number of runs to show")
	runsCmd.Flags().BoolVar(&flagRunsRecent, "recent", false, "Order by date instead of throughput")
	runsCmd.Flags().BoolVar(&flagRunsClear, "clear", false, "Delete the saved runs of the scene")
	runsCmd.Flags().StringVar(&flagRunsID, "id", "", "Show a single run by ID")
	runsCmd.Flags().BoolVar(&flagRunsBoard, "board", false, "Browse runs interactively")
}

func runRuns(_ *cobra.Command, args []string) error {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		return fmt.Errorf("opening runs database: %w", err)
	}
	defer store.Close()

	switch {
	case flagRunsBoard:
		cfg := terminalConfig()
		_, err := tui.RunRunsBoard(store, cfg.ScreenW, cfg.ScreenH)
		return err

	case flagRunsID != "":
		rec, err := store.RunByID(flagRunsID)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no run with id %q", flagRunsID)
		}
		printRun(*rec)
		return nil

	case len(args) == 0:
		if flagRunsClear {
			return fmt.Errorf("--clear needs a scene")
		}
		return printSummaries(store)
	}

	sceneID := args[0]
	if flagRunsClear {
		if err := store.ClearRuns(sceneID); err != nil {
			return err
		}
		fmt.Printf("Cleared runs for %s\n", sceneID)
		return nil
	}

	var runs []storage.RunRecord
	if flagRunsRecent {
		runs, err = store.RecentRuns(sceneID, flagRunsLimit)
	} else {
		runs, err = store.TopRuns(sceneID, flagRunsLimit)
	}
	if err != nil {
		return fmt.Errorf("retrieving runs: %w", err)
	}

	fmt.Printf("Runs - %s\n", sceneID)
	fmt.Println()

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		fmt.Println()
		fmt.Printf("Run 'traffic run %s' to record one.\n", sceneID)
		return nil
	}

	fmt.Printf("  %-4s  %-9s  %-6s  %-6s  %-8s  %-20s  %s\n", "#", "Thru/min", "Exited", "Speed", "Transit", "Seed", "Date")
	fmt.Printf("  %-4s  %-9s  %-6s  %-6s  %-8s  %-20s  %s\n", "-", "--------", "------", "-----", "-------", "----", "----")
	for i, r := range runs {
		fmt.Printf("  %-4d  %-9.1f  %-6d  %-6.1f  %-8s  %-20d  %s\n",
			i+1, r.Throughput, r.Exited, r.MeanSpeed, fmt.Sprintf("%.1fs", r.MeanTransit),
			r.Seed, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}

	if best, err := store.BestThroughput(sceneID); err == nil {
		fmt.Println()
		fmt.Printf("Best: %.1f per minute\n", best)
	}
	return nil
}

func printSummaries(store *storage.Store) error {
	sums, err := store.SceneSummaries()
	if err != nil {
		return fmt.Errorf("retrieving runs: %w", err)
	}
	if len(sums) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("  %-16s  %-5s  %-9s  %-9s  %s\n", "Scene", "Runs", "Best/min", "Avg/min", "Last run")
	fmt.Printf("  %-16s  %-5s  %-9s  %-9s  %s\n", "-----", "----", "--------", "-------", "--------")
	for _, s := range sums {
		fmt.Printf("  %-16s  %-5d  %-9.1f  %-9.1f  %s\n",
			s.SceneID, s.Runs, s.BestThroughput, s.AvgThroughput, s.LastRun.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
