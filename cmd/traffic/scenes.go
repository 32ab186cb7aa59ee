package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-traffic/internal/registry"
)

var scenesCmd = &cobra.Command{
	Use:   "scenes",
	Short: "List all available scenes",
	Long:  `Shows every registered scene: the built-in ones plus any loaded with --scene-file or from the configured scenes directory.`,
	Run:   runScenes,
}

func runScenes(_ *cobra.Command, _ []string) {
	scenes := registry.List()
	if len(scenes) == 0 {
		fmt.Println("No scenes available.")
		return
	}

	fmt.Println("Available scenes:")
	fmt.Println()

	maxIDLen := 2 // "ID" header
	for _, s := range scenes {
		maxIDLen = max(maxIDLen, len(s.ID))
	}

	fmt.Printf("  %-*s  %-24s  %s\n", maxIDLen, "ID", "Name", "Source")
	fmt.Printf("  %-*s  %-24s  %s\n", maxIDLen, "--", "----", "------")
	for _, s := range scenes {
		source := "built-in"
		if path, ok := sceneFiles[s.ID]; ok {
			source = path
		}
		fmt.Printf("  %-*s  %-24s  %s\n", maxIDLen, s.ID, s.Name, source)
	}

	fmt.Println()
	fmt.Println("Run 'traffic view <id>' to watch a scene.")
}
