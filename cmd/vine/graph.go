package main

import (
	"fmt"
	"os"

	"github.com/aretw0/vine"
	"github.com/aretw0/vine/internal/cli"
	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the scene graph visualization",
	Long: `Loads the story and outputs a Mermaid diagram (graph TD) of scene
navigation: jumps, choices, scene calls and fallback routing. With --slot,
marks the scenes a saved playthrough has on its call stack and highlights
the scene it is suspended in.`,
	Run: func(cmd *cobra.Command, args []string) {
		storyPath, _ := cmd.Flags().GetString("dir")
		if !cmd.Flags().Changed("dir") && len(args) > 0 {
			storyPath = args[0]
		}

		logger := logging.NewNop()

		var engine *vine.Engine
		var err error
		if cmd.Flags().Changed("slot") {
			// The overlay reads a save slot, so the configured store is wired.
			var cfg cli.Config
			cfg, err = cli.ParseEnv()
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			engine, err = cli.ServerEngine(storyPath, cfg, logger)
		} else {
			engine, err = cli.StoryEngine(storyPath, logger)
		}
		if err != nil {
			fmt.Printf("Error initializing vine: %v\n", err)
			os.Exit(1)
		}

		project, err := engine.LoadProject(cmd.Context())
		if err != nil {
			fmt.Printf("Error loading story: %v\n", err)
			os.Exit(1)
		}

		var overlay *graph.Overlay
		if cmd.Flags().Changed("slot") {
			slot, _ := cmd.Flags().GetInt("slot")
			snap, err := engine.Slots().Load(cmd.Context(), project.ID, slot)
			if err != nil {
				fmt.Printf("Error loading slot %d: %v\n", slot, err)
				os.Exit(1)
			}
			visited := make([]string, 0, len(snap.Stack))
			for _, frame := range snap.Stack {
				visited = append(visited, frame.SceneID)
			}
			overlay = &graph.Overlay{
				VisitedScenes: visited,
				CurrentScene:  snap.SceneID,
			}
		}

		// Generate and print Mermaid graph
		output := graph.GenerateMermaid(project, overlay)
		fmt.Print(output)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().Int("slot", 0, "Overlay the playthrough position saved in this slot")
}
