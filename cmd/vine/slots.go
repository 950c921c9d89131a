package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aretw0/vine"
	"github.com/aretw0/vine/internal/cli"
	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/spf13/cobra"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Manage save slots",
	Long:  `List, inspect, and remove the save slots of a story, using the store configured by VINE_STORE.`,
}

var slotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List occupied save slots",
	Run: func(cmd *cobra.Command, args []string) {
		engine, project := slotsEngine(cmd)

		slots, err := engine.Slots().List(cmd.Context(), project.ID)
		if err != nil {
			fmt.Printf("Error listing slots: %v\n", err)
			os.Exit(1)
		}

		if len(slots) == 0 {
			fmt.Println("No saved slots found.")
			return
		}

		fmt.Printf("Saved slots for '%s':\n", project.ID)
		for _, slot := range slots {
			snap, err := engine.Slots().Load(cmd.Context(), project.ID, slot)
			if err != nil {
				fmt.Printf("- %d\n", slot)
				continue
			}
			name := snap.SceneName
			if name == "" {
				name = snap.SceneID
			}
			fmt.Printf("- %d: %s (%s)\n", slot, name, snap.SavedAt.Local().Format(time.RFC822))
		}
	},
}

var slotsShowCmd = &cobra.Command{
	Use:   "show <slot>",
	Short: "Inspect the snapshot in a slot",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		slot := parseSlot(args[0])
		engine, project := slotsEngine(cmd)

		snap, err := engine.Slots().Load(cmd.Context(), project.ID, slot)
		if err != nil {
			fmt.Printf("Error loading slot %d: %v\n", slot, err)
			os.Exit(1)
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling snapshot: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(string(data))
	},
}

var slotsDeleteCmd = &cobra.Command{
	Use:   "delete <slot>...",
	Short: "Remove one or more save slots",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, project := slotsEngine(cmd)
		hasError := false

		for _, arg := range args {
			slot := parseSlot(arg)
			if err := engine.Slots().Delete(cmd.Context(), project.ID, slot); err != nil {
				fmt.Printf("Error removing slot %d: %v\n", slot, err)
				hasError = true
			} else {
				fmt.Printf("Removed slot %d\n", slot)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

// TODO: add --all to delete so a finished playtest can be wiped in one go

func init() {
	rootCmd.AddCommand(slotsCmd)
	slotsCmd.AddCommand(slotsListCmd)
	slotsCmd.AddCommand(slotsShowCmd)
	slotsCmd.AddCommand(slotsDeleteCmd)
}

func parseSlot(arg string) int {
	slot, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Printf("Invalid slot %q: want a number\n", arg)
		os.Exit(1)
	}
	return slot
}

// slotsEngine opens the story and the configured slot store. Slot commands
// need the project id to address saves, so the story document is loaded up
// front.
func slotsEngine(cmd *cobra.Command) (*vine.Engine, *domain.Project) {
	dir, _ := cmd.Flags().GetString("dir")

	cfg, err := cli.ParseEnv()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	engine, err := cli.ServerEngine(dir, cfg, logging.NewNop())
	if err != nil {
		fmt.Printf("Error initializing vine: %v\n", err)
		os.Exit(1)
	}

	project, err := engine.LoadProject(cmd.Context())
	if err != nil {
		fmt.Printf("Error loading story: %v\n", err)
		os.Exit(1)
	}
	return engine, project
}
