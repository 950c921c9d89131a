package main

import (
	"fmt"
	"os"

	"github.com/aretw0/vine/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play a story in the terminal",
	Long:  `Starts an interactive playthrough of the story in the current directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		storyPath, _ := cmd.Flags().GetString("dir")
		if !cmd.Flags().Changed("dir") && len(args) > 0 {
			storyPath = args[0]
		}

		opts := cli.RunOptions{
			LibraryPath: storyPath,
			Slot:        -1,
		}
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Store, _ = cmd.Flags().GetString("store")
		opts.Audio, _ = cmd.Flags().GetBool("audio")
		if cmd.Flags().Changed("slot") {
			opts.Slot, _ = cmd.Flags().GetInt("slot")
		}

		if opts.Watch && opts.Headless {
			fmt.Println("Error: --watch and --headless cannot be used together.")
			os.Exit(1)
		}
		if opts.Watch && cmd.Flags().Changed("slot") {
			fmt.Println("Error: --watch keeps its own ephemeral saves; --slot has no effect there.")
			os.Exit(1)
		}

		if err := cli.Execute(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("headless", false, "Run without prompts or stage directions (scripted playthroughs)")
	runCmd.Flags().BoolP("watch", "w", false, "Development mode: reload the story when its files change")
	runCmd.Flags().Bool("debug", false, "Log interpreter internals to stderr")
	runCmd.Flags().Int("slot", 0, "Resume from a save slot")
	runCmd.Flags().String("store", "", "Save-slot backend: file, memory, redis or sqlite (default from VINE_STORE)")
	runCmd.Flags().Bool("audio", false, "Play story audio through the system output device")

	// Make 'run' the default command.
	rootCmd.Run = runCmd.Run
}
