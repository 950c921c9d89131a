package main

import (
	"fmt"
	"os"

	"github.com/aretw0/vine/internal/cli"
	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the story for consistency",
	Long:  `Loads the story and reports dangling scene and variable references, unbalanced branch markers, broken expressions and unreachable scenes.`,
	Run: func(cmd *cobra.Command, args []string) {
		issues, err := runValidate(cmd, args)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		for _, issue := range issues {
			fmt.Println(issue)
		}
		if validator.HasErrors(issues) {
			os.Exit(1)
		}
		fmt.Println("Story is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) ([]validator.Issue, error) {
	storyPath, _ := cmd.Flags().GetString("dir")
	if !cmd.Flags().Changed("dir") && len(args) > 0 {
		storyPath = args[0]
	}

	engine, err := cli.StoryEngine(storyPath, logging.NewNop())
	if err != nil {
		return nil, fmt.Errorf("failed to init engine: %w", err)
	}

	return engine.Validate(cmd.Context())
}
