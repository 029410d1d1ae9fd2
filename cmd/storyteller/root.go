package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyteller/internal/api"
	"storyteller/internal/home"
	"storyteller/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "storyteller",
	Short: "Multi-pass LLM analysis pipeline for books",
	Long: `Storyteller ingests books and runs a multi-pass LLM analysis over them.

The passes extract:
  - Characters with traits and supporting dialog
  - Per-chapter dialog attribution
  - Plot points, foreshadowing, and themes
  - Narration voice profiles per character

Every pass checkpoints its progress, so interrupted runs resume where
they left off instead of repeating inference calls.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ~/.storyteller/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "storyteller home directory (default: ~/.storyteller)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// getHome returns the home directory manager.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// configPath resolves the config file path, preferring the --config flag.
func configPath(h *home.Dir) string {
	if cfgFile != "" {
		return cfgFile
	}
	if h.ConfigExists() {
		return h.ConfigPath()
	}
	return ""
}
