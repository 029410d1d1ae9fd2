package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyteller/internal/api"
	"storyteller/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage storyteller configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a default config file to ~/.storyteller/config.yaml.

Fails if the file already exists; edit it in place instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		if h.ConfigExists() {
			return fmt.Errorf("config already exists at %s", h.ConfigPath())
		}
		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", h.ConfigPath())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		cm, err := config.NewManager(configPath(h))
		if err != nil {
			return err
		}
		return api.Output(cm.Get())
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
