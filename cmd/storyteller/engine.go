package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storyteller/internal/config"
	"storyteller/internal/enginectl"
	"storyteller/internal/home"
)

var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Manage the llama-server container",
	Long: `Manage the llama-server Docker container lifecycle.

The container serves a local GGUF model over an OpenAI-compatible API.
Model files live in ~/.storyteller/models and the model to load is set
via container.model_file in the config.

Examples:
  storyteller engine start   # Start the llama-server container
  storyteller engine stop    # Stop the container
  storyteller engine status  # Check container status
  storyteller engine logs    # View container logs`,
}

var engineStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the llama-server container",
	Long: `Start the llama-server container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getEngineManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting llama-server...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start llama-server: %w", err)
		}

		fmt.Printf("llama-server is running at %s\n", mgr.URL())
		return nil
	},
}

var engineStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the llama-server container",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getEngineManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping llama-server...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop llama-server: %w", err)
		}

		fmt.Println("llama-server stopped")
		return nil
	},
}

var engineStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show llama-server container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getEngineManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case enginectl.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URL: %s\n", mgr.URL())
		case enginectl.StatusStopped:
			fmt.Printf("Status: %s (use 'storyteller engine start' to start)\n", status)
		case enginectl.StatusNotFound:
			fmt.Printf("Status: %s (use 'storyteller engine start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var engineLogsTail string

var engineLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show llama-server container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getEngineManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(ctx, engineLogsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var engineRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the llama-server container",
	Long: `Remove the llama-server container.

This stops and removes the container. Model files in
~/.storyteller/models are NOT deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getEngineManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing llama-server container...")
		if err := mgr.Remove(ctx); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("llama-server container removed (models preserved)")
		return nil
	},
}

var engineWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for llama-server to be ready",
	Long: `Wait for llama-server to be ready to accept requests.

Useful in scripts to ensure the model is fully loaded before starting
an analysis run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getEngineManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		fmt.Printf("Waiting for llama-server (timeout: %s)...\n", timeout)

		if err := mgr.WaitReady(ctx, timeout); err != nil {
			return fmt.Errorf("llama-server not ready: %w", err)
		}

		fmt.Println("llama-server is ready")
		return nil
	},
}

func init() {
	engineCmd.AddCommand(engineStartCmd)
	engineCmd.AddCommand(engineStopCmd)
	engineCmd.AddCommand(engineStatusCmd)
	engineCmd.AddCommand(engineLogsCmd)
	engineCmd.AddCommand(engineRemoveCmd)
	engineCmd.AddCommand(engineWaitCmd)

	engineLogsCmd.Flags().StringVar(&engineLogsTail, "tail", "100", "Number of lines to show from the end")
	engineWaitCmd.Flags().Duration("timeout", 2*time.Minute, "Timeout waiting for llama-server")

	rootCmd.AddCommand(engineCmd)
}

// getEngineManager creates a container manager from the current config.
func getEngineManager() (*enginectl.Manager, error) {
	h, err := getHome()
	if err != nil {
		return nil, err
	}
	return engineManagerFor(h)
}

func engineManagerFor(h *home.Dir) (*enginectl.Manager, error) {
	cm, err := config.NewManager(configPath(h))
	if err != nil {
		return nil, err
	}
	c := cm.Get()

	return enginectl.NewManager(enginectl.Config{
		ContainerName: c.Container.ContainerName,
		Image:         c.Container.Image,
		ModelsPath:    h.ModelsPath(),
		ModelFile:     c.Container.ModelFile,
		HostPort:      c.Container.Port,
		CtxSize:       c.Container.CtxSize,
	})
}
