package main

import (
	"storyteller/internal/api"
	"storyteller/internal/server/endpoints"
)

var serverURL string

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	registry := api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{}) {
		registry.Register(ep)
	}

	apiCmd := registry.BuildCommands(getServerURL)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:9170", "Server URL",
	)

	rootCmd.AddCommand(apiCmd)
}
