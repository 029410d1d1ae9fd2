package main

import (
	"github.com/spf13/cobra"

	"storyteller/internal/api"
	"storyteller/internal/server/endpoints"
)

// Top-level shortcuts for the most used API commands.
func init() {
	booksCmd := &cobra.Command{
		Use:   "books",
		Short: "Book management commands",
	}
	booksCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:9170", "Server URL",
	)
	for _, ep := range []api.Endpoint{
		&endpoints.ListBooksEndpoint{},
		&endpoints.GetBookEndpoint{},
		&endpoints.IngestEndpoint{},
		&endpoints.DeleteBookEndpoint{},
		&endpoints.FindingsEndpoint{},
		&endpoints.ListLLMCallsEndpoint{},
	} {
		booksCmd.AddCommand(ep.Command(getServerURL))
	}

	analyzeCmd := (&endpoints.AnalyzeEndpoint{}).Command(getServerURL)
	analyzeCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:9170", "Server URL",
	)

	rootCmd.AddCommand(booksCmd)
	rootCmd.AddCommand(analyzeCmd)
}
