package main

import (
	"github.com/spf13/cobra"

	"github.com/mkandasamy/deedflow/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running deedflow server via HTTP.

These commands require a running server (deedflow serve).
Use --server to specify a custom server URL.

Examples:
  deedflow api health                          # Check server health
  deedflow api process deed.pdf --client kumar # Upload and process a document
  deedflow api stream <document-id>            # Follow live progress
  deedflow api documents get <document-id>     # Fetch the processed record`,
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Document record commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8000", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	// Processing commands at top level of api
	apiCmd.AddCommand((&endpoints.ProcessEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ProcessMultipleEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StreamEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.DocumentStatusEndpoint{}).Command(getServerURL))

	// Document records as subcommand group
	documentsCmd.AddCommand((&endpoints.GetDocumentEndpoint{}).Command(getServerURL))
	documentsCmd.AddCommand((&endpoints.DeleteDocumentEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(apiCmd)
}
