package main

import (
	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Corpus server via HTTP.

These commands require a running server (corpus serve).
Use --server to specify a custom server URL.

Examples:
  corpus api health                    # Check server health
  corpus api resources upload doc.pdf  # Upload a document
  corpus api jobs list                 # List all jobs`,
}

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Resource management commands",
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Job management commands",
}

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "Entity management commands",
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Pending entity review commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))

	for _, ep := range endpoints.ResourceCommands() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			resourcesCmd.AddCommand(cmd)
		}
	}
	for _, ep := range endpoints.JobCommands() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			jobsCmd.AddCommand(cmd)
		}
	}
	for _, ep := range endpoints.EntityCommands() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			entitiesCmd.AddCommand(cmd)
		}
	}
	for _, ep := range endpoints.PendingCommands() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			pendingCmd.AddCommand(cmd)
		}
	}

	apiCmd.AddCommand(resourcesCmd)
	apiCmd.AddCommand(jobsCmd)
	apiCmd.AddCommand(entitiesCmd)
	apiCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(apiCmd)
}
