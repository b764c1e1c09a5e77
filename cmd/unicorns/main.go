package main

import (
	"os"

	"github.com/alfredjeanlab/unicorns/internal/client"
	"github.com/alfredjeanlab/unicorns/internal/ui"
	"github.com/spf13/cobra"
)

var (
	httpURL    string
	authToken  string
	jsonOutput bool
	viewerName string

	dashClient client.DashboardClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("UNICORNS_HTTP_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:   "unicorns <command>",
	Short: "Linked-views dashboard over unicorn companies and their investors",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Setup()
		c := client.NewHTTPClient(httpURL, authToken)
		c.Viewer = viewerName
		dashClient = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dashClient != nil {
			dashClient.Close()
		}
	},
	SilenceUsage: true,
}

// localPreRun replaces the root hook for commands that never talk to a
// running server.
func localPreRun(cmd *cobra.Command, args []string) error {
	ui.Setup()
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "dashboard server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("UNICORNS_AUTH_TOKEN"), "bearer token for the dashboard API")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&viewerName, "viewer", os.Getenv("USER"), "name shown in the server's viewer roster")

	rootCmd.AddGroup(
		&cobra.Group{ID: "dashboard", Title: "Dashboard:"},
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Dashboard
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(scaleCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(viewersCmd)

	// Data
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(migrateCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
