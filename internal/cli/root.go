package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath  string
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "lpforge",
	Short: "lpforge - landing pages with built-in A/B testing",
	Long: `lpforge builds landing pages from AI-generated sections, runs A/B
tests against page components, and reports conversion results.
Single Go binary, embedded SQLite.

Running without a subcommand starts the server (same as 'lpforge serve').`,
	RunE: runServe, // Default action is to start the server
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("LPFORGE_DB_PATH", "./lpforge.db"), "database path")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", getEnvOrDefault("LPFORGE_CONFIG", "./lpforge.yaml"), "config file path")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
