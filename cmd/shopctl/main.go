// Command shopctl is the operator tool for the itinerary service: it migrates
// the schema, previews the prompt sent for a part and normalizes saved model
// answers offline.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	ownerID  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "shopctl",
	Short:         "Machine shop itinerary tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "", "owner user id (default $SHOP_OWNER_ID)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(normalizeCmd, promptCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
