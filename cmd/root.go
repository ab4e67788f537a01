package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "checkin-scanner",
	Short: "Check-in scanner: QR ticket scanning station for event organizers",
	Long:  `HTTP + WebSocket API. Commands: api, migrate, command, login, events, decode.`,
	RunE:  runAPI, // default: run API (same as "checkin-scanner api")
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(decodeCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
