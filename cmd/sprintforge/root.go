package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sprintforge",
	Short: "Stage-completion backend for guided idea intake",
	Long: `SprintForge runs the backend behind an eight-stage guided idea intake.

When a session reaches the final stage, the server orchestrates the
completion sequence: it syncs the team roster, creates the project,
re-parents source documents, generates and validates a four-week sprint
plan, and hands narrative generation to a background pool, streaming
progress events to the client over NDJSON as each step runs.

Core commands:
  serve   run the HTTP server
  watch   trigger a completion run and watch it as a live checklist
  seed    load roster/session fixtures from a YAML file
  config  view or modify configuration`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
