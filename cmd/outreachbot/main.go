// Package main is the outreachbot command line: it schedules and sends
// connection requests under strict daily limits and humanlike pacing.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "outreachbot",
	Short: "Rate-limited outreach automation",
	Long: "outreachbot sends connection requests from a local prospect queue,\n" +
		"enforcing a shared daily budget, randomized pacing and per-prospect\n" +
		"attempt caps. Every run leaves an immutable audit record.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "Path to the YAML config file")
}

func main() {
	// Credentials usually live in .env during development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
