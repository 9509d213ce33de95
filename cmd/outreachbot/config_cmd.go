package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  "Prints the merged configuration (file, defaults, environment) with secrets redacted.",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Copy before redacting; the app keeps the real values.
	redacted := *a.cfg
	if redacted.Credentials.Password != "" {
		redacted.Credentials.Password = "********"
	}
	if redacted.Notify.Telegram.Token != "" {
		redacted.Notify.Telegram.Token = "********"
	}

	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	os.Stdout.Write(out)
	return nil
}
