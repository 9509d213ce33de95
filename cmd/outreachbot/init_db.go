package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database and run migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Database ready at %s\n", a.cfg.Storage.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
