package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"outreachbot/internal/prospect"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List prospects and their statuses",
	RunE:  runList,
}

var listStatus string

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "Only show prospects with this status")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var filter prospect.Status
	if listStatus != "" {
		filter = prospect.Status(listStatus)
		if !filter.Valid() {
			return fmt.Errorf("unknown status %q", listStatus)
		}
	}

	prospects, err := a.store.ListProspects(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tATTEMPTS\tURL")
	shown := 0
	for _, p := range prospects {
		if filter != "" && p.Status != filter {
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.FullName, p.Status, p.Attempts, p.URL)
		shown++
	}
	w.Flush()
	fmt.Printf("\n%d prospect(s)\n", shown)
	return nil
}
