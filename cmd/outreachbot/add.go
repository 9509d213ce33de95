package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"outreachbot/internal/prospect"
)

var addCmd = &cobra.Command{
	Use:   "add URL",
	Short: "Add a prospect by profile URL",
	Long: `Registers a discovered profile for outreach. The URL is validated and
normalized so the same profile can never be queued twice under different
spellings.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var (
	addName    string
	addCompany string
	addSource  string
	addNotes   string
)

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "Display name of the prospect")
	addCmd.Flags().StringVar(&addCompany, "company", "", "Company")
	addCmd.Flags().StringVar(&addSource, "source", "manual", "Where this prospect came from")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "Free-form notes")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	url, err := prospect.NormalizeURL(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	first, last := prospect.SplitName(addName)
	p := prospect.Prospect{
		URL:       url,
		FullName:  addName,
		FirstName: first,
		LastName:  last,
		Company:   addCompany,
		Source:    addSource,
		Notes:     addNotes,
		Status:    prospect.StatusDiscovered,
	}
	if err := a.store.CreateProspect(cmd.Context(), &p); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("prospect already tracked: %s", url)
		}
		return err
	}
	fmt.Printf("Added prospect #%d: %s\n", p.ID, url)
	return nil
}
