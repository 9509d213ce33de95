package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"outreachbot/internal/prospect"
	"outreachbot/internal/ratelimit"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show prospect, run and budget statistics",
	RunE:  runStats,
}

var statsRuns int

func init() {
	statsCmd.Flags().IntVar(&statsRuns, "runs", 5, "How many recent runs to show")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	st, err := a.store.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Prospects: %d\n", st.Total)
	for _, s := range []prospect.Status{
		prospect.StatusDiscovered,
		prospect.StatusQueued,
		prospect.StatusConnecting,
		prospect.StatusConnected,
		prospect.StatusFailed,
		prospect.StatusSkipped,
	} {
		if n := st.ByStatus[s]; n > 0 {
			fmt.Printf("  %-12s %d\n", s, n)
		}
	}
	fmt.Printf("Runs: %d (attempted %d, succeeded %d)\n", st.Runs, st.TotalAttempted, st.TotalSucceeded)

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	day := ratelimit.DayKey(time.Now(), loc)
	consumed, err := a.store.ConsumedOn(ctx, day)
	if err != nil {
		return err
	}
	remaining := a.cfg.Limits.DailyLimit - consumed
	if remaining < 0 {
		remaining = 0
	}
	fmt.Printf("Budget today (%s): %d used, %d remaining of %d\n",
		day, consumed, remaining, a.cfg.Limits.DailyLimit)

	if statsRuns > 0 {
		runs, err := a.store.RecentRuns(ctx, statsRuns)
		if err != nil {
			return err
		}
		if len(runs) > 0 {
			fmt.Println("\nRecent runs:")
			for _, r := range runs {
				tag := ""
				if r.DryRun {
					tag = " (dry run)"
				}
				fmt.Printf("  %s  %s  attempted=%d succeeded=%d reason=%s%s\n",
					r.FinishedAt.Format("2006-01-02 15:04"), r.ID, r.Attempted, r.Succeeded, r.Reason, tag)
			}
		}
	}
	return nil
}
