package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"outreachbot/internal/prospect"
	"outreachbot/internal/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert generated test prospects",
	Long: `Fills the database with synthetic prospects for exercising runs in
--dry-run mode. Generation is deterministic for a given --seed value.`,
	RunE: runSeed,
}

var (
	seedCount int
	seedValue int64
)

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 25, "How many prospects to generate")
	seedCmd.Flags().Int64Var(&seedValue, "seed", 1, "Random seed")
	rootCmd.AddCommand(seedCmd)
}

var (
	seedFirstNames = []string{
		"Alex", "Sam", "Jordan", "Taylor", "Morgan", "Casey", "Riley",
		"Jamie", "Avery", "Quinn", "Dana", "Robin", "Kim", "Lee", "Pat",
	}
	seedLastNames = []string{
		"Andersen", "Brown", "Chen", "Davis", "Evans", "Fischer",
		"Garcia", "Hansen", "Ivanov", "Johnson", "Kumar", "Larsen",
		"Miller", "Nguyen", "Olsen",
	}
	seedTitles = []string{
		"Software Engineer", "Engineering Manager", "Product Manager",
		"Data Scientist", "CTO", "Founder", "Recruiter", "Designer",
	}
	seedCompanies = []string{
		"Acme Corp", "Globex", "Initech", "Umbrella Labs", "Hooli",
		"Stark Industries", "Wayne Enterprises",
	}
)

func runSeed(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	created, skipped, err := seedProspects(cmd.Context(), a.store, seedCount, seedValue)
	if err != nil {
		return err
	}
	fmt.Printf("Created %d prospect(s)", created)
	if skipped > 0 {
		fmt.Printf(", skipped %d duplicate(s)", skipped)
	}
	fmt.Println()
	return nil
}

// seedProspects generates count synthetic prospects. Re-running with the
// same seed skips the already present URLs instead of failing.
func seedProspects(ctx context.Context, db *storage.DB, count int, seed int64) (created, skipped int, err error) {
	rng := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()

	for i := 0; i < count; i++ {
		first := seedFirstNames[rng.Intn(len(seedFirstNames))]
		last := seedLastNames[rng.Intn(len(seedLastNames))]
		handle := fmt.Sprintf("%s-%s-%d", strings.ToLower(first), strings.ToLower(last), i+1)

		p := prospect.Prospect{
			URL:          "https://linkedin.com/in/" + handle,
			FullName:     first + " " + last,
			FirstName:    first,
			LastName:     last,
			Headline:     seedTitles[rng.Intn(len(seedTitles))],
			Company:      seedCompanies[rng.Intn(len(seedCompanies))],
			Source:       "seed",
			Status:       prospect.StatusDiscovered,
			DiscoveredAt: now.Add(-time.Duration(count-i) * time.Minute),
			UpdatedAt:    now,
		}
		if err := db.CreateProspect(ctx, &p); err != nil {
			if isDuplicate(err) {
				skipped++
				continue
			}
			return created, skipped, err
		}
		created++
	}
	return created, skipped, nil
}

func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
