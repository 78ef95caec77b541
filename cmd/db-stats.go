package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jon4hz/evoting/internal/engine"
	"github.com/mergestat/timediff"
	"github.com/spf13/cobra"
)

var dbStatsCmd = &cobra.Command{
	Use:   "db-stats",
	Short: "Show database statistics",
	Long:  `Display statistics about registered users, candidates and cast votes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := loadDatabase()
		if err != nil {
			return err
		}
		defer db.Close() //nolint: errcheck

		stats, err := engine.CollectStats(cmd.Context(), db)
		if err != nil {
			return fmt.Errorf("failed to get database stats: %w", err)
		}

		fmt.Println("Database Statistics:")
		fmt.Printf("Registered Users: %s\n", humanize.Comma(stats.Users))
		fmt.Printf("Candidates: %s\n", humanize.Comma(stats.Candidates))
		fmt.Printf("Votes Cast: %s\n", humanize.Comma(stats.Votes))
		fmt.Printf("Turnout: %s%%\n", humanize.FtoaWithDigits(stats.Turnout, 1))

		if stats.LastVote != nil {
			fmt.Printf("Last Vote: %s (%s)\n", stats.LastVote.Format(time.RFC3339), timediff.TimeDiff(*stats.LastVote))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbStatsCmd)
}
