package engine

import (
	"context"
	"errors"
	"time"

	"github.com/jon4hz/evoting/internal/database"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Stats is an overview of the election.
type Stats struct {
	Users      int64
	Candidates int64
	Votes      int64
	LastVote   *time.Time
	// Turnout is the share of registered users that voted, in percent.
	Turnout float64
}

// GetStats collects the election statistics concurrently.
func (e *Engine) GetStats(ctx context.Context) (*Stats, error) {
	return CollectStats(ctx, e.db)
}

// CollectStats collects the election statistics from db.
func CollectStats(ctx context.Context, db database.DB) (*Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		stats.Users, err = db.CountUsers(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Candidates, err = db.CountCandidates(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Votes, err = db.CountVotes(ctx)
		return err
	})
	g.Go(func() error {
		last, err := db.GetLastVote(ctx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		castAt := last.CastAt.UTC()
		stats.LastVote = &castAt
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, storageError("failed to collect stats", err)
	}

	if stats.Users > 0 {
		stats.Turnout = float64(stats.Votes) / float64(stats.Users) * 100
	}
	return &stats, nil
}
