package engine

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/evoting/internal/cache"
	"github.com/jon4hz/evoting/internal/database"
	"github.com/jon4hz/evoting/internal/export"
	"github.com/samber/lo"
)

func (e *Engine) resultsTTL() time.Duration {
	return time.Duration(e.cfg.Cache.ResultsTTL) * time.Second
}

// Tally returns the vote count of every candidate, including candidates without votes.
func (e *Engine) Tally(ctx context.Context) ([]database.TallyRow, error) {
	if e.resultsTTL() > 0 {
		rows, err := e.cache.ResultsCache.Get(ctx, cache.ResultsKey)
		if err == nil {
			return rows, nil
		}
		if !cache.IsNotFound(err) {
			log.Warn("Failed to read results cache", "error", err)
		}
	}
	return e.refreshTally(ctx)
}

// refreshTally reads the tally from the database and stores it in the results cache.
func (e *Engine) refreshTally(ctx context.Context) ([]database.TallyRow, error) {
	version := e.cache.ResultsVersion()
	rows, err := e.db.GetTally(ctx)
	if err != nil {
		return nil, storageError("failed to tally votes", err)
	}
	if rows == nil {
		rows = []database.TallyRow{}
	}

	if ttl := e.resultsTTL(); ttl > 0 {
		stored, err := e.cache.StoreResults(ctx, version, rows, ttl)
		if err != nil {
			log.Warn("Failed to cache results", "error", err)
		} else if !stored {
			log.Debug("Results changed while tallying, not caching")
		}
	}
	return rows, nil
}

// ExportRows returns one row per vote, oldest first.
// The candidate name falls back to the name at cast time and then to the id,
// the role falls back to the role at cast time.
func (e *Engine) ExportRows(ctx context.Context) ([]export.Row, error) {
	votes, err := e.db.GetVoteExportRows(ctx)
	if err != nil {
		return nil, storageError("failed to read votes", err)
	}
	if len(votes) == 0 {
		return nil, ErrNoData
	}

	rows := make([]export.Row, 0, len(votes))
	for _, v := range votes {
		rows = append(rows, export.Row{
			Identifier: v.VoterID,
			Candidate:  lo.CoalesceOrEmpty(lo.FromPtr(v.CurrentName), v.CandidateName, v.CandidateID),
			Role:       lo.CoalesceOrEmpty(lo.FromPtr(v.CurrentRole), v.CandidateRole),
			CastAt:     v.CastAt.UTC(),
		})
	}
	return rows, nil
}
