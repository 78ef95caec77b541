package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

const (
	jobCleanupSymbols = "cleanup_symbols"
	jobWarmResults    = "warm_results"

	warmResultsSchedule = "* * * * *"
)

// setupJobs configures all scheduled jobs.
func (e *Engine) setupJobs() error {
	if schedule := e.cfg.Uploads.CleanupSchedule; schedule != "" {
		if err := e.scheduler.AddCronJob(
			jobCleanupSymbols,
			"Cleanup Symbols",
			"Removes uploaded symbols no candidate refers to",
			schedule,
			e.runCleanupSymbolsJob,
			false,
		); err != nil {
			return fmt.Errorf("failed to add symbol cleanup job: %w", err)
		}
	}

	if e.resultsTTL() > 0 {
		if err := e.scheduler.AddCronJob(
			jobWarmResults,
			"Warm Results",
			"Keeps the results cache filled",
			warmResultsSchedule,
			e.runWarmResultsJob,
			true,
		); err != nil {
			return fmt.Errorf("failed to add results warmup job: %w", err)
		}
	}

	log.Info("Scheduled jobs configured successfully")
	return nil
}

func (e *Engine) runCleanupSymbolsJob(ctx context.Context) error {
	refs, err := e.db.GetSymbolRefs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get symbol references: %w", err)
	}

	grace := time.Duration(e.cfg.Uploads.OrphanGrace) * time.Hour
	removed, freed, err := e.symbols.CleanupOrphans(ctx, refs, grace)
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Info("Removed orphaned symbols", "count", removed, "freed", humanize.Bytes(freed))
	}
	return nil
}

func (e *Engine) runWarmResultsJob(ctx context.Context) error {
	_, err := e.refreshTally(ctx)
	return err
}
