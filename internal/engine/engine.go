package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/evoting/internal/cache"
	"github.com/jon4hz/evoting/internal/config"
	"github.com/jon4hz/evoting/internal/database"
	"github.com/jon4hz/evoting/internal/notify/email"
	"github.com/jon4hz/evoting/internal/scheduler"
	"github.com/jon4hz/evoting/internal/symbols"
	"golang.org/x/crypto/bcrypt"
)

// Engine implements the voting operations on top of the database.
// It owns the results cache, the symbol store and the background jobs.
type Engine struct {
	cfg       *config.Config
	db        database.DB
	cache     *cache.EngineCache
	symbols   *symbols.Store
	email     *email.NotificationService
	scheduler *scheduler.Scheduler

	// dummyHash is compared against for unknown identifiers so that
	// authentication takes the same time whether or not the user exists.
	dummyHash []byte

	receipts sync.WaitGroup
}

// New creates a new Engine instance.
func New(cfg *config.Config, db database.DB) (*Engine, error) {
	sched, err := scheduler.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	symbolStore, err := symbols.New(cfg.Uploads)
	if err != nil {
		return nil, fmt.Errorf("failed to create symbol store: %w", err)
	}

	dummyHash, err := bcrypt.GenerateFromPassword([]byte("evoting-dummy-password"), cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dummy hash: %w", err)
	}

	var emailService *email.NotificationService
	if cfg.Email != nil && cfg.Email.Enabled {
		emailService = email.New(cfg.Email)
	}

	e := &Engine{
		cfg:       cfg,
		db:        db,
		cache:     cache.NewEngineCache(cfg.Cache),
		symbols:   symbolStore,
		email:     emailService,
		scheduler: sched,
		dummyHash: dummyHash,
	}

	if err := e.setupJobs(); err != nil {
		return nil, fmt.Errorf("failed to setup jobs: %w", err)
	}

	return e, nil
}

// Ping checks that the database is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.db.Ping(ctx); err != nil {
		return storageError("database is unreachable", err)
	}
	return nil
}

// GetSymbolStore returns the store of uploaded candidate symbols.
func (e *Engine) GetSymbolStore() *symbols.Store {
	return e.symbols
}

// Run starts the background jobs and blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	e.scheduler.Start()
	for _, job := range e.scheduler.GetJobs() {
		log.Info("Scheduled job", "id", job.ID, "schedule", job.Schedule)
	}

	<-ctx.Done()
	return nil
}

// Close stops the background jobs and waits for pending receipts.
func (e *Engine) Close() error {
	err := e.scheduler.Stop()
	e.receipts.Wait()
	for _, st := range e.cache.GetStats() {
		log.Debug("Cache stats", "cache", st.CacheName, "type", e.cache.ResultsCache.GetType(), "hits", st.Hits, "misses", st.Miss)
	}
	log.Debug("Engine stopped")
	return err
}
