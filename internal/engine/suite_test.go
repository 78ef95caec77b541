package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jon4hz/evoting/internal/config"
	"github.com/jon4hz/evoting/internal/database"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ServerURL: "http://localhost:3000",
		Database: &config.DatabaseConfig{
			Type: config.DatabaseTypeSQLite,
			Path: filepath.Join(dir, "evoting.db"),
		},
		Session: &config.SessionConfig{
			Keys:   []string{"0123456789abcdef0123456789abcdef"},
			MaxAge: 3600,
		},
		Auth: &config.AuthConfig{BcryptCost: 4},
		Uploads: &config.UploadsConfig{
			Dir:             filepath.Join(dir, "uploads"),
			MaxWidth:        64,
			MaxHeight:       64,
			MaxBytes:        1 << 20,
			CleanupSchedule: "0 3 * * *",
			OrphanGrace:     24,
		},
		Cache: &config.CacheConfig{
			Type:       config.CacheTypeMemory,
			ResultsTTL: 30,
		},
		Email:    &config.EmailConfig{Enabled: false},
		Gravatar: &config.GravatarConfig{Enabled: false},
	}
}

// createTestEngine creates an engine backed by a fresh sqlite database.
func createTestEngine(t *testing.T) (*Engine, *database.Client) {
	t.Helper()
	cfg := testConfig(t)
	db, err := database.New(cfg.Database)
	require.NoError(t, err)

	e, err := New(cfg, db)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = e.Close()
		_ = db.Close()
	})
	return e, db
}

// EngineTestSuite runs the engine against a real sqlite database.
type EngineTestSuite struct {
	suite.Suite
	engine *Engine
	db     *database.Client
	ctx    context.Context
}

func (s *EngineTestSuite) SetupTest() {
	s.engine, s.db = createTestEngine(s.T())
	s.ctx = context.Background()
}

func (s *EngineTestSuite) register(identifier string) *Principal {
	p, err := s.engine.Register(s.ctx, RegisterInput{
		Name:       "Voter " + identifier,
		Email:      identifier + "@example.com",
		Identifier: identifier,
		Password:   "secret-" + identifier,
	})
	s.Require().NoError(err)
	return p
}

func (s *EngineTestSuite) candidate(name, role string) *database.Candidate {
	c, err := s.engine.CreateCandidate(s.ctx, CandidateInput{Name: name, Role: role})
	s.Require().NoError(err)
	return c
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
