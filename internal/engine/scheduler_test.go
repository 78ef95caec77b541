package engine

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jon4hz/evoting/internal/cache"
	"github.com/jon4hz/evoting/internal/symbols"
)

func (s *EngineTestSuite) TestJobsRegistered() {
	_, ok := s.engine.scheduler.GetJob(jobCleanupSymbols)
	s.True(ok)
	_, ok = s.engine.scheduler.GetJob(jobWarmResults)
	s.True(ok)
}

func (s *EngineTestSuite) TestCleanupSymbolsJob() {
	kept, err := s.engine.CreateCandidate(s.ctx, CandidateInput{Name: "Asha", Role: "President", Symbol: s.pngFile(8, 8)})
	s.Require().NoError(err)
	dropped, err := s.engine.CreateCandidate(s.ctx, CandidateInput{Name: "Ravi", Role: "Secretary", Symbol: s.pngFile(8, 8)})
	s.Require().NoError(err)
	s.Require().NoError(s.engine.DeleteCandidate(s.ctx, dropped.ID))

	dir := s.engine.GetSymbolStore().Dir()
	old := time.Now().Add(-72 * time.Hour)
	for _, ref := range []string{kept.SymbolRef, dropped.SymbolRef} {
		s.Require().NoError(os.Chtimes(filepath.Join(dir, strings.TrimPrefix(ref, symbols.URLPrefix)), old, old))
	}

	s.Require().NoError(s.engine.runCleanupSymbolsJob(s.ctx))

	_, err = os.Stat(filepath.Join(dir, strings.TrimPrefix(kept.SymbolRef, symbols.URLPrefix)))
	s.NoError(err)
	_, err = os.Stat(filepath.Join(dir, strings.TrimPrefix(dropped.SymbolRef, symbols.URLPrefix)))
	s.True(os.IsNotExist(err))
}

func (s *EngineTestSuite) TestWarmResultsJob() {
	s.candidate("Asha", "President")

	s.Require().NoError(s.engine.runWarmResultsJob(s.ctx))

	rows, err := s.engine.cache.ResultsCache.Get(s.ctx, cache.ResultsKey)
	s.Require().NoError(err)
	s.Len(rows, 1)
}
