package engine

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/jon4hz/evoting/internal/symbols"
)

func (s *EngineTestSuite) fileHeader(filename string, content []byte) *multipart.FileHeader {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("symbol", filename)
	s.Require().NoError(err)
	_, err = part.Write(content)
	s.Require().NoError(err)
	s.Require().NoError(w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(10 << 20)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = form.RemoveAll() })
	return form.File["symbol"][0]
}

func (s *EngineTestSuite) pngFile(width, height int) *multipart.FileHeader {
	var buf bytes.Buffer
	s.Require().NoError(png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return s.fileHeader("symbol.png", buf.Bytes())
}

func (s *EngineTestSuite) TestCreateCandidate() {
	c, err := s.engine.CreateCandidate(s.ctx, CandidateInput{Name: " Asha ", Role: "President"})
	s.Require().NoError(err)
	s.True(strings.HasPrefix(c.ID, "c"))
	s.Len(c.ID, 33)
	s.Equal("Asha", c.Name)
	s.Empty(c.SymbolRef)

	candidates, err := s.engine.ListCandidates(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(candidates, 1)
	s.Equal(c.ID, candidates[0].ID)
}

func (s *EngineTestSuite) TestCreateCandidateValidation() {
	_, err := s.engine.CreateCandidate(s.ctx, CandidateInput{Role: "President"})
	s.ErrorIs(err, ErrValidation)
	_, err = s.engine.CreateCandidate(s.ctx, CandidateInput{Name: "Asha"})
	s.ErrorIs(err, ErrValidation)
	_, err = s.engine.CreateCandidate(s.ctx, CandidateInput{Name: "Asha", Role: "President", SymbolURL: "javascript:alert(1)"})
	s.ErrorIs(err, ErrValidation)
	_, err = s.engine.CreateCandidate(s.ctx, CandidateInput{
		Name: "Asha", Role: "President", Symbol: s.fileHeader("notes.txt", []byte("plain text")),
	})
	s.ErrorIs(err, ErrValidation)

	candidates, err := s.engine.ListCandidates(s.ctx)
	s.Require().NoError(err)
	s.Empty(candidates)
}

func (s *EngineTestSuite) TestCreateCandidateSymbolURL() {
	c, err := s.engine.CreateCandidate(s.ctx, CandidateInput{
		Name: "Asha", Role: "President", SymbolURL: "https://example.com/lotus.png",
	})
	s.Require().NoError(err)
	s.Equal("https://example.com/lotus.png", c.SymbolRef)
}

func (s *EngineTestSuite) TestCreateCandidateUploadWinsOverURL() {
	c, err := s.engine.CreateCandidate(s.ctx, CandidateInput{
		Name:      "Asha",
		Role:      "President",
		SymbolURL: "https://example.com/lotus.png",
		Symbol:    s.pngFile(128, 32),
	})
	s.Require().NoError(err)
	s.True(strings.HasPrefix(c.SymbolRef, symbols.URLPrefix))

	path := filepath.Join(s.engine.GetSymbolStore().Dir(), strings.TrimPrefix(c.SymbolRef, symbols.URLPrefix))
	_, err = os.Stat(path)
	s.NoError(err)
}

func (s *EngineTestSuite) TestDeleteCandidate() {
	c := s.candidate("Asha", "President")
	other := s.candidate("Ravi", "Secretary")

	s.Require().NoError(s.engine.DeleteCandidate(s.ctx, c.ID))

	candidates, err := s.engine.ListCandidates(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(candidates, 1)
	s.Equal(other.ID, candidates[0].ID)

	err = s.engine.DeleteCandidate(s.ctx, c.ID)
	s.ErrorIs(err, ErrNotFound)
	s.Equal(KindNotFound, KindOf(err))
}

func (s *EngineTestSuite) TestDeleteCandidateKeepsVotes() {
	voter := s.register("u1")
	c := s.candidate("Asha", "President")
	_, err := s.engine.CastVote(s.ctx, voter, c.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.engine.DeleteCandidate(s.ctx, c.ID))

	count, err := s.db.CountVotes(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, count)

	rows, err := s.engine.ExportRows(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("Asha", rows[0].Candidate)
	s.Equal("President", rows[0].Role)
}
