package engine

import (
	"context"
	"errors"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jon4hz/evoting/internal/database"
	"github.com/jon4hz/evoting/internal/symbols"
)

// CandidateInput holds the fields submitted when creating a candidate.
// An uploaded Symbol takes precedence over SymbolURL.
type CandidateInput struct {
	Name      string
	Role      string
	SymbolURL string
	Symbol    *multipart.FileHeader
}

func newCandidateID() string {
	return "c" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ListCandidates returns all candidates in creation order.
func (e *Engine) ListCandidates(ctx context.Context) ([]database.Candidate, error) {
	candidates, err := e.db.GetCandidates(ctx)
	if err != nil {
		return nil, storageError("failed to list candidates", err)
	}
	return candidates, nil
}

// CreateCandidate adds a candidate to the ballot.
func (e *Engine) CreateCandidate(ctx context.Context, in CandidateInput) (*database.Candidate, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	in.SymbolURL = strings.TrimSpace(in.SymbolURL)

	if in.Name == "" || in.Role == "" {
		return nil, newError(KindValidation, "name and role are required")
	}

	var symbolRef string
	switch {
	case in.Symbol != nil:
		ref, err := e.symbols.Save(ctx, in.Symbol)
		if err != nil {
			return nil, symbolError(err)
		}
		symbolRef = ref
	case in.SymbolURL != "":
		if !isHTTPURL(in.SymbolURL) {
			return nil, newError(KindValidation, "symbol url must be an http or https url")
		}
		symbolRef = in.SymbolURL
	}

	candidate := &database.Candidate{
		ID:        newCandidateID(),
		Name:      in.Name,
		Role:      in.Role,
		SymbolRef: symbolRef,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.db.CreateCandidate(ctx, candidate); err != nil {
		if in.Symbol != nil {
			if rmErr := e.symbols.Remove(symbolRef); rmErr != nil {
				log.Warn("Failed to remove symbol of failed candidate", "error", rmErr)
			}
		}
		return nil, storageError("failed to create candidate", err)
	}

	e.cache.InvalidateResults(ctx)
	log.Info("Created candidate", "id", candidate.ID, "name", candidate.Name, "role", candidate.Role)
	return candidate, nil
}

// DeleteCandidate removes a candidate. Votes for it stay in the ledger.
// Its uploaded symbol is removed by the orphaned symbol cleanup job.
func (e *Engine) DeleteCandidate(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return newError(KindValidation, "candidate id is required")
	}

	if err := e.db.DeleteCandidate(ctx, id); err != nil {
		if errors.Is(err, database.ErrCandidateNotFound) {
			return newError(KindNotFound, "candidate not found")
		}
		return storageError("failed to delete candidate", err)
	}

	e.cache.InvalidateResults(ctx)
	log.Info("Deleted candidate", "id", id)
	return nil
}

func symbolError(err error) error {
	switch {
	case errors.Is(err, symbols.ErrNotAnImage):
		return newError(KindValidation, "symbol must be a jpeg, png, gif, bmp or tiff image")
	case errors.Is(err, symbols.ErrTooLarge):
		return &Error{Kind: KindValidation, Message: "symbol file is too large", Err: err}
	default:
		return storageError("failed to store symbol", err)
	}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
