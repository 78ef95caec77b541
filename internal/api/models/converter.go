package models

import (
	"errors"
	"math"
	"net/http"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/jon4hz/evoting/internal/database"
	"github.com/jon4hz/evoting/internal/engine"
	"github.com/samber/lo"
)

// ToCandidate converts a database.Candidate to its API representation.
func ToCandidate(c database.Candidate) Candidate {
	return Candidate{
		ID:        c.ID,
		Name:      c.Name,
		Role:      c.Role,
		SymbolURL: c.SymbolRef,
		CreatedAt: c.CreatedAt,
	}
}

// ToCandidates converts a slice of database.Candidate.
func ToCandidates(candidates []database.Candidate) []Candidate {
	return lo.Map(candidates, func(c database.Candidate, _ int) Candidate {
		return ToCandidate(c)
	})
}

// ToResultRows converts the tally to its API representation.
func ToResultRows(rows []database.TallyRow) []ResultRow {
	return lo.Map(rows, func(r database.TallyRow, _ int) ResultRow {
		votes, err := safecast.Convert[int](r.Votes)
		if err != nil {
			votes = math.MaxInt
		}
		return ResultRow{
			ID:        r.CandidateID,
			Name:      r.Name,
			Role:      r.Role,
			SymbolURL: r.SymbolRef,
			Votes:     votes,
		}
	})
}

// ToPrincipal converts the session user back to an engine principal.
func (u *User) ToPrincipal() *engine.Principal {
	return &engine.Principal{
		Identifier: u.Identifier,
		Name:       u.Name,
		Email:      u.Email,
		IsAdmin:    u.IsAdmin,
	}
}

// StatusOf maps an error kind to its HTTP status code.
func StatusOf(kind engine.Kind) int {
	switch kind {
	case engine.KindValidation,
		engine.KindDuplicateIdentifier,
		engine.KindAlreadyVoted,
		engine.KindMissingCandidate,
		engine.KindUnknownCandidate,
		engine.KindNoData:
		return http.StatusBadRequest
	case engine.KindBadCredentials, engine.KindUnknownIdentifier, engine.KindUnauthenticated:
		return http.StatusUnauthorized
	case engine.KindForbidden:
		return http.StatusForbidden
	case engine.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse returns the status and body for err. Storage failures are logged,
// their details are not sent to the client.
func NewErrorResponse(err error) (int, ErrorResponse) {
	kind := engine.KindOf(err)
	if kind == engine.KindStorageFailure {
		log.Error("request failed", "error", err)
	}
	// unknown identifiers are reported like wrong passwords
	if errors.Is(err, engine.ErrUnknownIdentifier) {
		kind = engine.KindBadCredentials
		err = engine.ErrBadCredentials
	}
	return StatusOf(kind), ErrorResponse{
		OK:      false,
		Error:   string(kind),
		Message: engine.MessageOf(err),
	}
}
