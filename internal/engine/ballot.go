package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/evoting/internal/database"
	"github.com/jon4hz/evoting/internal/notify/email"
)

// CastVote records the vote of voter for the candidate.
// Every voter can vote exactly once, a second vote fails with ErrAlreadyVoted
// even when both requests arrive at the same time.
func (e *Engine) CastVote(ctx context.Context, voter *Principal, candidateID string) (*database.Vote, error) {
	if voter == nil || voter.Identifier == "" {
		return nil, ErrUnauthenticated
	}
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return nil, ErrMissingCandidate
	}

	vote := &database.Vote{
		VoterID:     voter.Identifier,
		CandidateID: candidateID,
	}
	if err := e.db.CreateVote(ctx, vote); err != nil {
		switch {
		case errors.Is(err, database.ErrAlreadyVoted):
			log.Debug("Rejected second vote", "usn", voter.Identifier)
			return nil, ErrAlreadyVoted
		case errors.Is(err, database.ErrCandidateNotFound):
			return nil, ErrUnknownCandidate
		default:
			return nil, storageError("failed to record vote", err)
		}
	}

	e.cache.InvalidateResults(ctx)
	log.Info("Vote recorded", "usn", voter.Identifier, "candidate", candidateID)

	e.sendReceipt(voter, vote)
	return vote, nil
}

// HasVoted reports whether the voter already has a vote in the ledger.
func (e *Engine) HasVoted(ctx context.Context, identifier string) (bool, error) {
	if identifier == "" {
		return false, ErrUnauthenticated
	}
	voted, err := e.db.HasVoted(ctx, identifier)
	if err != nil {
		return false, storageError("failed to check vote", err)
	}
	return voted, nil
}

// sendReceipt mails the receipt in the background. Failures are only logged.
func (e *Engine) sendReceipt(voter *Principal, vote *database.Vote) {
	if !e.email.Enabled() {
		return
	}
	receipt := email.Receipt{
		VoterEmail:    voter.Email,
		VoterName:     voter.Name,
		Identifier:    voter.Identifier,
		CandidateName: vote.CandidateName,
		CandidateRole: vote.CandidateRole,
		CastAt:        vote.CastAt,
		ServerURL:     e.cfg.ServerURL,
	}
	e.receipts.Add(1)
	go func() {
		defer e.receipts.Done()
		if err := e.email.SendReceipt(receipt); err != nil {
			log.Error("Failed to send vote receipt", "usn", receipt.Identifier, "error", err)
		}
	}()
}
