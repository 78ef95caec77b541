package database

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadyVoted is returned when the voter already has a vote in the ledger.
var ErrAlreadyVoted = errors.New("voter has already voted")

// Vote is a single ballot. There is at most one vote per voter, enforced by the unique index.
type Vote struct {
	ID          uint   `gorm:"primaryKey"`
	VoterID     string `gorm:"not null;uniqueIndex;size:64"`
	CandidateID string `gorm:"not null;index;size:64"`
	// Snapshot of the candidate at cast time, used when the candidate is deleted later.
	CandidateName string
	CandidateRole string
	CastAt        time.Time `gorm:"not null;index"`
}

// TallyRow is the vote count of a single candidate.
type TallyRow struct {
	CandidateID string
	Name        string
	Role        string
	SymbolRef   string
	Votes       int64
}

// VoteExportRow is a vote joined with the current state of its candidate.
type VoteExportRow struct {
	VoteID        uint
	VoterID       string
	CandidateID   string
	CandidateName string
	CandidateRole string
	CurrentName   *string
	CurrentRole   *string
	CastAt        time.Time
}

// VoteDB defines the ballot ledger operations.
type VoteDB interface {
	CreateVote(ctx context.Context, vote *Vote) error
	HasVoted(ctx context.Context, voterID string) (bool, error)
	GetTally(ctx context.Context) ([]TallyRow, error)
	GetVoteExportRows(ctx context.Context) ([]VoteExportRow, error)
	CountVotes(ctx context.Context) (int64, error)
	GetLastVote(ctx context.Context) (*Vote, error)
}

// CreateVote records a vote in a single transaction.
// It returns ErrCandidateNotFound if the candidate does not exist and ErrAlreadyVoted
// if the voter already voted. The insert is conditional on the voter_id unique index,
// so two concurrent submissions can never both succeed.
func (c *Client) CreateVote(ctx context.Context, vote *Vote) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate, err := candidateByID(tx, vote.CandidateID)
		if err != nil {
			return err
		}

		vote.CandidateName = candidate.Name
		vote.CandidateRole = candidate.Role
		if vote.CastAt.IsZero() {
			vote.CastAt = time.Now().UTC()
		}

		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "voter_id"}},
			DoNothing: true,
		}).Create(vote)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyVoted
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrAlreadyVoted) && !errors.Is(err, ErrCandidateNotFound) {
		log.Error("failed to create vote", "error", err)
	}
	return err
}

func (c *Client) HasVoted(ctx context.Context, voterID string) (bool, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&Vote{}).Where("voter_id = ?", voterID).Count(&count).Error; err != nil {
		log.Error("failed to check vote", "error", err)
		return false, err
	}
	return count > 0, nil
}

// GetTally counts the votes of every candidate. Candidates without votes are included with 0.
func (c *Client) GetTally(ctx context.Context) ([]TallyRow, error) {
	var rows []TallyRow
	result := c.db.WithContext(ctx).
		Table("candidates").
		Select("candidates.id AS candidate_id, candidates.name AS name, candidates.role AS role, candidates.symbol_ref AS symbol_ref, COUNT(votes.id) AS votes").
		Joins("LEFT JOIN votes ON votes.candidate_id = candidates.id").
		Group("candidates.id, candidates.name, candidates.role, candidates.symbol_ref, candidates.created_at").
		Order("candidates.created_at ASC, candidates.id ASC").
		Scan(&rows)
	if result.Error != nil {
		log.Error("failed to get tally", "error", result.Error)
		return nil, result.Error
	}
	return rows, nil
}

// GetVoteExportRows returns every vote ordered by cast time, oldest first.
func (c *Client) GetVoteExportRows(ctx context.Context) ([]VoteExportRow, error) {
	var rows []VoteExportRow
	result := c.db.WithContext(ctx).
		Table("votes").
		Select("votes.id AS vote_id, votes.voter_id AS voter_id, votes.candidate_id AS candidate_id, " +
			"votes.candidate_name AS candidate_name, votes.candidate_role AS candidate_role, " +
			"candidates.name AS current_name, candidates.role AS current_role, votes.cast_at AS cast_at").
		Joins("LEFT JOIN candidates ON candidates.id = votes.candidate_id").
		Order("votes.cast_at ASC, votes.id ASC").
		Scan(&rows)
	if result.Error != nil {
		log.Error("failed to get vote export rows", "error", result.Error)
		return nil, result.Error
	}
	return rows, nil
}

func (c *Client) CountVotes(ctx context.Context) (int64, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&Vote{}).Count(&count).Error; err != nil {
		log.Error("failed to count votes", "error", err)
		return 0, err
	}
	return count, nil
}

// GetLastVote returns the most recent vote or gorm.ErrRecordNotFound if there is none.
func (c *Client) GetLastVote(ctx context.Context) (*Vote, error) {
	var vote Vote
	if err := c.db.WithContext(ctx).Order("cast_at DESC, id DESC").First(&vote).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get last vote", "error", err)
		}
		return nil, err
	}
	return &vote, nil
}
