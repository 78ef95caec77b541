package database

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// ErrCandidateNotFound is returned when a candidate id does not resolve.
var ErrCandidateNotFound = errors.New("candidate not found")

// Candidate is a person on the ballot.
// Candidates are hard deleted, votes keep a snapshot of name and role.
type Candidate struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"not null"`
	Role      string `gorm:"not null"`
	SymbolRef string
	CreatedAt time.Time `gorm:"index"`
}

// CandidateDB defines the candidate related database operations.
type CandidateDB interface {
	CreateCandidate(ctx context.Context, candidate *Candidate) error
	GetCandidates(ctx context.Context) ([]Candidate, error)
	DeleteCandidate(ctx context.Context, id string) error
	GetSymbolRefs(ctx context.Context) ([]string, error)
	CountCandidates(ctx context.Context) (int64, error)
}

func (c *Client) CreateCandidate(ctx context.Context, candidate *Candidate) error {
	if err := c.db.WithContext(ctx).Create(candidate).Error; err != nil {
		log.Error("failed to create candidate", "error", err)
		return err
	}
	return nil
}

// GetCandidates returns all candidates in creation order.
func (c *Client) GetCandidates(ctx context.Context) ([]Candidate, error) {
	var candidates []Candidate
	result := c.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&candidates)
	if result.Error != nil {
		log.Error("failed to get candidates", "error", result.Error)
		return nil, result.Error
	}
	return candidates, nil
}

// candidateByID returns ErrCandidateNotFound if the candidate does not exist.
func candidateByID(db *gorm.DB, id string) (*Candidate, error) {
	var candidate Candidate
	if err := db.Where("id = ?", id).First(&candidate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, err
	}
	return &candidate, nil
}

// DeleteCandidate removes the candidate row. Votes referencing it are kept.
func (c *Client) DeleteCandidate(ctx context.Context, id string) error {
	result := c.db.WithContext(ctx).Where("id = ?", id).Delete(&Candidate{})
	if result.Error != nil {
		log.Error("failed to delete candidate", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCandidateNotFound
	}
	return nil
}

// GetSymbolRefs returns the non-empty symbol references of all candidates.
func (c *Client) GetSymbolRefs(ctx context.Context) ([]string, error) {
	var refs []string
	result := c.db.WithContext(ctx).Model(&Candidate{}).
		Where("symbol_ref <> ''").
		Pluck("symbol_ref", &refs)
	if result.Error != nil {
		log.Error("failed to get symbol references", "error", result.Error)
		return nil, result.Error
	}
	return refs, nil
}

func (c *Client) CountCandidates(ctx context.Context) (int64, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&Candidate{}).Count(&count).Error; err != nil {
		log.Error("failed to count candidates", "error", err)
		return 0, err
	}
	return count, nil
}
