package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jon4hz/evoting/internal/database"
	"gorm.io/gorm"
)

var _ database.DB = (*MockDB)(nil)

// MockDB is an in-memory implementation of database.DB for testing.
type MockDB struct {
	mu sync.RWMutex

	users      map[string]*database.User
	candidates map[string]*database.Candidate
	votes      []database.Vote
	nextVoteID uint

	// Error simulation
	CreateUserError          error
	GetUserByIdentifierError error
	SetUserAdminError        error
	CreateCandidateError     error
	GetCandidatesError       error
	DeleteCandidateError     error
	CreateVoteError          error
	HasVotedError            error
	GetTallyError            error
	GetVoteExportRowsError   error
	PingError                error

	// OnGetTally runs after GetTally read its rows.
	OnGetTally func()
}

// NewMockDB creates a new MockDB instance.
func NewMockDB() *MockDB {
	return &MockDB{
		users:      make(map[string]*database.User),
		candidates: make(map[string]*database.Candidate),
		nextVoteID: 1,
	}
}

// Reset clears all data and errors from the mock database.
func (m *MockDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[string]*database.User)
	m.candidates = make(map[string]*database.Candidate)
	m.votes = nil
	m.nextVoteID = 1

	m.CreateUserError = nil
	m.GetUserByIdentifierError = nil
	m.SetUserAdminError = nil
	m.CreateCandidateError = nil
	m.GetCandidatesError = nil
	m.DeleteCandidateError = nil
	m.CreateVoteError = nil
	m.HasVotedError = nil
	m.GetTallyError = nil
	m.GetVoteExportRowsError = nil
	m.PingError = nil
	m.OnGetTally = nil
}

func (m *MockDB) Close() error { return nil }

func (m *MockDB) Ping(_ context.Context) error { return m.PingError }

func (m *MockDB) CreateUser(_ context.Context, user *database.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateUserError != nil {
		return m.CreateUserError
	}
	if _, ok := m.users[user.Identifier]; ok {
		return database.ErrUserExists
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	u := *user
	m.users[user.Identifier] = &u
	return nil
}

func (m *MockDB) GetUserByIdentifier(_ context.Context, identifier string) (*database.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetUserByIdentifierError != nil {
		return nil, m.GetUserByIdentifierError
	}
	u, ok := m.users[identifier]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	user := *u
	return &user, nil
}

func (m *MockDB) SetUserAdmin(_ context.Context, identifier string, isAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetUserAdminError != nil {
		return m.SetUserAdminError
	}
	u, ok := m.users[identifier]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsAdmin = isAdmin
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MockDB) CountUsers(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MockDB) CreateCandidate(_ context.Context, candidate *database.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateCandidateError != nil {
		return m.CreateCandidateError
	}
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = time.Now()
	}
	c := *candidate
	m.candidates[candidate.ID] = &c
	return nil
}

func (m *MockDB) GetCandidates(_ context.Context) ([]database.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetCandidatesError != nil {
		return nil, m.GetCandidatesError
	}
	return m.sortedCandidates(), nil
}

func (m *MockDB) sortedCandidates() []database.Candidate {
	candidates := make([]database.Candidate, 0, len(m.candidates))
	for _, c := range m.candidates {
		candidates = append(candidates, *c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates
}

func (m *MockDB) DeleteCandidate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteCandidateError != nil {
		return m.DeleteCandidateError
	}
	if _, ok := m.candidates[id]; !ok {
		return database.ErrCandidateNotFound
	}
	delete(m.candidates, id)
	return nil
}

func (m *MockDB) GetSymbolRefs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	refs := make([]string, 0, len(m.candidates))
	for _, c := range m.candidates {
		if c.SymbolRef != "" {
			refs = append(refs, c.SymbolRef)
		}
	}
	return refs, nil
}

func (m *MockDB) CountCandidates(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.candidates)), nil
}

func (m *MockDB) CreateVote(_ context.Context, vote *database.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateVoteError != nil {
		return m.CreateVoteError
	}
	c, ok := m.candidates[vote.CandidateID]
	if !ok {
		return database.ErrCandidateNotFound
	}
	for _, v := range m.votes {
		if v.VoterID == vote.VoterID {
			return database.ErrAlreadyVoted
		}
	}
	vote.ID = m.nextVoteID
	m.nextVoteID++
	vote.CandidateName = c.Name
	vote.CandidateRole = c.Role
	if vote.CastAt.IsZero() {
		vote.CastAt = time.Now().UTC()
	}
	m.votes = append(m.votes, *vote)
	return nil
}

func (m *MockDB) HasVoted(_ context.Context, voterID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.HasVotedError != nil {
		return false, m.HasVotedError
	}
	for _, v := range m.votes {
		if v.VoterID == voterID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockDB) GetTally(_ context.Context) ([]database.TallyRow, error) {
	rows, err := m.getTally()
	if err == nil && m.OnGetTally != nil {
		m.OnGetTally()
	}
	return rows, err
}

func (m *MockDB) getTally() ([]database.TallyRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetTallyError != nil {
		return nil, m.GetTallyError
	}
	counts := make(map[string]int64)
	for _, v := range m.votes {
		counts[v.CandidateID]++
	}
	candidates := m.sortedCandidates()
	rows := make([]database.TallyRow, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, database.TallyRow{
			CandidateID: c.ID,
			Name:        c.Name,
			Role:        c.Role,
			SymbolRef:   c.SymbolRef,
			Votes:       counts[c.ID],
		})
	}
	return rows, nil
}

func (m *MockDB) GetVoteExportRows(_ context.Context) ([]database.VoteExportRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetVoteExportRowsError != nil {
		return nil, m.GetVoteExportRowsError
	}
	votes := make([]database.Vote, len(m.votes))
	copy(votes, m.votes)
	sort.SliceStable(votes, func(i, j int) bool {
		if votes[i].CastAt.Equal(votes[j].CastAt) {
			return votes[i].ID < votes[j].ID
		}
		return votes[i].CastAt.Before(votes[j].CastAt)
	})

	rows := make([]database.VoteExportRow, 0, len(votes))
	for _, v := range votes {
		row := database.VoteExportRow{
			VoteID:        v.ID,
			VoterID:       v.VoterID,
			CandidateID:   v.CandidateID,
			CandidateName: v.CandidateName,
			CandidateRole: v.CandidateRole,
			CastAt:        v.CastAt,
		}
		if c, ok := m.candidates[v.CandidateID]; ok {
			name, role := c.Name, c.Role
			row.CurrentName = &name
			row.CurrentRole = &role
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *MockDB) CountVotes(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.votes)), nil
}

func (m *MockDB) GetLastVote(_ context.Context) (*database.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.votes) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	last := m.votes[0]
	for _, v := range m.votes[1:] {
		if !v.CastAt.Before(last.CastAt) {
			last = v
		}
	}
	return &last, nil
}
