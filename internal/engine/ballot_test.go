package engine

import (
	"errors"
	"sync"
)

func (s *EngineTestSuite) TestCastVote() {
	voter := s.register("u1")
	c := s.candidate("Asha", "President")

	vote, err := s.engine.CastVote(s.ctx, voter, c.ID)
	s.Require().NoError(err)
	s.Equal("u1", vote.VoterID)
	s.Equal(c.ID, vote.CandidateID)
	s.Equal("Asha", vote.CandidateName)
	s.False(vote.CastAt.IsZero())

	voted, err := s.engine.HasVoted(s.ctx, "u1")
	s.Require().NoError(err)
	s.True(voted)
}

func (s *EngineTestSuite) TestCastVoteTwice() {
	voter := s.register("u1")
	first := s.candidate("Asha", "President")
	second := s.candidate("Ravi", "Secretary")

	_, err := s.engine.CastVote(s.ctx, voter, first.ID)
	s.Require().NoError(err)

	_, err = s.engine.CastVote(s.ctx, voter, second.ID)
	s.ErrorIs(err, ErrAlreadyVoted)
	s.Equal(KindAlreadyVoted, KindOf(err))

	count, err := s.db.CountVotes(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, count)
}

func (s *EngineTestSuite) TestCastVoteErrors() {
	voter := s.register("u1")

	_, err := s.engine.CastVote(s.ctx, nil, "c1")
	s.ErrorIs(err, ErrUnauthenticated)
	_, err = s.engine.CastVote(s.ctx, &Principal{}, "c1")
	s.ErrorIs(err, ErrUnauthenticated)

	_, err = s.engine.CastVote(s.ctx, voter, "  ")
	s.ErrorIs(err, ErrMissingCandidate)

	_, err = s.engine.CastVote(s.ctx, voter, "cdoesnotexist")
	s.ErrorIs(err, ErrUnknownCandidate)

	voted, err := s.engine.HasVoted(s.ctx, "u1")
	s.Require().NoError(err)
	s.False(voted)
}

func (s *EngineTestSuite) TestCastVoteConcurrent() {
	voter := s.register("u1")
	candidates := []string{s.candidate("Asha", "President").ID, s.candidate("Ravi", "Secretary").ID}

	const attempts = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
		other    []error
	)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.engine.CastVote(s.ctx, voter, candidates[i%2])
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrAlreadyVoted):
				rejected++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	s.Empty(other)
	s.Equal(1, accepted)
	s.Equal(attempts-1, rejected)

	count, err := s.db.CountVotes(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, count)
}
