package engine

func (s *EngineTestSuite) TestGetStats() {
	stats, err := s.engine.GetStats(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats.Users)
	s.Nil(stats.LastVote)
	s.Zero(stats.Turnout)

	c := s.candidate("Asha", "President")
	v1 := s.register("u1")
	s.register("u2")
	_, err = s.engine.CastVote(s.ctx, v1, c.ID)
	s.Require().NoError(err)

	stats, err = s.engine.GetStats(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(2, stats.Users)
	s.EqualValues(1, stats.Candidates)
	s.EqualValues(1, stats.Votes)
	s.NotNil(stats.LastVote)
	s.InDelta(50.0, stats.Turnout, 0.001)
}
