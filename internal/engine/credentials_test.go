package engine

import (
	"strings"

	"github.com/jon4hz/evoting/internal/config"
)

func (s *EngineTestSuite) TestRegister() {
	p, err := s.engine.Register(s.ctx, RegisterInput{
		Name:       "  Asha  ",
		Email:      "asha@example.com",
		Phone:      "",
		Identifier: " 1RV20CS001 ",
		Password:   "pass",
	})
	s.Require().NoError(err)
	s.Equal("1RV20CS001", p.Identifier)
	s.Equal("Asha", p.Name)
	s.False(p.IsAdmin)

	user, err := s.db.GetUserByIdentifier(s.ctx, "1RV20CS001")
	s.Require().NoError(err)
	s.NotEqual("pass", user.PasswordHash)
	s.False(user.IsAdmin)
}

func (s *EngineTestSuite) TestRegisterValidation() {
	tests := []RegisterInput{
		{Email: "a@example.com", Identifier: "u1", Password: "p"},
		{Name: "A", Identifier: "u1", Password: "p"},
		{Name: "A", Email: "a@example.com", Password: "p"},
		{Name: "A", Email: "a@example.com", Identifier: "u1"},
		{Name: "   ", Email: "a@example.com", Identifier: "u1", Password: "p"},
	}
	for _, in := range tests {
		_, err := s.engine.Register(s.ctx, in)
		s.ErrorIs(err, ErrValidation)
	}

	_, err := s.engine.Register(s.ctx, RegisterInput{
		Name: "A", Email: "a@example.com", Identifier: "u1", Password: strings.Repeat("x", 73),
	})
	s.ErrorIs(err, ErrValidation)

	count, err := s.db.CountUsers(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *EngineTestSuite) TestRegisterDuplicate() {
	s.register("u1")

	_, err := s.engine.Register(s.ctx, RegisterInput{
		Name: "Someone Else", Email: "else@example.com", Identifier: "u1", Password: "other",
	})
	s.ErrorIs(err, ErrDuplicateIdentifier)
	s.Equal(KindDuplicateIdentifier, KindOf(err))

	// the first password still works, the record was not replaced
	p, err := s.engine.Authenticate(s.ctx, "u1", "secret-u1")
	s.Require().NoError(err)
	s.Equal("Voter u1", p.Name)
}

func (s *EngineTestSuite) TestAuthenticate() {
	s.register("u1")

	p, err := s.engine.Authenticate(s.ctx, "u1", "secret-u1")
	s.Require().NoError(err)
	s.Equal("u1", p.Identifier)
	s.Equal("u1@example.com", p.Email)
	s.False(p.IsAdmin)

	_, err = s.engine.Authenticate(s.ctx, "u1", "wrong")
	s.ErrorIs(err, ErrBadCredentials)

	// unknown users get the same error as wrong passwords
	_, unknownErr := s.engine.Authenticate(s.ctx, "nobody", "secret-u1")
	s.ErrorIs(unknownErr, ErrBadCredentials)
	s.Equal(MessageOf(err), MessageOf(unknownErr))

	_, err = s.engine.Authenticate(s.ctx, "", "x")
	s.ErrorIs(err, ErrValidation)
	_, err = s.engine.Authenticate(s.ctx, "u1", "")
	s.ErrorIs(err, ErrValidation)
}

func (s *EngineTestSuite) TestSetAdmin() {
	s.register("u1")

	s.Require().NoError(s.engine.SetAdmin(s.ctx, "u1", true))
	p, err := s.engine.Authenticate(s.ctx, "u1", "secret-u1")
	s.Require().NoError(err)
	s.True(p.IsAdmin)

	s.Require().NoError(s.engine.SetAdmin(s.ctx, "u1", false))
	p, err = s.engine.Authenticate(s.ctx, "u1", "secret-u1")
	s.Require().NoError(err)
	s.False(p.IsAdmin)

	s.ErrorIs(s.engine.SetAdmin(s.ctx, "nobody", true), ErrUnknownIdentifier)
	s.ErrorIs(s.engine.SetAdmin(s.ctx, " ", true), ErrValidation)
}

func (s *EngineTestSuite) TestEnsureBootstrapAdmin() {
	// not configured
	s.Require().NoError(s.engine.EnsureBootstrapAdmin(s.ctx))

	s.engine.cfg.BootstrapAdmin = &config.BootstrapAdminConfig{
		Identifier: "admin",
		Email:      "admin@example.com",
		Password:   "admin-pass",
	}
	s.Require().NoError(s.engine.EnsureBootstrapAdmin(s.ctx))

	p, err := s.engine.Authenticate(s.ctx, "admin", "admin-pass")
	s.Require().NoError(err)
	s.True(p.IsAdmin)
	s.Equal("admin", p.Name)

	// an account registered by someone else is not promoted
	s.register("u1")
	s.engine.cfg.BootstrapAdmin.Identifier = "u1"
	err = s.engine.EnsureBootstrapAdmin(s.ctx)
	s.Require().Error(err)
	s.ErrorIs(err, ErrDuplicateIdentifier)

	p, err = s.engine.Authenticate(s.ctx, "u1", "secret-u1")
	s.Require().NoError(err)
	s.False(p.IsAdmin)
	_, err = s.engine.Authenticate(s.ctx, "u1", "admin-pass")
	s.ErrorIs(err, ErrBadCredentials)

	// the operator's own existing account is promoted and keeps its password
	s.engine.cfg.BootstrapAdmin.Password = "secret-u1"
	s.Require().NoError(s.engine.EnsureBootstrapAdmin(s.ctx))
	p, err = s.engine.Authenticate(s.ctx, "u1", "secret-u1")
	s.Require().NoError(err)
	s.True(p.IsAdmin)

	// running it again is a no-op
	s.Require().NoError(s.engine.EnsureBootstrapAdmin(s.ctx))
}
