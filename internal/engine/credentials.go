package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/evoting/internal/database"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput holds the fields submitted at registration.
type RegisterInput struct {
	Name       string
	Email      string
	Phone      string
	Identifier string
	Password   string
}

// Principal is the public identity of an authenticated user.
type Principal struct {
	Identifier string
	Name       string
	Email      string
	IsAdmin    bool
}

func principalFromUser(u *database.User) *Principal {
	return &Principal{
		Identifier: u.Identifier,
		Name:       u.Name,
		Email:      u.Email,
		IsAdmin:    u.IsAdmin,
	}
}

// Register creates a new voter account.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*Principal, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Identifier = strings.TrimSpace(in.Identifier)

	if in.Name == "" || in.Email == "" || in.Identifier == "" || in.Password == "" {
		return nil, newError(KindValidation, "name, email, usn and password are required")
	}

	user, err := e.createUser(ctx, in, false)
	if err != nil {
		return nil, err
	}

	log.Info("Registered user", "usn", user.Identifier)
	return principalFromUser(user), nil
}

func (e *Engine) createUser(ctx context.Context, in RegisterInput, isAdmin bool) (*database.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), e.cfg.Auth.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, newError(KindValidation, "password is too long")
		}
		return nil, storageError("failed to hash password", err)
	}

	user := &database.User{
		Identifier:   in.Identifier,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	}
	if err := e.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			return nil, ErrDuplicateIdentifier
		}
		return nil, storageError("failed to create user", err)
	}
	return user, nil
}

// Authenticate checks the password of a user.
// Unknown identifiers and wrong passwords both fail with ErrBadCredentials.
func (e *Engine) Authenticate(ctx context.Context, identifier, password string) (*Principal, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, newError(KindValidation, "usn and password are required")
	}

	user, err := e.db.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(e.dummyHash, []byte(password))
			log.Debug("Login for unknown user", "usn", identifier)
			return nil, ErrBadCredentials
		}
		return nil, storageError("failed to get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Debug("Login with wrong password", "usn", identifier)
		return nil, ErrBadCredentials
	}

	return principalFromUser(user), nil
}

// SetAdmin grants or revokes the admin flag. It is only reachable from the CLI.
func (e *Engine) SetAdmin(ctx context.Context, identifier string, isAdmin bool) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return newError(KindValidation, "usn is required")
	}
	if err := e.db.SetUserAdmin(ctx, identifier, isAdmin); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownIdentifier
		}
		return storageError("failed to update user", err)
	}
	log.Info("Updated admin flag", "usn", identifier, "admin", isAdmin)
	return nil
}

// EnsureBootstrapAdmin creates the configured bootstrap admin or makes sure
// the existing account has the admin flag. It does nothing if no bootstrap admin is configured.
func (e *Engine) EnsureBootstrapAdmin(ctx context.Context) error {
	admin := e.cfg.BootstrapAdmin
	if admin == nil || admin.Identifier == "" {
		return nil
	}

	name := admin.Name
	if name == "" {
		name = admin.Identifier
	}
	_, err := e.createUser(ctx, RegisterInput{
		Name:       name,
		Email:      admin.Email,
		Identifier: admin.Identifier,
		Password:   admin.Password,
	}, true)
	switch {
	case err == nil:
		log.Info("Created bootstrap admin", "usn", admin.Identifier)
		return nil
	case errors.Is(err, ErrDuplicateIdentifier):
		// only promote the account if it is the one the operator configured
		if _, err := e.Authenticate(ctx, admin.Identifier, admin.Password); err != nil {
			if errors.Is(err, ErrBadCredentials) {
				log.Warn("Bootstrap admin identifier is taken by another account", "usn", admin.Identifier)
				return newError(KindDuplicateIdentifier, "bootstrap admin identifier belongs to an account with a different password")
			}
			return err
		}
		return e.SetAdmin(ctx, admin.Identifier, true)
	default:
		return err
	}
}
