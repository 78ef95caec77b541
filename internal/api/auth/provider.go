package auth

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/evoting/internal/api/models"
	"github.com/jon4hz/evoting/internal/config"
	"github.com/jon4hz/evoting/internal/engine"
	"github.com/jon4hz/evoting/internal/gravatar"
)

// Session value keys.
const (
	sessionKeyIdentifier = "user_usn"
	sessionKeyName       = "user_name"
	sessionKeyEmail      = "user_email"
	sessionKeyIsAdmin    = "user_is_admin"
)

// ContextKeyUser is the gin context key of the authenticated *models.User.
const ContextKeyUser = "user"

// Authenticator verifies credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string) (*engine.Principal, error)
}

// SessionRenewer gives the session of a request a new id.
type SessionRenewer interface {
	Renew(r *http.Request, name string) error
}

// Provider handles login and logout and guards routes.
type Provider struct {
	authenticator Authenticator
	renewer       SessionRenewer
	sessionCfg    *config.SessionConfig
	gravatarCfg   *config.GravatarConfig
}

// NewProvider creates a new Provider.
func NewProvider(authenticator Authenticator, renewer SessionRenewer, sessionCfg *config.SessionConfig, gravatarCfg *config.GravatarConfig) *Provider {
	return &Provider{
		authenticator: authenticator,
		renewer:       renewer,
		sessionCfg:    sessionCfg,
		gravatarCfg:   gravatarCfg,
	}
}

// CookieOptions returns the options of the session cookie.
func CookieOptions(cfg *config.SessionConfig) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (p *Provider) sessionError(c *gin.Context, msg string, err error) {
	log.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   string(engine.KindStorageFailure),
		Message: engine.ErrStorageFailure.Message,
	})
}

// Login checks the submitted credentials and starts a session.
func (p *Provider) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   string(engine.KindValidation),
			Message: "invalid request body",
		})
		return
	}

	principal, err := p.authenticator.Authenticate(c.Request.Context(), req.USN, req.Pass)
	if err != nil {
		c.JSON(models.NewErrorResponse(err))
		return
	}

	// a cookie issued before login must not carry the authenticated session
	if err := p.renewer.Renew(c.Request, p.sessionCfg.CookieName); err != nil {
		p.sessionError(c, "Failed to renew session", err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionKeyIdentifier, principal.Identifier)
	session.Set(sessionKeyName, principal.Name)
	session.Set(sessionKeyEmail, principal.Email)
	session.Set(sessionKeyIsAdmin, principal.IsAdmin)
	if err := session.Save(); err != nil {
		p.sessionError(c, "Failed to save session", err)
		return
	}

	log.Info("User logged in", "usn", principal.Identifier, "admin", principal.IsAdmin)
	c.JSON(http.StatusOK, models.LoginResponse{
		OK:      true,
		USN:     principal.Identifier,
		Name:    principal.Name,
		IsAdmin: principal.IsAdmin,
	})
}

// Logout destroys the session. It must run behind RequireAuth.
func (p *Provider) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	opts := CookieOptions(p.sessionCfg)
	opts.MaxAge = -1
	session.Options(opts)
	if err := session.Save(); err != nil {
		p.sessionError(c, "Failed to destroy session", err)
		return
	}
	c.JSON(http.StatusOK, models.OKResponse{OK: true})
}

// LoadUser resolves the session principal once per request and stores it under ContextKeyUser.
// Anonymous requests pass through without a user.
func (p *Provider) LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		identifier := getSessionString(session, sessionKeyIdentifier)
		if identifier != "" {
			user := &models.User{
				Identifier: identifier,
				Name:       getSessionString(session, sessionKeyName),
				Email:      getSessionString(session, sessionKeyEmail),
				IsAdmin:    getSessionBool(session, sessionKeyIsAdmin),
			}
			user.GravatarURL = gravatar.URL(user.Email, p.gravatarCfg)
			c.Set(ContextKeyUser, user)
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a session.
func (p *Provider) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(models.NewErrorResponse(engine.ErrUnauthenticated))
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects requests whose session lacks the admin flag.
// Anonymous requests are rejected with 403 as well.
func (p *Provider) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			c.AbortWithStatusJSON(models.NewErrorResponse(engine.ErrForbidden))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user of the request or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextKeyUser); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func getSessionString(session sessions.Session, key string) string {
	if s, ok := session.Get(key).(string); ok {
		return s
	}
	return ""
}

func getSessionBool(session sessions.Session, key string) bool {
	if b, ok := session.Get(key).(bool); ok {
		return b
	}
	return false
}
