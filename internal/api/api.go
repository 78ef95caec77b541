package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/evoting/internal/api/auth"
	"github.com/jon4hz/evoting/internal/api/handler"
	"github.com/jon4hz/evoting/internal/api/session"
	"github.com/jon4hz/evoting/internal/cache"
	"github.com/jon4hz/evoting/internal/config"
	"github.com/jon4hz/evoting/internal/engine"
	"github.com/jon4hz/evoting/internal/gravatar"
	"github.com/jon4hz/evoting/internal/symbols"
)

type Server struct {
	cfg          *config.Config
	ginEngine    *gin.Engine
	engine       *engine.Engine
	authProvider *auth.Provider
	sessionStore *session.Store
}

// New creates the HTTP server and registers all routes.
func New(cfg *config.Config, e *engine.Engine, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := gravatar.Validate(cfg.Gravatar); err != nil {
		return nil, err
	}

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery(), requestLogger())

	sessionStore := session.NewStore(
		cache.New[map[string]any](cfg.Cache, cache.SessionCachePrefix),
		cfg.Session.SessionKeyBytes()...,
	)

	s := &Server{
		cfg:          cfg,
		ginEngine:    ginEngine,
		engine:       e,
		authProvider: auth.NewProvider(e, sessionStore, cfg.Session, cfg.Gravatar),
		sessionStore: sessionStore,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupSession() {
	s.sessionStore.Options(auth.CookieOptions(s.cfg.Session))
	s.ginEngine.Use(sessions.Sessions(s.cfg.Session.CookieName, s.sessionStore))
}

func (s *Server) setupRoutes() {
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/download", symbols.URLPrefix})))
	s.setupSession()
	s.ginEngine.Use(s.authProvider.LoadUser())

	h := handler.New(s.engine, s.cfg)

	s.ginEngine.GET("/healthz", h.Healthz)
	s.ginEngine.Static(symbols.URLPrefix, s.engine.GetSymbolStore().Dir())

	api := s.ginEngine.Group("/api")
	api.POST("/register", h.Register)
	api.POST("/login", s.authProvider.Login)
	api.GET("/candidates", h.ListCandidates)

	protected := api.Group("")
	protected.Use(s.authProvider.RequireAuth())
	protected.POST("/logout", s.authProvider.Logout)
	protected.GET("/me", h.Me)
	protected.POST("/vote", h.Vote)

	admin := api.Group("")
	admin.Use(s.authProvider.RequireAdmin())
	admin.POST("/candidates", h.CreateCandidate)
	admin.DELETE("/candidates/:id", h.DeleteCandidate)
	admin.GET("/results", h.Results)
	admin.GET("/download", h.Download)

}

// Handler returns the http.Handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs every request with the charm logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}
