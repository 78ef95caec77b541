package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/evoting/internal/api/auth"
	"github.com/jon4hz/evoting/internal/api/models"
	"github.com/jon4hz/evoting/internal/config"
	"github.com/jon4hz/evoting/internal/engine"
)

type Handler struct {
	engine *engine.Engine
	config *config.Config
}

func New(eng *engine.Engine, cfg *config.Config) *Handler {
	return &Handler{
		engine: eng,
		config: cfg,
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   string(engine.KindValidation),
		Message: message,
	})
}

// Register creates a voter account. It does not log the user in.
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	_, err := h.engine.Register(c.Request.Context(), engine.RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Identifier: req.USN,
		Password:   req.Pass,
	})
	if err != nil {
		c.JSON(models.NewErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, models.OKResponse{OK: true})
}

// Me returns the session user and whether they already voted.
func (h *Handler) Me(c *gin.Context) {
	user := auth.CurrentUser(c)

	voted, err := h.engine.HasVoted(c.Request.Context(), user.Identifier)
	if err != nil {
		c.JSON(models.NewErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, models.MeResponse{
		OK:       true,
		User:     *user,
		HasVoted: voted,
	})
}

// ListCandidates returns all candidates. It is public.
func (h *Handler) ListCandidates(c *gin.Context) {
	candidates, err := h.engine.ListCandidates(c.Request.Context())
	if err != nil {
		c.JSON(models.NewErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, models.ToCandidates(candidates))
}

// CreateCandidate adds a candidate from a multipart form with an optional "symbol" file.
func (h *Handler) CreateCandidate(c *gin.Context) {
	if limit := h.config.Uploads.MaxBytes; limit > 0 {
		// leave room for the other form fields
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
	}

	var req models.CreateCandidateRequest
	if err := c.ShouldBind(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			badRequest(c, "symbol file is too large")
			return
		}
		badRequest(c, "invalid request body")
		return
	}

	symbol, err := c.FormFile("symbol")
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		badRequest(c, "invalid symbol upload")
		return
	}

	candidate, err := h.engine.CreateCandidate(c.Request.Context(), engine.CandidateInput{
		Name:      req.Name,
		Role:      req.Role,
		SymbolURL: req.SymbolURL,
		Symbol:    symbol,
	})
	if err != nil {
		c.JSON(models.NewErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, models.CreateCandidateResponse{
		OK:        true,
		ID:        candidate.ID,
		Candidate: models.ToCandidate(*candidate),
	})
}

// DeleteCandidate removes the candidate with the given id.
func (h *Handler) DeleteCandidate(c *gin.Context) {
	if err := h.engine.DeleteCandidate(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(models.NewErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, models.OKResponse{OK: true})
}

// Vote records the vote of the session user.
func (h *Handler) Vote(c *gin.Context) {
	user := auth.CurrentUser(c)

	var req models.VoteRequest
	if err := c.ShouldBind(&req); err != nil {
		// an unreadable body has no candidate, the engine reports it
		log.Debug("Failed to bind vote request", "error", err)
	}

	vote, err := h.engine.CastVote(c.Request.Context(), user.ToPrincipal(), req.Candidate)
	if err != nil {
		c.JSON(models.NewErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, models.VoteResponse{OK: true, CastAt: vote.CastAt})
}

// Healthz reports whether the server can reach its database.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.engine.Ping(c.Request.Context()); err != nil {
		c.JSON(models.NewErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, models.OKResponse{OK: true})
}
