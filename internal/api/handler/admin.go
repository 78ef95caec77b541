package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/evoting/internal/api/models"
	"github.com/jon4hz/evoting/internal/export"
)

// Results returns the vote count of every candidate.
func (h *Handler) Results(c *gin.Context) {
	rows, err := h.engine.Tally(c.Request.Context())
	if err != nil {
		c.JSON(models.NewErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, models.ToResultRows(rows))
}

// Download sends the vote ledger as an xlsx attachment.
func (h *Handler) Download(c *gin.Context) {
	rows, err := h.engine.ExportRows(c.Request.Context())
	if err != nil {
		c.JSON(models.NewErrorResponse(err))
		return
	}

	var buf bytes.Buffer
	if err := export.WriteVotes(&buf, rows); err != nil {
		log.Error("Failed to write votes workbook", "error", err)
		c.JSON(models.NewErrorResponse(err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
