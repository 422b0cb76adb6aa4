package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListFiles returns every file record, most recent upload first.
func (h *Handler) ListFiles(c *gin.Context) {
	files, err := h.Catalog.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"files":   files,
	})
}

// GetStats returns the catalog totals and a per-type breakdown.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.Catalog.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}
