package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jbsn-app/file-service/internal/catalog"
)

// Download streams a stored file back as an attachment named after the
// client's original filename.
func (h *Handler) Download(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid file ID"})
		return
	}

	rec, err := h.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "File not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	content, err := h.Store.Open(c.Request.Context(), rec.StoredName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "File not found"})
		return
	}
	defer content.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(rec.OriginalName)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, rec.FileSize, contentType, content, map[string]string{
		"Content-Description": "File Transfer",
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", rec.OriginalName),
	})
}
