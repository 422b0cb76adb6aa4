package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jbsn-app/file-service/internal/ingest"
)

// Upload accepts one or more files under the multipart field "files"
// (with "file" as a fallback), plus optional "notes" and comma-separated
// "tags" fields. The batch succeeds if at least one file was accepted.
func (h *Handler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Expected multipart/form-data",
		})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}

	notes := c.PostForm("notes")
	tags := splitTags(c.PostForm("tags"))

	files := make([]ingest.IncomingFile, 0, len(headers))
	openErrors := []ingest.UploadError{}
	for _, fh := range headers {
		if fh.Filename == "" {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			openErrors = append(openErrors, ingest.UploadError{
				Filename: fh.Filename,
				Error:    "failed to read uploaded file: " + err.Error(),
			})
			continue
		}
		defer f.Close()
		files = append(files, ingest.IncomingFile{Filename: fh.Filename, Content: f})
	}

	result := h.Ingest.Ingest(c.Request.Context(), files, notes, tags)
	result.Errors = append(result.Errors, openErrors...)

	status := http.StatusOK
	if !result.OK() {
		status = http.StatusBadRequest
	}

	c.JSON(status, gin.H{
		"success":  result.OK(),
		"uploaded": result.Uploaded,
		"errors":   result.Errors,
		"message":  fmt.Sprintf("Successfully uploaded %d file(s)", len(result.Uploaded)),
	})
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
