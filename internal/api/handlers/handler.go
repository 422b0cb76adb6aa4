package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jbsn-app/file-service/internal/catalog"
	"github.com/jbsn-app/file-service/internal/contentstore"
	"github.com/jbsn-app/file-service/internal/events"
	"github.com/jbsn-app/file-service/internal/ingest"
)

// Handler holds the dependencies shared by the API handlers.
type Handler struct {
	Catalog *catalog.Catalog
	Store   contentstore.Store
	Ingest  *ingest.Service
}

func New(cat *catalog.Catalog, store contentstore.Store, pub *events.Publisher) *Handler {
	return &Handler{
		Catalog: cat,
		Store:   store,
		Ingest: &ingest.Service{
			Catalog: cat,
			Store:   store,
			Events:  pub,
		},
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
