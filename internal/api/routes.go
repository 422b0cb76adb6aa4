package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"

	"github.com/jbsn-app/file-service/internal/api/handlers"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// RegisterRoutes wires the API surface onto the router. When staticDir is
// set the frontend tree is served for everything outside /api.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, staticDir string) {
	// Enable CORS for preflight requests
	r.Use(corsMiddleware())
	r.Use(gintrace.Middleware("jbsn-file-service"))

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)

		api.POST("/upload", h.Upload)        // upload one or more files
		api.GET("/files", h.ListFiles)       // list all uploaded files
		api.GET("/stats", h.GetStats)        // catalog totals
		api.GET("/download/:id", h.Download) // download a specific file
		api.GET("/delete/:id", h.Delete)     // delete a specific file
	}

	if staticDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(staticDir))))
	}
}
