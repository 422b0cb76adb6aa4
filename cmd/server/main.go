package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/jbsn-app/file-service/internal/api"
	"github.com/jbsn-app/file-service/internal/api/handlers"
	"github.com/jbsn-app/file-service/internal/catalog"
	"github.com/jbsn-app/file-service/internal/configuration"
	"github.com/jbsn-app/file-service/internal/contentstore"
	"github.com/jbsn-app/file-service/internal/events"
)

func main() {
	cfg := configuration.Load()

	driver, dsn := cfg.Database.DriverAndDSN()
	if driver == "sqlite" {
		if dir := filepath.Dir(cfg.Database.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				log.Fatalf("Failed to create data directory: %v", err)
			}
		}
	}

	cat, err := catalog.Open(driver, dsn)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize content store: %v", err)
	}

	var pub *events.Publisher
	if cfg.NATSURL != "" {
		pub, err = events.Connect(cfg.NATSURL)
		if err != nil {
			log.Printf("Warning: failed to connect to NATS: %v", err)
			log.Println("Continuing without event publishing...")
		}
	}

	tracer.Start(tracer.WithService("jbsn-file-service"))

	setupGracefulShutdown(cat, pub)

	r := gin.Default()
	h := handlers.New(cat, store, pub)
	api.RegisterRoutes(r, h, cfg.Server.StaticDir)

	log.Println("Server starting on :" + cfg.Server.Port)
	log.Println("Upload endpoint:   POST /api/upload")
	log.Println("Files endpoint:    GET  /api/files")
	log.Println("Stats endpoint:    GET  /api/stats")
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func buildStore(cfg *configuration.Config) (contentstore.Store, error) {
	if cfg.Storage.Backend == "minio" {
		return contentstore.NewMinIO(
			cfg.MinIO.Endpoint,
			cfg.MinIO.AccessKey,
			cfg.MinIO.SecretKey,
			cfg.MinIO.BucketName,
			cfg.MinIO.UseSSL,
		)
	}
	return contentstore.NewLocal(cfg.Storage.UploadDir)
}

func setupGracefulShutdown(cat *catalog.Catalog, pub *events.Publisher) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down gracefully...")
		tracer.Stop()
		pub.Close()
		if err := cat.Close(); err != nil {
			log.Printf("Warning: failed to close catalog: %v", err)
		}
		os.Exit(0)
	}()
}
