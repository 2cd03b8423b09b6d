package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mbruun/roadlog/config"
	"github.com/mbruun/roadlog/internal/api/handlers"
	"github.com/mbruun/roadlog/internal/api/middleware"
	"github.com/mbruun/roadlog/internal/api/routes"
	"github.com/mbruun/roadlog/internal/logger"
	"github.com/mbruun/roadlog/internal/media"
	"github.com/mbruun/roadlog/internal/providers/stt"
	pgrepo "github.com/mbruun/roadlog/internal/repositories/postgres"
	"github.com/mbruun/roadlog/internal/services"
	"github.com/mbruun/roadlog/internal/storage"
	"github.com/mbruun/roadlog/internal/tempfile"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx := context.Background()

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	log.Info("PostgreSQL connected")

	store, err := storage.NewFromEnv(ctx)
	if err != nil {
		log.Fatalf("audio storage init error: %v", err)
	}

	// Missing credentials fail here, at startup, not per request.
	provider, err := stt.CreateProvider(ctx)
	if err != nil {
		log.Fatalf("transcription backend init error: %v", err)
	}
	defer provider.Close()

	arena, err := tempfile.New(os.Getenv("TMP_DIR"), log)
	if err != nil {
		log.Fatalf("temp arena init error: %v", err)
	}

	transcodeTimeout := 10 * time.Second
	if v := os.Getenv("TRANSCODE_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			transcodeTimeout = time.Duration(secs) * time.Second
		}
	}
	normalizer := media.NewNormalizer(os.Getenv("FFMPEG_BIN"), transcodeTimeout, log)
	log.WithField("transcoder_available", normalizer.Available()).Info("audio normalizer ready")

	repo := pgrepo.NewObservationRepo(config.PostgresDB)
	ingestSvc := services.NewIngestionService(arena, normalizer, provider, store, repo, log)
	obsSvc := services.NewObservationService(repo, store, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Observation: handlers.NewObservationHandler(ingestSvc, obsSvc),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
