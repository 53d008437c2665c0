package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/catalog"
	"github.com/vnkhanh/podcastr-backend/config"
	"github.com/vnkhanh/podcastr-backend/content"
	"github.com/vnkhanh/podcastr-backend/engagement"
	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/metrics"
	"github.com/vnkhanh/podcastr-backend/middleware"
	"github.com/vnkhanh/podcastr-backend/player"
	"github.com/vnkhanh/podcastr-backend/playlist"
	"github.com/vnkhanh/podcastr-backend/routes"
	"github.com/vnkhanh/podcastr-backend/search"
	"github.com/vnkhanh/podcastr-backend/services"
	"github.com/vnkhanh/podcastr-backend/storage"
	"github.com/vnkhanh/podcastr-backend/users"
	"github.com/vnkhanh/podcastr-backend/utils"
	"github.com/vnkhanh/podcastr-backend/ws"
)

// playbackTTL bounds how long an idle player state is kept in Redis.
const playbackTTL = 30 * 24 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.Load()
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("Invalid configuration", zap.Error(err))
	}
	metrics.Initialize()

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	ctx := context.Background()
	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize blob storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	index, err := newSearchIndex(ctx, cfg, db)
	if err != nil {
		logger.Log.Fatal("Failed to initialize search", zap.String("driver", cfg.SearchDriver), zap.Error(err))
	}
	persister, err := newPersister(cfg, db)
	if err != nil {
		logger.Log.Fatal("Failed to initialize player persistence", zap.Error(err))
	}

	openAI := services.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.AITimeout)
	var speech services.SpeechSynthesizer = openAI
	if cfg.TTSDriver == "google" {
		speech = services.NewGoogleSpeech(cfg.GoogleCredentialsJSON, 1.0)
	}
	var text services.TextGenerator = services.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
	if cfg.GeminiAPIKey == "" && cfg.OpenAIAPIKey != "" {
		text = openAI
	}

	hub := ws.NewHub()
	userSvc := users.NewService(db)

	deps := routes.Deps{
		DB:             db,
		JWTSecret:      []byte(cfg.JWTSecret),
		TokenTTL:       utils.DefaultTokenTTL,
		GoogleClientID: cfg.GoogleClientID,
		WebhookSecret:  cfg.IdentityWebhookSecret,
		Users:          userSvc,
		Catalog:        catalog.NewService(db, index),
		Content:        content.NewService(db, userSvc, blobs, index, hub),
		Playlists:      playlist.NewService(db, userSvc),
		Engagement:     engagement.NewService(db),
		Player:         player.NewStore(db, persister),
		Generator:      services.NewGenerator(text, speech, openAI, blobs, cfg.AITimeout),
		Hub:            hub,
		Upgrader:       ws.NewUpgrader(cfg.CORSOrigins),
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.MetricsMiddleware(),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Auth-Token", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
		}),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/metrics"})),
	)
	routes.SetupRouter(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Log.Info("Server exited")
}

func newBlobStore(ctx context.Context, cfg config.Config) (storage.BlobStore, error) {
	switch cfg.StorageDriver {
	case "s3":
		return storage.NewS3(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3BaseURL)
	case "memory":
		logger.Log.Warn("Using in-memory blob storage, uploads are lost on restart")
		return storage.NewMemory(""), nil
	default:
		return storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
	}
}

func newSearchIndex(ctx context.Context, cfg config.Config, db *gorm.DB) (search.Index, error) {
	if cfg.SearchDriver != "elasticsearch" && cfg.SearchDriver != "elastic" {
		return search.NewDBIndex(db), nil
	}
	index, err := search.NewElasticIndex(cfg.ElasticsearchURL)
	if err != nil {
		return nil, err
	}
	if err := index.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return index, nil
}

func newPersister(cfg config.Config, db *gorm.DB) (player.Persister, error) {
	if cfg.RedisHost == "" {
		return player.NewDBPersister(db), nil
	}
	client, err := player.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Player state stored in Redis", zap.String("host", cfg.RedisHost))
	return player.NewRedisPersister(client, playbackTTL), nil
}
