package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Corgi239/Speech-Command-Recognition/config"
	"github.com/Corgi239/Speech-Command-Recognition/internal/api/handlers"
	"github.com/Corgi239/Speech-Command-Recognition/internal/api/middleware"
	"github.com/Corgi239/Speech-Command-Recognition/internal/api/routes"
	"github.com/Corgi239/Speech-Command-Recognition/internal/cache"
	"github.com/Corgi239/Speech-Command-Recognition/internal/classifier"
	"github.com/Corgi239/Speech-Command-Recognition/internal/logger"
	"github.com/Corgi239/Speech-Command-Recognition/internal/mfcc"
	"github.com/Corgi239/Speech-Command-Recognition/internal/models"
	mongorepo "github.com/Corgi239/Speech-Command-Recognition/internal/repositories/mongo"
	postgresrepo "github.com/Corgi239/Speech-Command-Recognition/internal/repositories/postgres"
	"github.com/Corgi239/Speech-Command-Recognition/internal/services"
	"github.com/Corgi239/Speech-Command-Recognition/internal/storage"
	"github.com/Corgi239/Speech-Command-Recognition/internal/workers"
)

func main() {
	_ = godotenv.Load()

	l := logger.New()

	// Model first: without it there is nothing to serve.
	modelPath := os.Getenv("MODEL_PATH")
	if modelPath == "" {
		modelPath = "model/speech_commands.scnn"
	}
	var labels []string
	if p := os.Getenv("LABELS_PATH"); p != "" {
		var err error
		labels, err = classifier.LoadLabels(p)
		if err != nil {
			log.Fatalf("labels load error: %v", err)
		}
	}
	clf, err := classifier.Load(modelPath, labels)
	if err != nil {
		log.Fatalf("model load error: %v", err)
	}
	l.WithField("path", modelPath).Info("model loaded")

	extractor := mfcc.New(mfcc.DefaultConfig())

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.PostgresDB.AutoMigrate(&models.Prediction{}); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	l.Info("PostgreSQL connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	l.Info("Redis connected")

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	l.Info("MongoDB connected")

	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = "speech_commands"
	}

	// Clip archive is optional; the demo works without a bucket.
	var uploader storage.Uploader
	if bucket := os.Getenv("AUDIO_BUCKET"); bucket != "" {
		gcs, err := storage.NewGCSUploader(context.Background(), bucket)
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		defer gcs.Close()
		uploader = gcs
		l.WithField("bucket", bucket).Info("clip archive enabled")
	}

	predictionRepo := postgresrepo.NewPredictionRepo(config.PostgresDB)
	recordingRepo := mongorepo.NewRecordingRepo(config.MongoClient.Database(mongoDB))

	cacheTTL := time.Hour
	if s := os.Getenv("CACHE_TTL_MINUTES"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cacheTTL = time.Duration(n) * time.Minute
		}
	}

	predictions := services.NewPredictionService(
		extractor,
		clf,
		predictionRepo,
		cache.NewRedisCache(config.RedisClient),
		uploader,
		l,
		services.PredictionConfig{CacheTTL: cacheTTL},
	)
	recordings := services.NewRecordingService(recordingRepo, predictions, 0)
	history := services.NewHistoryService(predictionRepo)

	// Worker pool for live recordings
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := &workers.PredictWorkerPool{
		Redis:      config.RedisClient,
		Recordings: recordings,
		Logger:     l,
		Stream:     handlers.RecordingStream,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("worker pool error: %v", err)
	}

	// Start Gin server
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Predict: handlers.NewPredictHandler(predictions),
		History: handlers.NewHistoryHandler(history),
		Model:   handlers.NewModelHandler(clf, extractor),
		WS:      handlers.NewWSHandler(recordings, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
