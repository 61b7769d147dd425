package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/config"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/middleware"
	"github.com/massage-panel/massage-panel-api/models"
	"github.com/massage-panel/massage-panel-api/routes"
	"github.com/massage-panel/massage-panel-api/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	log.Info("starting Massage Panel API server", "env", cfg.GoEnv, "timezone", cfg.StoreTimezone)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := config.ConnectDatabase(); err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		log.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	log.Info("database migration completed successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient := services.NewRedisClient(ctx, cfg.RedisURL, log)
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("rate limits backed by redis")
	}

	var images services.ImageService
	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			log.Error("failed to initialize S3", "error", err)
			os.Exit(1)
		}
		images = services.NewPhotoService(s3Service)
	} else {
		log.Warn("AWS_S3_BUCKET not set, therapist photo upload is disabled")
	}

	auth, err := middleware.Authenticate(cfg, log)
	if err != nil {
		log.Error("failed to set up authentication", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := routes.SetupRouter(routes.Options{
		Config:      cfg,
		DB:          db,
		Logger:      log,
		Auth:        auth,
		Registry:    registry,
		RateLimiter: services.NewRateLimiter(redisClient, cfg.RateLimitPerMinute),
		Images:      images,
	})

	addr := ":" + cfg.Port
	log.Info("server is running", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}
