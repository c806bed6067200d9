package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/formlab/builder-service/internal/cache"
	"github.com/formlab/builder-service/internal/config"
	"github.com/formlab/builder-service/internal/handlers"
	"github.com/formlab/builder-service/internal/models"
	"github.com/formlab/builder-service/internal/repositories"
	"github.com/formlab/builder-service/internal/repositories/postgres"
	"github.com/formlab/builder-service/internal/services"
	"github.com/formlab/builder-service/internal/utils"
	"github.com/formlab/builder-service/internal/validator"
	"github.com/formlab/builder-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(slogger)
	logger := utils.NewSlogLogger(slogger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.Draft{}); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	var repo repositories.DraftRepository = postgres.NewDraftPostgreSQL(db)

	// Redis is optional; without it reads go straight to postgres.
	if redisClient, err := pkg.NewRedisClient(cfg); err != nil {
		slogger.Warn("redis unavailable, running without draft cache", "error", err)
	} else {
		cacheService := cache.NewRedisCache(redisClient, slogger)
		repo = repositories.NewCachedDraftRepository(repo, cacheService, slogger)
	}

	eventCfg := config.LoadEventConfig()
	publisher, err := eventCfg.CreateEventPublisher(slogger)
	if err != nil {
		log.Fatalf("failed to create event publisher: %v", err)
	}
	defer publisher.Close()

	v := validator.New()
	builderService := services.NewBuilderService(repo, publisher, slogger, v)
	defer builderService.DisposeAll()
	previewService := services.NewPreviewService(slogger)
	exportService := services.NewExportService(repo, slogger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(utils.LoggerMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Fatalf("failed to configure trusted proxies: %v", err)
	}

	hm := handlers.NewHandlerManager(builderService, previewService, exportService, v, logger)
	hm.SetupRoutes(r)

	slogger.Info("builder service listening", "port", cfg.Port, "environment", cfg.Environment)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
