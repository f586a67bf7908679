package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/impulse-dash/backend/internal/api"
	"github.com/impulse-dash/backend/internal/api/handlers"
	"github.com/impulse-dash/backend/internal/bootstrap"
	"github.com/impulse-dash/backend/internal/cache/redis"
	"github.com/impulse-dash/backend/internal/dashboard"
	"github.com/impulse-dash/backend/internal/ingestion"
	"github.com/impulse-dash/backend/internal/metrics"
	"github.com/impulse-dash/backend/internal/middleware/ratelimit"
	"github.com/impulse-dash/backend/internal/middleware/security"
	"github.com/impulse-dash/backend/internal/middleware/validation"
	"github.com/impulse-dash/backend/internal/render"
	"github.com/impulse-dash/backend/pkg/config"
	appLogger "github.com/impulse-dash/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Impulse Dashboard API Server")
	metrics.Init()

	normalizer := bootstrap.Normalizer(cfg)
	raw := bootstrap.RawSource(cfg, normalizer)

	var source ingestion.Source = raw
	checks := map[string]handlers.Pinger{}
	var cacheHandler *handlers.CacheHandler

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		source = ingestion.NewCachedSource(raw, redisClient, cfg.Redis.TTL(), normalizer)
		checks["redis"] = redisClient
		cacheHandler = handlers.NewCacheHandler(redisClient)
	}

	service, err := dashboard.NewService(source, dashboard.Options{
		Constructs: cfg.Definitions(),
		Pages:      cfg.Pages,
		Orders:     cfg.Orders,
	})
	if err != nil {
		appLogger.Fatal("Failed to create dashboard service", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	origins := security.ParseOrigins(cfg.Server.AllowedOrigins)

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, HEAD, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: origins,
		IsDevelopment:  cfg.Server.Development,
	}))
	app.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	api.SetupRoutes(app, api.Handlers{
		Dashboard: handlers.NewDashboardHandler(service, render.Options{
			WidthIn:  cfg.Render.WidthIn,
			HeightIn: cfg.Render.HeightIn,
		}),
		Health:  handlers.NewHealthHandler(checks),
		Cache:   cacheHandler,
		Renders: ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.Server.RendersPerMinute, Logger: appLogger.GetLogger()}),
		Logger:  appLogger.GetLogger(),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr), zap.String("source", source.Name()))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Warn("Shutdown did not complete cleanly", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
