package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Mnrljan/report-backend/config"
	"github.com/Mnrljan/report-backend/handler"
	"github.com/Mnrljan/report-backend/middleware"
	"github.com/Mnrljan/report-backend/pkg/logger"
	"github.com/Mnrljan/report-backend/service"
	"github.com/Mnrljan/report-backend/store"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", "config.yaml", "path to the YAML configuration file")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully", "store", cfg.Store.Driver)

	if cfg.Auth.JWTSecret == "" {
		slog.Error("JWT secret is not configured; set auth.jwt_secret or JWT_SECRET")
		os.Exit(1)
	}

	ctx := context.Background()

	st, err := store.Open(ctx, &cfg.Store)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}

	authSvc := service.NewAuthService(st)
	if err := authSvc.SeedUsers(ctx, cfg.Users); err != nil {
		slog.Error("failed to seed users", "error", err)
		os.Exit(1)
	}

	// Object storage is optional; it serves the template and keeps copies
	// of rendered documents.
	var minioSvc *service.MinioService
	if cfg.Minio.Enabled() {
		minioSvc, err = service.NewMinioService(&cfg.Minio)
		if err != nil {
			slog.Error("failed to initialize MINIO service", "error", err)
			os.Exit(1)
		}
		if err := minioSvc.EnsureBucket(ctx); err != nil {
			slog.Error("failed to ensure MINIO bucket", "error", err)
			os.Exit(1)
		}
	}

	var template service.TemplateSource = service.FileTemplate{Path: cfg.Render.TemplatePath}
	if cfg.Render.TemplateSource == "minio" {
		if minioSvc == nil {
			slog.Error("template_source is minio but no MINIO endpoint is configured")
			os.Exit(1)
		}
		template = minioSvc.Template(cfg.Render.TemplateObject)
	}

	renderer, err := service.NewDocumentRenderer(st, template, &cfg.Render)
	if err != nil {
		slog.Error("failed to initialize renderer", "error", err)
		os.Exit(1)
	}
	if cfg.Render.Archive && minioSvc != nil {
		renderer.SetArchive(minioSvc)
	}

	var events service.Publisher = service.NopPublisher{}
	var amqpPub *service.AMQPPublisher
	if cfg.AMQP.URL != "" {
		amqpPub, err = service.NewAMQPPublisher(&cfg.AMQP)
		if err != nil {
			slog.Error("failed to connect event broker", "error", err)
			os.Exit(1)
		}
		events = amqpPub
	}

	reportSvc := service.NewReportService(st, events, cfg.Reports)

	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	var limiter middleware.Limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, window)
	var redisClient *redis.Client
	if cfg.RateLimit.Backend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Error("failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		limiter = middleware.NewRedisLimiter(redisClient, cfg.RateLimit.Requests, window)
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authSvc, &cfg.Auth)
	reportHandler := handler.NewReportHandler(reportSvc, renderer, cfg.Server.PublicURL)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	router.Use(middleware.RequestID())                  // Request ID for tracing
	router.Use(middleware.Recovery())                   // Panic recovery
	router.Use(middleware.RequestLogger())              // Access logging
	router.Use(middleware.CORS(cfg.Server.CORSOrigins)) // CORS
	router.Use(noCacheMiddleware())                     // Cache control
	router.Use(middleware.RateLimit(limiter))           // Rate limiting

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	handler.RegisterRoutes(router.Group("/api"), authHandler, reportHandler, middleware.Protect(&cfg.Auth, st))

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	if amqpPub != nil {
		if err := amqpPub.Close(); err != nil {
			slog.Warn("failed to close event broker", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Warn("failed to close Redis", "error", err)
		}
	}
	if err := st.Close(shutdownCtx); err != nil {
		slog.Warn("failed to close store", "error", err)
	}

	slog.Info("server exited gracefully")
}

// noCacheMiddleware keeps browsers and proxies from caching API responses
func noCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}
		c.Next()
	}
}
