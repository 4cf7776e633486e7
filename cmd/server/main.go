package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resona/api/internal/admin"
	"resona/api/internal/auth"
	"resona/api/internal/charts"
	"resona/api/internal/cloud"
	"resona/api/internal/config"
	"resona/api/internal/db"
	"resona/api/internal/events"
	"resona/api/internal/history"
	"resona/api/internal/middleware"
	"resona/api/internal/playlist"
	"resona/api/internal/scheduler"
	"resona/api/internal/search"
	"resona/api/internal/social"
	"resona/api/internal/track"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env (ignored in production if not present)
	_ = godotenv.Load()

	cfg := config.Load()

	// Initialize Clerk — reads CLERK_SECRET_KEY from env automatically,
	// but we set it explicitly so a missing key fails fast.
	clerk.SetKey(cfg.ClerkSecretKey)

	// Structured logger
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	// Databases
	database := db.Connect(cfg.MongoURI)
	defer db.Disconnect(database)

	cache := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
	defer cache.Close()

	// Create MongoDB indexes at startup
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	auth.EnsureIndexes(ctx, database)
	cancel()

	// External clients
	cloudClient := cloud.New(cfg)
	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	// Domain services
	durations := track.NewDurationProvider(database)
	playlistStore := playlist.NewStore(database, durations)
	chartService := charts.NewService(database, cache, cfg.ChartWindowDays, cfg.ChartSize, cfg.ChartCacheTTL)

	// Gin setup
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.GlobalRateLimit())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Admin-Key"},
		AllowCredentials: true,
		MaxAge:           86400 * time.Second,
	}))

	// Health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Serve static files
	r.Static("/public", "./public")

	// Auth middleware (shared across handlers)
	authMiddleware := middleware.NewAuth(database)

	// Register domain handlers
	auth.NewHandler(database, cloudClient).RegisterRoutes(r, authMiddleware)
	track.NewHandler(database, cloudClient, playlistStore).RegisterRoutes(r, authMiddleware)
	playlist.NewHandler(database, playlistStore, cloudClient, publisher).RegisterRoutes(r, authMiddleware)
	social.NewHandler(database).RegisterRoutes(r, authMiddleware)
	history.NewHandler(database, publisher).RegisterRoutes(r, authMiddleware)
	charts.NewHandler(chartService).RegisterRoutes(r)
	search.NewHandler(database).RegisterRoutes(r)
	admin.NewHandler(playlistStore, chartService, publisher).RegisterRoutes(r, cfg.AdminKeyHash)

	// Background jobs: draft reaping and chart refresh
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()
	scheduler.New(playlistStore, chartService, publisher, cfg.DraftMaxAgeDays).Start(jobCtx)

	// HTTP server with timeouts
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start in background goroutine
	go func() {
		slog.Info("server listening", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT / SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutdown signal received, draining connections...")
	jobCancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	slog.Info("server stopped cleanly")
}
