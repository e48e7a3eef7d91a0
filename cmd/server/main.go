package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pr-tracker/internal/config"
	"pr-tracker/internal/handler"
	"pr-tracker/internal/metrics"
	"pr-tracker/internal/repository"
	"pr-tracker/internal/service"
	"pr-tracker/pkg/database"
	"pr-tracker/pkg/logger"
	"pr-tracker/pkg/middleware"
	"pr-tracker/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := newLogger(cfg)
	defer log.Sync()

	ctx := context.Background()

	// Initialize database
	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, database.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repo := repository.NewRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatal("failed to migrate schema", zap.Error(err))
	}

	// Initialize services
	engine := service.NewEngine(repo, log,
		service.WithStrictTransitions(cfg.Workflow.StrictTransitions),
		service.WithMetrics(metrics.NewMetrics(prometheus.DefaultRegisterer)),
	)
	trackerService := service.NewTrackerService(repo, engine, log)

	// Idempotency store
	var idem handler.IdempotencyStore
	if cfg.Redis.Enabled {
		client := redis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := client.Ping(ctx); err != nil {
			log.Warn("redis unavailable, idempotency keys disabled", zap.Error(err))
			client.Close()
		} else {
			defer client.Close()
			idem = client
		}
	}

	// Initialize handlers
	trackerHandler := handler.NewTrackerHandler(trackerService, idem, cfg.Redis.IdempotencyTTL, log)

	// Setup router
	router := setupRouter(cfg, trackerHandler, db, log)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("starting tracker service",
			zap.String("port", cfg.App.Port),
			zap.String("driver", cfg.Database.Driver),
			zap.Bool("strict_transitions", cfg.Workflow.StrictTransitions))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func newLogger(cfg *config.Config) *zap.Logger {
	if !cfg.IsProduction() && cfg.Log.Format == "console" {
		return logger.NewDevelopmentLogger(cfg.App.Name)
	}
	log, err := logger.New(cfg.App.Name, logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

func setupRouter(cfg *config.Config, trackerHandler *handler.TrackerHandler, db *database.DB, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	trackerHandler.RegisterRoutes(router.Group("/api/v1"))

	return router
}
