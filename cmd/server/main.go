package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/beachball/backend/internal/admin"
	"github.com/beachball/backend/internal/api"
	"github.com/beachball/backend/internal/config"
	"github.com/beachball/backend/internal/database"
	"github.com/beachball/backend/internal/game"
	"github.com/beachball/backend/internal/migrations"
	"github.com/beachball/backend/internal/redis"
	"github.com/beachball/backend/internal/rounds"
	"github.com/beachball/backend/internal/ws"
)

func main() {
	cfg := config.Load()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warn("unknown LOG_LEVEL, using info", "value", cfg.LogLevel)
	}
	log.SetReportTimestamp(true)
	logger := log.WithPrefix("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "err", err)
	}
	defer db.Close()

	if os.Getenv("MIGRATE_ON_START") == "true" {
		logger.Info("running DB migrations on startup")
		if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
			logger.Fatal("failed to run migrations", "err", err)
		}
	}

	if err := admin.ApplyRuntimeConfigToConfig(ctx, db, cfg); err != nil {
		logger.Warn("runtime config not applied", "err", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	settings, err := cfg.GameSettings()
	if err != nil {
		logger.Fatal("invalid game settings", "err", err)
	}

	// Initialize Redis
	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to redis", "err", err)
	}
	defer rdb.Close()

	store := rounds.NewStore(db)
	manager, err := game.NewManager(ctx, settings, rdb, store)
	if err != nil {
		logger.Fatal("failed to create session manager", "err", err)
	}

	hub := ws.NewHub()
	go hub.Run(ctx)
	ws.StartEventSubscriber(ctx, hub, rdb)

	game.StartIdleWorker(ctx, manager, cfg.IdlePollInterval())

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	api.SetupRoutes(router, db, cfg, manager, hub, store)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting beachball server", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	manager.Shutdown()
	logger.Info("stopped")
}

// requestLogger logs one line per request at debug level, warn for 5xx.
func requestLogger() gin.HandlerFunc {
	logger := log.WithPrefix("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"took", time.Since(start),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}
