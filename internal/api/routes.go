package api

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/beachball/backend/internal/api/handlers"
	"github.com/beachball/backend/internal/config"
	"github.com/beachball/backend/internal/game"
	"github.com/beachball/backend/internal/middleware"
	"github.com/beachball/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, cfg *config.Config, manager *game.Manager, hub *ws.Hub, store handlers.RoundStore) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Next()
		})
	}

	router.GET("/health", handlers.HealthCheck(manager))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(manager))
		v1.GET("/config", handlers.GetConfig(manager))

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSession(manager, hub, cfg))
			sessions.GET("/:id", handlers.SessionTokenMiddleware(cfg), handlers.GetSession(manager))
			sessions.DELETE("/:id", handlers.SessionTokenMiddleware(cfg), handlers.DeleteSession(manager, hub))
		}

		v1.GET("/leaderboard", handlers.GetLeaderboard(manager, store))
		v1.GET("/rounds/recent", handlers.GetRecentRounds(store))

		adminGroup := v1.Group("/admin", handlers.AdminAuthMiddleware(db))
		{
			adminGroup.DELETE("/leaderboard", handlers.ClearLeaderboard(db, manager, store))
			adminGroup.GET("/config", handlers.GetAdminRuntimeConfig(db))
			adminGroup.PUT("/config/:key", handlers.UpdateAdminRuntimeConfig(db, cfg, manager))
			adminGroup.GET("/audit", handlers.GetAdminAuditLogs(db))
		}
	}

	router.GET("/ws/sessions/:id", middleware.WebSocketCORSCheck(cfg), ws.HandleSession(hub, manager, cfg.JWTSecret))

	if cfg.StaticDir != "" {
		serveStatic(router, cfg.StaticDir)
	}
}

// serveStatic serves the browser client for every path the API does not own.
func serveStatic(router *gin.Engine, dir string) {
	log.WithPrefix("api").Info("serving static client", "dir", dir)
	files := http.FileServer(http.Dir(dir))
	router.NoRoute(func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/ws/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	})
}
