package middleware

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/beachball/backend/internal/config"
)

var devOrigins = []string{
	"http://localhost:5173", // Vite dev server
	"http://127.0.0.1:5173",
	"http://localhost:8080",
}

// AllowedOrigins lists the browser origins accepted in the current
// environment. FRONTEND_URL may hold several origins separated by commas.
func AllowedOrigins(cfg *config.Config) []string {
	var origins []string
	if cfg.Environment != "production" {
		origins = append(origins, devOrigins...)
	}
	for _, o := range strings.Split(cfg.FrontendURL, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" && !slices.Contains(origins, o) {
			origins = append(origins, o)
		}
	}
	return origins
}

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	origins := AllowedOrigins(cfg)
	log.WithPrefix("cors").Info("allowed origins", "env", cfg.Environment, "origins", origins)

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"X-Admin-User", "X-Admin-Token", "Accept", "Cache-Control",
			"X-Requested-With",
		},
		ExposeHeaders: []string{
			"Content-Length", "X-Session-ID",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// WebSocketCORSCheck validates WebSocket upgrade origins. Requests without an
// Origin header come from non-browser clients and are left to the token check.
func WebSocketCORSCheck(cfg *config.Config) gin.HandlerFunc {
	allowed := make(map[string]bool)
	for _, o := range AllowedOrigins(cfg) {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		if strings.ToLower(c.GetHeader("Upgrade")) != "websocket" {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin != "" && !allowed[origin] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "WebSocket origin not allowed"})
			return
		}
		c.Next()
	}
}
