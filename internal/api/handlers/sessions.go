package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/beachball/backend/internal/auth"
	"github.com/beachball/backend/internal/config"
	"github.com/beachball/backend/internal/game"
	"github.com/beachball/backend/internal/ws"
)

// CreateSession starts an unloaded session and returns the token the client
// uses to attach its websocket.
func CreateSession(manager *game.Manager, hub *ws.Hub, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Difficulty string `json:"difficulty"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}

		var difficulty game.Difficulty
		if req.Difficulty != "" {
			d, err := game.ParseDifficulty(req.Difficulty)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			difficulty = d
		}

		id := game.NewSessionID()
		sink := hub.Sink(id)
		session, err := manager.Create(id, sink, sink)
		if err != nil {
			logger().Error("create session failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}
		if difficulty != "" {
			session.Post(game.DifficultyCommand{Difficulty: difficulty})
		}

		ttl := cfg.SessionTokenTTL()
		token, err := auth.IssueSessionToken(cfg.JWTSecret, id, ttl)
		if err != nil {
			logger().Error("issue session token failed", "err", err)
			manager.Close(id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}

		c.Header("X-Session-ID", id)
		c.JSON(http.StatusCreated, gin.H{
			"session_id": id,
			"token":      token,
			"expires_in": int(ttl.Seconds()),
			"ws_path":    "/ws/sessions/" + id + "?token=" + token,
		})
	}
}

// SessionTokenMiddleware requires a bearer token issued for the :id route
// parameter.
func SessionTokenMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		id, err := auth.ParseSessionToken(cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil || id != c.Param("id") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

// GetSession returns the latest snapshot of a session.
func GetSession(manager *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := manager.LoadSnapshot(c.Request.Context(), c.Param("id"))
		if errors.Is(err, game.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if err != nil {
			logger().Error("load snapshot failed", "session", c.Param("id"), "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

// DeleteSession unloads and forgets a session.
func DeleteSession(manager *game.Manager, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !manager.Close(id) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		hub.CloseRoom(id)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
