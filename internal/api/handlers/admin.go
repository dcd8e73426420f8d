package handlers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/beachball/backend/internal/admin"
	"github.com/beachball/backend/internal/config"
	"github.com/beachball/backend/internal/game"
)

const (
	adminUserHeader  = "X-Admin-User"
	adminTokenHeader = "X-Admin-Token"
)

// runtimeMu serialises runtime config writes to the shared Config.
var runtimeMu sync.Mutex

// AdminAuthMiddleware validates the admin headers and sets admin_username.
func AdminAuthMiddleware(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetHeader(adminUserHeader)
		token := c.GetHeader(adminTokenHeader)
		if username == "" || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		_, err := admin.ValidateAdmin(c.Request.Context(), db, username, token, c.ClientIP())
		switch {
		case err == nil:
		case errors.Is(err, admin.ErrIPNotAllowed):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "IP not allowed"})
			return
		case errors.Is(err, admin.ErrAccountNotFound), errors.Is(err, admin.ErrInvalidToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		default:
			logger().Error("admin validation failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set("admin_username", username)
		c.Next()
	}
}

// ClearLeaderboard wipes both the Redis leaderboard and the stored rounds.
func ClearLeaderboard(db *sqlx.DB, manager *game.Manager, store RoundStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminUsername := c.GetString("admin_username")
		ctx := c.Request.Context()

		if err := manager.ClearLeaderboard(ctx); err != nil {
			logger().Error("clear redis leaderboard failed", "err", err)
			admin.LogAdminAction(ctx, db, adminUsername, c.ClientIP(), c.FullPath(), "clear_leaderboard", map[string]interface{}{"error": err.Error()}, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear leaderboard"})
			return
		}
		removed, err := store.Clear(ctx)
		if err != nil {
			logger().Error("clear rounds failed", "err", err)
			admin.LogAdminAction(ctx, db, adminUsername, c.ClientIP(), c.FullPath(), "clear_leaderboard", map[string]interface{}{"error": err.Error()}, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear rounds"})
			return
		}

		admin.LogAdminAction(ctx, db, adminUsername, c.ClientIP(), c.FullPath(), "clear_leaderboard", map[string]interface{}{"rounds": removed}, true)
		c.JSON(http.StatusOK, gin.H{"ok": true, "rounds_removed": removed})
	}
}

// GetAdminRuntimeConfig returns all runtime config entries
func GetAdminRuntimeConfig(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		configs, err := admin.GetAllRuntimeConfig(c.Request.Context(), db)
		if err != nil {
			logger().Error("fetch runtime config failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch config"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"configs": configs})
	}
}

// UpdateAdminRuntimeConfig updates a single runtime config value and hands
// the resulting settings to the manager for new sessions.
func UpdateAdminRuntimeConfig(db *sqlx.DB, cfg *config.Config, manager *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminUsername := c.GetString("admin_username")
		key := c.Param("key")
		ctx := c.Request.Context()

		var req struct {
			Value string `json:"value" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Value is required"})
			return
		}
		details := map[string]interface{}{"key": key, "value": req.Value}

		if err := admin.UpdateRuntimeConfigValue(ctx, db, key, req.Value, adminUsername); err != nil {
			logger().Warn("update runtime config failed", "key", key, "err", err)
			admin.LogAdminAction(ctx, db, adminUsername, c.ClientIP(), c.FullPath(), "update_config", details, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		runtimeMu.Lock()
		admin.ApplyRuntimeValue(cfg, key, req.Value)
		settings, err := cfg.GameSettings()
		if err == nil {
			err = manager.UpdateSettings(settings)
		}
		runtimeMu.Unlock()
		if err != nil {
			logger().Warn("runtime config stored but not applied", "key", key, "err", err)
		}

		admin.LogAdminAction(ctx, db, adminUsername, c.ClientIP(), c.FullPath(), "update_config", details, true)
		c.JSON(http.StatusOK, gin.H{"ok": true, "applied": err == nil})
	}
}

// GetAdminAuditLogs returns paginated audit log entries
func GetAdminAuditLogs(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", 25)
		if limit > 200 {
			limit = 200
		}
		offset := queryInt(c, "offset", 0)

		logs, err := admin.GetAdminAuditLogs(c.Request.Context(), db, limit, offset)
		if err != nil {
			logger().Error("fetch audit logs failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "limit": limit, "offset": offset})
	}
}
