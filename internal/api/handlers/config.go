package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beachball/backend/internal/game"
)

// GetConfig returns the simulation values a client needs to drive a session.
func GetConfig(manager *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := manager.Settings()
		c.JSON(http.StatusOK, gin.H{
			"target_fps":         s.TargetFPS,
			"gravity_hz":         s.GravityHz,
			"default_gravity":    s.DefaultGravity,
			"difficulties":       s.Difficulties,
			"default_difficulty": s.DefaultDifficulty,
			"default_layout":     game.DefaultLayout(800, 600),
		})
	}
}
