package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beachball/backend/internal/game"
	"github.com/beachball/backend/internal/models"
)

// RoundStore is the durable round history; *rounds.Store implements it.
type RoundStore interface {
	Top(ctx context.Context, d game.Difficulty, limit int) ([]models.Round, error)
	Recent(ctx context.Context, limit int) ([]models.Round, error)
	Clear(ctx context.Context) (int64, error)
}

func difficultyParam(c *gin.Context, manager *game.Manager) (game.Difficulty, bool) {
	raw := c.Query("difficulty")
	if raw == "" {
		return manager.Settings().DefaultDifficulty, true
	}
	d, err := game.ParseDifficulty(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return d, true
}

// GetLeaderboard serves the best times from Redis, falling back to Postgres
// when Redis has nothing for the difficulty. The default page size follows
// the manager's current settings.
func GetLeaderboard(manager *game.Manager, store RoundStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := difficultyParam(c, manager)
		if !ok {
			return
		}
		defaultLimit := manager.Settings().LeaderboardLimit
		if defaultLimit <= 0 {
			defaultLimit = 10
		}
		limit := queryInt(c, "limit", defaultLimit)
		ctx := c.Request.Context()

		entries, err := manager.Leaderboard(ctx, d, limit)
		if err != nil {
			logger().Warn("redis leaderboard unavailable", "err", err)
		}
		source := "redis"
		if len(entries) == 0 && store != nil {
			rows, err := store.Top(ctx, d, limit)
			if err != nil {
				logger().Error("leaderboard query failed", "err", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
				return
			}
			entries = make([]game.LeaderboardEntry, 0, len(rows))
			for _, r := range rows {
				entries = append(entries, game.LeaderboardEntry{SessionID: r.SessionID, Difficulty: d, Elapsed: r.Elapsed()})
			}
			source = "postgres"
		}
		if entries == nil {
			entries = []game.LeaderboardEntry{}
		}

		c.JSON(http.StatusOK, gin.H{"difficulty": d, "entries": entries, "source": source})
	}
}

// GetRecentRounds lists the latest finished rounds.
func GetRecentRounds(store RoundStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := store.Recent(c.Request.Context(), queryInt(c, "limit", 20))
		if err != nil {
			logger().Error("recent rounds query failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rounds"})
			return
		}
		if rows == nil {
			rows = []models.Round{}
		}
		c.JSON(http.StatusOK, gin.H{"rounds": rows})
	}
}
