package game

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// StartIdleWorker closes sessions that have seen no client command for the
// manager's current IdleTimeout, using the session_idle sorted set (score =
// last activity). The timeout is read on every poll, so runtime updates take
// effect without a restart; a zero timeout pauses expiry.
func StartIdleWorker(ctx context.Context, m *Manager, pollInterval time.Duration) {
	logger := log.WithPrefix("idle")
	if m == nil || m.rdb == nil {
		logger.Warn("redis missing; idle worker not started")
		return
	}
	if pollInterval <= 0 {
		logger.Warn("idle worker disabled", "poll", pollInterval)
		return
	}

	logger.Info("idle worker started", "poll", pollInterval, "timeout", m.Settings().IdleTimeout)
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("idle worker stopping")
				return
			case now := <-ticker.C:
				timeout := m.Settings().IdleTimeout
				if timeout <= 0 {
					continue
				}
				expired := m.ExpireIdle(ctx, now.Add(-timeout))
				if len(expired) > 0 {
					logger.Info("expired idle sessions", "count", len(expired))
				}
			}
		}
	}()
}

// ExpireIdle closes every session whose last activity is at or before cutoff
// and announces it on session_events. It returns the ids it closed.
func (m *Manager) ExpireIdle(ctx context.Context, cutoff time.Time) []string {
	if m.rdb == nil {
		return nil
	}
	members, err := m.rdb.ZRangeByScore(ctx, idleSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff.Unix()),
	}).Result()
	if err != nil {
		m.log.Warn("fetch idle sessions failed", "err", err)
		return nil
	}

	var expired []string
	for _, id := range members {
		// Another instance may have claimed it first.
		if removed, _ := m.rdb.ZRem(ctx, idleSetKey, id).Result(); removed == 0 {
			continue
		}
		m.Close(id)
		expired = append(expired, id)

		evt := SessionEvent{Type: SessionExpired, SessionID: id, Message: "session closed after inactivity"}
		if err := m.PublishSessionEvent(ctx, evt); err != nil {
			m.log.Warn("publish expiry failed", "session", id, "err", err)
		}
	}
	return expired
}
