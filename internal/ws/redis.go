package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/beachball/backend/internal/game"
)

// StartEventSubscriber relays session and round events published by any
// server instance to the clients connected here.
func StartEventSubscriber(ctx context.Context, hub *Hub, rdb *redis.Client) {
	if rdb == nil {
		hub.log.Warn("redis client not set; event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, game.SessionEventsChannel, game.RoundEventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		hub.log.Info("event subscriber started")
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				hub.handleEvent(msg.Channel, []byte(msg.Payload))
			}
		}
	}()
}

func (h *Hub) handleEvent(channel string, payload []byte) {
	switch channel {
	case game.SessionEventsChannel:
		var evt game.SessionEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			h.log.Warn("invalid session event", "err", err)
			return
		}
		switch evt.Type {
		case game.SessionExpired:
			h.Broadcast(evt.SessionID, map[string]interface{}{
				"type":    msgSessionExpired,
				"message": evt.Message,
			})
			h.CloseRoom(evt.SessionID)
		default:
			h.log.Debug("unknown session event", "type", evt.Type)
		}

	case game.RoundEventsChannel:
		var round game.RoundResult
		if err := json.Unmarshal(payload, &round); err != nil {
			h.log.Warn("invalid round event", "err", err)
			return
		}
		h.BroadcastAll(outbound(msgLeaderboardUpdate, round))
	}
}
