package ws

import (
	"encoding/json"
	"fmt"

	"github.com/beachball/backend/internal/game"
)

// WSMessage is the envelope for every message in both directions.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound message types.
const (
	msgLoad        = "load"
	msgStart       = "start"
	msgPause       = "pause"
	msgUnpause     = "unpause"
	msgReset       = "reset"
	msgUnload      = "unload"
	msgMotion      = "motion"
	msgPush        = "push"
	msgDifficulty  = "difficulty"
	msgOrientation = "orientation"
	msgGetState    = "get_state"
)

// Outbound message types.
const (
	msgFrame             = "frame"
	msgEvent             = "event"
	msgSnapshot          = "snapshot"
	msgError             = "error"
	msgSessionExpired    = game.SessionExpired
	msgLeaderboardUpdate = "leaderboard_update"
)

type reasonData struct {
	Reason string `json:"reason"`
}

type motionData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type pushData struct {
	Direction string `json:"direction"`
}

type difficultyData struct {
	Difficulty string `json:"difficulty"`
}

type orientationData struct {
	Orientation int          `json:"orientation"`
	Layout      *game.Layout `json:"layout,omitempty"`
}

// outbound builds an envelope around an already encodable payload.
func outbound(typ string, data interface{}) map[string]interface{} {
	return map[string]interface{}{"type": typ, "data": data}
}

func errorMessage(message string) map[string]interface{} {
	return map[string]interface{}{"type": msgError, "message": message}
}

// decodeCommand turns a client message into a session command.
func decodeCommand(msg WSMessage) (game.Command, error) {
	switch msg.Type {
	case msgLoad:
		var opts game.LoadOptions
		if err := unmarshalData(msg, &opts); err != nil {
			return nil, err
		}
		return game.LoadCommand{Options: opts}, nil
	case msgStart:
		return game.StartCommand{}, nil
	case msgUnpause:
		return game.UnpauseCommand{}, nil
	case msgUnload:
		return game.UnloadCommand{}, nil
	case msgPause:
		var d reasonData
		if err := unmarshalData(msg, &d); err != nil {
			return nil, err
		}
		return game.PauseCommand{Reason: d.Reason}, nil
	case msgReset:
		var d reasonData
		if err := unmarshalData(msg, &d); err != nil {
			return nil, err
		}
		return game.ResetCommand{Reason: d.Reason}, nil
	case msgMotion:
		var d motionData
		if err := unmarshalData(msg, &d); err != nil {
			return nil, err
		}
		return game.MotionCommand{X: d.X, Y: d.Y}, nil
	case msgPush:
		var d pushData
		if err := unmarshalData(msg, &d); err != nil {
			return nil, err
		}
		dir, err := game.ParseDirection(d.Direction)
		if err != nil {
			return nil, err
		}
		return game.PushCommand{Direction: dir}, nil
	case msgDifficulty:
		var d difficultyData
		if err := unmarshalData(msg, &d); err != nil {
			return nil, err
		}
		diff, err := game.ParseDifficulty(d.Difficulty)
		if err != nil {
			return nil, err
		}
		return game.DifficultyCommand{Difficulty: diff}, nil
	case msgOrientation:
		var d orientationData
		if err := unmarshalData(msg, &d); err != nil {
			return nil, err
		}
		return game.OrientationCommand{Orientation: d.Orientation, Layout: d.Layout}, nil
	}
	return nil, fmt.Errorf("unknown message type %q", msg.Type)
}

// unmarshalData treats a missing data field as an empty object.
func unmarshalData(msg WSMessage, v interface{}) error {
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("invalid %s data: %w", msg.Type, err)
	}
	return nil
}
