package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/beachball/backend/internal/auth"
	"github.com/beachball/backend/internal/game"
)

const testSecret = "test-secret"

type testEnv struct {
	hub     *Hub
	manager *game.Manager
	server  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub()
	go hub.Run(ctx)

	settings := game.DefaultSettings()
	settings.StartNudge = 0
	manager, err := game.NewManager(ctx, settings, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(manager.Shutdown)

	r := gin.New()
	r.GET("/ws/sessions/:id", HandleSession(hub, manager, testSecret))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{hub: hub, manager: manager, server: srv}
}

func (e *testEnv) createSession(t *testing.T) (string, string) {
	t.Helper()
	id := game.NewSessionID()
	if _, err := e.manager.Create(id, e.hub.Sink(id), e.hub.Sink(id)); err != nil {
		t.Fatal(err)
	}
	token, err := auth.IssueSessionToken(testSecret, id, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	return id, token
}

func (e *testEnv) dial(t *testing.T, id, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/sessions/" + id + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type inbound struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// readUntil skips messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) inbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var m inbound
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if m.Type == typ {
			return m
		}
	}
}

func TestSessionSocketLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id, token := env.createSession(t)
	conn := env.dial(t, id, token)

	first := readUntil(t, conn, msgSnapshot)
	var snap game.SessionSnapshot
	if err := json.Unmarshal(first.Data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.ID != id || snap.State != game.StateUnloaded {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	conn.WriteJSON(map[string]interface{}{
		"type": "load",
		"data": map[string]interface{}{"capabilities": map[string]bool{"motion": true, "keyboard": true}},
	})
	evt := readUntil(t, conn, msgEvent)
	var loaded game.Event
	json.Unmarshal(evt.Data, &loaded)
	if loaded.Type != game.EventLoaded || loaded.SessionID != id {
		t.Fatalf("expected loaded event, got %+v", loaded)
	}

	conn.WriteJSON(map[string]string{"type": "start"})
	frame := readUntil(t, conn, msgFrame)
	var f game.Frame
	json.Unmarshal(frame.Data, &f)
	if _, ok := f.Bodies[game.PlayerTag]; !ok {
		t.Fatalf("frame without the ball: %+v", f)
	}

	conn.WriteJSON(map[string]string{"type": "jump"})
	if e := readUntil(t, conn, msgError); !strings.Contains(e.Message, "jump") {
		t.Fatalf("unexpected error message %q", e.Message)
	}
}

func TestHandleSessionRejects(t *testing.T) {
	env := newTestEnv(t)
	id, _ := env.createSession(t)
	base := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/sessions/"

	otherToken, _ := auth.IssueSessionToken(testSecret, "bb_other", time.Minute)
	if _, resp, err := websocket.DefaultDialer.Dial(base+id+"?token="+otherToken, nil); err == nil || resp.StatusCode != 403 {
		t.Fatalf("token for another session accepted")
	}

	ghostToken, _ := auth.IssueSessionToken(testSecret, "bb_ghost", time.Minute)
	if _, resp, err := websocket.DefaultDialer.Dial(base+"bb_ghost?token="+ghostToken, nil); err == nil || resp.StatusCode != 404 {
		t.Fatalf("missing session accepted")
	}

	if _, resp, err := websocket.DefaultDialer.Dial(base+id, nil); err == nil || resp.StatusCode != 400 {
		t.Fatalf("missing token accepted")
	}
}

func TestSessionExpiredClosesRoom(t *testing.T) {
	env := newTestEnv(t)
	id, token := env.createSession(t)
	conn := env.dial(t, id, token)
	readUntil(t, conn, msgSnapshot)

	payload, _ := json.Marshal(game.SessionEvent{Type: game.SessionExpired, SessionID: id, Message: "idle"})
	env.hub.handleEvent(game.SessionEventsChannel, payload)

	if m := readUntil(t, conn, msgSessionExpired); m.Message != "idle" {
		t.Fatalf("unexpected expiry message %+v", m)
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure) {
		t.Fatalf("expected close after expiry, got %v", err)
	}
	if n := env.hub.RoomSize(id); n != 0 {
		t.Fatalf("room size = %d after close", n)
	}
}

func TestRoundEventBroadcastsToAll(t *testing.T) {
	env := newTestEnv(t)
	idA, tokA := env.createSession(t)
	idB, tokB := env.createSession(t)
	a := env.dial(t, idA, tokA)
	b := env.dial(t, idB, tokB)
	readUntil(t, a, msgSnapshot)
	readUntil(t, b, msgSnapshot)

	payload, _ := json.Marshal(game.RoundResult{SessionID: idA, Difficulty: game.DifficultyHard, Elapsed: 3.5})
	env.hub.handleEvent(game.RoundEventsChannel, payload)

	for _, conn := range []*websocket.Conn{a, b} {
		m := readUntil(t, conn, msgLeaderboardUpdate)
		var r game.RoundResult
		json.Unmarshal(m.Data, &r)
		if r.SessionID != idA || r.Elapsed != 3.5 {
			t.Fatalf("unexpected round %+v", r)
		}
	}
}
