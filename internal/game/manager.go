package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// Redis keys and channels.
const (
	idleSetKey  = "session_idle"
	snapshotTTL = time.Hour

	RoundEventsChannel   = "round_events"
	SessionEventsChannel = "session_events"
)

func snapshotKey(id string) string { return "session:" + id + ":state" }

func leaderboardKey(d Difficulty) string { return "leaderboard:" + string(d) }

// RoundRecorder persists finished rounds.
type RoundRecorder interface {
	RecordRound(ctx context.Context, r RoundResult) error
}

// LeaderboardEntry is one best time.
type LeaderboardEntry struct {
	SessionID  string     `json:"session_id"`
	Difficulty Difficulty `json:"difficulty"`
	Elapsed    float64    `json:"elapsed"`
}

// SessionExpired is the SessionEvent type sent when the idle worker closes a
// session.
const SessionExpired = "session_expired"

// SessionEvent is published on the session_events channel.
type SessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Message   string `json:"message,omitempty"`
}

type managedSession struct {
	session *Session
	cancel  context.CancelFunc
}

// Manager owns every live session and mirrors their state to Redis.
type Manager struct {
	sessions map[string]*managedSession
	settings Settings
	rdb      *redis.Client // optional
	rounds   RoundRecorder // optional
	log      *log.Logger
	ctx      context.Context
	mu       sync.RWMutex
}

func NewManager(ctx context.Context, settings Settings, rdb *redis.Client, rounds RoundRecorder) (*Manager, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		sessions: make(map[string]*managedSession),
		settings: settings,
		rdb:      rdb,
		rounds:   rounds,
		log:      log.WithPrefix("manager"),
		ctx:      ctx,
	}, nil
}

func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// UpdateSettings replaces the settings used for sessions created from now on.
// Running sessions keep the settings they were created with.
func (m *Manager) UpdateSettings(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()
	m.log.Info("settings updated", "fps", settings.TargetFPS, "default_difficulty", settings.DefaultDifficulty)
	return nil
}

// NewSessionID returns a random session id.
func NewSessionID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "bb_" + hex.EncodeToString(b)
}

// Create registers a session and starts its goroutine.
func (m *Manager) Create(id string, renderer Renderer, notifier Notifier) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, ErrSessionExists
	}

	s, err := NewSession(id, m.settings, renderer, notifier,
		WithLogger(log.WithPrefix("game")),
		WithRoundObserver(m.roundOver),
		WithTransitionObserver(m.saveSnapshot),
		WithActivityHook(func() { m.Touch(id) }),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.sessions[id] = &managedSession{session: s, cancel: cancel}
	go s.Run(ctx)
	m.Touch(id)

	m.log.Info("session created", "session", id, "active", len(m.sessions))
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return ms.session, true
}

// Close stops a session's goroutine and forgets it. The session unloads on
// its way out.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}

	ms.cancel()
	<-ms.session.Done()
	if m.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, idleSetKey, id)
			pipe.Del(ctx, snapshotKey(id))
			return nil
		})
		cancel()
		if err != nil {
			m.log.Warn("clear session keys failed", "session", id, "err", err)
		}
	}
	m.log.Info("session closed", "session", id)
	return true
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.Close(id)
	}
}

// Touch records activity for the idle reaper.
func (m *Manager) Touch(id string) {
	if m.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.rdb.ZAdd(ctx, idleSetKey, redis.Z{Score: float64(time.Now().Unix()), Member: id}).Err(); err != nil {
		m.log.Warn("touch failed", "session", id, "err", err)
	}
}

// LoadSnapshot returns the last state mirrored to Redis.
func (m *Manager) LoadSnapshot(ctx context.Context, id string) (*SessionSnapshot, error) {
	if m.rdb == nil {
		if s, ok := m.Get(id); ok {
			snap := s.Snapshot()
			return &snap, nil
		}
		return nil, ErrSessionNotFound
	}

	data, err := m.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Leaderboard returns the longest rounds for d, best first.
func (m *Manager) Leaderboard(ctx context.Context, d Difficulty, limit int) ([]LeaderboardEntry, error) {
	if m.rdb == nil {
		return nil, errors.New("leaderboard requires redis")
	}
	if limit <= 0 {
		limit = 10
	}
	zs, err := m.rdb.ZRevRangeWithScores(ctx, leaderboardKey(d), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, LeaderboardEntry{
			SessionID:  sessionFromMember(member),
			Difficulty: d,
			Elapsed:    z.Score,
		})
	}
	return entries, nil
}

// ClearLeaderboard drops the cached best times for every difficulty.
func (m *Manager) ClearLeaderboard(ctx context.Context) error {
	if m.rdb == nil {
		return nil
	}
	keys := make([]string, 0, len(difficultyOrder))
	for _, d := range difficultyOrder {
		keys = append(keys, leaderboardKey(d))
	}
	return m.rdb.Del(ctx, keys...).Err()
}

// PublishSessionEvent fans an event out to every server instance.
func (m *Manager) PublishSessionEvent(ctx context.Context, evt SessionEvent) error {
	if m.rdb == nil {
		return nil
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return m.rdb.Publish(ctx, SessionEventsChannel, b).Err()
}

func (m *Manager) saveSnapshot(snap SessionSnapshot) {
	if m.rdb == nil {
		return
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := m.rdb.SetEx(ctx, snapshotKey(snap.ID), b, snapshotTTL).Err(); err != nil {
		m.log.Warn("snapshot save failed", "session", snap.ID, "err", err)
	}
}

// roundOver runs on the session goroutine, so storage happens elsewhere.
func (m *Manager) roundOver(r RoundResult) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if m.rounds != nil {
			if err := m.rounds.RecordRound(ctx, r); err != nil {
				m.log.Error("record round failed", "session", r.SessionID, "err", err)
			}
		}
		if m.rdb == nil {
			return
		}

		member := r.SessionID + ":" + strconv.FormatInt(r.EndedAt.UnixNano(), 10)
		if err := m.rdb.ZAdd(ctx, leaderboardKey(r.Difficulty), redis.Z{Score: r.Elapsed, Member: member}).Err(); err != nil {
			m.log.Warn("leaderboard update failed", "session", r.SessionID, "err", err)
		}
		b, _ := json.Marshal(r)
		if err := m.rdb.Publish(ctx, RoundEventsChannel, b).Err(); err != nil {
			m.log.Warn("publish round failed", "session", r.SessionID, "err", err)
		}
	}()
}

// sessionFromMember strips the timestamp suffix from a leaderboard member.
func sessionFromMember(member string) string {
	for i := len(member) - 1; i >= 0; i-- {
		if member[i] == ':' {
			return member[:i]
		}
	}
	return member
}
