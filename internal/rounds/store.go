package rounds

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/beachball/backend/internal/game"
	"github.com/beachball/backend/internal/models"
)

const maxLimit = 100

// Store persists finished rounds in Postgres.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// RecordRound implements game.RoundRecorder.
func (s *Store) RecordRound(ctx context.Context, r game.RoundResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds (session_id, difficulty, elapsed_ms, ticks, final_x, final_y, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.SessionID, string(r.Difficulty), int64(r.Elapsed*1000), r.Ticks, r.Position.X, r.Position.Y, r.EndedAt)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

// Top returns the longest rounds for a difficulty.
func (s *Store) Top(ctx context.Context, difficulty game.Difficulty, limit int) ([]models.Round, error) {
	var rows []models.Round
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, session_id, difficulty, elapsed_ms, ticks, final_x, final_y, ended_at
		FROM rounds
		WHERE difficulty = $1
		ORDER BY elapsed_ms DESC, ended_at ASC
		LIMIT $2
	`, string(difficulty), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("select top rounds: %w", err)
	}
	return rows, nil
}

// Recent returns the latest rounds across all difficulties.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.Round, error) {
	var rows []models.Round
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, session_id, difficulty, elapsed_ms, ticks, final_x, final_y, ended_at
		FROM rounds
		ORDER BY ended_at DESC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("select recent rounds: %w", err)
	}
	return rows, nil
}

// Clear deletes every stored round and reports how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rounds`)
	if err != nil {
		return 0, fmt.Errorf("delete rounds: %w", err)
	}
	return res.RowsAffected()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
