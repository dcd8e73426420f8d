package admin

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/beachball/backend/internal/config"
	"github.com/beachball/backend/internal/game"
	"github.com/beachball/backend/internal/models"
)

// GetAllRuntimeConfig returns all runtime config entries
func GetAllRuntimeConfig(ctx context.Context, db *sqlx.DB) ([]models.RuntimeConfig, error) {
	var configs []models.RuntimeConfig
	err := db.SelectContext(ctx, &configs, `
		SELECT key, value, value_type, description, updated_by, updated_at
		FROM runtime_config
		ORDER BY key
	`)
	return configs, err
}

// GetRuntimeConfigValue returns a single runtime config value
func GetRuntimeConfigValue(ctx context.Context, db *sqlx.DB, key string) (*models.RuntimeConfig, error) {
	var cfg models.RuntimeConfig
	err := db.GetContext(ctx, &cfg, `SELECT key, value, value_type, description, updated_by, updated_at FROM runtime_config WHERE key=$1`, key)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateRuntimeValue checks value against the entry's declared type and,
// for game keys, against what the simulation accepts.
func ValidateRuntimeValue(key, valueType, value string) error {
	switch valueType {
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value: %s", value)
		}
		if n <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid float value: %s", value)
		}
		if f < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid boolean value: %s (must be 'true' or 'false')", value)
		}
	}

	switch key {
	case "difficulty_scales":
		if _, err := game.ParseDifficultyTable(value); err != nil {
			return err
		}
	case "default_difficulty":
		if _, err := game.ParseDifficulty(value); err != nil {
			return err
		}
	}
	return nil
}

// UpdateRuntimeConfigValue updates a single runtime config value
func UpdateRuntimeConfigValue(ctx context.Context, db *sqlx.DB, key, value, adminUsername string) error {
	existing, err := GetRuntimeConfigValue(ctx, db, key)
	if err != nil {
		return fmt.Errorf("config key not found: %s", key)
	}
	if err := ValidateRuntimeValue(key, existing.ValueType, value); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		UPDATE runtime_config SET value=$1, updated_by=$2, updated_at=NOW() WHERE key=$3
	`, value, adminUsername, key)
	return err
}

// ApplyRuntimeConfigToConfig loads runtime config from DB and applies overrides to the Config struct
func ApplyRuntimeConfigToConfig(ctx context.Context, db *sqlx.DB, cfg *config.Config) error {
	configs, err := GetAllRuntimeConfig(ctx, db)
	if err != nil {
		return err
	}

	applied := 0
	for _, c := range configs {
		if ApplyRuntimeValue(cfg, c.Key, c.Value) {
			applied++
		}
	}

	logger().Info("applied runtime config overrides", "count", applied, "rows", len(configs))
	return nil
}

// ApplyRuntimeValue sets one known key on cfg. It reports false for unknown
// keys and unparsable values.
func ApplyRuntimeValue(cfg *config.Config, key, value string) bool {
	setInt := func(dst *int) bool {
		v, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		*dst = v
		return true
	}
	setFloat := func(dst *float64) bool {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		*dst = v
		return true
	}

	switch key {
	case "target_fps":
		return setInt(&cfg.TargetFPS)
	case "step_iterations":
		return setInt(&cfg.StepIterations)
	case "gravity_hz":
		return setInt(&cfg.GravityHz)
	case "nudge_magnitude":
		return setFloat(&cfg.NudgeMagnitude)
	case "push_magnitude":
		return setFloat(&cfg.PushMagnitude)
	case "start_nudge":
		return setFloat(&cfg.StartNudge)
	case "idle_timeout_seconds":
		return setInt(&cfg.IdleTimeoutSeconds)
	case "leaderboard_limit":
		return setInt(&cfg.LeaderboardLimit)
	case "difficulty_scales":
		cfg.DifficultyScales = value
		return true
	case "default_difficulty":
		cfg.DefaultDifficulty = value
		return true
	}
	return false
}
