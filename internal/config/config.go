package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/beachball/backend/internal/game"
	"github.com/beachball/backend/internal/physics"
)

type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string
	StaticDir   string

	// Simulation
	TargetFPS       int
	StepIterations  int
	GravityHz       int
	NudgeMagnitude  float64
	PushMagnitude   float64
	StartNudge      float64
	DefaultGravityX float64
	DefaultGravityY float64

	// Difficulty
	DifficultyScales  string
	DefaultDifficulty string

	// Sessions
	IdleTimeoutSeconds     int
	IdleWorkerPollInterval int
	LeaderboardLimit       int

	// Security
	JWTSecret          string
	SessionTokenTTLMin int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/beachball?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		StaticDir:   getEnv("STATIC_DIR", ""),

		// Simulation
		TargetFPS:       getEnvInt("TARGET_FPS", 30),
		StepIterations:  getEnvInt("STEP_ITERATIONS", 4),
		GravityHz:       getEnvInt("GRAVITY_HZ", 100),
		NudgeMagnitude:  getEnvFloat("NUDGE_MAGNITUDE", 1e-4),
		PushMagnitude:   getEnvFloat("PUSH_MAGNITUDE", 1e-3),
		StartNudge:      getEnvFloat("START_NUDGE", 2e-3),
		DefaultGravityX: getEnvFloat("DEFAULT_GRAVITY_X", 0),
		DefaultGravityY: getEnvFloat("DEFAULT_GRAVITY_Y", 9.8),

		// Difficulty
		DifficultyScales:  getEnv("DIFFICULTY_SCALES", "easy=0.5,medium=1.0,hard=1.25"),
		DefaultDifficulty: getEnv("DEFAULT_DIFFICULTY", "hard"),

		// Sessions
		IdleTimeoutSeconds:     getEnvInt("IDLE_TIMEOUT_SECONDS", 600),
		IdleWorkerPollInterval: getEnvInt("IDLE_WORKER_POLL_INTERVAL", 30),
		LeaderboardLimit:       getEnvInt("LEADERBOARD_LIMIT", 10),

		// Security
		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTokenTTLMin: getEnvInt("SESSION_TOKEN_TTL_MINUTES", 120),
	}
}

// Validate rejects values the game cannot run with.
func (c *Config) Validate() error {
	if c.TargetFPS <= 0 {
		return fmt.Errorf("TARGET_FPS must be positive, got %d", c.TargetFPS)
	}
	if c.StepIterations <= 0 {
		return fmt.Errorf("STEP_ITERATIONS must be positive, got %d", c.StepIterations)
	}
	if c.GravityHz <= 0 {
		return fmt.Errorf("GRAVITY_HZ must be positive, got %d", c.GravityHz)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.Environment == "production" && c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be changed in production")
	}
	_, err := c.GameSettings()
	return err
}

// GameSettings projects the configuration onto the simulation settings.
func (c *Config) GameSettings() (game.Settings, error) {
	table, err := game.ParseDifficultyTable(c.DifficultyScales)
	if err != nil {
		return game.Settings{}, fmt.Errorf("DIFFICULTY_SCALES: %w", err)
	}
	def, err := game.ParseDifficulty(c.DefaultDifficulty)
	if err != nil {
		return game.Settings{}, fmt.Errorf("DEFAULT_DIFFICULTY: %w", err)
	}

	s := game.Settings{
		TargetFPS:         c.TargetFPS,
		StepIterations:    c.StepIterations,
		GravityHz:         c.GravityHz,
		NudgeMagnitude:    c.NudgeMagnitude,
		PushMagnitude:     c.PushMagnitude,
		StartNudge:        c.StartNudge,
		DefaultGravity:    physics.Vector{X: c.DefaultGravityX, Y: c.DefaultGravityY},
		Difficulties:      table,
		DefaultDifficulty: def,
		IdleTimeout:       c.IdleTimeout(),
		LeaderboardLimit:  c.LeaderboardLimit,
	}
	if err := s.Validate(); err != nil {
		return game.Settings{}, err
	}
	return s, nil
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

func (c *Config) IdlePollInterval() time.Duration {
	return time.Duration(c.IdleWorkerPollInterval) * time.Second
}

func (c *Config) SessionTokenTTL() time.Duration {
	return time.Duration(c.SessionTokenTTLMin) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
