package game

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/beachball/backend/internal/physics"
)

// Settings are the tuning values a session runs with.
type Settings struct {
	TargetFPS      int // simulation ticks per second
	StepIterations int // velocity and position iterations per step
	GravityHz      int // gravity estimation ticks per second

	NudgeMagnitude float64 // corrective impulse after each gravity update
	PushMagnitude  float64 // base keyboard push
	StartNudge     float64 // impulse at a random angle when a round starts; 0 disables

	DefaultGravity    physics.Vector // used until motion samples arrive
	Difficulties      DifficultyTable
	DefaultDifficulty Difficulty

	IdleTimeout      time.Duration // sessions idle this long are closed; 0 disables
	LeaderboardLimit int           // default leaderboard page size
}

func DefaultSettings() Settings {
	return Settings{
		TargetFPS:         30,
		StepIterations:    4,
		GravityHz:         100,
		NudgeMagnitude:    1e-4,
		PushMagnitude:     1e-3,
		StartNudge:        2e-3,
		DefaultGravity:    physics.Vector{X: 0, Y: 9.8},
		Difficulties:      DefaultDifficulties(),
		DefaultDifficulty: DifficultyHard,
		IdleTimeout:       10 * time.Minute,
		LeaderboardLimit:  10,
	}
}

func (s Settings) Validate() error {
	if s.TargetFPS <= 0 {
		return fmt.Errorf("target fps must be positive, got %d", s.TargetFPS)
	}
	if s.StepIterations <= 0 {
		return fmt.Errorf("step iterations must be positive, got %d", s.StepIterations)
	}
	if s.GravityHz <= 0 {
		return fmt.Errorf("gravity rate must be positive, got %d", s.GravityHz)
	}
	for _, m := range []float64{s.NudgeMagnitude, s.PushMagnitude, s.StartNudge} {
		if m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
			return errors.New("impulse magnitudes must be finite and not negative")
		}
	}
	if s.IdleTimeout < 0 || s.LeaderboardLimit < 0 {
		return errors.New("idle timeout and leaderboard limit must not be negative")
	}
	if err := s.Difficulties.Validate(); err != nil {
		return err
	}
	if _, ok := s.Difficulties[s.DefaultDifficulty]; !ok {
		return fmt.Errorf("default difficulty %q is not configured", s.DefaultDifficulty)
	}
	return nil
}
