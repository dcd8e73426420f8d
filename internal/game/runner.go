package game

import (
	"context"
	"time"
)

// Command is a request executed on the session goroutine.
type Command interface {
	apply(s *Session)
}

type LoadCommand struct{ Options LoadOptions }

type StartCommand struct{}

type PauseCommand struct{ Reason string }

type UnpauseCommand struct{}

type ResetCommand struct{ Reason string }

type UnloadCommand struct{}

type MotionCommand struct{ X, Y float64 }

type PushCommand struct{ Direction Direction }

type DifficultyCommand struct{ Difficulty Difficulty }

type OrientationCommand struct {
	Orientation int
	Layout      *Layout
}

func (c LoadCommand) apply(s *Session) {
	if _, err := s.Load(c.Options); err != nil {
		s.log.Warn("load failed", "err", err)
		s.notify(Event{Type: EventNotLoaded, Reason: err.Error()})
	}
}

func (StartCommand) apply(s *Session)         { s.Start() }
func (c PauseCommand) apply(s *Session)       { s.Pause(c.Reason) }
func (UnpauseCommand) apply(s *Session)       { s.Unpause() }
func (c ResetCommand) apply(s *Session)       { s.Reset(c.Reason) }
func (UnloadCommand) apply(s *Session)        { s.Unload() }
func (c MotionCommand) apply(s *Session)      { s.Motion(c.X, c.Y) }
func (c PushCommand) apply(s *Session)        { s.Push(c.Direction) }
func (c OrientationCommand) apply(s *Session) { s.OrientationChange(c.Orientation, c.Layout) }

func (c DifficultyCommand) apply(s *Session) {
	if err := s.SetDifficulty(c.Difficulty); err != nil {
		s.log.Warn("difficulty rejected", "err", err)
	}
}

// Post queues cmd for the session goroutine. It reports false if the session
// has stopped or its inbox is full.
func (s *Session) Post(cmd Command) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- cmd:
		return true
	default:
		s.log.Warn("inbox full, dropping command")
		return false
	}
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run executes commands and timer ticks until ctx is cancelled, then unloads.
// It must be called at most once.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	s.log.Debug("session loop started")

	for {
		select {
		case <-ctx.Done():
			s.Unload()
			s.stopRepeaters()
			s.log.Debug("session loop stopped")
			return
		case cmd := <-s.inbox:
			cmd.apply(s)
			s.touch()
		case <-s.sim.C():
			s.stepSimulation()
		case <-s.grav.C():
			s.estimateGravity()
		}
	}
}

func (s *Session) touch() {
	if s.onActivity == nil {
		return
	}
	now := time.Now()
	if now.Sub(s.lastActivity) < time.Second {
		return
	}
	s.lastActivity = now
	s.onActivity()
}
