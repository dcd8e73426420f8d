package game

import (
	"errors"
	"time"
)

// ErrInvalidInterval is returned for a repeater interval that is not positive.
var ErrInvalidInterval = errors.New("repeater interval must be positive")

// Repeater is a restartable ticker. Start and Stop are idempotent and a
// stopped repeater exposes a nil channel, so a select on C() blocks forever
// until the repeater is started again. It is meant to be driven from the
// single goroutine that also selects on C().
type Repeater struct {
	interval time.Duration
	ticker   *time.Ticker
}

func NewRepeater(interval time.Duration) (*Repeater, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &Repeater{interval: interval}, nil
}

// RepeaterForRate returns a repeater ticking hz times per second.
func RepeaterForRate(hz int) (*Repeater, error) {
	if hz <= 0 {
		return nil, ErrInvalidInterval
	}
	return NewRepeater(time.Second / time.Duration(hz))
}

// Start begins ticking. It reports false if the repeater was already running.
func (r *Repeater) Start() bool {
	if r.ticker != nil {
		return false
	}
	r.ticker = time.NewTicker(r.interval)
	return true
}

// Stop halts ticking. It reports false if the repeater was not running.
func (r *Repeater) Stop() bool {
	if r.ticker == nil {
		return false
	}
	r.ticker.Stop()
	r.ticker = nil
	return true
}

func (r *Repeater) Running() bool {
	return r.ticker != nil
}

func (r *Repeater) Interval() time.Duration {
	return r.interval
}

// C returns the tick channel, or nil while stopped.
func (r *Repeater) C() <-chan time.Time {
	if r.ticker == nil {
		return nil
	}
	return r.ticker.C
}
