package timer

import "errors"

type State string

const (
	StateIdle    State = "idle"
	StatePaused  State = "paused"
	StateRunning State = "running"
	StateExpired State = "expired"
	StateEnded   State = "ended"
)

var (
	ErrExpired = errors.New("timer has expired")
	ErrEnded   = errors.New("timer has ended")
)

// Countdown is the pure state machine behind a study session timer.
// It knows nothing about goroutines or wall time; one Tick is one second.
type Countdown struct {
	total     int
	remaining int
	state     State

	// studied and completed survive Reset
	studied   int
	completed bool
}

// NewCountdown starts paused with the full duration remaining
func NewCountdown(minutes int) Countdown {
	total := minutes * 60
	return Countdown{total: total, remaining: total, state: StatePaused}
}

func (c *Countdown) State() State {
	if c.state == "" {
		return StateIdle
	}
	return c.state
}

func (c *Countdown) Remaining() int { return c.remaining }
func (c *Countdown) Total() int     { return c.total }
func (c *Countdown) Running() bool  { return c.state == StateRunning }

// Elapsed is the number of seconds counted down since the last Reset
func (c *Countdown) Elapsed() int { return c.total - c.remaining }

// Studied is the number of seconds spent running over the whole session
func (c *Countdown) Studied() int { return c.studied }

// Completed reports whether the countdown ever reached zero
func (c *Countdown) Completed() bool { return c.completed }

func (c *Countdown) Start() error {
	switch c.state {
	case StateExpired:
		return ErrExpired
	case StateEnded:
		return ErrEnded
	}
	c.state = StateRunning
	return nil
}

func (c *Countdown) Pause() error {
	switch c.state {
	case StateEnded:
		return ErrEnded
	case StateRunning:
		c.state = StatePaused
	}
	return nil
}

// Tick advances one second while running and reports whether this tick expired the timer
func (c *Countdown) Tick() bool {
	if c.state != StateRunning {
		return false
	}
	c.remaining--
	c.studied++
	if c.remaining <= 0 {
		c.remaining = 0
		c.state = StateExpired
		c.completed = true
		return true
	}
	return false
}

// Reset restores the full duration. A running timer keeps running; an expired one becomes paused.
func (c *Countdown) Reset() error {
	if c.state == StateEnded {
		return ErrEnded
	}
	c.remaining = c.total
	if c.state == StateExpired {
		c.state = StatePaused
	}
	return nil
}

func (c *Countdown) End() {
	c.state = StateEnded
}
