package timer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultTickInterval      = time.Second
	DefaultHeartbeatInterval = 30 * time.Second
)

// Snapshot is a point-in-time view of a controller
type Snapshot struct {
	State     State `json:"state"`
	Remaining int   `json:"remainingSeconds"`
	Total     int   `json:"totalSeconds"`
	Running   bool  `json:"running"`

	// Studied counts running seconds across resets; Completed latches once the timer expired
	Studied   int  `json:"studiedSeconds"`
	Completed bool `json:"completed"`
}

func (s Snapshot) Elapsed() int { return s.Total - s.Remaining }

// Hooks are invoked from the controller goroutine without any lock held.
// They must not call back into the controller's Pause or End.
type Hooks struct {
	OnHeartbeat func(ctx context.Context)
	OnExpire    func(ctx context.Context, snap Snapshot)
}

type Option func(*Controller)

func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.heartbeatInterval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// Controller drives a Countdown with two periodic tasks while running:
// a one second tick and an independent presence heartbeat.
// Both tasks share one cancellable context, so stopping the loop stops both.
type Controller struct {
	mu        sync.RWMutex
	countdown Countdown
	hooks     Hooks

	clock             Clock
	tickInterval      time.Duration
	heartbeatInterval time.Duration
	logger            *slog.Logger

	// loop bookkeeping; gen invalidates a loop that lost the race with a stop
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(minutes int, hooks Hooks, opts ...Option) *Controller {
	c := &Controller{
		countdown:         NewCountdown(minutes),
		hooks:             hooks,
		clock:             RealClock{},
		tickInterval:      DefaultTickInterval,
		heartbeatInterval: DefaultHeartbeatInterval,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:     c.countdown.State(),
		Remaining: c.countdown.Remaining(),
		Total:     c.countdown.Total(),
		Running:   c.countdown.Running(),
		Studied:   c.countdown.Studied(),
		Completed: c.countdown.Completed(),
	}
}

// Start resumes the countdown. ctx only carries values into the hooks;
// its cancellation does not stop the timer.
func (c *Controller) Start(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.countdown.Start(); err != nil {
		return c.snapshotLocked(), err
	}
	if c.cancel == nil {
		c.startLoopLocked(ctx)
	}
	return c.snapshotLocked(), nil
}

func (c *Controller) Pause() (Snapshot, error) {
	c.mu.Lock()
	err := c.countdown.Pause()
	cancel, done := c.detachLoopLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	stopLoop(cancel, done)
	return snap, err
}

// Toggle flips between running and paused
func (c *Controller) Toggle(ctx context.Context) (Snapshot, error) {
	if c.Snapshot().Running {
		return c.Pause()
	}
	return c.Start(ctx)
}

func (c *Controller) Reset() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.countdown.Reset()
	return c.snapshotLocked(), err
}

// End stops both periodic tasks and returns the final state. Calling it twice is harmless.
func (c *Controller) End() Snapshot {
	c.mu.Lock()
	// capture the pre-end state so callers can tell a completed session from an abandoned one
	final := c.snapshotLocked()
	c.countdown.End()
	cancel, done := c.detachLoopLocked()
	c.mu.Unlock()

	stopLoop(cancel, done)
	return final
}

func (c *Controller) startLoopLocked(parent context.Context) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	c.gen++
	c.cancel = cancel
	c.done = make(chan struct{})

	// tickers are created before the goroutine so the first tick is anchored at Start
	tick := c.clock.NewTicker(c.tickInterval)
	heartbeat := c.clock.NewTicker(c.heartbeatInterval)
	go c.run(ctx, c.gen, tick, heartbeat, c.done)
}

func (c *Controller) detachLoopLocked() (context.CancelFunc, chan struct{}) {
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.gen++
	return cancel, done
}

func stopLoop(cancel context.CancelFunc, done chan struct{}) {
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Controller) run(ctx context.Context, gen uint64, tick, heartbeat Ticker, done chan struct{}) {
	defer close(done)
	defer heartbeat.Stop()
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C():
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			expired := c.countdown.Tick()
			var cancel context.CancelFunc
			if expired {
				// the loop is finishing on its own; nobody needs to wait for it
				cancel = c.cancel
				c.cancel, c.done = nil, nil
				c.gen++
			}
			snap := c.snapshotLocked()
			c.mu.Unlock()

			if expired {
				c.logger.DebugContext(ctx, "Study timer expired", "total_seconds", snap.Total)
				if c.hooks.OnExpire != nil {
					c.hooks.OnExpire(ctx, snap)
				}
				cancel()
				return
			}
		case <-heartbeat.C():
			c.mu.RLock()
			current := c.gen == gen && c.countdown.Running()
			c.mu.RUnlock()
			if !current {
				return
			}
			if c.hooks.OnHeartbeat != nil {
				c.hooks.OnHeartbeat(ctx)
			}
		}
	}
}
