package timer

import (
	"sync"
	"time"
)

// Ticker is the subset of time.Ticker the controller needs
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock abstracts wall time and periodic tickers
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// ManualClock only moves when Advance is called.
// Each tick is delivered with a blocking send, so a receiver has picked up
// tick N before tick N+1 is offered.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("timer: non-positive ticker interval")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{
		c:       make(chan time.Time),
		stopped: make(chan struct{}),
		period:  d,
		next:    m.now.Add(d),
	}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the clock forward by d, firing every ticker that comes due
// in time order. Tickers due at the same instant fire in creation order.
func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		due := m.nextDueLocked(target)
		if due == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = due.next
		due.next = due.next.Add(due.period)
		now := m.now
		m.mu.Unlock()

		select {
		case due.c <- now:
		case <-due.stopped:
		}
	}
}

// Active reports how many tickers have not been stopped
func (m *ManualClock) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

func (m *ManualClock) nextDueLocked(target time.Time) *manualTicker {
	var due *manualTicker
	live := m.tickers[:0]
	for _, t := range m.tickers {
		if t.isStopped() {
			continue
		}
		live = append(live, t)
		if t.next.After(target) {
			continue
		}
		if due == nil || t.next.Before(due.next) {
			due = t
		}
	}
	m.tickers = live
	return due
}

type manualTicker struct {
	c        chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
	period   time.Duration
	next     time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

func (t *manualTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}
