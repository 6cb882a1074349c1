// Package countdown implements one-second countdown timers backed by a
// goroutine that never outlives Stop.
package countdown

import (
	"fmt"
	"sync"
	"time"
)

// Ticker is the tick source a timer consumes.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Timer counts whole seconds down to zero. All methods are safe for
// concurrent use.
type Timer struct {
	newTicker TickerFunc

	// ctl serializes Start and Stop so only one goroutine is ever armed.
	ctl sync.Mutex

	mu        sync.Mutex
	remaining int
	running   bool
	expired   bool
	stop      chan struct{}
	done      chan struct{}
}

// New returns a stopped timer. A nil tick source uses NewTicker.
func New(newTicker TickerFunc) *Timer {
	if newTicker == nil {
		newTicker = NewTicker
	}
	return &Timer{newTicker: newTicker}
}

// Start (re)arms the timer at d, rounded down to whole seconds.
func (t *Timer) Start(d time.Duration) {
	t.ctl.Lock()
	defer t.ctl.Unlock()

	t.halt()

	seconds := int(d / time.Second)
	if seconds < 0 {
		seconds = 0
	}

	t.mu.Lock()
	t.remaining = seconds
	t.expired = seconds == 0
	if t.expired {
		t.mu.Unlock()
		return
	}

	ticker := t.newTicker(time.Second)
	stop, done := make(chan struct{}), make(chan struct{})
	t.stop, t.done, t.running = stop, done, true
	t.mu.Unlock()

	go t.run(ticker, stop, done)
}

// Stop halts the countdown, keeping the remaining time, and waits for the
// goroutine to exit. Safe to call repeatedly.
func (t *Timer) Stop() {
	t.ctl.Lock()
	defer t.ctl.Unlock()

	t.halt()
}

func (t *Timer) halt() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done, t.running = nil, nil, false
	t.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (t *Timer) run(ticker Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if t.tick() {
				return
			}
		}
	}
}

// tick decrements once and reports whether the timer reached zero.
func (t *Timer) tick() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining == 0 {
		t.expired = true
		t.running = false
		return true
	}
	return false
}

// Remaining returns the time left.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return time.Duration(t.remaining) * time.Second
}

// Running reports whether the countdown is live.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.running
}

// Expired reports whether the countdown reached zero since the last Start.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.expired
}

// Format renders d as MM:SS. Minutes are not capped at 59.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
