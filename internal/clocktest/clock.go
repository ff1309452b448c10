// ABOUTME: Manually advanced tstime.Clock for deterministic timer tests
// ABOUTME: Timers and AfterFunc callbacks fire synchronously inside Advance

package clocktest

import (
	"sort"
	"sync"
	"time"

	"tailscale.com/tstime"
)

// Clock is a fake tstime.Clock. Time only moves when Advance is called.
// Callbacks run on the goroutine calling Advance with no lock held, so they
// may schedule further timers.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers map[int]*timer
}

var _ tstime.Clock = (*Clock)(nil)

// New returns a clock starting at start.
func New(start time.Time) *Clock {
	return &Clock{now: start, timers: make(map[int]*timer)}
}

type timer struct {
	c        *Clock
	id       int
	when     time.Time
	period   time.Duration // non-zero for tickers
	fn       func()
	ch       chan time.Time
	stopped  bool
	sequence int
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Since returns the fake time elapsed since t.
func (c *Clock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// NewTimer creates a timer delivering on the returned channel.
func (c *Clock) NewTimer(d time.Duration) (tstime.TimerController, <-chan time.Time) {
	ch := make(chan time.Time, 1)
	t := c.add(d, 0, nil, ch)
	return t, ch
}

// NewTicker creates a ticker delivering on the returned channel.
func (c *Clock) NewTicker(d time.Duration) (tstime.TickerController, <-chan time.Time) {
	ch := make(chan time.Time, 1)
	t := c.add(d, d, nil, ch)
	return tickerController{t}, ch
}

// AfterFunc schedules f to run once d has elapsed.
func (c *Clock) AfterFunc(d time.Duration, f func()) tstime.TimerController {
	return c.add(d, 0, f, nil)
}

// Pending returns the number of armed timers.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Advance moves time forward by d, firing every timer that comes due in
// deadline order.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.when
		if next.period > 0 {
			next.when = next.when.Add(next.period)
		} else {
			delete(c.timers, next.id)
		}
		fn, ch, at := next.fn, next.ch, c.now
		c.mu.Unlock()

		if fn != nil {
			fn()
		}
		if ch != nil {
			select {
			case ch <- at:
			default:
			}
		}
	}
}

func (c *Clock) nextDueLocked(target time.Time) *timer {
	var due []*timer
	for _, t := range c.timers {
		if !t.when.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].when.Equal(due[j].when) {
			return due[i].sequence < due[j].sequence
		}
		return due[i].when.Before(due[j].when)
	})
	return due[0]
}

func (c *Clock) add(d, period time.Duration, fn func(), ch chan time.Time) *timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{c: c, id: c.seq, when: c.now.Add(d), period: period, fn: fn, ch: ch, sequence: c.seq}
	c.timers[t.id] = t
	return t
}

// Reset re-arms the timer d from now.
func (t *timer) Reset(d time.Duration) bool {
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	_, active := c.timers[t.id]
	c.seq++
	t.when = c.now.Add(d)
	t.sequence = c.seq
	if t.period > 0 {
		t.period = d
	}
	c.timers[t.id] = t
	return active
}

// Stop disarms the timer and reports whether it was armed.
func (t *timer) Stop() bool {
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	_, active := c.timers[t.id]
	delete(c.timers, t.id)
	return active
}

type tickerController struct{ t *timer }

func (tc tickerController) Reset(d time.Duration) { tc.t.Reset(d) }
func (tc tickerController) Stop()                 { tc.t.Stop() }
