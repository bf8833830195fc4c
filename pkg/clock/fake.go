package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock for tests. Callbacks scheduled through
// AfterFunc and NewTicker fire synchronously inside Advance, in timestamp
// order, with the fake's Now set to each callback's due time while it runs.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

// NewFake creates a fake clock starting at a fixed, arbitrary instant.
func NewFake() *Fake {
	return &Fake{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc schedules a one-shot callback at Now()+d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schedule(d, fn, 0)
}

// NewTicker schedules a repeating callback every d.
func (f *Fake) NewTicker(d time.Duration, fn func()) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeTicker{f.schedule(d, fn, d)}
}

// Advance moves the fake clock forward by d, firing every due timer in
// order. Callbacks run without the fake's lock held, so they may schedule
// or stop timers themselves.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		t := f.nextDue(target)
		if t == nil {
			break
		}
		f.now = t.at
		if t.interval > 0 {
			t.at = t.at.Add(t.interval)
		} else {
			t.stopped = true
			f.remove(t)
		}
		fn := t.fn
		f.mu.Unlock()
		fn()
		f.mu.Lock()
	}
	f.now = target
	f.mu.Unlock()
}

// Pending reports how many timers are currently scheduled.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

func (f *Fake) schedule(d time.Duration, fn func(), interval time.Duration) *fakeTimer {
	f.seq++
	t := &fakeTimer{
		clk:      f,
		at:       f.now.Add(d),
		fn:       fn,
		interval: interval,
		seq:      f.seq,
	}
	f.timers = append(f.timers, t)
	return t
}

// nextDue returns the earliest pending timer due at or before target,
// breaking ties by scheduling order. Caller holds the lock.
func (f *Fake) nextDue(target time.Time) *fakeTimer {
	var best *fakeTimer
	for _, t := range f.timers {
		if t.stopped || t.at.After(target) {
			continue
		}
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (f *Fake) remove(t *fakeTimer) {
	idx := sort.Search(len(f.timers), func(i int) bool { return f.timers[i].seq >= t.seq })
	if idx < len(f.timers) && f.timers[idx] == t {
		f.timers = append(f.timers[:idx], f.timers[idx+1:]...)
	}
}

type fakeTimer struct {
	clk      *Fake
	at       time.Time
	fn       func()
	interval time.Duration // zero for one-shot timers
	stopped  bool
	seq      int
}

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.clk.remove(t)
	return true
}

// fakeTicker adapts a repeating fakeTimer to the Ticker interface.
type fakeTicker struct {
	t *fakeTimer
}

func (t fakeTicker) Stop() {
	t.t.Stop()
}
