// Package clock abstracts wall time and timer scheduling so that every
// time-derived behavior in the application can be driven deterministically
// in tests instead of racing real timers.
package clock

import "time"

// Clock provides the current time and cancelable timer scheduling.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// AfterFunc schedules fn to run once after d. The returned Timer can
	// be stopped before it fires.
	AfterFunc(d time.Duration, fn func()) Timer

	// NewTicker runs fn every d until the returned Ticker is stopped.
	NewTicker(d time.Duration, fn func()) Ticker
}

// Timer is a cancelable one-shot timer.
type Timer interface {
	// Stop cancels the timer. It reports whether the timer was still
	// pending (false if it already fired or was stopped).
	Stop() bool
}

// Ticker is a cancelable repeating timer.
type Ticker interface {
	Stop()
}

// New returns a Clock backed by the time package.
func New() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

func (realClock) NewTicker(d time.Duration, fn func()) Ticker {
	t := &realTicker{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go t.loop(fn)
	return t
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) Stop() bool {
	return r.t.Stop()
}

type realTicker struct {
	ticker *time.Ticker
	done   chan struct{}
}

func (t *realTicker) loop(fn func()) {
	for {
		select {
		case <-t.ticker.C:
			fn()
		case <-t.done:
			return
		}
	}
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
	close(t.done)
}
