// Package clock indirects timers so the monitor's scheduling can be
// driven deterministically from tests.
package clock

import (
	"sync"
	"time"
)

type (
	// Cancel stops a scheduled callback. It is safe to call more than once.
	Cancel func()

	// Scheduler abstracts the subset of package time the monitor uses.
	Scheduler interface {
		// Now returns the current time.
		Now() time.Time

		// Schedule runs fn once after d.
		Schedule(d time.Duration, fn func()) Cancel

		// ScheduleRepeating runs fn every interval until cancelled.
		ScheduleRepeating(interval time.Duration, fn func()) Cancel
	}

	wallClock struct{}
)

// Wall returns a Scheduler backed by the real clock.
func Wall() Scheduler {
	return wallClock{}
}

// Now indirects time.Now.
func (wallClock) Now() time.Time {
	return time.Now()
}

// Schedule indirects time.AfterFunc.
func (wallClock) Schedule(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// ScheduleRepeating runs fn on a ticker goroutine. Ticks that arrive while
// fn is still running are dropped by the ticker, so calls never overlap.
// fn is not called once the returned Cancel has run.
func (wallClock) ScheduleRepeating(interval time.Duration, fn func()) Cancel {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
