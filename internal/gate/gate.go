// Package gate decides whether an incident report or a manager
// notification may be emitted now.
package gate

import (
	"sync"
	"time"
)

const (
	DefaultDedupeWindow = 5 * time.Minute
	DefaultCooldown     = 30 * time.Second
)

// Deduplicator suppresses repeat reports for the same robot and
// calendar day while the window is open.
type Deduplicator struct {
	mu       sync.Mutex
	window   time.Duration
	location *time.Location
	last     map[string]time.Time
}

// NewDeduplicator computes day keys in loc. A nil loc means UTC.
func NewDeduplicator(window time.Duration, loc *time.Location) *Deduplicator {
	if loc == nil {
		loc = time.UTC
	}
	return &Deduplicator{
		window:   window,
		location: loc,
		last:     make(map[string]time.Time),
	}
}

// Key returns the dedupe key for robotID at now.
func (d *Deduplicator) Key(robotID string, now time.Time) string {
	return robotID + "_" + now.In(d.location).Format("2006-01-02")
}

// Allow reports whether a report for robotID may be emitted at now, and
// records now as the latest attempt when it may.
func (d *Deduplicator) Allow(robotID string, now time.Time) bool {
	key := d.Key(robotID, now)

	d.mu.Lock()
	defer d.mu.Unlock()

	if prior, ok := d.last[key]; ok && now.Sub(prior) < d.window {
		return false
	}
	d.last[key] = now

	return true
}

// Count returns the number of keys with a recorded report.
func (d *Deduplicator) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.last)
}

func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = make(map[string]time.Time)
}

// Throttler rate-limits notifications per robot.
type Throttler struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[string]time.Time
}

func NewThrottler(cooldown time.Duration) *Throttler {
	return &Throttler{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
	}
}

// Allow reports whether robotID may be notified at now, and records now
// when it may.
func (t *Throttler) Allow(robotID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prior, ok := t.last[robotID]; ok && now.Sub(prior) < t.cooldown {
		return false
	}
	t.last[robotID] = now

	return true
}

// Forget drops the cooldown entry for robotID.
func (t *Throttler) Forget(robotID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, robotID)
}

func (t *Throttler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = make(map[string]time.Time)
}
