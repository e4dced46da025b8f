// Package suppress holds timed power-off overrides per robot.
package suppress

import (
	"math"
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/robotwatch/internal/clock"
)

// DefaultDuration applies when PowerOff is called with a non-positive
// duration.
const DefaultDuration = 60 * time.Second

type entry struct {
	expiresAt time.Time
	cancel    clock.Cancel
	gen       uint64
}

// PoweredOff describes an active suppression.
type PoweredOff struct {
	RobotID          string    `json:"robot_id"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

// Suppressor forces robots into the stopped state until their power-off
// expires. It is safe for concurrent use.
type Suppressor struct {
	mu       sync.Mutex
	clock    clock.Scheduler
	entries  map[string]*entry
	gen      uint64
	onExpire func(robotID string)
}

func New(sched clock.Scheduler) *Suppressor {
	return &Suppressor{
		clock:   sched,
		entries: make(map[string]*entry),
	}
}

// OnExpire sets the hook run after a suppression expires on its own. The
// hook is not run for Restore or Reset.
func (s *Suppressor) OnExpire(fn func(robotID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = fn
}

// PowerOff suppresses robotID for d and returns the expiry. Calling it
// again before expiry replaces the previous timer.
func (s *Suppressor) PowerOff(robotID string, d time.Duration) time.Time {
	if d <= 0 {
		d = DefaultDuration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[robotID]; ok {
		prev.cancel()
	}

	s.gen++
	gen := s.gen
	expiresAt := s.clock.Now().Add(d)
	s.entries[robotID] = &entry{
		expiresAt: expiresAt,
		gen:       gen,
		cancel:    s.clock.Schedule(d, func() { s.expire(robotID, gen) }),
	}

	return expiresAt
}

// IsSuppressed reports whether robotID is powered off. An entry whose
// expiry already passed is cleared.
func (s *Suppressor) IsSuppressed(robotID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[robotID]
	if !ok {
		return false
	}
	if !s.clock.Now().Before(e.expiresAt) {
		e.cancel()
		delete(s.entries, robotID)
		return false
	}

	return true
}

// Restore ends a suppression early. It reports whether one was active.
func (s *Suppressor) Restore(robotID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[robotID]
	if !ok {
		return false
	}
	e.cancel()
	delete(s.entries, robotID)

	return true
}

// Remaining lists active suppressions ordered by robot ID.
func (s *Suppressor) Remaining() []PoweredOff {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	out := make([]PoweredOff, 0, len(s.entries))
	for id, e := range s.entries {
		left := e.expiresAt.Sub(now)
		if left <= 0 {
			continue
		}
		out = append(out, PoweredOff{
			RobotID:          id,
			ExpiresAt:        e.expiresAt,
			RemainingSeconds: int(math.Ceil(left.Seconds())),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RobotID < out[j].RobotID })

	return out
}

// Reset cancels every timer and clears all suppressions.
func (s *Suppressor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		e.cancel()
	}
	s.entries = make(map[string]*entry)
}

func (s *Suppressor) expire(robotID string, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[robotID]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.entries, robotID)
	hook := s.onExpire
	s.mu.Unlock()

	if hook != nil {
		hook(robotID)
	}
}
