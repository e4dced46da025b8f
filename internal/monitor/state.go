package monitor

import (
	"sync"
	"time"

	"codeberg.org/mutker/robotwatch/internal/clock"
	"codeberg.org/mutker/robotwatch/internal/gate"
	"codeberg.org/mutker/robotwatch/internal/history"
	"codeberg.org/mutker/robotwatch/internal/suppress"
)

// State owns every piece of mutable monitoring state. Nothing in the
// monitor is package-global.
type State struct {
	History    *history.Store
	Dedupe     *gate.Deduplicator
	Throttle   *gate.Throttler
	Suppressor *suppress.Suppressor

	mu      sync.Mutex
	reports int
	robots  map[string]RobotSummary
}

func NewState(sched clock.Scheduler, dedupeWindow, cooldown time.Duration, loc *time.Location) *State {
	return &State{
		History:    history.NewStore(),
		Dedupe:     gate.NewDeduplicator(dedupeWindow, loc),
		Throttle:   gate.NewThrottler(cooldown),
		Suppressor: suppress.New(sched),
		robots:     make(map[string]RobotSummary),
	}
}

// Reset clears history, gates, summaries and counters, and cancels every
// outstanding power-off timer.
func (s *State) Reset() {
	s.History.Reset()
	s.Dedupe.Reset()
	s.Throttle.Reset()
	s.Suppressor.Reset()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = 0
	s.robots = make(map[string]RobotSummary)
}

// ReportsGenerated is the number of reports written since the last reset.
func (s *State) ReportsGenerated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports
}

// Summary returns the latest summary for robotID.
func (s *State) Summary(robotID string) (RobotSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.robots[robotID]
	return sum, ok
}

func (s *State) countReport() {
	s.mu.Lock()
	s.reports++
	s.mu.Unlock()
}

func (s *State) setSummary(sum RobotSummary) {
	s.mu.Lock()
	s.robots[sum.RobotID] = sum
	s.mu.Unlock()
}
