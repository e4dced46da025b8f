// Package monitor runs the periodic robot health check: it samples every
// part, diagnoses it against smoothed history, and gates incident reports
// and manager notifications.
package monitor

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"codeberg.org/mutker/robotwatch/internal/clock"
	"codeberg.org/mutker/robotwatch/internal/diagnosis"
	"codeberg.org/mutker/robotwatch/internal/errors"
	"codeberg.org/mutker/robotwatch/internal/gate"
	"codeberg.org/mutker/robotwatch/internal/logger"
	"codeberg.org/mutker/robotwatch/internal/metrics"
	"codeberg.org/mutker/robotwatch/internal/sampler"
	"codeberg.org/mutker/robotwatch/internal/suppress"
	"codeberg.org/mutker/robotwatch/internal/telemetry"
)

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 5 * time.Second

// Options are the scheduling and gating settings.
type Options struct {
	Robots              []string
	Interval            time.Duration
	PowerOff            time.Duration
	DedupeWindow        time.Duration
	Cooldown            time.Duration
	Location            *time.Location
	ForceStopped        bool
	ResetReportsOnStart bool
}

// Deps are the collaborators of a Monitor. Clock, Ledger, Recorder and
// Logger are optional.
type Deps struct {
	Clock    clock.Scheduler
	Engine   *diagnosis.Engine
	Sampler  Sampler
	Reports  Reports
	Notifier Notifier
	Ledger   metrics.Ledger
	Recorder telemetry.Recorder
	Logger   logger.Logger
}

var _ Controller = (*Monitor)(nil)

// Monitor schedules robot checks. Every check, whether from the tick,
// a manual request or a power-off expiry, runs under checkMu.
type Monitor struct {
	opts Options

	clock    clock.Scheduler
	engine   *diagnosis.Engine
	sampler  Sampler
	reports  Reports
	notifier Notifier
	ledger   metrics.Ledger
	rec      telemetry.Recorder
	log      logger.Logger

	state *State

	mu         sync.Mutex
	running    bool
	cancelTick clock.Cancel

	checkMu sync.Mutex
}

func New(opts Options, deps Deps) (*Monitor, error) {
	errFactory := errors.New()

	switch {
	case len(opts.Robots) == 0:
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "no robots configured")
	case deps.Engine == nil, deps.Sampler == nil, deps.Reports == nil, deps.Notifier == nil:
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "engine, sampler, reports and notifier are required")
	}

	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.PowerOff <= 0 {
		opts.PowerOff = suppress.DefaultDuration
	}
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = gate.DefaultDedupeWindow
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = gate.DefaultCooldown
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if deps.Clock == nil {
		deps.Clock = clock.Wall()
	}
	if deps.Recorder == nil {
		deps.Recorder = telemetry.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Named("monitor")
	}

	m := &Monitor{
		opts:     opts,
		clock:    deps.Clock,
		engine:   deps.Engine,
		sampler:  deps.Sampler,
		reports:  deps.Reports,
		notifier: deps.Notifier,
		ledger:   deps.Ledger,
		rec:      deps.Recorder,
		log:      deps.Logger,
		state:    NewState(deps.Clock, opts.DedupeWindow, opts.Cooldown, opts.Location),
	}
	m.state.Suppressor.OnExpire(m.powerOffExpired)

	return m, nil
}

// State exposes the monitor's mutable state.
func (m *Monitor) State() *State {
	return m.state
}

// Start arms the repeating tick. It is a no-op when already running and
// fails with ErrForceStopped when the monitor is pinned to the stopped
// state.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	if m.opts.ForceStopped {
		m.log.Warn().Msg("Force-stopped mode is enabled, scheduler stays stopped")
		return errors.New().New(errors.ErrForceStopped)
	}

	if m.opts.ResetReportsOnStart {
		if err := m.reports.Clear(); err != nil {
			m.log.Warn().Err(err).Msg("Failed to clear reports directory")
		} else {
			m.log.Info().Msg("Reports directory cleared")
		}
	}

	m.cancelTick = m.clock.ScheduleRepeating(m.opts.Interval, m.tick)
	m.running = true
	m.rec.SetRunning(true)
	m.log.Info().Str("interval", m.opts.Interval.String()).Int("robots", len(m.opts.Robots)).Msg("Monitoring started")

	return nil
}

// Stop cancels the tick. Suppressions and history are kept.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.cancelTick()
	m.cancelTick = nil
	m.running = false
	m.rec.SetRunning(false)
	m.log.Info().Msg("Monitoring stopped")
}

func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Status returns a snapshot of the scheduler, robots, suppressions and
// notification stats.
func (m *Monitor) Status() Status {
	now := m.clock.Now()

	robots := make([]RobotSummary, 0, len(m.opts.Robots))
	for _, id := range m.opts.Robots {
		sum, ok := m.state.Summary(id)
		if !ok {
			sum = RobotSummary{RobotID: id, Status: sampler.StatusNormal, Parts: []PartSummary{}}
		}
		if m.state.Suppressor.IsSuppressed(id) {
			sum = m.stoppedSummary(id, now)
		}
		robots = append(robots, sum)
	}

	return Status{
		IsRunning:        m.IsRunning(),
		ForceStopped:     m.opts.ForceStopped,
		Interval:         fmt.Sprintf("every %s", m.opts.Interval),
		ReportsGenerated: m.state.ReportsGenerated(),
		Robots:           robots,
		PoweredOffRobots: m.state.Suppressor.Remaining(),
		Notifications:    m.notifier.Stats(now),
	}
}

// CheckRobot runs one check of robotID immediately.
func (m *Monitor) CheckRobot(ctx context.Context, robotID string) (RobotSummary, error) {
	if err := m.known(robotID); err != nil {
		return RobotSummary{}, err
	}

	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	sum, err := m.check(ctx, robotID)
	if err != nil {
		m.rec.CheckFailed(robotID)
	}
	return sum, err
}

// PowerOff suppresses robotID for d, or for the configured default when
// d is not positive. Its notifications are cleared and its cooldown
// forgotten so the check after expiry can notify again.
func (m *Monitor) PowerOff(robotID string, d time.Duration) (suppress.PoweredOff, error) {
	if err := m.known(robotID); err != nil {
		return suppress.PoweredOff{}, err
	}
	if d <= 0 {
		d = m.opts.PowerOff
	}

	expiresAt := m.state.Suppressor.PowerOff(robotID, d)
	m.state.Throttle.Forget(robotID)
	if err := m.notifier.RemoveForRobot(robotID); err != nil {
		m.log.Warn().Err(err).Str("robot_id", robotID).Msg("Failed to clear notifications")
	}

	m.state.setSummary(m.stoppedSummary(robotID, m.clock.Now()))
	m.rec.SetSuppressed(len(m.state.Suppressor.Remaining()))
	m.log.Info().Str("robot_id", robotID).Time("expires_at", expiresAt).Msg("Robot powered off")

	return suppress.PoweredOff{
		RobotID:          robotID,
		ExpiresAt:        expiresAt,
		RemainingSeconds: int(math.Ceil(d.Seconds())),
	}, nil
}

// Restore ends a power-off early. It reports whether one was active.
func (m *Monitor) Restore(robotID string) (bool, error) {
	if err := m.known(robotID); err != nil {
		return false, err
	}

	restored := m.state.Suppressor.Restore(robotID)
	if restored {
		m.rec.SetSuppressed(len(m.state.Suppressor.Remaining()))
		m.log.Info().Str("robot_id", robotID).Msg("Robot restored")
	}

	return restored, nil
}

// Reset clears all in-memory state, cancels every power-off timer and
// removes all notifications. The scheduler keeps its running state.
func (m *Monitor) Reset() error {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	m.state.Reset()
	m.rec.SetSuppressed(0)

	if err := m.notifier.ResetAll(); err != nil {
		return errors.New().Wrap(errors.ErrOperationFailed, err)
	}
	m.log.Info().Msg("Monitor state reset")

	return nil
}

func (m *Monitor) tick() {
	began := time.Now()

	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	ctx := context.Background()
	for _, id := range m.opts.Robots {
		if _, err := m.check(ctx, id); err != nil {
			m.rec.CheckFailed(id)
			m.log.Error().Err(err).Str("robot_id", id).Msg("Robot check failed")
		}
	}

	m.rec.TickCompleted(time.Since(began))
}

func (m *Monitor) powerOffExpired(robotID string) {
	m.rec.SetSuppressed(len(m.state.Suppressor.Remaining()))
	m.log.Info().Str("robot_id", robotID).Msg("Power-off expired, checking robot")

	if _, err := m.CheckRobot(context.Background(), robotID); err != nil {
		m.log.Error().Err(err).Str("robot_id", robotID).Msg("Check after power-off failed")
	}
}

func (m *Monitor) known(robotID string) error {
	if slices.Contains(m.opts.Robots, robotID) {
		return nil
	}
	return errors.New().WithData(errors.ErrUnknownRobot, robotID)
}

func (m *Monitor) stoppedSummary(robotID string, now time.Time) RobotSummary {
	sum := RobotSummary{
		RobotID:   robotID,
		Status:    sampler.StatusStopped,
		LastCheck: now,
	}
	for _, part := range m.sampler.Parts() {
		r := sampler.Nominal(robotID, part, now)
		sum.Parts = append(sum.Parts, PartSummary{
			PartID:      r.PartID,
			PartName:    r.PartName,
			Status:      r.Status,
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
		})
	}
	return sum
}
