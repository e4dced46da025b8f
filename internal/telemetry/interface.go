package telemetry

import "time"

// Outcome labels for gated emissions.
const (
	OutcomeEmitted    = "emitted"
	OutcomeSuppressed = "suppressed"
	OutcomeFailed     = "failed"
)

// Recorder receives monitor events.
type Recorder interface {
	TickCompleted(d time.Duration)
	PartSampled(severity string)
	CheckFailed(robotID string)
	Report(level, outcome string)
	Notification(outcome string)
	SetSuppressed(n int)
	SetRunning(running bool)
}

// Nop discards every event.
type Nop struct{}

func (Nop) TickCompleted(time.Duration) {}
func (Nop) PartSampled(string)          {}
func (Nop) CheckFailed(string)          {}
func (Nop) Report(string, string)       {}
func (Nop) Notification(string)         {}
func (Nop) SetSuppressed(int)           {}
func (Nop) SetRunning(bool)             {}
