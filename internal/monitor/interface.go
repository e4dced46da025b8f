package monitor

import (
	"context"
	"time"

	"codeberg.org/mutker/robotwatch/internal/diagnosis"
	"codeberg.org/mutker/robotwatch/internal/notify"
	"codeberg.org/mutker/robotwatch/internal/report"
	"codeberg.org/mutker/robotwatch/internal/sampler"
	"codeberg.org/mutker/robotwatch/internal/suppress"
)

// Controller is the administrative surface of the monitor.
type Controller interface {
	// Scheduler lifecycle
	Start() error
	Stop()
	IsRunning() bool
	Status() Status

	// Per-robot operations
	CheckRobot(ctx context.Context, robotID string) (RobotSummary, error)
	PowerOff(robotID string, d time.Duration) (suppress.PoweredOff, error)
	Restore(robotID string) (bool, error)

	// Full reset of in-memory state and notifications
	Reset() error
}

// Sampler produces one reading per part for a robot.
type Sampler interface {
	Parts() []sampler.Part
	Sample(robotID string, now time.Time) ([]sampler.Reading, error)
}

// Reports persists incident reports.
type Reports interface {
	Write(ctx context.Context, inc report.Incident) (string, error)
	Clear() error
}

// Notifier delivers and manages manager notifications.
type Notifier interface {
	Send(ctx context.Context, n notify.Notification) error
	RemoveForRobot(robotID string) error
	ResetAll() error
	Stats(now time.Time) notify.Stats
}

// PartSummary is the latest verdict for one part.
type PartSummary struct {
	PartID         string             `json:"part_id"`
	PartName       string             `json:"part_name"`
	Status         sampler.Status     `json:"status"`
	Severity       diagnosis.Severity `json:"severity"`
	Confidence     float64            `json:"confidence"`
	Temperature    float64            `json:"temperature"`
	Vibration      float64            `json:"vibration"`
	Humidity       float64            `json:"humidity"`
	OperatingHours float64            `json:"operating_hours"`
	Issues         []string           `json:"issues,omitempty"`
}

// RobotSummary is the outcome of the latest check of one robot.
type RobotSummary struct {
	RobotID       string         `json:"robot_id"`
	Status        sampler.Status `json:"status"`
	CriticalParts int            `json:"critical_parts"`
	WarningParts  int            `json:"warning_parts"`
	LastCheck     time.Time      `json:"last_check"`
	Report        string         `json:"report,omitempty"`
	Forced        bool           `json:"forced,omitempty"`
	Parts         []PartSummary  `json:"parts"`
}

// Status is the monitor snapshot served by the control surface.
type Status struct {
	IsRunning        bool                  `json:"is_running"`
	ForceStopped     bool                  `json:"force_stopped"`
	Interval         string                `json:"interval"`
	ReportsGenerated int                   `json:"reports_generated"`
	Robots           []RobotSummary        `json:"robots"`
	PoweredOffRobots []suppress.PoweredOff `json:"powered_off_robots"`
	Notifications    notify.Stats          `json:"notifications"`
}
