package metrics

import (
	"context"
	"time"
)

// Ledger is the domain interface used by the monitor.
type Ledger interface {
	RecordReading(ctx context.Context, r *ReadingRecord) error
	RecordIncident(ctx context.Context, i *IncidentRecord) error
	Incidents(ctx context.Context, robotID string, limit int) ([]IncidentRecord, error)
	Close() error
	Enabled() bool
}

// Repository is the storage behind a Ledger.
type Repository interface {
	RecordReading(r *ReadingRecord) error
	RecordIncident(i *IncidentRecord) error
	Incidents(ctx context.Context, robotID string, limit int) ([]IncidentRecord, error)
	Flush() error
	Close() error
}

// ReadingRecord is one sampled part reading with its verdict.
type ReadingRecord struct {
	Timestamp      time.Time
	RobotID        string
	PartID         string
	Temperature    float64
	Vibration      float64
	Humidity       float64
	OperatingHours float64
	Voltage        float64
	CPULoad        float64
	AbnormalNoise  bool
	Severity       string
	Confidence     float64
}

// IncidentRecord is one written incident report.
type IncidentRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	RobotID    string    `json:"robot_id"`
	Level      string    `json:"level"`
	Parts      int       `json:"parts"`
	ReportFile string    `json:"report_file"`
	Forced     bool      `json:"forced"`
}
