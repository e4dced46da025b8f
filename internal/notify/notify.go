// Package notify builds manager notifications and delivers them to the
// notification center and optional chat sinks.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeEmergencyStop = "EMERGENCY_STOP_REQUIRED"
	TypeInspection    = "INSPECTION_REQUIRED"

	ActionImmediateStop = "IMMEDIATE_STOP"
	ActionInspect       = "INSPECT"
)

// Detail describes one anomalous part in a notification.
type Detail struct {
	PartID         string  `json:"part_id"`
	PartName       string  `json:"part_name"`
	Temperature    float64 `json:"temperature"`
	Vibration      float64 `json:"vibration"`
	Humidity       float64 `json:"humidity"`
	OperatingHours float64 `json:"operating_hours"`
	DangerLevel    string  `json:"danger_level"`
	LocalTime      string  `json:"local_time"`
	ISOTime        string  `json:"iso_time"`
}

// Notification is the payload delivered to the factory manager.
type Notification struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	RobotID        string    `json:"robot_id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Details        []Detail  `json:"details"`
	Severity       string    `json:"severity"`
	ActionRequired string    `json:"action_required"`
}

// Sink delivers a notification.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// New builds a notification for robotID. Critical notifications request
// an immediate stop; the rest request an inspection.
func New(robotID string, critical bool, details []Detail, now time.Time) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Timestamp: now,
		RobotID:   robotID,
		Details:   details,
	}
	if n.Details == nil {
		n.Details = []Detail{}
	}

	if critical {
		n.Type = TypeEmergencyStop
		n.Title = "Emergency stop requested"
		n.Message = fmt.Sprintf("Sustained dangerous conditions detected on robot %s.", robotID)
		n.Severity = "CRITICAL"
		n.ActionRequired = ActionImmediateStop
	} else {
		n.Type = TypeInspection
		n.Title = "Inspection requested"
		n.Message = fmt.Sprintf("Abnormal readings detected on robot %s.", robotID)
		n.Severity = "WARNING"
		n.ActionRequired = ActionInspect
	}

	return n
}

// Text renders the notification as plain text.
func (n Notification) Text() string {
	out := fmt.Sprintf("Notification ID: %s\nRobot ID: %s\nTitle: %s\n\n%s\n\n", n.ID, n.RobotID, n.Title, n.Message)
	for i, d := range n.Details {
		name := d.PartName
		if name == "" {
			name = d.PartID
		}
		out += fmt.Sprintf("%d. %s (%s): temperature %.1f°C, vibration %.3f, humidity %.1f%%\n",
			i+1, name, d.DangerLevel, d.Temperature, d.Vibration, d.Humidity)
	}
	return out
}
