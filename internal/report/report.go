// Package report composes incident reports and writes them to disk.
package report

import (
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/robotwatch/internal/diagnosis"
	"codeberg.org/mutker/robotwatch/internal/sampler"
)

// Level is the report severity.
type Level string

const (
	LevelCritical  Level = "CRITICAL"
	LevelEmergency Level = "EMERGENCY"
)

// FilePrefix is the leading filename component for the level.
func (l Level) FilePrefix() string {
	if l == LevelCritical {
		return "CRITICAL"
	}
	return "emergency"
}

// Finding is one anomalous part with its analysis.
type Finding struct {
	Reading  sampler.Reading
	Analysis diagnosis.Analysis
}

// Incident is everything needed to render one report.
type Incident struct {
	RobotID     string
	Level       Level
	Time        time.Time
	Location    *time.Location
	Interval    time.Duration
	Findings    []Finding
	Maintenance []string
	AgentName   string
	Version     string
	// Forced marks reports synthesized from sustained history while the
	// scheduler was stopped.
	Forced bool
}

var headlines = map[Level][]string{
	LevelCritical: {
		"CRITICAL REPORT - EMERGENCY STOP REQUESTED",
		"CRITICAL REPORT - IMMEDIATE SHUTDOWN ADVISED",
		"CRITICAL REPORT - SAFETY LIMIT EXCEEDED",
	},
	LevelEmergency: {
		"FACTORY MONITOR - EMERGENCY REPORT",
		"FACTORY MONITOR - ANOMALY REPORT",
		"FACTORY MONITOR - INSPECTION REQUIRED",
	},
}

var procedures = map[Level][]string{
	LevelCritical: {
		"Execute an emergency stop of the robot immediately",
		"Contact the factory manager urgently",
		"Evacuate everyone from the safety area",
		"Request an emergency response from the maintenance team",
		"Carry out a detailed inspection and repair",
		"Complete a full safety check before restarting",
	},
	LevelEmergency: {
		"Stop the robot immediately",
		"Perform a safety check",
		"Contact the maintenance team",
		"Carry out a detailed inspection",
		"Complete a safety check before restarting",
	},
}

const (
	wide   = 80
	narrow = 60
)

// Filename returns the report filename for inc.
func Filename(inc Incident) string {
	iso := ISOTime(inc.Time)
	iso = strings.NewReplacer(":", "-", ".", "-").Replace(iso)
	return fmt.Sprintf("%s_report_%s_%s.txt", inc.Level.FilePrefix(), inc.RobotID, iso)
}

// ISOTime renders t in UTC with millisecond precision.
func ISOTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// LocalTime renders t in loc, or UTC when loc is nil.
func LocalTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006/01/02 15:04:05 MST")
}

// Compose renders the report body. The picker selects the headline
// variant.
func Compose(inc Incident, pick diagnosis.Picker) string {
	var b strings.Builder
	critical := inc.Level == LevelCritical
	iso := ISOTime(inc.Time)

	rule(&b, "=", wide)
	variants := headlines[inc.Level]
	b.WriteString(variants[pick.Pick(len(variants))] + "\n")
	if critical {
		b.WriteString("IMMEDIATE ACTION REQUIRED\n")
	}
	rule(&b, "=", wide)
	b.WriteString("\n")

	fmt.Fprintf(&b, "Robot ID: %s\n", inc.RobotID)
	fmt.Fprintf(&b, "Robot name: Robot %s\n", inc.RobotID)
	fmt.Fprintf(&b, "Generated at: %s\n", LocalTime(inc.Time, inc.Location))
	fmt.Fprintf(&b, "ISO time: %s\n", iso)
	if critical {
		b.WriteString("Level: CRITICAL\n")
	} else {
		b.WriteString("Level: warning\n")
	}
	fmt.Fprintf(&b, "Anomalous parts: %d\n\n", len(inc.Findings))

	if critical {
		section(&b, "CRITICAL ERROR DETAILS")
		if inc.Forced {
			b.WriteString("Trigger: sustained abnormal readings while the monitor was stopped\n")
		}
		fmt.Fprintf(&b, "Dangerous parts: %d\n", len(inc.Findings))
		for i, f := range inc.Findings {
			r := f.Reading
			fmt.Fprintf(&b, "  %d. %s: temperature %.1f°C, vibration %.3f, status %s\n",
				i+1, r.PartName, r.Temperature, r.Vibration, r.Status)
		}
		b.WriteString("\n")
	}

	section(&b, "ANOMALOUS PART DETAILS")
	for i, f := range inc.Findings {
		r, a := f.Reading, f.Analysis
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.PartName)
		fmt.Fprintf(&b, "   Temperature: %.1f°C\n", r.Temperature)
		fmt.Fprintf(&b, "   Vibration: %.3f\n", r.Vibration)
		fmt.Fprintf(&b, "   Humidity: %.1f%%\n", r.Humidity)
		fmt.Fprintf(&b, "   Operating hours: %.0f h\n", r.OperatingHours)
		fmt.Fprintf(&b, "   Status: %s\n", strings.ToUpper(string(r.Status)))
		if events := append(append([]string{}, a.Events...), r.Issues...); len(events) > 0 {
			fmt.Fprintf(&b, "   Events: %s\n", strings.Join(events, ", "))
		}
		fmt.Fprintf(&b, "   AI summary: %s\n", a.Summary)
		fmt.Fprintf(&b, "   Confidence: %.1f%%\n", a.Confidence*100)
		b.WriteString("   Recommendations:\n")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(&b, "     - %s\n", rec)
		}
		b.WriteString("\n")
	}

	section(&b, "AI AGENT ANALYSIS")
	fmt.Fprintf(&b, "Agent: %s\n", inc.AgentName)
	fmt.Fprintf(&b, "Version: %s\n", inc.Version)
	fmt.Fprintf(&b, "Analyzed at: %s\n", iso)
	fmt.Fprintf(&b, "Analyzed parts: %d\n\n", len(inc.Findings))
	b.WriteString("Maintenance recommendations:\n")
	for _, rec := range inc.Maintenance {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	b.WriteString("\n")

	if critical {
		section(&b, "CRITICAL RESPONSE PROCEDURE")
	} else {
		section(&b, "RECOMMENDED RESPONSE")
	}
	for i, step := range procedures[inc.Level] {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	b.WriteString("\n")

	section(&b, "MONITORING SYSTEM")
	b.WriteString("Monitor: background automatic monitoring\n")
	fmt.Fprintf(&b, "Interval: %s\n", inc.Interval)
	b.WriteString("Report trigger: automatic on anomaly detection\n\n")

	rule(&b, "=", wide)
	if critical {
		b.WriteString("End of CRITICAL Report\n")
	} else {
		b.WriteString("End of Emergency Report\n")
	}
	rule(&b, "=", wide)

	return b.String()
}

// SystemLogLine is the line appended to the system log for a report.
func SystemLogLine(inc Incident, filename string) string {
	return fmt.Sprintf("[%s] %s: %s - %d critical parts - Report: %s\n",
		ISOTime(inc.Time), inc.Level, inc.RobotID, len(inc.Findings), filename)
}

func section(b *strings.Builder, title string) {
	rule(b, "-", narrow)
	b.WriteString(title + "\n")
	rule(b, "-", narrow)
	b.WriteString("\n")
}

func rule(b *strings.Builder, ch string, n int) {
	b.WriteString(strings.Repeat(ch, n) + "\n")
}
