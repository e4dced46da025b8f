package diagnosis

import (
	"fmt"
	"strings"
)

// Channel is one monitored signal category.
type Channel string

const (
	Temperature    Channel = "temperature"
	Vibration      Channel = "vibration"
	Humidity       Channel = "humidity"
	OperatingHours Channel = "operating_hours"
)

// Channels lists every channel in analysis order.
var Channels = []Channel{Temperature, Vibration, Humidity, OperatingHours}

// Severity is ordinal: Low < Warning < Critical.
type Severity int

const (
	Low Severity = iota
	Warning
	Critical
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return "low"
	}
}

// MarshalText renders the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "low":
		*s = Low
	case "warning":
		*s = Warning
	case "critical":
		*s = Critical
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Max returns the highest of the given severities.
func Max(severities ...Severity) Severity {
	out := Low
	for _, s := range severities {
		if s > out {
			out = s
		}
	}
	return out
}

// Pattern names the anomaly shape detected on a channel.
type Pattern string

const (
	PatternNormal Pattern = "normal"

	SuddenSpike      Pattern = "sudden_spike"
	GradualIncrease  Pattern = "gradual_increase"
	IntermittentHigh Pattern = "intermittent_high"

	HighFrequency Pattern = "high_frequency"
	LowFrequency  Pattern = "low_frequency"

	HighHumidity Pattern = "high_humidity"
	Condensation Pattern = "condensation"

	MaterialFatigue Pattern = "material_fatigue"
	MechanicalWear  Pattern = "mechanical_wear"
)

// patterns maps each channel to its critical, warning and low patterns.
var patterns = map[Channel][3]Pattern{
	Temperature:    {SuddenSpike, GradualIncrease, IntermittentHigh},
	Vibration:      {HighFrequency, LowFrequency, PatternNormal},
	Humidity:       {HighHumidity, Condensation, PatternNormal},
	OperatingHours: {MaterialFatigue, MechanicalWear, PatternNormal},
}

// Threshold bounds one channel. Low is only consulted when positive.
type Threshold struct {
	Critical float64 `mapstructure:"critical" yaml:"critical"`
	Warning  float64 `mapstructure:"warning" yaml:"warning"`
	Low      float64 `mapstructure:"low" yaml:"low,omitempty"`
}

// Thresholds holds the per-channel bounds.
type Thresholds struct {
	Temperature    Threshold `mapstructure:"temperature" yaml:"temperature"`
	Vibration      Threshold `mapstructure:"vibration" yaml:"vibration"`
	Humidity       Threshold `mapstructure:"humidity" yaml:"humidity"`
	OperatingHours Threshold `mapstructure:"operating_hours" yaml:"operating_hours"`
}

// DefaultThresholds returns the built-in threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Temperature:    Threshold{Critical: 60, Warning: 50, Low: 45},
		Vibration:      Threshold{Critical: 0.4, Warning: 0.3},
		Humidity:       Threshold{Critical: 80, Warning: 70},
		OperatingHours: Threshold{Critical: 10000, Warning: 5000},
	}
}

// For returns the threshold for c.
func (t Thresholds) For(c Channel) Threshold {
	switch c {
	case Vibration:
		return t.Vibration
	case Humidity:
		return t.Humidity
	case OperatingHours:
		return t.OperatingHours
	default:
		return t.Temperature
	}
}

// Validate checks that every channel has critical above warning, and
// that a temperature low bound sits below warning.
func (t Thresholds) Validate() error {
	for _, c := range Channels {
		th := t.For(c)
		if th.Warning <= 0 || th.Critical <= th.Warning {
			return fmt.Errorf("%s: critical (%v) must exceed warning (%v) > 0", c, th.Critical, th.Warning)
		}
		if th.Low > 0 && th.Low >= th.Warning {
			return fmt.Errorf("%s: low (%v) must be below warning (%v)", c, th.Low, th.Warning)
		}
	}
	return nil
}

// ChannelAnalysis is the verdict for one channel of one part.
type ChannelAnalysis struct {
	Channel         Channel
	Pattern         Pattern
	Severity        Severity
	Causes          []string
	Recommendations []string
	Response        string
	Confidence      float64
	Average         float64
	Recent          []float64
}

// Input is the current raw reading of a part.
type Input struct {
	PartID         string
	PartName       string
	Temperature    float64
	Vibration      float64
	Humidity       float64
	OperatingHours float64
}

func (in Input) value(c Channel) float64 {
	switch c {
	case Vibration:
		return in.Vibration
	case Humidity:
		return in.Humidity
	case OperatingHours:
		return in.OperatingHours
	default:
		return in.Temperature
	}
}

// Analysis aggregates the four channel verdicts for one part.
type Analysis struct {
	PartID          string
	PartName        string
	OverallSeverity Severity
	Channels        map[Channel]ChannelAnalysis
	Recommendations []string
	Events          []string
	Summary         string
	Confidence      float64
}
