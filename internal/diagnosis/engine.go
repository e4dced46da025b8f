// Package diagnosis classifies smoothed part readings into per-channel
// severities with confidence scores, causes and recommendations.
package diagnosis

import (
	"fmt"
	"math"
	"math/rand/v2"

	"codeberg.org/mutker/robotwatch/internal/history"
)

const (
	DefaultWindow = 5

	minConfidence = 0.5
	maxConfidence = 0.95
)

// baseConfidence is indexed by severity bucket: normal, low pattern,
// warning, critical.
var baseConfidence = map[Channel][4]float64{
	Temperature:    {0.8, 0.75, 0.85, 0.95},
	Vibration:      {0.8, 0.8, 0.8, 0.9},
	Humidity:       {0.8, 0.8, 0.8, 0.9},
	OperatingHours: {0.8, 0.8, 0.8, 0.9},
}

// penalty lowers confidence when the raw value deviates from the
// smoothed average by more than over.
type penalty struct {
	over   float64
	amount float64
	floor  float64
}

// outlierPenalties are checked in order; the first match applies.
var outlierPenalties = map[Channel][]penalty{
	Temperature:    {{over: 10, amount: 0.15, floor: 0.5}, {over: 5, amount: 0.05, floor: 0.6}},
	Vibration:      {{over: 0.2, amount: 0.15, floor: 0.5}},
	Humidity:       {{over: 20, amount: 0.15, floor: 0.5}},
	OperatingHours: {{over: 1000, amount: 0.15, floor: 0.5}},
}

var events = map[Channel][2]string{
	Temperature:    {"Temperature rising", "High temperature detected"},
	Vibration:      {"Increased vibration", "Excessive vibration"},
	Humidity:       {"Humidity rising - Condensation risk", "High humidity - Short circuit risk"},
	OperatingHours: {"Mechanical wear - Long operating hours", "Material fatigue - High operating hours"},
}

// Picker chooses an index in [0, n). It isolates the only random step
// of an analysis: selecting flavor text.
type Picker interface {
	Pick(n int) int
}

// FixedPicker always returns the same index, modulo n.
type FixedPicker int

func (p FixedPicker) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	return int(p) % n
}

// RandomPicker picks uniformly with math/rand/v2.
type RandomPicker struct{}

func (RandomPicker) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.IntN(n)
}

// Engine is the diagnostic classifier. It is safe for concurrent use.
type Engine struct {
	thresholds Thresholds
	window     int
	rules      Rules
	picker     Picker
}

// Option configures an Engine.
type Option func(*Engine)

func WithThresholds(t Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

func WithWindow(w int) Option {
	return func(e *Engine) { e.window = w }
}

func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r }
}

func WithPicker(p Picker) Option {
	return func(e *Engine) { e.picker = p }
}

// NewEngine returns an Engine with the built-in thresholds, rules and
// window unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		thresholds: DefaultThresholds(),
		window:     DefaultWindow,
		rules:      DefaultRules(),
		picker:     RandomPicker{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.window < 1 {
		e.window = 1
	}

	return e
}

// Name and Version identify the rule table in reports.
func (e *Engine) Name() string    { return e.rules.Name }
func (e *Engine) Version() string { return e.rules.Version }

// Thresholds returns the active threshold table.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Smooth returns the mean of the last window values of history followed
// by current, and that window.
func Smooth(past []float64, current float64, window int) (float64, []float64) {
	if window < 1 {
		window = 1
	}

	values := make([]float64, 0, len(past)+1)
	values = append(values, past...)
	values = append(values, current)
	if len(values) > window {
		values = values[len(values)-window:]
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values)), values
}

// Classify compares avg against th, highest bound first.
func Classify(c Channel, avg float64, th Threshold) (Pattern, Severity) {
	p := patterns[c]
	switch {
	case avg > th.Critical:
		return p[0], Critical
	case avg > th.Warning:
		return p[1], Warning
	case th.Low > 0 && p[2] != PatternNormal && avg > th.Low:
		return p[2], Low
	default:
		return PatternNormal, Low
	}
}

// Confidence returns the verdict confidence after the outlier penalty.
func Confidence(c Channel, p Pattern, s Severity, current, avg float64) float64 {
	bucket := 0
	switch {
	case s == Critical:
		bucket = 3
	case s == Warning:
		bucket = 2
	case p != PatternNormal:
		bucket = 1
	}
	conf := baseConfidence[c][bucket]

	diff := math.Abs(current - avg)
	for _, pen := range outlierPenalties[c] {
		if diff > pen.over {
			conf = math.Max(pen.floor, conf-pen.amount)
			break
		}
	}

	return math.Min(maxConfidence, math.Max(minConfidence, conf))
}

// AnalyzeChannel classifies one channel of one part.
func (e *Engine) AnalyzeChannel(c Channel, partID string, current float64, past []history.Entry) ChannelAnalysis {
	avg, recent := Smooth(channelValues(c, past), current, e.window)
	pattern, severity := Classify(c, avg, e.thresholds.For(c))
	causes, recommendations := e.rules.lookup(c, pattern, partID)

	out := ChannelAnalysis{
		Channel:         c,
		Pattern:         pattern,
		Severity:        severity,
		Causes:          causes,
		Recommendations: recommendations,
		Confidence:      Confidence(c, pattern, severity, current, avg),
		Average:         avg,
		Recent:          recent,
	}
	if pattern != PatternNormal {
		out.Response = e.response(c, severity)
	}

	return out
}

// Analyze runs every channel for one part and aggregates the result.
func (e *Engine) Analyze(in Input, past []history.Entry) Analysis {
	out := Analysis{
		PartID:     in.PartID,
		PartName:   in.PartName,
		Channels:   make(map[Channel]ChannelAnalysis, len(Channels)),
		Confidence: 1,
	}

	seen := make(map[string]struct{})
	criticals, warnings := 0, 0
	for _, c := range Channels {
		ca := e.AnalyzeChannel(c, in.PartID, in.value(c), past)
		out.Channels[c] = ca
		out.OverallSeverity = Max(out.OverallSeverity, ca.Severity)
		out.Confidence = math.Min(out.Confidence, ca.Confidence)

		switch ca.Severity {
		case Critical:
			criticals++
			out.Events = append(out.Events, events[c][1])
		case Warning:
			warnings++
			out.Events = append(out.Events, events[c][0])
		}

		if ca.Severity == Low {
			continue
		}
		for _, rec := range ca.Recommendations {
			if _, ok := seen[rec]; ok {
				continue
			}
			seen[rec] = struct{}{}
			out.Recommendations = append(out.Recommendations, rec)
		}
	}

	out.Summary = summary(in, criticals, warnings)

	return out
}

func (e *Engine) response(c Channel, s Severity) string {
	options := e.rules.Responses[c]
	if len(options) == 0 {
		return "Analysis in progress."
	}

	resp := options[e.picker.Pick(len(options))]
	if s == Critical && len(e.rules.Emergency) > 0 {
		resp += " " + e.rules.Emergency[0]
	}

	return resp
}

func summary(in Input, criticals, warnings int) string {
	values := fmt.Sprintf("temperature %.1f°C, vibration %.3f, humidity %.1f%%, operating hours %.0f h",
		in.Temperature, in.Vibration, in.Humidity, in.OperatingHours)

	switch {
	case criticals > 0:
		return fmt.Sprintf("%s diagnosis: immediate action required. Readings (%s) have reached dangerous levels.", in.PartName, values)
	case warnings > 0:
		return fmt.Sprintf("%s diagnosis: attention required. Readings (%s) are trending upward.", in.PartName, values)
	default:
		return fmt.Sprintf("%s diagnosis: within normal range. Readings (%s) are stable.", in.PartName, values)
	}
}

// MaintenanceRecommendations returns the robot-level advice for the
// given counts of critical and warning parts.
func MaintenanceRecommendations(criticalParts, warningParts int) []string {
	var out []string
	if criticalParts > 0 {
		out = append(out, "Some parts need emergency maintenance. Inspect and repair them immediately.")
	}
	if warningParts > 0 {
		out = append(out, "Plan preventive inspection of the parts in warning state.")
	}
	if len(out) == 0 {
		out = append(out, "All parts are normal. Continue routine maintenance.")
	}
	return out
}

func channelValues(c Channel, past []history.Entry) []float64 {
	out := make([]float64, len(past))
	for i, e := range past {
		switch c {
		case Vibration:
			out[i] = e.Vibration
		case Humidity:
			out[i] = e.Humidity
		case OperatingHours:
			out[i] = e.OperatingHours
		default:
			out[i] = e.Temperature
		}
	}
	return out
}
