package diagnosis_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/robotwatch/internal/diagnosis"
	"codeberg.org/mutker/robotwatch/internal/errors"
	"codeberg.org/mutker/robotwatch/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func temps(values ...float64) []history.Entry {
	out := make([]history.Entry, len(values))
	for i, v := range values {
		out[i] = history.Entry{Temperature: v, Vibration: 0.1, Humidity: 40, OperatingHours: 2000}
	}
	return out
}

func TestSmooth(t *testing.T) {
	tests := []struct {
		name    string
		past    []float64
		current float64
		window  int
		avg     float64
		recent  []float64
	}{
		{"current only", nil, 42, 5, 42, []float64{42}},
		{"short history", []float64{40, 42, 41}, 90, 5, 53.25, []float64{40, 42, 41, 90}},
		{"window drops oldest", []float64{1000, 10, 10, 10, 10}, 10, 5, 10, []float64{10, 10, 10, 10, 10}},
		{"window below one", []float64{1, 2}, 3, 0, 3, []float64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, recent := diagnosis.Smooth(tt.past, tt.current, tt.window)
			assert.InDelta(t, tt.avg, avg, 1e-9)
			assert.Equal(t, tt.recent, recent)
		})
	}
}

func TestClassifyTemperature(t *testing.T) {
	th := diagnosis.DefaultThresholds().Temperature
	tests := []struct {
		avg      float64
		pattern  diagnosis.Pattern
		severity diagnosis.Severity
	}{
		{30, diagnosis.PatternNormal, diagnosis.Low},
		{45, diagnosis.PatternNormal, diagnosis.Low},
		{46, diagnosis.IntermittentHigh, diagnosis.Low},
		{50.5, diagnosis.GradualIncrease, diagnosis.Warning},
		{60, diagnosis.GradualIncrease, diagnosis.Warning},
		{60.1, diagnosis.SuddenSpike, diagnosis.Critical},
	}

	for _, tt := range tests {
		pattern, severity := diagnosis.Classify(diagnosis.Temperature, tt.avg, th)
		assert.Equal(t, tt.pattern, pattern, "avg %v", tt.avg)
		assert.Equal(t, tt.severity, severity, "avg %v", tt.avg)
	}
}

func TestClassifyIsMonotonic(t *testing.T) {
	ths := diagnosis.DefaultThresholds()
	for _, c := range diagnosis.Channels {
		th := ths.For(c)
		step := th.Critical / 200
		prev := diagnosis.Low
		for avg := 0.0; avg < th.Critical*2; avg += step {
			_, s := diagnosis.Classify(c, avg, th)
			assert.GreaterOrEqual(t, s, prev, "%s at %v", c, avg)
			prev = s
		}
	}
}

func TestSpikeIsSmoothedAndPenalized(t *testing.T) {
	e := diagnosis.NewEngine(diagnosis.WithPicker(diagnosis.FixedPicker(0)))

	ca := e.AnalyzeChannel(diagnosis.Temperature, "head", 90, temps(40, 42, 41))

	assert.InDelta(t, 53.25, ca.Average, 1e-9)
	assert.Equal(t, diagnosis.Warning, ca.Severity)
	assert.Equal(t, diagnosis.GradualIncrease, ca.Pattern)
	assert.InDelta(t, 0.70, ca.Confidence, 1e-9)
	assert.NotEmpty(t, ca.Causes)
	assert.NotEmpty(t, ca.Recommendations)
	assert.NotEmpty(t, ca.Response)
}

func TestConfidenceBounds(t *testing.T) {
	e := diagnosis.NewEngine()
	values := []float64{0, 0.2, 0.5, 30, 55, 65, 75, 85, 150, 4000, 12000}

	for _, c := range diagnosis.Channels {
		for _, v := range values {
			for _, past := range [][]history.Entry{nil, temps(10, 10, 10, 10), temps(200, 200)} {
				ca := e.AnalyzeChannel(c, "torso", v, past)
				assert.GreaterOrEqual(t, ca.Confidence, 0.5)
				assert.LessOrEqual(t, ca.Confidence, 0.95)
			}
		}
	}
}

func TestCriticalResponseAddsEmergencyAdvice(t *testing.T) {
	rules := diagnosis.DefaultRules()
	e := diagnosis.NewEngine(diagnosis.WithPicker(diagnosis.FixedPicker(1)))

	ca := e.AnalyzeChannel(diagnosis.Temperature, "head", 70, temps(70, 70, 70, 70))

	require.Equal(t, diagnosis.Critical, ca.Severity)
	assert.Equal(t, rules.Responses[diagnosis.Temperature][1]+" "+rules.Emergency[0], ca.Response)
	assert.InDelta(t, 0.95, ca.Confidence, 1e-9)
}

func TestPartCauseOverride(t *testing.T) {
	e := diagnosis.NewEngine()
	rules := diagnosis.DefaultRules()

	torso := e.AnalyzeChannel(diagnosis.Temperature, "torso", 55, nil)
	head := e.AnalyzeChannel(diagnosis.Temperature, "head", 55, nil)

	assert.Equal(t, rules.PartCauses["torso"][diagnosis.Temperature], torso.Causes)
	assert.Equal(t, rules.Patterns[diagnosis.Temperature][diagnosis.GradualIncrease].Causes, head.Causes)
}

func TestMissingRuleFallsBackToGeneric(t *testing.T) {
	rules := diagnosis.DefaultRules()
	delete(rules.Patterns, diagnosis.Humidity)
	e := diagnosis.NewEngine(diagnosis.WithRules(rules))

	ca := e.AnalyzeChannel(diagnosis.Humidity, "head", 90, nil)

	assert.Equal(t, diagnosis.Critical, ca.Severity)
	assert.NotEmpty(t, ca.Causes)
	assert.NotEmpty(t, ca.Recommendations)
}

func TestAnalyzeAggregates(t *testing.T) {
	e := diagnosis.NewEngine(diagnosis.WithPicker(diagnosis.FixedPicker(0)))
	in := diagnosis.Input{
		PartID:         "left_arm",
		PartName:       "Left arm",
		Temperature:    55,
		Vibration:      0.5,
		Humidity:       40,
		OperatingHours: 2000,
	}

	a := e.Analyze(in, nil)

	assert.Equal(t, diagnosis.Critical, a.OverallSeverity)
	assert.Len(t, a.Channels, 4)
	assert.Equal(t, diagnosis.Warning, a.Channels[diagnosis.Temperature].Severity)
	assert.Equal(t, diagnosis.Critical, a.Channels[diagnosis.Vibration].Severity)
	assert.Equal(t, diagnosis.Low, a.Channels[diagnosis.Humidity].Severity)
	assert.Equal(t, []string{"Temperature rising", "Excessive vibration"}, a.Events)
	assert.Contains(t, a.Summary, "immediate action required")
	assert.Contains(t, a.Summary, "55.0")

	minConf := 1.0
	for _, ca := range a.Channels {
		if ca.Confidence < minConf {
			minConf = ca.Confidence
		}
	}
	assert.InDelta(t, minConf, a.Confidence, 1e-9)

	seen := make(map[string]bool)
	for _, rec := range a.Recommendations {
		assert.False(t, seen[rec], "duplicate recommendation %q", rec)
		seen[rec] = true
	}
	temp := a.Channels[diagnosis.Temperature].Recommendations
	require.NotEmpty(t, temp)
	assert.Equal(t, temp[0], a.Recommendations[0])
}

func TestAnalyzeNormal(t *testing.T) {
	e := diagnosis.NewEngine()
	a := e.Analyze(diagnosis.Input{PartID: "head", PartName: "Head", Temperature: 30, Vibration: 0.1, Humidity: 40, OperatingHours: 2000}, nil)

	assert.Equal(t, diagnosis.Low, a.OverallSeverity)
	assert.Empty(t, a.Recommendations)
	assert.Empty(t, a.Events)
	assert.Contains(t, a.Summary, "within normal range")
	assert.InDelta(t, 0.8, a.Confidence, 1e-9)
}

func TestAnalyzeIsDeterministicWithFixedPicker(t *testing.T) {
	e := diagnosis.NewEngine(diagnosis.WithPicker(diagnosis.FixedPicker(2)))
	in := diagnosis.Input{PartID: "base", PartName: "Base", Temperature: 62, Vibration: 0.35, Humidity: 75, OperatingHours: 11000}
	past := temps(61, 63)

	assert.Equal(t, e.Analyze(in, past), e.Analyze(in, past))
}

func TestMaintenanceRecommendations(t *testing.T) {
	assert.Len(t, diagnosis.MaintenanceRecommendations(1, 1), 2)
	assert.Len(t, diagnosis.MaintenanceRecommendations(0, 2), 1)
	assert.Contains(t, diagnosis.MaintenanceRecommendations(0, 0)[0], "All parts are normal")
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, diagnosis.DefaultThresholds().Validate())

	bad := diagnosis.DefaultThresholds()
	bad.Humidity.Critical = 60
	assert.Error(t, bad.Validate())

	bad = diagnosis.DefaultThresholds()
	bad.Temperature.Low = 55
	assert.Error(t, bad.Validate())
}

func TestSeverityText(t *testing.T) {
	var s diagnosis.Severity
	require.NoError(t, s.UnmarshalText([]byte("Critical")))
	assert.Equal(t, diagnosis.Critical, s)

	text, err := diagnosis.Warning.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "warning", string(text))

	assert.Error(t, s.UnmarshalText([]byte("fatal")))
	assert.Equal(t, diagnosis.Critical, diagnosis.Max(diagnosis.Low, diagnosis.Critical, diagnosis.Warning))
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	body := `name: FloorRules
version: 2.0.0
part_causes:
  head:
    temperature:
      - Camera heater stuck on
responses:
  vibration:
    - Custom vibration response.
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	rules, err := diagnosis.LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "FloorRules", rules.Name)
	assert.Equal(t, "2.0.0", rules.Version)
	assert.Equal(t, []string{"Custom vibration response."}, rules.Responses[diagnosis.Vibration])
	assert.Equal(t, diagnosis.DefaultRules().Responses[diagnosis.Temperature], rules.Responses[diagnosis.Temperature])

	e := diagnosis.NewEngine(diagnosis.WithRules(rules))
	ca := e.AnalyzeChannel(diagnosis.Temperature, "head", 55, nil)
	assert.Equal(t, []string{"Camera heater stuck on"}, ca.Causes)
	assert.Equal(t, "FloorRules", e.Name())
}

func TestLoadRulesMissingFile(t *testing.T) {
	rules, err := diagnosis.LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrLoadRules))
	assert.Equal(t, diagnosis.DefaultRules().Name, rules.Name)
}
