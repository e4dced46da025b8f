package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm(reg)

	p.TickCompleted(20 * time.Millisecond)
	p.TickCompleted(30 * time.Millisecond)
	assert.InDelta(t, 2, testutil.ToFloat64(p.ticks), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(p.tickDuration))

	p.PartSampled("critical")
	p.PartSampled("low")
	p.PartSampled("low")
	assert.InDelta(t, 2, testutil.ToFloat64(p.parts.WithLabelValues("low")), 0)

	p.Report("CRITICAL", OutcomeEmitted)
	p.Report("CRITICAL", OutcomeSuppressed)
	p.Report("CRITICAL", OutcomeSuppressed)
	assert.InDelta(t, 2, testutil.ToFloat64(p.reports.WithLabelValues("CRITICAL", OutcomeSuppressed)), 0)

	p.Notification(OutcomeFailed)
	assert.InDelta(t, 1, testutil.ToFloat64(p.notifications.WithLabelValues(OutcomeFailed)), 0)

	p.CheckFailed("ROBOT_002")
	assert.InDelta(t, 1, testutil.ToFloat64(p.checkFailures.WithLabelValues("ROBOT_002")), 0)

	p.SetSuppressed(3)
	assert.InDelta(t, 3, testutil.ToFloat64(p.suppressed), 0)

	p.SetRunning(true)
	assert.InDelta(t, 1, testutil.ToFloat64(p.running), 0)
	p.SetRunning(false)
	assert.InDelta(t, 0, testutil.ToFloat64(p.running), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestPromUsesDefaultRegisterer(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	t.Cleanup(func() { prometheus.DefaultRegisterer = origReg })

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg

	NewProm(nil)
	assert.Panics(t, func() { NewProm(reg) })
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.TickCompleted(time.Second)
	r.SetRunning(true)
}
