// Package telemetry exports monitor activity as Prometheus metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "robotwatch"

var _ Recorder = (*Prom)(nil)

// Prom is a Recorder backed by Prometheus collectors.
type Prom struct {
	ticks         prometheus.Counter
	tickDuration  prometheus.Histogram
	parts         *prometheus.CounterVec
	checkFailures *prometheus.CounterVec
	reports       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	suppressed    prometheus.Gauge
	running       prometheus.Gauge
}

// NewProm registers the monitor collectors with reg, or with the default
// registerer when reg is nil.
func NewProm(reg prometheus.Registerer) *Prom {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prom{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Completed monitor ticks.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent checking every robot in one tick.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		parts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parts_sampled_total",
			Help:      "Sampled part readings by overall severity.",
		}, []string{"severity"}),
		checkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_failures_total",
			Help:      "Robot checks that failed and were skipped.",
		}, []string{"robot_id"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Incident report attempts by level and outcome.",
		}, []string{"level", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Manager notification attempts by outcome.",
		}, []string{"outcome"}),
		suppressed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "robots_powered_off",
			Help:      "Robots currently held in the powered-off state.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_running",
			Help:      "1 while the periodic monitor is running.",
		}),
	}

	reg.MustRegister(
		p.ticks,
		p.tickDuration,
		p.parts,
		p.checkFailures,
		p.reports,
		p.notifications,
		p.suppressed,
		p.running,
	)

	return p
}

func (p *Prom) TickCompleted(d time.Duration) {
	p.ticks.Inc()
	p.tickDuration.Observe(d.Seconds())
}

func (p *Prom) PartSampled(severity string) {
	p.parts.WithLabelValues(severity).Inc()
}

func (p *Prom) CheckFailed(robotID string) {
	p.checkFailures.WithLabelValues(robotID).Inc()
}

func (p *Prom) Report(level, outcome string) {
	p.reports.WithLabelValues(level, outcome).Inc()
}

func (p *Prom) Notification(outcome string) {
	p.notifications.WithLabelValues(outcome).Inc()
}

func (p *Prom) SetSuppressed(n int) {
	p.suppressed.Set(float64(n))
}

func (p *Prom) SetRunning(running bool) {
	if running {
		p.running.Set(1)
		return
	}
	p.running.Set(0)
}
