package monitor

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/robotwatch/internal/diagnosis"
	"codeberg.org/mutker/robotwatch/internal/errors"
	"codeberg.org/mutker/robotwatch/internal/history"
	"codeberg.org/mutker/robotwatch/internal/metrics"
	"codeberg.org/mutker/robotwatch/internal/notify"
	"codeberg.org/mutker/robotwatch/internal/report"
	"codeberg.org/mutker/robotwatch/internal/sampler"
	"codeberg.org/mutker/robotwatch/internal/telemetry"
)

// SustainedChecks is the number of consecutive abnormal history entries
// that force a critical report while the scheduler is stopped.
const SustainedChecks = 3

// check runs one robot check. The caller holds checkMu. A panic anywhere
// in sampling, diagnosis or output is returned as ErrCheckFailed.
func (m *Monitor) check(ctx context.Context, robotID string) (sum RobotSummary, err error) {
	errFactory := errors.New()

	defer func() {
		if r := recover(); r != nil {
			err = errors.Recovered(errors.ErrCheckFailed, r).WithData(robotID)
		}
	}()

	now := m.clock.Now()
	if m.state.Suppressor.IsSuppressed(robotID) {
		sum = m.stoppedSummary(robotID, now)
		m.state.setSummary(sum)
		return sum, nil
	}
	// A lapsed power-off may have been cleared above before its timer ran.
	m.rec.SetSuppressed(len(m.state.Suppressor.Remaining()))

	readings, err := m.sampler.Sample(robotID, now)
	if err != nil {
		return RobotSummary{}, errFactory.Wrap(errors.ErrSampleFailed, err).WithData(robotID)
	}

	sum = RobotSummary{
		RobotID:   robotID,
		Status:    sampler.StatusNormal,
		LastCheck: now,
		Parts:     make([]PartSummary, 0, len(readings)),
	}

	var all, critical, warning []report.Finding
	for _, r := range readings {
		past := m.state.History.Get(robotID, r.PartID)
		a := m.engine.Analyze(input(r), past)
		m.state.History.Append(robotID, r.PartID, entry(r))

		r.Status = statusFor(a.OverallSeverity)
		m.rec.PartSampled(a.OverallSeverity.String())
		m.recordReading(ctx, r, a)

		f := report.Finding{Reading: r, Analysis: a}
		all = append(all, f)
		switch r.Status {
		case sampler.StatusCritical, sampler.StatusEmergency:
			critical = append(critical, f)
		case sampler.StatusWarning:
			warning = append(warning, f)
		}
		sum.Parts = append(sum.Parts, partSummary(r, a))
	}

	findings, level := critical, report.LevelCritical
	if len(findings) == 0 && !m.IsRunning() {
		findings = m.sustained(robotID, all)
		sum.Forced = len(findings) > 0
	}
	if len(findings) == 0 {
		findings, level = warning, report.LevelEmergency
	}

	sum.CriticalParts = len(critical)
	sum.WarningParts = len(warning)
	if sum.Forced {
		sum.CriticalParts = len(findings)
		for _, f := range findings {
			markForced(&sum, f.Reading.PartID)
		}
	}
	sum.Status = worst(sum.Parts)

	if len(findings) > 0 {
		sum.Report = m.attemptReport(ctx, robotID, level, findings, sum, now)
		m.attemptNotify(ctx, robotID, level == report.LevelCritical, findings, now)
	}

	m.state.setSummary(sum)

	return sum, nil
}

// sustained returns synthesized critical findings for every part whose
// last SustainedChecks history entries each exceed a critical bound on
// some channel.
func (m *Monitor) sustained(robotID string, all []report.Finding) []report.Finding {
	th := m.engine.Thresholds()

	var out []report.Finding
	for _, f := range all {
		last := m.state.History.Last(robotID, f.Reading.PartID, SustainedChecks)
		if len(last) < SustainedChecks {
			continue
		}

		abnormal := true
		for _, e := range last {
			if !exceedsCritical(e, th) {
				abnormal = false
				break
			}
		}
		if !abnormal {
			continue
		}

		f.Reading.Status = sampler.StatusCritical
		f.Analysis.OverallSeverity = diagnosis.Critical
		f.Analysis.Summary = fmt.Sprintf(
			"%s: abnormal readings sustained over the last %d checks, immediate action required",
			f.Reading.PartName, SustainedChecks)
		out = append(out, f)
	}

	return out
}

func (m *Monitor) attemptReport(ctx context.Context, robotID string, level report.Level, findings []report.Finding, sum RobotSummary, now time.Time) string {
	if !m.state.Dedupe.Allow(robotID, now) {
		m.rec.Report(string(level), telemetry.OutcomeSuppressed)
		m.log.Debug().Str("robot_id", robotID).Str("level", string(level)).Msg("Report suppressed by dedupe window")
		return ""
	}

	inc := report.Incident{
		RobotID:     robotID,
		Level:       level,
		Time:        now,
		Location:    m.opts.Location,
		Interval:    m.opts.Interval,
		Findings:    findings,
		Maintenance: diagnosis.MaintenanceRecommendations(sum.CriticalParts, sum.WarningParts),
		AgentName:   m.engine.Name(),
		Version:     m.engine.Version(),
		Forced:      sum.Forced,
	}

	name, err := m.reports.Write(ctx, inc)
	if err != nil {
		m.log.Error().Err(err).Str("robot_id", robotID).Str("level", string(level)).Msg("Failed to write report")
		if name == "" {
			m.rec.Report(string(level), telemetry.OutcomeFailed)
			return ""
		}
	}

	m.state.countReport()
	m.rec.Report(string(level), telemetry.OutcomeEmitted)
	m.log.Info().Str("robot_id", robotID).Str("level", string(level)).Str("report", name).Int("parts", len(findings)).Msg("Report generated")

	if m.ledger != nil {
		rec := &metrics.IncidentRecord{
			Timestamp:  now,
			RobotID:    robotID,
			Level:      string(level),
			Parts:      len(findings),
			ReportFile: name,
			Forced:     sum.Forced,
		}
		if err := m.ledger.RecordIncident(ctx, rec); err != nil {
			m.log.Warn().Err(err).Str("robot_id", robotID).Msg("Failed to record incident")
		}
	}

	return name
}

func (m *Monitor) attemptNotify(ctx context.Context, robotID string, critical bool, findings []report.Finding, now time.Time) {
	if !m.state.Throttle.Allow(robotID, now) {
		m.rec.Notification(telemetry.OutcomeSuppressed)
		m.log.Debug().Str("robot_id", robotID).Msg("Notification suppressed by cooldown")
		return
	}

	details := make([]notify.Detail, 0, len(findings))
	for _, f := range findings {
		details = append(details, notify.Detail{
			PartID:         f.Reading.PartID,
			PartName:       f.Reading.PartName,
			Temperature:    f.Reading.Temperature,
			Vibration:      f.Reading.Vibration,
			Humidity:       f.Reading.Humidity,
			OperatingHours: f.Reading.OperatingHours,
			DangerLevel:    string(f.Reading.Status),
			LocalTime:      report.LocalTime(now, m.opts.Location),
			ISOTime:        report.ISOTime(now),
		})
	}

	if err := m.notifier.Send(ctx, notify.New(robotID, critical, details, now)); err != nil {
		m.rec.Notification(telemetry.OutcomeFailed)
		m.log.Error().Err(err).Str("robot_id", robotID).Msg("Failed to send notification")
		return
	}
	m.rec.Notification(telemetry.OutcomeEmitted)
}

func (m *Monitor) recordReading(ctx context.Context, r sampler.Reading, a diagnosis.Analysis) {
	if m.ledger == nil {
		return
	}

	rec := &metrics.ReadingRecord{
		Timestamp:      r.Timestamp,
		RobotID:        r.RobotID,
		PartID:         r.PartID,
		Temperature:    r.Temperature,
		Vibration:      r.Vibration,
		Humidity:       r.Humidity,
		OperatingHours: r.OperatingHours,
		Voltage:        r.Voltage,
		CPULoad:        r.CPULoad,
		AbnormalNoise:  r.AbnormalNoise,
		Severity:       a.OverallSeverity.String(),
		Confidence:     a.Confidence,
	}
	if err := m.ledger.RecordReading(ctx, rec); err != nil {
		m.log.Debug().Err(err).Str("robot_id", r.RobotID).Str("part_id", r.PartID).Msg("Failed to record reading")
	}
}

func input(r sampler.Reading) diagnosis.Input {
	return diagnosis.Input{
		PartID:         r.PartID,
		PartName:       r.PartName,
		Temperature:    r.Temperature,
		Vibration:      r.Vibration,
		Humidity:       r.Humidity,
		OperatingHours: r.OperatingHours,
	}
}

func entry(r sampler.Reading) history.Entry {
	return history.Entry{
		Temperature:    r.Temperature,
		Vibration:      r.Vibration,
		Humidity:       r.Humidity,
		OperatingHours: r.OperatingHours,
		Timestamp:      r.Timestamp,
	}
}

func statusFor(s diagnosis.Severity) sampler.Status {
	switch s {
	case diagnosis.Critical:
		return sampler.StatusCritical
	case diagnosis.Warning:
		return sampler.StatusWarning
	default:
		return sampler.StatusNormal
	}
}

func exceedsCritical(e history.Entry, th diagnosis.Thresholds) bool {
	return e.Temperature > th.Temperature.Critical ||
		e.Vibration > th.Vibration.Critical ||
		e.Humidity > th.Humidity.Critical ||
		e.OperatingHours > th.OperatingHours.Critical
}

func partSummary(r sampler.Reading, a diagnosis.Analysis) PartSummary {
	return PartSummary{
		PartID:         r.PartID,
		PartName:       r.PartName,
		Status:         r.Status,
		Severity:       a.OverallSeverity,
		Confidence:     a.Confidence,
		Temperature:    r.Temperature,
		Vibration:      r.Vibration,
		Humidity:       r.Humidity,
		OperatingHours: r.OperatingHours,
		Issues:         r.Issues,
	}
}

func markForced(sum *RobotSummary, partID string) {
	for i := range sum.Parts {
		if sum.Parts[i].PartID == partID {
			sum.Parts[i].Status = sampler.StatusCritical
			sum.Parts[i].Severity = diagnosis.Critical
		}
	}
}

var statusRank = map[sampler.Status]int{
	sampler.StatusNormal:    0,
	sampler.StatusWarning:   1,
	sampler.StatusCritical:  2,
	sampler.StatusEmergency: 3,
}

func worst(parts []PartSummary) sampler.Status {
	out := sampler.StatusNormal
	for _, p := range parts {
		if statusRank[p.Status] > statusRank[out] {
			out = p.Status
		}
	}
	return out
}
