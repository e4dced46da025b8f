package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/robotwatch/internal/api"
	"codeberg.org/mutker/robotwatch/internal/errors"
	"codeberg.org/mutker/robotwatch/internal/logger"
	"codeberg.org/mutker/robotwatch/internal/metrics"
	"codeberg.org/mutker/robotwatch/internal/monitor"
	"codeberg.org/mutker/robotwatch/internal/notify"
	"codeberg.org/mutker/robotwatch/internal/sampler"
	"codeberg.org/mutker/robotwatch/internal/suppress"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	running      bool
	forceStopped bool
	suppressed   map[string]bool
	powerOffFor  time.Duration
	checks       int
	resets       int
}

func (f *fakeController) known(id string) error {
	if id != "ROBOT_001" {
		return errors.New().WithData(errors.ErrUnknownRobot, id)
	}
	return nil
}

func (f *fakeController) Start() error {
	if f.forceStopped {
		return errors.New().New(errors.ErrForceStopped)
	}
	f.running = true
	return nil
}

func (f *fakeController) Stop()           { f.running = false }
func (f *fakeController) IsRunning() bool { return f.running }

func (f *fakeController) Status() monitor.Status {
	return monitor.Status{IsRunning: f.running, Interval: "every 5s"}
}

func (f *fakeController) CheckRobot(_ context.Context, id string) (monitor.RobotSummary, error) {
	if err := f.known(id); err != nil {
		return monitor.RobotSummary{}, err
	}
	f.checks++
	return monitor.RobotSummary{RobotID: id, Status: sampler.StatusNormal}, nil
}

func (f *fakeController) PowerOff(id string, d time.Duration) (suppress.PoweredOff, error) {
	if err := f.known(id); err != nil {
		return suppress.PoweredOff{}, err
	}
	f.powerOffFor = d
	f.suppressed[id] = true
	return suppress.PoweredOff{RobotID: id, RemainingSeconds: int(d.Seconds())}, nil
}

func (f *fakeController) Restore(id string) (bool, error) {
	if err := f.known(id); err != nil {
		return false, err
	}
	was := f.suppressed[id]
	delete(f.suppressed, id)
	return was, nil
}

func (f *fakeController) Reset() error {
	f.resets++
	return nil
}

type fakeNotifications struct{}

func (fakeNotifications) History() []notify.Notification {
	return []notify.Notification{{ID: "n-1", RobotID: "ROBOT_001"}}
}

func (fakeNotifications) Stats(time.Time) notify.Stats {
	return notify.Stats{Total: 1, Today: 1}
}

type fakeLedger struct {
	enabled bool
	robot   string
	limit   int
}

func (f *fakeLedger) RecordReading(context.Context, *metrics.ReadingRecord) error   { return nil }
func (f *fakeLedger) RecordIncident(context.Context, *metrics.IncidentRecord) error { return nil }
func (f *fakeLedger) Close() error                                                  { return nil }
func (f *fakeLedger) Enabled() bool                                                 { return f.enabled }

func (f *fakeLedger) Incidents(_ context.Context, robotID string, limit int) ([]metrics.IncidentRecord, error) {
	f.robot, f.limit = robotID, limit
	return []metrics.IncidentRecord{{RobotID: "ROBOT_001", Level: "CRITICAL", Parts: 2}}, nil
}

func setup(t *testing.T, ctl *fakeController, ledger metrics.Ledger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if ctl.suppressed == nil {
		ctl.suppressed = make(map[string]bool)
	}
	h := api.NewHandler(ctl, fakeNotifications{}, ledger, logger.Default())
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("robotwatch_ticks_total 0\n"))
	})
	return api.NewRouter(h, metricsHandler, logger.Default())
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMonitorStartStop(t *testing.T) {
	ctl := &fakeController{}
	r := setup(t, ctl, nil)

	w := do(r, http.MethodPost, "/api/monitor", `{"action":"start"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ctl.running)

	var body struct {
		Message string         `json:"message"`
		Status  monitor.Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Monitoring started", body.Message)
	assert.True(t, body.Status.IsRunning)

	w = do(r, http.MethodPost, "/api/monitor", `{"action":"stop"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, ctl.running)

	w = do(r, http.MethodGet, "/api/monitor", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"interval":"every 5s"`)
}

func TestMonitorRejectsUnknownAction(t *testing.T) {
	r := setup(t, &fakeController{}, nil)

	w := do(r, http.MethodPost, "/api/monitor", `{"action":"explode"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonitorForceStoppedConflict(t *testing.T) {
	r := setup(t, &fakeController{forceStopped: true}, nil)

	w := do(r, http.MethodPost, "/api/monitor", `{"action":"start"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), string(errors.ErrForceStopped))
}

func TestPowerOffAndRestore(t *testing.T) {
	ctl := &fakeController{}
	r := setup(t, ctl, nil)

	w := do(r, http.MethodPost, "/api/robots/ROBOT_001/power-off", `{"duration_ms":90000}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 90*time.Second, ctl.powerOffFor)

	var po suppress.PoweredOff
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &po))
	assert.Equal(t, 90, po.RemainingSeconds)

	w = do(r, http.MethodPost, "/api/robots/ROBOT_001/restore", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ctl.checks)

	w = do(r, http.MethodPost, "/api/robots/ROBOT_001/restore", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPowerOffWithoutBodyUsesDefault(t *testing.T) {
	ctl := &fakeController{}
	r := setup(t, ctl, nil)

	w := do(r, http.MethodPost, "/api/robots/ROBOT_001/power-off", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, ctl.powerOffFor)
}

func TestUnknownRobotIsNotFound(t *testing.T) {
	r := setup(t, &fakeController{}, nil)

	for _, path := range []string{
		"/api/robots/ROBOT_404/power-off",
		"/api/robots/ROBOT_404/restore",
		"/api/robots/ROBOT_404/check",
	} {
		w := do(r, http.MethodPost, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestCheckAndReset(t *testing.T) {
	ctl := &fakeController{}
	r := setup(t, ctl, nil)

	w := do(r, http.MethodPost, "/api/robots/ROBOT_001/check", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"robot_id":"ROBOT_001"`)

	w = do(r, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ctl.resets)
}

func TestNotifications(t *testing.T) {
	r := setup(t, &fakeController{}, nil)

	w := do(r, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"n-1"`)
	assert.Contains(t, w.Body.String(), `"total_notifications":1`)
}

func TestIncidents(t *testing.T) {
	r := setup(t, &fakeController{}, nil)
	w := do(r, http.MethodGet, "/api/incidents", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	ledger := &fakeLedger{enabled: true}
	r = setup(t, &fakeController{}, ledger)

	w = do(r, http.MethodGet, "/api/incidents?robot_id=ROBOT_001&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ROBOT_001", ledger.robot)
	assert.Equal(t, 5, ledger.limit)
	assert.Contains(t, w.Body.String(), `"level":"CRITICAL"`)

	w = do(r, http.MethodGet, "/api/incidents?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsAndHealth(t *testing.T) {
	r := setup(t, &fakeController{}, nil)

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "robotwatch_ticks_total")

	w = do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
