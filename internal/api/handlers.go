package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/robotwatch/internal/errors"
	"codeberg.org/mutker/robotwatch/internal/logger"
	"codeberg.org/mutker/robotwatch/internal/metrics"
	"codeberg.org/mutker/robotwatch/internal/monitor"
	"codeberg.org/mutker/robotwatch/internal/notify"
	"github.com/gin-gonic/gin"
)

const defaultIncidentLimit = 50

// Notifications is the read side of the notification center.
type Notifications interface {
	History() []notify.Notification
	Stats(now time.Time) notify.Stats
}

type Handler struct {
	monitor       monitor.Controller
	notifications Notifications
	ledger        metrics.Ledger
	log           logger.Logger
}

// NewHandler builds the handlers. ledger may be nil.
func NewHandler(ctl monitor.Controller, notes Notifications, ledger metrics.Ledger, log logger.Logger) *Handler {
	return &Handler{monitor: ctl, notifications: notes, ledger: ledger, log: log}
}

func (h *Handler) GetMonitor(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Status())
}

func (h *Handler) PostMonitor(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required,oneof=start stop status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be one of start, stop, status"})
		return
	}

	message := "Monitor status"
	switch req.Action {
	case "start":
		if err := h.monitor.Start(); err != nil {
			h.fail(c, err)
			return
		}
		message = "Monitoring started"
	case "stop":
		h.monitor.Stop()
		message = "Monitoring stopped"
	}

	c.JSON(http.StatusOK, gin.H{"message": message, "status": h.monitor.Status()})
}

func (h *Handler) PowerOff(c *gin.Context) {
	var req struct {
		DurationMS int64 `json:"duration_ms" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_ms must be a non-negative integer"})
		return
	}

	id := c.Param("id")
	po, err := h.monitor.PowerOff(id, time.Duration(req.DurationMS)*time.Millisecond)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, po)
}

// Restore ends a power-off early and checks the robot straight away.
func (h *Handler) Restore(c *gin.Context) {
	id := c.Param("id")
	restored, err := h.monitor.Restore(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !restored {
		c.JSON(http.StatusConflict, gin.H{"error": "robot is not powered off", "restored": false})
		return
	}

	sum, err := h.monitor.CheckRobot(c.Request.Context(), id)
	if err != nil {
		h.log.Warn().Err(err).Str("robot_id", id).Msg("Check after restore failed")
	}

	c.JSON(http.StatusOK, gin.H{"restored": true, "robot": sum})
}

func (h *Handler) Check(c *gin.Context) {
	sum, err := h.monitor.CheckRobot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, sum)
}

func (h *Handler) Reset(c *gin.Context) {
	if err := h.monitor.Reset(); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Monitor state reset"})
}

func (h *Handler) GetNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"notifications": h.notifications.History(),
		"stats":         h.notifications.Stats(time.Now()),
	})
}

func (h *Handler) GetIncidents(c *gin.Context) {
	if h.ledger == nil || !h.ledger.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "incident ledger is disabled"})
		return
	}

	limit := defaultIncidentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	incidents, err := h.ledger.Incidents(c.Request.Context(), c.Query("robot_id"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if incidents == nil {
		incidents = []metrics.IncidentRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"incidents": incidents})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.ErrUnknownRobot:
		status = http.StatusNotFound
	case errors.ErrForceStopped:
		status = http.StatusConflict
	case errors.ErrInvalidArgument:
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.CodeOf(err)})
}
