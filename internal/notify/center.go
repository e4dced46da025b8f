package notify

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/robotwatch/internal/errors"
	"codeberg.org/mutker/robotwatch/internal/logger"
)

const (
	// HistoryLimit is the number of notifications retained in memory.
	HistoryLimit = 100
	// RecentLimit is the number returned by History.
	RecentLimit = 20
	// ForwardQueueSize bounds the notifications waiting for the sinks.
	ForwardQueueSize = 64
	// ForwardTimeout bounds one notification's delivery to all sinks.
	ForwardTimeout = 30 * time.Second

	statsFile  = "stats.json"
	filePrefix = "notification_"
)

// Stats summarizes delivered notifications.
type Stats struct {
	Total         int        `json:"total_notifications"`
	Today         int        `json:"today_notifications"`
	LastTimestamp *time.Time `json:"last_notification,omitempty"`
	Active        int        `json:"active_count"`
}

type persistedStats struct {
	GrandTotal    int            `json:"grand_total"`
	ByDate        map[string]int `json:"by_date"`
	LastTimestamp *time.Time     `json:"last_timestamp"`
}

// Center is the file-backed notification store. Each notification is
// kept as JSON and text, with running totals in stats.json. Sent
// notifications are forwarded to any configured sinks from a background
// worker, so a slow sink never holds up Send.
type Center struct {
	mu       sync.Mutex
	dir      string
	location *time.Location
	history  []Notification
	stats    persistedStats
	forward  []Sink
	log      logger.Logger

	queue   chan Notification
	timeout time.Duration
	closed  bool
	done    chan struct{}
}

// NewCenter opens dir, creating it if needed, and reloads the persisted
// history and stats. Unreadable entries are skipped.
func NewCenter(dir string, loc *time.Location, log logger.Logger, forward ...Sink) (*Center, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errFactory.Wrap(errors.ErrSendNotification, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Named("notify")
	}

	c := &Center{
		dir:      dir,
		location: loc,
		stats:    persistedStats{ByDate: make(map[string]int)},
		forward:  forward,
		log:      log,
		timeout:  ForwardTimeout,
	}
	c.load()

	if len(forward) > 0 {
		c.queue = make(chan Notification, ForwardQueueSize)
		c.done = make(chan struct{})
		go c.deliver()
	}

	return c, nil
}

// SetForwardTimeout changes the per-notification delivery deadline.
// Non-positive values are ignored.
func (c *Center) SetForwardTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// Close stops accepting forwards and waits for queued ones to finish.
// It is safe to call more than once.
func (c *Center) Close() error {
	c.mu.Lock()
	if c.closed || c.queue == nil {
		c.closed = true
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()

	<-c.done
	return nil
}

// Send records n and persists it, then queues it for the sinks.
// Forwarding happens in the background; its failures are logged and do
// not fail the send. When the queue is full the forward is dropped.
func (c *Center) Send(_ context.Context, n Notification) error {
	errFactory := errors.New()

	c.mu.Lock()
	c.history = append(c.history, n)
	if len(c.history) > HistoryLimit {
		c.history = c.history[len(c.history)-HistoryLimit:]
	}
	c.bump(n.Timestamp)
	err := c.persist(n)
	c.enqueue(n)
	c.mu.Unlock()

	if err != nil {
		return errFactory.Wrap(errors.ErrSendNotification, err).WithData(n.ID)
	}

	return nil
}

// enqueue hands n to the worker without blocking. The caller holds mu.
func (c *Center) enqueue(n Notification) {
	if c.queue == nil || c.closed {
		return
	}
	select {
	case c.queue <- n:
	default:
		c.log.Warn().Str("robot_id", n.RobotID).Str("notification_id", n.ID).
			Int("queue_size", ForwardQueueSize).
			Msg("Forward queue full, dropping notification")
	}
}

func (c *Center) deliver() {
	defer close(c.done)

	for n := range c.queue {
		c.mu.Lock()
		timeout := c.timeout
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		for _, s := range c.forward {
			if err := s.Send(ctx, n); err != nil {
				c.log.Warn().Err(err).Str("robot_id", n.RobotID).Msg("Failed to forward notification")
			}
		}
		cancel()
	}
}

// History returns the most recent notifications, oldest first.
func (c *Center) History() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := 0
	if len(c.history) > RecentLimit {
		start = len(c.history) - RecentLimit
	}
	out := make([]Notification, len(c.history)-start)
	copy(out, c.history[start:])

	return out
}

// Stats returns the totals as of now.
func (c *Center) Stats(now time.Time) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.stats.GrandTotal
	if total == 0 {
		total = len(c.history)
	}
	last := c.stats.LastTimestamp
	if last == nil && len(c.history) > 0 {
		ts := c.history[len(c.history)-1].Timestamp
		last = &ts
	}

	return Stats{
		Total:         total,
		Today:         c.stats.ByDate[c.day(now)],
		LastTimestamp: last,
		Active:        len(c.history),
	}
}

// RemoveForRobot drops a robot's notifications from history and disk.
// Totals are kept.
func (c *Center) RemoveForRobot(robotID string) error {
	if robotID == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.history[:0]
	for _, n := range c.history {
		if n.RobotID != robotID {
			kept = append(kept, n)
		}
	}
	c.history = kept

	return c.removeFiles(func(name string) bool {
		return strings.HasPrefix(name, filePrefix+robotID+"_")
	})
}

// ResetAll clears history, totals and every file in the directory.
func (c *Center) ResetAll() error {
	errFactory := errors.New()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = nil
	c.stats = persistedStats{ByDate: make(map[string]int)}

	if err := c.removeFiles(func(string) bool { return true }); err != nil {
		return err
	}
	if err := c.writeStats(); err != nil {
		return errFactory.Wrap(errors.ErrSendNotification, err)
	}

	return nil
}

func (c *Center) bump(at time.Time) {
	c.stats.GrandTotal++
	c.stats.ByDate[c.day(at)]++
	ts := at
	c.stats.LastTimestamp = &ts
}

func (c *Center) day(t time.Time) string {
	return t.In(c.location).Format("2006-01-02")
}

func (c *Center) persist(n Notification) error {
	base := filepath.Join(c.dir, filePrefix+n.RobotID+"_"+n.ID)

	raw, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(base+".json", raw, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(base+".txt", []byte(n.Text()), 0o644); err != nil {
		return err
	}

	return c.writeStats()
}

func (c *Center) writeStats() error {
	raw, err := json.MarshalIndent(c.stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, statsFile), raw, 0o644)
}

func (c *Center) removeFiles(match func(name string) bool) error {
	errFactory := errors.New()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return errFactory.Wrap(errors.ErrSendNotification, err)
	}
	for _, e := range entries {
		if e.IsDir() || !match(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return errFactory.Wrap(errors.ErrSendNotification, err).WithData(e.Name())
		}
	}

	return nil
}

func (c *Center) load() {
	if raw, err := os.ReadFile(filepath.Join(c.dir, statsFile)); err == nil {
		var st persistedStats
		if err := json.Unmarshal(raw, &st); err == nil {
			if st.ByDate == nil {
				st.ByDate = make(map[string]int)
			}
			c.stats = st
		} else {
			c.log.Warn().Err(err).Str("file", statsFile).Msg("Ignoring unreadable notification stats")
		}
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			continue
		}
		var n Notification
		if err := json.Unmarshal(raw, &n); err != nil || n.ID == "" {
			continue
		}
		c.history = append(c.history, n)
	}

	sort.SliceStable(c.history, func(i, j int) bool {
		return c.history[i].Timestamp.Before(c.history[j].Timestamp)
	})
	if len(c.history) > HistoryLimit {
		c.history = c.history[len(c.history)-HistoryLimit:]
	}
}
