// Package status provides a thread-safe status tracker for the timelapse daemon.
// It is written by the hub observer and the scheduler and read when
// publishing lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/motion-timelapse/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	CameraURL   string
	HubURL      string
	Entity      string
	DefaultMs   int64
	MotionMs    int64
	HeartbeatMs int64
	Broker      string
	FrameDir    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	RunID         string
	StartTime     time.Time
	Now           time.Time
	Motion        bool
	LastMotion    time.Time
	HubConnected  bool
	HubRetry      time.Duration
	Reconnects    int
	Day           time.Time
	DayCounts     logic.DayCounts
	LastCapture   time.Time
	DaysRendered  int
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Cadence returns the capture cadence implied by the motion flag.
func (s Snapshot) Cadence() logic.Cadence {
	if s.Motion {
		return logic.CadenceMotion
	}
	return logic.CadenceDefault
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(runID string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			RunID:     runID,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetMotion records a motion transition.
func (t *Tracker) SetMotion(active bool, at time.Time) {
	t.mu.Lock()
	t.snap.Motion = active
	if active {
		t.snap.LastMotion = at
	}
	t.mu.Unlock()
}

// SetHubConnected records that the subscription is live.
func (t *Tracker) SetHubConnected() {
	t.mu.Lock()
	t.snap.HubConnected = true
	t.snap.HubRetry = 0
	t.mu.Unlock()
}

// SetHubDisconnected records a lost or failed session.
func (t *Tracker) SetHubDisconnected(retryIn time.Duration) {
	t.mu.Lock()
	t.snap.HubConnected = false
	t.snap.Motion = false
	t.snap.HubRetry = retryIn
	t.snap.Reconnects++
	t.mu.Unlock()
}

// StartDay resets the per-day counters.
func (t *Tracker) StartDay(day time.Time) {
	t.mu.Lock()
	t.snap.Day = day
	t.snap.DayCounts = logic.DayCounts{}
	t.mu.Unlock()
}

// UpdateDay copies the scheduler's per-day counters.
func (t *Tracker) UpdateDay(counts logic.DayCounts, lastCapture time.Time) {
	t.mu.Lock()
	t.snap.DayCounts = counts
	if !lastCapture.IsZero() {
		t.snap.LastCapture = lastCapture
	}
	t.mu.Unlock()
}

// DayRendered counts a completed end-of-day render.
func (t *Tracker) DayRendered() {
	t.mu.Lock()
	t.snap.DaysRendered++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
