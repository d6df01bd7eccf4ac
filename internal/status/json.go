package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	RunID         string      `json:"run_id"`
	Motion        string      `json:"motion"`
	Cadence       string      `json:"cadence"`
	LastMotion    string      `json:"last_motion,omitempty"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	Hub           HubJSON     `json:"hub"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Capture       CaptureJSON `json:"capture"`
	Config        ConfigJSON  `json:"config"`
}

// HubJSON reports the event subscription state.
type HubJSON struct {
	Connected    bool   `json:"connected"`
	RetryMs      int64  `json:"retry_ms,omitempty"`
	Reconnects   int    `json:"reconnects"`
	URL          string `json:"url"`
	MotionEntity string `json:"motion_entity"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CaptureJSON reports the current day cycle.
type CaptureJSON struct {
	Day          string `json:"day,omitempty"`
	Frames       int    `json:"frames"`
	Failures     int    `json:"failures"`
	Wakes        int    `json:"wakes"`
	LastCapture  string `json:"last_capture,omitempty"`
	DaysRendered int    `json:"days_rendered"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	CameraURL   string `json:"camera_url"`
	DefaultMs   int64  `json:"interval_default_ms"`
	MotionMs    int64  `json:"interval_motion_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	FrameDir    string `json:"frame_dir"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	motion := "OFF"
	if snap.Motion {
		motion = "ON"
	}

	inner := StatusInner{
		RunID:         snap.RunID,
		Motion:        motion,
		Cadence:       string(snap.Cadence()),
		LastMotion:    formatTime(snap.LastMotion),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     formatTime(snap.StartTime),
		Timestamp:     formatTime(snap.Now),
		Hub: HubJSON{
			Connected:    snap.HubConnected,
			RetryMs:      snap.HubRetry.Milliseconds(),
			Reconnects:   snap.Reconnects,
			URL:          snap.Config.HubURL,
			MotionEntity: snap.Config.Entity,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Capture: CaptureJSON{
			Frames:       snap.DayCounts.Captured,
			Failures:     snap.DayCounts.Failed,
			Wakes:        snap.DayCounts.Wakes,
			LastCapture:  formatTime(snap.LastCapture),
			DaysRendered: snap.DaysRendered,
		},
		Config: ConfigJSON{
			CameraURL:   snap.Config.CameraURL,
			DefaultMs:   snap.Config.DefaultMs,
			MotionMs:    snap.Config.MotionMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			FrameDir:    snap.Config.FrameDir,
		},
	}
	if !snap.Day.IsZero() {
		inner.Capture.Day = snap.Day.Format("2006-01-02")
	}
	return inner
}

// FormatJSON returns the indented JSON status (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
