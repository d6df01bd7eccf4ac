package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/motion-timelapse/internal/gpio"
)

const minimal = `
camera_url = "http://192.168.1.50"
hub_url = "ws://homeassistant.local:8123/api/websocket"
hub_token = "abc123"
`

func TestParseDefaults(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cfg, err := Parse(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.CameraURL != "http://192.168.1.50" {
		t.Errorf("CameraURL: got %q", cfg.CameraURL)
	}
	if cfg.DefaultInterval != 60*time.Second || cfg.MotionInterval != time.Second {
		t.Errorf("intervals: got %v/%v", cfg.DefaultInterval, cfg.MotionInterval)
	}
	if cfg.ReconnectMin != 5*time.Second || cfg.ReconnectMax != 60*time.Second {
		t.Errorf("reconnect: got %v/%v", cfg.ReconnectMin, cfg.ReconnectMax)
	}
	if cfg.Framerate != 30 || cfg.CRFFull != 17 || cfg.CRFDownsampled != 26 {
		t.Errorf("render: got fps=%d crf=%d/%d", cfg.Framerate, cfg.CRFFull, cfg.CRFDownsampled)
	}
	if cfg.FrameDir != "" {
		t.Errorf("FrameDir should default to empty, got %q", cfg.FrameDir)
	}
	if cfg.MQTTBroker != "" || cfg.LED {
		t.Error("MQTT and LED should be disabled by default")
	}
	if cfg.LEDPin != gpio.DefaultPinLED {
		t.Errorf("LEDPin: got %d, want %d", cfg.LEDPin, gpio.DefaultPinLED)
	}
	if !filepath.IsAbs(cfg.OutputFull) {
		t.Errorf("OutputFull should be absolute, got %q", cfg.OutputFull)
	}
}

func TestParseFull(t *testing.T) {
	in := minimal + `
motion_entity = "binary_sensor.driveway_motion"
interval_default = "2m"
interval_motion = "500ms"
reconnect_min = "1s"
reconnect_max = "30s"
frame_dir = "/var/lib/timelapse/frames"
output_full = "/srv/timelapse"
output_downsampled = "/config/www/timelapse"
ffmpeg = "/usr/local/bin/ffmpeg"
framerate = 25
crf_full = 0
crf_downsampled = 30
mqtt_broker = "tcp://192.168.1.200:1883"
mqtt_topic = "home/driveway"
heartbeat = "5m"
led = true
led_pin = 27
`
	cfg, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Entity != "binary_sensor.driveway_motion" {
		t.Errorf("Entity: got %q", cfg.Entity)
	}
	if cfg.DefaultInterval != 2*time.Minute || cfg.MotionInterval != 500*time.Millisecond {
		t.Errorf("intervals: got %v/%v", cfg.DefaultInterval, cfg.MotionInterval)
	}
	if cfg.ReconnectMin != time.Second || cfg.ReconnectMax != 30*time.Second {
		t.Errorf("reconnect: got %v/%v", cfg.ReconnectMin, cfg.ReconnectMax)
	}
	if cfg.FrameDir != "/var/lib/timelapse/frames" {
		t.Errorf("FrameDir: got %q", cfg.FrameDir)
	}
	if cfg.CRFFull != 0 {
		t.Errorf("explicit crf_full = 0 should be kept, got %d", cfg.CRFFull)
	}
	if cfg.CRFDownsampled != 30 || cfg.Framerate != 25 {
		t.Errorf("render: got fps=%d crf=%d", cfg.Framerate, cfg.CRFDownsampled)
	}
	if cfg.MQTTBroker != "tcp://192.168.1.200:1883" || cfg.MQTTTopic != "home/driveway" {
		t.Errorf("mqtt: got %q %q", cfg.MQTTBroker, cfg.MQTTTopic)
	}
	if cfg.Heartbeat != 5*time.Minute || !cfg.LED || cfg.LEDPin != 27 {
		t.Errorf("heartbeat/led: got %v/%v/%d", cfg.Heartbeat, cfg.LED, cfg.LEDPin)
	}
}

func TestLEDEnabledUsesDefaultPin(t *testing.T) {
	cfg, err := Parse(strings.NewReader(minimal + "led = true\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.LED || cfg.LEDPin != gpio.DefaultPinLED {
		t.Errorf("led: got %v on pin %d, want true on pin %d", cfg.LED, cfg.LEDPin, gpio.DefaultPinLED)
	}
}

func TestLEDPinZeroIsAPin(t *testing.T) {
	cfg, err := Parse(strings.NewReader(minimal + "led = true\nled_pin = 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LEDPin != 0 {
		t.Errorf("explicit led_pin = 0 should be kept, got %d", cfg.LEDPin)
	}
}

func TestTokenEnvOverride(t *testing.T) {
	t.Setenv(TokenEnv, "from-env")

	cfg, err := Parse(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HubToken != "from-env" {
		t.Errorf("HubToken: got %q, want from-env", cfg.HubToken)
	}
}

func TestTokenFromEnvOnly(t *testing.T) {
	t.Setenv(TokenEnv, "from-env")
	in := `
camera_url = "http://cam"
hub_url = "ws://hub/api/websocket"
`
	if _, err := Parse(strings.NewReader(in)); err != nil {
		t.Errorf("token from env should satisfy validation: %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	t.Setenv(TokenEnv, "")
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bad toml", `camera_url = `, "parse config"},
		{"missing camera", `hub_url = "ws://h"` + "\n" + `hub_token = "t"`, "camera_url"},
		{"missing hub", `camera_url = "http://c"` + "\n" + `hub_token = "t"`, "hub_url"},
		{"missing token", `camera_url = "http://c"` + "\n" + `hub_url = "ws://h"`, "hub_token"},
		{"bad duration", minimal + `interval_default = "soon"`, "interval_default"},
		{"zero interval", minimal + `interval_motion = "0s"`, "interval_motion"},
		{"inverted reconnect", minimal + `reconnect_min = "2m"`, "reconnect_min"},
		{"crf range", minimal + `crf_full = 60`, "crf"},
		{"negative led", minimal + `led_pin = -1`, "led_pin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(minimal), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HubToken != "abc123" {
		t.Errorf("HubToken: got %q", cfg.HubToken)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestExpandPathHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/timelapse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != filepath.Join(home, "timelapse") {
		t.Errorf("got %q", got)
	}
	if _, err := expandPath("   "); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{HubToken: "secret"}
	if cfg.Redacted().HubToken != "REDACTED" {
		t.Error("token should be redacted")
	}
	if cfg.HubToken != "secret" {
		t.Error("Redacted must not modify the receiver")
	}
}
