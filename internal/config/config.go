// Package config loads the daemon configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/sweeney/motion-timelapse/internal/gpio"
	"github.com/sweeney/motion-timelapse/internal/logic"
	"github.com/sweeney/motion-timelapse/internal/mqtt"
	"github.com/sweeney/motion-timelapse/internal/render"
	"github.com/sweeney/motion-timelapse/internal/scheduler"
)

// TokenEnv overrides hub_token when set.
const TokenEnv = "HASS_TOKEN"

// DefaultPath is used when no -config flag is given.
const DefaultPath = "~/.config/motion-timelapse/config.toml"

const (
	defaultEntity         = "binary_sensor.motion"
	defaultOutputFull     = "~/timelapse"
	defaultOutputSmall    = "~/timelapse/ha"
	defaultCRFFull        = 17
	defaultCRFDownsampled = 26
	defaultHeartbeat      = 15 * time.Minute
)

// Config is the static configuration bundle available at startup.
type Config struct {
	CameraURL string
	HubURL    string
	HubToken  string
	Entity    string

	DefaultInterval time.Duration
	MotionInterval  time.Duration
	ReconnectMin    time.Duration
	ReconnectMax    time.Duration

	FrameDir          string // empty means a fresh temp dir per run
	OutputFull        string
	OutputDownsampled string
	FFmpeg            string
	Framerate         int
	CRFFull           int
	CRFDownsampled    int

	MQTTBroker string // empty disables MQTT
	MQTTTopic  string
	Heartbeat  time.Duration

	LED    bool // drive the indicator LED on LEDPin
	LEDPin int
}

// fileConfig mirrors the TOML keys. Durations are Go duration strings.
type fileConfig struct {
	CameraURL         string `toml:"camera_url"`
	HubURL            string `toml:"hub_url"`
	HubToken          string `toml:"hub_token"`
	MotionEntity      string `toml:"motion_entity"`
	IntervalDefault   string `toml:"interval_default"`
	IntervalMotion    string `toml:"interval_motion"`
	ReconnectMin      string `toml:"reconnect_min"`
	ReconnectMax      string `toml:"reconnect_max"`
	FrameDir          string `toml:"frame_dir"`
	OutputFull        string `toml:"output_full"`
	OutputDownsampled string `toml:"output_downsampled"`
	FFmpeg            string `toml:"ffmpeg"`
	Framerate         int    `toml:"framerate"`
	CRFFull           *int   `toml:"crf_full"`
	CRFDownsampled    *int   `toml:"crf_downsampled"`
	MQTTBroker        string `toml:"mqtt_broker"`
	MQTTTopic         string `toml:"mqtt_topic"`
	Heartbeat         string `toml:"heartbeat"`
	LED               bool   `toml:"led"`
	LEDPin            *int   `toml:"led_pin"`
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	return Config{
		Entity:            defaultEntity,
		DefaultInterval:   scheduler.DefaultInterval,
		MotionInterval:    scheduler.MotionInterval,
		ReconnectMin:      logic.DefaultMinDelay,
		ReconnectMax:      logic.DefaultMaxDelay,
		OutputFull:        mustExpand(defaultOutputFull),
		OutputDownsampled: mustExpand(defaultOutputSmall),
		FFmpeg:            "ffmpeg",
		Framerate:         render.DefaultFramerate,
		CRFFull:           defaultCRFFull,
		CRFDownsampled:    defaultCRFDownsampled,
		MQTTTopic:         mqtt.DefaultTopicPrefix,
		Heartbeat:         defaultHeartbeat,
		LEDPin:            gpio.DefaultPinLED,
	}
}

// Load reads and validates the config at path (DefaultPath when empty).
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config %s not found", resolved)
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads TOML from r on top of Default, applies the token env
// override, and validates the result.
func Parse(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	cfg.CameraURL = strings.TrimSpace(raw.CameraURL)
	cfg.HubURL = strings.TrimSpace(raw.HubURL)
	cfg.HubToken = strings.TrimSpace(raw.HubToken)
	if tok := strings.TrimSpace(os.Getenv(TokenEnv)); tok != "" {
		cfg.HubToken = tok
	}
	setString(&cfg.Entity, raw.MotionEntity)
	setString(&cfg.FFmpeg, raw.FFmpeg)
	setString(&cfg.MQTTTopic, raw.MQTTTopic)
	cfg.MQTTBroker = strings.TrimSpace(raw.MQTTBroker)

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"interval_default", raw.IntervalDefault, &cfg.DefaultInterval},
		{"interval_motion", raw.IntervalMotion, &cfg.MotionInterval},
		{"reconnect_min", raw.ReconnectMin, &cfg.ReconnectMin},
		{"reconnect_max", raw.ReconnectMax, &cfg.ReconnectMax},
		{"heartbeat", raw.Heartbeat, &cfg.Heartbeat},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse config: %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if raw.FrameDir != "" {
		cfg.FrameDir = mustExpand(raw.FrameDir)
	}
	if raw.OutputFull != "" {
		cfg.OutputFull = mustExpand(raw.OutputFull)
	}
	if raw.OutputDownsampled != "" {
		cfg.OutputDownsampled = mustExpand(raw.OutputDownsampled)
	}
	if raw.Framerate != 0 {
		cfg.Framerate = raw.Framerate
	}
	if raw.CRFFull != nil {
		cfg.CRFFull = *raw.CRFFull
	}
	if raw.CRFDownsampled != nil {
		cfg.CRFDownsampled = *raw.CRFDownsampled
	}
	cfg.LED = raw.LED
	if raw.LEDPin != nil {
		cfg.LEDPin = *raw.LEDPin
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.CameraURL == "":
		return errors.New("config: camera_url is required")
	case c.HubURL == "":
		return errors.New("config: hub_url is required")
	case c.HubToken == "":
		return fmt.Errorf("config: hub_token (or $%s) is required", TokenEnv)
	case c.Entity == "":
		return errors.New("config: motion_entity is required")
	case c.DefaultInterval <= 0:
		return errors.New("config: interval_default must be positive")
	case c.MotionInterval <= 0:
		return errors.New("config: interval_motion must be positive")
	case c.ReconnectMin <= 0:
		return errors.New("config: reconnect_min must be positive")
	case c.ReconnectMin > c.ReconnectMax:
		return errors.New("config: reconnect_min must not exceed reconnect_max")
	case c.Framerate <= 0:
		return errors.New("config: framerate must be positive")
	case c.LEDPin < 0:
		return errors.New("config: led_pin must not be negative")
	case c.CRFFull < 0 || c.CRFFull > 51 || c.CRFDownsampled < 0 || c.CRFDownsampled > 51:
		return errors.New("config: crf values must be within 0-51")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.HubToken != "" {
		c.HubToken = "REDACTED"
	}
	return c
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
