// Command motion-timelapse captures camera snapshots all day, switching to a
// fast cadence while the home-automation hub reports motion, and renders
// each day's frames into timelapse videos.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/motion-timelapse/internal/camera"
	"github.com/sweeney/motion-timelapse/internal/config"
	"github.com/sweeney/motion-timelapse/internal/gpio"
	"github.com/sweeney/motion-timelapse/internal/hub"
	"github.com/sweeney/motion-timelapse/internal/motion"
	"github.com/sweeney/motion-timelapse/internal/mqtt"
	"github.com/sweeney/motion-timelapse/internal/render"
	"github.com/sweeney/motion-timelapse/internal/scheduler"
	"github.com/sweeney/motion-timelapse/internal/status"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the TOML config file")
	snapshot := flag.String("snapshot", "", "Capture one frame to this path and exit")
	printConfig := flag.Bool("print-config", false, "Print the resolved config and exit")

	flag.Parse()

	if err := run(*configPath, *snapshot, *printConfig); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath, snapshot string, printConfig bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if printConfig {
		fmt.Printf("%+v\n", cfg.Redacted())
		return nil
	}

	// Snapshot mode: check the camera without touching the frame directory
	if snapshot != "" {
		capturer := camera.NewHTTPCapturer(cfg.CameraURL, "")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := capturer.CaptureTo(ctx, snapshot); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		fmt.Printf("captured %s from %s\n", snapshot, capturer.URL())
		return nil
	}

	frameDir, removeFrameDir, err := prepareFrameDir(cfg.FrameDir)
	if err != nil {
		return err
	}
	defer removeFrameDir()

	runID := uuid.NewString()
	tracker := status.NewTracker(runID, time.Now(), status.Config{
		CameraURL:   cfg.CameraURL,
		HubURL:      cfg.HubURL,
		Entity:      cfg.Entity,
		DefaultMs:   cfg.DefaultInterval.Milliseconds(),
		MotionMs:    cfg.MotionInterval.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTTBroker,
		FrameDir:    frameDir,
	})

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.Discard{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.Discard{}
	if cfg.MQTTBroker != "" {
		rp := mqtt.NewRealPublisher(cfg.MQTTBroker, "motion-timelapse-"+runID[:8], mqtt.NewTopics(cfg.MQTTTopic))
		publisher, mqttStatus = rp, rp
	}
	defer publisher.Close()

	// Initialize indicator LED
	var led gpio.LED
	if cfg.LED {
		rl, err := gpio.NewRealLED(cfg.LEDPin)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		led = rl
		defer led.Close()
	}

	state := motion.New()
	observer := &hubObserver{
		entity:    cfg.Entity,
		tracker:   tracker,
		publisher: publisher,
		led:       led,
		now:       time.Now,
	}
	client := hub.NewClient(hub.Config{
		URL:      cfg.HubURL,
		Token:    cfg.HubToken,
		Entity:   cfg.Entity,
		MinDelay: cfg.ReconnectMin,
		MaxDelay: cfg.ReconnectMax,
	}, hub.NewWebsocketDialer(), state, observer)

	finisher := render.NewFinisher(
		render.FrameCleaner{Dir: frameDir},
		render.NewFFmpeg(cfg.FFmpeg, frameDir, cfg.Framerate, render.FullPreset(cfg.OutputFull, cfg.CRFFull)),
		render.NewFFmpeg(cfg.FFmpeg, frameDir, cfg.Framerate, render.DownsampledPreset(cfg.OutputDownsampled, cfg.CRFDownsampled)),
	)
	sched := scheduler.New(scheduler.Config{
		DefaultInterval: cfg.DefaultInterval,
		MotionInterval:  cfg.MotionInterval,
	}, state, camera.NewHTTPCapturer(cfg.CameraURL, frameDir), &reportingFinisher{
		inner:     finisher,
		tracker:   tracker,
		publisher: publisher,
		now:       time.Now,
	}, tracker)

	// Publish startup event with full status snapshot
	startup := mqtt.SystemEvent{
		Timestamp:  time.Now(),
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(tracker.Snapshot(), mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	log.Printf("started: run=%s camera=%s hub=%s entity=%s default=%v motion=%v frames=%s",
		runID, cfg.CameraURL, cfg.HubURL, cfg.Entity, cfg.DefaultInterval, cfg.MotionInterval, frameDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sup := &supervisor{
		client:     client,
		sched:      sched,
		finisher:   finisher,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}
	if cfg.MQTTBroker == "" {
		sup.heartbeat = 0
	}
	return sup.run(sigCh)
}

// prepareFrameDir returns the directory frames are written to and a
// function that removes it on exit. A configured directory is kept.
func prepareFrameDir(dir string) (string, func(), error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("create frame dir: %w", err)
		}
		return dir, func() {}, nil
	}

	tmp, err := os.MkdirTemp("", "motion-timelapse-")
	if err != nil {
		return "", nil, fmt.Errorf("create temp frame dir: %w", err)
	}
	log.Printf("created temp folder at %s", tmp)
	return tmp, func() {
		if err := os.RemoveAll(tmp); err != nil {
			log.Printf("remove temp folder: %v", err)
		}
	}, nil
}
