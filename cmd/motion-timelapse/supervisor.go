package main

import (
	"context"
	"errors"
	"log"
	"os"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/motion-timelapse/internal/mqtt"
	"github.com/sweeney/motion-timelapse/internal/scheduler"
	"github.com/sweeney/motion-timelapse/internal/status"
)

// loop is a long-running control loop that returns when ctx is done.
type loop interface {
	Run(ctx context.Context) error
}

// dayLoop is a loop that knows which day it is capturing.
type dayLoop interface {
	loop
	CurrentDay() time.Time
}

// supervisor runs the hub client and the scheduler side by side and owns
// process shutdown.
type supervisor struct {
	client     loop
	sched      dayLoop
	finisher   scheduler.Finisher
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time
}

// run blocks until a signal arrives, then stops both loops and flushes the
// current day: both renders and the cleanup run exactly as they would at
// the end of the day, however much of it has been captured.
func (s *supervisor) run(sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.client.Run(gctx) })
	g.Go(func() error { return s.sched.Run(gctx) })
	if s.heartbeat > 0 {
		g.Go(func() error { return s.heartbeatLoop(gctx) })
	}

	reason := "UNKNOWN"
	select {
	case received := <-sig:
		log.Printf("received %v, shutting down", received)
		reason = signalName(received)
	case <-gctx.Done():
		log.Printf("control loop stopped, shutting down")
	}

	cancel()
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	day := s.sched.CurrentDay()
	if day.IsZero() {
		day = s.now()
	}
	log.Printf("script stopped: flushing %s", day.Format("2006-01-02"))
	if ferr := s.finisher.FinishDay(context.Background(), day); ferr != nil {
		log.Printf("shutdown flush finished with errors")
	}

	event := mqtt.SystemEvent{
		Timestamp: s.now(),
		Event:     mqtt.EventShutdown,
		Reason:    reason,
		Retained:  true,
	}
	if s.tracker != nil {
		if s.mqttStatus != nil {
			s.tracker.SetMQTTConnected(s.mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(s.tracker.Snapshot(), mqtt.EventShutdown, reason)
	}
	if perr := s.publisher.PublishSystem(event); perr != nil {
		log.Printf("failed to publish shutdown event: %v", perr)
	} else {
		log.Printf("published shutdown event")
	}

	return err
}

// heartbeatLoop publishes a status snapshot every heartbeat interval.
func (s *supervisor) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.publishHeartbeat()
		}
	}
}

func (s *supervisor) publishHeartbeat() {
	event := mqtt.SystemEvent{Timestamp: s.now(), Event: mqtt.EventHeartbeat}
	if s.tracker != nil {
		if s.mqttStatus != nil {
			s.tracker.SetMQTTConnected(s.mqttStatus.IsConnected())
		}
		snap := s.tracker.Snapshot()
		log.Printf("heartbeat: uptime=%v motion=%v hub=%v frames=%d failed=%d",
			snap.Uptime().Round(time.Second), snap.Motion, snap.HubConnected, snap.DayCounts.Captured, snap.DayCounts.Failed)
		event.RawPayload = status.FormatStatusEvent(snap, mqtt.EventHeartbeat, "")
	}
	if err := s.publisher.PublishSystem(event); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
