package main

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/motion-timelapse/internal/gpio"
	"github.com/sweeney/motion-timelapse/internal/hub"
	"github.com/sweeney/motion-timelapse/internal/logic"
	"github.com/sweeney/motion-timelapse/internal/mqtt"
	"github.com/sweeney/motion-timelapse/internal/scheduler"
	"github.com/sweeney/motion-timelapse/internal/status"
)

// hubObserver fans hub notifications out to the status tracker, the MQTT
// publisher and the indicator LED. Publish and LED failures are logged only.
type hubObserver struct {
	entity    string
	tracker   *status.Tracker
	publisher mqtt.Publisher
	led       gpio.LED // nil when disabled
	now       func() time.Time
}

// Ensure hubObserver implements hub.Observer at compile time.
var _ hub.Observer = (*hubObserver)(nil)

func (o *hubObserver) Connected() {
	o.tracker.SetHubConnected()
	o.publishSystem(mqtt.EventHubConnected, "")
}

func (o *hubObserver) Disconnected(err error, retryIn time.Duration) {
	o.tracker.SetHubDisconnected(retryIn)
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	o.publishSystem(mqtt.EventHubDisconnected, reason)
}

func (o *hubObserver) MotionChanged(active bool, at time.Time) {
	o.tracker.SetMotion(active, at)
	if o.led != nil {
		if err := o.led.Set(active); err != nil {
			log.Printf("led error: %v", err)
		}
	}
	if err := o.publisher.PublishMotion(logic.NewMotionEvent(active, o.entity, at)); err != nil {
		log.Printf("publish error: %v", err)
	}
}

func (o *hubObserver) publishSystem(event, reason string) {
	err := o.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp: o.now(),
		Event:     event,
		Reason:    reason,
	})
	if err != nil {
		log.Printf("publish error: %v", err)
	}
}

// reportingFinisher publishes DAY_COMPLETE after the end-of-day steps.
type reportingFinisher struct {
	inner     scheduler.Finisher
	tracker   *status.Tracker
	publisher mqtt.Publisher
	now       func() time.Time
}

func (f *reportingFinisher) FinishDay(ctx context.Context, day time.Time) error {
	err := f.inner.FinishDay(ctx, day)

	reason := logic.DayStamp(day)
	if err != nil {
		reason += ": " + err.Error()
	}
	event := mqtt.SystemEvent{Timestamp: f.now(), Event: mqtt.EventDayComplete, Reason: reason}
	if f.tracker != nil {
		event.RawPayload = status.FormatStatusEvent(f.tracker.Snapshot(), mqtt.EventDayComplete, reason)
	}
	if perr := f.publisher.PublishSystem(event); perr != nil {
		log.Printf("publish error: %v", perr)
	}
	return err
}
