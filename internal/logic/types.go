// Package logic contains pure calculations for the timelapse daemon.
// This package has NO external dependencies (no network, filesystem, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Cadence identifies which capture interval the scheduler is using.
type Cadence string

const (
	CadenceDefault Cadence = "DEFAULT"
	CadenceMotion  Cadence = "MOTION"
)

// MotionEventType represents a motion transition reported by the hub.
type MotionEventType string

const (
	EventMotionOn  MotionEventType = "MOTION_ON"
	EventMotionOff MotionEventType = "MOTION_OFF"
)

// MotionEvent is a motion transition to be published.
type MotionEvent struct {
	Timestamp time.Time
	Type      MotionEventType
	Entity    string
}

// NewMotionEvent builds the event for a reported motion state.
func NewMotionEvent(active bool, entity string, at time.Time) MotionEvent {
	typ := EventMotionOff
	if active {
		typ = EventMotionOn
	}
	return MotionEvent{Timestamp: at, Type: typ, Entity: entity}
}

// DayCounts tracks capture outcomes within one day cycle.
type DayCounts struct {
	Captured int
	Failed   int
	Wakes    int
}
