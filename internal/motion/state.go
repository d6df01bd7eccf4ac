// Package motion holds the motion state shared between the hub client and
// the capture scheduler.
//
// The flag is written only by the hub client and read only by the
// scheduler. The wake signal is a single-slot auto-reset event: a Signal
// with no waiter is kept until the next Wait, and several Signals before a
// Wait collapse into one wake.
package motion

import (
	"context"
	"sync/atomic"
	"time"
)

// WaitResult reports why Wait returned.
type WaitResult int

const (
	TimedOut WaitResult = iota
	Interrupted
	Canceled
)

func (r WaitResult) String() string {
	switch r {
	case TimedOut:
		return "timed-out"
	case Interrupted:
		return "interrupted"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// State is the motion flag plus its wake signal. The zero value is not
// usable; call New.
type State struct {
	active atomic.Bool
	wake   chan struct{}
}

// New returns an inactive State with no pending wake.
func New() *State {
	return &State{wake: make(chan struct{}, 1)}
}

// Active reports the current motion flag.
func (s *State) Active() bool {
	return s.active.Load()
}

// Set stores the motion flag. It does not signal.
func (s *State) Set(active bool) {
	s.active.Store(active)
}

// Signal triggers the wake. It never blocks.
func (s *State) Signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Clear discards a pending wake, if any.
func (s *State) Clear() {
	select {
	case <-s.wake:
	default:
	}
}

// Wait blocks until the wake fires, the timeout elapses, or ctx is done.
// A wake consumed by Wait is reset.
func (s *State) Wait(ctx context.Context, timeout time.Duration) WaitResult {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.wake:
		return Interrupted
	case <-timer.C:
		return TimedOut
	case <-ctx.Done():
		return Canceled
	}
}
