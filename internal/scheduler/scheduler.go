// Package scheduler runs the daily capture cycle. It captures a frame,
// then sleeps at the motion cadence while motion is active, or waits up to
// the default interval for a motion wake otherwise. When the day ends it
// hands the frames to the finisher before starting the next day.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sweeney/motion-timelapse/internal/camera"
	"github.com/sweeney/motion-timelapse/internal/logic"
	"github.com/sweeney/motion-timelapse/internal/motion"
	"github.com/sweeney/motion-timelapse/internal/status"
)

// Default capture intervals.
const (
	DefaultInterval = 60 * time.Second
	MotionInterval  = 1 * time.Second
)

// Finisher renders and clears a completed day.
type Finisher interface {
	FinishDay(ctx context.Context, day time.Time) error
}

// Config holds the capture cadences.
type Config struct {
	DefaultInterval time.Duration
	MotionInterval  time.Duration
}

// Scheduler owns the day cycle. It only reads the motion state.
type Scheduler struct {
	cfg      Config
	state    *motion.State
	capturer camera.Capturer
	finisher Finisher
	tracker  *status.Tracker

	mu  sync.Mutex
	day time.Time

	// now and sleep are replaced in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// New creates a Scheduler. tracker may be nil.
func New(cfg Config, state *motion.State, capturer camera.Capturer, finisher Finisher, tracker *status.Tracker) *Scheduler {
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = DefaultInterval
	}
	if cfg.MotionInterval <= 0 {
		cfg.MotionInterval = MotionInterval
	}
	return &Scheduler{
		cfg:      cfg,
		state:    state,
		capturer: capturer,
		finisher: finisher,
		tracker:  tracker,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// CurrentDay returns the date of the day being captured, or the zero time
// before the first day starts.
func (s *Scheduler) CurrentDay() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

// Run captures day after day until ctx is done. It only returns ctx.Err().
// An end-of-day render in progress when ctx is cancelled runs to completion.
func (s *Scheduler) Run(ctx context.Context) error {
	day := logic.NewDay(s.now())
	for {
		s.setDay(day.Date)
		if s.tracker != nil {
			s.tracker.StartDay(day.Date)
		}
		log.Printf("scheduler: starting new day capture: %s", day.Date.Format("2006-01-02"))

		if err := s.runDay(ctx, day); err != nil {
			return err
		}

		log.Printf("scheduler: processing end of day: %s (%d frames, %d failed captures)",
			day.Date.Format("2006-01-02"), day.Frames(), day.Counts.Failed)
		if err := s.finisher.FinishDay(context.WithoutCancel(ctx), day.Date); err != nil {
			log.Printf("scheduler: end of day %s finished with errors", day.Stamp())
		}
		if s.tracker != nil {
			s.tracker.DayRendered()
		}

		now := s.now()
		next := logic.NextDay(day, now)
		if wait := next.Date.Sub(now); wait > 0 {
			// A shutdown flush during the wait belongs to the next date.
			s.setDay(next.Date)
			log.Printf("scheduler: waiting %v for midnight", wait.Round(time.Millisecond))
			if !s.sleep(ctx, wait) {
				return ctx.Err()
			}
		}
		day = next
	}
}

func (s *Scheduler) setDay(date time.Time) {
	s.mu.Lock()
	s.day = date
	s.mu.Unlock()
}

// runDay captures until the day's end. It returns ctx.Err() if cancelled.
func (s *Scheduler) runDay(ctx context.Context, day *logic.Day) error {
	for !day.Done(s.now()) {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.capture(ctx, day)

		if !s.pause(ctx, day) {
			return ctx.Err()
		}
	}
	return nil
}

// capture takes one frame. A failure only costs this tick.
func (s *Scheduler) capture(ctx context.Context, day *logic.Day) {
	var at time.Time
	path, err := s.capturer.Capture(ctx, day.Seq)
	if err != nil {
		day.Counts.Failed++
		log.Printf("capture error: %v", err)
	} else {
		at = s.now()
		day.Captured()
		log.Printf("captured %s at %s", path, at.Format("15:04:05"))
	}
	if s.tracker != nil {
		s.tracker.UpdateDay(day.Counts, at)
	}
}

// pause sleeps until the next capture. It returns false if ctx is done.
func (s *Scheduler) pause(ctx context.Context, day *logic.Day) bool {
	if s.state.Active() {
		return s.sleep(ctx, s.cfg.MotionInterval)
	}

	switch s.state.Wait(ctx, s.cfg.DefaultInterval) {
	case motion.Interrupted:
		day.Counts.Wakes++
		log.Printf("scheduler: motion detected during sleep, switching to %v cadence", s.cfg.MotionInterval)
	case motion.Canceled:
		return false
	}
	// A wake that raced the timeout must not cut the next wait short.
	s.state.Clear()
	return true
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
