package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sweeney/motion-timelapse/internal/camera"
	"github.com/sweeney/motion-timelapse/internal/motion"
	"github.com/sweeney/motion-timelapse/internal/render"
	"github.com/sweeney/motion-timelapse/internal/status"
)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var noon = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	sched    *Scheduler
	state    *motion.State
	capturer *camera.FakeCapturer
	calls    *render.CallLog
	full     *render.FakeRenderer
	tracker  *status.Tracker
	cancel   context.CancelFunc
	ctx      context.Context

	mu     sync.Mutex
	sleeps []time.Duration
}

func newHarness(cfg Config) *harness {
	calls := &render.CallLog{}
	full := render.NewFakeRenderer("full", calls)
	finisher := render.NewFinisher(render.NewFakeCleaner(calls), full, render.NewFakeRenderer("downsampled", calls))
	state := motion.New()
	capturer := camera.NewFakeCapturer()
	tracker := status.NewTracker("test", noon, status.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		state:    state,
		capturer: capturer,
		calls:    calls,
		full:     full,
		tracker:  tracker,
		ctx:      ctx,
		cancel:   cancel,
	}
	h.sched = New(cfg, state, capturer, finisher, tracker)
	h.sched.now = fixedClock(noon)
	h.sched.sleep = func(ctx context.Context, d time.Duration) bool {
		h.mu.Lock()
		h.sleeps = append(h.sleeps, d)
		h.mu.Unlock()
		return ctx.Err() == nil
	}
	capturer.OnCapture = func(call, seq int) {
		calls.Add(fmt.Sprintf("capture:%d", seq))
	}
	return h
}

// stopAfter cancels the run when capture call n starts.
func (h *harness) stopAfter(n int) {
	h.capturer.OnCapture = func(call, seq int) {
		h.calls.Add(fmt.Sprintf("capture:%d", seq))
		if call >= n {
			h.cancel()
		}
	}
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- h.sched.Run(h.ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		h.cancel()
		t.Fatal("Run did not return")
	}
}

func TestSequenceIncrementsOnSuccess(t *testing.T) {
	h := newHarness(Config{DefaultInterval: time.Millisecond, MotionInterval: time.Millisecond})
	h.stopAfter(4)

	h.run(t)

	if diff := cmp.Diff([]int{1, 2, 3, 4}, h.capturer.Seqs()); diff != "" {
		t.Errorf("seqs (-want +got):\n%s", diff)
	}
	// The fourth capture completes even though it cancelled the run.
	if got := h.tracker.Snapshot().DayCounts.Captured; got != 4 {
		t.Errorf("tracker captured: got %d, want 4", got)
	}
}

func TestCaptureFailuresDoNotStopLoop(t *testing.T) {
	const failures = 25
	h := newHarness(Config{DefaultInterval: time.Millisecond, MotionInterval: time.Millisecond})
	h.capturer.Fail = func(call int) bool { return call <= failures }
	h.stopAfter(failures + 1)

	h.run(t)

	seqs := h.capturer.Seqs()
	if len(seqs) != failures+1 {
		t.Fatalf("expected %d capture attempts, got %d", failures+1, len(seqs))
	}
	// Failed captures must not advance the frame number.
	for i, s := range seqs {
		if s != 1 {
			t.Fatalf("attempt %d used seq %d, want 1", i, s)
		}
	}
	if got := h.tracker.Snapshot().DayCounts.Failed; got != failures {
		t.Errorf("tracker failures: got %d, want %d", got, failures)
	}
}

func TestMotionActiveUsesMotionCadence(t *testing.T) {
	h := newHarness(Config{DefaultInterval: time.Hour, MotionInterval: 1500 * time.Millisecond})
	h.state.Set(true)
	h.stopAfter(3)

	h.run(t)

	h.mu.Lock()
	defer h.mu.Unlock()
	want := []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond, 1500 * time.Millisecond}
	if diff := cmp.Diff(want, h.sleeps); diff != "" {
		t.Errorf("sleeps (-want +got):\n%s", diff)
	}
}

func TestWakeInterruptsDefaultWait(t *testing.T) {
	h := newHarness(Config{DefaultInterval: 60 * time.Second, MotionInterval: time.Second})

	var mu sync.Mutex
	var times []time.Time
	h.capturer.OnCapture = func(call, seq int) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		if call == 1 {
			go func() {
				time.Sleep(10 * time.Millisecond)
				h.state.Set(true)
				h.state.Signal()
			}()
		}
		if call >= 2 {
			h.cancel()
		}
	}

	h.run(t)

	mu.Lock()
	defer mu.Unlock()
	if len(times) != 2 {
		t.Fatalf("expected 2 captures, got %d", len(times))
	}
	if gap := times[1].Sub(times[0]); gap > time.Second {
		t.Errorf("second capture came %v after the first; wake should cut the 60s wait short", gap)
	}
	if got := h.tracker.Snapshot().DayCounts.Wakes; got != 1 {
		t.Errorf("wakes: got %d, want 1", got)
	}
}

func TestStaleWakeClearedAfterWait(t *testing.T) {
	h := newHarness(Config{DefaultInterval: 30 * time.Millisecond, MotionInterval: time.Millisecond})

	var mu sync.Mutex
	var times []time.Time
	h.capturer.OnCapture = func(call, seq int) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		if call == 1 {
			// Two signals before the wait collapse into one wake.
			h.state.Signal()
			h.state.Signal()
		}
		if call >= 3 {
			h.cancel()
		}
	}

	h.run(t)

	mu.Lock()
	defer mu.Unlock()
	if len(times) != 3 {
		t.Fatalf("expected 3 captures, got %d", len(times))
	}
	if gap := times[2].Sub(times[1]); gap < 25*time.Millisecond {
		t.Errorf("third capture came after %v; the consumed wake fired again", gap)
	}
}

func TestDayRollover(t *testing.T) {
	h := newHarness(Config{DefaultInterval: time.Millisecond, MotionInterval: time.Millisecond})
	// Each clock read advances one second: the loop check and every
	// successful capture read the clock, so three frames fit before 23:59:59.
	h.sched.now = fakeClock(time.Date(2026, 5, 1, 23, 59, 53, 0, time.UTC), time.Second)
	h.stopAfter(5)

	h.run(t)

	want := []string{
		"capture:1", "capture:2", "capture:3",
		"render:full", "render:downsampled", "cleanup",
		"capture:1", "capture:2",
	}
	if diff := cmp.Diff(want, h.calls.Calls()); diff != "" {
		t.Errorf("call order (-want +got):\n%s", diff)
	}
	if len(h.full.Days) != 1 || !h.full.Days[0].Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("rendered days: %v", h.full.Days)
	}
	if got := h.sched.CurrentDay(); !got.Equal(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CurrentDay: got %v", got)
	}
	if got := h.tracker.Snapshot().DaysRendered; got != 1 {
		t.Errorf("DaysRendered: got %d", got)
	}
}

func TestDayEndingBeforeMidnightRendersOnce(t *testing.T) {
	h := newHarness(Config{DefaultInterval: time.Millisecond, MotionInterval: time.Millisecond})
	// Sub-second steps: the render finishes while the clock still reads
	// 23:59:59 on the finished date.
	h.sched.now = fakeClock(time.Date(2026, 5, 1, 23, 59, 58, 0, time.UTC), 200*time.Millisecond)
	h.stopAfter(3)

	h.run(t)

	want := []string{
		"capture:1", "capture:2",
		"render:full", "render:downsampled", "cleanup",
		"capture:1",
	}
	if diff := cmp.Diff(want, h.calls.Calls()); diff != "" {
		t.Errorf("call order (-want +got):\n%s", diff)
	}
	if len(h.full.Days) != 1 {
		t.Fatalf("full render invoked %d times, want 1: %v", len(h.full.Days), h.full.Days)
	}
	if got := h.sched.CurrentDay(); !got.Equal(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CurrentDay: got %v", got)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sleeps) == 0 || h.sleeps[0] != 800*time.Millisecond {
		t.Errorf("expected a wait until midnight first, got sleeps %v", h.sleeps)
	}
}

func TestCancelWhileWaitingForMidnight(t *testing.T) {
	h := newHarness(Config{DefaultInterval: time.Millisecond, MotionInterval: time.Millisecond})
	h.sched.now = fakeClock(time.Date(2026, 5, 1, 23, 59, 58, 0, time.UTC), 200*time.Millisecond)
	h.sched.sleep = func(ctx context.Context, d time.Duration) bool {
		h.cancel()
		return false
	}

	h.run(t)

	want := []string{"capture:1", "capture:2", "render:full", "render:downsampled", "cleanup"}
	if diff := cmp.Diff(want, h.calls.Calls()); diff != "" {
		t.Errorf("call order (-want +got):\n%s", diff)
	}
	// A shutdown flush must not pick the finished day up again.
	if got := h.sched.CurrentDay(); !got.Equal(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CurrentDay: got %v, want 2026-05-02", got)
	}
}

func TestRenderFailureStartsNextDay(t *testing.T) {
	h := newHarness(Config{DefaultInterval: time.Millisecond, MotionInterval: time.Millisecond})
	h.full.Err = errors.New("ffmpeg: exit status 1")
	h.sched.now = fakeClock(time.Date(2026, 5, 1, 23, 59, 57, 0, time.UTC), time.Second)
	h.stopAfter(2)

	h.run(t)

	want := []string{"capture:1", "render:full", "render:downsampled", "cleanup", "capture:1"}
	if diff := cmp.Diff(want, h.calls.Calls()); diff != "" {
		t.Errorf("call order (-want +got):\n%s", diff)
	}
}

func TestCancelDuringDefaultWait(t *testing.T) {
	h := newHarness(Config{DefaultInterval: time.Hour, MotionInterval: time.Second})
	h.capturer.OnCapture = func(call, seq int) {
		go func() {
			time.Sleep(10 * time.Millisecond)
			h.cancel()
		}()
	}

	start := time.Now()
	h.run(t)

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancel took %v", elapsed)
	}
	if len(h.calls.Calls()) != 0 {
		t.Errorf("no finisher calls expected on cancel, got %v", h.calls.Calls())
	}
}

func TestNewDefaults(t *testing.T) {
	s := New(Config{}, motion.New(), camera.NewFakeCapturer(), render.NewFinisher(nil), nil)
	if s.cfg.DefaultInterval != DefaultInterval || s.cfg.MotionInterval != MotionInterval {
		t.Errorf("defaults: got %+v", s.cfg)
	}
	if !s.CurrentDay().IsZero() {
		t.Error("CurrentDay should be zero before Run")
	}
}
