package render

import (
	"context"
	"sync"
	"time"
)

// CallLog records step names in call order across fakes.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// Add appends a call.
func (l *CallLog) Add(call string) {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// FakeRenderer records Render calls.
type FakeRenderer struct {
	name string
	log  *CallLog

	mu   sync.Mutex
	Days []time.Time

	// Err, if set, is returned by Render.
	Err error
}

// NewFakeRenderer creates a FakeRenderer that logs "render:<name>" to log.
func NewFakeRenderer(name string, log *CallLog) *FakeRenderer {
	return &FakeRenderer{name: name, log: log}
}

// Name returns the renderer name.
func (f *FakeRenderer) Name() string { return f.name }

// Render records day.
func (f *FakeRenderer) Render(ctx context.Context, day time.Time) error {
	f.mu.Lock()
	f.Days = append(f.Days, day)
	f.mu.Unlock()
	if f.log != nil {
		f.log.Add("render:" + f.name)
	}
	return f.Err
}

// FakeCleaner records Cleanup calls.
type FakeCleaner struct {
	log *CallLog

	// Removed is returned by Cleanup.
	Removed int

	// Err, if set, is returned by Cleanup.
	Err error
}

// NewFakeCleaner creates a FakeCleaner that logs "cleanup" to log.
func NewFakeCleaner(log *CallLog) *FakeCleaner {
	return &FakeCleaner{log: log}
}

// Cleanup records the call.
func (f *FakeCleaner) Cleanup() (int, error) {
	if f.log != nil {
		f.log.Add("cleanup")
	}
	return f.Removed, f.Err
}
