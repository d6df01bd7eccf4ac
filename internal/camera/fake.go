package camera

import (
	"context"
	"fmt"
	"sync"
)

// FakeCapturer records capture calls for test assertions.
type FakeCapturer struct {
	mu sync.Mutex

	// Calls contains the seq passed to every Capture call.
	Calls []int

	// Fail, if set, decides per call (1-based) whether Capture fails.
	Fail func(call int) bool

	// OnCapture, if set, runs at the start of every call.
	OnCapture func(call, seq int)
}

// NewFakeCapturer creates a FakeCapturer that always succeeds.
func NewFakeCapturer() *FakeCapturer {
	return &FakeCapturer{}
}

// Capture records seq and returns a fake path or an injected error.
func (f *FakeCapturer) Capture(ctx context.Context, seq int) (string, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, seq)
	call := len(f.Calls)
	hook, fail := f.OnCapture, f.Fail
	f.mu.Unlock()

	if hook != nil {
		hook(call, seq)
	}
	if fail != nil && fail(call) {
		return "", fmt.Errorf("fake capture %d failed", call)
	}
	return fmt.Sprintf("fake/img_%d.jpeg", seq), nil
}

// Seqs returns a copy of the recorded sequence numbers.
func (f *FakeCapturer) Seqs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.Calls...)
}
