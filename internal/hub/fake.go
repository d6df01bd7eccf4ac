package hub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
)

// ErrScriptExhausted is returned by FakeDialer once every scripted result
// has been used.
var ErrScriptExhausted = errors.New("fake dialer: no more scripted results")

// DialResult is one scripted outcome of FakeDialer.Dial.
type DialResult struct {
	Conn *FakeConn
	Err  error
}

// FakeDialer returns scripted connections or errors for test assertions.
type FakeDialer struct {
	mu      sync.Mutex
	results []DialResult
	index   int

	// URLs records every dialed URL.
	URLs []string
}

// NewFakeDialer creates a FakeDialer with the given results.
func NewFakeDialer(results ...DialResult) *FakeDialer {
	return &FakeDialer{results: results}
}

// Dial returns the next scripted result.
func (f *FakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.URLs = append(f.URLs, url)
	if f.index >= len(f.results) {
		return nil, ErrScriptExhausted
	}
	r := f.results[f.index]
	f.index++
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Conn, nil
}

// Dials returns how many times Dial was called.
func (f *FakeDialer) Dials() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.URLs)
}

type frame struct {
	data []byte
	err  error
}

// FakeConn is an in-memory Conn. Inbound messages are queued with Push and
// consumed by ReadMessage in order.
type FakeConn struct {
	in     chan frame
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written [][]byte

	// FailWriteAt makes the nth write (1-based) fail. Zero never fails.
	FailWriteAt int
}

// NewFakeConn creates a FakeConn with msgs already queued.
func NewFakeConn(msgs ...string) *FakeConn {
	c := &FakeConn{
		in:     make(chan frame, 64),
		closed: make(chan struct{}),
	}
	for _, m := range msgs {
		c.Push(m)
	}
	return c
}

// Push queues an inbound message.
func (c *FakeConn) Push(msg string) {
	c.in <- frame{data: []byte(msg)}
}

// PushErr queues a transport error.
func (c *FakeConn) PushErr(err error) {
	c.in <- frame{err: err}
}

// Hangup queues an end-of-stream.
func (c *FakeConn) Hangup() {
	c.PushErr(io.EOF)
}

// WriteJSON records v as JSON.
func (c *FakeConn) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	if c.FailWriteAt > 0 && len(c.written)+1 == c.FailWriteAt {
		c.written = append(c.written, nil)
		return errors.New("fake conn: write failed")
	}
	c.written = append(c.written, data)
	return nil
}

// ReadMessage returns the next queued frame, or ErrClosed once closed.
func (c *FakeConn) ReadMessage() ([]byte, error) {
	select {
	case f := <-c.in:
		return f.data, f.err
	case <-c.closed:
		return nil, ErrClosed
	}
}

// Close marks the connection closed.
func (c *FakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// IsClosed reports whether Close was called.
func (c *FakeConn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Written returns the JSON of every successful write, in order.
func (c *FakeConn) Written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.written))
	for _, w := range c.written {
		if w != nil {
			out = append(out, string(w))
		}
	}
	return out
}
