package hub

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/motion-timelapse/internal/logic"
	"github.com/sweeney/motion-timelapse/internal/motion"
)

// Phase is the connection state of the Client.
type Phase int32

const (
	Disconnected Phase = iota
	Connecting
	Authenticating
	Subscribing
	Streaming
)

func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Authenticating:
		return "AUTHENTICATING"
	case Subscribing:
		return "SUBSCRIBING"
	case Streaming:
		return "STREAMING"
	}
	return "UNKNOWN"
}

// Observer receives connection lifecycle and motion notifications.
// Calls are made from the Client's goroutine and must not block for long.
type Observer interface {
	// Connected is called once the subscription is in place.
	Connected()

	// Disconnected is called after a failed or lost session, before
	// waiting retryIn.
	Disconnected(err error, retryIn time.Duration)

	// MotionChanged is called when the motion flag changes value.
	MotionChanged(active bool, at time.Time)
}

// Config holds the hub endpoint and the entity to follow.
type Config struct {
	URL      string
	Token    string
	Entity   string
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Client keeps a subscription to the hub alive and writes the motion
// entity's state into a motion.State. It is the only writer of that state.
type Client struct {
	cfg      Config
	dialer   Dialer
	state    *motion.State
	observer Observer
	backoff  *logic.Backoff
	phase    atomic.Int32

	// now and sleep are replaced in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewClient creates a Client. observer may be nil.
func NewClient(cfg Config, dialer Dialer, state *motion.State, observer Observer) *Client {
	return &Client{
		cfg:      cfg,
		dialer:   dialer,
		state:    state,
		observer: observer,
		backoff:  logic.NewBackoff(cfg.MinDelay, cfg.MaxDelay),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Phase returns the current connection phase.
func (c *Client) Phase() Phase {
	return Phase(c.phase.Load())
}

// Run connects, subscribes and streams until ctx is done, reconnecting
// after every failure. It only returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		c.setPhase(Disconnected)
		c.setMotion(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := c.backoff.Fail()
		log.Printf("hub: disconnected: %v; retrying in %v", err, wait)
		if c.observer != nil {
			c.observer.Disconnected(err, wait)
		}
		if !c.sleep(ctx, wait) {
			return ctx.Err()
		}
	}
}

// session runs one connection from dial to failure.
func (c *Client) session(ctx context.Context) error {
	c.setPhase(Connecting)
	log.Printf("hub: connecting to %s", c.cfg.URL)
	conn, err := c.dialer.Dial(ctx, c.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage on shutdown.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.setPhase(Authenticating)
	if err := c.authenticate(conn); err != nil {
		return err
	}

	c.setPhase(Subscribing)
	if err := conn.WriteJSON(NewSubscribe()); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	c.backoff.Reset()
	log.Printf("hub: websocket connected and authenticated")
	if c.observer != nil {
		c.observer.Connected()
	}

	c.setPhase(Streaming)
	return c.stream(conn)
}

// authenticate performs the hub's two-send handshake: send the token,
// read and discard one reply, then send the token again.
func (c *Client) authenticate(conn Conn) error {
	auth := NewAuth(c.cfg.Token)
	if err := conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	reply, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("auth reply: %w", err)
	}
	if m, err := ParseMessage(reply); err == nil {
		log.Printf("hub: auth reply: %s", m.Type)
	}
	if err := conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

func (c *Client) stream(conn Conn) error {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		msg, err := ParseMessage(data)
		if err != nil {
			log.Printf("hub: skipping message: %v", err)
			continue
		}

		active, ok := msg.MotionFor(c.cfg.Entity)
		if !ok {
			continue
		}
		c.setMotion(active)
		if active {
			c.state.Signal()
		}
	}
}

func (c *Client) setMotion(active bool) {
	prev := c.state.Active()
	c.state.Set(active)
	if prev != active {
		log.Printf("hub: motion %s on %s", stateString(active), c.cfg.Entity)
		if c.observer != nil {
			c.observer.MotionChanged(active, c.now())
		}
	}
}

func (c *Client) setPhase(p Phase) {
	c.phase.Store(int32(p))
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
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
