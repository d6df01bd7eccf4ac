package logic

import "time"

// Default reconnect bounds.
const (
	DefaultMinDelay = 5 * time.Second
	DefaultMaxDelay = 60 * time.Second
)

// Backoff computes the delay between reconnection attempts.
// The delay doubles after every failed attempt, capped at Max, and
// returns to Min after a fully successful handshake.
type Backoff struct {
	Min     time.Duration
	Max     time.Duration
	current time.Duration
}

// NewBackoff creates a Backoff starting at min.
// A max below min is raised to min so the bounds always hold.
func NewBackoff(min, max time.Duration) *Backoff {
	if min <= 0 {
		min = DefaultMinDelay
	}
	if max < min {
		max = min
	}
	return &Backoff{Min: min, Max: max, current: min}
}

// NextDelay returns min(current*2, max).
func NextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max || next < current {
		return max
	}
	return next
}

// Current returns the delay to wait before the next attempt.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// Fail records one failed attempt cycle. It returns the delay to wait now
// and grows the delay used for the following failure.
func (b *Backoff) Fail() time.Duration {
	wait := b.current
	b.current = NextDelay(b.current, b.Max)
	return wait
}

// Reset returns the delay to Min. Called once per successful subscribe.
func (b *Backoff) Reset() {
	b.current = b.Min
}
