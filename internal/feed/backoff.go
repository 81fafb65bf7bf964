package feed

import "time"

const (
	DefaultBackoffInitial    = 5 * time.Second
	DefaultBackoffMultiplier = 1.5
	DefaultBackoffMax        = 60 * time.Second
)

// Backoff produces reconnect waits growing geometrically up to a cap. It is
// not reset by a successful connection: a connection that drops after a long
// healthy run waits as long as the last failed attempt did.
type Backoff struct {
	initial    time.Duration
	multiplier float64
	maxWait    time.Duration
	current    time.Duration
}

// NewBackoff falls back to the defaults for zero or invalid arguments.
func NewBackoff(initial time.Duration, multiplier float64, maxWait time.Duration) *Backoff {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if multiplier < 1 {
		multiplier = DefaultBackoffMultiplier
	}
	if maxWait < initial {
		maxWait = max(DefaultBackoffMax, initial)
	}
	return &Backoff{
		initial:    initial,
		multiplier: multiplier,
		maxWait:    maxWait,
	}
}

// Next returns the wait before the next attempt and advances the sequence.
// The n-th call returns min(initial * multiplier^(n-1), max).
func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.initial
	}
	wait := min(b.current, b.maxWait)
	b.current = min(time.Duration(float64(b.current)*b.multiplier), b.maxWait)
	return wait
}
