package transport

import (
	"math/rand"
	"time"
)

const (
	defaultBackoffBase = 2 * time.Second
	defaultBackoffMax  = 30 * time.Second
	backoffJitter      = 0.2
)

// Backoff produces (delay, attempt) pairs for reconnect scheduling:
// doubling from Base, capped at Max, with ±20% jitter.
type Backoff struct {
	Base    time.Duration
	Max     time.Duration
	attempt int
	rnd     *rand.Rand
}

// NewBackoff returns a backoff with the default 2s→30s schedule.
func NewBackoff() *Backoff {
	return &Backoff{
		Base: defaultBackoffBase,
		Max:  defaultBackoffMax,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the delay before the next attempt and the attempt number
// (1-based).
func (b *Backoff) Next() (time.Duration, int) {
	base := b.Base
	if base <= 0 {
		base = defaultBackoffBase
	}
	max := b.Max
	if max <= 0 {
		max = defaultBackoffMax
	}

	delay := base << b.attempt
	if delay > max || delay <= 0 {
		delay = max
	}
	b.attempt++

	if b.rnd != nil {
		spread := 2*b.rnd.Float64() - 1 // [-1, 1)
		delay += time.Duration(float64(delay) * backoffJitter * spread)
	}
	return delay, b.attempt
}

// Reset restarts the schedule after a successful connection.
func (b *Backoff) Reset() {
	b.attempt = 0
}
