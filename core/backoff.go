package core

import (
	"math/rand"
	"sync"
	"time"
)

// ExponentialBackoff computes min(base * 2^(attempt-1), max) scaled by a
// jitter factor drawn uniformly from [0.5, 1.5). attempt is the number of
// attempts already made. The RNG is injectable so tests can fix the seed.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewExponentialBackoff(base, max time.Duration, rng *rand.Rand) *ExponentialBackoff {
	if base <= 0 {
		base = 2 * time.Second
	}
	if max <= 0 {
		max = time.Hour
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ExponentialBackoff{Base: base, Max: max, rng: rng}
}

func (p *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Max {
			delay = p.Max
			break
		}
	}
	if delay > p.Max {
		delay = p.Max
	}

	p.mu.Lock()
	factor := 0.5 + p.rng.Float64()
	p.mu.Unlock()

	return time.Duration(float64(delay) * factor)
}

var _ RetryPolicy = (*ExponentialBackoff)(nil)
