package discovery

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig spaces out resolve attempts for one pool.
type BackoffConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter scales each delay by a random factor in [0.5, 1.5).
	Jitter bool
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Delay is the wait after failed attempt n (1-based) before attempt n+1.
func (c BackoffConfig) Delay(n int, rng *rand.Rand) time.Duration {
	if c.InitialDelay <= 0 {
		return 0
	}
	mult := math.Max(c.Multiplier, 1.0)
	if n < 1 {
		n = 1
	}
	d := float64(c.InitialDelay) * math.Pow(mult, float64(n-1))
	if c.MaxDelay > 0 {
		d = math.Min(d, float64(c.MaxDelay))
	}
	if c.Jitter && rng != nil {
		d *= 0.5 + rng.Float64()
	}
	return time.Duration(d)
}

func (c BackoffConfig) attempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}
