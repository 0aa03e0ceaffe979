package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/exp/constraints"
)

type Backoff interface {
	// Delay returns how long to wait before retry number attempt (starting
	// at 0), or false once no further retry is allowed.
	Delay(attempt uint) (time.Duration, bool)
}

type noRetry struct{}

func NoRetry() Backoff {
	return noRetry{}
}

func (noRetry) Delay(uint) (time.Duration, bool) {
	return 0, false
}

// Exponential doubles the delay from Base up to Max, applying Jitter to the
// capped value. Jitter defaults to a uniform pick in [0, d).
type Exponential struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries uint
	Jitter     func(d int64) int64
}

func (e *Exponential) Delay(attempt uint) (time.Duration, bool) {
	if attempt >= e.MaxRetries {
		return 0, false
	}

	delay := int64(e.Max)
	if attempt < 63 && e.Base > 0 && int64(e.Base) <= math.MaxInt64>>attempt {
		delay = clamp(int64(e.Base)<<attempt, 0, int64(e.Max))
	}
	return time.Duration(e.jitter(delay)), true
}

func (e *Exponential) jitter(d int64) int64 {
	if e.Jitter != nil {
		return e.Jitter(d)
	}
	if d <= 0 {
		return 0
	}
	return rand.Int64N(d)
}

func clamp[T constraints.Ordered](v T, lo T, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
