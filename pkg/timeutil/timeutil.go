package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// DurationPtr is a helper function to create a pointer to a time.Duration
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// ExponentialBackoffDelay computes the delay before the next retry attempt.
// backoffCount is 1-based: the first backoff yields the initial duration,
// each subsequent one multiplies it, capped at the configured maximum.
// A uniform random jitter in [0, jitter) is added on top of the capped delay.
func ExponentialBackoffDelay(
	backoffCount int,
	jitter time.Duration,
	rng rand.Rand,
	backoffParam BackoffParam,
) time.Duration {
	if backoffCount < 1 {
		backoffCount = 1
	}

	base := float64(backoffParam.InitialDuration()) *
		math.Pow(backoffParam.Multiplier(), float64(backoffCount-1))

	delay := time.Duration(base)
	if max := backoffParam.MaxDuration(); max > 0 && delay > max {
		delay = max
	}

	if jitter > 0 {
		delay += time.Duration(rng.Int63n(int64(jitter)))
	}

	return delay
}
