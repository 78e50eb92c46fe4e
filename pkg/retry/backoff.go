package retry

import (
	"math"
	"time"
)

// BackoffStrategy defines the interface for backoff strategies
type BackoffStrategy interface {
	// NextBackoff returns the wait before the attempt after `attempt` (1-based)
	NextBackoff(attempt int) time.Duration
}

// ConstantBackoff waits the same interval between every attempt
type ConstantBackoff struct {
	Interval time.Duration
}

// NextBackoff returns the constant backoff interval
func (b *ConstantBackoff) NextBackoff(int) time.Duration {
	return b.Interval
}

// LinearBackoff grows the wait by Step per attempt, capped at MaxInterval
type LinearBackoff struct {
	InitialInterval time.Duration
	Step            time.Duration
	MaxInterval     time.Duration
}

// NextBackoff calculates the next linear backoff duration
func (b *LinearBackoff) NextBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := b.InitialInterval + b.Step*time.Duration(attempt-1)
	if b.MaxInterval > 0 && backoff > b.MaxInterval {
		return b.MaxInterval
	}
	return backoff
}

// ExponentialBackoff multiplies the wait by Multiplier per attempt, capped at MaxInterval
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// NextBackoff calculates the next exponential backoff duration
func (b *ExponentialBackoff) NextBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := float64(b.InitialInterval) * math.Pow(b.Multiplier, float64(attempt-1))
	if b.MaxInterval > 0 && backoff > float64(b.MaxInterval) {
		return b.MaxInterval
	}
	return time.Duration(backoff)
}
