package service

import (
	"math"
	"time"
)

// RetryConfig controls the backoff applied to durable writes. Once a budget
// reservation succeeds the matching play record must land, so the writer
// retries the insert rather than dropping it.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the production retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2.0,
	}
}

// Backoff returns the exponential wait before the given attempt.
func (r RetryConfig) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	backoff := float64(r.InitialWait) * math.Pow(r.Multiplier, float64(attempt-1))
	if backoff > float64(r.MaxWait) {
		backoff = float64(r.MaxWait)
	}
	return time.Duration(backoff)
}

// ShouldRetry reports whether another attempt is allowed.
func (r RetryConfig) ShouldRetry(attempt int) bool {
	return attempt < r.MaxRetries
}
