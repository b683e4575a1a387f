// Package eutils provides a rate-limited client for the NCBI E-utilities API.
package eutils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter wraps a token bucket rate limiter for controlling request
// spacing to the E-utilities servers. It is safe for concurrent use because
// the underlying rate.Limiter is goroutine-safe for all operations.
//
// NCBI asks bulk jobs to stay around one request every three seconds, so the
// limiter is expressed as a minimum interval between requests with a burst
// of one.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a rate limiter that allows one request per interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until a request is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow returns true if a request is allowed without waiting.
// It consumes one token if allowed, and returns false otherwise.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// SetInterval updates the minimum spacing between requests. With an NCBI
// API key the servers accept a considerably higher request rate.
func (r *RateLimiter) SetInterval(interval time.Duration) {
	r.limiter.SetLimit(rate.Every(interval))
}

// Tokens returns the current number of available tokens, for monitoring.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
