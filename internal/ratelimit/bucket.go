// Package ratelimit decides when a source may issue its next outbound call.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"leadscout/internal/errors"
)

// Limiter is the single-request view both strategies share.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket allows bursts up to MaxTokens and refills continuously at
// RefillRate tokens per second. It starts full.
type TokenBucket struct {
	lim       *rate.Limiter
	maxTokens int
	refill    float64
}

func NewTokenBucket(maxTokens int, refillPerSecond float64) *TokenBucket {
	if maxTokens < 1 {
		maxTokens = 1
	}
	if refillPerSecond <= 0 {
		refillPerSecond = 1
	}
	return &TokenBucket{
		lim:       rate.NewLimiter(rate.Limit(refillPerSecond), maxTokens),
		maxTokens: maxTokens,
		refill:    refillPerSecond,
	}
}

// NewPerMinute sizes the bucket to one minute of traffic.
func NewPerMinute(requestsPerMinute int) *TokenBucket {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	return NewTokenBucket(requestsPerMinute, float64(requestsPerMinute)/60.0)
}

// NewPerSecond allows bursts of ten seconds' worth of requests.
func NewPerSecond(requestsPerSecond int) *TokenBucket {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	return NewTokenBucket(requestsPerSecond*10, float64(requestsPerSecond))
}

// Acquire blocks until n tokens are available and takes them.
func (b *TokenBucket) Acquire(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if n > b.maxTokens {
		return errors.Newf("ratelimit: acquire %d exceeds bucket size %d", n, b.maxTokens)
	}
	return b.lim.WaitN(ctx, n)
}

func (b *TokenBucket) Wait(ctx context.Context) error { return b.Acquire(ctx, 1) }

func (b *TokenBucket) Tokens() float64     { return b.lim.Tokens() }
func (b *TokenBucket) MaxTokens() int      { return b.maxTokens }
func (b *TokenBucket) RefillRate() float64 { return b.refill }
