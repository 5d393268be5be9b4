package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketPerMinuteBurstThenWait(t *testing.T) {
	b := NewPerMinute(60)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, b.Acquire(ctx, 60))
	assert.Less(t, time.Since(start), 200*time.Millisecond, "full bucket should not block")

	start = time.Now()
	require.NoError(t, b.Acquire(ctx, 1))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 800*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestTokenBucketPerSecondSizing(t *testing.T) {
	b := NewPerSecond(2)
	assert.Equal(t, 20, b.MaxTokens())
	assert.InDelta(t, 2.0, b.RefillRate(), 1e-9)
	assert.InDelta(t, 20.0, b.Tokens(), 0.5)
}

func TestTokenBucketRejectsOversizedAcquire(t *testing.T) {
	b := NewPerMinute(5)
	err := b.Acquire(context.Background(), 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds bucket size")
}

func TestTokenBucketHonorsContext(t *testing.T) {
	b := NewPerMinute(1)
	require.NoError(t, b.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, b.Wait(ctx))
}

func TestAdaptiveBacksOffToMax(t *testing.T) {
	a := NewAdaptive(DefaultAdaptiveConfig())
	require.Equal(t, time.Second, a.CurrentDelay())

	prev := a.CurrentDelay()
	for i := 0; i < 10; i++ {
		a.ReportRateLimit()
		cur := a.CurrentDelay()
		if prev < 60*time.Second {
			assert.Greater(t, cur, prev)
		}
		assert.LessOrEqual(t, cur, 60*time.Second)
		prev = cur
	}
	assert.Equal(t, 60*time.Second, a.CurrentDelay())
}

func TestAdaptiveRecoversToMin(t *testing.T) {
	a := NewAdaptive(DefaultAdaptiveConfig())

	prev := a.CurrentDelay()
	for i := 0; i < 100; i++ {
		a.ReportSuccess()
		cur := a.CurrentDelay()
		if prev > 100*time.Millisecond {
			assert.Less(t, cur, prev)
		}
		assert.GreaterOrEqual(t, cur, 100*time.Millisecond)
		prev = cur
	}
	assert.Equal(t, 100*time.Millisecond, a.CurrentDelay())
}

func TestAdaptiveErrorIsMilderThanRateLimit(t *testing.T) {
	errored := NewAdaptive(DefaultAdaptiveConfig())
	errored.ReportError()

	limited := NewAdaptive(DefaultAdaptiveConfig())
	limited.ReportRateLimit()

	assert.Equal(t, 1500*time.Millisecond, errored.CurrentDelay())
	assert.Equal(t, 2*time.Second, limited.CurrentDelay())
}

func TestAdaptiveAcquireSpacesCalls(t *testing.T) {
	a := NewAdaptive(AdaptiveConfig{
		InitialDelay: 60 * time.Millisecond,
		MinDelay:     10 * time.Millisecond,
		MaxDelay:     time.Second,
	})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, a.Acquire(ctx))
	assert.Less(t, time.Since(start), 30*time.Millisecond, "first call goes straight through")

	require.NoError(t, a.Acquire(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestAdaptiveAcquireCanceled(t *testing.T) {
	a := NewAdaptive(AdaptiveConfig{InitialDelay: 10 * time.Second, MaxDelay: time.Minute})
	require.NoError(t, a.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.Acquire(ctx), context.Canceled)
}

var (
	_ Limiter = (*TokenBucket)(nil)
	_ Limiter = (*Adaptive)(nil)
)
