package ratelimit

import (
	"context"
	"sync"
	"time"
)

const errorFactor = 1.5

type AdaptiveConfig struct {
	InitialDelay  time.Duration
	MinDelay      time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64 // > 1, applied on an explicit rate-limit signal
	SuccessFactor float64 // < 1, applied on success
}

func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		InitialDelay:  time.Second,
		MinDelay:      100 * time.Millisecond,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		SuccessFactor: 0.9,
	}
}

// Adaptive spaces calls by a delay that grows on rate-limit and error
// feedback and shrinks on success, always within [MinDelay, MaxDelay].
type Adaptive struct {
	cfg AdaptiveConfig

	mu      sync.Mutex
	current time.Duration
	last    time.Time

	// one caller waits at a time
	turn chan struct{}
}

func NewAdaptive(cfg AdaptiveConfig) *Adaptive {
	def := DefaultAdaptiveConfig()
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = def.MinDelay
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.BackoffFactor <= 1 {
		cfg.BackoffFactor = def.BackoffFactor
	}
	if cfg.SuccessFactor <= 0 || cfg.SuccessFactor >= 1 {
		cfg.SuccessFactor = def.SuccessFactor
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}

	a := &Adaptive{cfg: cfg, turn: make(chan struct{}, 1)}
	a.current = a.clamp(cfg.InitialDelay)
	return a
}

// Acquire sleeps until at least the current delay has passed since the
// previous Acquire returned.
func (a *Adaptive) Acquire(ctx context.Context) error {
	select {
	case a.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-a.turn }()

	a.mu.Lock()
	wait := time.Duration(0)
	if !a.last.IsZero() {
		wait = a.current - time.Since(a.last)
	}
	a.mu.Unlock()

	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	a.mu.Lock()
	a.last = time.Now()
	a.mu.Unlock()
	return nil
}

func (a *Adaptive) Wait(ctx context.Context) error { return a.Acquire(ctx) }

func (a *Adaptive) ReportSuccess()   { a.scale(a.cfg.SuccessFactor) }
func (a *Adaptive) ReportRateLimit() { a.scale(a.cfg.BackoffFactor) }
func (a *Adaptive) ReportError()     { a.scale(errorFactor) }

func (a *Adaptive) CurrentDelay() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *Adaptive) scale(f float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = a.clamp(time.Duration(float64(a.current) * f))
}

func (a *Adaptive) clamp(d time.Duration) time.Duration {
	if d < a.cfg.MinDelay {
		return a.cfg.MinDelay
	}
	if d > a.cfg.MaxDelay {
		return a.cfg.MaxDelay
	}
	return d
}
