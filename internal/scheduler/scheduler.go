package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"leadscout/internal/logger"
)

type Task func(ctx context.Context) error

// Every runs task now and then again interval() after each run finishes,
// until ctx is done. interval is read before every wait so a config reload
// can change it. Runs never overlap.
func Every(ctx context.Context, log *zap.Logger, name string, interval func() time.Duration, task Task) {
	log = logger.OrNop(log).Named(name)

	for {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			log.Error("run failed", zap.Error(err))
		}

		wait := interval()
		if wait <= 0 {
			wait = time.Minute
		}
		log.Debug("next run", zap.Duration("in", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}
