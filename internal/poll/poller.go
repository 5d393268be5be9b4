package poll

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"leadscout/internal/logger"
	"leadscout/internal/scheduler"
)

// Status describes the most recent watch-mode cycle.
type Status struct {
	Running   bool
	Runs      int
	LastRunAt time.Time
	LastOkAt  time.Time
	LastAdded int
	LastError string
}

// Cycle is one full scrape-persist-qualify pass. It reports how many new
// leads it stored.
type Cycle func(ctx context.Context) (added int, err error)

// Poller repeats a Cycle on an interval for watch mode.
type Poller struct {
	cycle    Cycle
	interval func() time.Duration
	status   atomic.Value
	log      *zap.Logger
}

func NewPoller(cycle Cycle, interval func() time.Duration, log *zap.Logger) *Poller {
	p := &Poller{cycle: cycle, interval: interval, log: logger.OrNop(log)}
	p.status.Store(Status{})
	return p
}

func (p *Poller) Status() Status { return p.status.Load().(Status) }

// RunOnce executes one cycle and records the outcome in Status.
func (p *Poller) RunOnce(ctx context.Context) error {
	st := p.Status()
	st.Running = true
	st.LastRunAt = time.Now()
	p.status.Store(st)

	added, err := p.cycle(ctx)

	st = p.Status()
	st.Running = false
	st.Runs++
	st.LastAdded = added
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = time.Now()
		p.log.Info("cycle ok", zap.Int("added", added), zap.Int("runs", st.Runs))
	}
	p.status.Store(st)
	return err
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	scheduler.Every(ctx, p.log, "watch", p.interval, p.RunOnce)
}
