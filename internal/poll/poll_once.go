package poll

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/logger"
	"leadscout/internal/scrape"
	"leadscout/internal/scrape/types"
)

const DefaultSourceTimeout = 2 * time.Minute

// URLSet holds the identity keys of leads already persisted.
type URLSet map[string]struct{}

func NewURLSet(leads []domain.Lead) URLSet {
	s := make(URLSet, len(leads))
	for _, l := range leads {
		s[l.URL] = struct{}{}
	}
	return s
}

func (s URLSet) Has(u string) bool {
	_, ok := s[u]
	return ok
}

type Options struct {
	// per source; 0 means DefaultSourceTimeout
	SourceTimeout time.Duration
	MinEngagement int
	NoFilter      bool
	// 0 means no cap
	MaxTotalLeads int
	Log           *zap.Logger
	// OnSource is called from the source's goroutine when it finishes.
	OnSource func(name string, res types.ScrapeResult, err error)
}

type SourceFailure struct {
	Source string
	Err    error
}

func (f SourceFailure) Error() string { return f.Source + ": " + f.Err.Error() }
func (f SourceFailure) Unwrap() error { return f.Err }

type Result struct {
	Leads    []domain.Lead
	Failures []SourceFailure
	// leads each successful source returned, before the global steps
	PerSource map[string]int
	Skipped   map[string]types.SkipTally
	// keywords left unsearched by sources that hit their own lead cap
	SkippedTerms int
	Filtered     int
	Duplicates   int
	Capped       int
}

type outcome struct {
	res types.ScrapeResult
	err error
}

// PollOnce runs every source concurrently and merges what they return. A
// failing or panicking source is recorded in Result.Failures and never
// cancels its siblings.
func PollOnce(ctx context.Context, sources []types.Source, existing URLSet, opts Options) (Result, error) {
	if len(sources) == 0 {
		return Result{}, errors.Mark(errors.New("no sources configured"), errors.ErrConfiguration)
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	log := logger.OrNop(opts.Log).Named("poll")

	outcomes := make([]outcome, len(sources))

	// errgroup.Group without a context: a failed source must not cancel the rest
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			log.Info("source running", zap.String("source", src.Name()))
			res, err := runSource(ctx, src, opts.SourceTimeout)
			outcomes[i] = outcome{res: res, err: err}
			if opts.OnSource != nil {
				opts.OnSource(src.Name(), res, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := Result{
		PerSource: make(map[string]int, len(sources)),
		Skipped:   make(map[string]types.SkipTally, len(sources)),
	}
	var merged []domain.Lead
	for i, o := range outcomes {
		name := sources[i].Name()
		if o.err != nil {
			out.Failures = append(out.Failures, SourceFailure{Source: name, Err: o.err})
			log.Warn("source failed", zap.String("source", name), zap.Error(o.err))
			continue
		}
		out.PerSource[name] = len(o.res.Leads)
		out.Skipped[name] = o.res.Skipped
		out.SkippedTerms += o.res.SkippedTerms
		merged = append(merged, o.res.Leads...)
		log.Info("source done", zap.String("source", name),
			zap.Int("count", len(o.res.Leads)), zap.Stringer("skipped", o.res.Skipped))
	}

	seen := make(URLSet, len(merged))
	for _, l := range merged {
		if !opts.NoFilter && !l.IsQualifiedBasic(opts.MinEngagement) {
			out.Filtered++
			continue
		}
		if existing.Has(l.URL) || seen.Has(l.URL) {
			out.Duplicates++
			continue
		}
		seen[l.URL] = struct{}{}
		out.Leads = append(out.Leads, l)
	}

	if opts.MaxTotalLeads > 0 && len(out.Leads) > opts.MaxTotalLeads {
		out.Capped = len(out.Leads) - opts.MaxTotalLeads
		out.Leads = out.Leads[:opts.MaxTotalLeads]
	}

	log.Info("poll done",
		zap.Int("count", len(out.Leads)),
		zap.Int("failures", len(out.Failures)),
		zap.Int("filtered", out.Filtered),
		zap.Int("duplicates", out.Duplicates),
		zap.Int("capped", out.Capped))
	return out, nil
}

func runSource(ctx context.Context, src types.Source, timeout time.Duration) (res types.ScrapeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = types.ScrapeResult{Source: src.Name()}
			err = errors.Mark(errors.Newf("%s: panic: %v", src.Name(), r), errors.ErrSource)
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err = scrape.WithRateLimit(sctx, src)
	if err != nil {
		if sctx.Err() != nil && ctx.Err() == nil {
			err = errors.Wrapf(err, "timed out after %s", timeout)
		}
		return res, errors.Mark(errors.Wrapf(err, "source %s", src.Name()), errors.ErrSource)
	}
	return res, nil
}
