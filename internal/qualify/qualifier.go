// Package qualify decides whether a lead is someone actively asking for one
// of our services. A cheap phrase pre-filter runs first; survivors go to a
// primary LLM and, if that fails, to an optional fallback.
package qualify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/logger"
)

const DefaultMaxConcurrent = 5

type Qualifier struct {
	primary  Classifier
	fallback Classifier
	target   string
	log      *zap.Logger
}

// New returns a Qualifier. fallback may be nil; target may be "".
func New(primary, fallback Classifier, target string, log *zap.Logger) (*Qualifier, error) {
	if primary == nil {
		return nil, errors.Mark(errors.New("qualify: no primary classifier"), errors.ErrConfiguration)
	}
	return &Qualifier{
		primary:  primary,
		fallback: fallback,
		target:   target,
		log:      logger.OrNop(log).Named("qualify"),
	}, nil
}

// Qualify always returns a result; failures are carried in its Error field.
func (q *Qualifier) Qualify(ctx context.Context, lead domain.Lead) domain.Qualification {
	if v, send := Prefilter(lead.Content); !send {
		return v
	}

	prompt := BuildPrompt(lead, q.target)
	res, perr := q.classify(ctx, q.primary, prompt)
	if perr != nil {
		if q.fallback == nil {
			return domain.Failed(fmt.Sprintf("%s error: %v", q.primary.Name(), perr), perr.Error())
		}
		q.log.Warn("primary failed, trying fallback",
			zap.String("provider", q.primary.Name()), zap.String("url", lead.URL), zap.Error(perr))

		var ferr error
		res, ferr = q.classify(ctx, q.fallback, prompt+JSONOnlySuffix)
		if ferr != nil {
			msg := fmt.Sprintf("primary: %v; fallback: %v", perr, ferr)
			return domain.Failed("Both providers failed. "+msg, msg)
		}
	}
	return applyTarget(res, q.target)
}

func (q *Qualifier) classify(ctx context.Context, c Classifier, prompt string) (domain.Qualification, error) {
	text, err := c.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return domain.Qualification{}, errors.Mark(err, errors.ErrClassification)
	}
	res, err := ParseResponse(text)
	if err != nil {
		return domain.Qualification{}, errors.Wrapf(err, "%s response", c.Name())
	}
	res.LLMProvider = c.Name()
	return res, nil
}

// qualifyOne turns a panic into that lead's failure result.
func (q *Qualifier) qualifyOne(ctx context.Context, lead domain.Lead) (res domain.Qualification) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("qualify panic", zap.String("url", lead.URL), zap.Any("panic", r))
			res = domain.Failed(fmt.Sprintf("Processing error: %v", r), fmt.Sprint(r))
		}
	}()
	return q.Qualify(ctx, lead)
}

// QualifyAll classifies up to maxLeads leads (0 = all) with at most
// maxConcurrent in flight. Result i belongs to lead i. Once ctx is done no
// new lead starts, and the rest get a failure result.
func (q *Qualifier) QualifyAll(ctx context.Context, leads []domain.Lead, maxConcurrent, maxLeads int) []domain.Qualification {
	n := len(leads)
	if maxLeads > 0 && maxLeads < n {
		n = maxLeads
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	q.log.Info("qualifying", zap.Int("count", n), zap.Int("max_concurrent", maxConcurrent))

	out := make([]domain.Qualification, n)
	sem := semaphore.NewWeighted(int64(maxConcurrent))
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < n; j++ {
				out[j] = domain.Failed("Not classified: "+err.Error(), err.Error())
			}
			q.log.Warn("qualification interrupted", zap.Int("done", i), zap.Int("count", n), zap.Error(err))
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			out[i] = q.qualifyOne(ctx, leads[i])
		}()
	}
	wg.Wait()

	s := Stats(out)
	q.log.Info("qualified",
		zap.Int("count", s.Total),
		zap.Int("qualified", s.Qualified),
		zap.Int("skipped_llm", s.SkippedLLM),
		zap.Int("llm_called", s.LLMCalled))
	return out
}

type Summary struct {
	Total      int
	Qualified  int
	SkippedLLM int
	LLMCalled  int
}

// Rate is the qualified share of all results, 0 when there are none.
func (s Summary) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Qualified) / float64(s.Total)
}

func Stats(results []domain.Qualification) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.IsQualified {
			s.Qualified++
		}
		if r.SkippedLLM {
			s.SkippedLLM++
		}
	}
	s.LLMCalled = s.Total - s.SkippedLLM
	return s
}

// Attach stores results[i] on leads[i].
func Attach(leads []domain.Lead, results []domain.Qualification) {
	for i := range min(len(leads), len(results)) {
		r := results[i]
		leads[i].Qualification = &r
	}
}
