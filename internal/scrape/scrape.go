package scrape

import (
	"context"

	"leadscout/internal/errors"
	"leadscout/internal/scrape/types"
)

// WithRateLimit spends one limiter tick, runs the source, then drops leads
// that match none of its keywords. Sources whose platform already searched
// by keyword are returned untouched.
func WithRateLimit(ctx context.Context, src types.Source) (types.ScrapeResult, error) {
	if lim := src.Limiter(); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return types.ScrapeResult{Source: src.Name()}, errors.Wrapf(err, "%s: rate limit wait", src.Name())
		}
	}

	res, err := src.Scrape(ctx)
	if res.Source == "" {
		res.Source = src.Name()
	}
	if err != nil {
		return res, err
	}
	if src.TrustsUpstream() {
		return res, nil
	}

	kept, dropped := FilterKeywords(res.Leads, src.Keywords())
	res.Leads = kept
	for i := 0; i < dropped; i++ {
		res.Skipped.Add(types.SkipNoKeyword)
	}
	return res, nil
}
