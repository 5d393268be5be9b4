// Package reddit collects posts and comments from help-seeking subreddits.
package reddit

import (
	"context"

	"go.uber.org/zap"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/logger"
	"leadscout/internal/ratelimit"
	"leadscout/internal/scrape/types"
)

type Config struct {
	Subreddits []string
	Keywords   []string
	// requests per minute
	RateLimit int

	TargetedSearch bool
	SearchPhrases  []string
}

// DefaultSearchPhrases are high-intent queries for the targeted search.
var DefaultSearchPhrases = []string{
	"need help tokenizing",
	"looking for tokenization service",
	"best RWA platform",
	"real estate tokenization service",
	"need asset tokenization",
	"tokenization provider",
	"how to tokenize assets",
	"tokenization platform recommendation",
}

const (
	highEngagementScore = 50
	searchCommentScore  = 20
	searchLimit         = 20
	searchCommentLimit  = 30
)

type Scraper struct {
	cfg     Config
	client  Client
	limiter *ratelimit.TokenBucket
	log     *zap.Logger
}

func New(cfg Config, client Client, log *zap.Logger) (*Scraper, error) {
	if client == nil {
		return nil, errors.Mark(errors.New("reddit: no client"), errors.ErrConfiguration)
	}
	if len(cfg.Subreddits) == 0 && !cfg.TargetedSearch {
		return nil, errors.Mark(errors.New("reddit: no subreddits configured"), errors.ErrConfiguration)
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 60
	}
	if cfg.TargetedSearch && len(cfg.SearchPhrases) == 0 {
		cfg.SearchPhrases = DefaultSearchPhrases
	}
	return &Scraper{
		cfg:     cfg,
		client:  client,
		limiter: ratelimit.NewPerMinute(cfg.RateLimit),
		log:     logger.OrNop(log).Named("reddit"),
	}, nil
}

func (s *Scraper) Name() string               { return string(domain.SourceReddit) }
func (s *Scraper) Keywords() []string         { return s.cfg.Keywords }
func (s *Scraper) TrustsUpstream() bool       { return true }
func (s *Scraper) Limiter() ratelimit.Limiter { return s.limiter }

func (s *Scraper) Scrape(ctx context.Context) (types.ScrapeResult, error) {
	res := types.ScrapeResult{Source: s.Name()}

	failed := 0
	for _, sub := range s.cfg.Subreddits {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.scrapeSubreddit(ctx, sub, &res); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			failed++
			s.log.Warn("subreddit failed", zap.String("subreddit", sub), zap.Error(err))
			continue
		}
	}

	if s.cfg.TargetedSearch {
		s.search(ctx, &res)
	}

	if failed > 0 && failed == len(s.cfg.Subreddits) && len(res.Leads) == 0 {
		return res, errors.Mark(errors.Newf("reddit: all %d subreddits failed", failed), errors.ErrSource)
	}

	s.log.Info("scraped",
		zap.Int("count", len(res.Leads)),
		zap.Int("subreddits", len(s.cfg.Subreddits)),
		zap.Stringer("skipped", res.Skipped))
	return res, nil
}

func (s *Scraper) scrapeSubreddit(ctx context.Context, sub string, res *types.ScrapeResult) error {
	var posts []RawPost
	seen := map[string]bool{}
	for _, feed := range DefaultFeeds {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		batch, err := s.client.Listing(ctx, sub, feed)
		if err != nil {
			return err
		}
		for _, p := range batch {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			posts = append(posts, p)
		}
	}

	for _, p := range posts {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		lead, reason := postToLead(p, sub)
		s.keep(res, lead, reason)

		limit := 20
		if p.Score >= highEngagementScore {
			limit = 50
		}
		if err := s.collectComments(ctx, p, sub, limit, res, nil); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Debug("comments failed", zap.String("post_id", p.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Scraper) search(ctx context.Context, res *types.ScrapeResult) {
	found := 0
	for _, phrase := range s.cfg.SearchPhrases {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		posts, err := s.client.Search(ctx, phrase, "month", searchLimit)
		if err != nil {
			s.log.Warn("search failed", zap.String("keyword", phrase), zap.Error(err))
			continue
		}

		tag := func(l *domain.Lead) {
			l.Metadata["search_phrase"] = phrase
			l.Metadata["targeted_search"] = "true"
		}
		for _, p := range posts {
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			lead, reason := postToLead(p, p.Subreddit)
			if reason == types.SkipNone {
				tag(&lead)
				found++
			}
			s.keep(res, lead, reason)

			if p.Score < searchCommentScore {
				continue
			}
			before := len(res.Leads)
			if err := s.collectComments(ctx, p, p.Subreddit, searchCommentLimit, res, tag); err != nil {
				s.log.Debug("search comments failed", zap.String("post_id", p.ID), zap.Error(err))
			}
			found += len(res.Leads) - before
		}
	}
	if found > 0 {
		s.log.Info("targeted search", zap.Int("count", found))
	}
}

func (s *Scraper) collectComments(ctx context.Context, p RawPost, sub string, limit int, res *types.ScrapeResult, tag func(*domain.Lead)) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	comments, err := s.client.Comments(ctx, p.ID, limit)
	if err != nil {
		return err
	}
	if len(comments) > limit {
		comments = comments[:limit]
	}
	for _, c := range comments {
		lead, reason := commentToLead(c, p, sub)
		if reason == types.SkipNone && tag != nil {
			tag(&lead)
		}
		s.keep(res, lead, reason)
	}
	return nil
}

func (s *Scraper) keep(res *types.ScrapeResult, lead domain.Lead, reason types.SkipReason) {
	if reason != types.SkipNone {
		res.Skipped.Add(reason)
		return
	}
	res.Leads = append(res.Leads, lead)
}
