// Package linkedin searches LinkedIn posts through an Apify actor.
package linkedin

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/logger"
	"leadscout/internal/ratelimit"
	"leadscout/internal/scrape/types"
	"leadscout/internal/scrape/util"
)

const (
	TokenPrefix  = "apify_api_"
	DefaultActor = "curious_coder/linkedin-post-search-scraper"

	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type Config struct {
	Token              string
	Keywords           []string
	ActorID            string
	MaxPostsPerKeyword int
	// requests per minute
	RateLimit int

	// li_at session cookie for actors that need one
	Cookie string
	// proxy URL; empty means the Apify proxy
	Proxy string

	Types           ContentTypes
	ScrapeComments  bool
	ScrapeReactions bool
	MinReactions    int

	// stop issuing keyword runs once this many leads are collected; 0 = no cap
	MaxTotalLeads int

	// spacing of Apify calls; zero fields take the adaptive defaults
	Backoff ratelimit.AdaptiveConfig
}

type Scraper struct {
	cfg      Config
	client   Client
	limiter  *ratelimit.TokenBucket
	adaptive *ratelimit.Adaptive
	log      *zap.Logger
}

// New checks the token format and then the token itself against the API.
func New(ctx context.Context, cfg Config, client Client, log *zap.Logger) (*Scraper, error) {
	cfg.Token = strings.TrimSpace(cfg.Token)
	if cfg.Token == "" {
		return nil, errors.Mark(errors.New("linkedin: apify token not configured"), errors.ErrConfiguration)
	}
	if !strings.HasPrefix(cfg.Token, TokenPrefix) {
		return nil, errors.Mark(
			errors.WithHintf(errors.New("linkedin: apify token has the wrong format"), "tokens start with %q", TokenPrefix),
			errors.ErrConfiguration)
	}
	if len(cfg.Keywords) == 0 {
		return nil, errors.Mark(errors.New("linkedin: no keywords configured"), errors.ErrConfiguration)
	}
	if cfg.ActorID == "" {
		cfg.ActorID = DefaultActor
	}
	if cfg.MaxPostsPerKeyword <= 0 {
		cfg.MaxPostsPerKeyword = 20
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.Types == (ContentTypes{}) {
		cfg.Types = AllContentTypes()
	}
	if client == nil {
		client = NewHTTPClient(cfg.Token, "")
	}

	log = logger.OrNop(log).Named("linkedin")
	user, err := client.Me(ctx)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "linkedin: apify token check"), errors.ErrConfiguration)
	}
	log.Info("apify token valid", zap.String("user", user), zap.String("actor", cfg.ActorID))

	return &Scraper{
		cfg:      cfg,
		client:   client,
		limiter:  ratelimit.NewPerMinute(cfg.RateLimit),
		adaptive: ratelimit.NewAdaptive(cfg.Backoff),
		log:      log,
	}, nil
}

func (s *Scraper) Name() string               { return string(domain.SourceLinkedIn) }
func (s *Scraper) Keywords() []string         { return s.cfg.Keywords }
func (s *Scraper) TrustsUpstream() bool       { return false }
func (s *Scraper) Limiter() ratelimit.Limiter { return s.limiter }

func (s *Scraper) Scrape(ctx context.Context) (types.ScrapeResult, error) {
	res := types.ScrapeResult{Source: s.Name()}

	failed := 0
	for i, kw := range s.cfg.Keywords {
		if s.cfg.MaxTotalLeads > 0 && len(res.Leads) >= s.cfg.MaxTotalLeads {
			res.SkippedTerms = len(s.cfg.Keywords) - i
			s.log.Info("lead cap reached", zap.Int("count", len(res.Leads)), zap.Int("skipped_terms", res.SkippedTerms))
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return res, err
		}

		n, err := s.scrapeKeyword(ctx, kw, &res)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			failed++
			s.log.Warn("keyword failed", zap.String("keyword", kw), zap.Error(err))
			continue
		}
		s.log.Info("keyword done", zap.String("keyword", kw), zap.Int("count", n))
	}
	if failed > 0 && failed == len(s.cfg.Keywords) {
		return res, errors.Mark(errors.Newf("linkedin: all %d keyword runs failed", failed), errors.ErrSource)
	}

	s.log.Info("scraped", zap.Int("count", len(res.Leads)), zap.Stringer("skipped", res.Skipped))
	return res, nil
}

func (s *Scraper) scrapeKeyword(ctx context.Context, kw string, res *types.ScrapeResult) (int, error) {
	var run Run
	err := s.call(ctx, func() error {
		var err error
		run, err = s.client.RunActor(ctx, s.cfg.ActorID, s.actorInput(kw))
		return err
	})
	if err != nil {
		return 0, err
	}

	var items []RawItem
	err = s.call(ctx, func() error {
		var err error
		items, err = s.client.DatasetItems(ctx, run.DefaultDatasetID)
		return err
	})
	if err != nil {
		return 0, err
	}

	added := 0
	for _, it := range items {
		lead, reason := toLead(it, kw, s.cfg.ActorID, s.cfg.Types, s.cfg.MinReactions)
		if reason != types.SkipNone {
			res.Skipped.Add(reason)
			continue
		}
		res.Leads = append(res.Leads, lead)
		added++
	}
	return added, nil
}

// call spaces Apify requests and feeds the outcome back into the delay.
func (s *Scraper) call(ctx context.Context, fn func() error) error {
	if err := s.adaptive.Acquire(ctx); err != nil {
		return err
	}
	err := fn()
	switch {
	case err == nil:
		s.adaptive.ReportSuccess()
	case util.StatusOf(err) == 429:
		s.adaptive.ReportRateLimit()
		s.log.Warn("apify rate limited", zap.Duration("delay", s.adaptive.CurrentDelay()))
	default:
		s.adaptive.ReportError()
	}
	return err
}

func searchURL(kw string) string {
	return "https://www.linkedin.com/search/results/content/?keywords=" + strings.ReplaceAll(url.QueryEscape(kw), "+", "%20")
}

func (s *Scraper) actorInput(kw string) map[string]any {
	switch {
	case strings.Contains(s.cfg.ActorID, "supreme_coder/linkedin-post"):
		return map[string]any{
			"urls":  []string{searchURL(kw)},
			"limit": s.cfg.MaxPostsPerKeyword,
		}
	case strings.Contains(s.cfg.ActorID, "curious_coder"):
		in := map[string]any{
			"urls":      []string{searchURL(kw)},
			"maxPosts":  s.cfg.MaxPostsPerKeyword,
			"userAgent": browserUA,
		}
		if s.cfg.Cookie != "" {
			in["cookie"] = []map[string]string{{
				"name":   "li_at",
				"value":  s.cfg.Cookie,
				"domain": ".linkedin.com",
			}}
		} else {
			s.log.Warn("no linkedin cookie; actor may fail", zap.String("actor", s.cfg.ActorID))
		}
		if s.cfg.Proxy != "" {
			in["proxy"] = s.cfg.Proxy
		} else {
			in["proxy"] = map[string]any{"useApifyProxy": true}
		}
		return in
	default:
		return map[string]any{
			"searches":        []string{kw},
			"maxPosts":        s.cfg.MaxPostsPerKeyword,
			"scrapeComments":  s.cfg.ScrapeComments,
			"scrapeReactions": s.cfg.ScrapeReactions,
		}
	}
}
