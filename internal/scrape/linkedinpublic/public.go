// Package linkedinpublic searches LinkedIn's public content search without
// an account. It is deliberately slow: a small daily budget, a few keywords
// per run and long random pauses between them.
package linkedinpublic

import (
	"bytes"
	"context"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/logger"
	"leadscout/internal/ratelimit"
	"leadscout/internal/scrape/types"
	"leadscout/internal/scrape/util"
)

const (
	DefaultDailyLimit = 20
	maxKeywordsPerRun = 5
)

var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

var blockMarkers = [][]byte{[]byte("captcha"), []byte("security check"), []byte("unusual activity")}

type Config struct {
	Keywords []string
	// requests per minute
	RateLimit  int
	DailyLimit int
	// pause between keywords is drawn from [MinDelay, MaxDelay]
	MinDelay   time.Duration
	MaxDelay   time.Duration
	UserAgents []string
	// defaults to https://www.linkedin.com
	BaseURL string
	// Counter carries the daily budget across rebuilt scrapers; nil starts
	// a fresh one.
	Counter *DailyCounter
}

type Scraper struct {
	cfg     Config
	hc      *http.Client
	limiter *ratelimit.TokenBucket
	counter *DailyCounter
	log     *zap.Logger

	now   func() time.Time
	pause func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, hc *http.Client, log *zap.Logger) (*Scraper, error) {
	if len(cfg.Keywords) == 0 {
		return nil, errors.Mark(errors.New("linkedin_public: no keywords configured"), errors.ErrConfiguration)
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = DefaultDailyLimit
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = 8 * time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = max(15*time.Second, cfg.MinDelay)
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = DefaultUserAgents
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.linkedin.com"
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Counter == nil {
		cfg.Counter = NewDailyCounter(cfg.DailyLimit, time.Now)
	}
	return &Scraper{
		cfg:     cfg,
		hc:      hc,
		limiter: ratelimit.NewPerMinute(cfg.RateLimit),
		counter: cfg.Counter,
		log:     logger.OrNop(log).Named("linkedin_public"),
		now:     time.Now,
		pause:   sleep,
	}, nil
}

func (s *Scraper) Name() string               { return string(domain.SourceLinkedInPublic) }
func (s *Scraper) Keywords() []string         { return s.cfg.Keywords }
func (s *Scraper) TrustsUpstream() bool       { return false }
func (s *Scraper) Limiter() ratelimit.Limiter { return s.limiter }

// Counter exposes the daily budget, mostly for reporting.
func (s *Scraper) Counter() *DailyCounter { return s.counter }

func (s *Scraper) Scrape(ctx context.Context) (types.ScrapeResult, error) {
	res := types.ScrapeResult{Source: s.Name()}

	if s.counter.Rollover() {
		s.log.Info("daily counter reset")
	}

	keywords := s.cfg.Keywords
	if len(keywords) > maxKeywordsPerRun {
		keywords = keywords[:maxKeywordsPerRun]
	}

	failed := 0
	for i, kw := range keywords {
		if i > 0 {
			if err := s.pause(ctx, s.delay()); err != nil {
				return res, err
			}
		}
		if err := s.counter.Take(); err != nil {
			s.log.Warn("daily limit reached", zap.Int("count", s.counter.Count()), zap.Int("skipped_terms", len(keywords)-i))
			res.SkippedTerms = len(keywords) - i
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return res, err
		}

		n, err := s.searchKeyword(ctx, kw, i, &res)
		switch {
		case err == nil:
			s.log.Info("keyword done", zap.String("keyword", kw), zap.Int("count", n))
		case ctx.Err() != nil:
			return res, ctx.Err()
		case errors.Is(err, errors.ErrBlocked):
			s.log.Warn("keyword blocked", zap.String("keyword", kw), zap.Error(err))
		default:
			failed++
			s.log.Warn("keyword failed", zap.String("keyword", kw), zap.Error(err))
		}
	}
	if failed > 0 && failed == len(keywords) {
		return res, errors.Mark(errors.Newf("linkedin_public: all %d searches failed", failed), errors.ErrSource)
	}

	s.log.Info("scraped", zap.Int("count", len(res.Leads)), zap.Stringer("skipped", res.Skipped),
		zap.Int("daily_remaining", s.counter.Remaining()))
	return res, nil
}

func (s *Scraper) searchKeyword(ctx context.Context, kw string, idx int, res *types.ScrapeResult) (int, error) {
	ua := s.cfg.UserAgents[rand.IntN(len(s.cfg.UserAgents))]
	target := searchURL(s.cfg.BaseURL, kw)

	resp, body, err := util.Do(ctx, s.hc, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		setBrowserHeaders(req, ua)
		return req, nil
	}, util.NoRetry())

	if reason := blockedReason(resp, body); reason != "" {
		return 0, errors.Mark(errors.Newf("linkedin_public: %s", reason), errors.ErrBlocked)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "search %q", kw)
	}

	cards, err := ParseCards(bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "parse search page")
	}

	now := s.now()
	added := 0
	for pos, c := range cards {
		lead, reason := toLead(c, kw, pos, now)
		if reason != types.SkipNone {
			res.Skipped.Add(reason)
			continue
		}
		res.Leads = append(res.Leads, lead)
		added++
	}
	s.log.Debug("result cards", zap.String("keyword", kw), zap.Int("keyword_index", idx), zap.Int("cards", len(cards)))
	return added, nil
}

// blockedReason names why LinkedIn refused the request, or returns "".
func blockedReason(resp *http.Response, body []byte) string {
	if resp == nil {
		return ""
	}
	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests, 999:
		return "status " + strconv.Itoa(resp.StatusCode)
	}
	if resp.Request != nil && resp.Request.URL != nil {
		p := resp.Request.URL.Path
		if strings.Contains(p, "/authwall") || strings.Contains(p, "/uas/login") {
			return "redirected to " + p
		}
	}
	lower := bytes.ToLower(body)
	for _, m := range blockMarkers {
		if bytes.Contains(lower, m) {
			return "page mentions " + string(m)
		}
	}
	return ""
}

func setBrowserHeaders(req *http.Request, ua string) {
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Cache-Control", "max-age=0")
}

func (s *Scraper) delay() time.Duration {
	span := s.cfg.MaxDelay - s.cfg.MinDelay
	if span <= 0 {
		return s.cfg.MinDelay
	}
	return s.cfg.MinDelay + rand.N(span+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// escapeKeyword percent-encodes with spaces as %20.
func escapeKeyword(kw string) string { return strings.ReplaceAll(url.QueryEscape(kw), "+", "%20") }
