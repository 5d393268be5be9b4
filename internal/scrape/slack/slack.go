// Package slack pages through channel history with a bot token.
package slack

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/logger"
	"leadscout/internal/ratelimit"
	"leadscout/internal/scrape/types"
)

const (
	pageSize    = 100
	maxMessages = 200
)

type Config struct {
	BotToken string
	Channels []string
	Keywords []string
	// requests per second
	RateLimit int
}

type Scraper struct {
	cfg     Config
	client  Client
	limiter *ratelimit.TokenBucket
	log     *zap.Logger
}

func New(cfg Config, client Client, log *zap.Logger) (*Scraper, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, errors.Mark(errors.New("slack: bot token not configured"), errors.ErrConfiguration)
	}
	if len(cfg.Channels) == 0 {
		return nil, errors.Mark(errors.New("slack: no channels configured"), errors.ErrConfiguration)
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}
	if client == nil {
		client = NewHTTPClient(cfg.BotToken, "")
	}
	return &Scraper{
		cfg:     cfg,
		client:  client,
		limiter: ratelimit.NewPerSecond(cfg.RateLimit),
		log:     logger.OrNop(log).Named("slack"),
	}, nil
}

func (s *Scraper) Name() string               { return string(domain.SourceSlack) }
func (s *Scraper) Keywords() []string         { return s.cfg.Keywords }
func (s *Scraper) TrustsUpstream() bool       { return false }
func (s *Scraper) Limiter() ratelimit.Limiter { return s.limiter }

func (s *Scraper) Scrape(ctx context.Context) (types.ScrapeResult, error) {
	res := types.ScrapeResult{Source: s.Name()}
	users := map[string]string{}

	failed := 0
	for _, ch := range s.cfg.Channels {
		if err := s.scrapeChannel(ctx, ch, users, &res); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			failed++
			s.log.Warn("channel failed", zap.String("channel", ch), zap.Error(err))
		}
	}
	if failed == len(s.cfg.Channels) && len(res.Leads) == 0 {
		return res, errors.Mark(errors.Newf("slack: all %d channels failed", failed), errors.ErrSource)
	}

	s.log.Info("scraped",
		zap.Int("count", len(res.Leads)),
		zap.Int("channels", len(s.cfg.Channels)),
		zap.Stringer("skipped", res.Skipped))
	return res, nil
}

func (s *Scraper) scrapeChannel(ctx context.Context, channelID string, users map[string]string, res *types.ScrapeResult) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	name, err := s.client.ChannelName(ctx, channelID)
	if err != nil {
		return err
	}
	if name == "" {
		name = "Unknown"
	}

	cursor := ""
	fetched := 0
	for fetched < maxMessages {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		msgs, next, err := s.client.History(ctx, channelID, cursor, pageSize)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			break
		}

		for _, m := range msgs {
			// skip before resolving the author so bots cost no lookup
			if m.BotID != "" || strings.TrimSpace(m.Text) == "" {
				_, reason := toLead(m, channelID, name, "")
				res.Skipped.Add(reason)
				continue
			}
			author := s.author(ctx, m.User, users)
			lead, reason := toLead(m, channelID, name, author)
			if reason != types.SkipNone {
				res.Skipped.Add(reason)
				continue
			}
			res.Leads = append(res.Leads, lead)
		}

		fetched += len(msgs)
		if next == "" {
			break
		}
		cursor = next
	}
	return nil
}

// author resolves a user ID once per run. Lookup failures fall back to the
// ID itself.
func (s *Scraper) author(ctx context.Context, userID string, cache map[string]string) string {
	if userID == "" {
		return "Unknown"
	}
	if name, ok := cache[userID]; ok {
		return name
	}
	name := userID
	if err := s.limiter.Wait(ctx); err == nil {
		if u, err := s.client.User(ctx, userID); err == nil {
			name = u.DisplayName(userID)
		} else {
			s.log.Debug("user lookup failed", zap.String("user", userID), zap.Error(err))
		}
	}
	cache[userID] = name
	return name
}
