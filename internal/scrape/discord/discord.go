// Package discord reads recent history from configured text channels.
package discord

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/logger"
	"leadscout/internal/ratelimit"
	"leadscout/internal/scrape/types"
)

const historyLimit = 100

type Config struct {
	BotToken string
	Channels []string
	Keywords []string
	// requests per second
	RateLimit int
	// bounds the whole fetch phase
	Timeout time.Duration
}

type Scraper struct {
	cfg     Config
	client  Client
	limiter *ratelimit.TokenBucket
	log     *zap.Logger
}

func New(cfg Config, client Client, log *zap.Logger) (*Scraper, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, errors.Mark(errors.New("discord: bot token not configured"), errors.ErrConfiguration)
	}
	channels := cfg.Channels[:0:0]
	for _, c := range cfg.Channels {
		if c = strings.TrimSpace(c); c != "" {
			channels = append(channels, c)
		}
	}
	if len(channels) == 0 {
		return nil, errors.Mark(errors.New("discord: no channels configured"), errors.ErrConfiguration)
	}
	cfg.Channels = channels
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if client == nil {
		client = NewHTTPClient(cfg.BotToken, "")
	}
	return &Scraper{
		cfg:     cfg,
		client:  client,
		limiter: ratelimit.NewPerSecond(cfg.RateLimit),
		log:     logger.OrNop(log).Named("discord"),
	}, nil
}

func (s *Scraper) Name() string               { return string(domain.SourceDiscord) }
func (s *Scraper) Keywords() []string         { return s.cfg.Keywords }
func (s *Scraper) TrustsUpstream() bool       { return false }
func (s *Scraper) Limiter() ratelimit.Limiter { return s.limiter }

// Scrape returns whatever was collected when the fetch timeout fires. A
// timeout with nothing collected is a source failure.
func (s *Scraper) Scrape(ctx context.Context) (types.ScrapeResult, error) {
	res := types.ScrapeResult{Source: s.Name()}

	fctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	guildNames := map[string]string{}
	failed := 0
	for _, id := range s.cfg.Channels {
		if err := s.scrapeChannel(fctx, id, guildNames, &res); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if fctx.Err() != nil {
				if len(res.Leads) == 0 {
					return res, errors.Mark(errors.Wrapf(err, "discord: fetch timed out after %s", s.cfg.Timeout), errors.ErrSource)
				}
				s.log.Warn("fetch timed out", zap.Duration("timeout", s.cfg.Timeout), zap.Int("count", len(res.Leads)))
				break
			}
			failed++
			s.log.Warn("channel failed", zap.String("channel", id), zap.Error(err))
		}
	}
	if failed == len(s.cfg.Channels) && len(res.Leads) == 0 {
		return res, errors.Mark(errors.Newf("discord: all %d channels failed", failed), errors.ErrSource)
	}

	s.log.Info("scraped",
		zap.Int("count", len(res.Leads)),
		zap.Int("channels", len(s.cfg.Channels)),
		zap.Stringer("skipped", res.Skipped))
	return res, nil
}

func (s *Scraper) scrapeChannel(ctx context.Context, id string, guildNames map[string]string, res *types.ScrapeResult) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	ch, err := s.client.Channel(ctx, id)
	if err != nil {
		return err
	}
	if !ch.isText() {
		s.log.Warn("not a text channel", zap.String("channel", id), zap.Int("type", ch.Type))
		return nil
	}
	if ch.ID == "" {
		ch.ID = id
	}

	guildName := ""
	if ch.GuildID != "" {
		name, ok := guildNames[ch.GuildID]
		if !ok {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			if g, err := s.client.Guild(ctx, ch.GuildID); err == nil {
				name = g.Name
			} else {
				s.log.Debug("guild lookup failed", zap.String("guild", ch.GuildID), zap.Error(err))
			}
			guildNames[ch.GuildID] = name
		}
		guildName = name
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	msgs, err := s.client.Messages(ctx, id, historyLimit)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		lead, reason := toLead(m, ch, guildName)
		if reason != types.SkipNone {
			res.Skipped.Add(reason)
			continue
		}
		res.Leads = append(res.Leads, lead)
	}
	return nil
}
