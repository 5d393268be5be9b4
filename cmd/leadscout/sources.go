package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"leadscout/internal/config"
	"leadscout/internal/errors"
	"leadscout/internal/ratelimit"
	"leadscout/internal/scrape/discord"
	"leadscout/internal/scrape/linkedin"
	"leadscout/internal/scrape/linkedinpublic"
	"leadscout/internal/scrape/reddit"
	"leadscout/internal/scrape/slack"
	"leadscout/internal/scrape/types"
)

// sourceBuilder turns config into adapters. It outlives one build so the
// linkedin_public daily budget survives a config reload.
type sourceBuilder struct {
	log *zap.Logger

	mu            sync.Mutex
	publicCounter *linkedinpublic.DailyCounter
}

// build returns an adapter for every usable name. Unusable or failing
// sources are logged and left out; only an empty result is an error.
func (b *sourceBuilder) build(ctx context.Context, cfg config.Config, names, keywords []string, maxTotal int) ([]types.Source, error) {
	var out []types.Source
	for _, name := range names {
		if ok, reason := cfg.Usable(name); !ok {
			b.log.Warn("source skipped", zap.String("source", name), zap.String("reason", reason))
			continue
		}
		src, err := b.one(ctx, cfg, name, keywords, maxTotal)
		if err != nil {
			b.log.Warn("source skipped", zap.String("source", name), zap.Error(err))
			continue
		}
		out = append(out, src)
	}
	if len(out) == 0 {
		return nil, errors.Mark(
			errors.WithHint(
				errors.Newf("no usable sources among %s", strings.Join(names, ", ")),
				"set the source credentials in the environment or with `leadscout secrets set`"),
			errors.ErrConfiguration)
	}
	return out, nil
}

func (b *sourceBuilder) one(ctx context.Context, cfg config.Config, name string, keywords []string, maxTotal int) (types.Source, error) {
	switch name {
	case config.SourceReddit:
		rc := cfg.Reddit
		client := reddit.NewHTTPClient(rc.ClientID, rc.ClientSecret, rc.UserAgent)
		return reddit.New(reddit.Config{
			Subreddits:     rc.Subreddits,
			Keywords:       keywords,
			RateLimit:      rc.RateLimit,
			TargetedSearch: rc.TargetedSearch,
			SearchPhrases:  rc.SearchPhrases,
		}, client, b.log)

	case config.SourceDiscord:
		dc := cfg.Discord
		return discord.New(discord.Config{
			BotToken:  dc.BotToken,
			Channels:  dc.Channels,
			Keywords:  keywords,
			RateLimit: dc.RateLimit,
			Timeout:   time.Duration(dc.TimeoutSeconds) * time.Second,
		}, nil, b.log)

	case config.SourceSlack:
		sc := cfg.Slack
		return slack.New(slack.Config{
			BotToken:  sc.BotToken,
			Channels:  sc.Channels,
			Keywords:  keywords,
			RateLimit: sc.RateLimit,
		}, nil, b.log)

	case config.SourceLinkedInApify:
		lc := cfg.LinkedInApify
		return linkedin.New(ctx, linkedin.Config{
			Token:              lc.Token,
			Keywords:           keywords,
			ActorID:            lc.ActorID,
			MaxPostsPerKeyword: lc.MaxPostsPerKeyword,
			RateLimit:          lc.RateLimit,
			Cookie:             lc.Cookie,
			Proxy:              lc.Proxy,
			Types: linkedin.ContentTypes{
				Posts:       lc.ScrapePosts,
				Articles:    lc.ScrapeArticles,
				Discussions: lc.ScrapeDiscussions,
			},
			ScrapeComments:  lc.ScrapeComments,
			ScrapeReactions: lc.ScrapeReactions,
			MinReactions:    lc.MinReactions,
			MaxTotalLeads:   maxTotal,
			Backoff:         ratelimit.DefaultAdaptiveConfig(),
		}, nil, b.log)

	case config.SourceLinkedInPublic:
		pc := cfg.LinkedInPublic
		return linkedinpublic.New(linkedinpublic.Config{
			Keywords:   keywords,
			RateLimit:  pc.RateLimit,
			DailyLimit: pc.MaxDailyRequests,
			MinDelay:   time.Duration(pc.MinDelaySeconds) * time.Second,
			MaxDelay:   time.Duration(pc.MaxDelaySeconds) * time.Second,
			UserAgents: pc.UserAgents,
			Counter:    b.counter(pc.MaxDailyRequests),
		}, nil, b.log)
	}
	return nil, errors.Newf("unknown source %q", name)
}

func (b *sourceBuilder) counter(limit int) *linkedinpublic.DailyCounter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publicCounter == nil {
		if limit <= 0 {
			limit = linkedinpublic.DefaultDailyLimit
		}
		b.publicCounter = linkedinpublic.NewDailyCounter(limit, time.Now)
	}
	return b.publicCounter
}

// selectSources resolves --sources against scraping.sources.
func selectSources(flag []string, changed bool, cfg config.Config) ([]string, error) {
	if !changed {
		return cfg.Scraping.Sources, nil
	}
	var names []string
	seen := map[string]bool{}
	for _, raw := range flag {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		if ok, reason := cfg.Usable(name); !ok && reason == "unknown source" {
			return nil, usageErr(errors.WithHintf(errors.Newf("unknown source %q", raw),
				"known sources: %s", strings.Join(config.SourceNames, ", ")))
		}
		seen[name] = true
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, usageErr(errors.New("--sources is empty"))
	}
	return names, nil
}

// keywordsFor returns the --service preset, or scraping.keywords.
func keywordsFor(cfg config.Config, preset string) ([]string, error) {
	if strings.TrimSpace(preset) == "" {
		return cfg.Scraping.Keywords, nil
	}
	kw, err := cfg.Preset(preset)
	if err != nil {
		return nil, usageErr(err)
	}
	return kw, nil
}
