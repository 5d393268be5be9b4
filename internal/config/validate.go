package config

import (
	"fmt"
	"sort"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Source names accepted by scraping.sources and --sources. linkedin_apify
// selects the adapter whose leads carry source "linkedin".
const (
	SourceReddit         = "reddit"
	SourceDiscord        = "discord"
	SourceSlack          = "slack"
	SourceLinkedInApify  = "linkedin_apify"
	SourceLinkedInPublic = "linkedin_public"
)

var SourceNames = []string{SourceReddit, SourceDiscord, SourceSlack, SourceLinkedInPublic, SourceLinkedInApify}

// NormalizeAndValidate returns a cleaned copy of cfg. Malformed values are
// errors. Missing credentials are warnings; Usable then leaves that source
// out.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Scraping.Keywords = trimList(out.Scraping.Keywords)
	out.Scraping.Sources = lowerList(trimList(out.Scraping.Sources))
	out.Reddit.Subreddits = trimList(out.Reddit.Subreddits)
	out.Reddit.SearchPhrases = trimList(out.Reddit.SearchPhrases)
	out.Discord.Channels = trimList(out.Discord.Channels)
	out.Slack.Channels = trimList(out.Slack.Channels)
	out.App.LogLevel = strings.ToLower(strings.TrimSpace(out.App.LogLevel))
	presets := make(map[string][]string, len(cfg.Presets))
	for name, kw := range cfg.Presets {
		presets[strings.ToLower(strings.TrimSpace(name))] = trimList(kw)
	}
	out.Presets = presets

	if len(out.Scraping.Keywords) == 0 {
		res.addWarn("scraping.keywords is empty; keyword filtering will drop every lead from untrusted sources")
	}
	for _, s := range out.Scraping.Sources {
		if !knownSource(s) {
			res.addErr("scraping.sources: unknown source %q (known: %s)", s, strings.Join(SourceNames, ", "))
		}
	}
	if out.Scraping.MaxTotalLeads < 0 {
		res.addErr("scraping.max_total_leads must be >= 0")
	}
	if out.Scraping.MinEngagementScore < 0 {
		res.addErr("scraping.min_engagement_score must be >= 0")
	}
	if out.Scraping.IntervalSeconds <= 0 {
		res.addErr("scraping.interval_seconds must be > 0")
	} else if out.Scraping.IntervalSeconds < 60 {
		res.addWarn("scraping.interval_seconds is very low (%d) and may cause rate limits.", out.Scraping.IntervalSeconds)
	}
	if out.Scraping.SourceTimeoutSeconds <= 0 {
		res.addErr("scraping.source_timeout_seconds must be > 0")
	}

	positive := map[string]int{
		"reddit.rate_limit":           out.Reddit.RateLimit,
		"discord.rate_limit":          out.Discord.RateLimit,
		"slack.rate_limit":            out.Slack.RateLimit,
		"linkedin_apify.rate_limit":   out.LinkedInApify.RateLimit,
		"linkedin_public.rate_limit":  out.LinkedInPublic.RateLimit,
		"llm.max_concurrent_requests": out.LLM.MaxConcurrent,
	}
	for _, key := range sortedKeys(positive) {
		if positive[key] <= 0 {
			res.addErr("%s must be > 0", key)
		}
	}
	if out.LinkedInPublic.MinDelaySeconds > out.LinkedInPublic.MaxDelaySeconds {
		res.addErr("linkedin_public.min_delay_seconds (%d) exceeds max_delay_seconds (%d)",
			out.LinkedInPublic.MinDelaySeconds, out.LinkedInPublic.MaxDelaySeconds)
	}
	if out.LLM.MaxLeads < 0 {
		res.addErr("llm.max_leads must be >= 0")
	}
	switch out.App.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		res.addErr("app.log_level: unknown level %q", out.App.LogLevel)
	}

	if t := out.LinkedInApify.Token; t != "" && !strings.HasPrefix(t, "apify_api_") {
		res.addErr("linkedin_apify.apify_token must start with apify_api_")
	}
	for _, s := range out.Scraping.Sources {
		if reason := missingCredential(out, s); reason != "" {
			res.addWarn("%s: %s; source will be skipped", s, reason)
		}
	}
	if out.LLM.OpenAIKey == "" {
		res.addWarn("llm.openai_api_key is not set; qualification is off unless --qualify is given")
	}

	return out, res
}

// Usable reports whether source name is known and has what it needs to run.
func (c Config) Usable(name string) (bool, string) {
	if !knownSource(name) {
		return false, "unknown source"
	}
	if reason := missingCredential(c, name); reason != "" {
		return false, reason
	}
	return true, ""
}

func missingCredential(c Config, name string) string {
	switch name {
	case SourceReddit:
		if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
			return "REDDIT_CLIENT_ID / REDDIT_CLIENT_SECRET not configured"
		}
	case SourceDiscord:
		if c.Discord.BotToken == "" {
			return "DISCORD_BOT_TOKEN not configured"
		}
		if len(c.Discord.Channels) == 0 {
			return "discord.channels is empty"
		}
	case SourceSlack:
		if c.Slack.BotToken == "" {
			return "SLACK_BOT_TOKEN not configured"
		}
		if len(c.Slack.Channels) == 0 {
			return "slack.channels is empty"
		}
	case SourceLinkedInApify:
		if !c.LinkedInApify.Enabled {
			return "linkedin_apify.enabled is false"
		}
		if c.LinkedInApify.Token == "" {
			return "APIFY_TOKEN not configured"
		}
	case SourceLinkedInPublic:
		if !c.LinkedInPublic.Enabled {
			return "linkedin_public.enabled is false"
		}
	}
	return ""
}

func knownSource(name string) bool {
	for _, s := range SourceNames {
		if s == name {
			return true
		}
	}
	return false
}

func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lowerList(xs []string) []string {
	for i := range xs {
		xs[i] = strings.ToLower(xs[i])
	}
	return xs
}
