package config

import (
	"strconv"
	"strings"
)

// OverlayEnv applies environment overrides. getenv is os.Getenv outside of
// tests. Empty variables leave the config value alone.
func OverlayEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&cfg.Reddit.ClientID, "REDDIT_CLIENT_ID")
	set(&cfg.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	set(&cfg.Reddit.UserAgent, "REDDIT_USER_AGENT")
	set(&cfg.Discord.BotToken, "DISCORD_BOT_TOKEN")
	set(&cfg.Slack.BotToken, "SLACK_BOT_TOKEN")
	set(&cfg.LinkedInApify.Token, "APIFY_TOKEN")
	set(&cfg.LinkedInApify.Cookie, "LINKEDIN_COOKIE")
	set(&cfg.LLM.OpenAIKey, "OPENAI_API_KEY")
	set(&cfg.LLM.GeminiKey, "GEMINI_API_KEY")
	set(&cfg.App.LogLevel, "LOG_LEVEL")

	if v := strings.TrimSpace(getenv("DEBUG")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.App.Debug = b
		}
	}
}
