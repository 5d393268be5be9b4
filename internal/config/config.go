package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"leadscout/internal/errors"
)

type Config struct {
	App            AppConfig            `yaml:"app"`
	Scraping       ScrapingConfig       `yaml:"scraping"`
	Reddit         RedditConfig         `yaml:"reddit"`
	Discord        DiscordConfig        `yaml:"discord"`
	Slack          SlackConfig          `yaml:"slack"`
	LinkedInApify  LinkedInApifyConfig  `yaml:"linkedin_apify"`
	LinkedInPublic LinkedInPublicConfig `yaml:"linkedin_public"`
	LLM            LLMConfig            `yaml:"llm"`

	// keyword lists selectable with --service
	Presets map[string][]string `yaml:"presets"`
	// service category -> phrases, used for metadata.service_tags and analyze
	Services map[string][]string `yaml:"services"`
}

type AppConfig struct {
	DataDir  string `yaml:"data_dir"`
	Output   string `yaml:"output"`
	LogLevel string `yaml:"log_level"`
	Debug    bool   `yaml:"debug"`
}

type ScrapingConfig struct {
	Keywords             []string `yaml:"keywords"`
	Sources              []string `yaml:"sources"`
	MaxResultsPerSource  int      `yaml:"max_results_per_source"`
	MaxTotalLeads        int      `yaml:"max_total_leads"`
	MinEngagementScore   int      `yaml:"min_engagement_score"`
	IntervalSeconds      int      `yaml:"interval_seconds"`
	SourceTimeoutSeconds int      `yaml:"source_timeout_seconds"`
}

type RedditConfig struct {
	ClientID       string   `yaml:"client_id,omitempty"`
	ClientSecret   string   `yaml:"client_secret,omitempty"`
	UserAgent      string   `yaml:"user_agent"`
	RateLimit      int      `yaml:"rate_limit"` // per minute
	Subreddits     []string `yaml:"subreddits"`
	TargetedSearch bool     `yaml:"targeted_search"`
	SearchPhrases  []string `yaml:"search_phrases,omitempty"`
}

type DiscordConfig struct {
	BotToken       string   `yaml:"bot_token,omitempty"`
	RateLimit      int      `yaml:"rate_limit"` // per second
	Channels       []string `yaml:"channels"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

type SlackConfig struct {
	BotToken  string   `yaml:"bot_token,omitempty"`
	RateLimit int      `yaml:"rate_limit"` // per second
	Channels  []string `yaml:"channels"`
}

type LinkedInApifyConfig struct {
	Enabled            bool   `yaml:"enabled"`
	Token              string `yaml:"apify_token,omitempty"`
	ActorID            string `yaml:"actor_id"`
	MaxPostsPerKeyword int    `yaml:"max_posts_per_keyword"`
	RateLimit          int    `yaml:"rate_limit"` // per minute
	Cookie             string `yaml:"linkedin_cookie,omitempty"`
	Proxy              string `yaml:"proxy,omitempty"`
	ScrapePosts        bool   `yaml:"scrape_posts"`
	ScrapeArticles     bool   `yaml:"scrape_articles"`
	ScrapeDiscussions  bool   `yaml:"scrape_discussions"`
	ScrapeComments     bool   `yaml:"scrape_comments"`
	ScrapeReactions    bool   `yaml:"scrape_reactions"`
	MinReactions       int    `yaml:"min_reactions"`
}

type LinkedInPublicConfig struct {
	Enabled          bool     `yaml:"enabled"`
	RateLimit        int      `yaml:"rate_limit"` // per minute
	MaxDailyRequests int      `yaml:"max_daily_requests"`
	MinDelaySeconds  int      `yaml:"min_delay_seconds"`
	MaxDelaySeconds  int      `yaml:"max_delay_seconds"`
	UserAgents       []string `yaml:"user_agents,omitempty"`
}

type LLMConfig struct {
	OpenAIKey     string `yaml:"openai_api_key,omitempty"`
	OpenAIModel   string `yaml:"openai_model"`
	GeminiKey     string `yaml:"gemini_api_key,omitempty"`
	GeminiModel   string `yaml:"gemini_model"`
	MaxConcurrent int    `yaml:"max_concurrent_requests"`
	// 0 = qualify every lead
	MaxLeads int `yaml:"max_leads"`
}

func (s ScrapingConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

func (s ScrapingConfig) SourceTimeout() time.Duration {
	return time.Duration(s.SourceTimeoutSeconds) * time.Second
}

// Default is the configuration written by EnsureUserConfig and used for any
// key a file leaves out.
func Default() Config {
	return Config{
		App: AppConfig{
			DataDir:  "data",
			Output:   "data/leads.json",
			LogLevel: "info",
		},
		Scraping: ScrapingConfig{
			Keywords: []string{
				"looking for", "need help", "recommendation", "suggestions",
				"outsource", "consultant", "agency",
			},
			Sources:              []string{"reddit", "discord", "slack"},
			MaxResultsPerSource:  100,
			MaxTotalLeads:        200,
			MinEngagementScore:   1,
			IntervalSeconds:      300,
			SourceTimeoutSeconds: 120,
		},
		Reddit: RedditConfig{
			UserAgent:  "LeadScrapingBot/1.0",
			RateLimit:  60,
			Subreddits: []string{"rwa"},
		},
		Discord: DiscordConfig{
			RateLimit:      50,
			Channels:       []string{"1118264005207793674"},
			TimeoutSeconds: 60,
		},
		Slack: SlackConfig{
			RateLimit: 1,
		},
		LinkedInApify: LinkedInApifyConfig{
			ActorID:            "curious_coder/linkedin-post-search-scraper",
			MaxPostsPerKeyword: 20,
			RateLimit:          10,
			ScrapePosts:        true,
			ScrapeArticles:     true,
			ScrapeDiscussions:  true,
			ScrapeComments:     true,
			ScrapeReactions:    true,
		},
		LinkedInPublic: LinkedInPublicConfig{
			RateLimit:        2,
			MaxDailyRequests: 20,
			MinDelaySeconds:  8,
			MaxDelaySeconds:  15,
		},
		LLM: LLMConfig{
			OpenAIModel:   "gpt-4-turbo",
			GeminiModel:   "gemini-1.5-flash",
			MaxConcurrent: 5,
		},
		Presets:  DefaultPresets(),
		Services: DefaultServices(),
	}
}

// Load reads path over Default, so a partial file keeps the other defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Mark(errors.Wrapf(err, "parse config %s", path), errors.ErrConfiguration)
	}
	return cfg, nil
}
