// Package secrets keeps source and LLM credentials in the OS keychain so
// they need not live in config.yml or the shell environment.
package secrets

import (
	"sort"
	"strings"

	"github.com/zalando/go-keyring"

	"leadscout/internal/config"
	"leadscout/internal/errors"
)

// KeyringService groups our entries in the OS keychain.
const KeyringService = "leadscout"

// fields maps a keychain entry name to the config field it fills.
var fields = map[string]func(*config.Config) *string{
	"reddit_client_id":     func(c *config.Config) *string { return &c.Reddit.ClientID },
	"reddit_client_secret": func(c *config.Config) *string { return &c.Reddit.ClientSecret },
	"discord_bot_token":    func(c *config.Config) *string { return &c.Discord.BotToken },
	"slack_bot_token":      func(c *config.Config) *string { return &c.Slack.BotToken },
	"apify_token":          func(c *config.Config) *string { return &c.LinkedInApify.Token },
	"linkedin_cookie":      func(c *config.Config) *string { return &c.LinkedInApify.Cookie },
	"openai_api_key":       func(c *config.Config) *string { return &c.LLM.OpenAIKey },
	"gemini_api_key":       func(c *config.Config) *string { return &c.LLM.GeminiKey },
}

// Names lists the entries Set and Delete accept.
func Names() []string {
	out := make([]string, 0, len(fields))
	for n := range fields {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func checkName(name string) error {
	if _, ok := fields[name]; !ok {
		return errors.WithHintf(errors.Newf("unknown secret %q", name), "known secrets: %s", strings.Join(Names(), ", "))
	}
	return nil
}

func Set(name, value string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return errors.Newf("secret %s: value is empty", name)
	}
	return errors.Wrapf(keyring.Set(KeyringService, name, value), "store %s", name)
}

func Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := keyring.Delete(KeyringService, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return errors.Newf("secret %s is not stored", name)
	}
	return errors.Wrapf(err, "delete %s", name)
}

// Resolve fills every still-empty credential in cfg from the keychain and
// returns the names it filled. A missing entry is not an error; a keychain
// that cannot be reached is.
func Resolve(cfg *config.Config) ([]string, error) {
	var filled []string
	for _, name := range Names() {
		dst := fields[name](cfg)
		if strings.TrimSpace(*dst) != "" {
			continue
		}
		v, err := keyring.Get(KeyringService, name)
		if errors.Is(err, keyring.ErrNotFound) {
			continue
		}
		if err != nil {
			return filled, errors.Wrapf(err, "keychain lookup %s", name)
		}
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
			filled = append(filled, name)
		}
	}
	return filled, nil
}
