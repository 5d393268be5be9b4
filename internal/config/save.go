package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"leadscout/internal/errors"
)

// SaveAtomic validates cfg and writes it via path.tmp, keeping the previous
// file as path.bak. Credentials are never written.
func SaveAtomic(path string, cfg Config) error {
	cfg, res := NormalizeAndValidate(cfg)
	if !res.OK() {
		return errors.Mark(
			errors.Newf("config validation failed:\n- %s", strings.Join(res.Errors, "\n- ")),
			errors.ErrConfiguration)
	}

	b, err := yaml.Marshal(cfg.WithoutSecrets())
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(path))
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return errors.Wrapf(os.Rename(tmp, path), "replace %s", path)
}

// WithoutSecrets returns a copy with every credential blanked.
func (c Config) WithoutSecrets() Config {
	c.Reddit.ClientID = ""
	c.Reddit.ClientSecret = ""
	c.Discord.BotToken = ""
	c.Slack.BotToken = ""
	c.LinkedInApify.Token = ""
	c.LinkedInApify.Cookie = ""
	c.LLM.OpenAIKey = ""
	c.LLM.GeminiKey = ""
	return c
}
