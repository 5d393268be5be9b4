package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"leadscout/internal/config"
)

func TestResolveFillsOnlyEmptyFields(t *testing.T) {
	keyring.MockInit()

	require.NoError(t, Set("openai_api_key", "sk-from-keychain"))
	require.NoError(t, Set("discord_bot_token", "keychain-token"))

	cfg := config.Default()
	cfg.Discord.BotToken = "env-token"

	filled, err := Resolve(&cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai_api_key"}, filled)
	assert.Equal(t, "sk-from-keychain", cfg.LLM.OpenAIKey)
	assert.Equal(t, "env-token", cfg.Discord.BotToken)
	assert.Empty(t, cfg.Slack.BotToken)
}

func TestSetAndDelete(t *testing.T) {
	keyring.MockInit()

	err := Set("myspace_token", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown secret")

	require.Error(t, Set("apify_token", "  "))

	require.NoError(t, Set("apify_token", "apify_api_1"))
	require.NoError(t, Delete("apify_token"))

	err = Delete("apify_token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not stored")
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Len(t, names, 8)
	assert.IsIncreasing(t, names)
}
