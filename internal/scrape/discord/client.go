package discord

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leadscout/internal/errors"
	"leadscout/internal/scrape/util"
)

type Client interface {
	Channel(ctx context.Context, id string) (RawChannel, error)
	Guild(ctx context.Context, id string) (RawGuild, error)
	Messages(ctx context.Context, channelID string, limit int) ([]RawMessage, error)
}

// HTTPClient reads through the REST API with a bot token; no gateway
// session is opened.
type HTTPClient struct {
	hc      *http.Client
	token   string
	apiBase string
	retry   util.RetryConfig
}

func NewHTTPClient(token string, apiBase string) *HTTPClient {
	if apiBase == "" {
		apiBase = "https://discord.com/api/v10"
	}
	return &HTTPClient{
		hc:      &http.Client{Timeout: 20 * time.Second},
		token:   token,
		apiBase: strings.TrimRight(apiBase, "/"),
		retry:   util.DefaultRetryConfig(),
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.apiBase + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return util.DoJSON(ctx, c.hc, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bot "+c.token)
		req.Header.Set("User-Agent", "DiscordBot (leadscout, 1.0)")
		return req, nil
	}, out, c.retry)
}

func (c *HTTPClient) Channel(ctx context.Context, id string) (RawChannel, error) {
	var ch RawChannel
	if err := c.get(ctx, "/channels/"+url.PathEscape(id), nil, &ch); err != nil {
		return RawChannel{}, errors.Wrapf(err, "channel %s", id)
	}
	return ch, nil
}

func (c *HTTPClient) Guild(ctx context.Context, id string) (RawGuild, error) {
	var g RawGuild
	if err := c.get(ctx, "/guilds/"+url.PathEscape(id), nil, &g); err != nil {
		return RawGuild{}, errors.Wrapf(err, "guild %s", id)
	}
	return g, nil
}

func (c *HTTPClient) Messages(ctx context.Context, channelID string, limit int) ([]RawMessage, error) {
	var msgs []RawMessage
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, "/channels/"+url.PathEscape(channelID)+"/messages", q, &msgs); err != nil {
		return nil, errors.Wrapf(err, "messages %s", channelID)
	}
	return msgs, nil
}
