package slack

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
	ChannelName(ctx context.Context, channelID string) (string, error)
	// History returns one page and the cursor of the next ("" at the end).
	History(ctx context.Context, channelID, cursor string, limit int) ([]RawMessage, string, error)
	User(ctx context.Context, userID string) (RawUser, error)
}

// APIError is a 200 response with ok=false.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string { return "slack " + e.Method + ": " + e.Code }

type HTTPClient struct {
	hc      *http.Client
	token   string
	apiBase string
	retry   util.RetryConfig
}

func NewHTTPClient(token, apiBase string) *HTTPClient {
	if apiBase == "" {
		apiBase = "https://slack.com/api"
	}
	return &HTTPClient{
		hc:      &http.Client{Timeout: 20 * time.Second},
		token:   token,
		apiBase: strings.TrimRight(apiBase, "/"),
		retry:   util.DefaultRetryConfig(),
	}
}

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (c *HTTPClient) call(ctx context.Context, method string, q url.Values, out interface{ ok() envelope }) error {
	u := c.apiBase + "/" + method + "?" + q.Encode()
	err := util.DoJSON(ctx, c.hc, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		return req, nil
	}, out, c.retry)
	if err != nil {
		return errors.Wrapf(err, "slack %s", method)
	}
	if env := out.ok(); !env.OK {
		return &APIError{Method: method, Code: env.Error}
	}
	return nil
}

type infoResp struct {
	envelope
	Channel struct {
		Name string `json:"name"`
	} `json:"channel"`
}

func (r *infoResp) ok() envelope { return r.envelope }

type historyResp struct {
	envelope
	Messages         []RawMessage `json:"messages"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

func (r *historyResp) ok() envelope { return r.envelope }

type userResp struct {
	envelope
	User RawUser `json:"user"`
}

func (r *userResp) ok() envelope { return r.envelope }

func (c *HTTPClient) ChannelName(ctx context.Context, channelID string) (string, error) {
	var r infoResp
	if err := c.call(ctx, "conversations.info", url.Values{"channel": {channelID}}, &r); err != nil {
		return "", err
	}
	return r.Channel.Name, nil
}

func (c *HTTPClient) History(ctx context.Context, channelID, cursor string, limit int) ([]RawMessage, string, error) {
	q := url.Values{"channel": {channelID}, "limit": {strconv.Itoa(limit)}}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var r historyResp
	if err := c.call(ctx, "conversations.history", q, &r); err != nil {
		return nil, "", err
	}
	return r.Messages, r.ResponseMetadata.NextCursor, nil
}

func (c *HTTPClient) User(ctx context.Context, userID string) (RawUser, error) {
	var r userResp
	if err := c.call(ctx, "users.info", url.Values{"user": {userID}}, &r); err != nil {
		return RawUser{}, err
	}
	return r.User, nil
}
