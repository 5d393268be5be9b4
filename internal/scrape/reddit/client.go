package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"leadscout/internal/errors"
	"leadscout/internal/scrape/util"
)

// Feed selects a subreddit listing.
type Feed struct {
	Sort  string // hot, new, top
	Time  string // week, month; only for top
	Limit int
}

// DefaultFeeds covers trending, fresh and recent top content.
var DefaultFeeds = []Feed{
	{Sort: "hot", Limit: 50},
	{Sort: "new", Limit: 50},
	{Sort: "top", Time: "week", Limit: 30},
	{Sort: "top", Time: "month", Limit: 20},
}

type Client interface {
	Listing(ctx context.Context, subreddit string, feed Feed) ([]RawPost, error)
	Search(ctx context.Context, query, timeFilter string, limit int) ([]RawPost, error)
	// Comments returns up to limit comments of a post, breadth first,
	// without expanding "load more" stubs.
	Comments(ctx context.Context, postID string, limit int) ([]RawComment, error)
}

// HTTPClient talks to the OAuth API with an app-only token.
type HTTPClient struct {
	hc           *http.Client
	clientID     string
	clientSecret string
	userAgent    string
	apiBase      string
	tokenURL     string
	retry        util.RetryConfig

	mu      sync.Mutex
	token   string
	expires time.Time
}

type HTTPOption func(*HTTPClient)

// WithEndpoints points the client at a different API and token URL.
func WithEndpoints(apiBase, tokenURL string) HTTPOption {
	return func(c *HTTPClient) {
		c.apiBase = strings.TrimRight(apiBase, "/")
		c.tokenURL = tokenURL
	}
}

func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.hc = hc }
}

func NewHTTPClient(clientID, clientSecret, userAgent string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		hc:           &http.Client{Timeout: 20 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		apiBase:      "https://oauth.reddit.com",
		tokenURL:     "https://www.reddit.com/api/v1/access_token",
		retry:        util.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		Error       string `json:"error"`
	}
	err := util.DoJSON(ctx, c.hc, func(ctx context.Context) (*http.Request, error) {
		form := url.Values{"grant_type": {"client_credentials"}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.clientID, c.clientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	}, &out, c.retry)
	if err != nil {
		return "", errors.Wrap(err, "reddit token")
	}
	if out.AccessToken == "" {
		return "", errors.Newf("reddit token: empty access token (%s)", out.Error)
	}

	ttl := time.Duration(out.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	c.token = out.AccessToken
	// refresh a minute early
	c.expires = time.Now().Add(ttl - time.Minute)
	return c.token, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, q url.Values, out any) error {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	u := c.apiBase + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return util.DoJSON(ctx, c.hc, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "bearer "+tok)
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	}, out, c.retry)
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (l listing) posts() []RawPost {
	out := make([]RawPost, 0, len(l.Data.Children))
	for _, ch := range l.Data.Children {
		if ch.Kind != "t3" {
			continue
		}
		var p RawPost
		if err := json.Unmarshal(ch.Data, &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (c *HTTPClient) Listing(ctx context.Context, subreddit string, feed Feed) ([]RawPost, error) {
	q := url.Values{"limit": {strconv.Itoa(feed.Limit)}, "raw_json": {"1"}}
	if feed.Time != "" {
		q.Set("t", feed.Time)
	}
	var l listing
	if err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/"+feed.Sort, q, &l); err != nil {
		return nil, errors.Wrapf(err, "r/%s %s", subreddit, feed.Sort)
	}
	return l.posts(), nil
}

func (c *HTTPClient) Search(ctx context.Context, query, timeFilter string, limit int) ([]RawPost, error) {
	q := url.Values{
		"q":        {query},
		"t":        {timeFilter},
		"limit":    {strconv.Itoa(limit)},
		"raw_json": {"1"},
	}
	var l listing
	if err := c.get(ctx, "/r/all/search", q, &l); err != nil {
		return nil, errors.Wrapf(err, "search %q", query)
	}
	return l.posts(), nil
}

type commentNode struct {
	Kind string `json:"kind"`
	Data struct {
		RawComment
		Replies json.RawMessage `json:"replies"`
	} `json:"data"`
}

type commentListing struct {
	Data struct {
		Children []commentNode `json:"children"`
	} `json:"data"`
}

func (c *HTTPClient) Comments(ctx context.Context, postID string, limit int) ([]RawComment, error) {
	var pages []json.RawMessage
	q := url.Values{"limit": {strconv.Itoa(limit)}, "raw_json": {"1"}}
	if err := c.get(ctx, "/comments/"+url.PathEscape(postID), q, &pages); err != nil {
		return nil, errors.Wrapf(err, "comments %s", postID)
	}
	if len(pages) < 2 {
		return nil, nil
	}
	var root commentListing
	if err := json.Unmarshal(pages[1], &root); err != nil {
		return nil, errors.Wrapf(err, "decode comments %s", postID)
	}
	return flattenComments(root.Data.Children, limit), nil
}

func flattenComments(roots []commentNode, limit int) []RawComment {
	var out []RawComment
	queue := append([]commentNode(nil), roots...)
	for len(queue) > 0 && len(out) < limit {
		n := queue[0]
		queue = queue[1:]
		if n.Kind != "t1" {
			continue
		}
		out = append(out, n.Data.RawComment)

		// replies is "" when empty, a listing otherwise
		r := bytes.TrimSpace(n.Data.Replies)
		if len(r) == 0 || r[0] != '{' {
			continue
		}
		var sub commentListing
		if err := json.Unmarshal(r, &sub); err == nil {
			queue = append(queue, sub.Data.Children...)
		}
	}
	return out
}
