package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leadscout/internal/errors"
	"leadscout/internal/scrape/types"
)

type fakeClient struct {
	listings map[string][]RawPost // keyed by sort+time
	comments map[string][]RawComment
	search   []RawPost
	listErr  error

	commentLimits map[string]int
}

func (f *fakeClient) Listing(_ context.Context, _ string, feed Feed) ([]RawPost, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listings[feed.Sort+feed.Time], nil
}

func (f *fakeClient) Search(context.Context, string, string, int) ([]RawPost, error) {
	return f.search, nil
}

func (f *fakeClient) Comments(_ context.Context, postID string, limit int) ([]RawComment, error) {
	if f.commentLimits == nil {
		f.commentLimits = map[string]int{}
	}
	f.commentLimits[postID] = limit
	return f.comments[postID], nil
}

func post(id string, score int) RawPost {
	return RawPost{
		ID:          id,
		Title:       "Post " + id,
		Selftext:    "body of " + id,
		Author:      "author" + id,
		CreatedUTC:  1700000000.5,
		Permalink:   "/r/rwa/comments/" + id + "/x/",
		Score:       score,
		NumComments: 3,
		IsSelf:      true,
		Subreddit:   "rwa",
	}
}

func newTestScraper(t *testing.T, cfg Config, c Client) *Scraper {
	t.Helper()
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 6000
	}
	s, err := New(cfg, c, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestScrapeDedupsFeedsAndCollectsComments(t *testing.T) {
	fc := &fakeClient{
		listings: map[string][]RawPost{
			"hot":      {post("a", 10), post("b", 60)},
			"new":      {post("a", 10)},
			"topweek":  {post("c", 1)},
			"topmonth": {post("b", 60)},
		},
		comments: map[string][]RawComment{
			"a": {
				{ID: "c1", Body: "I need a dev for this", Author: "x", CreatedUTC: 1700000100, Permalink: "/r/rwa/comments/a/x/c1/", Score: 2},
				{ID: "c2", Body: "[deleted]", CreatedUTC: 1700000100, Permalink: "/r/rwa/comments/a/x/c2/"},
				{ID: "c3", Body: "   ", CreatedUTC: 1700000100, Permalink: "/r/rwa/comments/a/x/c3/"},
			},
		},
	}
	s := newTestScraper(t, Config{Subreddits: []string{"rwa"}}, fc)

	res, err := s.Scrape(context.Background())
	require.NoError(t, err)

	var urls []string
	for _, l := range res.Leads {
		urls = append(urls, l.URL)
	}
	assert.Equal(t, []string{
		"https://reddit.com/r/rwa/comments/a/x/",
		"https://reddit.com/r/rwa/comments/a/x/c1/",
		"https://reddit.com/r/rwa/comments/b/x/",
		"https://reddit.com/r/rwa/comments/c/x/",
	}, urls)

	assert.Equal(t, 1, res.Skipped[types.SkipRemoved])
	assert.Equal(t, 1, res.Skipped[types.SkipEmptyContent])
	assert.Equal(t, 20, fc.commentLimits["a"])
	assert.Equal(t, 50, fc.commentLimits["b"])

	first := res.Leads[0]
	assert.Equal(t, "Post a\n\nbody of a", first.Content)
	assert.Equal(t, "submission", first.Meta("post_type"))
	assert.Equal(t, "true", first.Meta("is_self"))
	assert.Equal(t, "3", first.Meta("num_comments"))
	assert.Equal(t, time.Unix(1700000000, 500000000).UTC(), first.Timestamp)

	comment := res.Leads[1]
	assert.Equal(t, "comment", comment.Meta("post_type"))
	assert.Equal(t, "a", comment.Meta("post_id"))
	assert.Equal(t, "Post a", comment.Meta("parent_post_title"))
}

func TestPostToLeadFallbacks(t *testing.T) {
	p := post("z", 0)
	p.Selftext = ""
	p.Author = ""
	lead, reason := postToLead(p, "rwa")
	require.Equal(t, types.SkipNone, reason)
	assert.Equal(t, "Post z", lead.Content)
	assert.Equal(t, "[deleted]", lead.Author)

	p.Score = -4
	_, reason = postToLead(p, "rwa")
	assert.Equal(t, types.SkipInvalid, reason)
}

func TestTargetedSearchTagsLeads(t *testing.T) {
	hit := post("s1", 25)
	fc := &fakeClient{
		search: []RawPost{hit},
		comments: map[string][]RawComment{
			"s1": {{ID: "k1", Body: "following, we need this too", Author: "y", CreatedUTC: 1700000200, Permalink: "/r/rwa/comments/s1/x/k1/"}},
		},
	}
	s := newTestScraper(t, Config{TargetedSearch: true, SearchPhrases: []string{"tokenization provider"}}, fc)

	res, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Leads, 2)
	for _, l := range res.Leads {
		assert.Equal(t, "tokenization provider", l.Meta("search_phrase"))
		assert.Equal(t, "true", l.Meta("targeted_search"))
	}
	assert.Equal(t, searchCommentLimit, fc.commentLimits["s1"])
}

func TestScrapeAllSubredditsFailing(t *testing.T) {
	fc := &fakeClient{listErr: errors.New("503")}
	s := newTestScraper(t, Config{Subreddits: []string{"a", "b"}}, fc)

	_, err := s.Scrape(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSource))
}

func TestNewRequiresSubreddits(t *testing.T) {
	_, err := New(Config{}, &fakeClient{}, nil)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestHTTPClientFetchesTokenOnce(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		id, secret, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", id)
		assert.Equal(t, "secret", secret)
		fmt.Fprint(w, `{"access_token":"tok","expires_in":3600}`)
	})
	mux.HandleFunc("/r/rwa/hot", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"data":{"children":[{"kind":"t3","data":{"id":"a","title":"T","permalink":"/r/rwa/comments/a/t/","created_utc":1700000000,"score":3}}]}}`)
	})
	mux.HandleFunc("/comments/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"data":{"children":[]}},
			{"data":{"children":[
				{"kind":"t1","data":{"id":"c1","body":"top","replies":{"data":{"children":[
					{"kind":"t1","data":{"id":"c3","body":"nested","replies":""}}
				]}}}},
				{"kind":"t1","data":{"id":"c2","body":"second","replies":""}},
				{"kind":"more","data":{}}
			]}}
		]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewHTTPClient("id", "secret", "leadscout-test", WithEndpoints(srv.URL, srv.URL+"/token"))
	ctx := context.Background()

	posts, err := c.Listing(ctx, "rwa", DefaultFeeds[0])
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "a", posts[0].ID)

	comments, err := c.Comments(ctx, "a", 20)
	require.NoError(t, err)
	var ids []string
	for _, cm := range comments {
		ids = append(ids, cm.ID)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids)

	limited, err := c.Comments(ctx, "a", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestHTTPClientTokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient("id", "bad", "ua", WithEndpoints(srv.URL, srv.URL+"/token"))
	_, err := c.Listing(context.Background(), "rwa", DefaultFeeds[0])
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "reddit token"))
}
