package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leadscout/internal/errors"
	"leadscout/internal/ratelimit"
	"leadscout/internal/scrape/types"
	"leadscout/internal/scrape/util"
)

type fakeClient struct {
	meErr   error
	items   map[string][]RawItem // keyed by keyword in the actor input
	runErr  error
	inputs  []map[string]any
	runs    int
	current string
}

func (f *fakeClient) Me(context.Context) (string, error) { return "tester", f.meErr }

func (f *fakeClient) RunActor(_ context.Context, _ string, input map[string]any) (Run, error) {
	f.runs++
	f.inputs = append(f.inputs, input)
	if f.runErr != nil {
		return Run{}, f.runErr
	}
	f.current = input["searches"].([]string)[0]
	return Run{ID: "r", Status: "SUCCEEDED", DefaultDatasetID: f.current}, nil
}

func (f *fakeClient) DatasetItems(_ context.Context, id string) ([]RawItem, error) {
	return f.items[id], nil
}

var fastBackoff = ratelimit.AdaptiveConfig{
	InitialDelay: time.Millisecond,
	MinDelay:     time.Millisecond,
	MaxDelay:     5 * time.Millisecond,
}

func testConfig(keywords ...string) Config {
	return Config{
		Token:     "apify_api_abc",
		Keywords:  keywords,
		ActorID:   "apify/linkedin-posts-scraper",
		RateLimit: 6000,
		Backoff:   fastBackoff,
	}
}

func item(id, text string) RawItem {
	return RawItem{
		PostID:     id,
		Text:       text,
		AuthorName: "Dana",
		PostedAt:   "2025-04-01T10:00:00Z",
	}
}

func TestNewValidatesToken(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig("rwa")
	cfg.Token = "abc"
	_, err := New(ctx, cfg, &fakeClient{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))

	_, err = New(ctx, testConfig("rwa"), &fakeClient{meErr: errors.New("401")}, nil)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))

	s, err := New(ctx, testConfig("rwa"), &fakeClient{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, AllContentTypes(), s.cfg.Types)
}

func TestScrapeMapsAndFiltersItems(t *testing.T) {
	article := item("2", "A long article about tokenized treasuries")
	article.Type = "Article"

	noURL := RawItem{Text: "no link anywhere on this one", PostedAt: "2025-04-01T10:00:00Z"}
	noTime := item("4", "timestamp is missing from this item")
	noTime.PostedAt = ""

	withURL := item("5", "Need advice on RWA custody providers")
	withURL.PostURL = "https://www.linkedin.com/posts/dana_rwa-activity-5?utm_source=share"
	withURL.Reactions = json.RawMessage(`{"total": 7}`)
	withURL.Likes = 2

	fc := &fakeClient{items: map[string][]RawItem{
		"rwa": {
			item("1", "Looking for a partner to tokenize real estate"),
			article,
			item("3", "short"),
			noURL,
			noTime,
			item("6", "We're hiring a Solidity engineer, apply now"),
			withURL,
		},
	}}
	cfg := testConfig("rwa")
	cfg.Types = ContentTypes{Posts: true, Discussions: true}
	s, err := New(context.Background(), cfg, fc, nil)
	require.NoError(t, err)

	res, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Leads, 2)

	assert.Equal(t, "https://www.linkedin.com/feed/update/1", res.Leads[0].URL)
	assert.Equal(t, "rwa", res.Leads[0].Meta("search_query"))
	assert.Equal(t, "https://www.linkedin.com/posts/dana_rwa-activity-5", res.Leads[1].URL)
	assert.Equal(t, 9, res.Leads[1].EngagementScore)

	assert.Equal(t, types.SkipTally{
		types.SkipTypeFiltered: 1,
		types.SkipTooShort:     1,
		types.SkipNoURL:        1,
		types.SkipInvalid:      1,
		types.SkipJobPosting:   1,
	}, res.Skipped)
}

func TestMinReactions(t *testing.T) {
	it := item("1", "Looking for a partner to tokenize real estate")
	it.Likes = 1
	_, reason := toLead(it, "kw", "a", AllContentTypes(), 2)
	assert.Equal(t, types.SkipLowReactions, reason)

	it.Reactions = json.RawMessage(`[{"type":"like"}]`)
	it.Likes = 3
	lead, reason := toLead(it, "kw", "a", AllContentTypes(), 2)
	require.Equal(t, types.SkipNone, reason)
	assert.Equal(t, 3, lead.EngagementScore)
}

func TestScrapeStopsAtLeadCap(t *testing.T) {
	fc := &fakeClient{items: map[string][]RawItem{
		"a": {item("1", "Looking for a partner to tokenize real estate"), item("2", "Need help choosing a custody provider")},
		"b": {item("3", "Any agency doing token launches?")},
	}}
	cfg := testConfig("a", "b", "c")
	cfg.MaxTotalLeads = 2
	s, err := New(context.Background(), cfg, fc, nil)
	require.NoError(t, err)

	res, err := s.Scrape(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Leads, 2)
	assert.Equal(t, 2, res.SkippedTerms)
	assert.Equal(t, 1, fc.runs)
}

func TestRateLimitFeedsAdaptiveDelay(t *testing.T) {
	fc := &fakeClient{runErr: &util.HTTPError{StatusCode: http.StatusTooManyRequests}}
	s, err := New(context.Background(), testConfig("a"), fc, nil)
	require.NoError(t, err)

	before := s.adaptive.CurrentDelay()
	_, err = s.Scrape(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSource))
	assert.Greater(t, s.adaptive.CurrentDelay(), before)
}

func TestActorInputs(t *testing.T) {
	cfg := testConfig("real estate")
	cfg.ActorID = "supreme_coder/linkedin-post"
	s, err := New(context.Background(), cfg, &fakeClient{}, nil)
	require.NoError(t, err)
	in := s.actorInput("real estate")
	assert.Equal(t, []string{"https://www.linkedin.com/search/results/content/?keywords=real%20estate"}, in["urls"])
	assert.Equal(t, 20, in["limit"])

	s.cfg.ActorID = DefaultActor
	s.cfg.Cookie = "li-cookie"
	in = s.actorInput("rwa")
	assert.Equal(t, 20, in["maxPosts"])
	assert.Equal(t, map[string]any{"useApifyProxy": true}, in["proxy"])
	cookies := in["cookie"].([]map[string]string)
	assert.Equal(t, "li_at", cookies[0]["name"])
	assert.Equal(t, "li-cookie", cookies[0]["value"])

	s.cfg.ActorID = "someone/other"
	s.cfg.ScrapeComments = true
	in = s.actorInput("rwa")
	assert.Equal(t, []string{"rwa"}, in["searches"])
	assert.Equal(t, true, in["scrapeComments"])
	assert.Equal(t, false, in["scrapeReactions"])
}

func TestHTTPClientRunsActorAndReadsDataset(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer apify_api_x", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":{"username":"dana"}}`)
	})
	mux.HandleFunc("/v2/acts/curious_coder~linkedin-post-search-scraper/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"maxPosts":5}`, string(body))
		fmt.Fprint(w, `{"data":{"id":"run1","status":"RUNNING","defaultDatasetId":"ds1"}}`)
	})
	mux.HandleFunc("/v2/actor-runs/run1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		fmt.Fprint(w, `{"data":{"id":"run1","status":"SUCCEEDED","defaultDatasetId":"ds1"}}`)
	})
	mux.HandleFunc("/v2/datasets/ds1/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"postId":"9","text":"hello world from linkedin","reactions":{"total":3},"postedAt":"2025-01-01T00:00:00Z"}]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewHTTPClient("apify_api_x", srv.URL)
	ctx := context.Background()

	user, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dana", user)

	run, err := c.RunActor(ctx, DefaultActor, map[string]any{"maxPosts": 5})
	require.NoError(t, err)
	assert.Equal(t, "ds1", run.DefaultDatasetID)
	assert.Equal(t, 1, polls)

	items, err := c.DatasetItems(ctx, run.DefaultDatasetID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].TotalReactions())
}
