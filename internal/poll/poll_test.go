package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/ratelimit"
	"leadscout/internal/scrape/types"
	"leadscout/internal/scrape/util"
)

type stubSource struct {
	name  string
	leads []domain.Lead
	err   error
	panic bool
	block bool
}

func (s *stubSource) Name() string               { return s.name }
func (s *stubSource) Keywords() []string         { return nil }
func (s *stubSource) TrustsUpstream() bool       { return true }
func (s *stubSource) Limiter() ratelimit.Limiter { return nil }

func (s *stubSource) Scrape(ctx context.Context) (types.ScrapeResult, error) {
	if s.panic {
		panic("boom")
	}
	if s.block {
		<-ctx.Done()
		return types.ScrapeResult{}, ctx.Err()
	}
	return types.ScrapeResult{Leads: s.leads, Skipped: types.SkipTally{types.SkipBotAuthor: 1}}, s.err
}

const goodContent = "We are looking for a team that can help us tokenize our real estate portfolio this quarter"

func lead(url string, engagement int) domain.Lead {
	return domain.Lead{
		Source:          domain.SourceReddit,
		Author:          "dana",
		Content:         goodContent,
		Timestamp:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		URL:             url,
		EngagementScore: engagement,
	}
}

func urls(leads []domain.Lead) []string {
	out := make([]string, len(leads))
	for i, l := range leads {
		out[i] = l.URL
	}
	return out
}

func TestPollOnceIsolatesFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	sources := []types.Source{
		&stubSource{name: "reddit", leads: []domain.Lead{lead("https://r/1", 5), lead("https://r/2", 5)}},
		&stubSource{name: "discord", err: errors.New("401 unauthorized")},
		&stubSource{name: "slack", panic: true},
		&stubSource{name: "linkedin", leads: []domain.Lead{lead("https://l/1", 0)}},
	}

	res, err := PollOnce(context.Background(), sources, nil, Options{Log: zap.New(core)})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://r/1", "https://r/2", "https://l/1"}, urls(res.Leads))
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "discord", res.Failures[0].Source)
	assert.Equal(t, "slack", res.Failures[1].Source)
	for _, f := range res.Failures {
		assert.True(t, errors.Is(f.Err, errors.ErrSource), f.Source)
	}
	assert.Contains(t, res.Failures[1].Err.Error(), "panic")

	assert.Equal(t, 2, logs.FilterMessage("source failed").Len())
	assert.Equal(t, map[string]int{"reddit": 2, "linkedin": 1}, res.PerSource)
	assert.Equal(t, 1, res.Skipped["reddit"][types.SkipBotAuthor])
}

func TestPollOnceFiltersDedupsAndCaps(t *testing.T) {
	spam := lead("https://r/spam", 10)
	spam.Content = "too short"

	sources := []types.Source{
		&stubSource{name: "a", leads: []domain.Lead{
			lead("https://x/1", 3),
			lead("https://x/old", 3),
			spam,
			lead("https://x/low", 0),
		}},
		&stubSource{name: "b", leads: []domain.Lead{
			lead("https://x/1", 3),
			lead("https://x/2", 3),
			lead("https://x/3", 3),
		}},
	}
	existing := NewURLSet([]domain.Lead{lead("https://x/old", 0)})

	res, err := PollOnce(context.Background(), sources, existing, Options{MinEngagement: 1, MaxTotalLeads: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://x/1", "https://x/2"}, urls(res.Leads))
	assert.Equal(t, 2, res.Filtered)
	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, 1, res.Capped)
}

func TestPollOnceDedupsOnCanonicalURL(t *testing.T) {
	sources := []types.Source{
		&stubSource{name: "linkedin", leads: []domain.Lead{
			lead(util.CanonicalizeURL("https://www.linkedin.com/posts/x?utm_source=a"), 5),
			lead(util.CanonicalizeURL("https://www.reddit.com/r/web3/comments/abc/?utm_medium=share"), 5),
		}},
		&stubSource{name: "linkedin_public", leads: []domain.Lead{
			lead(util.CanonicalizeURL("https://www.linkedin.com/posts/x"), 5),
			lead(util.CanonicalizeURL("https://www.reddit.com/r/web3/comments/abd/"), 5),
		}},
	}

	res, err := PollOnce(context.Background(), sources, nil, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://www.linkedin.com/posts/x",
		"https://www.reddit.com/r/web3/comments/abc/",
		"https://www.reddit.com/r/web3/comments/abd/",
	}, urls(res.Leads))
	assert.Equal(t, 1, res.Duplicates)
}

func TestPollOnceNoFilter(t *testing.T) {
	short := lead("https://x/short", 0)
	short.Content = "hi"
	res, err := PollOnce(context.Background(),
		[]types.Source{&stubSource{name: "a", leads: []domain.Lead{short}}},
		nil, Options{NoFilter: true, MinEngagement: 5})
	require.NoError(t, err)
	assert.Len(t, res.Leads, 1)
}

func TestPollOnceSourceTimeout(t *testing.T) {
	var done atomic.Int32
	sources := []types.Source{
		&stubSource{name: "slow", block: true},
		&stubSource{name: "fast", leads: []domain.Lead{lead("https://x/1", 1)}},
	}
	res, err := PollOnce(context.Background(), sources, nil, Options{
		SourceTimeout: 20 * time.Millisecond,
		OnSource:      func(string, types.ScrapeResult, error) { done.Add(1) },
	})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "slow", res.Failures[0].Source)
	assert.Contains(t, res.Failures[0].Error(), "timed out")
	assert.Len(t, res.Leads, 1)
	assert.EqualValues(t, 2, done.Load())
}

func TestPollOnceWithoutSources(t *testing.T) {
	_, err := PollOnce(context.Background(), nil, nil, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestPollerTracksStatus(t *testing.T) {
	calls := 0
	p := NewPoller(func(context.Context) (int, error) {
		calls++
		if calls == 2 {
			return 0, errors.New("store locked")
		}
		return 4, nil
	}, func() time.Duration { return time.Millisecond }, nil)

	require.NoError(t, p.RunOnce(context.Background()))
	st := p.Status()
	assert.Equal(t, 4, st.LastAdded)
	assert.False(t, st.LastOkAt.IsZero())
	assert.False(t, st.Running)

	require.Error(t, p.RunOnce(context.Background()))
	st = p.Status()
	assert.Equal(t, "store locked", st.LastError)
	assert.Equal(t, 2, st.Runs)
}

func TestPollerRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	p := NewPoller(func(context.Context) (int, error) {
		if runs.Add(1) == 3 {
			cancel()
		}
		return 0, nil
	}, func() time.Duration { return time.Millisecond }, nil)

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	assert.EqualValues(t, 3, runs.Load())
}
