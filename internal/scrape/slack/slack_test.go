package slack

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leadscout/internal/errors"
	"leadscout/internal/scrape/types"
)

type fakeClient struct {
	pages     map[string][]RawMessage // keyed by cursor
	next      map[string]string
	users     map[string]RawUser
	userCalls int
	cursors   []string
}

func (f *fakeClient) ChannelName(context.Context, string) (string, error) { return "general", nil }

func (f *fakeClient) History(_ context.Context, _ string, cursor string, _ int) ([]RawMessage, string, error) {
	f.cursors = append(f.cursors, cursor)
	return f.pages[cursor], f.next[cursor], nil
}

func (f *fakeClient) User(_ context.Context, id string) (RawUser, error) {
	f.userCalls++
	u, ok := f.users[id]
	if !ok {
		return RawUser{}, errors.New("user_not_found")
	}
	return u, nil
}

func textMsg(user, text, ts string) RawMessage {
	return RawMessage{Type: "message", User: user, Text: text, TS: ts}
}

func TestScrapePagesAndResolvesAuthors(t *testing.T) {
	first := make([]RawMessage, 0, 100)
	for i := 0; i < 100; i++ {
		first = append(first, textMsg("U1", "message", fmt.Sprintf("17000000%02d.000100", i)))
	}
	first[0].BotID = "B1"
	first[1].Text = ""

	fc := &fakeClient{
		pages: map[string][]RawMessage{
			"":   first,
			"c2": {textMsg("U2", "need an agency", "1700000200.5")},
			"c3": {textMsg("U3", "same here, any agency tips", "1700000300.5")},
		},
		next:  map[string]string{"": "c2", "c2": "c3"},
		users: map[string]RawUser{"U1": {ID: "U1", Name: "alice", RealName: "Alice A"}},
	}
	s, err := New(Config{BotToken: "xoxb", Channels: []string{"C1"}, RateLimit: 1000}, fc, zap.NewNop())
	require.NoError(t, err)

	res, err := s.Scrape(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"", "c2", "c3"}, fc.cursors[:3])
	assert.Len(t, res.Leads, 98+1+1)
	assert.Equal(t, 1, res.Skipped[types.SkipBotAuthor])
	assert.Equal(t, 1, res.Skipped[types.SkipEmptyContent])

	assert.Equal(t, "Alice A", res.Leads[0].Author)
	assert.Equal(t, "general", res.Leads[0].ChannelName)
	assert.Equal(t, "U2", res.Leads[98].Author, "failed lookup falls back to the id")
	assert.Equal(t, 3, fc.userCalls, "one lookup per user")
}

func TestToLead(t *testing.T) {
	m := textMsg("U1", "looking for a consultant", "1700000000.000100")
	m.Reactions = []struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}{{Name: "eyes", Count: 3}, {Name: "+1", Count: 2}}
	m.ThreadTS = "1699999999.000001"

	lead, reason := toLead(m, "C1", "general", "Alice")
	require.Equal(t, types.SkipNone, reason)
	assert.Equal(t, 5, lead.EngagementScore)
	assert.Equal(t, "https://slack.com/app_redirect?channel=C1&message_ts=1700000000.000100", lead.URL)
	assert.Equal(t, time.Unix(1700000000, 100000).UTC(), lead.Timestamp)
	assert.Equal(t, "1699999999.000001", lead.Meta("thread_ts"))
	assert.Equal(t, "false", lead.Meta("has_files"))

	m.TS = "garbage"
	_, reason = toLead(m, "C1", "general", "Alice")
	assert.Equal(t, types.SkipInvalid, reason)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Real", RawUser{Name: "n", RealName: "Real"}.DisplayName("U"))
	assert.Equal(t, "n", RawUser{Name: "n"}.DisplayName("U"))
	assert.Equal(t, "U", RawUser{}.DisplayName("U"))
}

func TestHTTPClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer xoxb", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/conversations.info":
			fmt.Fprint(w, `{"ok":false,"error":"channel_not_found"}`)
		case "/conversations.history":
			assert.Equal(t, "cur", r.URL.Query().Get("cursor"))
			fmt.Fprint(w, `{"ok":true,"messages":[{"user":"U1","text":"hi","ts":"1.2"}],"response_metadata":{"next_cursor":"n2"}}`)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient("xoxb", srv.URL)
	_, err := c.ChannelName(context.Background(), "C1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "channel_not_found", apiErr.Code)

	msgs, next, err := c.History(context.Background(), "C1", "cur", pageSize)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Equal(t, "n2", next)
}
