package qualify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openai/openai-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
)

type mockClassifier struct {
	name  string
	reply func(prompt string) (string, error)

	mu      sync.Mutex
	calls   int
	prompts []string
}

func (m *mockClassifier) Name() string { return m.name }

func (m *mockClassifier) Complete(_ context.Context, _, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	return m.reply(prompt)
}

func answer(qualified bool, conf float64, services ...string) func(string) (string, error) {
	return func(string) (string, error) {
		b, _ := json.Marshal(map[string]any{
			"is_qualified":     qualified,
			"confidence_score": conf,
			"reason":           "quoted: looking for",
			"service_match":    services,
		})
		return string(b), nil
	}
}

func failing(msg string) func(string) (string, error) {
	return func(string) (string, error) { return "", errors.New(msg) }
}

func inquiry(url string) domain.Lead {
	return domain.Lead{
		Source:    domain.SourceReddit,
		Author:    "dana",
		Content:   "Looking for an agency that can tokenize our real estate fund, any recommendations?",
		Timestamp: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		URL:       url,
	}
}

func TestPrefilter(t *testing.T) {
	cases := []struct {
		name string
		text string
		send bool
	}{
		{"three spam phrases", "Check out our app! Click here and buy now, looking for users", false},
		{"two hiring phrases", "We're hiring! Apply now for this role, looking for devs", false},
		{"help seeking", "Does anyone have experience with RWA custody?", true},
		{"two implicit signals", "Struggling with our token launch, budget for outside work is set", true},
		{"one implicit signal", "Struggling with our token launch", false},
		{"plain discussion", "Tokenization will change real estate forever", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, send := Prefilter(tc.text)
			assert.Equal(t, tc.send, send)
			if !send {
				assert.True(t, v.SkippedLLM)
				assert.False(t, v.IsQualified)
				assert.Zero(t, v.ConfidenceScore)
			}
		})
	}
}

func TestQualifySkipsLLMForSpam(t *testing.T) {
	m := &mockClassifier{name: "openai", reply: answer(true, 0.9)}
	q, err := New(m, nil, "", nil)
	require.NoError(t, err)

	lead := inquiry("https://x/1")
	lead.Content = "Check out our platform, our platform offers the best rates. Click here! Buy now!"
	res := q.Qualify(context.Background(), lead)

	assert.True(t, res.SkippedLLM)
	assert.False(t, res.IsQualified)
	assert.Equal(t, 0, m.calls)
}

func TestParseResponse(t *testing.T) {
	res, err := ParseResponse("```json\n{\"is_qualified\": \"true\", \"confidence_score\": \"1.7\", \"reason\": \"asks\", \"service_match\": \"AI/ML\"}\n```")
	require.NoError(t, err)
	assert.True(t, res.IsQualified)
	assert.Equal(t, 1.0, res.ConfidenceScore)
	assert.Equal(t, []string{"AI/ML"}, res.ServiceMatch)

	res, err = ParseResponse(`{"is_qualified": 0, "confidence_score": -2, "reason": "no", "service_match": null}`)
	require.NoError(t, err)
	assert.False(t, res.IsQualified)
	assert.Equal(t, 0.0, res.ConfidenceScore)
	assert.Equal(t, []string{}, res.ServiceMatch)

	_, err = ParseResponse(`{"is_qualified": true, "confidence_score": 0.5, "reason": "x"}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrClassification))
	assert.Contains(t, err.Error(), "service_match")

	_, err = ParseResponse("Sure! Here is my answer.")
	assert.True(t, errors.Is(err, errors.ErrClassification))

	_, err = ParseResponse(`{"is_qualified": "maybe", "confidence_score": 0.5, "reason": "x", "service_match": []}`)
	assert.Error(t, err)
}

func TestQualifyFallsBack(t *testing.T) {
	primary := &mockClassifier{name: "openai", reply: failing("429 quota exceeded")}
	fallback := &mockClassifier{name: "gemini", reply: answer(true, 0.85, "RWA Tokenization")}
	q, err := New(primary, fallback, "", nil)
	require.NoError(t, err)

	res := q.Qualify(context.Background(), inquiry("https://x/1"))
	assert.True(t, res.IsQualified)
	assert.Equal(t, "gemini", res.LLMProvider)
	assert.Empty(t, res.Error)
	require.Len(t, fallback.prompts, 1)
	assert.True(t, strings.HasSuffix(fallback.prompts[0], JSONOnlySuffix))
	assert.Equal(t, strings.TrimSuffix(fallback.prompts[0], JSONOnlySuffix), primary.prompts[0])
}

func TestQualifyFallsBackOnBadJSON(t *testing.T) {
	primary := &mockClassifier{name: "openai", reply: func(string) (string, error) { return `{"is_qualified": true}`, nil }}
	fallback := &mockClassifier{name: "gemini", reply: answer(false, 0.2)}
	q, _ := New(primary, fallback, "", nil)

	res := q.Qualify(context.Background(), inquiry("https://x/1"))
	assert.Equal(t, "gemini", res.LLMProvider)
	assert.Equal(t, 1, fallback.calls)
}

func TestQualifyBothFail(t *testing.T) {
	q, _ := New(
		&mockClassifier{name: "openai", reply: failing("invalid api key")},
		&mockClassifier{name: "gemini", reply: failing("quota")},
		"", nil)

	res := q.Qualify(context.Background(), inquiry("https://x/1"))
	assert.False(t, res.IsQualified)
	assert.Zero(t, res.ConfidenceScore)
	assert.True(t, strings.HasPrefix(res.Error, "primary: "), res.Error)
	assert.Contains(t, res.Error, "invalid api key")
	assert.Contains(t, res.Error, "; fallback: ")
	assert.Contains(t, res.Error, "quota")
}

func TestQualifyWithoutFallback(t *testing.T) {
	q, _ := New(&mockClassifier{name: "openai", reply: failing("invalid api key")}, nil, "", nil)
	res := q.Qualify(context.Background(), inquiry("https://x/1"))
	assert.False(t, res.IsQualified)
	assert.Contains(t, res.Error, "invalid api key")
	assert.NotContains(t, res.Error, "fallback")
}

func TestTargetFilter(t *testing.T) {
	q, _ := New(&mockClassifier{name: "openai", reply: answer(true, 0.9, "AI/ML")}, nil, "RWA", nil)
	res := q.Qualify(context.Background(), inquiry("https://x/1"))
	assert.False(t, res.IsQualified)
	assert.Equal(t, 0.9, res.ConfidenceScore)
	assert.Contains(t, res.Reason, "Filtered")

	q, _ = New(&mockClassifier{name: "openai", reply: answer(true, 0.9, "RWA Tokenization")}, nil, "RWA", nil)
	assert.True(t, q.Qualify(context.Background(), inquiry("https://x/1")).IsQualified)

	assert.True(t, MatchesTarget([]string{"ai"}, "AI/ML"))
	assert.True(t, MatchesTarget([]string{"Crypto/Web3"}, "Crypto"))
	assert.True(t, MatchesTarget([]string{"Crypto/Web3"}, "Web3"))
	assert.True(t, MatchesTarget([]string{"RWA Tokenization"}, "rwa"))
	assert.False(t, MatchesTarget([]string{"Blockchain"}, "AI"))
	assert.False(t, MatchesTarget(nil, "RWA"))
	assert.True(t, MatchesTarget(nil, ""))
}

func TestBuildPrompt(t *testing.T) {
	lead := inquiry("https://x/1")
	lead.Title = "Need a partner"
	lead.Content = strings.Repeat("é", 2500)

	p := BuildPrompt(lead, "")
	assert.Contains(t, p, "Need a partner\n\n"+strings.Repeat("é", 2000)+"\n")
	assert.NotContains(t, p, strings.Repeat("é", 2001))
	assert.NotContains(t, p, "MANDATORY FILTER")
	for _, s := range Services {
		assert.Contains(t, p, s)
	}

	p = BuildPrompt(lead, "Crypto")
	assert.Contains(t, p, "MANDATORY FILTER: CRYPTO SERVICE ONLY")
}

func TestQualifyAllPreservesOrder(t *testing.T) {
	delays := map[string]time.Duration{"A": 60 * time.Millisecond, "B": 0, "C": 30 * time.Millisecond}
	m := &mockClassifier{name: "openai", reply: func(prompt string) (string, error) {
		for tag, d := range delays {
			if strings.Contains(prompt, "tag-"+tag) {
				time.Sleep(d)
				return fmt.Sprintf(`{"is_qualified": true, "confidence_score": 0.5, "reason": %q, "service_match": []}`, tag), nil
			}
		}
		return "", errors.New("unknown lead")
	}}
	q, _ := New(m, nil, "", nil)

	var leads []domain.Lead
	for _, tag := range []string{"A", "B", "C"} {
		l := inquiry("https://x/" + tag)
		l.Title = "tag-" + tag
		leads = append(leads, l)
	}

	res := q.QualifyAll(context.Background(), leads, 3, 0)
	require.Len(t, res, 3)
	assert.Equal(t, "A", res[0].Reason)
	assert.Equal(t, "B", res[1].Reason)
	assert.Equal(t, "C", res[2].Reason)
}

type panicky struct{}

func (panicky) Name() string { return "openai" }
func (panicky) Complete(_ context.Context, _, prompt string) (string, error) {
	if strings.Contains(prompt, "explode") {
		panic("nil map")
	}
	return `{"is_qualified": true, "confidence_score": 0.9, "reason": "ok", "service_match": ["Blockchain"]}`, nil
}

func TestQualifyAllIsolatesPanics(t *testing.T) {
	q, _ := New(panicky{}, nil, "", nil)
	leads := []domain.Lead{inquiry("https://x/1"), inquiry("https://x/2"), inquiry("https://x/3")}
	leads[1].Title = "explode"

	res := q.QualifyAll(context.Background(), leads, 2, 0)
	assert.True(t, res[0].IsQualified)
	assert.False(t, res[1].IsQualified)
	assert.Contains(t, res[1].Error, "nil map")
	assert.True(t, res[2].IsQualified)
}

func TestQualifyAllCancelledAndCapped(t *testing.T) {
	m := &mockClassifier{name: "openai", reply: answer(true, 0.9)}
	q, _ := New(m, nil, "", nil)
	leads := []domain.Lead{inquiry("https://x/1"), inquiry("https://x/2"), inquiry("https://x/3")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := q.QualifyAll(ctx, leads, 1, 0)
	require.Len(t, res, 3)
	for _, r := range res {
		assert.Equal(t, "context canceled", r.Error)
	}
	assert.Equal(t, 0, m.calls)

	res = q.QualifyAll(context.Background(), leads, 5, 2)
	assert.Len(t, res, 2)
}

func TestStatsAndAttach(t *testing.T) {
	results := []domain.Qualification{
		{IsQualified: true, ConfidenceScore: 0.9},
		{SkippedLLM: true},
		{Error: "boom"},
		{IsQualified: true, ConfidenceScore: 0.7},
	}
	s := Stats(results)
	assert.Equal(t, Summary{Total: 4, Qualified: 2, SkippedLLM: 1, LLMCalled: 3}, s)
	assert.Equal(t, 0.5, s.Rate())

	leads := []domain.Lead{inquiry("https://x/1"), inquiry("https://x/2")}
	Attach(leads, results)
	require.NotNil(t, leads[1].Qualification)
	assert.True(t, leads[1].Qualification.SkippedLLM)
	assert.Equal(t, 0.9, leads[0].Qualification.ConfidenceScore)
}

func TestChatClassifierRequest(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4-turbo",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"ok\":true}"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	out, err := c.Complete(context.Background(), SystemPrompt, "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, DefaultOpenAIModel, body["model"])
	assert.Equal(t, 0.2, body["temperature"])
	assert.EqualValues(t, 300, body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "hello", msgs[1].(map[string]any)["content"])
}

func TestChatClassifierSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := NewGemini("k", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	assert.Equal(t, "gemini", c.Name())
	_, err := c.Complete(context.Background(), SystemPrompt, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini chat completion")
}
