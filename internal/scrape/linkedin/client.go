package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leadscout/internal/errors"
	"leadscout/internal/scrape/util"
)

// Run is the part of an actor run we track.
type Run struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

func (r Run) finished() bool {
	switch r.Status {
	case "SUCCEEDED", "FAILED", "ABORTED", "TIMED-OUT":
		return true
	}
	return false
}

type Client interface {
	// Me returns the account username; it doubles as a token check.
	Me(ctx context.Context) (string, error)
	// RunActor starts an actor and blocks until the run finishes.
	RunActor(ctx context.Context, actorID string, input map[string]any) (Run, error)
	DatasetItems(ctx context.Context, datasetID string) ([]RawItem, error)
}

type HTTPClient struct {
	hc      *http.Client
	token   string
	apiBase string
	// server-side wait per poll, seconds
	waitSecs int
	retry    util.RetryConfig
}

func NewHTTPClient(token, apiBase string) *HTTPClient {
	if apiBase == "" {
		apiBase = "https://api.apify.com"
	}
	return &HTTPClient{
		hc:       &http.Client{Timeout: 90 * time.Second},
		token:    token,
		apiBase:  strings.TrimRight(apiBase, "/"),
		waitSecs: 60,
		// rate limiting is reported to the adaptive limiter, not retried here
		retry: util.NoRetry(),
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, q url.Values, body any, out any) error {
	u := c.apiBase + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode apify input")
		}
		payload = b
	}
	return util.DoJSON(ctx, c.hc, func(ctx context.Context) (*http.Request, error) {
		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rdr)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}, out, c.retry)
}

func (c *HTTPClient) Me(ctx context.Context) (string, error) {
	var out struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/users/me", nil, nil, &out); err != nil {
		return "", errors.Wrap(err, "apify users/me")
	}
	return out.Data.Username, nil
}

// actorPath turns "user/actor" into the "user~actor" form the API expects.
func actorPath(actorID string) string {
	return url.PathEscape(strings.ReplaceAll(actorID, "/", "~"))
}

func (c *HTTPClient) RunActor(ctx context.Context, actorID string, input map[string]any) (Run, error) {
	wait := url.Values{"waitForFinish": {strconv.Itoa(c.waitSecs)}}

	var started struct {
		Data Run `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/acts/"+actorPath(actorID)+"/runs", wait, input, &started); err != nil {
		return Run{}, errors.Wrapf(err, "apify run %s", actorID)
	}

	run := started.Data
	for !run.finished() {
		if run.ID == "" {
			return Run{}, errors.Newf("apify run %s: no run id", actorID)
		}
		var polled struct {
			Data Run `json:"data"`
		}
		if err := c.do(ctx, http.MethodGet, "/v2/actor-runs/"+url.PathEscape(run.ID), wait, nil, &polled); err != nil {
			return Run{}, errors.Wrapf(err, "apify poll run %s", run.ID)
		}
		run = polled.Data
	}
	if run.Status != "SUCCEEDED" {
		return run, errors.Newf("apify run %s ended %s", run.ID, run.Status)
	}
	return run, nil
}

func (c *HTTPClient) DatasetItems(ctx context.Context, datasetID string) ([]RawItem, error) {
	var items []RawItem
	q := url.Values{"format": {"json"}, "clean": {"true"}}
	if err := c.do(ctx, http.MethodGet, "/v2/datasets/"+url.PathEscape(datasetID)+"/items", q, nil, &items); err != nil {
		return nil, errors.Wrapf(err, "apify dataset %s", datasetID)
	}
	return items, nil
}
