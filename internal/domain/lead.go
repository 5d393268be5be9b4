package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"leadscout/internal/errors"
	"leadscout/internal/phrase"
)

type Source string

const (
	SourceReddit         Source = "reddit"
	SourceDiscord        Source = "discord"
	SourceSlack          Source = "slack"
	SourceLinkedIn       Source = "linkedin"
	SourceLinkedInPublic Source = "linkedin_public"
)

var Sources = []Source{SourceReddit, SourceDiscord, SourceSlack, SourceLinkedIn, SourceLinkedInPublic}

func (s Source) Valid() bool {
	for _, v := range Sources {
		if s == v {
			return true
		}
	}
	return false
}

const MaxContentLength = 10000

// Lead is one observed post, comment, or message. Build it with NewLead;
// the zero value is not a valid lead.
type Lead struct {
	Source          Source            `json:"source"`
	Author          string            `json:"author"`
	Content         string            `json:"content"`
	Title           string            `json:"title,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
	URL             string            `json:"url"`
	EngagementScore int               `json:"engagement_score"`
	ChannelName     string            `json:"channel_name,omitempty"`
	Subreddit       string            `json:"subreddit,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`

	Qualification *Qualification `json:"qualification_result,omitempty"`
}

// ValidationError names the first field that broke a Lead invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid lead: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == errors.ErrValidation
}

// NewLead validates l and returns it. On failure the returned Lead is the
// zero value so a half-checked record never escapes.
func NewLead(l Lead) (Lead, error) {
	if err := l.Validate(); err != nil {
		return Lead{}, err
	}
	if l.Metadata == nil {
		l.Metadata = map[string]string{}
	}
	return l, nil
}

func (l Lead) Validate() error {
	switch {
	case !l.Source.Valid():
		return &ValidationError{Field: "source", Reason: fmt.Sprintf("unknown source %q", l.Source)}
	case strings.TrimSpace(l.Author) == "":
		return &ValidationError{Field: "author", Reason: "empty"}
	case strings.TrimSpace(l.Content) == "":
		return &ValidationError{Field: "content", Reason: "empty"}
	case utf8.RuneCountInString(l.Content) > MaxContentLength:
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("longer than %d characters", MaxContentLength)}
	case !strings.HasPrefix(l.URL, "http://") && !strings.HasPrefix(l.URL, "https://"):
		return &ValidationError{Field: "url", Reason: fmt.Sprintf("not an http(s) url: %q", l.URL)}
	case l.Timestamp.IsZero():
		return &ValidationError{Field: "timestamp", Reason: "missing"}
	case l.EngagementScore < 0:
		return &ValidationError{Field: "engagement_score", Reason: "negative"}
	}
	return nil
}

// MatchesKeywords reports whether any keyword appears in the content or
// title, ignoring case.
func (l Lead) MatchesKeywords(keywords []string) bool {
	return phrase.ContainsAny(l.Content, keywords) || phrase.ContainsAny(l.Title, keywords)
}

// IsQualifiedBasic is the LLM-free quality gate run right after scraping.
func (l Lead) IsQualifiedBasic(minEngagement int) bool {
	if phrase.WordCount(l.Content) < 10 {
		return false
	}
	if l.EngagementScore < minEngagement {
		return false
	}
	return !LooksLikeSpam(l.Content)
}

// LooksLikeSpam trips on several spam phrases, or on short content stuffed
// with promotional words.
func LooksLikeSpam(content string) bool {
	if phrase.Spam.AtLeast(content, phrase.SpamThreshold) {
		return true
	}
	return phrase.WordCount(content) < phrase.ShortContentWords &&
		phrase.Promotional.AtLeast(content, phrase.PromotionalThreshold)
}

// Meta returns a metadata value or "".
func (l Lead) Meta(key string) string {
	if l.Metadata == nil {
		return ""
	}
	return l.Metadata[key]
}

// UnmarshalJSON decodes and re-validates. Naive timestamps without an offset
// (written by older tooling) are read as UTC.
func (l *Lead) UnmarshalJSON(b []byte) error {
	type plain Lead
	var aux struct {
		plain
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return &ValidationError{Field: "timestamp", Reason: err.Error()}
	}

	out := Lead(aux.plain)
	out.Timestamp = ts
	if err := out.Validate(); err != nil {
		return err
	}
	*l = out
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf("unrecognized timestamp %q", s)
}
