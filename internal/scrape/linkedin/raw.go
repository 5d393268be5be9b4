package linkedin

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"leadscout/internal/domain"
	"leadscout/internal/phrase"
	"leadscout/internal/scrape/types"
	"leadscout/internal/scrape/util"
)

const minContentChars = 10

// RawItem is one dataset row. Actors disagree on field names, so most
// fields are alternatives for the same thing.
type RawItem struct {
	Type             string          `json:"type"`
	Text             string          `json:"text"`
	Commentary       string          `json:"commentary"`
	Description      string          `json:"description"`
	AuthorName       string          `json:"authorName"`
	AuthorProfileURL string          `json:"authorProfileUrl"`
	PostedAt         string          `json:"postedAt"`
	CreatedAt        string          `json:"createdAt"`
	PostURL          string          `json:"postUrl"`
	URL              string          `json:"url"`
	PostID           string          `json:"postId"`
	Title            string          `json:"title"`
	Headline         string          `json:"headline"`
	Likes            int             `json:"likes"`
	Reactions        json.RawMessage `json:"reactions"`
	CommentsCount    int             `json:"commentsCount"`
}

// TotalReactions is reactions.total (when reactions is an object) plus likes.
func (it RawItem) TotalReactions() int {
	total := 0
	r := bytes.TrimSpace(it.Reactions)
	if len(r) > 0 && r[0] == '{' {
		var obj struct {
			Total int `json:"total"`
		}
		if json.Unmarshal(r, &obj) == nil {
			total = obj.Total
		}
	}
	return total + it.Likes
}

func (it RawItem) kind() string {
	k := strings.ToLower(strings.TrimSpace(it.Type))
	if k == "" {
		return "post"
	}
	return k
}

func (it RawItem) content() string {
	for _, c := range []string{it.Text, it.Commentary, it.Description} {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

func (it RawItem) link() string {
	switch {
	case it.PostURL != "":
		return it.PostURL
	case it.URL != "":
		return it.URL
	case it.PostID != "":
		return "https://www.linkedin.com/feed/update/" + it.PostID
	}
	return ""
}

// ContentTypes selects which item kinds are kept.
type ContentTypes struct {
	Posts       bool
	Articles    bool
	Discussions bool
}

func AllContentTypes() ContentTypes { return ContentTypes{Posts: true, Articles: true, Discussions: true} }

func (c ContentTypes) allows(kind string) bool {
	switch kind {
	case "post":
		return c.Posts
	case "article":
		return c.Articles
	case "discussion", "thread":
		return c.Discussions
	}
	return true
}

// IsJobPosting flags recruiting content.
func IsJobPosting(text string) bool { return phrase.JobPosting.Any(text) }

func toLead(it RawItem, keyword, actorID string, kinds ContentTypes, minReactions int) (domain.Lead, types.SkipReason) {
	if !kinds.allows(it.kind()) {
		return domain.Lead{}, types.SkipTypeFiltered
	}
	reactions := it.TotalReactions()
	if reactions < minReactions {
		return domain.Lead{}, types.SkipLowReactions
	}

	content := it.content()
	if strings.TrimSpace(content) == "" {
		return domain.Lead{}, types.SkipEmptyContent
	}
	if len([]rune(strings.TrimSpace(content))) < minContentChars {
		return domain.Lead{}, types.SkipTooShort
	}

	link := it.link()
	if link == "" {
		return domain.Lead{}, types.SkipNoURL
	}

	stamp := it.PostedAt
	if stamp == "" {
		stamp = it.CreatedAt
	}
	ts, err := domain.ParseTimestamp(stamp)
	if err != nil {
		return domain.Lead{}, types.SkipInvalid
	}

	if IsJobPosting(content) {
		return domain.Lead{}, types.SkipJobPosting
	}

	author := strings.TrimSpace(it.AuthorName)
	if author == "" {
		author = "LinkedIn User"
	}
	title := it.Title
	if title == "" {
		title = it.Headline
	}

	meta := map[string]string{
		"search_query":  keyword,
		"comment_count": strconv.Itoa(it.CommentsCount),
		"via_apify":     "true",
		"actor":         actorID,
		"post_type":     it.kind(),
	}
	if it.PostID != "" {
		meta["post_id"] = it.PostID
	}
	if it.AuthorProfileURL != "" {
		meta["author_profile"] = it.AuthorProfileURL
	}

	lead, err := domain.NewLead(domain.Lead{
		Source:          domain.SourceLinkedIn,
		Author:          author,
		Content:         content,
		Title:           title,
		Timestamp:       ts,
		URL:             util.CanonicalizeURL(link),
		EngagementScore: reactions,
		Metadata:        meta,
	})
	if err != nil {
		return domain.Lead{}, types.SkipInvalid
	}
	return lead, types.SkipNone
}
