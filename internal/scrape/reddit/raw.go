package reddit

import (
	"math"
	"strconv"
	"strings"
	"time"

	"leadscout/internal/domain"
	"leadscout/internal/scrape/types"
)

const baseURL = "https://reddit.com"

// RawPost is the subset of a t3 listing child we read.
type RawPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	IsSelf      bool    `json:"is_self"`
	Subreddit   string  `json:"subreddit"`
}

// RawComment is a t1 child.
type RawComment struct {
	ID         string  `json:"id"`
	Body       string  `json:"body"`
	Author     string  `json:"author"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
	Score      int     `json:"score"`
}

func postToLead(p RawPost, subreddit string) (domain.Lead, types.SkipReason) {
	title := strings.TrimSpace(p.Title)
	content := title
	if strings.TrimSpace(p.Selftext) != "" {
		content = title + "\n\n" + p.Selftext
	}
	if strings.TrimSpace(content) == "" {
		return domain.Lead{}, types.SkipEmptyContent
	}

	lead, err := domain.NewLead(domain.Lead{
		Source:          domain.SourceReddit,
		Author:          authorOrDeleted(p.Author),
		Content:         content,
		Title:           title,
		Timestamp:       fromUnix(p.CreatedUTC),
		URL:             baseURL + p.Permalink,
		EngagementScore: p.Score,
		Subreddit:       subreddit,
		Metadata: map[string]string{
			"post_id":      p.ID,
			"num_comments": strconv.Itoa(p.NumComments),
			"post_type":    "submission",
			"is_self":      strconv.FormatBool(p.IsSelf),
		},
	})
	if err != nil {
		return domain.Lead{}, types.SkipInvalid
	}
	return lead, types.SkipNone
}

func commentToLead(c RawComment, parent RawPost, subreddit string) (domain.Lead, types.SkipReason) {
	body := strings.TrimSpace(c.Body)
	if body == "" {
		return domain.Lead{}, types.SkipEmptyContent
	}
	if body == "[deleted]" || body == "[removed]" {
		return domain.Lead{}, types.SkipRemoved
	}

	lead, err := domain.NewLead(domain.Lead{
		Source:          domain.SourceReddit,
		Author:          authorOrDeleted(c.Author),
		Content:         c.Body,
		Title:           parent.Title,
		Timestamp:       fromUnix(c.CreatedUTC),
		URL:             baseURL + c.Permalink,
		EngagementScore: c.Score,
		Subreddit:       subreddit,
		Metadata: map[string]string{
			"comment_id":        c.ID,
			"post_id":           parent.ID,
			"post_type":         "comment",
			"parent_post_title": parent.Title,
		},
	})
	if err != nil {
		return domain.Lead{}, types.SkipInvalid
	}
	return lead, types.SkipNone
}

func authorOrDeleted(a string) string {
	if strings.TrimSpace(a) == "" {
		return "[deleted]"
	}
	return a
}

func fromUnix(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
