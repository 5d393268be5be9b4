package types

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"leadscout/internal/domain"
	"leadscout/internal/ratelimit"
)

// Source is one platform adapter. Scrape returns whatever it could collect;
// a non-nil error means the whole source failed.
type Source interface {
	Name() string
	Keywords() []string
	// TrustsUpstream reports that the platform already matched keywords, so
	// the post-filter must not run.
	TrustsUpstream() bool
	Limiter() ratelimit.Limiter
	Scrape(ctx context.Context) (ScrapeResult, error)
}

type ScrapeResult struct {
	Source  string
	Leads   []domain.Lead
	Skipped SkipTally
	// keywords not attempted because the lead cap was reached
	SkippedTerms int
}

type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipEmptyContent SkipReason = "empty_content"
	SkipBotAuthor    SkipReason = "bot_author"
	SkipRemoved      SkipReason = "removed"
	SkipInvalid      SkipReason = "invalid"
	SkipJobPosting   SkipReason = "job_posting"
	SkipLowReactions SkipReason = "low_reactions"
	SkipTypeFiltered SkipReason = "type_filtered"
	SkipTooShort     SkipReason = "too_short"
	SkipNoKeyword    SkipReason = "no_keyword"
	SkipDuplicate    SkipReason = "duplicate"
	SkipNoURL        SkipReason = "no_url"
)

// SkipTally counts dropped items per reason.
type SkipTally map[SkipReason]int

func (t *SkipTally) Add(r SkipReason) {
	if r == SkipNone {
		return
	}
	if *t == nil {
		*t = SkipTally{}
	}
	(*t)[r]++
}

func (t *SkipTally) Merge(o SkipTally) {
	for r, n := range o {
		if n == 0 {
			continue
		}
		if *t == nil {
			*t = SkipTally{}
		}
		(*t)[r] += n
	}
}

func (t SkipTally) Total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// String renders "reason=n" pairs in a stable order for log lines.
func (t SkipTally) String() string {
	if len(t) == 0 {
		return ""
	}
	keys := make([]string, 0, len(t))
	for r := range t {
		keys = append(keys, string(r))
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(t[SkipReason(k)]))
	}
	return b.String()
}
