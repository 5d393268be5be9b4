// Package rank tags leads with the service categories their text mentions
// and summarizes stored leads for the analyze report.
package rank

import (
	"sort"
	"strings"

	"leadscout/internal/domain"
	"leadscout/internal/phrase"
)

const (
	// MetaServiceTags holds the comma-joined categories on a lead.
	MetaServiceTags = "service_tags"
	// General is the tag for text that mentions no category.
	General = "General"
)

// Tagger matches lead text against named phrase sets.
type Tagger struct {
	sets []phrase.Set
}

// NewTagger builds one set per category; categories are checked in name
// order so tags come out sorted.
func NewTagger(services map[string][]string) Tagger {
	names := make([]string, 0, len(services))
	for n := range services {
		names = append(names, n)
	}
	sort.Strings(names)

	t := Tagger{sets: make([]phrase.Set, 0, len(names))}
	for _, n := range names {
		t.sets = append(t.sets, phrase.NewSet(n, services[n]...))
	}
	return t
}

// Tags returns every category mentioned in the content or title, or
// [General] when none is.
func (t Tagger) Tags(l domain.Lead) []string {
	text := l.Content + " " + l.Title
	var out []string
	for _, s := range t.sets {
		if s.Any(text) {
			out = append(out, s.Name)
		}
	}
	if len(out) == 0 {
		return []string{General}
	}
	return out
}

// Apply writes each lead's tags into its metadata.
func (t Tagger) Apply(leads []domain.Lead) {
	for i := range leads {
		if leads[i].Metadata == nil {
			leads[i].Metadata = map[string]string{}
		}
		leads[i].Metadata[MetaServiceTags] = strings.Join(t.Tags(leads[i]), ",")
	}
}

// LooksLikeJobPosting uses the broad job keyword list. It over-matches on
// purpose for the report; scraping uses the narrower phrase.JobPosting.
func LooksLikeJobPosting(text string) bool {
	return phrase.JobPostingBroad.Any(text)
}
