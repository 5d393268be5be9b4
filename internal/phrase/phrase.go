// Package phrase holds every fixed phrase list the pipeline scans text with,
// and the one matcher they all share.
//
// Two gates count spam-like phrases: the basic Lead gate (SpamThreshold over
// Spam) and the qualification pre-filter (NonInquiryThreshold over
// ObviousSpam and ObviousHiring). They grew as two separate copies with
// different lists and thresholds (3 vs 2). Both are kept as they were and
// live side by side here so they can be compared and tuned together.
package phrase

import "strings"

// Set is a named list of lowercase phrases matched as case-insensitive
// substrings.
type Set struct {
	Name    string
	Phrases []string
}

// NewSet lowercases and trims phrases, dropping blanks and duplicates.
func NewSet(name string, phrases ...string) Set {
	seen := make(map[string]bool, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return Set{Name: name, Phrases: out}
}

// Count returns how many distinct phrases of s occur in text.
func (s Set) Count(text string) int {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	n := 0
	for _, p := range s.Phrases {
		if strings.Contains(lower, p) {
			n++
		}
	}
	return n
}

// First returns the first phrase of s found in text.
func (s Set) First(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, p := range s.Phrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

// Any reports whether at least one phrase occurs in text.
func (s Set) Any(text string) bool {
	_, ok := s.First(text)
	return ok
}

// AtLeast reports whether n or more distinct phrases occur in text.
func (s Set) AtLeast(text string, n int) bool {
	return s.Count(text) >= n
}

// ContainsAny is the ad-hoc form used for user-supplied keyword lists.
func ContainsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
