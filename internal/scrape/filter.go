package scrape

import "leadscout/internal/domain"

// FilterKeywords keeps leads mentioning at least one keyword. An empty
// keyword list keeps nothing.
func FilterKeywords(leads []domain.Lead, keywords []string) (kept []domain.Lead, dropped int) {
	kept = make([]domain.Lead, 0, len(leads))
	for _, l := range leads {
		if !l.MatchesKeywords(keywords) {
			dropped++
			continue
		}
		kept = append(kept, l)
	}
	return kept, dropped
}
