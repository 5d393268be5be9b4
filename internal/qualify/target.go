package qualify

import (
	"strings"

	"leadscout/internal/domain"
)

// TargetServices are the values --filter-service accepts.
var TargetServices = []string{"RWA", "Crypto", "AI/ML", "Blockchain", "Web3"}

// a bare "ai" would otherwise be found inside "blockchain"
var serviceAliases = map[string]string{"ai": "aiml", "ml": "aiml", "machinelearning": "aiml"}

func normalizeService(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("/", "", "-", "", " ", "", "_", "").Replace(s)
	if alias, ok := serviceAliases[s]; ok {
		return alias
	}
	return s
}

// MatchesTarget reports whether any matched service names the target. Either
// side may contain the other, so "AI/ML" matches "ai" and "Web3" matches
// "Crypto/Web3".
func MatchesTarget(serviceMatch []string, target string) bool {
	t := normalizeService(target)
	if t == "" {
		return true
	}
	for _, s := range serviceMatch {
		n := normalizeService(s)
		if n == "" {
			continue
		}
		if strings.Contains(n, t) || strings.Contains(t, n) {
			return true
		}
	}
	return false
}

// applyTarget turns a qualified verdict for some other service into a
// negative one.
func applyTarget(q domain.Qualification, target string) domain.Qualification {
	if !q.IsQualified || strings.TrimSpace(target) == "" || MatchesTarget(q.ServiceMatch, target) {
		return q
	}
	q.IsQualified = false
	q.Reason = strings.TrimSpace(q.Reason + " [Filtered: not a " + target + " request]")
	return q
}
