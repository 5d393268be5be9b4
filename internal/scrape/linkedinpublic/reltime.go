package linkedinpublic

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Unit words are spelled out so "1st" or "3rd+" (connection degree) never
// read as a duration. "mo" is months; a bare "m" is minutes.
var reRelative = regexp.MustCompile(`(\d+)\s*(mo(?:nths?)?|y(?:rs?|ears?)?|w(?:ks?|eeks?)?|d(?:ays?)?|h(?:rs?|ours?)?|m(?:ins?|inutes?)?|s(?:ecs?|econds?)?)\b`)

// ParseRelativeTime turns LinkedIn's "2h", "3d ago" or "1 week" into an
// absolute time before now. ok is false when s holds no recognizable age.
func ParseRelativeTime(s string, now time.Time) (time.Time, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}
	if s == "now" || strings.Contains(s, "just now") {
		return now, true
	}

	m := reRelative.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}

	switch unit := m[2]; {
	case strings.HasPrefix(unit, "mo"):
		return now.AddDate(0, -n, 0), true
	case unit[0] == 'y':
		return now.AddDate(-n, 0, 0), true
	case unit[0] == 'w':
		return now.AddDate(0, 0, -7*n), true
	case unit[0] == 'd':
		return now.AddDate(0, 0, -n), true
	case unit[0] == 'h':
		return now.Add(-time.Duration(n) * time.Hour), true
	case unit[0] == 'm':
		return now.Add(-time.Duration(n) * time.Minute), true
	default:
		return now.Add(-time.Duration(n) * time.Second), true
	}
}
