package qualify

import (
	"encoding/json"
	"strconv"
	"strings"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
)

var requiredKeys = []string{"is_qualified", "confidence_score", "reason", "service_match"}

// ParseResponse reads the classifier's JSON verdict. Fences are stripped,
// all four keys must be present, loose types are coerced and the
// confidence is clamped to [0,1].
func ParseResponse(text string) (domain.Qualification, error) {
	body := stripFences(text)

	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return domain.Qualification{}, classErr(errors.Wrap(err, "response is not a JSON object"))
	}
	for _, k := range requiredKeys {
		if _, ok := raw[k]; !ok {
			return domain.Qualification{}, classErr(errors.Newf("response missing key %q", k))
		}
	}

	qualified, err := asBool(raw["is_qualified"])
	if err != nil {
		return domain.Qualification{}, classErr(errors.Wrap(err, "is_qualified"))
	}
	conf, err := asFloat(raw["confidence_score"])
	if err != nil {
		return domain.Qualification{}, classErr(errors.Wrap(err, "confidence_score"))
	}

	return domain.Qualification{
		IsQualified:     qualified,
		ConfidenceScore: min(max(conf, 0), 1),
		Reason:          asString(raw["reason"]),
		ServiceMatch:    asStrings(raw["service_match"]),
	}, nil
}

func classErr(err error) error { return errors.Mark(err, errors.ErrClassification) }

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func asBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0", "":
			return false, nil
		}
		return false, errors.Newf("cannot read %q as bool", t)
	case nil:
		return false, nil
	}
	return false, errors.Newf("cannot read %T as bool", v)
}

func asFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, errors.Newf("cannot read %q as number", t)
		}
		return f, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, nil
	}
	return 0, errors.Newf("cannot read %T as number", v)
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func asStrings(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s := strings.TrimSpace(asString(e)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}
