package slack

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/scrape/types"
)

type RawMessage struct {
	Type       string `json:"type"`
	User       string `json:"user"`
	BotID      string `json:"bot_id"`
	Text       string `json:"text"`
	TS         string `json:"ts"`
	ThreadTS   string `json:"thread_ts"`
	Team       string `json:"team"`
	ReplyCount int    `json:"reply_count"`
	Reactions  []struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	} `json:"reactions"`
	Files []struct {
		ID string `json:"id"`
	} `json:"files"`
}

type RawUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
}

// DisplayName prefers the real name, then the handle, then the ID.
func (u RawUser) DisplayName(fallback string) string {
	switch {
	case strings.TrimSpace(u.RealName) != "":
		return u.RealName
	case strings.TrimSpace(u.Name) != "":
		return u.Name
	default:
		return fallback
	}
}

// ParseTS turns a message ts ("1700000000.000100") into a time.
func ParseTS(ts string) (time.Time, error) {
	sec, frac, _ := strings.Cut(strings.TrimSpace(ts), ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil || s <= 0 {
		return time.Time{}, errors.Newf("bad slack ts %q", ts)
	}
	var ns int64
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		ns, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}, errors.Newf("bad slack ts %q", ts)
		}
	}
	return time.Unix(s, ns).UTC(), nil
}

func permalink(channelID, ts string) string {
	q := url.Values{"channel": {channelID}, "message_ts": {ts}}
	return "https://slack.com/app_redirect?" + q.Encode()
}

// toLead maps a history entry; author is resolved by the caller.
func toLead(m RawMessage, channelID, channelName, author string) (domain.Lead, types.SkipReason) {
	if m.BotID != "" {
		return domain.Lead{}, types.SkipBotAuthor
	}
	if strings.TrimSpace(m.Text) == "" {
		return domain.Lead{}, types.SkipEmptyContent
	}
	ts, err := ParseTS(m.TS)
	if err != nil {
		return domain.Lead{}, types.SkipInvalid
	}

	engagement := 0
	for _, r := range m.Reactions {
		engagement += r.Count
	}

	meta := map[string]string{
		"message_ts":  m.TS,
		"channel_id":  channelID,
		"user_id":     m.User,
		"reply_count": strconv.Itoa(m.ReplyCount),
		"has_files":   strconv.FormatBool(len(m.Files) > 0),
	}
	if m.Team != "" {
		meta["team_id"] = m.Team
	}
	if m.ThreadTS != "" {
		meta["thread_ts"] = m.ThreadTS
	}

	lead, err := domain.NewLead(domain.Lead{
		Source:          domain.SourceSlack,
		Author:          author,
		Content:         m.Text,
		Timestamp:       ts,
		URL:             permalink(channelID, m.TS),
		EngagementScore: engagement,
		ChannelName:     channelName,
		Metadata:        meta,
	})
	if err != nil {
		return domain.Lead{}, types.SkipInvalid
	}
	return lead, types.SkipNone
}
