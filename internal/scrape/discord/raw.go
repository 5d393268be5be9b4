package discord

import (
	"fmt"
	"strconv"
	"strings"

	"leadscout/internal/domain"
	"leadscout/internal/scrape/types"
)

type RawChannel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	GuildID string `json:"guild_id"`
	Type    int    `json:"type"`
}

// text and announcement channels carry readable history
func (c RawChannel) isText() bool { return c.Type == 0 || c.Type == 5 }

type RawGuild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RawAuthor struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Bot        bool   `json:"bot"`
}

type RawReaction struct {
	Count int `json:"count"`
	Emoji struct {
		Name string `json:"name"`
	} `json:"emoji"`
}

type RawMessage struct {
	ID          string        `json:"id"`
	ChannelID   string        `json:"channel_id"`
	Content     string        `json:"content"`
	Timestamp   string        `json:"timestamp"`
	Author      RawAuthor     `json:"author"`
	Reactions   []RawReaction `json:"reactions"`
	Attachments []struct {
		ID string `json:"id"`
	} `json:"attachments"`
	MessageReference *struct {
		MessageID string `json:"message_id"`
	} `json:"message_reference"`
}

func jumpURL(guildID, channelID, messageID string) string {
	g := guildID
	if g == "" {
		g = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", g, channelID, messageID)
}

func toLead(m RawMessage, ch RawChannel, guildName string) (domain.Lead, types.SkipReason) {
	if strings.TrimSpace(m.Content) == "" {
		return domain.Lead{}, types.SkipEmptyContent
	}
	if m.Author.Bot {
		return domain.Lead{}, types.SkipBotAuthor
	}

	ts, err := domain.ParseTimestamp(m.Timestamp)
	if err != nil {
		return domain.Lead{}, types.SkipInvalid
	}

	author := m.Author.GlobalName
	if author == "" {
		author = m.Author.Username
	}
	if guildName == "" {
		guildName = "DM"
	}
	channelName := ch.Name
	if channelName == "" {
		channelName = "Unknown"
	}

	meta := map[string]string{
		"message_id":      m.ID,
		"channel_id":      ch.ID,
		"guild_name":      guildName,
		"has_attachments": strconv.FormatBool(len(m.Attachments) > 0),
	}
	if ch.GuildID != "" {
		meta["guild_id"] = ch.GuildID
	}
	if m.MessageReference != nil && m.MessageReference.MessageID != "" {
		meta["reply_to"] = m.MessageReference.MessageID
	}

	lead, err := domain.NewLead(domain.Lead{
		Source:          domain.SourceDiscord,
		Author:          author,
		Content:         m.Content,
		Timestamp:       ts,
		URL:             jumpURL(ch.GuildID, ch.ID, m.ID),
		EngagementScore: len(m.Reactions),
		ChannelName:     channelName,
		Metadata:        meta,
	})
	if err != nil {
		return domain.Lead{}, types.SkipInvalid
	}
	return lead, types.SkipNone
}
