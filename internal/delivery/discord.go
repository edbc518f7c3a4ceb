package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/albapepper/courtwatch/internal/rules"
)

// Embed colours per severity.
const (
	colorImportant = 0xE74C3C
	colorNormal    = 0x2ECC71
	colorDigest    = 0x95A5A6
)

// Discord posts alerts as embeds to one channel with a bot token.
// Nil-safe: a nil *Discord is never configured.
type Discord struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscord creates a Discord channel. Returns nil if token or channel id is
// empty.
func NewDiscord(token, channelID string) (*Discord, error) {
	if token == "" || channelID == "" {
		return nil, nil
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Discord{session: s, channelID: channelID}, nil
}

func (d *Discord) Name() rules.Channel { return rules.ChannelDiscord }

func (d *Discord) Configured(rules.Settings) bool {
	return d != nil
}

func (d *Discord) Send(ctx context.Context, _ rules.Settings, msg Message) error {
	if d == nil {
		return ErrNotConfigured
	}
	_, err := d.session.ChannelMessageSendEmbed(d.channelID, buildEmbed(msg), discordgo.WithContext(ctx))
	if err != nil {
		var rest *discordgo.RESTError
		if errors.As(err, &rest) && rest.Response != nil {
			return fmt.Errorf("discord send: %w", &StatusError{Code: rest.Response.StatusCode, Body: truncate(rest.ResponseBody, 200)})
		}
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

func buildEmbed(msg Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       msg.Title,
		Description: msg.Body,
		URL:         msg.URL,
		Color:       severityColor(msg.Severity),
		Footer:      &discordgo.MessageEmbedFooter{Text: "courtwatch · " + string(msg.Severity)},
	}
	if !msg.Timestamp.IsZero() {
		embed.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	if msg.ImageURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: msg.ImageURL}
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}
	return embed
}

func severityColor(s rules.Severity) int {
	switch s {
	case rules.SeverityImportant:
		return colorImportant
	case rules.SeverityDigest:
		return colorDigest
	}
	return colorNormal
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
