package notification

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/AnomFIN/AnomRadar/pkg/errors"
)

type Message struct {
	Title       string
	Description string
	Severity    string
	Fields      map[string]string
	Timestamp   time.Time
}

type NotificationClient struct {
	sg *discordgo.Session
}

// NewNotificationClient connects to Discord using the DISCORD_TOKEN
// environment variable. An unset token returns ErrDiscordNotConfigured so
// callers can treat notifications as optional.
func NewNotificationClient() (*NotificationClient, error) {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, apperrors.ErrDiscordNotConfigured
	}

	sg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	if err := sg.Open(); err != nil {
		return nil, err
	}

	return &NotificationClient{sg: sg}, nil
}

func (c *NotificationClient) getSeverityColor(severity string) int {
	switch severity {
	case "critical":
		return 0x8B0000
	case "high":
		return 0xFF0000
	case "medium":
		return 0xFF8C00
	case "low":
		return 0xFFD700
	case "info":
		return 0x00BFFF
	default:
		return 0x808080
	}
}

func (c *NotificationClient) Send(msg Message) error {
	if c.sg == nil {
		return fmt.Errorf("Discord client not initialized")
	}

	channelID := os.Getenv("DISCORD_CHANNEL_ID")
	if channelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID not set")
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       c.getSeverityColor(msg.Severity),
		Timestamp:   msg.Timestamp.Format(time.RFC3339),
	}

	if len(msg.Fields) > 0 {
		keys := make([]string, 0, len(msg.Fields))
		for key := range msg.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fields := make([]*discordgo.MessageEmbedField, 0, len(keys))
		for _, key := range keys {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   key,
				Value:  msg.Fields[key],
				Inline: true,
			})
		}
		embed.Fields = fields
	}

	_, err := c.sg.ChannelMessageSendEmbed(channelID, embed)
	return err
}

func (c *NotificationClient) Close() error {
	if c.sg != nil {
		return c.sg.Close()
	}
	return nil
}
