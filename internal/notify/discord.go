package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/models"

	"github.com/bwmarrin/discordgo"
)

// webhookExecutor is satisfied by *discordgo.Session.
type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordNotifier struct {
	session   webhookExecutor
	webhookID string
	token     string
}

// NewDiscordNotifier posts through an incoming webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}. No bot token is needed.
func NewDiscordNotifier(webhookURL string) (*DiscordNotifier, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return &DiscordNotifier{session: session, webhookID: id, token: token}, nil
}

func (n *DiscordNotifier) Name() string { return "discord" }

func (n *DiscordNotifier) Notify(ctx context.Context, event *models.AlertEvent) error {
	_, err := n.session.WebhookExecute(n.webhookID, n.token, false, &discordgo.WebhookParams{
		Username: "AD WRNG Monitor",
		Embeds:   []*discordgo.MessageEmbed{alertEmbed(event)},
	}, discordgo.WithContext(ctx))
	return err
}

func alertEmbed(event *models.AlertEvent) *discordgo.MessageEmbed {
	a := event.Alert

	fields := []*discordgo.MessageEmbedField{
		{Name: "Aerodrome", Value: a.ICAO, Inline: true},
		{Name: "Severity", Value: string(a.Severity), Inline: true},
		{Name: "Valid", Value: Window(a), Inline: false},
	}
	if len(event.AffectedAerodromes) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Affected",
			Value: strings.Join(event.AffectedAerodromes, ", "),
		})
	}

	return &discordgo.MessageEmbed{
		Title:       Title(event),
		Description: a.Content,
		Color:       embedColor(a.Severity),
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: a.AlertType},
		Timestamp:   event.DetectedAt.UTC().Format(time.RFC3339),
	}
}

func embedColor(s models.Severity) int {
	switch s {
	case models.SeverityCritical:
		return 0xED4245
	case models.SeverityHigh:
		return 0xFF8C00
	case models.SeverityMedium:
		return 0xFEE75C
	default:
		return 0x57F287
	}
}

// ParseWebhookURL extracts the webhook ID and token from a Discord webhook URL.
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid discord webhook URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("discord webhook URL %q has no /webhooks/{id}/{token} path", raw)
}
