package notify

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/wilheimcosta/adwrng2/internal/models"

	"github.com/slack-go/slack"
)

type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier posts to channel with a bot token. Extra options are
// passed to the Slack client (the API URL in tests).
func NewSlackNotifier(token, channel string, opts ...slack.Option) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(token, opts...),
		channel: channel,
	}
}

func (n *SlackNotifier) Name() string { return "slack" }

func (n *SlackNotifier) Notify(ctx context.Context, event *models.AlertEvent) error {
	a := event.Alert

	attachment := slack.Attachment{
		Color: severityColor(a.Severity),
		Title: Title(event),
		Text:  a.Content,
		Fields: []slack.AttachmentField{
			{Title: "Aerodrome", Value: a.ICAO, Short: true},
			{Title: "Type", Value: a.AlertType, Short: true},
			{Title: "Severity", Value: string(a.Severity), Short: true},
			{Title: "Valid", Value: Window(a), Short: true},
		},
		Footer: "AD WRNG Monitor",
		Ts:     json.Number(strconv.FormatInt(event.DetectedAt.Unix(), 10)),
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(Title(event), false),
		slack.MsgOptionAttachments(attachment),
	)
	return err
}

func severityColor(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return "#ff0000"
	case models.SeverityHigh:
		return "#ff8c00"
	case models.SeverityMedium:
		return "#ffcc00"
	default:
		return "#36a64f"
	}
}
