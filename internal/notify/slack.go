package notify

import (
	"context"

	"github.com/dexos/dex/pkg/models"
	"github.com/slack-go/slack"
)

// Slack posts notifications to an incoming webhook, colored by priority.
type Slack struct {
	webhookURL string
}

// NewSlack creates the Slack channel.
func NewSlack(webhookURL string) *Slack {
	return &Slack{webhookURL: webhookURL}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) IsConfigured() bool { return s.webhookURL != "" }

func (s *Slack) Send(ctx context.Context, n models.Notification) error {
	attachment := slack.Attachment{
		Color:     priorityColor(n.Priority),
		Title:     n.Title,
		Text:      n.Message,
		Footer:    "Dex",
		TitleLink: n.ActionURL,
	}
	if n.Tag != "" {
		attachment.Fields = []slack.AttachmentField{
			{Title: "Tag", Value: n.Tag, Short: true},
		}
	}
	return slack.PostWebhookContext(ctx, s.webhookURL, &slack.WebhookMessage{
		Attachments: []slack.Attachment{attachment},
	})
}

func priorityColor(p models.Priority) string {
	switch p {
	case models.PriorityHigh:
		return "danger"
	case models.PriorityLow:
		return "#439FE0"
	default:
		return "good"
	}
}
