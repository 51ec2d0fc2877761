// Package email provides the email_compose tool.
package email

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/dexos/dex/internal/tools"
)

// Sender delivers a composed message. The SMTP notification channel
// satisfies this; tests substitute a fake.
type Sender interface {
	IsConfigured() bool
	SendMail(ctx context.Context, to, subject, body string) error
}

// ComposeTool sends an email through the configured SMTP transport.
type ComposeTool struct {
	sender Sender
}

// NewComposeTool creates the email_compose tool.
func NewComposeTool(sender Sender) *ComposeTool {
	return &ComposeTool{sender: sender}
}

func (t *ComposeTool) Name() string { return "email_compose" }

func (t *ComposeTool) Description() string {
	return "Compose and send an email via your configured SMTP server"
}

func (t *ComposeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"recipient": {
				"type": "string",
				"default": "",
				"description": "Primary recipient email address"
			},
			"recipients": {
				"type": "array",
				"items": {"type": "string"},
				"description": "List of recipient email addresses"
			},
			"subject": {
				"type": "string",
				"default": "No Subject",
				"description": "Email subject"
			},
			"body": {
				"type": "string",
				"description": "Email body"
			}
		},
		"required": ["body"]
	}`)
}

type composeInput struct {
	Recipient  string   `json:"recipient"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// target picks the effective recipient: the singular field wins, then the
// first of the plural list. Model backends use either form.
func (in *composeInput) target() string {
	if r := strings.TrimSpace(in.Recipient); r != "" {
		return r
	}
	if len(in.Recipients) > 0 {
		return strings.TrimSpace(in.Recipients[0])
	}
	return ""
}

func (t *ComposeTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input composeInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}

	recipient := input.target()
	body := strings.TrimSpace(input.Body)
	if recipient == "" || body == "" {
		return tools.Fail("Recipient (or recipients[0]) and body are required"), nil
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = "No Subject"
	}

	if t.sender == nil || !t.sender.IsConfigured() {
		return tools.Fail("Email SMTP not configured. Need NOTIFY_EMAIL_FROM and NOTIFY_SMTP_PASSWORD."), nil
	}

	if err := t.sender.SendMail(ctx, recipient, subject, body); err != nil {
		return tools.Fail("Email delivery failed: %v", err), nil
	}

	return tools.Ok(map[string]any{
		"draft_id": uuid.NewString(),
		"sent_to":  recipient,
		"subject":  subject,
	}), nil
}
