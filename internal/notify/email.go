package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/dexos/dex/internal/config"
	"github.com/dexos/dex/pkg/models"
)

// Email sends notifications to the user's own mailbox over SMTP with an
// HTML body and a plain-text fallback.
type Email struct {
	cfg  config.NotifyConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail creates the email channel.
func NewEmail(cfg config.NotifyConfig) *Email {
	return &Email{cfg: cfg, send: smtp.SendMail}
}

func (e *Email) Name() string { return "email" }

func (e *Email) IsConfigured() bool {
	return e.cfg.EmailFrom != "" && e.cfg.SMTPPassword != ""
}

func (e *Email) Send(ctx context.Context, n models.Notification) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPServer, e.cfg.SMTPPort)
	auth := smtp.PlainAuth("", e.cfg.EmailFrom, e.cfg.SMTPPassword, e.cfg.SMTPServer)
	msg := e.compose(n)

	done := make(chan error, 1)
	go func() { done <- e.send(addr, auth, e.cfg.EmailFrom, []string{e.cfg.EmailFrom}, msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendMail delivers a plain message to an explicit recipient. The email
// compose tool uses this; notifications go through Send.
func (e *Email) SendMail(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPServer, e.cfg.SMTPPort)
	auth := smtp.PlainAuth("", e.cfg.EmailFrom, e.cfg.SMTPPassword, e.cfg.SMTPServer)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.EmailFrom)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")

	done := make(chan error, 1)
	go func() { done <- e.send(addr, auth, e.cfg.EmailFrom, []string{to}, []byte(b.String())) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const emailBoundary = "dex-notification-boundary"

// compose renders a multipart/alternative message addressed to self.
func (e *Email) compose(n models.Notification) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.EmailFrom)
	fmt.Fprintf(&b, "To: %s\r\n", e.cfg.EmailFrom)
	fmt.Fprintf(&b, "Subject: ✨ Dex: %s\r\n", n.Title)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", emailBoundary)

	fmt.Fprintf(&b, "--%s\r\n", emailBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Dex: %s\r\n\r\n%s\r\n\r\nPriority: %s\r\n", n.Title, n.Message, n.Priority)

	fmt.Fprintf(&b, "--%s\r\n", emailBoundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(htmlBody(n))
	fmt.Fprintf(&b, "\r\n--%s--\r\n", emailBoundary)

	return []byte(b.String())
}

func htmlBody(n models.Notification) string {
	tag := n.Tag
	if tag == "" {
		tag = "System"
	}
	message := strings.ReplaceAll(n.Message, "\n", "<br>")
	return fmt.Sprintf(`<html>
<body style="font-family: sans-serif; background-color: #0f172a; color: #e2e8f0;">
  <div style="max-width: 600px; margin: 20px auto; background-color: #1e293b; border-radius: 12px; border: 1px solid #334155;">
    <div style="background: linear-gradient(90deg, #3b82f6, #8b5cf6); padding: 20px; text-align: center;">
      <h1 style="margin: 0; color: white; font-size: 24px;">DEX</h1>
    </div>
    <div style="padding: 30px;">
      <h2 style="color: #3b82f6; margin-top: 0;">%s</h2>
      <div style="line-height: 1.6; color: #94a3b8; padding: 20px; border-left: 4px solid #3b82f6;">%s</div>
      <div style="margin-top: 30px; border-top: 1px solid #334155; padding-top: 20px; font-size: 12px; color: #64748b;">
        Priority: %s &middot; Ref: %s
      </div>
    </div>
  </div>
</body>
</html>`, n.Title, message, n.Priority, tag)
}
