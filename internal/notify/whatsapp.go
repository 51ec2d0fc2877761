package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dexos/dex/internal/config"
	"github.com/dexos/dex/pkg/models"
)

const twilioAPIBase = "https://api.twilio.com"

// WhatsApp sends notifications through Twilio's WhatsApp messaging API.
type WhatsApp struct {
	cfg     config.NotifyConfig
	client  *http.Client
	baseURL string
}

// NewWhatsApp creates the WhatsApp channel.
func NewWhatsApp(cfg config.NotifyConfig) *WhatsApp {
	return &WhatsApp{
		cfg:     cfg,
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: twilioAPIBase,
	}
}

func (w *WhatsApp) Name() string { return "whatsapp" }

func (w *WhatsApp) IsConfigured() bool {
	return w.cfg.TwilioAccountSID != "" &&
		w.cfg.TwilioAuthToken != "" &&
		w.cfg.TwilioFromWhatsApp != "" &&
		w.cfg.UserWhatsAppNumber != ""
}

func (w *WhatsApp) Send(ctx context.Context, n models.Notification) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", w.baseURL, w.cfg.TwilioAccountSID)

	body := fmt.Sprintf("🤖 *%s*\n\n%s\n\n_Sent by Dex_", n.Title, n.Message)
	form := url.Values{
		"From": {w.cfg.TwilioFromWhatsApp},
		"To":   {w.cfg.UserWhatsAppNumber},
		"Body": {body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(w.cfg.TwilioAccountSID, w.cfg.TwilioAuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio responded %d: %s", resp.StatusCode, detail)
	}
	return nil
}
