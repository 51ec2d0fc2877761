package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"github.com/dexos/dex/internal/config"
	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/pkg/models"
)

type fakeChannel struct {
	name       string
	configured bool
	err        error
	sent       int
}

func (c *fakeChannel) Name() string       { return c.name }
func (c *fakeChannel) IsConfigured() bool { return c.configured }
func (c *fakeChannel) Send(ctx context.Context, n models.Notification) error {
	c.sent++
	return c.err
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{Output: io.Discard})
}

func TestDispatcher_Send(t *testing.T) {
	ok := &fakeChannel{name: "ok", configured: true}
	failing := &fakeChannel{name: "failing", configured: true, err: errors.New("boom")}
	skipped := &fakeChannel{name: "skipped", configured: false}

	d := NewDispatcher(testLogger(), ok, failing, skipped)
	outcomes := d.Send(context.Background(), models.Notification{Title: "hi", Message: "there"})

	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %v, want 2 entries", outcomes)
	}
	if outcomes["ok"] != nil {
		t.Errorf("ok channel err = %v", outcomes["ok"])
	}
	if outcomes["failing"] == nil {
		t.Error("failing channel reported success")
	}
	if skipped.sent != 0 {
		t.Error("unconfigured channel was invoked")
	}
}

func TestWhatsApp_Send(t *testing.T) {
	var gotPath, gotBody, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ch := NewWhatsApp(config.NotifyConfig{
		TwilioAccountSID:   "AC123",
		TwilioAuthToken:    "secret",
		TwilioFromWhatsApp: "whatsapp:+14155238886",
		UserWhatsAppNumber: "whatsapp:+15550001111",
	})
	ch.baseURL = srv.URL
	ch.client = srv.Client()

	if !ch.IsConfigured() {
		t.Fatal("channel should be configured")
	}
	err := ch.Send(context.Background(), models.Notification{Title: "Reminder", Message: "stretch"})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Errorf("path = %s", gotPath)
	}
	if !strings.Contains(gotBody, "To=whatsapp%3A%2B15550001111") {
		t.Errorf("body = %s", gotBody)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Errorf("auth = %s", gotAuth)
	}
}

func TestWhatsApp_SendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "invalid number"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	ch := NewWhatsApp(config.NotifyConfig{
		TwilioAccountSID:   "AC123",
		TwilioAuthToken:    "secret",
		TwilioFromWhatsApp: "whatsapp:+1",
		UserWhatsAppNumber: "whatsapp:+2",
	})
	ch.baseURL = srv.URL
	ch.client = srv.Client()

	err := ch.Send(context.Background(), models.Notification{Title: "x", Message: "y"})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("err = %v, want status in message", err)
	}
}

func TestEmail_Compose(t *testing.T) {
	ch := NewEmail(config.NotifyConfig{
		EmailFrom:    "me@example.com",
		SMTPServer:   "smtp.example.com",
		SMTPPort:     587,
		SMTPPassword: "pw",
	})

	msg := string(ch.compose(models.Notification{
		Title:    "Reminder",
		Message:  "stretch\nnow",
		Priority: models.PriorityHigh,
		Tag:      "reminder",
	}))

	for _, want := range []string{
		"Subject: ✨ Dex: Reminder",
		"To: me@example.com",
		"multipart/alternative",
		"text/plain",
		"text/html",
		"stretch<br>now",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("compose missing %q", want)
		}
	}
}

func TestEmail_SendUsesInjectedSender(t *testing.T) {
	ch := NewEmail(config.NotifyConfig{
		EmailFrom:    "me@example.com",
		SMTPServer:   "smtp.example.com",
		SMTPPort:     587,
		SMTPPassword: "pw",
	})

	var gotAddr, gotFrom string
	var gotTo []string
	ch.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo = addr, from, to
		return nil
	}

	err := ch.Send(context.Background(), models.Notification{Title: "hi", Message: "there"})
	if err != nil {
		t.Fatal(err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %s", gotAddr)
	}
	if gotFrom != "me@example.com" || len(gotTo) != 1 || gotTo[0] != "me@example.com" {
		t.Errorf("from = %s, to = %v, want send-to-self", gotFrom, gotTo)
	}
}

func TestSlack_Send(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewSlack(srv.URL)
	err := ch.Send(context.Background(), models.Notification{
		Title:    "Reminder",
		Message:  "stretch",
		Priority: models.PriorityHigh,
		Tag:      "reminder",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Reminder", "stretch", "danger"} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("webhook body missing %q: %s", want, gotBody)
		}
	}

	if NewSlack("").IsConfigured() {
		t.Error("empty webhook URL reported configured")
	}
}

func TestDesktop_Send(t *testing.T) {
	var gotName string
	var gotArgs []string
	d := &Desktop{
		goos: "linux",
		run: func(ctx context.Context, name string, args ...string) error {
			gotName, gotArgs = name, args
			return nil
		},
	}

	err := d.Send(context.Background(), models.Notification{Title: "Reminder", Message: "stretch"})
	if err != nil {
		t.Fatal(err)
	}
	if gotName != "notify-send" {
		t.Errorf("command = %s", gotName)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "Reminder" || gotArgs[1] != "stretch" {
		t.Errorf("args = %v", gotArgs)
	}
}
