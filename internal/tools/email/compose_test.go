package email

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeSender struct {
	configured bool
	err        error
	to         string
	subject    string
}

func (s *fakeSender) IsConfigured() bool { return s.configured }
func (s *fakeSender) SendMail(ctx context.Context, to, subject, body string) error {
	s.to = to
	s.subject = subject
	return s.err
}

func TestComposeTool_Execute(t *testing.T) {
	t.Run("sends to singular recipient", func(t *testing.T) {
		sender := &fakeSender{configured: true}
		tool := NewComposeTool(sender)
		params, _ := json.Marshal(map[string]any{
			"recipient": "alice@example.com",
			"subject":   "Release",
			"body":      "shipping today",
		})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Success {
			t.Fatalf("result = %+v", res)
		}
		if sender.to != "alice@example.com" {
			t.Errorf("to = %q", sender.to)
		}
		if res.Data["sent_to"] != "alice@example.com" {
			t.Errorf("sent_to = %v", res.Data["sent_to"])
		}
		if res.Data["draft_id"] == "" {
			t.Error("draft_id empty")
		}
	})

	t.Run("falls back to recipients list", func(t *testing.T) {
		sender := &fakeSender{configured: true}
		tool := NewComposeTool(sender)
		params, _ := json.Marshal(map[string]any{
			"recipients": []string{"bob@example.com", "carol@example.com"},
			"body":       "hello",
		})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Success || sender.to != "bob@example.com" {
			t.Errorf("res = %+v, to = %q", res, sender.to)
		}
		if sender.subject != "No Subject" {
			t.Errorf("subject = %q, want default", sender.subject)
		}
	})

	t.Run("missing recipient", func(t *testing.T) {
		tool := NewComposeTool(&fakeSender{configured: true})
		params, _ := json.Marshal(map[string]any{"body": "hello"})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Success {
			t.Fatal("expected failure")
		}
	})

	t.Run("unconfigured transport", func(t *testing.T) {
		tool := NewComposeTool(&fakeSender{configured: false})
		params, _ := json.Marshal(map[string]any{"recipient": "a@b.c", "body": "x"})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Success {
			t.Fatal("expected failure")
		}
	})

	t.Run("delivery error surfaces", func(t *testing.T) {
		tool := NewComposeTool(&fakeSender{configured: true, err: errors.New("connection refused")})
		params, _ := json.Marshal(map[string]any{"recipient": "a@b.c", "body": "x"})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Success {
			t.Fatal("expected failure")
		}
	})
}
