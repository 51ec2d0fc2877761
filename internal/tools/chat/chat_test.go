package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeClient struct {
	reply string
	err   error
}

func (c *fakeClient) Name() string { return "fake" }
func (c *fakeClient) Complete(ctx context.Context, system, user string) (string, error) {
	return c.reply, c.err
}

func TestTool_Execute(t *testing.T) {
	t.Run("routes to backend", func(t *testing.T) {
		tool := NewTool(&fakeClient{reply: "hello there"})
		params, _ := json.Marshal(map[string]any{"query": "say hi"})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Success || res.Data["response"] != "hello there" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("degrades without backend", func(t *testing.T) {
		tool := NewTool(nil)
		params, _ := json.Marshal(map[string]any{"query": "tell me a joke"})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Success || res.Data["response"] != unconfiguredReply {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("empty query rejected", func(t *testing.T) {
		tool := NewTool(nil)
		params, _ := json.Marshal(map[string]any{"query": "  "})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Success {
			t.Fatal("expected failure")
		}
	})

	t.Run("backend error surfaces", func(t *testing.T) {
		tool := NewTool(&fakeClient{err: errors.New("rate limited")})
		params, _ := json.Marshal(map[string]any{"query": "hi"})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Success {
			t.Fatal("expected failure")
		}
	})
}
