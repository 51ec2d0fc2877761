// Package chat provides the generic_chat tool: conversational queries routed
// to the configured model backend.
package chat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dexos/dex/internal/llm"
	"github.com/dexos/dex/internal/tools"
)

const systemPrompt = "You are Dex, a concise personal assistant. Answer the user's question directly."

// unconfiguredReply is returned when no model backend is available.
const unconfiguredReply = "I am a local agent. LLM provider is not fully configured, but I hear you!"

// Tool answers conversational queries.
type Tool struct {
	client llm.Client
}

// NewTool creates the generic_chat tool. A nil client degrades to a canned
// response instead of failing.
func NewTool(client llm.Client) *Tool {
	return &Tool{client: client}
}

func (t *Tool) Name() string { return "generic_chat" }

func (t *Tool) Description() string {
	return "Use this for conversational queries, jokes, or general questions"
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The user's query or conversational prompt"
			}
		},
		"required": ["query"]
	}`)
}

type chatInput struct {
	Query string `json:"query"`
}

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input chatInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return tools.Fail("Query cannot be empty"), nil
	}

	if t.client == nil {
		return tools.Ok(map[string]any{"response": unconfiguredReply}), nil
	}

	response, err := t.client.Complete(ctx, systemPrompt, query)
	if err != nil {
		return tools.Fail("%v", err), nil
	}
	return tools.Ok(map[string]any{"response": response}), nil
}
