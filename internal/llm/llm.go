// Package llm provides the model backend clients used by the planner and
// the generic chat tool.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dexos/dex/internal/config"
)

// Client is a minimal completion interface over a hosted model service.
type Client interface {
	// Name identifies the backend for logging and diagnostics.
	Name() string
	// Complete sends a system prompt and user message, returning the text
	// of the model's reply.
	Complete(ctx context.Context, system, user string) (string, error)
}

// New builds a client from configuration. Returns nil (no error) when no
// backend is configured; callers treat a nil client as "rule-based only".
func New(cfg config.LLMConfig) (Client, error) {
	if !cfg.Configured() {
		return nil, nil
	}
	switch strings.ToLower(cfg.Provider) {
	case "openai", "openrouter", "ollama", "openai-compatible":
		return newOpenAIClient(cfg), nil
	case "anthropic":
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
