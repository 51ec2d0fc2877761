package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dexos/dex/internal/config"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openaiClient serves OpenAI and OpenAI-compatible endpoints (OpenRouter,
// Ollama) selected via LLM_BASE_URL.
type openaiClient struct {
	client *openai.Client
	cfg    config.LLMConfig
}

func newOpenAIClient(cfg config.LLMConfig) *openaiClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openaiClient{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}
}

func (c *openaiClient) Name() string { return "openai" }

func (c *openaiClient) Complete(ctx context.Context, system, user string) (string, error) {
	model := c.cfg.ModelName
	if model == "" {
		model = defaultOpenAIModel
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
