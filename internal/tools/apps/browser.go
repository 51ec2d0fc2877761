package apps

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/dexos/dex/internal/tools"
)

// BrowserTool opens a URL in the system default browser.
type BrowserTool struct {
	run runner
}

// NewBrowserTool creates the browser_open tool.
func NewBrowserTool() *BrowserTool {
	return &BrowserTool{run: startCommand}
}

func (t *BrowserTool) Name() string { return "browser_open" }

func (t *BrowserTool) Description() string {
	return "Open a URL in the default browser"
}

func (t *BrowserTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {
				"type": "string",
				"description": "URL to navigate to"
			},
			"new_tab": {
				"type": "boolean",
				"default": false,
				"description": "Open in a new tab"
			}
		},
		"required": ["url"]
	}`)
}

type browserInput struct {
	URL    string `json:"url"`
	NewTab bool   `json:"new_tab"`
}

func (t *BrowserTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input browserInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}

	url := strings.TrimSpace(input.URL)
	if url == "" {
		return tools.Fail("URL is required"), nil
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	if err := openURL(ctx, t.run, url); err != nil {
		return tools.Fail("Failed to open browser: %v", err), nil
	}

	return tools.Ok(map[string]any{
		"session_id": uuid.NewString(),
		"url":        url,
	}), nil
}
