package apps

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dexos/dex/internal/tools"
)

// LaunchTool starts a desktop application or well-known web app.
type LaunchTool struct {
	run runner
}

// NewLaunchTool creates the app_launch tool.
func NewLaunchTool() *LaunchTool {
	return &LaunchTool{run: startCommand}
}

func (t *LaunchTool) Name() string { return "app_launch" }

func (t *LaunchTool) Description() string {
	return "Launch applications like Chrome, WhatsApp, Discord, Teams, Spotify"
}

func (t *LaunchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"app_name": {
				"type": "string",
				"description": "Application name (chrome, whatsapp, discord, ...)"
			},
			"url": {
				"type": "string",
				"default": "",
				"description": "Optional URL to open"
			}
		},
		"required": ["app_name"]
	}`)
}

type launchInput struct {
	AppName string `json:"app_name"`
	URL     string `json:"url"`
}

func (t *LaunchTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input launchInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}

	appName := strings.TrimSpace(input.AppName)
	if appName == "" {
		return tools.Fail("Application name is required"), nil
	}

	if err := launchApp(ctx, t.run, appName, input.URL); err != nil {
		supported := strings.Join(SupportedApps(), ", ")
		return &tools.Result{
			Success: false,
			Error:   "Failed to launch " + appName,
			Data: map[string]any{
				"app_name": appName,
				"launched": false,
				"status":   "Failed to launch " + appName + ". Supported apps: " + supported,
			},
		}, nil
	}

	return tools.Ok(map[string]any{
		"app_name": appName,
		"launched": true,
		"status":   "Successfully launched " + appName,
	}), nil
}
