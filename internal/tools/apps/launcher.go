// Package apps provides the app_launch and browser_open tools.
package apps

import (
	"context"
	"os/exec"
	"runtime"
	"sort"
	"strings"
)

// runner starts a command without waiting for it. Swapped in tests.
type runner func(ctx context.Context, name string, args ...string) error

func startCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Start()
}

// knownApps maps friendly names to launch targets. URLs open through the
// platform opener; bare names are executed directly.
var knownApps = map[string]string{
	"chrome":   "google-chrome",
	"firefox":  "firefox",
	"code":     "code",
	"vscode":   "code",
	"spotify":  "spotify",
	"discord":  "discord",
	"slack":    "slack",
	"whatsapp": "https://web.whatsapp.com",
	"teams":    "https://teams.microsoft.com",
	"gmail":    "https://mail.google.com",
	"calendar": "https://calendar.google.com",
}

// SupportedApps returns the friendly names, sorted.
func SupportedApps() []string {
	names := make([]string, 0, len(knownApps))
	for name := range knownApps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// openURL launches the platform default handler for a URL.
func openURL(ctx context.Context, run runner, url string) error {
	switch runtime.GOOS {
	case "darwin":
		return run(ctx, "open", url)
	case "windows":
		return run(ctx, "cmd", "/C", "start", "", url)
	default:
		return run(ctx, "xdg-open", url)
	}
}

// launchApp resolves a friendly name and starts the application, optionally
// handing it a URL.
func launchApp(ctx context.Context, run runner, appName, url string) error {
	target, known := knownApps[strings.ToLower(strings.TrimSpace(appName))]
	if !known {
		target = appName
	}

	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return openURL(ctx, run, target)
	}
	if url != "" {
		return run(ctx, target, url)
	}
	return run(ctx, target)
}

