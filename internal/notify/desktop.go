package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/dexos/dex/pkg/models"
)

// commandRunner executes a notification command. Swapped in tests.
type commandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Run()
}

// Desktop shows notifications through the platform's native mechanism:
// notify-send on Linux, osascript on macOS, a PowerShell toast on Windows.
type Desktop struct {
	run  commandRunner
	goos string
}

// NewDesktop creates the desktop channel.
func NewDesktop() *Desktop {
	return &Desktop{run: runCommand, goos: runtime.GOOS}
}

func (d *Desktop) Name() string { return "desktop" }

func (d *Desktop) IsConfigured() bool {
	switch d.goos {
	case "linux", "darwin", "windows":
		return true
	}
	return false
}

func (d *Desktop) Send(ctx context.Context, n models.Notification) error {
	switch d.goos {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", n.Message, n.Title)
		return d.run(ctx, "osascript", "-e", script)
	case "windows":
		return d.run(ctx, "powershell", "-Command", windowsToast(n.Title, n.Message))
	default:
		return d.run(ctx, "notify-send", n.Title, n.Message)
	}
}

func windowsToast(title, message string) string {
	return fmt.Sprintf(`
[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] > $null
$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
$texts = $template.GetElementsByTagName("text")
$texts.Item(0).AppendChild($template.CreateTextNode(%q)) > $null
$texts.Item(1).AppendChild($template.CreateTextNode(%q)) > $null
$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("Dex").Show($toast)
`, title, message)
}
