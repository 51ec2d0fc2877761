package shell

import (
	"context"
	"encoding/json"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestCommandTool_Execute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumed")
	}
	tool := NewCommandTool()

	t.Run("captures stdout and exit code", func(t *testing.T) {
		params, _ := json.Marshal(map[string]any{"command": "echo hello", "timeout": 10, "shell": true})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Success {
			t.Fatalf("result = %+v", res)
		}
		if got := res.Data["stdout"].(string); strings.TrimSpace(got) != "hello" {
			t.Errorf("stdout = %q", got)
		}
		if res.Data["return_code"] != 0 {
			t.Errorf("return_code = %v", res.Data["return_code"])
		}
	})

	t.Run("nonzero exit is a failure with stderr", func(t *testing.T) {
		params, _ := json.Marshal(map[string]any{"command": "echo oops >&2; exit 3", "timeout": 10, "shell": true})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Success {
			t.Fatal("expected failure")
		}
		if res.Data["return_code"] != 3 {
			t.Errorf("return_code = %v, want 3", res.Data["return_code"])
		}
		if !strings.Contains(res.Error, "oops") {
			t.Errorf("error = %q, want stderr content", res.Error)
		}
	})

	t.Run("empty command rejected", func(t *testing.T) {
		params, _ := json.Marshal(map[string]any{"command": "   ", "timeout": 10, "shell": true})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Success {
			t.Fatal("expected failure")
		}
	})

	t.Run("timeout kills the subprocess", func(t *testing.T) {
		params, _ := json.Marshal(map[string]any{"command": "sleep 5", "timeout": 1, "shell": true})
		start := time.Now()
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Success {
			t.Fatal("expected timeout failure")
		}
		if !strings.Contains(res.Error, "timed out") {
			t.Errorf("error = %q", res.Error)
		}
		if time.Since(start) > 3*time.Second {
			t.Error("subprocess not killed at deadline")
		}
	})

	t.Run("timeout kills detached children", func(t *testing.T) {
		// The background child shares the output pipes; if only the shell
		// dies, Run blocks until the child exits on its own.
		params, _ := json.Marshal(map[string]any{"command": "sleep 5 & wait", "timeout": 1, "shell": true})
		start := time.Now()
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Success {
			t.Fatal("expected timeout failure")
		}
		if time.Since(start) > 3*time.Second {
			t.Error("child process outlived the deadline")
		}
	})
}
