// Package shell provides the shell_command tool: subprocess execution with
// timeout protection.
package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/dexos/dex/internal/tools"
)

// CommandTool executes a system command and returns its output.
type CommandTool struct{}

// NewCommandTool creates the shell_command tool.
func NewCommandTool() *CommandTool {
	return &CommandTool{}
}

func (t *CommandTool) Name() string { return "shell_command" }

func (t *CommandTool) Description() string {
	return "Execute a system command and return output"
}

func (t *CommandTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {
				"type": "string",
				"description": "Command to execute"
			},
			"timeout": {
				"type": "integer",
				"default": 30,
				"minimum": 1,
				"maximum": 300,
				"description": "Timeout in seconds"
			},
			"shell": {
				"type": "boolean",
				"default": true,
				"description": "Run through the system shell"
			}
		},
		"required": ["command"]
	}`)
}

type commandInput struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
	Shell   bool   `json:"shell"`
}

// Execute runs the command, killing the subprocess when the timeout expires.
func (t *CommandTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input commandInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}

	command := strings.TrimSpace(input.Command)
	if command == "" {
		return tools.Fail("Command cannot be empty"), nil
	}

	timeout := time.Duration(input.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if input.Shell {
		if runtime.GOOS == "windows" {
			cmd = exec.CommandContext(ctx, "cmd", "/C", command)
		} else {
			cmd = exec.CommandContext(ctx, "sh", "-c", command)
		}
	} else {
		fields := strings.Fields(command)
		cmd = exec.CommandContext(ctx, fields[0], fields[1:]...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Kill the whole process group on timeout; an orphaned child keeping
	// the pipes open would otherwise block Run past the deadline.
	isolateProcessGroup(cmd)
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &tools.Result{
			Success: false,
			Error:   "Command timed out after " + timeout.String(),
			Data:    map[string]any{"return_code": -1},
		}, nil
	}

	returnCode := 0
	if cmd.ProcessState != nil {
		returnCode = cmd.ProcessState.ExitCode()
	}

	data := map[string]any{
		"command":     command,
		"stdout":      stdout.String(),
		"stderr":      stderr.String(),
		"return_code": returnCode,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Command never started (not found, permission denied).
			return tools.Fail("Execution failed: %v", err), nil
		}
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		return &tools.Result{Success: false, Error: errMsg, Data: data}, nil
	}

	return tools.Ok(data), nil
}
