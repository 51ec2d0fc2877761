package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dexos/dex/internal/tools"
)

// WriteTool writes content to a file.
type WriteTool struct{}

// NewWriteTool creates the file_write tool.
func NewWriteTool() *WriteTool {
	return &WriteTool{}
}

func (t *WriteTool) Name() string { return "file_write" }

func (t *WriteTool) Description() string {
	return "Write content to a file, creating parent directories when asked"
}

func (t *WriteTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"file_path": {
				"type": "string",
				"description": "Path to the file to write"
			},
			"content": {
				"type": "string",
				"description": "Content to write"
			},
			"encoding": {
				"type": "string",
				"default": "utf-8",
				"enum": ["utf-8"],
				"description": "Text encoding"
			},
			"create_parents": {
				"type": "boolean",
				"default": true,
				"description": "Create missing parent directories"
			}
		},
		"required": ["file_path", "content"]
	}`)
}

type writeInput struct {
	FilePath      string `json:"file_path"`
	Content       string `json:"content"`
	Encoding      string `json:"encoding"`
	CreateParents bool   `json:"create_parents"`
}

func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input writeInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	if input.FilePath == "" {
		return tools.Fail("File path is required"), nil
	}

	if input.CreateParents {
		if dir := filepath.Dir(input.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return tools.Fail("Write failed: %v", err), nil
			}
		}
	}

	if err := os.WriteFile(input.FilePath, []byte(input.Content), 0o644); err != nil {
		return tools.Fail("Write failed: %v", err), nil
	}

	abs, err := filepath.Abs(input.FilePath)
	if err != nil {
		abs = input.FilePath
	}
	return tools.Ok(map[string]any{
		"file_path":     abs,
		"bytes_written": len(input.Content),
	}), nil
}
