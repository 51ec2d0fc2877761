// Package files provides the file_read and file_write tools.
package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dexos/dex/internal/tools"
)

// ReadTool reads a file from disk.
type ReadTool struct{}

// NewReadTool creates the file_read tool.
func NewReadTool() *ReadTool {
	return &ReadTool{}
}

func (t *ReadTool) Name() string { return "file_read" }

func (t *ReadTool) Description() string {
	return "Read the contents of a file"
}

func (t *ReadTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"file_path": {
				"type": "string",
				"description": "Path to the file to read"
			},
			"encoding": {
				"type": "string",
				"default": "utf-8",
				"enum": ["utf-8"],
				"description": "Text encoding"
			}
		},
		"required": ["file_path"]
	}`)
}

type readInput struct {
	FilePath string `json:"file_path"`
	Encoding string `json:"encoding"`
}

func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input readInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	if input.FilePath == "" {
		return tools.Fail("File path is required"), nil
	}

	content, err := os.ReadFile(input.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return tools.Fail("File not found: %s", input.FilePath), nil
		}
		return tools.Fail("Read failed: %v", err), nil
	}

	abs, err := filepath.Abs(input.FilePath)
	if err != nil {
		abs = input.FilePath
	}
	return tools.Ok(map[string]any{
		"file_path":  abs,
		"content":    string(content),
		"bytes_read": len(content),
	}), nil
}
