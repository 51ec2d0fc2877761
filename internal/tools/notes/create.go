package notes

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dexos/dex/internal/tools"
)

// CreateTool saves a note under the notes directory.
type CreateTool struct {
	dir string
}

// NewCreateTool creates the note_create tool rooted at dir.
func NewCreateTool(dir string) *CreateTool {
	return &CreateTool{dir: dir}
}

func (t *CreateTool) Name() string { return "note_create" }

func (t *CreateTool) Description() string {
	return "Create and save a note"
}

func (t *CreateTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {
				"type": "string",
				"description": "Note title"
			},
			"content": {
				"type": "string",
				"description": "Note content"
			},
			"tags": {
				"type": "string",
				"default": "",
				"description": "Comma-separated tags"
			}
		},
		"required": ["title", "content"]
	}`)
}

type createInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

func (t *CreateTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input createInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return tools.Fail("Title and content are required"), nil
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return tools.Fail("Note creation failed: %v", err), nil
	}

	now := time.Now().UTC()
	id := noteID(title, now)
	doc, err := renderNote(title, content, input.Tags, now)
	if err != nil {
		return tools.Fail("Note creation failed: %v", err), nil
	}

	path := filepath.Join(t.dir, id+".md")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return tools.Fail("Note creation failed: %v", err), nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return tools.Ok(map[string]any{
		"note_id":    id,
		"title":      title,
		"file_path":  abs,
		"created_at": now.Format(time.RFC3339),
	}), nil
}
