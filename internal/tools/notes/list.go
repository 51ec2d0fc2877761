package notes

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dexos/dex/internal/tools"
)

// ListTool lists and searches saved notes.
type ListTool struct {
	dir string
}

// NewListTool creates the note_list tool rooted at dir.
func NewListTool(dir string) *ListTool {
	return &ListTool{dir: dir}
}

func (t *ListTool) Name() string { return "note_list" }

func (t *ListTool) Description() string {
	return "List and search notes"
}

func (t *ListTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"search_term": {
				"type": "string",
				"default": "",
				"description": "Substring to match against note content"
			}
		}
	}`)
}

type listInput struct {
	SearchTerm string `json:"search_term"`
}

func (t *ListTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input listInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(input.SearchTerm))

	entries, err := os.ReadDir(t.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return tools.Ok(map[string]any{"notes": []any{}, "total_count": 0}), nil
		}
		return tools.Fail("Note listing failed: %v", err), nil
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".md") {
			names = append(names, entry.Name())
		}
	}
	// Newest first: IDs are timestamp-prefixed.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	notes := make([]any, 0, len(names))
	for _, name := range names {
		path := filepath.Join(t.dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(string(content)), search) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		fm := parseFrontMatter(string(content))
		notes = append(notes, map[string]any{
			"id":         strings.TrimSuffix(name, ".md"),
			"filename":   name,
			"title":      fm.Title,
			"tags":       fm.Tags,
			"size_bytes": info.Size(),
			"modified":   info.ModTime().UTC().Format(time.RFC3339),
		})
	}

	return tools.Ok(map[string]any{
		"notes":       notes,
		"total_count": len(notes),
		"search_term": search,
	}), nil
}
