package notes

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"
)

func createNote(t *testing.T, dir, title, content, tags string) map[string]any {
	t.Helper()
	tool := NewCreateTool(dir)
	params, _ := json.Marshal(map[string]any{"title": title, "content": content, "tags": tags})
	res, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("create result = %+v", res)
	}
	return res.Data
}

func TestCreateTool_WritesFrontMatter(t *testing.T) {
	dir := t.TempDir()
	data := createNote(t, dir, "Shopping List", "milk and eggs", "errands,home")

	raw, err := os.ReadFile(data["file_path"].(string))
	if err != nil {
		t.Fatal(err)
	}
	doc := string(raw)
	if !strings.HasPrefix(doc, "---\n") {
		t.Errorf("missing front matter: %q", doc)
	}
	fm := parseFrontMatter(doc)
	if fm.Title != "Shopping List" {
		t.Errorf("title = %q", fm.Title)
	}
	if fm.Tags != "errands,home" {
		t.Errorf("tags = %q", fm.Tags)
	}
	if !strings.Contains(doc, "milk and eggs") {
		t.Error("body missing")
	}
}

func TestCreateTool_RequiresTitleAndContent(t *testing.T) {
	tool := NewCreateTool(t.TempDir())
	params, _ := json.Marshal(map[string]any{"title": "  ", "content": ""})
	res, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("expected failure")
	}
}

func TestListTool_SearchFilters(t *testing.T) {
	dir := t.TempDir()
	createNote(t, dir, "Groceries", "buy milk", "")
	createNote(t, dir, "Project", "ship the release", "work")

	tool := NewListTool(dir)

	t.Run("all notes", func(t *testing.T) {
		params, _ := json.Marshal(map[string]any{})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Data["total_count"] != 2 {
			t.Errorf("total_count = %v, want 2", res.Data["total_count"])
		}
	})

	t.Run("search matches content", func(t *testing.T) {
		params, _ := json.Marshal(map[string]any{"search_term": "RELEASE"})
		res, err := tool.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Data["total_count"] != 1 {
			t.Fatalf("total_count = %v, want 1", res.Data["total_count"])
		}
		note := res.Data["notes"].([]any)[0].(map[string]any)
		if note["title"] != "Project" {
			t.Errorf("title = %v, want Project", note["title"])
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		empty := NewListTool(t.TempDir())
		params, _ := json.Marshal(map[string]any{})
		res, err := empty.Execute(context.Background(), params)
		if err != nil {
			t.Fatal(err)
		}
		if res.Data["total_count"] != 0 {
			t.Errorf("total_count = %v, want 0", res.Data["total_count"])
		}
	})
}

func TestNoteID(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	id := noteID("My Long Meeting Notes From Today", created)
	if !strings.HasPrefix(id, "2026-03-01t09-30-00-") {
		t.Errorf("id = %q", id)
	}
	if strings.Contains(id, " ") {
		t.Errorf("id contains spaces: %q", id)
	}
}
