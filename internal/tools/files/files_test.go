package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "note.txt")

	write := NewWriteTool()
	params, _ := json.Marshal(map[string]any{
		"file_path":      path,
		"content":        "hello world",
		"create_parents": true,
	})
	res, err := write.Execute(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("write result = %+v", res)
	}
	if res.Data["bytes_written"] != 11 {
		t.Errorf("bytes_written = %v, want 11", res.Data["bytes_written"])
	}

	read := NewReadTool()
	params, _ = json.Marshal(map[string]any{"file_path": path})
	res, err = read.Execute(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("read result = %+v", res)
	}
	if res.Data["content"] != "hello world" {
		t.Errorf("content = %q", res.Data["content"])
	}
	if res.Data["bytes_read"] != 11 {
		t.Errorf("bytes_read = %v, want 11", res.Data["bytes_read"])
	}
}

func TestReadTool_MissingFile(t *testing.T) {
	read := NewReadTool()
	params, _ := json.Marshal(map[string]any{"file_path": filepath.Join(t.TempDir(), "absent.txt")})
	res, err := read.Execute(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("expected failure for missing file")
	}
}

func TestWriteTool_NoParentCreation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "file.txt")
	write := NewWriteTool()
	params, _ := json.Marshal(map[string]any{
		"file_path":      path,
		"content":        "x",
		"create_parents": false,
	})
	res, err := write.Execute(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("expected failure without parent directory")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should not exist")
	}
}
