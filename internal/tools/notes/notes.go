// Package notes provides the note_create and note_list tools. Notes are
// markdown files with a YAML front matter block under the data directory.
package notes

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// frontMatter is the YAML header written at the top of every note file.
type frontMatter struct {
	Title   string `yaml:"title"`
	Created string `yaml:"created"`
	Tags    string `yaml:"tags"`
}

// renderNote builds the on-disk note document.
func renderNote(title, content, tags string, created time.Time) (string, error) {
	if tags == "" {
		tags = "untagged"
	}
	header, err := yaml.Marshal(frontMatter{
		Title:   title,
		Created: created.Format(time.RFC3339),
		Tags:    tags,
	})
	if err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	return fmt.Sprintf("---\n%s---\n\n%s\n", header, content), nil
}

// parseFrontMatter extracts the YAML header from a note document. Notes
// without a header return a zero frontMatter.
func parseFrontMatter(doc string) frontMatter {
	var fm frontMatter
	rest, ok := strings.CutPrefix(doc, "---\n")
	if !ok {
		return fm
	}
	header, _, ok := strings.Cut(rest, "\n---")
	if !ok {
		return fm
	}
	_ = yaml.Unmarshal([]byte(header), &fm)
	return fm
}

// noteID derives a stable, filename-safe ID from the creation time and title.
func noteID(title string, created time.Time) string {
	short := title
	if len(short) > 20 {
		short = short[:20]
	}
	id := created.UTC().Format("2006-01-02T15-04-05") + "-" + short
	id = strings.ToLower(id)
	return strings.ReplaceAll(id, " ", "-")
}
