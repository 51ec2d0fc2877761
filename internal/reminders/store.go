// Package reminders provides the durable reminder store backing the
// reminder tools and the monitor daemon.
package reminders

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dexos/dex/pkg/models"
)

// Store persists reminders as a JSON array. Writes go through a temp file
// and rename, so concurrent readers observe either the old or the new
// content, never a partial file.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewStore creates a store at path. The file is created on first write.
func NewStore(path string) *Store {
	return &Store{path: path, logger: slog.Default()}
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Load reads all reminders. A missing file yields an empty slice.
func (s *Store) Load() ([]*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]*models.Reminder, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reminders: %w", err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse reminders: %w", err)
	}

	// Decode entry by entry: one hand-edited, malformed reminder must not
	// take the rest of the list down with it.
	out := make([]*models.Reminder, 0, len(items))
	for i, item := range items {
		var r models.Reminder
		if err := json.Unmarshal(item, &r); err != nil {
			s.logger.Warn("skipping malformed reminder entry",
				"path", s.path, "index", i, "error", err)
			continue
		}
		out = append(out, &r)
	}
	return out, nil
}

func (s *Store) save(list []*models.Reminder) error {
	if list == nil {
		list = []*models.Reminder{}
	}
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reminders: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write reminders: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace reminders: %w", err)
	}
	return nil
}

// Add appends a reminder and persists.
func (s *Store) Add(r *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load()
	if err != nil {
		return err
	}
	list = append(list, r)
	return s.save(list)
}

// Mutate loads the reminder list, applies fn, and persists the result. fn
// runs under the store lock and may modify reminders in place.
func (s *Store) Mutate(fn func(list []*models.Reminder) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(list); err != nil {
		return err
	}
	return s.save(list)
}

// Sorted returns all reminders ordered by scheduled time ascending.
func (s *Store) Sorted() ([]*models.Reminder, error) {
	list, err := s.Load()
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ScheduledTime.Before(list[j].ScheduledTime)
	})
	return list, nil
}
