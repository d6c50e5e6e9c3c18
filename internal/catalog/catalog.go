// Package catalog loads the static ABS category catalog used to steer the
// category resolver and to enrich fallback datasets with topics.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Entry describes one known ABS category.
type Entry struct {
	CatID       string   `json:"catId"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Topics      []string `json:"topics"`
}

// Store is the process-scoped, read-only category catalog. Loaded once at
// startup; safe for unsynchronized concurrent reads.
type Store struct {
	entries     []Entry
	contextJSON string
}

// Load reads the catalog from a JSON file. A missing or invalid file is a
// startup error.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	blob, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize catalog context: %w", err)
	}

	return &Store{entries: entries, contextJSON: string(blob)}, nil
}

// Entries returns all catalog entries. Callers must not mutate the slice.
func (s *Store) Entries() []Entry { return s.entries }

// Size returns the number of catalog entries.
func (s *Store) Size() int { return len(s.entries) }

// ContextJSON returns the catalog serialized for use as model context.
func (s *Store) ContextJSON() string { return s.contextJSON }

// TopicsFor returns the topics of the entry whose id equals categoryID,
// or an empty slice when no entry matches.
func (s *Store) TopicsFor(categoryID string) []string {
	for _, e := range s.entries {
		if e.CatID == categoryID {
			if e.Topics == nil {
				return []string{}
			}
			return e.Topics
		}
	}
	return []string{}
}

// HealthCheck reports an error when the catalog is empty.
func (s *Store) HealthCheck() error {
	if len(s.entries) == 0 {
		return fmt.Errorf("catalog is empty")
	}
	return nil
}
